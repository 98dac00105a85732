package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-client/internal/audio"
	"github.com/vovakirdan/wirechat-client/internal/config"
	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/log"
	"github.com/vovakirdan/wirechat-client/internal/media"
	"github.com/vovakirdan/wirechat-client/internal/signaling"
)

// App wires the signaling transport, media engine, binder and call state
// machine together. Init happens on login (Run), teardown on logout
// (context cancellation); nothing here survives the process.
type App struct {
	log       *zerolog.Logger
	transport *signaling.Transport
	machine   *core.Machine
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger, router audio.Router) *App {
	binder := media.NewBinder(log.Component(logger, "binder"))
	engine := media.NewPionEngine(log.Component(logger, "media"), cfg.STUNServers)

	var machine *core.Machine
	transport := signaling.NewTransport(signaling.Config{
		URL:               cfg.ServerURL,
		Token:             cfg.AuthToken,
		DialTimeout:       cfg.DialTimeout,
		SendTimeout:       cfg.SendTimeout,
		ReconnectMinDelay: cfg.ReconnectMinDelay,
		ReconnectMaxDelay: cfg.ReconnectMaxDelay,
	}, log.Component(logger, "signaling"), func(ev core.SignalingEvent) {
		machine.Deliver(ev)
	})

	machine = core.NewMachine(core.Config{
		RecoveryTimeout:   cfg.RecoveryTimeout,
		CandidateQueueCap: cfg.CandidateQueueCap,
	}, log.Component(logger, "call"), transport, engine, binder, router)

	return &App{
		log:       logger,
		transport: transport,
		machine:   machine,
	}
}

// Machine exposes the call state machine for the UI layer.
func (a *App) Machine() *core.Machine {
	return a.machine
}

// Updates exposes call state snapshots for the UI layer.
func (a *App) Updates() <-chan core.Update {
	return a.machine.Updates()
}

// Run connects the transport and blocks until context cancellation. It also
// bridges transport connection state into the state machine, which is what
// drives the Active <-> Recovering transitions.
func (a *App) Run(ctx context.Context) error {
	if err := a.transport.Connect(ctx); err != nil {
		return err
	}
	defer a.transport.Close()

	go a.machine.Run(ctx)

	conn := a.transport.SubscribeConn()
	for {
		select {
		case <-ctx.Done():
			a.log.Info().Msg("shutting down client core")
			return nil
		case st := <-conn:
			a.machine.SetConnected(st.Status == signaling.StatusConnected)
		}
	}
}
