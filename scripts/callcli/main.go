package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vovakirdan/wirechat-client/internal/app"
	"github.com/vovakirdan/wirechat-client/internal/audio"
	"github.com/vovakirdan/wirechat-client/internal/config"
	"github.com/vovakirdan/wirechat-client/internal/log"
)

// Manual smoke client: drives the call core against a live server from the
// terminal.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "callcli: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	server := flag.String("server", "ws://localhost:8080/ws", "signaling server WebSocket URL")
	token := flag.String("token", "", "JWT auth token")
	level := flag.String("log-level", "warn", "log level")
	flag.Parse()

	cfg := config.Default()
	cfg.ServerURL = *server
	cfg.AuthToken = *token
	cfg.LogLevel = *level

	logger := log.New(cfg.LogLevel)
	application := app.New(cfg, logger, audio.NopRouter{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		for u := range application.Updates() {
			line := fmt.Sprintf("<< phase=%s", u.Session.Phase)
			if u.Session.PeerID != "" {
				line += " peer=" + u.Session.PeerID
			}
			if u.Err != nil {
				line += " error=" + u.Err.Code
			}
			fmt.Println(line)
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- application.Run(ctx) }()

	fmt.Println("commands: call <peer> [video] | accept | reject | end | mute | unmute | camera on|off | quit")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	m := application.Machine()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			return err
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			switch fields[0] {
			case "call":
				if len(fields) < 2 {
					fmt.Println("usage: call <peer> [video]")
					continue
				}
				withCamera := len(fields) > 2 && fields[2] == "video"
				m.PlaceCall(fields[1], fields[1], withCamera)
			case "accept":
				m.AcceptCall()
			case "reject":
				m.RejectCall()
			case "end":
				m.EndCall()
			case "mute":
				m.SetMuted(true)
			case "unmute":
				m.SetMuted(false)
			case "camera":
				if len(fields) < 2 {
					fmt.Println("usage: camera on|off")
					continue
				}
				m.SetCameraEnabled(fields[1] == "on")
			case "quit":
				return nil
			default:
				fmt.Println("unknown command:", fields[0])
			}
		}
	}
}
