package config

import "time"

// Config holds client configuration values.
type Config struct {
	ServerURL         string        `mapstructure:"server_url" yaml:"server_url"`
	AuthToken         string        `mapstructure:"auth_token" yaml:"auth_token"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	DialTimeout       time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	SendTimeout       time.Duration `mapstructure:"send_timeout" yaml:"send_timeout"`
	ReconnectMinDelay time.Duration `mapstructure:"reconnect_min_delay" yaml:"reconnect_min_delay"`
	ReconnectMaxDelay time.Duration `mapstructure:"reconnect_max_delay" yaml:"reconnect_max_delay"`
	RecoveryTimeout   time.Duration `mapstructure:"recovery_timeout" yaml:"recovery_timeout"`
	CandidateQueueCap int           `mapstructure:"candidate_queue_cap" yaml:"candidate_queue_cap"`
	STUNServers       []string      `mapstructure:"stun_servers" yaml:"stun_servers"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		ServerURL:         "ws://localhost:8080/ws",
		LogLevel:          "info",
		DialTimeout:       10 * time.Second,
		SendTimeout:       5 * time.Second,
		ReconnectMinDelay: 500 * time.Millisecond,
		ReconnectMaxDelay: 15 * time.Second,
		RecoveryTimeout:   30 * time.Second,
		CandidateQueueCap: 32,
		STUNServers:       []string{"stun:stun.l.google.com:19302"},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.ServerURL != "" {
		c.ServerURL = other.ServerURL
	}
	if other.AuthToken != "" {
		c.AuthToken = other.AuthToken
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DialTimeout != 0 {
		c.DialTimeout = other.DialTimeout
	}
	if other.SendTimeout != 0 {
		c.SendTimeout = other.SendTimeout
	}
	if other.ReconnectMinDelay != 0 {
		c.ReconnectMinDelay = other.ReconnectMinDelay
	}
	if other.ReconnectMaxDelay != 0 {
		c.ReconnectMaxDelay = other.ReconnectMaxDelay
	}
	if other.RecoveryTimeout != 0 {
		c.RecoveryTimeout = other.RecoveryTimeout
	}
	if other.CandidateQueueCap != 0 {
		c.CandidateQueueCap = other.CandidateQueueCap
	}
	if len(other.STUNServers) != 0 {
		c.STUNServers = other.STUNServers
	}
}
