package config

import (
	"github.com/danmuck/hslremote/internal/protocol/session"
)

// SessionConfig maps the [channel] table onto the channel's own config.
func (c ChannelConfig) SessionConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.ResponseTimeout = c.ResponseTimeout.Duration
	cfg.ReadRetries = c.ReadRetries
	cfg.DisableWatch = !c.Watch
	if c.PollInitial.Duration > 0 {
		cfg.Poll.InitialDelay = c.PollInitial.Duration
	}
	if c.PollMax.Duration > 0 {
		cfg.Poll.MaxDelay = c.PollMax.Duration
	}
	return cfg
}
