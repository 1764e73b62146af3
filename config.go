package hslremote

import (
	"github.com/danmuck/hslremote/internal/config"
)

// LoadConfig reads a TOML bridge config and returns the matching Open options.
// Options given after these to Open take precedence.
func LoadConfig(path string) ([]Option, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return configOptions(cfg), nil
}

// WriteConfigTemplate writes the commented default config file.
func WriteConfigTemplate(path string, overwrite bool) error {
	return config.WriteTemplate(path, overwrite)
}

func configOptions(cfg config.Config) []Option {
	opts := []Option{
		WithRuntime(cfg.Runtime.Executable),
		WithRoot(cfg.Runtime.Root),
		WithScript(cfg.Runtime.Script),
		WithShutdownTimeout(cfg.Runtime.ShutdownTimeout.Duration),
		withSessionConfig(cfg.Channel.SessionConfig()),
	}
	if cfg.Runtime.StartMinimized {
		opts = append(opts, StartMinimized())
	}
	return opts
}
