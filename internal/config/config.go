package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	EnvRuntime = "HSLREMOTE_RUNTIME"
	EnvRoot    = "HSLREMOTE_ROOT"

	DefaultExecutable = `C:\Program Files (x86)\HAMILTON\Bin\HxRun.exe`
	DefaultConverter  = `C:\Program Files (x86)\HAMILTON\Bin\HxCfgFilConverter.exe`
	DefaultRoot       = `C:\Program Files (x86)\HAMILTON\HSL\HSLremote`
	ScriptName        = "HSLremote.hsl"
)

var ErrInvalid = errors.New("config: invalid")

// Config is the bridge configuration file.
type Config struct {
	Runtime   RuntimeConfig   `toml:"runtime"`
	Channel   ChannelConfig   `toml:"channel"`
	Resources ResourcesConfig `toml:"resources"`
}

type RuntimeConfig struct {
	Executable      string   `toml:"executable"`
	Root            string   `toml:"root"`
	Script          string   `toml:"script"`
	StartMinimized  bool     `toml:"start_minimized"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

type ChannelConfig struct {
	ResponseTimeout Duration `toml:"response_timeout"`
	PollInitial     Duration `toml:"poll_initial"`
	PollMax         Duration `toml:"poll_max"`
	ReadRetries     int      `toml:"read_retries"`
	Watch           bool     `toml:"watch"`
}

type ResourcesConfig struct {
	Converter string   `toml:"converter"`
	WorkDir   string   `toml:"work_dir"`
	OutputDir string   `toml:"output_dir"`
	Package   string   `toml:"package"`
	CacheTTL  Duration `toml:"cache_ttl"`
}

// Duration reads TOML strings such as "200ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("config: duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Runtime: RuntimeConfig{
			Executable:      DefaultExecutable,
			Root:            DefaultRoot,
			ShutdownTimeout: Duration{30 * time.Second},
		},
		Channel: ChannelConfig{
			PollInitial: Duration{10 * time.Millisecond},
			PollMax:     Duration{200 * time.Millisecond},
			ReadRetries: 5,
			Watch:       true,
		},
		Resources: ResourcesConfig{
			Converter: DefaultConverter,
			OutputDir: "bindings",
			Package:   "bindings",
			CacheTTL:  Duration{10 * time.Minute},
		},
	}
}

// Load reads path over the defaults, applies env overrides and validates.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := loadToml(path, &cfg); err != nil {
		return Config{}, err
	}
	ApplyEnv(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadToml(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	meta, err := toml.Decode(string(data), out)
	if err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalid, path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overrides the runtime executable and root from the environment.
func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvRuntime)); v != "" {
		cfg.Runtime.Executable = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRoot)); v != "" {
		cfg.Runtime.Root = v
	}
}

// ScriptPath is the configured script, or HSLremote.hsl under the root.
func (c RuntimeConfig) ScriptPath() string {
	if strings.TrimSpace(c.Script) != "" {
		return c.Script
	}
	return filepath.Join(c.Root, ScriptName)
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Runtime.Executable) == "" {
		return fmt.Errorf("%w: runtime.executable is required", ErrInvalid)
	}
	if strings.TrimSpace(cfg.Runtime.Root) == "" {
		return fmt.Errorf("%w: runtime.root is required", ErrInvalid)
	}
	if cfg.Runtime.ShutdownTimeout.Duration < 0 {
		return fmt.Errorf("%w: runtime.shutdown_timeout must not be negative", ErrInvalid)
	}
	if cfg.Channel.ResponseTimeout.Duration < 0 {
		return fmt.Errorf("%w: channel.response_timeout must not be negative", ErrInvalid)
	}
	if cfg.Channel.PollInitial.Duration <= 0 || cfg.Channel.PollMax.Duration < cfg.Channel.PollInitial.Duration {
		return fmt.Errorf("%w: channel.poll_initial must be positive and not exceed poll_max", ErrInvalid)
	}
	if cfg.Channel.ReadRetries < 0 {
		return fmt.Errorf("%w: channel.read_retries must not be negative", ErrInvalid)
	}
	if cfg.Resources.CacheTTL.Duration < 0 {
		return fmt.Errorf("%w: resources.cache_ttl must not be negative", ErrInvalid)
	}
	return nil
}
