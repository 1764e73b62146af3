package session

import "time"

// BackoffConfig defines the poll delay growth between response checks.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// Config defines channel file naming and waiting behavior.
type Config struct {
	RequestExt  string
	ResponseExt string
	// ResponseTimeout bounds Await; zero waits until the response arrives.
	ResponseTimeout time.Duration
	// ReadRetries is how many times an unparsable response file is re-read
	// before it is handed to the decoder as-is.
	ReadRetries  int
	// Settle is how long an unparsable response must stay unchanged before
	// it is handed over; a file still growing is never rejected.
	Settle       time.Duration
	DisableWatch bool
	Poll         BackoffConfig
}

// DefaultConfig returns the HSLremote script defaults (.hsl out, .json in, 200ms poll ceiling).
func DefaultConfig() Config {
	return Config{
		RequestExt:      "hsl",
		ResponseExt:     "json",
		ResponseTimeout: 0,
		ReadRetries:     5,
		Settle:          250 * time.Millisecond,
		Poll: BackoffConfig{
			InitialDelay: 10 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     200 * time.Millisecond,
		},
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.RequestExt == "" {
		c.RequestExt = def.RequestExt
	}
	if c.ResponseExt == "" {
		c.ResponseExt = def.ResponseExt
	}
	if c.ReadRetries <= 0 {
		c.ReadRetries = def.ReadRetries
	}
	if c.Settle <= 0 {
		c.Settle = def.Settle
	}
	if c.Poll.InitialDelay <= 0 {
		c.Poll.InitialDelay = def.Poll.InitialDelay
	}
	if c.Poll.Multiplier < 1.0 {
		c.Poll.Multiplier = def.Poll.Multiplier
	}
	if c.Poll.MaxDelay <= 0 {
		c.Poll.MaxDelay = def.Poll.MaxDelay
	}
	if c.Poll.MaxDelay < c.Poll.InitialDelay {
		c.Poll.MaxDelay = c.Poll.InitialDelay
	}
	if c.ResponseTimeout < 0 {
		c.ResponseTimeout = 0
	}
	return c
}
