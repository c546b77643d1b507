package remote

const (
	defaultTimeoutMs  = 10000
	defaultMaxRetries = 2
)

// Config controls how the client reaches the share server.
type Config struct {
	Endpoint   string
	TimeoutMs  int
	MaxRetries int
}

// DefaultConfig targets a server on localhost.
func DefaultConfig() Config {
	return Config{
		Endpoint:   "http://localhost:8080",
		TimeoutMs:  defaultTimeoutMs,
		MaxRetries: defaultMaxRetries,
	}
}

func (c Config) timeoutMs() int {
	if c.TimeoutMs <= 0 {
		return defaultTimeoutMs
	}
	return c.TimeoutMs
}

func (c Config) attempts() int {
	if c.MaxRetries < 0 {
		return 1
	}
	return 1 + c.MaxRetries
}
