// internal/logger/config.go
package logger

type Config struct {
	LogFile     string // empty disables the file sink
	MaxSize     int    // megabytes
	MaxAge      int    // days
	MaxBackups  int
	Compress    bool
	Development bool
	Pretty      bool // colored one-line console output without fields
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() *Config {
	return &Config{
		LogFile:    "oracle-amm.log",
		MaxSize:    100,
		MaxAge:     7,
		MaxBackups: 3,
		Compress:   true,
	}
}
