package config

// Default values used by DefaultConfig.
const (
	DefaultMaxConcurrent     = 5
	DefaultJournalPath       = ".taskflow/journal.db"
	DefaultJournalBufferSize = 1024
	DefaultLogLevel          = "info"
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			MaxConcurrent: DefaultMaxConcurrent,
		},
		Journal: JournalConfig{
			Enabled:    true,
			Path:       DefaultJournalPath,
			BufferSize: DefaultJournalBufferSize,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}
