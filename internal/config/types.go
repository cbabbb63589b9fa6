package config

// SchedulerConfig controls dispatch.
type SchedulerConfig struct {
	MaxConcurrent int `json:"max_concurrent,omitempty"` // Tasks allowed to run at once
}

// JournalConfig controls the SQLite audit journal of task transitions.
type JournalConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path,omitempty"`        // Database file, relative to the working directory
	BufferSize int    `json:"buffer_size,omitempty"` // Minimum recorder buffer; runs size it to their plan
}

// LogConfig controls the root logger.
type LogConfig struct {
	Level string `json:"level,omitempty"` // trace, debug, info, warn, error
	JSON  bool   `json:"json"`
}

// MetricsConfig controls the in-memory metrics sink.
type MetricsConfig struct {
	Enabled bool `json:"enabled"`
}

// Config is the top-level configuration.
type Config struct {
	Scheduler SchedulerConfig `json:"scheduler"`
	Journal   JournalConfig   `json:"journal"`
	Log       LogConfig       `json:"log"`
	Metrics   MetricsConfig   `json:"metrics"`
}
