package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Source    SourceConfig    `mapstructure:"source"`
	Redis     RedisConfig     `mapstructure:"redis"     validate:"required"`
	Inference InferenceConfig `mapstructure:"inference" validate:"required"`
	Push      PushConfig      `mapstructure:"push"`
	Task      TaskConfig      `mapstructure:"task"`
}

// ServerConfig contains all HTTP-server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains the application database settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// SourceConfig contains the transcript source database settings.
// An empty URL means the transcripts live in the application database.
type SourceConfig struct {
	URL string `mapstructure:"url"`
}

// RedisConfig contains the completion counter store settings.
type RedisConfig struct {
	URL string `mapstructure:"url" validate:"required"`

	// CounterTTLHours bounds how long counter entries survive for a
	// request that never completes.
	CounterTTLHours int `mapstructure:"counter_ttl_hours" validate:"gte=1"`
}

// InferenceConfig contains the settings for the external inference service.
type InferenceConfig struct {
	URL            string `mapstructure:"url" validate:"required,url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gte=1"`

	// MaxInFlight caps concurrent submissions across all requests being
	// dispatched by this process.
	MaxInFlight int `mapstructure:"max_in_flight" validate:"gte=1"`
}

// PushConfig contains the downstream delivery settings.
type PushConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"gte=1"`

	// Destinations maps a caller affiliation to its delivery endpoint.
	Destinations map[string]PushDestination `mapstructure:"destinations"`
}

// PushDestination identifies one downstream consumer and its signing
// credentials.
type PushDestination struct {
	URL    string `mapstructure:"url"    validate:"required,url"`
	AppID  string `mapstructure:"app_id" validate:"required"`
	Secret string `mapstructure:"secret" validate:"required"`
}

// TaskConfig contains the background work queue settings.
type TaskConfig struct {
	QueueSize   int `mapstructure:"queue_size"   validate:"gte=1"`
	WorkerCount int `mapstructure:"worker_count" validate:"gte=1"`
}
