package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Collab   CollabConfig   `yaml:"collab"`
	Canvas   CanvasConfig   `yaml:"canvas"`
	Log      LogConfig      `yaml:"log"`
	CORS     CORSConfig     `yaml:"cors"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"               env:"SERVER_HOST"               env-default:"0.0.0.0"`
	Port            int           `yaml:"port"               env:"SERVER_PORT"               env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"       env:"SERVER_READ_TIMEOUT"       env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"      env:"SERVER_WRITE_TIMEOUT"      env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"       env:"SERVER_IDLE_TIMEOUT"       env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"   env:"SERVER_SHUTDOWN_TIMEOUT"   env-default:"10s"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min" env:"SERVER_RATE_LIMIT_PER_MIN" env-default:"300"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// AuthConfig holds identity-token validation settings. Tokens are issued by
// an external identity service; this backend only validates them.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET" env-required:"true"`
	JWTIssuer string `yaml:"jwt_issuer" env:"AUTH_JWT_ISSUER" env-default:"taskmaster"`
}

// CollabConfig holds real-time synchronization settings.
type CollabConfig struct {
	// PingInterval is the liveness sweep period. A session that missed the
	// previous ping when the sweep fires is forcibly disconnected.
	PingInterval time.Duration `yaml:"ping_interval" env:"COLLAB_PING_INTERVAL" env-default:"30s"`
	// SendBuffer is the per-session outbound queue size. A session whose
	// queue is full at broadcast time is disconnected.
	SendBuffer int `yaml:"send_buffer" env:"COLLAB_SEND_BUFFER" env-default:"64"`
	// WriteTimeout bounds a single websocket write to a slow peer.
	WriteTimeout time.Duration `yaml:"write_timeout" env:"COLLAB_WRITE_TIMEOUT" env-default:"10s"`
	// MaxMessageBytes caps an inbound frame. Patches of 500 nodes fit
	// comfortably under 1 MiB.
	MaxMessageBytes int64 `yaml:"max_message_bytes" env:"COLLAB_MAX_MESSAGE_BYTES" env-default:"1048576"`
}

// CanvasConfig holds canvas service limits.
type CanvasConfig struct {
	MaxPerUser int `yaml:"max_per_user" env:"CANVAS_MAX_PER_USER" env-default:"8"`
	MaxNodes   int `yaml:"max_nodes"    env:"CANVAS_MAX_NODES"    env-default:"500"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}
