package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "VEGEDEX"

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	HTTP      HTTPSettings      `mapstructure:"http"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	Auth      AuthSettings      `mapstructure:"auth"`
	Argon2    Argon2Settings    `mapstructure:"argon2"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Storage   StorageSettings   `mapstructure:"storage"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// IsProduction reports whether cookies must be Secure and cross-site.
func (a AppSettings) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

// IsTest reports whether test-only behaviour (exposed reset tokens) is enabled.
func (a AppSettings) IsTest() bool {
	return strings.EqualFold(a.Env, "test")
}

// HTTPSettings configures the HTTP surface.
type HTTPSettings struct {
	ClientURL         string        `mapstructure:"client_url"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	MaxUploadBytes    int64         `mapstructure:"max_upload_bytes"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	EnsureSchema      bool          `mapstructure:"ensure_schema"`
}

// RedisSettings configures Redis connection and TLS
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// KafkaSettings configures the audit event producer
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// JWTSettings configures access token signing.
type JWTSettings struct {
	Secret          string        `mapstructure:"secret"`
	Issuer          string        `mapstructure:"issuer"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// AuthSettings configures timing equalisation and reset credentials.
type AuthSettings struct {
	LoginFailureMinDelay time.Duration `mapstructure:"login_failure_min_delay"`
	LoginFailureMaxDelay time.Duration `mapstructure:"login_failure_max_delay"`
	ForgotPasswordDelay  time.Duration `mapstructure:"forgot_password_delay"`
	ResetTokenTTL        time.Duration `mapstructure:"reset_token_ttl"`
	MinPasswordScore     int           `mapstructure:"min_password_score"`
}

// Argon2Settings configures Argon2id password hashing parameters
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

// RateLimitSettings configures rate limiting windows and max attempts per endpoint
type RateLimitSettings struct {
	WindowDuration           time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts         int           `mapstructure:"login_max_attempts"`
	RegisterMaxAttempts      int           `mapstructure:"register_max_attempts"`
	PasswordResetMaxAttempts int           `mapstructure:"password_reset_max_attempts"`
}

// StorageSettings configures the S3-compatible image bucket.
type StorageSettings struct {
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Bucket        string `mapstructure:"bucket"`
	Region        string `mapstructure:"region"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// unprefixed maps legacy deployment variables onto config keys.
var unprefixed = map[string]string{
	"app.env":         "NODE_ENV",
	"app.port":        "PORT",
	"jwt.secret":      "JWT_SECRET",
	"http.client_url": "CLIENT_URL",
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"http.client_url",
		"http.read_header_timeout",
		"http.read_timeout",
		"http.write_timeout",
		"http.idle_timeout",
		"http.max_upload_bytes",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"postgres.ensure_schema",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.key_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"jwt.secret",
		"jwt.issuer",
		"jwt.access_token_ttl",
		"jwt.refresh_token_ttl",
		"auth.login_failure_min_delay",
		"auth.login_failure_max_delay",
		"auth.forgot_password_delay",
		"auth.reset_token_ttl",
		"auth.min_password_score",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
		"rate_limit.window_duration",
		"rate_limit.login_max_attempts",
		"rate_limit.register_max_attempts",
		"rate_limit.password_reset_max_attempts",
		"storage.endpoint",
		"storage.access_key",
		"storage.secret_key",
		"storage.bucket",
		"storage.region",
		"storage.use_ssl",
		"storage.public_base_url",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the security components cannot run with.
func (c *AppConfig) Validate() error {
	var errs []error

	if len(c.JWT.Secret) < 32 {
		errs = append(errs, errors.New("jwt.secret must be at least 32 bytes"))
	}
	if c.JWT.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("jwt.access_token_ttl must be positive"))
	}
	if c.JWT.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("jwt.refresh_token_ttl must be positive"))
	}
	if c.Auth.ResetTokenTTL <= 0 {
		errs = append(errs, errors.New("auth.reset_token_ttl must be positive"))
	}
	if c.Auth.LoginFailureMaxDelay < c.Auth.LoginFailureMinDelay {
		errs = append(errs, errors.New("auth.login_failure_max_delay must not be below the min delay"))
	}
	if c.Auth.MinPasswordScore < 0 || c.Auth.MinPasswordScore > 4 {
		errs = append(errs, errors.New("auth.min_password_score must be between 0 and 4"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "vegedex-api")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 3000)

	v.SetDefault("http.client_url", "*")
	v.SetDefault("http.read_header_timeout", "10s")
	v.SetDefault("http.read_timeout", "30s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("http.max_upload_bytes", 5<<20)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "vegedex")
	v.SetDefault("postgres.password", "vegedex")
	v.SetDefault("postgres.database", "vegedex")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")
	v.SetDefault("postgres.ensure_schema", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.key_prefix", "vegedex")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "vegedex")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "vegedex-api")
	v.SetDefault("jwt.access_token_ttl", "1h")
	v.SetDefault("jwt.refresh_token_ttl", "168h")

	v.SetDefault("auth.login_failure_min_delay", "200ms")
	v.SetDefault("auth.login_failure_max_delay", "600ms")
	v.SetDefault("auth.forgot_password_delay", "500ms")
	v.SetDefault("auth.reset_token_ttl", "1h")
	v.SetDefault("auth.min_password_score", 0)

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("rate_limit.window_duration", "15m")
	v.SetDefault("rate_limit.login_max_attempts", 10)
	v.SetDefault("rate_limit.register_max_attempts", 5)
	v.SetDefault("rate_limit.password_reset_max_attempts", 5)

	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.bucket", "plant-images")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.public_base_url", "")

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "vegedex-api")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		names := []string{key, envPrefix + "_" + envKey, envKey}
		if legacy, ok := unprefixed[key]; ok {
			names = append(names, legacy)
		}
		if err := v.BindEnv(names...); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
