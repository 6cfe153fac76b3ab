package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	SSO       SSOSettings       `mapstructure:"sso"`
	CSRF      CSRFSettings      `mapstructure:"csrf"`
	Identity  IdentitySettings  `mapstructure:"identity"`
	Activity  ActivitySettings  `mapstructure:"activity"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name        string   `mapstructure:"name"`
	Env         string   `mapstructure:"env"`
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// SSOSettings configures cross-domain session propagation.
type SSOSettings struct {
	MainDomain        string        `mapstructure:"main_domain"`
	TokenParam        string        `mapstructure:"token_param"`
	SessionCookieName string        `mapstructure:"session_cookie_name"`
	EntryPath         string        `mapstructure:"entry_path"`
	EntryHostPrefix   string        `mapstructure:"entry_host_prefix"`
	ReturnURLParam    string        `mapstructure:"return_url_param"`
	LoginPath         string        `mapstructure:"login_path"`
	TokenTTL          time.Duration `mapstructure:"token_ttl"`
}

// CSRFSettings configures the double-submit cookie defense.
type CSRFSettings struct {
	CookieName   string        `mapstructure:"cookie_name"`
	HeaderName   string        `mapstructure:"header_name"`
	TokenLength  int           `mapstructure:"token_length"`
	Secure       bool          `mapstructure:"secure"`
	SameSite     string        `mapstructure:"same_site"`
	MaxAge       time.Duration `mapstructure:"max_age"`
	RotationLead time.Duration `mapstructure:"rotation_lead"`
}

// IdentitySettings configures the external Identity Provider client.
type IdentitySettings struct {
	BaseURL          string        `mapstructure:"base_url"`
	APIKey           string        `mapstructure:"api_key"`
	Timeout          time.Duration `mapstructure:"timeout"`
	ResetRedirectURL string        `mapstructure:"reset_redirect_url"`
}

// ActivitySettings configures session activity bookkeeping.
type ActivitySettings struct {
	TTL time.Duration `mapstructure:"ttl"`
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
}

// RedisSettings configures Redis connection and TLS.
type RedisSettings struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	DB            int    `mapstructure:"db"`
	Password      string `mapstructure:"password"`
	TLSEnabled    bool   `mapstructure:"tls_enabled"`
	StoragePrefix string `mapstructure:"storage_prefix"`
}

// KafkaSettings configures the Kafka producer.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// RateLimitSettings configures rate limiting windows and max attempts per endpoint.
type RateLimitSettings struct {
	WindowDuration           time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts         int           `mapstructure:"login_max_attempts"`
	PasswordResetMaxAttempts int           `mapstructure:"password_reset_max_attempts"`
}

type TelemetrySettings struct {
	MetricsNamespace string  `mapstructure:"metrics_namespace"`
	OTLPEndpoint     string  `mapstructure:"otlp_endpoint"`
	SamplingRate     float64 `mapstructure:"sampling_rate"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("SSO")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.cors_origins",
		"sso.main_domain",
		"sso.token_param",
		"sso.session_cookie_name",
		"sso.entry_path",
		"sso.entry_host_prefix",
		"sso.return_url_param",
		"sso.login_path",
		"sso.token_ttl",
		"csrf.cookie_name",
		"csrf.header_name",
		"csrf.token_length",
		"csrf.secure",
		"csrf.same_site",
		"csrf.max_age",
		"csrf.rotation_lead",
		"identity.base_url",
		"identity.api_key",
		"identity.timeout",
		"identity.reset_redirect_url",
		"activity.ttl",
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
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.storage_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"rate_limit.window_duration",
		"rate_limit.login_max_attempts",
		"rate_limit.password_reset_max_attempts",
		"telemetry.metrics_namespace",
		"telemetry.otlp_endpoint",
		"telemetry.sampling_rate",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "sso-gateway")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.cors_origins", []string{"https://www.reelapps.co.za"})

	v.SetDefault("sso.main_domain", "reelapps.co.za")
	v.SetDefault("sso.token_param", "sso_token")
	v.SetDefault("sso.session_cookie_name", "reelapps-session")
	v.SetDefault("sso.entry_path", "/auth/sso")
	v.SetDefault("sso.entry_host_prefix", "www.")
	v.SetDefault("sso.return_url_param", "return_url")
	v.SetDefault("sso.login_path", "/login")
	v.SetDefault("sso.token_ttl", "24h")

	v.SetDefault("csrf.cookie_name", "XSRF-TOKEN")
	v.SetDefault("csrf.header_name", "X-CSRF-TOKEN")
	v.SetDefault("csrf.token_length", 32)
	v.SetDefault("csrf.secure", true)
	v.SetDefault("csrf.same_site", "lax")
	v.SetDefault("csrf.max_age", "8h")
	v.SetDefault("csrf.rotation_lead", "5m")

	v.SetDefault("identity.base_url", "http://localhost:9999")
	v.SetDefault("identity.api_key", "")
	v.SetDefault("identity.timeout", "10s")
	v.SetDefault("identity.reset_redirect_url", "https://www.reelapps.co.za/password-reset?secure=true")

	v.SetDefault("activity.ttl", "168h")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "sso")
	v.SetDefault("postgres.password", "sso_password")
	v.SetDefault("postgres.database", "sso")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.storage_prefix", "sso:storage")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "sso")
	v.SetDefault("kafka.async", true)

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.login_max_attempts", 5)
	v.SetDefault("rate_limit.password_reset_max_attempts", 3)

	v.SetDefault("telemetry.metrics_namespace", "sso")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "SSO_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
