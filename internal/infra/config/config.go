package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App      AppSettings      `mapstructure:"app"`
	Postgres PostgresSettings `mapstructure:"postgres"`
	Redis    RedisSettings    `mapstructure:"redis"`
	Kafka    KafkaSettings    `mapstructure:"kafka"`
	Auth     AuthSettings     `mapstructure:"auth"`
	Security SecuritySettings `mapstructure:"security"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	TLS  bool   `mapstructure:"tls"`
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

// RedisSettings configures the shared store backend. When Host is empty the
// gateway falls back to in-process stores.
type RedisSettings struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	DB              int    `mapstructure:"db"`
	Password        string `mapstructure:"password"`
	TLSEnabled      bool   `mapstructure:"tls_enabled"`
	RateLimitPrefix string `mapstructure:"rate_limit_prefix"`
	CsrfPrefix      string `mapstructure:"csrf_prefix"`
}

// KafkaSettings configures the audit event producer.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// AuthSettings configures bearer credential verification.
type AuthSettings struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
}

// SecuritySettings is the request-gateway configuration surface.
type SecuritySettings struct {
	RateLimit             RateLimitSettings `mapstructure:"rate_limit"`
	Csrf                  CsrfSettings      `mapstructure:"csrf"`
	MaxBodyBytes          int64             `mapstructure:"max_body_bytes"`
	AllowedMethods        []string          `mapstructure:"allowed_methods"`
	BlockedUserAgents     []string          `mapstructure:"blocked_user_agents"`
	SuspiciousURLPatterns []string          `mapstructure:"suspicious_url_patterns"`
	SQLInjectionPatterns  []string          `mapstructure:"sql_injection_patterns"`
	ProxyHeaders          []string          `mapstructure:"proxy_headers"`
	ContentSecurityPolicy map[string]string `mapstructure:"content_security_policy"`
	SweepInterval         time.Duration     `mapstructure:"sweep_interval"`
}

// RateLimitSettings holds per-route window/limit tuples.
type RateLimitSettings struct {
	DefaultWindow time.Duration `mapstructure:"default_window"`
	DefaultMax    int           `mapstructure:"default_max"`
	AuthWindow    time.Duration `mapstructure:"auth_window"`
	AuthMax       int           `mapstructure:"auth_max"`
	ContactWindow time.Duration `mapstructure:"contact_window"`
	ContactMax    int           `mapstructure:"contact_max"`
}

// CsrfSettings configures the synchronizer-token session cookie.
type CsrfSettings struct {
	CookieName   string        `mapstructure:"cookie_name"`
	HeaderNames  []string      `mapstructure:"header_names"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("GATEWAY")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.tls",
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
		"redis.rate_limit_prefix",
		"redis.csrf_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"auth.jwt_secret",
		"auth.issuer",
		"auth.audience",
		"security.max_body_bytes",
		"security.sweep_interval",
		"security.rate_limit.default_window",
		"security.rate_limit.default_max",
		"security.rate_limit.auth_window",
		"security.rate_limit.auth_max",
		"security.rate_limit.contact_window",
		"security.rate_limit.contact_max",
		"security.csrf.cookie_name",
		"security.csrf.token_ttl",
		"security.csrf.cookie_secure",
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
	v.SetDefault("app.name", "portal-gateway")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.tls", false)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "portal")
	v.SetDefault("postgres.password", "portal_password")
	v.SetDefault("postgres.database", "portal")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.rate_limit_prefix", "gateway:rate-limit")
	v.SetDefault("redis.csrf_prefix", "gateway:csrf")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "gateway")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "saburaijua-portal")
	v.SetDefault("auth.audience", "saburaijua-portal-api")

	v.SetDefault("security.max_body_bytes", 10*1024*1024)
	v.SetDefault("security.sweep_interval", "5m")
	v.SetDefault("security.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"})

	v.SetDefault("security.rate_limit.default_window", "1m")
	v.SetDefault("security.rate_limit.default_max", 100)
	v.SetDefault("security.rate_limit.auth_window", "15m")
	v.SetDefault("security.rate_limit.auth_max", 20)
	v.SetDefault("security.rate_limit.contact_window", "1h")
	v.SetDefault("security.rate_limit.contact_max", 5)

	v.SetDefault("security.csrf.cookie_name", "_csrf_session")
	v.SetDefault("security.csrf.header_names", []string{"X-CSRF-Token", "CSRF-Token"})
	v.SetDefault("security.csrf.token_ttl", "1h")
	v.SetDefault("security.csrf.cookie_secure", false)

	v.SetDefault("security.blocked_user_agents", []string{
		`(?i)sqlmap`,
		`(?i)nikto`,
		`(?i)nessus`,
		`(?i)masscan`,
		`(?i)nmap`,
		`(?i)dirbuster`,
		`(?i)wpscan`,
		`(?i)python-requests`,
		`(?i)curl/`,
	})

	v.SetDefault("security.suspicious_url_patterns", []string{
		`\.\./`,
		`%2e%2e`,
		`(?i)<script`,
		`(?i)javascript:`,
		`(?i)data:text/html`,
		`(?i)vbscript:`,
		`\x00`,
	})

	v.SetDefault("security.sql_injection_patterns", []string{
		`(?i)union[\s+]+select`,
		`(?i)insert[\s+]+into`,
		`(?i)drop[\s+]+table`,
		`(?i)delete[\s+]+from`,
		`(?i)'[\s]*or[\s]*'`,
		`(?i);[\s]*--`,
		`(?i)exec[\s+]+xp_`,
	})

	v.SetDefault("security.proxy_headers", []string{
		"X-Forwarded-For",
		"X-Real-IP",
		"CF-Connecting-IP",
		"X-Client-IP",
	})

	v.SetDefault("security.content_security_policy", map[string]string{
		"default-src":     "'self'",
		"script-src":      "'self'",
		"style-src":       "'self' 'unsafe-inline'",
		"img-src":         "'self' data: https:",
		"font-src":        "'self'",
		"connect-src":     "'self'",
		"frame-ancestors": "'none'",
		"base-uri":        "'self'",
		"form-action":     "'self'",
	})
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "GATEWAY_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
