package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	OAuth      OAuthConfig
	Cloudinary CloudinaryConfig
	Mpesa      MpesaConfig
	SMTP       SMTPConfig
	Firebase   FirebaseConfig
	Log        LogConfig
	RateLimit  RateLimitConfig
	Site       SiteConfig
}

type ServerConfig struct {
	Port             string
	Env              string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	CORSAllowOrigins []string
}

type DatabaseConfig struct {
	Driver          string // mysql | postgres | sqlite
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is optional; an empty Addr keeps rate limiting in process memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

// MpesaConfig holds Daraja (Safaricom) STK push credentials.
type MpesaConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	PassKey        string
	CallbackURL    string
	Timeout        time.Duration
}

// Enabled reports whether enough credentials are present to talk to Daraja.
func (m MpesaConfig) Enabled() bool {
	return m.BaseURL != "" && m.ConsumerKey != "" && m.ConsumerSecret != "" && m.ShortCode != "" && m.PassKey != ""
}

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	OrdersInbox string // receives new-order emails
}

type FirebaseConfig struct {
	ServiceAccountPath string
}

type LogConfig struct {
	Level  string
	Format string // json | console
	Output string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type SiteConfig struct {
	BaseURL string
}

// Load reads configuration with this priority (highest first):
// environment variables, config.yaml, .env file, built-in defaults.
func Load() (*Config, error) {
	// .env is optional; missing file is not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	bindLegacyEnv(v)

	return &Config{
		Server: ServerConfig{
			Port:             v.GetString("server.port"),
			Env:              v.GetString("server.env"),
			ReadTimeout:      v.GetDuration("server.read_timeout"),
			WriteTimeout:     v.GetDuration("server.write_timeout"),
			CORSAllowOrigins: v.GetStringSlice("server.cors_allow_origins"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			DSN:             v.GetString("database.dsn"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			AccessSecret:  v.GetString("jwt.access_secret"),
			RefreshSecret: v.GetString("jwt.refresh_secret"),
			AccessExpiry:  v.GetDuration("jwt.access_expiry"),
			RefreshExpiry: v.GetDuration("jwt.refresh_expiry"),
			Issuer:        v.GetString("jwt.issuer"),
		},
		OAuth: OAuthConfig{
			GoogleClientID:     v.GetString("oauth.google_client_id"),
			GoogleClientSecret: v.GetString("oauth.google_client_secret"),
			GoogleRedirectURL:  v.GetString("oauth.google_redirect_url"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: v.GetString("cloudinary.cloud_name"),
			APIKey:    v.GetString("cloudinary.api_key"),
			APISecret: v.GetString("cloudinary.api_secret"),
		},
		Mpesa: MpesaConfig{
			BaseURL:        strings.TrimRight(v.GetString("mpesa.base_url"), "/"),
			ConsumerKey:    v.GetString("mpesa.consumer_key"),
			ConsumerSecret: v.GetString("mpesa.consumer_secret"),
			ShortCode:      v.GetString("mpesa.shortcode"),
			PassKey:        v.GetString("mpesa.passkey"),
			CallbackURL:    v.GetString("mpesa.callback_url"),
			Timeout:        v.GetDuration("mpesa.timeout"),
		},
		SMTP: SMTPConfig{
			Host:        v.GetString("smtp.host"),
			Port:        v.GetInt("smtp.port"),
			Username:    v.GetString("smtp.username"),
			Password:    v.GetString("smtp.password"),
			From:        v.GetString("smtp.from"),
			OrdersInbox: v.GetString("smtp.orders_inbox"),
		},
		Firebase: FirebaseConfig{
			ServiceAccountPath: v.GetString("firebase.service_account_path"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("rate_limit.requests"),
			Window:   v.GetDuration("rate_limit.window"),
		},
		Site: SiteConfig{
			BaseURL: strings.TrimRight(v.GetString("site.base_url"), "/"),
		},
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.cors_allow_origins", []string{"*"})

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("jwt.access_expiry", 30*time.Minute)
	v.SetDefault("jwt.refresh_expiry", 168*time.Hour)
	v.SetDefault("jwt.issuer", "smartdecor")

	v.SetDefault("mpesa.base_url", "https://sandbox.safaricom.co.ke")
	v.SetDefault("mpesa.timeout", 30*time.Second)

	v.SetDefault("smtp.port", 587)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", time.Minute)

	v.SetDefault("site.base_url", "https://www.smartindoordecors.com")
}

// bindLegacyEnv keeps the variable names already used in deployed .env files.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("database.dsn", "DATABASE_DSN", "DATABASE_URL")
	_ = v.BindEnv("jwt.access_secret", "JWT_ACCESS_SECRET", "SECRET_KEY")
	_ = v.BindEnv("smtp.host", "SMTP_HOST", "SMTP_SERVER")
	_ = v.BindEnv("smtp.from", "SMTP_FROM", "SMTP_FROM_EMAIL")
}
