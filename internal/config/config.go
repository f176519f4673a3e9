package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/spf13/viper"
)

type AppConfig struct {
	API      *APIConfig      `mapstructure:"api"`
	Gin      *GinConfig      `mapstructure:"gin"`
	Log      *LogConfig      `mapstructure:"log"`
	Postgres *PostgresConfig `mapstructure:"postgres"`
	Redis    *RedisConfig    `mapstructure:"redis"`
	Lottery  *LotteryConfig  `mapstructure:"lottery"`
	OTP      *OTPConfig      `mapstructure:"otp"`
	Zarinpal *ZarinpalConfig `mapstructure:"zarinpal"`
	SMS      *SMSConfig      `mapstructure:"sms"`
	Telegram *TelegramConfig `mapstructure:"telegram"`
}

type APIConfig struct {
	Environment        string        `mapstructure:"environment"`
	Port               string        `mapstructure:"port"`
	BaseURL            string        `mapstructure:"base_url"`
	FrontendURL        string        `mapstructure:"frontend_url"`
	AllowedCORSDomains []string      `mapstructure:"allowed_cors_domains"`
	JWTSigningKey      string        `mapstructure:"jwt_signing_key"`
	JWTTTL             time.Duration `mapstructure:"jwt_ttl"`
	AdminMobile        string        `mapstructure:"admin_mobile"`
	SecureCookies      bool          `mapstructure:"secure_cookies"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type PostgresConfig struct {
	Host        string        `mapstructure:"host"`
	Port        string        `mapstructure:"port"`
	User        string        `mapstructure:"user"`
	Password    string        `mapstructure:"password"`
	DB          string        `mapstructure:"db"`
	SSLMode     string        `mapstructure:"sslmode"`
	AutoMigrate bool          `mapstructure:"auto_migrate"`
	SlowQuery   time.Duration `mapstructure:"slow_query"`
}

func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LotteryConfig struct {
	PrizePolicy string `mapstructure:"prize_policy"`
}

type OTPConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	RateLimit  int           `mapstructure:"rate_limit"`
	RateWindow time.Duration `mapstructure:"rate_window"`
	Retention  time.Duration `mapstructure:"retention"`
}

type ZarinpalConfig struct {
	MerchantID  string        `mapstructure:"merchant_id"`
	Sandbox     bool          `mapstructure:"sandbox"`
	CallbackURL string        `mapstructure:"callback_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type SMSConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Sender  string        `mapstructure:"sender"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TelegramConfig struct {
	BotToken    string `mapstructure:"bot_token"`
	AdminChatID int64  `mapstructure:"admin_chat_id"`
}

// Load reads the yml file at path. Environment variables override file
// values, using upper-case keys with dots replaced by underscores
// (API_JWT_SIGNING_KEY overrides api.jwt_signing_key).
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("v.ReadInConfig -> %w", err)
	}

	conf, err := decode(v)
	if err != nil {
		return nil, err
	}

	return conf, nil
}

// Watch calls onChange with the reloaded config each time the file at path
// changes. Reloads that fail to decode or validate are reported to onError
// and otherwise ignored.
func Watch(path string, onChange func(*AppConfig), onError func(error)) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		onError(err)
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		conf, err := decode(v)
		if err != nil {
			onError(err)
			return
		}
		onChange(conf)
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*AppConfig, error) {
	conf := &AppConfig{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("v.Unmarshal -> %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config -> %w", err)
	}

	return conf, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.environment", "development")
	v.SetDefault("api.port", "8080")
	v.SetDefault("api.jwt_ttl", 7*24*time.Hour)
	v.SetDefault("gin.mode", "debug")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.auto_migrate", true)
	v.SetDefault("postgres.slow_query", 200*time.Millisecond)
	v.SetDefault("lottery.prize_policy", "none")
	v.SetDefault("otp.ttl", 2*time.Minute)
	v.SetDefault("otp.rate_limit", 3)
	v.SetDefault("otp.rate_window", time.Minute)
	v.SetDefault("otp.retention", time.Hour)
	v.SetDefault("zarinpal.timeout", 15*time.Second)
	v.SetDefault("sms.timeout", 10*time.Second)
}

var errMissingSection = errors.New("api, gin, log, postgres, lottery and otp sections are required")

func (c *AppConfig) Validate() error {
	if c.API == nil || c.Gin == nil || c.Log == nil || c.Postgres == nil || c.Lottery == nil || c.OTP == nil {
		return errMissingSection
	}

	err := validation.ValidateStruct(c.API,
		validation.Field(&c.API.Environment, validation.Required, validation.In("development", "staging", "production")),
		validation.Field(&c.API.Port, validation.Required),
		validation.Field(&c.API.JWTSigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.API.JWTTTL, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("api: %w", err)
	}

	err = validation.ValidateStruct(c.Lottery,
		validation.Field(&c.Lottery.PrizePolicy, validation.In("none", "revenue_split")),
	)
	if err != nil {
		return fmt.Errorf("lottery: %w", err)
	}

	err = validation.ValidateStruct(c.OTP,
		validation.Field(&c.OTP.TTL, validation.Required),
		validation.Field(&c.OTP.RateLimit, validation.Required, validation.Min(1)),
		validation.Field(&c.OTP.RateWindow, validation.Required),
		validation.Field(&c.OTP.Retention, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("otp: %w", err)
	}

	return nil
}
