package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/menumate/menumate/internal/types"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment   DeploymentConfig   `validate:"required"`
	Server       ServerConfig       `validate:"required"`
	Logging      LoggingConfig      `validate:"required"`
	Postgres     PostgresConfig     `validate:"required"`
	Stripe       StripeConfig       `mapstructure:"stripe"`
	CRM          CRMConfig          `mapstructure:"crm"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
	CheckoutLink CheckoutLinkConfig `mapstructure:"checkout_link"`
	Webhook      WebhookConfig      `mapstructure:"webhook"`
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string `mapstructure:"dbname"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns" default:"20"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" default:"5"`
}

// StripeConfig holds the payment provider credentials. An empty secret key
// feature-gates every provider-backed endpoint instead of crashing at startup.
type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	SuccessURL    string `mapstructure:"success_url"`
	CancelURL     string `mapstructure:"cancel_url"`
}

// Configured reports whether the provider gateway can be used at all
func (c StripeConfig) Configured() bool {
	return c.SecretKey != ""
}

// CRMConfig holds the CRM webhook bridge settings
type CRMConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ClientSecret string `mapstructure:"client_secret"`
}

// SubscriptionConfig holds trial policy knobs
type SubscriptionConfig struct {
	TrialDays             int `mapstructure:"trial_days" default:"14"`
	MaxTrialExtensionDays int `mapstructure:"max_trial_extension_days" default:"30"`
}

// MaxCumulativeExtensionDays is the hard ceiling on the sum of all trial
// extensions granted to one subscription.
func (c SubscriptionConfig) MaxCumulativeExtensionDays() int {
	return c.MaxTrialExtensionDays - c.TrialDays
}

// CheckoutLinkConfig holds checkout link issuance and sweep settings
type CheckoutLinkConfig struct {
	TTL            time.Duration `mapstructure:"ttl" default:"24h"`
	SweepBatchSize int           `mapstructure:"sweep_batch_size" default:"100"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval" default:"5m"`
}

// WebhookConfig configures outbound lifecycle notification delivery
type WebhookConfig struct {
	Enabled         bool              `mapstructure:"enabled"`
	Topic           string            `mapstructure:"topic" default:"notifications"`
	PubSub          types.PubSubType  `mapstructure:"pubsub" default:"memory"`
	Endpoint        string            `mapstructure:"endpoint"`
	Headers         map[string]string `mapstructure:"headers"`
	SigningSecret   string            `mapstructure:"signing_secret"`
	MaxRetries      int               `mapstructure:"max_retries" default:"3"`
	InitialInterval time.Duration     `mapstructure:"initial_interval" default:"1s"`
	MaxInterval     time.Duration     `mapstructure:"max_interval" default:"10s"`
	Multiplier      float64           `mapstructure:"multiplier" default:"2"`
	MaxElapsedTime  time.Duration     `mapstructure:"max_elapsed_time" default:"2m"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/menumate")

	v.SetEnvPrefix("MENUMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(types.ModeLocal))
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("postgres.max_open_conns", 20)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("subscription.trial_days", 14)
	v.SetDefault("subscription.max_trial_extension_days", 30)
	v.SetDefault("checkout_link.ttl", "24h")
	v.SetDefault("checkout_link.sweep_batch_size", 100)
	v.SetDefault("checkout_link.sweep_interval", "5m")
	v.SetDefault("webhook.topic", "notifications")
	v.SetDefault("webhook.pubsub", string(types.MemoryPubSub))
	v.SetDefault("webhook.max_retries", 3)
	v.SetDefault("webhook.initial_interval", "1s")
	v.SetDefault("webhook.max_interval", "10s")
	v.SetDefault("webhook.multiplier", 2.0)
	v.SetDefault("webhook.max_elapsed_time", "2m")
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Subscription.MaxCumulativeExtensionDays() < 0 {
		return fmt.Errorf("max_trial_extension_days must be >= trial_days")
	}
	return nil
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Subscription: SubscriptionConfig{
			TrialDays:             14,
			MaxTrialExtensionDays: 30,
		},
		CheckoutLink: CheckoutLinkConfig{
			TTL:            24 * time.Hour,
			SweepBatchSize: 100,
			SweepInterval:  5 * time.Minute,
		},
		Webhook: WebhookConfig{
			Topic:           "notifications",
			PubSub:          types.MemoryPubSub,
			MaxRetries:      3,
			InitialInterval: time.Second,
			MaxInterval:     10 * time.Second,
			Multiplier:      2,
			MaxElapsedTime:  2 * time.Minute,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
