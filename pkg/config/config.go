package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"github.com/storacha/grantlink/pkg/presigner"
	"github.com/storacha/grantlink/pkg/service/links"
)

const DefaultServicePort = 3000

// ServerConfig contains the HTTP and link issuing settings
type ServerConfig struct {
	Host        string `toml:"host" json:"host" mapstructure:"host" flag:"host"`
	Port        int    `toml:"port" json:"port" mapstructure:"port" validate:"min=1,max=65535" flag:"port"`
	LogLevel    string `toml:"log_level" json:"log_level" mapstructure:"log_level" validate:"oneof=debug info warn error dpanic panic fatal" flag:"log-level"`
	LinkTTL     uint   `toml:"link_ttl" json:"link_ttl" mapstructure:"link_ttl" validate:"min=1,max=604800" flag:"link-ttl"`
	NotifyMode  string `toml:"notify_mode" json:"notify_mode" mapstructure:"notify_mode" flag:"notify-mode"`
	ConsumeMode string `toml:"consume_mode" json:"consume_mode" mapstructure:"consume_mode" flag:"consume-mode"`
}

// StoreConfig contains the location of the local grant store
type StoreConfig struct {
	DataDir string `toml:"data_dir" json:"data_dir" mapstructure:"data_dir" validate:"required" flag:"data-dir"`
}

// BucketConfig contains the S3 compatible bucket links are signed for
type BucketConfig struct {
	Name            string `toml:"name" json:"name" mapstructure:"name" validate:"required" flag:"bucket"`
	Endpoint        string `toml:"endpoint" json:"endpoint" mapstructure:"endpoint" validate:"required,url" flag:"bucket-endpoint"`
	Region          string `toml:"region" json:"region" mapstructure:"region" flag:"bucket-region"`
	AccessKeyID     string `toml:"access_key_id" json:"access_key_id" mapstructure:"access_key_id" validate:"required" flag:"bucket-access-key-id"`
	SecretAccessKey string `toml:"secret_access_key" json:"secret_access_key" mapstructure:"secret_access_key" validate:"required" flag:"bucket-secret-access-key"`
}

// Local represents the full configuration for running the link service
// outside of AWS Lambda
type Local struct {
	Server ServerConfig `toml:"server" json:"server" mapstructure:"server"`
	Store  StoreConfig  `toml:"store" json:"store" mapstructure:"store"`
	Bucket BucketConfig `toml:"bucket" json:"bucket" mapstructure:"bucket"`
}

// LoadConfig handles the entire configuration loading process with the
// precedence flags > environment variables > config file > defaults. The
// config file is read from the --config flag when set.
func LoadConfig(cCtx *cli.Context) (*Local, error) {
	cfg, err := load(cCtx.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	fromCLI(cCtx, cfg)

	if err := setupDefaultDirectories(cfg); err != nil {
		return nil, fmt.Errorf("failed to set up default directories: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate performs validation on the configuration values and returns any errors.
func (cfg *Local) Validate() error {
	var errs error
	if err := cfg.Server.Validate(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := cfg.Store.Validate(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := cfg.Bucket.Validate(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if _, err := links.ParseNotifyMode(cfg.Server.NotifyMode); err != nil {
		errs = multierror.Append(errs, err)
	}
	if _, err := links.ParseConsumeMode(cfg.Server.ConsumeMode); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs
}

// Validate implements Validatable.
func (c *ServerConfig) Validate() error { return validateConfig(c) }

// Validate implements Validatable.
func (c *StoreConfig) Validate() error { return validateConfig(c) }

// Validate implements Validatable.
func (c *BucketConfig) Validate() error { return validateConfig(c) }

// load reads the configuration from the given path, when not empty, on top of
// the defaults and environment variables.
func load(path string) (*Local, error) {
	v, err := setupViperWithDefaults()
	if err != nil {
		return nil, err
	}

	if path != "" {
		if stat, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file path does not exist: %s", path)
			}
			return nil, fmt.Errorf("failed to read config file at path %s: %w", path, err)
		} else if stat.IsDir() {
			return nil, fmt.Errorf("config file path points to a directory: %s", path)
		}

		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := new(Local)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

func newDefault() *Local {
	return &Local{
		Server: ServerConfig{
			Port:     DefaultServicePort,
			LogLevel: "info",
			LinkTTL:  uint(presigner.DefaultTTL.Seconds()),
		},
		Bucket: BucketConfig{
			Region: "us-east-1",
		},
	}
}

// fromCLI loads configuration values from CLI flags
func fromCLI(ctx *cli.Context, cfg *Local) {
	if ctx.IsSet("host") {
		cfg.Server.Host = ctx.String("host")
	}
	if ctx.IsSet("port") {
		cfg.Server.Port = ctx.Int("port")
	}
	if ctx.IsSet("log-level") {
		cfg.Server.LogLevel = ctx.String("log-level")
	}
	if ctx.IsSet("link-ttl") {
		cfg.Server.LinkTTL = ctx.Uint("link-ttl")
	}
	if ctx.IsSet("notify-mode") {
		cfg.Server.NotifyMode = ctx.String("notify-mode")
	}
	if ctx.IsSet("consume-mode") {
		cfg.Server.ConsumeMode = ctx.String("consume-mode")
	}

	if ctx.IsSet("data-dir") {
		cfg.Store.DataDir = ctx.String("data-dir")
	}

	if ctx.IsSet("bucket") {
		cfg.Bucket.Name = ctx.String("bucket")
	}
	if ctx.IsSet("bucket-endpoint") {
		cfg.Bucket.Endpoint = ctx.String("bucket-endpoint")
	}
	if ctx.IsSet("bucket-region") {
		cfg.Bucket.Region = ctx.String("bucket-region")
	}
	if ctx.IsSet("bucket-access-key-id") {
		cfg.Bucket.AccessKeyID = ctx.String("bucket-access-key-id")
	}
	if ctx.IsSet("bucket-secret-access-key") {
		cfg.Bucket.SecretAccessKey = ctx.String("bucket-secret-access-key")
	}
}

// setupViperWithDefaults creates a new Viper instance with default values and environment bindings
func setupViperWithDefaults() (*viper.Viper, error) {
	v := viper.New()

	envMappings := map[string]string{
		"server.host":         "HOST",
		"server.port":         "PORT",
		"server.log_level":    "LOG_LEVEL",
		"server.link_ttl":     "LINK_TTL",
		"server.notify_mode":  "NOTIFY_MODE",
		"server.consume_mode": "CONSUME_MODE",

		"store.data_dir": "DATA_DIR",

		"bucket.name":              "BUCKET",
		"bucket.endpoint":          "BUCKET_ENDPOINT",
		"bucket.region":            "BUCKET_REGION",
		"bucket.access_key_id":     "BUCKET_ACCESS_KEY_ID",
		"bucket.secret_access_key": "BUCKET_SECRET_ACCESS_KEY",
	}
	for key, envVar := range envMappings {
		if err := v.BindEnv(key, "GRANTLINK_"+envVar); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable %s: %w", key, err)
		}
	}

	defaultCfg := newDefault()
	v.SetDefault("server.port", defaultCfg.Server.Port)
	v.SetDefault("server.log_level", defaultCfg.Server.LogLevel)
	v.SetDefault("server.link_ttl", defaultCfg.Server.LinkTTL)
	v.SetDefault("bucket.region", defaultCfg.Bucket.Region)

	return v, nil
}

// setupDefaultDirectories configures the default data directory if it is not already set
func setupDefaultDirectories(cfg *Local) error {
	if cfg.Store.DataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("getting user home directory: %w", err)
		}
		cfg.Store.DataDir = filepath.Join(homeDir, ".grantlink")
	}
	if err := os.MkdirAll(cfg.Store.DataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory %s: %w", cfg.Store.DataDir, err)
	}
	return nil
}
