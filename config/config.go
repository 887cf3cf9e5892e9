package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	s3fshttp "github.com/sagarc03/s3fs/http"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for s3fs.
type Config struct {
	Server  ServerConfig        `mapstructure:"server" yaml:"server"`
	Storage StorageConfig       `mapstructure:"storage" yaml:"storage"`
	CORS    s3fshttp.CORSConfig `mapstructure:"cors" yaml:"cors"`
	Log     LogConfig           `mapstructure:"log" yaml:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port          int   `mapstructure:"port" yaml:"port" validate:"required,min=1,max=65535"`
	MaxUploadSize int64 `mapstructure:"max_upload_size" yaml:"max_upload_size" validate:"min=0"`
}

// StorageConfig holds the on-disk layout.
type StorageConfig struct {
	RootDir string `mapstructure:"root_dir" yaml:"root_dir" validate:"required"`
	// Bucket is used by the object commands when --bucket is not given.
	Bucket string `mapstructure:"bucket" yaml:"bucket" validate:"required"`
	// CleanupTimeout bounds the removal of a half-written object, in seconds.
	CleanupTimeout int `mapstructure:"cleanup_timeout" yaml:"cleanup_timeout" validate:"min=1"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"root":      "storage.root_dir",
	"bucket":    "storage.bucket",
	"port":      "server.port",
	"log-level": "log.level",
	"log-json":  "log.format",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		if !f.Changed {
			return
		}

		viperKey, ok := flagToViperKey[f.Name]
		if !ok {
			viperKey = f.Name
		}

		// --log-json is a switch over log.format
		if f.Name == "log-json" {
			if f.Value.String() == "true" {
				v.Set(viperKey, "json")
			}
			return
		}

		_ = v.BindPFlag(viperKey, f)
	})
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:          5708,
			MaxUploadSize: 0, // 0 means no limit
		},
		Storage: StorageConfig{
			RootDir:        ".s3fs",
			Bucket:         "default",
			CleanupTimeout: 30,
		},
		CORS: s3fshttp.CORSConfig{
			AllowedMethods: []string{"GET", "HEAD", "PUT", "DELETE"},
			AllowedHeaders: []string{"Content-Type", "If-Match", "If-None-Match"},
			ExposedHeaders: []string{"ETag"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	d := Defaults()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.max_upload_size", d.Server.MaxUploadSize)

	v.SetDefault("storage.root_dir", d.Storage.RootDir)
	v.SetDefault("storage.bucket", d.Storage.Bucket)
	v.SetDefault("storage.cleanup_timeout", d.Storage.CleanupTimeout)

	v.SetDefault("cors.enabled", d.CORS.Enabled)
	v.SetDefault("cors.allowed_methods", d.CORS.AllowedMethods)
	v.SetDefault("cors.allowed_headers", d.CORS.AllowedHeaders)
	v.SetDefault("cors.exposed_headers", d.CORS.ExposedHeaders)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("s3fs")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	v.SetEnvPrefix("S3FS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		bindFlags(v, flags)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
