// Package config loads the bot's settings from the environment, an
// optional .env file and an optional config file using viper.
//
// Keys are the environment variable names, matched case-insensitively:
//
//	BOT_TOKEN=123456:ABC strmbot run
//
// Durations accept Go syntax ("20s", "5m") or a bare number of seconds.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/prilive-com/strmbot/internal/validate"
	"github.com/prilive-com/strmbot/tg"
)

// Keys understood by Load.
const (
	KeyBotToken                = "bot_token"
	KeyAdminChatID             = "admin_chat_id"
	KeyFolderName              = "folder_name"
	KeyBaseDir                 = "base_dir"
	KeyHTTPProxy               = "http_proxy"
	KeyConnectTimeout          = "connect_timeout"
	KeyReadTimeout             = "read_timeout"
	KeyMaxFilenameLength       = "max_filename_length"
	KeyRetryMaxAttempts        = "retry_max_attempts"
	KeyRetryDelay              = "retry_delay"
	KeyStartupRetryMaxAttempts = "startup_retry_max_attempts"
	KeyWorkers                 = "workers"
	KeyPollingTimeout          = "polling_timeout"
	KeyLogLevel                = "log_level"
	KeyLogFormat               = "log_format"
)

// DotEnvFile is read from the working directory when no config file is given.
const DotEnvFile = ".env"

// Config is the fully resolved process configuration.
type Config struct {
	Token       tg.SecretToken
	AdminChatID int64 // 0 disables the startup notice

	FolderName string
	BaseDir    string

	ProxyURL       string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	MaxFilenameLength       int
	RetryMaxAttempts        int
	RetryDelay              time.Duration
	StartupRetryMaxAttempts int

	Workers        int
	PollingTimeout int // seconds

	LogLevel  string
	LogFormat string
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAdminChatID, 0)
	v.SetDefault(KeyFolderName, "alist")
	v.SetDefault(KeyBaseDir, "")
	v.SetDefault(KeyHTTPProxy, "")
	v.SetDefault(KeyConnectTimeout, "20s")
	v.SetDefault(KeyReadTimeout, "30s")
	v.SetDefault(KeyMaxFilenameLength, 255)
	v.SetDefault(KeyRetryMaxAttempts, 3)
	v.SetDefault(KeyRetryDelay, "300s")
	v.SetDefault(KeyStartupRetryMaxAttempts, 5)
	v.SetDefault(KeyWorkers, 4)
	v.SetDefault(KeyPollingTimeout, 30)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
}

// NewViper returns a viper instance with defaults and environment lookup.
// configFile is read when set; otherwise a .env file in dir is read if
// present. Real environment variables win over both files.
func NewViper(configFile, dir string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if filepath.Base(configFile) == DotEnvFile {
			v.SetConfigType("env")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
		return v, nil
	}

	dotEnv := filepath.Join(dir, DotEnvFile)
	if _, err := os.Stat(dotEnv); err == nil {
		v.SetConfigFile(dotEnv)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", dotEnv, err)
		}
	}
	return v, nil
}

// Load resolves a Config from v. It does not validate; call Validate.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Token:                   tg.SecretToken(strings.TrimSpace(v.GetString(KeyBotToken))),
		FolderName:              strings.TrimSpace(v.GetString(KeyFolderName)),
		BaseDir:                 strings.TrimSpace(v.GetString(KeyBaseDir)),
		ProxyURL:                strings.TrimSpace(v.GetString(KeyHTTPProxy)),
		MaxFilenameLength:       v.GetInt(KeyMaxFilenameLength),
		RetryMaxAttempts:        v.GetInt(KeyRetryMaxAttempts),
		StartupRetryMaxAttempts: v.GetInt(KeyStartupRetryMaxAttempts),
		Workers:                 v.GetInt(KeyWorkers),
		PollingTimeout:          v.GetInt(KeyPollingTimeout),
		LogLevel:                v.GetString(KeyLogLevel),
		LogFormat:               v.GetString(KeyLogFormat),
	}

	var errs []error

	adminRaw := strings.TrimSpace(v.GetString(KeyAdminChatID))
	if adminRaw != "" {
		id, err := strconv.ParseInt(adminRaw, 10, 64)
		if err != nil {
			errs = append(errs, tg.NewConfigError(KeyAdminChatID, "must be an integer chat id"))
		}
		cfg.AdminChatID = id
	}

	var err error
	if cfg.ConnectTimeout, err = duration(v, KeyConnectTimeout); err != nil {
		errs = append(errs, err)
	}
	if cfg.ReadTimeout, err = duration(v, KeyReadTimeout); err != nil {
		errs = append(errs, err)
	}
	if cfg.RetryDelay, err = duration(v, KeyRetryDelay); err != nil {
		errs = append(errs, err)
	}

	if cfg.BaseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve working directory: %w", err))
		}
		cfg.BaseDir = wd
	}

	return cfg, errors.Join(errs...)
}

// duration reads key as a Go duration or a bare number of seconds.
func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, tg.NewConfigError(key, fmt.Sprintf("invalid duration %q", raw))
	}
	return d, nil
}

// Validate reports every invalid field. The result matches
// tg.ErrInvalidConfig and each part is a *tg.ConfigError.
func (c Config) Validate() error {
	return errors.Join(
		validate.Token(KeyBotToken, c.Token.Value()),
		c.ValidateStorage(),
		validate.ProxyURL(KeyHTTPProxy, c.ProxyURL),
		validate.NonNegativeDuration(KeyConnectTimeout, c.ConnectTimeout),
		validate.NonNegativeDuration(KeyReadTimeout, c.ReadTimeout),
		validate.Positive(KeyRetryMaxAttempts, c.RetryMaxAttempts),
		validate.NonNegativeDuration(KeyRetryDelay, c.RetryDelay),
		validate.Positive(KeyStartupRetryMaxAttempts, c.StartupRetryMaxAttempts),
		validate.InRange(KeyWorkers, c.Workers, 1, 1024),
		validate.InRange(KeyPollingTimeout, c.PollingTimeout, 0, 60),
		validate.OneOf(KeyLogLevel, c.LogLevel, "debug", "info", "warn", "warning", "error"),
		validate.OneOf(KeyLogFormat, c.LogFormat, "text", "json"),
	)
}

// ValidateStorage checks only what local file creation needs.
func (c Config) ValidateStorage() error {
	return errors.Join(
		validate.Required(KeyFolderName, c.FolderName),
		validate.InRange(KeyMaxFilenameLength, c.MaxFilenameLength, 6, 4096),
	)
}

// StorageDir is the Target Folder: FolderName resolved against BaseDir
// unless it is already absolute.
func (c Config) StorageDir() string {
	if filepath.IsAbs(c.FolderName) {
		return filepath.Clean(c.FolderName)
	}
	return filepath.Join(c.BaseDir, c.FolderName)
}

// MaxNameLength is the longest sanitized name, in characters, the handler
// accepts; room is left for the ".strm" extension.
func (c Config) MaxNameLength() int {
	return c.MaxFilenameLength - 5
}
