package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                = "TASTELOG"
	defaultHTTPAddress       = "127.0.0.1:8787"
	defaultStorageDriver     = StorageDriverSQLite
	defaultDatabasePath      = "tastelog.db"
	defaultBadgerPath        = "tastelog-badger"
	defaultBadgerGCInterval  = 5 * time.Minute
	defaultLogLevel          = "info"
	defaultLogFormat         = "json"
	defaultUserID            = "current_user"
	defaultUsername          = "you"
	defaultDisplayName       = "You"
	defaultNotificationQueue = 64
)

// defaultAllowedOrigins are the dev servers of the app shell.
var defaultAllowedOrigins = []string{"http://localhost:19006", "http://127.0.0.1:19006"}

// Supported storage drivers.
const (
	StorageDriverSQLite = "sqlite"
	StorageDriverBadger = "badger"
	StorageDriverMemory = "memory"
)

// AppConfig captures runtime configuration for the companion service and admin commands.
type AppConfig struct {
	HTTPAddress       string
	AllowedOrigins    []string
	StorageDriver     string
	DatabasePath      string
	BadgerPath        string
	BadgerGCInterval  time.Duration
	LogLevel          string
	LogFormat         string
	UserID            string
	Username          string
	DisplayName       string
	ProfilePhoto      string
	NotificationQueue int
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.allowed_origins", defaultAllowedOrigins)
	configViper.SetDefault("storage.driver", defaultStorageDriver)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("badger.path", defaultBadgerPath)
	configViper.SetDefault("badger.gc_interval", defaultBadgerGCInterval)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("user.id", defaultUserID)
	configViper.SetDefault("user.username", defaultUsername)
	configViper.SetDefault("user.display_name", defaultDisplayName)
	configViper.SetDefault("user.profile_photo", "")
	configViper.SetDefault("notifications.queue_size", defaultNotificationQueue)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:       configViper.GetString("http.address"),
		AllowedOrigins:    cleanOrigins(configViper.GetStringSlice("http.allowed_origins")),
		StorageDriver:     strings.ToLower(strings.TrimSpace(configViper.GetString("storage.driver"))),
		DatabasePath:      configViper.GetString("database.path"),
		BadgerPath:        configViper.GetString("badger.path"),
		BadgerGCInterval:  configViper.GetDuration("badger.gc_interval"),
		LogLevel:          configViper.GetString("log.level"),
		LogFormat:         configViper.GetString("log.format"),
		UserID:            strings.TrimSpace(configViper.GetString("user.id")),
		Username:          strings.TrimSpace(configViper.GetString("user.username")),
		DisplayName:       strings.TrimSpace(configViper.GetString("user.display_name")),
		ProfilePhoto:      strings.TrimSpace(configViper.GetString("user.profile_photo")),
		NotificationQueue: configViper.GetInt("notifications.queue_size"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// cleanOrigins trims entries and splits comma-separated values, as env vars deliver them.
func cleanOrigins(values []string) []string {
	origins := make([]string, 0, len(values))
	for _, value := range values {
		for _, origin := range strings.Split(value, ",") {
			origin = strings.TrimRight(strings.TrimSpace(origin), "/")
			if origin != "" {
				origins = append(origins, origin)
			}
		}
	}
	return origins
}

func (c AppConfig) validate() error {
	switch c.StorageDriver {
	case StorageDriverSQLite:
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case StorageDriverBadger:
		if strings.TrimSpace(c.BadgerPath) == "" {
			return fmt.Errorf("badger.path is required for the badger driver")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.StorageDriver)
	}
	if c.UserID == "" {
		return fmt.Errorf("user.id is required")
	}
	if c.Username == "" {
		return fmt.Errorf("user.username is required")
	}
	for _, origin := range c.AllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("http.allowed_origins entry %q must start with http:// or https://", origin)
		}
	}
	if c.NotificationQueue <= 0 {
		return fmt.Errorf("notifications.queue_size must be positive")
	}
	return nil
}
