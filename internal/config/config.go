package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreBackendFirestore = "firestore"
	StoreBackendMemory    = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	Port                             string `mapstructure:"PORT"`
	GinMode                          string `mapstructure:"GIN_MODE"`
	AppID                            string `mapstructure:"APP_ID"` // Deployment-wide prefix of every storage path
	StoreBackend                     string `mapstructure:"STORE_BACKEND"`
	SeedFile                         string `mapstructure:"SEED_FILE"` // YAML documents loaded into the memory backend
	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`
	FirebaseAPIKey                   string `mapstructure:"FIREBASE_API_KEY"`    // Web API key for Identity Toolkit sign-in
	InitialAuthToken                 string `mapstructure:"INITIAL_AUTH_TOKEN"`  // Custom token used for the startup sign-in
	BootstrapUID                     string `mapstructure:"BOOTSTRAP_UID"`       // Mint a custom token for this UID when no token is given
	ClientURL                        string `mapstructure:"CLIENT_URL"`          // Allowed CORS origin of an external frontend
	CSRFAuthKey                      string `mapstructure:"CSRF_AUTH_KEY"`       // Base64, 32 bytes once decoded
	AuditEnabled                     bool   `mapstructure:"AUDIT_ENABLED"`
}

var keys = []string{
	"PORT",
	"GIN_MODE",
	"APP_ID",
	"STORE_BACKEND",
	"SEED_FILE",
	"FIREBASE_PROJECT_ID",
	"GOOGLE_APPLICATION_CREDENTIALS",
	"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64",
	"FIREBASE_API_KEY",
	"INITIAL_AUTH_TOKEN",
	"BOOTSTRAP_UID",
	"CLIENT_URL",
	"CSRF_AUTH_KEY",
	"AUDIT_ENABLED",
}

// LoadDotEnv loads a .env file into the process environment.
// It is skipped in release mode, where the environment is set directly.
func LoadDotEnv(ginMode string, filenames ...string) error {
	if strings.EqualFold(ginMode, "release") {
		return nil
	}
	return godotenv.Load(filenames...)
}

// LoadConfig loads configuration from environment variables using Viper.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("APP_ID", "default-app-id")
	v.SetDefault("STORE_BACKEND", StoreBackendFirestore)
	v.SetDefault("AUDIT_ENABLED", true)

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that must be present for the selected backend.
func (c *Config) Validate() error {
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	switch c.StoreBackend {
	case StoreBackendMemory:
	case StoreBackendFirestore:
		if c.FirebaseProjectID == "" {
			return errors.New("FIREBASE_PROJECT_ID is required for the firestore backend")
		}
		if c.FirebaseAPIKey == "" {
			return errors.New("FIREBASE_API_KEY is required for the firestore backend")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreBackendFirestore, StoreBackendMemory, c.StoreBackend)
	}
	if c.AppID == "" || strings.Contains(c.AppID, "/") {
		return fmt.Errorf("APP_ID must be a single path segment, got %q", c.AppID)
	}
	if c.CSRFAuthKey != "" {
		if _, err := c.CSRFKey(); err != nil {
			return err
		}
	}
	return nil
}

// CSRFKey decodes CSRFAuthKey. It returns nil when CSRF protection is not configured.
func (c *Config) CSRFKey() ([]byte, error) {
	if c.CSRFAuthKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.CSRFAuthKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode CSRF_AUTH_KEY from base64: %w", err)
	}
	if len(key) != 32 {
		return nil, errors.New("CSRF_AUTH_KEY must decode to 32 bytes")
	}
	return key, nil
}

// IsRelease reports whether gin runs in release mode.
func (c *Config) IsRelease() bool {
	return strings.EqualFold(c.GinMode, "release")
}
