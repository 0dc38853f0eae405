package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/cyberforge/cyberforge/internal/jsonutil"
	"github.com/cyberforge/cyberforge/internal/logging"
)

const (
	DefaultAPIURL         = "http://localhost:8008"
	DefaultWSURL          = "ws://localhost:8008"
	DefaultRequestTimeout = 120 * time.Second
	DefaultProfileName    = "default"

	// Assistant transports.
	AssistantBackend = "backend"
	AssistantDirect  = "direct"
)

// Sentinel errors for configuration failure modes.
var (
	ErrProfileNotFound = errors.New("config: profile not found")
	ErrNoProfiles      = errors.New("config: no profiles defined")
	ErrInvalidConfig   = errors.New("config: invalid configuration")
)

// AssistantProfile selects how chat requests are served. The backend
// transport posts to /api/assistant/chat; the direct transport talks to an
// OpenAI-compatible endpoint with the profile's own key.
type AssistantProfile struct {
	Transport string `json:"transport,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
	BaseURL   string `json:"base_url,omitempty"`
	Model     string `json:"model,omitempty"`
}

type Profile struct {
	APIURL                string           `json:"api_url"`
	WSURL                 string           `json:"ws_url,omitempty"`
	RequestTimeoutSeconds int              `json:"request_timeout_seconds,omitempty"`
	RateLimit             float64          `json:"rate_limit,omitempty"`
	Assistant             AssistantProfile `json:"assistant,omitzero"`
}

// RequestTimeout returns the default per-request timeout for the profile.
func (p Profile) RequestTimeout() time.Duration {
	if p.RequestTimeoutSeconds <= 0 {
		return DefaultRequestTimeout
	}
	return time.Duration(p.RequestTimeoutSeconds) * time.Second
}

// AssistantTransport reports the configured chat transport.
func (p Profile) AssistantTransport() string {
	if strings.EqualFold(p.Assistant.Transport, AssistantDirect) {
		return AssistantDirect
	}
	return AssistantBackend
}

// DefaultProfile is the profile written on first run.
func DefaultProfile() Profile {
	return Profile{
		APIURL:                DefaultAPIURL,
		WSURL:                 DefaultWSURL,
		RequestTimeoutSeconds: int(DefaultRequestTimeout / time.Second),
		Assistant:             AssistantProfile{Transport: AssistantBackend},
	}
}

type Config struct {
	Profiles       map[string]Profile `json:"profiles"`
	ActiveProfile  string             `json:"active_profile"`
	Logging        logging.Config     `json:"logging,omitzero"`
	currentProfile *Profile
	path           string
}

// LoadConfig reads ~/.cyberforge/config.json (creating it on first run),
// applies .env and environment overrides, and resolves the active profile.
func LoadConfig() (*Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadConfigFrom(configPath)
}

// LoadConfigFrom loads the configuration stored at configPath.
func LoadConfigFrom(configPath string) (*Config, error) {
	if err := ensureConfigDir(configPath); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config, err := loadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	config.path = configPath

	if err := config.setCurrentProfile(); err != nil {
		return nil, fmt.Errorf("failed to set current profile: %w", err)
	}
	config.applyEnv()

	return config, nil
}

// Current returns the resolved active profile.
func (c *Config) Current() Profile {
	if c.currentProfile == nil {
		return DefaultProfile()
	}
	return *c.currentProfile
}

func (c *Config) GetAPIURL() string {
	if c.currentProfile == nil || c.currentProfile.APIURL == "" {
		return DefaultAPIURL
	}
	return strings.TrimRight(c.currentProfile.APIURL, "/")
}

// GetWSURL returns the WebSocket base, deriving it from the API URL when the
// profile leaves it empty.
func (c *Config) GetWSURL() string {
	if c.currentProfile != nil && c.currentProfile.WSURL != "" {
		return strings.TrimRight(c.currentProfile.WSURL, "/")
	}
	api := c.GetAPIURL()
	switch {
	case strings.HasPrefix(api, "https://"):
		return "wss://" + strings.TrimPrefix(api, "https://")
	case strings.HasPrefix(api, "http://"):
		return "ws://" + strings.TrimPrefix(api, "http://")
	}
	return DefaultWSURL
}

// Dir returns the directory holding the config file.
func (c *Config) Dir() string {
	return filepath.Dir(c.path)
}

// SelectProfile makes name the active profile for this process only.
func (c *Config) SelectProfile(name string) error {
	profile, exists := c.Profiles[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	c.ActiveProfile = name
	c.currentProfile = &profile
	c.applyEnv()
	return nil
}

// HomeDir returns the cyberforge state directory. CYBERFORGE_HOME replaces
// the user's home directory as its parent.
func HomeDir() (string, error) {
	var baseDir string

	if forgeHome := os.Getenv("CYBERFORGE_HOME"); forgeHome != "" {
		baseDir = forgeHome
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = homeDir
	}

	return filepath.Join(baseDir, ".cyberforge"), nil
}

// ConfigPath returns the location of config.json.
func ConfigPath() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func ensureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0o755)
}

func loadConfigFile(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return createDefaultConfig(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := jsonutil.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &config, nil
}

func createDefaultConfig(configPath string) (*Config, error) {
	config := &Config{
		Profiles: map[string]Profile{
			DefaultProfileName: DefaultProfile(),
		},
		ActiveProfile: DefaultProfileName,
		Logging:       *logging.DefaultConfig(),
	}

	if err := saveConfig(config, configPath); err != nil {
		return nil, err
	}

	return config, nil
}

func saveConfig(config *Config, configPath string) error {
	data, err := jsonutil.MarshalIndent(config, "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0o600)
}

func (c *Config) Save() error {
	if c.path == "" {
		configPath, err := ConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		c.path = configPath
	}

	return saveConfig(c, c.path)
}

func (c *Config) setCurrentProfile() error {
	if len(c.Profiles) == 0 {
		return ErrNoProfiles
	}

	profile, exists := c.Profiles[c.ActiveProfile]
	if !exists {
		// Fall back to the first profile in name order so the choice is stable.
		for _, name := range c.ProfileNames() {
			c.ActiveProfile = name
			profile = c.Profiles[name]
			exists = true
			break
		}
	}

	if !exists {
		return ErrNoProfiles
	}

	c.currentProfile = &profile
	return nil
}

// applyEnv layers CYBERFORGE_* variables over the active profile without
// writing them back to disk.
func (c *Config) applyEnv() {
	if c.currentProfile == nil {
		return
	}
	if v := os.Getenv("CYBERFORGE_API_URL"); v != "" {
		c.currentProfile.APIURL = v
	}
	if v := os.Getenv("CYBERFORGE_WS_URL"); v != "" {
		c.currentProfile.WSURL = v
	}
}

// LogConfig returns the logging settings with environment overrides applied.
func (c *Config) LogConfig() logging.Config {
	cfg := c.Logging
	if v := os.Getenv("CYBERFORGE_LOG_LEVEL"); v != "" {
		cfg.Level = v
	}
	if v := os.Getenv("CYBERFORGE_LOG_FORMAT"); v != "" {
		cfg.Format = v
	}
	return cfg
}

// ProfileNames lists profile names in sorted order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
