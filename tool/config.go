package tool

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/moyoez/fileserver-admin/types"
)

var (
	ConfigPath    = "config.yaml" // be aware that it can be changed, default to ./config.yaml
	CurrentConfig types.AppConfig
)

// Environment variables applied on top of the config file. A .env file in the
// working directory is loaded first; real environment variables win over it.
const (
	EnvServer   = "FSADMIN_SERVER"
	EnvClientID = "FSADMIN_CLIENT_ID"
	EnvTokenDir = "FSADMIN_TOKEN_DIR"
	EnvUsername = "FSADMIN_USERNAME"
	EnvPassword = "FSADMIN_PASSWORD"
)

func defaultConfig() types.AppConfig {
	return types.AppConfig{
		Server:         "http://localhost:3000",
		ClientID:       "shared", // the panel only manages the shared tenant
		TokenDir:       defaultTokenDir(),
		DownloadDir:    ".",
		TimeoutSeconds: 30,
		PanelPort:      53318,
		NotifyWS:       true,
	}
}

func defaultTokenDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fileserver-admin"
	}
	return filepath.Join(home, ".config", "fileserver-admin")
}

// LoadConfig reads the YAML config at path (ConfigPath when empty), writing a default
// one first if the file does not exist, then applies .env and environment overrides.
func LoadConfig(path string) (types.AppConfig, error) {
	if path == "" {
		path = ConfigPath
	}
	ConfigPath = path

	cfg := defaultConfig()

	info, err := os.Stat(path)
	switch {
	case err != nil && os.IsNotExist(err):
		if writeErr := writeDefaultConfig(path, cfg); writeErr != nil {
			return cfg, fmt.Errorf("config file not found, and failed to generate default config: %v", writeErr)
		}
		DefaultLogger.Infof("Created new config file at %s", path)
	case err != nil:
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	case info.IsDir():
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %v", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %v", err)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		DefaultLogger.Warnf("Failed to load .env: %v", err)
	}
	applyEnv(&cfg)

	cfg.Server = strings.TrimRight(cfg.Server, "/")
	if cfg.ClientID == "" {
		return cfg, fmt.Errorf("clientId must not be empty")
	}

	CurrentConfig = cfg
	return cfg, nil
}

func applyEnv(cfg *types.AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvServer)); v != "" {
		cfg.Server = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvClientID)); v != "" {
		cfg.ClientID = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTokenDir)); v != "" {
		cfg.TokenDir = v
	}
}

// ApplyFlags merges CLI flag overrides into cfg.
func ApplyFlags(cfg *types.AppConfig, flags types.Config) {
	if flags.UseServer != "" {
		cfg.Server = strings.TrimRight(flags.UseServer, "/")
	}
	if flags.UseClientID != "" {
		cfg.ClientID = flags.UseClientID
	}
	if flags.UseTokenDir != "" {
		cfg.TokenDir = flags.UseTokenDir
	}
	if flags.UseDownloadDir != "" {
		cfg.DownloadDir = flags.UseDownloadDir
	}
	if flags.UsePanelPort > 0 {
		cfg.PanelPort = flags.UsePanelPort
	}
	CurrentConfig = *cfg
}

// EnvCredentials returns the credentials set through the environment, if any.
func EnvCredentials() (username, password string) {
	return os.Getenv(EnvUsername), os.Getenv(EnvPassword)
}

func writeDefaultConfig(path string, cfg types.AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func GetCurrentConfig() *types.AppConfig {
	return &CurrentConfig
}
