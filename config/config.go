// Package config loads the installer's own configuration. Settings here
// shape how provisioning runs; the proxy server's config.json is rendered
// separately by pkg/serverconf.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ssforge/ssforge/pkg/log"
)

var (
	ConfigFile      string
	Verbose         bool
	AlsoLogToStderr bool

	DefaultConfig = &Config{
		Package:          "shadowsocks-libev",
		ServerConfigPath: "/etc/shadowsocks-libev/config.json",
		WrapperPath:      "/usr/local/bin/ss-server-wrapper",
		UnitPath:         "/etc/systemd/system/ss-server.service",
		UnitName:         "ss-server.service",
		BackupKeep:       10,
		SettleSeconds:    1,
		JournalLines:     20,
	}
)

type Config struct {
	// The system package providing the server binary.
	Package string `yaml:"package,omitempty"`
	// Where the rendered server config is written.
	ServerConfigPath string `yaml:"server_config_path,omitempty"`
	// Where the launcher shim is written.
	WrapperPath string `yaml:"wrapper_path,omitempty"`
	// Where the systemd unit file is written.
	UnitPath string `yaml:"unit_path,omitempty"`
	// The unit name used with systemctl.
	UnitName string `yaml:"unit_name,omitempty"`
	// How many timestamped backups to keep per file. Zero keeps all.
	BackupKeep int `yaml:"backup_keep,omitempty"`
	// How many seconds to wait before the single activation probe.
	SettleSeconds int `yaml:"settle_seconds,omitempty"`
	// How many journal lines the status report shows.
	JournalLines int `yaml:"journal_lines,omitempty"`
	// Whether to enable verbose logging.
	Verbose bool `yaml:"verbose,omitempty"`
}

// Dir returns the path to the ssforge configuration directory.
func Dir() string {
	return "/etc/ssforge"
}

func getDefaultConfigPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func Load() (*Config, error) {
	if ConfigFile == "" {
		ConfigFile = getDefaultConfigPath()
	}
	cfg := new(Config)
	*cfg = *DefaultConfig
	if _, err := os.Stat(ConfigFile); err == nil {
		yamlFile, err := os.ReadFile(ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("error reading YAML file: %v", err)
		}
		if err := yaml.Unmarshal(yamlFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal YAML: %v", err)
		}
	}

	lOpts := []log.Option{}
	if Verbose || cfg.Verbose {
		lOpts = append(lOpts, log.WithDevMode())
	}
	if AlsoLogToStderr {
		lOpts = append(lOpts, log.WithAlsoLogToStderr())
	}
	if err := log.Init(lOpts...); err != nil {
		return nil, err
	}

	return cfg, nil
}

func ensureDirExists(filePath string) error {
	dir := filepath.Dir(filePath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		// Create the directory if it doesn't exist
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			return fmt.Errorf("failed to create directory: %v", err)
		}
	}
	return nil
}

func Store(cfg *Config) error {
	yamlFile, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %v", err)
	}
	if ConfigFile == "" {
		ConfigFile = getDefaultConfigPath()
	}
	if err := ensureDirExists(ConfigFile); err != nil {
		return fmt.Errorf("failed to ensure directory exists: %v", err)
	}
	if err := os.WriteFile(ConfigFile, yamlFile, 0644); err != nil {
		return fmt.Errorf("failed to write YAML file: %v", err)
	}
	return nil
}
