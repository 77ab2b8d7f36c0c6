package config

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"open-launcher/internal/launcherr"
)

const (
	defaultConfigName = "launcher"

	BackendFile = "file"
	BackendDB   = "db"
)

type Client struct {
	// ProcessName is matched as a prefix against running process names.
	ProcessName string
	Binary      string
	// Args may reference {server}, {host} and {port}.
	Args []string
}

type Config struct {
	Servers Servers

	// VersionInfoURL is optional. When empty every update check is skipped.
	VersionInfoURL string
	PublicKey      ed25519.PublicKey

	InstallDir string
	KeyName    string

	SettingsBackend string
	SettingsPath    string

	Client Client

	UpdaterPath   string
	UpdaterSHA256 string

	ProbeTimeout time.Duration
	ProbeFloor   time.Duration

	AttachMaxAttempts int
	AttachInterval    time.Duration

	TelemetryPath string

	NewsURL    string
	WebsiteURL string
	VoteURL    string

	// File is the config file that was read, empty when running env-only.
	File string
}

type serverEntry struct {
	Name string `mapstructure:"name"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Load reads configuration. When file is non-empty it is used verbatim
// instead of searching the default locations.
func Load(file string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(defaultConfigName)
		v.AddConfigPath(".")
		v.AddConfigPath("config")
		if exe, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Dir(exe))
		}
	}

	v.SetEnvPrefix("OL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("install_dir", ".")
	v.SetDefault("key_name", "L1J Server")
	v.SetDefault("settings.backend", BackendFile)
	v.SetDefault("settings.path", "")
	v.SetDefault("client.process_name", "Lineage")
	v.SetDefault("client.binary", "Lineage.exe")
	v.SetDefault("client.args", []string{})
	v.SetDefault("updater.path", "")
	v.SetDefault("updater.sha256", "")
	v.SetDefault("probe.timeout", 2*time.Second)
	v.SetDefault("probe.floor", 500*time.Millisecond)
	v.SetDefault("attach.max_attempts", 10)
	v.SetDefault("attach.interval", 500*time.Millisecond)
	v.SetDefault("telemetry.ndjson_path", "")

	if err := v.ReadInConfig(); err != nil {
		// An explicit file must exist; the search is optional.
		if file != "" {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var entries []serverEntry
	if err := v.UnmarshalKey("servers", &entries); err != nil {
		return Config{}, launcherr.Wrap(launcherr.CodeInvalidConfig, "decode servers", err)
	}

	cfg := Config{
		VersionInfoURL:    strings.TrimSpace(v.GetString("version_info_url")),
		InstallDir:        strings.TrimSpace(v.GetString("install_dir")),
		KeyName:           strings.TrimSpace(v.GetString("key_name")),
		SettingsBackend:   strings.ToLower(strings.TrimSpace(v.GetString("settings.backend"))),
		SettingsPath:      strings.TrimSpace(v.GetString("settings.path")),
		UpdaterPath:       strings.TrimSpace(v.GetString("updater.path")),
		UpdaterSHA256:     strings.ToLower(strings.TrimSpace(v.GetString("updater.sha256"))),
		ProbeTimeout:      v.GetDuration("probe.timeout"),
		ProbeFloor:        v.GetDuration("probe.floor"),
		AttachMaxAttempts: v.GetInt("attach.max_attempts"),
		AttachInterval:    v.GetDuration("attach.interval"),
		TelemetryPath:     strings.TrimSpace(v.GetString("telemetry.ndjson_path")),
		NewsURL:           strings.TrimSpace(v.GetString("news_url")),
		WebsiteURL:        strings.TrimSpace(v.GetString("website_url")),
		VoteURL:           strings.TrimSpace(v.GetString("vote_url")),
		File:              v.ConfigFileUsed(),
		Client: Client{
			ProcessName: strings.TrimSpace(v.GetString("client.process_name")),
			Binary:      strings.TrimSpace(v.GetString("client.binary")),
			Args:        v.GetStringSlice("client.args"),
		},
	}
	for _, e := range entries {
		srv := Server{Name: strings.TrimSpace(e.Name), Host: strings.TrimSpace(e.Host), Port: e.Port}
		if err := cfg.Servers.Add(srv); err != nil {
			return Config{}, launcherr.Wrap(launcherr.CodeInvalidConfig, "servers", err)
		}
	}

	if raw := strings.TrimSpace(v.GetString("public_key")); raw != "" {
		key, err := DecodePublicKey(raw)
		if err != nil {
			return Config{}, launcherr.Wrap(launcherr.CodeInvalidConfig, "public_key", err)
		}
		cfg.PublicKey = key
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, launcherr.Wrap(launcherr.CodeInvalidConfig, "validate config", err)
	}

	abs, err := filepath.Abs(cfg.InstallDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve install_dir: %w", err)
	}
	cfg.InstallDir = abs

	if cfg.TelemetryPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.TelemetryPath), 0o755); err != nil {
			return Config{}, fmt.Errorf("create telemetry dir: %w", err)
		}
	}
	return cfg, nil
}

// Validate checks invariants that Load enforces. It is exported so configs
// built in code go through the same checks.
func (c Config) Validate() error {
	if c.Servers.Len() == 0 {
		return fmt.Errorf("no servers configured")
	}
	if c.VersionInfoURL != "" && len(c.PublicKey) != ed25519.PublicKeySize {
		return fmt.Errorf("public_key is required when version_info_url is set")
	}
	if c.KeyName == "" {
		return fmt.Errorf("key_name must not be empty")
	}
	switch c.SettingsBackend {
	case BackendFile, BackendDB:
	default:
		return fmt.Errorf("invalid settings.backend %q", c.SettingsBackend)
	}
	if c.Client.ProcessName == "" {
		return fmt.Errorf("client.process_name must not be empty")
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("invalid probe.timeout %s", c.ProbeTimeout)
	}
	if c.ProbeFloor < 0 {
		return fmt.Errorf("invalid probe.floor %s", c.ProbeFloor)
	}
	if c.AttachMaxAttempts <= 0 {
		return fmt.Errorf("invalid attach.max_attempts %d", c.AttachMaxAttempts)
	}
	if c.AttachInterval < 0 {
		return fmt.Errorf("invalid attach.interval %s", c.AttachInterval)
	}
	return nil
}

// DecodePublicKey accepts standard or raw base64 ed25519 public keys.
func DecodePublicKey(raw string) (ed25519.PublicKey, error) {
	b, err := DecodeBase64(raw)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes", ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(b), nil
}

func DecodeBase64(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(raw)
}
