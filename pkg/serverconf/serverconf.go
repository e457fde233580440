// Package serverconf renders the shadowsocks server configuration file.
package serverconf

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/ssforge/ssforge/pkg/host/fsutil"
)

// DefaultPassword is the placeholder written when PASS is not supplied. It
// must be replaced before exposing the server.
const DefaultPassword = "ChangeThisPassword"

// Modes accepted by ss-server.
const (
	ModeTCPOnly   = "tcp_only"
	ModeUDPOnly   = "udp_only"
	ModeTCPAndUDP = "tcp_and_udp"
)

// methods lists the ciphers ss-server accepts.
var methods = map[string]bool{
	"aes-128-gcm":             true,
	"aes-192-gcm":             true,
	"aes-256-gcm":             true,
	"chacha20-ietf-poly1305":  true,
	"xchacha20-ietf-poly1305": true,
	"aes-128-cfb":             true,
	"aes-256-cfb":             true,
	"chacha20-ietf":           true,
}

// Params are the user-tunable server settings. Everything else in the
// rendered file is fixed.
type Params struct {
	Port     int
	Password string
	Method   string
	Mode     string
	Timeout  int
}

// Defaults returns the built-in parameter set.
func Defaults() Params {
	return Params{
		Port:     8388,
		Password: DefaultPassword,
		Method:   "aes-256-gcm",
		Mode:     ModeTCPAndUDP,
		Timeout:  60,
	}
}

// FromEnv returns Defaults overridden by the PORT, PASS, METHOD, MODE and
// TIMEOUT environment variables.
func FromEnv() (Params, error) {
	p := Defaults()
	if v := os.Getenv("PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("PORT: %w", err)
		}
		p.Port = n
	}
	if v := os.Getenv("PASS"); v != "" {
		p.Password = v
	}
	if v := os.Getenv("METHOD"); v != "" {
		p.Method = v
	}
	if v := os.Getenv("MODE"); v != "" {
		p.Mode = v
	}
	if v := os.Getenv("TIMEOUT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("TIMEOUT: %w", err)
		}
		p.Timeout = n
	}
	return p, nil
}

// Validate reports the first invalid parameter.
func (p Params) Validate() error {
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", p.Port)
	}
	if p.Password == "" {
		return fmt.Errorf("password must not be empty")
	}
	if !methods[p.Method] {
		return fmt.Errorf("unknown cipher method %q", p.Method)
	}
	switch p.Mode {
	case ModeTCPOnly, ModeUDPOnly, ModeTCPAndUDP:
	default:
		return fmt.Errorf("unknown mode %q", p.Mode)
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("timeout %d must be positive", p.Timeout)
	}
	return nil
}

// GeneratePassword returns a random secret suitable for use as the
// pre-shared key.
func GeneratePassword() (string, error) {
	var b [24]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}

// File is the on-disk config.json schema consumed by ss-server.
type File struct {
	Server     []string `json:"server"`
	Mode       string   `json:"mode"`
	ServerPort int      `json:"server_port"`
	LocalPort  int      `json:"local_port"`
	Password   string   `json:"password"`
	Timeout    int      `json:"timeout"`
	FastOpen   bool     `json:"fast_open"`
	ReusePort  bool     `json:"reuse_port"`
	NoDelay    bool     `json:"no_delay"`
	Method     string   `json:"method"`
}

// Render builds the full config file for p. The listen addresses, local port
// and performance flags are fixed.
func Render(p Params) *File {
	return &File{
		Server:     []string{"0.0.0.0", "::"},
		Mode:       p.Mode,
		ServerPort: p.Port,
		LocalPort:  1080,
		Password:   p.Password,
		Timeout:    p.Timeout,
		FastOpen:   true,
		ReusePort:  true,
		NoDelay:    true,
		Method:     p.Method,
	}
}

// Write renders p to path with mode 0600, creating the parent directory
// (0755) if needed. An existing file is backed up first and old backups are
// pruned to keepBackups. Returns the backup path, "" if none was made.
func Write(path string, p Params, keepBackups int) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}

	bak, err := fsutil.Snapshot(path)
	if err != nil {
		return "", fmt.Errorf("backing up %s: %w", path, err)
	}

	data, err := json.MarshalIndent(Render(p), "", "    ")
	if err != nil {
		return bak, fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return bak, fmt.Errorf("writing %s: %w", path, err)
	}
	// WriteFile does not change the mode of a pre-existing file.
	if err := os.Chmod(path, 0600); err != nil {
		return bak, fmt.Errorf("chmod %s: %w", path, err)
	}

	// Retention is best-effort: a stuck backup must not fail a write that
	// already succeeded.
	if err := fsutil.Prune(path, keepBackups); err != nil {
		slog.Warn("Failed to prune backups", "path", path, "error", err)
	}
	return bak, nil
}

// Load parses the config file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f := new(File)
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}
