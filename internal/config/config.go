// Package config resolves the RPC endpoint, payer key and storage settings
// from flags, the environment (optionally seeded from a .env file) and the
// Solana CLI configuration file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"solana-oracle-client/internal/keypair"
)

// Environment variables consulted when the matching flag is empty.
const (
	EnvRPCURL        = "RPC_URL"
	EnvWSURL         = "WS_URL"
	EnvPayerSecret   = "PAYER_SECRET"
	EnvPayerKeypair  = "PAYER_KEYPAIR"
	EnvProgramDir    = "PROGRAM_DIR"
	EnvPostgresDSN   = "POSTGRES_DSN"
	EnvClickhouseDSN = "CLICKHOUSE_DSN"
)

// DefaultRPCURL is used when no endpoint is configured anywhere.
const DefaultRPCURL = "http://127.0.0.1:8899"

// DefaultCommitment matches the commitment the client opens connections with.
const DefaultCommitment = "confirmed"

var (
	// ErrNoRPCURL is returned when the resolved endpoint cannot be parsed.
	ErrNoRPCURL = errors.New("rpc url unresolvable")
)

// CLIConfig is the subset of the Solana CLI config.yml the client reads.
type CLIConfig struct {
	JSONRPCURL   string `yaml:"json_rpc_url"`
	WebsocketURL string `yaml:"websocket_url"`
	KeypairPath  string `yaml:"keypair_path"`
	Commitment   string `yaml:"commitment"`
}

// DefaultCLIConfigPath returns ~/.config/solana/cli/config.yml.
func DefaultCLIConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", "solana", "cli", "config.yml"), nil
}

// LoadCLIConfig parses the Solana CLI config at path. A missing file yields
// an empty config and no error.
func LoadCLIConfig(path string) (*CLIConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &CLIConfig{}, nil
		}
		return nil, fmt.Errorf("read cli config %s: %w", path, err)
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse cli config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadEnv loads KEY=VALUE pairs from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

// Config is the fully resolved client configuration.
type Config struct {
	RPCURL      string
	WSURL       string
	Commitment  string
	KeypairPath string // flag or PAYER_KEYPAIR
	PayerSecret string
	ProgramDir  string

	// CLIKeypairPath is keypair_path from the CLI config. It is tried only
	// when neither KeypairPath nor PayerSecret is set, and may be absent.
	CLIKeypairPath string

	PostgresDSN   string
	ClickhouseDSN string
}

// Overrides carries explicit (flag) values. Empty fields fall through.
type Overrides struct {
	RPCURL        string
	WSURL         string
	KeypairPath   string
	ProgramDir    string
	PostgresDSN   string
	ClickhouseDSN string
}

// Resolve merges flag overrides, environment and the CLI config, in that
// order of precedence.
func Resolve(o Overrides, cli *CLIConfig) (*Config, error) {
	if cli == nil {
		cli = &CLIConfig{}
	}

	cfg := &Config{
		RPCURL:         firstNonEmpty(o.RPCURL, os.Getenv(EnvRPCURL), cli.JSONRPCURL, DefaultRPCURL),
		Commitment:     firstNonEmpty(cli.Commitment, DefaultCommitment),
		KeypairPath:    firstNonEmpty(o.KeypairPath, os.Getenv(EnvPayerKeypair)),
		PayerSecret:    strings.TrimSpace(os.Getenv(EnvPayerSecret)),
		CLIKeypairPath: expandHome(cli.KeypairPath),
		ProgramDir:     firstNonEmpty(o.ProgramDir, os.Getenv(EnvProgramDir), filepath.Join("target", "deploy")),
		PostgresDSN:    firstNonEmpty(o.PostgresDSN, os.Getenv(EnvPostgresDSN)),
		ClickhouseDSN:  firstNonEmpty(o.ClickhouseDSN, os.Getenv(EnvClickhouseDSN)),
	}

	if _, err := url.ParseRequestURI(cfg.RPCURL); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrNoRPCURL, cfg.RPCURL, err)
	}

	ws := firstNonEmpty(o.WSURL, os.Getenv(EnvWSURL), cli.WebsocketURL)
	if ws == "" {
		derived, err := DeriveWSURL(cfg.RPCURL)
		if err != nil {
			return nil, err
		}
		ws = derived
	}
	cfg.WSURL = ws

	return cfg, nil
}

// PayerSource returns where the payer key comes from: an explicit keypair
// file, then PAYER_SECRET, then the CLI config keypair, then a fresh key.
func (c *Config) PayerSource() keypair.Source {
	switch {
	case c.KeypairPath != "":
		return keypair.Source{Path: c.KeypairPath}
	case c.PayerSecret != "":
		return keypair.Source{Secret: c.PayerSecret}
	default:
		return keypair.Source{Path: c.CLIKeypairPath, PathOptional: true}
	}
}

// DeriveWSURL maps an HTTP RPC URL to its websocket counterpart. An explicit
// port is incremented by one, as solana-test-validator serves pubsub on
// rpc_port+1.
func DeriveWSURL(rpcURL string) (string, error) {
	u, err := url.Parse(rpcURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoRPCURL, err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrNoRPCURL, u.Scheme)
	}

	if port := u.Port(); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return "", fmt.Errorf("%w: bad port %q", ErrNoRPCURL, port)
		}
		u.Host = fmt.Sprintf("%s:%d", u.Hostname(), n+1)
	}

	return u.String(), nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
