package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
)

// Config is the root configuration for sheetboard, stored in
// ~/.sheetboard/config.json unless SHEETBOARD_CONFIG points elsewhere.
// The file supports single-line // comments for documentation purposes.
// Every field can be overridden by the SHEETBOARD_* variable in its env tag.
type Config struct {
	Server    ServerConfig    `json:"server" envPrefix:"SHEETBOARD_"`
	Messenger MessengerConfig `json:"messenger" envPrefix:"SHEETBOARD_"`
	Store     StoreConfig     `json:"store" envPrefix:"SHEETBOARD_"`
	Board     BoardConfig     `json:"board" envPrefix:"SHEETBOARD_"`
}

// ServerConfig holds the webhook HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `json:"addr" env:"HTTP_ADDR"`
	// OTLPEndpoint enables trace export when set, e.g. "http://localhost:4318".
	OTLPEndpoint string `json:"otlp_endpoint" env:"OTLP_ENDPOINT"`
}

// MessengerConfig holds the chat platform credentials.
type MessengerConfig struct {
	VerifyToken string `json:"verify_token" env:"VERIFY_TOKEN"`
	AccessToken string `json:"access_token" env:"ACCESS_TOKEN"`
	// BaseURL is the Graph API root.
	BaseURL string `json:"base_url" env:"GRAPH_BASE_URL"`
}

// StoreConfig selects and configures the grid backend.
type StoreConfig struct {
	// Backend is "sheets", "bolt" or "memory".
	Backend       string `json:"backend" env:"STORE"`
	SpreadsheetID string `json:"spreadsheet_id" env:"SPREADSHEET_ID"`
	SheetName     string `json:"sheet_name" env:"SHEET_NAME"`
	ClientID      string `json:"client_id" env:"CLIENT_ID"`
	ClientSecret  string `json:"client_secret" env:"CLIENT_SECRET"`
	// TokenFile holds the OAuth2 token written by `sheetboard auth`.
	TokenFile string `json:"token_file" env:"TOKEN_FILE"`
	// BoltPath is the database file for the bolt backend.
	BoltPath string `json:"bolt_path" env:"BOLT_PATH"`
}

// BoardConfig holds leaderboard settings.
type BoardConfig struct {
	// Timezone is the IANA zone the daily cutoff is applied in. "Local" uses
	// the host zone.
	Timezone string `json:"timezone" env:"TIMEZONE"`
	TopN     int    `json:"top_n" env:"TOP_N"`
}

const (
	BackendSheets = "sheets"
	BackendBolt   = "bolt"
	BackendMemory = "memory"

	DefaultAddr      = ":8080"
	DefaultBaseURL   = "https://graph.facebook.com/v2.6"
	DefaultSheetName = "Times"
	DefaultTimezone  = "Local"
	DefaultTopN      = 3
)

// Location resolves Board.Timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Board.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Board.Timezone, err)
	}
	return loc, nil
}

// SheetURL is the browser link to the configured spreadsheet, or "" for
// other backends.
func (c Config) SheetURL() string {
	if c.Store.Backend != BackendSheets || c.Store.SpreadsheetID == "" {
		return ""
	}
	return "https://docs.google.com/spreadsheets/d/" + c.Store.SpreadsheetID
}

// defaultConfig returns a Config pre-filled with sensible defaults.
func defaultConfig(dir string) Config {
	var cfg Config
	fillDefaults(&cfg, dir)
	return cfg
}

func fillDefaults(cfg *Config, dir string) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultAddr
	}
	if cfg.Messenger.BaseURL == "" {
		cfg.Messenger.BaseURL = DefaultBaseURL
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendSheets
	}
	if cfg.Store.SheetName == "" {
		cfg.Store.SheetName = DefaultSheetName
	}
	if cfg.Store.TokenFile == "" {
		cfg.Store.TokenFile = filepath.Join(dir, "token.json")
	}
	if cfg.Store.BoltPath == "" {
		cfg.Store.BoltPath = filepath.Join(dir, "sheetboard.db")
	}
	if cfg.Board.Timezone == "" {
		cfg.Board.Timezone = DefaultTimezone
	}
	if cfg.Board.TopN <= 0 {
		cfg.Board.TopN = DefaultTopN
	}
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing,
// allowing human-readable documentation inside the file.
const configTemplate = `// sheetboard configuration – ~/.sheetboard/config.json
//
// Every value can also be set through the environment variable named next
// to it; the environment wins over this file.
{
  // ── Webhook server ───────────────────────────────────────────────────────
  "server": {
    // Listen address. SHEETBOARD_HTTP_ADDR
    "addr": ":8080",

    // OTLP/HTTP collector URL for traces, e.g. "http://localhost:4318".
    // Leave empty to disable tracing. SHEETBOARD_OTLP_ENDPOINT
    "otlp_endpoint": ""
  },

  // ── Messenger page ───────────────────────────────────────────────────────
  "messenger": {
    // Token the platform echoes during the webhook subscription handshake.
    // SHEETBOARD_VERIFY_TOKEN
    "verify_token": "",

    // Page access token used to send replies and look up names.
    // SHEETBOARD_ACCESS_TOKEN
    "access_token": "",

    // Graph API root. SHEETBOARD_GRAPH_BASE_URL
    "base_url": "https://graph.facebook.com/v2.6"
  },

  // ── Grid store ───────────────────────────────────────────────────────────
  "store": {
    // "sheets" (Google Sheets), "bolt" (local file) or "memory".
    // SHEETBOARD_STORE
    "backend": "sheets",

    // Spreadsheet ID from the sheet URL. SHEETBOARD_SPREADSHEET_ID
    "spreadsheet_id": "",

    // Tab holding the leaderboard grid. SHEETBOARD_SHEET_NAME
    "sheet_name": "Times",

    // OAuth2 client for the device flow run by: sheetboard auth
    // SHEETBOARD_CLIENT_ID, SHEETBOARD_CLIENT_SECRET
    "client_id": "",
    "client_secret": "",

    // Defaults to token.json next to this file. SHEETBOARD_TOKEN_FILE
    "token_file": "",

    // Defaults to sheetboard.db next to this file. SHEETBOARD_BOLT_PATH
    "bolt_path": ""
  },

  // ── Leaderboard ──────────────────────────────────────────────────────────
  "board": {
    // IANA timezone for the 22:00 day rollover, e.g. "Europe/Berlin".
    // "Local" uses the host zone. SHEETBOARD_TIMEZONE
    "timezone": "Local",

    // Number of ranked entries in a summary. SHEETBOARD_TOP_N
    "top_n": 3
  }
}
`

// FilePath returns $SHEETBOARD_CONFIG, or ~/.sheetboard/config.json.
func FilePath() (string, error) {
	if p := os.Getenv("SHEETBOARD_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".sheetboard", "config.json"), nil
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load reads the config file, creating it with annotated defaults on first
// run, and applies SHEETBOARD_* environment overrides.
func Load() (Config, error) {
	path, err := FilePath()
	if err != nil {
		return defaultConfig("."), err
	}
	return LoadFile(path)
}

// LoadFile is Load for an explicit path.
func LoadFile(path string) (Config, error) {
	dir := filepath.Dir(path)

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
	case err != nil:
		return defaultConfig(dir), fmt.Errorf("reading config file %s: %w", path, err)
	default:
		if err := json.Unmarshal(stripLineComments(data), &cfg); err != nil {
			return defaultConfig(dir), fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return defaultConfig(dir), fmt.Errorf("parse env: %w", err)
	}

	fillDefaults(&cfg, dir)
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Backend {
	case BackendSheets, BackendBolt, BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q (want sheets, bolt or memory)", c.Store.Backend)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
