// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for parley.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.parley/config.toml
//   - ~/.parley/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/parley/internal/backend"
	"github.com/jeranaias/parley/internal/role"
	"github.com/jeranaias/parley/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete parley configuration.
type Config struct {
	// General settings
	Version string `toml:"version" json:"version"`

	// DefaultModel is the legacy top-level model key. Superseded by
	// chat.model; Migrate moves it there.
	DefaultModel string `toml:"default_model,omitempty" json:"default_model,omitempty"`

	// Backend server configuration
	Backend BackendConfig `toml:"backend" json:"backend"`

	// Chat behavior configuration
	Chat ChatConfig `toml:"chat" json:"chat"`

	// Sampling parameters sent with every request
	Sampling SamplingConfig `toml:"sampling" json:"sampling"`

	// Conversation history persistence
	History HistoryConfig `toml:"history" json:"history"`

	// Terminal output configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// BackendConfig contains inference server configuration.
type BackendConfig struct {
	// URL is the base URL of the inference server
	URL string `toml:"url" json:"url"`
	// TimeoutSecs is the timeout for non-streaming requests in seconds
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// RequestsPerMinute throttles outgoing requests (0 = unlimited)
	RequestsPerMinute int `toml:"requests_per_minute" json:"requests_per_minute"`
}

// ChatConfig contains conversation behavior configuration.
type ChatConfig struct {
	// Role is the starting role id (see role.List for valid values)
	Role string `toml:"role" json:"role"`
	// Model overrides the role's default model when non-empty
	Model string `toml:"model" json:"model"`
	// RevealThinking shows reasoning spans instead of hiding them
	RevealThinking bool `toml:"reveal_thinking" json:"reveal_thinking"`
	// ThinkMarker replaces the default glyph shown before revealed reasoning
	ThinkMarker string `toml:"think_marker" json:"think_marker"`
}

// SamplingConfig contains model sampling parameters.
type SamplingConfig struct {
	// Temperature controls randomness (0.0-2.0)
	Temperature float64 `toml:"temperature" json:"temperature"`
	// TopP is the nucleus sampling cutoff (0.0-1.0)
	TopP float64 `toml:"top_p" json:"top_p"`
	// NumCtx is the context window size in tokens (0 = server default)
	NumCtx int `toml:"num_ctx" json:"num_ctx"`
	// MaxTokens caps the reply length (0 = server default, -1 = unlimited)
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`
}

// HistoryConfig contains conversation persistence configuration.
type HistoryConfig struct {
	// Enabled controls whether conversations are saved to disk
	Enabled bool `toml:"enabled" json:"enabled"`
	// Dir is the history directory (empty = ~/.parley/history)
	Dir string `toml:"dir" json:"dir"`
	// MaxConversations caps how many conversations are kept (0 = unlimited)
	MaxConversations int `toml:"max_conversations" json:"max_conversations"`
	// Encrypt stores conversations encrypted at rest. The key comes
	// from the PARLEY_HISTORY_KEY environment variable, never from
	// this file.
	Encrypt bool `toml:"encrypt" json:"encrypt"`
	// SearchIndex maintains a full-text index over saved conversations.
	// When off, searches scan the conversation files directly.
	SearchIndex bool `toml:"search_index" json:"search_index"`
	// Watch keeps the index current while chatting by watching the
	// history directory for changes made by other processes
	Watch bool `toml:"watch" json:"watch"`
}

// UIConfig contains terminal output configuration.
type UIConfig struct {
	// Color controls colored output: "auto", "always", "never"
	Color string `toml:"color" json:"color"`
	// ShowStats prints generation statistics after each reply
	ShowStats bool `toml:"show_stats" json:"show_stats"`
	// CompactMode suppresses blank lines between turns
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Backend: BackendConfig{
			URL:               "http://127.0.0.1:11434",
			TimeoutSecs:       30,
			RequestsPerMinute: 0, // unlimited
		},

		Chat: ChatConfig{
			Role:           role.Default().ID,
			Model:          "",
			RevealThinking: false,
			ThinkMarker:    "",
		},

		Sampling: SamplingConfig{
			Temperature: 0.7,
			TopP:        0.9,
			NumCtx:      4096,
			MaxTokens:   0, // server default
		},

		History: HistoryConfig{
			Enabled:          true,
			Dir:              "",
			MaxConversations: 200,
			Encrypt:          false,
			SearchIndex:      true,
			Watch:            true,
		},

		UI: UIConfig{
			Color:       "auto",
			ShowStats:   true,
			CompactMode: false,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the parley configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".parley"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// HistoryDir resolves the conversation history directory.
func (c *Config) HistoryDir() (string, error) {
	if c.History.Dir != "" {
		return c.History.Dir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}

// ensureSecurePermissions checks and fixes permissions on config files.
// Config files stay 0600 so conversation settings remain private.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	// Try TOML first
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	// Try JSON as fallback
	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	// No file found or unreadable: defaults plus overrides.
	cfg2, err := finishLoad(cfg)
	if err != nil {
		return nil, err
	}
	return cfg2, loadErr
}

// finishLoad applies overrides, migration, defaults, and validation in
// the order every load path shares.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := cfg.Migrate(); err != nil {
		return nil, fmt.Errorf("config migration failed: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finishLoad(cfg)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# parley configuration file\n")
	buf.WriteString("# Generated by parley - edit with care\n")
	buf.WriteString("#\n")
	buf.WriteString("# Documentation: https://github.com/jeranaias/parley\n")
	buf.WriteString("\n")

	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Validate backend URL
	if c.Backend.URL != "" {
		u, err := url.Parse(c.Backend.URL)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   "backend.url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, ValidationError{
				Field:   "backend.url",
				Message: fmt.Sprintf("scheme must be http or https, got '%s'", u.Scheme),
			})
		}
	}

	// Validate request timeout
	if c.Backend.TimeoutSecs < 0 || c.Backend.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "backend.timeout_secs",
			Message: fmt.Sprintf("must be 0-600 seconds, got %d", c.Backend.TimeoutSecs),
		})
	}

	// Validate rate limit
	if c.Backend.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "backend.requests_per_minute",
			Message: "cannot be negative",
		})
	}

	// Validate role against the catalog
	if c.Chat.Role != "" {
		if _, err := role.ByID(c.Chat.Role); err != nil {
			errs = append(errs, ValidationError{
				Field:   "chat.role",
				Message: fmt.Sprintf("unknown role '%s', must be one of: %s", c.Chat.Role, strings.Join(role.IDs(), ", ")),
			})
		}
	}

	// Validate sampling parameters
	if c.Sampling.Temperature < 0 || c.Sampling.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "sampling.temperature",
			Message: fmt.Sprintf("must be 0.0-2.0, got %g", c.Sampling.Temperature),
		})
	}
	if c.Sampling.TopP < 0 || c.Sampling.TopP > 1 {
		errs = append(errs, ValidationError{
			Field:   "sampling.top_p",
			Message: fmt.Sprintf("must be 0.0-1.0, got %g", c.Sampling.TopP),
		})
	}
	if c.Sampling.NumCtx < 0 || c.Sampling.NumCtx > 131072 {
		errs = append(errs, ValidationError{
			Field:   "sampling.num_ctx",
			Message: fmt.Sprintf("must be 0-131072 tokens, got %d", c.Sampling.NumCtx),
		})
	}
	if c.Sampling.MaxTokens < -1 {
		errs = append(errs, ValidationError{
			Field:   "sampling.max_tokens",
			Message: fmt.Sprintf("must be -1 (unlimited), 0 (server default), or positive, got %d", c.Sampling.MaxTokens),
		})
	}

	// Validate history limits
	if c.History.MaxConversations < 0 || c.History.MaxConversations > 10000 {
		errs = append(errs, ValidationError{
			Field:   "history.max_conversations",
			Message: fmt.Sprintf("must be 0-10000, got %d", c.History.MaxConversations),
		})
	}

	// Validate color mode
	validColors := map[string]bool{"auto": true, "always": true, "never": true}
	if !validColors[strings.ToLower(c.UI.Color)] {
		errs = append(errs, ValidationError{
			Field:   "ui.color",
			Message: fmt.Sprintf("invalid mode '%s', must be one of: auto, always, never", c.UI.Color),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value configuration fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	// Backend defaults
	if c.Backend.URL == "" {
		c.Backend.URL = defaults.Backend.URL
	}
	if c.Backend.TimeoutSecs == 0 {
		c.Backend.TimeoutSecs = defaults.Backend.TimeoutSecs
	}

	// Chat defaults
	if c.Chat.Role == "" {
		c.Chat.Role = defaults.Chat.Role
	}

	// Sampling defaults
	if c.Sampling.Temperature == 0 {
		c.Sampling.Temperature = defaults.Sampling.Temperature
	}
	if c.Sampling.TopP == 0 {
		c.Sampling.TopP = defaults.Sampling.TopP
	}
	if c.Sampling.NumCtx == 0 {
		c.Sampling.NumCtx = defaults.Sampling.NumCtx
	}

	// History defaults
	if c.History.MaxConversations == 0 {
		c.History.MaxConversations = defaults.History.MaxConversations
	}

	// UI defaults
	if c.UI.Color == "" {
		c.UI.Color = defaults.UI.Color
	}
}

// Migrate handles migration from old configuration formats to new ones.
func (c *Config) Migrate() error {
	// The top-level default_model key predates the [chat] section.
	if c.DefaultModel != "" && c.Chat.Model == "" {
		c.Chat.Model = c.DefaultModel
	}
	c.DefaultModel = ""

	// Early releases spelled the color modes differently.
	switch strings.ToLower(c.UI.Color) {
	case "on", "force":
		c.UI.Color = "always"
	case "off", "none":
		c.UI.Color = "never"
	}

	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - PARLEY_URL: overrides backend.url
//   - PARLEY_MODEL: overrides chat.model
//   - PARLEY_ROLE: overrides chat.role
//   - PARLEY_REVEAL: set to "1" or "true" to reveal reasoning spans
//   - PARLEY_HISTORY_DIR: overrides history.dir
//   - PARLEY_NO_HISTORY: set to "1" or "true" to disable persistence
func (c *Config) ApplyEnvOverrides() {
	if u := os.Getenv("PARLEY_URL"); u != "" {
		c.Backend.URL = u
	}

	if model := os.Getenv("PARLEY_MODEL"); model != "" {
		c.Chat.Model = model
	}

	if r := os.Getenv("PARLEY_ROLE"); r != "" {
		c.Chat.Role = r
	}

	if reveal := os.Getenv("PARLEY_REVEAL"); reveal != "" {
		c.Chat.RevealThinking = reveal == "1" || strings.ToLower(reveal) == "true"
	}

	if dir := os.Getenv("PARLEY_HISTORY_DIR"); dir != "" {
		c.History.Dir = dir
	}

	if noHist := os.Getenv("PARLEY_NO_HISTORY"); noHist != "" {
		if noHist == "1" || strings.ToLower(noHist) == "true" {
			c.History.Enabled = false
		}
	}
}

// =============================================================================
// SAMPLING BRIDGE
// =============================================================================

// SamplingParams converts the sampling section into request parameters.
func (c *Config) SamplingParams() *backend.Params {
	return &backend.Params{
		Temperature: c.Sampling.Temperature,
		TopP:        c.Sampling.TopP,
		NumCtx:      c.Sampling.NumCtx,
		MaxTokens:   c.Sampling.MaxTokens,
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "backend.url").
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field.Interface(), nil
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set sets a configuration value using dot notation (e.g., "backend.url").
func (c *Config) Set(key string, value interface{}) error {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if !field.CanSet() {
				return fmt.Errorf("cannot set field: %s", key)
			}
			return setFieldValue(field, value)
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}

	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	// String input converts to the field's kind, so CLI values work.
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal := strVal == "1" || strings.ToLower(strVal) == "true" || strings.ToLower(strVal) == "yes"
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}

	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"backend.url",
		"backend.timeout_secs",
		"backend.requests_per_minute",
		"chat.role",
		"chat.model",
		"chat.reveal_thinking",
		"chat.think_marker",
		"sampling.temperature",
		"sampling.top_p",
		"sampling.num_ctx",
		"sampling.max_tokens",
		"history.enabled",
		"history.dir",
		"history.max_conversations",
		"history.encrypt",
		"history.search_index",
		"history.watch",
		"ui.color",
		"ui.show_stats",
		"ui.compact_mode",
	}
}

// Merge merges another config into this one, overwriting only non-zero values.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Version != "" {
		c.Version = other.Version
	}

	// Backend
	if other.Backend.URL != "" {
		c.Backend.URL = other.Backend.URL
	}
	if other.Backend.TimeoutSecs != 0 {
		c.Backend.TimeoutSecs = other.Backend.TimeoutSecs
	}
	if other.Backend.RequestsPerMinute != 0 {
		c.Backend.RequestsPerMinute = other.Backend.RequestsPerMinute
	}

	// Chat
	if other.Chat.Role != "" {
		c.Chat.Role = other.Chat.Role
	}
	if other.Chat.Model != "" {
		c.Chat.Model = other.Chat.Model
	}
	if other.Chat.RevealThinking {
		c.Chat.RevealThinking = true
	}
	if other.Chat.ThinkMarker != "" {
		c.Chat.ThinkMarker = other.Chat.ThinkMarker
	}

	// Sampling
	if other.Sampling.Temperature != 0 {
		c.Sampling.Temperature = other.Sampling.Temperature
	}
	if other.Sampling.TopP != 0 {
		c.Sampling.TopP = other.Sampling.TopP
	}
	if other.Sampling.NumCtx != 0 {
		c.Sampling.NumCtx = other.Sampling.NumCtx
	}
	if other.Sampling.MaxTokens != 0 {
		c.Sampling.MaxTokens = other.Sampling.MaxTokens
	}

	// History
	if other.History.Dir != "" {
		c.History.Dir = other.History.Dir
	}
	if other.History.MaxConversations != 0 {
		c.History.MaxConversations = other.History.MaxConversations
	}
	if other.History.Encrypt {
		c.History.Encrypt = true
	}

	// UI
	if other.UI.Color != "" {
		c.UI.Color = other.UI.Color
	}
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
