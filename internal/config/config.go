// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"

	"github.com/sage-tui/sage/internal/util"
)

// CurrentVersion is the config schema version written by this build.
const CurrentVersion = "1"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete SAGE configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Model    ModelConfig    `toml:"model" json:"model"`
	Local    LocalConfig    `toml:"local" json:"local"`
	Session  SessionConfig  `toml:"session" json:"session"`
	Manifest ManifestConfig `toml:"manifest" json:"manifest"`
	Log      LogConfig      `toml:"log" json:"log"`
	UI       UIConfig       `toml:"ui" json:"ui"`
}

// ModelConfig names the model the session runs on and how to build it.
type ModelConfig struct {
	// Name of the Ollama model used for the session.
	Name string `toml:"name" json:"name"`

	// Modelfile used by "ollama create" when the model is missing.
	Modelfile string `toml:"modelfile" json:"modelfile"`

	// RuntimeBin is the runtime CLI looked up on PATH.
	RuntimeBin string `toml:"runtime_bin" json:"runtime_bin"`
}

// LocalConfig contains the Ollama server settings.
type LocalConfig struct {
	OllamaURL   string `toml:"ollama_url" json:"ollama_url"`
	TimeoutSecs int    `toml:"timeout_secs" json:"timeout_secs"`
}

// SessionConfig controls the auto-created chat session.
type SessionConfig struct {
	Name   string `toml:"name" json:"name"`
	DBPath string `toml:"db_path" json:"db_path"`
}

// ManifestConfig controls manifest ingestion.
type ManifestConfig struct {
	// MaxChars is the truncation budget per manifest.
	MaxChars int `toml:"max_chars" json:"max_chars"`

	// BrowseRoot overrides the picker's starting directory.
	BrowseRoot string `toml:"browse_root" json:"browse_root"`
}

// LogConfig controls the file logger.
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	Path  string `toml:"path" json:"path"`
}

// UIConfig contains UI preferences.
type UIConfig struct {
	Theme    string `toml:"theme" json:"theme"`
	Markdown bool   `toml:"markdown" json:"markdown"`
}

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Model: ModelConfig{
			Name:       "mistral-7b-sage",
			Modelfile:  "Modelfile",
			RuntimeBin: "ollama",
		},
		Local: LocalConfig{
			OllamaURL:   "http://localhost:11434",
			TimeoutSecs: 300,
		},
		Session: SessionConfig{
			Name: "SAGE Session",
		},
		Manifest: ManifestConfig{
			MaxChars: 20000,
		},
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			Theme:    "auto",
			Markdown: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the SAGE state directory. SAGE_HOME overrides the
// default of ~/.sage.
func ConfigDir() (string, error) {
	if dir := os.Getenv("SAGE_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".sage"), nil
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

// statePath joins name onto the config dir, or returns override when set.
func statePath(override, name string) string {
	if override != "" {
		return util.ExpandHome(override)
	}
	dir, err := ConfigDir()
	if err != nil {
		return name
	}
	return filepath.Join(dir, name)
}

// DBPath returns the session database path.
func (c *Config) DBPath() string {
	return statePath(c.Session.DBPath, "sessions.db")
}

// LogPath returns the log file path.
func (c *Config) LogPath() string {
	return statePath(c.Log.Path, "sage.log")
}

// FlagPath returns the marker file written once the model is available.
func (c *Config) FlagPath() string {
	return statePath("", ".model_built")
}

// HistoryPath returns the line-mode REPL history file.
func (c *Config) HistoryPath() string {
	return statePath("", "chat_history")
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv loads a .env file from the working directory if present.
// Variables already set in the environment win.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	return godotenv.Load(".env")
}

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	var loadErr error
	if err := LoadDotEnv(); err != nil {
		loadErr = fmt.Errorf("failed to load .env: %w", err)
	}

	tomlPath, err := ConfigPathTOML()
	if err == nil && fileExists(tomlPath) {
		cfg := Default()
		if err := LoadTOML(cfg, tomlPath); err != nil {
			loadErr = fmt.Errorf("failed to load TOML config: %w", err)
		} else {
			return finish(cfg)
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil && fileExists(jsonPath) {
		cfg := Default()
		if err := LoadJSON(cfg, jsonPath); err != nil {
			loadErr = fmt.Errorf("failed to load JSON config: %w", err)
		} else {
			return finish(cfg)
		}
	}

	// Defaults, with any load error for informational purposes.
	cfg, err := finish(Default())
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file with full validation.
func LoadFromPath(path string) (*Config, error) {
	_ = LoadDotEnv()
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
	return finish(cfg)
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.Migrate()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
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

// SaveTOML writes the configuration as TOML with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# SAGE configuration file")
	fmt.Fprintln(&buf, "# Generated by sage - edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

var logLevels = []interface{}{"debug", "info", "warn", "error"}

var themes = []interface{}{"auto", "dark", "light"}

// Validate implements validation.Validatable.
func (m ModelConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Name, validation.Required, validation.Length(1, 256)),
		validation.Field(&m.Modelfile, validation.Required),
		validation.Field(&m.RuntimeBin, validation.Required),
	)
}

// Validate implements validation.Validatable.
func (l LocalConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.OllamaURL, validation.Required, is.URL),
		validation.Field(&l.TimeoutSecs, validation.Min(1), validation.Max(3600)),
	)
}

// Validate implements validation.Validatable.
func (s SessionConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required, validation.Length(1, 128)),
	)
}

// Validate implements validation.Validatable.
func (m ManifestConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.MaxChars, validation.Min(1), validation.Max(1_000_000)),
	)
}

// Validate implements validation.Validatable.
func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In(logLevels...)),
	)
}

// Validate implements validation.Validatable.
func (u UIConfig) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Theme, validation.In(themes...)),
	)
}

// Validate checks every section. Errors are keyed by section and field name
// (for example "local.ollama_url").
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Model),
		validation.Field(&c.Local),
		validation.Field(&c.Session),
		validation.Field(&c.Manifest),
		validation.Field(&c.Log),
		validation.Field(&c.UI),
	)
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Model.Name == "" {
		c.Model.Name = d.Model.Name
	}
	if c.Model.Modelfile == "" {
		c.Model.Modelfile = d.Model.Modelfile
	}
	if c.Model.RuntimeBin == "" {
		c.Model.RuntimeBin = d.Model.RuntimeBin
	}
	if c.Local.OllamaURL == "" {
		c.Local.OllamaURL = d.Local.OllamaURL
	}
	if c.Local.TimeoutSecs == 0 {
		c.Local.TimeoutSecs = d.Local.TimeoutSecs
	}
	if c.Session.Name == "" {
		c.Session.Name = d.Session.Name
	}
	if c.Manifest.MaxChars == 0 {
		c.Manifest.MaxChars = d.Manifest.MaxChars
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
}

// Migrate normalises config files written before the version field existed.
func (c *Config) Migrate() {
	if c.Version == CurrentVersion {
		return
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.UI.Theme = strings.ToLower(c.UI.Theme)
	c.Version = CurrentVersion
}

// ApplyEnvOverrides applies SAGE_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SAGE_OLLAMA_URL"); v != "" {
		c.Local.OllamaURL = v
	}
	if v := os.Getenv("SAGE_MODEL"); v != "" {
		c.Model.Name = v
	}
	if v := os.Getenv("SAGE_MODELFILE"); v != "" {
		c.Model.Modelfile = v
	}
	if v := os.Getenv("SAGE_MAX_CHARS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Manifest.MaxChars = n
		}
	}
	if v := os.Getenv("SAGE_BROWSE_ROOT"); v != "" {
		c.Manifest.BrowseRoot = v
	}
	if v := os.Getenv("SAGE_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// ErrUnknownKey is returned by Get and Set for keys outside GetAllKeys.
var ErrUnknownKey = errors.New("unknown config key")

// Get retrieves a value using dot notation (e.g. "manifest.max_chars").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a value using dot notation. String values are converted to the
// field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, fmt.Errorf("%w: empty key", ErrUnknownKey)
	}
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field := fieldByTag(v, part)
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// fieldByTag finds the struct field whose toml tag matches name.
func fieldByTag(v reflect.Value, name string) reflect.Value {
	t := v.Type()
	name = strings.ReplaceAll(strings.ToLower(name), "-", "_")
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("toml") == name {
			return v.Field(i)
		}
	}
	return reflect.Value{}
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
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
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				return fmt.Errorf("invalid boolean value: %v", err)
			}
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

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"model.name",
		"model.modelfile",
		"model.runtime_bin",
		"local.ollama_url",
		"local.timeout_secs",
		"session.name",
		"session.db_path",
		"manifest.max_chars",
		"manifest.browse_root",
		"log.level",
		"log.path",
		"ui.theme",
		"ui.markdown",
	}
}

// String returns an indented JSON rendering for display.
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
		if cfg == nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if cfg == nil {
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
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
