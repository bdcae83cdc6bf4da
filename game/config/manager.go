package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/pixelboard/game/engine"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// DefaultPreset is loaded by GetDefault when present in the config directory
const DefaultPreset = "classic"

// BoardConfig is a board preset as stored on disk
type BoardConfig struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	FillColor   string `json:"fill_color"`
	Cooldown    string `json:"cooldown"`
}

// Settings converts the preset to engine settings
func (c *BoardConfig) Settings() (engine.Settings, error) {
	if err := ValidateBoardConfig(c); err != nil {
		return engine.Settings{}, err
	}
	fill, _ := engine.ParseColor(c.FillColor)
	cooldown, _ := time.ParseDuration(c.Cooldown)
	return engine.Settings{
		Width:     c.Width,
		Height:    c.Height,
		FillColor: fill,
		Cooldown:  cooldown,
	}, nil
}

// Info summarizes a preset for listings
type Info struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Cooldown    string `json:"cooldown"`
}

// ValidateBoardConfig checks a preset for correctness
func ValidateBoardConfig(c *BoardConfig) error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if c.Width < engine.MinBoardSize || c.Width > engine.MaxBoardSize {
		return fmt.Errorf("%w: width must be between %d and %d, got %d", ErrInvalidConfig, engine.MinBoardSize, engine.MaxBoardSize, c.Width)
	}
	if c.Height < engine.MinBoardSize || c.Height > engine.MaxBoardSize {
		return fmt.Errorf("%w: height must be between %d and %d, got %d", ErrInvalidConfig, engine.MinBoardSize, engine.MaxBoardSize, c.Height)
	}
	if _, err := engine.ParseColor(c.FillColor); err != nil {
		return fmt.Errorf("%w: fill_color: %v", ErrInvalidConfig, err)
	}
	cooldown, err := time.ParseDuration(c.Cooldown)
	if err != nil {
		return fmt.Errorf("%w: cooldown %q is not a duration", ErrInvalidConfig, c.Cooldown)
	}
	if cooldown < 0 {
		return fmt.Errorf("%w: cooldown must not be negative, got %s", ErrInvalidConfig, c.Cooldown)
	}
	return nil
}

// Manager handles board preset loading and caching
type Manager struct {
	configDir     string
	defaultConfig *BoardConfig
	configs       map[string]*BoardConfig
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*BoardConfig),
	}

	m.loadDefaultConfig()
	return m, nil
}

// LoadConfig loads a preset by name, with or without the .json extension
func (m *Manager) LoadConfig(name string) (*BoardConfig, error) {
	name = strings.TrimSuffix(name, ".json")

	m.mu.RLock()
	if config, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.configs[name]; exists {
		return config, nil
	}

	config, err := m.readConfig(name)
	if err != nil {
		return nil, err
	}

	m.configs[name] = config
	return config, nil
}

// ReloadConfig drops a preset from the cache and reads it again
func (m *Manager) ReloadConfig(name string) error {
	name = strings.TrimSuffix(name, ".json")

	m.mu.Lock()
	delete(m.configs, name)
	m.mu.Unlock()

	_, err := m.LoadConfig(name)
	return err
}

// ListConfigs returns information about all valid presets, sorted by file name
func (m *Manager) ListConfigs() ([]*Info, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var infos []*Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".json")
		config, err := m.LoadConfig(name)
		if err != nil {
			// Skip invalid configs
			continue
		}

		infos = append(infos, &Info{
			Filename:    entry.Name(),
			ConfigID:    name,
			Name:        config.Name,
			Description: config.Description,
			Width:       config.Width,
			Height:      config.Height,
			Cooldown:    config.Cooldown,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Filename < infos[j].Filename })
	return infos, nil
}

// GetDefault returns the default preset
func (m *Manager) GetDefault() *BoardConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default preset by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// SaveConfig validates a preset and writes it to the config directory
func (m *Manager) SaveConfig(name string, config *BoardConfig) error {
	if err := ValidateBoardConfig(config); err != nil {
		return err
	}

	name = strings.TrimSuffix(name, ".json")
	configPath := filepath.Join(m.configDir, name+".json")

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[name] = config
	m.mu.Unlock()

	return nil
}

// ValidateConfig validates a preset without saving it
func (m *Manager) ValidateConfig(config *BoardConfig) error {
	return ValidateBoardConfig(config)
}

// readConfig reads and validates one preset file; the caller holds the write lock
func (m *Manager) readConfig(name string) (*BoardConfig, error) {
	data, err := os.ReadFile(filepath.Join(m.configDir, name+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config BoardConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := ValidateBoardConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// loadDefaultConfig picks classic, then the first valid preset, then the built-in one
func (m *Manager) loadDefaultConfig() {
	if config, err := m.LoadConfig(DefaultPreset); err == nil {
		m.defaultConfig = config
		return
	}

	configs, err := m.ListConfigs()
	if err == nil && len(configs) > 0 {
		if config, err := m.LoadConfig(configs[0].ConfigID); err == nil {
			m.defaultConfig = config
			return
		}
	}

	m.defaultConfig = BuiltinConfig()
}

// BuiltinConfig is the preset used when no config directory is available
func BuiltinConfig() *BoardConfig {
	return &BoardConfig{
		Name:        "classic",
		Description: "10x10 white board with a 10 second cooldown",
		Width:       10,
		Height:      10,
		FillColor:   string(engine.White),
		Cooldown:    "10s",
	}
}
