package htft

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// WindowSizeLimit is the largest window size any configuration may allow
const WindowSizeLimit = 5

// HtftConfig contains every tunable that influences how a match log is read
// and analysed. Values can be overridden through HTFT_* environment variables
// (see LoadConfig).
type HtftConfig struct {
	// === SOURCE TABLE LAYOUT ===
	SheetName       string `split_words:"true"` // worksheet holding the match log (default: "Página4")
	IDColumn        string `split_words:"true"` // header of the match identifier column (default: "Partidas")
	ResultColumn    string `split_words:"true"` // header of the result text column, empty means the column after IDColumn
	TrailingColumns int    `split_words:"true"` // trailing spreadsheet columns that are not part of the log (default: 3)

	// === RESULT TEXT ===
	Placeholder    string `ignored:"true"`    // cell text for a match without data (default: "?\n\n?")
	BlockDelimiter string `ignored:"true"`    // separates the full-time and first-half blocks (default: "\n\n")
	OtherAlias     string `split_words:"true"` // first-half data entry alias rewritten to OtherLabel (default: "oth")

	// === ANALYSIS ===
	DefaultMinOccurrences int `split_words:"true"` // default minimum anchor/window repeat count (default: 50)
	DefaultWindowSize     int `split_words:"true"` // default number of consecutive matches in a window (default: 1)
	MaxWindowSize         int `split_words:"true"` // largest window accepted, at most WindowSizeLimit (default: 5)

	// Over/under thresholds, total goals must exceed these
	Over1p5GoalsThreshold float64 `ignored:"true"`
	Over2p5GoalsThreshold float64 `ignored:"true"`
	Over3p5GoalsThreshold float64 `ignored:"true"`

	// === INFRASTRUCTURE ===
	DbPath       string        `split_words:"true"`       // sqlite file used by the import command
	LogPath      string        `split_words:"true"`       // log file used when logging to file
	LogLevel     string        `split_words:"true"`       // debug, info, warn, error
	HTTPAddress  string        `envconfig:"HTTP_ADDRESS"` // listen address of the HTTP API
	CORSOrigins  []string      `envconfig:"CORS_ORIGINS"` // browser origins allowed by the HTTP API, none by default
	DataDir      string        `split_words:"true"`       // directory HTTP requests may name sources in, empty allows only the startup source
	FetchTimeout time.Duration `split_words:"true"`       // timeout for remote sources (default: 30s)
	CABundle     string        `envconfig:"CA_BUNDLE"`    // extra PEM bundle trusted for remote sources
}

// DefaultHtftConfig returns the default configuration with all standard values
func DefaultHtftConfig() *HtftConfig {
	assets := filepath.Join(os.TempDir(), "htft")
	return &HtftConfig{
		SheetName:       "Página4",
		IDColumn:        "Partidas",
		ResultColumn:    "",
		TrailingColumns: 3,

		Placeholder:    "?\n\n?",
		BlockDelimiter: "\n\n",
		OtherAlias:     "oth",

		DefaultMinOccurrences: 50,
		DefaultWindowSize:     1,
		MaxWindowSize:         5,

		Over1p5GoalsThreshold: 1.5,
		Over2p5GoalsThreshold: 2.5,
		Over3p5GoalsThreshold: 3.5,

		DbPath:       filepath.Join(assets, "htft.db"),
		LogPath:      filepath.Join(assets, "htft.log"),
		LogLevel:     "info",
		HTTPAddress:  ":8327",
		FetchTimeout: 30 * time.Second,
	}
}

// Global configuration instance
var Config *HtftConfig

func init() {
	Config = DefaultHtftConfig()
}

// UpdateConfig replaces the global configuration
func UpdateConfig(newConfig *HtftConfig) {
	Config = newConfig
}

// LoadConfig builds a configuration from the defaults, an optional .env file
// and HTFT_* environment variables, validates it and installs it globally.
func LoadConfig(envFiles ...string) (*HtftConfig, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := DefaultHtftConfig()
	if err := envconfig.Process("htft", cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	UpdateConfig(cfg)
	return cfg, nil
}

// === CONFIGURATION VALIDATION ===

// ValidateConfig ensures all configuration values are within reasonable ranges
func ValidateConfig(config *HtftConfig) error {
	if config.MaxWindowSize < 1 || config.MaxWindowSize > WindowSizeLimit {
		return fmt.Errorf("MaxWindowSize must be between 1 and %d, got: %d", WindowSizeLimit, config.MaxWindowSize)
	}
	if config.DefaultWindowSize < 1 || config.DefaultWindowSize > config.MaxWindowSize {
		return fmt.Errorf("DefaultWindowSize must be between 1 and %d, got: %d", config.MaxWindowSize, config.DefaultWindowSize)
	}
	if config.DefaultMinOccurrences < 1 {
		return fmt.Errorf("DefaultMinOccurrences must be positive, got: %d", config.DefaultMinOccurrences)
	}
	if config.TrailingColumns < 0 {
		return fmt.Errorf("TrailingColumns cannot be negative, got: %d", config.TrailingColumns)
	}
	if config.BlockDelimiter == "" {
		return fmt.Errorf("BlockDelimiter cannot be empty")
	}
	if !(config.Over1p5GoalsThreshold < config.Over2p5GoalsThreshold && config.Over2p5GoalsThreshold < config.Over3p5GoalsThreshold) {
		return fmt.Errorf("over goal thresholds must be increasing, got: %.1f %.1f %.1f",
			config.Over1p5GoalsThreshold, config.Over2p5GoalsThreshold, config.Over3p5GoalsThreshold)
	}
	return nil
}

// === HELPER FUNCTIONS FOR EASY ACCESS ===

// GetMaxWindowSize returns the largest accepted window size, never above
// WindowSizeLimit
func GetMaxWindowSize() int {
	return min(Config.MaxWindowSize, WindowSizeLimit)
}

// GetDefaultMinOccurrences returns the default repeat threshold
func GetDefaultMinOccurrences() int {
	return Config.DefaultMinOccurrences
}
