package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/shanlichin2021/Japanese-OCR/ocr"
)

const (
	SettingsFileName = "ocr_settings.json"

	// EnvPathVar points at an alternate .env file when the executable
	// directory has none.
	EnvPathVar = "DAISHO_ENV"
)

// Settings mirrors ocr_settings.json. Unknown keys in the file are ignored;
// missing keys keep their defaults.
type Settings struct {
	CaptureHotkey     string          `json:"capture_hotkey"`
	OCREngine         string          `json:"ocr_engine"`
	PreprocessingMode string          `json:"preprocessing_mode"`
	AutoCopy          bool            `json:"auto_copy"`
	ShowNotification  bool            `json:"show_notification"`
	StartMinimized    bool            `json:"start_minimized"`
	OverlayGeometry   string          `json:"overlay_geometry"`
	MacroEnabled      bool            `json:"macro_enabled"`
	MacroEvents       json.RawMessage `json:"macro_events,omitempty"`
	KillKey           string          `json:"kill_key"`
	EnableFileLogging bool            `json:"enable_file_logging"`
}

// Config is the merged runtime configuration: persisted settings plus
// environment-only knobs (model helper commands, deadlines).
type Config struct {
	Settings

	SettingsPath     string
	MangaOCRCommand  string
	PaddleOCRCommand string
	OCRDeadlineSec   int
}

// DefaultSettings returns the defaults applied underneath the settings file.
func DefaultSettings() Settings {
	return Settings{
		CaptureHotkey:     "ctrl+shift",
		OCREngine:         "manga_ocr",
		PreprocessingMode: "none",
		AutoCopy:          true,
		ShowNotification:  true,
		StartMinimized:    true,
		OverlayGeometry:   "300x50+100+100",
		KillKey:           "f12",
		EnableFileLogging: true,
	}
}

// Load reads .env (executable directory first, then DAISHO_ENV) and the
// settings file. A missing settings file is not an error; defaults apply.
func Load() (*Config, error) {
	if envPath := resolveEnvPath(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	settingsPath := resolveSettingsPath()
	settings, err := LoadSettings(settingsPath)
	if err != nil {
		return nil, err
	}

	deadlineSec := 20
	if v := os.Getenv("OCR_DEADLINE_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			deadlineSec = n
		}
	}

	cfg := &Config{
		Settings:         settings,
		SettingsPath:     settingsPath,
		MangaOCRCommand:  getEnvWithDefault("MANGA_OCR_COMMAND", ocr.DefaultMangaOCRCommand),
		PaddleOCRCommand: getEnvWithDefault("PADDLE_OCR_COMMAND", ocr.DefaultPaddleOCRCommand),
		OCRDeadlineSec:   deadlineSec,
	}

	if v := strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")); v != "" {
		cfg.EnableFileLogging = v == "true"
	}

	return cfg, nil
}

// LoadSettings reads the settings file at path over the defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := json.Unmarshal(data, &settings); err != nil {
		return DefaultSettings(), fmt.Errorf("failed to parse settings file: %w", err)
	}

	return settings, nil
}

// Save writes the settings back as pretty-printed JSON.
func Save(path string, settings Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

func resolveSettingsPath() string {
	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), SettingsFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return SettingsFileName
}

func resolveEnvPath() string {
	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvPathVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
