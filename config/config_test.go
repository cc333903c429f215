package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), SettingsFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write settings file: %v", err)
	}
	return path
}

func TestLoadSettingsMissingFile(t *testing.T) {
	settings, err := LoadSettings(filepath.Join(t.TempDir(), SettingsFileName))
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}

	defaults := DefaultSettings()
	if settings.CaptureHotkey != defaults.CaptureHotkey {
		t.Errorf("CaptureHotkey = %q, want default %q", settings.CaptureHotkey, defaults.CaptureHotkey)
	}
	if settings.PreprocessingMode != "none" {
		t.Errorf("PreprocessingMode = %q, want \"none\"", settings.PreprocessingMode)
	}
	if !settings.AutoCopy || !settings.ShowNotification || !settings.StartMinimized {
		t.Errorf("boolean defaults not applied: %+v", settings)
	}
}

func TestLoadSettingsMissingKeysDefault(t *testing.T) {
	// preprocessing_mode absent: pipeline must default to "none" and proceed.
	path := writeSettings(t, `{"capture_hotkey": "alt+q", "auto_copy": false}`)

	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if settings.CaptureHotkey != "alt+q" {
		t.Errorf("CaptureHotkey = %q, want \"alt+q\"", settings.CaptureHotkey)
	}
	if settings.AutoCopy {
		t.Error("AutoCopy = true, want false from file")
	}
	if settings.PreprocessingMode != "none" {
		t.Errorf("PreprocessingMode = %q, want default \"none\"", settings.PreprocessingMode)
	}
	if settings.OCREngine != "manga_ocr" {
		t.Errorf("OCREngine = %q, want default \"manga_ocr\"", settings.OCREngine)
	}
}

func TestLoadSettingsIgnoresUnknownKeys(t *testing.T) {
	path := writeSettings(t, `{"capture_hotkey": "ctrl+mouse4", "future_feature": 42}`)

	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if settings.CaptureHotkey != "ctrl+mouse4" {
		t.Errorf("CaptureHotkey = %q, want \"ctrl+mouse4\"", settings.CaptureHotkey)
	}
}

func TestLoadSettingsCorruptFile(t *testing.T) {
	path := writeSettings(t, `{"capture_hotkey": `)

	settings, err := LoadSettings(path)
	if err == nil {
		t.Error("LoadSettings() expected error for corrupt JSON")
	}
	if settings.CaptureHotkey != DefaultSettings().CaptureHotkey {
		t.Errorf("corrupt file should fall back to defaults, got %+v", settings)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), SettingsFileName)

	original := DefaultSettings()
	original.CaptureHotkey = "ctrl+shift+s"
	original.OCREngine = "paddle_ocr"
	original.MacroEnabled = true

	if err := Save(path, original); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if loaded.CaptureHotkey != original.CaptureHotkey {
		t.Errorf("CaptureHotkey = %q, want %q", loaded.CaptureHotkey, original.CaptureHotkey)
	}
	if loaded.OCREngine != "paddle_ocr" {
		t.Errorf("OCREngine = %q, want \"paddle_ocr\"", loaded.OCREngine)
	}
	if !loaded.MacroEnabled {
		t.Error("MacroEnabled not persisted")
	}
}
