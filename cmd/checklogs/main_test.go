package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shanlichin2021/Japanese-OCR/logutil"
)

func writeTestLog(t *testing.T) string {
	t.Helper()
	ts := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	lines := []string{
		logutil.FormatLine(ts, logutil.LevelSystem, "app started"),
		logutil.FormatLine(ts, logutil.LevelInfo, "overlay restored at 300x50+100+100"),
		logutil.FormatLine(ts, logutil.LevelDebug, "hotkey registered: ctrl+shift"),
		logutil.FormatLine(ts, logutil.LevelError, "recognition failed: engine closed its output"),
		logutil.FormatLine(ts, logutil.LevelInfo, "clipboard: wrote text"),
		logutil.FormatLine(ts, logutil.LevelError, "capture failed: degenerate region"),
		"stray line that is not a log entry",
	}
	path := filepath.Join(t.TempDir(), "daisho.log")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	opts := &options{}
	cmd := newRootCmd(&out, opts)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("checklogs %v: %v", args, err)
	}
	return out.String()
}

func TestHealthSummary(t *testing.T) {
	path := writeTestLog(t)
	out := runCLI(t, "--file", path)

	if !strings.Contains(out, "LOG HEALTH SUMMARY") {
		t.Error("missing health header")
	}
	if !strings.Contains(out, "Errors:  2") {
		t.Errorf("wrong error count in:\n%s", out)
	}
	if !strings.Contains(out, "Info:    2") {
		t.Errorf("wrong info count in:\n%s", out)
	}
	if !strings.Contains(out, "Use --errors") {
		t.Error("error hint missing when errors exist")
	}
}

func TestErrorsFlag(t *testing.T) {
	path := writeTestLog(t)
	out := runCLI(t, "--errors", "--file", path)

	if !strings.Contains(out, "recognition failed") || !strings.Contains(out, "capture failed") {
		t.Errorf("error entries missing:\n%s", out)
	}
	if strings.Contains(out, "clipboard: wrote text") {
		t.Error("non-error entry leaked into --errors output")
	}
}

func TestErrorsCountLimit(t *testing.T) {
	path := writeTestLog(t)
	out := runCLI(t, "--errors", "--count", "1", "--file", path)

	if strings.Contains(out, "recognition failed") {
		t.Error("older error shown despite --count 1")
	}
	if !strings.Contains(out, "capture failed") {
		t.Error("newest error missing")
	}
}

func TestSystemFlag(t *testing.T) {
	path := writeTestLog(t)
	out := runCLI(t, "--system", "--file", path)

	if !strings.Contains(out, "SYSTEM DIAGNOSTICS") {
		t.Error("missing diagnostics header")
	}
	if !strings.Contains(out, "app started") {
		t.Error("SYSTEM log entry missing")
	}
}

func TestTailFlag(t *testing.T) {
	path := writeTestLog(t)
	out := runCLI(t, "--tail", "2", "--file", path)

	if !strings.Contains(out, "stray line") || !strings.Contains(out, "capture failed") {
		t.Errorf("tail should show the last 2 lines:\n%s", out)
	}
	if strings.Contains(out, "app started") {
		t.Error("tail showed more than requested")
	}
}

func TestAllFlag(t *testing.T) {
	path := writeTestLog(t)
	out := runCLI(t, "--all", "--file", path)

	for _, section := range []string{"SYSTEM DIAGNOSTICS", "SYSTEM EVENTS", "LOG HEALTH SUMMARY", "RECENT ERRORS"} {
		if !strings.Contains(out, section) {
			t.Errorf("--all missing section %q", section)
		}
	}
}

func TestMissingLogFile(t *testing.T) {
	out := runCLI(t, "--file", filepath.Join(t.TempDir(), "nope.log"))
	if !strings.Contains(out, "does not exist") {
		t.Errorf("expected missing-file notice:\n%s", out)
	}
}
