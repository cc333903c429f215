package logutil

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	LogDir       = "logs"
	LogFileName  = "daisho.log"
	maxSizeBytes = 10 * 1024 * 1024 // 10 MB
	maxArchives  = 3
)

// Level tags one log line. The checklogs command filters on these.
type Level string

const (
	LevelDebug  Level = "DEBUG"
	LevelInfo   Level = "INFO"
	LevelError  Level = "ERROR"
	LevelSystem Level = "SYSTEM"
)

var (
	mu      sync.Mutex
	sink    io.Writer = os.Stdout
	logPath string
)

// Setup enables file logging with basic size-based rotation (10MB, max 3 files).
// When disabled, entries go to stdout only. Standard library log output is
// redirected through the INFO level so third-party log.Printf calls land in
// the same file.
func Setup(enableFileLogging bool) {
	mu.Lock()
	defer mu.Unlock()

	if !enableFileLogging {
		sink = os.Stdout
		log.SetFlags(0)
		log.SetOutput(levelWriter{LevelInfo})
		return
	}

	if err := os.MkdirAll(LogDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
		return
	}
	logPath = filepath.Join(LogDir, LogFileName)
	rotateIfNeeded(logPath)
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		return
	}
	sink = &rotatingWriter{f: f, path: logPath}
	log.SetFlags(0)
	log.SetOutput(levelWriter{LevelInfo})
}

// SetOutput redirects log lines to w and returns the previous sink. Tests
// use it to capture output; restore the returned writer when done.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := sink
	sink = w
	return prev
}

// Path returns the active log file path, or the default location when file
// logging was never enabled.
func Path() string {
	mu.Lock()
	defer mu.Unlock()
	if logPath != "" {
		return logPath
	}
	return filepath.Join(LogDir, LogFileName)
}

func Debugf(format string, args ...interface{})  { write(LevelDebug, format, args...) }
func Infof(format string, args ...interface{})   { write(LevelInfo, format, args...) }
func Errorf(format string, args ...interface{})  { write(LevelError, format, args...) }
func Systemf(format string, args ...interface{}) { write(LevelSystem, format, args...) }

func write(level Level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	line := FormatLine(time.Now(), level, msg)
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(sink, line)
}

// FormatLine renders one log entry: "2006-01-02 15:04:05 | LEVEL    | message".
// Embedded newlines are escaped so one event stays one line.
func FormatLine(ts time.Time, level Level, msg string) string {
	msg = strings.ReplaceAll(msg, "\r", "\\r")
	msg = strings.ReplaceAll(msg, "\n", "\\n")
	return fmt.Sprintf("%s | %-8s | %s", ts.Format("2006-01-02 15:04:05"), level, msg)
}

// ParseLevel extracts the level tag from a formatted log line. ok is false for
// lines that do not follow the entry format (continuation garbage, banners).
func ParseLevel(line string) (Level, bool) {
	parts := strings.SplitN(line, " | ", 3)
	if len(parts) != 3 {
		return "", false
	}
	switch Level(strings.TrimSpace(parts[1])) {
	case LevelDebug:
		return LevelDebug, true
	case LevelInfo:
		return LevelInfo, true
	case LevelError:
		return LevelError, true
	case LevelSystem:
		return LevelSystem, true
	}
	return "", false
}

// levelWriter adapts the standard log package to leveled lines.
type levelWriter struct{ level Level }

func (w levelWriter) Write(p []byte) (int, error) {
	write(w.level, "%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

type rotatingWriter struct {
	f    *os.File
	path string
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	// naive rotation check per write
	if st, err := w.f.Stat(); err == nil && st.Size()+int64(len(p)) > maxSizeBytes {
		_ = w.f.Close()
		rotateIfNeeded(w.path)
		nf, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, err
		}
		w.f = nf
	}
	return w.f.Write(p)
}

func rotateIfNeeded(path string) {
	// If base exceeds max size, rotate: .1, .2, .3 (oldest discarded)
	if st, err := os.Stat(path); err == nil && st.Size() > maxSizeBytes {
		_ = os.Remove(archiveName(path, maxArchives))
		for i := maxArchives - 1; i >= 1; i-- {
			_ = os.Rename(archiveName(path, i), archiveName(path, i+1))
		}
		_ = os.Rename(path, archiveName(path, 1))
	}
}

func archiveName(path string, n int) string { return fmt.Sprintf("%s.%d", path, n) }

// SanitizeText trims recognized text for safe single-line logging.
func SanitizeText(text string) string {
	const maxLogLength = 100
	if len(text) > maxLogLength {
		text = text[:maxLogLength] + "..."
	}
	var b strings.Builder
	for _, r := range text {
		switch {
		case r == '\n' || r == '\r':
			b.WriteString("\\n")
		case r == '\t':
			b.WriteString("\\t")
		case r < 32 || r == 127:
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
