package core

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Logger writes structured log lines to a category log file and, unless
// silenced, to the console. The console destination flips between stdout
// and stderr depending on JSON mode so that --json callers get a clean
// stdout stream with log noise on stderr.
type Logger struct {
	file       *os.File
	logger     *log.Logger
	isJSONMode bool
	silentMode bool
	mu         sync.Mutex
	category   string
}

// InitLogger opens (creating if needed) a per-category, per-day log file
// under paths.Logs/karen and wires it up alongside the console.
func InitLogger(paths *PathConfig, category string, jsonMode bool) (*Logger, error) {
	targetDir := filepath.Join(paths.Logs, "karen")
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir %s: %w", targetDir, err)
	}

	now := time.Now()
	logFileName := fmt.Sprintf("karen_%s_%s.log", strings.ToLower(category), now.Format("20060102"))
	logPath := filepath.Join(targetDir, logFileName)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", logPath, err)
	}

	l := &Logger{
		file:       file,
		isJSONMode: jsonMode,
		category:   category,
	}
	l.logger = log.New(l.consoleAndFile(), "", log.Ldate|log.Ltime)

	header := fmt.Sprintf("\n%s [%s] Logging session started %s\n",
		strings.Repeat("=", 40), category, strings.Repeat("=", 40))
	file.WriteString(header)
	file.Sync()

	return l, nil
}

func (l *Logger) consoleAndFile() io.Writer {
	if l.silentMode {
		return l.file
	}
	console := io.Writer(os.Stdout)
	if l.isJSONMode {
		console = os.Stderr
	}
	return io.MultiWriter(console, l.file)
}

// SetSilentMode routes all output to the log file only (no console echo).
func (l *Logger) SetSilentMode(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.silentMode = enabled
	l.reconfigure()
}

// SetJSONMode flips the console destination between stdout and stderr.
func (l *Logger) SetJSONMode(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.isJSONMode = enabled
	l.reconfigure()
}

func (l *Logger) reconfigure() {
	if l.logger != nil {
		l.logger.SetOutput(l.consoleAndFile())
	}
}

// Flush forces the log file to disk.
func (l *Logger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return l.file.Sync()
	}
	return nil
}

func (l *Logger) Info(f string, v ...any) {
	if l.logger != nil {
		l.logger.Printf("[INFO] "+f, v...)
	}
}

func (l *Logger) Error(f string, v ...any) {
	if l.logger != nil {
		l.logger.Printf("[ERROR] "+f, v...)
		l.Flush()
	}
}

func (l *Logger) Warning(f string, v ...any) {
	if l.logger != nil {
		l.logger.Printf("[WARNING] "+f, v...)
		l.Flush()
	}
}

func (l *Logger) Success(f string, v ...any) {
	if l.logger != nil {
		l.logger.Printf("[SUCCESS] "+f, v...)
	}
}

func (l *Logger) Debug(f string, v ...any) {
	if l.logger != nil {
		l.logger.Printf("[DEBUG] "+f, v...)
	}
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	footer := fmt.Sprintf("\n%s [%s] Logging session ended %s\n\n",
		strings.Repeat("=", 40), l.category, strings.Repeat("=", 40))
	l.file.WriteString(footer)
	l.file.Sync()
	err := l.file.Close()
	l.file = nil
	l.logger = nil
	return err
}

// OutputJSON writes data to stdout as indented JSON, independent of log routing.
func (l *Logger) OutputJSON(data interface{}) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(b))
	return nil
}

// OutputResult prints either the JSON payload or the human message, per mode.
func (l *Logger) OutputResult(jsonData interface{}, interactiveMessage string) error {
	if l.isJSONMode {
		return l.OutputJSON(jsonData)
	}
	fmt.Fprintln(os.Stdout, interactiveMessage)
	return nil
}
