// Package sessionlog implements per-session CSV telemetry logging (spec
// §4.8), grounded in the original's SessionLogger: one append-only CSV
// file per named channel (imu, motor, program, ...) under a per-session
// timestamped directory, each row prefixed with elapsed session time.
//
// Unlike the original's pandas-buffered writer, rows are written straight
// through to disk via encoding/csv.Writer — there is no in-memory frame to
// periodically flush, and no third-party CSV library exists anywhere in
// the example pack to justify reaching past the standard library here.
package sessionlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"edmoserver/internal/edmoerr"
)

// Logger writes one CSV file per channel under directory/channel.csv. All
// methods are safe for concurrent use; each channel has its own mutex so
// writes to independent channels never block each other.
type Logger struct {
	dir   string
	start time.Time

	mu       sync.Mutex
	channels map[string]*channel
}

type channel struct {
	mu      sync.Mutex
	file    *os.File
	writer  *csv.Writer
	numCols int // excludes the leading elapsed-time column
}

// New creates a session logger rooted at baseDir/<YYYY.MM.DD>/name/<HH.MM.SS>,
// mirroring the original's "./SessionLogs/<date>/<name>/<time>" layout.
func New(baseDir, name string) (*Logger, error) {
	now := time.Now()
	dir := filepath.Join(baseDir, now.Format("2006.01.02"), name, now.Format("15.04.05"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session log directory: %w", err)
	}

	return &Logger{
		dir:      dir,
		start:    time.Now(),
		channels: make(map[string]*channel),
	}, nil
}

// Create opens channel.csv in the session directory and writes its header
// row: "time" followed by columns.
func (l *Logger) Create(name string, columns []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.channels[name]; exists {
		return nil
	}

	f, err := os.Create(filepath.Join(l.dir, name+".csv"))
	if err != nil {
		return fmt.Errorf("create channel %q: %w", name, err)
	}

	w := csv.NewWriter(f)
	header := append([]string{"time"}, columns...)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write header for channel %q: %w", name, err)
	}
	w.Flush()

	l.channels[name] = &channel{file: f, writer: w, numCols: len(columns)}
	return nil
}

// Write appends one row to channel, prefixed with elapsed time since the
// logger was created. len(values) must equal the column count passed to
// Create.
func (l *Logger) Write(name string, values []string) error {
	l.mu.Lock()
	ch, ok := l.channels[name]
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: channel %q", edmoerr.ErrLogNotActive, name)
	}

	if len(values) != ch.numCols {
		return fmt.Errorf("%w: channel %q expected %d columns, got %d", edmoerr.ErrColumnCountMismatch, name, ch.numCols, len(values))
	}

	elapsed := strconv.FormatFloat(time.Since(l.start).Seconds(), 'f', -1, 64)
	row := append([]string{elapsed}, values...)

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if err := ch.writer.Write(row); err != nil {
		return fmt.Errorf("write row to channel %q: %w", name, err)
	}
	ch.writer.Flush()
	return ch.writer.Error()
}

// Writes appends multiple rows to channel in one call, each prefixed with
// its own elapsed-time column, flushing once after the batch rather than
// after every row (spec §4.8 "writes"). Used where telemetry arrives in
// bursts and per-row flush overhead would matter.
func (l *Logger) Writes(name string, rows [][]string) error {
	l.mu.Lock()
	ch, ok := l.channels[name]
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: channel %q", edmoerr.ErrLogNotActive, name)
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	for _, values := range rows {
		if len(values) != ch.numCols {
			return fmt.Errorf("%w: channel %q expected %d columns, got %d", edmoerr.ErrColumnCountMismatch, name, ch.numCols, len(values))
		}
		elapsed := strconv.FormatFloat(time.Since(l.start).Seconds(), 'f', -1, 64)
		row := append([]string{elapsed}, values...)
		if err := ch.writer.Write(row); err != nil {
			return fmt.Errorf("write row to channel %q: %w", name, err)
		}
	}
	ch.writer.Flush()
	return ch.writer.Error()
}

// Flush forces any buffered rows for channel to disk without closing it
// (spec §4.8 "flush").
func (l *Logger) Flush(name string) error {
	l.mu.Lock()
	ch, ok := l.channels[name]
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: channel %q", edmoerr.ErrLogNotActive, name)
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.writer.Flush()
	return ch.writer.Error()
}

// Close flushes and closes every channel file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for name, ch := range l.channels {
		ch.mu.Lock()
		ch.writer.Flush()
		if err := ch.writer.Error(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("flush channel %q: %w", name, err)
		}
		if err := ch.file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close channel %q: %w", name, err)
		}
		ch.mu.Unlock()
	}
	return firstErr
}
