// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the logrus logger shared by every component.
//
// Log lines go to a daily file under the log directory. They are mirrored to
// stderr only in verbose mode, so the chat view and REPL keep the terminal to
// themselves.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Options configures New.
type Options struct {
	Level   string // trace, debug, info, warn, error
	Dir     string // directory for daily files; empty disables file output
	Name    string // file name stem, e.g. "chimera"
	JSON    bool   // JSON lines instead of the text format
	Verbose bool   // mirror to stderr
	Stderr  io.Writer
}

// =============================================================================
// LOGGER
// =============================================================================

// New builds a logger. The returned closer releases the log file.
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(defaultString(opts.Level, "info")))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	logger.SetLevel(level)

	if opts.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		logger.SetFormatter(&Formatter{})
	}

	var writers []io.Writer
	var closer io.Closer = nopCloser{}
	if opts.Dir != "" {
		fw, err := NewDailyFile(opts.Dir, defaultString(opts.Name, "chimera"))
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, fw)
		closer = fw
	}
	if opts.Verbose {
		stderr := opts.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		writers = append(writers, stderr)
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}
	return logger, closer, nil
}

// Component returns an entry tagged with the component name.
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	if logger == nil {
		logger = Discard()
	}
	return logger.WithField("component", name)
}

// Discard returns a logger that writes nothing. Tests use it.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// =============================================================================
// FORMATTER
// =============================================================================

// Formatter renders "[timestamp] [level] message key=value ...". Fields are
// sorted; the component field comes first.
type Formatter struct{}

// Format implements logrus.Formatter.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(b, "[%s] [%s] ", timestamp, entry.Level)
	if c, ok := entry.Data["component"]; ok {
		fmt.Fprintf(b, "%v: ", c)
	}
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k != "component" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := entry.Data[k]
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		s := fmt.Sprint(v)
		if strings.ContainsAny(s, " \t\"=") {
			s = fmt.Sprintf("%q", s)
		}
		fmt.Fprintf(b, " %s=%s", k, s)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// =============================================================================
// DAILY FILE
// =============================================================================

// DailyFile is a writer that switches to a new file when the date changes.
// Files are named <dir>/<name>-<YYYY-MM-DD>.log.
type DailyFile struct {
	mu   sync.Mutex
	dir  string
	name string
	date string
	file *os.File
	now  func() time.Time
}

// NewDailyFile opens today's file in dir.
func NewDailyFile(dir, name string) (*DailyFile, error) {
	d := &DailyFile{dir: dir, name: name, now: time.Now}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.rotate(d.now().Format("2006-01-02")); err != nil {
		return nil, err
	}
	return d, nil
}

// Path returns the file currently written to.
func (d *DailyFile) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pathFor(d.date)
}

func (d *DailyFile) pathFor(date string) string {
	return filepath.Join(d.dir, fmt.Sprintf("%s-%s.log", d.name, date))
}

// rotate opens the file for date. Caller holds mu.
func (d *DailyFile) rotate(date string) error {
	f, err := os.OpenFile(d.pathFor(date), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	if d.file != nil {
		d.file.Close()
	}
	d.file = f
	d.date = date
	return nil
}

// Write implements io.Writer.
func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if today := d.now().Format("2006-01-02"); today != d.date {
		if err := d.rotate(today); err != nil {
			return 0, err
		}
	}
	return d.file.Write(p)
}

// Close implements io.Closer.
func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}
