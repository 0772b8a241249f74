// Package freshstart runs the external node creation script.
package freshstart

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/bnema/zerowrap"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bnema/ledgerctl/internal/boundaries/out"
	"github.com/bnema/ledgerctl/internal/domain"
)

// Config holds the script location and the values passed through to it.
type Config struct {
	Script   string
	Platform string
	Port     int
	// Transcript, when set, receives a rotating copy of the script output.
	Transcript string
}

// Script implements out.FreshStarter by executing a shell script that
// creates the container and its volume.
type Script struct {
	id     domain.Identity
	config Config
}

// NewScript creates a fresh-start runner for one node.
func NewScript(id domain.Identity, config Config) *Script {
	return &Script{id: id, config: config}
}

// Env returns the variables the script reads.
func (s *Script) Env() []string {
	env := []string{
		"CONTAINER_NAME=" + s.id.Name(),
		"VOLUME_NAME=" + s.id.Volume(),
		"PLATFORM=" + s.config.Platform,
	}
	if s.config.Port > 0 {
		env = append(env, "CCF_PORT="+strconv.Itoa(s.config.Port))
	}
	return env
}

// FreshStart runs the script and waits for it to finish. A non-zero exit is
// an error carrying the tail of the output.
func (s *Script) FreshStart(ctx context.Context) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:    "adapter",
		zerowrap.FieldAdapter:  "freshstart",
		zerowrap.FieldAction:   "FreshStart",
		zerowrap.FieldEntityID: s.id.Name(),
		zerowrap.FieldPath:     s.config.Script,
	})
	log := zerowrap.FromCtx(ctx)

	script, err := filepath.Abs(s.config.Script)
	if err != nil {
		return log.WrapErr(err, "failed to resolve fresh-start script")
	}
	info, err := os.Stat(script)
	if err != nil {
		return fmt.Errorf("%w: fresh-start script: %v", domain.ErrInvalidConfig, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: fresh-start script %s is a directory", domain.ErrInvalidConfig, script)
	}

	// #nosec G204 - the script path comes from operator configuration
	cmd := exec.CommandContext(ctx, "/bin/sh", script)
	cmd.Dir = filepath.Dir(script)
	cmd.Env = append(os.Environ(), s.Env()...)

	tail := &tailBuffer{max: 4096}
	sinks := []io.Writer{tail}
	if s.config.Transcript != "" {
		transcript := &lumberjack.Logger{
			Filename:   s.config.Transcript,
			MaxSize:    10,
			MaxBackups: 3,
			Compress:   true,
		}
		defer transcript.Close()
		sinks = append(sinks, transcript)
	}

	stdout := newLineLogger(log, "stdout", sinks...)
	stderr := newLineLogger(log, "stderr", sinks...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	log.Info().Msg("running fresh-start script")
	runErr := cmd.Run()
	stdout.Flush()
	stderr.Flush()

	if runErr != nil {
		return fmt.Errorf("fresh-start script failed: %w: %s", runErr, bytes.TrimSpace(tail.Bytes()))
	}

	log.Info().Msg("fresh-start script completed")
	return nil
}

// lineLogger forwards complete lines to the logger and copies raw output to sinks.
type lineLogger struct {
	mu     sync.Mutex
	log    zerowrap.Logger
	stream string
	sinks  []io.Writer
	buf    bytes.Buffer
}

func newLineLogger(log zerowrap.Logger, stream string, sinks ...io.Writer) *lineLogger {
	return &lineLogger{log: log, stream: stream, sinks: sinks}
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, sink := range l.sinks {
		_, _ = sink.Write(p)
	}

	l.buf.Write(p)
	for {
		idx := bytes.IndexByte(l.buf.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := string(l.buf.Next(idx + 1))
		l.emit(line[:len(line)-1])
	}
	return len(p), nil
}

// Flush emits a trailing partial line.
func (l *lineLogger) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buf.Len() > 0 {
		l.emit(l.buf.String())
		l.buf.Reset()
	}
}

func (l *lineLogger) emit(line string) {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return
	}
	l.log.Info().Str("stream", l.stream).Msg(line)
}

// tailBuffer keeps the last max bytes written.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) Bytes() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.buf...)
}

var _ out.FreshStarter = (*Script)(nil)
