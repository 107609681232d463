package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robalyx/isero/internal/setup/config"
	"github.com/robalyx/isero/internal/setup/telemetry/rotate"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// sessionLayout names the per-run log directory.
const sessionLayout = "2006-01-02_15-04-05"

// Manager handles the creation of session log directories and their loggers.
type Manager struct {
	instanceID  string
	component   string
	logDir      string
	level       string
	maxSessions int
	maxLines    int
	stderr      bool
	now         func() time.Time

	mu         sync.Mutex
	sessionDir string
	writers    []*rotate.Writer
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock overrides the clock used to name session directories.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithoutConsole stops loggers from mirroring to stderr.
func WithoutConsole() Option {
	return func(m *Manager) { m.stderr = false }
}

// NewManager creates a new Manager instance for the named component.
func NewManager(component string, cfg config.Log, opts ...Option) *Manager {
	m := &Manager{
		instanceID:  uuid.New().String(),
		component:   component,
		logDir:      cfg.Dir,
		level:       cfg.Level,
		maxSessions: cfg.MaxSessions,
		maxLines:    cfg.MaxLines,
		stderr:      true,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// InstanceID returns the unique identifier of this program run.
func (m *Manager) InstanceID() string {
	return m.instanceID
}

// SessionDir returns the current session directory, or "" before the first logger.
func (m *Manager) SessionDir() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionDir
}

// Logger creates the main logger writing to main.log and, unless disabled, stderr.
func (m *Manager) Logger() (*zap.Logger, error) {
	return m.fileLogger("main.log", m.stderr)
}

// AuditLogger creates a file-only logger for a named audit trail such as sanctions.
func (m *Manager) AuditLogger(name string) (*zap.Logger, error) {
	return m.fileLogger(name+".log", false)
}

// Close flushes and closes every log file opened by the manager.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for _, w := range m.writers {
		_ = w.Sync()
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.writers = nil
	return firstErr
}

func (m *Manager) fileLogger(fileName string, console bool) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(m.level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	dir, err := m.ensureSession()
	if err != nil {
		return nil, err
	}

	writer, err := rotate.Open(filepath.Join(dir, fileName), m.maxLines)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.writers = append(m.writers, writer)
	m.mu.Unlock()

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.AddSync(writer), level)}
	if console {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level))
	}

	return zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(
			zap.String("component", m.component),
			zap.String("instance_id", m.instanceID),
		),
	), nil
}

// ensureSession prunes old sessions and creates this run's directory once.
func (m *Manager) ensureSession() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sessionDir != "" {
		return m.sessionDir, nil
	}

	if err := os.MkdirAll(m.logDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create logs directory: %w", err)
	}

	if err := m.pruneSessions(); err != nil {
		return "", fmt.Errorf("failed to rotate log sessions: %w", err)
	}

	dir := filepath.Join(m.logDir, m.now().Format(sessionLayout))
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}

	m.sessionDir = dir
	return dir, nil
}

// pruneSessions leaves room for one new session under maxSessions.
func (m *Manager) pruneSessions() error {
	if m.maxSessions <= 0 {
		return nil
	}

	entries, err := os.ReadDir(m.logDir)
	if err != nil {
		return err
	}

	sessions := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			sessions = append(sessions, entry.Name())
		}
	}

	keep := m.maxSessions - 1
	if len(sessions) <= keep {
		return nil
	}

	// Session names sort chronologically.
	sort.Strings(sessions)
	for _, name := range sessions[:len(sessions)-keep] {
		if err := os.RemoveAll(filepath.Join(m.logDir, name)); err != nil {
			return err
		}
	}

	return nil
}
