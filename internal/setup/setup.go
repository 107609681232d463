package setup

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	aiClient "github.com/robalyx/isero/internal/ai/client"
	"github.com/robalyx/isero/internal/profanity"
	"github.com/robalyx/isero/internal/setup/config"
	"github.com/robalyx/isero/internal/setup/telemetry"
	"github.com/robalyx/isero/internal/storage"
	"github.com/robalyx/isero/internal/wordlist"
	"go.uber.org/zap"
)

// DefaultDatabasePath is used when DATABASE_PATH is set but empty.
const DefaultDatabasePath = "data/isero.db"

// App bundles all core dependencies and services needed by the application.
type App struct {
	Settings    *config.Settings   // Application configuration
	Logger      *zap.Logger        // Main application logger
	AuditLogger *zap.Logger        // Sanction and ticket audit trail
	LogManager  *telemetry.Manager // Log management system
	Store       *storage.Store     // Profile, signal and brief store
	AIClient    *aiClient.AIClient // Language model adapter
	Matcher     *profanity.Matcher // Compiled forbidden word patterns
}

// InitializeApp bootstraps all application dependencies in the correct order.
func InitializeApp(component string) (*App, error) {
	bootstrap, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("failed to create bootstrap logger: %w", err)
	}

	settings, err := config.LoadSettings(bootstrap)
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(component, settings.Log)

	logger, err := logManager.Logger()
	if err != nil {
		return nil, err
	}

	auditLogger, err := logManager.AuditLogger("audit")
	if err != nil {
		return nil, err
	}

	opts := profanity.Options{
		SeparatorMax: settings.Profanity.SeparatorMax,
		RepeatMax:    settings.Profanity.RepeatMax,
	}
	words := append([]string{}, settings.Profanity.Words...)
	words = append(words, loadWordlist(opts, logger)...)
	matcher := profanity.NewMatcher(words, opts, logger)

	store, err := openStore(settings.DatabasePath, logger)
	if err != nil {
		_ = logManager.Close()
		return nil, err
	}

	budget := aiClient.NewTokenBudget(settings.Agent.DailyTokenLimit, time.Now)
	aiCli := aiClient.NewClient(aiClient.Config{
		APIKey:        settings.Agent.APIKey,
		BaseURL:       settings.Agent.BaseURL,
		Models:        aiClient.Models{Mini: settings.Agent.ModelMini, Heavy: settings.Agent.ModelHeavy},
		Selection:     aiClient.ParseSelection(settings.Agent.Selection),
		MaxConcurrent: int64(settings.Agent.MaxConcurrent),
	}, budget, logger)

	if !aiCli.Enabled() {
		logger.Warn("OPENAI_API_KEY is not set, assistant replies are disabled")
	}

	logger.Info("Initialized application",
		zap.String("component", component),
		zap.String("session_dir", logManager.SessionDir()),
		zap.Int("patterns", len(matcher.Patterns())))

	return &App{
		Settings:    settings,
		Logger:      logger,
		AuditLogger: auditLogger,
		LogManager:  logManager,
		Store:       store,
		AIClient:    aiCli,
		Matcher:     matcher,
	}, nil
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup() {
	if err := s.Store.Close(); err != nil {
		s.Logger.Error("Failed to close profile store", zap.Error(err))
	}

	_ = s.AuditLogger.Sync()
	_ = s.Logger.Sync()

	if err := s.LogManager.Close(); err != nil {
		log.Printf("Failed to close log files: %v", err)
	}
}

// loadWordlist reads the optional word list and logs its validation issues.
func loadWordlist(opts profanity.Options, logger *zap.Logger) []string {
	list, path, err := config.LoadWordlist(config.SearchPaths())
	switch {
	case errors.Is(err, config.ErrWordlistNotFound):
		logger.Info("No wordlist.jsonc found, using configured words only")
		return nil
	case err != nil:
		logger.Error("Failed to load word list", zap.String("path", path), zap.Error(err))
		return nil
	}

	for _, issue := range wordlist.ValidateWordlist(list, opts) {
		logger.Warn("Word list issue",
			zap.String("type", issue.Type),
			zap.String("description", issue.Description))
	}

	logger.Info("Loaded word list", zap.String("path", path), zap.Int("terms", len(list.Terms)))
	return list.Words()
}

// openStore opens the profile store, creating its directory when needed.
func openStore(path string, logger *zap.Logger) (*storage.Store, error) {
	if path == "" {
		path = DefaultDatabasePath
	}

	if path != storage.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	return storage.Open(path, time.Now, logger)
}
