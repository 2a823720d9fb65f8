package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Tuning is the runtime-changeable render and limit configuration, loaded
// from a YAML file and hot-reloaded on change. It covers the knobs operators
// adjust without a restart: simulation cooldowns, graph size limits and
// expansion throttling.
type Tuning struct {
	Simulation SimulationTuning `yaml:"simulation"`
	Limits     LimitTuning      `yaml:"limits"`
	Metadata   TuningMetadata   `yaml:"metadata"`
}

// SimulationTuning bounds the client-side layout simulation.
type SimulationTuning struct {
	CooldownTicks  int `yaml:"cooldownTicks"`
	CooldownTimeMs int `yaml:"cooldownTimeMs"`
	WarmupTicks    int `yaml:"warmupTicks"`
}

// LimitTuning holds graph size and throttling limits.
type LimitTuning struct {
	MaxNodesPerGraph int     `yaml:"maxNodesPerGraph"`
	MaxSessions      int     `yaml:"maxSessions"`
	ExpansionRate    float64 `yaml:"expansionRate"`
	ExpansionBurst   int     `yaml:"expansionBurst"`
}

// TuningMetadata identifies a tuning file revision in logs.
type TuningMetadata struct {
	Version   string `yaml:"version"`
	UpdatedBy string `yaml:"updatedBy"`
}

// DefaultTuning returns the values used when no tuning file is configured.
func DefaultTuning() *Tuning {
	return &Tuning{
		Simulation: SimulationTuning{
			CooldownTicks:  100,
			CooldownTimeMs: 15000,
			WarmupTicks:    0,
		},
		Limits: LimitTuning{
			MaxNodesPerGraph: 10000,
			MaxSessions:      500,
			ExpansionRate:    2,
			ExpansionBurst:   4,
		},
	}
}

// TuningWatcher watches the tuning file for changes and notifies listeners
// with validated reloads. Invalid revisions are logged and ignored; the
// previous good configuration stays active.
type TuningWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *zap.Logger

	mu       sync.RWMutex
	current  *Tuning
	onChange []func(*Tuning)

	stopCh chan struct{}
}

// NewTuningWatcher loads the initial tuning file and prepares the watcher.
func NewTuningWatcher(path string, logger *zap.Logger) (*TuningWatcher, error) {
	tuning, err := loadTuningFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading initial tuning: %w", err)
	}
	if err := validateTuning(tuning); err != nil {
		return nil, fmt.Errorf("initial tuning invalid: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching tuning file: %w", err)
	}

	// Editors and atomic writers replace the file by rename; watching the
	// directory catches those.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		logger.Warn("failed to watch tuning directory", zap.Error(err))
	}

	return &TuningWatcher{
		path:    path,
		watcher: watcher,
		logger:  logger,
		current: tuning,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start begins watching for tuning changes.
func (w *TuningWatcher) Start() {
	go w.watchLoop()
	w.logger.Info("tuning watcher started", zap.String("path", w.path))
}

// Stop stops the watcher.
func (w *TuningWatcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
}

// Current returns the active tuning.
func (w *TuningWatcher) Current() *Tuning {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback invoked after each successful reload.
func (w *TuningWatcher) OnChange(handler func(*Tuning)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, handler)
}

func (w *TuningWatcher) watchLoop() {
	// Debounce so one editor save does not trigger multiple reloads.
	var debounce *time.Timer
	const debounceDelay = 100 * time.Millisecond

	for {
		select {
		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDelay, w.reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("tuning watcher error", zap.Error(err))
		}
	}
}

func (w *TuningWatcher) reload() {
	tuning, err := loadTuningFile(w.path)
	if err != nil {
		w.logger.Error("failed to reload tuning", zap.Error(err))
		return
	}
	if err := validateTuning(tuning); err != nil {
		w.logger.Error("invalid tuning, keeping current", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = tuning
	handlers := make([]func(*Tuning), len(w.onChange))
	copy(handlers, w.onChange)
	w.mu.Unlock()

	w.logger.Info("tuning reloaded",
		zap.String("version", tuning.Metadata.Version),
		zap.Int("cooldownTicks", tuning.Simulation.CooldownTicks),
	)

	for _, handler := range handlers {
		handler(tuning)
	}
}

func loadTuningFile(path string) (*Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tuning file: %w", err)
	}

	tuning := DefaultTuning()
	if err := yaml.Unmarshal(data, tuning); err != nil {
		return nil, fmt.Errorf("parsing tuning YAML: %w", err)
	}
	return tuning, nil
}

func validateTuning(t *Tuning) error {
	if t.Simulation.CooldownTicks < 0 {
		return fmt.Errorf("cooldownTicks cannot be negative")
	}
	if t.Simulation.CooldownTimeMs < 0 {
		return fmt.Errorf("cooldownTimeMs cannot be negative")
	}
	if t.Limits.MaxNodesPerGraph <= 0 {
		return fmt.Errorf("maxNodesPerGraph must be positive")
	}
	if t.Limits.ExpansionRate < 0 {
		return fmt.Errorf("expansionRate cannot be negative")
	}
	if t.Limits.ExpansionBurst < 1 {
		return fmt.Errorf("expansionBurst must be at least 1")
	}
	return nil
}
