package views

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"graphlens/application/ports"
	"graphlens/application/store"
	"graphlens/domain/graph"
	apperrors "graphlens/pkg/errors"
)

// LabelEntry pairs a node label with its ledger color for the legend.
type LabelEntry struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// MenuModel is the control menu's render state: the active modes plus the
// label legend.
type MenuModel struct {
	ViewMode    graph.ViewMode    `json:"view_mode"`
	LayoutMode  graph.LayoutMode  `json:"layout_mode"`
	ColorScheme graph.ColorScheme `json:"color_scheme"`
	Labels      []LabelEntry      `json:"labels"`
}

// Menu owns mode switching and the per-label display preference form. All
// graph mutations go through the store; preferences go to the persistent
// collaborator.
type Menu struct {
	store  *store.Store
	prefs  ports.PreferenceStore
	logger *zap.Logger

	mu    sync.RWMutex
	model MenuModel

	subs []*store.Subscription
}

// NewMenu wires the menu to the store. The preference store may be nil when
// label preferences are not persisted.
func NewMenu(st *store.Store, prefs ports.PreferenceStore, logger *zap.Logger) (*Menu, error) {
	if st == nil {
		return nil, apperrors.NewStructural("menu requires a store")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Menu{store: st, prefs: prefs, logger: logger}
	m.subs = append(m.subs,
		st.Subscribe(store.EventConfigChange, func(store.Event) { m.rebuild() }),
		st.Subscribe(store.EventViewModeChange, func(store.Event) { m.rebuild() }),
	)
	m.rebuild()
	return m, nil
}

// Close cancels the store subscriptions.
func (m *Menu) Close() {
	for _, sub := range m.subs {
		sub.Cancel()
	}
}

// Model returns a copy of the current render state.
func (m *Menu) Model() MenuModel {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.model
	out.Labels = append([]LabelEntry(nil), m.model.Labels...)
	return out
}

// SetViewMode switches the active view.
func (m *Menu) SetViewMode(mode graph.ViewMode) {
	m.store.SetViewMode(mode)
}

// SetLayoutMode switches the layout algorithm.
func (m *Menu) SetLayoutMode(mode graph.LayoutMode) {
	m.store.SetLayoutMode(mode)
}

// SetColorScheme switches node coloring.
func (m *Menu) SetColorScheme(scheme graph.ColorScheme) {
	m.store.SetColorScheme(scheme)
}

// SubmitLabelPreference persists which property identifies nodes of the
// given label. The label must exist in the current graph.
func (m *Menu) SubmitLabelPreference(ctx context.Context, label, propertyName string) error {
	if m.prefs == nil {
		return apperrors.NewInternal("no preference store configured", nil)
	}
	if label == "" || propertyName == "" {
		return apperrors.NewValidation("label and property name are required")
	}

	known := false
	m.store.View(func(cfg *graph.Config) {
		_, known = cfg.NodeColors[label]
	})
	if !known {
		return apperrors.NewNotFound("label not present in current graph: " + label)
	}

	if err := m.prefs.SavePreference(ctx, label, propertyName); err != nil {
		return apperrors.Wrap(err, "saving label preference")
	}

	m.logger.Info("label preference saved",
		zap.String("label", label),
		zap.String("property", propertyName),
	)
	return nil
}

func (m *Menu) rebuild() {
	var model MenuModel

	m.store.View(func(cfg *graph.Config) {
		model.ViewMode = cfg.ViewMode
		model.LayoutMode = cfg.LayoutMode
		model.ColorScheme = cfg.ColorScheme

		labels := make([]string, 0, len(cfg.NodeColors))
		for label := range cfg.NodeColors {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		for _, label := range labels {
			model.Labels = append(model.Labels, LabelEntry{Label: label, Color: cfg.NodeColors[label]})
		}
	})

	m.mu.Lock()
	m.model = model
	m.mu.Unlock()
}
