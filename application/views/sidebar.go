// Package views holds the secondary read models around the canvas: the
// detail sidebar, the control menu and the tabular results view. Each view
// subscribes to the store and keeps a render model the transport layer
// serializes as-is.
package views

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"graphlens/application/store"
	"graphlens/domain/graph"
	apperrors "graphlens/pkg/errors"
)

// PropertyRow is one "name: value" line in the sidebar.
type PropertyRow struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NeighborEntry is one clickable adjacent node in the sidebar.
type NeighborEntry struct {
	ID      int64  `json:"id"`
	Display string `json:"display"`
	Color   string `json:"color"`
}

// SidebarModel is the sidebar's full render state. It is rebuilt wholesale
// on every selection change.
type SidebarModel struct {
	Visible    bool            `json:"visible"`
	Kind       graph.Kind      `json:"kind,omitempty"`
	Title      string          `json:"title,omitempty"`
	Properties []PropertyRow   `json:"properties,omitempty"`
	Neighbors  []NeighborEntry `json:"neighbors,omitempty"`
}

// Sidebar shows the selected element's details and its neighborhood, and
// lets the user walk the graph by selecting a neighbor.
type Sidebar struct {
	store  *store.Store
	logger *zap.Logger

	mu    sync.RWMutex
	model SidebarModel

	subs []*store.Subscription
}

// NewSidebar wires the sidebar to the store.
func NewSidebar(st *store.Store, logger *zap.Logger) (*Sidebar, error) {
	if st == nil {
		return nil, apperrors.NewStructural("sidebar requires a store")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Sidebar{store: st, logger: logger}
	s.subs = append(s.subs,
		st.Subscribe(store.EventSelectObject, func(e store.Event) { s.rebuild(e.Current) }),
		st.Subscribe(store.EventConfigChange, func(e store.Event) { s.rebuild(e.Config.SelectedObject) }),
	)
	return s, nil
}

// Close cancels the store subscriptions.
func (s *Sidebar) Close() {
	for _, sub := range s.subs {
		sub.Cancel()
	}
}

// Model returns a copy of the current render state.
func (s *Sidebar) Model() SidebarModel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := s.model
	m.Properties = append([]PropertyRow(nil), s.model.Properties...)
	m.Neighbors = append([]NeighborEntry(nil), s.model.Neighbors...)
	return m
}

// SelectNeighbor walks the selection to an adjacent node shown in the
// sidebar. Unknown ids are ignored.
func (s *Sidebar) SelectNeighbor(id int64) {
	var target *graph.Node
	s.store.View(func(cfg *graph.Config) {
		if n, ok := cfg.NodeByID(id); ok {
			target = n
		}
	})

	if target == nil {
		s.logger.Warn("sidebar neighbor selection for unknown node", zap.Int64("nodeID", id))
		return
	}
	s.store.SetSelectedObject(target)
}

func (s *Sidebar) rebuild(obj graph.Object) {
	var model SidebarModel

	switch el := obj.(type) {
	case *graph.Node:
		model.Visible = true
		model.Kind = graph.KindNode
		model.Title = el.DisplayName()
		model.Properties = propertyRows(el.Properties)
		model.Neighbors = s.neighborEntries(el)
	case *graph.Edge:
		model.Visible = true
		model.Kind = graph.KindEdge
		model.Title = el.Label
		model.Properties = propertyRows(el.Properties)
	}

	s.mu.Lock()
	s.model = model
	s.mu.Unlock()
}

func (s *Sidebar) neighborEntries(n *graph.Node) []NeighborEntry {
	var entries []NeighborEntry
	s.store.View(func(cfg *graph.Config) {
		for _, neighbor := range cfg.NeighborsOfNode(n) {
			entries = append(entries, NeighborEntry{
				ID:      neighbor.ID,
				Display: neighbor.DisplayName(),
				Color:   cfg.ColorForNode(neighbor),
			})
		}
	})
	return entries
}

// propertyRows renders an element's properties in stable name order.
func propertyRows(props map[string]any) []PropertyRow {
	if len(props) == 0 {
		return nil
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]PropertyRow, 0, len(names))
	for _, name := range names {
		rows = append(rows, PropertyRow{Name: name, Value: fmt.Sprintf("%v", props[name])})
	}
	return rows
}
