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

// TableModel is the tabular view's render state: one column set across all
// rows, cells already formatted for display.
type TableModel struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Table renders the raw result rows of the current query. Rows with
// heterogeneous keys share the union of columns; missing cells are empty.
type Table struct {
	store  *store.Store
	logger *zap.Logger

	mu    sync.RWMutex
	model TableModel

	subs []*store.Subscription
}

// NewTable wires the table view to the store.
func NewTable(st *store.Store, logger *zap.Logger) (*Table, error) {
	if st == nil {
		return nil, apperrors.NewStructural("table view requires a store")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	t := &Table{store: st, logger: logger}
	t.subs = append(t.subs,
		st.Subscribe(store.EventConfigChange, func(store.Event) { t.rebuild() }),
	)
	t.rebuild()
	return t, nil
}

// Close cancels the store subscription.
func (t *Table) Close() {
	for _, sub := range t.subs {
		sub.Cancel()
	}
}

// Model returns a copy of the current render state.
func (t *Table) Model() TableModel {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := TableModel{Columns: append([]string(nil), t.model.Columns...)}
	out.Rows = make([][]string, len(t.model.Rows))
	for i, row := range t.model.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

func (t *Table) rebuild() {
	var model TableModel

	t.store.View(func(cfg *graph.Config) {
		rows := cfg.RowsData
		if len(rows) == 0 {
			return
		}

		columnSet := make(map[string]struct{})
		for _, row := range rows {
			for name := range row {
				columnSet[name] = struct{}{}
			}
		}

		model.Columns = make([]string, 0, len(columnSet))
		for name := range columnSet {
			model.Columns = append(model.Columns, name)
		}
		sort.Strings(model.Columns)

		model.Rows = make([][]string, 0, len(rows))
		for _, row := range rows {
			cells := make([]string, len(model.Columns))
			for i, name := range model.Columns {
				if v, ok := row[name]; ok && v != nil {
					cells[i] = fmt.Sprintf("%v", v)
				}
			}
			model.Rows = append(model.Rows, cells)
		}
	})

	t.mu.Lock()
	t.model = model
	t.mu.Unlock()
}
