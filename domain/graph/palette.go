package graph

import (
	"sync"

	"go.uber.org/zap"

	"graphlens/pkg/colors"
)

// ColorLedger assigns display colors to labels and remembers every
// assignment for its own lifetime. One ledger is created per session, at
// shell startup, and survives across reconstructed configs so re-running a
// query keeps the visual mapping stable. Assignments are append-only: once
// a label has a color it never changes.
type ColorLedger struct {
	mu       sync.Mutex
	palette  []string
	next     int
	assigned map[string]string
	logger   *zap.Logger
}

// NewColorLedger creates a ledger over the given palette, consumed
// front-to-back. A nil or empty palette falls back to the default one.
func NewColorLedger(palette []string, logger *zap.Logger) *ColorLedger {
	if len(palette) == 0 {
		palette = colors.DefaultPalette
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ColorLedger{
		palette:  palette,
		assigned: make(map[string]string),
		logger:   logger,
	}
}

// ColorFor returns the color bound to the label, assigning the next palette
// color on first sight. Exhaustion is reported, not fatal: the second
// return is false and the label stays colorless.
func (l *ColorLedger) ColorFor(label string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.assigned[label]; ok {
		return c, true
	}

	if l.next >= len(l.palette) {
		l.logger.Warn("color palette exhausted, label will render colorless",
			zap.String("label", label),
			zap.Int("paletteSize", len(l.palette)),
		)
		return "", false
	}

	c := l.palette[l.next]
	l.next++
	l.assigned[label] = c

	return c, true
}

// Lookup returns the color already bound to a label without assigning one.
func (l *ColorLedger) Lookup(label string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.assigned[label]
	return c, ok
}

// Snapshot returns a copy of all assignments made so far.
func (l *ColorLedger) Snapshot() map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]string, len(l.assigned))
	for label, c := range l.assigned {
		out[label] = c
	}
	return out
}

// PaletteColor returns the palette entry for an arbitrary index, wrapping
// around. Used for neighborhood-based coloring.
func (l *ColorLedger) PaletteColor(index int) string {
	if index < 0 {
		index = -index
	}
	return l.palette[index%len(l.palette)]
}
