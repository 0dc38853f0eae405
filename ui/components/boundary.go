package components

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/cyberforge/cyberforge/internal/logging"
	"github.com/cyberforge/cyberforge/ui/styles"
)

// Boundary catches panics raised while rendering a view. A failed view stays
// replaced by its error until Reset, while the other views keep rendering.
type Boundary struct {
	mu     sync.Mutex
	failed map[string]error
	logger *logging.Logger
}

func NewBoundary(logger *logging.Logger) *Boundary {
	if logger == nil {
		logger = logging.Default()
	}
	return &Boundary{failed: make(map[string]error), logger: logger}
}

// Render returns render(), or an error box when it panics now or did before.
func (b *Boundary) Render(name string, width int, render func() string) (out string) {
	if err := b.Err(name); err != nil {
		return errorBox(name, err, width)
	}
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%v", r)
			b.mu.Lock()
			b.failed[name] = err
			b.mu.Unlock()
			b.logger.Error("view panicked", "view", name, "panic", r, "stack", string(debug.Stack()))
			out = errorBox(name, err, width)
		}
	}()
	return render()
}

// Err returns the error that took down name, if any.
func (b *Boundary) Err(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failed[name]
}

// Failed reports whether any view is down.
func (b *Boundary) Failed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.failed) > 0
}

// Reset lets every failed view render again.
func (b *Boundary) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.failed)
}

func errorBox(name string, err error, width int) string {
	return styles.ErrorBoxStyle(width).Render(lipgloss.JoinVertical(lipgloss.Left,
		styles.ErrorStyle().Render("Something went wrong in "+name),
		err.Error(),
		styles.MutedStyle().Render("Press ctrl+r to retry"),
	))
}
