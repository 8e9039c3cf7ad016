package phase

import (
	"fmt"
	"io"
	"sync"

	"github.com/DoyleJ11/underground-client/internal/engine"
)

// View receives the status lines a page would have rendered.
type View interface {
	Show(page engine.Page, format string, args ...any)
}

// Terminal prints one line per status update.
type Terminal struct {
	mu  sync.Mutex
	out io.Writer
}

func NewTerminal(out io.Writer) *Terminal { return &Terminal{out: out} }

func (t *Terminal) Show(page engine.Page, format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "[%s] %s\n", page, fmt.Sprintf(format, args...))
}
