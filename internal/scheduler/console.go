package scheduler

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/notexe/proofpal/internal/reminder"
)

// ConsoleNotifier prints reminders as plain lines.
type ConsoleNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleNotifier writes reminders to out.
func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: out}
}

func (c *ConsoleNotifier) Name() string { return "console" }

// Notify writes one line per event.
func (c *ConsoleNotifier) Notify(_ context.Context, ev reminder.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "[%s] %s: %s\n", ev.FiredAt.Local().Format("2006-01-02 15:04"), ev.Title(), ev.Message)
	return err
}
