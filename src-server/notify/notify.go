// Package notify carries user-visible toasts from handlers and resource hooks
// to the next rendered page.
package notify

import (
	"sync"

	"github.com/google/uuid"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

type Toast struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func newToast(kind Kind, message string) Toast {
	return Toast{ID: uuid.NewString(), Kind: kind, Message: message}
}

func Success(message string) Toast { return newToast(KindSuccess, message) }
func Info(message string) Toast    { return newToast(KindInfo, message) }
func Warning(message string) Toast { return newToast(KindWarning, message) }
func Error(message string) Toast   { return newToast(KindError, message) }

type Notifier interface {
	Notify(Toast)
}

// Collector gathers the toasts raised while serving one request. It is safe
// for concurrent use by bulk operations.
type Collector struct {
	mu     sync.Mutex
	toasts []Toast
}

func (c *Collector) Notify(t Toast) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toasts = append(c.toasts, t)
}

func (c *Collector) Toasts() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Toast, len(c.toasts))
	copy(out, c.toasts)
	return out
}

// Discard drops every toast.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Toast) {}
