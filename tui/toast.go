package tui

import (
	"github.com/njyeung/sprunki/page"
)

// ToastQueue carries controller toasts into the Bubble Tea loop. Toasts
// arriving while the queue is full are dropped.
type ToastQueue struct {
	ch chan page.Toast
}

var _ page.Notifier = (*ToastQueue)(nil)

func NewToastQueue() *ToastQueue {
	return &ToastQueue{ch: make(chan page.Toast, 16)}
}

func (q *ToastQueue) Notify(t page.Toast) {
	select {
	case q.ch <- t:
	default:
	}
}

// C is read by the model
func (q *ToastQueue) C() <-chan page.Toast { return q.ch }
