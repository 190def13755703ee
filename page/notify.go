package page

import "time"

// ToastKind styles a toast
type ToastKind int

const (
	ToastSuccess ToastKind = iota
	ToastError
)

// ToastDuration is how long a toast stays up
const ToastDuration = 3 * time.Second

// Toast is a transient status message
type Toast struct {
	Kind    ToastKind
	Message string
}

// Notifier shows toasts. Implementations must not block.
type Notifier interface {
	Notify(t Toast)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Toast)

func (f NotifierFunc) Notify(t Toast) { f(t) }

type discard struct{}

func (discard) Notify(Toast) {}

// Toast texts
const (
	MsgLiked          = "👍 Liked successfully!"
	MsgReplyLiked     = "👍 Reply liked successfully!"
	MsgReplySubmitted = "Reply submitted successfully!"
	MsgCommentPosted  = "Success!"
)
