package comments

import (
	"context"
	"sync"

	"github.com/njyeung/sprunki/backend"
	"go.uber.org/zap"
)

// LikeTarget is a comment, or one of its replies when ReplyID is set
type LikeTarget struct {
	CommentID string
	ReplyID   string
}

func (t LikeTarget) key() string { return LikeKey(t.CommentID, t.ReplyID) }

// LikeController sends each like at most once per client
type LikeController struct {
	api    backend.Backend
	flags  FlagStore
	logger *zap.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewLikeController uses in-memory flags when flags is nil
func NewLikeController(api backend.Backend, flags FlagStore, logger *zap.Logger) *LikeController {
	if flags == nil {
		flags = NewMemoryFlags()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LikeController{
		api:      api,
		flags:    flags,
		logger:   logger,
		inFlight: make(map[string]bool),
	}
}

// Flags exposes the store so views can mark liked targets
func (l *LikeController) Flags() FlagStore { return l.flags }

// Liked reports whether t was already liked from this client
func (l *LikeController) Liked(t LikeTarget) bool { return l.flags.Has(t.key()) }

// Like posts a like and records it. Returns the count reported by the server.
func (l *LikeController) Like(ctx context.Context, t LikeTarget) (int, error) {
	key := t.key()
	if l.flags.Has(key) {
		return 0, ErrAlreadyLiked
	}

	l.mu.Lock()
	if l.inFlight[key] {
		l.mu.Unlock()
		return 0, ErrLikeInFlight
	}
	// another click may have finished between the check above and the lock
	if l.flags.Has(key) {
		l.mu.Unlock()
		return 0, ErrAlreadyLiked
	}
	l.inFlight[key] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.inFlight, key)
		l.mu.Unlock()
	}()

	var (
		count int
		err   error
	)
	if t.ReplyID != "" {
		count, err = l.api.LikeReply(ctx, t.CommentID, t.ReplyID)
	} else {
		count, err = l.api.LikeComment(ctx, t.CommentID)
	}
	if err != nil {
		return 0, err
	}

	if err := l.flags.Set(key); err != nil {
		// the like went through; only the local memory of it is lost
		l.logger.Warn("persist like flag", zap.String("key", key), zap.Error(err))
	}
	return count, nil
}
