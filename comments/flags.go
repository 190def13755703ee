package comments

import "sync"

// FlagReader answers whether a one-time-like flag is set
type FlagReader interface {
	Has(key string) bool
}

// FlagStore persists one-time-like flags. Flags never expire.
type FlagStore interface {
	FlagReader
	Set(key string) error
}

// LikeKey is the persisted flag key for a comment, or for a reply when replyID is set
func LikeKey(commentID, replyID string) string {
	if replyID != "" {
		return "like_reply_" + replyID
	}
	return "like_comment_" + commentID
}

// MemoryFlags keeps flags for the life of the process
type MemoryFlags struct {
	mu    sync.RWMutex
	flags map[string]bool
}

func NewMemoryFlags() *MemoryFlags {
	return &MemoryFlags{flags: make(map[string]bool)}
}

func (m *MemoryFlags) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flags[key]
}

func (m *MemoryFlags) Set(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[key] = true
	return nil
}
