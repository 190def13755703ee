package comments

import (
	"sync"

	"github.com/njyeung/sprunki/backend"
)

const (
	// FetchSize is how many comments are requested from the server at once
	FetchSize = backend.MaxPerPage

	// RevealSize is how many fetched comments each "load more" reveals
	RevealSize = 10

	// MaxRenderDepth: replies at this depth or deeper are never displayed
	MaxRenderDepth = 3

	// MaxReplyDepth: replies at this depth or deeper cannot be replied to
	MaxReplyDepth = 2
)

// Tree holds everything fetched for the current query and the window of it
// that has been revealed. Revealed only grows until the next Replace.
type Tree struct {
	mu sync.RWMutex

	comments   []*backend.Comment
	revealed   int
	pagination backend.Pagination
}

// NewTree creates an empty tree
func NewTree() *Tree {
	return &Tree{comments: make([]*backend.Comment, 0)}
}

// Replace swaps in a freshly fetched list and resets the window to the first page
func (t *Tree) Replace(comments []*backend.Comment, p backend.Pagination) {
	organized := make([]*backend.Comment, 0, len(comments))
	for _, c := range comments {
		if c == nil {
			continue
		}
		Organize(c)
		organized = append(organized, c)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.comments = organized
	t.pagination = p
	t.revealed = min(RevealSize, len(organized))
}

// Append adds the next server page behind what is already fetched and
// reveals the next window. Comments already present are skipped.
func (t *Tree) Append(comments []*backend.Comment, p backend.Pagination) {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[string]bool, len(t.comments))
	for _, c := range t.comments {
		seen[c.ID] = true
	}
	for _, c := range comments {
		if c == nil || seen[c.ID] {
			continue
		}
		Organize(c)
		seen[c.ID] = true
		t.comments = append(t.comments, c)
	}
	t.pagination = p
	t.revealed = min(t.revealed+RevealSize, len(t.comments))
}

// RevealNextPage reveals up to RevealSize more fetched comments.
// Returns false when nothing was left to reveal.
func (t *Tree) RevealNextPage() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.revealed >= len(t.comments) {
		return false
	}
	t.revealed = min(t.revealed+RevealSize, len(t.comments))
	return true
}

// HasMore reports whether fetched comments are still hidden
func (t *Tree) HasMore() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.revealed < len(t.comments)
}

// NeedsFetch reports whether everything fetched is shown but the server has more pages
func (t *Tree) NeedsFetch() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.revealed >= len(t.comments) && t.pagination.Page < t.pagination.Pages
}

// Remaining is the number of fetched comments not yet revealed
func (t *Tree) Remaining() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.comments) - t.revealed
}

// Revealed returns the visible comments
func (t *Tree) Revealed() []*backend.Comment {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]*backend.Comment, t.revealed)
	copy(result, t.comments[:t.revealed])
	return result
}

// Len is the number of fetched comments
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.comments)
}

// Total is the server's count, falling back to what was fetched
func (t *Tree) Total() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.pagination.Total > 0 {
		return t.pagination.Total
	}
	return len(t.comments)
}

// Pagination returns the metadata of the last server page
func (t *Tree) Pagination() backend.Pagination {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pagination
}

// FindComment looks a comment up among everything fetched
func (t *Tree) FindComment(id string) (*backend.Comment, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.findComment(id)
}

func (t *Tree) findComment(id string) (*backend.Comment, bool) {
	for _, c := range t.comments {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// FindReply searches a comment's reply tree depth-first.
// The returned depth is 0 for direct replies to the comment.
func (t *Tree) FindReply(commentID, replyID string) (*backend.Reply, int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c, ok := t.findComment(commentID)
	if !ok {
		return nil, 0, false
	}
	return findReply(c.Replies, replyID, 0)
}

// SetLikes stores a like count reported by the server on a comment, or on
// one of its replies when replyID is set
func (t *Tree) SetLikes(commentID, replyID string, likes int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.findComment(commentID)
	if !ok {
		return false
	}
	if replyID == "" {
		c.LikeCount = likes
		return true
	}
	r, _, ok := findReply(c.Replies, replyID, 0)
	if !ok {
		return false
	}
	r.LikeCount = likes
	return true
}

// IsRevealed reports whether a comment sits inside the visible window
func (t *Tree) IsRevealed(commentID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, c := range t.comments[:t.revealed] {
		if c.ID == commentID {
			return true
		}
	}
	return false
}

func findReply(replies []*backend.Reply, id string, depth int) (*backend.Reply, int, bool) {
	for _, r := range replies {
		if r.ID == id {
			return r, depth, true
		}
		if found, d, ok := findReply(r.Children, id, depth+1); ok {
			return found, d, true
		}
	}
	return nil, 0, false
}
