package comments

import "github.com/njyeung/sprunki/backend"

// Organize nests a comment's replies when the server sent them flat.
// A top-level reply moves under its parent only if the parent came earlier,
// so chronological order keeps this cycle-free. Replies with an unknown
// parent stay at level 0. Calling it twice is a no-op.
func Organize(c *backend.Comment) {
	if c == nil || len(c.Replies) == 0 {
		return
	}

	index := make(map[string]*backend.Reply)
	roots := make([]*backend.Reply, 0, len(c.Replies))

	for _, r := range c.Replies {
		if r == nil {
			continue
		}
		if parent, ok := index[r.ParentReplyID]; ok && r.ParentReplyID != "" && parent != r {
			parent.Children = append(parent.Children, r)
		} else {
			roots = append(roots, r)
		}
		indexReplies(index, r)
	}
	c.Replies = roots
}

func indexReplies(index map[string]*backend.Reply, r *backend.Reply) {
	if r.ID != "" {
		if _, exists := index[r.ID]; !exists {
			index[r.ID] = r
		}
	}
	for _, child := range r.Children {
		indexReplies(index, child)
	}
}
