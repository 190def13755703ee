package comments

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/njyeung/sprunki/backend"
)

// CommentView is what every presentation layer draws for a comment
type CommentView struct {
	ID      string
	Author  string
	Initial string
	Body    string
	Rating  int
	Likes   int
	Liked   bool
	Ago     string
	Replies []ReplyView
}

// ReplyView is one rendered node of a reply tree
type ReplyView struct {
	CommentID string
	ID        string
	Author    string
	Initial   string
	Mention   string
	Body      string
	Likes     int
	Liked     bool
	Ago       string
	Depth     int
	CanReply  bool
	Children  []ReplyView
}

// BuildView turns comments into the view tree. Replies at MaxRenderDepth or
// deeper are dropped with their subtrees; only replies below MaxReplyDepth
// can be replied to.
func BuildView(comments []*backend.Comment, flags FlagReader, now time.Time) []CommentView {
	views := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		if c == nil {
			continue
		}
		v := CommentView{
			ID:      c.ID,
			Author:  c.Author,
			Initial: Initial(c.Author),
			Body:    c.Body,
			Rating:  c.Rating,
			Likes:   c.LikeCount,
			Liked:   flags != nil && flags.Has(LikeKey(c.ID, "")),
			Ago:     TimeAgo(c.CreatedAt, now),
		}
		for _, r := range c.Replies {
			if rv, ok := buildReply(c.ID, r, 0, flags, now); ok {
				v.Replies = append(v.Replies, rv)
			}
		}
		views = append(views, v)
	}
	return views
}

func buildReply(commentID string, r *backend.Reply, depth int, flags FlagReader, now time.Time) (ReplyView, bool) {
	if r == nil || depth >= MaxRenderDepth {
		return ReplyView{}, false
	}
	v := ReplyView{
		CommentID: commentID,
		ID:        r.ID,
		Author:    r.Author,
		Initial:   Initial(r.Author),
		Mention:   r.MentionedAuthor,
		Body:      r.Body,
		Likes:     r.LikeCount,
		Liked:     flags != nil && flags.Has(LikeKey(commentID, r.ID)),
		Ago:       TimeAgo(r.CreatedAt, now),
		Depth:     depth,
		CanReply:  depth < MaxReplyDepth,
	}
	for _, child := range r.Children {
		if cv, ok := buildReply(commentID, child, depth+1, flags, now); ok {
			v.Children = append(v.Children, cv)
		}
	}
	return v, true
}

// Initial is the avatar letter: the first character of the name, upper-cased
func Initial(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "?"
	}
	r, _ := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r))
}

// TimeAgo formats t relative to now
func TimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour") + " ago"
	case d < 7*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day") + " ago"
	default:
		return t.Format("2006-01-02")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
