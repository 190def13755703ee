package backend

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// serverTimeLayout is what the comment API writes into created_at
const serverTimeLayout = "2006-01-02 15:04:05"

// envelope is the shape of every comment API response
type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Errors     []string        `json:"errors"`
	Data       json.RawMessage `json:"data"`
	Pagination *wirePagination `json:"pagination"`
}

type wirePagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Pages   int `json:"pages"`
	Total   int `json:"total"`
}

type wireComment struct {
	CommentID string       `json:"comment_id"`
	Username  string       `json:"username"`
	Content   string       `json:"content"`
	Rating    int          `json:"rating"`
	Likes     int          `json:"likes"`
	CreatedAt wireTime     `json:"created_at"`
	Replies   []*wireReply `json:"replies"`
}

type wireReply struct {
	ReplyID         string       `json:"reply_id"`
	Username        string       `json:"username"`
	Content         string       `json:"content"`
	Likes           int          `json:"likes"`
	CreatedAt       wireTime     `json:"created_at"`
	ParentReplyID   string       `json:"parent_reply_id"`
	ReplyToUsername string       `json:"reply_to_username"`
	Children        []*wireReply `json:"children"`
}

type wireStats struct {
	TotalComments      int            `json:"total_comments"`
	AverageRating      float64        `json:"average_rating"`
	RatingDistribution map[string]int `json:"rating_distribution"`
}

type wireCreated struct {
	CommentID string `json:"comment_id"`
	ReplyID   string `json:"reply_id"`
	Status    string `json:"status"`
}

type wireLikes struct {
	Likes int `json:"likes"`
}

type wireNewComment struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Content  string `json:"content"`
	Rating   int    `json:"rating"`
}

type wireNewReply struct {
	Username        string `json:"username"`
	Content         string `json:"content"`
	ParentReplyID   string `json:"parent_reply_id,omitempty"`
	ReplyToUsername string `json:"reply_to_username,omitempty"`
}

// wireTime accepts the server layout as well as RFC 3339
type wireTime struct{ time.Time }

func (t wireTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + t.UTC().Format(serverTimeLayout) + `"`), nil
}

func (t *wireTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	if parsed, err := time.ParseInLocation(serverTimeLayout, s, time.UTC); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (w *wireComment) toComment() *Comment {
	c := &Comment{
		ID:        w.CommentID,
		Author:    w.Username,
		Body:      w.Content,
		Rating:    w.Rating,
		LikeCount: w.Likes,
		CreatedAt: w.CreatedAt.Time,
		Replies:   make([]*Reply, 0, len(w.Replies)),
	}
	for _, r := range w.Replies {
		if r == nil {
			continue
		}
		c.Replies = append(c.Replies, r.toReply())
	}
	return c
}

func (w *wireReply) toReply() *Reply {
	r := &Reply{
		ID:              w.ReplyID,
		Author:          w.Username,
		Body:            w.Content,
		LikeCount:       w.Likes,
		CreatedAt:       w.CreatedAt.Time,
		ParentReplyID:   strings.TrimSpace(w.ParentReplyID),
		MentionedAuthor: strings.TrimSpace(w.ReplyToUsername),
	}
	for _, child := range w.Children {
		if child == nil {
			continue
		}
		r.Children = append(r.Children, child.toReply())
	}
	return r
}

func (w *wireStats) toStats() *Stats {
	s := &Stats{
		TotalComments:      w.TotalComments,
		AverageRating:      w.AverageRating,
		RatingDistribution: make(map[int]int, 5),
	}
	for rating := 1; rating <= 5; rating++ {
		s.RatingDistribution[rating] = 0
	}
	for k, v := range w.RatingDistribution {
		rating, err := strconv.Atoi(k)
		if err != nil || rating < 1 || rating > 5 {
			continue
		}
		s.RatingDistribution[rating] = v
	}
	return s
}
