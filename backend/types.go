package backend

import (
	"context"
	"strings"
	"time"
)

// Backend defines the interface between the widget and the comment API
type Backend interface {

	// ListComments fetches one server page of comments for an article
	ListComments(ctx context.Context, articleURL string, page, perPage int, sortBy string) (*CommentPage, error)

	// GetStats fetches the rating summary for an article
	GetStats(ctx context.Context, articleURL string) (*Stats, error)

	// CreateComment posts a new top-level comment with its rating
	CreateComment(ctx context.Context, articleURL string, c NewComment) (*Created, error)

	// CreateReply posts a reply to a comment, or to one of its replies
	// when ParentReplyID is set
	CreateReply(ctx context.Context, commentID string, r NewReply) (*Created, error)

	// LikeComment and LikeReply return the like count reported by the server
	LikeComment(ctx context.Context, commentID string) (int, error)
	LikeReply(ctx context.Context, commentID, replyID string) (int, error)
}

const (
	SortCreatedAt = "created_at"
	SortLikes     = "likes"

	// MaxPerPage is the largest page the API will return
	MaxPerPage = 50
)

// NormalizeSort maps anything unknown to SortCreatedAt
func NormalizeSort(sortBy string) string {
	if sortBy == SortLikes {
		return SortLikes
	}
	return SortCreatedAt
}

// NormalizeArticleURL makes sure the article path starts with a slash
func NormalizeArticleURL(articleURL string) string {
	articleURL = strings.TrimSpace(articleURL)
	if !strings.HasPrefix(articleURL, "/") {
		articleURL = "/" + articleURL
	}
	return articleURL
}

// Comment is a top-level submission tied to an article
type Comment struct {
	ID        string
	Author    string
	Body      string
	Rating    int
	LikeCount int
	CreatedAt time.Time
	Replies   []*Reply
}

// Reply answers a Comment or another Reply. Children is the next depth level.
type Reply struct {
	ID              string
	Author          string
	Body            string
	LikeCount       int
	CreatedAt       time.Time
	ParentReplyID   string
	MentionedAuthor string
	Children        []*Reply
}

// Pagination mirrors the server's page metadata
type Pagination struct {
	Page    int
	PerPage int
	Pages   int
	Total   int
}

// CommentPage is one server page of comments
type CommentPage struct {
	Comments   []*Comment
	Pagination Pagination
}

// Stats is the rating summary for an article
type Stats struct {
	TotalComments      int
	AverageRating      float64
	RatingDistribution map[int]int
}

// NewComment is the payload for CreateComment
type NewComment struct {
	Author string
	Email  string
	Body   string
	Rating int
}

// NewReply is the payload for CreateReply
type NewReply struct {
	Author          string
	Body            string
	ParentReplyID   string
	MentionedAuthor string
}

// Created is returned by the create endpoints
type Created struct {
	ID      string
	Status  string
	Message string
}
