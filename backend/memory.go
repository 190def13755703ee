package backend

import (
	"context"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Backend. cmd/test serves it over HTTP so the
// widget can be tried without the real site; tests use it directly.
type Memory struct {
	mu sync.Mutex

	articles map[string][]*Comment
	owner    map[string]string // comment id -> article
	calls    map[string]int
	failures map[string]error

	// Now stamps new comments and replies
	Now func() time.Time
}

// NewMemory creates an empty store
func NewMemory() *Memory {
	return &Memory{
		articles: make(map[string][]*Comment),
		owner:    make(map[string]string),
		calls:    make(map[string]int),
		failures: make(map[string]error),
		Now:      time.Now,
	}
}

// Seed adds comments to an article as if they had been posted
func (m *Memory) Seed(articleURL string, comments ...*Comment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	articleURL = NormalizeArticleURL(articleURL)
	for _, c := range comments {
		m.articles[articleURL] = append(m.articles[articleURL], c)
		m.owner[c.ID] = articleURL
	}
}

// Fail makes every following call of op return err until cleared with nil.
// Ops are named after the Backend methods, e.g. "LikeComment".
func (m *Memory) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Calls reports how many times op was invoked
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *Memory) enter(op string) error {
	m.calls[op]++
	return m.failures[op]
}

func (m *Memory) ListComments(ctx context.Context, articleURL string, page, perPage int, sortBy string) (*CommentPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListComments"); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	all := append([]*Comment(nil), m.articles[NormalizeArticleURL(articleURL)]...)
	if NormalizeSort(sortBy) == SortLikes {
		sort.SliceStable(all, func(i, j int) bool { return all[i].LikeCount > all[j].LikeCount })
	} else {
		sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	}

	total := len(all)
	start := min((page-1)*perPage, total)
	end := min(start+perPage, total)

	out := make([]*Comment, 0, end-start)
	for _, c := range all[start:end] {
		out = append(out, cloneComment(c))
	}
	return &CommentPage{
		Comments: out,
		Pagination: Pagination{
			Page:    page,
			PerPage: perPage,
			Pages:   int(math.Ceil(float64(total) / float64(perPage))),
			Total:   total,
		},
	}, nil
}

func (m *Memory) GetStats(ctx context.Context, articleURL string) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetStats"); err != nil {
		return nil, err
	}

	s := &Stats{RatingDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	sum := 0
	for _, c := range m.articles[NormalizeArticleURL(articleURL)] {
		s.TotalComments++
		s.RatingDistribution[c.Rating]++
		sum += c.Rating
	}
	if s.TotalComments > 0 {
		s.AverageRating = math.Round(float64(sum)/float64(s.TotalComments)*10) / 10
	}
	return s, nil
}

func (m *Memory) CreateComment(ctx context.Context, articleURL string, nc NewComment) (*Created, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateComment"); err != nil {
		return nil, err
	}

	var errs []string
	if nc.Author == "" {
		errs = append(errs, "Username is required")
	}
	if nc.Email == "" {
		errs = append(errs, "Email is required")
	}
	if nc.Body == "" {
		errs = append(errs, "Content is required")
	}
	if nc.Rating < 1 || nc.Rating > 5 {
		errs = append(errs, "Rating must be between 1 and 5")
	}
	if len(errs) > 0 {
		return nil, &ServerError{Status: 400, Message: "Validation failed", Errors: errs}
	}

	articleURL = NormalizeArticleURL(articleURL)
	c := &Comment{
		ID:        uuid.NewString(),
		Author:    nc.Author,
		Body:      nc.Body,
		Rating:    nc.Rating,
		CreatedAt: m.Now(),
	}
	m.articles[articleURL] = append(m.articles[articleURL], c)
	m.owner[c.ID] = articleURL
	return &Created{ID: c.ID, Status: "approved", Message: "Comment submitted successfully"}, nil
}

func (m *Memory) CreateReply(ctx context.Context, commentID string, nr NewReply) (*Created, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateReply"); err != nil {
		return nil, err
	}

	c := m.comment(commentID)
	if c == nil {
		return nil, &ServerError{Status: 404, Message: "Comment not found"}
	}
	if nr.ParentReplyID != "" && findIn(c.Replies, nr.ParentReplyID) == nil {
		return nil, &ServerError{Status: 404, Message: "Parent reply not found"}
	}

	// stored flat, the way the site's API returns them
	r := &Reply{
		ID:              uuid.NewString(),
		Author:          nr.Author,
		Body:            nr.Body,
		CreatedAt:       m.Now(),
		ParentReplyID:   nr.ParentReplyID,
		MentionedAuthor: nr.MentionedAuthor,
	}
	c.Replies = append(c.Replies, r)
	return &Created{ID: r.ID, Message: "Reply submitted successfully"}, nil
}

func (m *Memory) LikeComment(ctx context.Context, commentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("LikeComment"); err != nil {
		return 0, err
	}

	c := m.comment(commentID)
	if c == nil {
		return 0, &ServerError{Status: 404, Message: "Comment not found"}
	}
	c.LikeCount++
	return c.LikeCount, nil
}

func (m *Memory) LikeReply(ctx context.Context, commentID, replyID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("LikeReply"); err != nil {
		return 0, err
	}

	c := m.comment(commentID)
	if c == nil {
		return 0, &ServerError{Status: 404, Message: "Comment not found"}
	}
	r := findIn(c.Replies, replyID)
	if r == nil {
		return 0, &ServerError{Status: 404, Message: "Reply not found"}
	}
	r.LikeCount++
	return r.LikeCount, nil
}

func (m *Memory) comment(id string) *Comment {
	for _, c := range m.articles[m.owner[id]] {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func findIn(replies []*Reply, id string) *Reply {
	for _, r := range replies {
		if r.ID == id {
			return r
		}
		if found := findIn(r.Children, id); found != nil {
			return found
		}
	}
	return nil
}

func cloneComment(c *Comment) *Comment {
	out := *c
	out.Replies = cloneReplies(c.Replies)
	return &out
}

func cloneReplies(replies []*Reply) []*Reply {
	if replies == nil {
		return nil
	}
	out := make([]*Reply, 0, len(replies))
	for _, r := range replies {
		cp := *r
		cp.Children = cloneReplies(r.Children)
		out = append(out, &cp)
	}
	return out
}

// SampleComments builds n comments with a reply chain on the first one,
// numbered from newest to oldest
func SampleComments(n int, now time.Time) []*Comment {
	out := make([]*Comment, 0, n)
	for i := 0; i < n; i++ {
		id := "c" + strconv.Itoa(i+1)
		out = append(out, &Comment{
			ID:        id,
			Author:    "player" + strconv.Itoa(i+1),
			Body:      "Comment number " + strconv.Itoa(i+1) + " about this mod",
			Rating:    i%5 + 1,
			LikeCount: i % 3,
			CreatedAt: now.Add(-time.Duration(i+1) * time.Minute),
		})
	}
	if n > 0 {
		out[0].Replies = []*Reply{
			{ID: "r1", Author: "alice", Body: "first level", CreatedAt: now},
			{ID: "r2", Author: "bob", Body: "second level", ParentReplyID: "r1", MentionedAuthor: "alice", CreatedAt: now},
			{ID: "r3", Author: "carol", Body: "third level", ParentReplyID: "r2", MentionedAuthor: "bob", CreatedAt: now},
			{ID: "r4", Author: "dave", Body: "fourth level", ParentReplyID: "r3", MentionedAuthor: "carol", CreatedAt: now},
		}
	}
	return out
}
