package backend

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const article = "/sprunki-phase-4"

func newAPI(t *testing.T) (*Client, *Memory) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := NewMemory()
	mem.Seed(article, SampleComments(12, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))...)

	router := gin.New()
	MountAPI(router.Group(DefaultAPIBase), mem)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + DefaultAPIBase), mem
}

func TestAPIList(t *testing.T) {
	c, _ := newAPI(t)

	page, err := c.ListComments(context.Background(), article, 1, 5, SortCreatedAt)
	require.NoError(t, err)
	require.Len(t, page.Comments, 5)
	assert.Equal(t, Pagination{Page: 1, PerPage: 5, Pages: 3, Total: 12}, page.Pagination)

	first := page.Comments[0]
	assert.Equal(t, "c1", first.ID)
	assert.Equal(t, time.Date(2024, 5, 1, 11, 59, 0, 0, time.UTC), first.CreatedAt)
	require.Len(t, first.Replies, 4)
	assert.Equal(t, "r1", first.Replies[1].ParentReplyID)
	assert.Equal(t, "alice", first.Replies[1].MentionedAuthor)

	last, err := c.ListComments(context.Background(), article, 3, 5, SortCreatedAt)
	require.NoError(t, err)
	assert.Len(t, last.Comments, 2)
}

func TestAPIStats(t *testing.T) {
	c, _ := newAPI(t)

	s, err := c.GetStats(context.Background(), article)
	require.NoError(t, err)
	assert.Equal(t, 12, s.TotalComments)
	assert.Equal(t, 3, s.RatingDistribution[1])
	assert.Equal(t, 2, s.RatingDistribution[5])
}

func TestAPICreate(t *testing.T) {
	c, mem := newAPI(t)
	ctx := context.Background()

	_, err := c.CreateComment(ctx, article, NewComment{Author: "Ann", Body: "Great game!", Rating: 5})
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, 400, serverErr.Status)
	assert.Contains(t, serverErr.Errors, "Email is required")

	created, err := c.CreateComment(ctx, article, NewComment{Author: "Ann", Email: "ann@example.com", Body: "Great game!", Rating: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "approved", created.Status)
	assert.Equal(t, "Comment submitted successfully", created.Message)

	reply, err := c.CreateReply(ctx, "c1", NewReply{Author: "Bo", Body: "agreed!", ParentReplyID: "r2", MentionedAuthor: "bob"})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.ID)
	assert.Equal(t, 1, mem.Calls("CreateReply"))

	_, err = c.CreateReply(ctx, "missing", NewReply{Author: "Bo", Body: "agreed!"})
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, 404, serverErr.Status)
}

func TestAPILikes(t *testing.T) {
	c, _ := newAPI(t)
	ctx := context.Background()

	likes, err := c.LikeComment(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, 2, likes)

	likes, err = c.LikeReply(ctx, "c1", "r3")
	require.NoError(t, err)
	assert.Equal(t, 1, likes)

	_, err = c.LikeReply(ctx, "c1", "nope")
	assert.EqualError(t, err, "Reply not found")
}

func TestAPIInternalError(t *testing.T) {
	c, mem := newAPI(t)
	mem.Fail("GetStats", errors.New("disk on fire"))

	_, err := c.GetStats(context.Background(), article)
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, 500, serverErr.Status)
	assert.Equal(t, "Internal server error", UserMessage(err))
}
