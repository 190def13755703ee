package page

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/njyeung/sprunki/backend"
	"github.com/njyeung/sprunki/comments"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type toasts struct {
	mu   sync.Mutex
	list []Toast
}

func (t *toasts) Notify(toast Toast) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.list = append(t.list, toast)
}

func (t *toasts) last() Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.list) == 0 {
		return Toast{}
	}
	return t.list[len(t.list)-1]
}

func newController(t *testing.T, n int) (*Controller, *backend.Memory, *toasts) {
	t.Helper()
	mem := backend.NewMemory()
	mem.Now = func() time.Time { return now }
	mem.Seed("/game", backend.SampleComments(n, now)...)
	notes := &toasts{}
	c := New(mem, Options{
		ArticleURL: "game",
		Notifier:   notes,
		RetryDelay: time.Millisecond,
		Now:        func() time.Time { return now },
	})
	require.NoError(t, c.Load(context.Background()))
	return c, mem, notes
}

func TestLoad(t *testing.T) {
	c, mem, _ := newController(t, 3)

	snap := c.Snapshot()
	assert.Equal(t, "/game", snap.ArticleURL)
	assert.Len(t, snap.Views, 3)
	require.NotNil(t, snap.Stats)
	assert.Equal(t, 3, snap.Stats.TotalComments)
	assert.False(t, snap.Loading)
	assert.NoError(t, snap.Err)
	assert.Equal(t, 1, mem.Calls("ListComments"))
	assert.Equal(t, 1, mem.Calls("GetStats"))

	html := snap.HTML()
	assert.Contains(t, html, `id="comment-stats"`)
	assert.Contains(t, html, `data-comment-id="c1"`)
	assert.NotContains(t, html, "load-more-btn")
}

// gated holds each ListComments call until its page is released
type gated struct {
	*backend.Memory
	mu    sync.Mutex
	gates map[int]chan struct{}
}

func (g *gated) gate(page int) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gates[page] == nil {
		g.gates[page] = make(chan struct{})
	}
	return g.gates[page]
}

func (g *gated) ListComments(ctx context.Context, articleURL string, page, perPage int, sortBy string) (*backend.CommentPage, error) {
	<-g.gate(page)
	res, err := g.Memory.ListComments(ctx, articleURL, 1, perPage, sortBy)
	if err != nil {
		return nil, err
	}
	res.Pagination.Page = page
	for _, cm := range res.Comments {
		cm.Body = "from page " + string(rune('0'+page))
	}
	return res, nil
}

func TestLastResolvedResponseWins(t *testing.T) {
	mem := backend.NewMemory()
	mem.Seed("/game", backend.SampleComments(2, now)...)
	api := &gated{Memory: mem, gates: make(map[int]chan struct{})}
	c := New(api, Options{ArticleURL: "/game", Now: func() time.Time { return now }})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = c.LoadPage(context.Background(), 1) }()
	go func() { defer wg.Done(); _ = c.LoadPage(context.Background(), 2) }()

	// page 2 resolves first
	close(api.gate(2))
	require.Eventually(t, func() bool {
		return c.Tree().Pagination().Page == 2
	}, time.Second, time.Millisecond)

	close(api.gate(1))
	wg.Wait()

	snap := c.Snapshot()
	assert.Equal(t, 1, snap.Pagination.Page)
	assert.Equal(t, "from page 1", snap.Views[0].Body)
	assert.False(t, snap.Loading)
}

func TestLoadMoreRevealsThenFetches(t *testing.T) {
	c, mem, _ := newController(t, 60)

	snap := c.Snapshot()
	assert.Len(t, snap.Views, 10)
	assert.Equal(t, 40, snap.Remaining)
	assert.True(t, snap.CanLoadMore)

	for i := 0; i < 4; i++ {
		require.NoError(t, c.Dispatch(context.Background(), Event{Action: comments.ActionLoadMore}))
	}
	assert.Len(t, c.Snapshot().Views, 50)
	assert.Equal(t, 1, mem.Calls("ListComments"), "revealing is local")
	assert.True(t, c.Snapshot().CanLoadMore)

	require.NoError(t, c.LoadMore(context.Background()))
	assert.Equal(t, 2, mem.Calls("ListComments"))
	snap = c.Snapshot()
	assert.Len(t, snap.Views, 60)
	assert.False(t, snap.CanLoadMore)
	assert.Contains(t, snap.HTML(), "c60")
}

func TestSetSort(t *testing.T) {
	c, _, _ := newController(t, 6)

	require.NoError(t, c.Dispatch(context.Background(), Event{Action: comments.ActionSort, Value: backend.SortLikes}))
	assert.Equal(t, backend.SortLikes, c.Sort())
	views := c.Snapshot().Views
	assert.GreaterOrEqual(t, views[0].Likes, views[len(views)-1].Likes)

	require.NoError(t, c.SetSort(context.Background(), "bogus"))
	assert.Equal(t, backend.SortCreatedAt, c.Sort())
}

func TestDispatchLikeOnceAndReload(t *testing.T) {
	c, mem, notes := newController(t, 3)

	require.NoError(t, c.Dispatch(context.Background(), Event{Action: comments.ActionLike, CommentID: "c2"}))
	assert.Equal(t, Toast{Kind: ToastSuccess, Message: MsgLiked}, notes.last())
	assert.Equal(t, 2, mem.Calls("ListComments"), "a like reloads the list")

	snap := c.Snapshot()
	assert.True(t, snap.Views[1].Liked)
	assert.Equal(t, 2, snap.Views[1].Likes)

	err := c.Dispatch(context.Background(), Event{Action: comments.ActionLike, CommentID: "c2"})
	require.ErrorIs(t, err, comments.ErrAlreadyLiked)
	assert.Equal(t, Toast{Kind: ToastError, Message: "You have already liked this!"}, notes.last())
	assert.Equal(t, 1, mem.Calls("LikeComment"))

	require.NoError(t, c.Dispatch(context.Background(), Event{Action: comments.ActionLike, CommentID: "c1", ReplyID: "r1"}))
	assert.Equal(t, MsgReplyLiked, notes.last().Message)
}

func TestLikeCountShownWhenReloadFails(t *testing.T) {
	c, mem, _ := newController(t, 3)
	mem.Fail("ListComments", &backend.NetworkError{Op: "list comments", Err: errors.New("connection reset")})

	require.NoError(t, c.Dispatch(context.Background(), Event{Action: comments.ActionLike, CommentID: "c1"}))
	snap := c.Snapshot()
	assert.True(t, snap.Views[0].Liked)
	assert.Equal(t, 1, snap.Views[0].Likes)

	require.NoError(t, c.Dispatch(context.Background(), Event{Action: comments.ActionLike, CommentID: "c1", ReplyID: "r1"}))
	r, _, ok := c.Tree().FindReply("c1", "r1")
	require.True(t, ok)
	assert.Equal(t, 1, r.LikeCount)
}

func TestStatsFailureDoesNotFailLoad(t *testing.T) {
	mem := backend.NewMemory()
	mem.Fail("GetStats", &backend.NetworkError{Op: "get stats"})
	c := New(mem, Options{ArticleURL: "/empty"})

	require.NoError(t, c.Load(context.Background()))
	snap := c.Snapshot()
	assert.Empty(t, snap.Views)
	assert.Nil(t, snap.Stats)
	assert.NoError(t, snap.Err)
}

func TestDispatchUnknownTarget(t *testing.T) {
	c, mem, notes := newController(t, 2)
	before := c.Snapshot()

	err := c.Dispatch(context.Background(), Event{Action: comments.ActionLike, CommentID: "missing"})
	require.ErrorIs(t, err, comments.ErrUnknownTarget)
	assert.Equal(t, ToastError, notes.last().Kind)
	assert.Equal(t, 0, mem.Calls("LikeComment"))

	err = c.Dispatch(context.Background(), Event{Action: comments.ActionReplyToReply, CommentID: "c1", ReplyID: "nope"})
	require.ErrorIs(t, err, comments.ErrUnknownTarget)

	assert.Equal(t, before, c.Snapshot())

	err = c.Dispatch(context.Background(), Event{Action: "explode"})
	require.Error(t, err)
}

func TestDispatchReplyToReplyDepthLimit(t *testing.T) {
	c, mem, notes := newController(t, 2)

	require.NoError(t, c.Dispatch(context.Background(), Event{Action: comments.ActionReplyToReply, CommentID: "c1", ReplyID: "r2"}))
	snap := c.Snapshot()
	require.True(t, snap.FormOpen)
	assert.Equal(t, "@bob ", snap.Form.Body)
	assert.Equal(t, 1, snap.Form.Target.Depth)

	err := c.Dispatch(context.Background(), Event{Action: comments.ActionReplyToReply, CommentID: "c1", ReplyID: "r3"})
	require.ErrorIs(t, err, comments.ErrMaxDepth)
	assert.Equal(t, "Maximum reply depth reached. Please reply in the main comment area.", notes.last().Message)
	assert.Equal(t, 0, mem.Calls("CreateReply"))

	snap = c.Snapshot()
	require.True(t, snap.FormOpen, "a rejected open leaves the current form alone")
	assert.Equal(t, "r2", snap.Form.Target.ParentReplyID)

	require.NoError(t, c.Dispatch(context.Background(), Event{Action: comments.ActionCloseForm}))
	assert.False(t, c.Snapshot().FormOpen)
}

func TestReplyFormNeedsRevealedComment(t *testing.T) {
	c, _, notes := newController(t, 15)

	err := c.Dispatch(context.Background(), Event{Action: comments.ActionReply, CommentID: "c12"})
	require.ErrorIs(t, err, comments.ErrTargetNotRendered)
	assert.Equal(t, "Reply form not found, please click reply button again", notes.last().Message)

	require.NoError(t, c.LoadMore(context.Background()))
	require.NoError(t, c.Dispatch(context.Background(), Event{Action: comments.ActionReply, CommentID: "c12"}))
}

func TestSubmitReplyReloads(t *testing.T) {
	c, mem, notes := newController(t, 2)

	require.NoError(t, c.Dispatch(context.Background(), Event{Action: comments.ActionReply, CommentID: "c2"}))
	require.NoError(t, c.Forms().SetAuthor("visitor"))
	require.NoError(t, c.Forms().SetBody("great comment"))
	require.NoError(t, c.SubmitReply(context.Background()))

	assert.Equal(t, MsgReplySubmitted, notes.last().Message)
	assert.False(t, c.Snapshot().FormOpen)
	views := c.Snapshot().Views
	require.Len(t, views[1].Replies, 1)
	assert.Equal(t, "visitor", views[1].Replies[0].Author)
	assert.Equal(t, 1, mem.Calls("CreateReply"))
}

func TestSubmitCommentValidationAndServerErrors(t *testing.T) {
	c, mem, notes := newController(t, 1)
	form := c.CommentForm()

	form.Set(backend.NewComment{Author: "p", Email: "p@example.com", Body: "too short", Rating: 3})
	require.Error(t, c.SubmitComment(context.Background()))
	assert.Equal(t, "Data validation failed: Comment must be at least 10 characters long", notes.last().Message)
	assert.Equal(t, 0, mem.Calls("CreateComment"))

	mem.Fail("CreateComment", &backend.ServerError{Status: 400, Message: "Validation failed", Errors: []string{"Email is required"}})
	form.SetBody("long enough comment")
	require.Error(t, c.SubmitComment(context.Background()))
	assert.Equal(t, "Validation failed: Email is required", notes.last().Message)

	mem.Fail("CreateComment", nil)
	require.NoError(t, c.SubmitComment(context.Background()))
	assert.Equal(t, MsgCommentPosted, notes.last().Message)
	assert.Len(t, c.Snapshot().Views, 2)
	assert.Equal(t, 2, c.Snapshot().Stats.TotalComments)
}

func TestLoadFailureIsToasted(t *testing.T) {
	mem := backend.NewMemory()
	mem.Fail("ListComments", &backend.NetworkError{Op: "list comments", Err: errors.New("connection refused")})
	notes := &toasts{}
	c := New(mem, Options{ArticleURL: "/game", Notifier: notes})

	require.Error(t, c.Load(context.Background()))
	assert.Equal(t, Toast{Kind: ToastError, Message: backend.NetworkErrorMessage}, notes.last())
	assert.Error(t, c.Snapshot().Err)
}
