package page

import (
	"context"
	"sync"
	"time"

	"github.com/njyeung/sprunki/backend"
	"github.com/njyeung/sprunki/comments"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Event is one delegated interaction, named by its data-action
type Event struct {
	Action    string
	CommentID string
	ReplyID   string
	Value     string // sort key for ActionSort
}

// Options configures a Controller
type Options struct {
	ArticleURL string
	Sort       string
	Flags      comments.FlagStore
	Locator    comments.Locator // defaults to "revealed in the tree"
	RetryDelay time.Duration
	Notifier   Notifier
	Logger     *zap.Logger
	Now        func() time.Time
}

// Controller owns the state of one comment widget: the article, its sort,
// the fetched tree, stats and the open forms. Presentations read it through
// Snapshot and drive it through Dispatch.
type Controller struct {
	api      backend.Backend
	tree     *comments.Tree
	forms    *comments.FormController
	compose  *comments.CommentForm
	likes    *comments.LikeController
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	article  string
	sort     string
	stats    *backend.Stats
	lastErr  error
	inFlight int
}

// New creates a controller. Nothing is fetched until Load.
func New(api backend.Backend, opts Options) *Controller {
	c := &Controller{
		api:      api,
		tree:     comments.NewTree(),
		notifier: opts.Notifier,
		logger:   opts.Logger,
		now:      opts.Now,
		article:  backend.NormalizeArticleURL(opts.ArticleURL),
		sort:     backend.NormalizeSort(opts.Sort),
	}
	if c.notifier == nil {
		c.notifier = discard{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}

	locator := opts.Locator
	if locator == nil {
		locator = comments.LocatorFunc(c.rendered)
	}
	c.forms = comments.NewFormController(api, comments.FormOptions{
		Locator:    locator,
		RetryDelay: opts.RetryDelay,
		Logger:     c.logger,
	})
	c.compose = comments.NewCommentForm(api, c.article, nil)
	c.likes = comments.NewLikeController(api, opts.Flags, c.logger)
	return c
}

func (c *Controller) rendered(t comments.Target) bool {
	if !c.tree.IsRevealed(t.CommentID) {
		return false
	}
	if t.ParentReplyID == "" {
		return true
	}
	_, depth, ok := c.tree.FindReply(t.CommentID, t.ParentReplyID)
	return ok && depth < comments.MaxRenderDepth
}

// Forms is the reply form controller
func (c *Controller) Forms() *comments.FormController { return c.forms }

// CommentForm is the top-level comment form
func (c *Controller) CommentForm() *comments.CommentForm { return c.compose }

// Likes is the like controller
func (c *Controller) Likes() *comments.LikeController { return c.likes }

// Tree is the fetched comment model
func (c *Controller) Tree() *comments.Tree { return c.tree }

// Article returns the normalized article URL
func (c *Controller) Article() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.article
}

// Load fetches the first server page and the stats concurrently. Each
// response updates only its own part of the state as it arrives. Only the
// list decides the result; failed stats keep the previous ones.
func (c *Controller) Load(ctx context.Context) error {
	var (
		wg      sync.WaitGroup
		listErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		listErr = c.LoadPage(ctx, 1)
	}()
	go func() {
		defer wg.Done()
		_ = c.loadStats(ctx)
	}()
	wg.Wait()
	return listErr
}

// LoadPage fetches one server page and replaces the tree with it. Loads are
// not cancelled when superseded: whichever response resolves last is shown.
func (c *Controller) LoadPage(ctx context.Context, page int) error {
	c.mu.Lock()
	article, sortBy := c.article, c.sort
	c.inFlight++
	c.mu.Unlock()

	result, err := c.api.ListComments(ctx, article, page, comments.FetchSize, sortBy)

	c.mu.Lock()
	c.inFlight--
	c.lastErr = err
	if err == nil {
		c.tree.Replace(result.Comments, result.Pagination)
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("load comments failed", zap.String("article", article), zap.Int("page", page), zap.Error(err))
		c.notifyErr(err)
		return err
	}

	c.logger.Debug("comments loaded",
		zap.String("article", article),
		zap.Int("page", result.Pagination.Page),
		zap.Int("count", len(result.Comments)),
	)
	return nil
}

func (c *Controller) loadStats(ctx context.Context) error {
	c.mu.Lock()
	article := c.article
	c.mu.Unlock()

	stats, err := c.api.GetStats(ctx, article)
	if err != nil {
		// stats are decoration; the list carries the error toast
		c.logger.Warn("load stats failed", zap.String("article", article), zap.Error(err))
		return err
	}

	c.mu.Lock()
	c.stats = stats
	c.mu.Unlock()
	return nil
}

// SetSort switches the order and reloads from the first page
func (c *Controller) SetSort(ctx context.Context, sortBy string) error {
	c.mu.Lock()
	c.sort = backend.NormalizeSort(sortBy)
	c.mu.Unlock()
	return c.LoadPage(ctx, 1)
}

// Sort returns the active sort key
func (c *Controller) Sort() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sort
}

// LoadMore reveals the next fetched window, fetching the next server page
// first when everything fetched is already visible
func (c *Controller) LoadMore(ctx context.Context) error {
	if c.tree.RevealNextPage() {
		return nil
	}
	if !c.tree.NeedsFetch() {
		return nil
	}

	c.mu.Lock()
	article, sortBy := c.article, c.sort
	c.mu.Unlock()

	next := c.tree.Pagination().Page + 1
	result, err := c.api.ListComments(ctx, article, next, comments.FetchSize, sortBy)
	if err != nil {
		c.logger.Warn("load more failed", zap.Int("page", next), zap.Error(err))
		c.notifyErr(err)
		return err
	}
	c.tree.Append(result.Comments, result.Pagination)
	return nil
}

// Dispatch handles one delegated event. Targets that are not in the tree
// produce an error toast and leave the state untouched.
func (c *Controller) Dispatch(ctx context.Context, ev Event) error {
	switch ev.Action {
	case comments.ActionLike:
		return c.like(ctx, ev)
	case comments.ActionReply:
		if _, ok := c.tree.FindComment(ev.CommentID); !ok {
			return c.unknownTarget(ev)
		}
		return c.open(ctx, comments.Target{CommentID: ev.CommentID})
	case comments.ActionReplyToReply:
		reply, depth, ok := c.tree.FindReply(ev.CommentID, ev.ReplyID)
		if !ok {
			return c.unknownTarget(ev)
		}
		return c.open(ctx, comments.Target{
			CommentID:       ev.CommentID,
			ParentReplyID:   reply.ID,
			MentionedAuthor: reply.Author,
			Depth:           depth,
		})
	case comments.ActionCloseForm:
		c.forms.Close()
		return nil
	case comments.ActionLoadMore:
		return c.LoadMore(ctx)
	case comments.ActionSort:
		return c.SetSort(ctx, ev.Value)
	}
	err := errors.Errorf("unknown action %q", ev.Action)
	c.notifyErr(err)
	return err
}

func (c *Controller) open(ctx context.Context, t comments.Target) error {
	if _, err := c.forms.OpenFor(ctx, t); err != nil {
		c.notifyErr(err)
		return err
	}
	return nil
}

func (c *Controller) like(ctx context.Context, ev Event) error {
	if _, ok := c.tree.FindComment(ev.CommentID); !ok {
		return c.unknownTarget(ev)
	}
	if ev.ReplyID != "" {
		if _, _, ok := c.tree.FindReply(ev.CommentID, ev.ReplyID); !ok {
			return c.unknownTarget(ev)
		}
	}

	count, err := c.likes.Like(ctx, comments.LikeTarget{CommentID: ev.CommentID, ReplyID: ev.ReplyID})
	switch {
	case errors.Is(err, comments.ErrLikeInFlight):
		return err
	case err != nil:
		c.notifyErr(err)
		return err
	}
	c.tree.SetLikes(ev.CommentID, ev.ReplyID, count)

	if ev.ReplyID != "" {
		c.notify(ToastSuccess, MsgReplyLiked)
	} else {
		c.notify(ToastSuccess, MsgLiked)
	}
	return c.reload(ctx)
}

// SubmitReply posts the open reply form and reloads on success
func (c *Controller) SubmitReply(ctx context.Context) error {
	if err := c.forms.Submit(ctx); err != nil {
		if errors.Is(err, comments.ErrSubmitting) {
			return err
		}
		c.notifyErr(err)
		return err
	}
	c.notify(ToastSuccess, MsgReplySubmitted)
	return c.reload(ctx)
}

// SubmitComment posts the top-level comment form and reloads on success
func (c *Controller) SubmitComment(ctx context.Context) error {
	if err := c.compose.Submit(ctx); err != nil {
		if errors.Is(err, comments.ErrSubmitting) {
			return err
		}
		c.notifyErr(err)
		return err
	}
	c.notify(ToastSuccess, MsgCommentPosted)
	return c.reload(ctx)
}

// reload refetches everything after a mutation. The mutation already
// succeeded, so a failed reload is reported but not returned.
func (c *Controller) reload(ctx context.Context) error {
	if err := c.Load(ctx); err != nil {
		c.logger.Warn("reload after mutation failed", zap.Error(err))
	}
	return nil
}

func (c *Controller) unknownTarget(ev Event) error {
	c.logger.Info("event target not found",
		zap.String("action", ev.Action),
		zap.String("comment_id", ev.CommentID),
		zap.String("reply_id", ev.ReplyID),
	)
	c.notifyErr(comments.ErrUnknownTarget)
	return comments.ErrUnknownTarget
}

func (c *Controller) notify(kind ToastKind, msg string) {
	c.notifier.Notify(Toast{Kind: kind, Message: msg})
}

func (c *Controller) notifyErr(err error) {
	c.notify(ToastError, backend.UserMessage(err))
}

// Snapshot is everything a presentation needs to draw the widget
type Snapshot struct {
	ArticleURL  string
	Sort        string
	Views       []comments.CommentView
	Stats       *backend.Stats
	Pagination  backend.Pagination
	Total       int
	Remaining   int
	CanLoadMore bool
	Loading     bool
	Err         error
	Form        comments.ReplyForm
	FormOpen    bool
}

// Snapshot captures the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	s := Snapshot{
		ArticleURL: c.article,
		Sort:       c.sort,
		Stats:      c.stats,
		Loading:    c.inFlight > 0,
		Err:        c.lastErr,
	}
	c.mu.Unlock()

	s.Views = comments.BuildView(c.tree.Revealed(), c.likes.Flags(), c.now())
	s.Pagination = c.tree.Pagination()
	s.Total = c.tree.Total()
	s.Remaining = c.tree.Remaining()
	s.CanLoadMore = c.tree.HasMore() || c.tree.NeedsFetch()
	s.Form, s.FormOpen = c.forms.Current()
	return s
}

// HTML renders the widget: stats, the revealed list and the load-more button
func (s Snapshot) HTML() string {
	return comments.RenderStats(s.Stats) + comments.RenderHTML(s.Views) + comments.RenderLoadMore(s.Remaining)
}
