package comments

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/njyeung/sprunki/backend"
	"go.uber.org/zap"
)

// DefaultRetryDelay is how long OpenFor waits before looking for its target again
const DefaultRetryDelay = 500 * time.Millisecond

// FormState is the reply form lifecycle
type FormState int

const (
	FormClosed FormState = iota
	FormOpen
	FormSubmitting
)

func (s FormState) String() string {
	switch s {
	case FormOpen:
		return "open"
	case FormSubmitting:
		return "submitting"
	default:
		return "closed"
	}
}

// Target is what a reply form answers: a comment, or one of its replies
// when ParentReplyID is set. Depth is the depth of that reply.
type Target struct {
	CommentID       string
	ParentReplyID   string
	MentionedAuthor string
	Depth           int
}

// Locator reports whether a target is currently rendered, so a form can be
// placed next to it
type Locator interface {
	Rendered(t Target) bool
}

// LocatorFunc adapts a function to Locator
type LocatorFunc func(Target) bool

func (f LocatorFunc) Rendered(t Target) bool { return f(t) }

// ReplyForm is a snapshot of the open form. Generation changes every time a
// form is opened, so work started for a superseded form can be told apart.
type ReplyForm struct {
	Generation uint64
	Target     Target
	Author     string
	Body       string
}

// FormOptions configures a FormController
type FormOptions struct {
	Locator     Locator
	RetryDelay  time.Duration
	OnSubmitted func()
	Logger      *zap.Logger
}

// FormController keeps at most one reply form open at a time
type FormController struct {
	mu sync.Mutex

	api         backend.Backend
	locator     Locator
	retryDelay  time.Duration
	onSubmitted func()
	logger      *zap.Logger

	state      FormState
	form       ReplyForm
	generation uint64
}

// NewFormController creates a controller with no form open
func NewFormController(api backend.Backend, opts FormOptions) *FormController {
	c := &FormController{
		api:         api,
		locator:     opts.Locator,
		retryDelay:  opts.RetryDelay,
		onSubmitted: opts.OnSubmitted,
		logger:      opts.Logger,
	}
	if c.retryDelay <= 0 {
		c.retryDelay = DefaultRetryDelay
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// SetOnSubmitted replaces the hook fired after a successful submit
func (c *FormController) SetOnSubmitted(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSubmitted = fn
}

// OpenFor closes any open form and opens one for t. Replying to a reply
// prefills "@author " and is refused at MaxReplyDepth. If the target is not
// rendered yet the lookup is retried once after the retry delay.
func (c *FormController) OpenFor(ctx context.Context, t Target) (ReplyForm, error) {
	if t.ParentReplyID != "" && t.Depth >= MaxReplyDepth {
		return ReplyForm{}, ErrMaxDepth
	}
	if t.ParentReplyID == "" {
		t.MentionedAuthor = ""
		t.Depth = 0
	}

	c.Close()

	if !c.locate(ctx, t) {
		c.logger.Info("reply target not rendered",
			zap.String("comment_id", t.CommentID),
			zap.String("reply_id", t.ParentReplyID),
		)
		return ReplyForm{}, ErrTargetNotRendered
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.state = FormOpen
	c.form = ReplyForm{Generation: c.generation, Target: t}
	if t.MentionedAuthor != "" {
		c.form.Body = "@" + t.MentionedAuthor + " "
	}
	return c.form, nil
}

func (c *FormController) locate(ctx context.Context, t Target) bool {
	if c.locator == nil || c.locator.Rendered(t) {
		return true
	}
	timer := time.NewTimer(c.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}
	return c.locator.Rendered(t)
}

// Current returns the open form, if any
func (c *FormController) Current() (ReplyForm, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == FormClosed {
		return ReplyForm{}, false
	}
	return c.form, true
}

// State returns the lifecycle state
func (c *FormController) State() FormState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetAuthor edits the open form
func (c *FormController) SetAuthor(author string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != FormOpen {
		return ErrNoForm
	}
	c.form.Author = author
	return nil
}

// SetBody edits the open form
func (c *FormController) SetBody(body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != FormOpen {
		return ErrNoForm
	}
	c.form.Body = body
	return nil
}

// Close discards the open form and its text. Results of an in-flight
// submit for the discarded form are ignored.
func (c *FormController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == FormClosed {
		return
	}
	c.generation++
	c.state = FormClosed
	c.form = ReplyForm{}
}

// Submit validates and posts the open form. On success the form closes and
// the OnSubmitted hook fires; on failure the form stays open with its text.
func (c *FormController) Submit(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case FormClosed:
		c.mu.Unlock()
		return ErrNoForm
	case FormSubmitting:
		c.mu.Unlock()
		return ErrSubmitting
	}

	form := c.form
	reply := backend.NewReply{
		Author:          strings.TrimSpace(form.Author),
		Body:            strings.TrimSpace(form.Body),
		ParentReplyID:   form.Target.ParentReplyID,
		MentionedAuthor: form.Target.MentionedAuthor,
	}
	if err := ValidateReply(reply); err != nil {
		c.mu.Unlock()
		return err
	}
	if reply.Author == "" {
		reply.Author = AnonymousAuthor
	}
	c.state = FormSubmitting
	c.mu.Unlock()

	_, err := c.api.CreateReply(ctx, form.Target.CommentID, reply)

	c.mu.Lock()
	current := c.generation == form.Generation
	var hook func()
	if current {
		if err != nil {
			c.state = FormOpen
		} else {
			c.state = FormClosed
			c.form = ReplyForm{}
			c.generation++
			hook = c.onSubmitted
		}
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("reply submit failed", zap.String("comment_id", form.Target.CommentID), zap.Error(err))
		return err
	}
	if hook != nil {
		hook()
	}
	return nil
}

// CommentForm is the top-level comment form with its rating
type CommentForm struct {
	mu sync.Mutex

	api         backend.Backend
	articleURL  string
	onSubmitted func()

	fields     backend.NewComment
	submitting bool
}

// DefaultRating is preselected on a fresh comment form
const DefaultRating = 5

// NewCommentForm creates an empty form for an article
func NewCommentForm(api backend.Backend, articleURL string, onSubmitted func()) *CommentForm {
	return &CommentForm{
		api:         api,
		articleURL:  articleURL,
		onSubmitted: onSubmitted,
		fields:      backend.NewComment{Rating: DefaultRating},
	}
}

// SetOnSubmitted replaces the hook fired after a successful submit
func (f *CommentForm) SetOnSubmitted(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onSubmitted = fn
}

// Fields returns the current input
func (f *CommentForm) Fields() backend.NewComment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields
}

// Set replaces all fields at once
func (f *CommentForm) Set(c backend.NewComment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields = c
}

func (f *CommentForm) SetAuthor(s string) { f.update(func(c *backend.NewComment) { c.Author = s }) }
func (f *CommentForm) SetEmail(s string)  { f.update(func(c *backend.NewComment) { c.Email = s }) }
func (f *CommentForm) SetBody(s string)   { f.update(func(c *backend.NewComment) { c.Body = s }) }
func (f *CommentForm) SetRating(r int)    { f.update(func(c *backend.NewComment) { c.Rating = r }) }

func (f *CommentForm) update(fn func(*backend.NewComment)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.fields)
}

// Reset clears the form back to its defaults
func (f *CommentForm) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields = backend.NewComment{Rating: DefaultRating}
}

// Submit validates locally, posts, and clears the form on success.
// Invalid input never reaches the API.
func (f *CommentForm) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return ErrSubmitting
	}
	c := backend.NewComment{
		Author: strings.TrimSpace(f.fields.Author),
		Email:  strings.TrimSpace(f.fields.Email),
		Body:   strings.TrimSpace(f.fields.Body),
		Rating: f.fields.Rating,
	}
	if err := ValidateComment(c); err != nil {
		f.mu.Unlock()
		return err
	}
	f.submitting = true
	f.mu.Unlock()

	_, err := f.api.CreateComment(ctx, f.articleURL, c)

	f.mu.Lock()
	f.submitting = false
	var hook func()
	if err == nil {
		f.fields = backend.NewComment{Rating: DefaultRating}
		hook = f.onSubmitted
	}
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		hook()
	}
	return nil
}
