package comments

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/njyeung/sprunki/backend"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T) *backend.Memory {
	t.Helper()
	mem := backend.NewMemory()
	mem.Seed("/game", backend.SampleComments(3, now)...)
	return mem
}

func TestReplyToReplyAtDepthTwoIsRejected(t *testing.T) {
	mem := seeded(t)
	forms := NewFormController(mem, FormOptions{})

	_, err := forms.OpenFor(context.Background(), Target{CommentID: "c1", ParentReplyID: "r3", MentionedAuthor: "carol", Depth: 2})
	require.ErrorIs(t, err, ErrMaxDepth)
	assert.Equal(t, "Maximum reply depth reached. Please reply in the main comment area.", err.Error())
	assert.Equal(t, FormClosed, forms.State())
	assert.Equal(t, 0, mem.Calls("CreateReply"))
}

func TestOpenForPrefillsMention(t *testing.T) {
	forms := NewFormController(seeded(t), FormOptions{})

	form, err := forms.OpenFor(context.Background(), Target{CommentID: "c1", ParentReplyID: "r1", MentionedAuthor: "alice", Depth: 0})
	require.NoError(t, err)
	assert.Equal(t, "@alice ", form.Body)
	assert.Equal(t, FormOpen, forms.State())

	root, err := forms.OpenFor(context.Background(), Target{CommentID: "c1", MentionedAuthor: "ignored"})
	require.NoError(t, err)
	assert.Empty(t, root.Body)
	assert.Empty(t, root.Target.MentionedAuthor)
	assert.NotEqual(t, form.Generation, root.Generation)

	current, ok := forms.Current()
	require.True(t, ok)
	assert.Equal(t, root.Generation, current.Generation, "opening a form closes the previous one")
}

func TestOpenForRetriesOnce(t *testing.T) {
	var lookups atomic.Int32
	locator := LocatorFunc(func(Target) bool {
		return lookups.Add(1) > 1
	})
	forms := NewFormController(seeded(t), FormOptions{Locator: locator, RetryDelay: time.Millisecond})

	_, err := forms.OpenFor(context.Background(), Target{CommentID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), lookups.Load())
}

func TestOpenForGivesUpAfterRetry(t *testing.T) {
	var lookups atomic.Int32
	locator := LocatorFunc(func(Target) bool {
		lookups.Add(1)
		return false
	})
	forms := NewFormController(seeded(t), FormOptions{Locator: locator, RetryDelay: time.Millisecond})

	_, err := forms.OpenFor(context.Background(), Target{CommentID: "c1"})
	require.ErrorIs(t, err, ErrTargetNotRendered)
	assert.Equal(t, int32(2), lookups.Load())
	assert.Equal(t, FormClosed, forms.State())
}

func TestReplySubmit(t *testing.T) {
	mem := seeded(t)
	var reloads atomic.Int32
	forms := NewFormController(mem, FormOptions{OnSubmitted: func() { reloads.Add(1) }})

	_, err := forms.OpenFor(context.Background(), Target{CommentID: "c1", ParentReplyID: "r2", MentionedAuthor: "bob", Depth: 1})
	require.NoError(t, err)
	require.NoError(t, forms.SetBody("@bob agreed, nice mod"))

	require.NoError(t, forms.Submit(context.Background()))
	assert.Equal(t, FormClosed, forms.State())
	assert.Equal(t, int32(1), reloads.Load())
	assert.Equal(t, 1, mem.Calls("CreateReply"))

	page, err := mem.ListComments(context.Background(), "/game", 1, 50, backend.SortCreatedAt)
	require.NoError(t, err)
	replies := page.Comments[0].Replies
	last := replies[len(replies)-1]
	assert.Equal(t, AnonymousAuthor, last.Author)
	assert.Equal(t, "r2", last.ParentReplyID)
	assert.Equal(t, "bob", last.MentionedAuthor)
}

func TestReplySubmitValidation(t *testing.T) {
	mem := seeded(t)
	forms := NewFormController(mem, FormOptions{})

	require.ErrorIs(t, forms.Submit(context.Background()), ErrNoForm)

	_, err := forms.OpenFor(context.Background(), Target{CommentID: "c1"})
	require.NoError(t, err)
	require.NoError(t, forms.SetBody("hey"))

	err = forms.Submit(context.Background())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "Reply must be at least 5 characters long")
	assert.Equal(t, FormOpen, forms.State())
	assert.Equal(t, 0, mem.Calls("CreateReply"))

	require.NoError(t, forms.SetAuthor("bad<name>"))
	require.NoError(t, forms.SetBody("long enough"))
	require.ErrorAs(t, forms.Submit(context.Background()), &verr)
	assert.Equal(t, 0, mem.Calls("CreateReply"))
}

func TestReplySubmitFailureKeepsForm(t *testing.T) {
	mem := seeded(t)
	mem.Fail("CreateReply", &backend.NetworkError{Op: "create reply", Err: errors.New("boom")})
	forms := NewFormController(mem, FormOptions{})

	_, err := forms.OpenFor(context.Background(), Target{CommentID: "c1"})
	require.NoError(t, err)
	require.NoError(t, forms.SetBody("this will fail"))

	err = forms.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, backend.IsNetwork(err))
	assert.Equal(t, FormOpen, forms.State())

	form, ok := forms.Current()
	require.True(t, ok)
	assert.Equal(t, "this will fail", form.Body)
}

func TestCloseDiscardsText(t *testing.T) {
	forms := NewFormController(seeded(t), FormOptions{})
	_, err := forms.OpenFor(context.Background(), Target{CommentID: "c1"})
	require.NoError(t, err)
	require.NoError(t, forms.SetBody("draft"))

	forms.Close()
	_, ok := forms.Current()
	assert.False(t, ok)
	assert.ErrorIs(t, forms.SetBody("x"), ErrNoForm)
}

func TestCommentFormRejectsShortBody(t *testing.T) {
	mem := seeded(t)
	form := NewCommentForm(mem, "/game", nil)
	form.Set(backend.NewComment{Author: "player", Email: "p@example.com", Body: "123456789", Rating: 5})

	err := form.Submit(context.Background())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"Comment must be at least 10 characters long"}, verr.Errors)
	assert.Equal(t, 0, mem.Calls("CreateComment"))
	assert.Equal(t, "123456789", form.Fields().Body)
}

func TestCommentFormSubmitClearsAndReloads(t *testing.T) {
	mem := seeded(t)
	var reloads atomic.Int32
	form := NewCommentForm(mem, "/game", func() { reloads.Add(1) })
	form.SetAuthor("player one")
	form.SetEmail("p1@example.com")
	form.SetBody("this game is a lot of fun")
	form.SetRating(4)

	require.NoError(t, form.Submit(context.Background()))
	assert.Equal(t, 1, mem.Calls("CreateComment"))
	assert.Equal(t, int32(1), reloads.Load())
	assert.Equal(t, backend.NewComment{Rating: DefaultRating}, form.Fields())

	stats, err := mem.GetStats(context.Background(), "/game")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalComments)
	assert.Equal(t, 1, stats.RatingDistribution[4])
}

func TestValidateComment(t *testing.T) {
	valid := backend.NewComment{Author: "玩家 one", Email: "a.b@c.io", Body: "ten chars!", Rating: 1}
	assert.NoError(t, ValidateComment(valid))

	bad := valid
	bad.Author = ""
	bad.Email = "nope"
	bad.Rating = 6
	err := ValidateComment(bad)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"Username cannot be empty", "Invalid email format", "Rating must be between 1 and 5"}, verr.Errors)
	assert.Contains(t, err.Error(), "Data validation failed: ")
}
