package tui

import (
	"strings"
	"testing"

	"github.com/njyeung/sprunki/comments"
	"github.com/stretchr/testify/assert"
)

func TestWrapByWidth(t *testing.T) {
	assert.Equal(t, []string{"abcd", "ef"}, wrapByWidth("abcdef", 4))
	assert.Equal(t, []string{"你好", "世界"}, wrapByWidth("你好世界", 4))
	assert.Equal(t, []string{""}, wrapByWidth("", 4))
}

func sampleViews() []comments.CommentView {
	return []comments.CommentView{
		{
			ID: "c1", Author: "alice", Body: "first comment", Rating: 4,
			Replies: []comments.ReplyView{
				{CommentID: "c1", ID: "r1", Author: "bob", Body: "@alice agreed", Mention: "alice", CanReply: true, Children: []comments.ReplyView{
					{CommentID: "c1", ID: "r2", Author: "carol", Body: "same", Depth: 1, CanReply: true},
				}},
			},
		},
		{ID: "c2", Author: "dave", Body: "second comment", Rating: 2},
	}
}

func TestPanelFlattensAndKeepsSelection(t *testing.T) {
	p := NewCommentsPanel()
	p.SetViews(sampleViews())
	assert.Equal(t, 4, p.Len())

	p.Move(2)
	sel, _ := p.Selected()
	assert.Equal(t, "r2", sel.ReplyID)
	assert.Equal(t, 2, sel.Depth)

	// c2 disappears, selection stays on r2
	p.SetViews(sampleViews()[:1])
	sel, _ = p.Selected()
	assert.Equal(t, "r2", sel.ReplyID)

	p.Move(10)
	sel, _ = p.Selected()
	assert.Equal(t, "r2", sel.ReplyID, "selection is clamped")
}

func TestPanelView(t *testing.T) {
	p := NewCommentsPanel()
	p.SetViews(sampleViews())

	out := p.View(80, 40)
	assert.Contains(t, out, "★★★★☆")
	assert.Contains(t, out, "@alice")
	assert.Contains(t, out, "    "+strings.Repeat(" ", 2*indentWidth)+"same")

	// only the selected row and its neighbours fit; the selection stays visible
	p.Move(3)
	small := p.View(80, 3)
	assert.Contains(t, small, "dave")
	assert.NotContains(t, small, "alice")

	assert.Contains(t, NewCommentsPanel().View(80, 10), "No comments yet")
}
