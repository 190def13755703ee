package tui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/njyeung/sprunki/comments"
)

const indentWidth = 2

// row is one selectable line group: a comment or a reply
type row struct {
	CommentID string
	ReplyID   string // empty for the comment itself
	Depth     int    // 0 for comments, reply depth + 1 for replies
	Author    string
	Mention   string
	Body      string
	Rating    int
	Likes     int
	Liked     bool
	Ago       string
	CanReply  bool
}

func (r row) isComment() bool { return r.ReplyID == "" }

// CommentsPanel flattens the view tree into rows and keeps a selection
type CommentsPanel struct {
	rows     []row
	selected int
	scroll   int
}

func NewCommentsPanel() *CommentsPanel {
	return &CommentsPanel{}
}

// SetViews replaces the rows, keeping the selection on the same item when
// it is still present
func (cp *CommentsPanel) SetViews(views []comments.CommentView) {
	prev, hadPrev := cp.Selected()

	cp.rows = cp.rows[:0]
	for _, v := range views {
		cp.rows = append(cp.rows, row{
			CommentID: v.ID,
			Author:    v.Author,
			Body:      v.Body,
			Rating:    v.Rating,
			Likes:     v.Likes,
			Liked:     v.Liked,
			Ago:       v.Ago,
			CanReply:  true,
		})
		cp.appendReplies(v.Replies)
	}

	cp.selected = 0
	if hadPrev {
		for i, r := range cp.rows {
			if r.CommentID == prev.CommentID && r.ReplyID == prev.ReplyID {
				cp.selected = i
				break
			}
		}
	}
	cp.clamp()
}

func (cp *CommentsPanel) appendReplies(replies []comments.ReplyView) {
	for _, r := range replies {
		cp.rows = append(cp.rows, row{
			CommentID: r.CommentID,
			ReplyID:   r.ID,
			Depth:     r.Depth + 1,
			Author:    r.Author,
			Mention:   r.Mention,
			Body:      r.Body,
			Likes:     r.Likes,
			Liked:     r.Liked,
			Ago:       r.Ago,
			CanReply:  r.CanReply,
		})
		cp.appendReplies(r.Children)
	}
}

// Len is the number of rows
func (cp *CommentsPanel) Len() int { return len(cp.rows) }

// Selected returns the highlighted row
func (cp *CommentsPanel) Selected() (row, bool) {
	if cp.selected < 0 || cp.selected >= len(cp.rows) {
		return row{}, false
	}
	return cp.rows[cp.selected], true
}

// Move shifts the selection by delta rows
func (cp *CommentsPanel) Move(delta int) {
	cp.selected += delta
	cp.clamp()
}

func (cp *CommentsPanel) clamp() {
	cp.selected = max(0, min(cp.selected, len(cp.rows)-1))
	if cp.scroll > cp.selected {
		cp.scroll = cp.selected
	}
	cp.scroll = max(0, min(cp.scroll, len(cp.rows)-1))
}

func (cp *CommentsPanel) rowLines(r row, selected bool, width int) []string {
	indent := strings.Repeat(" ", r.Depth*indentWidth)

	cursor := "  "
	name := authorStyle.Render(r.Author)
	if selected {
		cursor = selectedStyle.Render("▸ ")
		name = selectedStyle.Render(r.Author)
	}

	meta := []string{}
	if r.isComment() {
		meta = append(meta, starStyle.Render(stars(r.Rating)))
	}
	meta = append(meta, metaStyle.Render(r.Ago))

	heart := "♡"
	if r.Liked {
		heart = heartStyle.Render("♥")
	}
	meta = append(meta, heart+" "+metaStyle.Render(fmt.Sprint(r.Likes)))
	if r.CanReply {
		meta = append(meta, metaStyle.Render("↩"))
	}

	lines := []string{indent + cursor + name + "  " + strings.Join(meta, metaStyle.Render(" · "))}

	text := strings.ReplaceAll(r.Body, "\n", " ")
	bodyIndent := indent + "    "
	avail := max(width-runewidth.StringWidth(bodyIndent), 10)
	for i, line := range wrapByWidth(text, avail) {
		if i == 0 && r.Mention != "" {
			rest := strings.TrimPrefix(line, "@"+r.Mention)
			if rest != line {
				lines = append(lines, bodyIndent+mentionStyle.Render("@"+r.Mention)+bodyStyle.Render(rest))
				continue
			}
		}
		lines = append(lines, bodyIndent+bodyStyle.Render(line))
	}
	return lines
}

// View renders as many rows as fit into height lines, scrolled so the
// selection is visible
func (cp *CommentsPanel) View(width, height int) string {
	if len(cp.rows) == 0 {
		return metaStyle.Render("No comments yet. Press n to write the first one.")
	}
	if height < 1 {
		return ""
	}

	// scroll forward until the selected row fits
	for cp.scroll < cp.selected {
		used := 0
		for i := cp.scroll; i <= cp.selected; i++ {
			used += len(cp.rowLines(cp.rows[i], i == cp.selected, width)) + 1
		}
		if used <= height {
			break
		}
		cp.scroll++
	}

	var out []string
	for i := cp.scroll; i < len(cp.rows); i++ {
		lines := cp.rowLines(cp.rows[i], i == cp.selected, width)
		if len(out)+len(lines) > height {
			if len(out) == 0 {
				out = append(out, lines[:height]...)
			}
			break
		}
		out = append(out, lines...)
		if len(out) < height {
			out = append(out, "")
		}
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}

func stars(rating int) string {
	rating = max(0, min(rating, 5))
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

// wrapByWidth splits s into lines of at most width terminal cells
func wrapByWidth(s string, width int) []string {
	if width < 1 {
		width = 1
	}
	var lines []string
	var cur strings.Builder
	w := 0
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if w+rw > width && w > 0 {
			lines = append(lines, cur.String())
			cur.Reset()
			w = 0
		}
		cur.WriteRune(r)
		w += rw
	}
	if cur.Len() > 0 || len(lines) == 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
