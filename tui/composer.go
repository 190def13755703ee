package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/njyeung/sprunki/backend"
	"github.com/njyeung/sprunki/comments"
)

type composeKind int

const (
	composeNone composeKind = iota
	composeComment
	composeReply
)

type field int

const (
	fieldAuthor field = iota
	fieldEmail
	fieldRating
	fieldBody
)

// Composer edits the new comment form or the open reply form
type Composer struct {
	kind   composeKind
	target string

	author textinput.Model
	email  textinput.Model
	body   textarea.Model
	rating int
	focus  field
}

func NewComposer() *Composer {
	author := textinput.New()
	author.Placeholder = "Your name"
	author.CharLimit = comments.MaxAuthorLen

	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = comments.MaxEmailLen

	body := textarea.New()
	body.Placeholder = "Share your thoughts..."
	body.CharLimit = comments.MaxBodyLen
	body.ShowLineNumbers = false
	body.SetHeight(4)
	body.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))

	return &Composer{
		author: author,
		email:  email,
		body:   body,
		rating: comments.DefaultRating,
	}
}

// Open reports whether a form is being edited
func (c *Composer) Open() bool { return c.kind != composeNone }

// IsReply reports whether the open form is a reply
func (c *Composer) IsReply() bool { return c.kind == composeReply }

// OpenComment starts editing the top-level comment form
func (c *Composer) OpenComment(fields backend.NewComment) tea.Cmd {
	c.kind = composeComment
	c.target = ""
	c.author.SetValue(fields.Author)
	c.email.SetValue(fields.Email)
	c.body.SetValue(fields.Body)
	c.rating = fields.Rating
	if c.rating < comments.MinRating || c.rating > comments.MaxRating {
		c.rating = comments.DefaultRating
	}
	return c.focusField(fieldAuthor)
}

// OpenReply starts editing a reply form opened by the form controller
func (c *Composer) OpenReply(form comments.ReplyForm) tea.Cmd {
	c.kind = composeReply
	c.target = form.Target.MentionedAuthor
	c.author.SetValue(form.Author)
	c.body.SetValue(form.Body)
	c.body.CursorEnd()
	return c.focusField(fieldBody)
}

func (c *Composer) Close() {
	c.kind = composeNone
	c.author.Blur()
	c.email.Blur()
	c.body.Blur()
}

func (c *Composer) fields() []field {
	if c.kind == composeReply {
		return []field{fieldAuthor, fieldBody}
	}
	return []field{fieldAuthor, fieldEmail, fieldRating, fieldBody}
}

func (c *Composer) focusField(f field) tea.Cmd {
	c.focus = f
	c.author.Blur()
	c.email.Blur()
	c.body.Blur()
	switch f {
	case fieldAuthor:
		return c.author.Focus()
	case fieldEmail:
		return c.email.Focus()
	case fieldBody:
		return c.body.Focus()
	}
	return nil
}

func (c *Composer) cycle(delta int) tea.Cmd {
	fields := c.fields()
	idx := 0
	for i, f := range fields {
		if f == c.focus {
			idx = i
		}
	}
	idx = (idx + delta + len(fields)) % len(fields)
	return c.focusField(fields[idx])
}

// Update handles keys while the composer is open. Enter and esc are
// handled by the model.
func (c *Composer) Update(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab":
		return c.cycle(1)
	case "shift+tab":
		return c.cycle(-1)
	}

	var cmd tea.Cmd
	switch c.focus {
	case fieldAuthor:
		c.author, cmd = c.author.Update(msg)
	case fieldEmail:
		c.email, cmd = c.email.Update(msg)
	case fieldBody:
		c.body, cmd = c.body.Update(msg)
	case fieldRating:
		switch s := msg.String(); s {
		case "left", "h", "-":
			c.rating = max(comments.MinRating, c.rating-1)
		case "right", "l", "+":
			c.rating = min(comments.MaxRating, c.rating+1)
		case "1", "2", "3", "4", "5":
			c.rating = int(s[0] - '0')
		}
	}
	return cmd
}

// Comment returns the top-level comment being edited
func (c *Composer) Comment() backend.NewComment {
	return backend.NewComment{
		Author: c.author.Value(),
		Email:  c.email.Value(),
		Body:   c.body.Value(),
		Rating: c.rating,
	}
}

// Reply returns the author and body of the reply being edited
func (c *Composer) Reply() (author, body string) {
	return c.author.Value(), c.body.Value()
}

func (c *Composer) View(width int) string {
	if !c.Open() {
		return ""
	}
	inner := max(width-4, 20)
	c.author.Width = inner - 10
	c.email.Width = inner - 10
	c.body.SetWidth(inner)

	title := "New comment"
	if c.kind == composeReply {
		title = "Reply"
		if c.target != "" {
			title = "Reply to @" + c.target
		}
	}

	lines := []string{titleStyle.Render(title)}
	lines = append(lines, c.label("Name", fieldAuthor)+c.author.View())
	if c.kind == composeComment {
		lines = append(lines, c.label("Email", fieldEmail)+c.email.View())
		lines = append(lines, c.label("Rating", fieldRating)+starStyle.Render(stars(c.rating)))
	}
	lines = append(lines, c.label("Message", fieldBody), c.body.View())
	lines = append(lines, navStyle.Render("tab: next field  enter: submit  alt+enter: newline  esc: cancel"))

	return formStyle.Width(inner).Render(strings.Join(lines, "\n"))
}

func (c *Composer) label(name string, f field) string {
	if c.focus == f {
		return selectedStyle.Width(8).Render(name)
	}
	return labelStyle.Render(name)
}
