package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/njyeung/sprunki/backend"
	"github.com/njyeung/sprunki/comments"
	"github.com/njyeung/sprunki/fullscreen"
	"github.com/njyeung/sprunki/page"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Messages
type (
	loadedMsg     struct{ err error }
	actionDoneMsg struct{ err error }
	formOpenedMsg struct{ err error }
	submittedMsg  struct{ err error }
	toastMsg      page.Toast
	clearToastMsg struct{ seq int }
)

// State represents the app state
type state int

const (
	stateLoading state = iota
	stateBrowsing
	stateError
)

// Options wires the model to the widget state
type Options struct {
	Controller *page.Controller
	Toasts     *ToastQueue
	Device     fullscreen.Device
	Game       fullscreen.Surface // optional game page following fullscreen changes
	Debounce   time.Duration
	Logger     *zap.Logger
	OnQuit     func()
}

// Model is the Bubble Tea model
type Model struct {
	state    state
	ctx      context.Context
	ctrl     *page.Controller
	machine  *fullscreen.Machine
	screen   *Screen
	toasts   *ToastQueue
	panel    *CommentsPanel
	composer *Composer
	snap     page.Snapshot

	width   int
	height  int
	spinner spinner.Model
	err     error
	status  string

	toast    *page.Toast
	toastSeq int

	logger *zap.Logger
	onQuit func()
}

// NewModel creates a new TUI model
func NewModel(ctx context.Context, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Toasts == nil {
		opts.Toasts = NewToastQueue()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	screen := NewScreen(opts.Game)
	machine := fullscreen.New(screen, opts.Device, fullscreen.Options{
		Debounce: opts.Debounce,
		Logger:   opts.Logger,
	})

	return Model{
		state:    stateLoading,
		ctx:      ctx,
		ctrl:     opts.Controller,
		machine:  machine,
		screen:   screen,
		toasts:   opts.Toasts,
		panel:    NewCommentsPanel(),
		composer: NewComposer(),
		spinner:  s,
		status:   "Loading comments...",
		logger:   opts.Logger,
		onQuit:   opts.OnQuit,
	}
}

// Machine exposes the fullscreen state machine so a game page can feed it events
func (m Model) Machine() *fullscreen.Machine { return m.machine }

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.load,
		m.listenForToasts,
	)
}

func (m Model) load() tea.Msg {
	return loadedMsg{m.ctrl.Load(m.ctx)}
}

func (m Model) listenForToasts() tea.Msg {
	t, ok := <-m.toasts.C()
	if !ok {
		return nil
	}
	return toastMsg(t)
}

// run performs a controller call off the update loop
func (m Model) run(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{fn(m.ctx)}
	}
}

func (m Model) dispatch(ev page.Event) tea.Cmd {
	return m.run(func(ctx context.Context) error { return m.ctrl.Dispatch(ctx, ev) })
}

func (m Model) refresh() Model {
	m.snap = m.ctrl.Snapshot()
	m.panel.SetViews(m.snap.Views)
	return m
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || (msg.String() == "q" && !m.composer.Open()) {
			return m.quit()
		}
		if m.state == stateBrowsing {
			return m.updateBrowsing(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		m = m.refresh()
		if msg.err != nil && m.state == stateLoading && len(m.snap.Views) == 0 {
			m.state = stateError
			m.err = msg.err
			return m, nil
		}
		m.state = stateBrowsing
		m.status = ""
		m.machine.SetStarted(true)
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.logger.Debug("action failed", zap.Error(msg.err))
		}
		m = m.refresh()
		return m, nil

	case formOpenedMsg:
		m = m.refresh()
		if msg.err != nil {
			return m, nil
		}
		form, ok := m.ctrl.Forms().Current()
		if !ok {
			return m, nil
		}
		return m, m.composer.OpenReply(form)

	case submittedMsg:
		m = m.refresh()
		if msg.err == nil {
			m.composer.Close()
		}
		return m, nil

	case toastMsg:
		t := page.Toast(msg)
		m.toast = &t
		m.toastSeq++
		seq := m.toastSeq
		return m, tea.Batch(
			m.listenForToasts,
			tea.Tick(page.ToastDuration, func(time.Time) tea.Msg { return clearToastMsg{seq} }),
		)

	case clearToastMsg:
		if msg.seq == m.toastSeq {
			m.toast = nil
		}
		return m, nil
	}

	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if err := m.machine.ForceNormal(fullscreen.ReasonQuit); err != nil {
		m.logger.Warn("fullscreen exit on quit failed", zap.Error(err))
	}
	if m.onQuit != nil {
		m.onQuit()
	}
	return m, tea.Quit
}

func (m Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.composer.Open() {
		return m.updateComposer(msg)
	}

	switch msg.String() {
	case "j", "down":
		m.panel.Move(1)

	case "k", "up":
		m.panel.Move(-1)

	case "l":
		if sel, ok := m.panel.Selected(); ok {
			return m, m.dispatch(page.Event{Action: comments.ActionLike, CommentID: sel.CommentID, ReplyID: sel.ReplyID})
		}

	case "r":
		sel, ok := m.panel.Selected()
		if !ok {
			return m, nil
		}
		ev := page.Event{Action: comments.ActionReply, CommentID: sel.CommentID}
		if !sel.isComment() {
			ev = page.Event{Action: comments.ActionReplyToReply, CommentID: sel.CommentID, ReplyID: sel.ReplyID}
		}
		return m, func() tea.Msg {
			return formOpenedMsg{m.ctrl.Dispatch(m.ctx, ev)}
		}

	case "n":
		m.ctrl.Forms().Close()
		return m, m.composer.OpenComment(m.ctrl.CommentForm().Fields())

	case "s":
		next := backend.SortLikes
		if m.ctrl.Sort() == backend.SortLikes {
			next = backend.SortCreatedAt
		}
		return m, m.dispatch(page.Event{Action: comments.ActionSort, Value: next})

	case "m":
		if !m.snap.CanLoadMore {
			return m, nil
		}
		return m, m.dispatch(page.Event{Action: comments.ActionLoadMore})

	case "f":
		return m.toggleFullscreen(m.machine.Toggle)

	case "F":
		return m.toggleFullscreen(m.machine.ToggleNative)
	}

	return m, nil
}

func (m Model) updateComposer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.composer.IsReply() {
			if err := m.ctrl.Dispatch(m.ctx, page.Event{Action: comments.ActionCloseForm}); err != nil {
				m.logger.Warn("close form failed", zap.Error(err))
			}
		} else {
			m.ctrl.CommentForm().Set(m.composer.Comment())
		}
		m.composer.Close()
		m = m.refresh()
		return m, nil

	case "enter":
		return m, m.submit()
	}
	return m, m.composer.Update(msg)
}

func (m Model) submit() tea.Cmd {
	if m.composer.IsReply() {
		author, body := m.composer.Reply()
		forms := m.ctrl.Forms()
		if err := forms.SetAuthor(author); err != nil {
			return func() tea.Msg { return submittedMsg{err} }
		}
		if err := forms.SetBody(body); err != nil {
			return func() tea.Msg { return submittedMsg{err} }
		}
		return func() tea.Msg {
			return submittedMsg{m.ctrl.SubmitReply(m.ctx)}
		}
	}

	m.ctrl.CommentForm().Set(m.composer.Comment())
	return func() tea.Msg {
		return submittedMsg{m.ctrl.SubmitComment(m.ctx)}
	}
}

func (m Model) toggleFullscreen(toggle func() error) (tea.Model, tea.Cmd) {
	wasNative := m.screen.Mode() == fullscreen.Native
	if err := toggle(); err != nil {
		if !errors.Is(err, fullscreen.ErrDebounced) {
			m.toasts.Notify(page.Toast{Kind: page.ToastError, Message: err.Error()})
		}
		return m, nil
	}
	isNative := m.screen.Mode() == fullscreen.Native
	switch {
	case isNative && !wasNative:
		return m, tea.EnterAltScreen
	case wasNative && !isNative:
		return m, tea.ExitAltScreen
	}
	return m, nil
}

// View renders the UI
func (m Model) View() string {
	switch m.state {
	case stateLoading:
		return m.viewLoading()
	case stateError:
		return m.viewError()
	case stateBrowsing:
		return m.viewBrowsing()
	default:
		return ""
	}
}
