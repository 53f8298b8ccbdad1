package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/lvyanru/chatctl/internal/cli/chat"
	"github.com/lvyanru/chatctl/internal/cli/notify"
	"github.com/lvyanru/chatctl/internal/domain"
)

// UI configuration constants
const (
	defaultInputWidth     = 100
	defaultViewportWidth  = 100
	defaultViewportHeight = 30
	defaultWindowWidth    = 100
	defaultWindowHeight   = 40
	inputCharLimit        = 4000
	inputHeightReserved   = 2
	statusHeightReserved  = 3
	toastHeightReserved   = 2
	minContentHeight      = 10
	toastPollInterval     = 500 * time.Millisecond
)

var (
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boldStyle    = lipgloss.NewStyle().Bold(true)
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// Options configures the chat program
type Options struct {
	Controller    *chat.Controller
	Notifications *notify.Presenter
	// Wakeups must be the observer the controller was built with
	Wakeups *Wakeups

	RefreshInterval  time.Duration
	RefreshAfterSend bool
	Markdown         bool
	Logger           *zap.Logger
}

// Wakeups coalesces controller events into redraw requests. The model
// re-reads the controller snapshot on every wakeup, so dropped duplicates
// lose nothing.
type Wakeups struct {
	ch chan struct{}
}

// NewWakeups creates an empty wakeup channel
func NewWakeups() *Wakeups {
	return &Wakeups{ch: make(chan struct{}, 1)}
}

// Observe is a chat.Options.Observer
func (w *Wakeups) Observe(chat.Event) { w.poke() }

// OnToast is a notify.Presenter.OnToast hook
func (w *Wakeups) OnToast(notify.Toast) { w.poke() }

func (w *Wakeups) poke() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

// ChatProgram encapsulates the chat TUI program
type ChatProgram struct {
	model chatModel
}

// NewChatProgram creates a new chat program instance
func NewChatProgram(opts Options) *ChatProgram {
	return &ChatProgram{model: initialModel(opts)}
}

// Run starts the chat TUI program. It returns domain.ErrNotLoggedIn when
// the session ended while chatting.
func (p *ChatProgram) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.model.ctx = ctx

	program := tea.NewProgram(p.model, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(chatModel); ok && m.sessionEnded {
		return domain.ErrNotLoggedIn
	}
	return nil
}

// chatModel is the Bubble Tea model; the conversation itself lives in the controller
type chatModel struct {
	ctrl     *chat.Controller
	notes    *notify.Presenter
	wake     <-chan struct{}
	logger   *zap.Logger
	ctx      context.Context
	interval time.Duration

	refreshAfterSend bool
	markdown         bool

	// UI components
	input       textinput.Model
	contentView viewport.Model
	renderer    *glamour.TermRenderer
	rendered    map[string]string

	view         chat.View
	sending      bool // a submit was dispatched and has not returned yet
	sessionEnded bool

	// Window dimensions
	width  int
	height int
}

// initialModel creates the initial chat model
func initialModel(opts Options) chatModel {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.Focus()
	input.CharLimit = inputCharLimit
	input.Width = defaultInputWidth
	input.Prompt = ""
	input.TextStyle = lipgloss.NewStyle()
	input.PromptStyle = lipgloss.NewStyle()

	contentViewport := viewport.New(defaultViewportWidth, defaultViewportHeight)
	contentViewport.SetContent("")

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	wakeups := opts.Wakeups
	if wakeups == nil {
		wakeups = NewWakeups()
	}
	notes := opts.Notifications
	if notes == nil {
		notes = notify.NewPresenter(nil, notify.DefaultToastDuration, logger)
	}

	m := chatModel{
		ctrl:             opts.Controller,
		notes:            notes,
		wake:             wakeups.ch,
		logger:           logger,
		ctx:              context.Background(),
		interval:         opts.RefreshInterval,
		refreshAfterSend: opts.RefreshAfterSend,
		markdown:         opts.Markdown,
		input:            input,
		contentView:      contentViewport,
		rendered:         make(map[string]string),
		width:            defaultWindowWidth,
		height:           defaultWindowHeight,
	}
	m.view = m.ctrl.Snapshot()
	m.buildRenderer()
	m.refreshContent()
	return m
}

// Init initializes the model (Bubble Tea interface)
func (m chatModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		waitForWake(m.wake),
		m.loadHistory(),
		m.syncNotifications(),
		m.refresh(),
		m.scheduleRefresh(),
		toastTick(),
	)
}

// Message type definitions
type (
	wakeMsg      struct{}
	sendDoneMsg  struct{ err error }
	refreshMsg   struct{ err error }
	refreshTick  struct{}
	toastTickMsg struct{}
	historyMsg   struct{ err error }
	notesMsg     struct{ err error }
)

// Update processes messages and updates the model (Bubble Tea interface)
func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyPress(msg)...)

	case tea.WindowSizeMsg:
		m.handleWindowResize(msg)

	case wakeMsg:
		m.sync()
		cmds = append(cmds, waitForWake(m.wake))

	case sendDoneMsg:
		m.sending = false
		m.sync()
		if msg.err == nil && m.refreshAfterSend {
			cmds = append(cmds, m.refresh())
		}

	case refreshMsg, historyMsg, notesMsg:
		m.sync()

	case refreshTick:
		cmds = append(cmds, m.refresh(), m.scheduleRefresh())

	case toastTickMsg:
		m.refreshContent()
		cmds = append(cmds, toastTick())
	}

	if m.sessionEnded {
		return m, tea.Quit
	}

	// input is disabled while a reply is being produced
	if !m.busy() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleKeyPress handles keyboard input
func (m *chatModel) handleKeyPress(msg tea.KeyMsg) []tea.Cmd {
	var cmds []tea.Cmd

	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		cmds = append(cmds, tea.Quit)

	case tea.KeyEnter:
		if m.busy() {
			break
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			break
		}
		m.input.Reset()
		m.sending = true
		cmds = append(cmds, m.submit(text))

	case tea.KeyUp:
		m.contentView.LineUp(1)

	case tea.KeyDown:
		m.contentView.LineDown(1)

	case tea.KeyPgUp:
		m.contentView.ViewUp()

	case tea.KeyPgDown:
		m.contentView.ViewDown()
	}

	return cmds
}

// handleWindowResize handles window size changes
func (m *chatModel) handleWindowResize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height

	contentHeight := msg.Height - inputHeightReserved - statusHeightReserved - toastHeightReserved
	if contentHeight < minContentHeight {
		contentHeight = minContentHeight
	}

	m.contentView.Width = msg.Width
	m.contentView.Height = contentHeight
	m.input.Width = msg.Width - 3

	m.buildRenderer()
	m.refreshContent()
}

func (m *chatModel) buildRenderer() {
	m.rendered = make(map[string]string)
	if !m.markdown {
		m.renderer = nil
		return
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(m.width-4),
	)
	if err != nil {
		m.logger.Warn("markdown renderer unavailable", zap.Error(err))
		m.renderer = nil
		return
	}
	m.renderer = r
}

// busy reports whether a message is on its way. The snapshot lags behind a
// dispatched submit, so the local flag covers the gap.
func (m chatModel) busy() bool {
	return m.sending || m.view.State == chat.StateSending
}

// sync pulls a fresh snapshot from the controller
func (m *chatModel) sync() {
	m.view = m.ctrl.Snapshot()
	if !m.view.LoggedIn {
		m.sessionEnded = true
	}
	m.refreshContent()
}

func (m chatModel) submit(text string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return sendDoneMsg{err: ctrl.Submit(ctx, text)}
	}
}

func (m chatModel) refresh() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return refreshMsg{err: ctrl.Refresh(ctx)}
	}
}

func (m chatModel) loadHistory() tea.Cmd {
	ctrl, ctx, logger := m.ctrl, m.ctx, m.logger
	return func() tea.Msg {
		err := ctrl.LoadHistory(ctx)
		if err != nil {
			logger.Warn("failed to load chat history", zap.Error(err))
		}
		return historyMsg{err: err}
	}
}

func (m chatModel) syncNotifications() tea.Cmd {
	notes, ctx, ctrl := m.notes, m.ctx, m.ctrl
	return func() tea.Msg {
		sess := ctrl.Session()
		if sess == nil {
			return notesMsg{}
		}
		err := notes.Sync(ctx, sess.Token)
		if domain.IsAuthExpired(err) {
			ctrl.SessionExpired(ctx, "notifications rejected with 401")
		}
		return notesMsg{err: err}
	}
}

func (m chatModel) scheduleRefresh() tea.Cmd {
	if m.interval <= 0 {
		return nil
	}
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return refreshTick{} })
}

func toastTick() tea.Cmd {
	return tea.Tick(toastPollInterval, func(time.Time) tea.Msg { return toastTickMsg{} })
}

// waitForWake blocks until the controller or the presenter changed something
func waitForWake(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return wakeMsg{}
	}
}

// refreshContent refreshes the display content
func (m *chatModel) refreshContent() {
	var b strings.Builder
	for _, e := range m.view.Entries {
		b.WriteString(m.renderEntry(e))
	}
	if m.view.Live != nil {
		b.WriteString("\n")
		b.WriteString(accentStyle.Render("AI"))
		b.WriteString("\n")
		b.WriteString(m.view.Live.Content)
		b.WriteString(dimStyle.Render("▌"))
		b.WriteString("\n")
	}

	display := b.String()
	if m.width > 0 {
		display = m.wrapText(display, m.width)
	}

	m.contentView.SetContent(display)
	m.contentView.GotoBottom()
}

func (m *chatModel) renderEntry(e chat.Entry) string {
	switch e.Kind {
	case chat.KindUser:
		return "\n" + boldStyle.Render("You") + "\n" + e.Content + "\n"
	case chat.KindAssistant:
		return "\n" + accentStyle.Render("AI") + "\n" + m.markdownOf(e) + "\n"
	case chat.KindPending:
		return "\n" + dimStyle.Render(e.Content) + "\n"
	case chat.KindStatus:
		if e.Level == chat.StatusError {
			return "\n" + errorStyle.Render(e.Content) + "\n"
		}
		return "\n" + dimStyle.Render(e.Content) + "\n"
	}
	return ""
}

// markdownOf renders a finalized assistant turn once and caches it
func (m *chatModel) markdownOf(e chat.Entry) string {
	if m.renderer == nil {
		return e.Content
	}
	if out, ok := m.rendered[e.ID]; ok {
		return out
	}
	out, err := m.renderer.Render(e.Content)
	if err != nil {
		m.logger.Debug("markdown render failed", zap.Error(err))
		out = e.Content
	}
	out = strings.Trim(out, "\n")
	m.rendered[e.ID] = out
	return out
}

// wrapText applies auto-wrapping to text, correctly handling wide character widths
func (m *chatModel) wrapText(text string, maxWidth int) string {
	if maxWidth <= 10 {
		return text
	}

	lines := strings.Split(text, "\n")
	var result strings.Builder

	for i, line := range lines {
		if i > 0 {
			result.WriteString("\n")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		result.WriteString(wrapLine(line, maxWidth))
	}

	return result.String()
}

// wrapLine wraps a single line of text, correctly handling wide character widths.
// Lines carrying ANSI styling are left to the terminal.
func wrapLine(line string, maxWidth int) string {
	if strings.Contains(line, "\x1b[") || runewidth.StringWidth(line) <= maxWidth {
		return line
	}

	var result strings.Builder
	var currentLine strings.Builder
	currentWidth := 0

	for _, r := range line {
		runeW := runewidth.RuneWidth(r)

		if currentWidth+runeW > maxWidth && currentWidth > 0 {
			result.WriteString(currentLine.String())
			result.WriteString("\n")
			currentLine.Reset()
			currentWidth = 0
		}

		currentLine.WriteRune(r)
		currentWidth += runeW
	}

	if currentLine.Len() > 0 {
		result.WriteString(currentLine.String())
	}

	return result.String()
}

// statusBar shows who is chatting, the credit balance and the unread badge
func (m chatModel) statusBar() string {
	credits := fmt.Sprintf("%d credits", m.view.Credits)
	if m.view.Credits <= 0 {
		credits = warningStyle.Render(credits)
	} else {
		credits = dimStyle.Render(credits)
	}

	status := dimStyle.Render(m.view.Username+" • ") + credits
	if n := m.notes.Unread(); n > 0 {
		status += dimStyle.Render(" • ") + warningStyle.Render(fmt.Sprintf("🔔 %d", n))
	}
	if m.view.State == chat.StateSending {
		status += dimStyle.Render(" • generating...")
	}
	return status
}

func (m chatModel) toasts() string {
	active := m.notes.Active(time.Now())
	if len(active) == 0 {
		return ""
	}
	lines := make([]string, 0, len(active))
	for _, t := range active {
		switch t.Level {
		case notify.LevelError:
			lines = append(lines, errorStyle.Render("✗ "+t.Message))
		case notify.LevelWarning:
			lines = append(lines, warningStyle.Render("⚠ "+t.Message))
		case notify.LevelSuccess:
			lines = append(lines, successStyle.Render("✓ "+t.Message))
		default:
			lines = append(lines, accentStyle.Render("ℹ "+t.Message))
		}
	}
	return strings.Join(lines, "\n")
}

// View renders the UI (Bubble Tea interface)
func (m chatModel) View() string {
	content := m.contentView.View()

	var inputView string
	if m.busy() {
		inputView = dimStyle.Render("> ") + dimStyle.Render("Waiting for the reply...")
	} else {
		inputView = promptStyle.Render("> ") + m.input.View()
	}

	help := ""
	if !m.busy() {
		help = dimStyle.Render("Enter send • ↑↓ scroll • Esc quit")
	}

	parts := []string{m.statusBar(), "", content}
	if toasts := m.toasts(); toasts != "" {
		parts = append(parts, toasts)
	}
	parts = append(parts, "", inputView)
	if help != "" {
		parts = append(parts, help)
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
