package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"precedent/internal/domain"
	"precedent/internal/history"
	"precedent/internal/render"
	"precedent/internal/search"
	"precedent/internal/upload"
)

// Status lines shown by the shell.
const (
	ThinkingMessage  = "Thinking..."
	IdleMessage      = "Drag & drop project docs, meeting notes, or emails"
	UploadingMessage = "Analyzing decision nodes..."
	SuccessMessage   = "Ingestion Complete. Memory Updated."
	ErrorMessage     = "Upload Failed. Please try again."
	AllTeams         = "All Teams"
)

// SearchPort is the TUI-facing subset of the search controller.
type SearchPort interface {
	Submit(ctx context.Context, q domain.Query) ([]domain.SearchResult, error)
	Snapshot() search.State
}

// UploadPort is the TUI-facing subset of the upload controller.
type UploadPort interface {
	Drop(ctx context.Context, paths []string) (domain.UploadSession, error)
	Upload(ctx context.Context, path string) (domain.UploadSession, error)
	Session() domain.UploadSession
	DragEnter()
	DragLeave()
	Dragging() bool
	Extensions() []string
}

// HistoryPort is the TUI-facing subset of the history tracker.
type HistoryPort interface {
	Refresh(ctx context.Context) []domain.UploadedFileRecord
	Snapshot() history.Snapshot
}

// Deps are the components the shell drives.
type Deps struct {
	Search   SearchPort
	Upload   UploadPort
	History  HistoryPort
	Renderer render.Renderer
	Teams    []string
}

type tab int

const (
	tabSearch tab = iota
	tabIngest
)

var tabNames = [...]string{"Search Memory", "Ingest Data"}

type (
	searchDoneMsg struct{ err error }
	uploadDoneMsg struct {
		session domain.UploadSession
		err     error
	}
	uploadTransitionMsg domain.UploadSession
	historyMsg          history.Snapshot
)

// Model is the Bubble Tea model for the two-tab shell. Business state lives
// in the controllers; the model keeps the active tab and the last snapshot
// of each controller for rendering.
type Model struct {
	ctx      context.Context
	search   SearchPort
	upload   UploadPort
	history  HistoryPort
	renderer render.Renderer

	tab      tab
	teams    []string
	teamIdx  int
	query    textinput.Model
	drop     textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	picker   filepicker.Model
	picking  bool
	spinning bool

	searchState search.State
	session     domain.UploadSession
	files       history.Snapshot
	notice      string
	ready       bool
}

// New creates the shell. A nil ctx means context.Background.
func New(ctx context.Context, d Deps) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	q := textinput.New()
	q.Prompt = "> "
	q.Placeholder = "Why did we choose Postgres?"
	q.CharLimit = 0
	q.Focus()

	dz := textinput.New()
	dz.Prompt = "+ "
	dz.Placeholder = "Paste or drop a file path and press Enter"
	dz.CharLimit = 0

	fp := filepicker.New()
	fp.AllowedTypes = d.Upload.Extensions()
	fp.AutoHeight = false
	fp.Height = 10
	if wd, err := os.Getwd(); err == nil {
		fp.CurrentDirectory = wd
	}

	return Model{
		ctx:      ctx,
		search:   d.Search,
		upload:   d.Upload,
		history:  d.History,
		renderer: d.Renderer,
		teams:    append([]string{AllTeams}, d.Teams...),
		query:    q,
		drop:     dz,
		viewport: viewport.New(0, 0),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		picker:   fp,
		session:  d.Upload.Session(),
		files:    d.History.Snapshot(),
	}
}

// Init starts the cursor blink and loads the upload history.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.refreshHistory())
}

// Update handles key, window and controller events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg), nil
	case searchDoneMsg:
		m.searchState = m.search.Snapshot()
		m.renderer.Query = m.searchState.Query
		m.viewport.SetContent(m.resultsContent())
		m.viewport.GotoTop()
		return m, nil
	case uploadTransitionMsg:
		m.session = domain.UploadSession(msg)
		return m.startSpinner()
	case uploadDoneMsg:
		if !errors.Is(msg.err, upload.ErrNoFile) {
			m.session = msg.session
		}
		return m, nil
	case historyMsg:
		m.files = history.Snapshot(msg)
		return m, nil
	case spinner.TickMsg:
		if !m.busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m.forward(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.picking {
		return m.handlePickerKey(msg)
	}
	if msg.Type == tea.KeyTab || msg.Type == tea.KeyShiftTab {
		return m.switchTab()
	}
	if m.tab == tabSearch {
		return m.handleSearchKey(msg)
	}
	return m.handleIngestKey(msg)
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return m.submit()
	case "ctrl+f":
		m.teamIdx = (m.teamIdx + 1) % len(m.teams)
		return m, nil
	case "up":
		m.viewport.LineUp(1)
		return m, nil
	case "down":
		m.viewport.LineDown(1)
		return m, nil
	case "pgup":
		m.viewport.ViewUp()
		return m, nil
	case "pgdown":
		m.viewport.ViewDown()
		return m, nil
	}
	var cmd tea.Cmd
	m.query, cmd = m.query.Update(msg)
	return m, cmd
}

func (m Model) handleIngestKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return m.dropPaths()
	case "ctrl+o":
		m.picking = true
		m.notice = ""
		return m, m.picker.Init()
	}
	var cmd tea.Cmd
	m.drop, cmd = m.drop.Update(msg)
	if strings.TrimSpace(m.drop.Value()) != "" {
		m.upload.DragEnter()
	} else {
		m.upload.DragLeave()
	}
	return m, cmd
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		m.picking = false
		return m, nil
	}
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.picking = false
		up, ctx := m.upload, m.ctx
		return m.startUpload(path, func() (domain.UploadSession, error) { return up.Upload(ctx, path) })
	}
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		m.notice = fmt.Sprintf("%s is not one of %s", filepath.Base(path), strings.Join(m.upload.Extensions(), ", "))
	}
	return m, cmd
}

func (m Model) switchTab() (tea.Model, tea.Cmd) {
	if m.tab == tabSearch {
		m.tab = tabIngest
		m.query.Blur()
		return m, m.drop.Focus()
	}
	m.tab = tabSearch
	m.drop.Blur()
	m.upload.DragLeave()
	return m, m.query.Focus()
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	q := domain.Query{Text: m.query.Value(), TeamFilter: m.teamFilter()}
	if q.Blank() {
		return m, nil
	}
	m.searchState.InFlight = true
	if m.searchState.Outcome == search.OutcomeFailed {
		m.searchState.Outcome = search.OutcomeNone
		m.searchState.Message = ""
	}
	s, ctx := m.search, m.ctx
	run := func() tea.Msg {
		_, err := s.Submit(ctx, q)
		return searchDoneMsg{err: err}
	}
	m, spin := m.startSpinner()
	return m, tea.Batch(run, spin)
}

func (m Model) dropPaths() (tea.Model, tea.Cmd) {
	paths := splitPaths(m.drop.Value())
	m.drop.Reset()
	m.upload.DragLeave()
	if len(paths) == 0 {
		return m, nil
	}
	m.notice = ""
	if len(paths) > 1 {
		m.notice = fmt.Sprintf("%d files dropped; only %s is uploaded.", len(paths), filepath.Base(paths[0]))
	}
	up, ctx := m.upload, m.ctx
	return m.startUpload(paths[0], func() (domain.UploadSession, error) { return up.Drop(ctx, paths) })
}

func (m Model) startUpload(file string, run func() (domain.UploadSession, error)) (tea.Model, tea.Cmd) {
	if m.session.Status == domain.UploadUploading {
		return m, nil
	}
	m.session = domain.UploadSession{Status: domain.UploadUploading, File: file}
	cmd := func() tea.Msg {
		s, err := run()
		return uploadDoneMsg{session: s, err: err}
	}
	m, spin := m.startSpinner()
	return m, tea.Batch(cmd, spin)
}

func (m Model) refreshHistory() tea.Cmd {
	h, ctx := m.history, m.ctx
	return func() tea.Msg {
		h.Refresh(ctx)
		return historyMsg(h.Snapshot())
	}
}

func (m Model) startSpinner() (Model, tea.Cmd) {
	if m.spinning || !m.busy() {
		return m, nil
	}
	m.spinning = true
	return m, m.spinner.Tick
}

// forward hands everything else (cursor blinks, directory listings) to the sub-models.
func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	if m.picking {
		m.picker, cmd = m.picker.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.query, cmd = m.query.Update(msg)
	cmds = append(cmds, cmd)
	m.drop, cmd = m.drop.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) resize(msg tea.WindowSizeMsg) Model {
	m.ready = true
	rw, rh := resultBoxStyle.GetFrameSize()
	_, qh := queryBoxStyle.GetFrameSize()
	reserved := 2 + 1 + 1 + qh + 1 // header, tabs, status, query box, help
	m.viewport.Width = max(20, msg.Width-rw)
	m.viewport.Height = max(3, msg.Height-reserved-rh)
	m.query.Width = max(10, msg.Width-rw-len(m.teamFilterLabel())-6)
	m.drop.Width = max(10, msg.Width-12)
	m.picker.Height = max(5, msg.Height-8)
	m.renderer.Width = m.viewport.Width
	m.viewport.SetContent(m.resultsContent())
	return m
}

func (m Model) busy() bool {
	return m.searchState.InFlight || m.session.Status == domain.UploadUploading
}

func (m Model) teamFilter() string {
	if m.teamIdx == 0 {
		return ""
	}
	return m.teams[m.teamIdx]
}

func (m Model) teamFilterLabel() string { return m.teams[m.teamIdx] }

func (m Model) resultsContent() string {
	s := m.searchState
	switch s.Outcome {
	case search.OutcomeFailed:
		return errorStyle.Render(s.Message)
	case search.OutcomeEmpty:
		return infoStyle.Render(s.Message)
	case search.OutcomeResults:
		return m.renderer.Cards(s.Results)
	default:
		return subtleStyle.Render("Ask about a past decision, the memory answers with the records behind it.")
	}
}

// View renders the active tab.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Precedent") + "  " + subtleStyle.Render("institutional memory")
	var body, help string
	if m.tab == tabSearch {
		body = m.searchView()
		help = "tab switch · enter search · ctrl+f team · ↑/↓ pgup/pgdown scroll · ctrl+c quit"
	} else {
		body = m.ingestView()
		help = "tab switch · enter upload · ctrl+o browse · esc close browser · ctrl+c quit"
	}
	return header + "\n" + m.tabsView() + "\n" + body + "\n" + subtleStyle.Render(help)
}

func (m Model) tabsView() string {
	out := make([]string, 0, len(tabNames))
	for i, name := range tabNames {
		if tab(i) == m.tab {
			out = append(out, activeTabStyle.Render(name))
		} else {
			out = append(out, inactiveTabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, out...)
}

func (m Model) searchView() string {
	input := queryBoxStyle.Render(m.query.View() + "  " + filterStyle.Render(m.teamFilterLabel()))
	results := resultBoxStyle.Render(m.viewport.View())
	status := ""
	if m.searchState.InFlight {
		status = m.spinner.View() + " " + ThinkingMessage
	}
	return input + "\n" + results + "\n" + status
}

func (m Model) ingestView() string {
	if m.picking {
		return pickerBoxStyle.Render(subtleStyle.Render("Choose a file") + "\n" + m.picker.View())
	}
	zone := dropZoneStyle
	if m.upload.Dragging() {
		zone = draggingStyle
	}
	out := zone.Render(m.drop.View() + "\n\n" + m.statusBlock())
	if m.notice != "" {
		out += "\n" + infoStyle.Render(m.notice)
	}
	if m.files.Visible() {
		out += "\n\n" + render.History(m.files.Files)
	}
	return out
}

func (m Model) statusBlock() string {
	s := m.session
	switch s.Status {
	case domain.UploadUploading:
		return m.spinner.View() + " " + UploadingMessage + "\n" + subtleStyle.Render(filepath.Base(s.File))
	case domain.UploadSuccess:
		return successStyle.Render(SuccessMessage) + "\n" + subtleStyle.Render(filepath.Base(s.File))
	case domain.UploadError:
		out := errorStyle.Render(ErrorMessage)
		if s.Err != nil {
			out += "\n" + subtleStyle.Render(s.Err.Error())
		}
		return out
	default:
		return IdleMessage + "\n" + subtleStyle.Render("Accepted: "+strings.Join(m.upload.Extensions(), ", ")+" · ctrl+o to browse")
	}
}
