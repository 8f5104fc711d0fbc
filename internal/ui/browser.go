package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	lexerrors "github.com/Aman-CERP/lexsearch/internal/errors"
	"github.com/Aman-CERP/lexsearch/internal/search"
	"github.com/Aman-CERP/lexsearch/pkg/searcher"
)

// FieldModes are the fields the browser cycles through with tab.
var FieldModes = searcher.AllFields

const statusInterval = 150 * time.Millisecond

// Poster delivers engine callbacks into a running bubbletea program, so
// completion handlers run inside Update on the program's goroutine.
// Callbacks posted before Attach or after Detach are dropped.
type Poster struct {
	mu      sync.Mutex
	program *tea.Program
}

// NewPoster creates a detached Poster.
func NewPoster() *Poster {
	return &Poster{}
}

// Attach starts delivering callbacks to p.
func (p *Poster) Attach(program *tea.Program) {
	p.mu.Lock()
	p.program = program
	p.mu.Unlock()
}

// Detach stops delivery.
func (p *Poster) Detach() {
	p.Attach(nil)
}

// Post implements async.Poster.
func (p *Poster) Post(fn func()) bool {
	p.mu.Lock()
	program := p.program
	p.mu.Unlock()
	if program == nil {
		return false
	}
	program.Send(postedMsg{fn: fn})
	return true
}

// BrowserOptions configures the browser.
type BrowserOptions struct {
	// Watch reloads the lexicon when its file changes.
	Watch bool
	// InitialQuery is typed into the prompt at startup.
	InitialQuery string
	Logger       *slog.Logger
}

// Browser is the interactive lexicon search. Every keystroke starts an
// asynchronous search on the main engine; only the results for the text
// currently in the prompt are shown.
type Browser struct {
	searcher *searcher.Searcher
	poster   *Poster
	cfg      Config
	opts     BrowserOptions
}

// NewBrowser creates a browser. s must have been created with poster as
// its searcher.WithPoster option.
func NewBrowser(s *searcher.Searcher, poster *Poster, cfg Config, opts BrowserOptions) *Browser {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Browser{searcher: s, poster: poster, cfg: cfg, opts: opts}
}

// Run shows the browser until the user quits or ctx is done.
func (b *Browser) Run(ctx context.Context) error {
	if !b.cfg.Interactive() {
		return errors.New("browser requires an interactive terminal")
	}

	m, err := newBrowserModel(b.searcher, b.cfg.Styles(), b.opts.InitialQuery)
	if err != nil {
		return err
	}
	defer m.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx), tea.WithOutput(b.cfg.Output))
	b.poster.Attach(program)
	defer b.poster.Detach()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})
	if b.opts.Watch && b.searcher.Path() != "" {
		g.Go(func() error {
			err := b.searcher.Watch(gctx, func(changes int) {
				program.Send(reloadedMsg{changes: changes})
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				b.opts.Logger.Warn("browser_watch_stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}
	return g.Wait()
}

type (
	postedMsg     struct{ fn func() }
	reloadedMsg   struct{ changes int }
	reloadFailMsg struct{ err error }
	statusTickMsg time.Time
)

type browserModel struct {
	searcher *searcher.Searcher
	engine   *search.Engine
	remove   func()

	input   textinput.Model
	spinner spinner.Model
	bar     progress.Model
	styles  Styles

	field     int
	query     searcher.Query
	fields    []search.SearchField
	submitted time.Time
	pending   bool

	hits     []searcher.Hit
	total    int
	selected int
	expanded bool
	latency  *Sparkline
	status   search.Status
	notice   string
	err      error

	width  int
	height int
}

func newBrowserModel(s *searcher.Searcher, styles Styles, initial string) (*browserModel, error) {
	engine, err := s.Engine(0)
	if err != nil {
		return nil, err
	}

	in := textinput.New()
	in.Prompt = "> "
	in.Placeholder = "type to search"
	in.PromptStyle = styles.Prompt
	in.SetValue(initial)
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Busy

	m := &browserModel{
		searcher: s,
		engine:   engine,
		input:    in,
		spinner:  sp,
		bar: progress.New(
			progress.WithSolidFill(ColorLime),
			progress.WithWidth(20),
			progress.WithoutPercentage(),
		),
		styles:  styles,
		latency: NewSparkline(30),
		width:   80,
		height:  24,
	}
	m.remove = engine.OnSearchCompleted(m.completed)
	return m, nil
}

func (m *browserModel) close() {
	if m.remove != nil {
		m.remove()
	}
}

// Init implements tea.Model.
func (m *browserModel) Init() tea.Cmd {
	m.submit()
	return tea.Batch(textinput.Blink, m.spinner.Tick, statusTick())
}

func statusTick() tea.Cmd {
	return tea.Tick(statusInterval, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

// Update implements tea.Model.
func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case postedMsg:
		msg.fn()
		return m, nil

	case reloadedMsg:
		if msg.changes > 0 {
			m.notice = fmt.Sprintf("reloaded: %d changes", msg.changes)
			m.submit()
		}
		return m, nil

	case reloadFailMsg:
		m.err = msg.err
		return m, nil

	case statusTickMsg:
		m.status = m.engine.Status()
		return m, statusTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			m.field = (m.field + 1) % len(FieldModes)
			m.submit()
			return m, nil
		case "shift+tab":
			m.field = (m.field + len(FieldModes) - 1) % len(FieldModes)
			m.submit()
			return m, nil
		case "up", "ctrl+p":
			m.selected = max(m.selected-1, 0)
			return m, nil
		case "down", "ctrl+n":
			m.selected = min(m.selected+1, max(len(m.hits)-1, 0))
			return m, nil
		case "enter":
			m.expanded = !m.expanded
			return m, nil
		case "ctrl+r":
			return m, m.reload()
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.submit()
	}
	return m, cmd
}

// submit starts a search for the prompt text. An empty prompt clears the
// results without searching.
func (m *browserModel) submit() {
	m.err = nil
	m.query = searcher.Query{
		Text:   m.input.Value(),
		Fields: []string{FieldModes[m.field]},
	}
	fields, err := m.searcher.Fields(m.query)
	if err != nil {
		m.fields = nil
		m.pending = false
		m.hits, m.total, m.selected = nil, 0, 0
		if lexerrors.GetCode(err) != lexerrors.ErrCodeQueryEmpty {
			m.err = err
		}
		return
	}
	m.fields = fields
	m.submitted = time.Now()
	if err := m.engine.SearchAsync(fields); err != nil {
		m.err = err
		m.pending = false
		return
	}
	m.pending = true
}

// completed runs on the program goroutine via the Poster. Results for any
// text other than the current prompt are ignored.
func (m *browserModel) completed(ev search.CompletedEvent) {
	if !slices.Equal(ev.Fields, m.fields) {
		return
	}
	elapsed := time.Since(m.submitted)
	m.pending = false
	m.hits = m.searcher.Hits(ev.Results)
	m.total = ev.Results.Len()
	m.selected = min(m.selected, max(len(m.hits)-1, 0))
	m.latency.Add(elapsed)
	m.searcher.Record(m.query, m.total, elapsed)
}

func (m *browserModel) reload() tea.Cmd {
	s := m.searcher
	if s.Path() == "" {
		m.notice = "nothing to reload"
		return nil
	}
	return func() tea.Msg {
		n, err := s.Reload(context.Background())
		if err != nil {
			return reloadFailMsg{err: err}
		}
		return reloadedMsg{changes: n}
	}
}

// View implements tea.Model.
func (m *browserModel) View() string {
	var sb strings.Builder

	title := "lexsearch"
	if p := m.searcher.Path(); p != "" {
		title += "  " + m.styles.Dim.Render(p)
	}
	sb.WriteString(m.styles.Header.Render(title))
	sb.WriteString("\n\n")
	sb.WriteString(m.input.View())
	sb.WriteString("\n")
	sb.WriteString(m.renderFieldTabs())
	sb.WriteString("\n\n")

	if m.err != nil {
		sb.WriteString(m.styles.Error.Render(lexerrors.FormatForCLI(m.err)))
		sb.WriteString("\n")
	}

	sb.WriteString(m.renderHits())
	sb.WriteString("\n")
	sb.WriteString(m.renderStatusLine())
	return sb.String()
}

func (m *browserModel) renderFieldTabs() string {
	tabs := make([]string, len(FieldModes))
	for i, name := range FieldModes {
		if i == m.field {
			tabs[i] = m.styles.Selected.Render("[" + name + "]")
		} else {
			tabs[i] = m.styles.Label.Render(" " + name + " ")
		}
	}
	return strings.Join(tabs, " ")
}

func (m *browserModel) renderHits() string {
	if m.query.Text == "" {
		return m.styles.Dim.Render("Start typing to search the lexicon. tab: field  enter: details  ctrl+r: reload  esc: quit") + "\n"
	}
	if len(m.hits) == 0 {
		if m.pending {
			return ""
		}
		return m.styles.Dim.Render(fmt.Sprintf("No entries match %q", m.query.Text)) + "\n"
	}

	rows := max(m.height-10, 3)
	start := 0
	if m.selected >= rows {
		start = m.selected - rows + 1
	}
	end := min(start+rows, len(m.hits))

	var sb strings.Builder
	for i := start; i < end; i++ {
		marker := "  "
		if i == m.selected {
			marker = m.styles.Selected.Render("> ")
		}
		sb.WriteString(marker)
		sb.WriteString(FormatHit(m.styles, m.hits[i]))
		sb.WriteString("\n")
		if i == m.selected && m.expanded {
			sb.WriteString(m.renderDetail(m.hits[i]))
		}
	}
	return sb.String()
}

func (m *browserModel) renderDetail(h searcher.Hit) string {
	var lines []string
	if h.Citation != "" {
		lines = append(lines, m.styles.Label.Render("citation: ")+h.Citation)
	}
	for i, sense := range h.Senses {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, sense))
	}
	if len(lines) == 0 {
		lines = append(lines, m.styles.Dim.Render("no further details"))
	}
	return m.styles.Panel.MarginLeft(4).Render(strings.Join(lines, "\n")) + "\n"
}

func (m *browserModel) renderStatusLine() string {
	var parts []string
	if m.pending || m.status.Busy {
		parts = append(parts, m.spinner.View()+m.styles.Busy.Render("searching"))
	} else if m.query.Text != "" && len(m.fields) > 0 {
		parts = append(parts, m.styles.Label.Render(m.summary()))
	}
	if m.status.SnapshotSize > 0 {
		parts = append(parts, m.bar.ViewAs(coverage(m.status)))
	}
	if m.latency.Count() > 0 {
		parts = append(parts, m.styles.Chart.Render(m.latency.Render()))
	}
	if m.notice != "" {
		parts = append(parts, m.styles.Dim.Render(m.notice))
	}
	return strings.Join(parts, "  ")
}

func (m *browserModel) summary() string {
	noun := "entries"
	if m.total == 1 {
		noun = "entry"
	}
	return fmt.Sprintf("%d %s", m.total, noun)
}

// coverage is the share of the snapshot already folded into the index,
// averaged over the cursors started so far.
func coverage(st search.Status) float64 {
	if st.SnapshotSize <= 0 || len(st.Progress) == 0 {
		return 0
	}
	done := 0
	for _, n := range st.Progress {
		done += n
	}
	return min(float64(done)/float64(st.SnapshotSize*len(st.Progress)), 1)
}
