package sim

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"botops-coord/internal/config"
	"botops-coord/internal/events"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// castMsg carries a detected cast log line.
type castMsg struct{ line string }

// directiveMsg carries a directive log line.
type directiveMsg struct{ line string }

// fallbackMsg carries a fallback or unmitigated log line.
type fallbackMsg struct{ line string }

// passMsg carries the latest pass summary for the footer.
type passMsg struct{ events.PassRow }

// adminMsg reports admin API status.
type adminMsg struct{ active bool }

const maxSectionHeightPct = 0.25

// TUIWriter renders coordination events using a bubbletea TUI.
type TUIWriter struct {
	program     teaProgram
	squadColors map[string]string
	colorIdx    int
	done        chan struct{}
	sendSignal  atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(cfg *config.SimulationConfig) *TUIWriter {
	sc := make(map[string]string)
	w := &TUIWriter{squadColors: sc, done: make(chan struct{})}
	w.sendSignal.Store(true)
	m := newTUIModel(cfg, sc)
	p := tea.NewProgram(m, tea.WithAltScreen())
	w.program = p
	for _, s := range cfg.Squads {
		w.getSquadColor(s.Name)
	}
	go func() {
		_ = p.Start()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

func (w *TUIWriter) getSquadColor(name string) string {
	if c, ok := w.squadColors[name]; ok {
		return c
	}
	c := squadPalette[w.colorIdx%len(squadPalette)]
	w.squadColors[name] = c
	w.colorIdx++
	return c
}

// WriteCast implements CastWriter.
func (w *TUIWriter) WriteCast(row events.CastRow) error {
	prioColor := colorGreen
	switch row.Priority {
	case "critical":
		prioColor = colorRed
	case "high":
		prioColor = colorYellow
	}
	line := fmt.Sprintf("%s[%s]%s %sCAST%s %saction=%s%s %sperformer=%s%s %starget=%s%s %sprio=%s%s %sdur=%dms%s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorRed, colorReset,
		colorWhite(), row.ActionID, colorReset,
		colorBlue, row.Performer, colorReset,
		colorCyan, row.Target, colorReset,
		prioColor, row.Priority, colorReset,
		colorGray, row.DurationMs, colorReset)
	w.program.Send(castMsg{line: line})
	return nil
}

// WriteCasts outputs multiple cast rows.
func (w *TUIWriter) WriteCasts(rows []events.CastRow) error {
	for _, r := range rows {
		_ = w.WriteCast(r)
	}
	return nil
}

// WriteDirective implements DirectiveWriter.
func (w *TUIWriter) WriteDirective(row events.DirectiveRow) error {
	sColor := w.getSquadColor(row.Team)
	line := fmt.Sprintf("%s[%s]%s %ssquad=%s%s %sagent=%s%s %sability=%s%s %saction=%s%s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		sColor, row.Team, colorReset,
		colorWhite(), row.AgentID, colorReset,
		colorGreen, row.AbilityID, colorReset,
		colorBlue, row.ActionID, colorReset)
	if row.Pending {
		line += fmt.Sprintf(" %spending%s", colorMagenta, colorReset)
	}
	w.program.Send(directiveMsg{line: line})
	return nil
}

// WriteFallback implements FallbackWriter.
func (w *TUIWriter) WriteFallback(row events.FallbackRow) error {
	var line string
	if row.Method == "none" {
		line = fmt.Sprintf("%s[%s]%s %sUNMITIGATED%s squad=%s action=%s",
			colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
			colorRed, colorReset, row.Team, row.ActionID)
	} else {
		line = fmt.Sprintf("%s[%s]%s %smethod=%s%s squad=%s action=%s agent=%s ability=%s",
			colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
			colorYellow, row.Method, colorReset,
			row.Team, row.ActionID, row.AgentID, row.AbilityID)
	}
	w.program.Send(fallbackMsg{line: line})
	return nil
}

// WritePass implements PassWriter.
func (w *TUIWriter) WritePass(row events.PassRow) error {
	w.program.Send(passMsg{PassRow: row})
	return nil
}

// SetAdminStatus updates the admin API indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	cfg          *config.SimulationConfig
	table        table.Model
	vp           viewport.Model
	castVP       viewport.Model
	fbVP         viewport.Model
	logs         []string
	castLogs     []string
	fbLogs       []string
	pass         events.PassRow
	admin        bool
	wrap         bool
	autoscroll   bool
	help         bool
	showSquads   bool
	header       string
	headerHeight int
	height       int
	squadColors  map[string]string
}

func newTUIModel(cfg *config.SimulationConfig, squadColors map[string]string) tuiModel {
	cols := []table.Column{
		{Title: "Config", Width: 24},
		{Title: "Value", Width: 14},
	}
	rows := []table.Row{
		{"Arena", fmt.Sprintf("%.0fx%.0f", cfg.Arena.WidthM, cfg.Arena.HeightM)},
		{"Hostile Casters", fmt.Sprintf("%d", cfg.Hostiles.Casters)},
		{"Rotation Window (ms)", fmt.Sprintf("%d", cfg.Coordination.RotationWindowMs)},
		{"Encounter", cfg.Encounter},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	return tuiModel{
		cfg:         cfg,
		table:       t,
		vp:          viewport.New(0, 0),
		castVP:      viewport.New(0, 0),
		fbVP:        viewport.New(0, 0),
		squadColors: squadColors,
		autoscroll:  true,
		showSquads:  true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		tableWidth := msg.Width
		if m.showSquads {
			tableWidth = msg.Width / 2
		}
		m.table.SetWidth(tableWidth)
		m.vp.Width = msg.Width
		m.castVP.Width = msg.Width
		m.fbVP.Width = msg.Width
		m.height = msg.Height
		m.header = m.renderHeader()
		m.headerHeight = lipgloss.Height(m.header)
		m.updateViewportHeight()
		m.refreshViewport()
		m.refreshCasts()
		m.refreshFallbacks()
	case tea.KeyMsg:
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
				m.updateViewportHeight()
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			m.header = m.renderHeader()
			m.headerHeight = lipgloss.Height(m.header)
			m.updateViewportHeight()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
				m.castVP.GotoBottom()
				m.fbVP.GotoBottom()
			}
			return m, nil
		case "p":
			m.showSquads = !m.showSquads
			width := m.vp.Width
			if m.showSquads {
				m.table.SetWidth(width / 2)
			} else {
				m.table.SetWidth(width)
			}
			m.header = m.renderHeader()
			m.headerHeight = lipgloss.Height(m.header)
			m.updateViewportHeight()
			return m, nil
		case "h", "?":
			m.help = !m.help
			m.updateViewportHeight()
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
				m.castVP.LineDown(1)
				m.fbVP.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
				m.castVP.LineUp(1)
				m.fbVP.LineUp(1)
			case "pgdown", "ctrl+n":
				m.vp.LineDown(10)
				m.castVP.LineDown(10)
				m.fbVP.LineDown(10)
			case "pgup", "ctrl+p":
				m.vp.LineUp(10)
				m.castVP.LineUp(10)
				m.fbVP.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				m.castVP, _ = m.castVP.Update(msg)
				m.fbVP, _ = m.fbVP.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		return m, nil
	case directiveMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > 1000 {
			m.logs = m.logs[len(m.logs)-1000:]
		}
		m.refreshViewport()
	case castMsg:
		m.castLogs = append(m.castLogs, msg.line)
		if len(m.castLogs) > 1000 {
			m.castLogs = m.castLogs[len(m.castLogs)-1000:]
		}
		m.updateViewportHeight()
		m.refreshCasts()
		m.refreshViewport()
	case fallbackMsg:
		m.fbLogs = append(m.fbLogs, msg.line)
		if len(m.fbLogs) > 1000 {
			m.fbLogs = m.fbLogs[len(m.fbLogs)-1000:]
		}
		m.updateViewportHeight()
		m.refreshFallbacks()
		m.refreshViewport()
	case passMsg:
		m.pass = msg.PassRow
	case adminMsg:
		m.admin = msg.active
	}
	return m, nil
}

func (m *tuiModel) updateViewportHeight() {
	bottomHeight := lipgloss.Height(m.renderBottom())
	maxLines := m.maxSectionLines()

	castLines := len(m.castLogs)
	if castLines == 0 {
		castLines = 1
	}
	if castLines > maxLines {
		castLines = maxLines
	}
	m.castVP.Height = castLines

	fbLines := len(m.fbLogs)
	if fbLines == 0 {
		fbLines = 1
	}
	if fbLines > maxLines {
		fbLines = maxLines
	}
	m.fbVP.Height = fbLines

	castHeight := 1 + m.castVP.Height
	fbHeight := 1 + m.fbVP.Height
	h := m.height - m.headerHeight - bottomHeight - castHeight - fbHeight - 5
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.castVP.GotoBottom()
		m.fbVP.GotoBottom()
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshCasts() {
	content := "none"
	if len(m.castLogs) > 0 {
		content = strings.Join(m.castLogs, "\n")
	}
	m.castVP.SetContent(content)
	if m.autoscroll {
		m.castVP.GotoBottom()
	}
}

func (m *tuiModel) refreshFallbacks() {
	content := "none"
	if len(m.fbLogs) > 0 {
		content = strings.Join(m.fbLogs, "\n")
	}
	m.fbVP.SetContent(content)
	if m.autoscroll {
		m.fbVP.GotoBottom()
	}
}

func (m tuiModel) maxSectionLines() int {
	h := int(float64(m.height) * maxSectionHeightPct)
	if h < 1 {
		h = 1
	}
	return h
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	bottom := m.renderBottom()
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{
		m.header,
		divider,
		"Directives:",
		m.vp.View(),
		divider,
		"Hostile Casts:",
		m.castVP.View(),
		divider,
		"Fallbacks:",
		m.fbVP.View(),
		divider,
		bottom,
	}
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	tableView := m.table.View()
	if !m.showSquads {
		return tableView
	}
	squadsWidth := m.vp.Width/2 - 1
	squads := renderSquadTree(m.cfg, m.squadColors, m.wrap, squadsWidth)
	sep := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("│")
	return lipgloss.JoinHorizontal(lipgloss.Top, tableView, sep, squads)
}

func renderSquadTree(cfg *config.SimulationConfig, colors map[string]string, wrap bool, width int) string {
	var b strings.Builder
	b.WriteString("Squads\n")
	for i, s := range cfg.Squads {
		prefix := "├─"
		if i == len(cfg.Squads)-1 {
			prefix = "└─"
		}
		c := colors[s.Name]
		line := fmt.Sprintf("%s %s%s%s %d bots - primary %s", prefix, c, s.Name, colorReset, s.Bots, s.Loadout.Primary.ID)
		if wrap && width > 0 {
			line = wordwrap.String(line, width)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m tuiModel) renderBottom() string {
	adminColor := lipgloss.Color("9")
	if m.admin {
		adminColor = lipgloss.Color("10")
	}
	wrapColor := lipgloss.Color("9")
	if m.wrap {
		wrapColor = lipgloss.Color("10")
	}
	scrollColor := lipgloss.Color("10")
	if !m.autoscroll {
		scrollColor = lipgloss.Color("9")
	}
	adminIndicator := lipgloss.NewStyle().Foreground(adminColor).Render("●")
	wrapIndicator := lipgloss.NewStyle().Foreground(wrapColor).Render("●")
	scrollIndicator := lipgloss.NewStyle().Foreground(scrollColor).Render("●")
	state := fmt.Sprintf("%sTOTALS%s %sdetected=%d%s %sassigned=%d%s %sfallbacks=%d%s %smoves=%d%s %sunmitigated=%d%s",
		colorBlue, colorReset,
		colorGreen, m.pass.ActionsDetected, colorReset,
		colorCyan, m.pass.AssignmentSuccesses, colorReset,
		colorYellow, m.pass.FallbacksUsed, colorReset,
		colorMagenta, m.pass.MovementRequired, colorReset,
		colorRed, m.pass.UnmitigatedTotal, colorReset)
	return fmt.Sprintf("%s | Admin API %s | Wrap %s | Scroll %s", state, adminIndicator, wrapIndicator, scrollIndicator)
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" w  toggle wrap for directive log",
		" s  toggle auto-scroll",
		" p  toggle squad tree",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}
