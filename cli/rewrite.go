package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/toneshift/toneshift/config"
	"github.com/toneshift/toneshift/core"
	"github.com/toneshift/toneshift/logger"
)

type state int

const (
	Initializing state = iota
	Input
	PickStyle
	PickAudience
	Processing
	Done
)

type initDoneMsg struct{ err error }

type rejectedMsg struct{ err error }

type rewriteCmdModel struct {
	textInput   textinput.Model
	spinner     spinner.Model
	state       state
	message     string
	styleIdx    int
	audienceIdx int
	degraded    bool
	snapshot    core.State

	orchestrator *core.Orchestrator
	publisher    *CliStatePublisher
	logger       logger.Logger
	ctx          context.Context
	cancel       context.CancelFunc
}

func newRewriteModel(f rewriteFlags) (*rewriteCmdModel, error) {
	ti := textinput.New()
	ti.Placeholder = "Type the message to rewrite..."
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 80

	logger.InitLogger()
	log := logger.GetLogger()
	log.Debug("Initializing Toneshift CLI")

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("202"))

	var cfg *config.Config
	if f.config != "" {
		var err error
		cfg, err = config.LoadConfig(f.config)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.DefaultConfig()
	}
	if f.engine != "" {
		cfg.Engine = f.engine
	}
	if f.model != "" {
		cfg.ModelName = f.model
	}

	eng, err := cfg.NewEngine(log)
	if err != nil {
		return nil, err
	}

	publisher := NewCliStatePublisher(log)
	sessions := core.NewSessionManager(eng, log)
	orchestrator := core.NewOrchestrator(sessions, publisher, log)

	ctx, cancel := context.WithCancel(context.Background())

	m := &rewriteCmdModel{
		textInput:    ti,
		spinner:      s,
		state:        Initializing,
		logger:       log,
		orchestrator: orchestrator,
		publisher:    publisher,
		ctx:          ctx,
		cancel:       cancel,
	}
	return m, nil
}

func (m *rewriteCmdModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.runInitialize)
}

func (m *rewriteCmdModel) runInitialize() tea.Msg {
	return initDoneMsg{err: m.orchestrator.Initialize(m.ctx)}
}

func (m *rewriteCmdModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case initDoneMsg:
		m.state = Input
		if msg.err != nil {
			// Generation stays gated; the orchestrator fails fast per call.
			m.degraded = true
			m.snapshot = m.orchestrator.Snapshot()
		}
		return m, textinput.Blink
	case core.State:
		return m.handleState(msg)
	case rejectedMsg:
		m.logger.Warn(fmt.Sprintf("Rewrite call rejected: %v", msg.err))
		return m, m.listenForNextState
	default:
		if m.state == Processing || m.state == Initializing {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *rewriteCmdModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case Input:
		return m.handleInputState(msg)
	case PickStyle, PickAudience:
		return m.handlePickState(msg)
	case Done:
		return m.handleDoneState(msg)
	default:
		return m.handleQuit(msg)
	}
}

func (m *rewriteCmdModel) handleInputState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		v := m.textInput.Value()
		if strings.TrimSpace(v) == "" {
			placeholderStyle := lipgloss.NewStyle().Faint(true)
			message := placeholderStyle.Render("Nothing to rewrite yet. Type a message first.")
			return m, tea.Printf("%s", message)
		}
		m.message = v
		m.textInput.SetValue("")
		m.state = PickStyle
		return m, nil
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *rewriteCmdModel) handlePickState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := len(core.Styles())
	idx := &m.styleIdx
	if m.state == PickAudience {
		count = len(core.Audiences())
		idx = &m.audienceIdx
	}

	switch msg.Type {
	case tea.KeyLeft, tea.KeyUp:
		*idx = (*idx + count - 1) % count
	case tea.KeyRight, tea.KeyDown, tea.KeyTab:
		*idx = (*idx + 1) % count
	case tea.KeyEnter:
		if m.state == PickStyle {
			m.state = PickAudience
			return m, nil
		}
		m.state = Processing
		return m, m.handleRewrite()
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	}
	return m, nil
}

func (m *rewriteCmdModel) handleDoneState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		// Acknowledge the live error exactly once before starting over.
		m.orchestrator.ClearError()
		m.snapshot = m.orchestrator.Snapshot()
		m.state = Input
		m.textInput.SetValue("")
		return m, textinput.Blink
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	}
	return m, nil
}

func (m *rewriteCmdModel) handleQuit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
		m.logger.Debug("User exited the application")
		style := lipgloss.NewStyle().Faint(true)
		message := style.Render("Interrupted. Exiting application...")
		return m, tea.Sequence(tea.Printf("%s", message), tea.Quit)
	}
	return m, nil
}

func (m *rewriteCmdModel) requestContext() core.RequestContext {
	return core.RequestContext{
		Style:    core.Styles()[m.styleIdx],
		Audience: core.Audiences()[m.audienceIdx],
	}
}

func (m *rewriteCmdModel) handleRewrite() tea.Cmd {
	m.drainStates()
	rc := m.requestContext()
	message := m.message
	generate := func() tea.Msg {
		if err := m.orchestrator.Generate(m.ctx, message, rc); err != nil {
			return rejectedMsg{err: err}
		}
		return nil
	}
	return tea.Batch(m.spinner.Tick, m.listenForNextState, generate)
}

func (m *rewriteCmdModel) listenForNextState() tea.Msg {
	return <-m.publisher.stateChan
}

// drainStates discards snapshots published before this rewrite started, so the
// listener only sees transitions belonging to the in-flight call.
func (m *rewriteCmdModel) drainStates() {
	for {
		select {
		case <-m.publisher.stateChan:
		default:
			return
		}
	}
}

func (m *rewriteCmdModel) handleState(s core.State) (tea.Model, tea.Cmd) {
	if s.Processing {
		return m, tea.Batch(m.spinner.Tick, m.listenForNextState)
	}
	m.snapshot = s
	m.state = Done
	return m, nil
}

func (m *rewriteCmdModel) View() string {
	switch m.state {
	case Initializing:
		return fmt.Sprintf("%s Warming up the local engine", m.spinner.View())
	case Input:
		header := ""
		if m.degraded && m.snapshot.Err != nil {
			warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFBA08"))
			header = warnStyle.Render(m.snapshot.Err.Message) + "\n\n"
		}
		return fmt.Sprintf("%s%s\n\n%s", header, m.textInput.View(), "(press enter to continue or esc to quit)")
	case PickStyle:
		return renderPicker("Pick a tone", styleNames(), m.styleIdx)
	case PickAudience:
		return renderPicker("Pick an audience", audienceNames(), m.audienceIdx)
	case Processing:
		return fmt.Sprintf("%s Rewriting your message", m.spinner.View())
	case Done:
		return m.renderOutcome()
	default:
		m.logger.Error("An error occurred")
		return "An error occurred."
	}
}

func (m *rewriteCmdModel) renderOutcome() string {
	footer := lipgloss.NewStyle().Faint(true).Render("(press enter to rewrite another message or esc to quit)")

	if m.snapshot.Err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFBA08"))
		return fmt.Sprintf("%s\n\n%s", errStyle.Render(m.snapshot.Err.Message), footer)
	}

	r := m.snapshot.Result
	if r == nil {
		return footer
	}

	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		Width(80)

	meta := fmt.Sprintf("%s tone, %s audience | formality %d/10 | %d words",
		labelStyle.Render(string(r.Style)),
		labelStyle.Render(string(r.Audience)),
		r.FormalityScore,
		r.WordCount,
	)
	return fmt.Sprintf("%s\n%s\n\n%s", meta, card.Render(r.Text), footer)
}

func (m *rewriteCmdModel) Shutdown() {
	m.cancel()
	if err := m.orchestrator.Close(); err != nil {
		m.logger.Warn(fmt.Sprintf("Failed to close engine session: %v", err))
	}
}

func renderPicker(title string, options []string, selected int) string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")
	for i, opt := range options {
		if i == selected {
			b.WriteString(selectedStyle.Render("> " + opt))
		} else {
			b.WriteString("  " + opt)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n(arrows to choose, enter to confirm, esc to quit)")
	return b.String()
}

func styleNames() []string {
	styles := core.Styles()
	names := make([]string, len(styles))
	for i, s := range styles {
		names[i] = string(s)
	}
	return names
}

func audienceNames() []string {
	audiences := core.Audiences()
	names := make([]string, len(audiences))
	for i, a := range audiences {
		names[i] = string(a)
	}
	return names
}
