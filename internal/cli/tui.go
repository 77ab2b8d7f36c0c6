package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"open-launcher/internal/config"
	"open-launcher/internal/liveness"
	"open-launcher/internal/orchestrator"
)

const maxNotices = 4

// eventMsg carries an orchestrator event onto the control loop.
type eventMsg orchestrator.Event

type playDoneMsg struct{ err error }

type checkDoneMsg struct{ err error }

type newsMsg string

// launcherOps is the part of the orchestrator the front end drives.
type launcherOps interface {
	SelectServer(name string) error
	Play(ctx context.Context) error
	CheckNow(ctx context.Context) error
}

type orchOps struct{ o *orchestrator.Orchestrator }

func (x orchOps) SelectServer(name string) error { return x.o.SelectServer(name) }

func (x orchOps) Play(ctx context.Context) error {
	_, err := x.o.Play(ctx)
	return err
}

func (x orchOps) CheckNow(ctx context.Context) error {
	_, err := x.o.CheckNow(ctx)
	return err
}

type notice struct {
	sev orchestrator.Severity
	msg string
}

type model struct {
	ctx     context.Context
	ops     launcherOps
	servers []config.Server
	cursor  int

	selected string
	status   liveness.Status
	spinner  spinner.Model

	busy     string
	attach   string
	updates  string
	news     string
	notices  []notice
	quitting bool
}

func newModel(ctx context.Context, ops launcherOps, servers []config.Server, selected string) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = pingingStyle
	m := model{ctx: ctx, ops: ops, servers: servers, selected: selected, spinner: sp}
	for i, s := range servers {
		if s.Name == selected {
			m.cursor = i
		}
	}
	return m
}

func (m model) Init() tea.Cmd { return m.spinner.Tick }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m.applyEvent(orchestrator.Event(msg))

	case playDoneMsg:
		m.busy = ""
		if msg.err != nil && !errors.Is(msg.err, orchestrator.ErrTerminating) {
			m.attach = "launch failed"
		}
		return m, nil

	case checkDoneMsg:
		m.busy = ""
		return m, nil

	case newsMsg:
		m.news = strings.TrimSpace(string(msg))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.busy != "" && msg.String() != "ctrl+c" {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			return m.move(-1)
		case "down", "j":
			return m.move(1)
		case "r":
			return m, m.selectCmd(m.selected)
		case "enter", "p":
			m.busy = "Launching"
			m.attach = ""
			return m, m.playCmd()
		case "c":
			m.busy = "Checking for updates"
			return m, m.checkCmd()
		}
	}
	return m, nil
}

func (m model) move(delta int) (tea.Model, tea.Cmd) {
	if len(m.servers) == 0 {
		return m, nil
	}
	m.cursor = (m.cursor + delta + len(m.servers)) % len(m.servers)
	m.selected = m.servers[m.cursor].Name
	m.status = liveness.Probing
	return m, m.selectCmd(m.selected)
}

func (m model) applyEvent(ev orchestrator.Event) (tea.Model, tea.Cmd) {
	switch ev.Kind {
	case orchestrator.EventStatus:
		// Only the selected server's slot is shown.
		if ev.Server == m.selected {
			m.status = ev.Status
		}
	case orchestrator.EventNotice:
		text := ev.Message
		if ev.Err != nil && ev.Severity == orchestrator.Error {
			text += " (" + ev.Err.Error() + ")"
		}
		m.notices = append(m.notices, notice{sev: ev.Severity, msg: text})
		if len(m.notices) > maxNotices {
			m.notices = m.notices[len(m.notices)-maxNotices:]
		}
	case orchestrator.EventUpdatesAvailable:
		m.updates = "Updates available: " + ev.Message
	case orchestrator.EventAttach:
		m.attach = fmt.Sprintf("%s: %s", ev.Server, ev.Attach)
	case orchestrator.EventTerminate:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m model) selectCmd(name string) tea.Cmd {
	ops := m.ops
	return func() tea.Msg {
		if err := ops.SelectServer(name); err != nil {
			return eventMsg(orchestrator.Event{Kind: orchestrator.EventNotice, Severity: orchestrator.Warning, Message: err.Error()})
		}
		return nil
	}
}

func (m model) playCmd() tea.Cmd {
	ops, ctx := m.ops, m.ctx
	return func() tea.Msg { return playDoneMsg{err: ops.Play(ctx)} }
}

func (m model) checkCmd() tea.Cmd {
	ops, ctx := m.ops, m.ctx
	return func() tea.Msg { return checkDoneMsg{err: ops.CheckNow(ctx)} }
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("open-launcher "+orchestrator.Version) + "\n\n")

	for i, s := range m.servers {
		line := fmt.Sprintf("  %-20s %s", s.Name, dimStyle.Render(s.Addr()))
		if i == m.cursor {
			line = cursorStyle.Render("> ") + line[2:]
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")

	st := statusStyle(m.status).Render(m.status.String())
	if m.status == liveness.Probing {
		st = m.spinner.View() + " " + st
	}
	fmt.Fprintf(&b, "Server status: %s\n", st)
	if m.attach != "" {
		fmt.Fprintf(&b, "Client: %s\n", m.attach)
	}
	if m.busy != "" {
		fmt.Fprintf(&b, "%s %s...\n", m.spinner.View(), m.busy)
	}
	if m.updates != "" {
		b.WriteString(updateBanner.Render(m.updates) + "\n")
	}
	if m.news != "" {
		b.WriteString("\n" + noticeBox.Render(m.news) + "\n")
	}
	if len(m.notices) > 0 {
		b.WriteString("\n")
		for _, n := range m.notices {
			b.WriteString(severityStyle(n.sev).Render(n.msg) + "\n")
		}
	}
	b.WriteString(dimStyle.Render("\n↑/↓ select · enter play · r refresh · c check updates · q quit") + "\n")
	return b.String()
}

func fetchNews(ctx context.Context, url string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil
		}
		b, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if err != nil {
			return nil
		}
		return newsMsg(b)
	}
}

// pumpEvents forwards orchestrator events to the program until ctx is done.
// This is the only path from workers to interactive state.
func pumpEvents(ctx context.Context, p *tea.Program, events <-chan orchestrator.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			p.Send(eventMsg(ev))
		}
	}
}

func runInteractive(cmd *cobra.Command, opts *options) error {
	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := a.start(ctx, "", true); err != nil {
		return err
	}
	selected, _ := a.orch.Selected()
	m := newModel(ctx, orchOps{a.orch}, a.orch.Servers(), selected)

	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithOutput(cmd.OutOrStdout()))
	go pumpEvents(ctx, p, a.orch.Events())
	if a.cfg.NewsURL != "" {
		go func() {
			if msg := fetchNews(ctx, a.cfg.NewsURL)(); msg != nil {
				p.Send(msg)
			}
		}()
	}

	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
