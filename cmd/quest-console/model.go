package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"quest-entry-service/config"
	"quest-entry-service/easteregg"
	"quest-entry-service/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxNotices = 6

// questAPI is the part of the client used outside the Session.
type questAPI interface {
	MarkSolved(ctx context.Context, wallet string) (store.SolveResult, error)
	SolvedRank(ctx context.Context, wallet string) (store.Rank, error)
}

type effectMsg struct{ effect easteregg.Effect }

type solvedMsg struct {
	result store.SolveResult
	err    error
}

type rankMsg struct {
	rank store.Rank
	err  error
}

type notice struct {
	level easteregg.NoticeLevel
	text  string
}

type styles struct {
	title   lipgloss.Style
	route   lipgloss.Style
	info    lipgloss.Style
	success lipgloss.Style
	err     lipgloss.Style
	dialog  lipgloss.Style
	help    lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		route:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		info:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		err:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		dialog:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2).Width(50),
		help:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	}
}

type model struct {
	session  *easteregg.Session
	api      questAPI
	timeout  time.Duration
	homePath string
	styles   styles

	notices       []notice
	dialogVisible bool
	email         string
	granted       bool
	rank          *store.Rank
}

func newModel(s *easteregg.Session, api questAPI, cfg config.ClientConfig, home string) *model {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &model{
		session:  s,
		api:      api,
		timeout:  timeout,
		homePath: home,
		styles:   defaultStyles(),
		email:    s.Email(),
	}
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) pushNotice(level easteregg.NoticeLevel, text string) {
	m.notices = append(m.notices, notice{level: level, text: text})
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
}

// apply runs undelayed effects now and schedules the rest.
func (m *model) apply(effects []easteregg.Effect) tea.Cmd {
	var cmds []tea.Cmd
	for _, e := range effects {
		if e.Delay > 0 {
			cmds = append(cmds, tea.Tick(e.Delay, func(time.Time) tea.Msg {
				e.Delay = 0
				return effectMsg{effect: e}
			}))
			continue
		}
		m.applyNow(e)
	}
	return tea.Batch(cmds...)
}

func (m *model) applyNow(e easteregg.Effect) {
	switch e.Kind {
	case easteregg.EffectNotice:
		m.pushNotice(e.Level, e.Message)
	case easteregg.EffectRedirect:
		if m.session.Route() != e.Path {
			m.session.SetRoute(e.Path)
		}
		m.rank = nil
	case easteregg.EffectOpenDialog:
		m.dialogVisible = true
		m.email = m.session.Email()
	case easteregg.EffectCloseDialog:
		m.dialogVisible = false
	case easteregg.EffectGrantAccess:
		m.granted = true
	}
}

func (m *model) callCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.timeout)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case effectMsg:
		return m, m.apply([]easteregg.Effect{msg.effect})

	case solvedMsg:
		if msg.err != nil {
			m.pushNotice(easteregg.NoticeError, "Solve failed: "+msg.err.Error())
			return m, nil
		}
		m.session.MarkSolved()
		if msg.result == store.SolveUpdated {
			m.pushNotice(easteregg.NoticeSuccess, "Quest solved!")
		} else {
			m.pushNotice(easteregg.NoticeInfo, easteregg.MsgAlreadySolved)
		}
		return m, m.fetchRank()

	case rankMsg:
		if msg.err != nil {
			m.pushNotice(easteregg.NoticeError, "Rank unavailable: "+msg.err.Error())
			return m, nil
		}
		m.rank = &msg.rank
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if k.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.dialogVisible {
		switch k.Type {
		case tea.KeyEsc:
			return m, m.apply(m.session.CloseDialog())
		case tea.KeyEnter:
			ctx, cancel := m.callCtx()
			defer cancel()
			return m, m.apply(m.session.Submit(ctx, m.email))
		case tea.KeyBackspace:
			if !m.session.EmailLocked() && len(m.email) > 0 {
				m.email = m.email[:len(m.email)-1]
			}
			return m, nil
		case tea.KeyRunes, tea.KeySpace:
			if !m.session.EmailLocked() {
				m.email += string(k.Runes)
			}
			return m, m.apply(m.session.Key(k.String()))
		}
		return m, nil
	}

	switch k.Type {
	case tea.KeyEsc:
		if m.session.Route() != m.homePath {
			m.session.SetRoute(m.homePath)
			m.rank = nil
		}
		return m, nil
	case tea.KeyEnter:
		if m.session.OnQuestRoute() && m.granted {
			return m, m.solve()
		}
	case tea.KeyTab:
		if m.session.OnQuestRoute() {
			return m, m.fetchRank()
		}
	}
	return m, m.apply(m.session.Key(k.String()))
}

func (m *model) solve() tea.Cmd {
	wallet := m.session.Wallet()
	return func() tea.Msg {
		ctx, cancel := m.callCtx()
		defer cancel()
		res, err := m.api.MarkSolved(ctx, wallet)
		return solvedMsg{result: res, err: err}
	}
}

func (m *model) fetchRank() tea.Cmd {
	wallet := m.session.Wallet()
	return func() tea.Msg {
		ctx, cancel := m.callCtx()
		defer cancel()
		r, err := m.api.SolvedRank(ctx, wallet)
		return rankMsg{rank: r, err: err}
	}
}

func (m *model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("quest console"))
	b.WriteString("  ")
	b.WriteString(m.styles.route.Render(m.session.Route()))
	b.WriteString("\n")

	wallet := m.session.Wallet()
	if wallet == "" {
		wallet = "(no wallet linked)"
	}
	fmt.Fprintf(&b, "wallet: %s  state: %s\n\n", wallet, m.session.State())

	if m.session.OnQuestRoute() {
		if m.granted || m.session.State() == easteregg.StateUnlocked || m.session.State() == easteregg.StateSolved {
			b.WriteString("You found the quest page. enter: confirm solve  tab: show rank\n")
		}
		if m.rank != nil {
			fmt.Fprintf(&b, "rank #%d (%d solved so far)\n", m.rank.Rank, m.rank.TotalSolved)
		}
		b.WriteString("\n")
	}

	if m.dialogVisible {
		lock := ""
		if m.session.EmailLocked() {
			lock = " (from your entry)"
		}
		body := fmt.Sprintf("Unlock the quest\n\nemail%s: %s_\n\nenter: submit  esc: close", lock, m.email)
		b.WriteString(m.styles.dialog.Render(body))
		b.WriteString("\n")
	}

	for _, n := range m.notices {
		style := m.styles.info
		switch n.level {
		case easteregg.NoticeSuccess:
			style = m.styles.success
		case easteregg.NoticeError:
			style = m.styles.err
		}
		b.WriteString(style.Render(n.text))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.help.Render("\ntype anywhere  esc: home  ctrl+c: quit"))
	return b.String()
}
