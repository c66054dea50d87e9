package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"stockboard/internal/app"
	"stockboard/internal/auth"
	"stockboard/internal/dashboard"
	"stockboard/internal/session"
)

type screen int

const (
	screenLogin screen = iota
	screenDashboard
)

// Field indexes into model.inputs.
const (
	fieldName = iota
	fieldEmail
	fieldPassword
	fieldCount
)

// Messages.
type authDoneMsg struct {
	user session.Identity
	err  error
}

type loadedMsg struct{ res dashboard.Result }

type exportedMsg struct {
	exp app.Export
	err error
}

type loggedOutMsg struct{ err error }

type scheduledRefreshMsg struct{}

type clearStatusMsg struct{ seq int }

// Model.
type model struct {
	ctx context.Context
	app *app.App

	screen        screen
	width, height int
	viewport      viewport.Model
	ready         bool

	// Login screen.
	signup     bool
	inputs     []textinput.Model
	focus      int
	submitting bool
	authErr    string

	// Dashboard screen.
	pipe      *dashboard.Pipeline
	snap      dashboard.Snapshot
	status    string
	statusSeq int
	exporting bool
}

func newInputs() []textinput.Model {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		ti := textinput.New()
		ti.CharLimit = 128
		ti.Width = 40
		switch i {
		case fieldName:
			ti.Placeholder = "Name"
		case fieldEmail:
			ti.Placeholder = "Email"
		case fieldPassword:
			ti.Placeholder = "Password"
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		inputs[i] = ti
	}
	return inputs
}

func initialModel(ctx context.Context, a *app.App) model {
	m := model{
		ctx:    ctx,
		app:    a,
		inputs: newInputs(),
		pipe:   a.NewPipeline(),
	}
	m.snap = m.pipe.Snapshot()
	if a.Session.IsAuthenticated() {
		m.screen = screenDashboard
	} else {
		m.focus = fieldEmail
	}
	return m
}

func (m model) Init() tea.Cmd {
	if m.screen == screenDashboard {
		return m.loadCmd(m.pipe.BeginMount(false))
	}
	return tea.Batch(textinput.Blink, m.inputs[m.focus].Focus())
}

// loadCmd runs the pipeline load for t off the UI goroutine.
func (m model) loadCmd(t dashboard.Ticket) tea.Cmd {
	pipe, ctx := m.pipe, m.ctx
	return func() tea.Msg {
		return loadedMsg{res: pipe.Load(ctx, t)}
	}
}

func (m *model) setStatus(s string) tea.Cmd {
	m.status = s
	m.statusSeq++
	seq := m.statusSeq
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg { return clearStatusMsg{seq: seq} })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.screen == screenLogin {
			return m.updateLogin(msg)
		}
		if cmd, handled := m.updateDashboardKey(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerH := 2
		footerH := 1
		vpHeight := m.height - headerH - footerH
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.MouseWheelEnabled = true
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.viewport.SetContent(m.renderContent())
		return m, nil

	case authDoneMsg:
		m.submitting = false
		if msg.err != nil {
			m.authErr = authMessage(msg.err)
			m.app.Log.Warn("sign-in failed", "signup", m.signup, "error", msg.err)
			return m, nil
		}
		m.app.Log.Info("signed in", "email", msg.user.Email)
		m.authErr = ""
		m.inputs = newInputs()
		m.screen = screenDashboard
		m.pipe.Reset()
		m.snap = m.pipe.Snapshot()
		m.refreshViewport()
		return m, m.loadCmd(m.pipe.BeginMount(false))

	case loadedMsg:
		if !m.pipe.Commit(msg.res) {
			return m, nil
		}
		m.snap = m.pipe.Snapshot()
		m.refreshViewport()
		return m, nil

	case scheduledRefreshMsg:
		if m.screen != screenDashboard || m.snap.State == dashboard.Loading {
			return m, nil
		}
		return m, m.beginRefresh()

	case exportedMsg:
		m.exporting = false
		if msg.err != nil {
			m.app.Log.Error("export failed", "error", msg.err)
			return m, m.setStatus("Export failed: " + msg.err.Error())
		}
		return m, m.setStatus(fmt.Sprintf("Exported %d points to %s", msg.exp.Points, msg.exp.ParquetPath))

	case loggedOutMsg:
		if msg.err != nil {
			m.app.Log.Warn("logout", "error", msg.err)
		}
		m.screen = screenLogin
		m.signup = false
		m.focus = fieldEmail
		m.pipe.Reset()
		m.snap = m.pipe.Snapshot()
		m.status = ""
		return m, m.inputs[m.focus].Focus()

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil
	}

	if m.screen == screenLogin {
		return m.updateInputs(msg)
	}
	var cmd tea.Cmd
	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m *model) refreshViewport() {
	if m.ready {
		m.viewport.SetContent(m.renderContent())
	}
}

// authMessage picks the text shown under the login form.
func authMessage(err error) string {
	var ve *auth.ValidationError
	if errors.As(err, &ve) {
		return "Please enter your " + ve.Field
	}
	var ae *auth.AuthenticationError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return auth.DefaultMessage
}
