package main

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// visibleFields returns the inputs shown for the current mode.
func (m model) visibleFields() []int {
	if m.signup {
		return []int{fieldName, fieldEmail, fieldPassword}
	}
	return []int{fieldEmail, fieldPassword}
}

func (m model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "ctrl+t":
		m.signup = !m.signup
		m.authErr = ""
		return m, m.focusField(m.visibleFields()[0])
	case "tab", "down":
		return m, m.moveFocus(1)
	case "shift+tab", "up":
		return m, m.moveFocus(-1)
	case "enter":
		fields := m.visibleFields()
		if m.focus != fields[len(fields)-1] {
			return m, m.moveFocus(1)
		}
		return m, m.submit()
	}
	return m.updateInputs(msg)
}

func (m *model) moveFocus(delta int) tea.Cmd {
	fields := m.visibleFields()
	idx := 0
	for i, f := range fields {
		if f == m.focus {
			idx = i
		}
	}
	idx = (idx + delta + len(fields)) % len(fields)
	return m.focusField(fields[idx])
}

func (m *model) focusField(f int) tea.Cmd {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.focus = f
	return m.inputs[f].Focus()
}

func (m model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}
	return m, tea.Batch(cmds...)
}

// submit sends the form. Validation errors come back from the auth service
// before any request is made.
func (m *model) submit() tea.Cmd {
	m.submitting = true
	m.authErr = ""

	a, ctx, signup := m.app, m.ctx, m.signup
	name := strings.TrimSpace(m.inputs[fieldName].Value())
	email := strings.TrimSpace(m.inputs[fieldEmail].Value())
	password := m.inputs[fieldPassword].Value()

	return func() tea.Msg {
		if signup {
			user, err := a.SignUp(ctx, name, email, password)
			return authDoneMsg{user: user, err: err}
		}
		user, err := a.SignIn(ctx, email, password)
		return authDoneMsg{user: user, err: err}
	}
}

func (m model) loginView() string {
	var b strings.Builder

	title := "Sign in"
	toggle := "ctrl+t: create an account"
	if m.signup {
		title = "Create account"
		toggle = "ctrl+t: sign in instead"
	}
	b.WriteString(titleStyle.Render("stockboard") + "  " + dimStyle.Render(title) + "\n\n")

	for _, f := range m.visibleFields() {
		b.WriteString(m.inputs[f].View() + "\n")
	}
	b.WriteString("\n")

	switch {
	case m.submitting:
		b.WriteString(dimStyle.Render("Signing in...") + "\n")
	case m.authErr != "":
		b.WriteString(errorStyle.Render(m.authErr) + "\n")
	default:
		b.WriteString("\n")
	}

	b.WriteString("\n" + dimStyle.Render("enter: submit  tab: next field  "+toggle+"  esc: quit"))
	return b.String()
}
