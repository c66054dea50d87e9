package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"stockboard/internal/chart"
	"stockboard/internal/dashboard"
)

// Styles.
var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	symbolStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	symbolHlStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	rangeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	rangeHlStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("3"))
	gainStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	colHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	chartStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("7"))
)

// updateDashboardKey handles dashboard keys. handled is false for keys the
// viewport should see.
func (m *model) updateDashboardKey(msg tea.KeyMsg) (cmd tea.Cmd, handled bool) {
	key := msg.String()
	switch key {
	case "q":
		return tea.Quit, true
	case "r":
		if m.snap.State == dashboard.Loading {
			return nil, true
		}
		return m.beginRefresh(), true
	case "left", "h", "right", "l":
		if len(m.snap.Symbols) == 0 || m.snap.State == dashboard.Error {
			return nil, true
		}
		delta := 1
		if key == "left" || key == "h" {
			delta = -1
		}
		return m.selectSymbol(delta), true
	case "1", "2", "3", "4", "5":
		rng := dashboard.Ranges[key[0]-'1']
		if rng == m.snap.Selection.Range {
			return nil, true
		}
		sel := m.snap.Selection
		sel.Range = rng
		return m.beginSelect(sel), true
	case "e":
		if m.exporting || m.snap.State != dashboard.Ready {
			return nil, true
		}
		return m.exportCmd(), true
	case "x":
		a, ctx := m.app, m.ctx
		return func() tea.Msg { return loggedOutMsg{err: a.SignOut(ctx)} }, true
	}
	return nil, false
}

func (m *model) selectSymbol(delta int) tea.Cmd {
	syms := m.snap.Symbols
	idx := -1
	for i, s := range syms {
		if s == m.snap.Selection.Symbol {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(syms)) % len(syms)
	sel := m.snap.Selection
	sel.Symbol = syms[idx]
	return m.beginSelect(sel)
}

func (m *model) beginSelect(sel dashboard.Selection) tea.Cmd {
	t := m.pipe.Begin(sel, false)
	m.snap = m.pipe.Snapshot()
	m.refreshViewport()
	return m.loadCmd(t)
}

func (m *model) beginRefresh() tea.Cmd {
	t := m.pipe.BeginRefresh()
	m.snap = m.pipe.Snapshot()
	m.refreshViewport()
	return m.loadCmd(t)
}

func (m *model) exportCmd() tea.Cmd {
	m.exporting = true
	a, snap := m.app, m.snap
	return func() tea.Msg {
		exp, err := a.ExportView(snap.Selection.Symbol, snap.Selection.Range, snap.Points, time.Now())
		return exportedMsg{exp: exp, err: err}
	}
}

func (m model) View() string {
	if m.screen == screenLogin {
		return m.loginView()
	}
	if !m.ready {
		return "loading..."
	}
	return m.headerView() + "\n" + m.viewport.View() + "\n" + m.footerView()
}

func (m model) headerView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("stockboard"))
	if u := m.app.Session.Identity(); u.Name != "" {
		b.WriteString(dimStyle.Render("  Hello, " + u.Name))
	}
	b.WriteString("   ")
	for _, r := range dashboard.Ranges {
		if r == m.snap.Selection.Range {
			b.WriteString(rangeHlStyle.Render(" " + string(r) + " "))
		} else {
			b.WriteString(rangeStyle.Render(" " + string(r) + " "))
		}
	}
	b.WriteString("\n")
	b.WriteString(m.symbolBar())
	return b.String()
}

func (m model) symbolBar() string {
	if len(m.snap.Symbols) == 0 {
		return dimStyle.Render("(no symbols)")
	}
	parts := make([]string, 0, len(m.snap.Symbols))
	for _, s := range m.snap.Symbols {
		label := " " + m.snap.Labels[s] + " "
		if s == m.snap.Selection.Symbol {
			parts = append(parts, symbolHlStyle.Render(label))
		} else {
			parts = append(parts, symbolStyle.Render(label))
		}
	}
	return strings.Join(parts, "")
}

func (m model) footerView() string {
	if m.status != "" {
		return statusStyle.Render(" " + m.status + " ")
	}
	return dimStyle.Render("←/→ symbol  1-5 range  r refresh  e export  x logout  q quit")
}

func (m model) renderContent() string {
	switch m.snap.State {
	case dashboard.Loading:
		return dimStyle.Render(fmt.Sprintf("Loading %s %s...", m.snap.Selection.Symbol, m.snap.Selection.Range))
	case dashboard.Error:
		return errorStyle.Render(m.snap.Message) + "\n\n" + dimStyle.Render("Press r to retry.")
	}

	sel := m.snap.Selection
	if len(m.snap.Points) == 0 {
		return dimStyle.Render(fmt.Sprintf("No data for %s in the last %s.", sel.Symbol, sel.Range))
	}

	var b strings.Builder
	width := m.width
	if width < 40 {
		width = 40
	}
	chartH := m.viewport.Height - 12
	if chartH < 4 {
		chartH = 4
	}
	b.WriteString(chartStyle.Render(chart.RenderText(m.snap.Points, width-2, chartH)))
	b.WriteString("\n\n")
	b.WriteString(m.renderStats(dashboard.Summarize(m.snap.Points)))
	b.WriteString("\n")
	b.WriteString(m.renderRecent(5))
	return b.String()
}

func (m model) renderStats(s dashboard.Stats) string {
	change := dashboard.FormatChange(s.ChangePct)
	switch {
	case s.Change.IsPositive():
		change = gainStyle.Render(change)
	case s.Change.IsNegative():
		change = lossStyle.Render(change)
	}
	return fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s  %s %s\n",
		colHeaderStyle.Render("Close"), dashboard.FormatPrice(s.LastClose),
		colHeaderStyle.Render("Chg"), change,
		colHeaderStyle.Render("High"), dashboard.FormatPrice(s.High),
		colHeaderStyle.Render("Low"), dashboard.FormatPrice(s.Low),
		colHeaderStyle.Render("Avg"), dashboard.FormatPrice(s.AvgClose),
		colHeaderStyle.Render("Vol"), dashboard.FormatVolume(s.TotalVolume))
}

// renderRecent lists the last n points, newest first.
func (m model) renderRecent(n int) string {
	var b strings.Builder
	b.WriteString(colHeaderStyle.Render(fmt.Sprintf("%-12s %10s %10s %10s %10s %14s", "Date", "Open", "High", "Low", "Close", "Volume")))
	b.WriteString("\n")
	pts := m.snap.Points
	for i := len(pts) - 1; i >= 0 && i >= len(pts)-n; i-- {
		p := pts[i]
		fmt.Fprintf(&b, "%-12s %10s %10s %10s %10s %14s\n",
			p.Date, dashboard.FormatPrice(p.Open), dashboard.FormatPrice(p.High),
			dashboard.FormatPrice(p.Low), dashboard.FormatPrice(p.Close), dashboard.FormatInt(p.Volume))
	}
	return b.String()
}
