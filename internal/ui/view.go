package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/cquery/internal/state"
)

const (
	statusIdle    = "idle"
	statusLoading = "loading"
	statusReady   = "ready"
	statusError   = "error"
	statusFailing = "failing"
)

const (
	keyWidth     = 20
	statusWidth  = 9
	ageWidth     = 6
	updatesWidth = 8
)

// entryStatus maps an entry onto the badge shown in the status column.
func entryStatus(e state.Entry) string {
	switch {
	case e.Snapshot.Loading:
		return statusLoading
	case e.IsFailing():
		return statusFailing
	case e.LastError != nil:
		return statusError
	case e.Notifications == 0:
		return statusIdle
	default:
		return statusReady
	}
}

func (m Model) renderMain() string {
	styles := m.theme.Styles()
	parts := []string{m.renderHeader()}
	if m.lastErr != nil {
		parts = append(parts, styles.WarningText.Render("  "+truncate(m.lastErr.Error(), m.width-4)))
	}
	parts = append(parts, m.renderTableHeader())
	if len(m.entries) == 0 {
		parts = append(parts, styles.MutedText.Render("  No queries in the manifest."))
	}
	for i, e := range m.entries {
		parts = append(parts, m.renderRow(e, i == m.selected))
	}
	parts = append(parts, m.renderFooter())
	return strings.Join(parts, "\n")
}

func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	var loading, failing int
	for _, e := range m.entries {
		switch entryStatus(e) {
		case statusLoading:
			loading++
		case statusFailing, statusError:
			failing++
		}
	}

	parts := []string{
		bg.Render("cquery", styles.Logo),
		bg.Render(fmt.Sprintf("%d queries", len(m.entries)), styles.Text),
	}
	if loading > 0 {
		parts = append(parts, bg.Render(fmt.Sprintf("%d loading", loading), styles.AccentText))
	}
	if failing > 0 {
		parts = append(parts, bg.Render(fmt.Sprintf("%d failing", failing), styles.DangerText))
	}
	if !m.lastRefresh.IsZero() {
		parts = append(parts, bg.Render("refreshed "+m.lastRefresh.Format("15:04:05"), styles.MutedText))
	}

	return bg.FillLine(m.theme.Styles().Header.Render(bg.Join(parts, "  ")), m.width)
}

func (m Model) renderTableHeader() string {
	styles := m.theme.Styles()
	line := "  " + padRight("KEY", keyWidth) + " " +
		padRight("STATUS", statusWidth) + " " +
		padRight("AGE", ageWidth) + " " +
		padRight("UPDATES", updatesWidth) + " " +
		"DETAIL"
	return styles.FaintText.Render(line)
}

func (m Model) renderRow(e state.Entry, selected bool) string {
	styles := m.theme.Styles()
	status := entryStatus(e)

	marker := "  "
	if status == statusLoading {
		marker = m.spinner.View() + " "
	}

	age := "-"
	if !e.LastUpdated.IsZero() {
		age = humanizeDuration(m.now().Sub(e.LastUpdated))
	}

	detail := e.URL
	detailStyle := styles.MutedText
	if e.LastError != nil {
		detail = e.LastError.Error()
		detailStyle = styles.DangerText
	}
	detailWidth := m.width - (2 + keyWidth + statusWidth + ageWidth + updatesWidth + 4)
	if detailWidth < 10 {
		detailWidth = 10
	}

	badge := styles.StatusStyle(status).Width(statusWidth).Render(status)

	if selected {
		plain := marker + padRight(truncate(e.Key, keyWidth), keyWidth) + " " +
			padRight(status, statusWidth) + " " +
			padRight(age, ageWidth) + " " +
			padRight(fmt.Sprint(e.Notifications), updatesWidth) + " " +
			truncate(detail, detailWidth)
		return styles.Selected.Width(m.width).Render(plain)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		marker,
		styles.Text.Render(padRight(truncate(e.Key, keyWidth), keyWidth)), " ",
		badge, " ",
		styles.MutedText.Render(padRight(age, ageWidth)), " ",
		styles.Text.Render(padRight(fmt.Sprint(e.Notifications), updatesWidth)), " ",
		detailStyle.Render(truncate(detail, detailWidth)),
	)
}

func (m Model) renderFooter() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	bindings := m.keys.shortHelp()
	parts := make([]string, 0, len(bindings)+1)
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, bg.Render(h.Key, styles.AccentText)+bg.Spaces(1)+bg.Render(h.Desc, styles.MutedText))
	}
	parts = append(parts, bg.Render(m.theme.Name, styles.FaintText))

	return bg.FillLine(m.theme.Styles().Footer.Render(bg.Join(parts, "  ")), m.width)
}
