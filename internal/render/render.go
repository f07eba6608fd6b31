// Package render formats novena content and subscriptions for a terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fyrsmithlabs/novenad/internal/expansion"
	"github.com/fyrsmithlabs/novenad/internal/subscription"
)

// DefaultWidth is used when the caller passes a non-positive width.
const DefaultWidth = 72

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("178")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178")).
			Bold(true).
			MarginTop(1)

	prayerTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("231")).
				Bold(true)

	// Rubrics are stage directions, never read aloud.
	rubricStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("160")).
			Italic(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	inactiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

// Day renders an expanded day as a bordered page.
func Day(novenaTitle string, day *expansion.ExpandedDay, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	inner := width - containerStyle.GetHorizontalFrameSize()
	text := lipgloss.NewStyle().Width(inner)

	var b strings.Builder
	b.WriteString(headerStyle.Render(novenaTitle) + "\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Dia %d · %s", day.Day, day.Title)) + "\n")

	for _, section := range []struct {
		name   string
		blocks []expansion.Block
	}{
		{"Abertura", day.Parts.Opening},
		{"Meditação", day.Parts.Body},
		{"Encerramento", day.Parts.Closing},
	} {
		if len(section.blocks) == 0 {
			continue
		}
		b.WriteString(sectionStyle.Render("┃ "+section.name) + "\n")
		for _, block := range section.blocks {
			b.WriteString(text.Render(renderBlock(block)) + "\n")
		}
	}

	return containerStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderBlock(block expansion.Block) string {
	switch block.Type {
	case expansion.TypeRubric:
		return rubricStyle.Render(block.Text)
	case expansion.TypeRef:
		title := prayerTitleStyle.Render(block.Title)
		if block.Memorized || block.Content == nil {
			return title + " " + dimStyle.Render("(de cor)")
		}
		return title + "\n" + *block.Content
	default:
		return block.Text
	}
}

// Subscriptions renders one line per subscription.
func Subscriptions(subs []subscription.Subscription) string {
	if len(subs) == 0 {
		return dimStyle.Render("no subscriptions")
	}
	var b strings.Builder
	for _, s := range subs {
		status := activeStyle.Render("●")
		if !s.Active {
			status = inactiveStyle.Render("○")
		}
		last := s.LastCompleted
		if last == "" {
			last = "-"
		}
		fmt.Fprintf(&b, "%s %-20s %-24s dia %-2d %s %s\n",
			status,
			s.UserID,
			s.NovenaID,
			s.CurrentDay,
			dimStyle.Render("last:"),
			last,
		)
	}
	return strings.TrimRight(b.String(), "\n")
}
