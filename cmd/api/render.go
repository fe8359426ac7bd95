package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
	"github.com/ewilliams-labs/natal-symphony/internal/core/services"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C792EA"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#82AAFF"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	promptStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#C792EA")).Padding(0, 1)
)

// renderSummary prints the chart, its strongest aspects, the movements and
// the prompt.
func renderSummary(w io.Writer, r services.CompositionResult) error {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("✨ Natal Symphony") + "\n\n")

	sb.WriteString(headingStyle.Render("Planets") + "\n")
	for _, p := range r.Chart.Planets {
		retro := ""
		if p.Retrograde {
			retro = " ℞"
		}
		fmt.Fprintf(&sb, "  %s %-8s %6.2f° %s %-11s house %2d%s\n",
			domain.PlanetGlyph(p.Name), p.Name, p.ZodiacDegree,
			domain.SignGlyph(p.ZodiacSign), p.ZodiacSign, p.House, retro)
	}

	sb.WriteString("\n" + headingStyle.Render("Strong aspects") + "\n")
	strong := domain.StrongAspects(r.Aspects)
	if len(strong) == 0 {
		sb.WriteString(mutedStyle.Render("  none") + "\n")
	}
	for _, a := range strong {
		fmt.Fprintf(&sb, "  %s %s %s  %-11s orb %.2f°  strength %.2f  %s\n",
			domain.PlanetGlyph(a.Planet1), domain.AspectGlyph(a.AspectName), domain.PlanetGlyph(a.Planet2),
			a.AspectName, a.Orb, a.Strength, mutedStyle.Render(a.MusicalInterval))
	}

	sb.WriteString("\n" + headingStyle.Render("Active transits") + "\n")
	active := domain.ActiveTransits(r.Transits)
	if len(active) == 0 {
		sb.WriteString(mutedStyle.Render("  none") + "\n")
	}
	for _, t := range active {
		fmt.Fprintf(&sb, "  %s %s %s  %-11s intensity %.2f  %s\n",
			domain.PlanetGlyph(t.TransitingPlanet), domain.AspectGlyph(t.AspectName), domain.PlanetGlyph(t.NatalPlanet),
			t.AspectName, t.Intensity, t.Direction)
	}

	sb.WriteString("\n" + headingStyle.Render("Movements") + "\n")
	for i, m := range r.Composition.Movements {
		fmt.Fprintf(&sb, "  %d. %-20s %3ds  keys %-8s tempo %s\n",
			i+1, m.Name, m.Duration, strings.Join(m.KeyChanges, "→"), joinTempos(m.TempoShifts))
		if len(m.PrimaryPlanets) > 0 {
			sb.WriteString(mutedStyle.Render("     "+strings.Join(m.PrimaryPlanets, ", ")) + "\n")
		}
	}
	fmt.Fprintf(&sb, "  total %ds\n\n", r.Composition.TotalDuration)

	sb.WriteString(promptStyle.Render(r.Prompt) + "\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func joinTempos(tempos []int) string {
	parts := make([]string, len(tempos))
	for i, t := range tempos {
		parts[i] = fmt.Sprintf("%d", t)
	}
	return strings.Join(parts, "→")
}
