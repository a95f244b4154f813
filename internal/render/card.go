package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"precedent/internal/domain"
)

var (
	cardStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	teamStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	dateStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	scoreStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	titleStyle     = lipgloss.NewStyle().Bold(true)
	sectionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Underline(true)
	linkStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Underline(true)
	fileStyle      = lipgloss.NewStyle().Bold(true)
	historyMeta    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	historyHeading = lipgloss.NewStyle().Bold(true)
)

// Relevance converts a score in [0,1] to a whole percentage.
func Relevance(score float64) int {
	p := int(math.Round(score * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Renderer formats search results. It holds no state besides its settings.
type Renderer struct {
	Links domain.DocumentLinker
	// Width of a card including its border. Zero means no wrapping.
	Width int
	// Query, when set, picks the excerpt sentence to highlight.
	Query string
}

// Card renders one result.
func (r Renderer) Card(res domain.SearchResult) string {
	d := res.Decision
	var b strings.Builder

	b.WriteString(teamStyle.Render("[" + d.Team + "]"))
	b.WriteString("  ")
	b.WriteString(dateStyle.Render(d.Date))
	b.WriteString("  ")
	b.WriteString(scoreStyle.Render(fmt.Sprintf("%d%% Match", Relevance(res.Score))))
	b.WriteString("\n")
	b.WriteString(titleStyle.Render(d.Title))
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("Rationale"))
	b.WriteString("\n")
	writeBullets(&b, d.Rationale.Points())

	if len(d.Alternatives) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("Alternatives Considered"))
		b.WriteString("\n")
		writeBullets(&b, d.Alternatives)
	}

	if d.Outcome != nil && strings.TrimSpace(*d.Outcome) != "" {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("Outcome"))
		b.WriteString("\n")
		b.WriteString(*d.Outcome)
		b.WriteString("\n")
	}

	if excerpt := Excerpt(res.Context, r.Query); excerpt != "" {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("Excerpt"))
		b.WriteString("\n")
		b.WriteString(excerpt)
		b.WriteString("\n")
	}

	b.WriteString("\nSource: ")
	b.WriteString(linkStyle.Render(r.SourceLink(d.SourceFile)))

	style := cardStyle.Copy()
	if r.Width > 0 {
		style = style.Width(max(10, r.Width-cardStyle.GetHorizontalBorderSize()))
	}
	return style.Render(b.String())
}

// Cards renders results in order, separated by a blank line.
func (r Renderer) Cards(results []domain.SearchResult) string {
	out := make([]string, 0, len(results))
	for _, res := range results {
		out = append(out, r.Card(res))
	}
	return strings.Join(out, "\n")
}

// SourceLink returns the document retrieval link, or the bare name when no linker is set.
func (r Renderer) SourceLink(sourceFile string) string {
	if r.Links == nil {
		return sourceFile
	}
	return r.Links.DocumentURL(sourceFile)
}

// History renders the upload history list. Empty input renders nothing.
func History(files []domain.UploadedFileRecord) string {
	if len(files) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(historyHeading.Render("Upload History"))
	for _, f := range files {
		b.WriteString("\n  ")
		b.WriteString(fileStyle.Render(f.Filename))
		b.WriteString("  ")
		b.WriteString(historyMeta.Render(f.UploadTime + " · " + f.UploadedBy))
	}
	return b.String()
}

func writeBullets(b *strings.Builder, items []string) {
	for _, it := range items {
		b.WriteString("  • ")
		b.WriteString(it)
		b.WriteString("\n")
	}
}
