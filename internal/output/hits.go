package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/CoReason-AI/coreason-search/internal/schema"
)

// Color palette for hit rendering.
const (
	colorCyan     = "86"  // doc ids
	colorGray     = "245" // scores, timings
	colorDarkGray = "238" // separators
	colorYellow   = "220" // strategy badges
)

const snippetLimit = 240

// hitStyles holds the styles applied to one rendered hit.
type hitStyles struct {
	DocID     lipgloss.Style
	Score     lipgloss.Style
	Badge     lipgloss.Style
	Snippet   lipgloss.Style
	Separator lipgloss.Style
}

func styledHitStyles() hitStyles {
	return hitStyles{
		DocID:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorCyan)),
		Score:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Badge:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		Snippet:   lipgloss.NewStyle(),
		Separator: lipgloss.NewStyle().Foreground(lipgloss.Color(colorDarkGray)),
	}
}

func plainHitStyles() hitStyles {
	return hitStyles{
		DocID:     lipgloss.NewStyle(),
		Score:     lipgloss.NewStyle(),
		Badge:     lipgloss.NewStyle(),
		Snippet:   lipgloss.NewStyle(),
		Separator: lipgloss.NewStyle(),
	}
}

// HitRenderer writes a ranked hit list for human consumption. Styling is
// enabled only when the destination is a terminal and NO_COLOR is unset.
type HitRenderer struct {
	out    io.Writer
	styles hitStyles
}

// NewHitRenderer creates a renderer, detecting terminal capability from
// the destination.
func NewHitRenderer(out io.Writer) *HitRenderer {
	styles := plainHitStyles()
	if IsTTY(out) && !DetectNoColor() {
		styles = styledHitStyles()
	}
	return &HitRenderer{out: out, styles: styles}
}

// Render writes the response: one block per hit plus a summary line.
func (r *HitRenderer) Render(resp *schema.SearchResponse) {
	if resp.TotalFound == 0 {
		_, _ = fmt.Fprintln(r.out, "No results found.")
		return
	}

	for i, hit := range resp.Hits {
		r.renderHit(i+1, hit)
	}

	summary := fmt.Sprintf("%d results in %.1f ms  provenance %s",
		resp.TotalFound, resp.ExecutionTimeMS, shortHash(resp.ProvenanceHash))
	_, _ = fmt.Fprintln(r.out, r.styles.Separator.Render(summary))
}

func (r *HitRenderer) renderHit(rank int, hit *schema.Hit) {
	header := fmt.Sprintf("%2d. %s  %s  %s",
		rank,
		r.styles.DocID.Render(hit.DocID),
		r.styles.Badge.Render("["+string(hit.SourceStrategy)+"]"),
		r.styles.Score.Render(fmt.Sprintf("score=%.4f", hit.Score)))
	_, _ = fmt.Fprintln(r.out, header)

	if snippet := hitSnippet(hit); snippet != "" {
		_, _ = fmt.Fprintf(r.out, "    %s\n", r.styles.Snippet.Render(snippet))
	}
	_, _ = fmt.Fprintln(r.out)
}

// hitSnippet prefers the distilled extract over raw content.
func hitSnippet(hit *schema.Hit) string {
	text := hit.DistilledText
	if text == "" && hit.Content != nil {
		text = *hit.Content
	}
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > snippetLimit {
		text = text[:snippetLimit] + "…"
	}
	return text
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
