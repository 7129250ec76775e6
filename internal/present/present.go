// Package present renders recommendations for terminal output.
package present

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"trueneutral/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	scoreStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// Printer writes recommendations one block per book, separated by blank lines.
type Printer struct {
	w      io.Writer
	styled bool
}

// NewPrinter returns a printer writing to w. styled enables lipgloss colors.
func NewPrinter(w io.Writer, styled bool) *Printer {
	return &Printer{w: w, styled: styled}
}

func (p *Printer) Print(recs []domain.Recommendation) error {
	for _, rec := range recs {
		if _, err := io.WriteString(p.w, p.Format(rec)+"\n\n"); err != nil {
			return err
		}
	}
	return nil
}

// Format renders one recommendation without the trailing separator.
func (p *Printer) Format(rec domain.Recommendation) string {
	var b strings.Builder
	b.WriteString(p.style(titleStyle, rec.Book.Title))
	b.WriteString(" by ")
	b.WriteString(rec.Book.Author)
	b.WriteString("\n")
	b.WriteString(p.style(labelStyle, "Genres: "))
	b.WriteString(rec.Book.Genres)
	b.WriteString("\n")
	b.WriteString(p.style(labelStyle, "Correlation: "))
	b.WriteString(p.style(scoreStyle, fmt.Sprintf("%.2f", rec.Score)))
	if rec.ShortSummary != "" {
		b.WriteString("\n")
		b.WriteString(p.style(labelStyle, "Short Summary:"))
		b.WriteString("\n")
		b.WriteString(rec.ShortSummary)
	}
	return b.String()
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}
