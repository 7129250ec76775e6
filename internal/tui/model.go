package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"trueneutral/internal/chunker"
	"trueneutral/internal/domain"
	"trueneutral/internal/present"
	"trueneutral/internal/service"
)

const (
	fieldTitle = iota
	fieldSummary
)

// Model is the Bubble Tea model for the recommendation browser.
type Model struct {
	service   domain.Recommender
	printer   *present.Printer
	inputs    [2]textinput.Model
	focus     int
	viewport  viewport.Model
	results   []domain.Recommendation
	info      string
	status    string
	cursor    int
	nsim      int
	ready     bool
	lastQuery string
}

// New creates a TUI model. info is shown under the header; nsim is the result count per query.
func New(svc domain.Recommender, info string, nsim int) Model {
	title := textinput.New()
	title.Prompt = "Title   > "
	title.Placeholder = "Book title, Enter to search"
	title.Focus()
	title.CharLimit = 0

	summary := textinput.New()
	summary.Prompt = "Summary > "
	summary.Placeholder = "Used when the title is not in the catalog"
	summary.CharLimit = 0

	return Model{
		service:  svc,
		printer:  present.NewPrinter(nil, true),
		inputs:   [2]textinput.Model{title, summary},
		viewport: viewport.New(0, 0),
		info:     info,
		nsim:     nsim,
		status:   "Loaded. Tab switches fields, Up/Down browses results.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + len(m.inputs) + qh + 1 // header and info, status, inputs, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "tab", "shift+tab":
			m.inputs[m.focus].Blur()
			m.focus = (m.focus + 1) % len(m.inputs)
			return m, m.inputs[m.focus].Focus()
		case "enter":
			m.search()
			m.viewport.SetContent(m.renderCurrentResult())
			return m, nil
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) search() {
	title := strings.TrimSpace(m.inputs[fieldTitle].Value())
	summary := strings.TrimSpace(m.inputs[fieldSummary].Value())
	if title == "" && summary == "" {
		m.status = "Enter a title or a summary."
		return
	}
	ctx := service.WithSource(context.Background(), "tui")
	recs, err := m.service.Recommend(ctx, domain.Query{Title: title, Summary: summary, NSim: m.nsim, WithSummary: true})
	if err != nil {
		m.status = "Error: " + err.Error()
		m.results = nil
		return
	}
	label := title
	if label == "" {
		label = "summary"
	}
	m.status = fmt.Sprintf("%d books similar to %q", len(recs), label)
	m.results = recs
	m.cursor = 0
	m.lastQuery = title + " " + summary
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Book Recommendations")
	info := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.info)
	input := queryBoxStyle.Render(m.inputs[fieldTitle].View() + "\n" + m.inputs[fieldSummary].View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + info + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	head := fmt.Sprintf("Result %d/%d", m.cursor+1, len(m.results))
	body := m.printer.Format(r)
	if r.Book.Summary != "" {
		body += "\n\n" + highlightBestSentence(r.Book.Summary, m.lastQuery)
	}
	return head + "\n\n" + body
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// highlightBestSentence marks the sentence of text sharing the most words with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := chunker.SplitSentences(text)
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := 0, -1
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := map[string]struct{}{}
	for _, t := range unicodeWordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
