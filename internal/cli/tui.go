package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/pipeline"
)

const (
	barWidth = 30
	logLines = 5
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// Messages - sent by the pipeline hooks and the run goroutine
// =============================================================================

type indicatorStartMsg struct {
	name   string
	frames int
}

type frameRenderedMsg struct {
	name string
	year int
}

type encodeStartMsg struct{ name string }

type indicatorDoneMsg struct {
	name    string
	video   string
	elapsed time.Duration
	err     error
}

type logLineMsg string

type runDoneMsg struct {
	result *pipeline.Result
	err    error
}

// =============================================================================
// ProgressModel - live view of an animation run
// =============================================================================

// indicatorProgress is the state of one indicator's row.
type indicatorProgress struct {
	name     string
	total    int
	rendered int
	year     int
	encoding bool
	video    string
	elapsed  time.Duration
	err      error
	done     bool
}

// ProgressModel is the bubbletea model shown by "animate --tui".
type ProgressModel struct {
	Indicators []*indicatorProgress
	Logs       []string
	Result     *pipeline.Result
	Err        error
	Finished   bool
	Aborted    bool
	start      time.Time
}

// NewProgressModel creates an empty progress view.
func NewProgressModel() ProgressModel {
	return ProgressModel{start: time.Now()}
}

func (m ProgressModel) Init() tea.Cmd {
	return nil
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Aborted = !m.Finished
			return m, tea.Quit
		}
	case indicatorStartMsg:
		m.Indicators = append(m.Indicators, &indicatorProgress{name: msg.name, total: msg.frames})
	case frameRenderedMsg:
		if p := m.find(msg.name); p != nil {
			p.rendered++
			p.year = msg.year
		}
	case encodeStartMsg:
		if p := m.find(msg.name); p != nil {
			p.encoding = true
		}
	case indicatorDoneMsg:
		p := m.find(msg.name)
		if p == nil {
			// Failed before its first frame.
			p = &indicatorProgress{name: msg.name}
			m.Indicators = append(m.Indicators, p)
		}
		p.done, p.encoding = true, false
		p.video, p.elapsed, p.err = msg.video, msg.elapsed, msg.err
	case logLineMsg:
		m.Logs = append(m.Logs, strings.TrimRight(string(msg), "\n"))
		if len(m.Logs) > logLines {
			m.Logs = m.Logs[len(m.Logs)-logLines:]
		}
	case runDoneMsg:
		m.Result, m.Err, m.Finished = msg.result, msg.err, true
		return m, tea.Quit
	}
	return m, nil
}

// find returns the most recent row for name.
func (m ProgressModel) find(name string) *indicatorProgress {
	for i := len(m.Indicators) - 1; i >= 0; i-- {
		if m.Indicators[i].name == name {
			return m.Indicators[i]
		}
	}
	return nil
}

func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Animating GCBM results"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("elapsed %s  q quit", time.Since(m.start).Round(time.Second))))
	b.WriteString("\n\n")

	width := 0
	for _, p := range m.Indicators {
		width = max(width, lipgloss.Width(p.name))
	}
	for _, p := range m.Indicators {
		b.WriteString(m.row(p, width))
		b.WriteString("\n")
	}
	if len(m.Indicators) == 0 {
		b.WriteString(listDimStyle.Render("  preparing study area..."))
		b.WriteString("\n")
	}

	if len(m.Logs) > 0 {
		b.WriteString("\n")
		for _, line := range m.Logs {
			b.WriteString(listDimStyle.Render("  " + line))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m ProgressModel) row(p *indicatorProgress, width int) string {
	name := p.name + strings.Repeat(" ", width-lipgloss.Width(p.name))
	switch {
	case p.err != nil:
		return styleIconError.Render(iconError) + " " + listNormalStyle.Render(name) + "  " +
			StyleWarning.Render(errors.UserMessage(p.err))
	case p.done:
		return styleIconSuccess.Render(iconSuccess) + " " + listNormalStyle.Render(name) + "  " +
			listDimStyle.Render(fmt.Sprintf("%s (%s)", p.video, p.elapsed.Round(time.Millisecond)))
	}

	status := fmt.Sprintf("%d/%d", p.rendered, p.total)
	if p.year != 0 {
		status += fmt.Sprintf("  year %d", p.year)
	}
	if p.encoding {
		status = "encoding video"
	}
	return styleIconSpinner.Render(iconInfo) + " " + listSelectedStyle.Render(name) + "  " +
		progressBar(p.rendered, p.total, barWidth) + "  " + listDimStyle.Render(status)
}

// progressBar draws done/total as a fixed-width bar.
func progressBar(done, total, width int) string {
	filled := 0
	if total > 0 {
		filled = min(width, done*width/total)
	}
	return styleBar.Render(strings.Repeat("█", filled)) + listDimStyle.Render(strings.Repeat("░", width-filled))
}
