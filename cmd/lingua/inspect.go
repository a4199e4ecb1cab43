package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/germanamz/lingua/pkg/chats/request"
	"github.com/germanamz/lingua/pkg/convert"
	"github.com/germanamz/lingua/pkg/fidelity"
)

const helpMarkdown = `# Inspector keys

| Key | Action |
|-----|--------|
| tab / right | next provider |
| shift+tab / left | previous provider |
| up / down / pgup / pgdn | scroll |
| ? | toggle this help |
| q | quit |

The verdict above the wire output reports whether the conversion was
lossless for the selected provider. Long lines (inline base64 payloads)
are truncated for display only; the converted request is complete.
`

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle   = lipgloss.NewStyle().Faint(true)
	losslessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func runInspect(in string) error {
	var req request.ModelRequest
	var err error

	if in != "" {
		req, err = readRequest(in)
		if err != nil {
			return err
		}
	} else {
		req, err = promptRequest()
		if err != nil {
			return err
		}
	}

	target := allProviders[0]
	options := make([]huh.Option[string], len(allProviders))
	for i, name := range allProviders {
		options[i] = huh.NewOption(name, name)
	}

	if err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Target provider").
			Options(options...).
			Value(&target),
	)).Run(); err != nil {
		return err
	}

	m := newInspectModel(req, target)

	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()

	return err
}

// promptRequest collects pasted canonical JSON when no fixture file was
// given.
func promptRequest() (request.ModelRequest, error) {
	var raw string

	if err := huh.NewForm(huh.NewGroup(
		huh.NewText().
			Title("Canonical request JSON").
			Description("Paste a canonical ModelRequest").
			Value(&raw),
	)).Run(); err != nil {
		return request.ModelRequest{}, err
	}

	var req request.ModelRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return request.ModelRequest{}, fmt.Errorf("parse request: %w", err)
	}

	return req, nil
}

type inspectModel struct {
	req       request.ModelRequest
	providers []string
	idx       int
	vp        viewport.Model
	help      string
	showHelp  bool
	ready     bool
	width     int
}

func newInspectModel(req request.ModelRequest, target string) inspectModel {
	idx := 0
	for i, name := range allProviders {
		if name == target {
			idx = i
			break
		}
	}

	return inspectModel{
		req:       req,
		providers: allProviders,
		idx:       idx,
		help:      renderHelp(),
	}
}

// renderHelp renders the key reference with glamour, falling back to the
// raw markdown when the renderer is unavailable.
func renderHelp() string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
	if err != nil {
		return helpMarkdown
	}

	out, err := r.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}

	return out
}

func (m inspectModel) Init() tea.Cmd {
	return nil
}

func (m inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		headerHeight := 2
		footerHeight := 1

		if !m.ready {
			m.vp = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = msg.Height - headerHeight - footerHeight
		}

		m.vp.SetContent(m.render())

		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "right":
			m.idx = (m.idx + 1) % len(m.providers)
			m.vp.SetContent(m.render())
			m.vp.GotoTop()

			return m, nil
		case "shift+tab", "left":
			m.idx = (m.idx - 1 + len(m.providers)) % len(m.providers)
			m.vp.SetContent(m.render())
			m.vp.GotoTop()

			return m, nil
		case "?":
			m.showHelp = !m.showHelp
			m.vp.SetContent(m.render())
			m.vp.GotoTop()

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)

	return m, cmd
}

func (m inspectModel) View() string {
	if !m.ready {
		return "loading..."
	}

	title := titleStyle.Render(fmt.Sprintf("lingua inspect — %s", m.providers[m.idx]))
	status := statusStyle.Render("tab: next provider • ?: help • q: quit")

	return title + "\n\n" + m.vp.View() + "\n" + status
}

// render builds the viewport body for the current provider: verdict, wire
// output, and roundtrip report.
func (m inspectModel) render() string {
	if m.showHelp {
		return m.help
	}

	var b strings.Builder

	target := m.providers[m.idx]

	out, err := convertFor(target, m.req, "model", convert.ShadowAllowed, true)
	if out.plan != nil {
		b.WriteString(renderVerdict(out.plan))
	}
	if err != nil {
		b.WriteString(lossyStyle.Render(fmt.Sprintf("conversion failed: %v", err)))
		b.WriteString("\n")

		return b.String()
	}

	wireJSON, err := json.MarshalIndent(out.wire, "", "  ")
	if err != nil {
		return fmt.Sprintf("marshal wire request: %v", err)
	}

	b.WriteString("\n")
	b.WriteString(truncateLines(string(wireJSON), maxLineWidth(m.width)))
	b.WriteString("\n")

	if out.back != nil {
		report, err := fidelity.CompareRequests(m.req, *out.back)
		if err == nil {
			b.WriteString("\n")
			if report.Equal {
				b.WriteString(losslessStyle.Render("roundtrip: identical"))
			} else {
				b.WriteString(lossyStyle.Render("roundtrip: differences found"))
				b.WriteString("\n")
				b.WriteString(report.Diff)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

func renderVerdict(plan *convert.Plan) string {
	var b strings.Builder

	if plan.IsLossless() && len(plan.Warnings()) == 0 {
		b.WriteString(losslessStyle.Render(fmt.Sprintf("lossless conversion for %s", plan.Provider)))
		b.WriteString("\n")

		return b.String()
	}

	if !plan.IsLossless() {
		b.WriteString(lossyStyle.Render(fmt.Sprintf("lossy conversion for %s", plan.Provider)))
		b.WriteString("\n")
	}

	for _, warning := range plan.Warnings() {
		b.WriteString(warnStyle.Render("warning: " + warning))
		b.WriteString("\n")
	}

	for _, err := range plan.Errors() {
		b.WriteString(lossyStyle.Render(fmt.Sprintf("error: %v", err)))
		b.WriteString("\n")
	}

	return b.String()
}

func maxLineWidth(width int) int {
	if width <= 0 {
		return 120
	}

	return width
}
