package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	monolens "github.com/monolens/monolens"
	"github.com/monolens/monolens/exports"
	"github.com/monolens/monolens/snapshot"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// maxListRows caps the visible class list; the window slides to keep
// the selection on screen.
const maxListRows = 15

type modelState int

const (
	stateAssemblies modelState = iota
	stateClasses
	stateDetail
)

type asmEntry struct {
	name    string
	image   string
	classes []string
}

type inspectModel struct {
	err      error
	filename string
	acc      monolens.Accessor
	summary  string
	asms     []asmEntry
	filter   textinput.Model
	filtered []int
	detail   string
	selAsm   int
	selCls   int
	state    modelState
}

type loadedMsg struct {
	err     error
	acc     monolens.Accessor
	summary string
	asms    []asmEntry
}

func newInspectModel(filename string) *inspectModel {
	filter := textinput.New()
	filter.Placeholder = "filter"
	filter.Prompt = "/ "
	filter.Width = 40
	return &inspectModel{
		filename: filename,
		filter:   filter,
		state:    stateAssemblies,
	}
}

func (m *inspectModel) Init() tea.Cmd {
	return m.loadSnapshot
}

func (m *inspectModel) loadSnapshot() tea.Msg {
	snap, err := snapshot.Load(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}
	acc := snapshot.New(snap)

	asms := make([]asmEntry, 0, len(snap.Assemblies))
	for _, asm := range snap.Assemblies {
		entry := asmEntry{name: asm.Name, image: asm.Image.Name}
		for _, cls := range asm.Image.Classes {
			entry.classes = append(entry.classes, fullName(cls.Namespace, cls.Name))
		}
		sort.Strings(entry.classes)
		asms = append(asms, entry)
	}

	return loadedMsg{acc: acc, summary: exports.Probe(acc).Summary(), asms: asms}
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			// The class list has a live filter; q there is just a letter.
			if m.state != stateClasses {
				return m, tea.Quit
			}

		case "up", "k":
			if msg.String() == "k" && m.state == stateClasses {
				break
			}
			switch m.state {
			case stateAssemblies:
				if m.selAsm > 0 {
					m.selAsm--
				}
			case stateClasses:
				if m.selCls > 0 {
					m.selCls--
				}
			}
			return m, nil

		case "down", "j":
			if msg.String() == "j" && m.state == stateClasses {
				break
			}
			switch m.state {
			case stateAssemblies:
				if m.selAsm < len(m.asms)-1 {
					m.selAsm++
				}
			case stateClasses:
				if m.selCls < len(m.filtered)-1 {
					m.selCls++
				}
			}
			return m, nil

		case "enter":
			switch m.state {
			case stateAssemblies:
				if len(m.asms) == 0 {
					return m, nil
				}
				m.filter.SetValue("")
				m.filter.Focus()
				m.selCls = 0
				m.refilter()
				m.state = stateClasses
			case stateClasses:
				if len(m.filtered) == 0 {
					return m, nil
				}
				name := m.asms[m.selAsm].classes[m.filtered[m.selCls]]
				report, err := classReport(m.acc, name, true)
				if err != nil {
					report = errorStyle.Render(fmt.Sprintf("Error: %v", err))
				}
				m.detail = report
				m.state = stateDetail
			case stateDetail:
				m.state = stateClasses
			}
			return m, nil

		case "esc":
			switch m.state {
			case stateClasses:
				m.filter.Blur()
				m.state = stateAssemblies
			case stateDetail:
				m.state = stateClasses
			}
			return m, nil
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.acc = msg.acc
		m.summary = msg.summary
		m.asms = msg.asms
		return m, nil
	}

	if m.state == stateClasses {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.refilter()
		return m, cmd
	}

	return m, nil
}

// refilter recomputes the visible class indices for the current filter
// text and clamps the selection into range.
func (m *inspectModel) refilter() {
	m.filtered = m.filtered[:0]
	needle := strings.ToLower(m.filter.Value())
	for i, name := range m.asms[m.selAsm].classes {
		if needle == "" || strings.Contains(strings.ToLower(name), needle) {
			m.filtered = append(m.filtered, i)
		}
	}
	if m.selCls >= len(m.filtered) {
		m.selCls = max(0, len(m.filtered)-1)
	}
}

func (m *inspectModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if len(m.asms) == 0 {
		return "Loading capture..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("monolens"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateAssemblies:
		b.WriteString(m.summary)
		b.WriteString("\n\nAssemblies:\n\n")
		for i, asm := range m.asms {
			line := fmt.Sprintf("%s %s (%d classes)",
				nameStyle.Render(asm.name), dimStyle.Render(asm.image), len(asm.classes))
			if i == m.selAsm {
				b.WriteString(selectedStyle.Render("> ") + line)
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter open • q quit"))

	case stateClasses:
		asm := m.asms[m.selAsm]
		b.WriteString(nameStyle.Render(asm.name))
		b.WriteString(" ")
		b.WriteString(dimStyle.Render(asm.image))
		b.WriteString("\n\n")
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")

		start := 0
		if m.selCls >= maxListRows {
			start = m.selCls - maxListRows + 1
		}
		end := min(start+maxListRows, len(m.filtered))
		for row := start; row < end; row++ {
			name := asm.classes[m.filtered[row]]
			if row == m.selCls {
				b.WriteString(selectedStyle.Render("> " + name))
			} else {
				b.WriteString("  " + name)
			}
			b.WriteString("\n")
		}
		if len(m.filtered) == 0 {
			b.WriteString(helpStyle.Render("  no classes match"))
			b.WriteString("\n")
		} else if end < len(m.filtered) {
			b.WriteString(helpStyle.Render(fmt.Sprintf("  … %d more", len(m.filtered)-end)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("type to filter • ↑/↓ select • enter inspect • esc back"))

	case stateDetail:
		b.WriteString(m.detail)
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter/esc back • q quit"))
	}

	return b.String()
}

func runInteractive(filename string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode needs a terminal")
	}
	p := tea.NewProgram(newInspectModel(filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
