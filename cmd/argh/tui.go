package main

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chazu/arghonaut/vm"
)

const (
	autoDelay = 100 * time.Millisecond

	// continueLimit bounds a single "c" so a looping program cannot freeze
	// the display. Pressing "c" again continues.
	continueLimit = 1_000_000
)

var (
	pointerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("7"))
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("4"))
	specialStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("5"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("1"))
	inputStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
)

// tickMsg drives auto mode. gen discards ticks from an earlier auto run.
type tickMsg struct{ gen int }

// model is the interactive visualizer and editor.
type model struct {
	interp *vm.Interpreter
	opts   []vm.Option
	code   []string // last saved code, restored by "n"

	ex, ey int // edit cursor
	insert bool
	auto   bool
	gen    int

	top           int // first rendered row
	width, height int
	quitting      bool
}

func newModel(lines []string, opts ...vm.Option) model {
	return model{
		interp: vm.New(lines, opts...),
		opts:   opts,
		code:   lines,
		height: 24,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) tick() tea.Cmd {
	gen := m.gen
	return tea.Tick(autoDelay, func(time.Time) tea.Msg { return tickMsg{gen: gen} })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		if !m.auto || msg.gen != m.gen {
			return m, nil
		}
		m.interp.Step(false)
		m.follow(m.interp.Position())
		return m, m.tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	// Insert mode and pending program input both take the next key verbatim.
	if m.insert {
		if code, ok := keyCode(msg); ok {
			m.interp.Put(m.ex, m.ey, code)
		}
		m.insert = false
		return m, nil
	}
	if m.interp.NeedsInput() {
		if code, ok := keyCode(msg); ok {
			m.interp.InputChar(code)
			m.interp.Step(false)
			m.follow(m.interp.Position())
		}
		return m, nil
	}

	switch msg.String() {
	case " ":
		m.auto = !m.auto
		if m.auto {
			m.gen++
			m.interp.Step(false)
			m.follow(m.interp.Position())
			return m, m.tick()
		}

	case ".", "enter":
		m.interp.Step(false)
		m.follow(m.interp.Position())

	case "h":
		m.moveCursor(m.ex-1, m.ey)
	case "l":
		m.moveCursor(m.ex+1, m.ey)
	case "k":
		m.moveCursor(m.ex, m.ey-1)
	case "j":
		m.moveCursor(m.ex, m.ey+1)

	case "b":
		m.moveCursor(m.interp.Position())
	case "g":
		m.interp.MovePointer(m.ex, m.ey)

	case "i":
		m.insert = true
	case "o":
		m.interp.AppendRow()

	case "c":
		for i := 0; i < continueLimit && !m.interp.Blocked(); i++ {
			m.interp.Step(false)
		}
		m.follow(m.interp.Position())

	case "r":
		m.interp.Reset()
		m.follow(0, 0)
	case "n":
		m.interp = vm.New(m.code, m.opts...)
		if !m.interp.Grid().Valid(m.ex, m.ey) {
			m.ex, m.ey = 0, 0
		}
	case "s":
		m.code = m.interp.Serialize()

	case "q", "esc", "ctrl+d":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// keyCode maps a key press to the character code it types.
func keyCode(msg tea.KeyMsg) (int, bool) {
	switch msg.Type {
	case tea.KeyRunes:
		if len(msg.Runes) == 1 && !msg.Alt {
			return int(msg.Runes[0]), true
		}
	case tea.KeySpace:
		return ' ', true
	case tea.KeyEnter:
		return '\n', true
	case tea.KeyTab:
		return '\t', true
	case tea.KeyCtrlD:
		return vm.EOT, true
	}
	return 0, false
}

func (m *model) moveCursor(x, y int) {
	if m.interp.Grid().Valid(x, y) {
		m.ex, m.ey = x, y
		m.follow(x, y)
	}
}

// follow scrolls so that row y is visible.
func (m *model) follow(_, y int) {
	rows := m.codeRows()
	switch {
	case y < m.top:
		m.top = y
	case y >= m.top+rows:
		m.top = y - rows + 1
	}
}

// codeRows is the number of grid rows that fit above the status area.
func (m model) codeRows() int {
	stack := len(renderStack(m.interp.Stack())) / vm.Width
	rows := m.height - 8 - strings.Count(m.interp.Stdout(), "\n") - stack
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	if m.width > 0 && m.width < vm.Width {
		return errorStyle.Render("Argh!") + " at least 80 columns are required\n"
	}

	var b strings.Builder
	grid := m.interp.Grid()
	px, py := m.interp.Position()
	end := min(grid.Rows(), m.top+m.codeRows())
	for y := m.top; y < end; y++ {
		for x, code := range grid.Row(y) {
			b.WriteString(renderCell(code, x == px && y == py, x == m.ex && y == m.ey))
		}
		b.WriteByte('\n')
	}

	b.WriteString("\nOutput:\n")
	b.WriteString(m.interp.Stdout())
	b.WriteString("\n\nStack:\n")
	b.WriteString(wrap(renderStack(m.interp.Stack()), vm.Width))
	b.WriteString("\n\n")

	switch m.interp.Status() {
	case vm.StatusAwaitingInput:
		b.WriteString(inputStyle.Render("Type a character to input."))
	case vm.StatusDone:
		b.WriteString(doneStyle.Render("Done!"))
		b.WriteString("\nPress Q or Escape to exit.")
	case vm.StatusErrored:
		b.WriteString(errorStyle.Render("Argh!"))
		b.WriteString("\n" + m.interp.Err().Error())
	default:
		if m.insert {
			b.WriteString(inputStyle.Render("Type a character to insert."))
		}
	}
	b.WriteByte('\n')
	return b.String()
}

func renderCell(code int, pointer, cursor bool) string {
	ch := vm.ToPrintable(code, false)
	switch {
	case pointer:
		return pointerStyle.Render(ch)
	case cursor:
		return cursorStyle.Render(ch)
	case !vm.IsPrintable(code, false):
		return specialStyle.Render(ch)
	}
	return ch
}

// renderStack shows the stack bottom first, with long names for codes that
// are not plain characters. The result is unstyled so it can be measured.
func renderStack(stack []int) string {
	var b strings.Builder
	for _, code := range stack {
		if vm.IsPrintable(code, true) {
			b.WriteRune(rune(code))
		} else {
			b.WriteString(vm.ToPrintable(code, true))
		}
	}
	return b.String()
}

func wrap(s string, width int) string {
	var b strings.Builder
	for len(s) > width {
		b.WriteString(s[:width])
		b.WriteByte('\n')
		s = s[width:]
	}
	b.WriteString(s)
	return b.String()
}
