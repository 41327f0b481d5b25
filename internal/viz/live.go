package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/sim"
	"gonum.org/v1/gonum/stat"
)

const (
	width     = 72
	height    = 22
	frameRate = 30
)

type TickMsg time.Time

// SolverFactory returns a fresh solver positioned at the first grid point.
type SolverFactory func() (*sim.Solver, error)

// Model steps a solver on every tick and keeps the history of a few sample
// paths and of the ensemble mean and spread.
type Model struct {
	title        string
	eq           dynamo.SDE
	newSolver    SolverFactory
	solver       *sim.Solver
	times        []float64
	shown        int
	samples      [][]float64
	mean, spread []float64
	stepsPerTick int
	running      bool
	showHelp     bool
	err          error
	theme        Theme
	style        styles
	canvas       *Canvas
}

// NewModel draws the first shown paths of the ensemble.
func NewModel(title string, eq dynamo.SDE, newSolver SolverFactory, shown int) (Model, error) {
	m := Model{
		title:        title,
		eq:           eq,
		newSolver:    newSolver,
		shown:        shown,
		stepsPerTick: 1,
		running:      true,
		theme:        ThemeOcean,
		style:        newStyles(ThemeOcean),
		canvas:       NewCanvas(width, height),
	}
	if err := m.reset(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			if err := m.reset(); err != nil {
				m.err = err
				return m, nil
			}
			return m, tick()
		case "t":
			m.theme = nextTheme(m.theme)
			m.style = newStyles(m.theme)
		case "+", "=":
			m.stepsPerTick = min(m.stepsPerTick*2, 1024)
		case "-", "_":
			m.stepsPerTick = max(m.stepsPerTick/2, 1)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.finished() {
			return m, nil
		}
		if m.running {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) finished() bool {
	return m.err != nil || m.solver.Done()
}

func (m *Model) advance() {
	for i := 0; i < m.stepsPerTick && !m.solver.Done(); i++ {
		x, err := m.solver.Step(m.eq)
		if err != nil {
			m.err = err
			return
		}
		m.record(x)
	}
}

func (m *Model) reset() error {
	s, err := m.newSolver()
	if err != nil {
		return err
	}
	m.solver = s
	m.times = s.Times()
	m.err = nil
	m.shown = max(0, min(m.shown, s.NumPaths()))
	m.samples = make([][]float64, m.shown)
	for i := range m.samples {
		m.samples[i] = make([]float64, 0, len(m.times))
	}
	m.mean = make([]float64, 0, len(m.times))
	m.spread = make([]float64, 0, len(m.times))
	m.record(s.Current())
	return nil
}

func (m *Model) record(x dynamo.State) {
	for i := range m.samples {
		m.samples[i] = append(m.samples[i], x[i])
	}
	mean, std := stat.MeanStdDev(x, nil)
	if len(x) < 2 {
		std = 0
	}
	m.mean = append(m.mean, mean)
	m.spread = append(m.spread, std)
}

// StepsTaken returns how many solver steps have been recorded.
func (m Model) StepsTaken() int { return len(m.mean) - 1 }

func (m Model) Err() error { return m.err }

func (m *Model) draw() {
	m.canvas.Clear()
	series := append(append([][]float64{}, m.samples...), m.mean)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if hi-lo < 1e-12 {
		lo, hi = lo-1, hi+1
	}
	pad := (hi - lo) * 0.05
	m.canvas.PlotSeries(series, len(m.times), lo-pad, hi+pad)
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return m.style.err.Render("ERROR")
	case m.solver.Done():
		return m.style.status.Render("DONE")
	case !m.running:
		return m.style.status.Render("PAUSED")
	default:
		return m.style.status.Render("RUNNING")
	}
}

func (m Model) View() string {
	m.draw()
	canvasView := m.style.canvas.Render(m.canvas.String())

	k := m.StepsTaken()
	var s strings.Builder
	s.WriteString(m.style.header.Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(m.status() + "\n\n")
	s.WriteString(ProgressBar(float64(k)/float64(m.solver.Steps()), 30) + "\n\n")

	row := func(label, value string) {
		s.WriteString(m.style.label.Render(label) + m.style.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.4f", m.times[k]))
	row("Step", fmt.Sprintf("%d/%d", k, m.solver.Steps()))
	row("Paths", fmt.Sprintf("%d", m.solver.NumPaths()))
	row("Scheme", m.solver.Scheme().Name())
	row("Mean", fmt.Sprintf("%.4f", m.mean[k]))
	row("StdDev", fmt.Sprintf("%.4f", m.spread[k]))
	row("Speed", fmt.Sprintf("%d steps/frame", m.stepsPerTick))

	if len(m.mean) > 1 {
		chart := asciigraph.Plot(m.mean, asciigraph.Height(5), asciigraph.Width(32), asciigraph.Caption("ensemble mean"))
		s.WriteString(m.style.graph.Render(chart) + "\n")
	}
	s.WriteString(m.style.label.Render("Spread") + Sparkline(m.spread, 30) + "\n")

	if m.err != nil {
		s.WriteString("\n" + m.style.err.Render(m.err.Error()) + "\n")
	}

	s.WriteString(m.style.help.Render("SP:Pause R:Restart Q:Quit\nT:Theme  +/-:Speed ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, m.style.stats.Render(s.String()))
	if m.showHelp {
		return `
  Space  pause or resume
  R      restart with the same Brownian paths
  T      cycle themes
  + -    double or halve steps per frame
  ?      toggle this help
  Q      quit
` + "\n" + mainView
	}
	return mainView
}
