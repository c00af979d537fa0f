package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"weave/fiber"
	"weave/internal/observ"
	"weave/internal/trace"
)

var monitorWorkload string

func init() {
	monitorCmd.Flags().StringVar(&monitorWorkload, "workload", "demo", "workload to run while monitoring (demo|bench)")
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run a workload while showing a live worker/fiber/counter dashboard",
	Long: `monitor runs a workload against a ring-traced scheduler and renders the
recent event stream plus aggregate task/wait timings as it progresses. On a
real terminal it renders a live Bubble Tea dashboard; piped or redirected
output falls back to periodic colorized text snapshots.`,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Trace.Mode = "ring"
	if cfg.Trace.Level == "" || cfg.Trace.Level == "off" {
		cfg.Trace.Level = "detail"
	}
	if cfg.Trace.RingSize <= 0 {
		cfg.Trace.RingSize = 2048
	}

	sched, err := fiber.Initialize(cfg)
	if err != nil {
		return fmt.Errorf("initialize scheduler: %w", err)
	}

	ring, ok := sched.Tracer().(*trace.RingTracer)
	if !ok {
		sched.Quit()
		return fmt.Errorf("trace: mode %q did not produce a ring tracer", cfg.Trace.Mode)
	}

	workErr := make(chan error, 1)
	go func() {
		switch monitorWorkload {
		case "demo":
			workErr <- runDemoOn(sched, cmd)
		case "bench":
			workErr <- runBenchOn(sched, cmd)
		default:
			workErr <- fmt.Errorf("invalid --workload %q (expected demo|bench)", monitorWorkload)
		}
	}()

	uiValue, _ := cmd.Flags().GetString("ui")
	mode, err := readUIMode(uiValue)
	if err != nil {
		sched.Quit()
		return err
	}

	if shouldUseTUI(mode) {
		err = runMonitorTUI(sched, ring, workErr)
	} else {
		err = runMonitorPlain(cmd, sched, ring, workErr)
	}

	if quitErr := sched.Quit(); quitErr != nil && err == nil {
		err = quitErr
	}
	return err
}

// --- Bubble Tea dashboard ---

type monitorTickMsg struct{}
type monitorDoneMsg struct{ err error }

type monitorModel struct {
	sched   *fiber.Scheduler
	ring    *trace.RingTracer
	spin    spinner.Model
	done    bool
	err     error
	workErr <-chan error
}

func runMonitorTUI(sched *fiber.Scheduler, ring *trace.RingTracer, workErr <-chan error) error {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	m := &monitorModel{sched: sched, ring: ring, spin: sp, workErr: workErr}
	program := tea.NewProgram(m)
	finalModel, err := program.Run()
	if err != nil {
		return err
	}
	if fm, ok := finalModel.(*monitorModel); ok {
		return fm.err
	}
	return nil
}

func (m *monitorModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.waitTick(), m.waitWork())
}

func (m *monitorModel) waitTick() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg { return monitorTickMsg{} })
}

func (m *monitorModel) waitWork() tea.Cmd {
	return func() tea.Msg { return monitorDoneMsg{err: <-m.workErr} }
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case monitorTickMsg:
		if m.done {
			return m, nil
		}
		return m, m.waitTick()
	case monitorDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *monitorModel) View() string {
	var b strings.Builder
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	if m.done {
		b.WriteString(title.Render("weave monitor — done"))
	} else {
		b.WriteString(title.Render(fmt.Sprintf("%s weave monitor", m.spin.View())))
	}
	b.WriteString("\n\n")
	b.WriteString(renderEventTable(m.ring.Snapshot(), 10))
	b.WriteString("\n")
	b.WriteString(renderReportTable(m.sched.Report()))
	if !m.done {
		b.WriteString("\npress q to quit\n")
	}
	return b.String()
}

// --- Plain-text fallback ---

func runMonitorPlain(cmd *cobra.Command, sched *fiber.Scheduler, ring *trace.RingTracer, workErr <-chan error) error {
	out := cmd.OutOrStdout()
	bold := color.New(color.Bold)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-workErr:
			bold.Fprintln(out, "weave monitor — done")
			fmt.Fprint(out, renderEventTable(ring.Snapshot(), 10))
			fmt.Fprint(out, renderReportTable(sched.Report()))
			return err
		case <-ticker.C:
			bold.Fprintln(out, "weave monitor")
			fmt.Fprint(out, renderEventTable(ring.Snapshot(), 10))
			fmt.Fprint(out, renderReportTable(sched.Report()))
			fmt.Fprintln(out)
		}
	}
}

// --- Shared rendering ---

func renderEventTable(events []trace.Event, tail int) string {
	if len(events) > tail {
		events = events[len(events)-tail:]
	}
	var b strings.Builder
	cols := []string{"scope", "kind", "name", "detail"}
	widths := []int{8, 10, 16, 24}
	for i, c := range cols {
		b.WriteString(padCell(c, widths[i]))
	}
	b.WriteString("\n")
	for _, ev := range events {
		b.WriteString(padCell(ev.Scope.String(), widths[0]))
		b.WriteString(padCell(ev.Kind.String(), widths[1]))
		b.WriteString(padCell(ev.Name, widths[2]))
		b.WriteString(padCell(ev.Detail, widths[3]))
		b.WriteString("\n")
	}
	return b.String()
}

func renderReportTable(report observ.AggregateReport) string {
	if len(report.Categories) == 0 {
		return ""
	}
	var b strings.Builder
	for _, cat := range report.Categories {
		fmt.Fprintf(&b, "%s count=%d avg=%.3fms max=%.3fms\n", padCell(cat.Category, 8), cat.Count, cat.AvgMS, cat.MaxMS)
	}
	return b.String()
}

func padCell(s string, width int) string {
	s = runewidth.Truncate(s, width, "")
	pad := width - runewidth.StringWidth(s) + 1
	if pad < 1 {
		pad = 1
	}
	return s + strings.Repeat(" ", pad)
}
