package main

import (
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"weave/fiber"
	"weave/internal/observ"
)

var (
	benchTasks   int
	benchMinPool bool
)

func init() {
	benchCmd.Flags().IntVar(&benchTasks, "tasks", 400_000, "number of trivial tasks to submit")
	benchCmd.Flags().BoolVar(&benchMinPool, "min-pool", false, "force fiber_pool_size to the 2*workers+1 boundary minimum")
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Submit a flat batch of trivial tasks and report throughput",
	Long: `bench submits --tasks trivial no-op tasks, waits for them to complete, and
prints the elapsed time, throughput, and per-category task/wait timing
summary. --min-pool runs the same batch with the fiber pool at its
documented boundary size (2*workers+1); the bench tasks never wait.`,
	RunE: runBench,
}

func benchConfig(cmd *cobra.Command) (fiber.Config, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return fiber.Config{}, err
	}
	if benchMinPool {
		workers := cfg.Workers
		if workers <= 0 {
			workers = fiber.DefaultConfig().Workers
		}
		cfg.Workers = workers
		cfg.FiberPoolSize = 2*workers + 1
	}
	return cfg, nil
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := benchConfig(cmd)
	if err != nil {
		return err
	}

	sched, err := fiber.Initialize(cfg)
	if err != nil {
		return fmt.Errorf("initialize scheduler: %w", err)
	}
	defer sched.Quit()

	return runBenchOn(sched, cmd)
}

// runBenchOn submits the flat no-op batch on an already-initialized
// scheduler, without taking ownership of its lifecycle. Mirrors
// runDemoOn's split so "weave monitor --workload=bench" can drive the same
// workload against a scheduler it pulls trace snapshots from concurrently.
func runBenchOn(sched *fiber.Scheduler, cmd *cobra.Command) error {
	var done atomic.Int64

	timer := observ.NewTimer()

	build := timer.Begin("build")
	tasks := make([]fiber.Task, benchTasks)
	for i := range tasks {
		tasks[i] = fiber.Task{Fn: func(s *fiber.Scheduler, arg any) {
			done.Add(1)
		}}
	}
	timer.End(build, fmt.Sprintf("%d tasks", benchTasks))

	submit := timer.Begin("submit")
	c := sched.AddTasks(tasks)
	timer.End(submit, fmt.Sprintf("fiber_pool_size=%d", sched.Config().FiberPoolSize))

	drain := timer.Begin("drain")
	sched.WaitForCounter(c, 0)
	timer.End(drain, "")

	elapsedMS := timer.Report().TotalMS

	p := message.NewPrinter(language.English)
	out := cmd.OutOrStdout()
	p.Fprintf(out, "submitted %d tasks (fiber_pool_size=%d)\n", benchTasks, sched.Config().FiberPoolSize)
	p.Fprintf(out, "completed %d in %.3fms\n", done.Load(), elapsedMS)
	if elapsedMS > 0 {
		rate := float64(benchTasks) / (elapsedMS / 1000)
		p.Fprintf(out, "throughput: %.0f tasks/sec\n", rate)
	}
	fmt.Fprint(out, timer.Summary())

	report := sched.Report()
	for _, cat := range report.Categories {
		p.Fprintf(out, "  %-8s count=%d avg=%.3fms max=%.3fms\n", cat.Category, cat.Count, cat.AvgMS, cat.MaxMS)
	}
	return nil
}
