package main

import (
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"

	"weave/fiber"
)

var runIterations int

func init() {
	demoCmd.Flags().IntVar(&runIterations, "iterations", 1, "number of outer fan-out rounds to run")
	runCmd.AddCommand(demoCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scheduler workload",
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Two-level fan-out demo: 10 outer tasks each spawning 10 inner tasks",
	Long: `demo reproduces the scheduler's canonical fan-out shape: the driver adds
10 outer tasks, each of which increments a shared atomic and then adds 10
inner tasks (also incrementing the atomic) and waits on them before
returning. The driver then waits on the outer counter. Each round is
expected to leave the atomic at 110 (10 outer increments + 100 inner).`,
	RunE: runDemo,
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	sched, err := fiber.Initialize(cfg)
	if err != nil {
		return fmt.Errorf("initialize scheduler: %w", err)
	}
	defer sched.Quit()

	return runDemoOn(sched, cmd)
}

// demoScratchSize stands in for the FiberTaskingLib demo's per-round
// globalArgs->Heap.FreeAllPagesWithId call: a tagged-heap reset this
// library doesn't own (spec.md §1's allocator is an external
// collaborator). Each round below fills then zeroes a buffer of this size
// at the same call site, so the demo still illustrates "throw away
// whatever this round allocated" without depending on an allocator.
const demoScratchSize = 4096

// runDemoOn runs the fan-out workload on an already-initialized scheduler,
// without taking ownership of its lifecycle. Used directly by "run demo"
// and reused by "trace dump", which needs the same scheduler it's about to
// pull a ring-tracer snapshot from.
func runDemoOn(sched *fiber.Scheduler, cmd *cobra.Command) error {
	scratch := make([]byte, demoScratchSize)
	for round := 0; round < runIterations; round++ {
		var total atomic.Int64
		outer := sched.AddTasks(fanOutTasks(sched, &total))
		sched.WaitForCounter(outer, 0)

		for i := range scratch {
			scratch[i] = byte(round)
		}
		clear(scratch)

		got := total.Load()
		fmt.Fprintf(cmd.OutOrStdout(), "round %d: atomic = %d (want 110)\n", round, got)
		if got != 110 {
			return fmt.Errorf("round %d: atomic = %d, want 110", round, got)
		}
	}
	return nil
}

func fanOutTasks(sched *fiber.Scheduler, total *atomic.Int64) []fiber.Task {
	tasks := make([]fiber.Task, 10)
	for i := range tasks {
		tasks[i] = fiber.Task{Fn: firstLevel, Arg: total}
	}
	return tasks
}

func firstLevel(s *fiber.Scheduler, arg any) {
	total := arg.(*atomic.Int64)
	total.Add(1)

	inner := make([]fiber.Task, 10)
	for i := range inner {
		inner[i] = fiber.Task{Fn: secondLevel, Arg: total}
	}
	c := s.AddTasks(inner)
	s.WaitForCounter(c, 0)
}

func secondLevel(s *fiber.Scheduler, arg any) {
	total := arg.(*atomic.Int64)
	total.Add(1)
}
