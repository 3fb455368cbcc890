package main

import (
	"context"
	"fmt"
	"os"

	"github.com/meridian-cms/meridian-cms/cmd/meridian/cli"
	"github.com/meridian-cms/meridian-cms/internal/app"
)

// runJobsCommand handles `meridian jobs <trigger|stats> [task]` for operators.
func runJobsCommand(ctx context.Context, args []string) int {
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init jobs cli: %v\n", err)
		return 1
	}
	defer func() { _ = jobsCLI.Close() }()

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: meridian jobs <trigger|stats> [task]")
		return 2
	}
	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: meridian jobs trigger <task>")
			return 2
		}
		info, err := jobsCLI.Trigger(ctx, args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "trigger: %v\n", err)
			return 1
		}
		fmt.Printf("enqueued %s (%s)\n", info.Type, info.ID)
		return 0
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "stats: %v\n", err)
			return 1
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown jobs command %q\n", args[0])
		return 2
	}
}
