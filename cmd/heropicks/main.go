// Package main provides the entry point for the heropicks CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/Sumatoshi-tech/heropicks/cmd/heropicks/commands"
	"github.com/Sumatoshi-tech/heropicks/pkg/version"
)

// memoryLimitRatio leaves headroom for the checkpoint encoder on top of the aggregate.
const memoryLimitRatio = 0.8

func debugf(format string, args ...any) {
	slog.Debug(fmt.Sprintf(format, args...))
}

func tuneRuntime() {
	_, err := maxprocs.Set(maxprocs.Logger(debugf))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set GOMAXPROCS: %v\n", err)
	}

	_, err = memlimit.SetGoMemLimitWithOpts(
		memlimit.WithRatio(memoryLimitRatio),
		memlimit.WithLogger(slog.Default()),
		memlimit.WithProvider(
			memlimit.ApplyFallback(
				memlimit.FromCgroup,
				memlimit.FromSystem,
			),
		),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set memory limit: %v\n", err)
	}
}

func main() {
	version.InitBinaryVersion()
	tuneRuntime()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := commands.NewRootCommand().ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(commands.ExitCode(err))
	}
}
