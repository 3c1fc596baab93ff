// Package main implements the frameplay CLI commands.
// This file contains the shard renaming commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"frameplay/internal/dedup"

	"github.com/spf13/cobra"
)

var dedupCmd = &cobra.Command{
	Use:   "dedup [root]",
	Short: "Rename telemetry shards to collision-free canonical names",
	Long: `Walks the directory tree and renames every shard still carrying its
producer's transient name (timestamp, host, process fields) to a canonical
name with a fresh random token. The viewer merges shards by name, so this
must run before ingestion whenever the producer has been re-run.

The pass is idempotent: renamed shards no longer match the transient
pattern, so re-running it only touches new arrivals. The first failure
aborts the pass; already-renamed shards stay renamed and a re-run recovers.

With --watch, frameplay keeps running and renames shards as the producer
drops them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDedup,
}

var dedupWatch bool

func runDedup(cmd *cobra.Command, args []string) error {
	root := cfg.Dedup.Root
	if len(args) == 1 {
		root = args[0]
	}

	renamer, err := dedup.New(dedup.Config{
		TransientPattern: cfg.Dedup.TransientPattern,
		CanonicalFormat:  cfg.Dedup.CanonicalFormat,
	}, logger)
	if err != nil {
		return err
	}

	if dedupWatch {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			logger.Info("received shutdown signal")
			cancel()
		}()

		fmt.Println(headerStyle.Render("Watching " + root + " for transient shards (Ctrl+C to stop)"))
		if err := renamer.Watch(ctx, root); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	res, err := renamer.Run(root)
	if err != nil {
		// The error carries the failing path; prior renames are intact.
		return err
	}
	if res.Matched == 0 {
		fmt.Println(warnStyle.Render("No transient shards under " + root))
		return nil
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("Renamed %d shard(s) under %s", res.Renamed, root)))
	return nil
}
