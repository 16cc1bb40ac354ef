package cli

import (
	"errors"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"
)

func newCacheCommand(app *App) *Command {
	cmd := &Command{
		Name:        "cache",
		Description: "Inspect or clear the metadata cache",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("cache", flag.ContinueOnError),
	}

	cmd.Subcommands["status"] = newCacheStatusCommand(app)
	cmd.Subcommands["clear"] = newCacheClearCommand(app)
	cmd.Run = cmd.ExecuteArgs

	return cmd
}

func newCacheStatusCommand(app *App) *Command {
	cmd := &Command{
		Name:        "status",
		Description: "Show the cache file and whether it is stale",
		Flags:       flag.NewFlagSet("cache status", flag.ContinueOnError),
	}

	rf := addRegistryFlags(cmd.Flags)
	jsonOutput := cmd.Flags.Bool("json", false, "Output in JSON format")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		cfg, err := app.config(rf)
		if err != nil {
			return err
		}

		status, err := app.registry(cfg, nil).CacheStatus()
		if err != nil {
			return err
		}

		if *jsonOutput {
			return writeJSON(app.out(), status)
		}

		w := tabwriter.NewWriter(app.out(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Path:\t%s\n", status.Path)
		fmt.Fprintf(w, "Generation:\t%s\n", status.Generation)
		fmt.Fprintf(w, "Written:\t%s\n", status.WrittenAt.Format(time.RFC3339))
		fmt.Fprintf(w, "Modules:\t%d\n", status.Modules)
		fmt.Fprintf(w, "Files:\t%d\n", status.Files)
		if status.Stale {
			fmt.Fprintf(w, "Stale:\tyes (%s)\n", status.Reason)
		} else {
			fmt.Fprintf(w, "Stale:\tno\n")
		}
		return w.Flush()
	}

	return cmd
}

func newCacheClearCommand(app *App) *Command {
	cmd := &Command{
		Name:        "clear",
		Description: "Remove the cache file",
		Flags:       flag.NewFlagSet("cache clear", flag.ContinueOnError),
	}

	rf := addRegistryFlags(cmd.Flags)

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		cfg, err := app.config(rf)
		if err != nil {
			return err
		}
		if !cfg.Cache.Enabled {
			return errors.New("metadata cache is disabled")
		}

		if err := app.registry(cfg, nil).InvalidateCache(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}

		fmt.Fprintf(app.out(), "Removed %s\n", cfg.Cache.File)
		return nil
	}

	return cmd
}
