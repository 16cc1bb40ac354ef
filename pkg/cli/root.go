package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// NewRootCommand creates the root command
func NewRootCommand(app *App) *Command {
	root := &Command{
		Name:        "extpoint",
		Description: "extpoint - inspect and exercise extension modules",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("extpoint", flag.ExitOnError),
	}

	// Add subcommands
	root.Subcommands["modules"] = newModulesCommand(app)
	root.Subcommands["points"] = newPointsCommand(app)
	root.Subcommands["extensions"] = newExtensionsCommand(app)
	root.Subcommands["create"] = newCreateCommand(app)
	root.Subcommands["cache"] = newCacheCommand(app)
	root.Subcommands["watch"] = newWatchCommand(app)
	root.Subcommands["serve"] = newServeCommand(app)

	return root
}

// Execute runs the command with the process arguments
func (c *Command) Execute() error {
	return c.ExecuteArgs(os.Args[1:])
}

// ExecuteArgs runs the command with args
func (c *Command) ExecuteArgs(args []string) error {
	if len(args) == 0 {
		return c.usage(os.Stdout)
	}

	// Check for help flag
	if args[0] == "-h" || args[0] == "--help" {
		return c.usage(os.Stdout)
	}

	// Check for subcommand
	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage(w io.Writer) error {
	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(w, "Commands:\n")
	for _, name := range names {
		fmt.Fprintf(w, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}
