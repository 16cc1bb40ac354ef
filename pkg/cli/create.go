package cli

import (
	"errors"
	"flag"
	"fmt"

	"github.com/platinummonkey/extpoint/pkg/plugins"
	"github.com/platinummonkey/extpoint/pkg/symref"
)

func newCreateCommand(app *App) *Command {
	cmd := &Command{
		Name:        "create",
		Description: "Instantiate extensions of a point",
		Flags:       flag.NewFlagSet("create", flag.ContinueOnError),
	}

	rf := addRegistryFlags(cmd.Flags)
	point := cmd.Flags.String("point", "", "Extension point name (required)")
	class := cmd.Flags.String("class", "", "Class name or case-insensitive suffix of one")
	all := cmd.Flags.Bool("all", false, "Create every matching extension instead of the first")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		if *point == "" {
			return errors.New("-point is required")
		}

		cfg, err := app.config(rf)
		if err != nil {
			return err
		}

		r := app.registry(cfg, nil)
		ref := symref.New(*point)

		var filter plugins.Filter
		if *class != "" {
			ext, err := r.FindByClassName(ref, *class)
			if err != nil {
				return err
			}
			filter = plugins.ClassNameFilter{Name: ext.ClassName()}
		}

		instances, err := r.CreateExtensions(ref, filter, !*all)
		if err != nil {
			return fmt.Errorf("failed to build registry: %w", err)
		}
		if len(instances) == 0 {
			return &plugins.NoExtensionsCreatedError{Point: ref.Name}
		}

		for _, inst := range instances {
			if s, ok := inst.(fmt.Stringer); ok {
				fmt.Fprintf(app.out(), "%T\t%s\n", inst, s.String())
				continue
			}
			fmt.Fprintf(app.out(), "%T\n", inst)
		}
		return nil
	}

	return cmd
}
