package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/platinummonkey/extpoint/pkg/admin"
	"github.com/platinummonkey/extpoint/pkg/plugins"
	"github.com/platinummonkey/extpoint/pkg/symref"
)

func newModulesCommand(app *App) *Command {
	cmd := &Command{
		Name:        "modules",
		Description: "List discovered modules",
		Flags:       flag.NewFlagSet("modules", flag.ContinueOnError),
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

		modules, err := app.registry(cfg, nil).Modules()
		if err != nil {
			return fmt.Errorf("failed to build registry: %w", err)
		}

		if *jsonOutput {
			resp := make([]admin.ModuleResponse, 0, len(modules))
			for _, m := range modules {
				resp = append(resp, admin.ToModuleResponse(m, true))
			}
			return writeJSON(app.out(), resp)
		}

		if len(modules) == 0 {
			fmt.Fprintln(app.out(), "No modules found")
			return nil
		}

		w := tabwriter.NewWriter(app.out(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDISPLAY NAME\tPOINTS\tEXTENSIONS\tPATH")
		fmt.Fprintln(w, "----\t------------\t------\t----------\t----")
		for _, m := range modules {
			path := m.Path
			if path == "" {
				path = "(host)"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
				m.Ref.Name, m.DisplayName, len(m.ExtensionPoints), len(m.Extensions), path)
		}
		return w.Flush()
	}

	return cmd
}

func newPointsCommand(app *App) *Command {
	cmd := &Command{
		Name:        "points",
		Description: "List declared extension points",
		Flags:       flag.NewFlagSet("points", flag.ContinueOnError),
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

		points, err := app.registry(cfg, nil).ExtensionPoints()
		if err != nil {
			return fmt.Errorf("failed to build registry: %w", err)
		}

		if *jsonOutput {
			resp := make([]admin.PointResponse, 0, len(points))
			for _, p := range points {
				resp = append(resp, admin.ToPointResponse(p))
			}
			return writeJSON(app.out(), resp)
		}

		if len(points) == 0 {
			fmt.Fprintln(app.out(), "No extension points declared")
			return nil
		}

		w := tabwriter.NewWriter(app.out(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "POINT\tCAPABILITY\tDESCRIPTION")
		fmt.Fprintln(w, "-----\t----------\t-----------")
		for _, p := range points {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.PointRef.Name, p.CapabilityRef.Name, p.Description)
		}
		return w.Flush()
	}

	return cmd
}

func newExtensionsCommand(app *App) *Command {
	cmd := &Command{
		Name:        "extensions",
		Description: "List extensions in order",
		Flags:       flag.NewFlagSet("extensions", flag.ContinueOnError),
	}

	rf := addRegistryFlags(cmd.Flags)
	point := cmd.Flags.String("point", "", "Only list extensions of this point, enabled and authorized")
	jsonOutput := cmd.Flags.Bool("json", false, "Output in JSON format")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		cfg, err := app.config(rf)
		if err != nil {
			return err
		}

		r := app.registry(cfg, nil)

		var exts []plugins.ExtensionInfo
		if *point != "" {
			exts, err = r.ListExtensions(symref.New(*point), nil)
		} else {
			exts, err = r.Extensions()
		}
		if err != nil {
			return fmt.Errorf("failed to build registry: %w", err)
		}

		if *jsonOutput {
			resp := make([]admin.ExtensionResponse, 0, len(exts))
			for _, e := range exts {
				resp = append(resp, admin.ToExtensionResponse(e))
			}
			return writeJSON(app.out(), resp)
		}

		if len(exts) == 0 {
			fmt.Fprintln(app.out(), "No extensions found")
			return nil
		}

		w := tabwriter.NewWriter(app.out(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CLASS\tPOINT\tMODULE\tENABLED\tFEATURE")
		fmt.Fprintln(w, "-----\t-----\t------\t-------\t-------")
		for _, e := range exts {
			feature := e.FeatureToken
			if feature == "" {
				feature = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
				e.ClassName(), e.PointRef.Name, e.ModuleRef.Name, e.Enabled, feature)
		}
		return w.Flush()
	}

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
