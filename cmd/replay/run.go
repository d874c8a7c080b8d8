package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"neurostate/internal/profile"
	"neurostate/internal/replay"
)

var presetsPath string

var runCmd = &cobra.Command{
	Use:   "run <fixture.yaml>...",
	Short: "Replay fixtures and report mismatches",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReplay,
}

func init() {
	runCmd.Flags().StringVar(&presetsPath, "presets", "", "Profile presets YAML (default: embedded presets)")
	rootCmd.AddCommand(runCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	catalog := profile.DefaultCatalog()
	if presetsPath != "" {
		c, err := profile.LoadCatalog(presetsPath)
		if err != nil {
			return err
		}
		catalog = c
	}
	logger := newLogger()
	defer logger.Sync()

	failed := 0
	for _, path := range args {
		f, err := replay.LoadFixture(path)
		if err != nil {
			return err
		}
		sum, err := replay.Run(cmd.Context(), f, catalog, logger)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := printSummary(cmd.OutOrStdout(), path, sum); err != nil {
			return err
		}
		if !sum.Passed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d fixtures had mismatches", failed, len(args))
	}
	return nil
}

func printSummary(w io.Writer, path string, sum replay.Summary) error {
	if output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}

	fmt.Fprintf(w, "%s: %s\n", path, sum.Description)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tAT\tKIND\tTIER\tLEVEL\tENERGY\tRESULT")
	for _, r := range sum.Results {
		tier, level, energy := "-", "-", "-"
		if a := r.Assessment; a != nil {
			tier, level = string(a.Directive.Tier), string(a.Directive.Level)
			if a.Snapshot != nil && a.Snapshot.Energy != nil {
				energy = string(a.Snapshot.Energy.Level)
			}
		}
		result := "ok"
		switch {
		case len(r.Mismatches) > 0:
			result = fmt.Sprintf("MISMATCH %v", r.Mismatches)
		case r.Error != "":
			result = "error: " + r.Error
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Index, r.At.Format("2006-01-02 15:04"), r.Kind, tier, level, energy, result)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d steps, %d assessments, %d mismatches\n\n", sum.Steps, sum.Assessments, sum.Mismatches)
	return nil
}
