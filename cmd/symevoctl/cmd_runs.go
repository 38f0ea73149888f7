package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"symevo/pkg/symevo"
)

type runSelector struct {
	runID  string
	latest bool
}

func (s *runSelector) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.runID, "run-id", "", "run id")
	cmd.Flags().BoolVar(&s.latest, "latest", false, "use the most recent run from the run index")
}

func (s *runSelector) validate() error {
	if s.runID != "" && s.latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if s.runID == "" && !s.latest {
		return errors.New("--run-id or --latest is required")
	}
	return nil
}

func newRunsCmd(global *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := openClient(cmd, global, symevo.Options{})
			if err != nil {
				return err
			}
			defer client.Close()

			entries, err := client.Runs(cmd.Context(), symevo.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "no runs found")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "run_id=%s created_at=%s problem=%s seed=%d pop=%d gens=%d state=%s final_best_fitness=%.6f\n",
					e.RunID, e.CreatedAtUTC, e.Problem, e.Seed, e.PopulationSize, e.Generations, e.State, e.FinalBestFitness)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of runs to list (0 = all)")
	return cmd
}

func newShowCmd(global *globalOptions) *cobra.Command {
	sel := &runSelector{}
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the record of one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := sel.validate(); err != nil {
				return err
			}
			client, err := openClient(cmd, global, symevo.Options{})
			if err != nil {
				return err
			}
			defer client.Close()

			record, err := client.Show(cmd.Context(), sel.runID, sel.latest)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run_id=%s problem=%s seed=%d state=%s generations=%d evaluations=%d\n",
				record.ID, record.Problem, record.Seed, record.State, record.Generations, record.Evaluations)
			if record.Dataset != "" {
				fmt.Fprintf(out, "dataset=%s\n", record.Dataset)
			}
			if !record.StartedAt.IsZero() {
				fmt.Fprintf(out, "started=%s\n", humanize.Time(record.StartedAt))
			}
			if !record.FinishedAt.IsZero() && !record.StartedAt.IsZero() {
				fmt.Fprintf(out, "duration=%s\n", record.FinishedAt.Sub(record.StartedAt))
			}
			fmt.Fprintf(out, "best_fitness=%.6f length=%d depth=%d\n", record.BestFitness, record.BestLength, record.BestDepth)
			if record.BestFingerprint != "" {
				fmt.Fprintf(out, "fingerprint=%s\n", record.BestFingerprint)
			}
			fmt.Fprintf(out, "best_tree=%s\n", record.BestTree)
			return nil
		},
	}
	sel.register(cmd)
	return cmd
}

func newGenerationsCmd(global *globalOptions) *cobra.Command {
	sel := &runSelector{}
	cmd := &cobra.Command{
		Use:   "generations",
		Short: "List the stored per-generation snapshots of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := sel.validate(); err != nil {
				return err
			}
			client, err := openClient(cmd, global, symevo.Options{})
			if err != nil {
				return err
			}
			defer client.Close()

			snapshots, err := client.Generations(cmd.Context(), sel.runID, sel.latest)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(snapshots) == 0 {
				fmt.Fprintln(out, "no generations stored")
				return nil
			}
			for _, s := range snapshots {
				fmt.Fprintf(out, "generation=%d best=%.6f best_so_far=%.6f mean=%.6f min=%.6f mean_length=%.2f diversity=%d evaluations=%d\n",
					s.Generation, s.BestFitness, s.BestSoFar, s.MeanFitness, s.MinFitness, s.MeanLength, s.Diversity, s.Evaluations)
			}
			return nil
		},
	}
	sel.register(cmd)
	return cmd
}

func newExportCmd(global *globalOptions) *cobra.Command {
	sel := &runSelector{}
	var outDir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy the artifacts of one run to an export directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := sel.validate(); err != nil {
				return err
			}
			client, err := openClient(cmd, global, symevo.Options{ExportsDir: outDir})
			if err != nil {
				return err
			}
			defer client.Close()

			exported, err := client.Export(cmd.Context(), symevo.ExportRequest{RunID: sel.runID, Latest: sel.latest})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported run_id=%s to=%s\n", exported.RunID, filepath.Clean(exported.Directory))
			return nil
		},
	}
	sel.register(cmd)
	cmd.Flags().StringVar(&outDir, "out", defaultExportsDir, "export output directory")
	return cmd
}

func newDeleteCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete RUN_ID",
		Short: "Delete a run and its snapshots from the store; artifacts stay on disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openClient(cmd, global, symevo.Options{})
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted run_id=%s\n", args[0])
			return nil
		},
	}
	return cmd
}
