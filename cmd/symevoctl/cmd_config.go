package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"symevo/internal/config"
	"symevo/internal/evo"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print or check experiment configurations",
	}

	defaults := &cobra.Command{
		Use:   "defaults",
		Short: "Print the default configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.Default().Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	check := &cobra.Command{
		Use:   "check FILE",
		Short: "Validate a configuration file and print it with defaults applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if _, err := evo.ResolveCreator(cfg.Creator); err != nil {
				return err
			}
			for _, m := range cfg.Mutators {
				if !slices.Contains(evo.ListMutators(), m.Name) {
					return fmt.Errorf("%w: mutator %s", evo.ErrOperatorNotFound, m.Name)
				}
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	operators := &cobra.Command{
		Use:   "operators",
		Short: "List the registered creators and mutators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, name := range evo.ListCreators() {
				fmt.Fprintf(out, "creator=%s\n", name)
			}
			for _, name := range evo.ListMutators() {
				fmt.Fprintf(out, "mutator=%s\n", name)
			}
			return nil
		},
	}

	cmd.AddCommand(defaults, check, operators)
	return cmd
}
