package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"studentrisk/ml"
)

func newSchemaCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the model's input features in column order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			switch output {
			case "json", "yaml":
				return encode(w, output, ml.FeatureColumns)
			case "human":
				fmt.Fprintf(w, "%-3s %-20s %-8s %-7s %s\n", "#", "FLAG", "KIND", "RANGE", "COLUMN")
				for i, f := range ml.FeatureColumns {
					fmt.Fprintf(w, "%-3d --%-18s %-8s %-7s %s\n", i, flagName(f.Key), f.Kind, fmt.Sprintf("%g-%g", f.Min, f.Max), f.Column)
				}
				return nil
			default:
				return fmt.Errorf("unknown output format %q (human, json, yaml)", output)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "human", "Output format (human, json, yaml)")
	return cmd
}
