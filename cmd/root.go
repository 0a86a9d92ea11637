package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"studentrisk/config"
)

// globalOptions are the persistent flags every subcommand sees.
type globalOptions struct {
	configPath string
	modelPath  string
}

// loadConfig reads the config file and applies --model on top of it.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.modelPath != "" {
		cfg.Model.Path = o.modelPath
	}
	return cfg, nil
}

func NewRootCmd(version string) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "studentrisk",
		Short: "Student depression risk predictor",
		Long: `studentrisk scores a student's depression risk from ten self-reported
characteristics using a pre-trained tree ensemble. It serves a web form and a JSON API,
and can score a single profile from the command line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&opts.modelPath, "model", "", "Model artifact path (overrides model.path)")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newPredictCmd(opts),
		newSchemaCmd(),
		newVersionCmd(version),
	)

	return rootCmd
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "studentrisk version %s\n", version)
		},
	}
}
