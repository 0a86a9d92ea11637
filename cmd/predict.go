package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"studentrisk/logging"
	"studentrisk/ml"
)

type predictOptions struct {
	*globalOptions
	values map[string]*int
	output string
}

type predictionOutput struct {
	Label       int     `json:"label" yaml:"label"`
	Probability float64 `json:"probability" yaml:"probability"`
	Risk        string  `json:"risk" yaml:"risk"`
	Summary     string  `json:"summary" yaml:"summary"`
}

func newPredictCmd(global *globalOptions) *cobra.Command {
	opts := &predictOptions{globalOptions: global, values: make(map[string]*int, ml.FeatureCount)}

	cmd := &cobra.Command{
		Use:   "predict [flags]",
		Short: "Score one student profile",
		Long: `Score one student profile given as flags. Every feature flag is required;
run "studentrisk schema" for the list and the allowed ranges.

Examples:
  studentrisk predict --suicidal-thoughts 1 --academic-pressure 4 --financial-stress 4 \
    --age 22 --work-hours 6 --unhealthy-diet 0 --study-satisfaction 2 \
    --sleep-more-8h 0 --sleep-less-5h 0 --family-history 0

  studentrisk predict --model models/forest.json -o json ...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd, opts)
		},
	}

	for _, feature := range ml.FeatureColumns {
		v := new(int)
		opts.values[feature.Key] = v
		cmd.Flags().IntVar(v, flagName(feature.Key), 0, fmt.Sprintf("%s [%g-%g]", feature.Label, feature.Min, feature.Max))
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "human", "Output format (human, json, yaml)")

	return cmd
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// collectValues returns the features whose flags were set. Unset flags are left out so
// the predictor reports them as missing instead of scoring a zero.
func collectValues(cmd *cobra.Command, opts *predictOptions) (map[string]float64, error) {
	values := make(map[string]float64, ml.FeatureCount)
	invalid := &ml.InvalidInputError{Fields: map[string]string{}}

	for _, feature := range ml.FeatureColumns {
		if !cmd.Flags().Changed(flagName(feature.Key)) {
			continue
		}
		v := float64(*opts.values[feature.Key])
		if v < feature.Min || v > feature.Max {
			invalid.Fields[feature.Key] = fmt.Sprintf("must be between %g and %g", feature.Min, feature.Max)
			continue
		}
		values[feature.Key] = v
	}

	if len(invalid.Fields) > 0 {
		return nil, invalid
	}
	return values, nil
}

func runPredict(cmd *cobra.Command, opts *predictOptions) error {
	switch opts.output {
	case "human", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q (human, json, yaml)", opts.output)
	}

	values, err := collectValues(cmd, opts)
	if err != nil {
		return err
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var s *spinner.Spinner
	if isatty.IsTerminal(os.Stderr.Fd()) {
		s = spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Suffix = " Loading model..."
		s.Start()
	}
	predictor := ml.NewPredictorFromLoader(ml.NewLoader(cfg.Model.Path, cfg.Model.Type, logger), logger)
	if s != nil {
		s.Stop()
	}

	result, err := predictor.PredictValues(cmd.Context(), values)
	if err != nil {
		return err
	}

	out := predictionOutput{
		Label:       result.Label,
		Probability: result.Probability,
		Risk:        "low",
		Summary:     result.Summary(),
	}
	if result.HighRisk() {
		out.Risk = "high"
	}

	w := cmd.OutOrStdout()
	if opts.output != "human" {
		return encode(w, opts.output, out)
	}
	displayHuman(w, out)
	return nil
}

func displayHuman(w io.Writer, out predictionOutput) {
	verdict := color.New(color.FgGreen, color.Bold)
	if out.Risk == "high" {
		verdict = color.New(color.FgRed, color.Bold)
	}

	fmt.Fprint(w, "The model predicts: ")
	verdict.Fprintln(w, out.Summary)
	fmt.Fprintf(w, "Probability of Depression (Risk Score): %.2f\n", out.Probability)
}

func encode(w io.Writer, format string, v interface{}) error {
	var (
		data []byte
		err  error
	)
	if format == "yaml" {
		data, err = yaml.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, strings.TrimRight(string(data), "\n"))
	return err
}
