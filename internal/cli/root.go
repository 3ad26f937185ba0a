package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hedgego/internal/config"
	"hedgego/internal/display"
	"hedgego/internal/models"
	"hedgego/internal/progress"
	"hedgego/internal/trading"
)

type rootOptions struct {
	tickers           string
	startDate         string
	endDate           string
	initialCash       float64
	marginRequirement float64
	showReasoning     bool
	model             string
	provider          string
	analysts          string
	output            string
}

// NewRootCmd builds the hedgego command.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "hedgego",
		Short: "Run a multi-agent hedge fund analysis over a set of tickers",
		Long: `hedgego fans a set of analyst agents out over the given tickers,
funnels their signals through a risk manager and asks a portfolio manager
for one trading decision per ticker.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.tickers, "tickers", "t", "", "comma-separated ticker symbols (required)")
	flags.StringVar(&opts.startDate, "start-date", "", "analysis window start (YYYY-MM-DD), defaults to three months before end date")
	flags.StringVar(&opts.endDate, "end-date", "", "analysis window end (YYYY-MM-DD), defaults to today")
	flags.Float64Var(&opts.initialCash, "initial-cash", 100000, "starting cash position")
	flags.Float64Var(&opts.marginRequirement, "margin-requirement", 0, "margin requirement for short positions")
	flags.BoolVar(&opts.showReasoning, "show-reasoning", false, "print each agent's reasoning")
	flags.StringVar(&opts.model, "model", "", "model name (prompted when omitted)")
	flags.StringVar(&opts.provider, "provider", "", "model provider (prompted when omitted)")
	flags.StringVar(&opts.analysts, "analysts", "", "comma-separated analyst keys; pass an empty value to run none (prompted when omitted)")
	flags.StringVarP(&opts.output, "output", "o", "", "write results as JSON to this file")
	cobra.CheckErr(cmd.MarkFlagRequired("tickers"))

	return cmd
}

func run(cmd *cobra.Command, opts *rootOptions) error {
	tickers, err := ParseTickers(opts.tickers)
	if err != nil {
		return err
	}

	cfg := config.Load()

	selection, err := resolveSelection(cmd, opts)
	if err != nil {
		return err
	}

	modelName, modelProvider := opts.model, opts.provider
	if modelName == "" {
		if name, provider, err := PromptForModel(); err == nil {
			modelName, modelProvider = name, provider
		}
	}

	session := trading.NewSession(cfg, progress.NewConsole())
	result, err := session.Run(cmd.Context(), trading.Params{
		Tickers:       tickers,
		StartDate:     opts.startDate,
		EndDate:       opts.endDate,
		Portfolio:     models.NewPortfolio(opts.initialCash, opts.marginRequirement, tickers),
		ModelName:     modelName,
		ModelProvider: modelProvider,
		Selection:     selection,
		ShowReasoning: opts.showReasoning,
	})
	if err != nil {
		return err
	}

	display.Render(result, tickers, opts.showReasoning)
	if opts.output != "" {
		if err := display.SaveResults(result, opts.output); err != nil {
			return err
		}
		fmt.Printf("Results written to %s\n", opts.output)
	}
	return nil
}

// resolveSelection maps the --analysts flag onto the selection policy: an
// omitted flag prompts (falling back to all analysts when no terminal is
// attached), an empty value selects none, and a comma list selects by key.
func resolveSelection(cmd *cobra.Command, opts *rootOptions) ([]string, error) {
	if !cmd.Flags().Changed("analysts") {
		selection, err := PromptForAnalysts()
		if err != nil {
			return nil, nil
		}
		return selection, nil
	}
	if strings.TrimSpace(opts.analysts) == "" {
		return []string{}, nil
	}
	var keys []string
	for _, part := range strings.Split(opts.analysts, ",") {
		if k := strings.TrimSpace(part); k != "" {
			keys = append(keys, k)
		}
	}
	return keys, nil
}
