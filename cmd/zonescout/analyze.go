package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"zonescout/internal/research/handler"
	"zonescout/internal/research/models"
)

// noNarrativeMessage is printed when the brief could not be written.
const noNarrativeMessage = "No narrative could be generated. The structured record follows."

type analyzeOptions struct {
	street    string
	number    string
	questions []string
	asJSON    bool
}

func newAnalyzeCmd(root *rootOptions, build buildFunc) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Research one property and print the brief",
		Long: `Collects the official parcel profile, researches what is still unknown and
prints a Markdown brief. Questions given with --question replace automatic
query planning and run as a single search round.`,
		Example: `  zonescout analyze --street "Vine Street" --number 1600
  zonescout analyze --street "N Spring St" --number 200 -q "Is there an ADU permit?" --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, root, opts, build)
		},
	}
	cmd.Flags().StringVar(&opts.street, "street", "", "street name, e.g. \"Vine Street\"")
	cmd.Flags().StringVar(&opts.number, "number", "", "house number, e.g. 1600")
	cmd.Flags().StringArrayVarP(&opts.questions, "question", "q", nil, "research question to search verbatim (repeatable)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the full result as JSON")
	_ = cmd.MarkFlagRequired("street")
	_ = cmd.MarkFlagRequired("number")
	return cmd
}

func runAnalyze(cmd *cobra.Command, root *rootOptions, opts *analyzeOptions, build buildFunc) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := cmd.Context()
	svc, closeFn, err := build(ctx, cfg, root.logger(cfg))
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer func() { _ = closeFn() }()

	result, err := svc.Run(ctx, opts.street, opts.number, opts.questions)
	if err != nil {
		return err
	}

	if opts.asJSON {
		return printJSON(cmd, result)
	}
	return printBrief(cmd, result)
}

func printJSON(cmd *cobra.Command, result *models.Result) error {
	data, err := json.MarshalIndent(handler.FromResult(result), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printBrief(cmd *cobra.Command, result *models.Result) error {
	if strings.TrimSpace(result.Narrative) != "" {
		cmd.Println(result.Narrative)
	} else {
		cmd.Println(noNarrativeMessage)
		data, err := json.MarshalIndent(result.Record, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		cmd.Println(string(data))
	}

	if len(result.Warnings) > 0 {
		cmd.Println()
		cmd.Println("Warnings:")
		for _, w := range result.Warnings {
			cmd.Printf("  - %s\n", w)
		}
	}

	cmd.Println()
	cmd.Printf("Run %s: %d iteration(s), stopped: %s\n", result.RunID, result.Iterations, result.StopReason)
	return nil
}
