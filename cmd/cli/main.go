package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"spaceplan/adapters/excel"
	"spaceplan/adapters/llm/heuristic"
	"spaceplan/app"
	"spaceplan/domain/brief"
	"spaceplan/internal"
	"spaceplan/internal/classifier"
	"spaceplan/internal/graph"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "spaceplan-cli",
		Short: "Offline brief parsing for space programs",
	}

	rootCmd.AddCommand(
		newClassifyCmd(),
		newParseCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newClassifyCmd inspects brief text and prints the classification
func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [file]",
		Short: "Classify brief text without extracting anything",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args)
			if err != nil {
				return err
			}
			return printJSON(classifier.Classify(text))
		},
	}
}

// newParseCmd runs the offline pipeline end to end: classify, extract
// heuristically, normalize, reconcile, and print the resulting project
// document.
func newParseCmd() *cobra.Command {
	var sheetPath string

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse a brief into a project document (heuristic only, no LLM)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			g := graph.New()
			logger := internal.NewDefaultLogger()

			if sheetPath != "" {
				ext, err := excel.NewBriefReader(sheetPath).Read()
				if err != nil {
					return err
				}
				return loadAndPrint(g, ext)
			}

			text, err := readInput(args)
			if err != nil {
				return err
			}
			svc := app.NewBriefService(g, nil, heuristic.NewExtractor(), logger, 0)
			result, err := svc.Ingest(ctx, []string{text})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "parsed %d areas into %d groups (%d flagged)\n",
				result.NodeCount, result.GroupCount, result.FlaggedCount)
			return printExport(g)
		},
	}
	cmd.Flags().StringVar(&sheetPath, "sheet", "", "parse a spreadsheet brief (.xlsx or .csv) instead of text")
	return cmd
}

func loadAndPrint(g *graph.Graph, ext *brief.Extraction) error {
	logger := internal.NewDefaultLogger()
	svc := app.NewBriefService(g, nil, heuristic.NewExtractor(), logger, 0)
	result, err := svc.LoadExtraction(ext, "Import spreadsheet brief")
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "parsed %d areas into %d groups (%d flagged)\n",
		result.NodeCount, result.GroupCount, result.FlaggedCount)
	return printExport(g)
}

func printExport(g *graph.Graph) error {
	doc := g.Export()
	return printJSON(doc)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readInput(args []string) (string, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
