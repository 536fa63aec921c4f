// Command plotgen runs the statement extraction recipes over a folder tree
// and writes the plot CSVs next to each source file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bsanalyzer/internal/config"
	"bsanalyzer/internal/extraction"
	"bsanalyzer/internal/infrastructure"
)

type runOptions struct {
	root      string
	recipes   []string
	threshold int
	asJSON    bool
	logLevel  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "plotgen",
		Short:        "Generate plot CSVs from financial statement exports",
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.AddCommand(newRunCmd(), newRecipesCmd())
	return root
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every matching statement below the root folder",
		Long: `run walks the root folder, applies each recipe to the files ending in its
suffix and writes the result into a plots/ folder next to the source.
The root defaults to BSA_EXTRACTION_ROOT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtraction(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.root, "root", "", "Root folder to process")
	cmd.Flags().StringSliceVar(&opts.recipes, "recipe", nil, "Recipe to run (repeatable, default all)")
	cmd.Flags().IntVar(&opts.threshold, "threshold", config.DefaultMatchThreshold, "Fuzzy label match threshold (1-100)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the run report as JSON")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Log level written to stderr")
	return cmd
}

func newRecipesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recipes",
		Short: "List the available recipes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSUFFIX\tOUTPUT\tDESCRIPTION")
			for _, r := range extraction.DefaultRecipes() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, r.Suffix, r.Output, r.Description)
			}
			return tw.Flush()
		},
	}
}

func runExtraction(ctx context.Context, stdout, stderr io.Writer, opts runOptions) error {
	root := opts.root
	if root == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		root = cfg.Extraction.Root
	}
	if root == "" {
		return errors.New("no root folder: pass --root or set BSA_EXTRACTION_ROOT")
	}
	if opts.threshold <= 0 || opts.threshold > 100 {
		return fmt.Errorf("threshold must be in 1..100, got %d", opts.threshold)
	}

	recipes, err := extraction.SelectRecipes(extraction.DefaultRecipes(), opts.recipes)
	if err != nil {
		return err
	}

	logger := infrastructure.NewLogger(stderr, opts.logLevel)
	report, err := extraction.NewRunner(root, recipes, opts.threshold, logger).Run(ctx)
	if err != nil && report == nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			return encErr
		}
	} else {
		printReport(stdout, report)
	}
	return err
}

func printReport(w io.Writer, report *extraction.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tRECIPE\tSOURCE\tROWS\tNOTE")
	for _, f := range report.Files {
		note := f.Error
		if note == "" && len(f.Diagnostics) > 0 {
			note = f.Diagnostics[0].Message
			if len(f.Diagnostics) > 1 {
				note = fmt.Sprintf("%s (+%d more)", note, len(f.Diagnostics)-1)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", f.Status, f.Recipe, f.Source, f.Rows, note)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d processed, %d skipped, %d failed, %d warnings in %s\n",
		report.Processed(), report.Skipped(), report.Failed(), report.Warnings(), report.Duration().Round(1e6))
}
