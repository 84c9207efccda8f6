package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ca-srg/elseql/internal/metrics"
	"github.com/ca-srg/elseql/internal/parser"
	"github.com/ca-srg/elseql/internal/render"
	"github.com/ca-srg/elseql/internal/session"
)

var stopOnError bool

var runCmd = &cobra.Command{
	Use:   "run <file|dir|s3://bucket/key>",
	Short: "Run the statements in a script",
	Long: `
Run every statement in a script. Statements are separated by ';' and lines
starting with '--' are comments. A directory or an S3 prefix ending in '/'
runs every .sql file beneath it in path order.

Examples:
  elseql run reports.sql
  elseql run s3://team-queries/daily/
  elseql run --stop-on-error -o s3://reports/out.csv checks.sql
`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	runCmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "Stop at the first statement that fails")
	runCmd.Flags().BoolVar(&explainQuery, "explain", false, "Request score explanations")
	runCmd.Flags().BoolVar(&validateQuery, "validate", false, "Validate each statement instead of running it")
}

func runScript(cmd *cobra.Command, args []string) error {
	a, err := setupApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	sc, err := a.newScanner(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to create S3 client: %w", err)
	}
	scripts, err := sc.Scan(ctx, args[0])
	if err != nil {
		return err
	}

	sink, err := a.openSink(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	metrics.RecordInvocation(metrics.ModeRun)
	opts := session.Options{Explain: explainQuery, Validate: validateQuery}
	s := a.openSession(ctx, sink)

	failed := 0
	total := 0
	var writeErr error
run:
	for _, script := range scripts {
		for _, stmt := range parser.SplitStatements(script.Content) {
			total++
			var status render.Status
			status, writeErr = s.Search(ctx, stmt, opts)
			if writeErr != nil {
				break run
			}
			if status.Failed() {
				failed++
				a.logger.Debug("statement failed",
					zap.String("script", script.Path),
					zap.String("status", status.String()))
				if stopOnError {
					break run
				}
			}
		}
	}

	if err := sink.Close(); err != nil && writeErr == nil {
		writeErr = err
	}
	if writeErr != nil {
		return fmt.Errorf("failed to write output: %w", writeErr)
	}

	a.logger.Info("script finished",
		zap.Int("scripts", len(scripts)),
		zap.Int("statements", total),
		zap.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("%d of %d statements failed", failed, total)
	}
	return nil
}
