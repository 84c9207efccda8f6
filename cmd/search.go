package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ca-srg/elseql/internal/metrics"
	"github.com/ca-srg/elseql/internal/render"
	"github.com/ca-srg/elseql/internal/session"
)

var (
	explainQuery  bool
	validateQuery bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run one statement and print the result as CSV",
	Long: `
Run a single SELECT statement against the configured engine.

Examples:
  elseql search "select * from logs where level = error limit 10"

  # Ask the engine to explain the scoring of each hit
  elseql search --explain "select title from docs where body = 'search'"

  # Only check that the engine accepts the query
  elseql search --validate "select * from logs where ts > 2024-01-01"

  # Write the CSV to S3
  elseql search -o s3://reports/daily.csv "select * from logs order by ts desc"
`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&explainQuery, "explain", false, "Request score explanations")
	searchCmd.Flags().BoolVar(&validateQuery, "validate", false, "Validate the query instead of running it")
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := setupApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	sink, err := a.openSink(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	opts := session.Options{Explain: explainQuery, Validate: validateQuery}
	metrics.RecordInvocation(recordMode(opts))

	s := a.openSession(ctx, sink)
	status, err := s.Search(ctx, strings.Join(args, " "), opts)
	if closeErr := sink.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	a.logger.Debug("search finished", zap.String("status", status.String()), zap.String("output", sink.Target()))
	return statusError(status)
}

// statusError turns a failed outcome into a non-zero exit. The diagnostic has
// already been written with the output.
func statusError(status render.Status) error {
	if status.Failed() {
		return fmt.Errorf("query failed: %s", status)
	}
	return nil
}
