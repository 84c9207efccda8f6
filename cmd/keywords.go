package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "List the completion keywords for the connected engine",
	Long: `
Print the statement keywords followed by every index, type and field name
found in the engine's mapping, one per line.`,
	Args: cobra.NoArgs,
	RunE: runKeywords,
}

func runKeywords(cmd *cobra.Command, args []string) error {
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

	s := a.openSession(ctx, sink)
	for _, kw := range s.Keywords(ctx) {
		if _, err := fmt.Fprintln(sink, kw); err != nil {
			_ = sink.Close()
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return sink.Close()
}
