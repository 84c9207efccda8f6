package cmd

import (
	"github.com/spf13/cobra"
)

var (
	debugMode    bool
	profileName  string
	outputTarget string
)

var rootCmd = &cobra.Command{
	Use:   "elseql",
	Short: "elseql - SQL-like queries for OpenSearch and Elasticsearch",
	Long: `elseql translates SELECT statements into search-engine requests and prints
the results as CSV.

  SELECT [FACETS f, ...] [SCRIPT name = 'body'] fields
  FROM index [WHERE expr] [FILTER expr] [ORDER BY f [ASC|DESC], ...]
  [LIMIT [offset,] size]

Connection settings come from ELSEQL_* environment variables, a .env file, or a
named profile in ~/.elseql.yaml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Echo each request and response")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Connection profile from the profiles file")
	rootCmd.PersistentFlags().StringVarP(&outputTarget, "output", "o", "", "Write results to a file or s3://bucket/key instead of stdout")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(keywordsCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statsCmd)
}
