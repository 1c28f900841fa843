package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := newRoot()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "h8less",
		Short:        "Find hate speech in a video and jump to it",
		SilenceUsage: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.PersistentFlags().String("log-level", getenvDefault("H8LESS_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("target", "", "Class label to flag (default \"hate\")")

	root.AddCommand(newServeCmd(), newAnalyzeCmd())
	return root
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
