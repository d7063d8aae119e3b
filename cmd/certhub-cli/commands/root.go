package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "certhub-cli",
	Short: "certhub-cli scrapes certification exam questions and reports on the collected datasets.",
}

var dataDir *string

func init() {
	dataDir = rootCmd.PersistentFlags().String(
		"data", "data", "The directory datasets are read from and written to.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
