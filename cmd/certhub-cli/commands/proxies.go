package commands

import (
	"fmt"
	"os"

	"certifyhub-backend/lib/proxypool"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(proxiesCmd)
}

var proxiesCmd = &cobra.Command{
	Use:   "proxies",
	Short: "Fetches the free proxy lists and prints what is currently usable.",
	Run: func(cmd *cobra.Command, args []string) {
		pool := proxypool.NewPool()
		proxies := pool.Refresh(cmd.Context())

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"host", "port"})
		for _, proxy := range proxies {
			t.AppendRow(table.Row{proxy.Host, proxy.Port})
		}
		t.Render()

		fmt.Printf("%d https-capable proxies\n", len(proxies))
	},
}
