package commands

import (
	"fmt"
	"os"

	"certifyhub-backend/lib/examstore"
	"certifyhub-backend/lib/scrapers/examtopics"
	"certifyhub-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats [certification]",
	Short: "Shows coverage for one certification, or a summary of every dataset.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 1 {
			cert, err := examtopics.LookupCert(args[0])
			if err != nil {
				serviceutil.Fatal("failed to resolve certification", err)
			}
			store, err := examstore.Open(*dataDir, cert)
			if err != nil {
				serviceutil.Fatal("failed to open dataset", err)
			}
			renderStats(store.Stats())
			return
		}

		datasets, err := examstore.LoadAll(*dataDir)
		if err != nil {
			serviceutil.Fatal("failed to list datasets", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"certification", "provider", "questions", "total known", "updated"})
		for _, dataset := range datasets {
			t.AppendRow(table.Row{
				dataset.Certification,
				dataset.Provider,
				len(dataset.Questions),
				dataset.TotalQuestions,
				dataset.LastUpdated.Format("2006-01-02 15:04"),
			})
		}
		t.Render()
	},
}

func renderStats(stats examstore.Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"metric", "value"})
	t.AppendRow(table.Row{"certification", stats.Certification})
	t.AppendRow(table.Row{"scraped", stats.Scraped})
	t.AppendRow(table.Row{"total known", stats.TotalKnown})
	t.AppendRow(table.Row{"with answer", stats.WithAnswer})
	t.AppendRow(table.Row{"with explanation", stats.WithExplanation})
	t.AppendRow(table.Row{"with comments", stats.WithComments})
	if stats.TotalKnown > 0 {
		t.AppendRow(table.Row{"completion", fmt.Sprintf("%.1f%%", stats.CompletionPercent)})
	}
	if stats.Scraped > 0 {
		t.AppendRow(table.Row{"answered", fmt.Sprintf("%.1f%%", stats.AnsweredPercent)})
		t.AppendRow(table.Row{"question range", intRange(stats.LowestQuestion, stats.HighestQuestion)})
	}
	t.Render()

	if len(stats.Topics) == 0 {
		return
	}
	topics := table.NewWriter()
	topics.SetOutputMirror(os.Stdout)
	topics.SetStyle(table.StyleRounded)
	topics.AppendHeader(table.Row{"topic", "questions", "answered"})
	for _, topic := range stats.Topics {
		topics.AppendRow(table.Row{topic.Topic, topic.Questions, topic.Answered})
	}
	topics.Render()
}

func intRange(low, high int) string {
	return fmt.Sprintf("%d-%d", low, high)
}
