package commands

import (
	"log/slog"
	"os"
	"time"

	"certifyhub-backend/lib/browser"
	"certifyhub-backend/lib/examstore"
	"certifyhub-backend/lib/proxypool"
	"certifyhub-backend/lib/scrapers/examtopics"
	"certifyhub-backend/lib/serviceutil"
	"certifyhub-backend/services/certscraper"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	scrapeCert        *string
	scrapeMode        *string
	scrapeTopic       *int
	scrapeViews       *[]int
	scrapeRecursive   *bool
	scrapeStart       *int
	scrapeMax         *int
	scrapeBatch       *int
	scrapeHeadless    *bool
	scrapeProxyChance *float64
	scrapeJournal     *string
)

func init() {
	scrapeCert = scrapeCmd.Flags().String(
		"certification", "", "The certification to scrape.")
	scrapeMode = scrapeCmd.Flags().String(
		"mode", certscraper.ModeAll, "One of all, views or search.")
	scrapeTopic = scrapeCmd.Flags().Int(
		"topic", 1, "The exam topic searched questions belong to.")
	scrapeViews = scrapeCmd.Flags().IntSlice(
		"views", []int{1, 2}, "The view pages to scrape when not recursive.")
	scrapeRecursive = scrapeCmd.Flags().Bool(
		"recursive", false, "Walk every view page from the start instead of --views.")
	scrapeStart = scrapeCmd.Flags().Int(
		"start-question", 21, "The first question number to search for.")
	scrapeMax = scrapeCmd.Flags().Int(
		"max-questions", 30, "How many questions the search window covers.")
	scrapeBatch = scrapeCmd.Flags().Int(
		"batch-size", 3, "How many questions are looked up concurrently.")
	scrapeHeadless = scrapeCmd.Flags().Bool(
		"headless", true, "Run browsers without a visible window.")
	scrapeProxyChance = scrapeCmd.Flags().Float64(
		"proxy-chance", 0.3, "Probability of routing a session through a free proxy.")
	scrapeJournal = scrapeCmd.Flags().String(
		"journal", "certhub-journal.db", "The sqlite file run outcomes are recorded in.")
	scrapeCmd.MarkFlagRequired("certification")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape --certification <name> [flags]",
	Short: "Scrapes a certification's question bank into the data directory.",
	Run: func(cmd *cobra.Command, args []string) {
		cert, err := examtopics.LookupCert(*scrapeCert)
		if err != nil {
			serviceutil.Fatal("failed to resolve certification", err)
		}

		store, err := examstore.Open(*dataDir, cert)
		if err != nil {
			serviceutil.Fatal("failed to open dataset", err)
		}

		journal, err := certscraper.OpenJournal(*scrapeJournal)
		if err != nil {
			serviceutil.Fatal("failed to open journal", err)
		}
		defer journal.Close()

		source := browser.NewFactory(browser.Options{
			Headless:    *scrapeHeadless,
			ProxyChance: *scrapeProxyChance,
			Proxies:     proxypool.NewPool(),
		})

		service := certscraper.NewService(source, store, journal, cert, certscraper.Options{
			Mode:          *scrapeMode,
			Topic:         *scrapeTopic,
			Views:         *scrapeViews,
			Recursive:     *scrapeRecursive,
			StartQuestion: *scrapeStart,
			MaxQuestions:  *scrapeMax,
			BatchSize:     *scrapeBatch,
			Delays:        certscraper.DefaultDelays(),
		})

		started := time.Now()
		report, runErr := service.Run(cmd.Context())
		slog.Info("scrape finished",
			"run_id", report.RunID,
			"seconds", time.Since(started).Seconds())

		renderReport(report)
		if runErr != nil {
			serviceutil.Fatal("scrape run failed", runErr)
		}
	},
}

func renderReport(report certscraper.RunReport) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"status", "units"})
	for _, status := range []string{
		certscraper.StatusOk,
		certscraper.StatusEmpty,
		certscraper.StatusSkipped,
		certscraper.StatusFailed,
	} {
		if count, ok := report.StatusCounts[status]; ok {
			t.AppendRow(table.Row{status, count})
		}
	}
	t.Render()

	renderStats(report.Stats)

	if len(report.Failures) > 0 {
		f := table.NewWriter()
		f.SetOutputMirror(os.Stdout)
		f.SetStyle(table.StyleRounded)
		f.AppendHeader(table.Row{"kind", "topic", "number", "detail"})
		for _, unit := range report.Failures {
			f.AppendRow(table.Row{unit.Kind, unit.Topic, unit.Number, unit.Detail})
		}
		f.Render()
	}
}
