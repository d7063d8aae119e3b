package certscraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"certifyhub-backend/lib/browser"
	"certifyhub-backend/lib/examstore"
	"certifyhub-backend/lib/obstacle"
	"certifyhub-backend/lib/scrapers/examtopics"

	"github.com/PuerkitoBio/goquery"
	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/certscraper")

// scrape modes
const (
	// paginated view pages first, then search for whatever is missing
	ModeAll = "all"
	// paginated view pages only
	ModeViews = "views"
	// per-question discussion search only
	ModeSearch = "search"
)

// Delays are the pause ranges between units of work. They are
// configurable so tests can run without sleeping.
type Delays struct {
	PageMin, PageMax         time.Duration
	QuestionMin, QuestionMax time.Duration
	BatchMin, BatchMax       time.Duration
	SearchMin, SearchMax     time.Duration
}

func DefaultDelays() Delays {
	return Delays{
		PageMin: 5 * time.Second, PageMax: 10 * time.Second,
		QuestionMin: 2 * time.Second, QuestionMax: 4 * time.Second,
		BatchMin: 10 * time.Second, BatchMax: 20 * time.Second,
		SearchMin: 3 * time.Second, SearchMax: 7 * time.Second,
	}
}

type Options struct {
	Mode  string
	Topic int
	// view pages visited when not walking recursively
	Views []int
	// walk view pages from the start instead of visiting Views
	Recursive     bool
	StartQuestion int
	MaxQuestions  int
	BatchSize     int
	Delays        Delays
	Retry         RetryPolicy
}

type Service struct {
	source  browser.Source
	store   *examstore.Store
	journal *Journal
	cert    examtopics.CertConfig
	opts    Options
	runID   string
}

func NewService(
	source browser.Source,
	store *examstore.Store,
	journal *Journal,
	cert examtopics.CertConfig,
	opts Options,
) Service {
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	if opts.Topic <= 0 {
		opts.Topic = 1
	}
	if len(opts.Views) == 0 {
		opts.Views = []int{1, 2}
	}
	if opts.StartQuestion <= 0 {
		opts.StartQuestion = 21
	}
	if opts.MaxQuestions <= 0 {
		opts.MaxQuestions = 30
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 3
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = RetryPolicy{
			MaxAttempts: 3,
			MinBackoff:  2 * time.Second,
			MaxBackoff:  5 * time.Second,
		}
	}

	runID, err := random.String(8)
	if err != nil {
		runID = fmt.Sprintf("run-%d", time.Now().Unix())
	}

	return Service{
		source:  source,
		store:   store,
		journal: journal,
		cert:    cert,
		opts:    opts,
		runID:   runID,
	}
}

// RunReport is the terminal summary of one scrape run.
type RunReport struct {
	RunID        string
	Stats        examstore.Stats
	StatusCounts map[string]int
	Failures     []Unit
}

// Run executes the configured scrape mode to completion and reports
// what happened. A context cancellation aborts between units, already
// merged questions stay saved.
func (s Service) Run(ctx context.Context) (RunReport, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("certification", s.cert.Name),
		attribute.String("mode", s.opts.Mode),
		attribute.String("run_id", s.runID),
	)

	var err error
	switch s.opts.Mode {
	case ModeViews:
		err = s.runViews(ctx)
	case ModeSearch:
		err = s.runSearch(ctx)
	case ModeAll:
		err = s.runViews(ctx)
		if err == nil {
			err = s.runSearch(ctx)
		}
	default:
		err = fmt.Errorf("unknown mode %q, want one of %s, %s, %s",
			s.opts.Mode, ModeAll, ModeViews, ModeSearch)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	report := RunReport{
		RunID: s.runID,
		Stats: s.store.Stats(),
	}
	if s.journal != nil {
		// report what we can even when the run itself errored
		reportCtx := context.WithoutCancel(ctx)
		if counts, jerr := s.journal.StatusCounts(reportCtx, s.runID); jerr == nil {
			report.StatusCounts = counts
		}
		if failures, jerr := s.journal.Failures(reportCtx, s.runID); jerr == nil {
			report.Failures = failures
		}
	}
	return report, err
}

func (s Service) record(ctx context.Context, unit Unit) {
	if s.journal == nil {
		return
	}
	unit.RunID = s.runID
	unit.Certification = s.cert.Name
	if err := s.journal.Record(context.WithoutCancel(ctx), unit); err != nil {
		// journaling is advisory, a failed insert must not stop a run
		slog.Warn("failed to journal unit", "kind", unit.Kind, "err", err)
	}
}

// openPage navigates to a URL and clears whatever obstacle shows up.
// The returned session may differ from the input when a block forced a
// rotation. On a hard failure the returned session may be nil.
func (s Service) openPage(
	ctx context.Context, session browser.Session, target string,
) (browser.Session, error) {
	err := s.opts.Retry.Do(ctx, "navigate "+target, func() error {
		return session.Navigate(ctx, target)
	})
	if err != nil {
		return session, err
	}

	switch obstacle.Detect(session) {
	case obstacle.KindCaptcha:
		session, err = s.resolveCaptcha(ctx, session, target)
		if err != nil {
			return session, err
		}
	case obstacle.KindPaywall:
		obstacle.RecoverPaywall(session)
	}
	return session, nil
}

func (s Service) resolveCaptcha(
	ctx context.Context, session browser.Session, target string,
) (browser.Session, error) {
	outcome, err := obstacle.Resolve(ctx, session)
	if err != nil {
		return session, err
	}
	if outcome == obstacle.OutcomeSolved {
		return session, nil
	}

	fresh, err := browser.Rotate(ctx, s.source, session)
	if err != nil {
		return nil, err
	}
	if err := fresh.Navigate(ctx, target); err != nil {
		return fresh, err
	}
	if obstacle.Detect(fresh) == obstacle.KindCaptcha {
		return fresh, fmt.Errorf("still challenged after session rotation: %s", target)
	}
	return fresh, nil
}

// document snapshots the current page into a parseable form.
func document(session browser.Session) (*goquery.Document, error) {
	html, err := session.HTML()
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}
