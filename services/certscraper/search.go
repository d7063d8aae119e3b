package certscraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"certifyhub-backend/lib/browser"
	"certifyhub-backend/lib/htmlutil"
	"certifyhub-backend/lib/scrapers/examtopics"

	"go.opentelemetry.io/otel/attribute"
)

// result pages walked per engine before giving up on it
const maxSearchResultPages = 3

// rotated-session tries per engine before moving to the next one
const searchEngineAttempts = 3

// tries at rendering a discussion thread before the question fails, a
// shell page with no question text triggers the retry
const threadFetchAttempts = 2

type searchEngine struct {
	name   string
	format string
}

var searchEngines = []searchEngine{
	{name: "google", format: "https://www.google.com/search?q=%s"},
	{name: "bing", format: "https://www.bing.com/search?q=%s"},
	{name: "duckduckgo", format: "https://duckduckgo.com/html/?q=%s"},
}

var nextPageSelectors = []string{
	"#pnnext",
	"a.next",
	"a[aria-label='Next']",
}

// runSearch locates the discussion thread for every question in the
// configured window that the store does not hold yet. Questions are
// fetched in batches, each worker driving its own browser.
func (s Service) runSearch(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "runSearch")
	defer span.End()

	start := s.opts.StartQuestion
	end := start + s.opts.MaxQuestions - 1

	var wanted []int
	for number := start; number <= end; number++ {
		if s.store.Has(number) {
			s.record(ctx, Unit{
				Kind:   "question",
				Topic:  s.opts.Topic,
				Number: number,
				Status: StatusSkipped,
				Detail: "already held",
			})
			continue
		}
		wanted = append(wanted, number)
	}
	span.SetAttributes(
		attribute.Int("window_start", start),
		attribute.Int("window_end", end),
		attribute.Int("wanted", len(wanted)),
	)
	slog.Info("searching for missing questions",
		"topic", s.opts.Topic,
		"window", fmt.Sprintf("%d-%d", start, end),
		"missing", len(wanted))

	for batchStart := 0; batchStart < len(wanted); batchStart += s.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		if batchStart > 0 {
			if err := sleepJitter(ctx, s.opts.Delays.BatchMin, s.opts.Delays.BatchMax); err != nil {
				return err
			}
		}

		batchEnd := batchStart + s.opts.BatchSize
		if batchEnd > len(wanted) {
			batchEnd = len(wanted)
		}
		batch := wanted[batchStart:batchEnd]

		for _, result := range s.fetchBatch(ctx, batch) {
			if result.err != nil {
				slog.Error("question lookup failed",
					"question", result.number,
					"err", result.err)
				s.record(ctx, Unit{
					Kind:   "question",
					Topic:  s.opts.Topic,
					Number: result.number,
					Status: StatusFailed,
					Detail: result.err.Error(),
				})
				continue
			}

			question := result.question
			question.ScrapedAt = time.Now().UTC()
			if s.store.Merge(question) {
				if err := s.store.Save(); err != nil {
					return fmt.Errorf("failed to save dataset: %w", err)
				}
				if err := s.store.SaveSnapshot(question); err != nil {
					slog.Warn("failed to write question snapshot",
						"question", question.QuestionNumber,
						"err", err)
				}
			}
			s.record(ctx, Unit{
				Kind:   "question",
				Topic:  s.opts.Topic,
				Number: result.number,
				Status: StatusOk,
				Detail: question.URL,
			})
			slog.Info("scraped question",
				"question", result.number,
				"url", question.URL)
		}
	}

	if err := s.store.SaveRange(start, end); err != nil {
		slog.Warn("failed to write range snapshot", "err", err)
	}
	return nil
}

type batchResult struct {
	number   int
	question examtopics.Question
	err      error
}

// fetchBatch resolves a batch of questions in parallel. Each worker
// gets its own browser since sessions are single threaded.
func (s Service) fetchBatch(ctx context.Context, numbers []int) []batchResult {
	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make([]batchResult, 0, len(numbers))

	for _, number := range numbers {
		wg.Add(1)
		go func(number int) {
			defer wg.Done()

			question, err := s.fetchQuestion(ctx, number)

			mu.Lock()
			defer mu.Unlock()
			results = append(results, batchResult{
				number:   number,
				question: question,
				err:      err,
			})
		}(number)
	}

	wg.Wait()
	return results
}

func (s Service) fetchQuestion(ctx context.Context, number int) (examtopics.Question, error) {
	ctx, span := tracer.Start(ctx, "fetchQuestion")
	defer span.End()
	span.SetAttributes(attribute.Int("question", number))

	// stagger workers so batch members do not hit engines in lockstep
	if err := sleepJitter(ctx, s.opts.Delays.QuestionMin, s.opts.Delays.QuestionMax); err != nil {
		return examtopics.Question{}, err
	}

	session, err := browser.Rotate(ctx, s.source, nil)
	if err != nil {
		return examtopics.Question{}, err
	}
	defer func() {
		if session != nil {
			session.Close()
		}
	}()

	target := ""
	for i, engine := range searchEngines {
		if i > 0 {
			if err := sleepJitter(ctx, s.opts.Delays.SearchMin, s.opts.Delays.SearchMax); err != nil {
				return examtopics.Question{}, err
			}
		}

		for attempt := 1; attempt <= searchEngineAttempts; attempt++ {
			if attempt > 1 {
				if err := sleepJitter(ctx, s.opts.Delays.SearchMin, s.opts.Delays.SearchMax); err != nil {
					return examtopics.Question{}, err
				}
			}

			found, err := s.searchOneEngine(ctx, &session, engine, number)
			if err != nil {
				slog.Warn("search engine attempt failed",
					"engine", engine.name,
					"question", number,
					"attempt", attempt,
					"err", err)
				// a fresh identity before the next try on this engine
				session, err = browser.Rotate(ctx, s.source, session)
				if err != nil {
					return examtopics.Question{}, err
				}
				continue
			}
			target = found
			break
		}
		if target != "" {
			span.SetAttributes(attribute.String("engine", engine.name))
			break
		}
	}

	if target == "" {
		// no engine produced a hit, the conventional URL shape is the
		// last resort
		target = examtopics.DirectURLGuess(s.cert, s.opts.Topic, number)
		slog.Info("falling back to direct URL guess",
			"question", number,
			"url", target)
	}

	var question examtopics.Question
	for attempt := 1; ; attempt++ {
		question, err = s.fetchThread(ctx, &session, target, number)
		if err != nil {
			return examtopics.Question{}, err
		}
		if question.QuestionText != "" {
			break
		}
		if attempt >= threadFetchAttempts {
			return examtopics.Question{}, fmt.Errorf(
				"thread page rendered without question text: %s", target)
		}
		slog.Warn("thread rendered without question text, retrying on a fresh session",
			"question", number,
			"url", target)
		session, err = browser.Rotate(ctx, s.source, session)
		if err != nil {
			return examtopics.Question{}, err
		}
	}
	return question, nil
}

// fetchThread loads one discussion thread and parses it, verifying
// the thread is really about the wanted question.
func (s Service) fetchThread(
	ctx context.Context, session *browser.Session, target string, number int,
) (examtopics.Question, error) {
	fresh, err := s.openPage(ctx, *session, target)
	if fresh != nil {
		*session = fresh
	} else {
		*session = nil
	}
	if err != nil {
		return examtopics.Question{}, err
	}

	(*session).ClickAll(revealSolutionSelector)

	doc, err := document(*session)
	if err != nil {
		return examtopics.Question{}, err
	}

	question, err := examtopics.ParseDiscussionPage(doc, (*session).URL())
	if err != nil {
		return examtopics.Question{}, err
	}
	if question.QuestionNumber != number || question.TopicNumber != s.opts.Topic {
		return examtopics.Question{}, fmt.Errorf(
			"thread is for topic %d question %d, wanted topic %d question %d",
			question.TopicNumber, question.QuestionNumber,
			s.opts.Topic, number)
	}
	return question, nil
}

// searchOneEngine runs one query against one engine and walks its
// result pages. An exact slug match wins immediately, otherwise the
// first loose match found anywhere is returned.
func (s Service) searchOneEngine(
	ctx context.Context, session *browser.Session, engine searchEngine, number int,
) (string, error) {
	query := examtopics.BuildSearchQuery(s.cert, s.opts.Topic, number)
	searchURL := fmt.Sprintf(engine.format, url.QueryEscape(query))

	fresh, err := s.openPage(ctx, *session, searchURL)
	if fresh != nil {
		*session = fresh
	} else {
		*session = nil
	}
	if err != nil {
		return "", err
	}

	loose := ""
	for page := 0; page < maxSearchResultPages; page++ {
		doc, err := document(*session)
		if err != nil {
			return loose, err
		}

		for _, anchor := range htmlutil.GetAnchors(doc.Find("a")) {
			href := normalizeResultHref(anchor.Href)
			switch examtopics.MatchDiscussionURL(href, s.cert, s.opts.Topic, number) {
			case examtopics.MatchExact:
				return href, nil
			case examtopics.MatchLoose:
				if loose == "" {
					loose = href
				}
			}
		}

		if !clickNextPage(*session) {
			break
		}
		if err := sleepJitter(ctx, s.opts.Delays.SearchMin, s.opts.Delays.SearchMax); err != nil {
			return loose, err
		}
	}
	return loose, nil
}

// engines wrap outbound links in redirect endpoints, unwrap them so
// matching sees the destination
func normalizeResultHref(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	query := parsed.Query()
	if strings.Contains(parsed.Path, "/url") {
		if q := query.Get("q"); q != "" {
			return q
		}
	}
	if q := query.Get("uddg"); q != "" {
		return q
	}
	return href
}

func clickNextPage(session browser.Session) bool {
	for _, selector := range nextPageSelectors {
		if !session.Has(selector) {
			continue
		}
		if err := session.Click(selector); err == nil {
			return true
		}
	}
	return false
}
