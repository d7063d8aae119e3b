package certscraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"certifyhub-backend/lib/browser"
	"certifyhub-backend/lib/scrapers/examtopics"

	"go.opentelemetry.io/otel/attribute"
)

// pages that parse to zero questions before the pagination walk stops
const maxConsecutiveEmptyPages = 3

// pages that fail outright before the pagination walk stops, so a
// broken site cannot keep the walk alive forever
const maxConsecutiveFailedPages = 5

const revealSolutionSelector = "a.reveal-solution"

// runViews scrapes the paginated exam view pages. In recursive mode
// the walk starts at page 1 and ends when the store holds the
// advertised question count or several pages in a row come up empty.
// Otherwise exactly the configured view pages are visited, in order.
func (s Service) runViews(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "runViews")
	defer span.End()
	span.SetAttributes(attribute.Bool("recursive", s.opts.Recursive))

	session, err := browser.Rotate(ctx, s.source, nil)
	if err != nil {
		return err
	}
	defer func() {
		if session != nil {
			session.Close()
		}
	}()

	s.discoverTotal(ctx, &session)

	var pages int
	if s.opts.Recursive {
		pages, err = s.walkAllViews(ctx, &session)
	} else {
		pages, err = s.visitListedViews(ctx, &session)
	}
	span.SetAttributes(attribute.Int("pages", pages))
	return err
}

// visitListedViews scrapes exactly the views named in the options.
func (s Service) visitListedViews(
	ctx context.Context, session *browser.Session,
) (int, error) {
	pages := 0
	for _, page := range s.opts.Views {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		if pages > 0 {
			if err := sleepJitter(ctx, s.opts.Delays.PageMin, s.opts.Delays.PageMax); err != nil {
				return pages, err
			}
		}
		pages++

		s.visitView(ctx, session, page)
		if *session == nil {
			fresh, err := browser.Rotate(ctx, s.source, nil)
			if err != nil {
				return pages, err
			}
			*session = fresh
		}
	}
	return pages, nil
}

// walkAllViews pages through the whole exam starting at view 1. Failed
// pages do not advance the empty streak, only pages that load and
// parse to zero cards do.
func (s Service) walkAllViews(
	ctx context.Context, session *browser.Session,
) (int, error) {
	consecutiveEmpty := 0
	consecutiveFailed := 0
	pages := 0
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return pages, err
		}

		if total := s.store.TotalQuestions(); total > 0 && s.store.Len() >= total {
			slog.Info("question bank complete, stopping pagination",
				"scraped", s.store.Len(),
				"total", total)
			break
		}
		if consecutiveEmpty >= maxConsecutiveEmptyPages {
			slog.Info("stopping pagination after consecutive empty pages",
				"empty_pages", consecutiveEmpty,
				"last_page", page-1)
			break
		}
		if consecutiveFailed >= maxConsecutiveFailedPages {
			return pages, fmt.Errorf(
				"aborting pagination, %d pages failed in a row", consecutiveFailed)
		}

		if pages > 0 {
			if err := sleepJitter(ctx, s.opts.Delays.PageMin, s.opts.Delays.PageMax); err != nil {
				return pages, err
			}
		}
		pages++

		found, failed := s.visitView(ctx, session, page)
		if failed {
			consecutiveFailed++
			if *session == nil {
				fresh, err := browser.Rotate(ctx, s.source, nil)
				if err != nil {
					return pages, err
				}
				*session = fresh
			}
			continue
		}
		consecutiveFailed = 0

		if found == 0 {
			consecutiveEmpty++
		} else {
			consecutiveEmpty = 0
		}
	}
	return pages, nil
}

// visitView scrapes one view page and journals the outcome. found is
// how many cards the page held, failed reports a page that did not
// load or parse at all.
func (s Service) visitView(
	ctx context.Context, session *browser.Session, page int,
) (found int, failed bool) {
	merged, found, err := s.scrapeViewPage(ctx, session, page)
	if err != nil {
		slog.Error("view page failed", "page", page, "err", err)
		s.record(ctx, Unit{
			Kind:   "view",
			Number: page,
			Status: StatusFailed,
			Detail: err.Error(),
		})
		return 0, true
	}

	if found == 0 {
		s.record(ctx, Unit{Kind: "view", Number: page, Status: StatusEmpty})
		slog.Info("view page empty", "page", page)
		return 0, false
	}

	s.record(ctx, Unit{
		Kind:   "view",
		Number: page,
		Status: StatusOk,
		Detail: fmt.Sprintf("%d found, %d merged", found, merged),
	})
	slog.Info("scraped view page",
		"page", page,
		"found", found,
		"merged", merged,
		"held", s.store.Len())
	return found, false
}

// discoverTotal reads the advertised question count off the exam
// landing page. Best effort, pagination falls back to the empty-page
// stop when the count stays unknown.
func (s Service) discoverTotal(ctx context.Context, session *browser.Session) {
	fresh, err := s.openPage(ctx, *session, examtopics.ExamURL(s.cert))
	if fresh != nil {
		*session = fresh
	}
	if err != nil {
		slog.Warn("failed to load exam landing page", "err", err)
		return
	}

	doc, err := document(*session)
	if err != nil {
		slog.Warn("failed to snapshot exam landing page", "err", err)
		return
	}
	if total := examtopics.ParseTotalQuestions(doc); total > 0 {
		s.store.SetTotalQuestions(total)
		slog.Info("discovered total question count", "total", total)
	}
}

func (s Service) scrapeViewPage(
	ctx context.Context, session *browser.Session, page int,
) (merged, found int, err error) {
	target := examtopics.ViewURL(s.cert, page)

	fresh, err := s.openPage(ctx, *session, target)
	if fresh != nil {
		*session = fresh
	} else {
		*session = nil
	}
	if err != nil {
		return 0, 0, err
	}

	// answers render hidden until each card's reveal link is clicked
	(*session).ClickAll(revealSolutionSelector)

	doc, err := document(*session)
	if err != nil {
		return 0, 0, err
	}

	questions := examtopics.ParseViewPage(doc, target)
	for _, question := range questions {
		question.ViewNumber = page
		question.ScrapedAt = time.Now().UTC()
		if !s.store.Merge(question) {
			continue
		}
		merged++
		if err := s.store.Save(); err != nil {
			return merged, len(questions), fmt.Errorf("failed to save dataset: %w", err)
		}
		if err := s.store.SaveSnapshot(question); err != nil {
			slog.Warn("failed to write question snapshot",
				"question", question.QuestionNumber,
				"err", err)
		}
	}
	return merged, len(questions), nil
}
