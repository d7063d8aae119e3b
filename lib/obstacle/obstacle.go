package obstacle

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"certifyhub-backend/lib/browser"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/obstacle")

// Kind classifies what is standing between the session and the content.
type Kind int

const (
	KindNone Kind = iota
	KindCaptcha
	KindPaywall
)

func (k Kind) String() string {
	switch k {
	case KindCaptcha:
		return "captcha"
	case KindPaywall:
		return "paywall"
	default:
		return "none"
	}
}

// Outcome is the terminal state of a bypass attempt.
type Outcome int

const (
	OutcomeSolved Outcome = iota
	OutcomeBlocked
)

func (o Outcome) String() string {
	if o == OutcomeSolved {
		return "solved"
	}
	return "blocked"
}

var captchaPhrases = []string{
	"captcha",
	"robot",
	"verify you're a human",
	"security check",
	"unusual traffic",
	"recaptcha",
	"cloudflare",
	"human verification",
}

var captchaSelectors = []string{
	"iframe[src*='recaptcha']",
	"iframe[src*='captcha']",
	"div.g-recaptcha",
	"form#captcha",
	"div.cf-turnstile",
	"div[id*='captcha']",
}

// phrases checked again after a bypass attempt, a shorter list since a
// partially solved challenge page often keeps boilerplate text around
var residualPhrases = []string{"captcha", "robot", "verify", "cloudflare"}

var paywallPhrases = []string{"premium", "subscribe", "paywall"}

// Detect classifies the currently loaded page. Captcha wins over
// paywall when both match since nothing is readable behind a challenge.
func Detect(session browser.Session) Kind {
	html, err := session.HTML()
	if err != nil {
		return KindNone
	}
	lowered := strings.ToLower(html + " " + session.Title())

	for _, phrase := range captchaPhrases {
		if strings.Contains(lowered, phrase) {
			return KindCaptcha
		}
	}
	for _, selector := range captchaSelectors {
		if session.Has(selector) {
			return KindCaptcha
		}
	}
	for _, phrase := range paywallPhrases {
		if strings.Contains(lowered, phrase) {
			return KindPaywall
		}
	}
	return KindNone
}

// Resolve walks the captcha bypass sequence against the current page
// and reports whether the content became reachable. A Blocked outcome
// means the caller should rotate to a fresh session.
func Resolve(ctx context.Context, session browser.Session) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "Resolve")
	defer span.End()

	slog.Info("captcha detected, attempting bypass", "url", session.URL())

	if err := session.ClearCookies(); err != nil {
		slog.Debug("failed to clear cookies", "err", err)
	}
	if err := waitJitter(ctx, 3000, 7000); err != nil {
		return OutcomeBlocked, err
	}

	if session.Has("div.recaptcha-checkbox-border") {
		slog.Debug("clicking recaptcha checkbox")
		if err := session.Click("div.recaptcha-checkbox-border"); err != nil {
			slog.Debug("checkbox click failed", "err", err)
		}
		if err := waitJitter(ctx, 2000, 4000); err != nil {
			return OutcomeBlocked, err
		}
	}

	if err := session.Reload(); err != nil {
		slog.Debug("reload during bypass failed", "err", err)
	}

	if err := simulateHumanActivity(ctx, session); err != nil {
		return OutcomeBlocked, err
	}

	if session.Has("form#challenge-form") {
		slog.Debug("waiting out interstitial challenge form")
		if err := waitJitter(ctx, 5000, 5000); err != nil {
			return OutcomeBlocked, err
		}
		if err := session.Run(`() => {
			const form = document.querySelector('form#challenge-form');
			if (form) form.submit();
		}`); err != nil {
			slog.Debug("challenge form submit failed", "err", err)
		}
		if err := waitJitter(ctx, 3000, 5000); err != nil {
			return OutcomeBlocked, err
		}
	}

	outcome := verify(session)
	span.SetAttributes(attribute.String("outcome", outcome.String()))
	if outcome == OutcomeBlocked {
		span.SetStatus(codes.Error, "bypass failed")
		slog.Warn("captcha bypass failed", "url", session.URL())
	} else {
		slog.Info("captcha bypass succeeded", "url", session.URL())
	}
	return outcome, nil
}

func verify(session browser.Session) Outcome {
	html, err := session.HTML()
	if err != nil {
		return OutcomeBlocked
	}
	lowered := strings.ToLower(html)
	for _, phrase := range residualPhrases {
		if strings.Contains(lowered, phrase) {
			return OutcomeBlocked
		}
	}
	return OutcomeSolved
}

var searchBoxSelectors = []string{
	"input[type='search']",
	"input[name='q']",
	"input[type='text']",
}

// simulateHumanActivity performs the unscripted-looking interactions
// challenge heuristics watch for: wandering mouse, uneven scrolling
// with backtracks, and a throwaway search query.
func simulateHumanActivity(ctx context.Context, session browser.Session) error {
	moves, _ := random.IntRange(3, 8)
	for i := 0; i < moves; i++ {
		x := rand.Float64() * 1280
		y := rand.Float64() * 1080
		if err := session.MoveMouse(x, y); err != nil {
			slog.Debug("mouse move failed", "err", err)
		}
		if err := waitJitter(ctx, 200, 800); err != nil {
			return err
		}
	}

	position := 0
	steps, _ := random.IntRange(3, 6)
	for i := 0; i < steps; i++ {
		delta, _ := random.IntRange(200, 600)
		if rand.Float64() < 0.2 {
			backtrack, _ := random.IntRange(50, 150)
			delta = -backtrack
		}
		position += delta
		if position < 0 {
			position = 0
		}
		if err := session.ScrollTo(position); err != nil {
			slog.Debug("scroll failed", "err", err)
		}
		if err := waitJitter(ctx, 300, 900); err != nil {
			return err
		}
	}

	for _, selector := range searchBoxSelectors {
		if !session.Has(selector) {
			continue
		}
		if err := session.Input(selector, "exam questions"); err != nil {
			slog.Debug("search box input failed", "err", err)
			break
		}
		if err := waitJitter(ctx, 500, 1500); err != nil {
			return err
		}
		if err := session.PressEscape(); err != nil {
			slog.Debug("escape press failed", "err", err)
		}
		break
	}

	return nil
}

// removes overlay nodes and restores page scroll, the usual soft
// paywall implementation
const paywallRecoveryScript = `() => {
	const selectors = [
		'.paywall', '.modal', '.popup', '.overlay', '.subscription-required',
	];
	for (const selector of selectors) {
		for (const node of document.querySelectorAll(selector)) {
			node.remove();
		}
	}
	document.body.style.overflow = 'auto';
	document.body.style.position = 'static';
	document.documentElement.style.overflow = 'auto';
}`

// RecoverPaywall strips soft paywall overlays in place. Best effort,
// the page is still usable when it fails.
func RecoverPaywall(session browser.Session) {
	slog.Info("paywall detected, stripping overlays", "url", session.URL())
	if err := session.Run(paywallRecoveryScript); err != nil {
		slog.Debug("paywall recovery script failed", "err", err)
	}
}

func waitJitter(ctx context.Context, minMs, maxMs int) error {
	ms := minMs
	if maxMs > minMs {
		jittered, err := random.IntRange(minMs, maxMs)
		if err == nil {
			ms = jittered
		}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return nil
	}
}
