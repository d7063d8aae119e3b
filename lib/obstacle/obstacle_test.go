package obstacle

import (
	"context"
	"strings"
	"testing"
	"time"

	"certifyhub-backend/lib/browser"

	"github.com/stretchr/testify/require"
)

func sessionWithPage(t *testing.T, html string) *browser.FakeSession {
	t.Helper()
	session := browser.NewFakeSession(map[string]browser.FakePage{
		"https://example.test/page": {HTML: html},
	})
	err := session.Navigate(context.Background(), "https://example.test/page")
	require.NoError(t, err)
	return session
}

func TestDetectCleanPage(t *testing.T) {
	session := sessionWithPage(t, `<html><body><h1>Question #12</h1></body></html>`)
	require.Equal(t, KindNone, Detect(session))
}

func TestDetectCaptchaPhrase(t *testing.T) {
	session := sessionWithPage(t,
		`<html><body><p>Our systems have detected unusual traffic from your network.</p></body></html>`)
	require.Equal(t, KindCaptcha, Detect(session))
}

func TestDetectCaptchaSelector(t *testing.T) {
	session := sessionWithPage(t,
		`<html><body><div class="g-recaptcha" data-sitekey="x"></div></body></html>`)
	require.Equal(t, KindCaptcha, Detect(session))
}

func TestDetectCaptchaInTitle(t *testing.T) {
	session := browser.NewFakeSession(map[string]browser.FakePage{
		"https://example.test/page": {
			Title: "Security Check",
			HTML:  `<html><body></body></html>`,
		},
	})
	err := session.Navigate(context.Background(), "https://example.test/page")
	require.NoError(t, err)
	require.Equal(t, KindCaptcha, Detect(session))
}

func TestDetectPaywall(t *testing.T) {
	session := sessionWithPage(t,
		`<html><body><div class="paywall">Subscribe for unlimited access</div></body></html>`)
	require.Equal(t, KindPaywall, Detect(session))
}

func TestDetectCaptchaWinsOverPaywall(t *testing.T) {
	session := sessionWithPage(t,
		`<html><body><p>subscribe</p><div class="cf-turnstile"></div><p>recaptcha</p></body></html>`)
	require.Equal(t, KindCaptcha, Detect(session))
}

func TestResolveHonorsCancellation(t *testing.T) {
	session := sessionWithPage(t,
		`<html><body><p>recaptcha challenge</p></body></html>`)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*10)
	defer cancel()

	outcome, err := Resolve(ctx, session)
	require.Error(t, err)
	require.Equal(t, OutcomeBlocked, outcome)
	require.Equal(t, 1, session.CookiesCleared)
}

func TestRecoverPaywallRunsStripScript(t *testing.T) {
	session := sessionWithPage(t,
		`<html><body><div class="paywall">premium</div></body></html>`)

	RecoverPaywall(session)
	require.Len(t, session.Scripts, 1)
	require.True(t, strings.Contains(session.Scripts[0], "subscription-required"))
}

func TestVerifyResidualPhrases(t *testing.T) {
	blocked := sessionWithPage(t, `<html><body><p>Checking if you are a robot</p></body></html>`)
	require.Equal(t, OutcomeBlocked, verify(blocked))

	solved := sessionWithPage(t, `<html><body><h1>Question #1</h1></body></html>`)
	require.Equal(t, OutcomeSolved, verify(solved))
}
