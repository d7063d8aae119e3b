package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FakePage is a canned document served by a FakeSession.
type FakePage struct {
	Title string
	HTML  string
}

// FakeSession serves canned documents keyed by URL and records the
// interactions made against it. Selector queries run against the
// current document so tests exercise the same selectors production
// code uses.
type FakeSession struct {
	Pages map[string]FakePage
	// swapped in for the current URL when Reload is called
	AfterReload map[string]FakePage
	NavigateErr map[string]error
	IntResults  map[string]int
	StrResults  map[string]string

	Navigations    []string
	Clicks         []string
	Inputs         map[string]string
	Scripts        []string
	MouseMoves     int
	Scrolls        []int
	EscapePresses  int
	CookiesCleared int
	Reloads        int
	Closed         bool

	current string
}

var _ Session = &FakeSession{}

func NewFakeSession(pages map[string]FakePage) *FakeSession {
	return &FakeSession{
		Pages:  pages,
		Inputs: map[string]string{},
	}
}

func (s *FakeSession) doc() *goquery.Document {
	page := s.Pages[s.current]
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}
	return doc
}

func (s *FakeSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Navigations = append(s.Navigations, url)
	if err := s.NavigateErr[url]; err != nil {
		return err
	}
	s.current = url
	return nil
}

func (s *FakeSession) Reload() error {
	s.Reloads++
	if page, ok := s.AfterReload[s.current]; ok {
		if s.Pages == nil {
			s.Pages = map[string]FakePage{}
		}
		s.Pages[s.current] = page
	}
	return nil
}

func (s *FakeSession) URL() string {
	return s.current
}

func (s *FakeSession) Title() string {
	return s.Pages[s.current].Title
}

func (s *FakeSession) HTML() (string, error) {
	page, ok := s.Pages[s.current]
	if !ok {
		return "", fmt.Errorf("no document loaded")
	}
	return page.HTML, nil
}

func (s *FakeSession) Has(selector string) bool {
	return s.doc().Find(selector).Length() > 0
}

func (s *FakeSession) Text(selector string) (string, error) {
	sel := s.doc().Find(selector)
	if sel.Length() == 0 {
		return "", ErrNoElement
	}
	return sel.First().Text(), nil
}

func (s *FakeSession) Attribute(selector, name string) (string, error) {
	sel := s.doc().Find(selector)
	if sel.Length() == 0 {
		return "", ErrNoElement
	}
	value, _ := sel.First().Attr(name)
	return value, nil
}

func (s *FakeSession) Click(selector string) error {
	if !s.Has(selector) {
		return ErrNoElement
	}
	s.Clicks = append(s.Clicks, selector)
	return nil
}

func (s *FakeSession) ClickAll(selector string) int {
	count := s.doc().Find(selector).Length()
	for i := 0; i < count; i++ {
		s.Clicks = append(s.Clicks, selector)
	}
	return count
}

func (s *FakeSession) Input(selector, text string) error {
	if !s.Has(selector) {
		return ErrNoElement
	}
	if s.Inputs == nil {
		s.Inputs = map[string]string{}
	}
	s.Inputs[selector] = text
	return nil
}

func (s *FakeSession) EvalInt(js string) (int, error) {
	s.Scripts = append(s.Scripts, js)
	return s.IntResults[js], nil
}

func (s *FakeSession) EvalString(js string) (string, error) {
	s.Scripts = append(s.Scripts, js)
	return s.StrResults[js], nil
}

func (s *FakeSession) Run(js string) error {
	s.Scripts = append(s.Scripts, js)
	return nil
}

func (s *FakeSession) MoveMouse(x, y float64) error {
	s.MouseMoves++
	return nil
}

func (s *FakeSession) ScrollTo(y int) error {
	s.Scrolls = append(s.Scrolls, y)
	return nil
}

func (s *FakeSession) PressEscape() error {
	s.EscapePresses++
	return nil
}

func (s *FakeSession) ClearCookies() error {
	s.CookiesCleared++
	return nil
}

func (s *FakeSession) Close() {
	s.Closed = true
}

// FakeSource hands out a scripted sequence of sessions.
type FakeSource struct {
	Sessions []Session
	Errs     []error
	next     int
}

var _ Source = &FakeSource{}

func (s *FakeSource) NewSession(ctx context.Context) (Session, error) {
	i := s.next
	s.next++
	if i < len(s.Errs) && s.Errs[i] != nil {
		return nil, s.Errs[i]
	}
	if i < len(s.Sessions) {
		return s.Sessions[i], nil
	}
	return nil, fmt.Errorf("fake source exhausted after %d sessions", len(s.Sessions))
}
