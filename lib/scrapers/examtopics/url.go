package examtopics

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// site-wide URL defaults, overridable per certification
const (
	defaultViewURLTemplate       = "https://www.examtopics.com/exams/{provider}/{exam}/view/{page}/"
	defaultDiscussionURLTemplate = "https://www.examtopics.com/discussions/{provider}/view/1-exam-{exam}-topic-{topic}-question-{question}-discussion/"
	defaultDiscussionURLPattern  = `topic-(\d+)-question-(\d+)`
)

// Match grades how well a candidate URL fits a wanted question, with
// higher values meaning stronger matches.
type Match int

const (
	MatchNone Match = iota
	// right site and exam, topic and question present but not in the
	// canonical slug shape
	MatchLoose
	// pattern captures agree with the wanted topic and question
	MatchExact
)

func (m Match) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchLoose:
		return "loose"
	default:
		return "none"
	}
}

func (c CertConfig) discussionPattern() *regexp.Regexp {
	pattern := c.DiscussionURLPattern
	if pattern == "" {
		pattern = defaultDiscussionURLPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return regexp.MustCompile(defaultDiscussionURLPattern)
	}
	return re
}

// ParseDiscussionURL extracts the topic and question numbers a
// discussion URL encodes, using the certification's URL pattern. ok is
// false when the URL does not carry both numbers.
func ParseDiscussionURL(rawURL string, cfg CertConfig) (topic, question int, ok bool) {
	m := cfg.discussionPattern().FindStringSubmatch(strings.ToLower(rawURL))
	if m == nil || len(m) < 3 {
		return 0, 0, false
	}
	topic, _ = strconv.Atoi(m[1])
	question, _ = strconv.Atoi(m[2])
	return topic, question, topic > 0 && question > 0
}

// MatchDiscussionURL grades a search result URL against the wanted
// topic and question. Exact means the certification's URL pattern
// captures both numbers and they agree. Loose means the URL still
// names the exam, the topic and the question, just not in the
// canonical slug shape.
func MatchDiscussionURL(rawURL string, cfg CertConfig, topic, question int) Match {
	lowered := strings.ToLower(rawURL)
	if !strings.Contains(lowered, "examtopics.com/discussions") {
		return MatchNone
	}

	if gotTopic, gotQuestion, ok := ParseDiscussionURL(lowered, cfg); ok {
		if gotTopic == topic && gotQuestion == question {
			return MatchExact
		}
		return MatchNone
	}

	if strings.Contains(lowered, strings.ToLower(cfg.ExamSlug)) &&
		strings.Contains(lowered, fmt.Sprintf("topic-%d", topic)) &&
		strings.Contains(lowered, fmt.Sprintf("question-%d", question)) {
		return MatchLoose
	}

	return MatchNone
}

// BuildSearchQuery builds the web search query for one question's
// discussion thread.
func BuildSearchQuery(cfg CertConfig, topic, question int) string {
	certWords := strings.ReplaceAll(cfg.ExamSlug, "-", " ")
	return fmt.Sprintf("examtopics %s %s topic %d question %d discussion",
		cfg.Provider, certWords, topic, question)
}

func expandTemplate(template string, pairs ...string) string {
	replacer := strings.NewReplacer(pairs...)
	return replacer.Replace(template)
}

// DirectURLGuess builds the conventional discussion URL for a question.
// Thread ids vary so this only sometimes resolves, but it is free to
// try when search comes up empty.
func DirectURLGuess(cfg CertConfig, topic, question int) string {
	template := cfg.DiscussionURLTemplate
	if template == "" {
		template = defaultDiscussionURLTemplate
	}
	return expandTemplate(template,
		"{provider}", cfg.Provider,
		"{exam}", cfg.ExamSlug,
		"{topic}", strconv.Itoa(topic),
		"{question}", strconv.Itoa(question),
	)
}

// ViewURL builds the paginated exam view URL.
func ViewURL(cfg CertConfig, page int) string {
	template := cfg.ViewURLTemplate
	if template == "" {
		template = defaultViewURLTemplate
	}
	return expandTemplate(template,
		"{provider}", cfg.Provider,
		"{exam}", cfg.ExamSlug,
		"{page}", strconv.Itoa(page),
	)
}

// ExamURL is the exam landing page, which advertises the total
// question count.
func ExamURL(cfg CertConfig) string {
	return fmt.Sprintf("https://www.examtopics.com/exams/%s/%s/",
		cfg.Provider, cfg.ExamSlug)
}
