package examtopics

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"certifyhub-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

var (
	questionNumberRe = regexp.MustCompile(`Question\s*#?\s*(\d+)`)
	topicNumberRe    = regexp.MustCompile(`Topic\s*#?\s*(\d+)`)
	totalQuestionsRe = regexp.MustCompile(`Questions:\s*(\d+)`)
)

// ParseViewPage extracts every question card from a paginated exam
// view page. Cards missing a question number are skipped rather than
// failing the page.
func ParseViewPage(doc *goquery.Document, pageURL string) []Question {
	var questions []Question

	doc.Find("div.exam-question-card").Each(func(_ int, card *goquery.Selection) {
		question, ok := parseQuestionCard(card, pageURL)
		if ok {
			questions = append(questions, question)
		}
	})

	return questions
}

func parseQuestionCard(card *goquery.Selection, pageURL string) (Question, bool) {
	question := Question{URL: pageURL}

	header := htmlutil.CleanText(card.Find("div.card-header").First().Text())
	if m := questionNumberRe.FindStringSubmatch(header); m != nil {
		question.QuestionNumber, _ = strconv.Atoi(m[1])
	}
	if question.QuestionNumber == 0 {
		return Question{}, false
	}

	topicText := htmlutil.CleanText(card.Find(".question-title-topic").First().Text())
	if m := topicNumberRe.FindStringSubmatch(topicText); m != nil {
		question.TopicNumber, _ = strconv.Atoi(m[1])
	}
	if question.TopicNumber == 0 {
		if m := topicNumberRe.FindStringSubmatch(header); m != nil {
			question.TopicNumber, _ = strconv.Atoi(m[1])
		}
	}

	body := card.Find("div.question-body").First()
	if text, err := body.Find("p.card-text").First().Html(); err == nil {
		question.QuestionText = strings.TrimSpace(text)
	}

	question.Choices = parseChoices(card)

	answer := card.Find("span.correct-answer").First()
	if answer.Length() > 0 {
		question.CorrectAnswer = htmlutil.CleanText(answer.Text())
	}
	if question.CorrectAnswer == "" {
		// the reveal widget may not have been triggered, fall back to
		// whatever the choice list marked
		for _, choice := range question.Choices {
			if choice.Correct {
				question.CorrectAnswer = choice.Letter
				break
			}
		}
	}

	explanation := card.Find("div.question-explanation").First()
	if explanation.Length() > 0 {
		question.Explanation = htmlutil.CleanText(explanation.Text())
	}

	if dataID, ok := body.Attr("data-id"); ok && dataID != "" {
		question.QuestionID = dataID
		question.CommunityVotes = parseCommunityVotes(card, dataID)
	}

	return question, true
}

func parseChoices(card *goquery.Selection) []Choice {
	var choices []Choice

	card.Find("div.question-choices-container li.multi-choice-item").
		Each(func(_ int, item *goquery.Selection) {
			letterEl := item.Find("span.multi-choice-letter").First()
			letterRaw := htmlutil.CleanText(letterEl.Text())
			letter := strings.TrimSuffix(letterRaw, ".")

			text := htmlutil.CleanText(item.Text())
			text = strings.TrimSpace(strings.TrimPrefix(text, letterRaw))

			correct := item.HasClass("correct-hidden")

			choices = append(choices, Choice{
				Letter:  letter,
				Text:    text,
				Correct: correct,
			})
		})

	return choices
}

// vote data lives in a script tag keyed off the card id with a dollar
// prefix, it is frequently absent so everything here is best effort.
// the payload is carried through untouched.
func parseCommunityVotes(card *goquery.Selection, dataID string) json.RawMessage {
	script := card.Find(fmt.Sprintf("script[id='$%s']", dataID)).First()
	if script.Length() == 0 {
		return nil
	}

	raw := []byte(strings.TrimSpace(script.Text()))
	if !json.Valid(raw) {
		return nil
	}
	return json.RawMessage(raw)
}

// ParseTotalQuestions finds the advertised question count for the
// exam, returning 0 when the page does not state one.
func ParseTotalQuestions(doc *goquery.Document) int {
	stat := htmlutil.CleanText(doc.Find(".examQa__item:nth-child(4)").First().Text())
	if m := totalQuestionsRe.FindStringSubmatch(stat); m != nil {
		total, _ := strconv.Atoi(m[1])
		return total
	}

	total := 0
	doc.Find("div, span, p").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if m := totalQuestionsRe.FindStringSubmatch(sel.Text()); m != nil {
			total, _ = strconv.Atoi(m[1])
			return false
		}
		return true
	})
	return total
}
