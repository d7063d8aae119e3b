package examtopics

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"certifyhub-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const maxCommentsPerQuestion = 5

var (
	discussionURLRe   = regexp.MustCompile(`topic-(\d+)-question-(\d+)`)
	discussionTitleRe = regexp.MustCompile(`Topic\s*#?\s*(\d+)\s*Question\s*#?\s*(\d+)`)
)

// ParseDiscussionPage extracts the question plus its top comments from
// a single discussion thread. The topic and question numbers come from
// the URL when possible since thread titles are user controlled.
func ParseDiscussionPage(doc *goquery.Document, pageURL string) (Question, error) {
	topic, number, ok := numbersFromURL(pageURL)
	if !ok {
		title := htmlutil.CleanText(doc.Find("title").First().Text())
		if title == "" {
			title = htmlutil.CleanText(doc.Find("h1").First().Text())
		}
		topic, number, ok = numbersFromTitle(title)
	}
	if !ok {
		return Question{}, fmt.Errorf("could not locate topic and question numbers in %q", pageURL)
	}

	question := Question{
		QuestionNumber: number,
		TopicNumber:    topic,
		URL:            pageURL,
	}

	if card := doc.Find("div.exam-question-card").First(); card.Length() > 0 {
		if parsed, ok := parseQuestionCard(card, pageURL); ok {
			parsed.QuestionNumber = number
			parsed.TopicNumber = topic
			question = parsed
		}
	}

	question.Comments = parseComments(doc)
	if question.Explanation == "" && len(question.Comments) > 0 {
		// the top voted comment is the community's explanation
		question.Explanation = question.Comments[0].Content
	}
	if question.CorrectAnswer == "" {
		for _, comment := range question.Comments {
			if comment.HighlyVoted && comment.SelectedAnswer != "" {
				question.CorrectAnswer = comment.SelectedAnswer
				break
			}
		}
	}

	return question, nil
}

func numbersFromURL(pageURL string) (topic, question int, ok bool) {
	m := discussionURLRe.FindStringSubmatch(pageURL)
	if m == nil {
		return 0, 0, false
	}
	topic, _ = strconv.Atoi(m[1])
	question, _ = strconv.Atoi(m[2])
	return topic, question, true
}

func numbersFromTitle(title string) (topic, question int, ok bool) {
	m := discussionTitleRe.FindStringSubmatch(title)
	if m == nil {
		return 0, 0, false
	}
	topic, _ = strconv.Atoi(m[1])
	question, _ = strconv.Atoi(m[2])
	return topic, question, true
}

func parseComments(doc *goquery.Document) []Comment {
	var comments []Comment

	doc.Find("div.comment-container").
		EachWithBreak(func(i int, container *goquery.Selection) bool {
			if i >= maxCommentsPerQuestion {
				return false
			}

			comment := Comment{Author: "Unknown"}

			if author := htmlutil.CleanText(container.Find("h5.comment-username").First().Text()); author != "" {
				comment.Author = author
			}
			comment.Content = htmlutil.CleanText(container.Find("div.comment-content").First().Text())

			upvotes := htmlutil.CleanText(container.Find("span.upvote-count").First().Text())
			if n, err := strconv.Atoi(upvotes); err == nil {
				comment.Upvotes = n
			}

			badge := htmlutil.CleanText(container.Find("span.badge").First().Text())
			comment.HighlyVoted = strings.Contains(badge, "Highly Voted")

			selected := htmlutil.CleanText(container.Find("div.comment-selected-answers").First().Text())
			selected = strings.TrimSpace(strings.TrimPrefix(selected, "Selected Answer:"))
			comment.SelectedAnswer = selected

			comments = append(comments, comment)
			return true
		})

	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].Upvotes > comments[j].Upvotes
	})
	return comments
}
