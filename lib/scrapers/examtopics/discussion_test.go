package examtopics

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const discussionFixture = `
<html>
<head><title>Exam Terraform Associate Topic 1 Question 47 Discussion</title></head>
<body>
<div class="exam-question-card">
	<div class="card-header">Question #47 <span class="question-title-topic">Topic 1</span></div>
	<div class="question-body" data-id="5540">
		<p class="card-text">Which command validates configuration syntax?</p>
		<div class="question-choices-container">
			<ul>
				<li class="multi-choice-item"><span class="multi-choice-letter">A.</span> terraform fmt</li>
				<li class="multi-choice-item"><span class="multi-choice-letter">B.</span> terraform validate</li>
			</ul>
		</div>
	</div>
</div>
<div class="comment-container">
	<span class="badge">Highly Voted</span>
	<h5 class="comment-username">devops_dan</h5>
	<div class="comment-selected-answers">Selected Answer: B</div>
	<div class="comment-content">validate checks syntax without touching state.</div>
	<span class="upvote-count">14</span>
</div>
<div class="comment-container">
	<h5 class="comment-username"></h5>
	<div class="comment-content">I picked A on the real exam and got it wrong.</div>
	<span class="upvote-count">n/a</span>
</div>
<div class="comment-container">
	<h5 class="comment-username">cloudkat</h5>
	<div class="comment-content">Agreed, B.</div>
	<span class="upvote-count">6</span>
</div>
</body>
</html>
`

func TestParseDiscussionPageFromURL(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(discussionFixture))
	require.NoError(t, err)

	url := "https://www.examtopics.com/discussions/hashicorp/view/5540-exam-terraform-associate-topic-1-question-47-discussion/"
	question, err := ParseDiscussionPage(doc, url)
	require.NoError(t, err)

	require.Equal(t, 47, question.QuestionNumber)
	require.Equal(t, 1, question.TopicNumber)
	require.Equal(t, "Which command validates configuration syntax?", question.QuestionText)
	require.Equal(t, url, question.URL)

	diff := cmp.Diff([]Comment{
		{
			Author:         "devops_dan",
			Content:        "validate checks syntax without touching state.",
			Upvotes:        14,
			SelectedAnswer: "B",
			HighlyVoted:    true,
		},
		{
			Author:  "cloudkat",
			Content: "Agreed, B.",
			Upvotes: 6,
		},
		{
			Author:  "Unknown",
			Content: "I picked A on the real exam and got it wrong.",
		},
	}, question.Comments)
	require.Empty(t, diff)

	// no marked choice and no reveal on discussion threads, the top
	// voted selected answer stands in
	require.Equal(t, "B", question.CorrectAnswer)
	require.Equal(t, "validate checks syntax without touching state.", question.Explanation)
}

func TestParseDiscussionPageNumbersFromTitle(t *testing.T) {
	fixture := `
	<html>
	<head><title>Exam AZ-900 Topic 2 Question 9 Discussion</title></head>
	<body><div class="comment-container">
		<h5 class="comment-username">az_fan</h5>
		<div class="comment-content">The answer is C.</div>
		<span class="upvote-count">2</span>
	</div></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fixture))
	require.NoError(t, err)

	question, err := ParseDiscussionPage(doc, "https://www.examtopics.com/discussions/microsoft/view/12345/")
	require.NoError(t, err)
	require.Equal(t, 2, question.TopicNumber)
	require.Equal(t, 9, question.QuestionNumber)
	require.Equal(t, "The answer is C.", question.Explanation)
}

func TestParseDiscussionPageNoNumbers(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><head><title>off topic thread</title></head></html>"))
	require.NoError(t, err)

	_, err = ParseDiscussionPage(doc, "https://www.examtopics.com/discussions/misc/view/1/")
	require.Error(t, err)
}

func TestParseCommentsCapsAtFive(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 8; i++ {
		b.WriteString(`<div class="comment-container">
			<h5 class="comment-username">user</h5>
			<div class="comment-content">comment</div>
			<span class="upvote-count">1</span>
		</div>`)
	}
	b.WriteString("</body></html>")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(b.String()))
	require.NoError(t, err)
	require.Len(t, parseComments(doc), 5)
}
