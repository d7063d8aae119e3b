package examstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"certifyhub-backend/lib/scrapers/examtopics"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var testCert = examtopics.CertConfig{
	Name:        "terraform-associate",
	Provider:    "hashicorp",
	ExamSlug:    "terraform-associate",
	DisplayName: "HashiCorp Certified: Terraform Associate",
	Description: "Infrastructure as code fundamentals with Terraform.",
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir(), testCert)
	require.NoError(t, err)
	return store
}

func question(topic, number int, answer string, choices int) examtopics.Question {
	q := examtopics.Question{
		TopicNumber:    topic,
		QuestionNumber: number,
		QuestionText:   "text",
		CorrectAnswer:  answer,
	}
	for i := 0; i < choices; i++ {
		q.Choices = append(q.Choices, examtopics.Choice{
			Letter: string(rune('A' + i)),
		})
	}
	return q
}

func TestMergeAddsNewQuestions(t *testing.T) {
	store := newTestStore(t)

	require.True(t, store.Merge(question(1, 21, "A", 4)))
	require.True(t, store.Merge(question(1, 22, "", 4)))
	require.Equal(t, 2, store.Len())
	require.True(t, store.Has(21))
	require.False(t, store.Has(23))
}

func TestMergeKeysByQuestionNumberAcrossTopics(t *testing.T) {
	store := newTestStore(t)
	require.True(t, store.Merge(question(1, 21, "A", 4)))

	// same number under another topic label is the same question
	require.False(t, store.Merge(question(2, 21, "A", 4)))
	require.Equal(t, 1, store.Len())

	kept, ok := store.Get(21)
	require.True(t, ok)
	require.Equal(t, 1, kept.TopicNumber)
}

func TestMergeNeverDowngrades(t *testing.T) {
	store := newTestStore(t)
	require.True(t, store.Merge(question(1, 21, "A", 4)))

	// fewer choices and no answer, must be rejected
	require.False(t, store.Merge(question(1, 21, "", 2)))
	// same shape, no gain, must be rejected
	require.False(t, store.Merge(question(1, 21, "B", 4)))

	kept, ok := store.Get(21)
	require.True(t, ok)
	require.Equal(t, "A", kept.CorrectAnswer)
	require.Len(t, kept.Choices, 4)
}

func TestMergeUpgradesOnGain(t *testing.T) {
	store := newTestStore(t)
	require.True(t, store.Merge(question(1, 21, "", 4)))

	// gains an answer
	require.True(t, store.Merge(question(1, 21, "A", 4)))
	// gains choices
	require.True(t, store.Merge(question(1, 21, "A", 6)))

	kept, _ := store.Get(21)
	require.Len(t, kept.Choices, 6)
}

func TestMergeCorrectMarkedChoiceCountsAsAnswer(t *testing.T) {
	store := newTestStore(t)

	marked := question(1, 21, "", 4)
	marked.Choices[0].Correct = true
	require.True(t, store.Merge(marked))

	// plain answer string is not a gain over a marked choice
	require.False(t, store.Merge(question(1, 21, "B", 4)))
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, testCert)
	require.NoError(t, err)

	store.SetTotalQuestions(120)
	store.Merge(question(1, 30, "C", 4))
	store.Merge(question(1, 21, "A", 4))
	store.Merge(question(2, 5, "B", 4))
	require.NoError(t, store.Save())

	reloaded, err := Open(dir, testCert)
	require.NoError(t, err)
	require.Equal(t, 3, reloaded.Len())
	require.Equal(t, 120, reloaded.TotalQuestions())

	var order []int
	for _, q := range reloaded.Questions() {
		order = append(order, q.QuestionNumber)
	}
	diff := cmp.Diff([]int{5, 21, 30}, order)
	require.Empty(t, diff)
}

func TestOpenSeedsTitleAndDescription(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, testCert)
	require.NoError(t, err)
	store.Merge(question(1, 21, "A", 4))
	require.NoError(t, store.Save())

	dataset, err := LoadDataset(dir, testCert.Name)
	require.NoError(t, err)
	require.Equal(t, testCert.DisplayName, dataset.Title)
	require.Equal(t, testCert.Description, dataset.Description)
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, testCert)
	require.NoError(t, err)
	store.Merge(question(1, 21, "A", 4))
	require.NoError(t, store.Save())

	_, err = os.Stat(store.Path() + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestSetTotalQuestionsOnlyGrows(t *testing.T) {
	store := newTestStore(t)
	store.SetTotalQuestions(120)
	store.SetTotalQuestions(80)
	require.Equal(t, 120, store.TotalQuestions())
}

func TestSnapshots(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, testCert)
	require.NoError(t, err)

	q := question(1, 21, "A", 4)
	store.Merge(q)
	store.Merge(question(1, 22, "B", 4))
	store.Merge(question(2, 45, "C", 4))

	require.NoError(t, store.SaveSnapshot(q))
	snapPath := filepath.Join(dir, "snapshots", testCert.Name, "topic_1_question_21.json")
	raw, err := os.ReadFile(snapPath)
	require.NoError(t, err)
	var decoded examtopics.Question
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, 21, decoded.QuestionNumber)

	require.NoError(t, store.SaveRange(21, 30))
	rangePath := filepath.Join(dir, "snapshots", testCert.Name, "questions_21_30.json")
	raw, err = os.ReadFile(rangePath)
	require.NoError(t, err)
	var batch []examtopics.Question
	require.NoError(t, json.Unmarshal(raw, &batch))
	// question 45 is out of range
	require.Len(t, batch, 2)
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	store.SetTotalQuestions(100)

	answered := question(1, 21, "A", 4)
	answered.Explanation = "because"
	answered.Comments = []examtopics.Comment{{Author: "x", Content: "y"}}
	store.Merge(answered)
	store.Merge(question(1, 22, "", 4))
	store.Merge(question(2, 3, "B", 4))

	stats := store.Stats()
	require.Equal(t, 100, stats.TotalKnown)
	require.Equal(t, 3, stats.Scraped)
	require.Equal(t, 2, stats.WithAnswer)
	require.Equal(t, 1, stats.WithExplanation)
	require.Equal(t, 1, stats.WithComments)
	require.Equal(t, 3, stats.LowestQuestion)
	require.Equal(t, 22, stats.HighestQuestion)
	require.InDelta(t, 3.0, stats.CompletionPercent, 0.001)
	require.InDelta(t, 66.666, stats.AnsweredPercent, 0.01)

	require.Len(t, stats.Topics, 2)
	require.Equal(t, TopicStats{Topic: 1, Questions: 2, Answered: 1}, stats.Topics[0])
	require.Equal(t, TopicStats{Topic: 2, Questions: 1, Answered: 1}, stats.Topics[1])
}
