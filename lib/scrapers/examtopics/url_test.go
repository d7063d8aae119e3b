package examtopics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var terraformCert = CertConfig{
	Name:     "terraform-associate",
	Provider: "hashicorp",
	ExamSlug: "terraform-associate",
}

func TestMatchDiscussionURL(t *testing.T) {
	for _, tc := range []struct {
		name string
		url  string
		want Match
	}{
		{
			name: "exact topic and question",
			url:  "https://www.examtopics.com/discussions/hashicorp/view/5540-exam-terraform-associate-topic-1-question-47-discussion/",
			want: MatchExact,
		},
		{
			name: "non canonical slug naming both numbers",
			url:  "https://www.examtopics.com/discussions/hashicorp/view/9-terraform-associate-topic-1-old-question-47-thread/",
			want: MatchLoose,
		},
		{
			name: "question number alone is not enough",
			url:  "https://www.examtopics.com/discussions/hashicorp/view/9-terraform-associate-question-47-thread/",
			want: MatchNone,
		},
		{
			name: "wrong question number",
			url:  "https://www.examtopics.com/discussions/hashicorp/view/5540-exam-terraform-associate-topic-1-question-48-discussion/",
			want: MatchNone,
		},
		{
			name: "wrong topic number",
			url:  "https://www.examtopics.com/discussions/hashicorp/view/5540-exam-terraform-associate-topic-2-question-47-discussion/",
			want: MatchNone,
		},
		{
			name: "not a discussion page",
			url:  "https://www.examtopics.com/exams/hashicorp/terraform-associate/view/1/",
			want: MatchNone,
		},
		{
			name: "unrelated site",
			url:  "https://www.reddit.com/r/Terraform/topic-1-question-47",
			want: MatchNone,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, MatchDiscussionURL(tc.url, terraformCert, 1, 47))
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	query := BuildSearchQuery(terraformCert, 1, 47)
	require.Equal(t,
		"examtopics hashicorp terraform associate topic 1 question 47 discussion",
		query)
}

func TestDirectURLGuess(t *testing.T) {
	url := DirectURLGuess(terraformCert, 1, 47)
	require.Equal(t,
		"https://www.examtopics.com/discussions/hashicorp/view/1-exam-terraform-associate-topic-1-question-47-discussion/",
		url)
}

func TestParseDiscussionURL(t *testing.T) {
	topic, question, ok := ParseDiscussionURL(
		"https://www.examtopics.com/discussions/hashicorp/view/5540-exam-terraform-associate-topic-3-question-12-discussion/",
		terraformCert)
	require.True(t, ok)
	require.Equal(t, 3, topic)
	require.Equal(t, 12, question)

	_, _, ok = ParseDiscussionURL(
		"https://www.examtopics.com/discussions/hashicorp/view/9-terraform-associate-question-12-thread/",
		terraformCert)
	require.False(t, ok)
}

func TestURLTemplateOverrides(t *testing.T) {
	cfg := terraformCert
	cfg.ViewURLTemplate = "https://mirror.example.com/{provider}/{exam}/p/{page}"
	cfg.DiscussionURLTemplate = "https://mirror.example.com/{provider}/{exam}/t{topic}q{question}"
	cfg.DiscussionURLPattern = `t(\d+)q(\d+)`

	require.Equal(t,
		"https://mirror.example.com/hashicorp/terraform-associate/p/4",
		ViewURL(cfg, 4))

	guess := DirectURLGuess(cfg, 1, 47)
	require.Equal(t, "https://mirror.example.com/hashicorp/terraform-associate/t1q47", guess)

	topic, question, ok := ParseDiscussionURL(guess, cfg)
	require.True(t, ok)
	require.Equal(t, 1, topic)
	require.Equal(t, 47, question)
}

func TestViewURLs(t *testing.T) {
	require.Equal(t,
		"https://www.examtopics.com/exams/hashicorp/terraform-associate/view/8/",
		ViewURL(terraformCert, 8))
	require.Equal(t,
		"https://www.examtopics.com/exams/hashicorp/terraform-associate/",
		ExamURL(terraformCert))
}

func TestLookupCertBuiltins(t *testing.T) {
	cfg, err := LookupCert("az-900")
	require.NoError(t, err)
	require.Equal(t, "microsoft", cfg.Provider)

	_, err = LookupCert("not-a-real-cert")
	require.Error(t, err)
}
