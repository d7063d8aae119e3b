package examtopics

import (
	"encoding/json"
	"time"
)

// Choice is a single answer option on a multiple choice question.
type Choice struct {
	Letter  string `json:"letter"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Comment is a single discussion reply, kept because voters often
// explain the answer better than the official explanation does.
type Comment struct {
	Author         string `json:"author"`
	Content        string `json:"content"`
	Upvotes        int    `json:"upvotes"`
	SelectedAnswer string `json:"selected_answer,omitempty"`
	HighlyVoted    bool   `json:"highly_voted"`
}

// Question is everything extractable for one exam question. The
// question text keeps its inner markup since questions embed code
// blocks and images. Community votes are passed through as the raw
// payload the site embeds, not reinterpreted.
type Question struct {
	QuestionNumber int             `json:"question_number"`
	TopicNumber    int             `json:"topic_number"`
	QuestionText   string          `json:"question_text"`
	Choices        []Choice        `json:"choices"`
	CorrectAnswer  string          `json:"correct_answer"`
	Explanation    string          `json:"explanation,omitempty"`
	CommunityVotes json.RawMessage `json:"community_votes,omitempty"`
	Comments       []Comment       `json:"comments,omitempty"`
	// which paginated view produced the record, 0 when found via search
	ViewNumber int `json:"view_number,omitempty"`
	// site-assigned card identifier
	QuestionID string    `json:"question_id,omitempty"`
	URL        string    `json:"url"`
	ScrapedAt  time.Time `json:"scraped_at"`
}

// HasCorrectAnswer reports whether any answer signal was captured.
func (q Question) HasCorrectAnswer() bool {
	if q.CorrectAnswer != "" {
		return true
	}
	for _, choice := range q.Choices {
		if choice.Correct {
			return true
		}
	}
	return false
}
