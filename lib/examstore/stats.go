package examstore

import "sort"

// TopicStats summarizes coverage within a single topic.
type TopicStats struct {
	Topic     int
	Questions int
	Answered  int
}

// Stats summarizes dataset completeness.
type Stats struct {
	Certification   string
	TotalKnown      int
	Scraped         int
	WithAnswer      int
	WithExplanation int
	WithComments    int
	// scraped share of the advertised bank, 0 when the bank size is unknown
	CompletionPercent float64
	// answered share of what was scraped
	AnsweredPercent float64
	Topics          []TopicStats
	LowestQuestion  int
	HighestQuestion int
}

// Stats computes coverage numbers over the held questions.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		Certification: s.dataset.Certification,
		TotalKnown:    s.dataset.TotalQuestions,
		Scraped:       len(s.dataset.Questions),
	}

	byTopic := map[int]*TopicStats{}
	for _, question := range s.dataset.Questions {
		if question.HasCorrectAnswer() {
			stats.WithAnswer++
		}
		if question.Explanation != "" {
			stats.WithExplanation++
		}
		if len(question.Comments) > 0 {
			stats.WithComments++
		}

		topic := byTopic[question.TopicNumber]
		if topic == nil {
			topic = &TopicStats{Topic: question.TopicNumber}
			byTopic[question.TopicNumber] = topic
		}
		topic.Questions++
		if question.HasCorrectAnswer() {
			topic.Answered++
		}

		if stats.LowestQuestion == 0 || question.QuestionNumber < stats.LowestQuestion {
			stats.LowestQuestion = question.QuestionNumber
		}
		if question.QuestionNumber > stats.HighestQuestion {
			stats.HighestQuestion = question.QuestionNumber
		}
	}

	if stats.TotalKnown > 0 {
		stats.CompletionPercent = 100 * float64(stats.Scraped) / float64(stats.TotalKnown)
	}
	if stats.Scraped > 0 {
		stats.AnsweredPercent = 100 * float64(stats.WithAnswer) / float64(stats.Scraped)
	}

	for _, topic := range byTopic {
		stats.Topics = append(stats.Topics, *topic)
	}
	sort.Slice(stats.Topics, func(i, j int) bool {
		return stats.Topics[i].Topic < stats.Topics[j].Topic
	})

	return stats
}
