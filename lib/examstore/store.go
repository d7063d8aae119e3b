package examstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"certifyhub-backend/lib/scrapers/examtopics"
)

// Dataset is the on-disk shape of everything collected for one
// certification.
type Dataset struct {
	Certification  string                `json:"certification"`
	Provider       string                `json:"provider"`
	Title          string                `json:"title,omitempty"`
	Description    string                `json:"description,omitempty"`
	TotalQuestions int                   `json:"total_questions,omitempty"`
	LastUpdated    time.Time             `json:"last_updated"`
	Questions      []examtopics.Question `json:"questions"`
}

// Store owns the dataset file for one certification. All writes funnel
// through it so concurrent scrape workers never race on the file.
// Questions are keyed by question number alone, the site numbers them
// continuously across topics.
type Store struct {
	dir  string
	cert examtopics.CertConfig

	mu      sync.Mutex
	dataset Dataset
	index   map[int]int
}

// Open loads the existing dataset for a certification, or starts an
// empty one when no file exists yet.
func Open(dir string, cert examtopics.CertConfig) (*Store, error) {
	store := &Store{
		dir:  dir,
		cert: cert,
		dataset: Dataset{
			Certification: cert.Name,
			Provider:      cert.Provider,
			Title:         cert.DisplayName,
			Description:   cert.Description,
		},
		index: map[int]int{},
	}

	raw, err := os.ReadFile(store.Path())
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	if err := json.Unmarshal(raw, &store.dataset); err != nil {
		return nil, fmt.Errorf("failed to decode dataset %s: %w", store.Path(), err)
	}
	for i, question := range store.dataset.Questions {
		store.index[question.QuestionNumber] = i
	}
	if store.dataset.Title == "" {
		store.dataset.Title = cert.DisplayName
	}
	if store.dataset.Description == "" {
		store.dataset.Description = cert.Description
	}

	slog.Info("loaded existing dataset",
		"certification", cert.Name,
		"questions", len(store.dataset.Questions))
	return store, nil
}

// Path is the dataset file location.
func (s *Store) Path() string {
	return filepath.Join(s.dir, s.cert.Name+".json")
}

// Len reports how many distinct questions are held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dataset.Questions)
}

// SetTotalQuestions records the advertised size of the question bank.
// The count only ever grows, a page that under-reports is ignored.
func (s *Store) SetTotalQuestions(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if total > s.dataset.TotalQuestions {
		s.dataset.TotalQuestions = total
	}
}

// TotalQuestions returns the advertised bank size, 0 when unknown.
func (s *Store) TotalQuestions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataset.TotalQuestions
}

// Has reports whether a question number is already held.
func (s *Store) Has(number int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[number]
	return ok
}

// Get returns a held question by number.
func (s *Store) Get(number int) (examtopics.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[number]
	if !ok {
		return examtopics.Question{}, false
	}
	return s.dataset.Questions[i], true
}

// Questions returns a copy of every held question sorted by question
// number.
func (s *Store) Questions() []examtopics.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]examtopics.Question{}, s.dataset.Questions...)
	sortQuestions(out)
	return out
}

// Merge folds a scraped question into the dataset. An existing entry
// is only replaced when the incoming one is strictly more complete,
// meaning it gains a correct answer the old one lacked or carries more
// choices. Returns true when the dataset changed.
func (s *Store) Merge(incoming examtopics.Question) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[incoming.QuestionNumber]
	if !ok {
		s.index[incoming.QuestionNumber] = len(s.dataset.Questions)
		s.dataset.Questions = append(s.dataset.Questions, incoming)
		return true
	}

	existing := s.dataset.Questions[i]
	gainsAnswer := incoming.HasCorrectAnswer() && !existing.HasCorrectAnswer()
	gainsChoices := len(incoming.Choices) > len(existing.Choices)
	if !gainsAnswer && !gainsChoices {
		return false
	}

	s.dataset.Questions[i] = incoming
	return true
}

// Save writes the dataset atomically, sorted by question number.
// Called after every successful merge so an interrupted run loses at
// most the in-flight question.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sortQuestions(s.dataset.Questions)
	for i, question := range s.dataset.Questions {
		s.index[question.QuestionNumber] = i
	}
	s.dataset.LastUpdated = time.Now().UTC()

	return writeJSON(s.Path(), s.dataset)
}

// SaveSnapshot writes a standalone copy of one question under the
// snapshots directory, useful for inspecting a single scrape result.
func (s *Store) SaveSnapshot(question examtopics.Question) error {
	path := filepath.Join(
		s.dir, "snapshots", s.cert.Name,
		fmt.Sprintf("topic_%d_question_%d.json", question.TopicNumber, question.QuestionNumber),
	)
	return writeJSON(path, question)
}

// SaveRange writes every held question inside [start, end] to a batch
// file named after the range.
func (s *Store) SaveRange(start, end int) error {
	s.mu.Lock()
	var batch []examtopics.Question
	for _, question := range s.dataset.Questions {
		if question.QuestionNumber >= start && question.QuestionNumber <= end {
			batch = append(batch, question)
		}
	}
	s.mu.Unlock()

	sortQuestions(batch)
	path := filepath.Join(
		s.dir, "snapshots", s.cert.Name,
		fmt.Sprintf("questions_%d_%d.json", start, end),
	)
	return writeJSON(path, batch)
}

func sortQuestions(questions []examtopics.Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].QuestionNumber < questions[j].QuestionNumber
	})
}

func writeJSON(path string, value any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
