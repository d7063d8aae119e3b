package certserver

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"certifyhub-backend/lib/examstore"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/certserver")

// Service serves the scraped datasets read-only over HTTP. It reads
// the data directory on every request so a concurrently running
// scraper is picked up without restarts.
type Service struct {
	dir string
}

func NewService(dir string) Service {
	return Service{dir: dir}
}

func (s Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
	}))

	r.Get("/", s.handleIndex)
	r.Get("/api/exams", s.handleListExams)
	r.Get("/exam/{certification}", s.handleExam)
	return r
}

type examSummary struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Provider       string    `json:"provider"`
	QuestionCount  int       `json:"questionCount"`
	WithAnswer     int       `json:"withAnswer"`
	TotalQuestions int       `json:"totalQuestions,omitempty"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

func summarize(dataset examstore.Dataset) examSummary {
	summary := examSummary{
		ID:             dataset.Certification,
		Title:          dataset.Title,
		Description:    dataset.Description,
		Provider:       dataset.Provider,
		QuestionCount:  len(dataset.Questions),
		TotalQuestions: dataset.TotalQuestions,
		LastUpdated:    dataset.LastUpdated,
	}
	if summary.Title == "" {
		summary.Title = dataset.Certification
	}
	for _, question := range dataset.Questions {
		if question.HasCorrectAnswer() {
			summary.WithAnswer++
		}
	}
	return summary
}

func (s Service) handleListExams(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "ListExams")
	defer span.End()

	datasets, err := examstore.LoadAll(s.dir)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to list datasets", "err", err)
		http.Error(w, "failed to list datasets", http.StatusInternalServerError)
		return
	}

	summaries := make([]examSummary, 0, len(datasets))
	for _, dataset := range datasets {
		summaries = append(summaries, summarize(dataset))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summaries); err != nil {
		slog.Error("failed to encode exam list", "err", err)
	}
}

func (s Service) handleIndex(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "Index")
	defer span.End()

	datasets, err := examstore.LoadAll(s.dir)
	if err != nil {
		span.RecordError(err)
		http.Error(w, "failed to list datasets", http.StatusInternalServerError)
		return
	}

	summaries := make([]examSummary, 0, len(datasets))
	for _, dataset := range datasets {
		summaries = append(summaries, summarize(dataset))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, summaries); err != nil {
		slog.Error("failed to render index", "err", err)
	}
}

func (s Service) handleExam(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "Exam")
	defer span.End()

	certification := chi.URLParam(r, "certification")
	dataset, err := examstore.LoadDataset(s.dir, certification)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	// the full dataset rides along inline so the page works offline
	// and scripts can consume it without a second request
	payload, err := json.Marshal(dataset)
	if err != nil {
		span.RecordError(err)
		http.Error(w, "failed to encode dataset", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := examPage{Dataset: dataset, Payload: template.JS(payload)}
	if err := examTemplate.Execute(w, page); err != nil {
		slog.Error("failed to render exam", "certification", certification, "err", err)
	}
}

type examPage struct {
	Dataset examstore.Dataset
	Payload template.JS
}

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html>
<head><title>CertifyHub</title></head>
<body>
<h1>Scraped exams</h1>
{{if not .}}<p>No datasets yet.</p>{{end}}
<ul>
{{range .}}
	<li>
		<a href="/exam/{{.ID}}">{{.Title}}</a>
		({{.Provider}}) &ndash; {{.QuestionCount}} questions, {{.WithAnswer}} answered
		{{if .Description}}<br><small>{{.Description}}</small>{{end}}
	</li>
{{end}}
</ul>
</body>
</html>
`))

var examTemplate = template.Must(template.New("exam").Parse(`<!doctype html>
<html>
<head><title>{{with .Dataset}}{{if .Title}}{{.Title}}{{else}}{{.Certification}}{{end}}{{end}}</title></head>
<body>
{{with .Dataset}}
<h1>{{if .Title}}{{.Title}}{{else}}{{.Certification}}{{end}}</h1>
{{if .Description}}<p>{{.Description}}</p>{{end}}
<p>{{len .Questions}} questions{{if .TotalQuestions}} of {{.TotalQuestions}}{{end}}</p>
{{range .Questions}}
<section>
	<h2>Topic {{.TopicNumber}} &middot; Question {{.QuestionNumber}}</h2>
	<div>{{.QuestionText}}</div>
	<ol type="A">
	{{range .Choices}}
		<li>{{.Text}}{{if .Correct}} &#10003;{{end}}</li>
	{{end}}
	</ol>
	{{if .CorrectAnswer}}<p><strong>Answer:</strong> {{.CorrectAnswer}}</p>{{end}}
	{{if .Explanation}}<p>{{.Explanation}}</p>{{end}}
</section>
{{end}}
{{end}}
<script id="exam-data" type="application/json">{{.Payload}}</script>
</body>
</html>
`))
