package certserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"certifyhub-backend/lib/examstore"
	"certifyhub-backend/lib/scrapers/examtopics"
	"certifyhub-backend/lib/testutil"

	"github.com/stretchr/testify/require"
)

func seedDataset(t *testing.T, dir string) {
	t.Helper()

	cert := examtopics.CertConfig{
		Name:        "az-900",
		Provider:    "microsoft",
		ExamSlug:    "az-900",
		DisplayName: "Microsoft Azure Fundamentals (AZ-900)",
		Description: "Entry level Azure cloud concepts and services.",
	}
	store, err := examstore.Open(dir, cert)
	require.NoError(t, err)

	store.SetTotalQuestions(40)
	store.Merge(examtopics.Question{
		TopicNumber:    1,
		QuestionNumber: 1,
		QuestionText:   "What is an availability zone?",
		CorrectAnswer:  "B",
		Choices: []examtopics.Choice{
			{Letter: "A", Text: "a region"},
			{Letter: "B", Text: "an isolated datacenter location", Correct: true},
		},
	})
	store.Merge(examtopics.Question{
		TopicNumber:    1,
		QuestionNumber: 2,
		QuestionText:   "Unanswered question",
	})
	require.NoError(t, store.Save())
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := testutil.Setup(t, "certserver")
	seedDataset(t, dir)
	server := httptest.NewServer(NewService(dir).Router())
	t.Cleanup(server.Close)
	return server
}

func TestListExams(t *testing.T) {
	server := newTestServer(t)

	res, err := http.Get(server.URL + "/api/exams")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "application/json", res.Header.Get("Content-Type"))

	var summaries []examSummary
	require.NoError(t, json.NewDecoder(res.Body).Decode(&summaries))
	require.Len(t, summaries, 1)
	require.Equal(t, "az-900", summaries[0].ID)
	require.Equal(t, "Microsoft Azure Fundamentals (AZ-900)", summaries[0].Title)
	require.Equal(t, "Entry level Azure cloud concepts and services.", summaries[0].Description)
	require.Equal(t, "microsoft", summaries[0].Provider)
	require.Equal(t, 40, summaries[0].TotalQuestions)
	require.Equal(t, 2, summaries[0].QuestionCount)
	require.Equal(t, 1, summaries[0].WithAnswer)
}

func TestListExamsEmptyDir(t *testing.T) {
	server := httptest.NewServer(NewService(t.TempDir()).Router())
	defer server.Close()

	res, err := http.Get(server.URL + "/api/exams")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var summaries []examSummary
	require.NoError(t, json.NewDecoder(res.Body).Decode(&summaries))
	require.Empty(t, summaries)
}

func TestIndexPage(t *testing.T) {
	server := newTestServer(t)

	res, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, res.Header.Get("Content-Type"), "text/html")

	body := readAll(t, res)
	require.Contains(t, body, "/exam/az-900")
	require.Contains(t, body, "Microsoft Azure Fundamentals (AZ-900)")
}

func TestExamPage(t *testing.T) {
	server := newTestServer(t)

	res, err := http.Get(server.URL + "/exam/az-900")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	body := readAll(t, res)
	require.Contains(t, body, "What is an availability zone?")
	require.Contains(t, body, "an isolated datacenter location")
	require.Contains(t, body, "Microsoft Azure Fundamentals (AZ-900)")
}

func TestExamPageEmbedsDataset(t *testing.T) {
	server := newTestServer(t)

	res, err := http.Get(server.URL + "/exam/az-900")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	body := readAll(t, res)
	start := strings.Index(body, `<script id="exam-data" type="application/json">`)
	require.GreaterOrEqual(t, start, 0)
	rest := body[start+len(`<script id="exam-data" type="application/json">`):]
	end := strings.Index(rest, "</script>")
	require.GreaterOrEqual(t, end, 0)

	var dataset examstore.Dataset
	require.NoError(t, json.Unmarshal([]byte(rest[:end]), &dataset))
	require.Equal(t, "az-900", dataset.Certification)
	require.Len(t, dataset.Questions, 2)
	require.Equal(t, "B", dataset.Questions[0].CorrectAnswer)
}

func TestExamPageUnknown(t *testing.T) {
	server := newTestServer(t)

	res, err := http.Get(server.URL + "/exam/not-a-cert")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	server := newTestServer(t)

	res, err := http.Get(server.URL + "/definitely/not/here")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func readAll(t *testing.T, res *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(body)
}
