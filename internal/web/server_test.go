package web

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/provimport/internal/config"
	"github.com/JonMunkholm/provimport/internal/core"
	"github.com/JonMunkholm/provimport/internal/store/memory"
)

var testNow = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

type stubExtractor struct {
	records []core.ExtractedRecord
}

func (s stubExtractor) Extract(context.Context, *url.URL) ([]core.ExtractedRecord, error) {
	return s.records, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(func(string) string { return "" })
	require.NoError(t, err)
	cfg.Rate.Enabled = false
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, extractor core.Extractor) *Server {
	t.Helper()
	svcCfg := core.ServiceConfig{
		Jobs:          memory.NewJobStore(),
		Providers:     memory.NewProviderStore(),
		Security:      core.DefaultSecurityPolicy(),
		Rules:         core.DefaultRuleConfig(),
		Clock:         core.ClockFunc(func() time.Time { return testNow }),
		DedupeEnabled: true,
		MaxConcurrent: 2,
	}
	if extractor != nil {
		svcCfg.Extractor = extractor
	}
	svc, err := core.NewService(svcCfg)
	require.NoError(t, err)

	s := NewServer(svc, cfg, nil)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

// uploadCSV builds a template CSV from the example row. With partial set,
// a second row with a different NPI and no last name is appended.
func uploadCSV(t *testing.T, partial bool) []byte {
	t.Helper()
	var tmpl bytes.Buffer
	require.NoError(t, core.WriteTemplate(&tmpl))
	rows, err := csv.NewReader(&tmpl).ReadAll()
	require.NoError(t, err)

	if partial {
		bad := append([]string(nil), rows[1]...)
		for i, col := range core.TemplateColumns {
			switch col.Field {
			case core.FieldNPI:
				bad[i] = "1234567893"
			case core.FieldLastName:
				bad[i] = ""
			}
		}
		rows = append(rows, bad)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.WriteAll(rows))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/imports/file", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeJob(t *testing.T, rec *httptest.ResponseRecorder) core.ImportJob {
	t.Helper()
	var job core.ImportJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job), rec.Body.String())
	return job
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig(t), nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Imports.MaxConcurrent)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestTemplateDownload(t *testing.T) {
	s := newTestServer(t, testConfig(t), nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/template", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, core.TemplateHeader(), rows[0])
}

func TestImportFile(t *testing.T) {
	s := newTestServer(t, testConfig(t), nil)

	rec := serve(s, multipartRequest(t, "providers.csv", uploadCSV(t, true)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	job := decodeJob(t, rec)
	assert.Equal(t, core.JobTemplate, job.Type)
	assert.Equal(t, core.JobPartial, job.Status)
	assert.Equal(t, 2, job.TotalRecords)
	assert.Equal(t, 1, job.SuccessCount)
	assert.Equal(t, 1, job.ErrorCount)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/imports/"+job.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, job.ID, decodeJob(t, rec).ID)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/imports/"+job.ID+"/errors.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lastName")
}

func TestImportFileFailures(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		wantCode string
	}{
		{"missing file", "", nil, "FILE003"},
		{"wrong extension", "providers.xlsx", []byte("NPI\n1234567890\n"), "SEC002"},
		{"formula cell", "providers.csv", []byte("NPI,First Name\n=cmd(),Sarah\n"), "SEC001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, testConfig(t), nil)

			rec := serve(s, multipartRequest(t, tt.filename, tt.data))
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

			job := decodeJob(t, rec)
			assert.Equal(t, core.JobFailed, job.Status)
			require.NotEmpty(t, job.Errors)
			assert.Equal(t, tt.wantCode, core.MapError(job.Errors[0]).Code)
		})
	}
}

func TestImportFileTooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.Import.MaxFileSize = 1024
	s := newTestServer(t, cfg, nil)

	data := bytes.Repeat([]byte("a,b\n"), multipartOverhead)
	rec := serve(s, multipartRequest(t, "providers.csv", data))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE001", decodeError(t, rec).Code)
}

func TestImportExtracted(t *testing.T) {
	s := newTestServer(t, testConfig(t), nil)

	body := `{"source":"roster.pdf","records":[{"name":"Sarah A. Johnson, MD","specialty":"Internal Medicine","pgyYear":"PGY-2","confidence":0.92}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/imports/extracted", strings.NewReader(body))
	rec := serve(s, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	job := decodeJob(t, rec)
	assert.Equal(t, core.JobAIMap, job.Type)
	assert.Equal(t, "roster.pdf", job.Source)
	assert.Equal(t, 1, job.TotalRecords)
}

func TestImportURL(t *testing.T) {
	extractor := stubExtractor{records: []core.ExtractedRecord{
		{Name: "Sarah A. Johnson, MD", Specialty: "Internal Medicine", PGYYear: "PGY-2", Confidence: 0.92},
	}}
	s := newTestServer(t, testConfig(t), extractor)

	req := httptest.NewRequest(http.MethodPost, "/api/imports/url", strings.NewReader(`{"url":"https://hospital.example.org/gme/residents"}`))
	rec := serve(s, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, core.JobURL, decodeJob(t, rec).Type)
}

func TestImportBadJSON(t *testing.T) {
	s := newTestServer(t, testConfig(t), nil)

	for _, body := range []string{`{"url":`, `{"url":"a"} {"url":"b"}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/imports/url", strings.NewReader(body))
		rec := serve(s, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "REQ001", decodeError(t, rec).Code, body)
	}
}

func TestGetJobNotFound(t *testing.T) {
	s := newTestServer(t, testConfig(t), nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/imports/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "IMP002", decodeError(t, rec).Code)
}

func TestListJobs(t *testing.T) {
	s := newTestServer(t, testConfig(t), nil)
	for range 3 {
		rec := serve(s, multipartRequest(t, "providers.csv", uploadCSV(t, false)))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/imports?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp jobsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Jobs, 2)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/imports?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommitAndCheckDuplicates(t *testing.T) {
	s := newTestServer(t, testConfig(t), nil)

	rec := serve(s, multipartRequest(t, "providers.csv", uploadCSV(t, true)))
	require.Equal(t, http.StatusCreated, rec.Code)
	job := decodeJob(t, rec)

	rec = serve(s, httptest.NewRequest(http.MethodPost, "/api/imports/"+job.ID+"/commit", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var commit commitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &commit))
	assert.Equal(t, 1, commit.Committed)

	rec = serve(s, httptest.NewRequest(http.MethodPost, "/api/imports/"+job.ID+"/commit", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "IMP003", decodeError(t, rec).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/duplicates/check",
		strings.NewReader(`{"npi":"1234567890","firstName":"Sarah","lastName":"Johnson"}`))
	rec = serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var dups duplicatesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dups))
	require.NotEmpty(t, dups.Candidates)
	assert.Equal(t, core.MatchNPI, dups.Candidates[0].MatchType)
}

func TestCommitFailedJob(t *testing.T) {
	s := newTestServer(t, testConfig(t), nil)

	rec := serve(s, multipartRequest(t, "", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	job := decodeJob(t, rec)

	rec = serve(s, httptest.NewRequest(http.MethodPost, "/api/imports/"+job.ID+"/commit", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "IMP004", decodeError(t, rec).Code)
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"k1"}
	s := newTestServer(t, cfg, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/imports", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := multipartRequest(t, "providers.csv", uploadCSV(t, false))
	req.Header.Set("X-API-Key", "k1")
	rec = serve(s, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, strings.HasPrefix(decodeJob(t, rec).CreatedBy, "api-key:"))

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "health stays open")
}

func TestImportRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Rate.Enabled = true
	cfg.Rate.ImportLimit = 1
	s := newTestServer(t, cfg, nil)

	rec := serve(s, multipartRequest(t, "providers.csv", uploadCSV(t, false)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(s, multipartRequest(t, "providers.csv", uploadCSV(t, false)))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE001", decodeError(t, rec).Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/imports", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "reads use the general limit")
}

func TestRateLimiterWindow(t *testing.T) {
	now := testNow
	rl := &rateLimiter{visitors: map[string]*visitor{}, rate: 2, window: time.Minute, now: func() time.Time { return now }, done: make(chan struct{})}

	ok1, _ := rl.allow("1.2.3.4")
	ok2, _ := rl.allow("1.2.3.4")
	ok3, wait := rl.allow("1.2.3.4")
	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.False(t, ok3)
	assert.Equal(t, time.Minute, wait)

	other, _ := rl.allow("5.6.7.8")
	assert.True(t, other, "limits are per client")

	now = now.Add(time.Minute + time.Second)
	ok4, _ := rl.allow("1.2.3.4")
	assert.True(t, ok4, "window resets")

	now = now.Add(3 * time.Minute)
	rl.prune()
	assert.Empty(t, rl.visitors)

	rl.stop()
	rl.stop()
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{badRequest("x"), http.StatusBadRequest},
		{core.ErrJobNotFound, http.StatusNotFound},
		{core.ErrJobCommitted, http.StatusConflict},
		{core.ErrJobNotCommittable, http.StatusUnprocessableEntity},
		{core.ErrTooManyImports, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
