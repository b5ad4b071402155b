package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhavmahiwal/medverify/internal/model"
)

type fakeVerifier struct {
	result *model.CredibilityResult
	input  string
}

func (f *fakeVerifier) Run(_ context.Context, rawInput string) *model.CredibilityResult {
	f.input = rawInput
	return f.result
}

type fakeStore struct {
	records []model.ClaimRecord
	listErr error
}

func (f *fakeStore) Save(context.Context, model.ClaimRecord) error { return nil }
func (f *fakeStore) ListAll(_ context.Context, limit int) ([]model.ClaimRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit > 0 && limit < len(f.records) {
		return f.records[:limit], nil
	}
	return f.records, nil
}
func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }

func sampleResult() *model.CredibilityResult {
	return &model.CredibilityResult{
		Score:           76,
		Label:           model.VerdictContradicted,
		CitedSource:     "WHO",
		Rationale:       "Refuted by current guidance.",
		SourceOrigin:    model.OriginUserText,
		ClaimsProcessed: 1,
		ExtractedTerms:  []string{"garlic", "cancer"},
		DiagnosticNote:  "Full pipeline executed with stability fallbacks.",
	}
}

func TestCheckClaim_OK(t *testing.T) {
	v := &fakeVerifier{result: sampleResult()}
	srv := httptest.NewServer(NewRouter(v, &fakeStore{}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/medverify/check", "application/json",
		strings.NewReader(`{"input":"Garlic cures cancer."}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Garlic cures cancer.", v.input)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.EqualValues(t, 76, body["credibility_score"])
	assert.Equal(t, "Contradicted", body["llm_judgment"])
	assert.Equal(t, "WHO", body["trusted_reference"])
	assert.EqualValues(t, 1, body["claims_processed"])
}

func TestCheckClaim_EmptyInput(t *testing.T) {
	srv := httptest.NewServer(NewRouter(&fakeVerifier{result: sampleResult()}, &fakeStore{}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/medverify/check", "application/json",
		strings.NewReader(`{"input":""}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errResp
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Error, "No input provided")
}

func TestCheckClaim_BadJSON(t *testing.T) {
	srv := httptest.NewServer(NewRouter(&fakeVerifier{result: sampleResult()}, &fakeStore{}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/medverify/check", "application/json",
		strings.NewReader(`{not json`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheckClaim_NilResult(t *testing.T) {
	srv := httptest.NewServer(NewRouter(&fakeVerifier{result: nil}, &fakeStore{}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/medverify/check", "application/json",
		strings.NewReader(`{"input":"Garlic cures cancer."}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHistory(t *testing.T) {
	st := &fakeStore{records: []model.ClaimRecord{
		{
			Timestamp:    time.Now().UTC(),
			SourceOrigin: "newest claim",
			Score:        80,
			Label:        model.VerdictSupported,
		},
		{
			Timestamp:    time.Now().UTC().Add(-time.Hour),
			SourceOrigin: "older claim",
			Score:        20,
			Label:        model.VerdictContradicted,
		},
	}}
	srv := httptest.NewServer(NewRouter(&fakeVerifier{result: sampleResult()}, st))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/medverify/history")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var records []model.ClaimRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	require.Len(t, records, 2)
	assert.Equal(t, "newest claim", records[0].SourceOrigin)
}

func TestHistory_Limit(t *testing.T) {
	st := &fakeStore{records: []model.ClaimRecord{
		{SourceOrigin: "a"}, {SourceOrigin: "b"}, {SourceOrigin: "c"},
	}}
	srv := httptest.NewServer(NewRouter(&fakeVerifier{result: sampleResult()}, st))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/medverify/history?limit=2")
	require.NoError(t, err)
	defer resp.Body.Close()

	var records []model.ClaimRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	assert.Len(t, records, 2)
}

func TestHistory_BadLimit(t *testing.T) {
	srv := httptest.NewServer(NewRouter(&fakeVerifier{result: sampleResult()}, &fakeStore{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/medverify/history?limit=-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/medverify/history?limit=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHistory_StoreError(t *testing.T) {
	st := &fakeStore{listErr: assert.AnError}
	srv := httptest.NewServer(NewRouter(&fakeVerifier{result: sampleResult()}, st))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/medverify/history")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body errResp
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Error, "history")
}

func TestHistory_EmptyIsArray(t *testing.T) {
	srv := httptest.NewServer(NewRouter(&fakeVerifier{result: sampleResult()}, &fakeStore{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/medverify/history")
	require.NoError(t, err)
	defer resp.Body.Close()

	raw := make([]byte, 16)
	n, _ := resp.Body.Read(raw)
	assert.Equal(t, "[]", strings.TrimSpace(string(raw[:n])))
}

func TestHistory_NilStore(t *testing.T) {
	srv := httptest.NewServer(NewRouter(&fakeVerifier{result: sampleResult()}, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/medverify/history")
	require.NoError(t, err)
	defer resp.Body.Close()

	var records []model.ClaimRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	assert.Empty(t, records)
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(NewRouter(&fakeVerifier{result: sampleResult()}, &fakeStore{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestCORSPreflight(t *testing.T) {
	srv := httptest.NewServer(NewRouter(&fakeVerifier{result: sampleResult()}, &fakeStore{}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/medverify/check", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://gallery.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
