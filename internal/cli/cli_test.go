package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"call-insights-go/internal/dataset"
)

type fakeAPI struct {
	mu         sync.Mutex
	registered map[string]bool
	campaigns  []map[string]string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{registered: map[string]bool{}}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /campaigns", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.campaigns = append(f.campaigns, body)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "c1", "name": body["name"], "campaign_type": body["campaign_type"]})
	})
	mux.HandleFunc("POST /campaigns/{id}/audios", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "c1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"campaign not found"}`))
			return
		}
		var body RegisterAudio
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.FileName == "bad.txt" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad request","details":["fileName"]}`))
			return
		}
		f.mu.Lock()
		seen := f.registered[body.FileName]
		f.registered[body.FileName] = true
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]bool{"already_started": seen})
	})
	mux.HandleFunc("GET /campaigns/{id}/export", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("format=" + r.URL.Query().Get("format") + ";table=" + r.URL.Query().Get("table")))
	})
	mux.HandleFunc("GET /campaigns/{id}/audios/{audio}/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"audio_id": r.PathValue("audio"), "stage": "Complete"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func run(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--api", srv.URL}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestImport(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.registered["old.wav"] = true

	m := &dataset.Manifest{
		Entries: []dataset.Entry{
			{Row: 2, FileName: "a.wav", AudioURL: "https://x/a.wav", DurationSeconds: 12},
			{Row: 3, FileName: "b.mp3", AudioURL: "https://x/b.mp3"},
			{Row: 4, FileName: "old.wav", AudioURL: "https://x/old.wav"},
			{Row: 5, FileName: "bad.txt", AudioURL: "https://x/bad.txt"},
		},
		Skipped: []dataset.Skipped{{Row: 6, Reason: "missing audio url"}},
	}

	res := Import(context.Background(), NewClient(srv.URL, time.Second), "c1", m, 2)
	assert.Equal(t, 2, res.Registered)
	assert.Equal(t, 1, res.AlreadyStarted)
	assert.Len(t, res.Skipped, 1)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 5, res.Failed[0].Row)
	assert.Contains(t, res.Failed[0].Reason, "400")
}

func TestClientAPIError(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := NewClient(srv.URL+"/", time.Second)

	err := c.RegisterAudio(context.Background(), "nope", RegisterAudio{FileName: "a.wav"}, nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "campaign not found", apiErr.Message)

	err = c.RegisterAudio(context.Background(), "c1", RegisterAudio{FileName: "bad.txt"}, nil)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, []string{"fileName"}, apiErr.Details)
	assert.Contains(t, err.Error(), "(fileName)")
}

func TestCampaignsCreateCommand(t *testing.T) {
	f, srv := newFakeAPI(t)

	out, err := run(t, srv, "campaigns", "create", "--name", "Hiver", "--type", "survey")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "c1"`)
	require.Len(t, f.campaigns, 1)
	assert.Equal(t, "Post Call Survey", f.campaigns[0]["campaign_type"])

	_, err = run(t, srv, "campaigns", "create", "--name", "x", "--type", "outbound")
	assert.Error(t, err)

	_, err = run(t, srv, "campaigns", "create")
	assert.EqualError(t, err, "--name is required")
}

func TestStatusAndExportCommands(t *testing.T) {
	_, srv := newFakeAPI(t)

	out, err := run(t, srv, "status", "c1", "a.wav")
	require.NoError(t, err)
	assert.Contains(t, out, `"stage": "Complete"`)

	out, err = run(t, srv, "export", "c1", "--format", "xlsx", "--table", "summary")
	require.NoError(t, err)
	assert.Equal(t, "format=xlsx;table=summary", out)
}

func TestCampaignTypeFlag(t *testing.T) {
	for in, want := range map[string]string{
		"entry":            "Entry Call",
		"Entry Call":       "Entry Call",
		"survey":           "Post Call Survey",
		"Post Call Survey": "Post Call Survey",
	} {
		got, err := campaignTypeFlag(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := campaignTypeFlag("")
	assert.Error(t, err)
}
