package httpapi

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"call-insights-go/internal/aggregator"
	"call-insights-go/internal/config"
	"call-insights-go/internal/engine"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/oracle"
	"call-insights-go/internal/pipeline"
	"call-insights-go/internal/processor"
	"call-insights-go/internal/report"
	"call-insights-go/internal/store"
	"call-insights-go/internal/transcription"
	"call-insights-go/internal/types"
)

type testAPI struct {
	handler http.Handler
	store   *store.Memory
	eng     *engine.Local
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := logger.Discard()
	s := store.NewMemory()
	o := &oracle.Mock{Rules: append(processor.MockRules(), aggregator.MockRules()...)}

	eng := engine.NewLocal(log)
	coord := pipeline.NewCoordinator(s, eng, log, pipeline.Options{})
	wf := pipeline.NewWorkflow(coord, transcription.Mock{Transcript: "allo"}, processor.NewSentiment(o), processor.NewAnalyzer(o, 2), log)
	eng.Register(wf.Run)
	t.Cleanup(func() { _ = eng.Close(context.Background()) })

	agg := aggregator.New(o, config.AggregationConfig{
		OracleTimeout:   time.Second,
		TopicMinLabels:  5,
		TopicCap:        10,
		ImprovementCap:  5,
		AgentActionCap:  10,
		YesTokens:       []string{"oui", "yes"},
		PartialTokens:   []string{"partiellement", "partially"},
		ExtractParallel: 2,
	}, log)

	return &testAPI{handler: New(s, coord, agg, log).Handler(), store: s, eng: eng}
}

func (a *testAPI) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) createCampaign(t *testing.T, ct types.CampaignType) types.Campaign {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/campaigns", map[string]string{
		"name":          "Hiver",
		"campaign_type": string(ct),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c types.Campaign
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	return c
}

func (a *testAPI) registerAndWait(t *testing.T, campaignID, file string) pipeline.TriggerResult {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/campaigns/"+campaignID+"/audios", map[string]any{
		"fileName": file,
		"duration": 42,
		"audioUrl": "https://cdn.example.com/" + file,
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var res pipeline.TriggerResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotNil(t, res.Unit)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.eng.Wait(ctx, res.Unit.ExecutionRef))
	return res
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateCampaignValidation(t *testing.T) {
	a := newTestAPI(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"missing name", map[string]string{"campaign_type": "Entry Call"}, http.StatusBadRequest},
		{"unknown type", map[string]string{"name": "x", "campaign_type": "Outbound"}, http.StatusBadRequest},
		{"bad date", map[string]string{"name": "x", "campaign_type": "Entry Call", "date": "12/01/2025"}, http.StatusBadRequest},
		{"malformed json", "{", http.StatusBadRequest},
		{"ok", map[string]string{"name": "x", "campaign_type": "Entry Call", "date": "2025-12-01"}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, http.MethodPost, "/campaigns", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestCampaignLookup(t *testing.T) {
	a := newTestAPI(t)
	c := a.createCampaign(t, types.CampaignEntryCall)

	rec := a.do(t, http.MethodGet, "/campaigns/"+c.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got types.Campaign
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Hiver", got.Name)
	assert.Equal(t, types.CampaignEntryCall, got.Type)

	rec = a.do(t, http.MethodGet, "/campaigns", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []types.Campaign
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = a.do(t, http.MethodGet, "/campaigns/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterAudio(t *testing.T) {
	a := newTestAPI(t)
	c := a.createCampaign(t, types.CampaignEntryCall)

	res := a.registerAndWait(t, c.ID, "call-1.wav")
	assert.Equal(t, "call-1.wav", res.Unit.AudioID)

	t.Run("second registration reuses the execution", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/campaigns/"+c.ID+"/audios", map[string]any{
			"fileName": "call-1.wav",
			"audioUrl": "https://cdn.example.com/call-1.wav",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var again pipeline.TriggerResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &again))
		assert.True(t, again.AlreadyStarted)
		assert.Equal(t, res.Unit.ExecutionRef, again.Unit.ExecutionRef)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/campaigns/"+c.ID+"/audios", map[string]any{
			"fileName": "notes.txt",
			"audioUrl": "https://cdn.example.com/notes.txt",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid url", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/campaigns/"+c.ID+"/audios", map[string]any{
			"fileName": "b.wav",
			"audioUrl": "not a url",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown campaign", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/campaigns/nope/audios", map[string]any{
			"fileName": "b.wav",
			"audioUrl": "https://cdn.example.com/b.wav",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAudioStatusAndDetail(t *testing.T) {
	a := newTestAPI(t)
	c := a.createCampaign(t, types.CampaignEntryCall)
	a.registerAndWait(t, c.ID, "a.wav")

	rec := a.do(t, http.MethodGet, "/campaigns/"+c.ID+"/audios/a.wav/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st pipeline.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, types.StageComplete, st.Stage)

	rec = a.do(t, http.MethodGet, "/campaigns/"+c.ID+"/audios/later.wav/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, types.StagePending, st.Stage)

	rec = a.do(t, http.MethodGet, "/campaigns/"+c.ID+"/audios/a.wav", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var us pipeline.UnitStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &us))
	require.NotNil(t, us.Unit.Analysis)
	assert.Equal(t, "allo", us.Unit.Analysis.Transcript)

	rec = a.do(t, http.MethodGet, "/campaigns/"+c.ID+"/audios/missing.wav", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodGet, "/campaigns/"+c.ID+"/audios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []pipeline.UnitStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = a.do(t, http.MethodGet, "/campaigns/missing/audios", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAbortAudio(t *testing.T) {
	a := newTestAPI(t)
	c := a.createCampaign(t, types.CampaignEntryCall)

	rec := a.do(t, http.MethodPost, "/campaigns/"+c.ID+"/audios/none.wav/abort", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err := a.store.InsertAudioUnit(context.Background(), &types.AudioUnit{
		CampaignID: c.ID,
		AudioID:    "idle.wav",
		Stage:      types.StageRegistered,
	})
	require.NoError(t, err)
	rec = a.do(t, http.MethodPost, "/campaigns/"+c.ID+"/audios/idle.wav/abort", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	a.registerAndWait(t, c.ID, "done.wav")
	rec = a.do(t, http.MethodPost, "/campaigns/"+c.ID+"/audios/done.wav/abort", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestCampaignReport(t *testing.T) {
	a := newTestAPI(t)
	c := a.createCampaign(t, types.CampaignEntryCall)

	rec := a.do(t, http.MethodGet, "/campaigns/"+c.ID+"/report", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "no completed unit yet")

	a.registerAndWait(t, c.ID, "a.wav")
	a.registerAndWait(t, c.ID, "b.wav")

	rec = a.do(t, http.MethodGet, "/campaigns/"+c.ID+"/report", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rep types.KPIReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, 2, rep.TotalCalls)
	require.NotNil(t, rep.EntryCall)
	assert.Nil(t, rep.Survey)
	assert.NotEmpty(t, rep.Highlights)

	rec = a.do(t, http.MethodGet, "/campaigns/missing/report", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCampaignExport(t *testing.T) {
	a := newTestAPI(t)
	c := a.createCampaign(t, types.CampaignEntryCall)
	a.registerAndWait(t, c.ID, "a.wav")

	t.Run("csv calls", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/campaigns/"+c.ID+"/export", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), c.ID+"-calls.csv")

		body := strings.TrimPrefix(rec.Body.String(), "\uFEFF")
		r := csv.NewReader(strings.NewReader(body))
		r.Comma = report.Separator
		rows, err := r.ReadAll()
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("xlsx workbook", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/campaigns/"+c.ID+"/export?format=xlsx", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		defer f.Close()
		assert.Len(t, f.GetSheetList(), 2)
	})

	t.Run("bad parameters", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/campaigns/"+c.ID+"/export?format=pdf", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rec = a.do(t, http.MethodGet, "/campaigns/"+c.ID+"/export?table=agents", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestParseObjectKey(t *testing.T) {
	tests := []struct {
		key      string
		campaign string
		file     string
		ok       bool
	}{
		{"c1/audio/a.wav", "c1", "a.wav", true},
		{"c1/audio/sub/a.wav", "c1", "a.wav", true},
		{"c1/reports/a.csv", "", "", false},
		{"/audio/a.wav", "", "", false},
		{"x/c1/audio/a.wav", "", "", false},
		{"c1/audio/", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			campaign, file, ok := parseObjectKey(tt.key)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.campaign, campaign)
			assert.Equal(t, tt.file, file)
		})
	}
}

func TestStorageEvents(t *testing.T) {
	a := newTestAPI(t)
	c := a.createCampaign(t, types.CampaignEntryCall)

	notification := `{"Records":[` +
		`{"awsRegion":"eu-west-3","s3":{"bucket":{"name":"calls"},"object":{"key":"` + c.ID + `/audio/appel+du+lundi.wav"}}},` +
		`{"s3":{"bucket":{"name":"calls"},"object":{"key":"` + c.ID + `/exports/summary.csv"}}},` +
		`{"s3":{"bucket":{"name":"calls"},"object":{"key":"` + c.ID + `/audio/readme.txt"}}}]}`

	t.Run("bare notification", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/events/storage", notification)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp eventsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Processed)
		assert.Equal(t, 2, resp.Skipped)
		assert.Equal(t, "appel du lundi.wav", resp.Results[0].AudioID)

		u, err := a.store.GetAudioUnit(context.Background(), types.UnitKey{CampaignID: c.ID, AudioID: "appel du lundi.wav"})
		require.NoError(t, err)
		assert.Equal(t, "s3://calls/"+c.ID+"/audio/appel du lundi.wav", u.StoragePath)
		assert.Equal(t, "https://calls.s3.eu-west-3.amazonaws.com/"+c.ID+"/audio/appel%20du%20lundi.wav", u.AudioURL)
	})

	t.Run("queue envelope", func(t *testing.T) {
		body, err := json.Marshal(map[string]any{
			"Records": []map[string]string{{"body": notification}},
		})
		require.NoError(t, err)
		rec := a.do(t, http.MethodPost, "/events/storage", string(body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp eventsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Processed)
		assert.True(t, resp.Results[0].AlreadyStarted)
	})

	t.Run("unknown campaign is reported, not redelivered", func(t *testing.T) {
		batch := `{"Records":[` +
			`{"s3":{"bucket":{"name":"calls"},"object":{"key":"ghost/audio/a.wav"}}},` +
			`{"s3":{"bucket":{"name":"calls"},"object":{"key":"` + c.ID + `/audio/mardi.wav"}}}]}`

		for delivery := 1; delivery <= 2; delivery++ {
			rec := a.do(t, http.MethodPost, "/events/storage", batch)
			require.Equal(t, http.StatusOK, rec.Code, "delivery %d: %s", delivery, rec.Body.String())
			var resp eventsResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, 1, resp.Rejected)
			assert.Equal(t, 1, resp.Processed)
			require.Len(t, resp.Results, 2)
			assert.Equal(t, "ghost", resp.Results[0].CampaignID)
			assert.Contains(t, resp.Results[0].Error, "campaign not found")
			assert.Equal(t, "mardi.wav", resp.Results[1].AudioID)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/events/storage", "not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

type failingPipeline struct {
	Pipeline
	err error
}

func (p failingPipeline) RegisterAndTrigger(context.Context, pipeline.TriggerRequest) (*pipeline.TriggerResult, error) {
	return nil, p.err
}

func TestStorageEventsInfrastructureErrorRedelivers(t *testing.T) {
	s := store.NewMemory()
	h := New(s, failingPipeline{err: errors.New("engine unavailable")}, nil, logger.Discard()).Handler()

	req := httptest.NewRequest(http.MethodPost, "/events/storage",
		strings.NewReader(`{"Records":[{"s3":{"bucket":{"name":"calls"},"object":{"key":"c1/audio/a.wav"}}}]}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestObjectURL(t *testing.T) {
	tests := []struct {
		name, bucket, region, key, want string
	}{
		{"regional", "calls", "eu-west-3", "c1/audio/a.wav", "https://calls.s3.eu-west-3.amazonaws.com/c1/audio/a.wav"},
		{"no region", "calls", "", "c1/audio/a.wav", "https://calls.s3.amazonaws.com/c1/audio/a.wav"},
		{"escaped segments", "calls", "us-east-1", "c1/audio/appel #2?.mp3", "https://calls.s3.us-east-1.amazonaws.com/c1/audio/appel%20%232%3F.mp3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, objectURL(tt.bucket, tt.region, tt.key))
		})
	}
}
