package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"call-insights-go/internal/logger"
	"call-insights-go/internal/pipeline"
	"call-insights-go/internal/store"
	"call-insights-go/internal/types"
)

// Pipeline is the part of the coordinator the API drives.
type Pipeline interface {
	RegisterAndTrigger(ctx context.Context, req pipeline.TriggerRequest) (*pipeline.TriggerResult, error)
	QueryStatus(ctx context.Context, campaignID, audioID string) (*pipeline.Status, error)
	ListUnits(ctx context.Context, campaignID string) ([]pipeline.UnitStatus, error)
	Abort(ctx context.Context, campaignID, audioID string) error
}

// ReportBuilder aggregates a campaign's units into a KPI report.
type ReportBuilder interface {
	Build(ctx context.Context, c *types.Campaign, units []types.AudioUnit) (*types.KPIReport, error)
}

type Server struct {
	store    store.Store
	pipeline Pipeline
	reports  ReportBuilder
	log      *logger.Logger
	validate *validator.Validate
	now      func() time.Time
}

func New(s store.Store, p Pipeline, r ReportBuilder, log *logger.Logger) *Server {
	return &Server{
		store:    s,
		pipeline: p,
		reports:  r,
		log:      log.With(logrus.Fields{"component": "http"}),
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handler returns the routed API with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.health)

	mux.HandleFunc("POST /campaigns", s.createCampaign)
	mux.HandleFunc("GET /campaigns", s.listCampaigns)
	mux.HandleFunc("GET /campaigns/{campaignId}", s.getCampaign)

	mux.HandleFunc("POST /campaigns/{campaignId}/audios", s.registerAudio)
	mux.HandleFunc("GET /campaigns/{campaignId}/audios", s.listAudios)
	mux.HandleFunc("GET /campaigns/{campaignId}/audios/{audioId}", s.getAudio)
	mux.HandleFunc("GET /campaigns/{campaignId}/audios/{audioId}/status", s.audioStatus)
	mux.HandleFunc("POST /campaigns/{campaignId}/audios/{audioId}/abort", s.abortAudio)

	mux.HandleFunc("GET /campaigns/{campaignId}/report", s.campaignReport)
	mux.HandleFunc("GET /campaigns/{campaignId}/export", s.campaignExport)

	mux.HandleFunc("POST /events/storage", s.storageEvents)

	return s.withLogging(mux)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLog := s.log.WithRequest(r)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		defer func() {
			if p := recover(); p != nil {
				reqLog.WithField("panic", p).Error("handler panicked")
				http.Error(rec, "internal error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(rec, r)

		entry := reqLog.WithFields(logrus.Fields{
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Info("request served")
	})
}
