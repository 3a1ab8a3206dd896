package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"call-insights-go/internal/aggregator"
	"call-insights-go/internal/config"
	"call-insights-go/internal/engine"
	"call-insights-go/internal/httpapi"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/oracle"
	"call-insights-go/internal/pipeline"
	"call-insights-go/internal/processor"
	"call-insights-go/internal/store"
	"call-insights-go/internal/transcription"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("", config.LogConfig{Level: "info"}).WithError(err).Fatal("invalid configuration")
	}

	log := logger.New(cfg.Environment, cfg.Log)
	log.WithField("service", "call-insights-go").Info("starting service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	log.WithField("driver", cfg.StoreDriver).Info("store ready")

	analysisOracle, aggregationOracle, err := openOracles(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to configure llm gateway")
	}

	transcriber, err := openTranscriber(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to configure transcription")
	}

	eng := engine.NewLocal(log)
	coord := pipeline.NewCoordinator(st, eng, log, pipeline.Options{StatusFanout: cfg.StatusFanout})
	wf := pipeline.NewWorkflow(coord, transcriber,
		processor.NewSentiment(analysisOracle),
		processor.NewAnalyzer(analysisOracle, cfg.AnalysisParallel),
		log)
	eng.Register(wf.Run)

	agg := aggregator.New(aggregationOracle, cfg.Aggregation, log)
	api := httpapi.New(st, coord, agg, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server terminated")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if err := eng.Close(shutdownCtx); err != nil {
		log.WithError(err).Warn("engine shutdown")
	}
	if err := st.Close(shutdownCtx); err != nil {
		log.WithError(err).Warn("store shutdown")
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.StoreDriver == "mongo" {
		m, err := store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	return store.NewMemory(), nil
}

// openOracles returns the client used by per-call analysis and the one used
// by report aggregation. Aggregation has its own timeout and a fallback, so
// it gets a single attempt per call.
func openOracles(cfg *config.Config, log *logger.Logger) (oracle.Client, oracle.Client, error) {
	if cfg.MockLLM {
		log.Warn("USE_MOCK_LLM set, answers are canned")
		m := &oracle.Mock{Rules: append(processor.MockRules(), aggregator.MockRules()...)}
		return m, m, nil
	}
	gw, err := oracle.NewGateway(oracle.GatewayConfig{
		URL:      cfg.LLMGatewayURL,
		APIKey:   cfg.LLMAPIKey,
		Model:    cfg.LLMModel,
		Timeout:  cfg.LLMTimeout,
		MaxRetry: cfg.LLMMaxRetry,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	return gw, gw.WithRetry(0), nil
}

func openTranscriber(cfg *config.Config, log *logger.Logger) (transcription.Transcriber, error) {
	if cfg.MockTranscribe {
		log.Warn("USE_MOCK_TRANSCRIBE set, transcripts are canned")
		return transcription.Mock{}, nil
	}
	return transcription.NewClient(transcription.Options{
		Host:    cfg.TranscribeURL,
		Timeout: cfg.TranscribeTimeout,
	}, log)
}
