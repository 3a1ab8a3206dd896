package aggregator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"call-insights-go/internal/actionable"
	"call-insights-go/internal/config"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/oracle"
	"call-insights-go/internal/types"
)

// ErrNoData means the campaign has no completed unit to aggregate.
var ErrNoData = errors.New("no completed audio unit to aggregate")

// Engine builds campaign KPI reports. The numbers are computed locally;
// label grouping is delegated to the oracle and falls back to plain counts
// whenever the oracle fails.
type Engine struct {
	oracle oracle.Client
	cfg    config.AggregationConfig
	log    *logger.Logger
	now    func() time.Time
}

func New(o oracle.Client, cfg config.AggregationConfig, log *logger.Logger) *Engine {
	if cfg.ExtractParallel <= 0 {
		cfg.ExtractParallel = 1
	}
	if cfg.OracleTimeout <= 0 {
		cfg.OracleTimeout = 30 * time.Second
	}
	return &Engine{
		oracle: o,
		cfg:    cfg,
		log:    log.With(logrus.Fields{"component": "aggregator"}),
		now:    time.Now,
	}
}

// Build aggregates the Complete units among units. Units in any other stage
// only count towards the survey status counts.
func (e *Engine) Build(ctx context.Context, c *types.Campaign, units []types.AudioUnit) (*types.KPIReport, error) {
	var complete []*types.AudioUnit
	failed := 0
	for i := range units {
		if units[i].Stage == types.StageComplete {
			complete = append(complete, &units[i])
		} else {
			failed++
		}
	}
	if len(complete) == 0 {
		return nil, ErrNoData
	}

	fs, err := e.extractAll(ctx, complete)
	if err != nil {
		return nil, err
	}

	r := &types.KPIReport{
		CampaignID:   c.ID,
		CampaignName: c.Name,
		CampaignType: c.Type,
		TotalCalls:   len(fs),
		GeneratedAt:  e.now().UTC(),
	}
	if c.Type.IsSurvey() {
		s := e.survey(ctx, fs)
		s.StatusCount = types.StatusCount{Complete: len(complete), Error: failed}
		r.Survey = s
	} else {
		r.EntryCall = e.entryCall(ctx, fs)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.Highlights = actionable.Generate(r)

	e.log.WithFields(logrus.Fields{
		"campaign_id": c.ID,
		"units":       len(fs),
	}).Info("campaign report built")
	return r, nil
}

// extractAll reads every unit concurrently into an index-addressed slice.
func (e *Engine) extractAll(ctx context.Context, units []*types.AudioUnit) ([]facts, error) {
	out := make([]facts, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.ExtractParallel)
	for i, u := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = e.extract(u)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// entryCall runs both oracle branches alongside the local metrics. The
// branches never fail; they fall back instead.
func (e *Engine) entryCall(ctx context.Context, fs []facts) *types.EntryCallKPIs {
	k := &types.EntryCallKPIs{}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		k.TopSubjects = e.topSubjects(ctx, fs)
	}()
	go func() {
		defer wg.Done()
		k.ActionItems = e.actionItems(ctx, fs)
	}()

	k.Sentiment = sentimentDistribution(fs)
	k.Resolution = resolutionStatus(fs)
	k.Quality = qualityMetrics(fs)

	wg.Wait()
	return k
}

func (e *Engine) survey(ctx context.Context, fs []facts) *types.SurveyKPIs {
	s := &types.SurveyKPIs{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.TopImprovements = e.surveyImprovements(ctx, fs)
	}()

	s.NPS = nps(fs)
	s.CSAT = csat(fs)
	s.ChurnRisk = churnRisk(fs)
	s.AverageEaseOfResponse = average(fs, func(f facts) (float64, bool) { return f.ease, f.easeValid })
	s.AverageAssistanceAdequacy = average(fs, func(f facts) (float64, bool) { return f.assistance, f.assistValid })
	s.AverageTimeAdequacy = average(fs, func(f facts) (float64, bool) { return f.timeAdequacy, f.timeValid })
	s.SentimentVolume = sentimentVolume(fs)
	s.Resolution = resolutionStatus(fs)

	<-done
	return s
}
