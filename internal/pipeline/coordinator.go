package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"call-insights-go/internal/engine"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/processor"
	"call-insights-go/internal/store"
	"call-insights-go/internal/types"
)

var (
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrAudioUnitNotFound = errors.New("audio unit not found")
	ErrInvalidTransition = errors.New("invalid stage transition")
	ErrNotStarted        = errors.New("audio unit has no execution")
)

var supportedExtensions = map[string]bool{
	".wav": true, ".mp3": true, ".mp4": true, ".flac": true, ".ogg": true, ".m4a": true,
}

// IsSupportedAudio reports whether fileName has a recognised audio extension.
func IsSupportedAudio(fileName string) bool {
	base := path.Base(fileName)
	ext := strings.ToLower(path.Ext(base))
	if ext == "" || ext == strings.ToLower(base) {
		return false
	}
	return supportedExtensions[ext]
}

// WorkflowID is the deterministic execution name of a unit.
func WorkflowID(key types.UnitKey) string {
	return key.CampaignID + "/" + key.AudioID
}

type TriggerRequest struct {
	CampaignID      string
	FileName        string
	StoragePath     string
	AudioURL        string
	DurationSeconds float64
}

type TriggerResult struct {
	// Skipped is set for files that are not audio; nothing was written.
	Skipped bool `json:"skipped,omitempty"`
	// AlreadyStarted is set when an execution was attached before this call.
	AlreadyStarted bool             `json:"already_started,omitempty"`
	Unit           *types.AudioUnit `json:"unit,omitempty"`
}

// WorkflowInput is the document every execution starts with.
type WorkflowInput struct {
	CampaignID   string             `json:"campaign_id"`
	AudioID      string             `json:"audio_id"`
	CampaignType types.CampaignType `json:"campaign_type"`
	AudioURL     string             `json:"audio_url"`
}

// StageResult is what a processor reports back. A nil Failure is a success.
type StageResult struct {
	Source   string
	Payload  *types.Analysis
	Terminal bool
	Failure  *processor.StageError
}

type Status struct {
	CampaignID  string         `json:"campaign_id"`
	AudioID     string         `json:"audio_id"`
	Stage       types.Stage    `json:"stage"`
	LastUpdated time.Time      `json:"last_updated"`
	Details     *StatusDetails `json:"details,omitempty"`
}

type StatusDetails struct {
	ExecutionStatus engine.Status `json:"execution_status,omitempty"`
	FailureSource   string        `json:"failure_source,omitempty"`
	FailureCause    string        `json:"failure_cause,omitempty"`

	Subject          string   `json:"subject,omitempty"`
	ResolutionStatus string   `json:"resolution_status,omitempty"`
	QualityScore     *float64 `json:"quality_score,omitempty"`
	Satisfaction     string   `json:"satisfaction,omitempty"`
	NetPromoter      string   `json:"net_promoter,omitempty"`
	ChurnRiskLevel   string   `json:"churn_risk_level,omitempty"`
}

type UnitStatus struct {
	Unit   types.AudioUnit `json:"unit"`
	Status Status          `json:"status"`
}

type Options struct {
	// StatusFanout bounds concurrent engine lookups in ListUnits.
	StatusFanout int
}

// Coordinator advances audio units through the pipeline. It keeps no unit
// state between calls.
type Coordinator struct {
	store  store.Store
	engine engine.Engine
	log    *logger.Logger
	opts   Options
	now    func() time.Time
}

func NewCoordinator(s store.Store, e engine.Engine, log *logger.Logger, opts Options) *Coordinator {
	if opts.StatusFanout <= 0 {
		opts.StatusFanout = 8
	}
	return &Coordinator{
		store:  s,
		engine: e,
		log:    log.With(logrus.Fields{"component": "coordinator"}),
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (c *Coordinator) RegisterAndTrigger(ctx context.Context, req TriggerRequest) (*TriggerResult, error) {
	audioID := path.Base(req.FileName)
	log := c.log.WithFields(logrus.Fields{"campaign_id": req.CampaignID, "audio_id": audioID})

	if !IsSupportedAudio(req.FileName) {
		log.Info("ignoring unsupported file")
		return &TriggerResult{Skipped: true}, nil
	}

	campaign, err := c.store.GetCampaign(ctx, req.CampaignID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCampaignNotFound, req.CampaignID)
	}
	if err != nil {
		return nil, fmt.Errorf("load campaign: %w", err)
	}

	now := c.now()
	unit := &types.AudioUnit{
		CampaignID:      req.CampaignID,
		AudioID:         audioID,
		FileName:        req.FileName,
		StoragePath:     req.StoragePath,
		AudioURL:        req.AudioURL,
		DurationSeconds: req.DurationSeconds,
		CampaignType:    campaign.Type,
		Stage:           types.StageRegistered,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	key := unit.Key()

	created, err := c.store.InsertAudioUnit(ctx, unit)
	if err != nil {
		return nil, fmt.Errorf("register audio unit: %w", err)
	}
	if !created {
		existing, err := c.store.GetAudioUnit(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("load audio unit: %w", err)
		}
		if existing.ExecutionRef != "" {
			log.WithField("stage", existing.Stage).Info("execution already attached")
			return &TriggerResult{AlreadyStarted: true, Unit: existing}, nil
		}
		unit = existing
	}

	input, err := json.Marshal(WorkflowInput{
		CampaignID:   unit.CampaignID,
		AudioID:      unit.AudioID,
		CampaignType: unit.CampaignType,
		AudioURL:     firstNonEmpty(unit.AudioURL, unit.StoragePath),
	})
	if err != nil {
		return nil, fmt.Errorf("encode workflow input: %w", err)
	}

	ref, err := c.engine.Start(ctx, WorkflowID(key), input)
	if err != nil {
		return nil, fmt.Errorf("start execution: %w", err)
	}

	attachedUnit, attached, err := c.store.AttachExecution(ctx, key, ref)
	if err != nil {
		return nil, fmt.Errorf("attach execution: %w", err)
	}
	if !attached {
		log.Info("lost attach race, keeping existing execution")
		return &TriggerResult{AlreadyStarted: true, Unit: attachedUnit}, nil
	}

	log.WithField("execution_ref", ref).Info("execution started")
	return &TriggerResult{Unit: attachedUnit}, nil
}

func (c *Coordinator) QueryStatus(ctx context.Context, campaignID, audioID string) (*Status, error) {
	unit, err := c.store.GetAudioUnit(ctx, types.UnitKey{CampaignID: campaignID, AudioID: audioID})
	if errors.Is(err, store.ErrNotFound) {
		return &Status{CampaignID: campaignID, AudioID: audioID, Stage: types.StagePending, LastUpdated: c.now()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load audio unit: %w", err)
	}
	return c.status(ctx, unit)
}

func (c *Coordinator) status(ctx context.Context, unit *types.AudioUnit) (*Status, error) {
	st := &Status{
		CampaignID:  unit.CampaignID,
		AudioID:     unit.AudioID,
		Stage:       types.StagePending,
		LastUpdated: unit.UpdatedAt,
	}
	if unit.ExecutionRef == "" {
		return st, nil
	}

	desc, err := c.engine.Describe(ctx, unit.ExecutionRef)
	switch {
	case errors.Is(err, engine.ErrExecutionNotFound):
		// the engine forgot the execution (restart); trust a terminal record
		desc = &engine.Description{Ref: unit.ExecutionRef, Status: engine.StatusFailed, Error: "execution no longer known to the engine"}
		if unit.Stage.Terminal() {
			desc.Status = engine.StatusSucceeded
		}
	case err != nil:
		return nil, fmt.Errorf("describe execution: %w", err)
	}

	verdict := Reconcile(desc, unit)
	st.Stage = verdict.Stage
	if desc.StoppedAt != nil && desc.StoppedAt.After(st.LastUpdated) {
		st.LastUpdated = *desc.StoppedAt
	}
	st.Details = details(unit, desc.Status, verdict)
	return st, nil
}

func details(unit *types.AudioUnit, exec engine.Status, v Verdict) *StatusDetails {
	d := &StatusDetails{ExecutionStatus: exec}
	switch v.Stage {
	case types.StageFailed:
		if unit.Failure != nil && v.Reason == "" {
			d.FailureSource = unit.Failure.Source
			d.FailureCause = unit.Failure.Cause
		} else {
			d.FailureSource = "engine"
			d.FailureCause = v.Reason
		}
	case types.StageCancelled:
		d.FailureCause = v.Reason
	case types.StageComplete:
		if unit.Analysis == nil {
			break
		}
		if e := unit.Analysis.EntryCall; e != nil {
			d.Subject = e.Subject
			d.ResolutionStatus = e.ResolutionStatus
			if q := types.ParseQualityReview(e.QualityReview); q.Score.Valid {
				score := q.Score.Value
				d.QualityScore = &score
			}
		}
		if s := unit.Analysis.Survey; s != nil {
			d.Satisfaction = s.Satisfaction
			d.NetPromoter = s.NetPromoter
			d.ResolutionStatus = s.ResolutionStatus
			if s.Conversation != nil {
				d.ChurnRiskLevel = s.Conversation.Risk.ChurnRiskLevel
			}
		}
	}
	return d
}

// RecordStageResult applies a processor outcome to an existing unit.
func (c *Coordinator) RecordStageResult(ctx context.Context, campaignID, audioID string, res StageResult) (*types.AudioUnit, error) {
	key := types.UnitKey{CampaignID: campaignID, AudioID: audioID}
	at := c.now()

	unit, err := c.store.UpdateAudioUnit(ctx, key, func(u *types.AudioUnit) error {
		if res.Failure != nil {
			if !u.Stage.CanAdvanceTo(types.StageFailed) {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, u.Stage, types.StageFailed)
			}
			u.Stage = types.StageFailed
			u.Analysis = nil
			u.Failure = &types.StageFailure{
				Source: res.Failure.Source,
				Cause:  causeText(res.Failure),
				At:     at,
			}
			return nil
		}

		next := types.StageRunning
		if res.Terminal {
			next = types.StageComplete
		}
		if u.Stage == types.StageComplete && !res.Terminal {
			// late intermediate write after completion
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, u.Stage, next)
		}
		if !u.Stage.CanAdvanceTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, u.Stage, next)
		}
		u.Stage = next
		u.Failure = nil
		u.Analysis = u.Analysis.Merge(res.Payload)
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAudioUnitNotFound, key)
	}
	if err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"campaign_id": campaignID,
		"audio_id":    audioID,
		"source":      res.Source,
		"stage":       unit.Stage,
	}).Debug("stage result recorded")
	return unit, nil
}

func causeText(se *processor.StageError) string {
	if se.Cause == nil {
		return "unknown error"
	}
	return se.Cause.Error()
}

// ListUnits returns every unit of a campaign with its reconciled status,
// newest first.
func (c *Coordinator) ListUnits(ctx context.Context, campaignID string) ([]UnitStatus, error) {
	units, err := c.store.ListAudioUnits(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list audio units: %w", err)
	}

	out := make([]UnitStatus, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.StatusFanout)
	for i := range units {
		g.Go(func() error {
			st, err := c.status(gctx, &units[i])
			if err != nil {
				return err
			}
			out[i] = UnitStatus{Unit: units[i], Status: *st}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Unit.CreatedAt.After(out[j].Unit.CreatedAt)
	})
	return out, nil
}

// Abort asks the engine to stop the unit's execution. The unit reports
// Cancelled once the engine confirms.
func (c *Coordinator) Abort(ctx context.Context, campaignID, audioID string) error {
	unit, err := c.store.GetAudioUnit(ctx, types.UnitKey{CampaignID: campaignID, AudioID: audioID})
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s/%s", ErrAudioUnitNotFound, campaignID, audioID)
	}
	if err != nil {
		return fmt.Errorf("load audio unit: %w", err)
	}
	if unit.ExecutionRef == "" {
		return ErrNotStarted
	}
	if err := c.engine.Abort(ctx, unit.ExecutionRef); err != nil {
		return fmt.Errorf("abort execution: %w", err)
	}
	c.log.WithFields(logrus.Fields{"campaign_id": campaignID, "audio_id": audioID}).Info("execution abort requested")
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
