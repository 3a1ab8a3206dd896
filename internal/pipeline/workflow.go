package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"call-insights-go/internal/logger"
	"call-insights-go/internal/processor"
	"call-insights-go/internal/transcription"
	"call-insights-go/internal/types"
)

type SentimentScorer interface {
	Score(ctx context.Context, transcript string) (*types.SentimentResult, error)
}

type TranscriptAnalyzer interface {
	Analyze(ctx context.Context, ct types.CampaignType, transcript string) (*types.Analysis, error)
}

// Workflow is the step function executed for each audio unit:
// transcribe, score sentiment, analyse, record.
type Workflow struct {
	coord       *Coordinator
	transcriber transcription.Transcriber
	sentiment   SentimentScorer
	analyzer    TranscriptAnalyzer
	log         *logger.Logger
}

func NewWorkflow(coord *Coordinator, t transcription.Transcriber, s SentimentScorer, a TranscriptAnalyzer, log *logger.Logger) *Workflow {
	return &Workflow{
		coord:       coord,
		transcriber: t,
		sentiment:   s,
		analyzer:    a,
		log:         log.With(logrus.Fields{"component": "workflow"}),
	}
}

// Run executes one unit. Typed stage failures are recorded on the unit and
// the run still returns nil; any other error fails the execution.
func (w *Workflow) Run(ctx context.Context, raw []byte) error {
	var in WorkflowInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return fmt.Errorf("decode workflow input: %w", err)
	}
	log := w.log.WithFields(logrus.Fields{"campaign_id": in.CampaignID, "audio_id": in.AudioID})

	err := w.steps(ctx, in)
	se, typed := processor.AsStageError(err)
	switch {
	case err == nil:
		log.Info("analysis complete")
		return nil
	case ctx.Err() != nil:
		// aborted or shutting down: leave the unit for the engine status to explain
		return ctx.Err()
	case typed:
		log.WithError(err).WithField("source", se.Source).Warn("stage failed")
		if _, recErr := w.coord.RecordStageResult(ctx, in.CampaignID, in.AudioID, StageResult{Source: se.Source, Failure: se}); recErr != nil {
			return fmt.Errorf("record stage failure: %w", recErr)
		}
		return nil
	default:
		return err
	}
}

func (w *Workflow) steps(ctx context.Context, in WorkflowInput) error {
	transcript, err := w.transcriber.Transcribe(ctx, in.AudioURL)
	if errors.Is(err, transcription.ErrFailed) {
		return &processor.StageError{Source: processor.SourceTranscription, Cause: err}
	}
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}
	if err := w.record(ctx, in, processor.SourceTranscription, &types.Analysis{Transcript: transcript}, false); err != nil {
		return err
	}

	sentiment, err := w.sentiment.Score(ctx, transcript)
	if err != nil {
		return err
	}
	if err := w.record(ctx, in, processor.SourceSentiment, &types.Analysis{Sentiment: sentiment}, false); err != nil {
		return err
	}

	analysis, err := w.analyzer.Analyze(ctx, in.CampaignType, transcript)
	if err != nil {
		return err
	}
	source := processor.SourceEntryCall
	if in.CampaignType.IsSurvey() {
		source = processor.SourceSurvey
	}
	return w.record(ctx, in, source, analysis, true)
}

func (w *Workflow) record(ctx context.Context, in WorkflowInput, source string, payload *types.Analysis, terminal bool) error {
	_, err := w.coord.RecordStageResult(ctx, in.CampaignID, in.AudioID, StageResult{
		Source:   source,
		Payload:  payload,
		Terminal: terminal,
	})
	if err != nil {
		return fmt.Errorf("record %s result: %w", source, err)
	}
	return nil
}
