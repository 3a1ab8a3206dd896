package processor

import (
	"errors"
	"fmt"
)

// Processor identities recorded on a failed unit.
const (
	SourceTranscription = "transcription"
	SourceSentiment     = "sentiment"
	SourceEntryCall     = "entry-call-analysis"
	SourceSurvey        = "survey-analysis"
)

// StageError is a domain failure of one processor. The workflow records it
// on the unit instead of failing the execution.
type StageError struct {
	Source string
	Cause  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Cause)
}

func (e *StageError) Unwrap() error { return e.Cause }

func stageErr(source string, err error) error {
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Source: source, Cause: err}
}

// AsStageError reports whether err carries a StageError.
func AsStageError(err error) (*StageError, bool) {
	var se *StageError
	ok := errors.As(err, &se)
	return se, ok
}
