package types

import "time"

// CampaignType drives which analysis prompts run per call and which KPIs
// the campaign report carries.
type CampaignType string

const (
	CampaignPostCallSurvey CampaignType = "Post Call Survey"
	CampaignEntryCall      CampaignType = "Entry Call"
)

// IsSurvey reports whether the campaign scores calls as post-call surveys.
// Anything else, including an empty type, is treated as an entry call.
func (t CampaignType) IsSurvey() bool {
	return t == CampaignPostCallSurvey
}

type Campaign struct {
	ID          string       `json:"id" bson:"_id"`
	Name        string       `json:"name" bson:"name"`
	Objective   string       `json:"objective,omitempty" bson:"objective,omitempty"`
	Description string       `json:"description,omitempty" bson:"description,omitempty"`
	Type        CampaignType `json:"campaign_type" bson:"campaign_type"`
	StartDate   string       `json:"date,omitempty" bson:"date,omitempty"`
	EndDate     string       `json:"end_date,omitempty" bson:"end_date,omitempty"`
	CreatedAt   time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" bson:"updated_at"`
}

// Stage is the position of an audio unit in the analysis state machine.
// Pending is never persisted: it is what a status query reports for a unit
// the store does not know about yet.
type Stage string

const (
	StagePending    Stage = "Pending"
	StageRegistered Stage = "Registered"
	StageRunning    Stage = "Running"
	StageComplete   Stage = "Complete"
	StageFailed     Stage = "Failed"
	StageCancelled  Stage = "Cancelled"
)

func (s Stage) Terminal() bool {
	switch s {
	case StageComplete, StageFailed, StageCancelled:
		return true
	}
	return false
}

var stageTransitions = map[Stage][]Stage{
	StageRegistered: {StageRunning, StageComplete, StageFailed, StageCancelled},
	StageRunning:    {StageComplete, StageFailed, StageCancelled},
}

// CanAdvanceTo reports whether moving from s to next respects the state
// machine. Re-applying the current stage is always allowed so that retried
// writes stay idempotent.
func (s Stage) CanAdvanceTo(next Stage) bool {
	if s == next {
		return true
	}
	for _, allowed := range stageTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// StageFailure preserves which processor failed and its raw cause.
type StageFailure struct {
	Source string    `json:"source" bson:"source"`
	Cause  string    `json:"cause" bson:"cause"`
	At     time.Time `json:"at" bson:"at"`
}

// AudioUnit is one uploaded call recording and its analysis record.
// Analysis and Failure are mutually exclusive.
type AudioUnit struct {
	CampaignID      string        `json:"campaign_id" bson:"campaign_id"`
	AudioID         string        `json:"audio_id" bson:"audio_id"`
	FileName        string        `json:"file_name" bson:"file_name"`
	StoragePath     string        `json:"storage_path,omitempty" bson:"storage_path,omitempty"`
	AudioURL        string        `json:"audio_url,omitempty" bson:"audio_url,omitempty"`
	DurationSeconds float64       `json:"duration_seconds,omitempty" bson:"duration_seconds,omitempty"`
	CampaignType    CampaignType  `json:"campaign_type" bson:"campaign_type"`
	Stage           Stage         `json:"stage" bson:"stage"`
	ExecutionRef    string        `json:"execution_ref,omitempty" bson:"execution_ref,omitempty"`
	Analysis        *Analysis     `json:"analysis,omitempty" bson:"analysis,omitempty"`
	Failure         *StageFailure `json:"failure,omitempty" bson:"failure,omitempty"`
	CreatedAt       time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" bson:"updated_at"`
}

// Key returns the composite identity of the unit.
func (u *AudioUnit) Key() UnitKey {
	return UnitKey{CampaignID: u.CampaignID, AudioID: u.AudioID}
}

type UnitKey struct {
	CampaignID string
	AudioID    string
}

func (k UnitKey) String() string {
	return k.CampaignID + "/" + k.AudioID
}
