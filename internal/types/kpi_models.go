// internal/types/kpi_models.go
package types

import "time"

// --------------------------------------------
// Campaign KPI report (derived on demand, never persisted)
// --------------------------------------------
type KPIReport struct {
	CampaignID   string         `json:"campaign_id"`
	CampaignName string         `json:"campaign_name"`
	CampaignType CampaignType   `json:"campaign_type"`
	TotalCalls   int            `json:"total_calls"`
	GeneratedAt  time.Time      `json:"generated_at"`
	EntryCall    *EntryCallKPIs `json:"entry_call,omitempty"`
	Survey       *SurveyKPIs    `json:"survey,omitempty"`
	Highlights   []ActionCard   `json:"highlights"`
}

// --------------------------------------------
// Entry call KPIs
// --------------------------------------------
type EntryCallKPIs struct {
	Sentiment   SentimentDistribution `json:"sentiment_distribution"`
	Resolution  ResolutionStatus      `json:"resolution_status"`
	Quality     QualityMetrics        `json:"quality_metrics"`
	TopSubjects Consolidation         `json:"top_subjects"`
	ActionItems ActionItems           `json:"action_items"`
}

type SentimentCounts struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
	Mixed    int `json:"mixed"`
}

type SentimentShares struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
	Mixed    float64 `json:"mixed"`
}

type SentimentDistribution struct {
	Counts      SentimentCounts `json:"distribution"`
	Percentages SentimentShares `json:"percentages"`
	// AverageScores are the mean raw sub-scores across all calls, as percentages.
	AverageScores SentimentShares `json:"average_scores"`
}

type ResolutionShares struct {
	Resolved          float64 `json:"resolved"`
	PartiallyResolved float64 `json:"partially_resolved"`
	Unresolved        float64 `json:"unresolved"`
}

// ResolutionStatus percentages are computed over every call, so a call with
// no usable answer counts as unresolved.
type ResolutionStatus struct {
	Resolved          int              `json:"resolved"`
	PartiallyResolved int              `json:"partially_resolved"`
	Unresolved        int              `json:"unresolved"`
	Percentages       ResolutionShares `json:"percentages"`
	CallbackRequired  RateMetric       `json:"callback_required"`
}

type RateMetric struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type QualityMetrics struct {
	AverageQualityScore float64    `json:"average_quality_score"`
	ScoredCalls         int        `json:"scored_calls"`
	Politeness          RateMetric `json:"politeness"`
	Clarity             RateMetric `json:"clarity"`
	CallsTooLong        RateMetric `json:"calls_too_long"`
	Repetitions         RateMetric `json:"repetitions_detected"`
}

type ActionItems struct {
	TopImprovements    Consolidation `json:"top_improvement"`
	CommonAgentActions Consolidation `json:"common_agent_actions"`
}

// --------------------------------------------
// Oracle-assisted consolidation
// --------------------------------------------

// ConsolidationSource tags where a consolidated list came from.
type ConsolidationSource string

const (
	// SourceOracle means the language model response parsed and was used.
	SourceOracle ConsolidationSource = "oracle"
	// SourceFallback means the oracle failed or answered garbage and the
	// local frequency count was used instead.
	SourceFallback ConsolidationSource = "fallback"
	// SourceLocal means the oracle was not consulted at all.
	SourceLocal ConsolidationSource = "local"
)

type NamedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Consolidation struct {
	Items  []NamedCount        `json:"items"`
	Source ConsolidationSource `json:"source"`
	Reason string              `json:"reason,omitempty"`
}

// --------------------------------------------
// Post-call survey KPIs
// --------------------------------------------
type SurveyKPIs struct {
	NPS                       NPSResult        `json:"nps"`
	CSAT                      CSATResult       `json:"csat"`
	ChurnRisk                 ChurnRisk        `json:"churn_risk"`
	AverageEaseOfResponse     float64          `json:"average_ease_of_response"`
	AverageAssistanceAdequacy float64          `json:"average_assistance_adequacy"`
	AverageTimeAdequacy       float64          `json:"average_time_adequacy"`
	SentimentVolume           SentimentCounts  `json:"sentiment_volume"`
	Resolution                ResolutionStatus `json:"resolution_status"`
	StatusCount               StatusCount      `json:"analysis_status_count"`
	TopImprovements           Consolidation    `json:"top_improvements"`
}

// NPSResult percentages are computed over valid responses only.
type NPSResult struct {
	Score                int     `json:"nps_score"`
	Promoters            int     `json:"promoters"`
	Passives             int     `json:"passives"`
	Detractors           int     `json:"detractors"`
	PromotersPercentage  float64 `json:"promoters_percentage"`
	PassivesPercentage   float64 `json:"passives_percentage"`
	DetractorsPercentage float64 `json:"detractors_percentage"`
	TotalResponses       int     `json:"total_responses"`
	ValidResponses       int     `json:"valid_responses"`
	NoData               bool    `json:"no_data,omitempty"`
}

type CSATResult struct {
	Score                  int     `json:"csat_score"`
	Satisfied              int     `json:"satisfied"`
	Neutral                int     `json:"neutral"`
	Dissatisfied           int     `json:"dissatisfied"`
	SatisfiedPercentage    float64 `json:"satisfied_percentage"`
	NeutralPercentage      float64 `json:"neutral_percentage"`
	DissatisfiedPercentage float64 `json:"dissatisfied_percentage"`
	TotalResponses         int     `json:"total_responses"`
	ValidResponses         int     `json:"valid_responses"`
	NoData                 bool    `json:"no_data,omitempty"`
}

type ChurnRisk struct {
	AverageProbability float64        `json:"average_probability"`
	ValidResponses     int            `json:"valid_responses"`
	Levels             map[string]int `json:"levels"`
	UrgentCallbacks    RateMetric     `json:"urgent_callbacks"`
}

type StatusCount struct {
	Complete int `json:"complete"`
	Error    int `json:"error"`
}

// --------------------------------------------
// Report highlights
// --------------------------------------------
type ActionCard struct {
	Insight string `json:"insight"`
	Action  string `json:"action"`
	Impact  string `json:"impact"`
}
