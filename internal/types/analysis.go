package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// --------------------------------------------
// Per-call analysis written by the stage processors
// --------------------------------------------
type Analysis struct {
	Transcript string             `json:"transcript,omitempty" bson:"transcript,omitempty"`
	Sentiment  *SentimentResult   `json:"sentiment,omitempty" bson:"sentiment,omitempty"`
	EntryCall  *EntryCallAnalysis `json:"entry_call,omitempty" bson:"entry_call,omitempty"`
	Survey     *SurveyAnalysis    `json:"survey,omitempty" bson:"survey,omitempty"`
}

// Merge overlays the non-empty parts of other onto a copy of a.
func (a *Analysis) Merge(other *Analysis) *Analysis {
	var out Analysis
	if a != nil {
		out = *a
	}
	if other == nil {
		return &out
	}
	if other.Transcript != "" {
		out.Transcript = other.Transcript
	}
	if other.Sentiment != nil {
		out.Sentiment = other.Sentiment
	}
	if other.EntryCall != nil {
		out.EntryCall = other.EntryCall
	}
	if other.Survey != nil {
		out.Survey = other.Survey
	}
	return &out
}

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "POSITIVE"
	SentimentNegative SentimentLabel = "NEGATIVE"
	SentimentNeutral  SentimentLabel = "NEUTRAL"
	SentimentMixed    SentimentLabel = "MIXED"
)

// ParseSentimentLabel normalizes free text to a label, NEUTRAL when unknown.
func ParseSentimentLabel(s string) SentimentLabel {
	switch SentimentLabel(strings.ToUpper(strings.TrimSpace(s))) {
	case SentimentPositive:
		return SentimentPositive
	case SentimentNegative:
		return SentimentNegative
	case SentimentMixed:
		return SentimentMixed
	}
	return SentimentNeutral
}

type SentimentScores struct {
	Positive float64 `json:"positive" bson:"positive"`
	Negative float64 `json:"negative" bson:"negative"`
	Neutral  float64 `json:"neutral" bson:"neutral"`
	Mixed    float64 `json:"mixed" bson:"mixed"`
}

type SentimentResult struct {
	Overall SentimentLabel  `json:"overall" bson:"overall"`
	Scores  SentimentScores `json:"scores" bson:"scores"`
}

// --------------------------------------------
// Entry call analysis (raw LLM answers, one per prompt)
// --------------------------------------------
type EntryCallAnalysis struct {
	AgentActions        string `json:"agent_actions" bson:"agent_actions"`
	QualityEvaluation   string `json:"quality_evaluation" bson:"quality_evaluation"`
	Politeness          string `json:"politeness" bson:"politeness"`
	Product             string `json:"product" bson:"product"`
	Subject             string `json:"subject" bson:"subject"`
	CallbackRequired    string `json:"callback_required" bson:"callback_required"`
	CustomerProblem     string `json:"customer_problem" bson:"customer_problem"`
	ConversationResults string `json:"conversation_results" bson:"conversation_results"`
	Summary             string `json:"summary" bson:"summary"`
	ResolutionStatus    string `json:"resolution_status" bson:"resolution_status"`
	// QualityReview is the raw JSON sub-document; see QualityReview.
	QualityReview string `json:"quality_review" bson:"quality_review"`
}

// QualityReview is the structured sub-document embedded in
// EntryCallAnalysis.QualityReview. A review that fails to parse is the zero
// value: no score, every flag false.
type QualityReview struct {
	Score                  NullableNumber `json:"global_score_out_of_10"`
	Clarity                Flag           `json:"clarity_concision"`
	CallTooLong            Flag           `json:"call_too_long"`
	Repetitions            Flag           `json:"repetitions_detected"`
	OptimalDurationMinutes NullableNumber `json:"optimal_duration_minutes"`
	ImprovementSuggestions []string       `json:"improvement_suggestions"`
}

type Flag struct {
	Value bool `json:"value"`
}

// NullableNumber accepts a JSON number or a numeric string. Anything else
// leaves it invalid instead of failing the surrounding document.
type NullableNumber struct {
	Value float64
	Valid bool
}

func (n *NullableNumber) UnmarshalJSON(b []byte) error {
	*n = NullableNumber{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*n = NullableNumber{Value: f, Valid: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*n = NullableNumber{Value: f, Valid: true}
	}
	return nil
}

func (n NullableNumber) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// --------------------------------------------
// Post-call survey analysis
// --------------------------------------------
type SurveyAnalysis struct {
	Satisfaction            string                `json:"satisfaction" bson:"satisfaction"`
	NetPromoter             string                `json:"net_promoter" bson:"net_promoter"`
	AssistanceAdequacy      string                `json:"assistance_adequacy" bson:"assistance_adequacy"`
	EaseOfResponse          string                `json:"ease_of_response" bson:"ease_of_response"`
	TimeAdequacy            string                `json:"time_adequacy" bson:"time_adequacy"`
	SatisfactionVerbatim    string                `json:"satisfaction_verbatim" bson:"satisfaction_verbatim"`
	DissatisfactionVerbatim string                `json:"dissatisfaction_verbatim" bson:"dissatisfaction_verbatim"`
	ResolutionStatus        string                `json:"resolution_status" bson:"resolution_status"`
	ImprovementSuggestions  string                `json:"improvement_suggestions" bson:"improvement_suggestions"`
	Conversation            *ConversationAnalysis `json:"conversation,omitempty" bson:"conversation,omitempty"`
}

type ConversationAnalysis struct {
	Risk      RiskAssessment      `json:"risk_assessment" bson:"risk_assessment"`
	Metrics   ConversationMetrics `json:"conversation_metrics" bson:"conversation_metrics"`
	Verbatims Verbatims           `json:"verbatims" bson:"verbatims"`
}

type RiskAssessment struct {
	ChurnRiskLevel         string  `json:"churn_risk_level" bson:"churn_risk_level"`
	ChurnProbability       float64 `json:"churn_probability" bson:"churn_probability"`
	UrgentCallbackRequired bool    `json:"urgent_callback_required" bson:"urgent_callback_required"`
}

type ConversationMetrics struct {
	DominantSentiment string  `json:"dominant_sentiment" bson:"dominant_sentiment"`
	AgentTalkRatio    float64 `json:"agent_talk_ratio" bson:"agent_talk_ratio"`
	InterruptionCount int     `json:"interruption_count" bson:"interruption_count"`
	PeakEmotion       string  `json:"peak_emotion" bson:"peak_emotion"`
}

type Verbatims struct {
	CriticalStatement string `json:"critical_statement" bson:"critical_statement"`
	PositiveHighlight string `json:"positive_highlight" bson:"positive_highlight"`
}

// ParseQualityReview decodes the raw review text. Text that does not parse
// yields the zero review.
func ParseQualityReview(raw string) QualityReview {
	var q QualityReview
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return q
	}
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return QualityReview{}
	}
	return q
}
