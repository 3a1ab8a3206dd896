package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"call-insights-go/internal/types"
)

// Table is a named grid of text cells, the common shape of every export.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

func (t *Table) add(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

func (t *Table) metric(name, value string) {
	t.add(name, value)
}

func itoa(n int) string { return strconv.Itoa(n) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// SummaryTable flattens the scalar KPIs of a report into Metric;Value rows.
func SummaryTable(r *types.KPIReport) Table {
	t := Table{Name: "Summary", Header: []string{"Metric", "Value"}}
	t.metric("Campaign", r.CampaignName)
	t.metric("Campaign ID", r.CampaignID)
	t.metric("Campaign Type", string(r.CampaignType))
	t.metric("Total Calls", itoa(r.TotalCalls))
	t.metric("Generated At", r.GeneratedAt.UTC().Format(time.RFC3339))

	if e := r.EntryCall; e != nil {
		entryCallSummary(&t, e)
	}
	if s := r.Survey; s != nil {
		surveySummary(&t, s)
	}
	for i, h := range r.Highlights {
		t.metric(fmt.Sprintf("Highlight %d", i+1), h.Insight+" => "+h.Action)
	}
	return t
}

func entryCallSummary(t *Table, e *types.EntryCallKPIs) {
	s := e.Sentiment
	t.metric("Positive Calls", itoa(s.Counts.Positive))
	t.metric("Negative Calls", itoa(s.Counts.Negative))
	t.metric("Neutral Calls", itoa(s.Counts.Neutral))
	t.metric("Mixed Calls", itoa(s.Counts.Mixed))
	t.metric("Positive Calls (%)", ftoa(s.Percentages.Positive))
	t.metric("Negative Calls (%)", ftoa(s.Percentages.Negative))
	t.metric("Neutral Calls (%)", ftoa(s.Percentages.Neutral))
	t.metric("Mixed Calls (%)", ftoa(s.Percentages.Mixed))
	t.metric("Average Positive Score (%)", ftoa(s.AverageScores.Positive))
	t.metric("Average Negative Score (%)", ftoa(s.AverageScores.Negative))
	t.metric("Average Neutral Score (%)", ftoa(s.AverageScores.Neutral))
	t.metric("Average Mixed Score (%)", ftoa(s.AverageScores.Mixed))

	resolutionSummary(t, e.Resolution)
	t.metric("Callback Required", itoa(e.Resolution.CallbackRequired.Count))
	t.metric("Callback Required (%)", ftoa(e.Resolution.CallbackRequired.Percentage))

	q := e.Quality
	t.metric("Average Quality Score (/10)", ftoa(q.AverageQualityScore))
	t.metric("Scored Calls", itoa(q.ScoredCalls))
	t.metric("Politeness (%)", ftoa(q.Politeness.Percentage))
	t.metric("Clarity (%)", ftoa(q.Clarity.Percentage))
	t.metric("Calls Too Long (%)", ftoa(q.CallsTooLong.Percentage))
	t.metric("Repetitions Detected (%)", ftoa(q.Repetitions.Percentage))

	consolidation(t, "Top Subject", e.TopSubjects)
	consolidation(t, "Top Improvement", e.ActionItems.TopImprovements)
	consolidation(t, "Agent Action", e.ActionItems.CommonAgentActions)
}

func surveySummary(t *Table, s *types.SurveyKPIs) {
	t.metric("NPS Score", itoa(s.NPS.Score))
	t.metric("Promoters", itoa(s.NPS.Promoters))
	t.metric("Passives", itoa(s.NPS.Passives))
	t.metric("Detractors", itoa(s.NPS.Detractors))
	t.metric("Promoters (%)", ftoa(s.NPS.PromotersPercentage))
	t.metric("Passives (%)", ftoa(s.NPS.PassivesPercentage))
	t.metric("Detractors (%)", ftoa(s.NPS.DetractorsPercentage))
	t.metric("NPS Valid Responses", itoa(s.NPS.ValidResponses))

	t.metric("CSAT Score", itoa(s.CSAT.Score))
	t.metric("Satisfied", itoa(s.CSAT.Satisfied))
	t.metric("Neutral", itoa(s.CSAT.Neutral))
	t.metric("Dissatisfied", itoa(s.CSAT.Dissatisfied))
	t.metric("Satisfied (%)", ftoa(s.CSAT.SatisfiedPercentage))
	t.metric("Neutral (%)", ftoa(s.CSAT.NeutralPercentage))
	t.metric("Dissatisfied (%)", ftoa(s.CSAT.DissatisfiedPercentage))
	t.metric("CSAT Valid Responses", itoa(s.CSAT.ValidResponses))

	t.metric("Average Churn Probability", ftoa(s.ChurnRisk.AverageProbability))
	levels := make([]string, 0, len(s.ChurnRisk.Levels))
	for l := range s.ChurnRisk.Levels {
		levels = append(levels, l)
	}
	sort.Strings(levels)
	for _, l := range levels {
		t.metric("Churn Risk "+l, itoa(s.ChurnRisk.Levels[l]))
	}
	t.metric("Urgent Callbacks", itoa(s.ChurnRisk.UrgentCallbacks.Count))
	t.metric("Urgent Callbacks (%)", ftoa(s.ChurnRisk.UrgentCallbacks.Percentage))

	t.metric("Average Ease Of Response", ftoa(s.AverageEaseOfResponse))
	t.metric("Average Assistance Adequacy", ftoa(s.AverageAssistanceAdequacy))
	t.metric("Average Time Adequacy", ftoa(s.AverageTimeAdequacy))

	t.metric("Positive Verbatims", itoa(s.SentimentVolume.Positive))
	t.metric("Neutral Verbatims", itoa(s.SentimentVolume.Neutral))
	t.metric("Negative Verbatims", itoa(s.SentimentVolume.Negative))
	t.metric("Mixed Verbatims", itoa(s.SentimentVolume.Mixed))

	resolutionSummary(t, s.Resolution)
	t.metric("Complete Analyses", itoa(s.StatusCount.Complete))
	t.metric("Failed Analyses", itoa(s.StatusCount.Error))

	consolidation(t, "Top Improvement", s.TopImprovements)
}

func resolutionSummary(t *Table, r types.ResolutionStatus) {
	t.metric("Resolved", itoa(r.Resolved))
	t.metric("Partially Resolved", itoa(r.PartiallyResolved))
	t.metric("Unresolved", itoa(r.Unresolved))
	t.metric("Resolved (%)", ftoa(r.Percentages.Resolved))
	t.metric("Partially Resolved (%)", ftoa(r.Percentages.PartiallyResolved))
	t.metric("Unresolved (%)", ftoa(r.Percentages.Unresolved))
}

func consolidation(t *Table, label string, c types.Consolidation) {
	t.metric(label+" Source", string(c.Source))
	for i, it := range c.Items {
		t.metric(fmt.Sprintf("%s %d", label, i+1), fmt.Sprintf("%s (%d)", it.Name, it.Count))
	}
}

var (
	entryCallColumns = []string{
		"Audio ID", "Creation Date", "Analysis Status", "Overall Sentiment",
		"Positive Score (%)", "Negative Score (%)", "Neutral Score (%)",
		"Subject Identified", "Product/Service", "Client Problem", "Resolution Status",
		"Callback Required", "Politeness Evaluation", "Communication Clarity",
		"Global Quality Score (/10)", "Repetitions Detected", "Call Too Long",
		"Optimal Duration (min)", "Agent Actions Summary", "Conversation Results",
		"Improvement Suggestions",
	}
	surveyColumns = []string{
		"Audio ID", "Creation Date", "Analysis Status", "CSAT Score", "NPS Score",
		"Assistance Adequacy", "Response Ease (CES)", "Time Adequacy", "Resolution Status",
		"Churn Risk Level", "Churn Probability", "Dominant Sentiment", "Agent Talk Ratio",
		"Interruption Count", "Peak Emotion", "Satisfaction Verbatim", "Critical Statement",
		"Positive Highlight", "Improvement Suggestions", "Urgent Callback Required",
	}
)

// UnitTable renders one row per audio unit with the column set of the
// campaign type.
func UnitTable(ct types.CampaignType, units []types.AudioUnit) Table {
	if ct.IsSurvey() {
		t := Table{Name: "Calls", Header: surveyColumns}
		for i := range units {
			t.add(surveyRow(&units[i])...)
		}
		return t
	}
	t := Table{Name: "Calls", Header: entryCallColumns}
	for i := range units {
		t.add(entryCallRow(&units[i])...)
	}
	return t
}

func unitPrefix(u *types.AudioUnit) []string {
	return []string{u.AudioID, u.CreatedAt.UTC().Format(time.RFC3339), string(u.Stage)}
}

func entryCallRow(u *types.AudioUnit) []string {
	var (
		sentiment types.SentimentResult
		ec        types.EntryCallAnalysis
	)
	if a := u.Analysis; a != nil {
		if a.Sentiment != nil {
			sentiment = *a.Sentiment
		}
		if a.EntryCall != nil {
			ec = *a.EntryCall
		}
	}
	review := types.ParseQualityReview(ec.QualityReview)
	pct := func(f float64) string { return strconv.FormatFloat(f*100, 'f', 1, 64) }

	score, duration := "", ""
	if review.Score.Valid {
		score = ftoa(review.Score.Value)
	}
	if review.OptimalDurationMinutes.Valid {
		duration = ftoa(review.OptimalDurationMinutes.Value)
	}

	return append(unitPrefix(u),
		string(sentiment.Overall),
		pct(sentiment.Scores.Positive),
		pct(sentiment.Scores.Negative),
		pct(sentiment.Scores.Neutral),
		ec.Subject,
		ec.Product,
		ec.CustomerProblem,
		NormalizeYesNo(ec.ResolutionStatus),
		NormalizeYesNo(ec.CallbackRequired),
		NormalizePoliteness(ec.Politeness),
		flag(review.Clarity.Value),
		score,
		flag(review.Repetitions.Value),
		flag(review.CallTooLong.Value),
		duration,
		ec.AgentActions,
		ec.ConversationResults,
		strings.Join(review.ImprovementSuggestions, ", "),
	)
}

func surveyRow(u *types.AudioUnit) []string {
	var s types.SurveyAnalysis
	if u.Analysis != nil && u.Analysis.Survey != nil {
		s = *u.Analysis.Survey
	}
	var c types.ConversationAnalysis
	hasConversation := s.Conversation != nil
	if hasConversation {
		c = *s.Conversation
	}
	num := func(f float64) string {
		if !hasConversation {
			return ""
		}
		return ftoa(f)
	}
	urgent := ""
	if hasConversation {
		urgent = flag(c.Risk.UrgentCallbackRequired)
	}

	return append(unitPrefix(u),
		s.Satisfaction,
		s.NetPromoter,
		s.AssistanceAdequacy,
		s.EaseOfResponse,
		s.TimeAdequacy,
		s.ResolutionStatus,
		c.Risk.ChurnRiskLevel,
		num(c.Risk.ChurnProbability),
		c.Metrics.DominantSentiment,
		num(c.Metrics.AgentTalkRatio),
		num(float64(c.Metrics.InterruptionCount)),
		c.Metrics.PeakEmotion,
		s.SatisfactionVerbatim,
		c.Verbatims.CriticalStatement,
		c.Verbatims.PositiveHighlight,
		s.ImprovementSuggestions,
		urgent,
	)
}
