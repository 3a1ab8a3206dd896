package actionable

import (
	"fmt"

	"call-insights-go/internal/types"
)

// Thresholds above which a KPI earns an action card.
const (
	unresolvedRate   = 35.0
	callbackRate     = 30.0
	lowQualityScore  = 6.0
	churnProbability = 0.5
	dissatisfiedRate = 30.0
)

// Generate turns a KPI report into action cards, worst signal first. A
// report with nothing alarming still gets a single monitoring card.
func Generate(r *types.KPIReport) []types.ActionCard {
	var cards []types.ActionCard
	if r == nil {
		return monitor()
	}
	if e := r.EntryCall; e != nil {
		cards = append(cards, entryCallCards(e)...)
	}
	if s := r.Survey; s != nil {
		cards = append(cards, surveyCards(s)...)
	}
	if len(cards) == 0 {
		return monitor()
	}
	return cards
}

func entryCallCards(e *types.EntryCallKPIs) []types.ActionCard {
	var cards []types.ActionCard
	if p := e.Resolution.Percentages.Unresolved; p >= unresolvedRate {
		insight := fmt.Sprintf("%.0f%% of calls end unresolved", p)
		if top := first(e.TopSubjects); top != "" {
			insight += fmt.Sprintf(", top subject: %s", top)
		}
		cards = append(cards, types.ActionCard{
			Insight: insight,
			Action:  "Review the resolution playbook for the leading subjects and widen first-level agent permissions",
			Impact:  "Fewer repeat calls and escalations",
		})
	}
	if p := e.Resolution.CallbackRequired.Percentage; p >= callbackRate {
		cards = append(cards, types.ActionCard{
			Insight: fmt.Sprintf("%.0f%% of calls need a callback", p),
			Action:  "Schedule proactive callbacks and track them to closure",
			Impact:  "Lower churn on open cases",
		})
	}
	if q := e.Quality; q.ScoredCalls > 0 && q.AverageQualityScore < lowQualityScore {
		action := "Coach agents on call structure and active listening"
		if imp := first(e.ActionItems.TopImprovements); imp != "" {
			action = fmt.Sprintf("Coach agents, starting with: %s", imp)
		}
		cards = append(cards, types.ActionCard{
			Insight: fmt.Sprintf("Average call quality is %.1f/10", q.AverageQualityScore),
			Action:  action,
			Impact:  "Better customer experience per call",
		})
	}
	return cards
}

func surveyCards(s *types.SurveyKPIs) []types.ActionCard {
	var cards []types.ActionCard
	if s.NPS.ValidResponses > 0 && s.NPS.Score < 0 {
		cards = append(cards, types.ActionCard{
			Insight: fmt.Sprintf("NPS is negative (%d), detractors at %.0f%%", s.NPS.Score, s.NPS.DetractorsPercentage),
			Action:  "Call back detractors and address their top complaint",
			Impact:  "Recover at-risk customers",
		})
	}
	if s.CSAT.ValidResponses > 0 && s.CSAT.DissatisfiedPercentage >= dissatisfiedRate {
		action := "Audit dissatisfied calls for recurring causes"
		if imp := first(s.TopImprovements); imp != "" {
			action = fmt.Sprintf("Act on the most cited improvement: %s", imp)
		}
		cards = append(cards, types.ActionCard{
			Insight: fmt.Sprintf("%.0f%% of respondents are dissatisfied", s.CSAT.DissatisfiedPercentage),
			Action:  action,
			Impact:  "Higher CSAT",
		})
	}
	if c := s.ChurnRisk; c.ValidResponses > 0 && c.AverageProbability >= churnProbability {
		cards = append(cards, types.ActionCard{
			Insight: fmt.Sprintf("Average churn probability is %.2f, %d urgent callbacks", c.AverageProbability, c.UrgentCallbacks.Count),
			Action:  "Route urgent callbacks to a retention team within 24h",
			Impact:  "Reduce churn",
		})
	}
	return cards
}

func first(c types.Consolidation) string {
	if len(c.Items) == 0 {
		return ""
	}
	return c.Items[0].Name
}

func monitor() []types.ActionCard {
	return []types.ActionCard{{
		Insight: "No strong negative pattern detected",
		Action:  "Monitor and collect more data",
		Impact:  "Low immediate intervention",
	}}
}
