package aggregator

import (
	"strings"

	"call-insights-go/internal/report"
	"call-insights-go/internal/types"
)

// facts is everything the metrics need from one unit, extracted once.
type facts struct {
	audioID   string
	sentiment types.SentimentLabel
	scores    types.SentimentScores

	// entry call
	subject      string
	resolution   resolution
	callback     bool
	polite       bool
	review       types.QualityReview
	agentActions []string
	actionsText  string
	reviewText   string

	// survey
	nps          int
	npsValid     bool
	csat         int
	csatValid    bool
	ease         float64
	easeValid    bool
	assistance   float64
	assistValid  bool
	timeAdequacy float64
	timeValid    bool
	churnLevel   string
	churnProb    float64
	churnValid   bool
	urgent       bool
	dominant     types.SentimentLabel
	improvement  string
}

func (e *Engine) extract(u *types.AudioUnit) facts {
	f := facts{audioID: u.AudioID, sentiment: types.SentimentNeutral, dominant: types.SentimentNeutral}
	a := u.Analysis
	if a == nil {
		f.resolution = unresolved
		return f
	}
	if a.Sentiment != nil {
		f.sentiment = types.ParseSentimentLabel(string(a.Sentiment.Overall))
		f.scores = a.Sentiment.Scores
	}

	if ec := a.EntryCall; ec != nil {
		f.subject = strings.TrimSpace(ec.Subject)
		f.resolution = classifyResolution(ec.ResolutionStatus, e.cfg.YesTokens, e.cfg.PartialTokens)
		f.callback = containsAny(ec.CallbackRequired, e.cfg.YesTokens)
		f.polite = report.IsPolite(ec.Politeness)
		f.review = types.ParseQualityReview(ec.QualityReview)
		f.agentActions = listItems(ec.AgentActions)
		f.actionsText = ec.AgentActions
		f.reviewText = ec.QualityReview
	}

	if s := a.Survey; s != nil {
		f.nps, f.npsValid = parseLeadingInt(s.NetPromoter)
		f.csat, f.csatValid = parseLeadingInt(s.Satisfaction)
		f.ease, f.easeValid = parseLeadingFloat(s.EaseOfResponse)
		f.assistance, f.assistValid = parseLeadingFloat(s.AssistanceAdequacy)
		f.timeAdequacy, f.timeValid = parseLeadingFloat(s.TimeAdequacy)
		f.resolution = classifyResolution(s.ResolutionStatus, e.cfg.YesTokens, e.cfg.PartialTokens)
		f.improvement = strings.TrimSpace(s.ImprovementSuggestions)
		if c := s.Conversation; c != nil {
			f.churnLevel = strings.ToUpper(strings.TrimSpace(c.Risk.ChurnRiskLevel))
			f.churnProb = c.Risk.ChurnProbability
			f.churnValid = true
			f.urgent = c.Risk.UrgentCallbackRequired
			f.dominant = types.ParseSentimentLabel(c.Metrics.DominantSentiment)
		}
	}
	return f
}
