package processor

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"call-insights-go/internal/oracle"
	"call-insights-go/internal/types"
)

// question is one prompt whose cleaned answer lands in *dst.
type question struct {
	name   string
	prompt string
	dst    *string
	// raw keeps the answer as JSON instead of flattening it
	raw bool
}

// Analyzer runs the type-specific LLM analysis of a transcript.
type Analyzer struct {
	oracle      oracle.Client
	parallelism int
}

func NewAnalyzer(o oracle.Client, parallelism int) *Analyzer {
	if parallelism <= 0 {
		parallelism = 4
	}
	return &Analyzer{oracle: o, parallelism: parallelism}
}

// Analyze dispatches on the campaign type. Unknown types get the entry call
// analysis.
func (a *Analyzer) Analyze(ctx context.Context, ct types.CampaignType, transcript string) (*types.Analysis, error) {
	if ct.IsSurvey() {
		s, err := a.Survey(ctx, transcript)
		if err != nil {
			return nil, err
		}
		return &types.Analysis{Survey: s}, nil
	}
	e, err := a.EntryCall(ctx, transcript)
	if err != nil {
		return nil, err
	}
	return &types.Analysis{EntryCall: e}, nil
}

func (a *Analyzer) EntryCall(ctx context.Context, transcript string) (*types.EntryCallAnalysis, error) {
	var out types.EntryCallAnalysis
	qs := []question{
		{name: "agent_actions", prompt: promptAgentActions, dst: &out.AgentActions},
		{name: "quality_evaluation", prompt: promptQualityEvaluation, dst: &out.QualityEvaluation},
		{name: "politeness", prompt: promptPoliteness, dst: &out.Politeness},
		{name: "product", prompt: promptProduct, dst: &out.Product},
		{name: "subject", prompt: promptSubject, dst: &out.Subject},
		{name: "callback_required", prompt: promptCallback, dst: &out.CallbackRequired},
		{name: "customer_problem", prompt: promptCustomerProblem, dst: &out.CustomerProblem},
		{name: "conversation_results", prompt: promptConversationResults, dst: &out.ConversationResults},
		{name: "summary", prompt: promptSummary, dst: &out.Summary},
		{name: "resolution_status", prompt: promptResolution, dst: &out.ResolutionStatus},
		{name: "quality_review", prompt: promptQualityReview, dst: &out.QualityReview, raw: true},
	}
	if err := a.ask(ctx, transcript, qs); err != nil {
		return nil, stageErr(SourceEntryCall, err)
	}
	return &out, nil
}

func (a *Analyzer) Survey(ctx context.Context, transcript string) (*types.SurveyAnalysis, error) {
	var (
		out          types.SurveyAnalysis
		conversation string
	)
	qs := []question{
		{name: "satisfaction", prompt: promptSatisfaction, dst: &out.Satisfaction},
		{name: "time_adequacy", prompt: promptTimeAdequacy, dst: &out.TimeAdequacy},
		{name: "assistance_adequacy", prompt: promptAssistanceAdequacy, dst: &out.AssistanceAdequacy},
		{name: "ease_of_response", prompt: promptEaseOfResponse, dst: &out.EaseOfResponse},
		{name: "net_promoter", prompt: promptNetPromoter, dst: &out.NetPromoter},
		{name: "satisfaction_verbatim", prompt: promptSatisfactionVerbatim, dst: &out.SatisfactionVerbatim},
		{name: "dissatisfaction_verbatim", prompt: promptDissatisfactionVerbatim, dst: &out.DissatisfactionVerbatim},
		{name: "resolution_status", prompt: promptSurveyResolution, dst: &out.ResolutionStatus},
		{name: "improvement_suggestions", prompt: promptImprovement, dst: &out.ImprovementSuggestions},
		{name: "conversation_analysis", prompt: promptConversationAnalysis, dst: &conversation, raw: true},
	}
	if err := a.ask(ctx, transcript, qs); err != nil {
		return nil, stageErr(SourceSurvey, err)
	}

	var conv types.ConversationAnalysis
	if err := oracle.Decode(conversation, &conv); err != nil {
		return nil, stageErr(SourceSurvey, fmt.Errorf("conversation_analysis: %w", err))
	}
	out.Conversation = &conv
	return &out, nil
}

func (a *Analyzer) ask(ctx context.Context, transcript string, qs []question) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism)
	for _, q := range qs {
		g.Go(func() error {
			answer, err := a.oracle.Invoke(gctx, q.prompt, transcript)
			if err != nil {
				return fmt.Errorf("%s: %w", q.name, err)
			}
			if q.raw {
				if doc := oracle.ExtractJSON(answer); doc != "" {
					answer = doc
				}
				*q.dst = answer
				return nil
			}
			*q.dst = cleanAnswer(answer)
			return nil
		})
	}
	return g.Wait()
}
