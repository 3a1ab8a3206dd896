package processor

// System framing shared by every analysis prompt.
const analystRole = `You are a quality manager specialised in customer experience (CX).
Answer in the language of the transcript, professionally and directly, without introduction
and without markdown. For lists use HTML tags only (<ul>, <li>, <ol>).`

const sentimentPrompt = `Task: sentiment.
Classify the overall sentiment of the customer in the call excerpt below.
Return ONLY JSON:
{"sentiment":"POSITIVE|NEGATIVE|NEUTRAL|MIXED","scores":{"positive":0.0,"negative":0.0,"neutral":0.0,"mixed":0.0}}
Scores are probabilities between 0 and 1 that sum to 1.`

// Entry call prompts, one model call each.
const (
	promptAgentActions = analystRole + `
Task: agent-actions.
List the concrete actions the agent took during the call.`

	promptQualityEvaluation = analystRole + `
Task: quality-evaluation.
Evaluate the quality of the agent's handling of the call: listening, accuracy of the
information given and ownership of the problem.`

	promptPoliteness = analystRole + `
Task: politeness.
Was the agent polite and professional? Answer "Professionnel" or "Non professionnel",
followed by one short justification.`

	promptProduct = analystRole + `
Task: product.
Identify the product or service the customer called about. Answer with the product name only.`

	promptSubject = analystRole + `
Task: subject.
Identify the main subject of the call in a short label of at most five words
(for example: billing dispute, delivery delay, contract termination).`

	promptCallback = analystRole + `
Task: callback.
Does this call require a callback to the customer? Answer "Oui" or "Non" only.`

	promptCustomerProblem = analystRole + `
Task: customer-problem.
Describe the customer's problem in one or two sentences.`

	promptConversationResults = analystRole + `
Task: conversation-results.
Describe the outcome of the conversation: what was decided and what remains open.`

	promptSummary = analystRole + `
Task: summary.
Summarise the call in three sentences at most.`

	promptResolution = analystRole + `
Task: resolution.
Was the customer's request resolved? Answer "Oui", "Partiellement" or "Non" only.`

	promptQualityReview = `Task: quality-review.
Review the call and return ONLY JSON with this exact shape:
{
  "global_score_out_of_10": 0,
  "clarity_concision": {"value": true},
  "call_too_long": {"value": false},
  "repetitions_detected": {"value": false},
  "optimal_duration_minutes": 0,
  "improvement_suggestions": ["..."]
}`
)

// Post-call survey prompts.
const (
	promptSatisfaction = analystRole + `
Task: survey-satisfaction.
What overall satisfaction score from 1 to 5 did the customer give? Answer with the number only,
or "N/A" if the customer did not answer.`

	promptTimeAdequacy = analystRole + `
Task: survey-time-adequacy.
What score from 1 to 5 did the customer give to the time taken to handle the request?
Answer with the number only, or "N/A".`

	promptAssistanceAdequacy = analystRole + `
Task: survey-assistance-adequacy.
What score from 1 to 5 did the customer give to the adequacy of the assistance received?
Answer with the number only, or "N/A".`

	promptEaseOfResponse = analystRole + `
Task: survey-ease.
What score from 1 to 5 did the customer give to how easy it was to get an answer?
Answer with the number only, or "N/A".`

	promptNetPromoter = analystRole + `
Task: survey-nps.
On a scale from 0 to 10, how likely is the customer to recommend us, as they answered?
Answer with the number only, or "N/A".`

	promptSatisfactionVerbatim = analystRole + `
Task: survey-satisfaction-verbatim.
Quote what the customer said they were satisfied with.`

	promptDissatisfactionVerbatim = analystRole + `
Task: survey-dissatisfaction-verbatim.
Quote what the customer said they were dissatisfied with.`

	promptSurveyResolution = analystRole + `
Task: survey-resolution.
Does the customer consider their request resolved? Answer "Oui", "Partiellement" or "Non" only.`

	promptImprovement = analystRole + `
Task: survey-improvement.
What is the main improvement the customer suggests? One short sentence.`

	promptConversationAnalysis = `Task: survey-conversation-analysis.
Analyse the conversation and return ONLY JSON with this exact shape:
{
  "risk_assessment": {"churn_risk_level": "LOW|MEDIUM|HIGH", "churn_probability": 0.0, "urgent_callback_required": false},
  "conversation_metrics": {"dominant_sentiment": "POSITIVE|NEGATIVE|NEUTRAL|MIXED", "agent_talk_ratio": 0.0, "interruption_count": 0, "peak_emotion": ""},
  "verbatims": {"critical_statement": "", "positive_highlight": ""}
}
churn_probability is between 0 and 1.`
)
