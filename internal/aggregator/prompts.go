package aggregator

import "call-insights-go/internal/oracle"

const analystRole = `You are a call-centre data analyst.
Reply with JSON only, no introduction, no conclusion, no markdown.`

const promptTopics = analystRole + `
Task: topic-consolidation.
The DATA below lists raw call subjects with how often each occurred. They are too fragmented.
1. Group similar subjects under one common label and add up their counts.
2. Ignore error messages entirely ("I am sorry", "impossible to determine", "no text").
3. Normalise minor variations (for example "credit transfer" and "money transfer" become "Money transfers").
4. Keep at most %d categories, using short precise labels in the language of the data.
5. Sort categories by count, highest first.
Format:
{"topSubjects":[{"name":"normalised category","count":0}]}`

const promptActionItems = analystRole + `
Task: action-items.
The DATA below holds, per call, the actions the agent took and the quality review of the call.
Extract:
1. the %d most important improvement suggestions
2. the %d most common agent actions
with how many calls each applies to.
Merge items that say the same thing in different words and add up their counts.
Ignore error messages and placeholders ("I am sorry", "N/A", "no text", empty answers).
Sort each list by count, highest first. Use EXACTLY this format:
{"topImprovement":[{"name":"suggestion","count":0}],"commonAgentActions":[{"name":"action","count":0}]}`

const promptSurveyImprovements = analystRole + `
Task: survey-improvements.
The DATA below lists improvement suggestions customers made in post-call surveys, with counts.
Group suggestions that mean the same thing and add up their counts.
Ignore error messages and placeholders ("I am sorry", "N/A", "no text").
Keep the %d most cited, sorted by count, highest first.
Format:
{"topImprovements":[{"name":"suggestion","count":0}]}`

// MockRules answers the consolidation prompts when USE_MOCK_LLM is on.
func MockRules() []oracle.Rule {
	return []oracle.Rule{
		{Match: "Task: topic-consolidation.", Reply: `{"topSubjects":[{"name":"Facturation","count":3},{"name":"Réseau","count":2}]}`},
		{Match: "Task: action-items.", Reply: `{"topImprovement":[{"name":"Reformuler la demande du client","count":2}],"commonAgentActions":[{"name":"Vérification du contrat","count":2}]}`},
		{Match: "Task: survey-improvements.", Reply: `{"topImprovements":[{"name":"Réduire le temps d'attente","count":2}]}`},
	}
}
