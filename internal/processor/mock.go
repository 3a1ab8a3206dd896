package processor

import "call-insights-go/internal/oracle"

// MockRules answers every stage prompt with a plausible fixed reply. Used
// when USE_MOCK_LLM is on.
func MockRules() []oracle.Rule {
	return []oracle.Rule{
		{Match: "Task: sentiment.", Reply: `{"sentiment":"NEGATIVE","scores":{"positive":0.1,"negative":0.7,"neutral":0.15,"mixed":0.05}}`},
		{Match: "Task: agent-actions.", Reply: "<ul><li>Vérification du contrat</li><li>Proposition d'un geste commercial</li></ul>"},
		{Match: "Task: quality-evaluation.", Reply: "Écoute correcte, informations exactes."},
		{Match: "Task: politeness.", Reply: "Professionnel"},
		{Match: "Task: product.", Reply: "Forfait mobile"},
		{Match: "Task: subject.", Reply: "Réclamation facturation"},
		{Match: "Task: callback.", Reply: "Oui"},
		{Match: "Task: customer-problem.", Reply: "Le client conteste une facture."},
		{Match: "Task: conversation-results.", Reply: "Remboursement promis sous 10 jours."},
		{Match: "Task: summary.", Reply: "Le client appelle pour une erreur de facturation. L'agent propose un remboursement."},
		{Match: "Task: resolution.", Reply: "Partiellement"},
		{Match: "Task: quality-review.", Reply: `{"global_score_out_of_10":7,"clarity_concision":{"value":true},"call_too_long":{"value":false},"repetitions_detected":{"value":false},"optimal_duration_minutes":5,"improvement_suggestions":["Reformuler la demande du client"]}`},
		{Match: "Task: survey-satisfaction.", Reply: "4"},
		{Match: "Task: survey-time-adequacy.", Reply: "3"},
		{Match: "Task: survey-assistance-adequacy.", Reply: "4"},
		{Match: "Task: survey-ease.", Reply: "5"},
		{Match: "Task: survey-nps.", Reply: "9"},
		{Match: "Task: survey-satisfaction-verbatim.", Reply: "Agent très aimable."},
		{Match: "Task: survey-dissatisfaction-verbatim.", Reply: "Attente trop longue."},
		{Match: "Task: survey-resolution.", Reply: "Oui"},
		{Match: "Task: survey-improvement.", Reply: "Réduire le temps d'attente."},
		{Match: "Task: survey-conversation-analysis.", Reply: `{"risk_assessment":{"churn_risk_level":"LOW","churn_probability":0.2,"urgent_callback_required":false},"conversation_metrics":{"dominant_sentiment":"POSITIVE","agent_talk_ratio":0.4,"interruption_count":1,"peak_emotion":"relief"},"verbatims":{"critical_statement":"","positive_highlight":"Merci beaucoup"}}`},
	}
}
