package processor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"call-insights-go/internal/oracle"
	"call-insights-go/internal/types"
)

func TestSplitByBytes(t *testing.T) {
	assert.Empty(t, SplitByBytes("", 10))
	assert.Equal(t, []string{"abc"}, SplitByBytes("abc", 10))
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, SplitByBytes("abcdefghij", 4))

	// é is two bytes and must never be split
	text := strings.Repeat("é", 7)
	chunks := SplitByBytes(text, 5)
	require.Len(t, chunks, 4)
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c))
		assert.LessOrEqual(t, len(c), 5)
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSentimentAveragesChunks(t *testing.T) {
	var mu sync.Mutex
	replies := map[string]string{
		"a": `{"sentiment":"negative","scores":{"positive":0.2,"negative":0.6,"neutral":0.2,"mixed":0}}`,
		"b": `{"sentiment":"POSITIVE","scores":{"positive":0.8,"negative":0,"neutral":0.2,"mixed":0}}`,
	}
	client := oracle.ClientFunc(func(_ context.Context, _ string, payload any) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		return replies[string(payload.(string)[0])], nil
	})

	text := strings.Repeat("a", MaxChunkBytes) + "b"
	res, err := NewSentiment(client).Score(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, types.SentimentNegative, res.Overall)
	assert.InDelta(t, 0.5, res.Scores.Positive, 1e-9)
	assert.InDelta(t, 0.3, res.Scores.Negative, 1e-9)
	assert.InDelta(t, 0.2, res.Scores.Neutral, 1e-9)
}

func TestSentimentFailuresAreStageErrors(t *testing.T) {
	_, err := NewSentiment(&oracle.Mock{}).Score(context.Background(), "  ")
	se, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, SourceSentiment, se.Source)

	_, err = NewSentiment(&oracle.Mock{Default: "I cannot tell"}).Score(context.Background(), "hello")
	se, ok = AsStageError(err)
	require.True(t, ok)
	assert.ErrorIs(t, err, oracle.ErrNoJSON)
	assert.Equal(t, SourceSentiment, se.Source)
}

func TestAnalyzeEntryCall(t *testing.T) {
	a := NewAnalyzer(&oracle.Mock{Rules: MockRules()}, 3)
	res, err := a.Analyze(context.Background(), types.CampaignEntryCall, "transcript")
	require.NoError(t, err)
	require.NotNil(t, res.EntryCall)
	assert.Nil(t, res.Survey)

	e := res.EntryCall
	assert.Equal(t, "Oui", e.CallbackRequired)
	assert.Equal(t, "Partiellement", e.ResolutionStatus)
	assert.Equal(t, "Réclamation facturation", e.Subject)
	assert.Contains(t, e.QualityReview, `"global_score_out_of_10":7`)
}

func TestAnalyzeUnknownTypeIsEntryCall(t *testing.T) {
	a := NewAnalyzer(&oracle.Mock{Rules: MockRules()}, 0)
	res, err := a.Analyze(context.Background(), types.CampaignType("Outbound"), "t")
	require.NoError(t, err)
	assert.NotNil(t, res.EntryCall)
}

func TestAnalyzeSurvey(t *testing.T) {
	a := NewAnalyzer(&oracle.Mock{Rules: MockRules()}, 4)
	res, err := a.Analyze(context.Background(), types.CampaignPostCallSurvey, "t")
	require.NoError(t, err)
	require.NotNil(t, res.Survey)

	s := res.Survey
	assert.Equal(t, "9", s.NetPromoter)
	assert.Equal(t, "4", s.Satisfaction)
	assert.Equal(t, "Agent très aimable.", s.SatisfactionVerbatim)
	require.NotNil(t, s.Conversation)
	assert.Equal(t, "LOW", s.Conversation.Risk.ChurnRiskLevel)
	assert.InDelta(t, 0.2, s.Conversation.Risk.ChurnProbability, 1e-9)
}

func TestAnalyzeSurveyMalformedConversation(t *testing.T) {
	rules := append([]oracle.Rule{{Match: "Task: survey-conversation-analysis.", Reply: "not json"}}, MockRules()...)
	_, err := NewAnalyzer(&oracle.Mock{Rules: rules}, 2).Survey(context.Background(), "t")
	se, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, SourceSurvey, se.Source)
}

func TestAnalyzeOracleErrorIsStageError(t *testing.T) {
	_, err := NewAnalyzer(&oracle.Mock{Err: errors.New("throttled")}, 2).EntryCall(context.Background(), "t")
	se, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, SourceEntryCall, se.Source)
	assert.Contains(t, err.Error(), "throttled")
}

func TestCleanAnswer(t *testing.T) {
	cases := map[string]string{
		"Voici **le résumé**":             "le résumé",
		"Points:\n- un\n- deux":           "Points: • un • deux",
		"Étapes\n1. ouvrir\n2. fermer":    "Étapes | ouvrir | fermer",
		"## Titre\ntexte   long":          "Titre texte long",
		"voir [doc](http://x) ```code```": "voir doc",
		"<ul><li>a</li></ul>":             "<ul><li>a</li></ul>",
	}
	for in, want := range cases {
		assert.Equal(t, want, cleanAnswer(in), in)
	}
}
