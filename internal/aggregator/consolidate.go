package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"call-insights-go/internal/oracle"
	"call-insights-go/internal/types"
)

var errEmptyAnswer = errors.New("oracle returned no items")

// countLabels tallies non-empty labels, most frequent first, ties by name.
func countLabels(labels []string) []types.NamedCount {
	counts := map[string]int{}
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			counts[l]++
		}
	}
	out := make([]types.NamedCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, types.NamedCount{Name: name, Count: n})
	}
	sortCounts(out)
	return out
}

func sortCounts(items []types.NamedCount) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Name < items[j].Name
	})
}

func capItems(items []types.NamedCount, limit int) []types.NamedCount {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func local(items []types.NamedCount, limit int) types.Consolidation {
	return types.Consolidation{Items: nonNil(capItems(items, limit)), Source: types.SourceLocal}
}

func fallback(items []types.NamedCount, limit int, reason error) types.Consolidation {
	return types.Consolidation{Items: nonNil(capItems(items, limit)), Source: types.SourceFallback, Reason: reason.Error()}
}

// cleanAnswer drops nameless entries, merges duplicates and sorts what the
// oracle sent back.
func cleanAnswer(items []types.NamedCount, limit int) ([]types.NamedCount, error) {
	merged := map[string]int{}
	for _, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		if it.Count < 0 {
			it.Count = 0
		}
		merged[name] += it.Count
	}
	if len(merged) == 0 {
		return nil, errEmptyAnswer
	}
	out := make([]types.NamedCount, 0, len(merged))
	for name, n := range merged {
		out = append(out, types.NamedCount{Name: name, Count: n})
	}
	sortCounts(out)
	return capItems(out, limit), nil
}

// ask runs one oracle call under its own timeout and decodes the answer.
func (e *Engine) ask(ctx context.Context, prompt string, payload, v any) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.OracleTimeout)
	defer cancel()

	raw, err := e.oracle.Invoke(ctx, prompt, payload)
	if err != nil {
		return fmt.Errorf("invoke oracle: %w", err)
	}
	return oracle.Decode(raw, v)
}

// topSubjects consults the oracle only when there are enough distinct
// subjects to be worth grouping.
func (e *Engine) topSubjects(ctx context.Context, fs []facts) types.Consolidation {
	labels := make([]string, 0, len(fs))
	for _, f := range fs {
		labels = append(labels, f.subject)
	}
	counted := countLabels(labels)
	if len(counted) < e.cfg.TopicMinLabels {
		return local(counted, e.cfg.TopicCap)
	}

	var answer struct {
		TopSubjects []types.NamedCount `json:"topSubjects"`
	}
	err := e.ask(ctx, fmt.Sprintf(promptTopics, e.cfg.TopicCap), counted, &answer)
	if err == nil {
		var items []types.NamedCount
		if items, err = cleanAnswer(answer.TopSubjects, e.cfg.TopicCap); err == nil {
			return types.Consolidation{Items: items, Source: types.SourceOracle}
		}
	}
	e.log.WithError(err).WithField("consolidation", "topics").Warn("oracle consolidation failed, using local counts")
	return fallback(counted, e.cfg.TopicCap, err)
}

type actionPayload struct {
	Actions string `json:"actions"`
	Review  string `json:"review"`
}

// actionAnswer accepts the requested shape and the older French one some
// models still produce.
type actionAnswer struct {
	TopImprovement     []types.NamedCount `json:"topImprovement"`
	CommonAgentActions []types.NamedCount `json:"commonAgentActions"`

	Suggestions []struct {
		Suggestion  string `json:"suggestion"`
		Occurrences int    `json:"occurrences"`
	} `json:"suggestions_amelioration"`
	AgentActions []struct {
		Action      string `json:"action"`
		Occurrences int    `json:"occurrences"`
	} `json:"actions_agents"`
}

func (a *actionAnswer) lists() (improvements, actions []types.NamedCount, ok bool) {
	if a.TopImprovement != nil && a.CommonAgentActions != nil {
		return a.TopImprovement, a.CommonAgentActions, true
	}
	if a.Suggestions != nil && a.AgentActions != nil {
		for _, s := range a.Suggestions {
			improvements = append(improvements, types.NamedCount{Name: s.Suggestion, Count: s.Occurrences})
		}
		for _, s := range a.AgentActions {
			actions = append(actions, types.NamedCount{Name: s.Action, Count: s.Occurrences})
		}
		return improvements, actions, true
	}
	return nil, nil, false
}

// actionItems is always sent to the oracle since it summarizes, not only
// dedupes. Both lists fall back together.
func (e *Engine) actionItems(ctx context.Context, fs []facts) types.ActionItems {
	improvements, actions := localActionItems(fs)

	payload := make([]actionPayload, 0, len(fs))
	for _, f := range fs {
		payload = append(payload, actionPayload{Actions: f.actionsText, Review: f.reviewText})
	}

	var answer actionAnswer
	err := e.ask(ctx, fmt.Sprintf(promptActionItems, e.cfg.ImprovementCap, e.cfg.AgentActionCap), payload, &answer)
	if err == nil {
		imp, act, ok := answer.lists()
		if !ok {
			err = errors.New("oracle answer is missing topImprovement or commonAgentActions")
		} else {
			var cleanImp, cleanAct []types.NamedCount
			if cleanImp, err = cleanList(imp, e.cfg.ImprovementCap); err == nil {
				cleanAct, err = cleanList(act, e.cfg.AgentActionCap)
			}
			if err == nil {
				return types.ActionItems{
					TopImprovements:    types.Consolidation{Items: nonNil(cleanImp), Source: types.SourceOracle},
					CommonAgentActions: types.Consolidation{Items: nonNil(cleanAct), Source: types.SourceOracle},
				}
			}
		}
	}
	e.log.WithError(err).WithField("consolidation", "action_items").Warn("oracle extraction failed, using local counts")
	return types.ActionItems{
		TopImprovements:    fallback(improvements, e.cfg.ImprovementCap, err),
		CommonAgentActions: fallback(actions, e.cfg.AgentActionCap, err),
	}
}

// cleanList is cleanAnswer for lists that may legitimately come back empty:
// an empty list is accepted, a list with only nameless entries is not.
func cleanList(items []types.NamedCount, limit int) ([]types.NamedCount, error) {
	if len(items) == 0 {
		return nil, nil
	}
	return cleanAnswer(items, limit)
}

// localActionItems counts review suggestions and listed agent actions.
func localActionItems(fs []facts) (improvements, actions []types.NamedCount) {
	var sugg, acts []string
	for _, f := range fs {
		sugg = append(sugg, f.review.ImprovementSuggestions...)
		acts = append(acts, f.agentActions...)
	}
	return countLabels(sugg), countLabels(acts)
}

func (e *Engine) surveyImprovements(ctx context.Context, fs []facts) types.Consolidation {
	var labels []string
	for _, f := range fs {
		if items := listItems(f.improvement); len(items) > 0 {
			labels = append(labels, items...)
			continue
		}
		labels = append(labels, f.improvement)
	}
	counted := countLabels(labels)
	if len(counted) < e.cfg.TopicMinLabels {
		return local(counted, e.cfg.ImprovementCap)
	}

	var answer struct {
		TopImprovements []types.NamedCount `json:"topImprovements"`
	}
	err := e.ask(ctx, fmt.Sprintf(promptSurveyImprovements, e.cfg.ImprovementCap), counted, &answer)
	if err == nil {
		var items []types.NamedCount
		if items, err = cleanAnswer(answer.TopImprovements, e.cfg.ImprovementCap); err == nil {
			return types.Consolidation{Items: items, Source: types.SourceOracle}
		}
	}
	e.log.WithError(err).WithField("consolidation", "survey_improvements").Warn("oracle consolidation failed, using local counts")
	return fallback(counted, e.cfg.ImprovementCap, err)
}

func nonNil(items []types.NamedCount) []types.NamedCount {
	if items == nil {
		return []types.NamedCount{}
	}
	return items
}
