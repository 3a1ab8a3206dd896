package aggregator

import (
	"math"

	"call-insights-go/internal/types"
)

func sentimentDistribution(fs []facts) types.SentimentDistribution {
	var (
		d      types.SentimentDistribution
		totals types.SentimentScores
	)
	for _, f := range fs {
		countSentiment(&d.Counts, f.sentiment)
		totals.Positive += f.scores.Positive
		totals.Negative += f.scores.Negative
		totals.Neutral += f.scores.Neutral
		totals.Mixed += f.scores.Mixed
	}
	n := len(fs)
	d.Percentages = types.SentimentShares{
		Positive: percent(d.Counts.Positive, n),
		Negative: percent(d.Counts.Negative, n),
		Neutral:  percent(d.Counts.Neutral, n),
		Mixed:    percent(d.Counts.Mixed, n),
	}
	if n > 0 {
		avg := func(sum float64) float64 { return round1(sum / float64(n) * 100) }
		d.AverageScores = types.SentimentShares{
			Positive: avg(totals.Positive),
			Negative: avg(totals.Negative),
			Neutral:  avg(totals.Neutral),
			Mixed:    avg(totals.Mixed),
		}
	}
	return d
}

func countSentiment(c *types.SentimentCounts, l types.SentimentLabel) {
	switch l {
	case types.SentimentPositive:
		c.Positive++
	case types.SentimentNegative:
		c.Negative++
	case types.SentimentMixed:
		c.Mixed++
	default:
		c.Neutral++
	}
}

// resolutionStatus divides by the number of units, not by the number of
// usable answers.
func resolutionStatus(fs []facts) types.ResolutionStatus {
	var r types.ResolutionStatus
	for _, f := range fs {
		switch f.resolution {
		case resolved:
			r.Resolved++
		case partiallyResolved:
			r.PartiallyResolved++
		default:
			r.Unresolved++
		}
		if f.callback {
			r.CallbackRequired.Count++
		}
	}
	n := len(fs)
	r.Percentages = types.ResolutionShares{
		Resolved:          percent(r.Resolved, n),
		PartiallyResolved: percent(r.PartiallyResolved, n),
		Unresolved:        percent(r.Unresolved, n),
	}
	r.CallbackRequired.Percentage = percent(r.CallbackRequired.Count, n)
	return r
}

func qualityMetrics(fs []facts) types.QualityMetrics {
	var (
		q     types.QualityMetrics
		total float64
	)
	for _, f := range fs {
		if f.review.Score.Valid {
			total += f.review.Score.Value
			q.ScoredCalls++
		}
		if f.polite {
			q.Politeness.Count++
		}
		if f.review.Clarity.Value {
			q.Clarity.Count++
		}
		if f.review.CallTooLong.Value {
			q.CallsTooLong.Count++
		}
		if f.review.Repetitions.Value {
			q.Repetitions.Count++
		}
	}
	if q.ScoredCalls > 0 {
		q.AverageQualityScore = round1(total / float64(q.ScoredCalls))
	}
	n := len(fs)
	q.Politeness.Percentage = percent(q.Politeness.Count, n)
	q.Clarity.Percentage = percent(q.Clarity.Count, n)
	q.CallsTooLong.Percentage = percent(q.CallsTooLong.Count, n)
	q.Repetitions.Percentage = percent(q.Repetitions.Count, n)
	return q
}

// nps classifies 9-10 as promoters, 7-8 as passives and 0-6 as detractors.
// Out-of-range numbers count as valid but land in no bucket.
func nps(fs []facts) types.NPSResult {
	r := types.NPSResult{TotalResponses: len(fs)}
	for _, f := range fs {
		if !f.npsValid {
			continue
		}
		r.ValidResponses++
		switch {
		case f.nps >= 9 && f.nps <= 10:
			r.Promoters++
		case f.nps >= 7 && f.nps <= 8:
			r.Passives++
		case f.nps >= 0 && f.nps <= 6:
			r.Detractors++
		}
	}
	if r.ValidResponses == 0 {
		r.NoData = true
		return r
	}
	p := float64(r.Promoters) / float64(r.ValidResponses) * 100
	d := float64(r.Detractors) / float64(r.ValidResponses) * 100
	r.Score = roundInt(p - d)
	r.PromotersPercentage = percent(r.Promoters, r.ValidResponses)
	r.PassivesPercentage = percent(r.Passives, r.ValidResponses)
	r.DetractorsPercentage = percent(r.Detractors, r.ValidResponses)
	return r
}

// csat classifies a 1-5 score: 4 and above satisfied, 3 neutral, the rest
// dissatisfied.
func csat(fs []facts) types.CSATResult {
	r := types.CSATResult{TotalResponses: len(fs)}
	for _, f := range fs {
		if !f.csatValid {
			continue
		}
		r.ValidResponses++
		switch {
		case f.csat >= 4:
			r.Satisfied++
		case f.csat == 3:
			r.Neutral++
		default:
			r.Dissatisfied++
		}
	}
	if r.ValidResponses == 0 {
		r.NoData = true
		return r
	}
	r.Score = roundInt(float64(r.Satisfied) / float64(r.ValidResponses) * 100)
	r.SatisfiedPercentage = percent(r.Satisfied, r.ValidResponses)
	r.NeutralPercentage = percent(r.Neutral, r.ValidResponses)
	r.DissatisfiedPercentage = percent(r.Dissatisfied, r.ValidResponses)
	return r
}

func churnRisk(fs []facts) types.ChurnRisk {
	c := types.ChurnRisk{Levels: map[string]int{}}
	var total float64
	for _, f := range fs {
		if f.churnValid {
			c.ValidResponses++
			total += f.churnProb
		}
		if f.churnLevel != "" {
			c.Levels[f.churnLevel]++
		}
		if f.urgent {
			c.UrgentCallbacks.Count++
		}
	}
	if c.ValidResponses > 0 {
		c.AverageProbability = round2(total / float64(c.ValidResponses))
	}
	c.UrgentCallbacks.Percentage = percent(c.UrgentCallbacks.Count, len(fs))
	return c
}

// average returns the two-decimal mean of the valid values picked from fs.
func average(fs []facts, pick func(facts) (float64, bool)) float64 {
	var (
		sum float64
		n   int
	)
	for _, f := range fs {
		if v, ok := pick(f); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return round2(sum / float64(n))
}

func sentimentVolume(fs []facts) types.SentimentCounts {
	var c types.SentimentCounts
	for _, f := range fs {
		countSentiment(&c, f.dominant)
	}
	return c
}

func roundInt(f float64) int {
	return int(math.Round(f))
}
