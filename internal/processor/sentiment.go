package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"call-insights-go/internal/oracle"
	"call-insights-go/internal/types"
)

// MaxChunkBytes bounds one sentiment request.
const MaxChunkBytes = 5000

type sentimentAnswer struct {
	Sentiment string                `json:"sentiment"`
	Scores    types.SentimentScores `json:"scores"`
}

// Sentiment scores a transcript chunk by chunk. The overall label is the one
// of the first chunk; scores are averaged across chunks.
type Sentiment struct {
	oracle oracle.Client
}

func NewSentiment(o oracle.Client) *Sentiment {
	return &Sentiment{oracle: o}
}

func (s *Sentiment) Score(ctx context.Context, transcript string) (*types.SentimentResult, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, stageErr(SourceSentiment, errors.New("transcript is empty"))
	}
	chunks := SplitByBytes(transcript, MaxChunkBytes)

	answers := make([]sentimentAnswer, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, chunk := range chunks {
		g.Go(func() error {
			raw, err := s.oracle.Invoke(gctx, sentimentPrompt, chunk)
			if err != nil {
				return err
			}
			if err := oracle.Decode(raw, &answers[i]); err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stageErr(SourceSentiment, err)
	}

	var avg types.SentimentScores
	for _, a := range answers {
		avg.Positive += a.Scores.Positive
		avg.Negative += a.Scores.Negative
		avg.Neutral += a.Scores.Neutral
		avg.Mixed += a.Scores.Mixed
	}
	n := float64(len(answers))
	avg.Positive /= n
	avg.Negative /= n
	avg.Neutral /= n
	avg.Mixed /= n

	return &types.SentimentResult{
		Overall: types.ParseSentimentLabel(answers[0].Sentiment),
		Scores:  avg,
	}, nil
}

// SplitByBytes cuts text into chunks of at most maxBytes bytes without
// splitting a UTF-8 sequence.
func SplitByBytes(text string, maxBytes int) []string {
	var chunks []string
	start, size := 0, 0
	for i := 0; i < len(text); {
		_, n := utf8.DecodeRuneInString(text[i:])
		if size+n > maxBytes && size > 0 {
			chunks = append(chunks, text[start:i])
			start, size = i, 0
		}
		size += n
		i += n
	}
	if size > 0 {
		chunks = append(chunks, text[start:])
	}
	return chunks
}
