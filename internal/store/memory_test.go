package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"call-insights-go/internal/types"
)

func newUnit(campaign, audio string) *types.AudioUnit {
	return &types.AudioUnit{
		CampaignID: campaign,
		AudioID:    audio,
		FileName:   audio,
		Stage:      types.StageRegistered,
	}
}

func TestMemoryCampaigns(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	_, err := s.GetCampaign(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	older := &types.Campaign{ID: "a", Name: "A", CreatedAt: time.Unix(100, 0)}
	newer := &types.Campaign{ID: "b", Name: "B", CreatedAt: time.Unix(200, 0)}
	require.NoError(t, s.PutCampaign(ctx, older))
	require.NoError(t, s.PutCampaign(ctx, newer))

	got, err := s.GetCampaign(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)

	list, err := s.ListCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
}

func TestMemoryInsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	created, err := s.InsertAudioUnit(ctx, newUnit("c1", "x.wav"))
	require.NoError(t, err)
	assert.True(t, created)

	dup := newUnit("c1", "x.wav")
	dup.Stage = types.StageComplete
	created, err = s.InsertAudioUnit(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := s.GetAudioUnit(ctx, types.UnitKey{CampaignID: "c1", AudioID: "x.wav"})
	require.NoError(t, err)
	assert.Equal(t, types.StageRegistered, got.Stage)
}

func TestMemoryAttachExecution(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	key := types.UnitKey{CampaignID: "c1", AudioID: "x.wav"}

	_, _, err := s.AttachExecution(ctx, key, "ref-0")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.InsertAudioUnit(ctx, newUnit("c1", "x.wav"))
	require.NoError(t, err)

	u, attached, err := s.AttachExecution(ctx, key, "ref-1")
	require.NoError(t, err)
	assert.True(t, attached)
	assert.Equal(t, "ref-1", u.ExecutionRef)
	assert.Equal(t, types.StageRunning, u.Stage)

	u, attached, err = s.AttachExecution(ctx, key, "ref-2")
	require.NoError(t, err)
	assert.False(t, attached)
	assert.Equal(t, "ref-1", u.ExecutionRef)
}

func TestMemoryAttachKeepsTerminalStage(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	key := types.UnitKey{CampaignID: "c1", AudioID: "x.wav"}
	_, err := s.InsertAudioUnit(ctx, newUnit("c1", "x.wav"))
	require.NoError(t, err)

	_, err = s.UpdateAudioUnit(ctx, key, func(u *types.AudioUnit) error {
		u.Stage = types.StageComplete
		return nil
	})
	require.NoError(t, err)

	u, attached, err := s.AttachExecution(ctx, key, "ref-1")
	require.NoError(t, err)
	assert.True(t, attached)
	assert.Equal(t, types.StageComplete, u.Stage)
}

func TestMemoryAttachRace(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	key := types.UnitKey{CampaignID: "c1", AudioID: "x.wav"}
	_, err := s.InsertAudioUnit(ctx, newUnit("c1", "x.wav"))
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, attached, err := s.AttachExecution(ctx, key, "ref")
			if err == nil && attached {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestMemoryUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	key := types.UnitKey{CampaignID: "c1", AudioID: "x.wav"}

	_, err := s.UpdateAudioUnit(ctx, key, func(*types.AudioUnit) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.InsertAudioUnit(ctx, newUnit("c1", "x.wav"))
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = s.UpdateAudioUnit(ctx, key, func(u *types.AudioUnit) error {
		u.Stage = types.StageFailed
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetAudioUnit(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, types.StageRegistered, got.Stage)

	updated, err := s.UpdateAudioUnit(ctx, key, func(u *types.AudioUnit) error {
		u.Analysis = &types.Analysis{Transcript: "hello"}
		u.AudioID = "ignored"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "x.wav", updated.AudioID)
	assert.Equal(t, "hello", updated.Analysis.Transcript)

	// callers cannot mutate stored state through returned pointers
	updated.Analysis.Transcript = "changed"
	got, err = s.GetAudioUnit(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Analysis.Transcript)
}

func TestMemoryListAudioUnits(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	for _, id := range []string{"b.wav", "a.wav", "c.wav"} {
		_, err := s.InsertAudioUnit(ctx, newUnit("c1", id))
		require.NoError(t, err)
	}
	_, err := s.InsertAudioUnit(ctx, newUnit("c2", "z.wav"))
	require.NoError(t, err)

	_, err = s.UpdateAudioUnit(ctx, types.UnitKey{CampaignID: "c1", AudioID: "c.wav"}, func(u *types.AudioUnit) error {
		u.Stage = types.StageComplete
		return nil
	})
	require.NoError(t, err)

	all, err := s.ListAudioUnits(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a.wav", all[0].AudioID)
	assert.Equal(t, "c.wav", all[2].AudioID)

	done, err := s.ListAudioUnits(ctx, "c1", types.StageComplete)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "c.wav", done[0].AudioID)

	none, err := s.ListAudioUnits(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, none)
}
