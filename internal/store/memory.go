package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"call-insights-go/internal/types"
)

// Memory is a process-local Store used for development and tests.
type Memory struct {
	mu        sync.RWMutex
	campaigns map[string]types.Campaign
	units     map[types.UnitKey]types.AudioUnit
	now       func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		campaigns: make(map[string]types.Campaign),
		units:     make(map[types.UnitKey]types.AudioUnit),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) PutCampaign(_ context.Context, c *types.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.campaigns[c.ID] = *c
	return nil
}

func (m *Memory) GetCampaign(_ context.Context, id string) (*types.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *Memory) ListCampaigns(_ context.Context) ([]types.Campaign, error) {
	m.mu.RLock()
	out := make([]types.Campaign, 0, len(m.campaigns))
	for _, c := range m.campaigns {
		out = append(out, c)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) InsertAudioUnit(_ context.Context, u *types.AudioUnit) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := u.Key()
	if _, ok := m.units[key]; ok {
		return false, nil
	}
	m.units[key] = cloneUnit(*u)
	return true, nil
}

func (m *Memory) GetAudioUnit(_ context.Context, key types.UnitKey) (*types.AudioUnit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.units[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneUnit(u)
	return &out, nil
}

func (m *Memory) AttachExecution(_ context.Context, key types.UnitKey, ref string) (*types.AudioUnit, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[key]
	if !ok {
		return nil, false, ErrNotFound
	}
	if u.ExecutionRef != "" {
		out := cloneUnit(u)
		return &out, false, nil
	}
	u.ExecutionRef = ref
	if u.Stage == types.StageRegistered {
		u.Stage = types.StageRunning
	}
	u.UpdatedAt = m.now()
	m.units[key] = u
	out := cloneUnit(u)
	return &out, true, nil
}

func (m *Memory) UpdateAudioUnit(_ context.Context, key types.UnitKey, fn UpdateFunc) (*types.AudioUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.units[key]
	if !ok {
		return nil, ErrNotFound
	}
	next := cloneUnit(cur)
	if err := fn(&next); err != nil {
		return nil, err
	}
	next.CampaignID, next.AudioID = key.CampaignID, key.AudioID
	next.UpdatedAt = m.now()
	m.units[key] = next
	out := cloneUnit(next)
	return &out, nil
}

func (m *Memory) ListAudioUnits(_ context.Context, campaignID string, stages ...types.Stage) ([]types.AudioUnit, error) {
	m.mu.RLock()
	var out []types.AudioUnit
	for k, u := range m.units {
		if k.CampaignID != campaignID || !stageAllowed(u.Stage, stages) {
			continue
		}
		out = append(out, cloneUnit(u))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].AudioID < out[j].AudioID })
	return out, nil
}

func (m *Memory) Close(context.Context) error { return nil }

// cloneUnit copies the mutable top-level pointers so callers never share
// state with the map.
func cloneUnit(u types.AudioUnit) types.AudioUnit {
	if u.Analysis != nil {
		a := *u.Analysis
		u.Analysis = &a
	}
	if u.Failure != nil {
		f := *u.Failure
		u.Failure = &f
	}
	return u
}
