package store

import (
	"context"
	"errors"

	"call-insights-go/internal/types"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("concurrent update conflict")
)

// UpdateFunc mutates a unit in place. Returning an error aborts the write.
type UpdateFunc func(u *types.AudioUnit) error

// Store persists campaigns and audio units. Every write on an audio unit is
// conditional on the unit existing; implementations never upsert a unit from
// an update.
type Store interface {
	PutCampaign(ctx context.Context, c *types.Campaign) error
	GetCampaign(ctx context.Context, id string) (*types.Campaign, error)
	ListCampaigns(ctx context.Context) ([]types.Campaign, error)

	// InsertAudioUnit stores u unless a unit with the same key exists.
	// created is false when the existing record was kept.
	InsertAudioUnit(ctx context.Context, u *types.AudioUnit) (created bool, err error)
	GetAudioUnit(ctx context.Context, key types.UnitKey) (*types.AudioUnit, error)

	// AttachExecution records ref on the unit if it has none yet and moves a
	// Registered unit to Running. It returns the unit as stored afterwards and
	// whether ref was the one attached.
	AttachExecution(ctx context.Context, key types.UnitKey, ref string) (*types.AudioUnit, bool, error)

	// UpdateAudioUnit applies fn atomically to an existing unit.
	UpdateAudioUnit(ctx context.Context, key types.UnitKey, fn UpdateFunc) (*types.AudioUnit, error)

	// ListAudioUnits returns the units of a campaign ordered by audio id,
	// optionally restricted to the given stages.
	ListAudioUnits(ctx context.Context, campaignID string, stages ...types.Stage) ([]types.AudioUnit, error)

	Close(ctx context.Context) error
}

func stageAllowed(s types.Stage, stages []types.Stage) bool {
	if len(stages) == 0 {
		return true
	}
	for _, want := range stages {
		if s == want {
			return true
		}
	}
	return false
}
