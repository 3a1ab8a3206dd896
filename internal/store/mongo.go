package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"call-insights-go/internal/types"
)

const (
	colCampaigns  = "campaigns"
	colAudioUnits = "audio_units"

	// updates retry this many times when another writer wins the revision race
	maxUpdateAttempts = 5
)

// audioDoc is the stored shape of an audio unit: the composite key as _id
// plus a revision counter for compare-and-swap updates.
type audioDoc struct {
	ID              string `bson:"_id"`
	Rev             int64  `bson:"rev"`
	types.AudioUnit `bson:",inline"`
}

type Mongo struct {
	client    *mongo.Client
	campaigns *mongo.Collection
	units     *mongo.Collection
}

// NewMongo connects, pings and ensures indexes.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	m := &Mongo{
		client:    client,
		campaigns: db.Collection(colCampaigns),
		units:     db.Collection(colAudioUnits),
	}

	_, err = m.units.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "campaign_id", Value: 1}, {Key: "audio_id", Value: 1}}},
		{Keys: bson.D{{Key: "campaign_id", Value: 1}, {Key: "stage", Value: 1}}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create audio_units indexes: %w", err)
	}
	return m, nil
}

func (m *Mongo) PutCampaign(ctx context.Context, c *types.Campaign) error {
	_, err := m.campaigns.ReplaceOne(ctx, bson.M{"_id": c.ID}, c, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put campaign %s: %w", c.ID, err)
	}
	return nil
}

func (m *Mongo) GetCampaign(ctx context.Context, id string) (*types.Campaign, error) {
	var c types.Campaign
	err := m.campaigns.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign %s: %w", id, err)
	}
	return &c, nil
}

func (m *Mongo) ListCampaigns(ctx context.Context) ([]types.Campaign, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := m.campaigns.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	out := []types.Campaign{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode campaigns: %w", err)
	}
	return out, nil
}

func (m *Mongo) InsertAudioUnit(ctx context.Context, u *types.AudioUnit) (bool, error) {
	_, err := m.units.InsertOne(ctx, audioDoc{ID: u.Key().String(), AudioUnit: *u})
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert audio unit %s: %w", u.Key(), err)
	}
	return true, nil
}

func (m *Mongo) GetAudioUnit(ctx context.Context, key types.UnitKey) (*types.AudioUnit, error) {
	doc, err := m.getDoc(ctx, key)
	if err != nil {
		return nil, err
	}
	return &doc.AudioUnit, nil
}

func (m *Mongo) getDoc(ctx context.Context, key types.UnitKey) (*audioDoc, error) {
	var doc audioDoc
	err := m.units.FindOne(ctx, bson.M{"_id": key.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get audio unit %s: %w", key, err)
	}
	return &doc, nil
}

func (m *Mongo) AttachExecution(ctx context.Context, key types.UnitKey, ref string) (*types.AudioUnit, bool, error) {
	filter := bson.M{
		"_id": key.String(),
		"$or": bson.A{
			bson.M{"execution_ref": bson.M{"$exists": false}},
			bson.M{"execution_ref": ""},
		},
	}
	// pipeline update so the Registered -> Running move is part of the same write
	update := mongo.Pipeline{{{Key: "$set", Value: bson.M{
		"execution_ref": ref,
		"updated_at":    time.Now().UTC(),
		"rev":           bson.M{"$add": bson.A{"$rev", 1}},
		"stage": bson.M{"$cond": bson.A{
			bson.M{"$eq": bson.A{"$stage", types.StageRegistered}},
			types.StageRunning,
			"$stage",
		}},
	}}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc audioDoc
	err := m.units.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return &doc.AudioUnit, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("attach execution %s: %w", key, err)
	}

	existing, err := m.getDoc(ctx, key)
	if err != nil {
		return nil, false, err
	}
	return &existing.AudioUnit, false, nil
}

func (m *Mongo) UpdateAudioUnit(ctx context.Context, key types.UnitKey, fn UpdateFunc) (*types.AudioUnit, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		doc, err := m.getDoc(ctx, key)
		if err != nil {
			return nil, err
		}
		next := doc.AudioUnit
		if err := fn(&next); err != nil {
			return nil, err
		}
		next.CampaignID, next.AudioID = key.CampaignID, key.AudioID
		next.UpdatedAt = time.Now().UTC()

		res, err := m.units.ReplaceOne(ctx,
			bson.M{"_id": doc.ID, "rev": doc.Rev},
			audioDoc{ID: doc.ID, Rev: doc.Rev + 1, AudioUnit: next},
		)
		if err != nil {
			return nil, fmt.Errorf("update audio unit %s: %w", key, err)
		}
		if res.MatchedCount == 1 {
			return &next, nil
		}
	}
	return nil, fmt.Errorf("update audio unit %s: %w", key, ErrConflict)
}

func (m *Mongo) ListAudioUnits(ctx context.Context, campaignID string, stages ...types.Stage) ([]types.AudioUnit, error) {
	filter := bson.M{"campaign_id": campaignID}
	if len(stages) > 0 {
		filter["stage"] = bson.M{"$in": stages}
	}
	cur, err := m.units.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "audio_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list audio units for %s: %w", campaignID, err)
	}
	var docs []audioDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode audio units: %w", err)
	}
	out := make([]types.AudioUnit, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.AudioUnit)
	}
	return out, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
