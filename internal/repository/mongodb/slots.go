package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"catalog-ingest/internal/domain"
	"catalog-ingest/internal/repository"
)

const slotsCollection = "ingest_slots"

// SlotRepository persists per-slot pipeline state so progress survives the
// handoff between the API and the worker and can be polled by the admin UI.
type SlotRepository struct {
	db      *mongo.Database
	timeout time.Duration
}

func NewSlotRepository(db *mongo.Database, timeout time.Duration) *SlotRepository {
	return &SlotRepository{db: db, timeout: timeout}
}

func (r *SlotRepository) Create(ctx context.Context, slot *domain.ImageSlot) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	now := time.Now().UTC()
	slot.CreatedAt = now
	slot.UpdatedAt = now

	if _, err := r.db.Collection(slotsCollection).InsertOne(ctx, slot); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("slot %s: %w", slot.ID, repository.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert slot: %w", err)
	}
	return nil
}

func (r *SlotRepository) Get(ctx context.Context, id string) (*domain.ImageSlot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var slot domain.ImageSlot
	err := r.db.Collection(slotsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("slot %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return &slot, nil
}

// SetState records a pipeline transition.
func (r *SlotRepository) SetState(ctx context.Context, id string, state domain.SlotState) error {
	return r.update(ctx, id, bson.M{"state": state})
}

// SetUploaded records the terminal success state with the public URL.
func (r *SlotRepository) SetUploaded(ctx context.Context, id, url string) error {
	return r.update(ctx, id, bson.M{"state": domain.SlotUploaded, "url": url})
}

// SetFailed records the terminal failure state with the failing stage.
func (r *SlotRepository) SetFailed(ctx context.Context, id string, stage domain.Stage, cause error) error {
	fields := bson.M{"state": domain.SlotFailed, "failed_stage": stage}
	if cause != nil {
		fields["error"] = cause.Error()
	}
	return r.update(ctx, id, fields)
}

func (r *SlotRepository) update(ctx context.Context, id string, fields bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	fields["updated_at"] = time.Now().UTC()
	res, err := r.db.Collection(slotsCollection).UpdateOne(ctx,
		bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update slot %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("slot %s: %w", id, repository.ErrNotFound)
	}
	return nil
}
