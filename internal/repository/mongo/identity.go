package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rensmac/govassist/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const identityCollection = "identities"

// IdentityRepository implements domain.IdentityRepository on MongoDB
type IdentityRepository struct {
	coll *mongo.Collection
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(db *DB) *IdentityRepository {
	return &IdentityRepository{coll: db.Database().Collection(identityCollection)}
}

// Upsert applies last-write-wins updates to the recognized identity fields
func (r *IdentityRepository) Upsert(ctx context.Context, userID string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range fields {
		switch k {
		case "identity_no", "license_number", "account_number", "full_name":
			set[k] = v
		}
	}

	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"_id": userID},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert identity: %w", err)
	}

	return nil
}

// Get returns the identity record for a user, or nil when none exists
func (r *IdentityRepository) Get(ctx context.Context, userID string) (*domain.IdentityRecord, error) {
	var record domain.IdentityRecord
	err := r.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}

	return &record, nil
}
