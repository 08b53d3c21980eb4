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

const sessionCollection = "sessions"

// SessionRepository implements domain.SessionRepository on MongoDB
type SessionRepository struct {
	coll *mongo.Collection
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{coll: db.Database().Collection(sessionCollection)}
}

// Create inserts a new session document
func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if _, err := r.coll.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// Get retrieves a session by (userID, sessionID)
func (r *SessionRepository) Get(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	filter := bson.M{"user_id": userID, "session_id": sessionID}

	var session domain.Session
	err := r.coll.FindOne(ctx, filter).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &session, nil
}

// UpsertFields sets fields on an active session. The filter includes
// status=active so a closed session is never mutated again.
func (r *SessionRepository) UpsertFields(ctx context.Context, userID, sessionID string, fields map[string]any) error {
	filter := bson.M{
		"user_id":    userID,
		"session_id": sessionID,
		"status":     domain.SessionActive,
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}

	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreWrite, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrSessionClosed
	}

	return nil
}

// AppendMessage pushes a message onto the session log. The filter excludes
// sessions already holding the message id, so a redelivered message cannot
// double-append.
func (r *SessionRepository) AppendMessage(ctx context.Context, userID, sessionID string, msg domain.Message) error {
	filter := bson.M{
		"user_id":     userID,
		"session_id":  sessionID,
		"status":      domain.SessionActive,
		"messages.id": bson.M{"$ne": msg.ID},
	}

	update := bson.M{
		"$push": bson.M{"messages": msg},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}

	if _, err := r.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreWrite, err)
	}

	return nil
}

// Close marks a session closed. Returns false when the session was already
// closed (or missing), which callers treat as an idempotent no-op.
func (r *SessionRepository) Close(ctx context.Context, userID, sessionID string, closedAt time.Time) (bool, error) {
	filter := bson.M{
		"user_id":    userID,
		"session_id": sessionID,
		"status":     domain.SessionActive,
	}

	update := bson.M{"$set": bson.M{
		"status":     domain.SessionClosed,
		"closed_at":  closedAt,
		"updated_at": closedAt,
	}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrStoreWrite, err)
	}

	return res.ModifiedCount > 0, nil
}

// FindLatestActive returns the most recently created active session for a user
func (r *SessionRepository) FindLatestActive(ctx context.Context, userID string) (*domain.Session, error) {
	filter := bson.M{"user_id": userID, "status": domain.SessionActive}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var session domain.Session
	err := r.coll.FindOne(ctx, filter, opts).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest active session: %w", err)
	}

	return &session, nil
}

// FindLatestWithDocument returns the user's session with the most recently
// processed document, excluding the given session. Sorted by last_document_at
// descending; equal timestamps fall back to created_at descending.
func (r *SessionRepository) FindLatestWithDocument(ctx context.Context, userID, excludeSessionID string) (*domain.Session, error) {
	filter := bson.M{
		"user_id":           userID,
		"session_id":        bson.M{"$ne": excludeSessionID},
		"last_document_at":  bson.M{"$ne": nil},
		"document_category": bson.M{"$exists": true, "$ne": ""},
	}
	opts := options.FindOne().SetSort(bson.D{
		{Key: "last_document_at", Value: -1},
		{Key: "created_at", Value: -1},
	})

	var session domain.Session
	err := r.coll.FindOne(ctx, filter, opts).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session with document: %w", err)
	}

	return &session, nil
}
