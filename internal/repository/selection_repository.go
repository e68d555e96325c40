package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campusworks/uniportal-api/internal/selection"
	appErrors "github.com/campusworks/uniportal-api/pkg/errors"
)

// SelectionRepository persists in-progress selection sessions in Redis.
// Saves are compare-and-set on the session revision so a response arriving
// after a newer mutation cannot overwrite it.
type SelectionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSelectionRepository constructs the repository.
func NewSelectionRepository(client *redis.Client, ttl time.Duration) *SelectionRepository {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SelectionRepository{client: client, ttl: ttl}
}

func selectionKey(studentID string) string {
	return "selection:" + studentID
}

// Get loads the stored session for the student, or sql-style not-found via
// redis.Nil passthrough when absent.
func (r *SelectionRepository) Get(ctx context.Context, studentID string) (*selection.Session, error) {
	raw, err := r.client.Get(ctx, selectionKey(studentID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("get selection %s: %w", studentID, err)
	}
	var sess selection.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal selection %s: %w", studentID, err)
	}
	return &sess, nil
}

// Save stores the session if and only if the stored revision still equals
// expectedRevision; the saved copy carries expectedRevision+1. A mismatch
// returns ErrStaleRevision and leaves the stored session untouched.
func (r *SelectionRepository) Save(ctx context.Context, sess *selection.Session, expectedRevision int64) error {
	key := selectionKey(sess.StudentID)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
			if expectedRevision != 0 {
				return appErrors.ErrStaleRevision
			}
		case err != nil:
			return fmt.Errorf("read selection %s: %w", sess.StudentID, err)
		default:
			var stored selection.Session
			if err := json.Unmarshal(raw, &stored); err != nil {
				return fmt.Errorf("unmarshal selection %s: %w", sess.StudentID, err)
			}
			if stored.Revision != expectedRevision {
				return appErrors.ErrStaleRevision
			}
		}

		sess.Revision = expectedRevision + 1
		sess.UpdatedAt = time.Now().UTC()
		payload, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("marshal selection %s: %w", sess.StudentID, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.ttl)
			return nil
		})
		return err
	}

	err := r.client.Watch(ctx, txf, key)
	if err == redis.TxFailedErr {
		return appErrors.ErrStaleRevision
	}
	return err
}

// Delete removes the stored session, typically after a successful commit.
func (r *SelectionRepository) Delete(ctx context.Context, studentID string) error {
	if err := r.client.Del(ctx, selectionKey(studentID)).Err(); err != nil {
		return fmt.Errorf("delete selection %s: %w", studentID, err)
	}
	return nil
}
