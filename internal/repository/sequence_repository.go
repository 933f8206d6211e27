package repository

import (
	"context"

	"github.com/kubiknyc/SuperSiteHero-sub015/internal/apperr"
	"github.com/kubiknyc/SuperSiteHero-sub015/internal/database"
)

// SequenceRepository issues monotonically increasing, never-reused numbers
// scoped by (project, entity type, scope key). Numbers survive item voiding:
// the counter only ever moves forward.
type SequenceRepository struct {
	db *database.DB
}

// NewSequenceRepository creates a new SequenceRepository.
func NewSequenceRepository(db *database.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next atomically increments and returns the counter for a scope. The first
// call for a scope creates the counter row and returns 1; a concurrent first
// use cannot skip or duplicate a value because the whole operation is a
// single upsert statement.
//
// The Queryer is supplied by the caller so allocation joins the transaction
// that commits the owning item.
func (r *SequenceRepository) Next(ctx context.Context, q database.Queryer, projectID string, entityType EntityType, scopeKey string) (int64, error) {
	query := `
		INSERT INTO workflow_sequences (project_id, entity_type, scope_key, next_value)
		VALUES ($1, $2::workflow_entity_type, $3, 1)
		ON CONFLICT (project_id, entity_type, scope_key)
		DO UPDATE SET next_value = workflow_sequences.next_value + 1,
		              updated_at = NOW()
		RETURNING next_value
	`

	var value int64
	if err := q.QueryRow(ctx, query, projectID, entityType, scopeKey).Scan(&value); err != nil {
		return 0, apperr.Wrap(err, apperr.CodeSequenceAllocation, "failed to allocate sequence number")
	}
	return value, nil
}

// Peek returns the last issued value for a scope without incrementing,
// or 0 when no number has been issued yet.
func (r *SequenceRepository) Peek(ctx context.Context, projectID string, entityType EntityType, scopeKey string) (int64, error) {
	query := `
		SELECT next_value
		FROM workflow_sequences
		WHERE project_id = $1 AND entity_type = $2::workflow_entity_type AND scope_key = $3
	`

	var value int64
	err := r.db.QueryRow(ctx, query, projectID, entityType, scopeKey).Scan(&value)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, apperr.Wrap(err, apperr.CodeSequenceAllocation, "failed to read sequence counter")
	}
	return value, nil
}
