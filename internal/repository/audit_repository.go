package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/kubiknyc/SuperSiteHero-sub015/internal/apperr"
	"github.com/kubiknyc/SuperSiteHero-sub015/internal/database"
)

// AuditRepository appends and reads immutable transition audit entries. The
// table has a delete-prevention trigger so append is the only mutation.
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts one audit entry.
func (r *AuditRepository) Append(ctx context.Context, entry *TransitionAuditEntry) error {
	metadataJSON, err := marshalMetadata(entry.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflow_audit_log
		    (workflow_item_id, project_id, action, performed_by,
		     status_before, status_after, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, performed_at
	`

	return r.db.QueryRow(ctx, query,
		entry.WorkflowItemID,
		entry.ProjectID,
		entry.Action,
		entry.PerformedBy,
		entry.StatusBefore,
		entry.StatusAfter,
		metadataJSON,
	).Scan(&entry.ID, &entry.PerformedAt)
}

// GetByItemID returns the full audit trail for an item ordered oldest-first.
func (r *AuditRepository) GetByItemID(ctx context.Context, itemID string) ([]*TransitionAuditEntry, error) {
	query := `
		SELECT id, workflow_item_id, project_id, action, performed_by, performed_at,
		       status_before, status_after, metadata
		FROM workflow_audit_log
		WHERE workflow_item_id = $1
		ORDER BY performed_at ASC
	`

	rows, err := r.db.Query(ctx, query, itemID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to get audit log")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// ── scan helpers ──────────────────────────────────────────────────────────────

func (r *AuditRepository) scanRows(rows pgx.Rows) ([]*TransitionAuditEntry, error) {
	var entries []*TransitionAuditEntry
	for rows.Next() {
		entry := &TransitionAuditEntry{}
		var metadataJSON []byte

		err := rows.Scan(
			&entry.ID,
			&entry.WorkflowItemID,
			&entry.ProjectID,
			&entry.Action,
			&entry.PerformedBy,
			&entry.PerformedAt,
			&entry.StatusBefore,
			&entry.StatusAfter,
			&metadataJSON,
		)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to scan audit entry")
		}

		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to unmarshal audit metadata")
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
