package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kubiknyc/SuperSiteHero-sub015/internal/apperr"
	"github.com/kubiknyc/SuperSiteHero-sub015/internal/database"
)

const itemColumns = `
	id, project_id, entity_type, title, description, spec_section,
	sequence_number, display_number, status,
	ball_in_court_user_id, ball_in_court_role,
	revision_chain_id, current_revision_id,
	cost_impact, cost_impact_status, schedule_impact_days, linked_item_ids,
	is_pco, co_number, co_display_number,
	approved_amount, approved_days, revised_contract_amount,
	metadata, version, created_by,
	created_at, updated_at, submitted_at, responded_at, closed_at`

// WorkflowItemRepository persists workflow items and applies transition
// commits. A commit is a single transaction covering the version-checked
// status update plus any sequence allocation and revision-chain mutation, so
// a stale version or allocation failure leaves no side effects.
type WorkflowItemRepository struct {
	db        *database.DB
	sequences *SequenceRepository
	revisions *RevisionRepository
}

// NewWorkflowItemRepository creates a new WorkflowItemRepository.
func NewWorkflowItemRepository(db *database.DB, sequences *SequenceRepository, revisions *RevisionRepository) *WorkflowItemRepository {
	return &WorkflowItemRepository{db: db, sequences: sequences, revisions: revisions}
}

// Create inserts a new item in its initial status with version 1. No number
// is allocated at creation; display numbers are assigned by the first
// submitting transition.
func (r *WorkflowItemRepository) Create(ctx context.Context, item *WorkflowItem) error {
	metadataJSON, err := marshalMetadata(item.Metadata)
	if err != nil {
		return err
	}
	if item.LinkedItemIDs == nil {
		item.LinkedItemIDs = []string{}
	}

	query := `
		INSERT INTO workflow_items
		    (project_id, entity_type, title, description, spec_section, status,
		     ball_in_court_user_id, ball_in_court_role,
		     cost_impact, cost_impact_status, schedule_impact_days,
		     linked_item_ids, is_pco, metadata, created_by)
		VALUES ($1, $2::workflow_entity_type, $3, $4, $5, $6,
		        $7, $8,
		        $9, $10, $11,
		        $12, $13, $14, $15)
		RETURNING id, version, created_at, updated_at
	`

	err = r.db.QueryRow(ctx, query,
		item.ProjectID,
		item.EntityType,
		item.Title,
		item.Description,
		item.SpecSection,
		item.Status,
		item.BallInCourtUserID,
		item.BallInCourtRole,
		item.CostImpact,
		item.CostImpactStatus,
		item.ScheduleImpactDays,
		item.LinkedItemIDs,
		item.IsPCO,
		metadataJSON,
		item.CreatedBy,
	).Scan(&item.ID, &item.Version, &item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to create workflow item")
	}
	return nil
}

// GetByID retrieves an item by primary key.
func (r *WorkflowItemRepository) GetByID(ctx context.Context, id string) (*WorkflowItem, error) {
	query := `SELECT ` + itemColumns + ` FROM workflow_items WHERE id = $1`

	item, err := scanItem(r.db.QueryRow(ctx, query, id))
	if isNoRows(err) {
		return nil, apperr.NotFound("workflow_item", id)
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to get workflow item")
	}
	return item, nil
}

// List retrieves items for a project with optional entity-type and status
// filters, newest-first, paginated.
func (r *WorkflowItemRepository) List(ctx context.Context, projectID string, entityType *EntityType, status *string, limit, offset int) ([]*WorkflowItem, int64, error) {
	query := `SELECT ` + itemColumns + ` FROM workflow_items WHERE project_id = $1`
	countQuery := `SELECT COUNT(*) FROM workflow_items WHERE project_id = $1`

	args := []interface{}{projectID}
	argCount := 2

	if entityType != nil {
		clause := fmt.Sprintf(" AND entity_type = $%d::workflow_entity_type", argCount)
		query += clause
		countQuery += clause
		args = append(args, *entityType)
		argCount++
	}

	if status != nil {
		clause := fmt.Sprintf(" AND status = $%d", argCount)
		query += clause
		countQuery += clause
		args = append(args, *status)
		argCount++
	}

	query += " ORDER BY created_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)
	queryArgs := append(args, limit, offset)

	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Wrap(err, apperr.CodeInternal, "failed to count workflow items")
	}

	rows, err := r.db.Query(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, apperr.Wrap(err, apperr.CodeInternal, "failed to list workflow items")
	}
	defer rows.Close()

	items := make([]*WorkflowItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, apperr.Wrap(err, apperr.CodeInternal, "failed to scan workflow item")
		}
		items = append(items, item)
	}
	return items, total, nil
}

// GetPendingForUser returns open items whose ball-in-court points at a user.
func (r *WorkflowItemRepository) GetPendingForUser(ctx context.Context, projectID, userID string) ([]*WorkflowItem, error) {
	query := `SELECT ` + itemColumns + `
		FROM workflow_items
		WHERE project_id = $1
		  AND ball_in_court_user_id = $2
		  AND closed_at IS NULL
		ORDER BY updated_at ASC`

	rows, err := r.db.Query(ctx, query, projectID, userID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to get pending items")
	}
	defer rows.Close()

	items := make([]*WorkflowItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to scan workflow item")
		}
		items = append(items, item)
	}
	return items, nil
}

// Commit applies a transition commit atomically and returns the updated item.
// Fails with CONCURRENCY_CONFLICT when the stored version no longer matches
// ExpectedVersion, and NOT_FOUND when the item does not exist. Either failure
// rolls back every side effect, including sequence increments.
func (r *WorkflowItemRepository) Commit(ctx context.Context, commit *TransitionCommit) (*WorkflowItem, error) {
	var updated *WorkflowItem

	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		var (
			projectID  string
			entityType EntityType
			version    int64
			chainID    *string
		)
		lookup := `
			SELECT project_id, entity_type, version, revision_chain_id
			FROM workflow_items
			WHERE id = $1
		`
		err := tx.QueryRow(ctx, lookup, commit.ItemID).Scan(&projectID, &entityType, &version, &chainID)
		if isNoRows(err) {
			return apperr.NotFound("workflow_item", commit.ItemID)
		}
		if err != nil {
			return apperr.Wrap(err, apperr.CodeInternal, "failed to load workflow item")
		}
		if version != commit.ExpectedVersion {
			return apperr.New(apperr.CodeConcurrencyConflict, "workflow item was modified by another caller").
				WithDetail("expected_version", commit.ExpectedVersion).
				WithDetail("current_version", version)
		}

		set := []string{
			"status = $3",
			"ball_in_court_user_id = $4",
			"ball_in_court_role = $5",
			"version = version + 1",
			"updated_at = NOW()",
		}
		args := []interface{}{commit.ItemID, commit.ExpectedVersion, commit.Status, commit.BallInCourtUserID, commit.BallInCourtRole}
		argCount := 6
		add := func(column string, value interface{}) {
			set = append(set, fmt.Sprintf("%s = $%d", column, argCount))
			args = append(args, value)
			argCount++
		}

		// Sequence allocations join this transaction so a failed commit never
		// burns a number.
		if req := commit.AllocateDisplayNumber; req != nil {
			seq, err := r.sequences.Next(ctx, tx, projectID, entityType, req.ScopeKey)
			if err != nil {
				return err
			}
			add("sequence_number", seq)
			add("display_number", req.Format(seq))
		}
		if req := commit.AllocateCONumber; req != nil {
			seq, err := r.sequences.Next(ctx, tx, projectID, entityType, req.ScopeKey)
			if err != nil {
				return err
			}
			add("co_number", seq)
			add("co_display_number", req.Format(seq))
		}
		if commit.SetCOApproved {
			add("is_pco", false)
		}

		// Revision chain directives.
		if commit.StartChainID != nil {
			chainID = commit.StartChainID
			add("revision_chain_id", *commit.StartChainID)
		}
		if commit.NewRevision != nil {
			if chainID == nil {
				return apperr.New(apperr.CodeInternal, "revision insert requires a chain id")
			}
			rev, err := r.revisions.AddRevision(ctx, tx, *chainID, commit.ItemID, commit.NewRevision.ChangeDescription)
			if err != nil {
				return err
			}
			add("current_revision_id", rev.ID)
		}
		if commit.ReviewApprovalCode != nil {
			if chainID == nil {
				return apperr.New(apperr.CodeInternal, "revision review requires a chain id")
			}
			if _, err := r.revisions.ReviewCurrent(ctx, tx, *chainID, *commit.ReviewApprovalCode); err != nil {
				return err
			}
		}
		if commit.VoidCurrentRevision && chainID != nil {
			if err := r.revisions.VoidCurrent(ctx, tx, *chainID); err != nil {
				return err
			}
			add("current_revision_id", nil)
		}

		if commit.SetSubmittedAt {
			set = append(set, "submitted_at = NOW()")
		}
		if commit.SetRespondedAt {
			set = append(set, "responded_at = NOW()")
		}
		if commit.SetClosedAt {
			set = append(set, "closed_at = NOW()")
		}

		if commit.CostImpact != nil {
			add("cost_impact", *commit.CostImpact)
		}
		if commit.CostImpactStatus != nil {
			add("cost_impact_status", *commit.CostImpactStatus)
		}
		if commit.ScheduleImpactDays != nil {
			add("schedule_impact_days", *commit.ScheduleImpactDays)
		}
		if commit.ApprovedAmount != nil {
			add("approved_amount", *commit.ApprovedAmount)
		}
		if commit.ApprovedDays != nil {
			add("approved_days", *commit.ApprovedDays)
		}
		if commit.RevisedContractAmount != nil {
			add("revised_contract_amount", *commit.RevisedContractAmount)
		}
		if commit.Metadata != nil {
			metadataJSON, err := marshalMetadata(commit.Metadata)
			if err != nil {
				return err
			}
			add("metadata", metadataJSON)
		}

		update := "UPDATE workflow_items SET "
		for i, clause := range set {
			if i > 0 {
				update += ", "
			}
			update += clause
		}
		update += " WHERE id = $1 AND version = $2 RETURNING " + itemColumns

		item, err := scanItem(tx.QueryRow(ctx, update, args...))
		if isNoRows(err) {
			// Row existed above, so another transaction won the version race.
			return apperr.New(apperr.CodeConcurrencyConflict, "workflow item was modified by another caller").
				WithDetail("expected_version", commit.ExpectedVersion)
		}
		if err != nil {
			return apperr.Wrap(err, apperr.CodeInternal, "failed to commit transition")
		}

		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AddLink appends a weak reference to another item, version-checked like any
// other mutation.
func (r *WorkflowItemRepository) AddLink(ctx context.Context, itemID, linkedID string, expectedVersion int64) (*WorkflowItem, error) {
	query := `
		UPDATE workflow_items
		SET linked_item_ids = array_append(linked_item_ids, $3),
		    version         = version + 1,
		    updated_at      = NOW()
		WHERE id = $1 AND version = $2 AND NOT ($3 = ANY(linked_item_ids))
		RETURNING ` + itemColumns

	item, err := scanItem(r.db.QueryRow(ctx, query, itemID, expectedVersion, linkedID))
	if isNoRows(err) {
		if _, lookupErr := r.GetByID(ctx, itemID); lookupErr != nil {
			return nil, lookupErr
		}
		return nil, apperr.New(apperr.CodeConcurrencyConflict, "workflow item was modified or link already exists")
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to link items")
	}
	return item, nil
}

// SumApprovedChangeOrders returns the total approved change-order amount for
// a project, in cents.
func (r *WorkflowItemRepository) SumApprovedChangeOrders(ctx context.Context, projectID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(approved_amount), 0)
		FROM workflow_items
		WHERE project_id = $1
		  AND entity_type = 'change_order'
		  AND status = 'approved'
	`

	var total int64
	if err := r.db.QueryRow(ctx, query, projectID).Scan(&total); err != nil {
		return 0, apperr.Wrap(err, apperr.CodeInternal, "failed to sum approved change orders")
	}
	return total, nil
}

// Rollup aggregates cost and schedule impact across a project's items,
// grouped by cost-impact status. Read-only; runs against the latest committed
// state of each item with no cross-item transaction.
func (r *WorkflowItemRepository) Rollup(ctx context.Context, projectID string) (*ImpactRollup, error) {
	query := `
		SELECT
		    COALESCE(SUM(w.cost_impact) FILTER (WHERE w.cost_impact_status = 'estimated'), 0),
		    COALESCE(SUM(w.cost_impact) FILTER (WHERE w.cost_impact_status = 'pending'), 0),
		    COALESCE(SUM(COALESCE(w.approved_amount, w.cost_impact)) FILTER (WHERE w.cost_impact_status = 'approved'), 0),
		    COALESCE(SUM(w.cost_impact) FILTER (WHERE w.cost_impact_status = 'rejected'), 0),
		    COUNT(*),
		    COUNT(*) FILTER (WHERE w.cost_impact IS NOT NULL),
		    COUNT(*) FILTER (WHERE EXISTS (
		        SELECT 1 FROM workflow_items c
		        WHERE c.id::text = ANY(w.linked_item_ids)
		          AND c.entity_type = 'change_order')),
		    COALESCE(SUM(w.schedule_impact_days), 0)
		FROM workflow_items w
		WHERE w.project_id = $1
	`

	rollup := &ImpactRollup{}
	err := r.db.QueryRow(ctx, query, projectID).Scan(
		&rollup.TotalEstimated,
		&rollup.TotalPending,
		&rollup.TotalApproved,
		&rollup.TotalRejected,
		&rollup.ItemCount,
		&rollup.ItemsWithCostImpact,
		&rollup.ItemsLinkedToChangeOrder,
		&rollup.TotalScheduleDays,
	)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to compute impact rollup")
	}
	return rollup, nil
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type itemScanner interface {
	Scan(dest ...any) error
}

func scanItem(row itemScanner) (*WorkflowItem, error) {
	item := &WorkflowItem{}
	var metadataJSON []byte

	err := row.Scan(
		&item.ID,
		&item.ProjectID,
		&item.EntityType,
		&item.Title,
		&item.Description,
		&item.SpecSection,
		&item.SequenceNumber,
		&item.DisplayNumber,
		&item.Status,
		&item.BallInCourtUserID,
		&item.BallInCourtRole,
		&item.RevisionChainID,
		&item.CurrentRevisionID,
		&item.CostImpact,
		&item.CostImpactStatus,
		&item.ScheduleImpactDays,
		&item.LinkedItemIDs,
		&item.IsPCO,
		&item.CONumber,
		&item.CODisplayNumber,
		&item.ApprovedAmount,
		&item.ApprovedDays,
		&item.RevisedContractAmount,
		&metadataJSON,
		&item.Version,
		&item.CreatedBy,
		&item.CreatedAt,
		&item.UpdatedAt,
		&item.SubmittedAt,
		&item.RespondedAt,
		&item.ClosedAt,
	)
	if err != nil {
		return nil, err
	}

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &item.Metadata); err != nil {
			return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to unmarshal item metadata")
		}
	}
	return item, nil
}

func marshalMetadata(metadata map[string]interface{}) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to marshal item metadata")
	}
	return data, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
