package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/kubiknyc/SuperSiteHero-sub015/internal/apperr"
	"github.com/kubiknyc/SuperSiteHero-sub015/internal/database"
)

// RevisionRepository manages revision chains. Each chain groups the
// resubmission attempts of one logical item; at most one revision per chain
// is current at any time. Revisions are append-only.
type RevisionRepository struct {
	db *database.DB
}

// NewRevisionRepository creates a new RevisionRepository.
func NewRevisionRepository(db *database.DB) *RevisionRepository {
	return &RevisionRepository{db: db}
}

// AddRevision supersedes the chain's current revision (if any) and inserts a
// new current revision with the next revision number. Both statements run on
// the caller-supplied Queryer so the swap commits atomically with the owning
// item's transition. Revision numbers start at 0 and are never reused, even
// after a revision is voided.
func (r *RevisionRepository) AddRevision(ctx context.Context, q database.Queryer, chainID, itemID string, changeDescription *string) (*Revision, error) {
	supersede := `
		UPDATE workflow_revisions
		SET is_current = FALSE,
		    status     = 'superseded'
		WHERE chain_id = $1 AND is_current = TRUE
	`
	if _, err := q.Exec(ctx, supersede, chainID); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to supersede current revision")
	}

	insert := `
		INSERT INTO workflow_revisions
		    (chain_id, workflow_item_id, revision_number, is_current, status, change_description)
		SELECT $1, $2, COALESCE(MAX(revision_number), -1) + 1, TRUE, 'current', $3
		FROM workflow_revisions
		WHERE chain_id = $1
		RETURNING id, revision_number, submitted_at, created_at
	`

	rev := &Revision{
		ChainID:           chainID,
		WorkflowItemID:    itemID,
		IsCurrent:         true,
		Status:            RevisionStatusCurrent,
		ChangeDescription: changeDescription,
	}
	err := q.QueryRow(ctx, insert, chainID, itemID, changeDescription).
		Scan(&rev.ID, &rev.RevisionNumber, &rev.SubmittedAt, &rev.CreatedAt)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to insert revision")
	}
	return rev, nil
}

// ReviewCurrent stamps the chain's current revision with a review verdict.
func (r *RevisionRepository) ReviewCurrent(ctx context.Context, q database.Queryer, chainID, approvalCode string) (*Revision, error) {
	query := `
		UPDATE workflow_revisions
		SET approval_code = $2,
		    reviewed_at   = NOW()
		WHERE chain_id = $1 AND is_current = TRUE
		RETURNING id, chain_id, workflow_item_id, revision_number, is_current, status,
		          approval_code, change_description, submitted_at, reviewed_at, created_at
	`

	rev, err := scanRevision(q.QueryRow(ctx, query, chainID, approvalCode))
	if isNoRows(err) {
		return nil, apperr.NotFound("current_revision", chainID)
	}
	return rev, err
}

// VoidCurrent voids the chain's current revision. The voided revision keeps
// its number and no other revision is promoted: the chain is left with zero
// current revisions until a new one is added.
func (r *RevisionRepository) VoidCurrent(ctx context.Context, q database.Queryer, chainID string) error {
	query := `
		UPDATE workflow_revisions
		SET is_current = FALSE,
		    status     = 'void'
		WHERE chain_id = $1 AND is_current = TRUE
	`

	if _, err := q.Exec(ctx, query, chainID); err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to void current revision")
	}
	return nil
}

// GetByChainID returns all revisions in a chain ordered oldest-first.
func (r *RevisionRepository) GetByChainID(ctx context.Context, chainID string) ([]*Revision, error) {
	query := `
		SELECT id, chain_id, workflow_item_id, revision_number, is_current, status,
		       approval_code, change_description, submitted_at, reviewed_at, created_at
		FROM workflow_revisions
		WHERE chain_id = $1
		ORDER BY revision_number ASC
	`

	rows, err := r.db.Query(ctx, query, chainID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to get revisions")
	}
	defer rows.Close()

	return scanRevisionRows(rows)
}

// GetCurrent returns the chain's current revision, or a NOT_FOUND error when
// the chain has no current revision.
func (r *RevisionRepository) GetCurrent(ctx context.Context, chainID string) (*Revision, error) {
	query := `
		SELECT id, chain_id, workflow_item_id, revision_number, is_current, status,
		       approval_code, change_description, submitted_at, reviewed_at, created_at
		FROM workflow_revisions
		WHERE chain_id = $1 AND is_current = TRUE
	`

	rev, err := scanRevision(r.db.QueryRow(ctx, query, chainID))
	if isNoRows(err) {
		return nil, apperr.NotFound("current_revision", chainID)
	}
	return rev, err
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type revisionScanner interface {
	Scan(dest ...any) error
}

func scanRevision(row revisionScanner) (*Revision, error) {
	rev := &Revision{}
	err := row.Scan(
		&rev.ID,
		&rev.ChainID,
		&rev.WorkflowItemID,
		&rev.RevisionNumber,
		&rev.IsCurrent,
		&rev.Status,
		&rev.ApprovalCode,
		&rev.ChangeDescription,
		&rev.SubmittedAt,
		&rev.ReviewedAt,
		&rev.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rev, nil
}

func scanRevisionRows(rows pgx.Rows) ([]*Revision, error) {
	var revisions []*Revision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to scan revision")
		}
		revisions = append(revisions, rev)
	}
	return revisions, nil
}
