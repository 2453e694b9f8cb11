package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/custodia-labs/countersign/internal/core/domain"
	"github.com/custodia-labs/countersign/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.InstanceStore = (*InstanceStore)(nil)

const instanceColumns = `id, owner_id, name, description, document_url, email_subject, email_message,
	mode, status, favorite, deleted, sent_at, completed_at, created_at, updated_at`

// InstanceStore implements driven.InstanceStore using PostgreSQL.
//
// State transitions (draft to sent, pending to signed, sent to completed)
// are conditional updates, so a transition that lost a race reports the
// matching domain error instead of applying twice.
type InstanceStore struct {
	db *DB
}

// NewInstanceStore creates a new InstanceStore
func NewInstanceStore(db *DB) *InstanceStore {
	return &InstanceStore{db: db}
}

// Create inserts an instance with its recipients and fields
func (s *InstanceStore) Create(ctx context.Context, instance *domain.Instance) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO instances (`+instanceColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			instance.ID,
			instance.OwnerID,
			instance.Name,
			instance.Description,
			instance.DocumentURL,
			instance.EmailSubject,
			instance.EmailMessage,
			string(instance.Mode),
			string(instance.Status),
			instance.Favorite,
			instance.Deleted,
			NullTime(instance.SentAt),
			NullTime(instance.CompletedAt),
			instance.CreatedAt,
			instance.UpdatedAt,
		)
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		if err != nil {
			return fmt.Errorf("insert instance: %w", err)
		}

		for i, r := range instance.Recipients {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO recipients (instance_id, id, name, email, role, rank, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				instance.ID, r.ID, r.Name, r.Email, r.Role, NullInt(r.Rank), i,
			)
			if err != nil {
				return fmt.Errorf("insert recipient %s: %w", r.ID, err)
			}
		}
		return insertFields(ctx, tx, instance.ID, instance.Fields)
	})
}

func insertFields(ctx context.Context, tx *sql.Tx, instanceID string, fields []*domain.Field) error {
	if len(fields) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fields (instance_id, id, type, page, x, y, width, height, value, recipient_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, f := range fields {
		_, err := stmt.ExecContext(ctx,
			instanceID, f.ID, string(f.Type),
			f.Position.Page, f.Position.X, f.Position.Y,
			f.Width, f.Height, f.Value, f.RecipientID, now,
		)
		if err != nil {
			return fmt.Errorf("insert field %s: %w", f.ID, err)
		}
	}
	return nil
}

// Get retrieves an instance with its recipients and fields
func (s *InstanceStore) Get(ctx context.Context, id string) (*domain.Instance, error) {
	instances, err := s.query(ctx, `SELECT `+instanceColumns+` FROM instances WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, domain.ErrNotFound
	}
	return instances[0], nil
}

// ListByOwner lists an owner's instances, newest first
func (s *InstanceStore) ListByOwner(ctx context.Context, ownerID string, deleted bool) ([]*domain.Instance, error) {
	return s.query(ctx, `
		SELECT `+instanceColumns+`
		FROM instances
		WHERE owner_id = $1 AND deleted = $2
		ORDER BY created_at DESC`,
		ownerID, deleted,
	)
}

// ListByRecipientEmail lists live sent instances that include email as a recipient
func (s *InstanceStore) ListByRecipientEmail(ctx context.Context, email string) ([]*domain.Instance, error) {
	return s.query(ctx, `
		SELECT `+instanceColumns+`
		FROM instances
		WHERE deleted = FALSE
		  AND status <> 'draft'
		  AND id IN (SELECT instance_id FROM recipients WHERE email = $1)
		ORDER BY created_at DESC`,
		email,
	)
}

// query loads instances and then their recipients and fields in two batch queries
func (s *InstanceStore) query(ctx context.Context, query string, args ...any) ([]*domain.Instance, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query instances: %w", err)
	}
	defer rows.Close()

	var instances []*domain.Instance
	byID := make(map[string]*domain.Instance)
	for rows.Next() {
		var inst domain.Instance
		var mode, status string
		var sentAt, completedAt sql.NullTime
		err := rows.Scan(
			&inst.ID,
			&inst.OwnerID,
			&inst.Name,
			&inst.Description,
			&inst.DocumentURL,
			&inst.EmailSubject,
			&inst.EmailMessage,
			&mode,
			&status,
			&inst.Favorite,
			&inst.Deleted,
			&sentAt,
			&completedAt,
			&inst.CreatedAt,
			&inst.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		inst.Mode = domain.SigningMode(mode)
		inst.Status = domain.InstanceStatus(status)
		inst.SentAt = TimePtr(sentAt)
		inst.CompletedAt = TimePtr(completedAt)
		inst.Recipients = []*domain.Recipient{}
		inst.Fields = []*domain.Field{}
		instances = append(instances, &inst)
		byID[inst.ID] = &inst
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instances: %w", err)
	}
	if len(instances) == 0 {
		return instances, nil
	}

	ids := make([]string, 0, len(instances))
	for _, inst := range instances {
		ids = append(ids, inst.ID)
	}
	if err := s.loadRecipients(ctx, ids, byID); err != nil {
		return nil, err
	}
	if err := s.loadFields(ctx, ids, byID); err != nil {
		return nil, err
	}
	return instances, nil
}

func (s *InstanceStore) loadRecipients(ctx context.Context, ids []string, byID map[string]*domain.Instance) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT instance_id, id, name, email, role, rank
		FROM recipients
		WHERE instance_id = ANY($1)
		ORDER BY instance_id, position`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("query recipients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r domain.Recipient
		var rank sql.NullInt64
		if err := rows.Scan(&r.InstanceID, &r.ID, &r.Name, &r.Email, &r.Role, &rank); err != nil {
			return fmt.Errorf("scan recipient: %w", err)
		}
		r.Rank = IntPtr(rank)
		if inst, ok := byID[r.InstanceID]; ok {
			inst.Recipients = append(inst.Recipients, &r)
		}
	}
	return rows.Err()
}

func (s *InstanceStore) loadFields(ctx context.Context, ids []string, byID map[string]*domain.Instance) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT instance_id, id, type, page, x, y, width, height, value, recipient_id, updated_at
		FROM fields
		WHERE instance_id = ANY($1)
		ORDER BY instance_id, page, y, x, id`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("query fields: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f domain.Field
		var fieldType string
		err := rows.Scan(
			&f.InstanceID, &f.ID, &fieldType,
			&f.Position.Page, &f.Position.X, &f.Position.Y,
			&f.Width, &f.Height, &f.Value, &f.RecipientID, &f.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("scan field: %w", err)
		}
		f.Type = domain.FieldType(fieldType)
		if inst, ok := byID[f.InstanceID]; ok {
			inst.Fields = append(inst.Fields, &f)
		}
	}
	return rows.Err()
}

// ReplaceFields swaps the field set of a draft instance
func (s *InstanceStore) ReplaceFields(ctx context.Context, instanceID string, fields []*domain.Field) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM instances WHERE id = $1 FOR UPDATE`, instanceID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		if domain.InstanceStatus(status) != domain.InstanceStatusDraft {
			return domain.ErrAlreadySent
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM fields WHERE instance_id = $1`, instanceID); err != nil {
			return fmt.Errorf("delete fields: %w", err)
		}
		if err := insertFields(ctx, tx, instanceID, fields); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE instances SET updated_at = $1 WHERE id = $2`, time.Now(), instanceID)
		return err
	})
}

// SetFavorite sets the favorite flag
func (s *InstanceStore) SetFavorite(ctx context.Context, instanceID string, favorite bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE instances SET favorite = $1, updated_at = $2 WHERE id = $3`,
		favorite, time.Now(), instanceID,
	)
	if err != nil {
		return err
	}
	return expectRows(result)
}

// SetDeleted sets the soft-delete flag
func (s *InstanceStore) SetDeleted(ctx context.Context, instanceID string, deleted bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE instances SET deleted = $1, updated_at = $2 WHERE id = $3`,
		deleted, time.Now(), instanceID,
	)
	if err != nil {
		return err
	}
	return expectRows(result)
}

// Purge deletes an instance; recipients, fields and progress cascade
func (s *InstanceStore) Purge(ctx context.Context, instanceID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM instances WHERE id = $1`, instanceID)
	if err != nil {
		return err
	}
	return expectRows(result)
}

// MarkSent moves a draft to sent and creates its progress records
func (s *InstanceStore) MarkSent(ctx context.Context, instanceID string, mode domain.SigningMode, progress []*domain.SigningProgress) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		now := time.Now()
		result, err := tx.ExecContext(ctx, `
			UPDATE instances
			SET mode = $1, status = $2, sent_at = $3, updated_at = $3
			WHERE id = $4 AND status = $5`,
			string(mode), string(domain.InstanceStatusSent), now, instanceID, string(domain.InstanceStatusDraft),
		)
		if err != nil {
			return fmt.Errorf("update instance: %w", err)
		}
		if err := expectRows(result); err != nil {
			return s.transitionError(ctx, tx, instanceID, domain.ErrAlreadySent)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO signing_progress (instance_id, recipient_id, rank, status, signed_at)
			VALUES ($1, $2, $3, $4, $5)`)
		if err != nil {
			return fmt.Errorf("prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, p := range progress {
			var signedAt *time.Time
			if p.IsSigned() {
				signedAt = &now
			}
			if _, err := stmt.ExecContext(ctx, instanceID, p.RecipientID, p.Rank, string(p.Status), NullTime(signedAt)); err != nil {
				return fmt.Errorf("insert progress for %s: %w", p.RecipientID, err)
			}
		}
		return nil
	})
}

// ListProgress returns the progress records of an instance ordered by rank
func (s *InstanceStore) ListProgress(ctx context.Context, instanceID string) ([]*domain.SigningProgress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT instance_id, recipient_id, rank, status, signed_at
		FROM signing_progress
		WHERE instance_id = $1
		ORDER BY rank, recipient_id`,
		instanceID,
	)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	var progress []*domain.SigningProgress
	for rows.Next() {
		var p domain.SigningProgress
		var status string
		var signedAt sql.NullTime
		if err := rows.Scan(&p.InstanceID, &p.RecipientID, &p.Rank, &status, &signedAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		p.Status = domain.ProgressStatus(status)
		p.SignedAt = TimePtr(signedAt)
		progress = append(progress, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return progress, nil
}

// UpdateFieldValues writes every value or none of them
func (s *InstanceStore) UpdateFieldValues(ctx context.Context, instanceID string, values map[string]string) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		now := time.Now()
		for id, value := range values {
			result, err := tx.ExecContext(ctx,
				`UPDATE fields SET value = $1, updated_at = $2 WHERE instance_id = $3 AND id = $4`,
				value, now, instanceID, id,
			)
			if err != nil {
				return fmt.Errorf("update field %s: %w", id, err)
			}
			if err := expectRows(result); err != nil {
				return fmt.Errorf("field %s: %w", id, err)
			}
		}
		_, err := tx.ExecContext(ctx, `UPDATE instances SET updated_at = $1 WHERE id = $2`, now, instanceID)
		return err
	})
}

// MarkSigned moves a pending progress record to signed
func (s *InstanceStore) MarkSigned(ctx context.Context, instanceID, recipientID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE signing_progress
		SET status = $1, signed_at = $2
		WHERE instance_id = $3 AND recipient_id = $4 AND status = $5`,
		string(domain.ProgressStatusSigned), time.Now(), instanceID, recipientID, string(domain.ProgressStatusPending),
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if expectRows(result) == nil {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM signing_progress WHERE instance_id = $1 AND recipient_id = $2)`,
		instanceID, recipientID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrAlreadySigned
}

// MarkCompleted moves a sent instance to completed
func (s *InstanceStore) MarkCompleted(ctx context.Context, instanceID string) error {
	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE instances
		SET status = $1, completed_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4`,
		string(domain.InstanceStatusCompleted), now, instanceID, string(domain.InstanceStatusSent),
	)
	if err != nil {
		return fmt.Errorf("update instance: %w", err)
	}
	if expectRows(result) == nil {
		return nil
	}
	return s.transitionError(ctx, s.db, instanceID, domain.ErrAlreadyCompleted)
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// transitionError tells a missing instance apart from one that was in the
// wrong state for a conditional update.
func (s *InstanceStore) transitionError(ctx context.Context, q rowQuerier, instanceID string, wrongState error) error {
	var exists bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM instances WHERE id = $1)`, instanceID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return wrongState
}
