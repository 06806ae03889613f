package followup

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aftercare/aftercare/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type followUpRepoPG struct{ pool *pgxpool.Pool }

func NewFollowUpRepoPG(pool *pgxpool.Pool) FollowUpRepository {
	return &followUpRepoPG{pool: pool}
}

func (r *followUpRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const fuCols = `id, patient_id, surgery_type, day_offset, status, scheduled_at, responded_at, created_at, updated_at`

func (r *followUpRepoPG) scanRow(row pgx.Row) (*FollowUp, error) {
	var f FollowUp
	err := row.Scan(&f.ID, &f.PatientID, &f.SurgeryType, &f.DayOffset, &f.Status,
		&f.ScheduledAt, &f.RespondedAt, &f.CreatedAt, &f.UpdatedAt)
	return &f, err
}

func (r *followUpRepoPG) Create(ctx context.Context, f *FollowUp) error {
	f.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO follow_up (id, patient_id, surgery_type, day_offset, status, scheduled_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		f.ID, f.PatientID, f.SurgeryType, f.DayOffset, f.Status, f.ScheduledAt)
	return err
}

func (r *followUpRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*FollowUp, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+fuCols+` FROM follow_up WHERE id = $1`, id))
}

func (r *followUpRepoPG) UpdateStatus(ctx context.Context, f *FollowUp) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE follow_up SET status=$2, responded_at=$3, updated_at=NOW()
		WHERE id = $1`,
		f.ID, f.Status, f.RespondedAt)
	return err
}

func (r *followUpRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*FollowUp, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM follow_up WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+fuCols+` FROM follow_up
		WHERE patient_id = $1
		ORDER BY scheduled_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*FollowUp
	for rows.Next() {
		f, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, f)
	}
	return items, total, nil
}

func (r *followUpRepoPG) ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*FollowUp, error) {
	f, err := r.scanRow(r.conn(ctx).QueryRow(ctx, `
		SELECT `+fuCols+` FROM follow_up
		WHERE patient_id = $1 AND status IN ($2, $3)
		ORDER BY scheduled_at DESC LIMIT 1`,
		patientID, StatusSent, StatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return f, nil
}
