package triage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

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

type assessmentRepoPG struct{ pool *pgxpool.Pool }

func NewAssessmentRepoPG(pool *pgxpool.Pool) AssessmentRepository {
	return &assessmentRepoPG{pool: pool}
}

func (r *assessmentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const raCols = `id, patient_id, follow_up_id, day_offset, rule_level, ai_level, final_level,
	flags, answers, response_text, alerted, alerted_at, created_at`

func (r *assessmentRepoPG) scanRow(row pgx.Row) (*RiskAssessment, error) {
	var a RiskAssessment
	var ruleLevel, aiLevel, finalLevel string
	var flagsJSON, answersJSON []byte
	err := row.Scan(&a.ID, &a.PatientID, &a.FollowUpID, &a.DayOffset,
		&ruleLevel, &aiLevel, &finalLevel,
		&flagsJSON, &answersJSON, &a.ResponseText, &a.Alerted, &a.AlertedAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.RuleLevel = ParseLevel(ruleLevel)
	a.AILevel = ParseLevel(aiLevel)
	a.FinalLevel = ParseLevel(finalLevel)
	if len(flagsJSON) > 0 {
		if err := json.Unmarshal(flagsJSON, &a.Flags); err != nil {
			return nil, fmt.Errorf("unmarshal flags: %w", err)
		}
	}
	if len(answersJSON) > 0 {
		if err := json.Unmarshal(answersJSON, &a.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
	}
	return &a, nil
}

func (r *assessmentRepoPG) Create(ctx context.Context, a *RiskAssessment) error {
	a.ID = uuid.New()
	flagsJSON, err := json.Marshal(a.Flags)
	if err != nil {
		return fmt.Errorf("marshal flags: %w", err)
	}
	answersJSON, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO risk_assessment (id, patient_id, follow_up_id, day_offset,
			rule_level, ai_level, final_level, flags, answers, response_text, alerted)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,false)`,
		a.ID, a.PatientID, a.FollowUpID, a.DayOffset,
		a.RuleLevel.String(), a.AILevel.String(), a.FinalLevel.String(),
		flagsJSON, answersJSON, a.ResponseText)
	return err
}

func (r *assessmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*RiskAssessment, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+raCols+` FROM risk_assessment WHERE id = $1`, id))
}

func (r *assessmentRepoPG) GetByFollowUp(ctx context.Context, followUpID uuid.UUID) (*RiskAssessment, error) {
	a, err := r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+raCols+` FROM risk_assessment WHERE follow_up_id = $1`, followUpID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *assessmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*RiskAssessment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM risk_assessment WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+raCols+` FROM risk_assessment
		WHERE patient_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*RiskAssessment
	for rows.Next() {
		a, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

func (r *assessmentRepoPG) MarkAlerted(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE risk_assessment SET alerted = true, alerted_at = NOW()
		WHERE id = $1 AND alerted = false`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
