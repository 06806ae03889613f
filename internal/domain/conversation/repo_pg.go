package conversation

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

func connFor(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

type stateRepoPG struct{ pool *pgxpool.Pool }

func NewStateRepoPG(pool *pgxpool.Pool) StateRepository {
	return &stateRepoPG{pool: pool}
}

const stateCols = `patient_id, phase, follow_up_id, question_idx, answers, last_activity_at, created_at, updated_at`

func (r *stateRepoPG) scanRow(row pgx.Row) (*State, error) {
	var s State
	var answersJSON []byte
	err := row.Scan(&s.PatientID, &s.Phase, &s.FollowUpID, &s.QuestionIdx,
		&answersJSON, &s.LastActivityAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Answers = map[string]string{}
	if len(answersJSON) > 0 {
		if err := json.Unmarshal(answersJSON, &s.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
	}
	return &s, nil
}

func (r *stateRepoPG) GetOrCreate(ctx context.Context, patientID uuid.UUID) (*State, error) {
	conn := connFor(ctx, r.pool)
	s, err := r.scanRow(conn.QueryRow(ctx, `SELECT `+stateCols+` FROM conversation_state WHERE patient_id = $1`, patientID))
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	// First contact. The ON CONFLICT guard covers a concurrent first
	// message for the same patient.
	_, err = conn.Exec(ctx, `
		INSERT INTO conversation_state (patient_id, phase, question_idx, answers, last_activity_at)
		VALUES ($1, $2, 0, '{}', NOW())
		ON CONFLICT (patient_id) DO NOTHING`, patientID, PhaseIdle)
	if err != nil {
		return nil, err
	}
	return r.scanRow(conn.QueryRow(ctx, `SELECT `+stateCols+` FROM conversation_state WHERE patient_id = $1`, patientID))
}

func (r *stateRepoPG) Save(ctx context.Context, s *State) error {
	answersJSON, err := json.Marshal(s.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = connFor(ctx, r.pool).Exec(ctx, `
		UPDATE conversation_state
		SET phase=$2, follow_up_id=$3, question_idx=$4, answers=$5, last_activity_at=$6, updated_at=NOW()
		WHERE patient_id = $1`,
		s.PatientID, s.Phase, s.FollowUpID, s.QuestionIdx, answersJSON, s.LastActivityAt)
	return err
}

type processedRepoPG struct{ pool *pgxpool.Pool }

func NewProcessedRepoPG(pool *pgxpool.Pool) ProcessedMessageRepository {
	return &processedRepoPG{pool: pool}
}

func (r *processedRepoPG) AlreadyProcessed(ctx context.Context, messageID string) (bool, error) {
	var exists bool
	err := connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM processed_message WHERE message_id = $1)`, messageID).Scan(&exists)
	return exists, err
}

func (r *processedRepoPG) MarkProcessed(ctx context.Context, messageID string) (bool, error) {
	tag, err := connFor(ctx, r.pool).Exec(ctx, `
		INSERT INTO processed_message (message_id, processed_at)
		VALUES ($1, NOW())
		ON CONFLICT (message_id) DO NOTHING`, messageID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
