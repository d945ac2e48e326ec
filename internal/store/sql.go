package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mind-engage/assessment-engine/internal/exam"
)

type SQL struct {
	db *sql.DB
}

func NewSQL(db *sql.DB) *SQL { return &SQL{db: db} }

func (s *SQL) AppendSubmission(ctx context.Context, collection string, rec exam.Submission) error {
	buf, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO submissions
		(collection,id,subject_id,learner_id,attempt_no,status,score,max_score,percentage,record_json,submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		collection, rec.ID, rec.SubjectID, rec.LearnerID, rec.AttemptNo, string(rec.Status),
		rec.Score, rec.MaxScore, rec.Percentage, string(buf), rec.SubmittedAt.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, rec.ID)
		}
		return err
	}
	return nil
}

func (s *SQL) List(ctx context.Context, collection string) ([]exam.Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_json FROM submissions WHERE collection=$1 ORDER BY seq`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []exam.Submission
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var rec exam.Submission
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQL) SubmittedAttempts(ctx context.Context, collection, subjectID, learnerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM submissions WHERE collection=$1 AND subject_id=$2 AND learner_id=$3 ORDER BY seq`,
		collection, subjectID, learnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// isUniqueViolation matches postgres SQLSTATE 23505 and the extended sqlite
// constraint codes.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return false
}
