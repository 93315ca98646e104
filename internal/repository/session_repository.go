package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-qbank/internal/database"
	"github.com/stemsi/exstem-qbank/internal/model"
)

const sessionColumns = `id, creator_id, name, notes, type, is_random, is_finished, created_at, updated_at`

// SessionRepository handles sessions and their question membership.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func scanSession(row pgx.Row, s *model.Session) error {
	return row.Scan(&s.ID, &s.CreatorID, &s.Name, &s.Notes, &s.Type, &s.IsRandom, &s.IsFinished, &s.CreatedAt, &s.UpdatedAt)
}

// CreateWithQuestions inserts the session and, in the same transaction,
// selects every approved question matching filter, lets arrange order them
// and binds them with local ids 1..N. Returns the number of assigned questions.
func (r *SessionRepository) CreateWithQuestions(ctx context.Context, s *model.Session, filter model.QuestionFilter, arrange func(ids []int) []int) (int, error) {
	var assigned int
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO session (creator_id, name, notes, type, is_random, is_finished)
			 VALUES ($1, $2, $3, $4, $5, FALSE)
			 RETURNING id, is_finished, created_at, updated_at`,
			s.CreatorID, s.Name, s.Notes, s.Type, s.IsRandom,
		).Scan(&s.ID, &s.IsFinished, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}

		ids, err := matchingIDs(ctx, tx, filter)
		if err != nil {
			return err
		}
		ids = arrange(ids)
		assigned = len(ids)
		if assigned == 0 {
			return nil
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO session_has_question (session_id, question_id, local_id)
			 SELECT $1, u.question_id, u.local_id
			 FROM UNNEST($2::int[], $3::int[]) AS u (question_id, local_id)`,
			s.ID, ids, localIDs(assigned),
		); err != nil {
			return fmt.Errorf("insert session questions: %w", err)
		}
		return nil
	})
	return assigned, err
}

// GetByID retrieves a session by id.
func (r *SessionRepository) GetByID(ctx context.Context, id int) (*model.Session, error) {
	s := &model.Session{}
	if err := scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM session WHERE id = $1`, id), s); err != nil {
		return nil, err
	}
	return s, nil
}

// Update saves session metadata. Question membership is not touched.
func (r *SessionRepository) Update(ctx context.Context, s *model.Session) error {
	return r.pool.QueryRow(ctx,
		`UPDATE session SET name = $1, notes = $2, type = $3, is_random = $4, updated_at = NOW()
		 WHERE id = $5
		 RETURNING updated_at`,
		s.Name, s.Notes, s.Type, s.IsRandom, s.ID,
	).Scan(&s.UpdatedAt)
}

// Delete removes a session with its membership and selections.
func (r *SessionRepository) Delete(ctx context.Context, id int) error {
	return execOne(ctx, r.pool, `DELETE FROM session WHERE id = $1`, id)
}

// ListByCreator retrieves a page of a user's sessions, newest first, plus the total count.
func (r *SessionRepository) ListByCreator(ctx context.Context, creatorID, limit, offset int) ([]model.Session, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM session WHERE creator_id = $1`, creatorID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM session
		 WHERE creator_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`, creatorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var s model.Session
		if err := scanSession(rows, &s); err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, s)
	}
	return sessions, total, rows.Err()
}

const sessionQuestionSelect = `SELECT shq.session_id, shq.question_id, shq.local_id, shq.time, shq.is_submitted, q.type, q.points
	FROM session_has_question shq
	JOIN question_base q ON q.id = shq.question_id`

func scanSessionQuestion(row pgx.Row, sq *model.SessionQuestion) error {
	return row.Scan(&sq.SessionID, &sq.QuestionID, &sq.LocalID, &sq.Time, &sq.IsSubmitted, &sq.Type, &sq.Points)
}

// ListQuestions retrieves a session's membership in local id order.
func (r *SessionRepository) ListQuestions(ctx context.Context, sessionID int) ([]model.SessionQuestion, error) {
	rows, err := r.pool.Query(ctx,
		sessionQuestionSelect+` WHERE shq.session_id = $1 ORDER BY shq.local_id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.SessionQuestion
	for rows.Next() {
		var sq model.SessionQuestion
		if err := scanSessionQuestion(rows, &sq); err != nil {
			return nil, err
		}
		questions = append(questions, sq)
	}
	return questions, rows.Err()
}

// GetQuestion retrieves the question bound at localID.
func (r *SessionRepository) GetQuestion(ctx context.Context, sessionID, localID int) (*model.SessionQuestion, error) {
	sq := &model.SessionQuestion{}
	if err := scanSessionQuestion(r.pool.QueryRow(ctx,
		sessionQuestionSelect+` WHERE shq.session_id = $1 AND shq.local_id = $2`, sessionID, localID), sq); err != nil {
		return nil, err
	}
	return sq, nil
}

// CountQuestions returns the number of questions bound to a session.
func (r *SessionRepository) CountQuestions(ctx context.Context, sessionID int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM session_has_question WHERE session_id = $1`, sessionID,
	).Scan(&n)
	return n, err
}

// SetTime overwrites the time spent on a session question.
func (r *SessionRepository) SetTime(ctx context.Context, sessionID, localID, seconds int) error {
	return execOne(ctx, r.pool,
		`UPDATE session_has_question SET time = $1 WHERE session_id = $2 AND local_id = $3`,
		seconds, sessionID, localID)
}

// SubmitQuestion marks one session question as submitted.
func (r *SessionRepository) SubmitQuestion(ctx context.Context, sessionID, localID int) error {
	return execOne(ctx, r.pool,
		`UPDATE session_has_question SET is_submitted = TRUE WHERE session_id = $1 AND local_id = $2`,
		sessionID, localID)
}

// Submit finishes a session and submits all of its questions.
func (r *SessionRepository) Submit(ctx context.Context, sessionID int) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := execOne(ctx, tx,
			`UPDATE session SET is_finished = TRUE, updated_at = NOW() WHERE id = $1`, sessionID,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`UPDATE session_has_question SET is_submitted = TRUE WHERE session_id = $1`, sessionID)
		return err
	})
}

// Reset reopens a session: per-question state is cleared and all
// selections are deleted, while membership and local ids stay.
func (r *SessionRepository) Reset(ctx context.Context, sessionID int) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := execOne(ctx, tx,
			`UPDATE session SET is_finished = FALSE, updated_at = NOW() WHERE id = $1`, sessionID,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE session_has_question SET is_submitted = FALSE, time = 0 WHERE session_id = $1`, sessionID,
		); err != nil {
			return err
		}
		for _, table := range []string{singleChoiceSelectionTable, multipleChoiceSelectionTable} {
			if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE session_id = $1`, table), sessionID); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}
