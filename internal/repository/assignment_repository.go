package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-qbank/internal/database"
	"github.com/stemsi/exstem-qbank/internal/model"
)

// AssignmentRepository handles the assignment extension tables.
type AssignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository creates a new AssignmentRepository.
func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

// Create stores the extension row, the identifiers with their correct
// answer pointers, and the answers. Local ids follow input order.
func (r *AssignmentRepository) Create(ctx context.Context, questionID int, identifiers []string, correctLocalIDs []int, answers []string) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO question_assignment (question_id) VALUES ($1)`, questionID,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO question_assignment_identifier (question_id, local_id, text, correct_answer_local_id)
			 SELECT $1, u.local_id, u.text, u.correct
			 FROM UNNEST($2::int[], $3::text[], $4::int[]) AS u (local_id, text, correct)`,
			questionID, localIDs(len(identifiers)), identifiers, correctLocalIDs,
		); err != nil {
			return fmt.Errorf("insert identifiers: %w", err)
		}
		return insertAssignmentAnswers(ctx, tx, questionID, answers)
	})
}

func insertAssignmentAnswers(ctx context.Context, q querier, questionID int, answers []string) error {
	_, err := q.Exec(ctx,
		`INSERT INTO question_assignment_answer (question_id, local_id, text)
		 SELECT $1, u.local_id, u.text
		 FROM UNNEST($2::int[], $3::text[]) AS u (local_id, text)`,
		questionID, localIDs(len(answers)), answers,
	)
	if err != nil {
		return fmt.Errorf("insert assignment answers: %w", err)
	}
	return nil
}

// Get loads identifiers and answers in local id order.
func (r *AssignmentRepository) Get(ctx context.Context, questionID int) (*model.Assignment, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM question_assignment WHERE question_id = $1)`, questionID,
	).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, pgx.ErrNoRows
	}

	a := &model.Assignment{}

	rows, err := r.pool.Query(ctx,
		`SELECT id, local_id, text, correct_answer_local_id
		 FROM question_assignment_identifier
		 WHERE question_id = $1 ORDER BY local_id`, questionID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var ident model.AssignmentIdentifier
		if err := rows.Scan(&ident.ID, &ident.LocalID, &ident.Text, &ident.CorrectAnswerLocalID); err != nil {
			rows.Close()
			return nil, err
		}
		a.Identifiers = append(a.Identifiers, ident)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx,
		`SELECT id, local_id, text FROM question_assignment_answer
		 WHERE question_id = $1 ORDER BY local_id`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ans model.AssignmentAnswer
		if err := rows.Scan(&ans.ID, &ans.LocalID, &ans.Text); err != nil {
			return nil, err
		}
		a.Answers = append(a.Answers, ans)
	}
	return a, rows.Err()
}

// ReplaceIdentifierTexts rewrites identifier texts in place.
func (r *AssignmentRepository) ReplaceIdentifierTexts(ctx context.Context, questionID int, texts []string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE question_assignment_identifier AS i
		 SET text = u.text
		 FROM UNNEST($2::int[], $3::text[]) AS u (local_id, text)
		 WHERE i.question_id = $1 AND i.local_id = u.local_id`,
		questionID, localIDs(len(texts)), texts,
	)
	return err
}

// ReplaceAnswers deletes all answers and recreates them with local ids 1..N.
func (r *AssignmentRepository) ReplaceAnswers(ctx context.Context, questionID int, answers []string) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM question_assignment_answer WHERE question_id = $1`, questionID,
		); err != nil {
			return err
		}
		return insertAssignmentAnswers(ctx, tx, questionID, answers)
	})
}

// SetCorrectAnswers points identifier i (1-based) at correctLocalIDs[i-1].
func (r *AssignmentRepository) SetCorrectAnswers(ctx context.Context, questionID int, correctLocalIDs []int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE question_assignment_identifier AS i
		 SET correct_answer_local_id = u.correct
		 FROM UNNEST($2::int[], $3::int[]) AS u (local_id, correct)
		 WHERE i.question_id = $1 AND i.local_id = u.local_id`,
		questionID, localIDs(len(correctLocalIDs)), correctLocalIDs,
	)
	return err
}
