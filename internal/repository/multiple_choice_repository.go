package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-qbank/internal/database"
	"github.com/stemsi/exstem-qbank/internal/model"
)

// MultipleChoiceRepository handles the multiple-choice extension tables.
type MultipleChoiceRepository struct {
	pool *pgxpool.Pool
}

// NewMultipleChoiceRepository creates a new MultipleChoiceRepository.
func NewMultipleChoiceRepository(pool *pgxpool.Pool) *MultipleChoiceRepository {
	return &MultipleChoiceRepository{pool: pool}
}

// Create stores the extension row and its answers.
func (r *MultipleChoiceRepository) Create(ctx context.Context, questionID int, correctLocalIDs []int, answers []string) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO question_multiple_choice (question_id, correct_answer_local_ids) VALUES ($1, $2)`,
			questionID, correctLocalIDs,
		); err != nil {
			return err
		}
		return insertAnswers(ctx, tx, multipleChoiceAnswerTable, questionID, answers)
	})
}

// Get loads the extension with its answers in local id order.
func (r *MultipleChoiceRepository) Get(ctx context.Context, questionID int) (*model.MultipleChoice, error) {
	mc := &model.MultipleChoice{}
	err := r.pool.QueryRow(ctx,
		`SELECT correct_answer_local_ids FROM question_multiple_choice WHERE question_id = $1`, questionID,
	).Scan(&mc.CorrectAnswerLocalIDs)
	if err != nil {
		return nil, err
	}

	mc.Answers, err = listAnswers(ctx, r.pool, multipleChoiceAnswerTable, questionID)
	if err != nil {
		return nil, err
	}
	return mc, nil
}

// Update recreates the answers with fresh local ids and/or replaces the
// correct set. A nil argument leaves that part unchanged.
func (r *MultipleChoiceRepository) Update(ctx context.Context, questionID int, correctLocalIDs []int, answers []string) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if answers != nil {
			if err := deleteAnswers(ctx, tx, multipleChoiceAnswerTable, questionID); err != nil {
				return err
			}
			if err := insertAnswers(ctx, tx, multipleChoiceAnswerTable, questionID, answers); err != nil {
				return err
			}
		}
		if correctLocalIDs != nil {
			return execOne(ctx, tx,
				`UPDATE question_multiple_choice SET correct_answer_local_ids = $1 WHERE question_id = $2`,
				correctLocalIDs, questionID)
		}
		return nil
	})
}
