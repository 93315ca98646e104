package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-qbank/internal/database"
	"github.com/stemsi/exstem-qbank/internal/model"
)

// SingleChoiceRepository handles the single-choice extension tables.
type SingleChoiceRepository struct {
	pool *pgxpool.Pool
}

// NewSingleChoiceRepository creates a new SingleChoiceRepository.
func NewSingleChoiceRepository(pool *pgxpool.Pool) *SingleChoiceRepository {
	return &SingleChoiceRepository{pool: pool}
}

// Create stores the extension row and its answers.
func (r *SingleChoiceRepository) Create(ctx context.Context, questionID, correctLocalID int, answers []string) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO question_single_choice (question_id, correct_answer_local_id) VALUES ($1, $2)`,
			questionID, correctLocalID,
		); err != nil {
			return err
		}
		return insertAnswers(ctx, tx, singleChoiceAnswerTable, questionID, answers)
	})
}

// Get loads the extension with its answers in local id order.
func (r *SingleChoiceRepository) Get(ctx context.Context, questionID int) (*model.SingleChoice, error) {
	sc := &model.SingleChoice{}
	err := r.pool.QueryRow(ctx,
		`SELECT correct_answer_local_id FROM question_single_choice WHERE question_id = $1`, questionID,
	).Scan(&sc.CorrectAnswerLocalID)
	if err != nil {
		return nil, err
	}

	sc.Answers, err = listAnswers(ctx, r.pool, singleChoiceAnswerTable, questionID)
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// Update replaces answer texts in place and/or the correct answer.
// A nil argument leaves that part unchanged.
func (r *SingleChoiceRepository) Update(ctx context.Context, questionID int, correctLocalID *int, answers []string) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if answers != nil {
			if err := updateAnswerTexts(ctx, tx, singleChoiceAnswerTable, questionID, answers); err != nil {
				return err
			}
		}
		if correctLocalID != nil {
			return execOne(ctx, tx,
				`UPDATE question_single_choice SET correct_answer_local_id = $1 WHERE question_id = $2`,
				*correctLocalID, questionID)
		}
		return nil
	})
}
