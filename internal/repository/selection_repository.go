package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-qbank/internal/model"
)

type selectionTables struct {
	answers    string
	selections string
}

var selectionTablesByType = map[model.QuestionType]selectionTables{
	model.QuestionTypeSingleChoice:   {answers: singleChoiceAnswerTable, selections: singleChoiceSelectionTable},
	model.QuestionTypeMultipleChoice: {answers: multipleChoiceAnswerTable, selections: multipleChoiceSelectionTable},
}

// SelectionRepository stores per-answer selections of choice questions.
type SelectionRepository struct {
	pool *pgxpool.Pool
}

// NewSelectionRepository creates a new SelectionRepository.
func NewSelectionRepository(pool *pgxpool.Pool) *SelectionRepository {
	return &SelectionRepository{pool: pool}
}

func tablesFor(qType model.QuestionType) (selectionTables, error) {
	t, ok := selectionTablesByType[qType]
	if !ok {
		return selectionTables{}, fmt.Errorf("question type %q has no selection table", qType)
	}
	return t, nil
}

// CountAnswers returns the number of answer positions of a choice question.
func (r *SelectionRepository) CountAnswers(ctx context.Context, qType model.QuestionType, questionID int) (int, error) {
	t, err := tablesFor(qType)
	if err != nil {
		return 0, err
	}
	return countAnswers(ctx, r.pool, t.answers, questionID)
}

// Upsert writes the state of every given position in a single statement,
// keyed by (session id, global answer id).
func (r *SelectionRepository) Upsert(ctx context.Context, qType model.QuestionType, sessionID, questionID int, states []model.SelectionState) error {
	t, err := tablesFor(qType)
	if err != nil {
		return err
	}

	positions := make([]int, len(states))
	checked := make([]bool, len(states))
	crossed := make([]bool, len(states))
	for i, s := range states {
		positions[i] = s.LocalAnswerID
		checked[i] = s.IsChecked
		crossed[i] = s.IsCrossed
	}

	_, err = r.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (session_id, answer_id, is_checked, is_crossed)
		 SELECT $1, a.id, u.is_checked, u.is_crossed
		 FROM UNNEST($3::int[], $4::bool[], $5::bool[]) AS u (local_id, is_checked, is_crossed)
		 JOIN %s a ON a.local_id = u.local_id
		 WHERE a.question_id = $2
		 ON CONFLICT (session_id, answer_id)
		 DO UPDATE SET is_checked = EXCLUDED.is_checked, is_crossed = EXCLUDED.is_crossed`,
			t.selections, t.answers),
		sessionID, questionID, positions, checked, crossed,
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", t.selections, err)
	}
	return nil
}

// List returns the stored selections of the question at localID,
// translated to session-local ids.
func (r *SelectionRepository) List(ctx context.Context, qType model.QuestionType, sessionID, localID int) ([]model.Selection, error) {
	t, err := tablesFor(qType)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT shq.local_id, a.local_id, s.is_checked, s.is_crossed
		 FROM %s s
		 JOIN %s a ON a.id = s.answer_id
		 JOIN session_has_question shq ON shq.session_id = s.session_id AND shq.question_id = a.question_id
		 WHERE s.session_id = $1 AND shq.local_id = $2
		 ORDER BY a.local_id`, t.selections, t.answers),
		sessionID, localID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var selections []model.Selection
	for rows.Next() {
		var s model.Selection
		if err := rows.Scan(&s.LocalQuestionID, &s.LocalAnswerID, &s.IsChecked, &s.IsCrossed); err != nil {
			return nil, err
		}
		selections = append(selections, s)
	}
	return selections, rows.Err()
}
