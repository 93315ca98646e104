package repository

import (
	"context"
	"fmt"

	"github.com/stemsi/exstem-qbank/internal/model"
)

// Answer and selection tables of the two choice variants. Names are fixed
// here and never come from input.
const (
	singleChoiceAnswerTable      = "question_single_choice_answer"
	multipleChoiceAnswerTable    = "question_multiple_choice_answer"
	singleChoiceSelectionTable   = "session_single_choice_selection"
	multipleChoiceSelectionTable = "session_multiple_choice_selection"
)

// insertAnswers stores texts with local ids 1..N in input order.
func insertAnswers(ctx context.Context, q querier, table string, questionID int, texts []string) error {
	_, err := q.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (question_id, local_id, text)
		 SELECT $1, u.local_id, u.text
		 FROM UNNEST($2::int[], $3::text[]) AS u (local_id, text)`, table),
		questionID, localIDs(len(texts)), texts,
	)
	if err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// updateAnswerTexts rewrites texts in place, keeping global answer ids.
func updateAnswerTexts(ctx context.Context, q querier, table string, questionID int, texts []string) error {
	_, err := q.Exec(ctx,
		fmt.Sprintf(`UPDATE %s AS a
		 SET text = u.text
		 FROM UNNEST($2::int[], $3::text[]) AS u (local_id, text)
		 WHERE a.question_id = $1 AND a.local_id = u.local_id`, table),
		questionID, localIDs(len(texts)), texts,
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return nil
}

func deleteAnswers(ctx context.Context, q querier, table string, questionID int) error {
	if _, err := q.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE question_id = $1`, table), questionID); err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}

func listAnswers(ctx context.Context, q querier, table string, questionID int) ([]model.ChoiceAnswer, error) {
	rows, err := q.Query(ctx,
		fmt.Sprintf(`SELECT id, question_id, local_id, text FROM %s WHERE question_id = $1 ORDER BY local_id`, table),
		questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.ChoiceAnswer
	for rows.Next() {
		var a model.ChoiceAnswer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.LocalID, &a.Text); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

func countAnswers(ctx context.Context, q querier, table string, questionID int) (int, error) {
	var n int
	err := q.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE question_id = $1`, table), questionID).Scan(&n)
	return n, err
}
