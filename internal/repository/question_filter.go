package repository

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/stemsi/exstem-qbank/internal/model"
)

// prefixQuery turns free text into a to_tsquery expression. Words are
// AND-ed; the last word matches as a prefix unless the term ends in a space,
// which marks it as complete. Returns "" when no searchable word remains.
func prefixQuery(term string) string {
	words := strings.FieldsFunc(term, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return ""
	}
	query := strings.Join(words, " & ")
	if !strings.HasSuffix(term, " ") {
		query += ":*"
	}
	return query
}

// matchClause builds the FROM/WHERE part shared by assignment and the
// matching count. Only approved questions are eligible.
func matchClause(f model.QuestionFilter) (string, []any) {
	var sb strings.Builder
	args := []any{}

	sb.WriteString(`
		FROM question_base q
		JOIN course c ON c.id = q.course_id
		JOIN module m ON m.id = c.module_id
		LEFT JOIN question_has_tag qt ON qt.question_id = q.id
		WHERE q.is_approved`)

	if len(f.ModuleIDs) > 0 {
		args = append(args, f.ModuleIDs)
		sb.WriteString(fmt.Sprintf(" AND c.module_id = ANY($%d)", len(args)))
	}
	if len(f.SemesterIDs) > 0 {
		args = append(args, f.SemesterIDs)
		sb.WriteString(fmt.Sprintf(" AND m.semester_id = ANY($%d)", len(args)))
	}
	if len(f.TagIDs) > 0 {
		args = append(args, f.TagIDs)
		sb.WriteString(fmt.Sprintf(" AND qt.tag_id = ANY($%d)", len(args)))
	}
	if len(f.QuestionTypes) > 0 {
		types := make([]string, len(f.QuestionTypes))
		for i, t := range f.QuestionTypes {
			types[i] = string(t)
		}
		args = append(args, types)
		sb.WriteString(fmt.Sprintf(" AND q.type = ANY($%d)", len(args)))
	}
	if len(f.Origins) > 0 {
		args = append(args, f.Origins)
		sb.WriteString(fmt.Sprintf(" AND q.origin = ANY($%d)", len(args)))
	}
	if query := prefixQuery(f.Text); query != "" {
		args = append(args, query)
		sb.WriteString(fmt.Sprintf(" AND q.search_document @@ to_tsquery('simple', $%d)", len(args)))
	}

	return sb.String(), args
}

// matchingIDs returns the ids of all questions matching f in ascending order.
func matchingIDs(ctx context.Context, q querier, f model.QuestionFilter) ([]int, error) {
	clause, args := matchClause(f)
	rows, err := q.Query(ctx, "SELECT DISTINCT q.id"+clause+" ORDER BY q.id", args...)
	if err != nil {
		return nil, fmt.Errorf("query matching questions: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func countMatching(ctx context.Context, q querier, f model.QuestionFilter) (int, error) {
	clause, args := matchClause(f)
	var total int
	err := q.QueryRow(ctx, "SELECT COUNT(DISTINCT q.id)"+clause, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count matching questions: %w", err)
	}
	return total, nil
}
