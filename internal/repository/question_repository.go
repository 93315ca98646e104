package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-qbank/internal/model"
)

const questionColumns = `q.id, q.text, q.type, q.additional_information, q.points, q.exam_id,
	q.course_id, q.creator_id, q.updater_id, q.origin, q.is_approved, q.created_at, q.updated_at`

// QuestionRepository handles question base data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

func scanQuestion(row pgx.Row, q *model.Question) error {
	return row.Scan(&q.ID, &q.Text, &q.Type, &q.AdditionalInformation, &q.Points, &q.ExamID,
		&q.CourseID, &q.CreatorID, &q.UpdaterID, &q.Origin, &q.IsApproved, &q.CreatedAt, &q.UpdatedAt)
}

func collectQuestions(rows pgx.Rows) ([]model.Question, error) {
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Create inserts a new, unapproved question base.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO question_base (text, type, additional_information, points, exam_id, course_id, creator_id, origin, is_approved)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE)
		 RETURNING id, is_approved, created_at, updated_at`,
		q.Text, q.Type, q.AdditionalInformation, q.Points, q.ExamID, q.CourseID, q.CreatorID, q.Origin,
	).Scan(&q.ID, &q.IsApproved, &q.CreatedAt, &q.UpdatedAt)
}

// GetByID retrieves a question base by id.
func (r *QuestionRepository) GetByID(ctx context.Context, id int) (*model.Question, error) {
	q := &model.Question{}
	err := scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM question_base q WHERE q.id = $1`, id), q)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Update saves the editable base fields and clears the approval flag.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`UPDATE question_base
		 SET text = $1, additional_information = $2, points = $3, exam_id = $4, course_id = $5,
		     origin = $6, updater_id = $7, is_approved = FALSE, updated_at = NOW()
		 WHERE id = $8
		 RETURNING is_approved, updated_at`,
		q.Text, q.AdditionalInformation, q.Points, q.ExamID, q.CourseID, q.Origin, q.UpdaterID, q.ID,
	).Scan(&q.IsApproved, &q.UpdatedAt)
}

// SetApproved sets the approval flag.
func (r *QuestionRepository) SetApproved(ctx context.Context, id int, approved bool) error {
	return execOne(ctx, r.pool,
		`UPDATE question_base SET is_approved = $1, updated_at = NOW() WHERE id = $2`, approved, id)
}

// Delete removes a question base. Extension, answer, membership and
// selection rows go with it through ON DELETE CASCADE.
func (r *QuestionRepository) Delete(ctx context.Context, id int) error {
	return execOne(ctx, r.pool, `DELETE FROM question_base WHERE id = $1`, id)
}

// ListByExam retrieves the questions of an exam.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID int, onlyApproved bool) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM question_base q
		 WHERE q.exam_id = $1 AND (q.is_approved OR NOT $2)
		 ORDER BY q.id`, examID, onlyApproved)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// ListByCourse retrieves the questions of a course.
func (r *QuestionRepository) ListByCourse(ctx context.Context, courseID int, onlyApproved bool) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM question_base q
		 WHERE q.course_id = $1 AND (q.is_approved OR NOT $2)
		 ORDER BY q.id`, courseID, onlyApproved)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// ListBySession retrieves the questions assigned to a session in local id order.
func (r *QuestionRepository) ListBySession(ctx context.Context, sessionID int) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM question_base q
		 JOIN session_has_question shq ON shq.question_id = q.id
		 WHERE shq.session_id = $1
		 ORDER BY shq.local_id`, sessionID)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// Search lists questions matching the catalogue search, ranked by text
// relevance when a term is given and newest first otherwise.
func (r *QuestionRepository) Search(ctx context.Context, s model.QuestionSearch, limit, offset int) ([]model.Question, int, error) {
	var where strings.Builder
	args := []any{}
	where.WriteString(` FROM question_base q
		JOIN course c ON c.id = q.course_id
		JOIN module m ON m.id = c.module_id
		WHERE TRUE`)

	if s.OnlyApproved {
		where.WriteString(" AND q.is_approved")
	}
	if s.SemesterID != nil {
		args = append(args, *s.SemesterID)
		where.WriteString(fmt.Sprintf(" AND m.semester_id = $%d", len(args)))
	}
	if s.ModuleID != nil {
		args = append(args, *s.ModuleID)
		where.WriteString(fmt.Sprintf(" AND c.module_id = $%d", len(args)))
	}
	if s.CourseID != nil {
		args = append(args, *s.CourseID)
		where.WriteString(fmt.Sprintf(" AND q.course_id = $%d", len(args)))
	}
	if s.ExamID != nil {
		args = append(args, *s.ExamID)
		where.WriteString(fmt.Sprintf(" AND q.exam_id = $%d", len(args)))
	}
	if s.TagID != nil {
		args = append(args, *s.TagID)
		where.WriteString(fmt.Sprintf(" AND EXISTS (SELECT 1 FROM question_has_tag qt WHERE qt.question_id = q.id AND qt.tag_id = $%d)", len(args)))
	}

	orderBy := " ORDER BY q.created_at DESC, q.id DESC"
	if query := prefixQuery(s.Term); query != "" {
		args = append(args, query)
		n := len(args)
		where.WriteString(fmt.Sprintf(" AND q.search_document @@ to_tsquery('simple', $%d)", n))
		orderBy = fmt.Sprintf(" ORDER BY ts_rank(q.search_document, to_tsquery('simple', $%d)) DESC, q.id DESC", n)
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*)"+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count questions: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx,
		"SELECT "+questionColumns+where.String()+orderBy+fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search questions: %w", err)
	}
	questions, err := collectQuestions(rows)
	if err != nil {
		return nil, 0, err
	}
	return questions, total, nil
}

// CountMatching counts the approved questions a session with filter f would receive.
func (r *QuestionRepository) CountMatching(ctx context.Context, f model.QuestionFilter) (int, error) {
	return countMatching(ctx, r.pool, f)
}
