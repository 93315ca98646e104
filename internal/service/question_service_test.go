package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stemsi/exstem-qbank/internal/apperror"
	"github.com/stemsi/exstem-qbank/internal/model"
)

func singleChoiceBody(answers []string, correct int) json.RawMessage {
	body, _ := json.Marshal(map[string]any{
		"text":                    "Which organelle produces ATP?",
		"points":                  2,
		"course_id":               3,
		"origin":                  "exam",
		"type":                    "single-choice",
		"answers":                 answers,
		"correct_answer_local_id": correct,
	})
	return body
}

func TestCreate_ValidationOrder(t *testing.T) {
	tests := []struct {
		name string
		body string
		rule string
	}{
		{"missing text", `{"points":1,"course_id":1,"origin":"exam","type":"single-choice"}`, "question.text.required"},
		{"short text", `{"text":"short","points":1,"course_id":1,"origin":"exam"}`, "question.text.too_short"},
		{"text checked before points", `{"text":"short","points":99}`, "question.text.too_short"},
		{"missing points", `{"text":"long enough text","course_id":1,"origin":"exam"}`, "question.points.required"},
		{"negative points", `{"text":"long enough text","points":-1,"course_id":1,"origin":"exam"}`, "question.points.too_low"},
		{"too many points", `{"text":"long enough text","points":11,"course_id":1,"origin":"exam"}`, "question.points.too_high"},
		{"missing course", `{"text":"long enough text","points":0,"origin":"exam"}`, "question.course_id.required"},
		{"missing origin", `{"text":"long enough text","points":10,"course_id":1}`, "question.origin.required"},
		{"unknown origin", `{"text":"long enough text","points":1,"course_id":1,"origin":"rumour"}`, "question.origin.unknown"},
		{"missing type", `{"text":"long enough text","points":1,"course_id":1,"origin":"exam"}`, "question.type.required"},
		{"unknown type", `{"text":"long enough text","points":1,"course_id":1,"origin":"exam","type":"essay"}`, "question.type.unknown"},
		{"malformed body", `{"text":`, "question.payload.malformed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.questionSv.Create(context.Background(), owner, json.RawMessage(tt.body))
			if got := apperror.RuleOf(err); got != tt.rule {
				t.Fatalf("rule = %q, want %q (err: %v)", got, tt.rule, err)
			}
			if len(f.questions.rows) != 0 {
				t.Errorf("base rows = %d, want 0", len(f.questions.rows))
			}
		})
	}
}

func TestCreate_SingleChoice(t *testing.T) {
	f := newFixture()

	view, err := f.questionSv.Create(context.Background(), owner, singleChoiceBody([]string{"Nucleus", "Mitochondrion", "Ribosome"}, 2))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if view.IsApproved {
		t.Error("new question must not be approved")
	}
	if view.CreatorID != owner.UserID {
		t.Errorf("CreatorID = %d, want %d", view.CreatorID, owner.UserID)
	}

	sc, ok := view.Variant.(*model.SingleChoice)
	if !ok {
		t.Fatalf("variant type = %T", view.Variant)
	}
	if sc.CorrectAnswerLocalID != 2 {
		t.Errorf("correct = %d, want 2", sc.CorrectAnswerLocalID)
	}
	for i, a := range sc.Answers {
		if a.LocalID != i+1 {
			t.Errorf("answer %d local id = %d", i, a.LocalID)
		}
	}
}

func TestCreate_VariantFailureDeletesBase(t *testing.T) {
	f := newFixture()

	_, err := f.questionSv.Create(context.Background(), owner, singleChoiceBody([]string{"only one"}, 1))
	if got := apperror.RuleOf(err); got != "single_choice.answers.not_enough" {
		t.Fatalf("rule = %q, want single_choice.answers.not_enough", got)
	}
	if len(f.questions.rows) != 0 {
		t.Fatalf("base rows = %d, want 0 after compensation", len(f.questions.rows))
	}
	if _, err := f.questionSv.Get(context.Background(), 1); apperror.KindOf(err) != apperror.KindNotFound {
		t.Errorf("Get after failed create: %v, want not found", err)
	}
}

func TestCreate_RollbackFailureIsInconsistent(t *testing.T) {
	f := newFixture()
	f.questions.deleteErr = errStoreDown

	_, err := f.questionSv.Create(context.Background(), owner, singleChoiceBody([]string{"a", "b"}, 3))
	if apperror.KindOf(err) != apperror.KindInconsistent {
		t.Fatalf("kind = %v, want inconsistent (err: %v)", apperror.KindOf(err), err)
	}
	if !errors.Is(err, errStoreDown) {
		t.Error("inconsistent error should wrap the delete failure")
	}
}

func TestUpdate_ClearsApproval(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	view, err := f.questionSv.Create(ctx, owner, singleChoiceBody([]string{"a", "b"}, 1))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.questionSv.Approve(ctx, moderator, view.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	updated, err := f.questionSv.Update(ctx, owner, view.ID, json.RawMessage(`{"text":"Which organelle stores DNA?"}`))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.IsApproved || f.questions.rows[view.ID].IsApproved {
		t.Error("update must clear approval")
	}
	if updated.UpdaterID == nil || *updated.UpdaterID != owner.UserID {
		t.Errorf("UpdaterID = %v, want %d", updated.UpdaterID, owner.UserID)
	}
}

func TestUpdate_RejectedVariantLeavesBaseUntouched(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	view, err := f.questionSv.Create(ctx, owner, singleChoiceBody([]string{"a", "b", "c"}, 1))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	body := json.RawMessage(`{"text":"A completely new text","answers":["x","y"]}`)
	_, err = f.questionSv.Update(ctx, owner, view.ID, body)
	if got := apperror.RuleOf(err); got != "single_choice.answers.count_changed" {
		t.Fatalf("rule = %q, want single_choice.answers.count_changed", got)
	}
	if f.questions.rows[view.ID].Text != view.Text {
		t.Error("base text changed although the variant update was rejected")
	}
	if f.singleChoice.updates != 0 {
		t.Errorf("variant updates = %d, want 0", f.singleChoice.updates)
	}
}

func TestUpdate_Permissions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	view, err := f.questionSv.Create(ctx, owner, singleChoiceBody([]string{"a", "b"}, 1))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	body := json.RawMessage(`{"points":5}`)
	if _, err := f.questionSv.Update(ctx, stranger, view.ID, body); apperror.KindOf(err) != apperror.KindForbidden {
		t.Errorf("stranger update: %v, want forbidden", err)
	}
	if _, err := f.questionSv.Update(ctx, moderator, view.ID, body); err != nil {
		t.Errorf("moderator update: %v", err)
	}
	if _, err := f.questionSv.Update(ctx, owner, 999, body); apperror.KindOf(err) != apperror.KindNotFound {
		t.Errorf("missing question: %v, want not found", err)
	}
}

func TestApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("plain user", func(t *testing.T) {
		f := newFixture()
		view, _ := f.questionSv.Create(ctx, owner, singleChoiceBody([]string{"a", "b"}, 1))
		if err := f.questionSv.Approve(ctx, owner, view.ID); apperror.KindOf(err) != apperror.KindForbidden {
			t.Fatalf("err = %v, want forbidden", err)
		}
	})

	t.Run("moderator approving own update", func(t *testing.T) {
		f := newFixture()
		view, _ := f.questionSv.Create(ctx, owner, singleChoiceBody([]string{"a", "b"}, 1))
		if _, err := f.questionSv.Update(ctx, moderator, view.ID, json.RawMessage(`{"points":3}`)); err != nil {
			t.Fatalf("Update: %v", err)
		}
		err := f.questionSv.Approve(ctx, moderator, view.ID)
		if got := apperror.RuleOf(err); got != "question.approve.own_update" {
			t.Fatalf("rule = %q, want question.approve.own_update", got)
		}
	})

	t.Run("admin approving own update", func(t *testing.T) {
		f := newFixture()
		view, _ := f.questionSv.Create(ctx, owner, singleChoiceBody([]string{"a", "b"}, 1))
		if _, err := f.questionSv.Update(ctx, admin, view.ID, json.RawMessage(`{"points":3}`)); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if err := f.questionSv.Approve(ctx, admin, view.ID); err != nil {
			t.Fatalf("Approve: %v", err)
		}
		if !f.questions.rows[view.ID].IsApproved {
			t.Error("question not approved")
		}
		if err := f.questionSv.Disapprove(ctx, admin, view.ID); err != nil {
			t.Fatalf("Disapprove: %v", err)
		}
		if f.questions.rows[view.ID].IsApproved {
			t.Error("question still approved")
		}
	})
}

func TestGet_UnknownTypeHasNoVariant(t *testing.T) {
	f := newFixture()
	f.questions.put(model.Question{ID: 4, Text: "Describe the Krebs cycle", Type: "essay", Points: 4})

	view, err := f.questionSv.Get(context.Background(), 4)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if view.Variant != nil {
		t.Errorf("variant = %v, want nil", view.Variant)
	}
	if view.Text != "Describe the Krebs cycle" {
		t.Errorf("text = %q", view.Text)
	}
}

func TestGet_MissingExtensionHasNoVariant(t *testing.T) {
	f := newFixture()
	f.questions.put(model.Question{ID: 5, Text: "Dangling single choice", Type: model.QuestionTypeSingleChoice, Points: 1})

	view, err := f.questionSv.Get(context.Background(), 5)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if view.Variant != nil {
		t.Errorf("variant = %v, want nil", view.Variant)
	}
}

func TestListVisibility(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	exam := 9
	f.questions.put(model.Question{ID: 1, ExamID: &exam, CourseID: 2, IsApproved: true})
	f.questions.put(model.Question{ID: 2, ExamID: &exam, CourseID: 2})

	got, err := f.questionSv.ListByExam(ctx, owner, exam)
	if err != nil {
		t.Fatalf("ListByExam: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("user sees %v, want only question 1", got)
	}

	got, err = f.questionSv.ListByCourse(ctx, moderator, 2)
	if err != nil {
		t.Fatalf("ListByCourse: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("moderator sees %d questions, want 2", len(got))
	}

	got, err = f.questionSv.ListByCourse(ctx, owner, 77)
	if err != nil {
		t.Fatalf("ListByCourse: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("empty course = %v, want empty non-nil slice", got)
	}
}

func TestSearch_ForcesApprovedForUsers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.questions.put(model.Question{ID: 1, IsApproved: true})
	f.questions.put(model.Question{ID: 2})

	got, page, err := f.questionSv.Search(ctx, owner, model.QuestionSearch{OnlyApproved: false})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || page.TotalItems != 1 {
		t.Errorf("user search = %d items, total %d, want 1", len(got), page.TotalItems)
	}

	got, _, err = f.questionSv.Search(ctx, moderator, model.QuestionSearch{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("moderator search = %d items, want 2", len(got))
	}
}
