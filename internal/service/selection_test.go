package service

import (
	"context"
	"reflect"
	"testing"

	"github.com/stemsi/exstem-qbank/internal/apperror"
	"github.com/stemsi/exstem-qbank/internal/model"
)

func TestBuildSelectionStates(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		checked []int
		crossed []int
		want    []model.SelectionState
		rule    string
	}{
		{
			name:    "every position written",
			count:   4,
			checked: []int{2},
			crossed: []int{4},
			want: []model.SelectionState{
				{LocalAnswerID: 1},
				{LocalAnswerID: 2, IsChecked: true},
				{LocalAnswerID: 3},
				{LocalAnswerID: 4, IsCrossed: true},
			},
		},
		{
			name:  "empty request clears",
			count: 2,
			want:  []model.SelectionState{{LocalAnswerID: 1}, {LocalAnswerID: 2}},
		},
		{
			name:    "duplicates collapse",
			count:   2,
			checked: []int{1, 1},
			want:    []model.SelectionState{{LocalAnswerID: 1, IsChecked: true}, {LocalAnswerID: 2}},
		},
		{
			name:    "checked and crossed",
			count:   3,
			checked: []int{2},
			crossed: []int{2},
			rule:    "selection.checked_and_crossed",
		},
		{
			name:    "out of range",
			count:   3,
			checked: []int{4},
			rule:    "selection.answer.out_of_range",
		},
		{
			name:    "zero is out of range",
			count:   3,
			crossed: []int{0},
			rule:    "selection.answer.out_of_range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildSelectionStates(tt.count, tt.checked, tt.crossed)
			if rule := apperror.RuleOf(err); rule != tt.rule {
				t.Fatalf("rule = %q, want %q", rule, tt.rule)
			}
			if tt.rule != "" {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("states = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSetSelection_Idempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s := seedSession(t, f)

	req := model.SetSelectionRequest{CheckedIDs: []int{1, 2}, CrossedIDs: []int{4}}
	first, err := f.selection.SetSelection(ctx, owner, s.ID, 2, req)
	if err != nil {
		t.Fatalf("SetSelection: %v", err)
	}
	second, err := f.selection.SetSelection(ctx, owner, s.ID, 2, req)
	if err != nil {
		t.Fatalf("SetSelection: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeat changed state:\n%+v\n%+v", first, second)
	}
	if len(first) != 4 {
		t.Errorf("stored %d positions, want 4", len(first))
	}
}

func TestSetSelection_RewritesAllPositions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s := seedSession(t, f)

	if _, err := f.selection.SetSelection(ctx, owner, s.ID, 1, model.SetSelectionRequest{CheckedIDs: []int{1}}); err != nil {
		t.Fatalf("SetSelection: %v", err)
	}
	got, err := f.selection.SetSelection(ctx, owner, s.ID, 1, model.SetSelectionRequest{CheckedIDs: []int{3}, CrossedIDs: []int{1}})
	if err != nil {
		t.Fatalf("SetSelection: %v", err)
	}

	want := []model.Selection{
		{LocalQuestionID: 1, LocalAnswerID: 1, IsCrossed: true},
		{LocalQuestionID: 1, LocalAnswerID: 2},
		{LocalQuestionID: 1, LocalAnswerID: 3, IsChecked: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("selections = %+v, want %+v", got, want)
	}
}

func TestSetSelection_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		caller  model.Caller
		localID int
		req     model.SetSelectionRequest
		kind    apperror.Kind
		rule    string
	}{
		{"two checked on single choice", owner, 1, model.SetSelectionRequest{CheckedIDs: []int{1, 2}}, apperror.KindValidationConflict, "selection.too_many_checked"},
		{"checked and crossed", owner, 2, model.SetSelectionRequest{CheckedIDs: []int{1}, CrossedIDs: []int{1}}, apperror.KindValidationConflict, "selection.checked_and_crossed"},
		{"out of range", owner, 2, model.SetSelectionRequest{CheckedIDs: []int{5}}, apperror.KindValidationConflict, "selection.answer.out_of_range"},
		{"assignment", owner, 3, model.SetSelectionRequest{}, apperror.KindValidationConflict, "selection.type.unsupported"},
		{"unknown local id", owner, 9, model.SetSelectionRequest{}, apperror.KindNotFound, "session.question.not_found"},
		{"other user", stranger, 1, model.SetSelectionRequest{CheckedIDs: []int{1}}, apperror.KindForbidden, "session.forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			s := seedSession(t, f)

			_, err := f.selection.SetSelection(context.Background(), tt.caller, s.ID, tt.localID, tt.req)
			if apperror.KindOf(err) != tt.kind || apperror.RuleOf(err) != tt.rule {
				t.Fatalf("err = %v, want %v %q", err, tt.kind, tt.rule)
			}
			if f.selectionStore.writes != 0 {
				t.Errorf("writes = %d, want 0", f.selectionStore.writes)
			}
		})
	}
}

func TestGetSelections_EmptyIsNotNil(t *testing.T) {
	f := newFixture()
	s := seedSession(t, f)

	got, err := f.selection.GetSelections(context.Background(), owner, s.ID, 1)
	if err != nil {
		t.Fatalf("GetSelections: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("selections = %v, want empty slice", got)
	}
}
