package repository

import (
	"strings"
	"testing"

	"github.com/stemsi/exstem-qbank/internal/model"
)

func TestPrefixQuery(t *testing.T) {
	tests := []struct {
		name string
		term string
		want string
	}{
		{"single word gets prefix", "enzym", "enzym:*"},
		{"trailing space marks complete word", "enzym ", "enzym"},
		{"words are and-ed", "krebs cycle", "krebs & cycle:*"},
		{"operators are stripped", "a|b & !c", "a & b & c:*"},
		{"empty term", "", ""},
		{"only punctuation", "!&|", ""},
		{"unicode letters survive", "größe", "größe:*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := prefixQuery(tt.term); got != tt.want {
				t.Errorf("prefixQuery(%q) = %q, want %q", tt.term, got, tt.want)
			}
		})
	}
}

func TestMatchClauseEmptyFilterOnlyApproved(t *testing.T) {
	clause, args := matchClause(model.QuestionFilter{})
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
	if !strings.Contains(clause, "WHERE q.is_approved") {
		t.Fatalf("clause must restrict to approved questions:\n%s", clause)
	}
	if strings.Contains(clause, "ANY(") {
		t.Fatalf("empty filter must not constrain:\n%s", clause)
	}
}

func TestMatchClausePlaceholdersAreSequential(t *testing.T) {
	clause, args := matchClause(model.QuestionFilter{
		ModuleIDs:     []int{1},
		TagIDs:        []int{4, 5},
		QuestionTypes: []model.QuestionType{model.QuestionTypeSingleChoice},
		Text:          "photo",
	})

	if len(args) != 4 {
		t.Fatalf("expected 4 args, got %d", len(args))
	}
	for _, want := range []string{"c.module_id = ANY($1)", "qt.tag_id = ANY($2)", "q.type = ANY($3)", "to_tsquery('simple', $4)"} {
		if !strings.Contains(clause, want) {
			t.Errorf("clause missing %q:\n%s", want, clause)
		}
	}
	if types, ok := args[2].([]string); !ok || types[0] != "single-choice" {
		t.Errorf("question types must be passed as text array, got %#v", args[2])
	}
	if args[3] != "photo:*" {
		t.Errorf("text arg = %v", args[3])
	}
}
