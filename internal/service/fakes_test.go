package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-qbank/internal/model"
)

var errStoreDown = errors.New("store unavailable")

// ─── Questions ─────────────────────────────────────────────────────────

type fakeQuestionStore struct {
	rows      map[int]*model.Question
	nextID    int
	deleteErr error

	lastOnlyApproved *bool
	matching         int
}

func newFakeQuestionStore() *fakeQuestionStore {
	return &fakeQuestionStore{rows: make(map[int]*model.Question), nextID: 1}
}

func (f *fakeQuestionStore) put(q model.Question) *model.Question {
	if q.ID == 0 {
		q.ID = f.nextID
	}
	if q.ID >= f.nextID {
		f.nextID = q.ID + 1
	}
	stored := q
	f.rows[q.ID] = &stored
	return &stored
}

func (f *fakeQuestionStore) Create(_ context.Context, q *model.Question) error {
	q.ID = f.nextID
	f.nextID++
	q.IsApproved = false
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	stored := *q
	f.rows[q.ID] = &stored
	return nil
}

func (f *fakeQuestionStore) GetByID(_ context.Context, id int) (*model.Question, error) {
	q, ok := f.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *q
	return &copied, nil
}

func (f *fakeQuestionStore) Update(_ context.Context, q *model.Question) error {
	if _, ok := f.rows[q.ID]; !ok {
		return pgx.ErrNoRows
	}
	q.IsApproved = false
	stored := *q
	f.rows[q.ID] = &stored
	return nil
}

func (f *fakeQuestionStore) SetApproved(_ context.Context, id int, approved bool) error {
	q, ok := f.rows[id]
	if !ok {
		return pgx.ErrNoRows
	}
	q.IsApproved = approved
	return nil
}

func (f *fakeQuestionStore) Delete(_ context.Context, id int) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.rows[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeQuestionStore) filter(keep func(q *model.Question) bool) []model.Question {
	var out []model.Question
	for _, q := range f.rows {
		if keep(q) {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeQuestionStore) ListByExam(_ context.Context, examID int, onlyApproved bool) ([]model.Question, error) {
	f.lastOnlyApproved = &onlyApproved
	return f.filter(func(q *model.Question) bool {
		return q.ExamID != nil && *q.ExamID == examID && (q.IsApproved || !onlyApproved)
	}), nil
}

func (f *fakeQuestionStore) ListByCourse(_ context.Context, courseID int, onlyApproved bool) ([]model.Question, error) {
	f.lastOnlyApproved = &onlyApproved
	return f.filter(func(q *model.Question) bool {
		return q.CourseID == courseID && (q.IsApproved || !onlyApproved)
	}), nil
}

func (f *fakeQuestionStore) ListBySession(_ context.Context, _ int) ([]model.Question, error) {
	return nil, nil
}

func (f *fakeQuestionStore) Search(_ context.Context, s model.QuestionSearch, limit, offset int) ([]model.Question, int, error) {
	f.lastOnlyApproved = &s.OnlyApproved
	all := f.filter(func(q *model.Question) bool { return q.IsApproved || !s.OnlyApproved })
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *fakeQuestionStore) CountMatching(_ context.Context, _ model.QuestionFilter) (int, error) {
	return f.matching, nil
}

type fakeOriginStore struct {
	names map[string]bool
}

func newFakeOriginStore(names ...string) *fakeOriginStore {
	f := &fakeOriginStore{names: make(map[string]bool)}
	for _, n := range names {
		f.names[n] = true
	}
	return f
}

func (f *fakeOriginStore) Exists(_ context.Context, name string) (bool, error) {
	return f.names[name], nil
}

func (f *fakeOriginStore) List(_ context.Context) ([]model.Origin, error) {
	var out []model.Origin
	for n := range f.names {
		out = append(out, model.Origin{Name: n})
	}
	return out, nil
}

// ─── Variant stores ────────────────────────────────────────────────────

func choiceAnswers(questionID int, texts []string, firstID int) []model.ChoiceAnswer {
	answers := make([]model.ChoiceAnswer, len(texts))
	for i, t := range texts {
		answers[i] = model.ChoiceAnswer{ID: firstID + i, QuestionID: questionID, LocalID: i + 1, Text: t}
	}
	return answers
}

type fakeSingleChoiceStore struct {
	rows       map[int]*model.SingleChoice
	nextAnswer int
	updates    int
	// beforeUpdate runs ahead of the write, e.g. to interleave a reader.
	beforeUpdate func()
	updateErr    error
}

func newFakeSingleChoiceStore() *fakeSingleChoiceStore {
	return &fakeSingleChoiceStore{rows: make(map[int]*model.SingleChoice), nextAnswer: 100}
}

func (f *fakeSingleChoiceStore) Create(_ context.Context, questionID, correct int, answers []string) error {
	f.rows[questionID] = &model.SingleChoice{
		CorrectAnswerLocalID: correct,
		Answers:              choiceAnswers(questionID, answers, f.nextAnswer),
	}
	f.nextAnswer += len(answers)
	return nil
}

func (f *fakeSingleChoiceStore) Get(_ context.Context, questionID int) (*model.SingleChoice, error) {
	sc, ok := f.rows[questionID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *sc
	copied.Answers = append([]model.ChoiceAnswer(nil), sc.Answers...)
	return &copied, nil
}

func (f *fakeSingleChoiceStore) Update(_ context.Context, questionID int, correct *int, answers []string) error {
	if f.beforeUpdate != nil {
		f.beforeUpdate()
	}
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates++
	sc := f.rows[questionID]
	for i, t := range answers {
		sc.Answers[i].Text = t
	}
	if correct != nil {
		sc.CorrectAnswerLocalID = *correct
	}
	return nil
}

type fakeMultipleChoiceStore struct {
	rows       map[int]*model.MultipleChoice
	nextAnswer int
}

func newFakeMultipleChoiceStore() *fakeMultipleChoiceStore {
	return &fakeMultipleChoiceStore{rows: make(map[int]*model.MultipleChoice), nextAnswer: 500}
}

func (f *fakeMultipleChoiceStore) Create(_ context.Context, questionID int, correct []int, answers []string) error {
	f.rows[questionID] = &model.MultipleChoice{
		CorrectAnswerLocalIDs: correct,
		Answers:               choiceAnswers(questionID, answers, f.nextAnswer),
	}
	f.nextAnswer += len(answers)
	return nil
}

func (f *fakeMultipleChoiceStore) Get(_ context.Context, questionID int) (*model.MultipleChoice, error) {
	mc, ok := f.rows[questionID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *mc
	return &copied, nil
}

func (f *fakeMultipleChoiceStore) Update(_ context.Context, questionID int, correct []int, answers []string) error {
	mc := f.rows[questionID]
	if answers != nil {
		mc.Answers = choiceAnswers(questionID, answers, f.nextAnswer)
		f.nextAnswer += len(answers)
	}
	if correct != nil {
		mc.CorrectAnswerLocalIDs = correct
	}
	return nil
}

type fakeAssignmentStore struct {
	rows map[int]*model.Assignment
}

func newFakeAssignmentStore() *fakeAssignmentStore {
	return &fakeAssignmentStore{rows: make(map[int]*model.Assignment)}
}

func (f *fakeAssignmentStore) Create(_ context.Context, questionID int, identifiers []string, correct []int, answers []string) error {
	a := &model.Assignment{}
	for i, t := range identifiers {
		a.Identifiers = append(a.Identifiers, model.AssignmentIdentifier{LocalID: i + 1, Text: t, CorrectAnswerLocalID: correct[i]})
	}
	for i, t := range answers {
		a.Answers = append(a.Answers, model.AssignmentAnswer{LocalID: i + 1, Text: t})
	}
	f.rows[questionID] = a
	return nil
}

func (f *fakeAssignmentStore) Get(_ context.Context, questionID int) (*model.Assignment, error) {
	a, ok := f.rows[questionID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *a
	return &copied, nil
}

func (f *fakeAssignmentStore) ReplaceIdentifierTexts(_ context.Context, questionID int, texts []string) error {
	a := f.rows[questionID]
	for i, t := range texts {
		a.Identifiers[i].Text = t
	}
	return nil
}

func (f *fakeAssignmentStore) ReplaceAnswers(_ context.Context, questionID int, answers []string) error {
	a := f.rows[questionID]
	a.Answers = nil
	for i, t := range answers {
		a.Answers = append(a.Answers, model.AssignmentAnswer{LocalID: i + 1, Text: t})
	}
	return nil
}

func (f *fakeAssignmentStore) SetCorrectAnswers(_ context.Context, questionID int, correct []int) error {
	a := f.rows[questionID]
	for i, c := range correct {
		a.Identifiers[i].CorrectAnswerLocalID = c
	}
	return nil
}

// ─── Sessions and selections ───────────────────────────────────────────

type fakeSessionStore struct {
	sessions   map[int]*model.Session
	members    map[int][]model.SessionQuestion
	questions  *fakeQuestionStore
	selections *fakeSelectionStore
	matching   []int
	nextID     int
}

func newFakeSessionStore(questions *fakeQuestionStore) *fakeSessionStore {
	return &fakeSessionStore{
		sessions:  make(map[int]*model.Session),
		members:   make(map[int][]model.SessionQuestion),
		questions: questions,
		nextID:    1,
	}
}

func (f *fakeSessionStore) CreateWithQuestions(_ context.Context, s *model.Session, _ model.QuestionFilter, arrange func([]int) []int) (int, error) {
	s.ID = f.nextID
	f.nextID++
	s.CreatedAt = time.Now()
	stored := *s
	f.sessions[s.ID] = &stored

	ids := arrange(f.matching)
	members := make([]model.SessionQuestion, len(ids))
	for i, qid := range ids {
		members[i] = model.SessionQuestion{SessionID: s.ID, QuestionID: qid, LocalID: i + 1}
		if q, ok := f.questions.rows[qid]; ok {
			members[i].Type = q.Type
			members[i].Points = q.Points
		}
	}
	f.members[s.ID] = members
	return len(ids), nil
}

func (f *fakeSessionStore) GetByID(_ context.Context, id int) (*model.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *s
	return &copied, nil
}

func (f *fakeSessionStore) Update(_ context.Context, s *model.Session) error {
	stored := *s
	f.sessions[s.ID] = &stored
	return nil
}

func (f *fakeSessionStore) Delete(_ context.Context, id int) error {
	delete(f.sessions, id)
	delete(f.members, id)
	return nil
}

func (f *fakeSessionStore) ListByCreator(_ context.Context, creatorID, limit, offset int) ([]model.Session, int, error) {
	var out []model.Session
	for _, s := range f.sessions {
		if s.CreatorID == creatorID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := len(out)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (f *fakeSessionStore) ListQuestions(_ context.Context, sessionID int) ([]model.SessionQuestion, error) {
	return append([]model.SessionQuestion(nil), f.members[sessionID]...), nil
}

func (f *fakeSessionStore) member(sessionID, localID int) *model.SessionQuestion {
	for i := range f.members[sessionID] {
		if f.members[sessionID][i].LocalID == localID {
			return &f.members[sessionID][i]
		}
	}
	return nil
}

func (f *fakeSessionStore) GetQuestion(_ context.Context, sessionID, localID int) (*model.SessionQuestion, error) {
	m := f.member(sessionID, localID)
	if m == nil {
		return nil, pgx.ErrNoRows
	}
	copied := *m
	return &copied, nil
}

func (f *fakeSessionStore) CountQuestions(_ context.Context, sessionID int) (int, error) {
	return len(f.members[sessionID]), nil
}

func (f *fakeSessionStore) SetTime(_ context.Context, sessionID, localID, seconds int) error {
	m := f.member(sessionID, localID)
	if m == nil {
		return pgx.ErrNoRows
	}
	m.Time = seconds
	return nil
}

func (f *fakeSessionStore) SubmitQuestion(_ context.Context, sessionID, localID int) error {
	m := f.member(sessionID, localID)
	if m == nil {
		return pgx.ErrNoRows
	}
	m.IsSubmitted = true
	return nil
}

func (f *fakeSessionStore) Submit(_ context.Context, sessionID int) error {
	s, ok := f.sessions[sessionID]
	if !ok {
		return pgx.ErrNoRows
	}
	s.IsFinished = true
	for i := range f.members[sessionID] {
		f.members[sessionID][i].IsSubmitted = true
	}
	return nil
}

func (f *fakeSessionStore) Reset(_ context.Context, sessionID int) error {
	s, ok := f.sessions[sessionID]
	if !ok {
		return pgx.ErrNoRows
	}
	s.IsFinished = false
	for i := range f.members[sessionID] {
		f.members[sessionID][i].IsSubmitted = false
		f.members[sessionID][i].Time = 0
	}
	if f.selections != nil {
		f.selections.clearSession(sessionID)
	}
	return nil
}

type selectionKey struct {
	sessionID  int
	questionID int
	position   int
}

type fakeSelectionStore struct {
	answers  map[int]int
	states   map[selectionKey]model.SelectionState
	sessions *fakeSessionStore
	writes   int
}

func newFakeSelectionStore(sessions *fakeSessionStore) *fakeSelectionStore {
	f := &fakeSelectionStore{
		answers:  make(map[int]int),
		states:   make(map[selectionKey]model.SelectionState),
		sessions: sessions,
	}
	sessions.selections = f
	return f
}

func (f *fakeSelectionStore) CountAnswers(_ context.Context, _ model.QuestionType, questionID int) (int, error) {
	return f.answers[questionID], nil
}

func (f *fakeSelectionStore) Upsert(_ context.Context, _ model.QuestionType, sessionID, questionID int, states []model.SelectionState) error {
	f.writes++
	for _, s := range states {
		if s.LocalAnswerID < 1 || s.LocalAnswerID > f.answers[questionID] {
			continue
		}
		f.states[selectionKey{sessionID, questionID, s.LocalAnswerID}] = s
	}
	return nil
}

func (f *fakeSelectionStore) List(_ context.Context, _ model.QuestionType, sessionID, localID int) ([]model.Selection, error) {
	m := f.sessions.member(sessionID, localID)
	if m == nil {
		return nil, nil
	}
	var out []model.Selection
	for pos := 1; pos <= f.answers[m.QuestionID]; pos++ {
		s, ok := f.states[selectionKey{sessionID, m.QuestionID, pos}]
		if !ok {
			continue
		}
		out = append(out, model.Selection{
			LocalQuestionID: localID,
			LocalAnswerID:   pos,
			IsChecked:       s.IsChecked,
			IsCrossed:       s.IsCrossed,
		})
	}
	return out, nil
}

func (f *fakeSelectionStore) clearSession(sessionID int) {
	for k := range f.states {
		if k.sessionID == sessionID {
			delete(f.states, k)
		}
	}
}

// ─── View cache ────────────────────────────────────────────────────────

// fakeViewCache keeps views encoded the same way RedisViewCache does.
type fakeViewCache struct {
	entries       map[int][]byte
	hits          int
	invalidations map[int]int
}

func newFakeViewCache() *fakeViewCache {
	return &fakeViewCache{entries: make(map[int][]byte), invalidations: make(map[int]int)}
}

func (f *fakeViewCache) Get(_ context.Context, questionID int) (*model.QuestionView, error) {
	raw, ok := f.entries[questionID]
	if !ok {
		return nil, nil
	}
	var cached cachedView
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, err
	}
	f.hits++
	return cached.view(), nil
}

func (f *fakeViewCache) Set(_ context.Context, view *model.QuestionView) error {
	raw, err := json.Marshal(toCached(view))
	if err != nil {
		return err
	}
	f.entries[view.ID] = raw
	return nil
}

func (f *fakeViewCache) Invalidate(_ context.Context, questionID int) error {
	delete(f.entries, questionID)
	f.invalidations[questionID]++
	return nil
}

// ─── Fixture ───────────────────────────────────────────────────────────

type fixture struct {
	questions      *fakeQuestionStore
	origins        *fakeOriginStore
	singleChoice   *fakeSingleChoiceStore
	multipleChoice *fakeMultipleChoiceStore
	assignment     *fakeAssignmentStore
	sessionStore   *fakeSessionStore
	selectionStore *fakeSelectionStore
	cache          *fakeViewCache

	registry   *Registry
	questionSv *QuestionService
	sessionSv  *SessionService
	selection  *SelectionService
	scoring    *ScoringEngine
}

func newFixture() *fixture {
	f := &fixture{
		questions:      newFakeQuestionStore(),
		origins:        newFakeOriginStore("exam", "lecture"),
		singleChoice:   newFakeSingleChoiceStore(),
		multipleChoice: newFakeMultipleChoiceStore(),
		assignment:     newFakeAssignmentStore(),
		cache:          newFakeViewCache(),
	}
	f.sessionStore = newFakeSessionStore(f.questions)
	f.selectionStore = newFakeSelectionStore(f.sessionStore)

	log := zerolog.Nop()
	f.registry = NewRegistry(
		NewSingleChoiceHandler(f.singleChoice),
		NewMultipleChoiceHandler(f.multipleChoice),
		NewAssignmentHandler(f.assignment),
	)
	f.questionSv = NewQuestionService(f.questions, f.origins, f.registry, f.cache, log)
	f.scoring = NewScoringEngine(f.registry, f.sessionStore, f.selectionStore, f.questionSv)
	f.sessionSv = NewSessionService(f.sessionStore, f.questionSv, f.registry, f.scoring, log)
	f.selection = NewSelectionService(f.sessionStore, f.selectionStore, f.registry, log)
	return f
}

var (
	owner     = model.Caller{UserID: 7, Role: model.RoleUser}
	stranger  = model.Caller{UserID: 8, Role: model.RoleUser}
	moderator = model.Caller{UserID: 20, Role: model.RoleModerator}
	admin     = model.Caller{UserID: 30, Role: model.RoleAdmin}
)
