package service

import (
	"bytes"
	"careerx_backend/internal/model"
	"careerx_backend/internal/repository"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// makeQuestions 第 i 题的正确选项为 i%4
func makeQuestions(n int) []model.McqQuestion {
	qs := make([]model.McqQuestion, n)
	for i := range qs {
		qs[i] = model.McqQuestion{
			QuestionText:       "Which option is right?",
			Options:            []string{"A", "B", "C", "D"},
			CorrectOptionIndex: i % model.OptionsPerQuestion,
			Category:           model.QuestionCategories[i%len(model.QuestionCategories)],
		}
	}
	return qs
}

// answersWithCorrect 前 correct 题答对，其余答错
func answersWithCorrect(qs []model.McqQuestion, correct int) []int {
	answers := make([]int, len(qs))
	for i, q := range qs {
		if i < correct {
			answers[i] = q.CorrectOptionIndex
		} else {
			answers[i] = (q.CorrectOptionIndex + 1) % model.OptionsPerQuestion
		}
	}
	return answers
}

func seedUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	u := &model.User{Name: "Asha", Email: email, Password: "x", Role: model.RoleStudent}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedProfile(t *testing.T, db *gorm.DB, userID uint) *model.Profile {
	t.Helper()
	p := &model.Profile{
		UserID:         userID,
		DateOfBirth:    time.Date(2007, 5, 14, 0, 0, 0, 0, time.UTC),
		Gender:         model.GenderFemale,
		MobileNumber:   "9876543210",
		EducationLevel: model.EducationHigherSecondary,
		Stream:         model.StreamScience,
	}
	require.NoError(t, repository.NewProfileRepository(db).Create(context.Background(), p))
	return p
}

type fakeGenerator struct {
	mu        sync.Mutex
	calls     int
	questions []model.McqQuestion
	err       error
	delay     time.Duration
}

func (g *fakeGenerator) GenerateQuestions(ctx context.Context, profile *model.Profile, count int) ([]model.McqQuestion, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	if g.err != nil {
		return nil, g.err
	}
	if g.questions != nil {
		return g.questions, nil
	}
	return makeQuestions(count), nil
}

func (g *fakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeEvaluator struct {
	calls int
	rec   *model.Recommendation
	err   error
}

func (e *fakeEvaluator) Evaluate(ctx context.Context, questions []model.McqQuestion, answers []int, profile *model.Profile) (*model.Recommendation, error) {
	e.calls++
	return e.rec, e.err
}

type fakeDispatcher struct {
	calls int
	err   error
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, session *model.AssessmentSession, questions []model.McqQuestion) error {
	d.calls++
	return d.err
}

type fakeRoadmapGenerator struct {
	calls int
	plan  *model.RoadmapPlan
	err   error
}

func (g *fakeRoadmapGenerator) GenerateRoadmap(ctx context.Context, profile *model.Profile, session *model.AssessmentSession) (*model.RoadmapPlan, error) {
	g.calls++
	return g.plan, g.err
}

type fakeGateway struct {
	orderID string
	err     error
	calls   int
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (string, error) {
	g.calls++
	return g.orderID, g.err
}

func (g *fakeGateway) KeyID() string {
	return "rzp_test_key"
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []MailMessage
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) Sent() []MailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MailMessage(nil), m.sent...)
}

type memBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: map[string][]byte{}}
}

func (m *memBlobStore) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = buf.Bytes()
	return "mem://" + key, nil
}

func (m *memBlobStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func pngBytes() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
}

func readSeeker(b []byte) io.ReadSeeker {
	return bytes.NewReader(b)
}
