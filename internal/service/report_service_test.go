package service

import (
	"bytes"
	"careerx_backend/internal/model"
	"careerx_backend/internal/repository"
	"careerx_backend/internal/testutil"
	"careerx_backend/internal/util"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedTestSession(t *testing.T, repo *repository.AssessmentRepository, userID uint) (*model.AssessmentSession, []model.McqQuestion) {
	t.Helper()
	qs := makeQuestions(6)
	set, err := model.NewQuestionSet(userID, "Career Assessment", qs, 3600, true)
	require.NoError(t, err)
	uid := userID
	s := &model.AssessmentSession{UserID: userID, ActiveUserID: &uid, StartedAt: time.Now()}
	require.NoError(t, repo.CreateWithQuestionSet(context.Background(), set, s))

	score := 50.0
	now := time.Now()
	s.Answers = answersWithCorrect(qs, 3)
	s.Score = &score
	s.Completed = true
	s.CompletedAt = &now
	s.Recommendation = &model.Recommendation{
		RecommendedCareer: "Civil Engineer",
		Strengths:         []string{"Persistence"},
		SuggestedCourses:  []string{"AutoCAD basics"},
	}
	return s, qs
}

func TestPDFReportRenderer_Render(t *testing.T) {
	s, qs := completedTestSession(t, repository.NewAssessmentRepository(testutil.NewDB(t)), 1)

	pdf, err := PDFReportRenderer{}.Render(&model.User{Name: "Asha", Email: "asha@example.com"}, s, qs)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestTally(t *testing.T) {
	qs := makeQuestions(4)
	correct, total := tally(qs, []int{0, 1, util.Unanswered})
	assert.Equal(t, 2, correct)
	assert.Equal(t, 4, total)
}

func TestReportService_Dispatch(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewAssessmentRepository(db)
	user := seedUser(t, db, "asha@example.com")
	s, qs := completedTestSession(t, repo, user.ID)

	mailer := &fakeMailer{}
	svc := NewReportService(PDFReportRenderer{}, mailer, repository.NewUserRepository(db), repo)
	require.NoError(t, svc.Dispatch(context.Background(), s, qs))

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "asha@example.com", sent[0].To)
	require.Len(t, sent[0].Attachments, 1)
	assert.Equal(t, util.MimePDF, sent[0].Attachments[0].ContentType)
	assert.Contains(t, sent[0].HTML, "Civil Engineer")

	stored, err := repo.FindByIDForUser(context.Background(), s.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.ReportSent)

	failing := NewReportService(PDFReportRenderer{}, &fakeMailer{err: errors.New("smtp down")}, repository.NewUserRepository(db), repo)
	assert.Error(t, failing.Dispatch(context.Background(), s, qs))
}
