package service

import (
	"careerx_backend/internal/config"
	"careerx_backend/internal/llm"
	"careerx_backend/internal/model"
	"careerx_backend/internal/repository"
	"careerx_backend/internal/testutil"
	"careerx_backend/internal/util"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type assessmentFixture struct {
	db         *gorm.DB
	svc        *AssessmentService
	generator  *fakeGenerator
	evaluator  *fakeEvaluator
	dispatcher *fakeDispatcher
}

func newAssessmentFixture(t *testing.T) *assessmentFixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &assessmentFixture{
		db:        db,
		generator: &fakeGenerator{},
		evaluator: &fakeEvaluator{rec: &model.Recommendation{
			RecommendedCareer: "Data Scientist",
			SkillScore:        72,
			Strengths:         []string{"analysis"},
		}},
		dispatcher: &fakeDispatcher{},
	}
	f.svc = NewAssessmentService(
		repository.NewAssessmentRepository(db),
		repository.NewProfileRepository(db),
		f.generator,
		f.evaluator,
		f.dispatcher,
		newMemBlobStore(),
		config.AssessmentConfig{QuestionCount: 60, DurationMinutes: 60, WebcamRequired: true},
	)
	return f
}

func TestScore(t *testing.T) {
	qs := makeQuestions(60)

	score, err := Score(qs, answersWithCorrect(qs, 45))
	require.NoError(t, err)
	assert.Equal(t, 75.0, score)

	score, err = Score(qs, answersWithCorrect(qs, 30)[:30])
	require.NoError(t, err)
	assert.Equal(t, 50.0, score, "missing trailing answers count as incorrect")

	unanswered := make([]int, 60)
	for i := range unanswered {
		unanswered[i] = util.Unanswered
	}
	score, err = Score(qs, unanswered)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestScore_RejectsMalformedAnswers(t *testing.T) {
	qs := makeQuestions(4)

	_, err := Score(qs, []int{0, 1, 2, 3, 0})
	assert.True(t, errors.Is(err, util.ErrBadRequest))

	_, err = Score(qs, []int{0, 4})
	assert.True(t, errors.Is(err, util.ErrBadRequest))

	_, err = Score(qs, []int{-2})
	assert.True(t, errors.Is(err, util.ErrBadRequest))
}

func TestAssessmentService_NoProfileIsForbidden(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()

	elig, err := f.svc.CheckEligibility(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, model.StateNoProfile, elig.State)

	_, err = f.svc.Start(ctx, 7)
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrProfileRequired))
	assert.Equal(t, util.KindForbidden, util.KindOf(err))
	assert.Equal(t, 0, f.generator.Calls())
}

func TestAssessmentService_EndToEnd(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()
	user := seedUser(t, f.db, "asha@example.com")
	seedProfile(t, f.db, user.ID)

	elig, err := f.svc.CheckEligibility(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateEligible, elig.State)

	started, err := f.svc.Start(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, started.Questions, 60)
	assert.Equal(t, 3600, started.DurationSeconds)
	assert.True(t, started.WebcamRequired)
	assert.False(t, started.Resumed)

	elig, err = f.svc.CheckEligibility(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateInProgress, elig.State)
	require.NotNil(t, elig.SessionID)
	assert.Equal(t, started.SessionID, *elig.SessionID)

	resumed, err := f.svc.Start(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, started.SessionID, resumed.SessionID)
	assert.True(t, resumed.Resumed)
	assert.Equal(t, 1, f.generator.Calls(), "resuming does not call the generator")

	qs := makeQuestions(60)
	res, err := f.svc.Submit(ctx, started.SessionID, user.ID, &SubmitInput{
		Answers:   answersWithCorrect(qs, 30),
		WebcamRef: "mem://webcam/1/capture.webm",
	})
	require.NoError(t, err)
	assert.Equal(t, 50.0, res.Score)
	require.NotNil(t, res.Recommendation)
	assert.Equal(t, "Data Scientist", res.Recommendation.RecommendedCareer)
	assert.Equal(t, 1, f.dispatcher.calls)

	_, err = f.svc.Submit(ctx, started.SessionID, user.ID, &SubmitInput{Answers: answersWithCorrect(qs, 60)})
	assert.True(t, errors.Is(err, util.ErrAlreadySubmitted))
	assert.Equal(t, util.KindConflict, util.KindOf(err))

	stored, err := f.svc.Repo.FindByIDForUser(ctx, started.SessionID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Score)
	assert.Equal(t, 50.0, *stored.Score, "second submit leaves the score unchanged")
	assert.Nil(t, stored.ActiveUserID)
	require.NotNil(t, stored.Recommendation)

	elig, err = f.svc.CheckEligibility(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateCompleted, elig.State)

	_, err = f.svc.Start(ctx, user.ID)
	assert.True(t, errors.Is(err, util.ErrAssessmentCompleted))

	report, err := f.svc.Report(ctx, started.SessionID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, report.Score)
	require.Len(t, report.Questions, 60)
	assert.Equal(t, 1, report.Questions[1].CorrectOptionIndex)
	assert.Equal(t, "mem://webcam/1/capture.webm", report.WebcamRef)

	history, err := f.svc.History(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestAssessmentService_ConcurrentStartCreatesOneSession(t *testing.T) {
	f := newAssessmentFixture(t)
	f.generator.delay = 20 * time.Millisecond
	ctx := context.Background()
	seedProfile(t, f.db, 3)

	const workers = 6
	ids := make([]uint, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.Start(ctx, 3)
			errs[i] = err
			if err == nil {
				ids[i] = res.SessionID
			}
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	var active int64
	f.db.Model(&model.AssessmentSession{}).Where("user_id = ? AND completed = ?", 3, false).Count(&active)
	assert.Equal(t, int64(1), active)

	var sets int64
	f.db.Model(&model.QuestionSet{}).Count(&sets)
	assert.Equal(t, int64(1), sets)
}

func TestAssessmentService_CorruptedSetIsRegenerated(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()
	seedProfile(t, f.db, 4)

	uid := uint(4)
	broken := &model.QuestionSet{UserID: 4, Title: "broken", Questions: datatypes.JSON(`{"not":"a list"}`), QuestionCount: 60, TimeLimitSeconds: 3600}
	stale := &model.AssessmentSession{UserID: 4, ActiveUserID: &uid, StartedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, f.svc.Repo.CreateWithQuestionSet(ctx, broken, stale))

	res, err := f.svc.Start(ctx, 4)
	require.NoError(t, err)
	assert.NotEqual(t, stale.ID, res.SessionID)
	assert.Len(t, res.Questions, 60)
	assert.Equal(t, 1, f.generator.Calls())

	var count int64
	f.db.Unscoped().Model(&model.QuestionSet{}).Where("id = ?", broken.ID).Count(&count)
	assert.Zero(t, count, "stale question set is hard-deleted")
}

func TestAssessmentService_EvaluatorFailureIsNotFatal(t *testing.T) {
	f := newAssessmentFixture(t)
	f.evaluator.err = errors.New("model overloaded")
	f.dispatcher.err = errors.New("smtp down")
	ctx := context.Background()
	seedProfile(t, f.db, 5)

	started, err := f.svc.Start(ctx, 5)
	require.NoError(t, err)

	qs := makeQuestions(60)
	res, err := f.svc.Submit(ctx, started.SessionID, 5, &SubmitInput{Answers: answersWithCorrect(qs, 45)})
	require.NoError(t, err)
	assert.Equal(t, 75.0, res.Score)
	assert.Nil(t, res.Recommendation)

	stored, err := f.svc.Repo.FindByIDForUser(ctx, started.SessionID, 5)
	require.NoError(t, err)
	assert.True(t, stored.Completed)
	assert.Nil(t, stored.Recommendation)
	assert.False(t, stored.ReportSent)
}

func TestAssessmentService_SubmitValidation(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()
	seedProfile(t, f.db, 6)

	started, err := f.svc.Start(ctx, 6)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, started.SessionID, 99, &SubmitInput{Answers: []int{0}})
	assert.True(t, errors.Is(err, util.ErrSessionNotFound), "other learner's session is not visible")

	_, err = f.svc.Submit(ctx, 12345, 6, &SubmitInput{Answers: []int{0}})
	assert.True(t, errors.Is(err, util.ErrSessionNotFound))

	_, err = f.svc.Submit(ctx, started.SessionID, 6, &SubmitInput{Answers: make([]int, 61)})
	assert.Equal(t, util.KindBadRequest, util.KindOf(err))

	_, err = f.svc.Report(ctx, started.SessionID, 6)
	assert.True(t, errors.Is(err, util.ErrReportNotReady))

	elig, err := f.svc.CheckEligibility(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, model.StateInProgress, elig.State, "rejected submit leaves the session in progress")
}

type blockingProvider struct{}

func (blockingProvider) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingProvider) ModelID() string { return "blocking" }

func TestAssessmentService_GeneratorTimeout(t *testing.T) {
	f := newAssessmentFixture(t)
	f.svc.Generator = NewAIService(blockingProvider{}, 20*time.Millisecond, 1024)
	ctx := context.Background()
	seedProfile(t, f.db, 8)

	_, err := f.svc.Start(ctx, 8)
	require.Error(t, err)
	assert.Equal(t, util.KindServiceUnavailable, util.KindOf(err))
	assert.True(t, errors.Is(err, util.ErrGenerationTimeout))

	elig, err := f.svc.CheckEligibility(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, model.StateEligible, elig.State)
}

func TestAssessmentService_UploadWebcam(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()

	png := pngBytes()
	ref, err := f.svc.UploadWebcam(ctx, 1, "frame.png", int64(len(png)), readSeeker(png))
	require.NoError(t, err)
	assert.Contains(t, ref, "webcam/1/")

	_, err = f.svc.UploadWebcam(ctx, 1, "frame.exe", 10, readSeeker([]byte("MZ")))
	assert.Equal(t, util.KindBadRequest, util.KindOf(err))

	_, err = f.svc.UploadWebcam(ctx, 1, "frame.png", util.MaxWebcamCaptureSize+1, readSeeker(png))
	assert.Equal(t, util.KindBadRequest, util.KindOf(err))
}

func TestAssessmentService_ListSessions(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()
	for _, uid := range []uint{10, 11, 12} {
		seedProfile(t, f.db, uid)
		_, err := f.svc.Start(ctx, uid)
		require.NoError(t, err)
	}

	sessions, total, err := f.svc.ListSessions(ctx, 1, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, sessions, 2)

	done := true
	_, total, err = f.svc.ListSessions(ctx, 1, 20, &done)
	require.NoError(t, err)
	assert.Zero(t, total)
}
