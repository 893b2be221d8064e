package service

import (
	"careerx_backend/internal/config"
	"careerx_backend/internal/model"
	"careerx_backend/internal/repository"
	"careerx_backend/internal/util"
	"careerx_backend/pkg/logger"
	"careerx_backend/pkg/monitoring"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const assessmentTitle = "CareerX Career Assessment"

// ReportDispatcher 测评完成后发送报告，ReportService 实现
type ReportDispatcher interface {
	Dispatch(ctx context.Context, session *model.AssessmentSession, questions []model.McqQuestion) error
}

type StartResult struct {
	SessionID       uint                 `json:"sessionId"`
	QuestionSetID   uint                 `json:"questionSetId"`
	Questions       []model.QuestionView `json:"questions"`
	DurationSeconds int                  `json:"durationSeconds"`
	WebcamRequired  bool                 `json:"webcamRequired"`
	StartedAt       time.Time            `json:"startedAt"`
	Resumed         bool                 `json:"resumed"`
}

type SubmitInput struct {
	Answers   []int  `json:"answers"`
	WebcamRef string `json:"webcamRef"`
}

type SubmitResult struct {
	SessionID      uint                  `json:"sessionId"`
	Score          float64               `json:"score"`
	Recommendation *model.Recommendation `json:"recommendation"`
	CompletedAt    time.Time             `json:"completedAt"`
}

type ReportResult struct {
	SessionID      uint                  `json:"sessionId"`
	Questions      []model.McqQuestion   `json:"questions"`
	Answers        []int                 `json:"answers"`
	Score          float64               `json:"score"`
	Recommendation *model.Recommendation `json:"recommendation"`
	StartedAt      time.Time             `json:"startedAt"`
	CompletedAt    time.Time             `json:"completedAt"`
	WebcamRef      string                `json:"webcamRef,omitempty"`
}

type AssessmentService struct {
	Repo      *repository.AssessmentRepository
	Profiles  *repository.ProfileRepository
	Generator QuestionGenerator
	Evaluator Evaluator
	Reports   ReportDispatcher
	Storage   BlobStore
	Cfg       config.AssessmentConfig
	now       func() time.Time
}

func NewAssessmentService(
	repo *repository.AssessmentRepository,
	profiles *repository.ProfileRepository,
	generator QuestionGenerator,
	evaluator Evaluator,
	reports ReportDispatcher,
	storage BlobStore,
	cfg config.AssessmentConfig,
) *AssessmentService {
	return &AssessmentService{
		Repo:      repo,
		Profiles:  profiles,
		Generator: generator,
		Evaluator: evaluator,
		Reports:   reports,
		Storage:   storage,
		Cfg:       cfg,
		now:       time.Now,
	}
}

func notFoundAs(err, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}

// CheckEligibility 判定顺序：无档案、已完成、进行中、可开始
func (s *AssessmentService) CheckEligibility(ctx context.Context, userID uint) (*model.Eligibility, error) {
	exists, err := s.Profiles.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return &model.Eligibility{State: model.StateNoProfile}, nil
	}

	done, err := s.Repo.FindCompletedByUser(ctx, userID)
	if err == nil {
		return &model.Eligibility{State: model.StateCompleted, SessionID: &done.ID, QuestionSetID: &done.QuestionSetID}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	active, err := s.Repo.FindActiveByUser(ctx, userID)
	if err == nil {
		return &model.Eligibility{State: model.StateInProgress, SessionID: &active.ID, QuestionSetID: &active.QuestionSetID}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return &model.Eligibility{State: model.StateEligible}, nil
}

func (s *AssessmentService) startResult(session *model.AssessmentSession, questions []model.McqQuestion, resumed bool) *StartResult {
	return &StartResult{
		SessionID:       session.ID,
		QuestionSetID:   session.QuestionSetID,
		Questions:       model.Views(questions),
		DurationSeconds: session.QuestionSet.TimeLimitSeconds,
		WebcamRequired:  session.QuestionSet.WebcamRequired,
		StartedAt:       session.StartedAt,
		Resumed:         resumed,
	}
}

// resume 返回可继续的进行中会话；题目损坏时删除该会话并返回 nil
func (s *AssessmentService) resume(ctx context.Context, userID uint) (*StartResult, bool, error) {
	active, err := s.Repo.FindActiveByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if active.QuestionSet != nil {
		questions, err := active.QuestionSet.Decode()
		if err == nil {
			return s.startResult(active, questions, true), false, nil
		}
		logger.Log.Warn("Discarding corrupted question set",
			zap.Uint("userID", userID), zap.Uint("sessionID", active.ID), zap.Error(err))
	}

	if err := s.Repo.PurgeSession(ctx, active); err != nil {
		return nil, false, err
	}
	return nil, true, nil
}

// Start 开始或继续测评，每个考生最多一个进行中的会话
func (s *AssessmentService) Start(ctx context.Context, userID uint) (*StartResult, error) {
	profile, err := s.Profiles.FindByUserID(ctx, userID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrProfileRequired)
	}

	_, err = s.Repo.FindCompletedByUser(ctx, userID)
	if err == nil {
		return nil, util.ErrAssessmentCompleted
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	res, purged, err := s.resume(ctx, userID)
	if err != nil {
		return nil, err
	}
	if res != nil {
		monitoring.AssessmentsStarted.WithLabelValues("resumed").Inc()
		return res, nil
	}

	questions, err := s.Generator.GenerateQuestions(ctx, profile, s.Cfg.QuestionCount)
	if err != nil {
		monitoring.AssessmentsStarted.WithLabelValues("failed").Inc()
		return nil, err
	}

	qs, err := model.NewQuestionSet(userID, assessmentTitle, questions, s.Cfg.DurationSeconds(), s.Cfg.WebcamRequired)
	if err != nil {
		return nil, err
	}
	session := &model.AssessmentSession{
		UserID:       userID,
		ActiveUserID: &userID,
		StartedAt:    s.now(),
	}

	if err := s.Repo.CreateWithQuestionSet(ctx, qs, session); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		// 并发 start 中落败，返回获胜方的会话
		logger.Log.Info("Concurrent assessment start, returning existing session", zap.Uint("userID", userID))
		res, _, err := s.resume(ctx, userID)
		if err != nil {
			return nil, err
		}
		if res == nil {
			return nil, util.NewError(util.KindConflict, "assessment start is already in progress")
		}
		monitoring.AssessmentsStarted.WithLabelValues("resumed").Inc()
		return res, nil
	}

	outcome := "generated"
	if purged {
		outcome = "regenerated"
	}
	monitoring.AssessmentsStarted.WithLabelValues(outcome).Inc()
	logger.Log.Info("Assessment started",
		zap.Uint("userID", userID), zap.Uint("sessionID", session.ID), zap.Int("questions", len(questions)))
	return s.startResult(session, questions, false), nil
}

// Score 作答长度可短于题目数，缺失部分按答错计
func Score(questions []model.McqQuestion, answers []int) (float64, error) {
	if len(questions) == 0 {
		return 0, model.ErrCorruptedQuestionSet
	}
	if len(answers) > len(questions) {
		return 0, badRequest("expected at most %d answers, got %d", len(questions), len(answers))
	}
	correct := 0
	for i, a := range answers {
		if a < util.Unanswered || a >= model.OptionsPerQuestion {
			return 0, badRequest("answer %d must be between %d and %d", i, util.Unanswered, model.OptionsPerQuestion-1)
		}
		if a == questions[i].CorrectOptionIndex {
			correct++
		}
	}
	return 100 * float64(correct) / float64(len(questions)), nil
}

func (s *AssessmentService) Submit(ctx context.Context, sessionID, userID uint, in *SubmitInput) (*SubmitResult, error) {
	session, err := s.Repo.FindByIDForUser(ctx, sessionID, userID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrSessionNotFound)
	}
	if session.Completed {
		return nil, util.ErrAlreadySubmitted
	}
	if session.QuestionSet == nil {
		return nil, util.Wrap(util.KindInternal, "question set missing", model.ErrCorruptedQuestionSet)
	}

	questions, err := session.QuestionSet.Decode()
	if err != nil {
		return nil, util.Wrap(util.KindInternal, "question set is unreadable", err)
	}
	score, err := Score(questions, in.Answers)
	if err != nil {
		return nil, err
	}

	answers := in.Answers
	if answers == nil {
		answers = []int{}
	}
	completedAt := s.now()
	ok, err := s.Repo.Complete(ctx, session, answers, score, in.WebcamRef, completedAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrAlreadySubmitted
	}
	monitoring.AssessmentsSubmitted.Inc()

	session.Answers = answers
	session.Score = &score
	session.WebcamRef = in.WebcamRef
	session.Completed = true
	session.CompletedAt = &completedAt
	session.ActiveUserID = nil
	session.CompletedUserID = &userID

	// 以下步骤失败不影响已落库的成绩
	session.Recommendation = s.evaluate(ctx, session, questions)
	if s.Reports != nil {
		if err := s.Reports.Dispatch(ctx, session, questions); err != nil {
			logger.Log.Warn("Failed to dispatch assessment report",
				zap.Uint("sessionID", session.ID), zap.Error(err))
		} else {
			session.ReportSent = true
		}
	}

	logger.Log.Info("Assessment submitted",
		zap.Uint("userID", userID), zap.Uint("sessionID", session.ID), zap.Float64("score", score))
	return &SubmitResult{
		SessionID:      session.ID,
		Score:          score,
		Recommendation: session.Recommendation,
		CompletedAt:    completedAt,
	}, nil
}

func (s *AssessmentService) evaluate(ctx context.Context, session *model.AssessmentSession, questions []model.McqQuestion) *model.Recommendation {
	if s.Evaluator == nil {
		return nil
	}
	profile, err := s.Profiles.FindByUserID(ctx, session.UserID)
	if err != nil {
		logger.Log.Warn("Skipping evaluation, profile unavailable", zap.Uint("sessionID", session.ID), zap.Error(err))
		return nil
	}

	rec, err := s.Evaluator.Evaluate(ctx, questions, session.Answers, profile)
	if err != nil {
		logger.Log.Warn("Assessment evaluation failed", zap.Uint("sessionID", session.ID), zap.Error(err))
		return nil
	}
	if err := s.Repo.SetRecommendation(ctx, session.ID, rec); err != nil {
		logger.Log.Error("Failed to store recommendation", zap.Uint("sessionID", session.ID), zap.Error(err))
		return nil
	}
	return rec
}

func (s *AssessmentService) Report(ctx context.Context, sessionID, userID uint) (*ReportResult, error) {
	session, err := s.Repo.FindByIDForUser(ctx, sessionID, userID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrSessionNotFound)
	}
	if !session.Completed || session.CompletedAt == nil || session.QuestionSet == nil {
		return nil, util.ErrReportNotReady
	}

	questions, err := session.QuestionSet.Decode()
	if err != nil {
		return nil, util.Wrap(util.KindInternal, "question set is unreadable", err)
	}

	res := &ReportResult{
		SessionID:      session.ID,
		Questions:      questions,
		Answers:        session.Answers,
		Recommendation: session.Recommendation,
		StartedAt:      session.StartedAt,
		CompletedAt:    *session.CompletedAt,
		WebcamRef:      session.WebcamRef,
	}
	if session.Score != nil {
		res.Score = *session.Score
	}
	return res, nil
}

func (s *AssessmentService) History(ctx context.Context, userID uint) ([]model.AssessmentSession, error) {
	return s.Repo.ListByUser(ctx, userID)
}

func (s *AssessmentService) ListSessions(ctx context.Context, page, limit int, completed *bool) ([]model.AssessmentSession, int64, error) {
	return s.Repo.List(ctx, page, limit, completed)
}

// UploadWebcam 保存摄像头抓拍，返回的引用作为 submit 的 webcamRef
func (s *AssessmentService) UploadWebcam(ctx context.Context, userID uint, filename string, size int64, file io.ReadSeeker) (string, error) {
	if !util.HasAllowedExtension(filename, util.AllowedWebcamExtensions) {
		return "", badRequest("unsupported capture format")
	}
	if size > util.MaxWebcamCaptureSize {
		return "", badRequest("capture must not exceed %dMB", util.MaxWebcamCaptureSize>>20)
	}

	mimeType, err := util.ValidateMimeType(file, []string{util.MimeImage, util.MimeVideo})
	if err != nil {
		return "", badRequest("capture is not an image or video")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	key := ObjectKey("webcam", userID, filename)
	ref, err := s.Storage.Upload(ctx, key, file, size, mimeType)
	if err != nil {
		return "", util.Wrap(util.KindServiceError, "failed to store capture", fmt.Errorf("upload %s: %w", key, err))
	}
	return ref, nil
}
