package repository

import (
	"careerx_backend/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

func (r *AssessmentRepository) FindActiveByUser(ctx context.Context, userID uint) (*model.AssessmentSession, error) {
	var s model.AssessmentSession
	err := r.DB.WithContext(ctx).
		Preload("QuestionSet").
		Where("active_user_id = ?", userID).
		First(&s).Error
	return &s, err
}

func (r *AssessmentRepository) FindCompletedByUser(ctx context.Context, userID uint) (*model.AssessmentSession, error) {
	var s model.AssessmentSession
	err := r.DB.WithContext(ctx).
		Preload("QuestionSet").
		Where("completed_user_id = ?", userID).
		First(&s).Error
	return &s, err
}

func (r *AssessmentRepository) FindByIDForUser(ctx context.Context, id, userID uint) (*model.AssessmentSession, error) {
	var s model.AssessmentSession
	err := r.DB.WithContext(ctx).
		Preload("QuestionSet").
		Where("id = ? AND user_id = ?", id, userID).
		First(&s).Error
	return &s, err
}

// CreateWithQuestionSet 在同一事务中写入题目集和会话
func (r *AssessmentRepository) CreateWithQuestionSet(ctx context.Context, qs *model.QuestionSet, s *model.AssessmentSession) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(qs).Error; err != nil {
			return err
		}
		s.QuestionSetID = qs.ID
		s.QuestionSet = nil
		if err := tx.Create(s).Error; err != nil {
			return err
		}
		s.QuestionSet = qs
		return nil
	})
}

// PurgeSession 硬删除会话及其题目集，释放进行中唯一索引
func (r *AssessmentRepository) PurgeSession(ctx context.Context, s *model.AssessmentSession) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Delete(&model.AssessmentSession{}, s.ID).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&model.QuestionSet{}, s.QuestionSetID).Error
	})
}

// Complete 条件更新 completed=false → true，返回是否由本次调用完成
func (r *AssessmentRepository) Complete(ctx context.Context, s *model.AssessmentSession, answers []int, score float64, webcamRef string, at time.Time) (bool, error) {
	userID := s.UserID
	res := r.DB.WithContext(ctx).Model(&model.AssessmentSession{}).
		Where("id = ? AND completed = ?", s.ID, false).
		Select("Answers", "Score", "WebcamRef", "Completed", "CompletedAt", "ActiveUserID", "CompletedUserID").
		Updates(model.AssessmentSession{
			Answers:         answers,
			Score:           &score,
			WebcamRef:       webcamRef,
			Completed:       true,
			CompletedAt:     &at,
			ActiveUserID:    nil,
			CompletedUserID: &userID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *AssessmentRepository) SetRecommendation(ctx context.Context, id uint, rec *model.Recommendation) error {
	return r.DB.WithContext(ctx).Model(&model.AssessmentSession{}).
		Where("id = ?", id).
		Select("Recommendation").
		Updates(model.AssessmentSession{Recommendation: rec}).Error
}

func (r *AssessmentRepository) MarkReportSent(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Model(&model.AssessmentSession{}).
		Where("id = ?", id).
		Update("report_sent", true).Error
}

func (r *AssessmentRepository) ListByUser(ctx context.Context, userID uint) ([]model.AssessmentSession, error) {
	var sessions []model.AssessmentSession
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at desc, id desc").
		Find(&sessions).Error
	return sessions, err
}

// List 管理端分页查询，completed 为空时不过滤
func (r *AssessmentRepository) List(ctx context.Context, page, limit int, completed *bool) ([]model.AssessmentSession, int64, error) {
	var sessions []model.AssessmentSession
	var total int64

	query := r.DB.WithContext(ctx).Model(&model.AssessmentSession{})
	if completed != nil {
		query = query.Where("completed = ?", *completed)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Order("id desc").Offset(offset).Limit(limit).Find(&sessions).Error
	return sessions, total, err
}
