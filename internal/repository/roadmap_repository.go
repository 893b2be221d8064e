package repository

import (
	"careerx_backend/internal/model"
	"context"

	"gorm.io/gorm"
)

type RoadmapRepository struct {
	DB *gorm.DB
}

func NewRoadmapRepository(db *gorm.DB) *RoadmapRepository {
	return &RoadmapRepository{DB: db}
}

// Create 依赖 payment_id 唯一索引，并发生成时只有一条成功
func (r *RoadmapRepository) Create(ctx context.Context, rm *model.Roadmap) error {
	return r.DB.WithContext(ctx).Create(rm).Error
}

func (r *RoadmapRepository) FindByPaymentID(ctx context.Context, paymentID uint) (*model.Roadmap, error) {
	var rm model.Roadmap
	err := r.DB.WithContext(ctx).Where("payment_id = ?", paymentID).First(&rm).Error
	return &rm, err
}

func (r *RoadmapRepository) FindByIDForUser(ctx context.Context, id, userID uint) (*model.Roadmap, error) {
	var rm model.Roadmap
	err := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&rm).Error
	return &rm, err
}

func (r *RoadmapRepository) ListByUser(ctx context.Context, userID uint) ([]model.Roadmap, error) {
	var roadmaps []model.Roadmap
	err := r.DB.WithContext(ctx).
		Select("id", "created_at", "updated_at", "user_id", "payment_id", "session_id", "top_careers", "email_sent").
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&roadmaps).Error
	return roadmaps, err
}

func (r *RoadmapRepository) MarkEmailSent(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Model(&model.Roadmap{}).
		Where("id = ?", id).
		UpdateColumn("email_sent", true).Error
}
