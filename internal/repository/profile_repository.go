package repository

import (
	"careerx_backend/internal/model"
	"context"

	"gorm.io/gorm"
)

type ProfileRepository struct {
	DB *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{DB: db}
}

func (r *ProfileRepository) FindByUserID(ctx context.Context, userID uint) (*model.Profile, error) {
	var profile model.Profile
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	return &profile, err
}

func (r *ProfileRepository) Exists(ctx context.Context, userID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Profile{}).Where("user_id = ?", userID).Count(&count).Error
	return count > 0, err
}

// Create 依赖 user_id 唯一索引，重复时返回 gorm.ErrDuplicatedKey
func (r *ProfileRepository) Create(ctx context.Context, profile *model.Profile) error {
	return r.DB.WithContext(ctx).Create(profile).Error
}

func (r *ProfileRepository) Update(ctx context.Context, profile *model.Profile) error {
	return r.DB.WithContext(ctx).Save(profile).Error
}

// Delete 硬删除，允许之后重新创建
func (r *ProfileRepository) Delete(ctx context.Context, userID uint) (bool, error) {
	res := r.DB.WithContext(ctx).Unscoped().Where("user_id = ?", userID).Delete(&model.Profile{})
	return res.RowsAffected > 0, res.Error
}
