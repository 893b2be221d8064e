package repository

import (
	"careerx_backend/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	DB *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) FindByOrderForUser(ctx context.Context, orderID string, userID uint) (*model.Payment, error) {
	var p model.Payment
	err := r.DB.WithContext(ctx).Where("order_id = ? AND user_id = ?", orderID, userID).First(&p).Error
	return &p, err
}

func (r *PaymentRepository) FindByIDForUser(ctx context.Context, id, userID uint) (*model.Payment, error) {
	var p model.Payment
	err := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&p).Error
	return &p, err
}

// MarkCompleted 仅当状态仍为 pending 时更新，返回是否由本次调用完成
func (r *PaymentRepository) MarkCompleted(ctx context.Context, id uint, gatewayPaymentID, signature string, at time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND status = ?", id, model.PaymentPending).
		Updates(map[string]interface{}{
			"status":             model.PaymentCompleted,
			"gateway_payment_id": gatewayPaymentID,
			"signature":          signature,
			"completed_at":       at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID uint) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&payments).Error
	return payments, err
}
