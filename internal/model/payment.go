package model

import "time"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// swagger:model Payment
type Payment struct {
	BaseModel
	UserID           uint          `gorm:"index;not null" json:"userId"`
	Amount           float64       `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency         string        `gorm:"size:3;not null" json:"currency"`
	OrderID          string        `gorm:"size:64;uniqueIndex;not null" json:"orderId"`
	GatewayPaymentID string        `gorm:"size:64" json:"gatewayPaymentId,omitempty"`
	Signature        string        `gorm:"size:128" json:"-"`
	Status           PaymentStatus `gorm:"size:20;index;not null" json:"status"`
	Receipt          string        `gorm:"size:64" json:"receipt"`
	Purpose          string        `gorm:"size:50" json:"purpose"`
	CompletedAt      *time.Time    `json:"completedAt,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}

// AmountMinor 主币种金额换算为网关使用的最小单位（paise）
func AmountMinor(amount float64) int64 {
	return int64(amount*100 + 0.5)
}
