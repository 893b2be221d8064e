package service

import (
	"bytes"
	"careerx_backend/internal/config"
	"careerx_backend/internal/model"
	"careerx_backend/internal/repository"
	"careerx_backend/internal/util"
	"careerx_backend/pkg/logger"
	"careerx_backend/pkg/monitoring"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	gatewayTimeout = 15 * time.Second
	purposeRoadmap = "career_roadmap"
)

type OrderResult struct {
	PaymentID uint   `json:"paymentId"`
	OrderID   string `json:"orderId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	KeyID     string `json:"keyId"`
}

type VerifyInput struct {
	OrderID          string `json:"razorpay_order_id" binding:"required"`
	GatewayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature        string `json:"razorpay_signature" binding:"required"`
}

type PaymentService struct {
	Repo    *repository.PaymentRepository
	Gateway PaymentGateway
	Cfg     config.PaymentConfig
	now     func() time.Time
}

func NewPaymentService(repo *repository.PaymentRepository, gateway PaymentGateway, cfg config.PaymentConfig) *PaymentService {
	return &PaymentService{Repo: repo, Gateway: gateway, Cfg: cfg, now: time.Now}
}

// CreateOrder 网关下单成功后才落库 pending 记录
func (s *PaymentService) CreateOrder(ctx context.Context, userID uint, amount float64) (*OrderResult, error) {
	if amount <= 0 {
		return nil, badRequest("amount must be greater than zero")
	}
	minor := model.AmountMinor(amount)
	receipt := fmt.Sprintf("receipt_%d", s.now().UnixNano())

	gwCtx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()
	orderID, err := s.Gateway.CreateOrder(gwCtx, minor, s.Cfg.Currency, receipt)
	if err != nil {
		logger.Log.Error("Payment gateway order failed", zap.Uint("userID", userID), zap.Error(err))
		return nil, util.Wrap(util.KindServiceError, util.ErrGatewayFailed.Message, err)
	}

	payment := &model.Payment{
		UserID:   userID,
		Amount:   float64(minor) / 100,
		Currency: s.Cfg.Currency,
		OrderID:  orderID,
		Status:   model.PaymentPending,
		Receipt:  receipt,
		Purpose:  purposeRoadmap,
	}
	if err := s.Repo.Create(ctx, payment); err != nil {
		return nil, err
	}

	return &OrderResult{
		PaymentID: payment.ID,
		OrderID:   orderID,
		Amount:    minor,
		Currency:  payment.Currency,
		KeyID:     s.Gateway.KeyID(),
	}, nil
}

// Verify 校验网关签名并将 pending 支付标记为完成，重复校验返回原记录
func (s *PaymentService) Verify(ctx context.Context, userID uint, in *VerifyInput) (*model.Payment, error) {
	payment, err := s.Repo.FindByOrderForUser(ctx, in.OrderID, userID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrPaymentNotFound)
	}
	if payment.Status == model.PaymentFailed {
		return nil, util.ErrPaymentNotFound
	}

	if !VerifyPaymentSignature(s.Cfg.KeySecret, in.OrderID, in.GatewayPaymentID, in.Signature) {
		monitoring.PaymentsVerified.WithLabelValues("invalid_signature").Inc()
		logger.Log.Warn("Payment signature mismatch",
			zap.Uint("userID", userID), zap.String("orderID", in.OrderID))
		return nil, util.ErrInvalidSignature
	}

	if payment.Status == model.PaymentCompleted {
		monitoring.PaymentsVerified.WithLabelValues("already_completed").Inc()
		return payment, nil
	}

	ok, err := s.Repo.MarkCompleted(ctx, payment.ID, in.GatewayPaymentID, in.Signature, s.now())
	if err != nil {
		return nil, err
	}

	payment, err = s.Repo.FindByOrderForUser(ctx, in.OrderID, userID)
	if err != nil {
		return nil, err
	}
	if !ok && payment.Status != model.PaymentCompleted {
		return nil, util.ErrPaymentNotFound
	}

	monitoring.PaymentsVerified.WithLabelValues("completed").Inc()
	logger.Log.Info("Payment verified", zap.Uint("userID", userID), zap.Uint("paymentID", payment.ID))
	return payment, nil
}

func (s *PaymentService) History(ctx context.Context, userID uint) ([]model.Payment, error) {
	return s.Repo.ListByUser(ctx, userID)
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>CareerX Receipt {{.Receipt}}</title></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h1 style="color: #4F46E5;">CareerX Payment Receipt</h1>
<table cellpadding="6">
<tr><td>Receipt</td><td>{{.Receipt}}</td></tr>
<tr><td>Order ID</td><td>{{.OrderID}}</td></tr>
<tr><td>Payment ID</td><td>{{.GatewayPaymentID}}</td></tr>
<tr><td>Item</td><td>Personalized Career Roadmap</td></tr>
<tr><td>Amount</td><td>{{.Currency}} {{printf "%.2f" .Amount}}</td></tr>
<tr><td>Paid at</td><td>{{.PaidAt}}</td></tr>
</table>
<p>Thank you for choosing CareerX.</p>
</body>
</html>
`))

// Receipt 仅对已完成支付生成 HTML 收据
func (s *PaymentService) Receipt(ctx context.Context, userID, paymentID uint) ([]byte, error) {
	payment, err := s.Repo.FindByIDForUser(ctx, paymentID, userID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrPaymentNotFound)
	}
	if payment.Status != model.PaymentCompleted || payment.CompletedAt == nil {
		return nil, util.ErrPaymentNotFound
	}

	var buf bytes.Buffer
	err = receiptTemplate.Execute(&buf, map[string]any{
		"Receipt":          payment.Receipt,
		"OrderID":          payment.OrderID,
		"GatewayPaymentID": payment.GatewayPaymentID,
		"Currency":         payment.Currency,
		"Amount":           payment.Amount,
		"PaidAt":           payment.CompletedAt.Format(util.TimeFormat),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
