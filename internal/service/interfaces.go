package service

import (
	"careerx_backend/internal/model"
	"context"
	"io"
)

// QuestionGenerator 根据档案生成固定数量的单选题
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, profile *model.Profile, count int) ([]model.McqQuestion, error)
}

// Evaluator 根据作答情况生成职业建议
type Evaluator interface {
	Evaluate(ctx context.Context, questions []model.McqQuestion, answers []int, profile *model.Profile) (*model.Recommendation, error)
}

// RoadmapGenerator 根据档案和最近一次测评生成路线图
type RoadmapGenerator interface {
	GenerateRoadmap(ctx context.Context, profile *model.Profile, session *model.AssessmentSession) (*model.RoadmapPlan, error)
}

// PaymentGateway 支付网关下单
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (string, error)
	KeyID() string
}

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type MailMessage struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer 邮件发送
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

// ReportRenderer 将已完成的测评渲染为文档
type ReportRenderer interface {
	Render(user *model.User, session *model.AssessmentSession, questions []model.McqQuestion) ([]byte, error)
}

// BlobStore 二进制存储，StorageService 实现
type BlobStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}
