package service

import (
	"bytes"
	"careerx_backend/internal/model"
	"careerx_backend/internal/repository"
	"careerx_backend/internal/util"
	"careerx_backend/pkg/logger"
	"context"
	"errors"
	"html/template"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RoadmapService struct {
	Repo        *repository.RoadmapRepository
	Payments    *repository.PaymentRepository
	Profiles    *repository.ProfileRepository
	Assessments *repository.AssessmentRepository
	UserRepo    *repository.UserRepository
	Generator   RoadmapGenerator
	Mailer      Mailer
}

func NewRoadmapService(
	repo *repository.RoadmapRepository,
	payments *repository.PaymentRepository,
	profiles *repository.ProfileRepository,
	assessments *repository.AssessmentRepository,
	userRepo *repository.UserRepository,
	generator RoadmapGenerator,
	mailer Mailer,
) *RoadmapService {
	return &RoadmapService{
		Repo:        repo,
		Payments:    payments,
		Profiles:    profiles,
		Assessments: assessments,
		UserRepo:    userRepo,
		Generator:   generator,
		Mailer:      mailer,
	}
}

// Generate 每笔已完成支付只生成一次路线图，重复调用返回已存储的版本
func (s *RoadmapService) Generate(ctx context.Context, userID, paymentID uint) (*model.Roadmap, error) {
	payment, err := s.Payments.FindByIDForUser(ctx, paymentID, userID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrPaymentRequired)
	}
	if payment.Status != model.PaymentCompleted {
		return nil, util.ErrPaymentRequired
	}

	existing, err := s.Repo.FindByPaymentID(ctx, payment.ID)
	if err == nil {
		return existing, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	profile, err := s.Profiles.FindByUserID(ctx, userID)
	if isNotFound(err) {
		return nil, badRequest("complete your profile before generating a roadmap")
	}
	if err != nil {
		return nil, err
	}
	session, err := s.Assessments.FindCompletedByUser(ctx, userID)
	if isNotFound(err) {
		return nil, badRequest("complete the assessment before generating a roadmap")
	}
	if err != nil {
		return nil, err
	}

	plan, err := s.Generator.GenerateRoadmap(ctx, profile, session)
	if err != nil {
		var appErr *util.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, util.Wrap(util.KindServiceError, util.ErrGenerationFailed.Message, err)
	}

	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrUserNotFound)
	}

	htmlContent := plan.HTMLContent
	if htmlContent == "" {
		htmlContent, err = RenderRoadmapHTML(user.Name, plan)
		if err != nil {
			return nil, err
		}
	}

	rm := &model.Roadmap{
		UserID:      userID,
		PaymentID:   payment.ID,
		SessionID:   session.ID,
		TopCareers:  plan.Top3Careers,
		Roadmaps:    plan.Roadmaps,
		HTMLContent: htmlContent,
	}
	if err := s.Repo.Create(ctx, rm); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			logger.Log.Info("Roadmap already generated concurrently", zap.Uint("paymentID", payment.ID))
			return s.Repo.FindByPaymentID(ctx, payment.ID)
		}
		return nil, err
	}

	stored, err := s.Repo.FindByPaymentID(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	s.email(ctx, user, stored)
	return stored, nil
}

func (s *RoadmapService) email(ctx context.Context, user *model.User, rm *model.Roadmap) {
	if s.Mailer == nil {
		return
	}
	err := s.Mailer.Send(ctx, MailMessage{
		To:      user.Email,
		Subject: "Your CareerX Career Roadmap",
		HTML:    rm.HTMLContent,
	})
	if err != nil {
		logger.Log.Warn("Failed to email roadmap", zap.Uint("roadmapID", rm.ID), zap.Error(err))
		return
	}
	if err := s.Repo.MarkEmailSent(ctx, rm.ID); err != nil {
		logger.Log.Error("Failed to mark roadmap email sent", zap.Uint("roadmapID", rm.ID), zap.Error(err))
		return
	}
	rm.EmailSent = true
}

func (s *RoadmapService) List(ctx context.Context, userID uint) ([]model.Roadmap, error) {
	return s.Repo.ListByUser(ctx, userID)
}

func (s *RoadmapService) Get(ctx context.Context, userID, roadmapID uint) (*model.Roadmap, error) {
	rm, err := s.Repo.FindByIDForUser(ctx, roadmapID, userID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrRoadmapNotFound)
	}
	return rm, nil
}

var roadmapTemplate = template.Must(template.New("roadmap").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>CareerX Career Roadmap</title></head>
<body style="font-family: Arial, sans-serif; max-width: 800px; margin: 0 auto;">
<h1 style="color: #4F46E5;">Career Roadmap for {{.Name}}</h1>
<h2>Top Career Matches</h2>
<ol>
{{range .Plan.Top3Careers}}<li><strong>{{.CareerName}}</strong> ({{.FitScore}}% fit): {{.WhyFit}}</li>
{{end}}</ol>
{{range .Plan.Roadmaps}}
<h2>{{.CareerName}}</h2>
{{range .Phases}}<h3>{{.PhaseName}} &middot; {{.Duration}}</h3>
<ul>{{range .Steps}}<li>{{.}}</li>{{end}}</ul>
{{if .Skills}}<p><em>Skills:</em> {{range $i, $s := .Skills}}{{if $i}}, {{end}}{{$s}}{{end}}</p>{{end}}
{{if .Certifications}}<p><em>Certifications:</em> {{range $i, $c := .Certifications}}{{if $i}}, {{end}}{{$c}}{{end}}</p>{{end}}
{{if .Resources}}<p><em>Resources:</em> {{range $i, $r := .Resources}}{{if $i}}, {{end}}{{$r}}{{end}}</p>{{end}}
{{end}}
{{if .JobMarketOutlook}}<p><strong>Job market:</strong> {{.JobMarketOutlook}}</p>{{end}}
{{if .SalaryRange}}<p><strong>Salary range:</strong> {{.SalaryRange}}</p>{{end}}
{{if .Timeline}}<p><strong>Timeline:</strong> {{.Timeline}}</p>{{end}}
{{end}}
<p>Team CareerX</p>
</body>
</html>
`))

// RenderRoadmapHTML 生成器未返回 HTML 时的兜底渲染
func RenderRoadmapHTML(name string, plan *model.RoadmapPlan) (string, error) {
	var buf bytes.Buffer
	if err := roadmapTemplate.Execute(&buf, map[string]any{"Name": name, "Plan": plan}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
