package service

import (
	"careerx_backend/internal/config"
	"careerx_backend/internal/model"
	"careerx_backend/internal/repository"
	"careerx_backend/internal/testutil"
	"careerx_backend/internal/util"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type roadmapFixture struct {
	db        *gorm.DB
	svc       *RoadmapService
	payments  *PaymentService
	generator *fakeRoadmapGenerator
	mailer    *fakeMailer
	user      *model.User
}

func samplePlan() *model.RoadmapPlan {
	return &model.RoadmapPlan{
		Top3Careers: []model.CareerOption{
			{CareerName: "Data Scientist", FitScore: 88, WhyFit: "Strong analytics"},
			{CareerName: "ML Engineer", FitScore: 80, WhyFit: "Enjoys building"},
			{CareerName: "Actuary", FitScore: 70, WhyFit: "Good with numbers"},
		},
		Roadmaps: []model.CareerRoadmap{{
			CareerName: "Data Scientist",
			Phases: []model.RoadmapPhase{{
				PhaseName: "Foundation",
				Duration:  "Months 1-6",
				Steps:     []string{"Learn Python"},
				Skills:    []string{"Python", "Statistics"},
			}},
			SalaryRange: "6-12 LPA",
		}},
	}
}

func newRoadmapFixture(t *testing.T) *roadmapFixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &roadmapFixture{
		db:        db,
		generator: &fakeRoadmapGenerator{plan: samplePlan()},
		mailer:    &fakeMailer{},
	}
	paymentRepo := repository.NewPaymentRepository(db)
	f.payments = NewPaymentService(paymentRepo, &fakeGateway{orderID: "order_rm"}, config.PaymentConfig{KeySecret: testKeySecret, Currency: "INR"})
	f.svc = NewRoadmapService(
		repository.NewRoadmapRepository(db),
		paymentRepo,
		repository.NewProfileRepository(db),
		repository.NewAssessmentRepository(db),
		repository.NewUserRepository(db),
		f.generator,
		f.mailer,
	)
	f.user = seedUser(t, db, "ravi@example.com")
	return f
}

func (f *roadmapFixture) paidOrder(t *testing.T) uint {
	t.Helper()
	ctx := context.Background()
	order, err := f.payments.CreateOrder(ctx, f.user.ID, 499)
	require.NoError(t, err)
	_, err = f.payments.Verify(ctx, f.user.ID, &VerifyInput{
		OrderID:          order.OrderID,
		GatewayPaymentID: "pay_rm",
		Signature:        PaymentSignature(testKeySecret, order.OrderID, "pay_rm"),
	})
	require.NoError(t, err)
	return order.PaymentID
}

func (f *roadmapFixture) completedSession(t *testing.T) {
	t.Helper()
	repo := repository.NewAssessmentRepository(f.db)
	uid := f.user.ID
	qs, err := model.NewQuestionSet(uid, "Career Assessment", makeQuestions(4), 3600, false)
	require.NoError(t, err)
	s := &model.AssessmentSession{UserID: uid, ActiveUserID: &uid, StartedAt: time.Now()}
	require.NoError(t, repo.CreateWithQuestionSet(context.Background(), qs, s))
	ok, err := repo.Complete(context.Background(), s, []int{0, 1, 2, 3}, 100, "", time.Now())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRoadmapService_RequiresCompletedPayment(t *testing.T) {
	f := newRoadmapFixture(t)
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, f.user.ID, 999)
	assert.True(t, errors.Is(err, util.ErrPaymentRequired))

	order, err := f.payments.CreateOrder(ctx, f.user.ID, 499)
	require.NoError(t, err)
	_, err = f.svc.Generate(ctx, f.user.ID, order.PaymentID)
	assert.True(t, errors.Is(err, util.ErrPaymentRequired), "pending payment is not enough")
	assert.Zero(t, f.generator.calls)
}

func TestRoadmapService_RequiresProfileAndAssessment(t *testing.T) {
	f := newRoadmapFixture(t)
	ctx := context.Background()
	paymentID := f.paidOrder(t)

	_, err := f.svc.Generate(ctx, f.user.ID, paymentID)
	assert.Equal(t, util.KindBadRequest, util.KindOf(err))

	seedProfile(t, f.db, f.user.ID)
	_, err = f.svc.Generate(ctx, f.user.ID, paymentID)
	assert.Equal(t, util.KindBadRequest, util.KindOf(err))
	assert.Zero(t, f.generator.calls)
}

func TestRoadmapService_GenerateIsIdempotent(t *testing.T) {
	f := newRoadmapFixture(t)
	ctx := context.Background()
	seedProfile(t, f.db, f.user.ID)
	f.completedSession(t)
	paymentID := f.paidOrder(t)

	first, err := f.svc.Generate(ctx, f.user.ID, paymentID)
	require.NoError(t, err)
	assert.Contains(t, first.HTMLContent, "Data Scientist")
	assert.Contains(t, first.HTMLContent, "Asha")
	assert.True(t, first.EmailSent)
	require.Len(t, first.TopCareers, 3)

	second, err := f.svc.Generate(ctx, f.user.ID, paymentID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.HTMLContent, second.HTMLContent)
	assert.Equal(t, first.TopCareers, second.TopCareers)
	assert.Equal(t, first.Roadmaps, second.Roadmaps)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON)

	assert.Equal(t, 1, f.generator.calls)
	assert.Len(t, f.mailer.Sent(), 1)

	list, err := f.svc.List(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].HTMLContent, "list omits the rendered document")

	got, err := f.svc.Get(ctx, f.user.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.HTMLContent, got.HTMLContent)

	_, err = f.svc.Get(ctx, f.user.ID+1, first.ID)
	assert.True(t, errors.Is(err, util.ErrRoadmapNotFound))
}

func TestRoadmapService_GeneratorFailurePersistsNothing(t *testing.T) {
	f := newRoadmapFixture(t)
	f.generator.err = errors.New("upstream 500")
	ctx := context.Background()
	seedProfile(t, f.db, f.user.ID)
	f.completedSession(t)
	paymentID := f.paidOrder(t)

	_, err := f.svc.Generate(ctx, f.user.ID, paymentID)
	assert.Equal(t, util.KindServiceError, util.KindOf(err))

	var count int64
	f.db.Model(&model.Roadmap{}).Count(&count)
	assert.Zero(t, count)
}

func TestRoadmapService_EmailFailureIsNotFatal(t *testing.T) {
	f := newRoadmapFixture(t)
	f.mailer.err = errors.New("smtp down")
	f.generator.plan.HTMLContent = "<p>ready made</p>"
	ctx := context.Background()
	seedProfile(t, f.db, f.user.ID)
	f.completedSession(t)
	paymentID := f.paidOrder(t)

	rm, err := f.svc.Generate(ctx, f.user.ID, paymentID)
	require.NoError(t, err)
	assert.Equal(t, "<p>ready made</p>", rm.HTMLContent)
	assert.False(t, rm.EmailSent)
}
