package app

import (
	"bytes"
	"careerx_backend/internal/config"
	"careerx_backend/internal/llm"
	"careerx_backend/internal/model"
	"careerx_backend/internal/service"
	"careerx_backend/internal/testutil"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeySecret = "rzp_test_secret"

type stubGateway struct {
	orders int
}

func (g *stubGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (string, error) {
	g.orders++
	return fmt.Sprintf("order_test_%d", g.orders), nil
}

func (g *stubGateway) KeyID() string { return "rzp_test_key" }

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server:     config.ServerConfig{Port: "0", Mode: "test"},
		JWT:        config.JWTConfig{Secret: "router-test-secret", ExpireTime: time.Hour},
		Storage:    config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		AI:         config.AIConfig{Provider: "gemini", TimeoutSeconds: 5},
		Payment:    config.PaymentConfig{KeyID: "rzp_test_key", KeySecret: testKeySecret, Currency: "INR", RoadmapPrice: 499},
		Assessment: config.AssessmentConfig{QuestionCount: 3, DurationMinutes: 60, WebcamRequired: true},
		RateLimit:  config.RateLimitConfig{MaxRequests: 1000, WindowMinutes: 1},
	}
}

func mockJSON(t *testing.T, v any) llm.MockResponse {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return llm.MockResponse{Content: b}
}

func generatedQuestions() []model.McqQuestion {
	qs := make([]model.McqQuestion, 3)
	for i := range qs {
		qs[i] = model.McqQuestion{
			QuestionText:       fmt.Sprintf("Question %d", i+1),
			Options:            []string{"A", "B", "C", "D"},
			CorrectOptionIndex: i % 4,
			Category:           model.QuestionCategories[i],
		}
	}
	return qs
}

type testServer struct {
	t        *testing.T
	app      *App
	provider *llm.MockProvider
}

func newTestServer(t *testing.T) *testServer {
	cfg := testConfig(t)
	provider := llm.NewMockProvider(
		mockJSON(t, map[string]any{"questions": generatedQuestions()}),
		mockJSON(t, model.Recommendation{
			RecommendedCareer: "Data Scientist",
			SkillScore:        72,
			Strengths:         []string{"logic"},
			Weaknesses:        []string{"communication"},
			CareerRoadmap:     model.CareerRoadmapHints{ShortTerm: "Python", MediumTerm: "Statistics", LongTerm: "ML research"},
			SuggestedCourses:  []string{"Intro to ML"},
			SuggestedColleges: []string{"IISc"},
		}),
		mockJSON(t, model.RoadmapPlan{
			Top3Careers: []model.CareerOption{{CareerName: "Data Scientist", FitScore: 88, WhyFit: "Strong analytics"}},
			Roadmaps: []model.CareerRoadmap{{
				CareerName: "Data Scientist",
				Phases: []model.RoadmapPhase{{
					PhaseName: "Foundation (Months 1-6)",
					Duration:  "6 months",
					Steps:     []string{"Learn Python"},
				}},
			}},
		}),
	)

	storage, err := service.NewStorageService(context.Background(), cfg)
	require.NoError(t, err)

	app := New(cfg, Dependencies{
		DB:       testutil.NewDB(t),
		Provider: provider,
		Gateway:  &stubGateway{},
		Mailer:   service.LogMailer{},
		Storage:  storage,
	})
	return &testServer{t: t, app: app, provider: provider}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(method, path, token string, body any) (int, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") != "" && bytes.HasPrefix(w.Body.Bytes(), []byte("{")) {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func (s *testServer) login(email string) string {
	s.t.Helper()
	code, _ := s.do(http.MethodPost, "/api/register", "", map[string]string{
		"name": "Meera", "email": email, "password": "correct-horse",
	})
	require.Equal(s.t, http.StatusCreated, code)

	code, env := s.do(http.MethodPost, "/api/login", "", map[string]string{
		"email": email, "password": "correct-horse",
	})
	require.Equal(s.t, http.StatusOK, code)
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &out))
	require.NotEmpty(s.t, out.Token)
	return out.Token
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestRouter_HealthAndAuthGuard(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, http.StatusOK, env.Code)

	code, _ = s.do(http.MethodGet, "/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodGet, "/api/profile", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRouter_AdminRequiresRole(t *testing.T) {
	s := newTestServer(t)
	token := s.login("student@example.com")

	code, _ := s.do(http.MethodGet, "/api/admin/assessments/sessions", token, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRouter_StartWithoutProfile(t *testing.T) {
	s := newTestServer(t)
	token := s.login("noprofile@example.com")

	code, env := s.do(http.MethodGet, "/api/assessments/eligibility", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, model.StateNoProfile, decode[model.Eligibility](t, env).State)

	code, _ = s.do(http.MethodPost, "/api/assessments/start", token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, 0, s.provider.CallCount())
}

func TestRouter_FullCareerFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.login("meera@example.com")

	code, env := s.do(http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "meera@example.com", decode[model.User](t, env).Email)

	profile := service.ProfileInput{
		DateOfBirth:    "2007-05-14",
		Gender:         string(model.GenderFemale),
		MobileNumber:   "9876543210",
		EducationLevel: string(model.EducationHigherSecondary),
		Stream:         string(model.StreamScience),
		DreamJob:       "Data Scientist",
	}
	code, _ = s.do(http.MethodPost, "/api/profile", token, profile)
	require.Equal(t, http.StatusCreated, code)

	code, _ = s.do(http.MethodPost, "/api/profile", token, profile)
	assert.Equal(t, http.StatusConflict, code)

	// 开始测评，重复调用恢复同一会话且不再生成题目
	code, env = s.do(http.MethodPost, "/api/assessments/start", token, nil)
	require.Equal(t, http.StatusOK, code)
	started := decode[service.StartResult](t, env)
	require.Len(t, started.Questions, 3)
	assert.False(t, started.Resumed)
	assert.Equal(t, 3600, started.DurationSeconds)

	code, env = s.do(http.MethodPost, "/api/assessments/start", token, nil)
	require.Equal(t, http.StatusOK, code)
	resumed := decode[service.StartResult](t, env)
	assert.True(t, resumed.Resumed)
	assert.Equal(t, started.SessionID, resumed.SessionID)
	assert.Equal(t, 1, s.provider.CallCount())

	code, env = s.do(http.MethodGet, "/api/assessments/eligibility", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, model.StateInProgress, decode[model.Eligibility](t, env).State)

	// 报告在提交前不可用
	reportPath := fmt.Sprintf("/api/assessments/%d/report", started.SessionID)
	code, _ = s.do(http.MethodGet, reportPath, token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	// 正确答案为 0,1,2，答对前两题
	submitPath := fmt.Sprintf("/api/assessments/%d/submit", started.SessionID)
	code, env = s.do(http.MethodPost, submitPath, token, service.SubmitInput{Answers: []int{0, 1, 3}})
	require.Equal(t, http.StatusOK, code)
	submitted := decode[service.SubmitResult](t, env)
	assert.InDelta(t, 66.666, submitted.Score, 0.01)
	require.NotNil(t, submitted.Recommendation)
	assert.Equal(t, "Data Scientist", submitted.Recommendation.RecommendedCareer)

	code, _ = s.do(http.MethodPost, submitPath, token, service.SubmitInput{Answers: []int{0, 1, 2}})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(http.MethodPost, "/api/assessments/start", token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(http.MethodGet, reportPath, token, nil)
	require.Equal(t, http.StatusOK, code)
	report := decode[service.ReportResult](t, env)
	assert.Equal(t, []int{0, 1, 3}, report.Answers)
	assert.Len(t, report.Questions, 3)

	// 未支付不能生成路线图
	code, _ = s.do(http.MethodPost, "/api/roadmaps", token, map[string]uint{"paymentId": 999})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(http.MethodPost, "/api/payments/orders", token, nil)
	require.Equal(t, http.StatusCreated, code)
	order := decode[service.OrderResult](t, env)
	assert.Equal(t, int64(49900), order.Amount)
	assert.Equal(t, "rzp_test_key", order.KeyID)

	code, _ = s.do(http.MethodPost, "/api/payments/verify", token, service.VerifyInput{
		OrderID: order.OrderID, GatewayPaymentID: "pay_1", Signature: "forged",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(http.MethodPost, "/api/payments/verify", token, service.VerifyInput{
		OrderID:          order.OrderID,
		GatewayPaymentID: "pay_1",
		Signature:        service.PaymentSignature(testKeySecret, order.OrderID, "pay_1"),
	})
	require.Equal(t, http.StatusOK, code)
	payment := decode[model.Payment](t, env)
	assert.Equal(t, model.PaymentCompleted, payment.Status)
	assert.Equal(t, order.PaymentID, payment.ID)

	code, env = s.do(http.MethodPost, "/api/roadmaps", token, map[string]uint{"paymentId": payment.ID})
	require.Equal(t, http.StatusOK, code)
	roadmap := decode[model.Roadmap](t, env)
	assert.Contains(t, roadmap.HTMLContent, "Data Scientist")

	// 同一笔支付再次生成返回已有路线图
	code, env = s.do(http.MethodPost, "/api/roadmaps", token, map[string]uint{"paymentId": payment.ID})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, roadmap.ID, decode[model.Roadmap](t, env).ID)
	assert.Equal(t, 3, s.provider.CallCount())

	code, env = s.do(http.MethodGet, "/api/roadmaps", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]model.Roadmap](t, env), 1)

	code, env = s.do(http.MethodGet, "/api/assessments/history", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]model.AssessmentSession](t, env), 1)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/payments/%d/receipt", payment.ID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), order.OrderID)
}

func TestRouter_Chatbot(t *testing.T) {
	s := newTestServer(t)
	token := s.login("chat@example.com")

	// 换成只含聊天响应的提供方
	s.provider = llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"response":"Engineering fits analytical minds.","suggestions":["Take the assessment"]}`),
	})
	s.app.services.ai.Provider = s.provider

	code, env := s.do(http.MethodPost, "/api/chatbot/chat", token, map[string]string{"message": "Is engineering right for me?"})
	require.Equal(t, http.StatusOK, code)
	reply := decode[service.ChatReply](t, env)
	assert.Equal(t, "Engineering fits analytical minds.", reply.Response)
	assert.Equal(t, []string{"Take the assessment"}, reply.Suggestions)

	code, _ = s.do(http.MethodPost, "/api/chatbot/chat", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(http.MethodPost, "/api/chatbot/chat", "", map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusUnauthorized, code)
}
