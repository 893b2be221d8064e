package service

import (
	"careerx_backend/internal/repository"
	"careerx_backend/pkg/logger"
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const maxChatMessageLength = 2000

// ChatAssistant 聊天助手的外部协作方，AIService 实现
type ChatAssistant interface {
	Chat(ctx context.Context, message, background string) (*ChatReply, error)
}

type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

type ChatbotService struct {
	Assistant   ChatAssistant
	Profiles    *repository.ProfileRepository
	Assessments *repository.AssessmentRepository
}

func NewChatbotService(assistant ChatAssistant, profiles *repository.ProfileRepository, assessments *repository.AssessmentRepository) *ChatbotService {
	return &ChatbotService{
		Assistant:   assistant,
		Profiles:    profiles,
		Assessments: assessments,
	}
}

// Chat 先收集考生档案与最近一次测评建议作为上下文，再调用大模型回答
func (s *ChatbotService) Chat(ctx context.Context, userID uint, message string) (*ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, badRequest("message is required")
	}
	if utf8.RuneCountInString(message) > maxChatMessageLength {
		return nil, badRequest("message must be at most %d characters", maxChatMessageLength)
	}

	return s.Assistant.Chat(ctx, message, s.background(ctx, userID))
}

// background 上下文缺失不影响回答
func (s *ChatbotService) background(ctx context.Context, userID uint) string {
	facts := map[string]any{}

	profile, err := s.Profiles.FindByUserID(ctx, userID)
	if err == nil {
		facts["profile"] = json.RawMessage(profileJSON(profile))
	} else if !isNotFound(err) {
		logger.Log.Warn("Failed to load profile for chat", zap.Uint("userID", userID), zap.Error(err))
	}

	session, err := s.Assessments.FindCompletedByUser(ctx, userID)
	if err == nil {
		if session.Score != nil {
			facts["assessmentScore"] = *session.Score
		}
		if session.Recommendation != nil {
			facts["recommendation"] = session.Recommendation
		}
	} else if !isNotFound(err) {
		logger.Log.Warn("Failed to load assessment for chat", zap.Uint("userID", userID), zap.Error(err))
	}

	if len(facts) == 0 {
		return ""
	}
	b, _ := json.Marshal(facts)
	return string(b)
}
