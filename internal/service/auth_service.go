package service

import (
	"careerx_backend/internal/config"
	"careerx_backend/internal/model"
	"careerx_backend/internal/repository"
	"careerx_backend/internal/util"
	"careerx_backend/pkg/logger"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"html"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const resetCodeTTL = 10 * time.Minute

type AuthService struct {
	UserRepo   *repository.UserRepository
	ResetCodes repository.ResetCodeStore
	Mailer     Mailer
	Cfg        *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, resetCodes repository.ResetCodeStore, mailer Mailer, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo:   userRepo,
		ResetCodes: resetCodes,
		Mailer:     mailer,
		Cfg:        cfg,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	email = normalizeEmail(email)
	_, err := s.UserRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:     strings.TrimSpace(name),
		Email:    email,
		Password: string(hashedPassword),
		Role:     model.RoleStudent,
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrEmailRegistered
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.UserRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, util.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	if err := s.UserRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		logger.Log.Warn("Failed to update last login", zap.Uint("userID", user.ID), zap.Error(err))
	}
	user.LastLogin = &now
	return token, user, nil
}

func (s *AuthService) GetUser(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}

func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ForgotPassword 不论邮箱是否存在都返回成功，避免用户枚举
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := s.UserRepo.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	code, err := generateResetCode()
	if err != nil {
		return err
	}
	if err := s.ResetCodes.Save(ctx, email, code, resetCodeTTL); err != nil {
		return err
	}

	err = s.Mailer.Send(ctx, MailMessage{
		To:      email,
		Subject: "CareerX password reset code",
		HTML: fmt.Sprintf("<p>Hi %s,</p><p>Your verification code is <strong>%s</strong>. It expires in 10 minutes.</p>",
			html.EscapeString(user.Name), code),
	})
	if err != nil {
		logger.Log.Error("Failed to send reset code", zap.Uint("userID", user.ID), zap.Error(err))
	}
	return nil
}

func (s *AuthService) VerifyResetCode(ctx context.Context, email, code string) error {
	ok, err := s.ResetCodes.Check(ctx, normalizeEmail(email), strings.TrimSpace(code))
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrInvalidResetCode
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return util.ErrPasswordMismatch
	}
	email = normalizeEmail(email)

	user, err := s.UserRepo.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrInvalidResetCode
	}
	if err != nil {
		return err
	}

	ok, err := s.ResetCodes.Consume(ctx, email, strings.TrimSpace(code))
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrInvalidResetCode
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.UserRepo.UpdatePassword(ctx, user.ID, string(hashed))
}
