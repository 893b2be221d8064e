package repository

import (
	"careerx_backend/internal/model"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ResetCodeStore 找回密码验证码存储
type ResetCodeStore interface {
	// Save 覆盖该邮箱之前的验证码
	Save(ctx context.Context, email, code string, ttl time.Duration) error
	// Check 验证码存在且未过期、未使用
	Check(ctx context.Context, email, code string) (bool, error)
	// Consume 校验并作废验证码
	Consume(ctx context.Context, email, code string) (bool, error)
}

type GormResetCodeStore struct {
	DB  *gorm.DB
	now func() time.Time
}

func NewGormResetCodeStore(db *gorm.DB) *GormResetCodeStore {
	return &GormResetCodeStore{DB: db, now: time.Now}
}

func (s *GormResetCodeStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("email = ?", email).Delete(&model.PasswordResetCode{}).Error; err != nil {
			return err
		}
		return tx.Create(&model.PasswordResetCode{
			Email:     email,
			Code:      code,
			ExpiresAt: s.now().Add(ttl),
		}).Error
	})
}

func (s *GormResetCodeStore) find(ctx context.Context, db *gorm.DB, email, code string) (*model.PasswordResetCode, error) {
	var rc model.PasswordResetCode
	err := db.WithContext(ctx).
		Where("email = ? AND code = ? AND used = ?", email, code, false).
		Order("id desc").
		First(&rc).Error
	if err != nil {
		return nil, err
	}
	if rc.Expired(s.now()) {
		return nil, gorm.ErrRecordNotFound
	}
	return &rc, nil
}

func (s *GormResetCodeStore) Check(ctx context.Context, email, code string) (bool, error) {
	_, err := s.find(ctx, s.DB, email, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *GormResetCodeStore) Consume(ctx context.Context, email, code string) (bool, error) {
	ok := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rc, err := s.find(ctx, tx, email, code)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		res := tx.Model(&model.PasswordResetCode{}).
			Where("id = ? AND used = ?", rc.ID, false).
			Update("used", true)
		ok = res.RowsAffected == 1
		return res.Error
	})
	return ok, err
}

// RedisResetCodeStore 使用 key 过期时间表达有效期
type RedisResetCodeStore struct {
	Client *redis.Client
}

func NewRedisResetCodeStore(client *redis.Client) *RedisResetCodeStore {
	return &RedisResetCodeStore{Client: client}
}

func resetCodeKey(email string) string {
	return fmt.Sprintf("careerx:reset:%s", email)
}

func (s *RedisResetCodeStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	return s.Client.Set(ctx, resetCodeKey(email), code, ttl).Err()
}

func (s *RedisResetCodeStore) Check(ctx context.Context, email, code string) (bool, error) {
	stored, err := s.Client.Get(ctx, resetCodeKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored == code, nil
}

var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (s *RedisResetCodeStore) Consume(ctx context.Context, email, code string) (bool, error) {
	n, err := consumeScript.Run(ctx, s.Client, []string{resetCodeKey(email)}, code).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
