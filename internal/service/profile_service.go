package service

import (
	"careerx_backend/internal/model"
	"careerx_backend/internal/repository"
	"careerx_backend/internal/util"
	"careerx_backend/pkg/logger"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProfileInput 创建和更新档案的请求体
type ProfileInput struct {
	DateOfBirth       string `json:"dateOfBirth" example:"2007-05-14"`
	Gender            string `json:"gender" example:"female"`
	MobileNumber      string `json:"mobileNumber" example:"9876543210"`
	PreferredLanguage string `json:"preferredLanguage"`

	EducationLevel  string `json:"educationLevel" example:"higher_secondary"`
	BoardUniversity string `json:"boardUniversity"`
	Institution     string `json:"institution"`
	Stream          string `json:"stream"`
	CurrentYear     string `json:"currentYear"`
	PercentageCGPA  string `json:"percentageCgpa"`
	HasGapYear      bool   `json:"hasGapYear"`
	GapYears        int    `json:"gapYears"`
	GapReason       string `json:"gapReason"`

	AreasOfInterest        string   `json:"areasOfInterest"`
	PreferredCareerDomains []string `json:"preferredCareerDomains"`
	DreamJob               string   `json:"dreamJob"`

	TechnicalSkills  []string `json:"technicalSkills"`
	SoftSkills       []string `json:"softSkills"`
	SkillLevel       string   `json:"skillLevel"`
	Hobbies          string   `json:"hobbies"`
	Extracurriculars string   `json:"extracurriculars"`

	AcademicAchievements string                `json:"academicAchievements"`
	Scholarships         string                `json:"scholarships"`
	MeritCertificates    string                `json:"meritCertificates"`
	Competitions         string                `json:"competitions"`
	SportsCultural       string                `json:"sportsCultural"`
	Certifications       []model.Certification `json:"certifications"`
	AppearedCompetitive  bool                  `json:"appearedCompetitiveExam"`
	CompetitiveExamName  string                `json:"competitiveExamName"`
	CompetitiveExamScore string                `json:"competitiveExamScore"`
	CompetitiveExamYear  int                   `json:"competitiveExamYear"`
}

func badRequest(format string, args ...any) error {
	return util.NewError(util.KindBadRequest, fmt.Sprintf(format, args...))
}

func isTenDigits(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Validate 校验必填项与枚举，错误均为 BadRequest
func (in *ProfileInput) Validate(now time.Time) (time.Time, error) {
	dob, err := time.Parse(util.DateFormat, strings.TrimSpace(in.DateOfBirth))
	if err != nil {
		return time.Time{}, badRequest("dateOfBirth is required in YYYY-MM-DD format")
	}
	if dob.After(now) {
		return time.Time{}, badRequest("dateOfBirth cannot be in the future")
	}
	if !model.Gender(in.Gender).Valid() {
		return time.Time{}, badRequest("gender must be one of male, female, other, prefer_not_to_say")
	}
	if !isTenDigits(strings.TrimSpace(in.MobileNumber)) {
		return time.Time{}, badRequest("mobileNumber must be exactly 10 digits")
	}
	if !model.EducationLevel(in.EducationLevel).Valid() {
		return time.Time{}, badRequest("educationLevel is invalid")
	}
	if !model.Stream(in.Stream).Valid() {
		return time.Time{}, badRequest("stream is invalid")
	}
	if !model.SkillLevel(in.SkillLevel).Valid() {
		return time.Time{}, badRequest("skillLevel is invalid")
	}
	if in.GapYears < 0 {
		return time.Time{}, badRequest("gapYears cannot be negative")
	}
	if !in.HasGapYear && in.GapYears > 0 {
		return time.Time{}, badRequest("gapYears requires hasGapYear")
	}
	return dob, nil
}

func (in *ProfileInput) apply(p *model.Profile, dob time.Time) {
	p.DateOfBirth = dob
	p.Gender = model.Gender(in.Gender)
	p.MobileNumber = strings.TrimSpace(in.MobileNumber)
	p.PreferredLanguage = in.PreferredLanguage
	p.EducationLevel = model.EducationLevel(in.EducationLevel)
	p.BoardUniversity = in.BoardUniversity
	p.Institution = in.Institution
	p.Stream = model.Stream(in.Stream)
	p.CurrentYear = in.CurrentYear
	p.PercentageCGPA = in.PercentageCGPA
	p.HasGapYear = in.HasGapYear
	p.GapYears = in.GapYears
	p.GapReason = in.GapReason
	if !in.HasGapYear {
		p.GapYears = 0
		p.GapReason = ""
	}
	p.AreasOfInterest = in.AreasOfInterest
	p.PreferredCareerDomains = in.PreferredCareerDomains
	p.DreamJob = in.DreamJob
	p.TechnicalSkills = in.TechnicalSkills
	p.SoftSkills = in.SoftSkills
	p.SkillLevel = model.SkillLevel(in.SkillLevel)
	p.Hobbies = in.Hobbies
	p.Extracurriculars = in.Extracurriculars
	p.AcademicAchievements = in.AcademicAchievements
	p.Scholarships = in.Scholarships
	p.MeritCertificates = in.MeritCertificates
	p.Competitions = in.Competitions
	p.SportsCultural = in.SportsCultural
	p.Certifications = in.Certifications
	p.AppearedCompetitive = in.AppearedCompetitive
	p.CompetitiveExamName = in.CompetitiveExamName
	p.CompetitiveExamScore = in.CompetitiveExamScore
	p.CompetitiveExamYear = in.CompetitiveExamYear
	if !in.AppearedCompetitive {
		p.CompetitiveExamName = ""
		p.CompetitiveExamScore = ""
		p.CompetitiveExamYear = 0
	}
}

type ProfileService struct {
	Repo     *repository.ProfileRepository
	UserRepo *repository.UserRepository
	Storage  BlobStore
	now      func() time.Time
}

func NewProfileService(repo *repository.ProfileRepository, userRepo *repository.UserRepository, storage BlobStore) *ProfileService {
	return &ProfileService{Repo: repo, UserRepo: userRepo, Storage: storage, now: time.Now}
}

func (s *ProfileService) Get(ctx context.Context, userID uint) (*model.Profile, error) {
	p, err := s.Repo.FindByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrProfileNotFound
	}
	return p, err
}

func (s *ProfileService) Create(ctx context.Context, userID uint, in *ProfileInput) (*model.Profile, error) {
	dob, err := in.Validate(s.now())
	if err != nil {
		return nil, err
	}

	exists, err := s.Repo.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrProfileExists
	}

	p := &model.Profile{UserID: userID}
	in.apply(p, dob)
	if err := s.Repo.Create(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrProfileExists
		}
		return nil, err
	}
	return p, nil
}

func (s *ProfileService) Update(ctx context.Context, userID uint, in *ProfileInput) (*model.Profile, error) {
	dob, err := in.Validate(s.now())
	if err != nil {
		return nil, err
	}

	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	in.apply(p, dob)
	if err := s.Repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProfileService) Delete(ctx context.Context, userID uint) error {
	ok, err := s.Repo.Delete(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrProfileNotFound
	}
	return nil
}

// UploadPicture 保存头像并记录到用户，旧头像尽力删除
func (s *ProfileService) UploadPicture(ctx context.Context, userID uint, filename string, size int64, file io.ReadSeeker) (string, error) {
	if !util.HasAllowedExtension(filename, util.AllowedImageExtensions) {
		return "", badRequest("only jpg, jpeg, png and gif images are allowed")
	}
	if size > util.MaxProfilePictureSize {
		return "", badRequest("file size must not exceed 5MB")
	}

	mimeType, err := util.ValidateMimeType(file, []string{util.MimeImage})
	if err != nil {
		return "", badRequest("file content is not an image")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	user, err := s.UserRepo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", util.ErrUserNotFound
	}
	if err != nil {
		return "", err
	}

	key := ObjectKey("profile-pictures", userID, filename)
	url, err := s.Storage.Upload(ctx, key, file, size, mimeType)
	if err != nil {
		return "", util.Wrap(util.KindServiceError, "failed to store picture", err)
	}

	if err := s.UserRepo.UpdateProfilePicture(ctx, userID, url, key); err != nil {
		return "", err
	}

	if user.ProfilePictureKey != "" {
		if err := s.Storage.Delete(ctx, user.ProfilePictureKey); err != nil {
			logger.Log.Warn("Failed to delete previous profile picture",
				zap.Uint("userID", userID), zap.String("key", user.ProfilePictureKey), zap.Error(err))
		}
	}
	return url, nil
}
