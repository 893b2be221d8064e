package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

const (
	OptionsPerQuestion = 4

	CategoryLogical   = "Logical Reasoning"
	CategoryTechnical = "Technical"
	CategoryCareer    = "Career & Soft Skills"
)

var QuestionCategories = []string{CategoryLogical, CategoryTechnical, CategoryCareer}

// ErrCorruptedQuestionSet 题目 JSON 无法解析或结构非法
var ErrCorruptedQuestionSet = errors.New("question set is corrupted")

// McqQuestion 单选题，CorrectOptionIndex 取值 0..3
type McqQuestion struct {
	QuestionText       string   `json:"questionText"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
	Category           string   `json:"category"`
}

func (q McqQuestion) Validate() error {
	if q.QuestionText == "" {
		return errors.New("empty question text")
	}
	if len(q.Options) != OptionsPerQuestion {
		return fmt.Errorf("expected %d options, got %d", OptionsPerQuestion, len(q.Options))
	}
	if q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= OptionsPerQuestion {
		return fmt.Errorf("correct option index %d out of range", q.CorrectOptionIndex)
	}
	return nil
}

// QuestionView 下发给考生的题目，不含正确答案
type QuestionView struct {
	Index        int      `json:"index"`
	QuestionText string   `json:"questionText"`
	Options      []string `json:"options"`
	Category     string   `json:"category"`
}

// swagger:model QuestionSet
type QuestionSet struct {
	BaseModel
	UserID           uint           `gorm:"index;not null" json:"userId"`
	Title            string         `gorm:"size:255;not null" json:"title"`
	Questions        datatypes.JSON `gorm:"not null" json:"-"`
	QuestionCount    int            `gorm:"not null" json:"questionCount"`
	TimeLimitSeconds int            `gorm:"not null" json:"timeLimitSeconds"`
	WebcamRequired   bool           `gorm:"not null" json:"webcamRequired"`
}

func (QuestionSet) TableName() string {
	return "question_sets"
}

// NewQuestionSet 编码题目，创建后不可修改
func NewQuestionSet(userID uint, title string, questions []McqQuestion, timeLimitSeconds int, webcam bool) (*QuestionSet, error) {
	raw, err := json.Marshal(questions)
	if err != nil {
		return nil, err
	}
	return &QuestionSet{
		UserID:           userID,
		Title:            title,
		Questions:        datatypes.JSON(raw),
		QuestionCount:    len(questions),
		TimeLimitSeconds: timeLimitSeconds,
		WebcamRequired:   webcam,
	}, nil
}

// Decode 解析题目，任何解析或结构错误都返回 ErrCorruptedQuestionSet
func (qs *QuestionSet) Decode() ([]McqQuestion, error) {
	var questions []McqQuestion
	if err := json.Unmarshal(qs.Questions, &questions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedQuestionSet, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrCorruptedQuestionSet)
	}
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", ErrCorruptedQuestionSet, i, err)
		}
	}
	return questions, nil
}

func Views(questions []McqQuestion) []QuestionView {
	views := make([]QuestionView, len(questions))
	for i, q := range questions {
		views[i] = QuestionView{
			Index:        i,
			QuestionText: q.QuestionText,
			Options:      q.Options,
			Category:     q.Category,
		}
	}
	return views
}

type CareerRoadmapHints struct {
	ShortTerm  string `json:"shortTerm"`
	MediumTerm string `json:"mediumTerm"`
	LongTerm   string `json:"longTerm"`
}

// Recommendation 评估结果
type Recommendation struct {
	RecommendedCareer string             `json:"recommendedCareer"`
	SkillScore        int                `json:"skillScore"`
	Strengths         []string           `json:"strengths"`
	Weaknesses        []string           `json:"weaknesses"`
	CareerRoadmap     CareerRoadmapHints `json:"careerRoadmap"`
	SuggestedCourses  []string           `json:"suggestedCourses"`
	SuggestedColleges []string           `json:"suggestedColleges"`
}

// swagger:model AssessmentSession
type AssessmentSession struct {
	BaseModel
	UserID        uint `gorm:"index;not null" json:"userId"`
	QuestionSetID uint `gorm:"uniqueIndex;not null" json:"questionSetId"`

	// 两个可空唯一列：进行中 / 已完成时分别写入 UserID，数据库层保证每人各至多一条
	ActiveUserID    *uint `gorm:"uniqueIndex:uniq_session_active" json:"-"`
	CompletedUserID *uint `gorm:"uniqueIndex:uniq_session_completed" json:"-"`

	Answers        []int           `gorm:"serializer:json;type:text" json:"answers"`
	Completed      bool            `gorm:"not null;index" json:"completed"`
	StartedAt      time.Time       `gorm:"not null" json:"startedAt"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
	Score          *float64        `json:"score,omitempty"`
	WebcamRef      string          `gorm:"size:512" json:"webcamRef,omitempty"`
	Recommendation *Recommendation `gorm:"serializer:json;type:text" json:"recommendation,omitempty"`
	ReportSent     bool            `gorm:"not null" json:"reportSent"`

	QuestionSet *QuestionSet `gorm:"foreignKey:QuestionSetID" json:"questionSet,omitempty"`
}

func (AssessmentSession) TableName() string {
	return "assessment_sessions"
}

// EligibilityState 考生所处阶段
type EligibilityState string

const (
	StateNoProfile  EligibilityState = "no_profile"
	StateEligible   EligibilityState = "eligible"
	StateInProgress EligibilityState = "in_progress"
	StateCompleted  EligibilityState = "completed"
)

type Eligibility struct {
	State         EligibilityState `json:"state"`
	SessionID     *uint            `json:"sessionId,omitempty"`
	QuestionSetID *uint            `json:"questionSetId,omitempty"`
}
