package service

import (
	"careerx_backend/internal/llm"
	"careerx_backend/internal/model"
	"careerx_backend/internal/util"
	"careerx_backend/pkg/monitoring"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

const (
	opGenerateQuestions = "generate_questions"
	opEvaluate          = "evaluate"
	opGenerateRoadmap   = "generate_roadmap"
	opChat              = "chat"
)

// AIService 基于 llm.Provider 实现出题、评估、路线图三个外部协作方
type AIService struct {
	Provider  llm.Provider
	MaxTokens int
	timeout   atomic.Int64
}

func NewAIService(provider llm.Provider, timeout time.Duration, maxTokens int) *AIService {
	s := &AIService{Provider: provider, MaxTokens: maxTokens}
	s.SetTimeout(timeout)
	return s
}

// SetTimeout 单次调用超时，支持配置热更新
func (s *AIService) SetTimeout(d time.Duration) {
	s.timeout.Store(int64(d))
}

func (s *AIService) Timeout() time.Duration {
	return time.Duration(s.timeout.Load())
}

func (s *AIService) call(ctx context.Context, op string, req llm.Request, out any) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout())
	defer cancel()

	if req.MaxTokens == 0 {
		req.MaxTokens = s.MaxTokens
	}

	start := time.Now()
	resp, err := s.Provider.Generate(ctx, req)
	if err == nil {
		err = resp.Decode(out)
	}
	monitoring.ObserveAICall(op, start, err)
	if err != nil {
		return aiError(op, err)
	}
	return nil
}

// aiError 超时或限流返回 ServiceUnavailable，其余返回 ServiceError
func aiError(op string, err error) error {
	var rateLimit *llm.ErrRateLimit
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return util.Wrap(util.KindServiceUnavailable, util.ErrGenerationTimeout.Message, fmt.Errorf("%s: %w", op, err))
	case errors.As(err, &rateLimit):
		return util.Wrap(util.KindServiceUnavailable, "content generation is busy, try again later", fmt.Errorf("%s: %w", op, err))
	default:
		return util.Wrap(util.KindServiceError, util.ErrGenerationFailed.Message, fmt.Errorf("%s: %w", op, err))
	}
}

const counselorSystemPrompt = "You are an expert career counselor and psychometric test designer for Indian students. " +
	"Always answer with a single JSON document that matches the requested structure. Never wrap the JSON in markdown."

func profileJSON(p *model.Profile) string {
	view := map[string]any{
		"age":                     ageOn(p.DateOfBirth, time.Now()),
		"gender":                  p.Gender,
		"preferredLanguage":       p.PreferredLanguage,
		"educationLevel":          p.EducationLevel,
		"boardUniversity":         p.BoardUniversity,
		"institution":             p.Institution,
		"stream":                  p.Stream,
		"currentYear":             p.CurrentYear,
		"percentageCgpa":          p.PercentageCGPA,
		"hasGapYear":              p.HasGapYear,
		"gapYears":                p.GapYears,
		"areasOfInterest":         p.AreasOfInterest,
		"preferredCareerDomains":  p.PreferredCareerDomains,
		"dreamJob":                p.DreamJob,
		"technicalSkills":         p.TechnicalSkills,
		"softSkills":              p.SoftSkills,
		"skillLevel":              p.SkillLevel,
		"hobbies":                 p.Hobbies,
		"extracurriculars":        p.Extracurriculars,
		"academicAchievements":    p.AcademicAchievements,
		"certifications":          p.Certifications,
		"appearedCompetitiveExam": p.AppearedCompetitive,
		"competitiveExamName":     p.CompetitiveExamName,
		"competitiveExamScore":    p.CompetitiveExamScore,
	}
	b, _ := json.Marshal(view)
	return string(b)
}

func ageOn(dob, now time.Time) int {
	if dob.IsZero() {
		return 0
	}
	age := now.Year() - dob.Year()
	if now.YearDay() < dob.YearDay() {
		age--
	}
	return age
}

// categorySplit 题量在三个类别间平均分配，余数给前面的类别
func categorySplit(count int) []int {
	n := len(model.QuestionCategories)
	split := make([]int, n)
	for i := range split {
		split[i] = count / n
		if i < count%n {
			split[i]++
		}
	}
	return split
}

func enumValues(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func questionSchema(count int) *llm.Schema {
	return &llm.Schema{
		Name:        fmt.Sprintf("mcq-questions-%d", count),
		Description: "A battery of multiple choice questions",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"questions": map[string]any{
					"type":     "array",
					"minItems": count,
					"maxItems": count,
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"questionText": map[string]any{"type": "string", "minLength": 1},
							"options": map[string]any{
								"type":     "array",
								"minItems": model.OptionsPerQuestion,
								"maxItems": model.OptionsPerQuestion,
								"items":    map[string]any{"type": "string"},
							},
							"correctOptionIndex": map[string]any{"type": "integer", "minimum": 0, "maximum": model.OptionsPerQuestion - 1},
							"category":           map[string]any{"type": "string", "enum": enumValues(model.QuestionCategories)},
						},
						"required": []any{"questionText", "options", "correctOptionIndex", "category"},
					},
				},
			},
			"required": []any{"questions"},
		},
	}
}

func (s *AIService) GenerateQuestions(ctx context.Context, profile *model.Profile, count int) ([]model.McqQuestion, error) {
	split := categorySplit(count)
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d multiple choice questions for a career assessment of the student profile below.\n", count)
	b.WriteString("Cover these categories in this order:\n")
	for i, c := range model.QuestionCategories {
		fmt.Fprintf(&b, "%d. %s (%d questions)\n", i+1, c, split[i])
	}
	b.WriteString("Technical questions must match the student's education level and interests. ")
	b.WriteString("Each question has exactly 4 options and one correct option (correctOptionIndex 0-3). ")
	b.WriteString("Use the exact category names listed above.\n\nStudent profile:\n")
	b.WriteString(profileJSON(profile))

	var out struct {
		Questions []model.McqQuestion `json:"questions"`
	}
	err := s.call(ctx, opGenerateQuestions, llm.Request{
		System:      counselorSystemPrompt,
		Prompt:      b.String(),
		Schema:      questionSchema(count),
		Temperature: 0.7,
	}, &out)
	if err != nil {
		return nil, err
	}

	if len(out.Questions) != count {
		return nil, util.Wrap(util.KindServiceError, util.ErrGenerationFailed.Message,
			fmt.Errorf("expected %d questions, got %d", count, len(out.Questions)))
	}
	for i, q := range out.Questions {
		if err := q.Validate(); err != nil {
			return nil, util.Wrap(util.KindServiceError, util.ErrGenerationFailed.Message, fmt.Errorf("question %d: %w", i, err))
		}
	}
	return out.Questions, nil
}

var recommendationSchema = &llm.Schema{
	Name:        "career-recommendation",
	Description: "Career recommendation derived from assessment answers",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recommendedCareer": map[string]any{"type": "string", "minLength": 1},
			"skillScore":        map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
			"strengths":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"weaknesses":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"careerRoadmap": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"shortTerm":  map[string]any{"type": "string"},
					"mediumTerm": map[string]any{"type": "string"},
					"longTerm":   map[string]any{"type": "string"},
				},
				"required": []any{"shortTerm", "mediumTerm", "longTerm"},
			},
			"suggestedCourses":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"suggestedColleges": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []any{"recommendedCareer", "skillScore", "strengths", "weaknesses", "careerRoadmap", "suggestedCourses", "suggestedColleges"},
	},
}

type answeredQuestion struct {
	QuestionText  string `json:"questionText"`
	Category      string `json:"category"`
	CorrectAnswer string `json:"correctAnswer"`
	StudentAnswer string `json:"studentAnswer"`
}

func answerSheet(questions []model.McqQuestion, answers []int) string {
	sheet := make([]answeredQuestion, len(questions))
	for i, q := range questions {
		sheet[i] = answeredQuestion{
			QuestionText:  q.QuestionText,
			Category:      q.Category,
			CorrectAnswer: q.Options[q.CorrectOptionIndex],
			StudentAnswer: "(not answered)",
		}
		if i < len(answers) && answers[i] >= 0 && answers[i] < len(q.Options) {
			sheet[i].StudentAnswer = q.Options[answers[i]]
		}
	}
	b, _ := json.Marshal(sheet)
	return string(b)
}

func (s *AIService) Evaluate(ctx context.Context, questions []model.McqQuestion, answers []int, profile *model.Profile) (*model.Recommendation, error) {
	prompt := "Analyze the assessment results below and recommend a career path.\n" +
		"skillScore is an integer 0-100 reflecting correctness and difficulty. " +
		"careerRoadmap covers the next 6 months (shortTerm), 1-2 years (mediumTerm) and 5 years (longTerm).\n\n" +
		"Student profile:\n" + profileJSON(profile) + "\n\nAnswer sheet:\n" + answerSheet(questions, answers)

	var rec model.Recommendation
	err := s.call(ctx, opEvaluate, llm.Request{
		System:      counselorSystemPrompt,
		Prompt:      prompt,
		Schema:      recommendationSchema,
		Temperature: 0.3,
	}, &rec)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// 可选字段允许缺省或为 null
var (
	stringList     = map[string]any{"type": []any{"array", "null"}, "items": map[string]any{"type": "string"}}
	optionalString = map[string]any{"type": []any{"string", "null"}}
)

var roadmapSchema = &llm.Schema{
	Name:        "career-roadmap",
	Description: "Top three careers with phased roadmaps",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"top3Careers": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": 3,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"careerName": map[string]any{"type": "string", "minLength": 1},
						"fitScore":   map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
						"whyFit":     map[string]any{"type": "string"},
					},
					"required": []any{"careerName", "fitScore", "whyFit"},
				},
			},
			"roadmaps": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"careerName": map[string]any{"type": "string"},
						"phases": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"phaseName":      map[string]any{"type": "string"},
									"duration":       map[string]any{"type": "string"},
									"steps":          stringList,
									"skills":         stringList,
									"certifications": stringList,
									"resources":      stringList,
								},
								"required": []any{"phaseName", "duration", "steps"},
							},
						},
						"jobMarketOutlook": optionalString,
						"salaryRange":      optionalString,
						"timeline":         optionalString,
					},
					"required": []any{"careerName", "phases"},
				},
			},
			"htmlContent": optionalString,
		},
		"required": []any{"top3Careers", "roadmaps"},
	},
}

func assessmentSummary(session *model.AssessmentSession) string {
	summary := map[string]any{"completedAt": session.CompletedAt}
	if session.Score != nil {
		summary["score"] = *session.Score
	}
	if session.Recommendation != nil {
		summary["recommendation"] = session.Recommendation
	}
	b, _ := json.Marshal(summary)
	return string(b)
}

func (s *AIService) GenerateRoadmap(ctx context.Context, profile *model.Profile, session *model.AssessmentSession) (*model.RoadmapPlan, error) {
	prompt := "Based on the student profile and assessment result below, produce a roadmap for the top 3 best-fit careers.\n" +
		"Each roadmap has four phases: Foundation (Months 1-6), Intermediate (Months 7-12), Advanced (Months 13-18) " +
		"and Professional (Months 19-24), with steps, skills, certifications and resources, " +
		"plus job market outlook, expected salary range in India and a timeline.\n\n" +
		"Student profile:\n" + profileJSON(profile) + "\n\nAssessment result:\n" + assessmentSummary(session)

	var plan model.RoadmapPlan
	err := s.call(ctx, opGenerateRoadmap, llm.Request{
		System:      counselorSystemPrompt,
		Prompt:      prompt,
		Schema:      roadmapSchema,
		Temperature: 0.5,
	}, &plan)
	if err != nil {
		return nil, err
	}
	fillEmptyLists(&plan)
	return &plan, nil
}

// fillEmptyLists 缺省的列表统一存为 []
func fillEmptyLists(plan *model.RoadmapPlan) {
	for i := range plan.Roadmaps {
		for j := range plan.Roadmaps[i].Phases {
			ph := &plan.Roadmaps[i].Phases[j]
			for _, list := range []*[]string{&ph.Steps, &ph.Skills, &ph.Certifications, &ph.Resources} {
				if *list == nil {
					*list = []string{}
				}
			}
		}
	}
}

// ChatReply 聊天助手的回答与后续建议
type ChatReply struct {
	Response    string   `json:"response"`
	Suggestions []string `json:"suggestions"`
}

var chatSchema = &llm.Schema{
	Name:        "career-chat",
	Description: "Career guidance answer with follow-up suggestions",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"response":    map[string]any{"type": "string", "minLength": 1},
			"suggestions": stringList,
		},
		"required": []any{"response"},
	},
}

const chatSystemPrompt = "You are a helpful career guidance assistant for the CareerX platform. " +
	"You help students with career questions, assessments, roadmaps and career planning. " +
	"If a question is not career related, politely redirect to career topics. " +
	"Always answer with a single JSON document that matches the requested structure."

// Chat background 为考生档案等上下文，可为空
func (s *AIService) Chat(ctx context.Context, message, background string) (*ChatReply, error) {
	var b strings.Builder
	if background != "" {
		b.WriteString("Context about the student:\n")
		b.WriteString(background)
		b.WriteString("\n\n")
	}
	b.WriteString("User question: ")
	b.WriteString(message)
	b.WriteString("\n\nGive a helpful, concise and professional response plus up to three follow-up suggestions.")

	var reply ChatReply
	err := s.call(ctx, opChat, llm.Request{
		System:      chatSystemPrompt,
		Prompt:      b.String(),
		Schema:      chatSchema,
		MaxTokens:   2048,
		Temperature: 0.6,
	}, &reply)
	if err != nil {
		return nil, err
	}
	if reply.Suggestions == nil {
		reply.Suggestions = []string{}
	}
	return &reply, nil
}
