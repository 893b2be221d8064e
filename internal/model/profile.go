package model

import (
	"time"
)

type Gender string

const (
	GenderMale           Gender = "male"
	GenderFemale         Gender = "female"
	GenderOther          Gender = "other"
	GenderPreferNotToSay Gender = "prefer_not_to_say"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderPreferNotToSay:
		return true
	}
	return false
}

type EducationLevel string

const (
	EducationSecondary       EducationLevel = "secondary"
	EducationHigherSecondary EducationLevel = "higher_secondary"
	EducationDiploma         EducationLevel = "diploma"
	EducationUndergraduate   EducationLevel = "undergraduate"
	EducationPostgraduate    EducationLevel = "postgraduate"
	EducationDoctorate       EducationLevel = "doctorate"
	EducationOther           EducationLevel = "other"
)

func (e EducationLevel) Valid() bool {
	switch e {
	case EducationSecondary, EducationHigherSecondary, EducationDiploma, EducationUndergraduate,
		EducationPostgraduate, EducationDoctorate, EducationOther:
		return true
	}
	return false
}

type Stream string

const (
	StreamScience    Stream = "science"
	StreamCommerce   Stream = "commerce"
	StreamArts       Stream = "arts"
	StreamVocational Stream = "vocational"
	StreamOther      Stream = "other"
)

// Valid 空值表示未填写
func (s Stream) Valid() bool {
	switch s {
	case "", StreamScience, StreamCommerce, StreamArts, StreamVocational, StreamOther:
		return true
	}
	return false
}

type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
	SkillExpert       SkillLevel = "expert"
)

func (s SkillLevel) Valid() bool {
	switch s {
	case "", SkillBeginner, SkillIntermediate, SkillAdvanced, SkillExpert:
		return true
	}
	return false
}

type Certification struct {
	CourseName string `json:"courseName"`
	Platform   string `json:"platform"`
	Year       int    `json:"year,omitempty"`
}

// swagger:model Profile
type Profile struct {
	BaseModel
	UserID uint `gorm:"uniqueIndex;not null" json:"userId"`

	// 基本信息
	DateOfBirth       time.Time `gorm:"not null" json:"dateOfBirth"`
	Gender            Gender    `gorm:"size:20;not null" json:"gender"`
	MobileNumber      string    `gorm:"size:10;not null" json:"mobileNumber"`
	PreferredLanguage string    `gorm:"size:50" json:"preferredLanguage"`

	// 学业信息
	EducationLevel  EducationLevel `gorm:"size:30;not null" json:"educationLevel"`
	BoardUniversity string         `gorm:"size:200" json:"boardUniversity"`
	Institution     string         `gorm:"size:200" json:"institution"`
	Stream          Stream         `gorm:"size:20" json:"stream"`
	CurrentYear     string         `gorm:"size:50" json:"currentYear"`
	PercentageCGPA  string         `gorm:"size:20" json:"percentageCgpa"`
	HasGapYear      bool           `gorm:"not null" json:"hasGapYear"`
	GapYears        int            `gorm:"not null" json:"gapYears"`
	GapReason       string         `gorm:"size:500" json:"gapReason"`

	// 兴趣
	AreasOfInterest        string   `gorm:"type:text" json:"areasOfInterest"`
	PreferredCareerDomains []string `gorm:"serializer:json;type:text" json:"preferredCareerDomains"`
	DreamJob               string   `gorm:"size:200" json:"dreamJob"`

	// 技能
	TechnicalSkills  []string   `gorm:"serializer:json;type:text" json:"technicalSkills"`
	SoftSkills       []string   `gorm:"serializer:json;type:text" json:"softSkills"`
	SkillLevel       SkillLevel `gorm:"size:20" json:"skillLevel"`
	Hobbies          string     `gorm:"type:text" json:"hobbies"`
	Extracurriculars string     `gorm:"type:text" json:"extracurriculars"`

	// 成就
	AcademicAchievements string          `gorm:"type:text" json:"academicAchievements"`
	Scholarships         string          `gorm:"type:text" json:"scholarships"`
	MeritCertificates    string          `gorm:"type:text" json:"meritCertificates"`
	Competitions         string          `gorm:"type:text" json:"competitions"`
	SportsCultural       string          `gorm:"type:text" json:"sportsCultural"`
	Certifications       []Certification `gorm:"serializer:json;type:text" json:"certifications"`
	AppearedCompetitive  bool            `gorm:"not null" json:"appearedCompetitiveExam"`
	CompetitiveExamName  string          `gorm:"size:100" json:"competitiveExamName"`
	CompetitiveExamScore string          `gorm:"size:50" json:"competitiveExamScore"`
	CompetitiveExamYear  int             `json:"competitiveExamYear,omitempty"`
}

func (Profile) TableName() string {
	return "profiles"
}
