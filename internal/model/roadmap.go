package model

type CareerOption struct {
	CareerName string `json:"careerName"`
	FitScore   int    `json:"fitScore"`
	WhyFit     string `json:"whyFit"`
}

type RoadmapPhase struct {
	PhaseName      string   `json:"phaseName"`
	Duration       string   `json:"duration"`
	Steps          []string `json:"steps"`
	Skills         []string `json:"skills"`
	Certifications []string `json:"certifications"`
	Resources      []string `json:"resources"`
}

type CareerRoadmap struct {
	CareerName       string         `json:"careerName"`
	Phases           []RoadmapPhase `json:"phases"`
	JobMarketOutlook string         `json:"jobMarketOutlook"`
	SalaryRange      string         `json:"salaryRange"`
	Timeline         string         `json:"timeline"`
}

// RoadmapPlan AI 生成的原始路线图
type RoadmapPlan struct {
	Top3Careers []CareerOption  `json:"top3Careers"`
	Roadmaps    []CareerRoadmap `json:"roadmaps"`
	HTMLContent string          `json:"htmlContent"`
}

// swagger:model Roadmap
type Roadmap struct {
	BaseModel
	UserID      uint            `gorm:"index;not null" json:"userId"`
	PaymentID   uint            `gorm:"uniqueIndex;not null" json:"paymentId"`
	SessionID   uint            `gorm:"not null" json:"sessionId"`
	TopCareers  []CareerOption  `gorm:"serializer:json;type:text" json:"topCareers"`
	Roadmaps    []CareerRoadmap `gorm:"serializer:json;type:longtext" json:"roadmaps"`
	HTMLContent string          `gorm:"type:longtext" json:"htmlContent"`
	EmailSent   bool            `gorm:"not null" json:"emailSent"`
}

func (Roadmap) TableName() string {
	return "roadmaps"
}
