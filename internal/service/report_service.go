package service

import (
	"bytes"
	"careerx_backend/internal/model"
	"careerx_backend/internal/repository"
	"careerx_backend/internal/util"
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/go-pdf/fpdf"
)

// PDFReportRenderer 使用 fpdf 渲染测评报告
type PDFReportRenderer struct{}

func (PDFReportRenderer) Render(user *model.User, session *model.AssessmentSession, questions []model.McqQuestion) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("CareerX Assessment Report", true)
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(47, 65, 86)
	pdf.CellFormat(0, 10, "Career Assessment Report", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(0, 0, 0)
	pdf.Cell(0, 7, tr("Student: "+user.Name))
	pdf.Ln(7)
	if session.CompletedAt != nil {
		pdf.Cell(0, 7, "Completed: "+session.CompletedAt.Format(util.TimeFormat))
		pdf.Ln(7)
	}

	correct, total := tally(questions, session.Answers)
	score := 0.0
	if session.Score != nil {
		score = *session.Score
	}
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 9, fmt.Sprintf("Score: %.1f%% (%d of %d correct)", score, correct, total))
	pdf.Ln(11)

	reportCategoryTable(pdf, questions, session.Answers)

	if rec := session.Recommendation; rec != nil {
		section(pdf, "Recommended Career")
		paragraph(pdf, tr, fmt.Sprintf("%s (skill score %d/100)", rec.RecommendedCareer, rec.SkillScore))
		bulletList(pdf, tr, "Strengths", rec.Strengths)
		bulletList(pdf, tr, "Areas to Improve", rec.Weaknesses)
		section(pdf, "Career Roadmap")
		paragraph(pdf, tr, "Next 6 months: "+rec.CareerRoadmap.ShortTerm)
		paragraph(pdf, tr, "1-2 years: "+rec.CareerRoadmap.MediumTerm)
		paragraph(pdf, tr, "5 years: "+rec.CareerRoadmap.LongTerm)
		bulletList(pdf, tr, "Suggested Courses", rec.SuggestedCourses)
		bulletList(pdf, tr, "Suggested Colleges", rec.SuggestedColleges)
	} else {
		section(pdf, "Recommendation")
		paragraph(pdf, tr, "Your personalised recommendation is still being prepared.")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func tally(questions []model.McqQuestion, answers []int) (correct, total int) {
	for i, q := range questions {
		if i < len(answers) && answers[i] == q.CorrectOptionIndex {
			correct++
		}
	}
	return correct, len(questions)
}

func reportCategoryTable(pdf *fpdf.Fpdf, questions []model.McqQuestion, answers []int) {
	type row struct{ correct, total int }
	rows := map[string]*row{}
	var order []string
	for i, q := range questions {
		r, ok := rows[q.Category]
		if !ok {
			r = &row{}
			rows[q.Category] = r
			order = append(order, q.Category)
		}
		r.total++
		if i < len(answers) && answers[i] == q.CorrectOptionIndex {
			r.correct++
		}
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 236, 242)
	pdf.CellFormat(110, 8, "Category", "1", 0, "L", true, 0, "")
	pdf.CellFormat(35, 8, "Correct", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 8, "Questions", "1", 1, "C", true, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for _, c := range order {
		pdf.CellFormat(110, 8, c, "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 8, fmt.Sprint(rows[c].correct), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 8, fmt.Sprint(rows[c].total), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(4)
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(47, 65, 86)
	pdf.Cell(0, 8, title)
	pdf.Ln(8)
	pdf.SetTextColor(0, 0, 0)
}

func paragraph(pdf *fpdf.Fpdf, tr func(string) string, text string) {
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, tr(text), "", "L", false)
}

func bulletList(pdf *fpdf.Fpdf, tr func(string) string, title string, items []string) {
	if len(items) == 0 {
		return
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 7, title)
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 11)
	for _, it := range items {
		pdf.MultiCell(0, 6, tr("- "+it), "", "L", false)
	}
}

// ReportService 渲染报告并邮件发送给考生
type ReportService struct {
	Renderer ReportRenderer
	Mailer   Mailer
	UserRepo *repository.UserRepository
	Repo     *repository.AssessmentRepository
}

func NewReportService(renderer ReportRenderer, mailer Mailer, userRepo *repository.UserRepository, repo *repository.AssessmentRepository) *ReportService {
	return &ReportService{Renderer: renderer, Mailer: mailer, UserRepo: userRepo, Repo: repo}
}

// Dispatch 发送成功后标记 report_sent
func (s *ReportService) Dispatch(ctx context.Context, session *model.AssessmentSession, questions []model.McqQuestion) error {
	user, err := s.UserRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	pdfBytes, err := s.Renderer.Render(user, session, questions)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	err = s.Mailer.Send(ctx, MailMessage{
		To:      user.Email,
		Subject: "Your CareerX Assessment Report",
		HTML:    reportEmailHTML(user, session),
		Attachments: []Attachment{{
			Filename:    fmt.Sprintf("careerx-report-%d.pdf", session.ID),
			ContentType: util.MimePDF,
			Data:        pdfBytes,
		}},
	})
	if err != nil {
		return err
	}
	return s.Repo.MarkReportSent(ctx, session.ID)
}

func reportEmailHTML(user *model.User, session *model.AssessmentSession) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p>", html.EscapeString(user.Name))
	b.WriteString("<p>Thank you for completing the CareerX assessment.")
	if session.Score != nil {
		fmt.Fprintf(&b, " You scored <strong>%.1f%%</strong>.", *session.Score)
	}
	b.WriteString("</p>")
	if rec := session.Recommendation; rec != nil {
		fmt.Fprintf(&b, "<p>Recommended career: <strong>%s</strong></p>", html.EscapeString(rec.RecommendedCareer))
	}
	b.WriteString("<p>Your detailed report is attached.</p><p>Team CareerX</p>")
	return b.String()
}
