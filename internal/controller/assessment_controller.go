package controller

import (
	"careerx_backend/internal/service"
	"careerx_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssessmentController struct {
	AssessmentService *service.AssessmentService
}

func NewAssessmentController(assessmentService *service.AssessmentService) *AssessmentController {
	return &AssessmentController{AssessmentService: assessmentService}
}

// CheckEligibility godoc
// @Summary 测评资格
// @Description 返回 no_profile / eligible / in_progress / completed
// @Tags 测评
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.Eligibility}
// @Router /api/assessments/eligibility [get]
func (c *AssessmentController) CheckEligibility(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	elig, err := c.AssessmentService.CheckEligibility(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, elig)
}

// StartAssessment godoc
// @Summary 开始或继续测评
// @Description 已有进行中的测评时直接返回，不重新出题
// @Tags 测评
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.StartResult}
// @Failure 403 {object} util.Response "未填写档案或已完成测评"
// @Failure 502 {object} util.Response "出题失败"
// @Failure 503 {object} util.Response "出题超时"
// @Router /api/assessments/start [post]
func (c *AssessmentController) StartAssessment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	res, err := c.AssessmentService.Start(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// UploadWebcam godoc
// @Summary 上传摄像头抓拍
// @Description 返回的 ref 在提交时作为 webcamRef
// @Tags 测评
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   file formData file true "抓拍文件"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response
// @Router /api/assessments/webcam [post]
func (c *AssessmentController) UploadWebcam(ctx *gin.Context) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "File is required")
		return
	}
	file, err := fh.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	user := util.GetUserFromContext(ctx)
	ref, err := c.AssessmentService.UploadWebcam(ctx.Request.Context(), user.UserID, fh.Filename, fh.Size, file)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"ref": ref})
}

// SubmitAssessment godoc
// @Summary 提交测评
// @Description answers 按题目顺序，-1 表示未作答
// @Tags 测评
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "会话ID"
// @Param   body body service.SubmitInput true "作答"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response "已提交"
// @Router /api/assessments/{id}/submit [post]
func (c *AssessmentController) SubmitAssessment(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid session id")
		return
	}

	var req service.SubmitInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := util.GetUserFromContext(ctx)
	res, err := c.AssessmentService.Submit(ctx.Request.Context(), id, user.UserID, &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// GetReport godoc
// @Summary 测评报告
// @Tags 测评
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "会话ID"
// @Success 200 {object} util.Response{data=service.ReportResult}
// @Failure 404 {object} util.Response
// @Router /api/assessments/{id}/report [get]
func (c *AssessmentController) GetReport(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid session id")
		return
	}

	user := util.GetUserFromContext(ctx)
	res, err := c.AssessmentService.Report(ctx.Request.Context(), id, user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// GetHistory godoc
// @Summary 测评历史
// @Tags 测评
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.AssessmentSession}
// @Router /api/assessments/history [get]
func (c *AssessmentController) GetHistory(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	sessions, err := c.AssessmentService.History(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, sessions)
}

// ListSessions godoc
// @Summary 管理员查看测评会话
// @Tags 管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Param   completed query bool false "是否已完成"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Failure 403 {object} util.Response
// @Router /api/admin/assessments/sessions [get]
func (c *AssessmentController) ListSessions(ctx *gin.Context) {
	page, limit := util.ParsePage(ctx.Query("page"), ctx.Query("limit"))
	completed := util.ParseOptionalBool(ctx.Query("completed"))

	sessions, total, err := c.AssessmentService.ListSessions(ctx.Request.Context(), page, limit, completed)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: sessions, Total: total, Page: page, Limit: limit})
}
