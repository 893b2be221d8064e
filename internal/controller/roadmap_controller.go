package controller

import (
	"careerx_backend/internal/service"
	"careerx_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type RoadmapController struct {
	RoadmapService *service.RoadmapService
}

func NewRoadmapController(roadmapService *service.RoadmapService) *RoadmapController {
	return &RoadmapController{RoadmapService: roadmapService}
}

type GenerateRoadmapRequest struct {
	PaymentID uint `json:"paymentId" binding:"required"`
}

// GenerateRoadmap godoc
// @Summary 生成职业路线图
// @Description 每笔已完成支付只生成一次，重复调用返回已生成的路线图
// @Tags 路线图
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body GenerateRoadmapRequest true "支付ID"
// @Success 200 {object} util.Response{data=model.Roadmap}
// @Failure 400 {object} util.Response "未支付或前置条件不满足"
// @Failure 502 {object} util.Response "生成失败"
// @Router /api/roadmaps [post]
func (c *RoadmapController) GenerateRoadmap(ctx *gin.Context) {
	var req GenerateRoadmapRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := util.GetUserFromContext(ctx)
	rm, err := c.RoadmapService.Generate(ctx.Request.Context(), user.UserID, req.PaymentID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, rm)
}

// ListRoadmaps godoc
// @Summary 我的路线图
// @Tags 路线图
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Roadmap}
// @Router /api/roadmaps [get]
func (c *RoadmapController) ListRoadmaps(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	list, err := c.RoadmapService.List(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// GetRoadmap godoc
// @Summary 路线图详情
// @Tags 路线图
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "路线图ID"
// @Success 200 {object} util.Response{data=model.Roadmap}
// @Failure 404 {object} util.Response
// @Router /api/roadmaps/{id} [get]
func (c *RoadmapController) GetRoadmap(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid roadmap id")
		return
	}

	user := util.GetUserFromContext(ctx)
	rm, err := c.RoadmapService.Get(ctx.Request.Context(), user.UserID, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, rm)
}
