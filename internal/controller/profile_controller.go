package controller

import (
	"careerx_backend/internal/service"
	"careerx_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProfileController struct {
	ProfileService *service.ProfileService
}

func NewProfileController(profileService *service.ProfileService) *ProfileController {
	return &ProfileController{ProfileService: profileService}
}

// GetProfile godoc
// @Summary 获取当前考生档案
// @Tags 档案
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.Profile}
// @Failure 404 {object} util.Response "档案不存在"
// @Router /api/profile [get]
func (c *ProfileController) GetProfile(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	profile, err := c.ProfileService.Get(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}

// CreateProfile godoc
// @Summary 创建考生档案
// @Tags 档案
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.ProfileInput true "档案信息"
// @Success 201 {object} util.Response{data=model.Profile}
// @Failure 400 {object} util.Response "参数校验失败"
// @Failure 409 {object} util.Response "档案已存在"
// @Router /api/profile [post]
func (c *ProfileController) CreateProfile(ctx *gin.Context) {
	var req service.ProfileInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := util.GetUserFromContext(ctx)
	profile, err := c.ProfileService.Create(ctx.Request.Context(), user.UserID, &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, profile)
}

// UpdateProfile godoc
// @Summary 更新考生档案
// @Tags 档案
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.ProfileInput true "档案信息"
// @Success 200 {object} util.Response{data=model.Profile}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/profile [put]
func (c *ProfileController) UpdateProfile(ctx *gin.Context) {
	var req service.ProfileInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := util.GetUserFromContext(ctx)
	profile, err := c.ProfileService.Update(ctx.Request.Context(), user.UserID, &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}

// DeleteProfile godoc
// @Summary 删除考生档案
// @Tags 档案
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/profile [delete]
func (c *ProfileController) DeleteProfile(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if err := c.ProfileService.Delete(ctx.Request.Context(), user.UserID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// UploadPicture godoc
// @Summary 上传头像
// @Description 支持 jpg/jpeg/png/gif，最大 5MB
// @Tags 档案
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   file formData file true "头像文件"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response
// @Router /api/profile/picture [post]
func (c *ProfileController) UploadPicture(ctx *gin.Context) {
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
	url, err := c.ProfileService.UploadPicture(ctx.Request.Context(), user.UserID, fh.Filename, fh.Size, file)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"url": url})
}
