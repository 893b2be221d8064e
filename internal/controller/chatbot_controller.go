package controller

import (
	"careerx_backend/internal/service"
	"careerx_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ChatbotController struct {
	ChatbotService *service.ChatbotService
}

func NewChatbotController(chatbotService *service.ChatbotService) *ChatbotController {
	return &ChatbotController{ChatbotService: chatbotService}
}

// Chat godoc
// @Summary 职业咨询聊天助手
// @Description 结合考生档案和最近一次测评建议回答职业相关问题
// @Tags 聊天助手
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.ChatRequest true "问题内容"
// @Success 200 {object} util.Response{data=service.ChatReply}
// @Failure 400 {object} util.Response
// @Failure 502 {object} util.Response "生成失败"
// @Failure 503 {object} util.Response "生成超时"
// @Router /api/chatbot/chat [post]
func (c *ChatbotController) Chat(ctx *gin.Context) {
	var req service.ChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := util.GetUserFromContext(ctx)
	reply, err := c.ChatbotService.Chat(ctx.Request.Context(), user.UserID, req.Message)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, reply)
}
