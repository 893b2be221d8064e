package controller

import (
	"careerx_backend/internal/service"
	"careerx_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type PaymentController struct {
	PaymentService *service.PaymentService
}

func NewPaymentController(paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{PaymentService: paymentService}
}

// CreateOrderRequest 不传 amount 时使用路线图标价
type CreateOrderRequest struct {
	Amount *float64 `json:"amount"`
}

// CreateOrder godoc
// @Summary 创建支付订单
// @Tags 支付
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body CreateOrderRequest false "金额（主币种单位）"
// @Success 201 {object} util.Response{data=service.OrderResult}
// @Failure 400 {object} util.Response
// @Failure 502 {object} util.Response "支付网关错误"
// @Router /api/payments/orders [post]
func (c *PaymentController) CreateOrder(ctx *gin.Context) {
	var req CreateOrderRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	amount := c.PaymentService.Cfg.RoadmapPrice
	if req.Amount != nil {
		amount = *req.Amount
	}

	user := util.GetUserFromContext(ctx)
	res, err := c.PaymentService.CreateOrder(ctx.Request.Context(), user.UserID, amount)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, res)
}

// VerifyPayment godoc
// @Summary 校验支付签名
// @Tags 支付
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.VerifyInput true "网关回调参数"
// @Success 200 {object} util.Response{data=model.Payment}
// @Failure 400 {object} util.Response "签名无效"
// @Failure 404 {object} util.Response
// @Router /api/payments/verify [post]
func (c *PaymentController) VerifyPayment(ctx *gin.Context) {
	var req service.VerifyInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := util.GetUserFromContext(ctx)
	payment, err := c.PaymentService.Verify(ctx.Request.Context(), user.UserID, &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, payment)
}

// GetHistory godoc
// @Summary 支付记录
// @Tags 支付
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Payment}
// @Router /api/payments/history [get]
func (c *PaymentController) GetHistory(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	payments, err := c.PaymentService.History(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, payments)
}

// GetReceipt godoc
// @Summary 支付收据
// @Tags 支付
// @Produce  html
// @Security ApiKeyAuth
// @Param   id path int true "支付ID"
// @Success 200 {string} string "HTML 收据"
// @Failure 404 {object} util.Response
// @Router /api/payments/{id}/receipt [get]
func (c *PaymentController) GetReceipt(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid payment id")
		return
	}

	user := util.GetUserFromContext(ctx)
	body, err := c.PaymentService.Receipt(ctx.Request.Context(), user.UserID, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	ctx.Data(http.StatusOK, util.MimeHTML, body)
}
