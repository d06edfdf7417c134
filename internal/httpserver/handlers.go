package httpserver

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"storefront/internal/domain"
	"storefront/internal/service/checkout"
	productsvc "storefront/internal/service/product"
	usersvc "storefront/internal/service/user"
	vouchersvc "storefront/internal/service/voucher"
)

type handlers struct {
	deps   Deps
	logger *log.Logger
}

type createOrderRequest struct {
	RecipientName string          `json:"recipientName"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	PaymentMethod string          `json:"paymentMethod"`
	VoucherCode   string          `json:"voucherCode"`
	Items         []checkout.Item `json:"items"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type updatePriceRequest struct {
	SalePrice decimal.Decimal `json:"salePrice"`
}

func badJSON(c *gin.Context, err error) {
	abortWithCode(c, http.StatusBadRequest, "MalformedRequest", err.Error())
}

func (h *handlers) createOrder(c *gin.Context) {
	userID := strings.TrimSpace(c.GetHeader(userIDHeader))
	if userID == "" {
		abortWithCode(c, http.StatusUnauthorized, "Unauthorized", "missing "+userIDHeader+" header")
		return
	}
	var body createOrderRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badJSON(c, err)
		return
	}

	order, err := h.deps.CheckoutSvc.CreateOrder(c.Request.Context(), checkout.Request{
		UserID:        userID,
		RecipientName: body.RecipientName,
		Phone:         body.Phone,
		Address:       body.Address,
		PaymentMethod: body.PaymentMethod,
		VoucherCode:   body.VoucherCode,
		Items:         body.Items,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *handlers) getOrder(c *gin.Context) {
	order, err := h.deps.OrderSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *handlers) listUserOrders(c *gin.Context) {
	orders, err := h.deps.OrderSvc.ListByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "results": orders})
}

func (h *handlers) updateOrderStatus(c *gin.Context) {
	var body updateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badJSON(c, err)
		return
	}
	order, err := h.deps.OrderSvc.UpdateStatus(c.Request.Context(), c.Param("id"), body.Status)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *handlers) registerUser(c *gin.Context) {
	var body usersvc.RegisterInput
	if err := c.ShouldBindJSON(&body); err != nil {
		badJSON(c, err)
		return
	}
	u, err := h.deps.UserSvc.Register(c.Request.Context(), body)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *handlers) getUser(c *gin.Context) {
	u, err := h.deps.UserSvc.Get(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *handlers) login(c *gin.Context) {
	var body loginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badJSON(c, err)
		return
	}
	u, err := h.deps.UserSvc.Authenticate(c.Request.Context(), body.Email, body.Password)
	if errors.Is(err, usersvc.ErrInvalidCredentials) {
		abortWithCode(c, http.StatusUnauthorized, "InvalidCredentials", err.Error())
		return
	}
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *handlers) getProduct(c *gin.Context) {
	p, err := h.deps.ProductSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) createProduct(c *gin.Context) {
	var body productsvc.CreateInput
	if err := c.ShouldBindJSON(&body); err != nil {
		badJSON(c, err)
		return
	}
	p, err := h.deps.ProductSvc.Create(c.Request.Context(), body)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *handlers) updateProductPrice(c *gin.Context) {
	var body updatePriceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badJSON(c, err)
		return
	}
	if err := h.deps.ProductSvc.UpdatePrice(c.Request.Context(), c.Param("id"), body.SalePrice); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) listCategories(c *gin.Context) {
	cats, err := h.deps.CategorySvc.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(cats), "results": cats})
}

func (h *handlers) upsertCategory(c *gin.Context) {
	var body domain.Category
	if err := c.ShouldBindJSON(&body); err != nil {
		badJSON(c, err)
		return
	}
	cat, err := h.deps.CategorySvc.Upsert(c.Request.Context(), body)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *handlers) getVoucher(c *gin.Context) {
	v, err := h.deps.VoucherSvc.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *handlers) createVoucher(c *gin.Context) {
	var body vouchersvc.CreateInput
	if err := c.ShouldBindJSON(&body); err != nil {
		badJSON(c, err)
		return
	}
	v, err := h.deps.VoucherSvc.Create(c.Request.Context(), body)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}
