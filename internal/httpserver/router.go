package httpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"storefront/internal/domain"
	"storefront/internal/service/checkout"
	productsvc "storefront/internal/service/product"
	usersvc "storefront/internal/service/user"
	vouchersvc "storefront/internal/service/voucher"
)

const userIDHeader = "X-User-ID"

type CheckoutService interface {
	CreateOrder(ctx context.Context, req checkout.Request) (*domain.Order, error)
}

type OrderService interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id, next string) (*domain.Order, error)
}

type ProductService interface {
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, in productsvc.CreateInput) (*domain.Product, error)
	UpdatePrice(ctx context.Context, id string, salePrice decimal.Decimal) error
}

type VoucherService interface {
	Get(ctx context.Context, code string) (*domain.Voucher, error)
	Create(ctx context.Context, in vouchersvc.CreateInput) (*domain.Voucher, error)
}

type CategoryService interface {
	List(ctx context.Context) ([]domain.Category, error)
	Upsert(ctx context.Context, c domain.Category) (*domain.Category, error)
}

type UserService interface {
	Register(ctx context.Context, in usersvc.RegisterInput) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
}

// Deps are the services the router dispatches to. All are required.
type Deps struct {
	CheckoutSvc CheckoutService
	OrderSvc    OrderService
	ProductSvc  ProductService
	VoucherSvc  VoucherService
	CategorySvc CategoryService
	UserSvc     UserService
}

func (d Deps) validate() error {
	switch {
	case d.CheckoutSvc == nil:
		return errors.New("checkout service required")
	case d.OrderSvc == nil:
		return errors.New("order service required")
	case d.ProductSvc == nil:
		return errors.New("product service required")
	case d.VoucherSvc == nil:
		return errors.New("voucher service required")
	case d.CategorySvc == nil:
		return errors.New("category service required")
	case d.UserSvc == nil:
		return errors.New("user service required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, probes []Probe, deps Deps, allowedOrigins []string) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.Use(corsMiddleware(allowedOrigins))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(probes))

	h := &handlers{deps: deps, logger: logger}

	api := router.Group("/api")
	api.POST("/orders", h.createOrder)
	api.GET("/orders/:id", h.getOrder)
	api.PATCH("/orders/:id/status", h.updateOrderStatus)
	api.POST("/users", h.registerUser)
	api.GET("/users/:userId", h.getUser)
	api.GET("/users/:userId/orders", h.listUserOrders)
	api.POST("/auth/login", h.login)
	api.GET("/products/:id", h.getProduct)
	api.GET("/categories", h.listCategories)
	api.GET("/vouchers/:code", h.getVoucher)

	admin := api.Group("/admin", adminOnly(deps.UserSvc, logger))
	admin.POST("/vouchers", h.createVoucher)
	admin.POST("/products", h.createProduct)
	admin.PATCH("/products/:id/price", h.updateProductPrice)
	admin.PUT("/categories", h.upsertCategory)

	return router, nil
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", userIDHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowedOrigins
	}
	return cors.New(cfg)
}

// adminOnly admits requests whose X-User-ID names an active ADMIN account.
func adminOnly(users UserService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(userIDHeader)
		if id == "" {
			abortWithCode(c, http.StatusUnauthorized, "Unauthorized", "missing "+userIDHeader+" header")
			return
		}
		u, err := users.Get(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				abortWithCode(c, http.StatusUnauthorized, "Unauthorized", "unknown user")
				return
			}
			logger.Printf("admin auth: lookup user_id=%s error=%v", id, err)
			abortWithCode(c, http.StatusInternalServerError, "InternalError", "internal error")
			return
		}
		if u.Role != domain.RoleAdmin || !u.Active {
			abortWithCode(c, http.StatusForbidden, "Forbidden", "admin role required")
			return
		}
		c.Next()
	}
}
