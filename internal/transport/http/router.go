package http

import (
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/dabada911/hakibavuong/internal/authz"
	"github.com/dabada911/hakibavuong/internal/events"
	"github.com/dabada911/hakibavuong/internal/handlers"
	authmw "github.com/dabada911/hakibavuong/internal/middleware/auth"
	"github.com/dabada911/hakibavuong/internal/middleware/ratelimit"
	"github.com/dabada911/hakibavuong/internal/models"
	"github.com/dabada911/hakibavuong/internal/otp"
	"github.com/dabada911/hakibavuong/internal/token"
)

// Deps carries everything the route tree needs.
type Deps struct {
	DB        *gorm.DB
	Tokens    *token.Issuer
	OTP       *otp.Service
	Producer  *events.Producer
	ES        *elasticsearch.Client
	ImagesDir string
}

// Register wires every route group onto e.
func Register(e *echo.Echo, d Deps) {
	az := &authz.Service{DB: d.DB}
	mw := &authmw.Middleware{Tokens: d.Tokens}
	authLimiter := ratelimit.NewPerIP(rate.Limit(1), 5)

	authH := &handlers.AuthHandler{DB: d.DB, Tokens: d.Tokens, OTP: d.OTP, Producer: d.Producer}
	customerAuthH := &handlers.CustomerAuthHandler{DB: d.DB, Tokens: d.Tokens, OTP: d.OTP, Producer: d.Producer}
	adminH := &handlers.AdminHandler{DB: d.DB}
	brandH := &handlers.BrandHandler{DB: d.DB, Authz: az, ImagesDir: d.ImagesDir}
	productH := &handlers.ProductHandler{DB: d.DB, ES: d.ES, Authz: az, ImagesDir: d.ImagesDir}
	inventoryH := &handlers.InventoryHandler{DB: d.DB, Authz: az}
	cartH := &handlers.CartHandler{DB: d.DB, Producer: d.Producer}
	orderH := &handlers.OrderHandler{DB: d.DB, Producer: d.Producer}
	orderMgmtH := &handlers.OrderManagementHandler{DB: d.DB, Authz: az, Producer: d.Producer}
	addressH := &handlers.CustomerAddressHandler{DB: d.DB}
	profileH := &handlers.ProfileHandler{DB: d.DB, OTP: d.OTP}
	revenueH := &handlers.RevenueHandler{DB: d.DB, Authz: az}
	staffH := &handlers.StaffApprovalHandler{DB: d.DB}
	permissionH := &handlers.PermissionHandler{DB: d.DB}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.Static("/images", d.ImagesDir)

	api := e.Group("/api")

	auth := api.Group("/auth", authLimiter.Middleware)
	auth.POST("/register", authH.Register)
	auth.POST("/verify-email", authH.VerifyEmail)
	auth.POST("/login", authH.Login)
	auth.POST("/verify-2fa", authH.Verify2FA)
	auth.POST("/forgot-password", authH.ForgotPassword)
	auth.POST("/reset-password", authH.ResetPassword)

	customerAuth := api.Group("/auth/customer", authLimiter.Middleware)
	customerAuth.POST("/register", customerAuthH.Register)
	customerAuth.POST("/verify-email", customerAuthH.VerifyEmail)
	customerAuth.POST("/login", customerAuthH.Login)
	customerAuth.POST("/verify-2fa", customerAuthH.Verify2FA)
	customerAuth.POST("/forgot-password", customerAuthH.ForgotPassword)
	customerAuth.POST("/reset-password", customerAuthH.ResetPassword)

	admin := api.Group("/admin", mw.RequireAuth, mw.RequireRoles(models.RoleAdmin))
	admin.GET("/users", adminH.ListUsers)
	admin.GET("/users/:id", adminH.GetUser)
	admin.PUT("/users/:id", adminH.UpdateUser)
	admin.DELETE("/users/:id", adminH.DeleteUser)
	admin.GET("/customers", adminH.ListCustomers)
	admin.GET("/customers/:id", adminH.GetCustomer)
	admin.PUT("/customers/:id", adminH.UpdateCustomer)
	admin.DELETE("/customers/:id", adminH.DeleteCustomer)

	brand := api.Group("/brand")
	brand.GET("", brandH.ListBrands)
	brand.GET("/:id", brandH.GetBrand)
	brand.POST("", brandH.CreateBrand, mw.RequireAuth, mw.RequireRoles(models.RoleAdmin, models.RoleStaff))
	brand.PUT("/:id", brandH.UpdateBrand, mw.RequireAuth, mw.RequireRoles(models.RoleAdmin, models.RoleStaff))
	brand.PUT("/:id/background", brandH.UpdateBackground, mw.RequireAuth, mw.RequireRoles(models.RoleAdmin, models.RoleStaff))
	brand.DELETE("/:id", brandH.DeleteBrand, mw.RequireAuth, mw.RequireRoles(models.RoleAdmin, models.RoleStaff))

	product := api.Group("/product")
	product.GET("", productH.ListProducts)
	product.GET("/search", productH.SearchProducts)
	product.GET("/mine", productH.ListMyProducts, mw.RequireAuth, mw.RequireRoles(models.RoleAdmin, models.RoleStaff))
	product.GET("/:id", productH.GetProduct)
	product.POST("", productH.CreateProduct, mw.RequireAuth, mw.RequireRoles(models.RoleAdmin, models.RoleStaff))
	product.PUT("/:id", productH.UpdateProduct, mw.RequireAuth, mw.RequireRoles(models.RoleAdmin, models.RoleStaff))
	product.DELETE("/:id", productH.DeleteProduct, mw.RequireAuth, mw.RequireRoles(models.RoleAdmin, models.RoleStaff))

	inventory := api.Group("/inventory")
	inventory.GET("/:productId", inventoryH.GetByProduct)
	inventory.PUT("/:productId", inventoryH.UpdateStock, mw.RequireAuth, mw.RequireRoles(models.RoleAdmin, models.RoleStaff))

	cart := api.Group("/cart", mw.RequireAuth, mw.RequireCustomer)
	cart.GET("", cartH.GetCart)
	cart.POST("/items", cartH.AddToCart)
	cart.PUT("/items/:cartItemId", cartH.UpdateCartItem)
	cart.DELETE("/items/:cartItemId", cartH.RemoveFromCart)

	order := api.Group("/order", mw.RequireAuth, mw.RequireCustomer)
	order.POST("/checkout", orderH.Checkout)
	order.GET("", orderH.ListMyOrders)
	order.GET("/:id", orderH.GetOrder)
	order.PUT("/:id/cancel", orderH.CancelOrder)

	orderMgmt := api.Group("/ordermanagement", mw.RequireAuth, mw.RequireRoles(models.RoleAdmin, models.RoleStaff))
	orderMgmt.GET("/brand/:brandId", orderMgmtH.ListByBrand)
	orderMgmt.GET("/:id", orderMgmtH.GetOrder)
	orderMgmt.PUT("/:id/pay", orderMgmtH.Pay)
	orderMgmt.PUT("/:id/status", orderMgmtH.UpdateStatus)
	orderMgmt.DELETE("/:id", orderMgmtH.Delete)

	address := api.Group("/customeraddress", mw.RequireAuth, mw.RequireCustomer)
	address.GET("", addressH.ListAddresses)
	address.POST("", addressH.CreateAddress)
	address.PUT("/:id", addressH.UpdateAddress)
	address.DELETE("/:id", addressH.DeleteAddress)

	profile := api.Group("/profile", mw.RequireAuth)
	profile.GET("", profileH.Info)
	profile.PUT("", profileH.Update)
	profile.POST("/request-reset-password", profileH.RequestPasswordReset)
	profile.POST("/reset-password", profileH.ResetPassword)

	revenue := api.Group("/revenue", mw.RequireAuth, mw.RequireRoles(models.RoleAdmin, models.RoleStaff))
	revenue.GET("/brand/:brandId", revenueH.GetBrandRevenue)

	staff := api.Group("/staff-approval", mw.RequireAuth, mw.RequireRoles(models.RoleAdmin, models.RoleStaff))
	staff.POST("/apply", staffH.Apply)
	staff.GET("/brand/:brandId/pending", staffH.PendingApplications)
	staff.GET("/brand/:brandId/approved", staffH.ApprovedStaff)
	staff.PUT("/:userId/approve", staffH.Approve)
	staff.PUT("/:userId/reject", staffH.Reject)
	staff.DELETE("/:userId", staffH.Remove)

	permission := api.Group("/permission", mw.RequireAuth, mw.RequireRoles(models.RoleAdmin, models.RoleStaff))
	permission.GET("/:userId", permissionH.GetPermission)
	permission.PUT("/:userId", permissionH.SetPermission)
	permission.DELETE("/:userId", permissionH.ClearPermission)
}
