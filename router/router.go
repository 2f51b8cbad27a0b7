package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qr-table-order/controllers"
	"github.com/yeremiapane/qr-table-order/kds"
	"github.com/yeremiapane/qr-table-order/middlewares"
	"github.com/yeremiapane/qr-table-order/models"
	"github.com/yeremiapane/qr-table-order/services"
)

// Deps is everything the route table needs.
type Deps struct {
	Sessions *services.SessionService
	Orders   *services.OrderService
	Requests *services.RequestService
	Gate     *services.DeviceGate
	Tables   *services.TableService
	Users    *services.UserService
	Settings *services.SettingsService
	Rewards  *services.RewardService
	Hub      *kds.Hub

	CookieSecure     bool
	CORSOrigins      []string
	CountryHeader    string
	AllowedCountries []string
	LoginRatePerMin  int
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()

	r.Use(middlewares.RequestID())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(gin.Recovery())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.CORSOrigins))
	r.Use(middlewares.GeoRestriction(d.CountryHeader, d.AllowedCountries))

	sessionController := controllers.NewSessionController(d.Sessions, d.CookieSecure)
	orderController := controllers.NewOrderController(d.Orders, d.Sessions)
	requestController := controllers.NewRequestController(d.Requests)
	deviceController := controllers.NewDeviceController(d.Gate)
	tableController := controllers.NewTableController(d.Tables, d.Sessions)
	userController := controllers.NewUserController(d.Users, d.CookieSecure)
	adminController := controllers.NewAdminController(d.Tables, d.Settings, d.Rewards)
	kdsController := controllers.NewKDSController(d.Hub, d.CORSOrigins)

	loginLimiter := middlewares.NewRateLimiter(d.LoginRatePerMin)
	staffLimiter := middlewares.NewRateLimiter(d.LoginRatePerMin)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Customer side: the table_session cookie is decoded here, and
	// blocked devices are stopped before reaching any handler.
	public := r.Group("/")
	public.Use(middlewares.TableSessionMiddleware(d.Gate))
	{
		public.POST("/session/login", loginLimiter.RateLimit(), sessionController.Login)
		public.GET("/session/login", sessionController.Current)
		public.POST("/session/logout", sessionController.Logout)

		public.POST("/orders", orderController.PlaceOrder)
		public.GET("/orders/mine", orderController.MyOrders)
		public.POST("/requests", requestController.CreateRequest)
		public.GET("/settings", adminController.GetSettings)
	}

	r.POST("/auth/login", staffLimiter.RateLimit(), userController.Login)
	r.POST("/auth/logout", userController.Logout)
	r.GET("/ws", middlewares.WebSocketAuthMiddleware(d.Users), kdsController.Connect)

	staff := r.Group("/")
	staff.Use(middlewares.AuthMiddleware(d.Users))
	{
		staff.GET("/auth/me", userController.GetProfile)

		staff.GET("/orders", orderController.ListOrders)
		staff.GET("/orders/:id", orderController.GetOrder)
		staff.PUT("/orders", orderController.UpdateOrder)

		staff.GET("/requests", requestController.ListRequests)
		staff.PATCH("/requests", requestController.ResolveRequest)
		staff.GET("/requests/:id/audio", requestController.RequestAudio)
	}

	floor := []models.Role{models.RoleAdmin, models.RoleStaff, models.RoleCounter}

	admin := staff.Group("/admin")
	{
		admin.GET("/tables", middlewares.RequireRoles(floor...), tableController.GetAllTables)
		admin.GET("/tables/:id", middlewares.RequireRoles(floor...), tableController.GetTable)
		admin.POST("/tables/:id/open", middlewares.RequireRoles(floor...), tableController.OpenTable)
		admin.POST("/tables/:id/close", middlewares.RequireRoles(floor...), tableController.CloseTable)
		admin.POST("/tables", middlewares.RequireRoles(models.RoleAdmin), tableController.CreateTable)
		admin.DELETE("/tables/:id", middlewares.RequireRoles(models.RoleAdmin), tableController.DeleteTable)

		admin.GET("/rewards/:deviceId", middlewares.RequireRoles(models.RoleAdmin, models.RoleCounter), adminController.GetDevicePoints)
	}

	adminOnly := admin.Group("/")
	adminOnly.Use(middlewares.RequireRoles(models.RoleAdmin))
	{
		adminOnly.GET("/devices", deviceController.ListBlocked)
		adminOnly.POST("/devices", deviceController.Manage)

		adminOnly.GET("/users", userController.GetAllUsers)
		adminOnly.POST("/users", userController.CreateUser)
		adminOnly.PUT("/users/:id", userController.UpdateUser)
		adminOnly.POST("/users/:id/logout", userController.ForceLogout)

		adminOnly.PUT("/settings", adminController.UpdateSettings)
		adminOnly.GET("/dashboard/stats", adminController.GetDashboardStats)
	}

	return r
}
