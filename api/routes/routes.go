package routes

import (
	"net/http"

	"github.com/ArowuTest/rafflywin-backend/internal/handlers"
	"github.com/ArowuTest/rafflywin-backend/internal/middleware"
	"github.com/ArowuTest/rafflywin-backend/internal/models"
	"github.com/gin-gonic/gin"
)

// HandlerDependencies holds the handlers and settings the router needs
type HandlerDependencies struct {
	AuthHandler         *handlers.AuthHandler
	RaffleHandler       *handlers.RaffleHandler
	TicketHandler       *handlers.TicketHandler
	NotificationHandler *handlers.NotificationHandler
	DrawHandler         *handlers.DrawHandler
	FollowHandler       *handlers.FollowHandler
	Tokens              middleware.TokenParser
	AllowedOrigins      []string
}

// SetupRouter sets up the router
func SetupRouter(deps HandlerDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(deps.AllowedOrigins))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())

	authRequired := middleware.JWTAuthMiddleware(deps.Tokens)
	creatorOnly := middleware.RequireRole(models.RoleCreator, models.RoleAdmin)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		auth := public.Group("/auth")
		{
			auth.POST("/register", deps.AuthHandler.Register)
			auth.POST("/login", deps.AuthHandler.Login)
			auth.GET("/me", authRequired, deps.AuthHandler.Me)
		}

		public.GET("/raffles", deps.RaffleHandler.ListRaffles)
		public.GET("/raffles/:id", deps.RaffleHandler.GetRaffle)
	}

	// Protected routes
	protected := router.Group("/api/v1")
	protected.Use(authRequired)
	{
		raffles := protected.Group("/raffles")
		{
			raffles.POST("", creatorOnly, deps.RaffleHandler.CreateRaffle)
			raffles.GET("/availability", creatorOnly, deps.RaffleHandler.CheckAvailability)
			raffles.POST("/:id/cancel", adminOnly, deps.RaffleHandler.CancelRaffle)
		}

		tickets := protected.Group("/tickets")
		{
			tickets.POST("/purchase", deps.TicketHandler.Purchase)
			tickets.GET("/my-tickets", deps.TicketHandler.MyTickets)
			tickets.GET("/raffle/:id", deps.TicketHandler.RaffleTickets)
		}

		users := protected.Group("/users")
		{
			users.POST("/:id/follow", deps.FollowHandler.Follow)
			users.POST("/:id/unfollow", deps.FollowHandler.Unfollow)
		}

		notifications := protected.Group("/notifications")
		{
			notifications.GET("", deps.NotificationHandler.List)
			notifications.POST("/:id/read", deps.NotificationHandler.MarkRead)
		}

		admin := protected.Group("/admin", adminOnly)
		{
			admin.POST("/draw", deps.DrawHandler.RunDraw)
			admin.GET("/draws", deps.DrawHandler.ListDraws)
		}
	}

	return router
}
