package main

import (
	"context"
	"fmt"
	"log"
	"os"

	_ "club_access/docs"
	"club_access/internal/auth"
	"club_access/internal/handlers"
	"club_access/internal/models"
	"club_access/internal/storage"
	"club_access/internal/tasks"
	"club_access/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @Title						Контроль доступа клуба по QR-пропускам
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
// @securityDefinitions.apikey	ScannerKey
// @in							header
// @name						X-Scanner-Key
func main() {
	key := os.Getenv("ENV_CHEK")
	if key == "" {
		fmt.Println("Подключение к .env")
		err := godotenv.Load()
		if err != nil {
			log.Fatal("Ошибка получения .env")
		}
	}

	storage.ConnectDatabase()

	if err := storage.DB.AutoMigrate(&models.User{}, &models.Member{}, &models.CheckinEvent{}); err != nil {
		log.Fatal("Ошибка при миграции... ", err.Error())
	}

	storage.InitRedis()

	tasks.InitScheduler()

	hub := ws.InitHub()
	go hub.Run()
	go hub.ListenEvents(context.Background())

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Scanner-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", handlers.Login)
		authGroup.POST("/register", handlers.Register)
		authGroup.POST("/refresh", handlers.RefreshToken)
	}

	checkinGroup := r.Group("/api/checkin")
	{
		checkinGroup.POST("/scan", auth.ScanAuthMiddleware(), handlers.ScanHandler)
		checkinGroup.GET("/history", auth.AuthMiddleware(), handlers.HistoryHandler)
		checkinGroup.GET("/stats", auth.AuthMiddleware(), handlers.StatsHandler)
	}

	members := r.Group("/api/members", auth.AuthMiddleware())
	{
		members.POST("", handlers.CreateMemberHandler)
		members.GET("", handlers.ListMembersHandler)
		members.POST("/:id/block", handlers.BlockMemberHandler)
		members.POST("/:id/unblock", handlers.UnblockMemberHandler)
		members.POST("/:id/qr", handlers.RotateTokenHandler)
		members.POST("/:id/confirm-email", handlers.ConfirmEmailHandler)
	}

	r.GET("/api/dashboard/ws", ws.DashboardWebSocketHandler)

	if err := r.Run(":8080"); err != nil {
		log.Fatal("Ошибка запуска сервера...", err.Error())
	}
}
