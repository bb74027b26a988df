package main

import (
	"log"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	infraauth "app/internal/infra/auth"
	"app/internal/infra/db"
	infrarepo "app/internal/infra/repository"
	"app/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func main() {
	// .envがあれば読む（無くてもよい）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	gormDB, err := db.Connect()
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}

	// マイグレーション
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
		&model.TrackingEvent{},
		&model.Review{},
		&model.Cart{},
		&model.CartItem{},
		&model.AuditLog{},
		&model.InventoryAdjustment{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// repository
	userRepo := infrarepo.NewUserGormRepository(gormDB)
	productRepo := infrarepo.NewProductGormRepository(gormDB)
	inventoryRepo := infrarepo.NewInventoryGormRepository(gormDB)
	cartRepo := infrarepo.NewCartGormRepository(gormDB)
	cartItemRepo := infrarepo.NewCartItemGormRepository(gormDB)
	auditRepo := infrarepo.NewAuditLogGormRepository(gormDB)
	txManager := infrarepo.NewTxManagerGorm(gormDB)

	// usecase
	clock := systemClock{}
	hasher := usecase.NewBcryptPasswordHasher(12)
	verifier := usecase.NewBcryptPasswordVerifier()
	issuer := infraauth.NewJWTIssuer(cfg.JWTSecret, 24*time.Hour)

	authUC := usecase.NewAuthUsecase(userRepo, hasher, verifier, issuer, clock)
	productUC := usecase.NewProductUsecase(productRepo, inventoryRepo, auditRepo, clock)
	cartUC := usecase.NewCartUsecase(cartRepo, cartItemRepo, productRepo, clock)
	orderUC := usecase.NewOrderUsecase(
		txManager,
		userRepo,
		verifier,
		clock,
		time.Duration(cfg.CancelWindowHours)*time.Hour,
	)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager, auditRepo, clock, cfg.StrictTracking)
	reviewUC := usecase.NewReviewUsecase(txManager, userRepo, clock)

	// handler
	e := echo.New()
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	handler.NewAuthHandler(authUC).RegisterRoutes(e)
	handler.NewProductHandler(productUC).RegisterRoutes(e)
	handler.NewReviewHandler(reviewUC).RegisterRoutes(e, cfg, userRepo)
	handler.NewCartHandler(cartUC).RegisterRoutes(e, cfg, userRepo)
	handler.NewOrderHandler(orderUC).RegisterRoutes(e, cfg, userRepo)
	handler.NewAdminProductHandler(productUC).RegisterRoutes(e, cfg, userRepo)
	handler.NewAdminOrderHandler(adminOrderUC).RegisterRoutes(e, cfg, userRepo)
	handler.NewAdminUserHandler(authUC).RegisterRoutes(e, cfg, userRepo)

	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
