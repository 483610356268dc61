package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/polyclinic/appointment-core/internal/auth"
	"github.com/polyclinic/appointment-core/internal/booking"
	"github.com/polyclinic/appointment-core/internal/cache"
	"github.com/polyclinic/appointment-core/internal/config"
	"github.com/polyclinic/appointment-core/internal/db"
	"github.com/polyclinic/appointment-core/internal/handler"
	"github.com/polyclinic/appointment-core/internal/model"
	"github.com/polyclinic/appointment-core/internal/repository"
)

func main() {
	// 1. Конфиг: config.yaml + env.
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	var log *zap.Logger
	if cfg.IsProduction() {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// 2. Подключаемся к БД через GORM.
	gormDB, err := db.NewGormDB(cfg)
	if err != nil {
		log.Fatal("init db", zap.Error(err))
	}

	// 3. Миграции моделей и уникальный индекс занятых слотов.
	if err := model.AutoMigrate(gormDB); err != nil {
		log.Fatal("auto migrate", zap.Error(err))
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("sql DB", zap.Error(err))
	}
	defer sqlDB.Close()

	// 4. Кэш слотов: Redis, либо процессный при DISABLE_REDIS.
	var availability cache.Availability
	if cfg.DisableRedis {
		availability = cache.NewMemoryAvailability()
	} else {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Fatal("redis ping", zap.Error(err))
		}
		availability = cache.NewRedisAvailability(client, time.Duration(cfg.CacheTTLSec)*time.Second, log)
	}

	// 5. Репозитории и сервис бронирования.
	apptRepo := repository.NewGormAppointmentRepository(gormDB)
	schedRepo := repository.NewGormScheduleRepository(gormDB)
	docRepo := repository.NewGormDoctorRepository(gormDB)
	bookingSvc := booking.NewService(gormDB, apptRepo, schedRepo, docRepo, availability, log)

	// 6. HTTP API.
	authMgr := auth.NewManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)
	router := handler.NewRouter(
		handler.NewAppointmentHandler(bookingSvc, log),
		handler.NewScheduleHandler(schedRepo, docRepo, availability, log),
		authMgr,
		log,
		cfg.AllowedOrigins,
	)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: router,
	}

	// 7. Запускаем сервер в горутине.
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http serve", zap.Error(err))
		}
	}()

	// 8. Грейсфул-шатдаун по сигналу.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
