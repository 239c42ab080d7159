package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Freeeeeet/lecture_booking/internal/cache"
	"github.com/Freeeeeet/lecture_booking/internal/config"
	"github.com/Freeeeeet/lecture_booking/internal/controller"
	"github.com/Freeeeeet/lecture_booking/internal/controller/handlers"
	"github.com/Freeeeeet/lecture_booking/internal/events"
	"github.com/Freeeeeet/lecture_booking/internal/render"
	"github.com/Freeeeeet/lecture_booking/internal/repository"
	"github.com/Freeeeeet/lecture_booking/internal/repository/base"
	"github.com/Freeeeeet/lecture_booking/internal/service"
	"github.com/Freeeeeet/lecture_booking/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// App держит инфраструктуру сервиса и HTTP сервер
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	pool    *pgxpool.Pool
	closers []func() error
	server  *echo.Echo
}

// New подключается к БД, применяет миграции и собирает сервисы
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	a.pool = pool
	a.closers = append(a.closers, func() error { pool.Close(); return nil })

	if err := pool.Ping(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("Connected to database")

	migrator, err := NewMigrator(pool, migrations.FS, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	err = migrator.Run(ctx)
	_ = migrator.Close()
	if err != nil {
		a.Close()
		return nil, err
	}

	var timesCache service.TimesCache
	if cfg.CacheEnabled() {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			// без кэша сервис работает, только медленнее
			logger.Warn("Redis unavailable, times cache disabled", zap.Error(err))
		} else {
			timesCache = cache.NewTimesCache(client, cfg.CacheTTL, logger)
			a.closers = append(a.closers, client.Close)
			logger.Info("Times cache enabled", zap.String("addr", cfg.RedisAddr))
		}
	}

	var publisher service.EventPublisher
	if cfg.EventsEnabled() {
		p, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, events disabled", zap.Error(err))
		} else {
			publisher = p
			a.closers = append(a.closers, p.Close)
			logger.Info("Event publishing enabled", zap.String("exchange", cfg.AMQPExchange))
		}
	}

	db := base.NewRepository(pool)
	locks := repository.NewLockRepository(db)
	lectureRepo := repository.NewLectureRepository(db)
	userRepo := repository.NewUserRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	windowRepo := repository.NewWindowRepository(db)
	bookingRepo := repository.NewBookingRepository(db)

	teacherSet := service.NewTeacherSetService(db, lectureRepo, userRepo, assignmentRepo, logger)
	availability := service.NewAvailabilityService(db, locks, lectureRepo, userRepo, windowRepo, bookingRepo,
		teacherSet, timesCache, publisher, logger)
	bookings := service.NewBookingService(db, locks, lectureRepo, windowRepo, bookingRepo,
		teacherSet, timesCache, publisher, logger)
	lectures := service.NewLectureService(lectureRepo, userRepo, timesCache, logger)

	h := handlers.NewHandlers(availability, bookings, lectures, teacherSet, render.WeekImage, logger)
	a.server = controller.NewRouter(h, cfg.JWTSecret, logger)

	return a, nil
}

// Run обслуживает HTTP до отмены ctx, затем плавно останавливает сервер
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", zap.String("addr", a.cfg.HTTPAddr))
		if err := a.server.Start(a.cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close освобождает ресурсы в обратном порядке
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
	a.closers = nil
}
