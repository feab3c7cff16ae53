package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/avelys/studio-scheduler/internal/config"
	"github.com/avelys/studio-scheduler/internal/database"
	"github.com/avelys/studio-scheduler/internal/handler"
	"github.com/avelys/studio-scheduler/internal/queue"
	"github.com/avelys/studio-scheduler/internal/repository"
	"github.com/avelys/studio-scheduler/internal/router"
	"github.com/avelys/studio-scheduler/internal/service"
	"github.com/avelys/studio-scheduler/internal/worker"
)

func main() {
	// A .env file is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	seriesRepo := repository.NewSeriesRepo(db)
	classRepo := repository.NewClassRepo(db)
	registrationRepo := repository.NewRegistrationRepo(db)
	membershipRepo := repository.NewMembershipRepo(db)
	attendanceRepo := repository.NewAttendanceRepo(db)

	planner := service.NewPlanner(db, seriesRepo, classRepo)
	excluder := service.NewExcluder(db, classRepo)
	registrar := service.NewRegistrar(db, classRepo, registrationRepo)
	checkIn := service.NewCheckIn(db, classRepo, registrationRepo, membershipRepo, attendanceRepo)

	if cfg.ReconcileEnabled {
		store := worker.NewStore(db, classRepo, registrationRepo, membershipRepo, attendanceRepo)
		rec := worker.NewReconciler(store, cfg.ReconcileInterval, time.Duration(cfg.GraceMinutes)*time.Minute)
		rec.OnSummary(func(sum worker.PassSummary) {
			if sum.Eligible == 0 && sum.ClassesClosed == 0 {
				return
			}
			// Best effort: a broker outage must not stall the worker.
			_ = queue.PublishReconciliationSummary(context.Background(), queue.ReconciliationSummaryEvent{
				Eligible:             sum.Eligible,
				NoAttendance:         sum.NoAttendance,
				Selected:             sum.Selected,
				Inserted:             sum.Inserted,
				RegistrationsUpdated: sum.RegistrationsUpdated,
				MembershipsUpdated:   sum.MembershipsUpdated,
				ClassesClosed:        sum.ClassesClosed,
				SkippedNoMembership:  sum.SkippedNoMembership,
				FinishedAt:           time.Now().UTC().Format(time.RFC3339),
			})
		})
		// The stop handle must run before db.Close: an in-flight pass is
		// drained on its open connection, not cut off.
		stop := rec.Start()
		defer stop()
		log.Printf("reconciler started interval=%s grace=%dm", cfg.ReconcileInterval, cfg.GraceMinutes)
	}

	go func() {
		if err := queue.StartRegistrationConsumer(); err != nil {
			log.Printf("registration consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)

	regHandler := handler.NewRegistrationHandler(registrar, classRepo, registrationRepo)
	adminHandler := handler.NewAdminHandler(planner, excluder, checkIn, seriesRepo, membershipRepo)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, schedule cache and rate limiting disabled")
	}
	router.RegisterSchedule(e, regHandler, rdb)
	router.RegisterCustomer(e, regHandler, cfg.JWTSecret)
	router.RegisterAdmin(e, adminHandler, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	serverErr := make(chan error, 1)
	go func() { serverErr <- e.Start(addr) }()

	// Shut down in order on SIGINT/SIGTERM: stop accepting requests,
	// then the deferred reconciler stop drains any in-flight pass
	// before the deferred db.Close releases the pool.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(ctx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server stopped: %v", err)
		}
	}
}
