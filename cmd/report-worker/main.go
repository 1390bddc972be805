package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/visioncare/clinic-scheduler/internal/booking"
	"github.com/visioncare/clinic-scheduler/internal/clinic"
	"github.com/visioncare/clinic-scheduler/internal/config"
	"github.com/visioncare/clinic-scheduler/internal/db"
	redisclient "github.com/visioncare/clinic-scheduler/internal/redis"
)

// report-worker periodically emits the upcoming-week schedule to the log
// stream for the clinic coordinators' morning rundown.
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := zerolog.New(os.Stderr).With().Timestamp().Str("component", "report-worker").Logger()
	log.Info().Str("env", cfg.Env).Dur("interval", cfg.ReportInterval).Msg("report-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() { _ = rdb.Close() }()

	repo := booking.NewPgRepository(pgPool)
	rooms, err := repo.ListRooms(rootCtx)
	if err != nil {
		log.Fatal().Err(err).Msg("load rooms")
	}
	policy, err := clinic.NewPolicy(cfg.Clinic.BookableTimes)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid bookable times")
	}

	engine := booking.NewEngine(repo, policy, clinic.NewRoomPool(rooms))
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	svc := booking.NewService(repo, engine, locker, cfg.Clinic, log)

	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping report worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	details, err := svc.WeeklyReport(runCtx, 7)
	if err != nil {
		log.Error().Err(err).Msg("weekly report run error")
		return
	}

	for _, d := range details {
		log.Info().
			Str("date", d.VisitDate.Format("2006-01-02")).
			Str("time", d.VisitTime).
			Str("room", d.RoomName).
			Str("patient", d.Patient.GivenName+" "+d.Patient.FamilyName).
			Str("phone", d.Patient.Phone).
			Str("reason", d.Reason).
			Str("status", string(d.Status)).
			Msg("upcoming appointment")
	}

	log.Info().Int("appointments", len(details)).Dur("took", time.Since(start)).Msg("weekly report complete")
}
