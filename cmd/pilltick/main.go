package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/pilltick/pilltick/internal/assistant"
	"github.com/pilltick/pilltick/internal/bot"
	"github.com/pilltick/pilltick/internal/config"
	"github.com/pilltick/pilltick/internal/database"
	"github.com/pilltick/pilltick/internal/mirror"
	"github.com/pilltick/pilltick/internal/notify"
	"github.com/pilltick/pilltick/internal/platform/logger"
	"github.com/pilltick/pilltick/internal/repository"
	"github.com/pilltick/pilltick/internal/scheduler"
	"github.com/pilltick/pilltick/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("pilltick", "info")
		fallback.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New("pilltick", cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURI)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("connected to database")

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	medicineRepo := repository.NewMedicineRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	streakRepo := repository.NewStreakRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	syncLogRepo := repository.NewSyncLogRepository(db)

	clock := clockwork.NewRealClock()

	opts := []tracker.Option{
		tracker.WithHorizonDays(cfg.HorizonDays),
		tracker.WithAdherenceWindowDays(cfg.AdherenceWindowDays),
	}
	if cfg.MirrorEnabled() {
		mirrors := mirror.NewNotifier(log, syncLogRepo, mirror.NewWebhookTarget(cfg.MirrorWebhookURL))
		opts = append(opts, tracker.WithMirrors(mirrors))
		log.Info().Str("url", cfg.MirrorWebhookURL).Msg("webhook mirror enabled")
	}

	svc := tracker.New(medicineRepo, scheduleRepo, reminderRepo, streakRepo, clock, log, opts...)

	// Extend the reminder horizon for anything added while the process
	// was down.
	if err := svc.Rematerialize(ctx); err != nil {
		log.Error().Err(err).Msg("startup rematerialization failed")
	}

	dispatcher := notify.NewDispatcher(log, cfg.SinkTimeout)
	if cfg.DesktopNotify {
		dispatcher.Register(notify.NewDesktopSink())
	}
	if cfg.EmailEnabled() {
		dispatcher.Register(notify.NewEmailSink(notify.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
			To:       cfg.EmailTo,
		}))
		log.Info().Str("to", cfg.EmailTo).Msg("email sink enabled")
	}

	var phraser scheduler.Phraser
	if cfg.AssistantEnabled() {
		phraser = assistant.New(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel, log)
		log.Info().Str("model", cfg.AIModel).Msg("assistant enabled")
	}

	sched := scheduler.New(svc, dispatcher, phraser, clock, log, scheduler.Config{
		CheckInterval:       cfg.CheckInterval,
		ExpiryHour:          cfg.ExpiryHour,
		ExpiryLookaheadDays: cfg.ExpiryLookaheadDays,
	})

	var b *bot.Bot
	if cfg.TelegramEnabled() {
		b, err = bot.New(cfg.TelegramToken, svc, settingRepo, syncLogRepo, sched, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create bot")
		}
		dispatcher.Register(notify.NewTelegramSink(b.API(), settingRepo))
	}

	go sched.Start(ctx)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("shutting down")
		cancel()
	}()

	if b != nil {
		if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal().Err(err).Msg("bot error")
		}
		return
	}

	<-ctx.Done()
}
