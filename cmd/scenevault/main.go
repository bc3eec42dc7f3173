package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/scenevault/scenevault/internal/cache"
	"github.com/scenevault/scenevault/internal/config"
	"github.com/scenevault/scenevault/internal/db"
	"github.com/scenevault/scenevault/internal/decision"
	"github.com/scenevault/scenevault/internal/formats"
	"github.com/scenevault/scenevault/internal/identification"
	"github.com/scenevault/scenevault/internal/jobs"
	"github.com/scenevault/scenevault/internal/models"
	"github.com/scenevault/scenevault/internal/naming"
	"github.com/scenevault/scenevault/internal/notifications"
	"github.com/scenevault/scenevault/internal/organizer"
	"github.com/scenevault/scenevault/internal/repository"
	"github.com/scenevault/scenevault/internal/scanner"
	"github.com/scenevault/scenevault/internal/scheduler"
	"github.com/scenevault/scenevault/internal/version"
	"github.com/scenevault/scenevault/internal/watcher"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	ver := version.Load()
	log.Info().Str("version", ver.Version).Msg("scenevault starting")

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer database.Close()
	cfg.MergeFromDB(database.DB)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	fileRepo := repository.NewFileRepository(database.DB)
	itemRepo := repository.NewItemRepository(database.DB)
	studioRepo := repository.NewStudioRepository(database.DB)
	performerRepo := repository.NewPerformerRepository(database.DB)
	settingsRepo := repository.NewSettingsRepository(database.DB)
	exclusionRepo := repository.NewExclusionRepository(database.DB)

	events := notifications.NewDispatcher(notifications.NewWebhookSender(), webhookTargets(cfg))

	scorer, err := formats.NewCalculator(formatSpecs(cfg))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid custom format configuration")
	}

	identifier := identification.NewService(itemRepo, studioRepo, performerRepo, fileRepo, exclusionRepo)
	engine := decision.NewEngine(
		decision.DefaultSpecifications(),
		decision.DefaultAugmenters(),
		scorer,
		identifier,
		fileRepo,
	)

	queue := jobs.NewQueue(cfg.RedisAddr)
	enqueuer := jobs.NewEnqueuer(queue)

	namingCfg := &cachedNamingConfig{
		cache: cache.New(redisClient, "naming-config", 5*time.Minute),
		repo:  settingsRepo,
	}
	importer := organizer.NewOrganizer(naming.NewBuilder(scorer), fileRepo, itemRepo, namingCfg, events)

	scanService := scanner.NewDiskScanService(fileRepo, itemRepo, studioRepo, engine,
		enqueuer, importer, events, scanSettings(cfg, settingsRepo))

	queue.RegisterHandler(jobs.TaskScan, jobs.NewScanHandler(scanService))
	queue.RegisterHandler(jobs.TaskItemCreate, jobs.NewItemCreateHandler(itemRepo))
	queue.RegisterHandler(jobs.TaskCleanFolder, jobs.NewCleanFolderHandler(scanService))
	if err := queue.Start(); err != nil {
		log.Fatal().Err(err).Msg("job queue failed to start")
	}
	defer queue.Stop()

	sched := scheduler.New(enqueuer, enqueuer, cfg)
	if err := sched.Start(scheduler.Config{
		ScanSchedule:    cfg.ScanSchedule,
		CleanupSchedule: cfg.CleanupSchedule,
	}); err != nil {
		log.Fatal().Err(err).Msg("scheduler failed to start")
	}
	defer sched.Stop()

	if cfg.WatchRootFolders {
		w, err := watcher.New(cfg, enqueuer)
		if err != nil {
			log.Fatal().Err(err).Msg("watcher failed to start")
		}
		w.Start()
		defer w.Stop()
	}

	if err := enqueuer.EnqueueScan(context.Background()); err != nil {
		log.Warn().Err(err).Msg("could not enqueue startup scan")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func webhookTargets(cfg *config.Config) []notifications.WebhookTarget {
	targets := make([]notifications.WebhookTarget, 0, len(cfg.Webhooks))
	for _, w := range cfg.Webhooks {
		targets = append(targets, notifications.WebhookTarget{Name: w.Name, Kind: w.Kind, URL: w.URL})
	}
	return targets
}

func formatSpecs(cfg *config.Config) []formats.Spec {
	specs := make([]formats.Spec, 0, len(cfg.CustomFormats))
	for i, f := range cfg.CustomFormats {
		specs = append(specs, formats.Spec{
			Format:  models.CustomFormat{ID: int64(i + 1), Name: f.Name},
			Pattern: f.Pattern,
			Score:   f.Score,
		})
	}
	return specs
}

// scanSettings merges static config with the DB-backed toggles at each
// scan start.
func scanSettings(cfg *config.Config, settings *repository.SettingsRepository) scanner.SettingsProvider {
	return &settingsAdapter{cfg: cfg, repo: settings}
}

type settingsAdapter struct {
	cfg  *config.Config
	repo *repository.SettingsRepository
}

func (s *settingsAdapter) ScanSettings() scanner.Settings {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := scanner.Settings{
		RootFolders:        s.cfg.RootFolders,
		FilterExtras:       s.cfg.FilterExtras,
		DeleteEmptyFolders: s.cfg.DeleteEmptyFolders,
	}
	namingCfg, err := s.repo.NamingConfig(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("scan settings: falling back to default naming config")
		namingCfg = models.DefaultNamingConfig()
	}
	out.SceneFolderFormat = namingCfg.SceneFolderFormat

	if roots, err := s.repo.RootFolders(ctx); err == nil && len(roots) > 0 {
		out.RootFolders = roots
	}
	// Unset DB toggles keep the static config value.
	if raw, err := s.repo.Get(ctx, repository.KeyFilterExtras); err == nil && raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			out.FilterExtras = v
		}
	}
	if raw, err := s.repo.Get(ctx, repository.KeyDeleteEmptyFolders); err == nil && raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			out.DeleteEmptyFolders = v
		}
	}
	return out
}

// cachedNamingConfig serves the naming snapshot through the result cache
// so every import in a batch does not re-read the settings table.
type cachedNamingConfig struct {
	cache *cache.Cache
	repo  *repository.SettingsRepository
}

func (c *cachedNamingConfig) NamingConfig(ctx context.Context) (models.NamingConfig, error) {
	var cfg models.NamingConfig
	err := c.cache.GetOrLoad(ctx, "current", &cfg, func(ctx context.Context) (interface{}, error) {
		return c.repo.NamingConfig(ctx)
	})
	return cfg, err
}
