// Package scheduler triggers periodic scans through cron expressions.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ScanTrigger enqueues scan work; the scheduler never scans inline.
type ScanTrigger interface {
	EnqueueScan(ctx context.Context, roots ...string) error
}

// Config holds the cron expressions. Empty expressions disable the entry.
type Config struct {
	ScanSchedule    string
	CleanupSchedule string
}

// DefaultConfig scans every six hours and reconciles nightly.
func DefaultConfig() Config {
	return Config{
		ScanSchedule:    "0 */6 * * *",
		CleanupSchedule: "30 3 * * *",
	}
}

// CleanupTrigger enqueues reconciliation of the scratch folders.
type CleanupTrigger interface {
	EnqueueCleanFolder(ctx context.Context, folder string) error
}

// RootProvider yields the folders the cleanup entry reconciles.
type RootProvider interface {
	ScanRoots() []string
}

type Scheduler struct {
	cron    *cron.Cron
	scans   ScanTrigger
	cleanup CleanupTrigger
	roots   RootProvider
}

func New(scans ScanTrigger, cleanup CleanupTrigger, roots RootProvider) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		scans:   scans,
		cleanup: cleanup,
		roots:   roots,
	}
}

// Start registers the configured entries and begins the cron loop.
func (s *Scheduler) Start(cfg Config) error {
	if cfg.ScanSchedule != "" {
		if _, err := s.cron.AddFunc(cfg.ScanSchedule, s.triggerScan); err != nil {
			return fmt.Errorf("scan schedule %q: %w", cfg.ScanSchedule, err)
		}
	}
	if cfg.CleanupSchedule != "" {
		if _, err := s.cron.AddFunc(cfg.CleanupSchedule, s.triggerCleanup); err != nil {
			return fmt.Errorf("cleanup schedule %q: %w", cfg.CleanupSchedule, err)
		}
	}
	s.cron.Start()
	log.Info().Str("scan", cfg.ScanSchedule).Str("cleanup", cfg.CleanupSchedule).Msg("scheduler started")
	return nil
}

// Stop halts the cron loop, waiting for a running entry to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) triggerScan() {
	if err := s.scans.EnqueueScan(context.Background()); err != nil {
		log.Error().Err(err).Msg("scheduler: could not enqueue scan")
	}
}

func (s *Scheduler) triggerCleanup() {
	for _, root := range s.roots.ScanRoots() {
		if err := s.cleanup.EnqueueCleanFolder(context.Background(), root); err != nil {
			log.Error().Err(err).Str("root", root).Msg("scheduler: could not enqueue cleanup")
		}
	}
}
