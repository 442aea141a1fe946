/*
sweep.go - Scheduled compliance sweeps

PURPOSE:
  Periodically runs the compliance monitor over every configured property
  and records the outcome for the operations dashboard.

DESIGN:
  - Uses a cron schedule (default hourly) rather than a fixed ticker, so
    operators can align sweeps with channel-manager sync windows
  - Each run is persisted as a SweepRun audit record (running -> completed
    or failed)
  - A failing property does not stop the sweep of the others

USAGE:
  sweeper := NewSweeper(handler.Monitor, store, []admission.PropertyID{"grand-hotel"})
  sweeper.Start("0 * * * *")
  // ... later
  sweeper.Stop()

SEE ALSO:
  - admission/monitor.go: the sweep itself
  - handlers.go: RunSweep endpoint (on-demand sweeps)
*/
package api

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/stayware/admission-engine/admission"
	"github.com/stayware/admission-engine/store/sqlite"
)

// Sweeper runs scheduled compliance sweeps.
type Sweeper struct {
	Monitor     *admission.Monitor
	Runs        SweepRunRecorder // nil disables audit records
	Properties  []admission.PropertyID
	HorizonDays int

	cron *cron.Cron
}

// NewSweeper creates a sweeper for the given properties.
func NewSweeper(monitor *admission.Monitor, runs SweepRunRecorder, properties []admission.PropertyID) *Sweeper {
	return &Sweeper{
		Monitor:     monitor,
		Runs:        runs,
		Properties:  properties,
		HorizonDays: admission.DefaultHorizonDays,
	}
}

// Start schedules sweeps with the given cron expression.
func (s *Sweeper) Start(schedule string) error {
	if len(s.Properties) == 0 {
		log.Println("[Sweeper] No properties configured, not starting")
		return nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(schedule, s.runAll); err != nil {
		return err
	}
	s.cron.Start()

	log.Printf("[Sweeper] Started with schedule %q for %d properties", schedule, len(s.Properties))
	return nil
}

// Stop halts the schedule, waiting for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("[Sweeper] Stopped")
}

func (s *Sweeper) runAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for _, property := range s.Properties {
		s.runOne(ctx, property)
	}
}

func (s *Sweeper) runOne(ctx context.Context, property admission.PropertyID) {
	run := sqlite.SweepRun{
		ID:          uuid.NewString(),
		PropertyID:  property,
		HorizonDays: s.HorizonDays,
		Status:      "running",
		StartedAt:   time.Now().UTC(),
	}
	s.record(ctx, run)

	report, err := s.Monitor.Sweep(ctx, property, s.HorizonDays)
	now := time.Now().UTC()
	run.CompletedAt = &now

	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		log.Printf("[Sweeper] Sweep failed for %s: %v", property, err)
		s.record(ctx, run)
		return
	}

	run.Status = "completed"
	run.RiskAreas = len(report.RiskAreas)
	s.record(ctx, run)

	if report.Status != admission.SweepSafe {
		log.Printf("[Sweeper] Property %s is %s: %d risk areas over %d days",
			property, report.Status, len(report.RiskAreas), s.HorizonDays)
	}
}

func (s *Sweeper) record(ctx context.Context, run sqlite.SweepRun) {
	if s.Runs == nil {
		return
	}
	if err := s.Runs.SaveSweepRun(ctx, run); err != nil {
		log.Printf("[Sweeper] Failed to record sweep run %s: %v", run.ID, err)
	}
}
