package main

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/agent_backend/agent"
	"github.com/mmdatafocus/agent_backend/config"
	"github.com/mmdatafocus/agent_backend/models"
	"github.com/sirupsen/logrus"
)

// CycleScheduler drives the orchestrator on a fixed interval. It is a thin
// entry point: scheduled and manual triggers converge on the same RunCycle
// call and the same single-flight guard, so a tick that lands while a manual
// cycle is in flight is skipped, never run twice.
type CycleScheduler struct {
	Orchestrator *agent.CycleOrchestrator
	Logger       *logrus.Logger
	Interval     time.Duration
}

func NewCycleScheduler(orchestrator *agent.CycleOrchestrator, logger *logrus.Logger) *CycleScheduler {
	minutes := config.IntFromEnv("AGENT_CYCLE_INTERVAL_MINUTES", 5)
	if minutes < 1 {
		minutes = 1
	}
	return &CycleScheduler{
		Orchestrator: orchestrator,
		Logger:       logger,
		Interval:     time.Duration(minutes) * time.Minute,
	}
}

func (s *CycleScheduler) Run(ctx context.Context) {
	if s == nil || s.Orchestrator == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.Interval):
		}
		s.tick(ctx)
	}
}

func (s *CycleScheduler) tick(ctx context.Context) {
	_, err := s.Orchestrator.RunCycle(ctx, models.CycleTriggerCron, nil)
	if errors.Is(err, agent.ErrCycleRunning) {
		s.Logger.WithFields(logrus.Fields{
			"module": "CycleScheduler",
		}).Info("cycle already in flight; skipping scheduled tick")
		return
	}
	if err != nil {
		config.LogError(s.Logger, "CycleScheduler", "tick", "scheduled cycle", nil, err)
	}
}
