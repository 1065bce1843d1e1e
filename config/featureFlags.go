package config

import (
	"os"
	"strings"
)

// AgentSchedulerEnabled controls the built-in recurring cycle driver.
//
// Set via env:
// - AGENT_SCHEDULER_ENABLED=false
//
// Default: run the scheduler. Disable it when cycles are driven externally
// (e.g. Cloud Scheduler hitting POST /agent/cycle/run).
func AgentSchedulerEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("AGENT_SCHEDULER_ENABLED")))
	if v == "false" || v == "0" || v == "no" {
		return false
	}
	return true
}

// AgentCycleQueueEnabled selects what happens to a manual trigger that arrives
// while a cycle is in flight: queue it (run after) or reject it with a
// "cycle already running" status.
//
// Set via env:
// - AGENT_CYCLE_QUEUE=true
//
// Default: reject. Rejection is observable; queuing can pile up under load.
func AgentCycleQueueEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("AGENT_CYCLE_QUEUE")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
