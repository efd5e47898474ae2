package main

import (
	"time"

	"benefit-orchestrator/internal/bootstrap"
	"benefit-orchestrator/internal/common/camunda"
	"benefit-orchestrator/internal/common/config"
	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/pkg/registry"

	"go.uber.org/zap"

	sid "benefit-orchestrator/internal/workers/identity/search-identity"
	vid "benefit-orchestrator/internal/workers/identity/verify-identity"
	scn "benefit-orchestrator/internal/workers/notification/send-case-notification"
	lc "benefit-orchestrator/internal/workers/records/lookup-case"
	ld "benefit-orchestrator/internal/workers/records/lookup-document"
	chr "benefit-orchestrator/internal/workers/review/classify-human-response"
	ist "benefit-orchestrator/internal/workers/workflow/invoke-stage"
	rns "benefit-orchestrator/internal/workers/workflow/route-next-stage"
	rc "benefit-orchestrator/internal/workers/workflow/run-case"
)

// registrations builds every task handler. Timeouts from the workers map
// override the handler defaults.
func registrations(cfg *config.Config, c *bootstrap.Components, log logger.Logger) []camunda.Registration {
	timeout := func(taskType string, def time.Duration) time.Duration {
		if w, ok := cfg.Workers[taskType]; ok && w.Timeout > 0 {
			return config.GetDuration(w.Timeout)
		}
		return def
	}

	// --- Records ---
	lcCfg := lc.LoadConfig()
	lcCfg.Timeout = timeout(lc.TaskType, lcCfg.Timeout)

	ldCfg := ld.LoadConfig()
	ldCfg.Timeout = timeout(ld.TaskType, ldCfg.Timeout)

	// --- Identity ---
	sidCfg := sid.LoadConfig()
	sidCfg.Timeout = timeout(sid.TaskType, sidCfg.Timeout)
	sidCfg.MaxResults = cfg.Workflow.Identity.MaxResults

	vidCfg := vid.LoadConfig()
	vidCfg.Timeout = timeout(vid.TaskType, vidCfg.Timeout)

	// --- Workflow ---
	rnsCfg := rns.LoadConfig()
	rnsCfg.Timeout = timeout(rns.TaskType, rnsCfg.Timeout)

	istCfg := ist.LoadConfig()
	istCfg.Timeout = timeout(ist.TaskType, istCfg.Timeout)

	rcCfg := rc.LoadConfig()
	rcCfg.Timeout = timeout(rc.TaskType, rcCfg.Timeout)

	// --- Review & Notification ---
	chrCfg := chr.LoadConfig()
	chrCfg.Timeout = timeout(chr.TaskType, chrCfg.Timeout)

	scnCfg := scn.LoadConfig()
	scnCfg.Timeout = timeout(scn.TaskType, scnCfg.Timeout)

	return []camunda.Registration{
		{TaskType: lc.TaskType, Handler: lc.NewHandler(lcCfg, c.Store, log).Handle},
		{TaskType: ld.TaskType, Handler: ld.NewHandler(ldCfg, c.Store, log).Handle},
		{TaskType: sid.TaskType, Handler: sid.NewHandler(sidCfg, c.Matcher, log).Handle},
		{TaskType: vid.TaskType, Handler: vid.NewHandler(vidCfg, c.Store, c.Matcher, log).Handle},
		{TaskType: rns.TaskType, Handler: rns.NewHandler(rnsCfg, c.Router, log).Handle},
		{TaskType: ist.TaskType, Handler: ist.NewHandler(istCfg, c.Collaborator, log).Handle},
		{TaskType: chr.TaskType, Handler: chr.NewHandler(chrCfg, c.Classifier, log).Handle},
		{TaskType: scn.TaskType, Handler: scn.NewHandler(scnCfg, c.Store, c.Notifier, log).Handle},
		{TaskType: rc.TaskType, Handler: rc.NewHandler(rcCfg, c.Driver, log).Handle},
	}
}

// checkRegistry warns about handlers missing from the activity registry.
// A missing registry file is not an error.
func checkRegistry(path string, regs []camunda.Registration, log *zap.Logger) {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		log.Debug("activity registry not loaded", zap.String("path", path), zap.Error(err))
		return
	}
	if err := reg.Validate(); err != nil {
		log.Warn("activity registry invalid", zap.Error(err))
	}
	for _, r := range regs {
		if reg.Find(r.TaskType) == nil {
			log.Warn("worker not listed in activity registry", zap.String("taskType", r.TaskType))
		}
	}
}
