package permission

import (
	"fmt"

	"github.com/cityinfra/trafficcontrol/internal/domain/device"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

// Built-in groups seeded on first start.
const (
	GroupAdministrators = "administrators"
	GroupPlanners       = "planners"
	GroupSurveyors      = "surveyors"
)

// DefaultPolicies grants planners the plan objects, surveyors the real
// objects and administrators everything.
func DefaultPolicies() [][]string {
	var policies [][]string
	for _, f := range device.Families {
		for _, obj := range []string{f.PlanObject(), f.RealObject()} {
			policies = append(policies, []string{GroupAdministrators, obj, "*"})
		}
		for _, act := range []string{"create", "update", "delete", "import"} {
			policies = append(policies,
				[]string{GroupPlanners, f.PlanObject(), act},
				[]string{GroupSurveyors, f.RealObject(), act},
			)
		}
	}
	return policies
}

// SeedDefaultPolicies adds DefaultPolicies. Existing rules are kept.
func SeedDefaultPolicies(e *Enforcer, log logger.Interface) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, p := range DefaultPolicies() {
		if _, err := e.enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			log.Errorw("failed to add permission policy",
				"error", err,
				"role", p[0],
				"object", p[1],
				"action", p[2])
			return fmt.Errorf("failed to add policy [%s, %s, %s]: %w", p[0], p[1], p[2], err)
		}
	}

	log.Infow("default permissions seeded", "policies", len(DefaultPolicies()))
	return nil
}
