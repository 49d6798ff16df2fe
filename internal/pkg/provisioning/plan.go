package provisioning

import (
	"strings"
	"time"
)

const (
	PlanFree     = "free"
	PlanStandard = "standard"
	PlanCustom   = "custom"
)

const (
	freePlanValidity = 14 * 24 * time.Hour
	paidPlanValidity = 365 * 24 * time.Hour
)

// ValidityWindow computes how long a purchased plan stays valid. The second
// return value is false for unrecognized plan names, which still get the
// default paid validity; callers log a warning instead of rejecting the
// purchase (a new plan in the catalog must not bounce paid-for
// transactions).
func ValidityWindow(plan string) (time.Duration, bool) {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case PlanStandard, PlanCustom:
		return paidPlanValidity, true
	case PlanFree:
		return freePlanValidity, true
	default:
		return paidPlanValidity, false
	}
}
