package settings

import (
	"context"
	"time"
)

var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// AvailabilityCategory holds per-tenant business-hours settings.
type AvailabilityCategory struct {
	state *runtimeState
}

// NewAvailabilityCategory creates the availability category.
func NewAvailabilityCategory() *AvailabilityCategory {
	return &AvailabilityCategory{state: newRuntimeState()}
}

func (c *AvailabilityCategory) Name() string              { return "availability" }
func (c *AvailabilityCategory) TenantScoped() bool        { return true }
func (c *AvailabilityCategory) SensitiveFields() []string { return nil }

func (c *AvailabilityCategory) Defaults() map[string]any {
	return map[string]any{
		"timezone":    "UTC",
		"workingDays": []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
		"opensAt":     "09:00",
		"closesAt":    "17:00",
		"awayMessage": "",
	}
}

func (c *AvailabilityCategory) Validate(value map[string]any) ValidationResult {
	var errs []string

	if tz := requireString(&errs, value, "timezone"); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, "timezone must be a valid IANA zone name")
		}
	}

	if _, ok := value["workingDays"]; ok {
		days, valid := stringSliceField(value, "workingDays")
		if !valid {
			errs = append(errs, "workingDays must be a list of strings")
		} else {
			for _, d := range days {
				if !isWeekday(d) {
					errs = append(errs, "workingDays contains an unknown day: "+d)
					break
				}
			}
		}
	}

	checkClock(&errs, value, "opensAt")
	checkClock(&errs, value, "closesAt")

	return invalid(errs)
}

func (c *AvailabilityCategory) Apply(ctx context.Context, tenantID string, value map[string]any) error {
	c.state.store(tenantID, value)
	return nil
}

// Active returns the last applied availability settings for the tenant.
func (c *AvailabilityCategory) Active(tenantID string) map[string]any {
	return c.state.Snapshot(tenantID)
}

func isWeekday(day string) bool {
	for _, d := range weekdays {
		if d == day {
			return true
		}
	}
	return false
}

func checkClock(errs *[]string, value map[string]any, field string) {
	s, ok := stringField(value, field)
	if !ok || s == "" {
		return
	}
	if _, err := time.Parse("15:04", s); err != nil {
		*errs = append(*errs, field+" must be a HH:MM clock time")
	}
}
