package settings

import "context"

// TeamCategory holds per-tenant team management settings.
type TeamCategory struct {
	state *runtimeState
}

// NewTeamCategory creates the team category.
func NewTeamCategory() *TeamCategory {
	return &TeamCategory{state: newRuntimeState()}
}

func (c *TeamCategory) Name() string              { return "team" }
func (c *TeamCategory) TenantScoped() bool        { return true }
func (c *TeamCategory) SensitiveFields() []string { return nil }

func (c *TeamCategory) Defaults() map[string]any {
	return map[string]any{
		"maxMembers":   10,
		"defaultRole":  "agent",
		"allowInvites": true,
		"departments":  []string{"general"},
	}
}

func (c *TeamCategory) Validate(value map[string]any) ValidationResult {
	var errs []string

	requireIntRange(&errs, value, "maxMembers", 1, 1000)
	requireOneOf(&errs, value, "defaultRole", "admin", "agent", "viewer")
	if _, ok := value["departments"]; ok {
		departments, valid := stringSliceField(value, "departments")
		if !valid {
			errs = append(errs, "departments must be a list of strings")
		} else {
			seen := make(map[string]struct{}, len(departments))
			for _, d := range departments {
				if d == "" {
					errs = append(errs, "department names must not be empty")
					break
				}
				if _, dup := seen[d]; dup {
					errs = append(errs, "department names must be unique")
					break
				}
				seen[d] = struct{}{}
			}
		}
	}

	return invalid(errs)
}

func (c *TeamCategory) Apply(ctx context.Context, tenantID string, value map[string]any) error {
	c.state.store(tenantID, value)
	return nil
}

// Active returns the last applied team settings for the tenant.
func (c *TeamCategory) Active(tenantID string) map[string]any {
	return c.state.Snapshot(tenantID)
}
