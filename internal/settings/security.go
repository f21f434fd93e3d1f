package settings

import "context"

// SecurityCategory holds the platform security policy.
type SecurityCategory struct {
	state *runtimeState
}

// NewSecurityCategory creates the security category.
func NewSecurityCategory() *SecurityCategory {
	return &SecurityCategory{state: newRuntimeState()}
}

func (c *SecurityCategory) Name() string              { return "security" }
func (c *SecurityCategory) TenantScoped() bool        { return false }
func (c *SecurityCategory) SensitiveFields() []string { return nil }

func (c *SecurityCategory) Defaults() map[string]any {
	return map[string]any{
		"sessionTimeoutMinutes": 60,
		"passwordMinLength":     8,
		"mfaRequired":           false,
		"maxLoginAttempts":      5,
		"allowedOrigins":        []string{},
	}
}

func (c *SecurityCategory) Validate(value map[string]any) ValidationResult {
	var errs []string

	requireIntRange(&errs, value, "sessionTimeoutMinutes", 5, 1440)
	requireIntRange(&errs, value, "passwordMinLength", 8, 128)
	requireIntRange(&errs, value, "maxLoginAttempts", 1, 20)
	if _, ok := value["allowedOrigins"]; ok {
		if _, valid := stringSliceField(value, "allowedOrigins"); !valid {
			errs = append(errs, "allowedOrigins must be a list of strings")
		}
	}

	return invalid(errs)
}

func (c *SecurityCategory) Apply(ctx context.Context, tenantID string, value map[string]any) error {
	c.state.store(tenantID, value)
	return nil
}

// Active returns the last applied security policy.
func (c *SecurityCategory) Active() map[string]any {
	return c.state.Snapshot("")
}
