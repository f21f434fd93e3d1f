package settings

import "context"

// PreferencesCategory holds per-tenant workspace preferences.
type PreferencesCategory struct {
	state *runtimeState
}

// NewPreferencesCategory creates the preferences category.
func NewPreferencesCategory() *PreferencesCategory {
	return &PreferencesCategory{state: newRuntimeState()}
}

func (c *PreferencesCategory) Name() string              { return "preferences" }
func (c *PreferencesCategory) TenantScoped() bool        { return true }
func (c *PreferencesCategory) SensitiveFields() []string { return nil }

func (c *PreferencesCategory) Defaults() map[string]any {
	return map[string]any{
		"language":             "en",
		"theme":                "system",
		"notificationsEnabled": true,
		"digestFrequency":      "weekly",
	}
}

func (c *PreferencesCategory) Validate(value map[string]any) ValidationResult {
	var errs []string

	if lang, ok := stringField(value, "language"); !ok || len(lang) < 2 || len(lang) > 5 {
		errs = append(errs, "language must be a 2-5 character locale code")
	}
	requireOneOf(&errs, value, "theme", "light", "dark", "system")
	requireOneOf(&errs, value, "digestFrequency", "daily", "weekly", "never")

	return invalid(errs)
}

func (c *PreferencesCategory) Apply(ctx context.Context, tenantID string, value map[string]any) error {
	c.state.store(tenantID, value)
	return nil
}

// Active returns the last applied preferences for the tenant.
func (c *PreferencesCategory) Active(tenantID string) map[string]any {
	return c.state.Snapshot(tenantID)
}
