package settings

import "context"

// BrandingCategory holds look-and-feel settings. The same rules serve two
// registrations: the tenant-scoped "branding" category and the platform-wide
// "platform_branding" fallback shown to tenants without their own branding.
type BrandingCategory struct {
	name         string
	tenantScoped bool
	state        *runtimeState
}

// NewBrandingCategory creates the tenant-scoped branding category.
func NewBrandingCategory() *BrandingCategory {
	return &BrandingCategory{name: "branding", tenantScoped: true, state: newRuntimeState()}
}

// NewPlatformBrandingCategory creates the platform-wide branding category.
func NewPlatformBrandingCategory() *BrandingCategory {
	return &BrandingCategory{name: "platform_branding", tenantScoped: false, state: newRuntimeState()}
}

func (c *BrandingCategory) Name() string              { return c.name }
func (c *BrandingCategory) TenantScoped() bool        { return c.tenantScoped }
func (c *BrandingCategory) SensitiveFields() []string { return nil }

func (c *BrandingCategory) Defaults() map[string]any {
	return map[string]any{
		"companyName":  "",
		"logoUrl":      "",
		"faviconUrl":   "",
		"primaryColor": "#1a73e8",
		"accentColor":  "#fbbc04",
	}
}

func (c *BrandingCategory) Validate(value map[string]any) ValidationResult {
	var errs []string

	requireString(&errs, value, "companyName")
	checkHTTPURL(&errs, value, "logoUrl", false)
	checkHTTPURL(&errs, value, "faviconUrl", false)
	checkHexColor(&errs, value, "primaryColor")
	checkHexColor(&errs, value, "accentColor")

	return invalid(errs)
}

func (c *BrandingCategory) Apply(ctx context.Context, tenantID string, value map[string]any) error {
	c.state.store(tenantID, value)
	return nil
}

// Active returns the last applied branding for the scope.
func (c *BrandingCategory) Active(tenantID string) map[string]any {
	return c.state.Snapshot(tenantID)
}
