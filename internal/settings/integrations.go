package settings

import (
	"context"

	"github.com/teresa-solution/settings-management-service/internal/probe"
)

// IntegrationsCategory holds per-tenant outbound integration settings
// (webhooks, Slack notifications).
type IntegrationsCategory struct {
	state *runtimeState
}

// NewIntegrationsCategory creates the integrations category.
func NewIntegrationsCategory() *IntegrationsCategory {
	return &IntegrationsCategory{state: newRuntimeState()}
}

func (c *IntegrationsCategory) Name() string       { return "integrations" }
func (c *IntegrationsCategory) TenantScoped() bool { return true }

func (c *IntegrationsCategory) SensitiveFields() []string {
	return []string{"webhookSecret"}
}

func (c *IntegrationsCategory) Defaults() map[string]any {
	return map[string]any{
		"enabled":         false,
		"webhookUrl":      "",
		"webhookSecret":   "",
		"slackWebhookUrl": "",
	}
}

func (c *IntegrationsCategory) Validate(value map[string]any) ValidationResult {
	var errs []string

	enabled, _ := boolField(value, "enabled")
	checkHTTPURL(&errs, value, "webhookUrl", enabled)
	checkHTTPURL(&errs, value, "slackWebhookUrl", false)
	if enabled {
		requireString(&errs, value, "webhookSecret")
	}

	return invalid(errs)
}

func (c *IntegrationsCategory) Apply(ctx context.Context, tenantID string, value map[string]any) error {
	c.state.store(tenantID, value)
	return nil
}

// Test checks that the configured webhook endpoint is reachable. Disabled
// integrations skip the probe.
func (c *IntegrationsCategory) Test(ctx context.Context, value map[string]any) TestResult {
	enabled, _ := boolField(value, "enabled")
	if !enabled {
		return TestResult{Success: true, Message: "integrations disabled, probe skipped"}
	}

	webhookURL, _ := stringField(value, "webhookUrl")
	res := probe.Endpoint(ctx, webhookURL, nil)
	return TestResult{Success: res.Success, Message: res.Message}
}

// Active returns the last applied integration settings for the tenant.
func (c *IntegrationsCategory) Active(tenantID string) map[string]any {
	return c.state.Snapshot(tenantID)
}
