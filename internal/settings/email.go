package settings

import (
	"context"

	"github.com/teresa-solution/settings-management-service/internal/probe"
)

// EmailCategory holds the platform SMTP configuration. Saves verify the
// server accepts the supplied credentials before committing.
type EmailCategory struct {
	state *runtimeState
}

// NewEmailCategory creates the email category.
func NewEmailCategory() *EmailCategory {
	return &EmailCategory{state: newRuntimeState()}
}

func (c *EmailCategory) Name() string       { return "email" }
func (c *EmailCategory) TenantScoped() bool { return false }

func (c *EmailCategory) Defaults() map[string]any {
	return map[string]any{
		"host":        "",
		"port":        587,
		"username":    "",
		"password":    "",
		"fromAddress": "",
		"fromName":    "",
		"useTLS":      true,
	}
}

func (c *EmailCategory) SensitiveFields() []string {
	return []string{"password"}
}

func (c *EmailCategory) Validate(value map[string]any) ValidationResult {
	var errs []string

	requireString(&errs, value, "host")
	requireIntRange(&errs, value, "port", 1, 65535)
	checkEmail(&errs, value, "fromAddress", true)

	return invalid(errs)
}

func (c *EmailCategory) Apply(ctx context.Context, tenantID string, value map[string]any) error {
	c.state.store(tenantID, value)
	return nil
}

func (c *EmailCategory) Test(ctx context.Context, value map[string]any) TestResult {
	host, _ := stringField(value, "host")
	port, _ := intField(value, "port")
	username, _ := stringField(value, "username")
	password, _ := stringField(value, "password")
	useTLS, _ := boolField(value, "useTLS")

	res := probe.SMTP(ctx, host, port, username, password, useTLS)
	return TestResult{Success: res.Success, Message: res.Message}
}

// Active returns the last applied mailer configuration.
func (c *EmailCategory) Active() map[string]any {
	return c.state.Snapshot("")
}
