package settings

import (
	"context"

	"github.com/teresa-solution/settings-management-service/internal/model"
)

// BillingCategory holds per-tenant subscription settings. It refines the
// audit action so plan changes, cancellations and payment-method updates are
// distinguishable in the audit trail.
type BillingCategory struct {
	state *runtimeState
}

// NewBillingCategory creates the billing category.
func NewBillingCategory() *BillingCategory {
	return &BillingCategory{state: newRuntimeState()}
}

func (c *BillingCategory) Name() string       { return "billing" }
func (c *BillingCategory) TenantScoped() bool { return true }

func (c *BillingCategory) SensitiveFields() []string {
	return []string{"paymentMethodToken"}
}

func (c *BillingCategory) Defaults() map[string]any {
	return map[string]any{
		"plan":               "free",
		"billingEmail":       "",
		"autoRenew":          true,
		"cancelAtPeriodEnd":  false,
		"paymentMethodToken": "",
	}
}

func (c *BillingCategory) Validate(value map[string]any) ValidationResult {
	var errs []string

	requireOneOf(&errs, value, "plan", "free", "starter", "pro", "enterprise")
	checkEmail(&errs, value, "billingEmail", false)

	plan, _ := stringField(value, "plan")
	if token, _ := stringField(value, "paymentMethodToken"); token == "" && plan != "" && plan != "free" {
		errs = append(errs, "paymentMethodToken is required for paid plans")
	}

	return invalid(errs)
}

func (c *BillingCategory) Apply(ctx context.Context, tenantID string, value map[string]any) error {
	c.state.store(tenantID, value)
	return nil
}

// ClassifyAction maps the nature of the edit onto a billing-specific audit
// action. Falls back to the workflow default when nothing notable changed.
func (c *BillingCategory) ClassifyAction(oldValue, newValue map[string]any) (model.AuditAction, bool) {
	oldCancel, _ := boolField(oldValue, "cancelAtPeriodEnd")
	newCancel, _ := boolField(newValue, "cancelAtPeriodEnd")
	if newCancel && !oldCancel {
		return model.ActionCancel, true
	}

	oldPlan, _ := stringField(oldValue, "plan")
	newPlan, _ := stringField(newValue, "plan")
	if oldPlan != newPlan {
		return model.ActionPlanChange, true
	}

	oldToken, _ := stringField(oldValue, "paymentMethodToken")
	newToken, _ := stringField(newValue, "paymentMethodToken")
	if oldToken != newToken {
		return model.ActionUpdatePaymentMethod, true
	}

	return "", false
}

// Active returns the last applied billing settings for the tenant.
func (c *BillingCategory) Active(tenantID string) map[string]any {
	return c.state.Snapshot(tenantID)
}
