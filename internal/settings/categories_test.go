package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teresa-solution/settings-management-service/internal/model"
)

func TestPaymentGatewayCategory_Validate(t *testing.T) {
	cat := NewPaymentGatewayCategory()

	vr := cat.Validate(map[string]any{
		"provider": "stripe",
		"enabled":  true,
		"apiKey":   "pk_live_1",
		"secret":   "sk_live_1",
		"currency": "USD",
	})
	assert.True(t, vr.Valid)

	vr = cat.Validate(map[string]any{"provider": "bitcoin"})
	assert.False(t, vr.Valid)

	// Credentials only become mandatory once the gateway is enabled.
	vr = cat.Validate(map[string]any{"provider": "stripe", "enabled": false})
	assert.True(t, vr.Valid)

	vr = cat.Validate(map[string]any{"provider": "stripe", "enabled": true})
	assert.False(t, vr.Valid)

	vr = cat.Validate(map[string]any{"provider": "stripe", "currency": "DOLLARS"})
	assert.False(t, vr.Valid)
}

func TestPaymentGatewayCategory_TestSkippedWhenDisabled(t *testing.T) {
	cat := NewPaymentGatewayCategory()

	res := cat.Test(context.Background(), map[string]any{"provider": "stripe", "enabled": false})
	assert.True(t, res.Success)

	res = cat.Test(context.Background(), map[string]any{"provider": "unknown", "enabled": true})
	assert.False(t, res.Success)
}

func TestEmailCategory_Validate(t *testing.T) {
	cat := NewEmailCategory()

	vr := cat.Validate(map[string]any{
		"host":        "smtp.example.com",
		"port":        587,
		"fromAddress": "noreply@example.com",
	})
	assert.True(t, vr.Valid)

	vr = cat.Validate(map[string]any{"host": "smtp.example.com", "port": 70000, "fromAddress": "noreply@example.com"})
	assert.False(t, vr.Valid)

	vr = cat.Validate(map[string]any{"host": "smtp.example.com", "port": 587, "fromAddress": "not-an-email"})
	assert.False(t, vr.Valid)
}

func TestSecurityCategory_Validate(t *testing.T) {
	cat := NewSecurityCategory()

	vr := cat.Validate(cat.Defaults())
	assert.True(t, vr.Valid, "defaults must validate: %v", vr.Errors)

	vr = cat.Validate(map[string]any{
		"sessionTimeoutMinutes": 2,
		"passwordMinLength":     8,
		"maxLoginAttempts":      5,
	})
	assert.False(t, vr.Valid)
}

func TestBrandingCategory_Validate(t *testing.T) {
	cat := NewBrandingCategory()
	assert.True(t, cat.TenantScoped())
	assert.False(t, NewPlatformBrandingCategory().TenantScoped())

	vr := cat.Validate(map[string]any{
		"companyName":  "Acme",
		"logoUrl":      "https://cdn.example.com/logo.png",
		"primaryColor": "#1a73e8",
	})
	assert.True(t, vr.Valid)

	vr = cat.Validate(map[string]any{"companyName": "Acme", "primaryColor": "blue"})
	assert.False(t, vr.Valid)

	vr = cat.Validate(map[string]any{"companyName": "Acme", "logoUrl": "ftp://nope"})
	assert.False(t, vr.Valid)
}

func TestTeamCategory_Validate(t *testing.T) {
	cat := NewTeamCategory()

	vr := cat.Validate(map[string]any{
		"maxMembers":  25,
		"defaultRole": "agent",
		"departments": []any{"sales", "support"},
	})
	assert.True(t, vr.Valid)

	vr = cat.Validate(map[string]any{"maxMembers": 25, "defaultRole": "agent", "departments": []any{"sales", "sales"}})
	assert.False(t, vr.Valid)

	vr = cat.Validate(map[string]any{"maxMembers": 25, "defaultRole": "owner"})
	assert.False(t, vr.Valid)
}

func TestBillingCategory_Validate(t *testing.T) {
	cat := NewBillingCategory()

	vr := cat.Validate(map[string]any{"plan": "free"})
	assert.True(t, vr.Valid)

	// Paid plans require a payment method.
	vr = cat.Validate(map[string]any{"plan": "pro"})
	assert.False(t, vr.Valid)

	vr = cat.Validate(map[string]any{"plan": "pro", "paymentMethodToken": "pm_123"})
	assert.True(t, vr.Valid)
}

func TestBillingCategory_ClassifyAction(t *testing.T) {
	cat := NewBillingCategory()

	action, ok := cat.ClassifyAction(
		map[string]any{"plan": "free"},
		map[string]any{"plan": "pro"},
	)
	require.True(t, ok)
	assert.Equal(t, model.ActionPlanChange, action)

	action, ok = cat.ClassifyAction(
		map[string]any{"plan": "pro", "cancelAtPeriodEnd": false},
		map[string]any{"plan": "pro", "cancelAtPeriodEnd": true},
	)
	require.True(t, ok)
	assert.Equal(t, model.ActionCancel, action)

	action, ok = cat.ClassifyAction(
		map[string]any{"plan": "pro", "paymentMethodToken": "pm_old"},
		map[string]any{"plan": "pro", "paymentMethodToken": "pm_new"},
	)
	require.True(t, ok)
	assert.Equal(t, model.ActionUpdatePaymentMethod, action)

	_, ok = cat.ClassifyAction(
		map[string]any{"plan": "pro", "billingEmail": "a@example.com"},
		map[string]any{"plan": "pro", "billingEmail": "b@example.com"},
	)
	assert.False(t, ok)
}

func TestAvailabilityCategory_Validate(t *testing.T) {
	cat := NewAvailabilityCategory()

	vr := cat.Validate(cat.Defaults())
	assert.True(t, vr.Valid, "defaults must validate: %v", vr.Errors)

	vr = cat.Validate(map[string]any{"timezone": "Mars/Olympus"})
	assert.False(t, vr.Valid)

	vr = cat.Validate(map[string]any{"timezone": "Europe/Berlin", "opensAt": "25:00"})
	assert.False(t, vr.Valid)

	vr = cat.Validate(map[string]any{"timezone": "Europe/Berlin", "workingDays": []any{"funday"}})
	assert.False(t, vr.Valid)
}

func TestPreferencesCategory_Validate(t *testing.T) {
	cat := NewPreferencesCategory()

	vr := cat.Validate(cat.Defaults())
	assert.True(t, vr.Valid, "defaults must validate: %v", vr.Errors)

	vr = cat.Validate(map[string]any{"language": "en", "theme": "neon", "digestFrequency": "daily"})
	assert.False(t, vr.Valid)
}

func TestIntegrationsCategory_Validate(t *testing.T) {
	cat := NewIntegrationsCategory()

	vr := cat.Validate(map[string]any{"enabled": false})
	assert.True(t, vr.Valid)

	vr = cat.Validate(map[string]any{"enabled": true})
	assert.False(t, vr.Valid)

	vr = cat.Validate(map[string]any{
		"enabled":       true,
		"webhookUrl":    "https://hooks.example.com/crm",
		"webhookSecret": "whsec_1",
	})
	assert.True(t, vr.Valid)
}

func TestCategoryApplyUpdatesRuntimeState(t *testing.T) {
	cat := NewTeamCategory()
	ctx := context.Background()

	require.NoError(t, cat.Apply(ctx, "tenant-1", map[string]any{"maxMembers": 5}))
	require.NoError(t, cat.Apply(ctx, "tenant-2", map[string]any{"maxMembers": 9}))

	assert.Equal(t, map[string]any{"maxMembers": 5}, cat.Active("tenant-1"))
	assert.Equal(t, map[string]any{"maxMembers": 9}, cat.Active("tenant-2"))
	assert.Nil(t, cat.Active("tenant-3"))
}
