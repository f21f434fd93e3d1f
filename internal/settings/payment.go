package settings

import (
	"context"

	"github.com/teresa-solution/settings-management-service/internal/probe"
)

// Gateway health-check endpoints probed before committing credentials.
var gatewayProbes = map[string]struct {
	url      string
	oauth    bool
	tokenURL string
}{
	"stripe":   {url: "https://api.stripe.com/v1/balance"},
	"paypal":   {oauth: true, tokenURL: "https://api-m.paypal.com/v1/oauth2/token"},
	"razorpay": {url: "https://api.razorpay.com/v1/payments?count=1"},
}

// PaymentGatewayCategory holds the platform-wide payment provider
// configuration. Saves are gated on a live connectivity check against the
// selected provider.
type PaymentGatewayCategory struct {
	state *runtimeState
}

// NewPaymentGatewayCategory creates the payment_gateway category.
func NewPaymentGatewayCategory() *PaymentGatewayCategory {
	return &PaymentGatewayCategory{state: newRuntimeState()}
}

func (c *PaymentGatewayCategory) Name() string       { return "payment_gateway" }
func (c *PaymentGatewayCategory) TenantScoped() bool { return false }

func (c *PaymentGatewayCategory) Defaults() map[string]any {
	return map[string]any{
		"provider": "stripe",
		"enabled":  false,
		"currency": "USD",
		"apiKey":   "",
		"secret":   "",
	}
}

func (c *PaymentGatewayCategory) SensitiveFields() []string {
	return []string{"apiKey", "secret"}
}

func (c *PaymentGatewayCategory) Validate(value map[string]any) ValidationResult {
	var errs []string

	requireOneOf(&errs, value, "provider", "stripe", "paypal", "razorpay")

	enabled, _ := boolField(value, "enabled")
	if enabled {
		requireString(&errs, value, "apiKey")
		requireString(&errs, value, "secret")
	}
	if currency, ok := stringField(value, "currency"); ok && currency != "" && len(currency) != 3 {
		errs = append(errs, "currency must be a 3-letter ISO code")
	}
	checkHTTPURL(&errs, value, "webhookUrl", false)

	return invalid(errs)
}

func (c *PaymentGatewayCategory) Apply(ctx context.Context, tenantID string, value map[string]any) error {
	c.state.store(tenantID, value)
	return nil
}

// Test probes the selected provider with the supplied credentials. Disabled
// configurations skip the probe so operators can stage credentials.
func (c *PaymentGatewayCategory) Test(ctx context.Context, value map[string]any) TestResult {
	enabled, _ := boolField(value, "enabled")
	if !enabled {
		return TestResult{Success: true, Message: "gateway disabled, probe skipped"}
	}

	provider, _ := stringField(value, "provider")
	gw, known := gatewayProbes[provider]
	if !known {
		return TestResult{Success: false, Message: "unknown provider: " + provider}
	}

	apiKey, _ := stringField(value, "apiKey")
	secret, _ := stringField(value, "secret")

	var res probe.Result
	if gw.oauth {
		res = probe.OAuthToken(ctx, gw.tokenURL, apiKey, secret)
	} else {
		res = probe.Endpoint(ctx, gw.url, map[string]string{
			"Authorization": "Bearer " + secret,
		})
	}
	return TestResult{Success: res.Success, Message: res.Message}
}

// Active returns the last applied gateway configuration.
func (c *PaymentGatewayCategory) Active() map[string]any {
	return c.state.Snapshot("")
}
