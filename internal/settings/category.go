package settings

import (
	"context"
	"sync"

	"github.com/teresa-solution/settings-management-service/internal/model"
)

// ValidationResult is the outcome of a category rule check.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

func valid() ValidationResult {
	return ValidationResult{Valid: true}
}

func invalid(errs []string) ValidationResult {
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// TestResult is the outcome of a live connectivity check against an external
// provider. Test methods report failure as a result, not an error; the save
// workflow escalates a failing result to an abort.
type TestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Category is the capability contract a settings category supplies to the
// generic save workflow. Implementations hold the per-category business
// rules; the workflow owns sequencing, caching, encryption, audit and
// broadcast.
type Category interface {
	// Name is the category tag and the storage/cache key stem.
	Name() string
	// TenantScoped reports whether records are partitioned per tenant.
	TenantScoped() bool
	// Defaults is returned by the read path when no record was ever saved.
	Defaults() map[string]any
	// SensitiveFields lists field names encrypted at rest.
	SensitiveFields() []string
	// Validate checks category rules on a plaintext value.
	Validate(value map[string]any) ValidationResult
	// Apply performs the in-process side effect after persistence, e.g.
	// refreshing a provider configuration.
	Apply(ctx context.Context, tenantID string, value map[string]any) error
}

// Tester is implemented by categories that support a live connectivity check
// before committing (payment gateways, email).
type Tester interface {
	Test(ctx context.Context, value map[string]any) TestResult
}

// ActionClassifier lets a category refine the audit action recorded for an
// update, e.g. billing distinguishing plan changes from ordinary edits.
type ActionClassifier interface {
	ClassifyAction(oldValue, newValue map[string]any) (model.AuditAction, bool)
}

// runtimeState holds the last applied value per tenant ("" for platform
// scope). Categories use it as the in-memory configuration their providers
// read.
type runtimeState struct {
	mu     sync.RWMutex
	values map[string]map[string]any
}

func newRuntimeState() *runtimeState {
	return &runtimeState{values: make(map[string]map[string]any)}
}

func (r *runtimeState) store(tenantID string, value map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[tenantID] = value
}

// Snapshot returns the last applied value for the scope, or nil.
func (r *runtimeState) Snapshot(tenantID string) map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.values[tenantID]
}
