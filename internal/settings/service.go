package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/teresa-solution/settings-management-service/internal/audit"
	"github.com/teresa-solution/settings-management-service/internal/crypto"
	"github.com/teresa-solution/settings-management-service/internal/model"
	"github.com/teresa-solution/settings-management-service/internal/monitoring"
)

// Repository is the durable-storage contract of the workflow.
type Repository interface {
	GetByKey(ctx context.Context, key string) (*model.SettingRecord, error)
	Upsert(ctx context.Context, rec *model.SettingRecord) error
}

// Cache is the advisory cache-aside layer. Errors returned here are
// deliberately discarded by the workflow after logging: a cache outage costs
// a storage round-trip, never a failed save.
type Cache interface {
	Get(ctx context.Context, key string) (map[string]any, error)
	Set(ctx context.Context, key string, value map[string]any, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Auditor records save attempts. Log never fails the caller.
type Auditor interface {
	Log(ctx context.Context, entry *model.AuditEntry)
}

// Broadcaster pushes committed changes to live sessions, best-effort.
type Broadcaster interface {
	EmitSettingsUpdate(settingsType string, data any, tenantID, userID string)
}

// RequestMeta carries actor and request attribution for the audit trail.
type RequestMeta struct {
	UserID    string
	IPAddress string
	UserAgent string
}

// Service runs the settings save workflow for every registered category:
// fetch current, validate, optional connectivity test, persist, invalidate
// cache, apply, broadcast, audit. Steps are strictly sequential within one
// invocation; concurrent saves to the same key are last-write-wins.
type Service struct {
	repo       Repository
	cache      Cache
	audit      Auditor
	hub        Broadcaster
	enc        *crypto.Encryptor
	categories map[string]Category
}

// NewService wires the workflow dependencies. Categories are registered
// separately via Register.
func NewService(repo Repository, cache Cache, auditor Auditor, hub Broadcaster, enc *crypto.Encryptor) *Service {
	return &Service{
		repo:       repo,
		cache:      cache,
		audit:      auditor,
		hub:        hub,
		enc:        enc,
		categories: make(map[string]Category),
	}
}

// Register adds a category. Registering the same name twice is a wiring bug
// and panics at startup.
func (s *Service) Register(cat Category) {
	if _, dup := s.categories[cat.Name()]; dup {
		panic(fmt.Sprintf("settings: category %q registered twice", cat.Name()))
	}
	s.categories[cat.Name()] = cat
}

// Categories lists the registered category names.
func (s *Service) Categories() []string {
	names := make([]string, 0, len(s.categories))
	for name := range s.categories {
		names = append(names, name)
	}
	return names
}

// Category returns the registered category by name.
func (s *Service) Category(name string) (Category, error) {
	cat, ok := s.categories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, name)
	}
	return cat, nil
}

// Get returns the current plaintext value for a category, cache-aside: cache
// first, then storage with cache repopulation. A record that was never saved
// yields the category defaults, never nil.
func (s *Service) Get(ctx context.Context, categoryName, tenantID string) (map[string]any, error) {
	cat, err := s.Category(categoryName)
	if err != nil {
		return nil, err
	}
	key, err := storageKey(cat, tenantID)
	if err != nil {
		return nil, err
	}

	current, existed, err := s.loadCurrent(ctx, cat, key)
	if err != nil {
		return nil, err
	}
	if !existed {
		return cat.Defaults(), nil
	}
	return current, nil
}

// Save runs the full workflow and returns the committed plaintext value.
func (s *Service) Save(ctx context.Context, categoryName, tenantID string, value map[string]any, meta RequestMeta) (map[string]any, error) {
	cat, err := s.Category(categoryName)
	if err != nil {
		return nil, err
	}
	key, err := storageKey(cat, tenantID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		monitoring.SaveDuration.Observe(time.Since(start).Seconds())
	}()

	// Step 1: fetch current as the diff baseline.
	current, existed, err := s.loadCurrent(ctx, cat, key)
	if err != nil {
		s.auditFailure(ctx, cat, tenantID, model.ActionUpdate, meta, err)
		return nil, err
	}
	action := model.ActionUpdate
	if !existed {
		action = model.ActionCreate
		current = map[string]any{}
	}
	if classifier, ok := cat.(ActionClassifier); ok && existed {
		if refined, ok := classifier.ClassifyAction(current, value); ok {
			action = refined
		}
	}

	// Step 2: validate. Nothing downstream runs on failure.
	if vr := cat.Validate(value); !vr.Valid {
		verr := &ValidationError{Errors: vr.Errors}
		s.auditFailure(ctx, cat, tenantID, action, meta, verr)
		return nil, verr
	}

	// Step 3: optional connectivity test against the external provider.
	if tester, ok := cat.(Tester); ok {
		if res := tester.Test(ctx, value); !res.Success {
			terr := &TestError{Message: res.Message}
			s.auditFailure(ctx, cat, tenantID, action, meta, terr)
			return nil, terr
		}
	}

	// Step 4: persist, with sensitive fields encrypted at rest.
	stored, err := s.encryptSensitive(cat, value)
	if err != nil {
		s.auditFailure(ctx, cat, tenantID, action, meta, err)
		return nil, err
	}
	rec := &model.SettingRecord{
		Key:       key,
		Category:  cat.Name(),
		Value:     stored,
		UpdatedBy: meta.UserID,
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		s.auditFailure(ctx, cat, tenantID, action, meta, err)
		return nil, err
	}

	// Step 5: invalidate before applying, so concurrent readers see the old
	// cached value or go to storage, never a stale entry past this point.
	// Cache errors are discarded by design.
	if err := s.cache.Invalidate(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache invalidation after save failed")
	}

	// Step 6: category side effect. Persistence is not rolled back when this
	// fails; see ExecuteWithRollback for operations needing compensation.
	if err := cat.Apply(ctx, tenantID, value); err != nil {
		err = fmt.Errorf("settings: apply failed for %s: %w", cat.Name(), err)
		s.auditFailure(ctx, cat, tenantID, action, meta, err)
		return nil, err
	}

	// Step 7: best-effort push of the sanitized value to live sessions.
	// Tenant-scoped changes go to the tenant room; platform-wide changes go
	// to every session, regardless of which tenant the saving admin belongs
	// to.
	emitTenant := ""
	if cat.TenantScoped() {
		emitTenant = tenantID
	}
	s.hub.EmitSettingsUpdate(cat.Name(), audit.Sanitize(value), emitTenant, "")

	// Step 8: audit the committed change.
	changes := audit.SanitizeChanges(audit.CalculateDiff(current, value))
	s.audit.Log(ctx, &model.AuditEntry{
		UserID:       meta.UserID,
		TenantID:     tenantID,
		SettingsType: cat.Name(),
		Action:       action,
		Changes:      changes,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		Status:       model.StatusSuccess,
	})
	monitoring.SettingsSaves.WithLabelValues(cat.Name(), "success").Inc()

	return value, nil
}

// TestConnection runs the category's connectivity check outside the save
// workflow. The attempt is audited either way; a failing check is reported in
// the result, not as an error.
func (s *Service) TestConnection(ctx context.Context, categoryName, tenantID string, value map[string]any, meta RequestMeta) (TestResult, error) {
	cat, err := s.Category(categoryName)
	if err != nil {
		return TestResult{}, err
	}
	tester, ok := cat.(Tester)
	if !ok {
		return TestResult{}, fmt.Errorf("%w: %s", ErrTestUnsupported, categoryName)
	}

	res := tester.Test(ctx, value)
	status := model.StatusSuccess
	errMsg := ""
	if !res.Success {
		status = model.StatusFailed
		errMsg = res.Message
	}
	s.audit.Log(ctx, &model.AuditEntry{
		UserID:       meta.UserID,
		TenantID:     tenantID,
		SettingsType: cat.Name(),
		Action:       model.ActionTest,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		Status:       status,
		ErrorMessage: errMsg,
	})
	return res, nil
}

// loadCurrent is the cache-aside read: cache hit decrypts and returns;
// otherwise storage is consulted and the cache repopulated with the at-rest
// form. existed reports whether a record has ever been saved.
func (s *Service) loadCurrent(ctx context.Context, cat Category, key string) (map[string]any, bool, error) {
	if cached, err := s.cache.Get(ctx, key); err == nil && cached != nil {
		value, derr := s.decryptSensitive(cat, cached)
		if derr != nil {
			return nil, false, derr
		}
		return value, true, nil
	}

	rec, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if rec == nil {
		return nil, false, nil
	}

	if err := s.cache.Set(ctx, key, rec.Value, 0); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache repopulation failed")
	}

	value, err := s.decryptSensitive(cat, rec.Value)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *Service) encryptSensitive(cat Category, value map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(value))
	for k, v := range value {
		out[k] = v
	}
	for _, field := range cat.SensitiveFields() {
		plain, ok := out[field].(string)
		if !ok || plain == "" {
			continue
		}
		token, err := s.enc.Encrypt(plain)
		if err != nil {
			return nil, fmt.Errorf("settings: encrypting field %s: %w", field, err)
		}
		out[field] = token
	}
	return out, nil
}

func (s *Service) decryptSensitive(cat Category, stored map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(stored))
	for k, v := range stored {
		out[k] = v
	}
	for _, field := range cat.SensitiveFields() {
		token, ok := out[field].(string)
		if !ok || token == "" {
			continue
		}
		plain, err := s.enc.Decrypt(token)
		if err != nil {
			return nil, fmt.Errorf("settings: decrypting field %s: %w", field, err)
		}
		out[field] = plain
	}
	return out, nil
}

func (s *Service) auditFailure(ctx context.Context, cat Category, tenantID string, action model.AuditAction, meta RequestMeta, cause error) {
	s.audit.Log(ctx, &model.AuditEntry{
		UserID:       meta.UserID,
		TenantID:     tenantID,
		SettingsType: cat.Name(),
		Action:       action,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		Status:       model.StatusFailed,
		ErrorMessage: cause.Error(),
	})
	monitoring.SettingsSaves.WithLabelValues(cat.Name(), "failed").Inc()
}

// storageKey partitions records per tenant for tenant-scoped categories and
// rejects a missing tenant id for them.
func storageKey(cat Category, tenantID string) (string, error) {
	if !cat.TenantScoped() {
		return cat.Name(), nil
	}
	if tenantID == "" {
		return "", &ValidationError{Errors: []string{"tenant id is required for " + cat.Name() + " settings"}}
	}
	return cat.Name() + ":tenant:" + tenantID, nil
}

// ExecuteWithRollback runs op and, if it fails, runs compensate before
// returning the original error. Categories whose Apply has external side
// effects can use it to keep persistence and side effects consistent; the
// base save sequence does not.
func ExecuteWithRollback(ctx context.Context, op func(context.Context) error, compensate func(context.Context) error) error {
	err := op(ctx)
	if err == nil {
		return nil
	}
	if cerr := compensate(ctx); cerr != nil {
		log.Error().Err(cerr).Msg("Compensating action failed after operation error")
	}
	return err
}
