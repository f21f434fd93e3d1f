package settings

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teresa-solution/settings-management-service/internal/audit"
	"github.com/teresa-solution/settings-management-service/internal/crypto"
	"github.com/teresa-solution/settings-management-service/internal/model"
)

type fakeRepo struct {
	records    map[string]*model.SettingRecord
	failUpsert error
	failGet    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]*model.SettingRecord)}
}

func (f *fakeRepo) GetByKey(ctx context.Context, key string) (*model.SettingRecord, error) {
	if f.failGet != nil {
		return nil, f.failGet
	}
	rec, ok := f.records[key]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (f *fakeRepo) Upsert(ctx context.Context, rec *model.SettingRecord) error {
	if f.failUpsert != nil {
		return f.failUpsert
	}
	rec.UpdatedAt = time.Now()
	stored := *rec
	f.records[rec.Key] = &stored
	return nil
}

type fakeCache struct {
	entries     map[string]map[string]any
	failWith    error
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]map[string]any)}
}

func (f *fakeCache) Get(ctx context.Context, key string) (map[string]any, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.entries[key], nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value map[string]any, ttl time.Duration) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.entries[key] = value
	return nil
}

func (f *fakeCache) Invalidate(ctx context.Context, key string) error {
	f.invalidated = append(f.invalidated, key)
	if f.failWith != nil {
		return f.failWith
	}
	delete(f.entries, key)
	for k := range f.entries {
		if strings.HasPrefix(k, key+":") {
			delete(f.entries, k)
		}
	}
	return nil
}

type recordingAuditor struct {
	entries []*model.AuditEntry
}

func (r *recordingAuditor) Log(ctx context.Context, entry *model.AuditEntry) {
	r.entries = append(r.entries, entry)
}

type recordingBroadcaster struct {
	emitted []broadcastCall
}

type broadcastCall struct {
	settingsType string
	data         any
	tenantID     string
}

func (r *recordingBroadcaster) EmitSettingsUpdate(settingsType string, data any, tenantID, userID string) {
	r.emitted = append(r.emitted, broadcastCall{settingsType: settingsType, data: data, tenantID: tenantID})
}

// scriptedCategory records the order of workflow callbacks and returns
// scripted results.
type scriptedCategory struct {
	name         string
	tenantScoped bool
	sensitive    []string
	validateRes  ValidationResult
	testRes      *TestResult
	applyErr     error
	calls        []string
}

func (c *scriptedCategory) Name() string              { return c.name }
func (c *scriptedCategory) TenantScoped() bool        { return c.tenantScoped }
func (c *scriptedCategory) SensitiveFields() []string { return c.sensitive }

func (c *scriptedCategory) Defaults() map[string]any {
	return map[string]any{"enabled": false}
}

func (c *scriptedCategory) Validate(value map[string]any) ValidationResult {
	c.calls = append(c.calls, "validate")
	return c.validateRes
}

func (c *scriptedCategory) Apply(ctx context.Context, tenantID string, value map[string]any) error {
	c.calls = append(c.calls, "apply")
	return c.applyErr
}

func (c *scriptedCategory) Test(ctx context.Context, value map[string]any) TestResult {
	c.calls = append(c.calls, "test")
	if c.testRes == nil {
		return TestResult{Success: true}
	}
	return *c.testRes
}

type fixture struct {
	svc   *Service
	repo  *fakeRepo
	cache *fakeCache
	audit *recordingAuditor
	hub   *recordingBroadcaster
}

func newFixture(t *testing.T, cats ...Category) *fixture {
	t.Helper()
	enc, err := crypto.New("workflow-test-secret")
	require.NoError(t, err)

	f := &fixture{
		repo:  newFakeRepo(),
		cache: newFakeCache(),
		audit: &recordingAuditor{},
		hub:   &recordingBroadcaster{},
	}
	f.svc = NewService(f.repo, f.cache, f.audit, f.hub, enc)
	for _, cat := range cats {
		f.svc.Register(cat)
	}
	return f
}

func meta() RequestMeta {
	return RequestMeta{UserID: "admin-1", IPAddress: "10.0.0.1", UserAgent: "test"}
}

func TestSave_Success(t *testing.T) {
	cat := &scriptedCategory{
		name:        "gateway",
		sensitive:   []string{"secret"},
		validateRes: ValidationResult{Valid: true},
		testRes:     &TestResult{Success: true},
	}
	f := newFixture(t, cat)

	value := map[string]any{"enabled": true, "secret": "sk_live_123"}
	got, err := f.svc.Save(context.Background(), "gateway", "", value, meta())
	require.NoError(t, err)
	assert.Equal(t, value, got)

	// Strict workflow order: validate, then test, then apply.
	assert.Equal(t, []string{"validate", "test", "apply"}, cat.calls)

	// Secrets are encrypted at rest, never stored as plaintext.
	rec := f.repo.records["gateway"]
	require.NotNil(t, rec)
	storedSecret := rec.Value["secret"].(string)
	assert.NotEqual(t, "sk_live_123", storedSecret)
	assert.Len(t, strings.Split(storedSecret, ":"), 3)

	// Cache invalidated for the affected key.
	assert.Equal(t, []string{"gateway"}, f.cache.invalidated)

	// Broadcast carries the sanitized value.
	require.Len(t, f.hub.emitted, 1)
	emitted := f.hub.emitted[0].data.(map[string]any)
	assert.Equal(t, audit.RedactedValue, emitted["secret"])

	// Exactly one audit entry, status success, action create.
	require.Len(t, f.audit.entries, 1)
	entry := f.audit.entries[0]
	assert.Equal(t, model.StatusSuccess, entry.Status)
	assert.Equal(t, model.ActionCreate, entry.Action)
	assert.Equal(t, "admin-1", entry.UserID)
	// The diff redacts the secret but records that it changed.
	assert.Equal(t, audit.RedactedValue, entry.Changes["secret"].New)
	assert.Equal(t, true, entry.Changes["enabled"].New)
}

func TestSave_SecondSaveIsUpdateWithDiff(t *testing.T) {
	cat := &scriptedCategory{name: "gateway", validateRes: ValidationResult{Valid: true}, testRes: &TestResult{Success: true}}
	f := newFixture(t, cat)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, "gateway", "", map[string]any{"enabled": false, "timeout": 30}, meta())
	require.NoError(t, err)

	_, err = f.svc.Save(ctx, "gateway", "", map[string]any{"enabled": true, "timeout": 30}, meta())
	require.NoError(t, err)

	require.Len(t, f.audit.entries, 2)
	entry := f.audit.entries[1]
	assert.Equal(t, model.ActionUpdate, entry.Action)
	assert.Equal(t, model.FieldChange{Old: false, New: true}, entry.Changes["enabled"])
	// Unchanged fields are omitted from the diff.
	_, present := entry.Changes["timeout"]
	assert.False(t, present)
}

func TestSave_ValidationFailureShortCircuits(t *testing.T) {
	cat := &scriptedCategory{
		name:        "gateway",
		validateRes: ValidationResult{Valid: false, Errors: []string{"provider is required"}},
		testRes:     &TestResult{Success: true},
	}
	f := newFixture(t, cat)

	_, err := f.svc.Save(context.Background(), "gateway", "", map[string]any{}, meta())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"provider is required"}, verr.Errors)

	// The test step is never invoked after a failed validation.
	assert.Equal(t, []string{"validate"}, cat.calls)
	assert.Empty(t, f.repo.records)
	assert.Empty(t, f.hub.emitted)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, model.StatusFailed, f.audit.entries[0].Status)
	assert.Contains(t, f.audit.entries[0].ErrorMessage, "provider is required")
}

func TestSave_TestFailurePreventsPersistence(t *testing.T) {
	cat := &scriptedCategory{
		name:        "gateway",
		validateRes: ValidationResult{Valid: true},
		testRes:     &TestResult{Success: false, Message: "credentials rejected"},
	}
	f := newFixture(t, cat)

	_, err := f.svc.Save(context.Background(), "gateway", "", map[string]any{"enabled": true}, meta())

	var terr *TestError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "credentials rejected", terr.Message)

	assert.Equal(t, []string{"validate", "test"}, cat.calls)
	assert.Empty(t, f.repo.records)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, model.StatusFailed, f.audit.entries[0].Status)
}

func TestSave_PersistenceFailureIsAuditedAndReturned(t *testing.T) {
	cat := &scriptedCategory{name: "gateway", validateRes: ValidationResult{Valid: true}, testRes: &TestResult{Success: true}}
	f := newFixture(t, cat)
	f.repo.failUpsert = errors.New("storage unavailable")

	_, err := f.svc.Save(context.Background(), "gateway", "", map[string]any{"enabled": true}, meta())
	require.Error(t, err)

	require.Len(t, f.audit.entries, 1)
	entry := f.audit.entries[0]
	assert.Equal(t, model.StatusFailed, entry.Status)
	assert.Contains(t, entry.ErrorMessage, "storage unavailable")

	// Apply and broadcast never ran.
	assert.Equal(t, []string{"validate", "test"}, cat.calls)
	assert.Empty(t, f.hub.emitted)
}

func TestSave_ApplyFailureKeepsPersistedValue(t *testing.T) {
	cat := &scriptedCategory{
		name:        "gateway",
		validateRes: ValidationResult{Valid: true},
		testRes:     &TestResult{Success: true},
		applyErr:    errors.New("provider refresh failed"),
	}
	f := newFixture(t, cat)

	_, err := f.svc.Save(context.Background(), "gateway", "", map[string]any{"enabled": true}, meta())
	require.Error(t, err)

	// No automatic rollback: the record stays persisted, the failure is
	// audited, and nothing was broadcast.
	assert.NotNil(t, f.repo.records["gateway"])
	assert.Empty(t, f.hub.emitted)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, model.StatusFailed, f.audit.entries[0].Status)
}

func TestSave_CacheOutageDoesNotFailSave(t *testing.T) {
	cat := &scriptedCategory{name: "gateway", validateRes: ValidationResult{Valid: true}, testRes: &TestResult{Success: true}}
	f := newFixture(t, cat)
	f.cache.failWith = errors.New("connection refused")

	_, err := f.svc.Save(context.Background(), "gateway", "", map[string]any{"enabled": true}, meta())
	assert.NoError(t, err)
	assert.NotNil(t, f.repo.records["gateway"])
}

func TestSave_TenantScopedRequiresTenantID(t *testing.T) {
	cat := &scriptedCategory{name: "branding", tenantScoped: true, validateRes: ValidationResult{Valid: true}}
	f := newFixture(t, cat)

	_, err := f.svc.Save(context.Background(), "branding", "", map[string]any{}, meta())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, cat.calls)
}

func TestSave_TenantScopedKeyPartitioning(t *testing.T) {
	cat := &scriptedCategory{name: "branding", tenantScoped: true, validateRes: ValidationResult{Valid: true}}
	f := newFixture(t, cat)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, "branding", "tenant-1", map[string]any{"companyName": "Acme"}, meta())
	require.NoError(t, err)
	_, err = f.svc.Save(ctx, "branding", "tenant-2", map[string]any{"companyName": "Globex"}, meta())
	require.NoError(t, err)

	assert.Equal(t, "Acme", f.repo.records["branding:tenant:tenant-1"].Value["companyName"])
	assert.Equal(t, "Globex", f.repo.records["branding:tenant:tenant-2"].Value["companyName"])

	// The broadcast is scoped to the tenant room.
	require.Len(t, f.hub.emitted, 2)
	assert.Equal(t, "tenant-1", f.hub.emitted[0].tenantID)
}

func TestSave_PlatformCategoryBroadcastsGlobally(t *testing.T) {
	cat := &scriptedCategory{name: "email", validateRes: ValidationResult{Valid: true}}
	f := newFixture(t, cat)

	// The saving admin's token carries a tenant, but a platform-wide change
	// must reach every session, not just that tenant's room.
	_, err := f.svc.Save(context.Background(), "email", "tenant-1", map[string]any{"host": "smtp.example.com"}, meta())
	require.NoError(t, err)

	require.Len(t, f.hub.emitted, 1)
	assert.Equal(t, "", f.hub.emitted[0].tenantID)
}

func TestSave_UnknownCategory(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Save(context.Background(), "nope", "", map[string]any{}, meta())
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestGet_DefaultsWhenNeverSaved(t *testing.T) {
	cat := &scriptedCategory{name: "gateway", validateRes: ValidationResult{Valid: true}}
	f := newFixture(t, cat)

	got, err := f.svc.Get(context.Background(), "gateway", "")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"enabled": false}, got)
}

func TestGet_CacheAsideRepopulation(t *testing.T) {
	cat := &scriptedCategory{name: "gateway", validateRes: ValidationResult{Valid: true}, testRes: &TestResult{Success: true}}
	f := newFixture(t, cat)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, "gateway", "", map[string]any{"enabled": true}, meta())
	require.NoError(t, err)

	// Save invalidated the cache; the first read repopulates it.
	_, cached := f.cache.entries["gateway"]
	assert.False(t, cached)

	got, err := f.svc.Get(ctx, "gateway", "")
	require.NoError(t, err)
	assert.Equal(t, true, got["enabled"])

	_, cached = f.cache.entries["gateway"]
	assert.True(t, cached)

	// A subsequent read is served from cache even if storage disappears.
	f.repo.failGet = errors.New("storage down")
	got, err = f.svc.Get(ctx, "gateway", "")
	require.NoError(t, err)
	assert.Equal(t, true, got["enabled"])
}

func TestGet_DecryptsSensitiveFields(t *testing.T) {
	cat := &scriptedCategory{
		name:        "gateway",
		sensitive:   []string{"secret"},
		validateRes: ValidationResult{Valid: true},
		testRes:     &TestResult{Success: true},
	}
	f := newFixture(t, cat)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, "gateway", "", map[string]any{"secret": "sk_live_123"}, meta())
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, "gateway", "")
	require.NoError(t, err)
	assert.Equal(t, "sk_live_123", got["secret"])
}

func TestTestConnection_AuditsAttempt(t *testing.T) {
	cat := &scriptedCategory{
		name:        "gateway",
		validateRes: ValidationResult{Valid: true},
		testRes:     &TestResult{Success: false, Message: "credentials rejected"},
	}
	f := newFixture(t, cat)

	res, err := f.svc.TestConnection(context.Background(), "gateway", "", map[string]any{}, meta())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "credentials rejected", res.Message)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, model.ActionTest, f.audit.entries[0].Action)
	assert.Equal(t, model.StatusFailed, f.audit.entries[0].Status)
}

func TestTestConnection_Unsupported(t *testing.T) {
	cat := &scriptedCategory{name: "prefs", validateRes: ValidationResult{Valid: true}}
	f := newFixture(t, cat)

	// scriptedCategory always implements Test; use a category without it.
	f.svc.Register(NewPreferencesCategory())
	_, err := f.svc.TestConnection(context.Background(), "preferences", "tenant-1", map[string]any{}, meta())
	assert.ErrorIs(t, err, ErrTestUnsupported)
}

func TestExecuteWithRollback(t *testing.T) {
	ctx := context.Background()

	var compensated bool
	err := ExecuteWithRollback(ctx,
		func(context.Context) error { return errors.New("boom") },
		func(context.Context) error { compensated = true; return nil },
	)
	assert.Error(t, err)
	assert.True(t, compensated)

	compensated = false
	err = ExecuteWithRollback(ctx,
		func(context.Context) error { return nil },
		func(context.Context) error { compensated = true; return nil },
	)
	assert.NoError(t, err)
	assert.False(t, compensated)
}
