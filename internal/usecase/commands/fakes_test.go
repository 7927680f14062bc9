//go:build unit

package commands_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"possync/internal/domain/action"
	"possync/internal/domain/device"
	"possync/internal/infra"
	"possync/internal/pkg/clock"
	"possync/internal/pkg/config"
	"possync/internal/usecase/commands"
	"possync/internal/usecase/queries"
	"possync/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeDeviceRepo struct {
	devices map[uuid.UUID]*device.Device
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{devices: make(map[uuid.UUID]*device.Device)}
}

func (r *fakeDeviceRepo) Create(_ context.Context, d *device.Device) error {
	r.devices[d.ID()] = d
	return nil
}

func (r *fakeDeviceRepo) Save(_ context.Context, d *device.Device) error {
	r.devices[d.ID()] = d
	return nil
}

func (r *fakeDeviceRepo) FindByID(_ context.Context, id uuid.UUID) (*device.Device, error) {
	d, ok := r.devices[id]
	if !ok {
		return nil, infra.WrapRepoErr("offline device not found", nil, infra.KindNotFound)
	}
	return d, nil
}

func (r *fakeDeviceRepo) FindOwned(_ context.Context, businessID, userID, id uuid.UUID) (*device.Device, error) {
	d, ok := r.devices[id]
	if !ok || !d.IsOwnedBy(businessID, userID) {
		return nil, infra.WrapRepoErr("offline device not found", nil, infra.KindNotFound)
	}
	return d, nil
}

func (r *fakeDeviceRepo) CountActive(_ context.Context, businessID uuid.UUID) (int, error) {
	count := 0
	for _, d := range r.devices {
		if d.BusinessID() == businessID && d.IsActive() {
			count++
		}
	}
	return count, nil
}

type fakeActionRepo struct {
	byID       map[uuid.UUID]*action.Action
	byChecksum map[string]*action.Action
}

func newFakeActionRepo() *fakeActionRepo {
	return &fakeActionRepo{
		byID:       make(map[uuid.UUID]*action.Action),
		byChecksum: make(map[string]*action.Action),
	}
}

func checksumKey(businessID, deviceID uuid.UUID, checksum string) string {
	return businessID.String() + "|" + deviceID.String() + "|" + checksum
}

func (r *fakeActionRepo) Insert(_ context.Context, a *action.Action) (bool, error) {
	key := checksumKey(a.BusinessID(), a.DeviceID(), a.Checksum())
	if _, exists := r.byChecksum[key]; exists {
		return false, nil
	}
	r.byID[a.ID()] = a
	r.byChecksum[key] = a
	return true, nil
}

func (r *fakeActionRepo) FindByChecksum(_ context.Context, businessID, deviceID uuid.UUID, checksum string) (*action.Action, error) {
	a, ok := r.byChecksum[checksumKey(businessID, deviceID, checksum)]
	if !ok {
		return nil, infra.WrapRepoErr("offline action not found", nil, infra.KindNotFound)
	}
	return a, nil
}

func (r *fakeActionRepo) FindByID(_ context.Context, businessID, id uuid.UUID) (*action.Action, error) {
	a, ok := r.byID[id]
	if !ok || a.BusinessID() != businessID {
		return nil, infra.WrapRepoErr("offline action not found", nil, infra.KindNotFound)
	}
	return a, nil
}

func (r *fakeActionRepo) SaveOutcome(_ context.Context, a *action.Action) error {
	if _, ok := r.byID[a.ID()]; !ok {
		return infra.WrapRepoErr("offline action not found", nil, infra.KindNotFound)
	}
	r.byID[a.ID()] = a
	return nil
}

func (r *fakeActionRepo) PendingSales(_ context.Context, deviceID uuid.UUID) (*shared.PendingSaleStats, error) {
	stats := &shared.PendingSaleStats{}
	for _, a := range r.byID {
		if a.DeviceID() != deviceID || a.Status() != action.StatusPending || a.ActionType() != action.TypeSaleComplete {
			continue
		}
		stats.Count++
		var payload action.SalePayload
		if err := json.Unmarshal(a.Payload(), &payload); err != nil {
			continue
		}
		stats.Value += payload.Total()
	}
	return stats, nil
}

type fakeSubscriptions struct {
	info shared.SubscriptionInfo
}

func (s *fakeSubscriptions) Get(_ context.Context, _ uuid.UUID) (*shared.SubscriptionInfo, error) {
	info := s.info
	return &info, nil
}

type fakePermissions struct {
	access map[uuid.UUID]*shared.UserAccess
}

func (p *fakePermissions) ResolveUserAccess(_ context.Context, userID, _ uuid.UUID) (*shared.UserAccess, error) {
	access, ok := p.access[userID]
	if !ok {
		return nil, infra.WrapRepoErr("membership not active", nil, infra.KindNotFound)
	}
	return access, nil
}

type fakeSettings struct {
	policies shared.OfflinePolicies
}

func (s *fakeSettings) Get(_ context.Context, _ uuid.UUID) (*shared.OfflinePolicies, error) {
	policies := s.policies
	return &policies, nil
}

type fakeCatalog struct {
	prices map[uuid.UUID]float64
}

func (c *fakeCatalog) CurrentPrices(_ context.Context, _ uuid.UUID, variantIDs []uuid.UUID) (map[uuid.UUID]float64, error) {
	out := make(map[uuid.UUID]float64)
	for _, id := range variantIDs {
		if price, ok := c.prices[id]; ok {
			out[id] = price
		}
	}
	return out, nil
}

type fakeSaleWriter struct {
	err     error
	outcome shared.WriteOutcome
	calls   []action.SalePayload
}

func (w *fakeSaleWriter) CompleteSale(_ context.Context, _, _ uuid.UUID, payload action.SalePayload) (*shared.WriteOutcome, error) {
	if w.err != nil {
		return nil, w.err
	}
	w.calls = append(w.calls, payload)
	out := w.outcome
	if out.RecordID == uuid.Nil && !out.ApprovalRequired {
		out.RecordID = uuid.New()
	}
	return &out, nil
}

type fakePurchaseWriter struct {
	err   error
	calls []action.PurchasePayload
}

func (w *fakePurchaseWriter) CreateDraft(_ context.Context, _, _ uuid.UUID, payload action.PurchasePayload) (*shared.WriteOutcome, error) {
	if w.err != nil {
		return nil, w.err
	}
	w.calls = append(w.calls, payload)
	return &shared.WriteOutcome{RecordID: uuid.New()}, nil
}

type fakeStockWriter struct {
	err     error
	outcome shared.WriteOutcome
	calls   []action.StockAdjustmentPayload
}

func (w *fakeStockWriter) Adjust(_ context.Context, _, _ uuid.UUID, payload action.StockAdjustmentPayload) (*shared.WriteOutcome, error) {
	if w.err != nil {
		return nil, w.err
	}
	w.calls = append(w.calls, payload)
	out := w.outcome
	if out.RecordID == uuid.Nil && !out.ApprovalRequired {
		out.RecordID = payload.VariantID
	}
	return &out, nil
}

type fakeCacheBuilder struct {
	builds int
}

func (b *fakeCacheBuilder) Build(_ context.Context, _, _, _ uuid.UUID) (*queries.CacheExtract, error) {
	b.builds++
	return &queries.CacheExtract{}, nil
}

type fakeAudit struct {
	events []shared.AuditEvent
}

func (a *fakeAudit) LogEvent(_ context.Context, event shared.AuditEvent) {
	a.events = append(a.events, event)
}

func (a *fakeAudit) typesSeen() []string {
	types := make([]string, len(a.events))
	for i, e := range a.events {
		types[i] = e.Type
	}
	return types
}

type fakeApprovals struct {
	views map[uuid.UUID]*shared.ApprovalView
}

func (f *fakeApprovals) Get(_ context.Context, _, approvalID uuid.UUID) (*shared.ApprovalView, error) {
	view, ok := f.views[approvalID]
	if !ok {
		return nil, infra.WrapRepoErr("approval request not found", nil, infra.KindNotFound)
	}
	return view, nil
}

// fixture wires the engine against in-memory fakes: one active tenant,
// one registered device, a user holding every offline permission.
type fixture struct {
	businessID uuid.UUID
	userID     uuid.UUID
	device     *device.Device

	devices       *fakeDeviceRepo
	actions       *fakeActionRepo
	subscriptions *fakeSubscriptions
	permissions   *fakePermissions
	settings      *fakeSettings
	catalog       *fakeCatalog
	sales         *fakeSaleWriter
	purchases     *fakePurchaseWriter
	stock         *fakeStockWriter
	cacheBuilder  *fakeCacheBuilder
	audit         *fakeAudit
	approvals     *fakeApprovals
	clock         *clock.MockClock
	cfg           config.SyncConfig

	sync        commands.SyncCommands
	resolutions commands.ResolutionCommands
	deviceCmds  commands.DeviceCommands
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	f := &fixture{
		businessID:    uuid.New(),
		userID:        uuid.New(),
		devices:       newFakeDeviceRepo(),
		actions:       newFakeActionRepo(),
		subscriptions: &fakeSubscriptions{info: shared.SubscriptionInfo{Tier: "pro", Status: shared.SubscriptionActive, OfflineEnabled: true, MaxOfflineDevices: 5}},
		settings:      &fakeSettings{},
		catalog:       &fakeCatalog{prices: make(map[uuid.UUID]float64)},
		sales:         &fakeSaleWriter{},
		purchases:     &fakePurchaseWriter{},
		stock:         &fakeStockWriter{},
		cacheBuilder:  &fakeCacheBuilder{},
		audit:         &fakeAudit{},
		approvals:     &fakeApprovals{views: make(map[uuid.UUID]*shared.ApprovalView)},
		clock:         clock.NewMockClock(now),
		cfg:           config.NewTestConfig().Sync,
	}

	f.permissions = &fakePermissions{access: map[uuid.UUID]*shared.UserAccess{
		f.userID: {Permissions: []string{"sale-write", "purchase-write", "stock-write"}, RoleIDs: []string{"cashier"}},
	}}

	d, err := device.NewDevice(f.businessID, f.userID, "Register 1",
		device.PermissionSnapshot{Permissions: []string{"sale-write"}}, now)
	require.NoError(t, err)
	f.device = d
	f.devices.devices[d.ID()] = d

	f.sync = commands.NewSyncCommands(
		f.devices, f.actions, f.subscriptions, f.permissions, f.settings,
		f.catalog, f.sales, f.purchases, f.stock, f.cacheBuilder,
		f.audit, f.cfg, f.clock,
	)
	f.resolutions = commands.NewResolutionCommands(
		f.actions, f.devices, f.permissions, f.approvals, f.settings,
		f.catalog, f.sales, f.purchases, f.stock,
		f.audit, f.cfg, f.clock,
	)
	f.deviceCmds = commands.NewDeviceCommands(
		f.devices, f.subscriptions, f.permissions, f.audit, f.clock,
	)
	return f
}
