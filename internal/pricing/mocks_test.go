package pricing

import (
	"context"
	"sync"

	"github.com/chalosawari/chalo-sawari/internal/vehicles"
	"github.com/chalosawari/chalo-sawari/pkg/fare"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, rec *PricingRecord) error {
	args := m.Called(ctx, rec)
	if args.Error(0) == nil {
		rec.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*PricingRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PricingRecord), args.Error(1)
}

func (m *mockRepo) Update(ctx context.Context, rec *PricingRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockRepo) SoftDelete(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*PricingRecord, error) {
	args := m.Called(ctx, id, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PricingRecord), args.Error(1)
}

func (m *mockRepo) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*PricingRecord, int64, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*PricingRecord), args.Get(1).(int64), args.Error(2)
}

func (m *mockRepo) FindActive(ctx context.Context, key RecordKey) (*PricingRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PricingRecord), args.Error(1)
}

func (m *mockRepo) FindDefault(ctx context.Context, category fare.Category, vehicleType string, tripType fare.TripType) (*PricingRecord, error) {
	args := m.Called(ctx, category, vehicleType, tripType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PricingRecord), args.Error(1)
}

func (m *mockRepo) InsertDefaultIfAbsent(ctx context.Context, rec *PricingRecord) (bool, error) {
	args := m.Called(ctx, rec)
	if args.Bool(0) {
		rec.ID = uuid.New()
	}
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) UpdateDistancePricing(ctx context.Context, id uuid.UUID, rates fare.TierRates) error {
	args := m.Called(ctx, id, rates)
	return args.Error(0)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, key RecordKey) (*PricingRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PricingRecord), args.Error(1)
}

func (m *mockCache) Set(ctx context.Context, key RecordKey, rec *PricingRecord) error {
	args := m.Called(ctx, key, rec)
	return args.Error(0)
}

func (m *mockCache) InvalidateGroup(ctx context.Context, category fare.Category, vehicleType string, tripType fare.TripType) error {
	args := m.Called(ctx, category, vehicleType, tripType)
	return args.Error(0)
}

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) GetPricingReference(ctx context.Context, vehicleID uuid.UUID) (*vehicles.PricingReference, error) {
	args := m.Called(ctx, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vehicles.PricingReference), args.Error(1)
}

func (m *mockDirectory) UpdatePricingSnapshot(ctx context.Context, vehicleID uuid.UUID, tripType fare.TripType, snap vehicles.PricingSnapshot) error {
	args := m.Called(ctx, vehicleID, tripType, snap)
	return args.Error(0)
}

type mockDistance struct {
	mock.Mock
}

func (m *mockDistance) Distance(ctx context.Context, origin, destination string) (float64, error) {
	args := m.Called(ctx, origin, destination)
	return args.Get(0).(float64), args.Error(1)
}

// memoryRepo is a minimal in-memory repository for concurrency and end-to-end
// tests where scripting every call with mocks would be unreadable.
type memoryRepo struct {
	mu             sync.Mutex
	records        map[uuid.UUID]*PricingRecord
	backfillWrites int
}

func newMemoryRepo(records ...*PricingRecord) *memoryRepo {
	r := &memoryRepo{records: make(map[uuid.UUID]*PricingRecord)}
	for _, rec := range records {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		stored := *rec
		r.records[rec.ID] = &stored
	}
	return r
}

func (r *memoryRepo) Create(ctx context.Context, rec *PricingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflicts(rec, uuid.Nil) {
		return ErrDuplicateKey
	}
	rec.ID = uuid.New()
	rec.IsActive = true
	stored := *rec
	r.records[rec.ID] = &stored
	return nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*PricingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (r *memoryRepo) Update(ctx context.Context, rec *PricingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.ID]; !ok {
		return ErrNotFound
	}
	if rec.IsActive && r.conflicts(rec, rec.ID) {
		return ErrDuplicateKey
	}
	stored := *rec
	r.records[rec.ID] = &stored
	return nil
}

func (r *memoryRepo) SoftDelete(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*PricingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec.IsActive = false
	out := *rec
	return &out, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*PricingRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*PricingRecord
	for _, rec := range r.records {
		if rec.IsActive || filter.IncludeInactive {
			c := *rec
			out = append(out, &c)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memoryRepo) FindActive(ctx context.Context, key RecordKey) (*PricingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.IsActive && !key.ByDefault() && key.Matches(rec) {
			out := *rec
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) FindDefault(ctx context.Context, category fare.Category, vehicleType string, tripType fare.TripType) (*PricingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := RecordKey{Category: category, VehicleType: vehicleType, TripType: tripType}
	for _, rec := range r.records {
		if rec.IsActive && key.Matches(rec) {
			out := *rec
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) InsertDefaultIfAbsent(ctx context.Context, rec *PricingRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflicts(rec, uuid.Nil) {
		return false, nil
	}
	rec.ID = uuid.New()
	stored := *rec
	r.records[rec.ID] = &stored
	return true, nil
}

func (r *memoryRepo) UpdateDistancePricing(ctx context.Context, id uuid.UUID, rates fare.TierRates) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.DistancePricing = rates.Clone()
	r.backfillWrites++
	return nil
}

// conflicts mirrors the two partial unique indexes.
func (r *memoryRepo) conflicts(rec *PricingRecord, self uuid.UUID) bool {
	for id, other := range r.records {
		if id == self || !other.IsActive {
			continue
		}
		if other.Key().Matches(rec) {
			return true
		}
		group := RecordKey{Category: rec.Category, VehicleType: rec.VehicleType, TripType: rec.TripType}
		if rec.IsDefault && group.Matches(other) {
			return true
		}
	}
	return false
}

func (r *memoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
