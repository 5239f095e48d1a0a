package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chalosawari/chalo-sawari/pkg/database"
	"github.com/chalosawari/chalo-sawari/pkg/fare"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// activeDefaultIndex is the partial unique index allowing one active default per type.
const activeDefaultIndex = "pricing_records_active_default"

// Repository handles database operations for pricing records
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new pricing repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, category, vehicle_type, vehicle_model, trip_type, auto_price,
	distance_pricing, is_active, is_default, notes, created_by, updated_by, created_at, updated_at`

// Create inserts a new record. A clash with an active record returns ErrDuplicateKey.
func (r *Repository) Create(ctx context.Context, rec *PricingRecord) error {
	rates, err := marshalRates(rec.DistancePricing)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO pricing_records (category, vehicle_type, vehicle_model, trip_type, auto_price,
			distance_pricing, is_active, is_default, notes, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8, $9, $9)
		RETURNING id, is_active, created_at, updated_at
	`
	err = r.db.QueryRow(ctx, query,
		rec.Category, rec.VehicleType, rec.VehicleModel, rec.TripType, rec.AutoPrice,
		rates, rec.IsDefault, rec.Notes, rec.CreatedBy,
	).Scan(&rec.ID, &rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return mapWriteError("create pricing record", err)
	}
	rec.UpdatedBy = rec.CreatedBy
	return nil
}

// GetByID returns a record, active or not, or ErrNotFound
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*PricingRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM pricing_records WHERE id = $1`

	rec, err := scanRecord(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get pricing record: %w", err)
	}
	return rec, nil
}

// Update writes every mutable column of rec
func (r *Repository) Update(ctx context.Context, rec *PricingRecord) error {
	rates, err := marshalRates(rec.DistancePricing)
	if err != nil {
		return err
	}

	query := `
		UPDATE pricing_records
		SET category = $2, vehicle_type = $3, vehicle_model = $4, trip_type = $5,
		    auto_price = $6, distance_pricing = $7, is_active = $8, is_default = $9,
		    notes = $10, updated_by = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err = r.db.QueryRow(ctx, query,
		rec.ID, rec.Category, rec.VehicleType, rec.VehicleModel, rec.TripType,
		rec.AutoPrice, rates, rec.IsActive, rec.IsDefault, rec.Notes, rec.UpdatedBy,
	).Scan(&rec.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return ErrNotFound
		}
		return mapWriteError("update pricing record", err)
	}
	return nil
}

// SoftDelete flags a record inactive and returns it
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*PricingRecord, error) {
	query := `
		UPDATE pricing_records
		SET is_active = FALSE, updated_by = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + recordColumns

	rec, err := scanRecord(r.db.QueryRow(ctx, query, id, actor))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete pricing record: %w", err)
	}
	return rec, nil
}

// List returns records matching filter, newest first
func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*PricingRecord, int64, error) {
	where := []string{"TRUE"}
	args := []interface{}{}
	if !filter.IncludeInactive {
		where = append(where, "is_active = TRUE")
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.VehicleType != "" {
		args = append(args, filter.VehicleType)
		where = append(where, fmt.Sprintf("lower(vehicle_type) = lower($%d)", len(args)))
	}
	if filter.TripType != "" {
		args = append(args, filter.TripType)
		where = append(where, fmt.Sprintf("trip_type = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM pricing_records WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count pricing records: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT %s FROM pricing_records
		WHERE %s
		ORDER BY category, vehicle_type, vehicle_model, trip_type, created_at DESC
		LIMIT $%d OFFSET $%d`, recordColumns, clause, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pricing records: %w", err)
	}
	defer rows.Close()

	var records []*PricingRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan pricing record: %w", err)
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

// FindActive returns the active record with exactly this key
func (r *Repository) FindActive(ctx context.Context, key RecordKey) (*PricingRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM pricing_records
		WHERE is_active = TRUE
		  AND category = $1
		  AND lower(vehicle_type) = lower($2)
		  AND lower(vehicle_model) = lower($3)
		  AND trip_type = $4
	`
	return r.findOne(ctx, query, key.Category, key.VehicleType, key.VehicleModel, key.TripType)
}

// FindDefault returns the active default for a vehicle type and trip type
func (r *Repository) FindDefault(ctx context.Context, category fare.Category, vehicleType string, tripType fare.TripType) (*PricingRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM pricing_records
		WHERE is_active = TRUE
		  AND is_default = TRUE
		  AND category = $1
		  AND lower(vehicle_type) = lower($2)
		  AND trip_type = $3
	`
	return r.findOne(ctx, query, category, vehicleType, tripType)
}

// InsertDefaultIfAbsent inserts a default record, doing nothing when any
// active unique index already has a row for it. Concurrent callers converge
// on a single default.
func (r *Repository) InsertDefaultIfAbsent(ctx context.Context, rec *PricingRecord) (bool, error) {
	rates, err := marshalRates(rec.DistancePricing)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO pricing_records (category, vehicle_type, vehicle_model, trip_type, auto_price,
			distance_pricing, is_active, is_default, notes, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, TRUE, $7, $8, $8)
		ON CONFLICT DO NOTHING
		RETURNING id, created_at, updated_at
	`
	err = r.db.QueryRow(ctx, query,
		rec.Category, rec.VehicleType, rec.VehicleModel, rec.TripType, rec.AutoPrice,
		rates, rec.Notes, rec.CreatedBy,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert default pricing record: %w", err)
	}
	rec.IsActive, rec.IsDefault, rec.UpdatedBy = true, true, rec.CreatedBy
	return true, nil
}

// UpdateDistancePricing replaces only the tier table. Used by backfill.
func (r *Repository) UpdateDistancePricing(ctx context.Context, id uuid.UUID, rates fare.TierRates) error {
	data, err := marshalRates(rates)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE pricing_records SET distance_pricing = $2, updated_at = NOW() WHERE id = $1`, id, data)
	if err != nil {
		return fmt.Errorf("failed to update distance pricing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) findOne(ctx context.Context, query string, args ...interface{}) (*PricingRecord, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find pricing record: %w", err)
	}
	return rec, nil
}

func scanRecord(row pgx.Row) (*PricingRecord, error) {
	var (
		rec   PricingRecord
		rates []byte
	)
	err := row.Scan(&rec.ID, &rec.Category, &rec.VehicleType, &rec.VehicleModel, &rec.TripType,
		&rec.AutoPrice, &rates, &rec.IsActive, &rec.IsDefault, &rec.Notes,
		&rec.CreatedBy, &rec.UpdatedBy, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(rates) > 0 {
		if err := json.Unmarshal(rates, &rec.DistancePricing); err != nil {
			return nil, fmt.Errorf("failed to decode distance pricing: %w", err)
		}
	}
	return &rec, nil
}

func marshalRates(rates fare.TierRates) ([]byte, error) {
	if rates == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(rates)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal distance pricing: %w", err)
	}
	return data, nil
}

func mapWriteError(op string, err error) error {
	if database.IsUniqueViolation(err) {
		if database.ConstraintName(err) == activeDefaultIndex {
			return fmt.Errorf("%w: another default is already active for this vehicle type", ErrDuplicateKey)
		}
		return fmt.Errorf("%w: an active record with this key already exists", ErrDuplicateKey)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
