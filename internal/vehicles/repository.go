package vehicles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/chalosawari/chalo-sawari/pkg/database"
	"github.com/chalosawari/chalo-sawari/pkg/fare"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateRegistration means the registration number is already listed
var ErrDuplicateRegistration = errors.New("vehicle registration already exists")

// Repository handles database operations for vehicles
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new vehicles repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const vehicleColumns = `id, owner_id, registration_no, category, vehicle_type, vehicle_model,
	seating_capacity, is_active, pricing_snapshot, created_at, updated_at`

// Create inserts a vehicle
func (r *Repository) Create(ctx context.Context, v *Vehicle) error {
	query := `
		INSERT INTO vehicles (owner_id, registration_no, category, vehicle_type, vehicle_model, seating_capacity, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING id, is_active, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		v.OwnerID, v.RegistrationNo, v.Category, v.VehicleType, v.VehicleModel, v.SeatingCapacity,
	).Scan(&v.ID, &v.IsActive, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateRegistration
		}
		return fmt.Errorf("failed to create vehicle: %w", err)
	}
	return nil
}

// GetByID returns a vehicle or ErrNotFound
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`

	v, err := scanVehicle(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	return v, nil
}

// List returns active vehicles matching filter
func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Vehicle, int64, error) {
	where := []string{"is_active = TRUE"}
	args := []interface{}{}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.VehicleType != "" {
		args = append(args, filter.VehicleType)
		where = append(where, fmt.Sprintf("lower(vehicle_type) = lower($%d)", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM vehicles WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count vehicles: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM vehicles WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		vehicleColumns, clause, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer rows.Close()

	var out []*Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

// GetPricingReference returns the triple a vehicle is priced by
func (r *Repository) GetPricingReference(ctx context.Context, id uuid.UUID) (*PricingReference, error) {
	query := `SELECT category, vehicle_type, vehicle_model FROM vehicles WHERE id = $1 AND is_active = TRUE`

	var ref PricingReference
	if err := r.db.QueryRow(ctx, query, id).Scan(&ref.Category, &ref.VehicleType, &ref.VehicleModel); err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get pricing reference: %w", err)
	}
	return &ref, nil
}

// UpdatePricingSnapshot overwrites the snapshot stored for one trip type
func (r *Repository) UpdatePricingSnapshot(ctx context.Context, id uuid.UUID, tripType fare.TripType, snap PricingSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal pricing snapshot: %w", err)
	}

	query := `
		UPDATE vehicles
		SET pricing_snapshot = jsonb_set(pricing_snapshot, ARRAY[$2::text], $3::jsonb, true),
		    updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, string(tripType), data)
	if err != nil {
		return fmt.Errorf("failed to update pricing snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanVehicle(row pgx.Row) (*Vehicle, error) {
	var (
		v        Vehicle
		snapshot []byte
	)
	err := row.Scan(&v.ID, &v.OwnerID, &v.RegistrationNo, &v.Category, &v.VehicleType, &v.VehicleModel,
		&v.SeatingCapacity, &v.IsActive, &snapshot, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &v.PricingSnapshot); err != nil {
			return nil, fmt.Errorf("failed to decode pricing snapshot: %w", err)
		}
	}
	return &v, nil
}
