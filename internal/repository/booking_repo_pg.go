package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDateConflict covers both the in-transaction overlap re-check and a
	// serialization failure caused by a concurrent overlapping insert.
	ErrDateConflict = errors.New("dates are not available")
)

type BookingRepository interface {
	GetProperty(ctx context.Context, propertyID, organizationID string) (*domain.Property, error)
	GetBooking(ctx context.Context, bookingID, organizationID string) (*domain.Booking, error)
	GetBookingByID(ctx context.Context, bookingID string) (*domain.Booking, error)
	GetPayment(ctx context.Context, bookingID string) (*domain.Payment, error)
	GetPaymentByExternalRef(ctx context.Context, externalRef string) (*domain.Payment, error)
	FindOverlapping(ctx context.Context, propertyID string, checkIn, checkOut time.Time) ([]domain.Slot, error)
	CreateWithPayment(ctx context.Context, booking *domain.Booking, payment *domain.Payment, events []domain.Event) error
	SaveTransition(ctx context.Context, booking *domain.Booking, payment *domain.Payment, events []domain.Event) error
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) GetProperty(ctx context.Context, propertyID, organizationID string) (*domain.Property, error) {
	row := r.db.QueryRow(ctx, `SELECT id, host_id, organization_id, price_per_night_cents, max_guests, published, created_at, updated_at
		FROM properties WHERE id=$1 AND organization_id=$2`, propertyID, organizationID)
	var p domain.Property
	if err := row.Scan(&p.ID, &p.HostID, &p.OrganizationID, &p.PricePerNightCents, &p.MaxGuests, &p.Published, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGBookingRepository) GetBooking(ctx context.Context, bookingID, organizationID string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT id, property_id, guest_id, host_id, organization_id, check_in, check_out, guests, nights, total_price_cents, status, created_at, updated_at
		FROM bookings WHERE id=$1 AND organization_id=$2`, bookingID, organizationID)
	return scanBooking(row)
}

// GetBookingByID loads a booking without tenant scoping. Reserved for the
// webhook reconciliation path, where the gateway event carries no
// organization context.
func (r *PGBookingRepository) GetBookingByID(ctx context.Context, bookingID string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT id, property_id, guest_id, host_id, organization_id, check_in, check_out, guests, nights, total_price_cents, status, created_at, updated_at
		FROM bookings WHERE id=$1`, bookingID)
	return scanBooking(row)
}

func (r *PGBookingRepository) GetPayment(ctx context.Context, bookingID string) (*domain.Payment, error) {
	row := r.db.QueryRow(ctx, `SELECT id, booking_id, amount_cents, currency, external_ref, status, platform_fee_cents, host_net_cents, paid_at, created_at, updated_at
		FROM payments WHERE booking_id=$1`, bookingID)
	return scanPayment(row)
}

func (r *PGBookingRepository) GetPaymentByExternalRef(ctx context.Context, externalRef string) (*domain.Payment, error) {
	row := r.db.QueryRow(ctx, `SELECT id, booking_id, amount_cents, currency, external_ref, status, platform_fee_cents, host_net_cents, paid_at, created_at, updated_at
		FROM payments WHERE external_ref=$1`, externalRef)
	return scanPayment(row)
}

// FindOverlapping returns CONFIRMED and PENDING slots of a property that
// intersect the half-open requested range. Hold liveness is resolved by the
// caller; the store does not know about holds.
func (r *PGBookingRepository) FindOverlapping(ctx context.Context, propertyID string, checkIn, checkOut time.Time) ([]domain.Slot, error) {
	rows, err := r.db.Query(ctx, `SELECT id, check_in, check_out, status FROM bookings
		WHERE property_id=$1 AND status IN ('PENDING','CONFIRMED','COMPLETED') AND check_in < $3 AND check_out > $2`,
		propertyID, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]domain.Slot, 0)
	for rows.Next() {
		var s domain.Slot
		if err := rows.Scan(&s.BookingID, &s.CheckIn, &s.CheckOut, &s.Status); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// CreateWithPayment atomically persists the booking, its payment and the
// drained outbox events. The transaction runs serializable and re-reads
// every active overlapping row before inserting: settled rows block
// outright, and the read predicate must also cover PENDING rows so that a
// concurrent overlapping insert forms an rw-conflict and one transaction
// fails serialization (40001) instead of both committing.
func (r *PGBookingRepository) CreateWithPayment(ctx context.Context, booking *domain.Booking, payment *domain.Payment, events []domain.Event) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var blocking int
	if err := tx.QueryRow(ctx, `SELECT count(*) FILTER (WHERE status IN ('CONFIRMED','COMPLETED')) FROM bookings
		WHERE property_id=$1 AND status IN ('PENDING','CONFIRMED','COMPLETED') AND check_in < $3 AND check_out > $2`,
		booking.PropertyID, booking.CheckIn, booking.CheckOut).Scan(&blocking); err != nil {
		return err
	}
	if blocking > 0 {
		return ErrDateConflict
	}

	if _, err := tx.Exec(ctx, `INSERT INTO bookings (id, property_id, guest_id, host_id, organization_id, check_in, check_out, guests, nights, total_price_cents, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		booking.ID, booking.PropertyID, booking.GuestID, booking.HostID, booking.OrganizationID,
		booking.CheckIn, booking.CheckOut, booking.Guests, booking.Nights, booking.TotalPriceCents,
		booking.Status, booking.CreatedAt, booking.UpdatedAt); err != nil {
		return mapSerialization(err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO payments (id, booking_id, amount_cents, currency, external_ref, status, platform_fee_cents, host_net_cents, paid_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		payment.ID, payment.BookingID, payment.AmountCents, payment.Currency, payment.ExternalRef,
		payment.Status, payment.PlatformFeeCents, payment.HostNetCents, payment.PaidAt,
		payment.CreatedAt, payment.UpdatedAt); err != nil {
		return err
	}

	if err := insertOutbox(ctx, tx, events); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapSerialization(err)
	}
	return nil
}

// SaveTransition atomically updates the booking status, the payment fields
// and appends the drained outbox events.
func (r *PGBookingRepository) SaveTransition(ctx context.Context, booking *domain.Booking, payment *domain.Payment, events []domain.Event) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE bookings SET status=$1, updated_at=$2 WHERE id=$3`,
		booking.Status, booking.UpdatedAt, booking.ID); err != nil {
		return err
	}

	if payment != nil {
		if _, err := tx.Exec(ctx, `UPDATE payments SET status=$1, platform_fee_cents=$2, host_net_cents=$3, paid_at=$4, updated_at=$5 WHERE id=$6`,
			payment.Status, payment.PlatformFeeCents, payment.HostNetCents, payment.PaidAt, payment.UpdatedAt, payment.ID); err != nil {
			return err
		}
	}

	if err := insertOutbox(ctx, tx, events); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertOutbox(ctx context.Context, tx pgx.Tx, events []domain.Event) error {
	for _, e := range events {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO outbox_events (aggregate_id, event_type, occurred_at, payload)
			VALUES ($1,$2,$3,$4)`, e.AggregateID, e.Type, e.OccurredAt, payload); err != nil {
			return err
		}
	}
	return nil
}

func mapSerialization(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "40001" {
		return ErrDateConflict
	}
	return err
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.PropertyID, &b.GuestID, &b.HostID, &b.OrganizationID,
		&b.CheckIn, &b.CheckOut, &b.Guests, &b.Nights, &b.TotalPriceCents,
		&b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	if err := row.Scan(&p.ID, &p.BookingID, &p.AmountCents, &p.Currency, &p.ExternalRef,
		&p.Status, &p.PlatformFeeCents, &p.HostNetCents, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
