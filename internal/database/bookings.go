package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"detailing/internal/models"
)

// createdAtLayout is fixed-width so that lexical order equals time order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

const bookingColumns = `id, customer_name, contact_method, email, phone, service_date, service_time,
	service_type, vehicle_type, address, address_line2, city, state, postcode,
	special_instructions, newsletter, status, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// IsSlotAvailable reports whether no live booking holds (date, slotTime).
func (db *DB) IsSlotAvailable(ctx context.Context, date, slotTime string) (bool, error) {
	occupied, err := slotOccupied(ctx, db.DB, date, slotTime)
	if err != nil {
		return false, storageErr("check slot", err)
	}
	return !occupied, nil
}

// Reserve atomically books the draft's slot. It returns ErrSlotTaken when a
// live booking already holds the slot, whether that is seen by the in-transaction
// check or by the unique index. On any error nothing is persisted.
func (db *DB) Reserve(ctx context.Context, draft *models.BookingDraft) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	occupied, err := slotOccupied(ctx, tx, draft.ServiceDate, draft.ServiceTime)
	if err != nil {
		return nil, storageErr("check slot", err)
	}
	if occupied {
		return nil, ErrSlotTaken
	}

	createdAt, err := nextCreatedAt(ctx, tx)
	if err != nil {
		return nil, storageErr("created_at", err)
	}

	id, err := insertBooking(ctx, tx, draft, createdAt)
	if err != nil {
		return nil, err
	}

	booking, err := getBooking(ctx, tx, id)
	if err != nil {
		return nil, storageErr("read back", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, storageErr("commit", err)
	}

	if db.logger != nil {
		db.logger.Debug().
			Int64("booking_id", booking.ID).
			Str("date", booking.ServiceDate).
			Str("time", booking.ServiceTime).
			Msg("Slot reserved")
	}
	return booking, nil
}

// List returns all bookings, most recently created first.
func (db *DB) List(ctx context.Context) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, storageErr("list", err)
	}
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, storageErr("list", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list", err)
	}
	return bookings, nil
}

// GetByID returns a booking or ErrNotFound.
func (db *DB) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	b, err := getBooking(ctx, db.DB, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get", err)
	}
	return b, nil
}

// BookedTimes returns the times held by live bookings on date.
func (db *DB) BookedTimes(ctx context.Context, date string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT service_time FROM bookings WHERE service_date = ? AND status != 'cancelled' ORDER BY service_time`,
		date,
	)
	if err != nil {
		return nil, storageErr("booked times", err)
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, storageErr("booked times", err)
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("booked times", err)
	}
	return times, nil
}

func slotOccupied(ctx context.Context, q queryer, date, slotTime string) (bool, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM bookings WHERE service_date = ? AND service_time = ? AND status != 'cancelled' LIMIT 1`,
		date, slotTime,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// nextCreatedAt returns now, or the latest stored timestamp if the clock went
// backwards, so created_at never decreases across inserts.
func nextCreatedAt(ctx context.Context, q queryer) (time.Time, error) {
	now := time.Now().UTC()

	var last sql.NullString
	if err := q.QueryRowContext(ctx, `SELECT MAX(created_at) FROM bookings`).Scan(&last); err != nil {
		return time.Time{}, err
	}
	if !last.Valid {
		return now, nil
	}
	lastTime, err := time.Parse(createdAtLayout, last.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", last.String, err)
	}
	if now.Before(lastTime) {
		return lastTime, nil
	}
	return now, nil
}

// insertBooking writes a pending booking row. A unique index violation is
// reported as ErrSlotTaken.
func insertBooking(ctx context.Context, e execer, d *models.BookingDraft, createdAt time.Time) (int64, error) {
	res, err := e.ExecContext(ctx, `
		INSERT INTO bookings (
			customer_name, contact_method, email, phone, service_date, service_time,
			service_type, vehicle_type, address, address_line2, city, state, postcode,
			special_instructions, newsletter, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.CustomerName,
		string(d.ContactMethod),
		nullString(d.Email),
		nullString(d.Phone),
		d.ServiceDate,
		d.ServiceTime,
		d.ServiceType,
		d.VehicleType,
		d.Address,
		nullString(d.AddressLine2),
		d.City,
		d.State,
		d.Postcode,
		nullString(d.SpecialInstructions),
		d.Newsletter,
		string(models.StatusPending),
		createdAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrSlotTaken
		}
		return 0, storageErr("insert", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("insert", err)
	}
	return id, nil
}

func getBooking(ctx context.Context, q queryer, id int64) (*models.Booking, error) {
	row := q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	return scanBooking(row)
}

func scanBooking(s rowScanner) (*models.Booking, error) {
	var (
		b                                      models.Booking
		contactMethod, status, createdAt       string
		email, phone, line2, specialInstructns sql.NullString
	)
	if err := s.Scan(
		&b.ID, &b.CustomerName, &contactMethod, &email, &phone, &b.ServiceDate, &b.ServiceTime,
		&b.ServiceType, &b.VehicleType, &b.Address, &line2, &b.City, &b.State, &b.Postcode,
		&specialInstructns, &b.Newsletter, &status, &createdAt,
	); err != nil {
		return nil, err
	}

	ts, err := time.Parse(createdAtLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}

	b.ContactMethod = models.ContactMethod(contactMethod)
	b.Status = models.Status(status)
	b.CreatedAt = ts
	b.Email = email.String
	b.Phone = phone.String
	b.AddressLine2 = line2.String
	b.SpecialInstructions = specialInstructns.String
	return &b, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
