package hostel

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Placeholder discipline: queries use $1..$N numbered in order of first
// appearance, each exactly once. Postgres reads them natively and SQLite
// assigns the same ordinals, so one query text serves both engines. For the
// same reason timestamps come from Go, not NOW().

// LedgerKind selects which payment table a ledger call works on.
type LedgerKind string

const (
	LedgerRent LedgerKind = "rent_payments"
	LedgerFood LedgerKind = "extra_food"
)

// Repository persists all hostel data through database/sql.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

const studentColumns = `id, hostel_code, name, address, course, phone, room_number, room_type,
	monthly_rent, advance_paid, advance_remaining, date_join, date_leave, photo_path,
	is_deleted, deleted_at, created_at`

func scanStudent(row *sql.Rows) (Student, error) {
	var s Student
	var deleted int64
	err := row.Scan(&s.ID, &s.HostelCode, &s.Name, &s.Address, &s.Course, &s.Phone,
		&s.RoomNumber, &s.RoomType, &s.MonthlyRent, &s.AdvancePaid, &s.AdvanceRemaining,
		&s.DateJoin, &s.DateLeave, &s.PhotoPath, &deleted, &s.DeletedAt, &s.CreatedAt)
	if err != nil {
		return Student{}, err
	}
	s.IsDeleted = deleted != 0
	return s, nil
}

func (r *Repository) queryStudents(ctx context.Context, query string, args ...any) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// CreateStudent inserts a new active student and returns it with id and
// created_at populated.
func (r *Repository) CreateStudent(ctx context.Context, s Student) (Student, error) {
	s.CreatedAt = nowStamp()
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (hostel_code, name, address, course, phone, room_number, room_type,
			monthly_rent, advance_paid, advance_remaining, date_join, date_leave, photo_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`, s.HostelCode, s.Name, s.Address, s.Course, s.Phone, s.RoomNumber, s.RoomType,
		s.MonthlyRent, s.AdvancePaid, s.AdvanceRemaining, s.DateJoin, s.DateLeave, s.PhotoPath, s.CreatedAt)
	if err := row.Scan(&s.ID); err != nil {
		return Student{}, err
	}
	return s, nil
}

// GetStudent returns one student, or nil when absent. Soft-deleted students
// are only visible with includeDeleted.
func (r *Repository) GetStudent(ctx context.Context, id int64, includeDeleted bool) (*Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	if !includeDeleted {
		query += ` AND is_deleted = 0`
	}
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	s, err := scanStudent(rows)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListActive returns the active roster for a hostel.
func (r *Repository) ListActive(ctx context.Context, hostelCode string) ([]Student, error) {
	return r.queryStudents(ctx, `
		SELECT `+studentColumns+` FROM students
		WHERE hostel_code = $1 AND is_deleted = 0
		ORDER BY room_number, name
	`, hostelCode)
}

// ListDeleted returns soft-deleted students, most recent deletion first.
func (r *Repository) ListDeleted(ctx context.Context, hostelCode string) ([]Student, error) {
	return r.queryStudents(ctx, `
		SELECT `+studentColumns+` FROM students
		WHERE hostel_code = $1 AND is_deleted = 1
		ORDER BY deleted_at DESC, id DESC
	`, hostelCode)
}

// ListByRoom returns active students in one room.
func (r *Repository) ListByRoom(ctx context.Context, hostelCode, roomNumber string) ([]Student, error) {
	return r.queryStudents(ctx, `
		SELECT `+studentColumns+` FROM students
		WHERE hostel_code = $1 AND room_number = $2 AND is_deleted = 0
		ORDER BY name
	`, hostelCode, roomNumber)
}

// ListByRoomType returns active students in rooms of one type.
func (r *Repository) ListByRoomType(ctx context.Context, hostelCode, roomType string) ([]Student, error) {
	return r.queryStudents(ctx, `
		SELECT `+studentColumns+` FROM students
		WHERE hostel_code = $1 AND room_type = $2 AND is_deleted = 0
		ORDER BY room_number, name
	`, hostelCode, roomType)
}

// FindByName returns active students whose name matches exactly, ignoring
// case.
func (r *Repository) FindByName(ctx context.Context, hostelCode, name string) ([]Student, error) {
	return r.queryStudents(ctx, `
		SELECT `+studentColumns+` FROM students
		WHERE hostel_code = $1 AND LOWER(name) = LOWER($2) AND is_deleted = 0
		ORDER BY name
	`, hostelCode, name)
}

// UpdateStudent applies the non-nil fields to an active student. Returns
// false when no active student has that id.
func (r *Repository) UpdateStudent(ctx context.Context, id int64, upd StudentUpdate) (bool, error) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)+1))
		args = append(args, v)
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Address != nil {
		add("address", *upd.Address)
	}
	if upd.Course != nil {
		add("course", *upd.Course)
	}
	if upd.Phone != nil {
		add("phone", *upd.Phone)
	}
	if upd.RoomNumber != nil {
		add("room_number", *upd.RoomNumber)
	}
	if upd.RoomType != nil {
		add("room_type", *upd.RoomType)
	}
	if upd.MonthlyRent != nil {
		add("monthly_rent", *upd.MonthlyRent)
	}
	if upd.AdvancePaid != nil {
		add("advance_paid", *upd.AdvancePaid)
	}
	if upd.AdvanceRemaining != nil {
		add("advance_remaining", *upd.AdvanceRemaining)
	}
	if upd.DateJoin != nil {
		add("date_join", *upd.DateJoin)
	}
	if upd.DateLeave != nil {
		add("date_leave", *upd.DateLeave)
	}
	if len(sets) == 0 {
		return false, nil
	}
	query := "UPDATE students SET " + strings.Join(sets, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args)+1) + " AND is_deleted = 0"
	args = append(args, id)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SetPhotoPath records where an active student's photo is stored.
func (r *Repository) SetPhotoPath(ctx context.Context, id int64, path string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE students SET photo_path = $1 WHERE id = $2 AND is_deleted = 0`, path, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SoftDeleteStudent marks an active student deleted. Returns false when the
// student is missing or already deleted.
func (r *Repository) SoftDeleteStudent(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE students SET is_deleted = 1, deleted_at = $1 WHERE id = $2 AND is_deleted = 0`,
		nowStamp(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RestoreStudent reactivates a student. No is_deleted guard: restoring an
// already-active student is a no-op success.
func (r *Repository) RestoreStudent(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE students SET is_deleted = 0, deleted_at = '' WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// PurgeStudent removes a student and every dependent row in one transaction.
// Returns false (and rolls back) when the student does not exist.
func (r *Repository) PurgeStudent(ctx context.Context, id int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM attendance WHERE student_id = $1`,
		`DELETE FROM extra_food WHERE student_id = $1`,
		`DELETE FROM rent_payments WHERE student_id = $1`,
		`DELETE FROM monthly_accounts WHERE student_id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return false, err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	return true, tx.Commit()
}

// AppendLedger inserts a payment row into the rent or extra-food table.
func (r *Repository) AppendLedger(ctx context.Context, kind LedgerKind, e LedgerEntry) (LedgerEntry, error) {
	e.CreatedAt = nowStamp()
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO `+string(kind)+` (student_id, date, amount_paid, balance_remaining, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, e.StudentID, e.Date, e.AmountPaid, e.BalanceRemaining, e.CreatedAt)
	if err := row.Scan(&e.ID); err != nil {
		return LedgerEntry{}, err
	}
	return e, nil
}

// ListLedger returns a student's payment rows, newest date first.
func (r *Repository) ListLedger(ctx context.Context, kind LedgerKind, studentID int64) ([]LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, date, amount_paid, balance_remaining, created_at
		FROM `+string(kind)+`
		WHERE student_id = $1
		ORDER BY date DESC, id DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.StudentID, &e.Date, &e.AmountPaid, &e.BalanceRemaining, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// UpdateLedger applies the non-nil fields to a payment row.
func (r *Repository) UpdateLedger(ctx context.Context, kind LedgerKind, id int64, upd LedgerUpdate) (bool, error) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)+1))
		args = append(args, v)
	}
	if upd.Date != nil {
		add("date", *upd.Date)
	}
	if upd.AmountPaid != nil {
		add("amount_paid", *upd.AmountPaid)
	}
	if upd.BalanceRemaining != nil {
		add("balance_remaining", *upd.BalanceRemaining)
	}
	if len(sets) == 0 {
		return false, nil
	}
	query := "UPDATE " + string(kind) + " SET " + strings.Join(sets, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args)+1)
	args = append(args, id)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteLedger removes a payment row.
func (r *Repository) DeleteLedger(ctx context.Context, kind LedgerKind, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+string(kind)+` WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// UpsertAttendance writes one student's mark for one day. Re-running for the
// same (hostel, date, room, student) overwrites the status in place.
func (r *Repository) UpsertAttendance(ctx context.Context, rec AttendanceRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (hostel_code, date, room_number, student_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (hostel_code, date, room_number, student_id) DO UPDATE SET
			status = excluded.status
	`, rec.HostelCode, rec.Date, rec.RoomNumber, rec.StudentID, string(rec.Status), nowStamp())
	return err
}

// ListRoomAttendance returns a room's marks for one day with student names.
func (r *Repository) ListRoomAttendance(ctx context.Context, hostelCode, roomNumber, date string) ([]AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.hostel_code, a.date, a.room_number, a.student_id, s.name, a.status, a.created_at
		FROM attendance a
		JOIN students s ON s.id = a.student_id
		WHERE a.hostel_code = $1 AND a.room_number = $2 AND a.date = $3
		ORDER BY s.name
	`, hostelCode, roomNumber, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []AttendanceRecord
	for rows.Next() {
		var rec AttendanceRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.HostelCode, &rec.Date, &rec.RoomNumber,
			&rec.StudentID, &rec.StudentName, &status, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Status = AttendanceStatus(status)
		res = append(res, rec)
	}
	return res, rows.Err()
}

// ListStudentAttendance returns one student's history, newest first.
func (r *Repository) ListStudentAttendance(ctx context.Context, studentID int64) ([]AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, hostel_code, date, room_number, student_id, status, created_at
		FROM attendance
		WHERE student_id = $1
		ORDER BY date DESC, id DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []AttendanceRecord
	for rows.Next() {
		var rec AttendanceRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.HostelCode, &rec.Date, &rec.RoomNumber,
			&rec.StudentID, &status, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Status = AttendanceStatus(status)
		res = append(res, rec)
	}
	return res, rows.Err()
}

// UpdateAttendanceStatus rewrites the status of one mark.
func (r *Repository) UpdateAttendanceStatus(ctx context.Context, id int64, status AttendanceStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE attendance SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteAttendance removes one mark.
func (r *Repository) DeleteAttendance(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// UpsertAccountEB writes one student's electricity share for one month. On
// conflict the share and room are overwritten and the remaining balance is
// recomputed against whatever the student has already paid; rent columns and
// eb_paid are left alone so re-running a bill never erases payments.
func (r *Repository) UpsertAccountEB(ctx context.Context, a MonthlyAccount) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO monthly_accounts (hostel_code, student_id, date, room_number, eb_share, eb_paid, eb_remaining, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
		ON CONFLICT (hostel_code, student_id, date) DO UPDATE SET
			room_number = excluded.room_number,
			eb_share = excluded.eb_share,
			eb_remaining = CASE
				WHEN excluded.eb_share > monthly_accounts.eb_paid
					THEN excluded.eb_share - monthly_accounts.eb_paid
				ELSE 0
			END
	`, a.HostelCode, a.StudentID, a.Date, a.RoomNumber, a.EBShare, a.EBShare, nowStamp())
	return err
}

// InsertAccount creates a monthly account row. A duplicate month surfaces as
// the driver's unique-violation error for the caller to classify.
func (r *Repository) InsertAccount(ctx context.Context, a MonthlyAccount) (MonthlyAccount, error) {
	a.CreatedAt = nowStamp()
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO monthly_accounts (hostel_code, student_id, date, room_number,
			rent_paid, rent_remaining, eb_share, eb_paid, eb_remaining, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, a.HostelCode, a.StudentID, a.Date, a.RoomNumber,
		a.RentPaid, a.RentRemaining, a.EBShare, a.EBPaid, a.EBRemaining, a.CreatedAt)
	if err := row.Scan(&a.ID); err != nil {
		return MonthlyAccount{}, err
	}
	return a, nil
}

// ListStudentAccounts returns one student's monthly rows, newest first.
func (r *Repository) ListStudentAccounts(ctx context.Context, studentID int64) ([]MonthlyAccount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, hostel_code, student_id, date, room_number,
			rent_paid, rent_remaining, eb_share, eb_paid, eb_remaining, created_at
		FROM monthly_accounts
		WHERE student_id = $1
		ORDER BY date DESC, id DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []MonthlyAccount
	for rows.Next() {
		var a MonthlyAccount
		if err := rows.Scan(&a.ID, &a.HostelCode, &a.StudentID, &a.Date, &a.RoomNumber,
			&a.RentPaid, &a.RentRemaining, &a.EBShare, &a.EBPaid, &a.EBRemaining, &a.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// GetAccount returns one monthly account row, or nil when absent.
func (r *Repository) GetAccount(ctx context.Context, id int64) (*MonthlyAccount, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, hostel_code, student_id, date, room_number,
			rent_paid, rent_remaining, eb_share, eb_paid, eb_remaining, created_at
		FROM monthly_accounts WHERE id = $1
	`, id)
	var a MonthlyAccount
	err := row.Scan(&a.ID, &a.HostelCode, &a.StudentID, &a.Date, &a.RoomNumber,
		&a.RentPaid, &a.RentRemaining, &a.EBShare, &a.EBPaid, &a.EBRemaining, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAccount applies the non-nil fields to a monthly account row.
func (r *Repository) UpdateAccount(ctx context.Context, id int64, upd AccountUpdate) (bool, error) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)+1))
		args = append(args, v)
	}
	if upd.Date != nil {
		add("date", *upd.Date)
	}
	if upd.RoomNumber != nil {
		add("room_number", *upd.RoomNumber)
	}
	if upd.RentPaid != nil {
		add("rent_paid", *upd.RentPaid)
	}
	if upd.RentRemaining != nil {
		add("rent_remaining", *upd.RentRemaining)
	}
	if upd.EBShare != nil {
		add("eb_share", *upd.EBShare)
	}
	if upd.EBPaid != nil {
		add("eb_paid", *upd.EBPaid)
	}
	if upd.EBRemaining != nil {
		add("eb_remaining", *upd.EBRemaining)
	}
	if len(sets) == 0 {
		return false, nil
	}
	query := "UPDATE monthly_accounts SET " + strings.Join(sets, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args)+1)
	args = append(args, id)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteAccount removes a monthly account row.
func (r *Repository) DeleteAccount(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM monthly_accounts WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RoomAccounts returns the active roster of a room joined against the
// monthly accounts for one month. Students without an account row for that
// month appear with a nil Account.
func (r *Repository) RoomAccounts(ctx context.Context, hostelCode, roomNumber, date string) ([]RoomAccountRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.room_number,
			a.id, a.date, a.rent_paid, a.rent_remaining, a.eb_share, a.eb_paid, a.eb_remaining
		FROM students s
		LEFT JOIN monthly_accounts a
			ON a.student_id = s.id AND a.hostel_code = s.hostel_code AND a.date = $1
		WHERE s.hostel_code = $2 AND s.room_number = $3 AND s.is_deleted = 0
		ORDER BY s.name
	`, date, hostelCode, roomNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []RoomAccountRow
	for rows.Next() {
		var line RoomAccountRow
		var accID sql.NullInt64
		var accDate sql.NullString
		var rentPaid, rentRemaining, ebShare, ebPaid, ebRemaining sql.NullInt64
		if err := rows.Scan(&line.StudentID, &line.Name, &line.RoomNumber,
			&accID, &accDate, &rentPaid, &rentRemaining, &ebShare, &ebPaid, &ebRemaining); err != nil {
			return nil, err
		}
		if accID.Valid {
			line.Account = &MonthlyAccount{
				ID:            accID.Int64,
				HostelCode:    hostelCode,
				StudentID:     line.StudentID,
				Date:          accDate.String,
				RoomNumber:    line.RoomNumber,
				RentPaid:      rentPaid.Int64,
				RentRemaining: rentRemaining.Int64,
				EBShare:       ebShare.Int64,
				EBPaid:        ebPaid.Int64,
				EBRemaining:   ebRemaining.Int64,
			}
		}
		res = append(res, line)
	}
	return res, rows.Err()
}
