package hostel

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"hostel/internal/store"
)

// PhotoRemover deletes a stored photo by the path recorded on the student.
type PhotoRemover interface {
	Remove(ctx context.Context, path string) error
}

// Service owns validation and orchestration over the repository.
type Service struct {
	repo   *Repository
	photos PhotoRemover
	log    *zap.Logger
}

// NewService creates a service backed by a repository. photos may be nil
// when photo storage is not configured.
func NewService(repo *Repository, photos PhotoRemover, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, photos: photos, log: log}
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func anyNegative(vals ...*int64) bool {
	for _, v := range vals {
		if v != nil && *v < 0 {
			return true
		}
	}
	return false
}

// RegisterStudent creates an active student.
func (s *Service) RegisterStudent(ctx context.Context, in NewStudent) (Student, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.HostelCode = strings.TrimSpace(in.HostelCode)
	if in.Name == "" || in.HostelCode == "" {
		return Student{}, ValidationError{"name and hostel_code are required"}
	}
	if in.MonthlyRent < 0 || in.AdvancePaid < 0 || in.AdvanceRemaining < 0 {
		return Student{}, ValidationError{"money amounts cannot be negative"}
	}
	if in.DateJoin == "" {
		in.DateJoin = today()
	} else if !validDate(in.DateJoin) {
		return Student{}, ValidationError{"date_join must be YYYY-MM-DD"}
	}
	return s.repo.CreateStudent(ctx, Student{
		HostelCode:       in.HostelCode,
		Name:             in.Name,
		Address:          in.Address,
		Course:           in.Course,
		Phone:            in.Phone,
		RoomNumber:       in.RoomNumber,
		RoomType:         in.RoomType,
		MonthlyRent:      in.MonthlyRent,
		AdvancePaid:      in.AdvancePaid,
		AdvanceRemaining: in.AdvanceRemaining,
		DateJoin:         in.DateJoin,
	})
}

// ActiveRoster lists a hostel's active students.
func (s *Service) ActiveRoster(ctx context.Context, hostelCode string) ([]Student, error) {
	if hostelCode == "" {
		return nil, ValidationError{"hostel is required"}
	}
	return s.repo.ListActive(ctx, hostelCode)
}

// FormerResidents lists a hostel's soft-deleted students, newest deletion
// first.
func (s *Service) FormerResidents(ctx context.Context, hostelCode string) ([]Student, error) {
	if hostelCode == "" {
		return nil, ValidationError{"hostel is required"}
	}
	return s.repo.ListDeleted(ctx, hostelCode)
}

// RoomRoster lists the active students of one room.
func (s *Service) RoomRoster(ctx context.Context, hostelCode, roomNumber string) ([]Student, error) {
	if hostelCode == "" || roomNumber == "" {
		return nil, ValidationError{"hostel and room are required"}
	}
	return s.repo.ListByRoom(ctx, hostelCode, roomNumber)
}

// RosterByRoomType lists active students in rooms of one type.
func (s *Service) RosterByRoomType(ctx context.Context, hostelCode, roomType string) ([]Student, error) {
	if hostelCode == "" || roomType == "" {
		return nil, ValidationError{"hostel and room_type are required"}
	}
	return s.repo.ListByRoomType(ctx, hostelCode, roomType)
}

// SearchByName finds active students by exact name, case-insensitive.
func (s *Service) SearchByName(ctx context.Context, hostelCode, name string) ([]Student, error) {
	if hostelCode == "" || strings.TrimSpace(name) == "" {
		return nil, ValidationError{"hostel and name are required"}
	}
	return s.repo.FindByName(ctx, hostelCode, strings.TrimSpace(name))
}

// GetStudent returns one student.
func (s *Service) GetStudent(ctx context.Context, id int64, includeDeleted bool) (Student, error) {
	st, err := s.repo.GetStudent(ctx, id, includeDeleted)
	if err != nil {
		return Student{}, err
	}
	if st == nil {
		return Student{}, BusinessError{"student not found"}
	}
	return *st, nil
}

// UpdateStudent applies a partial profile update to an active student.
func (s *Service) UpdateStudent(ctx context.Context, id int64, upd StudentUpdate) error {
	if upd.Empty() {
		return ValidationError{"no fields to update"}
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return ValidationError{"name cannot be empty"}
	}
	if anyNegative(upd.MonthlyRent, upd.AdvancePaid, upd.AdvanceRemaining) {
		return ValidationError{"money amounts cannot be negative"}
	}
	if upd.DateJoin != nil && !validDate(*upd.DateJoin) {
		return ValidationError{"date_join must be YYYY-MM-DD"}
	}
	if upd.DateLeave != nil && *upd.DateLeave != "" && !validDate(*upd.DateLeave) {
		return ValidationError{"date_leave must be YYYY-MM-DD"}
	}
	ok, err := s.repo.UpdateStudent(ctx, id, upd)
	if err != nil {
		return err
	}
	if !ok {
		return BusinessError{"student not found"}
	}
	return nil
}

// SoftDelete marks a student as left. Deleting an already-deleted or unknown
// student fails the same way.
func (s *Service) SoftDelete(ctx context.Context, id int64) error {
	ok, err := s.repo.SoftDeleteStudent(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return BusinessError{"student not found"}
	}
	return nil
}

// Restore reactivates a soft-deleted student. Restoring an already-active
// student succeeds without effect.
func (s *Service) Restore(ctx context.Context, id int64) error {
	ok, err := s.repo.RestoreStudent(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return BusinessError{"student not found"}
	}
	return nil
}

// PermanentlyDelete removes a student and all dependent rows in one
// transaction, then cleans up the stored photo. Photo cleanup is best
// effort: a failure is logged, never surfaced, and the database delete
// stands.
func (s *Service) PermanentlyDelete(ctx context.Context, id int64) error {
	st, err := s.repo.GetStudent(ctx, id, true)
	if err != nil {
		return err
	}
	if st == nil {
		return BusinessError{"student not found"}
	}
	ok, err := s.repo.PurgeStudent(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return BusinessError{"student not found"}
	}
	if st.PhotoPath != "" && s.photos != nil {
		if err := s.photos.Remove(ctx, st.PhotoPath); err != nil {
			s.log.Warn("photo cleanup failed",
				zap.Int64("student_id", id), zap.String("path", st.PhotoPath), zap.Error(err))
		}
	}
	return nil
}

// AttachPhoto records a freshly stored photo on an active student and
// removes the previous one, best effort.
func (s *Service) AttachPhoto(ctx context.Context, id int64, path string) error {
	if path == "" {
		return ValidationError{"photo path is required"}
	}
	st, err := s.repo.GetStudent(ctx, id, false)
	if err != nil {
		return err
	}
	if st == nil {
		return BusinessError{"student not found"}
	}
	ok, err := s.repo.SetPhotoPath(ctx, id, path)
	if err != nil {
		return err
	}
	if !ok {
		return BusinessError{"student not found"}
	}
	if st.PhotoPath != "" && st.PhotoPath != path && s.photos != nil {
		if err := s.photos.Remove(ctx, st.PhotoPath); err != nil {
			s.log.Warn("old photo cleanup failed",
				zap.Int64("student_id", id), zap.String("path", st.PhotoPath), zap.Error(err))
		}
	}
	return nil
}

func kindLabel(kind LedgerKind) string {
	if kind == LedgerFood {
		return "extra food entry"
	}
	return "rent payment"
}

// AddLedgerEntry appends a rent or extra-food payment for an active student.
func (s *Service) AddLedgerEntry(ctx context.Context, kind LedgerKind, studentID int64, in LedgerInput) (LedgerEntry, error) {
	if in.AmountPaid <= 0 {
		return LedgerEntry{}, ValidationError{"amount_paid must be positive"}
	}
	if in.BalanceRemaining < 0 {
		return LedgerEntry{}, ValidationError{"balance_remaining cannot be negative"}
	}
	if in.Date == "" {
		in.Date = today()
	} else if !validDate(in.Date) {
		return LedgerEntry{}, ValidationError{"date must be YYYY-MM-DD"}
	}
	st, err := s.repo.GetStudent(ctx, studentID, false)
	if err != nil {
		return LedgerEntry{}, err
	}
	if st == nil {
		return LedgerEntry{}, BusinessError{"student not found"}
	}
	return s.repo.AppendLedger(ctx, kind, LedgerEntry{
		StudentID:        studentID,
		Date:             in.Date,
		AmountPaid:       in.AmountPaid,
		BalanceRemaining: in.BalanceRemaining,
	})
}

// LedgerEntries lists a student's rent or extra-food payments. The history
// of a soft-deleted student stays readable until the student is purged.
func (s *Service) LedgerEntries(ctx context.Context, kind LedgerKind, studentID int64) ([]LedgerEntry, error) {
	st, err := s.repo.GetStudent(ctx, studentID, true)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, BusinessError{"student not found"}
	}
	return s.repo.ListLedger(ctx, kind, studentID)
}

// EditLedgerEntry applies a partial update to a payment row.
func (s *Service) EditLedgerEntry(ctx context.Context, kind LedgerKind, id int64, upd LedgerUpdate) error {
	if upd.Empty() {
		return ValidationError{"no fields to update"}
	}
	if upd.Date != nil && !validDate(*upd.Date) {
		return ValidationError{"date must be YYYY-MM-DD"}
	}
	if upd.AmountPaid != nil && *upd.AmountPaid <= 0 {
		return ValidationError{"amount_paid must be positive"}
	}
	if upd.BalanceRemaining != nil && *upd.BalanceRemaining < 0 {
		return ValidationError{"balance_remaining cannot be negative"}
	}
	ok, err := s.repo.UpdateLedger(ctx, kind, id, upd)
	if err != nil {
		return err
	}
	if !ok {
		return BusinessError{kindLabel(kind) + " not found"}
	}
	return nil
}

// RemoveLedgerEntry deletes a payment row.
func (s *Service) RemoveLedgerEntry(ctx context.Context, kind LedgerKind, id int64) error {
	ok, err := s.repo.DeleteLedger(ctx, kind, id)
	if err != nil {
		return err
	}
	if !ok {
		return BusinessError{kindLabel(kind) + " not found"}
	}
	return nil
}

// MarkRoomAttendance records one day for every active student of a room:
// Absent for ids listed in the batch, Present for the rest. Each student is
// a single upsert on (hostel, date, room, student), so re-running the batch
// rewrites the same rows and never duplicates. Returns how many students
// were marked; an empty room marks zero and succeeds.
func (s *Service) MarkRoomAttendance(ctx context.Context, in AttendanceBatch) (int, error) {
	if in.HostelCode == "" || in.RoomNumber == "" || in.Date == "" {
		return 0, ValidationError{"hostel_code, room_number and date are required"}
	}
	if !validDate(in.Date) {
		return 0, ValidationError{"date must be YYYY-MM-DD"}
	}
	students, err := s.repo.ListByRoom(ctx, in.HostelCode, in.RoomNumber)
	if err != nil {
		return 0, err
	}
	absent := make(map[int64]bool, len(in.AbsentIDs))
	for _, id := range in.AbsentIDs {
		absent[id] = true
	}
	for _, st := range students {
		status := StatusPresent
		if absent[st.ID] {
			status = StatusAbsent
		}
		rec := AttendanceRecord{
			HostelCode: in.HostelCode,
			Date:       in.Date,
			RoomNumber: in.RoomNumber,
			StudentID:  st.ID,
			Status:     status,
		}
		if err := s.repo.UpsertAttendance(ctx, rec); err != nil {
			return 0, err
		}
	}
	s.log.Info("attendance marked",
		zap.String("hostel", in.HostelCode), zap.String("room", in.RoomNumber),
		zap.String("date", in.Date), zap.Int("students", len(students)))
	return len(students), nil
}

// RoomAttendance lists a room's marks for one day.
func (s *Service) RoomAttendance(ctx context.Context, hostelCode, roomNumber, date string) ([]AttendanceRecord, error) {
	if hostelCode == "" || roomNumber == "" || date == "" {
		return nil, ValidationError{"hostel, room and date are required"}
	}
	if !validDate(date) {
		return nil, ValidationError{"date must be YYYY-MM-DD"}
	}
	return s.repo.ListRoomAttendance(ctx, hostelCode, roomNumber, date)
}

// StudentAttendance lists one student's history, newest first.
func (s *Service) StudentAttendance(ctx context.Context, studentID int64) ([]AttendanceRecord, error) {
	st, err := s.repo.GetStudent(ctx, studentID, true)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, BusinessError{"student not found"}
	}
	return s.repo.ListStudentAttendance(ctx, studentID)
}

// EditAttendance rewrites the status of one mark.
func (s *Service) EditAttendance(ctx context.Context, id int64, status AttendanceStatus) error {
	if !status.Valid() {
		return ValidationError{`status must be "Present" or "Absent"`}
	}
	ok, err := s.repo.UpdateAttendanceStatus(ctx, id, status)
	if err != nil {
		return err
	}
	if !ok {
		return BusinessError{"attendance record not found"}
	}
	return nil
}

// RemoveAttendance deletes one mark.
func (s *Service) RemoveAttendance(ctx context.Context, id int64) error {
	ok, err := s.repo.DeleteAttendance(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return BusinessError{"attendance record not found"}
	}
	return nil
}

// AllocateRoomEB splits a room's electricity bill evenly across its active
// students: share = total / count, integer division, remainder not billed.
// Each student's monthly account is upserted by (hostel, student, month);
// a re-run with a corrected total overwrites the share and recomputes the
// balance against what the student has already paid.
func (s *Service) AllocateRoomEB(ctx context.Context, in EBBatch) (EBResult, error) {
	if in.HostelCode == "" || in.RoomNumber == "" || in.Date == "" {
		return EBResult{}, ValidationError{"hostel_code, room_number and date are required"}
	}
	if !validDate(in.Date) {
		return EBResult{}, ValidationError{"date must be YYYY-MM-DD"}
	}
	if in.EBTotal <= 0 {
		return EBResult{}, ValidationError{"eb_total must be positive"}
	}
	students, err := s.repo.ListByRoom(ctx, in.HostelCode, in.RoomNumber)
	if err != nil {
		return EBResult{}, err
	}
	if len(students) == 0 {
		return EBResult{}, BusinessError{"no active students in this room"}
	}
	share := in.EBTotal / int64(len(students))
	for _, st := range students {
		acc := MonthlyAccount{
			HostelCode: in.HostelCode,
			StudentID:  st.ID,
			Date:       in.Date,
			RoomNumber: in.RoomNumber,
			EBShare:    share,
		}
		if err := s.repo.UpsertAccountEB(ctx, acc); err != nil {
			return EBResult{}, err
		}
	}
	s.log.Info("eb allocated",
		zap.String("hostel", in.HostelCode), zap.String("room", in.RoomNumber),
		zap.String("date", in.Date), zap.Int("students", len(students)),
		zap.Int64("total", in.EBTotal), zap.Int64("share", share))
	return EBResult{
		RoomNumber: in.RoomNumber,
		Date:       in.Date,
		Students:   len(students),
		EBTotal:    in.EBTotal,
		EBShare:    share,
	}, nil
}

// AddMonthlyAccount creates a month's account row for an active student by
// hand, with the room taken from the student's current assignment. A second
// row for the same month is refused.
func (s *Service) AddMonthlyAccount(ctx context.Context, studentID int64, in AccountInput) (MonthlyAccount, error) {
	if in.Date == "" {
		return MonthlyAccount{}, ValidationError{"date is required"}
	}
	if !validDate(in.Date) {
		return MonthlyAccount{}, ValidationError{"date must be YYYY-MM-DD"}
	}
	if in.RentPaid < 0 || in.RentRemaining < 0 || in.EBShare < 0 || in.EBPaid < 0 || in.EBRemaining < 0 {
		return MonthlyAccount{}, ValidationError{"money amounts cannot be negative"}
	}
	st, err := s.repo.GetStudent(ctx, studentID, false)
	if err != nil {
		return MonthlyAccount{}, err
	}
	if st == nil {
		return MonthlyAccount{}, BusinessError{"student not found"}
	}
	acc, err := s.repo.InsertAccount(ctx, MonthlyAccount{
		HostelCode:    st.HostelCode,
		StudentID:     studentID,
		Date:          in.Date,
		RoomNumber:    st.RoomNumber,
		RentPaid:      in.RentPaid,
		RentRemaining: in.RentRemaining,
		EBShare:       in.EBShare,
		EBPaid:        in.EBPaid,
		EBRemaining:   in.EBRemaining,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return MonthlyAccount{}, BusinessError{"monthly account already exists for this month"}
		}
		return MonthlyAccount{}, err
	}
	return acc, nil
}

// StudentAccounts lists a student's monthly rows, newest first.
func (s *Service) StudentAccounts(ctx context.Context, studentID int64) ([]MonthlyAccount, error) {
	st, err := s.repo.GetStudent(ctx, studentID, true)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, BusinessError{"student not found"}
	}
	return s.repo.ListStudentAccounts(ctx, studentID)
}

// EditMonthlyAccount applies a partial update to a monthly account row.
func (s *Service) EditMonthlyAccount(ctx context.Context, id int64, upd AccountUpdate) error {
	if upd.Empty() {
		return ValidationError{"no fields to update"}
	}
	if upd.Date != nil && !validDate(*upd.Date) {
		return ValidationError{"date must be YYYY-MM-DD"}
	}
	if anyNegative(upd.RentPaid, upd.RentRemaining, upd.EBShare, upd.EBPaid, upd.EBRemaining) {
		return ValidationError{"money amounts cannot be negative"}
	}
	ok, err := s.repo.UpdateAccount(ctx, id, upd)
	if err != nil {
		return err
	}
	if !ok {
		return BusinessError{"monthly account not found"}
	}
	return nil
}

// RemoveMonthlyAccount deletes a monthly account row.
func (s *Service) RemoveMonthlyAccount(ctx context.Context, id int64) error {
	ok, err := s.repo.DeleteAccount(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return BusinessError{"monthly account not found"}
	}
	return nil
}

// RoomStatement returns a room's active roster joined with each student's
// account for one month.
func (s *Service) RoomStatement(ctx context.Context, hostelCode, roomNumber, date string) ([]RoomAccountRow, error) {
	if hostelCode == "" || roomNumber == "" || date == "" {
		return nil, ValidationError{"hostel, room and date are required"}
	}
	if !validDate(date) {
		return nil, ValidationError{"date must be YYYY-MM-DD"}
	}
	return s.repo.RoomAccounts(ctx, hostelCode, roomNumber, date)
}
