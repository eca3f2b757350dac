package hostel

// AttendanceStatus is the per-student per-day mark.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "Present"
	StatusAbsent  AttendanceStatus = "Absent"
)

// Valid reports whether s is a recordable status.
func (s AttendanceStatus) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// Student is a hostel resident. Money fields are whole currency units,
// date fields are YYYY-MM-DD strings.
type Student struct {
	ID               int64  `json:"id"`
	HostelCode       string `json:"hostel_code"`
	Name             string `json:"name"`
	Address          string `json:"address,omitempty"`
	Course           string `json:"course,omitempty"`
	Phone            string `json:"phone,omitempty"`
	RoomNumber       string `json:"room_number,omitempty"`
	RoomType         string `json:"room_type,omitempty"`
	MonthlyRent      int64  `json:"monthly_rent"`
	AdvancePaid      int64  `json:"advance_paid"`
	AdvanceRemaining int64  `json:"advance_remaining"`
	DateJoin         string `json:"date_join,omitempty"`
	DateLeave        string `json:"date_leave,omitempty"`
	PhotoPath        string `json:"photo_path,omitempty"`
	IsDeleted        bool   `json:"is_deleted"`
	DeletedAt        string `json:"deleted_at,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
}

// NewStudent is the registration payload. Name and HostelCode are required;
// DateJoin defaults to today.
type NewStudent struct {
	HostelCode       string `json:"hostel_code"`
	Name             string `json:"name"`
	Address          string `json:"address"`
	Course           string `json:"course"`
	Phone            string `json:"phone"`
	RoomNumber       string `json:"room_number"`
	RoomType         string `json:"room_type"`
	MonthlyRent      int64  `json:"monthly_rent"`
	AdvancePaid      int64  `json:"advance_paid"`
	AdvanceRemaining int64  `json:"advance_remaining"`
	DateJoin         string `json:"date_join"`
}

// StudentUpdate carries the editable profile fields; nil means unchanged.
type StudentUpdate struct {
	Name             *string `json:"name"`
	Address          *string `json:"address"`
	Course           *string `json:"course"`
	Phone            *string `json:"phone"`
	RoomNumber       *string `json:"room_number"`
	RoomType         *string `json:"room_type"`
	MonthlyRent      *int64  `json:"monthly_rent"`
	AdvancePaid      *int64  `json:"advance_paid"`
	AdvanceRemaining *int64  `json:"advance_remaining"`
	DateJoin         *string `json:"date_join"`
	DateLeave        *string `json:"date_leave"`
}

// Empty reports whether the update changes nothing.
func (u StudentUpdate) Empty() bool {
	return u.Name == nil && u.Address == nil && u.Course == nil && u.Phone == nil &&
		u.RoomNumber == nil && u.RoomType == nil && u.MonthlyRent == nil &&
		u.AdvancePaid == nil && u.AdvanceRemaining == nil && u.DateJoin == nil && u.DateLeave == nil
}

// LedgerEntry is one rent or extra-food payment row.
type LedgerEntry struct {
	ID               int64  `json:"id"`
	StudentID        int64  `json:"student_id"`
	Date             string `json:"date"`
	AmountPaid       int64  `json:"amount_paid"`
	BalanceRemaining int64  `json:"balance_remaining"`
	CreatedAt        string `json:"created_at,omitempty"`
}

// LedgerInput appends a payment row. Date defaults to today.
type LedgerInput struct {
	Date             string `json:"date"`
	AmountPaid       int64  `json:"amount_paid"`
	BalanceRemaining int64  `json:"balance_remaining"`
}

// LedgerUpdate edits a payment row; nil means unchanged.
type LedgerUpdate struct {
	Date             *string `json:"date"`
	AmountPaid       *int64  `json:"amount_paid"`
	BalanceRemaining *int64  `json:"balance_remaining"`
}

// Empty reports whether the update changes nothing.
func (u LedgerUpdate) Empty() bool {
	return u.Date == nil && u.AmountPaid == nil && u.BalanceRemaining == nil
}

// AttendanceRecord is one student's mark for one day. StudentName is only
// populated by the room listing, which joins the roster.
type AttendanceRecord struct {
	ID          int64            `json:"id"`
	HostelCode  string           `json:"hostel_code"`
	Date        string           `json:"date"`
	RoomNumber  string           `json:"room_number"`
	StudentID   int64            `json:"student_id"`
	StudentName string           `json:"student_name,omitempty"`
	Status      AttendanceStatus `json:"status"`
	CreatedAt   string           `json:"created_at,omitempty"`
}

// AttendanceBatch marks one room for one day. Students listed in AbsentIDs
// are recorded Absent, everyone else in the room Present.
type AttendanceBatch struct {
	HostelCode string  `json:"hostel_code"`
	RoomNumber string  `json:"room_number"`
	Date       string  `json:"date"`
	AbsentIDs  []int64 `json:"absent_ids"`
}

// MonthlyAccount is one student's rent and electricity position for one month.
type MonthlyAccount struct {
	ID            int64  `json:"id"`
	HostelCode    string `json:"hostel_code"`
	StudentID     int64  `json:"student_id"`
	Date          string `json:"date"`
	RoomNumber    string `json:"room_number,omitempty"`
	RentPaid      int64  `json:"rent_paid"`
	RentRemaining int64  `json:"rent_remaining"`
	EBShare       int64  `json:"eb_share"`
	EBPaid        int64  `json:"eb_paid"`
	EBRemaining   int64  `json:"eb_remaining"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// AccountInput creates a monthly account row by hand. Date is required and
// names the month; the room is taken from the student's current assignment.
type AccountInput struct {
	Date          string `json:"date"`
	RentPaid      int64  `json:"rent_paid"`
	RentRemaining int64  `json:"rent_remaining"`
	EBShare       int64  `json:"eb_share"`
	EBPaid        int64  `json:"eb_paid"`
	EBRemaining   int64  `json:"eb_remaining"`
}

// AccountUpdate edits a monthly account row; nil means unchanged.
type AccountUpdate struct {
	Date          *string `json:"date"`
	RoomNumber    *string `json:"room_number"`
	RentPaid      *int64  `json:"rent_paid"`
	RentRemaining *int64  `json:"rent_remaining"`
	EBShare       *int64  `json:"eb_share"`
	EBPaid        *int64  `json:"eb_paid"`
	EBRemaining   *int64  `json:"eb_remaining"`
}

// Empty reports whether the update changes nothing.
func (u AccountUpdate) Empty() bool {
	return u.Date == nil && u.RoomNumber == nil && u.RentPaid == nil && u.RentRemaining == nil &&
		u.EBShare == nil && u.EBPaid == nil && u.EBRemaining == nil
}

// EBBatch allocates a room's electricity bill across its active students.
type EBBatch struct {
	HostelCode string `json:"hostel_code"`
	RoomNumber string `json:"room_number"`
	Date       string `json:"date"`
	EBTotal    int64  `json:"eb_total"`
}

// EBResult summarizes an allocation run. Share is per student; integer
// division, any remainder is not billed.
type EBResult struct {
	RoomNumber string `json:"room_number"`
	Date       string `json:"date"`
	Students   int    `json:"students"`
	EBTotal    int64  `json:"eb_total"`
	EBShare    int64  `json:"eb_share"`
}

// RoomAccountRow is one line of the per-room monthly statement: a roster
// student plus their account for the requested month, if one exists.
type RoomAccountRow struct {
	StudentID  int64           `json:"student_id"`
	Name       string          `json:"name"`
	RoomNumber string          `json:"room_number"`
	Account    *MonthlyAccount `json:"account,omitempty"`
}
