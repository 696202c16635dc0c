package coverage

import (
	"time"

	"github.com/google/uuid"

	"github.com/shadynafie/rotato-sub000/internal/domain/rota"
)

// Request statuses. Cancelled is terminal but soft; rows are only hard
// deleted by an explicit admin action from cancelled.
const (
	StatusPending   = "pending"
	StatusAssigned  = "assigned"
	StatusCancelled = "cancelled"
)

// Request types: which role must provide the cover.
const (
	TypeRegistrar  = "registrar"
	TypeConsultant = "consultant"
)

// Reasons a request was raised.
const (
	ReasonLeave          = "leave"
	ReasonOncallConflict = "oncall_conflict"
	ReasonManual         = "manual"
)

// Unavailability labels shown alongside excluded candidates.
const (
	UnavailableOnLeave         = "on_leave"
	UnavailableOnCall          = "on_call"
	UnavailableAlreadyAssigned = "already_assigned"
)

// Request maps to the coverage_request table. At most one non-cancelled row
// may exist per (date, session, duty, absent clinician).
type Request struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	Date                time.Time  `db:"date" json:"date"`
	Session             string     `db:"session" json:"session"`
	DutyID              uuid.UUID  `db:"duty_id" json:"duty_id"`
	Type                string     `db:"type" json:"type"`
	Reason              string     `db:"reason" json:"reason"`
	Status              string     `db:"status" json:"status"`
	AbsentClinicianID   uuid.UUID  `db:"absent_clinician_id" json:"absent_clinician_id"`
	ConsultantID        *uuid.UUID `db:"consultant_id" json:"consultant_id,omitempty"`
	AssignedClinicianID *uuid.UUID `db:"assigned_clinician_id" json:"assigned_clinician_id,omitempty"`
	AssignedAt          *time.Time `db:"assigned_at" json:"assigned_at,omitempty"`
	Note                *string    `db:"note" json:"note,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// Need is an uncovered duty found by the detector, not yet persisted as a
// request.
type Need struct {
	Date              time.Time  `json:"date"`
	Session           string     `json:"session"`
	DutyID            uuid.UUID  `json:"duty_id"`
	Type              string     `json:"type"`
	Reason            string     `json:"reason"`
	AbsentClinicianID uuid.UUID  `json:"absent_clinician_id"`
	ConsultantID      *uuid.UUID `json:"consultant_id,omitempty"`
	Note              *string    `json:"note,omitempty"`
}

// Detection is the outcome of need detection: the requests to raise and,
// for consultant absences, the registrars freed by the cascade. The freed
// list is reported even on read-only paths so callers can audit who was
// stood down; nothing is persisted by detection itself.
type Detection struct {
	Needs []*Need                 `json:"needs"`
	Freed []*rota.DerivedOverride `json:"freed,omitempty"`
}

// RankedCandidate is an eligible substitute with its advisory score and the
// reasons that produced it.
type RankedCandidate struct {
	ClinicianID uuid.UUID `json:"clinician_id"`
	Name        string    `json:"name"`
	Grade       *string   `json:"grade,omitempty"`
	Score       int       `json:"score"`
	Reasons     []string  `json:"reasons"`
}

// UnavailableCandidate is an excluded clinician with the exclusion label.
type UnavailableCandidate struct {
	ClinicianID uuid.UUID `json:"clinician_id"`
	Name        string    `json:"name"`
	Reason      string    `json:"reason"`
}

// Suggestion is the scorer output. An empty Available list with Unavailable
// populated means no one can cover; that is a valid answer, not an error.
type Suggestion struct {
	Available   []*RankedCandidate      `json:"available"`
	Unavailable []*UnavailableCandidate `json:"unavailable"`
}
