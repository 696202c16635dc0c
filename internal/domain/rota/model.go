package rota

import (
	"time"

	"github.com/google/uuid"

	"github.com/shadynafie/rotato-sub000/internal/domain/oncall"
)

// Sessions. FULL is only valid on leave records; schedule cells are always
// AM or PM.
const (
	SessionAM   = "AM"
	SessionPM   = "PM"
	SessionFull = "FULL"
)

// Schedule entry sources, one per precedence layer.
const (
	SourceManual  = "manual"
	SourceLeave   = "leave"
	SourceDerived = "derived"
	SourceOncall  = "oncall"
	SourceJobPlan = "jobplan"
)

// JobPlanEntry is one cell of the recurring base schedule: what a clinician
// does in a given (week-of-month, weekday, session). For registrars the entry
// may name the consultant whose clinic they are supporting.
type JobPlanEntry struct {
	ID                     uuid.UUID  `db:"id" json:"id"`
	ClinicianID            uuid.UUID  `db:"clinician_id" json:"clinician_id"`
	WeekNo                 int        `db:"week_no" json:"week_no"`
	DayOfWeek              int        `db:"day_of_week" json:"day_of_week"`
	Session                string     `db:"session" json:"session"`
	DutyID                 *uuid.UUID `db:"duty_id" json:"duty_id,omitempty"`
	SupportingConsultantID *uuid.UUID `db:"supporting_consultant_id" json:"supporting_consultant_id,omitempty"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updated_at"`
}

// Leave maps to the leave table. Unique per (clinician, date, session).
type Leave struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ClinicianID uuid.UUID `db:"clinician_id" json:"clinician_id"`
	Date        time.Time `db:"date" json:"date"`
	Session     string    `db:"session" json:"session"`
	Type        string    `db:"type" json:"type"`
	Note        *string   `db:"note" json:"note,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CoversSession reports whether the leave blocks the given AM/PM session.
func (l *Leave) CoversSession(session string) bool {
	return l.Session == SessionFull || l.Session == session
}

// RotaEntry is a manually authored cell. Highest precedence, persists until
// explicitly reverted.
type RotaEntry struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	ClinicianID uuid.UUID  `db:"clinician_id" json:"clinician_id"`
	Date        time.Time  `db:"date" json:"date"`
	Session     string     `db:"session" json:"session"`
	DutyID      *uuid.UUID `db:"duty_id" json:"duty_id,omitempty"`
	IsOncall    bool       `db:"is_oncall" json:"is_oncall"`
	Note        *string    `db:"note" json:"note,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// DerivedOverride blanks a registrar cell whose supporting consultant is
// absent. It is attributable to the leave that triggered it, so reversal is
// a delete by origin rather than a reconstruction guess.
type DerivedOverride struct {
	ID            uuid.UUID `db:"id" json:"id"`
	ClinicianID   uuid.UUID `db:"clinician_id" json:"clinician_id"`
	Date          time.Time `db:"date" json:"date"`
	Session       string    `db:"session" json:"session"`
	OriginLeaveID uuid.UUID `db:"origin_leave_id" json:"origin_leave_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ScheduleEntry is one resolved cell of the composed schedule. A cell no
// layer claimed has empty Source and nil fields; that is a valid blank, not
// an error.
type ScheduleEntry struct {
	ClinicianID            uuid.UUID  `json:"clinician_id"`
	Date                   time.Time  `json:"date"`
	Session                string     `json:"session"`
	DutyID                 *uuid.UUID `json:"duty_id,omitempty"`
	SupportingConsultantID *uuid.UUID `json:"supporting_consultant_id,omitempty"`
	IsOncall               bool       `json:"is_oncall"`
	IsLeave                bool       `json:"is_leave"`
	LeaveType              *string    `json:"leave_type,omitempty"`
	IsRest                 bool       `json:"is_rest"`
	Note                   *string    `json:"note,omitempty"`
	Source                 string     `json:"source,omitempty"`
}

// WeekOfMonth returns the 1-indexed week of the month for date, capped at 5.
func WeekOfMonth(date time.Time) int {
	w := (date.Day()-1)/7 + 1
	if w > 5 {
		w = 5
	}
	return w
}

// JobPlanDay maps a date's weekday to the job-plan numbering (Monday=1 ..
// Sunday=7; job plans only populate 1..5).
func JobPlanDay(date time.Time) int {
	wd := int(date.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// DateOnly re-exported for callers working with rota records.
func DateOnly(t time.Time) time.Time { return oncall.DateOnly(t) }
