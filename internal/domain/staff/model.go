package staff

import (
	"time"

	"github.com/google/uuid"
)

// Clinician roles.
const (
	RoleConsultant = "consultant"
	RoleRegistrar  = "registrar"
)

// Registrar grades.
const (
	GradeJunior = "junior"
	GradeSenior = "senior"
)

// Clinician maps to the clinician table. Grade is set for registrars only.
type Clinician struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Role      string    `db:"role" json:"role"`
	Grade     *string   `db:"grade" json:"grade,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Duty maps to the duty table. RequiresRegistrar drives coverage-need
// detection when the assigned registrar is absent.
type Duty struct {
	ID                uuid.UUID `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Color             string    `db:"color" json:"color"`
	RequiresRegistrar bool      `db:"requires_registrar" json:"requires_registrar"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}
