package staff

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	clinicians ClinicianRepository
	duties     DutyRepository
}

func NewService(clinicians ClinicianRepository, duties DutyRepository) *Service {
	return &Service{clinicians: clinicians, duties: duties}
}

// -- Clinician --

var validRoles = map[string]bool{
	RoleConsultant: true, RoleRegistrar: true,
}

var validGrades = map[string]bool{
	GradeJunior: true, GradeSenior: true,
}

func (s *Service) CreateClinician(ctx context.Context, c *Clinician) error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !validRoles[c.Role] {
		return fmt.Errorf("invalid role: %s", c.Role)
	}
	if c.Grade != nil {
		if c.Role != RoleRegistrar {
			return fmt.Errorf("grade only applies to registrars")
		}
		if !validGrades[*c.Grade] {
			return fmt.Errorf("invalid grade: %s", *c.Grade)
		}
	}
	return s.clinicians.Create(ctx, c)
}

func (s *Service) GetClinician(ctx context.Context, id uuid.UUID) (*Clinician, error) {
	return s.clinicians.GetByID(ctx, id)
}

func (s *Service) UpdateClinician(ctx context.Context, c *Clinician) error {
	if !validRoles[c.Role] {
		return fmt.Errorf("invalid role: %s", c.Role)
	}
	if c.Grade != nil && !validGrades[*c.Grade] {
		return fmt.Errorf("invalid grade: %s", *c.Grade)
	}
	return s.clinicians.Update(ctx, c)
}

func (s *Service) DeleteClinician(ctx context.Context, id uuid.UUID) error {
	return s.clinicians.Delete(ctx, id)
}

func (s *Service) ListClinicians(ctx context.Context, limit, offset int) ([]*Clinician, int, error) {
	return s.clinicians.List(ctx, limit, offset)
}

func (s *Service) ListActiveByRole(ctx context.Context, role string) ([]*Clinician, error) {
	if !validRoles[role] {
		return nil, fmt.Errorf("invalid role: %s", role)
	}
	return s.clinicians.ListActiveByRole(ctx, role)
}

// -- Duty --

func (s *Service) CreateDuty(ctx context.Context, d *Duty) error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.duties.Create(ctx, d)
}

func (s *Service) GetDuty(ctx context.Context, id uuid.UUID) (*Duty, error) {
	return s.duties.GetByID(ctx, id)
}

func (s *Service) UpdateDuty(ctx context.Context, d *Duty) error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.duties.Update(ctx, d)
}

func (s *Service) DeleteDuty(ctx context.Context, id uuid.UUID) error {
	return s.duties.Delete(ctx, id)
}

func (s *Service) ListDuties(ctx context.Context, limit, offset int) ([]*Duty, int, error) {
	return s.duties.List(ctx, limit, offset)
}
