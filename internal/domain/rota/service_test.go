package rota

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type recordingSink struct {
	recorded []*Leave
	deleted  []*Leave
}

func (s *recordingSink) LeaveRecorded(_ context.Context, l *Leave) error {
	s.recorded = append(s.recorded, l)
	return nil
}

func (s *recordingSink) LeaveDeleted(_ context.Context, l *Leave) error {
	s.deleted = append(s.deleted, l)
	return nil
}

func newTestService() (*Service, *rotaFixture, *recordingSink) {
	f := newRotaFixture(1)
	svc := NewService(f.jobplan, f.leaves, f.overrides, f.derived, f.compositor, PassthroughTx, zerolog.Nop())
	sink := &recordingSink{}
	svc.SetCoverageSink(sink)
	return svc, f, sink
}

func TestCreateLeaveValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if err := svc.CreateLeave(ctx, &Leave{Date: date(2024, time.June, 3), Session: SessionAM, Type: "annual"}); err == nil {
		t.Error("expected error for missing clinician")
	}
	if err := svc.CreateLeave(ctx, &Leave{ClinicianID: uuid.New(), Date: date(2024, time.June, 3), Session: "EVENING", Type: "annual"}); err == nil {
		t.Error("expected error for invalid session")
	}
	if err := svc.CreateLeave(ctx, &Leave{ClinicianID: uuid.New(), Date: date(2024, time.June, 3), Session: SessionAM}); err == nil {
		t.Error("expected error for missing type")
	}
}

func TestCreateLeaveNotifiesSink(t *testing.T) {
	svc, _, sink := newTestService()
	ctx := context.Background()

	l := &Leave{ClinicianID: uuid.New(), Date: date(2024, time.June, 3), Session: SessionFull, Type: "annual"}
	if err := svc.CreateLeave(ctx, l); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.recorded) != 1 || sink.recorded[0].ID != l.ID {
		t.Error("expected sink to see the recorded leave")
	}
}

func TestCreateLeaveRangeSkipsDuplicates(t *testing.T) {
	svc, f, sink := newTestService()
	ctx := context.Background()
	clinician := uuid.New()

	// Day 3 of the range already has leave for this clinician and session.
	f.leaves.Create(ctx, &Leave{ClinicianID: clinician, Date: date(2024, time.June, 5), Session: SessionAM, Type: "annual"})

	count, err := svc.CreateLeaveRange(ctx, clinician,
		date(2024, time.June, 3), date(2024, time.June, 7), SessionAM, "annual", nil)
	if err != nil {
		t.Fatalf("duplicate mid-range must not fail the batch: %v", err)
	}
	if count != 4 {
		t.Errorf("expected 4 created, got %d", count)
	}
	if len(sink.recorded) != 4 {
		t.Errorf("sink should only see the 4 created leaves, saw %d", len(sink.recorded))
	}
}

func TestDeleteLeaveNotifiesSink(t *testing.T) {
	svc, f, sink := newTestService()
	ctx := context.Background()

	l := &Leave{ClinicianID: uuid.New(), Date: date(2024, time.June, 3), Session: SessionAM, Type: "annual"}
	f.leaves.Create(ctx, l)

	if err := svc.DeleteLeave(ctx, l.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.deleted) != 1 || sink.deleted[0].ID != l.ID {
		t.Error("expected sink to see the deleted leave")
	}

	if err := svc.DeleteLeave(ctx, uuid.New()); err == nil {
		t.Error("expected error deleting a non-existent leave")
	}
}

func TestSaveOverrideValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if err := svc.SaveOverride(ctx, &RotaEntry{ClinicianID: uuid.New(), Date: date(2024, time.June, 3), Session: SessionFull}); err == nil {
		t.Error("expected error for FULL session on an override")
	}
	if err := svc.SaveOverride(ctx, &RotaEntry{ClinicianID: uuid.New(), Date: date(2024, time.June, 3), Session: SessionAM, IsOncall: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSaveJobPlanEntryValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if err := svc.SaveJobPlanEntry(ctx, &JobPlanEntry{ClinicianID: uuid.New(), WeekNo: 6, DayOfWeek: 1, Session: SessionAM}); err == nil {
		t.Error("expected error for week_no out of range")
	}
	if err := svc.SaveJobPlanEntry(ctx, &JobPlanEntry{ClinicianID: uuid.New(), WeekNo: 1, DayOfWeek: 6, Session: SessionAM}); err == nil {
		t.Error("expected error for day_of_week out of range")
	}
	if err := svc.SaveJobPlanEntry(ctx, &JobPlanEntry{ClinicianID: uuid.New(), WeekNo: 2, DayOfWeek: 3, Session: SessionPM}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWeekOfMonth(t *testing.T) {
	cases := []struct {
		day  int
		want int
	}{
		{1, 1}, {7, 1}, {8, 2}, {14, 2}, {15, 3}, {22, 4}, {29, 5}, {31, 5},
	}
	for _, tc := range cases {
		if got := WeekOfMonth(date(2024, time.July, tc.day)); got != tc.want {
			t.Errorf("WeekOfMonth(day %d) = %d, want %d", tc.day, got, tc.want)
		}
	}
}

func TestJobPlanDay(t *testing.T) {
	if got := JobPlanDay(date(2024, time.June, 3)); got != 1 { // Monday
		t.Errorf("expected Monday=1, got %d", got)
	}
	if got := JobPlanDay(date(2024, time.June, 9)); got != 7 { // Sunday
		t.Errorf("expected Sunday=7, got %d", got)
	}
}
