package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func sampleRequest() SubmitRequest {
	return SubmitRequest{
		SessionID:       "sess-1",
		PatientID:       "u1",
		PatientName:     "Pat Doe",
		PatientEmail:    "pat@example.com",
		PatientPhone:    "+15550100",
		InsuranceRef:    "INS-42",
		ProviderID:      "prov-1",
		ProviderName:    "Dr. Sarah Chen",
		Date:            "2026-09-07",
		Hour:            10,
		DisplayTime:     "10:00 AM",
		AppointmentType: "follow_up",
		Reason:          "Blood pressure check",
		NotifyEmail:     true,
	}
}

func TestSubmitInsertsAppointment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	req := sampleRequest()
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), req.PatientID, req.PatientName, req.PatientEmail, req.PatientPhone,
			req.InsuranceRef, req.ProviderID, req.ProviderName, req.Date, req.Hour,
			req.AppointmentType, req.Reason, req.NotifyEmail, req.NotifySMS).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	repo := NewPostgresRepository(mock)
	conf, err := repo.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if conf.ID == "" {
		t.Error("expected a confirmation id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSubmitUniqueViolationBecomesSubmissionError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "appointments_slot_key"})

	repo := NewPostgresRepository(mock)
	_, err = repo.Submit(context.Background(), sampleRequest())

	var subErr *SubmissionError
	if !errors.As(err, &subErr) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
	if subErr.Reason == "" {
		t.Error("expected a patient-facing rejection reason")
	}
}

func TestSubmitOtherErrorsPassThrough(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	repo := NewPostgresRepository(mock)
	_, err = repo.Submit(context.Background(), sampleRequest())

	var subErr *SubmissionError
	if errors.As(err, &subErr) {
		t.Fatal("transport errors must not masquerade as backend rejections")
	}
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestCancelUpdatesConfirmedRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec("UPDATE appointments").
		WithArgs("conf-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewPostgresRepository(mock)
	if err := repo.Cancel(context.Background(), "conf-1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
}

func TestCancelUnknownConfirmation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec("UPDATE appointments").
		WithArgs("conf-404").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewPostgresRepository(mock)
	if err := repo.Cancel(context.Background(), "conf-404"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
