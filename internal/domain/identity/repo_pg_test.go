package identity

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var patientColNames = []string{"id", "mrn", "full_name", "guardian_name", "dob", "gender",
	"mobile_no", "mobile_norm", "address", "password_hash", "created_at"}

func TestPatientRepoPG_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO patient")).
		WithArgs("MRN0001", "Ali Khan", "", "", "Male", "0300-1234567", "+923001234567", "", "").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), now))

	p := &Patient{MRN: "MRN0001", FullName: "Ali Khan", Gender: "Male",
		MobileNo: "0300-1234567", MobileNorm: "+923001234567"}
	require.NoError(t, NewPatientRepoPG(mock).Create(context.Background(), p))
	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, now, p.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientRepoPG_CreateDuplicateMRN(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO patient")).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = NewPatientRepoPG(mock).Create(context.Background(), &Patient{MRN: "MRN0001", FullName: "X"})
	assert.ErrorIs(t, err, ErrMRNTaken)
}

func TestPatientRepoPG_GetByMRN(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE upper(mrn) = upper($1)")).
		WithArgs("mrn0001").
		WillReturnRows(pgxmock.NewRows(patientColNames).AddRow(
			int64(1), "MRN0001", "Ali Khan", "", "1990-04-01", "Male",
			"0300-1234567", "+923001234567", "", "", time.Now()))

	p, err := NewPatientRepoPG(mock).GetByMRN(context.Background(), "mrn0001")
	require.NoError(t, err)
	assert.Equal(t, "MRN0001", p.MRN)
	assert.Equal(t, "1990-04-01", p.DOB)
}

func TestPatientRepoPG_GetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM patient WHERE id = $1")).
		WithArgs(int64(9)).
		WillReturnError(pgx.ErrNoRows)

	_, err = NewPatientRepoPG(mock).GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestPatientRepoPG_ListByPhone(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE mobile_norm = $1 ORDER BY id")).
		WithArgs("+923001234567").
		WillReturnRows(pgxmock.NewRows(patientColNames).
			AddRow(int64(1), "MRN0001", "Father", "", "", "", "0300-1234567", "+923001234567", "", "", time.Now()).
			AddRow(int64(2), "MRN0002", "Son", "", "", "", "03001234567", "+923001234567", "", "", time.Now()))

	got, err := NewPatientRepoPG(mock).ListByPhone(context.Background(), "+923001234567")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Son", got[1].FullName)
}

func TestPatientRepoPG_NextMRNSeq(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT setval('patient_mrn_seq'")).
		WillReturnRows(pgxmock.NewRows([]string{"setval"}).AddRow(int64(4)))

	seq, err := NewPatientRepoPG(mock).NextMRNSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), seq)
}

func TestPatientRepoPG_UpdatePasswordMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE patient SET password_hash")).
		WithArgs("hash", int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = NewPatientRepoPG(mock).UpdatePassword(context.Background(), 3, "hash")
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestDoctorRepoPG_UpdateAndList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE doctor SET")).
		WithArgs(int64(1), "D01", "", "Dr. Ayesha", "Orthodontics", "N", "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM doctor ORDER BY id")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "code", "registration_no", "full_name", "specialty", "active", "image_url"}).
			AddRow(int64(1), "D01", "", "Dr. Ayesha", "Orthodontics", "N", ""))

	repo := NewDoctorRepoPG(mock)
	require.NoError(t, repo.Update(context.Background(),
		&Doctor{ID: 1, Code: "D01", FullName: "Dr. Ayesha", Specialty: "Orthodontics", Active: ActiveNo}))

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsActive())
	assert.NoError(t, mock.ExpectationsWereMet())
}
