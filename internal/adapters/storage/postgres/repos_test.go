package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"caregiver-support/internal/domain/carerecipients"
	"caregiver-support/internal/domain/emergencyinfo"
	"caregiver-support/internal/domain/records"
	"caregiver-support/internal/domain/users"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock
}

var recordCols = []string{
	"id", "care_recipient_id", "kind", "occurred_at", "notes", "details",
	"created_by", "created_at", "updated_at",
}

func TestRecordsRepo_List_BuildsFilteredQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewRecordsRepo(db)

	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	at := from.Add(8 * time.Hour)

	rows := sqlmock.NewRows(recordCols).
		AddRow("r1", "7", "meals", at, "", []byte(`{"mealType":"lunch"}`), "u1", at, at)

	mock.ExpectQuery(`SELECT .* FROM care_records WHERE care_recipient_id = \$1 AND kind IN \(\$2\) AND occurred_at >= \$3 AND occurred_at < \$4 ORDER BY occurred_at DESC, created_at DESC LIMIT \$5`).
		WithArgs("7", "meals", from, to, 50).
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), records.ListFilter{
		CareRecipientID: "7",
		Kinds:           []records.Kind{records.KindMeals},
		From:            &from,
		To:              &to,
		Limit:           50,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, records.KindMeals, got[0].Kind)
	assert.JSONEq(t, `{"mealType":"lunch"}`, string(got[0].Details))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordsRepo_List_NoLimit(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewRecordsRepo(db)

	mock.ExpectQuery(`ORDER BY occurred_at DESC, created_at DESC$`).
		WithArgs("7").
		WillReturnRows(sqlmock.NewRows(recordCols))

	got, err := repo.List(context.Background(), records.ListFilter{CareRecipientID: "7"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordsRepo_GetByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewRecordsRepo(db)

	mock.ExpectQuery(`FROM care_records WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, records.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordsRepo_Update_NoRowsIsNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewRecordsRepo(db)

	mock.ExpectExec(`UPDATE care_records`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), records.Record{ID: "r1"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCareRecipientsRepo_ListByOwner_CreationOrder(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewCareRecipientsRepo(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "owner_user_id", "name", "status", "created_at", "updated_at"}).
		AddRow("1", "u1", "Rose", "active", now, now).
		AddRow("2", "u1", "Tom", "inactive", now, now)

	mock.ExpectQuery(`ORDER BY created_at ASC, seq ASC`).
		WithArgs("u1").
		WillReturnRows(rows)

	got, err := repo.ListByOwner(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, carerecipients.StatusInactive, got[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCareRecipientsRepo_Delete(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewCareRecipientsRepo(db)

	mock.ExpectExec(`DELETE FROM care_recipients WHERE id = \$1`).
		WithArgs("1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM care_recipients WHERE id = \$1`).
		WithArgs("1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "1"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmergencyInfoRepo_RoundTripsContacts(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewEmergencyInfoRepo(db)

	now := time.Now()
	info := emergencyinfo.Info{
		ID:              "e1",
		CareRecipientID: "7",
		Contents: emergencyinfo.Contents{
			BloodType:         "O+",
			EmergencyContacts: []emergencyinfo.Contact{{Name: "Luis", Phone: "555", Relationship: "son"}},
			DNR:               true,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectExec(`INSERT INTO emergency_info`).
		WithArgs("e1", "7", "O+", "", "", "",
			`[{"name":"Luis","relationship":"son","phone":"555"}]`,
			"", "", "", "", true, "", "", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Create(context.Background(), info))

	cols := []string{
		"id", "care_recipient_id", "blood_type", "allergies", "conditions", "medications",
		"emergency_contacts", "physician_name", "physician_phone", "insurance_provider",
		"insurance_policy_number", "dnr", "additional_notes", "pin_hash", "created_at", "updated_at",
	}
	mock.ExpectQuery(`FROM emergency_info WHERE care_recipient_id = \$1`).
		WithArgs("7").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"e1", "7", "O+", "", "", "",
			[]byte(`[{"name":"Luis","relationship":"son","phone":"555"}]`),
			"", "", "", "", true, "", "", now, now))

	got, err := repo.GetByRecipient(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, info.EmergencyContacts, got.EmergencyContacts)
	assert.True(t, got.DNR)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmergencyInfoRepo_Create_UniqueViolationIsAlreadyExists(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewEmergencyInfoRepo(db)

	mock.ExpectExec(`INSERT INTO emergency_info`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "emergency_info_care_recipient_id_key"})

	err := repo.Create(context.Background(), emergencyinfo.Info{ID: "e2", CareRecipientID: "7"})
	assert.ErrorIs(t, err, emergencyinfo.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersRepo_Create_UniqueViolationIsEmailTaken(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewUsersRepo(db)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err := repo.Create(context.Background(), users.User{ID: "u2", Email: "ana@example.com"})
	assert.ErrorIs(t, err, users.ErrEmailTaken)

	// otras violaciones no se disfrazan de conflicto
	err = repo.Create(context.Background(), users.User{ID: "u3", Email: "bo@example.com"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, users.ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmergencyInfoRepo_LookupFailureIsNotNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewEmergencyInfoRepo(db)

	down := errors.New("connection reset")
	mock.ExpectQuery(`FROM emergency_info WHERE care_recipient_id = \$1`).
		WithArgs("7").
		WillReturnError(down)

	_, err := repo.GetByRecipient(context.Background(), "7")
	assert.ErrorIs(t, err, down)
	assert.NotErrorIs(t, err, emergencyinfo.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrepare_AppliesPoolOptionsAndPings(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	require.NoError(t, prepare(context.Background(), db, PoolOptions{MaxOpenConns: 4, MaxIdleConns: 8}))
	assert.Equal(t, 4, db.Stats().MaxOpenConnections)

	mock.ExpectPing().WillReturnError(errors.New("refused"))
	err = prepare(context.Background(), db, PoolOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping postgres")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolOptions_Defaults(t *testing.T) {
	o := PoolOptions{MaxOpenConns: 2}.withDefaults()
	assert.Equal(t, 2, o.MaxOpenConns)
	assert.Equal(t, 2, o.MaxIdleConns)
	assert.Equal(t, 3*time.Second, o.PingTimeout)
	assert.Equal(t, 30*time.Minute, o.ConnMaxLifetime)
}
