package records

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return newRepositoryWithDB(mock), mock
}

func TestCreateRecord(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	recordDate := now.AddDate(0, -1, 0)

	mock.ExpectQuery("INSERT INTO health_records").
		WithArgs(pgxmock.AnyArg(), "user-1", "Annual checkup", recordDate, "Dr. Mehta", "healthy", "", "all normal", []string(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	rec, err := repo.Create(context.Background(), "user-1", &NewRecord{
		Title:      "Annual checkup",
		RecordDate: recordDate,
		DoctorName: "Dr. Mehta",
		Diagnosis:  "healthy",
		Notes:      "all normal",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "user-1", rec.UserID)
	assert.Equal(t, "Annual checkup", rec.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRecordValidation(t *testing.T) {
	repo, _ := newMockRepo(t)

	_, err := repo.Create(context.Background(), "user-1", &NewRecord{Title: "no date"})
	assert.Error(t, err)

	_, err = repo.Create(context.Background(), "user-1", &NewRecord{RecordDate: time.Now()})
	assert.Error(t, err)
}

func TestListForUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "user_id", "title", "record_date", "doctor_name", "diagnosis", "prescription", "notes", "attachments", "created_at", "updated_at"}).
		AddRow("rec-1", "user-1", "Blood test", now, "Dr. Mehta", "anemia", "iron supplements", nil, []string{"report.pdf"}, now, now).
		AddRow("rec-2", "user-1", "X-ray", now.AddDate(0, -2, 0), nil, nil, nil, nil, nil, now, now)

	mock.ExpectQuery("SELECT id, user_id, title").
		WithArgs("user-1").
		WillReturnRows(rows)

	list, err := repo.ListForUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Blood test", list[0].Title)
	assert.Equal(t, []string{"report.pdf"}, list[0].Attachments)
	assert.Empty(t, list[1].DoctorName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRecordNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT id, user_id, title").
		WithArgs("rec-9", "user-1").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Get(context.Background(), "user-1", "rec-9")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestDeleteRecord(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM health_records").
		WithArgs("rec-1", "user-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.Delete(context.Background(), "user-1", "rec-1"))

	mock.ExpectExec("DELETE FROM health_records").
		WithArgs("rec-2", "user-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), "user-1", "rec-2")
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
