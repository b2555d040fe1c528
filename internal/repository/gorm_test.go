package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"launchpad/internal/apperr"
	"launchpad/internal/models"
)

func newGormWithMock(t *testing.T) (*GormManager, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewGormManager(gdb), mock
}

func TestGorm_AdvanceStep_Success(t *testing.T) {
	m, mock := newGormWithMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `onboarding_progress` SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, m.Onboarding().AdvanceStep(context.Background(), 7, 1, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGorm_AdvanceStep_StaleStepIsInvalidTransition(t *testing.T) {
	m, mock := newGormWithMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `onboarding_progress` SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := m.Onboarding().AdvanceStep(context.Background(), 7, 1, 2)
	assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGorm_OrganizationGet_NotFound(t *testing.T) {
	m, mock := newGormWithMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `organizations`")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	_, err := m.Organizations().Get(context.Background(), 42)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGorm_OrganizationCreate_AssignsID(t *testing.T) {
	m, mock := newGormWithMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `organizations`")).
		WillReturnResult(sqlmock.NewResult(11, 1))

	org := models.Organization{Name: "Acme", Type: models.OrgFintech, Country: "Nigeria", CreatedOn: time.Now()}
	require.NoError(t, m.Organizations().Create(context.Background(), &org))
	assert.EqualValues(t, 11, org.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGorm_OrganizationList_CountsThenPages(t *testing.T) {
	m, mock := newGormWithMock(t)
	created := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT count\(\*\) FROM .organizations. JOIN onboarding_progress`).
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(3))
	mock.ExpectQuery(`SELECT organizations\.\* FROM .organizations. JOIN onboarding_progress .* ORDER BY organizations\.created_on DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "type", "country", "created_on"}).
			AddRow(3, "Cobalt", "bank", "Ghana", created).
			AddRow(2, "Beta", "fintech", "Nigeria", created))

	orgs, total, err := m.Organizations().List(context.Background(), OrgFilter{Stage: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, orgs, 2)
	assert.Equal(t, "Cobalt", orgs[0].Name)
	assert.Equal(t, models.OrgBank, orgs[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGorm_DocumentCreate_WrapsDBError(t *testing.T) {
	m, mock := newGormWithMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `documents`")).
		WillReturnError(errors.New("db down"))

	err := m.Documents().Create(context.Background(), &models.Document{OrganizationID: 1, Name: "Deck"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGorm_NoQueryForEmptyInputs(t *testing.T) {
	m, mock := newGormWithMock(t)
	ctx := context.Background()

	require.NoError(t, m.Documents().UpdateMeta(ctx, 1, nil, nil))
	got, err := m.Onboarding().ProgressForOrgs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	docs, err := m.Documents().ListByOrgs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, docs)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGorm_DocumentUpdateMeta_OnlyGivenFields(t *testing.T) {
	m, mock := newGormWithMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `documents` SET `type`=")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	typ := models.DocCompliance
	require.NoError(t, m.Documents().UpdateMeta(context.Background(), 5, nil, &typ))
	assert.NoError(t, mock.ExpectationsWereMet())
}
