package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"KVisit/internal/model"
	"KVisit/internal/wizard"
)

var errOffline = errors.New("offline test database")

// offlineConnector 任何连接请求都直接失败，保证测试不会拨号
type offlineConnector struct{}

func (offlineConnector) Connect(context.Context) (driver.Conn, error) { return nil, errOffline }

func (offlineConnector) Driver() driver.Driver { return offlineDriver{} }

type offlineDriver struct{}

func (offlineDriver) Open(string) (driver.Conn, error) { return nil, errOffline }

// dryRunDB 只生成 SQL，不连接数据库。跳过默认事务，否则 Create 会先 BEGIN
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	sqlDB := sql.OpenDB(offlineConnector{})
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db
}

func TestUpsertStatementOverwritesByUser(t *testing.T) {
	db := dryRunDB(t)

	profile := model.NewOnboardingProfile("1001", wizard.Record{
		Nation:               "France",
		Language:             "ja",
		Gender:               "female",
		VisitPurpose:         "travel",
		Period:               wizard.PeriodShort,
		OnBoardingPreference: "{}",
		IsOnBoardDone:        true,
	}, time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC))

	result := upsertStatement(db).Create(profile)
	require.NoError(t, result.Error)
	query := result.Statement.SQL.String()
	require.NotEmpty(t, query)

	assert.Contains(t, query, `INSERT INTO "onboarding_profiles"`)
	assert.Contains(t, query, `ON CONFLICT ("user_id") DO UPDATE SET`)
	assert.Contains(t, query, `"nation"="excluded"."nation"`)
	assert.Contains(t, query, `"on_boarding_preference"="excluded"."on_boarding_preference"`)
	assert.NotContains(t, query, `"created_at"="excluded"."created_at"`)
}
