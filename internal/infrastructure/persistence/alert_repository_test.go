package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/omnisync/backend/internal/domain/alert"
)

func TestGormAlertRepository_FindUnresolved(t *testing.T) {
	t.Run("returns nil without error when no unresolved alert exists", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAlertRepository(gormDB)

		orgID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "sync_alerts" WHERE \(organization_id = \$1 AND type = \$2 AND resolved_at IS NULL\) AND store_id IS NULL`).
			WithArgs(orgID, "sync_delay", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		found, err := repo.FindUnresolved(context.Background(), orgID, nil, alert.TypeSyncDelay)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("filters by store when a store ID is given", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAlertRepository(gormDB)

		orgID := uuid.New()
		storeID := uuid.New()
		alertID := uuid.New()

		rows := sqlmock.NewRows([]string{
			"id", "type", "severity", "organization_id", "store_id", "message", "details", "occurrences",
		}).AddRow(
			alertID, "high_error_rate", "high", orgID, storeID,
			"error rate above limit", `{"error_rate":30.0}`, 2,
		)

		mock.ExpectQuery(`SELECT \* FROM "sync_alerts" WHERE \(organization_id = \$1 AND type = \$2 AND resolved_at IS NULL\) AND store_id = \$3`).
			WithArgs(orgID, "high_error_rate", storeID, 1).
			WillReturnRows(rows)

		found, err := repo.FindUnresolved(context.Background(), orgID, &storeID, alert.TypeHighErrorRate)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, alertID, found.ID)
		assert.Equal(t, alert.SeverityHigh, found.Severity)
		assert.Equal(t, 2, found.Occurrences)
		assert.Equal(t, 30.0, found.Details["error_rate"])
	})
}

func TestGormChannelProvider_ChannelsFor(t *testing.T) {
	gormDB, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	provider := NewGormChannelProvider(gormDB)

	orgID := uuid.New()

	rows := sqlmock.NewRows([]string{
		"id", "organization_id", "name", "kind", "enabled", "recipient", "alert_types", "min_severity",
	}).AddRow(
		uuid.New(), orgID, "ops-hook", "webhook", true,
		"https://hooks.example.com/sync", `["sync_failure","stuck_job"]`, "high",
	)

	mock.ExpectQuery(`SELECT \* FROM "notification_channels" WHERE organization_id = \$1`).
		WithArgs(orgID).
		WillReturnRows(rows)

	channels, err := provider.ChannelsFor(context.Background(), orgID)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, alert.ChannelWebhook, channels[0].Kind)
	assert.Equal(t, alert.SeverityHigh, channels[0].MinSeverity)
	assert.Equal(t, []alert.Type{alert.TypeSyncFailure, alert.TypeStuckJob}, channels[0].AlertTypes)
}
