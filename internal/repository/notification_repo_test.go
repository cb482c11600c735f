package repository

import (
	"testing"

	"smartdecor/internal/domain"
	"smartdecor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNotificationRepository_MarkReadScopedToOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNotificationRepository(db)

	n := &models.Notification{UserID: 1, Type: domain.NotificationPaymentCompleted, Title: "Paid"}
	require.NoError(t, repo.Create(n))

	assert.ErrorIs(t, repo.MarkRead(n.ID, 2), gorm.ErrRecordNotFound)
	require.NoError(t, repo.MarkRead(n.ID, 1))

	list, err := repo.ListByUserID(1, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotNil(t, list[0].ReadAt)
}
