package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/taskflow/taskflow-api/internal/database"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NotificationServiceTestSuite defines the test suite for NotificationService
type NotificationServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *NotificationService
}

// SetupTest runs before each test
func (suite *NotificationServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(&models.User{}, &models.Notification{})
	suite.Require().NoError(err)

	database.SetDB(suite.db)

	suite.service = NewNotificationService(repository.NewNotificationRepository(suite.db))
}

// TearDownTest runs after each test
func (suite *NotificationServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *NotificationServiceTestSuite) notify(recipients ...uint64) {
	taskID := uint64(42)
	err := suite.service.NotifyAll(recipients, Event{
		Type:    models.NotificationTaskAssigned,
		Title:   "New Task Assigned",
		Message: "You have been assigned",
		TaskID:  &taskID,
	})
	suite.Require().NoError(err)
}

func (suite *NotificationServiceTestSuite) TestNotifyAll_OneRowPerRecipient() {
	suite.notify(1, 2, 3)

	var count int64
	suite.db.Model(&models.Notification{}).Count(&count)
	suite.Equal(int64(3), count)

	notifications, total, unread, err := suite.service.ListNotifications(2, false, 1, 20)
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal(int64(1), unread)
	suite.Require().Len(notifications, 1)
	suite.Equal(uint64(2), notifications[0].RecipientID)
	suite.False(notifications[0].IsRead)
}

func (suite *NotificationServiceTestSuite) TestNotifyAll_EmptyRecipientsNoOp() {
	suite.Require().NoError(suite.service.NotifyAll(nil, Event{
		Type:  models.NotificationTaskAssigned,
		Title: "Nobody home",
	}))

	var count int64
	suite.db.Model(&models.Notification{}).Count(&count)
	suite.Equal(int64(0), count)
}

func (suite *NotificationServiceTestSuite) TestNotifyAll_DuplicateRecipientGetsTwoRows() {
	// Fan-out does not de-duplicate; that is the caller's contract.
	suite.notify(7, 7)

	_, total, _, err := suite.service.ListNotifications(7, false, 1, 20)
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)
}

func (suite *NotificationServiceTestSuite) TestMarkRead_Idempotent() {
	suite.notify(1)

	notifications, _, _, err := suite.service.ListNotifications(1, false, 1, 20)
	suite.Require().NoError(err)
	id := notifications[0].ID

	first, err := suite.service.MarkRead(id, 1)
	suite.Require().NoError(err)
	suite.True(first.IsRead)
	suite.Require().NotNil(first.ReadAt)

	second, err := suite.service.MarkRead(id, 1)
	suite.Require().NoError(err)
	suite.Equal(first.ReadAt.UnixNano(), second.ReadAt.UnixNano())
}

func (suite *NotificationServiceTestSuite) TestMarkRead_OtherUsersNotification() {
	suite.notify(1)

	notifications, _, _, err := suite.service.ListNotifications(1, false, 1, 20)
	suite.Require().NoError(err)

	_, err = suite.service.MarkRead(notifications[0].ID, 2)
	suite.ErrorIs(err, ErrNotificationNotFound)
}

func (suite *NotificationServiceTestSuite) TestMarkAllRead() {
	suite.notify(1)
	suite.notify(1)
	suite.notify(2)

	updated, err := suite.service.MarkAllRead(1)
	suite.Require().NoError(err)
	suite.Equal(int64(2), updated)

	unread, err := suite.service.UnreadCount(1)
	suite.Require().NoError(err)
	suite.Equal(int64(0), unread)

	// The other user's notifications are untouched.
	unread, err = suite.service.UnreadCount(2)
	suite.Require().NoError(err)
	suite.Equal(int64(1), unread)
}

func (suite *NotificationServiceTestSuite) TestDeleteNotification_OwnOnly() {
	suite.notify(1)

	notifications, _, _, err := suite.service.ListNotifications(1, false, 1, 20)
	suite.Require().NoError(err)
	id := notifications[0].ID

	suite.ErrorIs(suite.service.DeleteNotification(id, 2), ErrNotificationNotFound)
	suite.Require().NoError(suite.service.DeleteNotification(id, 1))

	_, total, _, err := suite.service.ListNotifications(1, false, 1, 20)
	suite.Require().NoError(err)
	suite.Equal(int64(0), total)
}

func (suite *NotificationServiceTestSuite) TestSweepExpired() {
	suite.notify(1)
	suite.notify(1)

	// Age one row past the retention window.
	old := time.Now().AddDate(0, 0, -45)
	var first models.Notification
	suite.Require().NoError(suite.db.First(&first).Error)
	suite.Require().NoError(suite.db.Model(&models.Notification{}).Where("id = ?", first.ID).Update("created_at", old).Error)

	deleted, err := suite.service.SweepExpired()
	suite.Require().NoError(err)
	suite.Equal(int64(1), deleted)

	_, total, _, err := suite.service.ListNotifications(1, false, 1, 20)
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
}

func TestNotificationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(NotificationServiceTestSuite))
}
