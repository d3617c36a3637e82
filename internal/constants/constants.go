package constants

// Session
const (
	SessionCookieName = "taskflow_session"
	ContextKeyUserID  = "user_id"
	ContextKeyRole    = "user_role"
)

// Auth
const MinPasswordLength = 8

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Notifications
const (
	// NotificationRetentionDays is how long notification rows are kept
	// before the retention sweep deletes them.
	NotificationRetentionDays = 30

	// DueSoonWindowHours is the look-ahead window for the due-soon sweep.
	DueSoonWindowHours = 24
)
