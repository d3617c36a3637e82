package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/taskflow/taskflow-api/internal/constants"
	"github.com/taskflow/taskflow-api/internal/database"
	apierrors "github.com/taskflow/taskflow-api/internal/errors"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/services"
)

// RequireAuth checks the session, loads the acting user, and stores the
// (userID, role) identity pair in the request context. Deactivated
// accounts are rejected.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		sessionUserID := session.Get(constants.ContextKeyUserID)

		if sessionUserID == nil {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		userID, ok := toUint64(sessionUserID)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		var user models.User
		if err := database.GetDB().First(&user, userID).Error; err != nil {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}
		if !user.IsActive {
			apierrors.Forbidden(c, "Account is deactivated")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyRole, user.Role)
		c.Next()
	}
}

// RequireManager aborts unless the acting role may mutate tasks and
// workflows.
func RequireManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, exists := GetActor(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		if !actor.Role.CanManageTasks() {
			apierrors.Forbidden(c, "")
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUint64(userID)
}

// GetActor retrieves the acting principal's identity pair from context
func GetActor(c *gin.Context) (services.Actor, bool) {
	userID, ok := GetUserID(c)
	if !ok {
		return services.Actor{}, false
	}

	roleValue, exists := c.Get(constants.ContextKeyRole)
	if !exists {
		return services.Actor{}, false
	}

	role, ok := roleValue.(models.UserRole)
	if !ok {
		return services.Actor{}, false
	}

	return services.Actor{ID: userID, Role: role}, true
}

func toUint64(value any) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
