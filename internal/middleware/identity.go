package middleware

// Context keys set by SessionAuth and read by handlers and the other
// middleware in this package.

import "github.com/labstack/echo/v4"

const (
	ctxUserID   = "user_id"
	ctxUsername = "username"
	ctxEmail    = "email"
	ctxReqID    = "request_id"
)

// UserID returns the authenticated user's id, or "" for anonymous requests.
func UserID(c echo.Context) string {
	if s, ok := c.Get(ctxUserID).(string); ok {
		return s
	}
	return ""
}

// Username and Email return the remaining session claims.
func Username(c echo.Context) string {
	s, _ := c.Get(ctxUsername).(string)
	return s
}

func Email(c echo.Context) string {
	s, _ := c.Get(ctxEmail).(string)
	return s
}

// keyUser is UserID with a placeholder for anonymous callers, used in Redis keys.
func keyUser(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
