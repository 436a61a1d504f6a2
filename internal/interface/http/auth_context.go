package http

import (
	"github.com/gin-gonic/gin"

	"github.com/hydrotwin/hydrotwin-api/internal/domain/auth"
)

const authSessionKey = "auth_session"

func setSession(c *gin.Context, session auth.Session) {
	c.Set(authSessionKey, session)
}

func getSession(c *gin.Context) (auth.Session, bool) {
	value, ok := c.Get(authSessionKey)
	if !ok {
		return auth.Session{}, false
	}
	session, ok := value.(auth.Session)
	return session, ok
}
