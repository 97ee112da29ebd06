package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
)

// Identity is the authenticated caller as asserted by the upstream
// gateway. Session handling itself lives outside this service; the core
// trusts the forwarded identity headers.
type Identity struct {
	ID   string
	Role string
}

const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

func currentIdentity(c *gin.Context) (Identity, bool) {
	id := strings.TrimSpace(c.GetHeader(headerUserID))
	if id == "" {
		return Identity{}, false
	}
	return Identity{ID: id, Role: strings.ToLower(strings.TrimSpace(c.GetHeader(headerUserRole)))}, true
}

// requireUser aborts with 401 when no identity was forwarded.
func requireUser(c *gin.Context) (Identity, bool) {
	user, ok := currentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return Identity{}, false
	}
	return user, true
}

// requireRole additionally enforces the forwarded role when one is
// demanded by the route.
func requireRole(c *gin.Context, role string) (Identity, bool) {
	user, ok := requireUser(c)
	if !ok {
		return Identity{}, false
	}
	if role != "" && user.Role != role {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return Identity{}, false
	}
	return user, true
}
