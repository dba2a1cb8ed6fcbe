package auth

import (
	"github.com/doubtdesk/doubtdesk-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenClaims is the typed JWT minted by the external auth service.
// TenantID is set for tenant-scoped actors (university staff dashboards)
// and empty for earners, admins, and internal service callers.
type AccessTokenClaims struct {
	UserID   uuid.UUID       `json:"user_id"`
	TenantID string          `json:"tenant_id,omitempty"`
	Role     enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
