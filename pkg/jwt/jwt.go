package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/opencrmhq/chatbridge/pkg/errcode"
)

// Claims represents JWT claims for a CRM agent session
type Claims struct {
	UserId   int64 `json:"user_id"`
	TenantId int64 `json:"tenant_id"`
	jwt.RegisteredClaims
}

// GenerateToken generates a new JWT token
func GenerateToken(userId, tenantId int64, secret string, expireHours int) (string, error) {
	claims := Claims{
		UserId:   userId,
		TenantId: tenantId,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(expireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "chatbridge",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken parses and validates a JWT token
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})

	if err != nil {
		return nil, errcode.ErrTokenInvalid.Wrap(err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errcode.ErrTokenInvalid
}
