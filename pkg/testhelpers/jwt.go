package testhelpers

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// GenerateTestJWT creates an unsigned identity token (alg: none) for servers
// running with token verification disabled. It expires in one hour.
func GenerateTestJWT(sub uuid.UUID, email string) string {
	claims := jwt.MapClaims{
		"sub": sub.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if email != "" {
		claims["email"] = email
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		panic("testhelpers: signing with alg none: " + err.Error())
	}
	return token
}

// GenerateTestJWTWithBearer returns token with "Bearer " prefix for Authorization header.
func GenerateTestJWTWithBearer(sub uuid.UUID, email string) string {
	return "Bearer " + GenerateTestJWT(sub, email)
}
