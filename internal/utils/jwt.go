package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"prepforge/interview/internal/models"
)

var parseJWT = func(tokenStr string, keyFunc jwt.Keyfunc) (*jwt.Token, error) {
	return jwt.Parse(tokenStr, keyFunc, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
}

var (
	ErrMissingAuthHeader = errors.New("missing or malformed Authorization header")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidClaims     = errors.New("invalid token claims")
)

// TokenFromRequest returns the bearer token from the Authorization header, falling back to
// the "token" query parameter browsers use for WebSocket upgrades.
func TokenFromRequest(r *http.Request) (string, error) {
	if authz := r.Header.Get("Authorization"); authz != "" {
		if !strings.HasPrefix(authz, "Bearer ") {
			return "", ErrMissingAuthHeader
		}
		return strings.TrimPrefix(authz, "Bearer "), nil
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", ErrMissingAuthHeader
}

// VerifyToken fetches the credential from the request, validates the JWT,
// and returns the claims if everything is valid.
func VerifyToken(r *http.Request, secret string) (jwt.MapClaims, error) {
	tokenStr, err := TokenFromRequest(r)
	if err != nil {
		return nil, err
	}
	return ParseToken(tokenStr, secret)
}

// ParseToken validates an HS256 token string against secret.
func ParseToken(tokenStr, secret string) (jwt.MapClaims, error) {
	token, err := parseJWT(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// GetUserIDFromClaims extracts the "sub" (user ID) from claims safely as a string.
func GetUserIDFromClaims(claims jwt.MapClaims) (string, error) {
	sub, ok := claims["sub"]
	if !ok {
		return "", errors.New("missing sub claim")
	}

	switch v := sub.(type) {
	case string:
		if v == "" {
			return "", errors.New("empty sub claim")
		}
		return v, nil
	case float64:
		// JWT numbers get decoded as float64
		return fmt.Sprintf("%d", int64(v)), nil
	default:
		return "", errors.New("invalid sub claim type")
	}
}

// PrincipalFromClaims maps verified claims onto the caller identity used by the service.
// A missing role defaults to CANDIDATE; an unknown role is rejected.
func PrincipalFromClaims(claims jwt.MapClaims) (models.Principal, error) {
	userID, err := GetUserIDFromClaims(claims)
	if err != nil {
		return models.Principal{}, fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}

	role := models.RoleCandidate
	if raw, ok := claims["role"].(string); ok && raw != "" {
		role = models.Role(strings.ToUpper(raw))
		if !role.Valid() {
			return models.Principal{}, fmt.Errorf("%w: unknown role %q", ErrInvalidClaims, raw)
		}
	}

	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	return models.Principal{UserID: userID, Role: role, Email: email, Name: name}, nil
}

// SignToken issues an HS256 token for p. Used by tests and local tooling.
func SignToken(p models.Principal, secret string, claims jwt.MapClaims) (string, error) {
	mc := jwt.MapClaims{"sub": p.UserID, "role": string(p.Role)}
	if p.Email != "" {
		mc["email"] = p.Email
	}
	if p.Name != "" {
		mc["name"] = p.Name
	}
	for k, v := range claims {
		mc[k] = v
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString([]byte(secret))
}
