package auth

import (
	"fmt"
	"strings"
)

// ExtractJWTFromAuthHeader extracts the JWT token from an Authorization header.
// Expected format: "Bearer {token}"
func ExtractJWTFromAuthHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", fmt.Errorf("authorization header is empty")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", fmt.Errorf("invalid authorization header format")
	}

	return parts[1], nil
}
