package utils

import (
	"testing"

	"bioharvest_back_end/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateJWTClaims(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	user := models.User{
		ID:    "user-123",
		Email: "client@bioharvest.fr",
		Name:  "Client Test",
		Role:  "customer",
	}

	tokenString, err := GenerateJWT(user)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte("super_secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "user-123", claims["user_id"])
	assert.Equal(t, "client@bioharvest.fr", claims["email"])
	assert.Equal(t, "customer", claims["role"])
	assert.NotNil(t, claims["exp"])
}
