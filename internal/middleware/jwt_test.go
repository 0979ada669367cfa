package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"bioharvest_back_end/internal/models"
	"bioharvest_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id")})
	})
	return r
}

// Le secret est défini APRÈS l'init des packages, comme le fait config.Load()
// avec un .env : le middleware doit vérifier avec le secret courant, pas avec
// une valeur capturée au démarrage.
func TestAuthRequiredSecretLoadedAfterInit(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret-charge-par-dotenv")

	token, err := utils.GenerateJWT(models.User{
		ID:    "user-42",
		Email: "client@bioharvest.fr",
		Role:  "customer",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	authTestRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-42")
}

func TestAuthRequiredRejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret-de-signature")
	token, err := utils.GenerateJWT(models.User{ID: "user-42"})
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "autre-secret")
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	authTestRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredMissingToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	w := httptest.NewRecorder()
	authTestRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
