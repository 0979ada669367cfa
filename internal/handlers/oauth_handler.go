package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"bioharvest_back_end/internal/auth"
	"bioharvest_back_end/internal/config"
	"bioharvest_back_end/internal/database"
	"bioharvest_back_end/internal/models"
	"bioharvest_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
)

var googleProvider = &auth.OAuthProvider{
	Name:        "google",
	Config:      config.GoogleOAuthConfig,
	UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
}

type ctxKey string

const ProviderKey ctxKey = "provider"

func BeginAuth(c *gin.Context) {
	provider := c.Param("provider")
	if provider == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "aucun provider spécifié"})
		return
	}

	c.Request = c.Request.WithContext(
		context.WithValue(c.Request.Context(), ProviderKey, provider),
	)

	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// CallbackAuth termine le flux OAuth : l'utilisateur est créé en base au
// premier login, puis reçoit le même JWT que l'authentification classique.
func CallbackAuth(c *gin.Context) {
	provider := c.Param("provider")
	if provider == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "aucun provider spécifié"})
		return
	}

	c.Request = c.Request.WithContext(
		context.WithValue(c.Request.Context(), ProviderKey, provider),
	)

	gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := upsertOAuthUser(gothUser)
	if err != nil {
		log.Println("❌ Erreur enregistrement utilisateur OAuth:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la connexion"})
		return
	}

	token, err := utils.GenerateJWT(*user)
	if err != nil {
		log.Println("❌ Erreur génération JWT:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la connexion"})
		return
	}

	log.Printf("✅ Connexion OAuth réussie (%s): %s", provider, user.Email)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// GetGoogleAuthURL fournit l'URL d'autorisation Google aux clients mobiles/SPA.
// Le state anti-CSRF est stocké dans Redis et vérifié à l'échange.
func GetGoogleAuthURL(c *gin.Context) {
	state := uuid.NewString()
	if err := database.Redis.Set(c.Request.Context(), "oauth_state:"+state, "1",
		10*time.Minute).Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la génération de l'URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":   googleProvider.GetAuthURL(state),
		"state": state,
	})
}

type exchangeInput struct {
	Code  string `json:"code" binding:"required"`
	State string `json:"state" binding:"required"`
}

// ExchangeGoogleCode : flux OAuth sans session pour les clients mobiles/SPA.
// Le client obtient le code d'autorisation lui-même, le serveur l'échange
// contre un token, récupère le profil et renvoie un JWT maison.
func ExchangeGoogleCode(c *gin.Context) {
	var input exchangeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Code d'autorisation requis"})
		return
	}

	ctx := c.Request.Context()

	// Le state doit avoir été émis par GetGoogleAuthURL, usage unique
	deleted, err := database.Redis.Del(ctx, "oauth_state:"+input.State).Result()
	if err != nil || deleted == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "State invalide ou expiré"})
		return
	}

	token, err := googleProvider.Exchange(ctx, input.Code)
	if err != nil {
		log.Println("❌ Échange de code Google échoué:", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Code d'autorisation invalide"})
		return
	}

	info, err := googleProvider.FetchUserInfo(ctx, token)
	if err != nil {
		log.Println("❌ Récupération profil Google échouée:", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Impossible de récupérer le profil Google"})
		return
	}

	user, err := upsertOAuthUser(goth.User{
		Provider: "google",
		Email:    info.Email,
		Name:     info.Name,
	})
	if err != nil {
		log.Println("❌ Erreur enregistrement utilisateur OAuth:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la connexion"})
		return
	}

	jwtToken, err := utils.GenerateJWT(*user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la connexion"})
		return
	}

	log.Println("✅ Connexion Google (échange de code) réussie:", user.Email)
	c.JSON(http.StatusOK, gin.H{"token": jwtToken, "user": user})
}

// upsertOAuthUser retrouve l'utilisateur par email ou le crée au premier login.
// Même garantie d'unicité que Register : l'insertion conditionnelle dans
// users_by_email arbitre les créations concurrentes.
func upsertOAuthUser(gothUser goth.User) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(gothUser.Email))

	session, err := database.GetUsersSession()
	if err != nil {
		return nil, err
	}

	var userID gocql.UUID
	if err := session.Query(`SELECT user_id FROM users_by_email WHERE email = ?`, email).Scan(&userID); err == nil {
		var name, role string
		if err := session.Query(`SELECT name, role FROM users WHERE user_id = ?`,
			userID).Scan(&name, &role); err != nil {
			return nil, err
		}
		return &models.User{
			ID:       userID.String(),
			Name:     name,
			Email:    email,
			Role:     role,
			Provider: gothUser.Provider,
		}, nil
	}

	userID = gocql.TimeUUID()
	applied, err := session.Query(`INSERT INTO users_by_email (email, user_id) VALUES (?, ?) IF NOT EXISTS`,
		email, userID).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	if !applied {
		// Créé entre-temps par une autre requête : on le relit
		if err := session.Query(`SELECT user_id FROM users_by_email WHERE email = ?`, email).Scan(&userID); err != nil {
			return nil, err
		}
	} else {
		now := time.Now()
		if err := session.Query(`INSERT INTO users (user_id, email, password, name, role, provider, created_at, updated_at)
			VALUES (?, ?, '', ?, 'customer', ?, ?, ?)`,
			userID, email, gothUser.Name, gothUser.Provider, now, now).Exec(); err != nil {
			return nil, err
		}
		log.Printf("✅ Compte OAuth créé (%s): %s", gothUser.Provider, email)
	}

	return &models.User{
		ID:       userID.String(),
		Name:     gothUser.Name,
		Email:    email,
		Role:     "customer",
		Provider: gothUser.Provider,
	}, nil
}
