package user

import (
	"log"
	"net/http"
	"strings"
	"time"

	"bioharvest_back_end/internal/database"
	"bioharvest_back_end/internal/models"
	"bioharvest_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

// =============================================
// AUTHENTIFICATION
// =============================================

type registerInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register crée un compte. L'unicité de l'email est garantie par l'insertion
// conditionnelle dans users_by_email.
func Register(c *gin.Context) {
	var input registerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	session, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		log.Println("❌ Erreur hashage mot de passe:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création du compte"})
		return
	}

	userID := gocql.TimeUUID()

	// Réserver l'email en premier : c'est lui qui porte l'unicité
	applied, err := session.Query(`INSERT INTO users_by_email (email, user_id) VALUES (?, ?) IF NOT EXISTS`,
		email, userID).MapScanCAS(map[string]interface{}{})
	if err != nil {
		log.Println("❌ Erreur réservation email:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création du compte"})
		return
	}
	if !applied {
		c.JSON(http.StatusConflict, gin.H{"error": "Un compte existe déjà avec cet email"})
		return
	}

	now := time.Now()
	if err := session.Query(`INSERT INTO users (user_id, email, password, name, role, provider, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, email, hashedPassword, input.Name, "customer", "local", now, now).Exec(); err != nil {
		log.Println("❌ Erreur création utilisateur:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création du compte"})
		return
	}

	user := models.User{
		ID:    userID.String(),
		Name:  input.Name,
		Email: email,
		Role:  "customer",
	}

	token, err := utils.GenerateJWT(user)
	if err != nil {
		log.Println("❌ Erreur génération JWT:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création du compte"})
		return
	}

	log.Println("✅ Nouveau compte créé:", email)
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

type loginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login authentifie par email + mot de passe et renvoie un JWT
func Login(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	// Chemin chaud : prepared statements initialisés au démarrage
	byEmail := database.GetPreparedGetUserByEmail()
	byID := database.GetPreparedGetUserByID()
	if byEmail == nil || byID == nil {
		session, err := database.GetUsersSession()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
			return
		}
		byEmail = session.Query(`SELECT user_id FROM users_by_email WHERE email = ?`)
		byID = session.Query(`SELECT email, password, name, role, provider FROM users WHERE user_id = ?`)
	}

	var userID gocql.UUID
	if err := byEmail.Bind(email).Scan(&userID); err != nil {
		// Réponse identique qu'un mauvais mot de passe, pas d'énumération d'emails
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe incorrect"})
		return
	}

	var storedEmail, storedPassword, name, role, provider string
	if err := byID.Bind(userID).
		Scan(&storedEmail, &storedPassword, &name, &role, &provider); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe incorrect"})
		return
	}

	if provider != "local" && storedPassword == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Ce compte utilise la connexion " + provider})
		return
	}

	valid, err := utils.VerifyPassword(input.Password, storedPassword)
	if err != nil || !valid {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe incorrect"})
		return
	}

	user := models.User{
		ID:    userID.String(),
		Name:  name,
		Email: storedEmail,
		Role:  role,
	}

	token, err := utils.GenerateJWT(user)
	if err != nil {
		log.Println("❌ Erreur génération JWT:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la connexion"})
		return
	}

	log.Println("✅ Connexion réussie:", email)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// GetMe retourne le profil de l'utilisateur connecté
func GetMe(c *gin.Context) {
	userID, err := gocql.ParseUUID(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token invalide"})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	var email, name, role, provider string
	var password string
	if err := session.Query(`SELECT email, password, name, role, provider FROM users WHERE user_id = ?`,
		userID).Scan(&email, &password, &name, &role, &provider); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Utilisateur non trouvé"})
		return
	}

	c.JSON(http.StatusOK, models.User{
		ID:       userID.String(),
		Name:     name,
		Email:    email,
		Role:     role,
		Provider: provider,
	})
}
