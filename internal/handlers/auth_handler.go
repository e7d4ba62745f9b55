package handlers

import (
	"log"
	"strings"

	"github.com/venkateshh-srs/ZLearn-sub000/internal/models"
	"github.com/venkateshh-srs/ZLearn-sub000/internal/repository"
	"github.com/venkateshh-srs/ZLearn-sub000/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

const sessionMaxAge = 7 * 24 * 60 * 60 // seconds, matches token lifetime

type AuthHandler struct {
	Users    *repository.UserRepository
	Sessions *repository.SessionStore
}

func NewAuthHandler(users *repository.UserRepository, sessions *repository.SessionStore) *AuthHandler {
	return &AuthHandler{Users: users, Sessions: sessions}
}

// issueSession signs a token, registers it with the session store and sets
// the HTTP-only cookie. The token is also returned in the body so SPA
// clients can use bearer auth.
func (h *AuthHandler) issueSession(c *gin.Context, user *models.User) {
	token, tokenID, err := utils.GenerateJWT(user.ID.Hex())
	if err != nil {
		log.Printf("Failed to sign token: %v", err)
		utils.InternalErrorResponse(c, "Failed to create session", nil)
		return
	}

	if h.Sessions != nil {
		if err := h.Sessions.Save(c.Request.Context(), tokenID, user.ID.Hex()); err != nil {
			log.Printf("Failed to record session: %v", err)
		}
	}

	c.SetCookie(utils.SessionCookieName, token, sessionMaxAge, "/", "", false, true)
	utils.SuccessResponse(c, "Authenticated", gin.H{
		"token": token,
		"user":  user,
	})
}

// POST /auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}
	request.Email = strings.ToLower(strings.TrimSpace(request.Email))
	if request.Email == "" || !strings.Contains(request.Email, "@") {
		utils.BadRequestResponse(c, "A valid email is required")
		return
	}
	if len(request.Password) < 8 {
		utils.BadRequestResponse(c, "Password must be at least 8 characters")
		return
	}

	if _, err := h.Users.FindByEmail(c.Request.Context(), request.Email); err == nil {
		utils.BadRequestResponse(c, "An account with this email already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		utils.InternalErrorResponse(c, "Failed to create account", nil)
		return
	}

	user := &models.User{
		Email:        request.Email,
		PasswordHash: string(hash),
		Name:         request.Name,
	}
	if err := h.Users.Create(c.Request.Context(), user); err != nil {
		log.Printf("Failed to create user: %v", err)
		utils.InternalErrorResponse(c, "Failed to create account", nil)
		return
	}

	h.issueSession(c, user)
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}
	request.Email = strings.ToLower(strings.TrimSpace(request.Email))

	user, err := h.Users.FindByEmail(c.Request.Context(), request.Email)
	if err != nil {
		utils.UnauthorizedResponse(c, "Invalid email or password")
		return
	}
	if user.PasswordHash == "" {
		// Social-login account without a password.
		utils.UnauthorizedResponse(c, "This account uses Google sign-in")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(request.Password)); err != nil {
		utils.UnauthorizedResponse(c, "Invalid email or password")
		return
	}

	h.issueSession(c, user)
}

// POST /auth/google — the frontend exchanges the Google credential and
// forwards the verified profile.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var request struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		GoogleID string `json:"googleId"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}
	request.Email = strings.ToLower(strings.TrimSpace(request.Email))
	if request.Email == "" || request.GoogleID == "" {
		utils.BadRequestResponse(c, "email and googleId are required")
		return
	}

	user, err := h.Users.FindByEmail(c.Request.Context(), request.Email)
	if err == mongo.ErrNoDocuments {
		user = &models.User{
			Email:    request.Email,
			GoogleID: request.GoogleID,
			Name:     request.Name,
		}
		if err := h.Users.Create(c.Request.Context(), user); err != nil {
			log.Printf("Failed to create user: %v", err)
			utils.InternalErrorResponse(c, "Failed to create account", nil)
			return
		}
	} else if err != nil {
		log.Printf("User lookup failed: %v", err)
		utils.InternalErrorResponse(c, "Failed to sign in", nil)
		return
	}

	h.issueSession(c, user)
}

// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if h.Sessions != nil {
		if tokenID := c.GetString("tokenID"); tokenID != "" {
			if err := h.Sessions.Delete(c.Request.Context(), tokenID); err != nil {
				log.Printf("Failed to delete session: %v", err)
			}
		}
	}
	c.SetCookie(utils.SessionCookieName, "", -1, "/", "", false, true)
	utils.SuccessResponse(c, "Logged out", nil)
}

// GET /me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.Users.FindByID(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		utils.UnauthorizedResponse(c, "Account not found")
		return
	}
	utils.SuccessResponse(c, "User retrieved", user)
}

// PUT /settings — display name and custom chat prompt.
func (h *AuthHandler) UpdateSettings(c *gin.Context) {
	var request struct {
		Name         *string `json:"name"`
		CustomPrompt *string `json:"customPrompt"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	update := bson.M{}
	if request.Name != nil {
		update["name"] = *request.Name
	}
	if request.CustomPrompt != nil {
		update["customPrompt"] = *request.CustomPrompt
	}
	if len(update) == 0 {
		utils.BadRequestResponse(c, "Nothing to update")
		return
	}

	if err := h.Users.UpdateSettings(c.Request.Context(), c.GetString("userID"), update); err != nil {
		log.Printf("Failed to update settings: %v", err)
		utils.InternalErrorResponse(c, "Failed to update settings", nil)
		return
	}
	utils.SuccessResponse(c, "Settings updated", nil)
}
