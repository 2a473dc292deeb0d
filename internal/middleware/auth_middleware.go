package middleware

import (
	"context"
	"net/http"
	"strings"

	"swiftride/internal/models"
	"swiftride/internal/repositories/interfaces"
	"swiftride/internal/utils"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/api/option"
)

// JWTClaims are the service-issued token claims.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// FirebaseVerifier validates Firebase ID tokens for clients that
// authenticate with the Firebase provider instead of a service JWT.
type FirebaseVerifier struct {
	client *fbauth.Client
}

func NewFirebaseVerifier(ctx context.Context, credentialsFile string) (*FirebaseVerifier, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (string, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", err
	}
	return token.UID, nil
}

// AuthRequired accepts either a service JWT or, when a verifier is
// configured, a Firebase ID token. On success the current user's id and
// role land in the gin context.
func AuthRequired(jwtSecret string, verifier *FirebaseVerifier, users interfaces.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if authHeader == "" || tokenString == authHeader {
			utils.ErrorResponse(c, http.StatusUnauthorized, utils.CodeUnauthorized, "bearer token required")
			c.Abort()
			return
		}

		if claims, err := parseServiceToken(tokenString, jwtSecret); err == nil {
			c.Set(utils.ContextUserID, claims.UserID)
			c.Set(utils.ContextUserRole, models.UserRole(claims.Role))
			c.Next()
			return
		}

		if verifier != nil {
			uid, err := verifier.Verify(c.Request.Context(), tokenString)
			if err == nil {
				role := models.RoleCustomer
				if user, uerr := users.GetByUID(c.Request.Context(), uid); uerr == nil {
					role = user.Role
				}
				c.Set(utils.ContextUserID, uid)
				c.Set(utils.ContextUserRole, role)
				c.Next()
				return
			}
		}

		utils.ErrorResponse(c, http.StatusUnauthorized, utils.CodeUnauthorized, "invalid token")
		c.Abort()
	}
}

func parseServiceToken(tokenString, secret string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// RoleRequired gates a route to one role.
func RoleRequired(role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		got, exists := c.Get(utils.ContextUserRole)
		if !exists || got.(models.UserRole) != role {
			utils.ErrorResponse(c, http.StatusForbidden, utils.CodeForbidden, "insufficient role")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser pulls the authenticated identity out of the gin context.
func CurrentUser(c *gin.Context) (models.CurrentUser, bool) {
	id, ok := c.Get(utils.ContextUserID)
	if !ok {
		return models.CurrentUser{}, false
	}
	role, ok := c.Get(utils.ContextUserRole)
	if !ok {
		return models.CurrentUser{}, false
	}
	return models.CurrentUser{ID: id.(string), Role: role.(models.UserRole)}, true
}
