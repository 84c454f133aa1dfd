package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"campus-cravings/helpers"
	"campus-cravings/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

func SignUp(store UserStore, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		var user models.User
		if !bindJSON(c, &user) {
			return
		}
		user.Email = strings.ToLower(strings.TrimSpace(user.Email))
		user.Role = models.RoleUser

		if err := createUser(ctx, store, &user); err != nil {
			respondError(c, err)
			return
		}
		respondWithTokens(c, http.StatusCreated, &user, secret)
	}
}

func Login(store UserStore, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		var req models.LoginRequest
		if !bindJSON(c, &req) {
			return
		}
		foundUser, err := store.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "email or password is incorrect"})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		passwordIsValid, msg := helpers.VerifyPassword(req.Password, foundUser.Password)
		if !passwordIsValid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}
		respondWithTokens(c, http.StatusOK, foundUser, secret)
	}
}

func createUser(ctx context.Context, store UserStore, user *models.User) error {
	password, err := helpers.HashPassword(user.Password)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	user.Password = password
	user.ID = primitive.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now
	return store.CreateUser(ctx, user)
}

func respondWithTokens(c *gin.Context, status int, user *models.User, secret string) {
	token, refreshToken, err := helpers.GenerateAllTokens(secret, user.Email, user.Name, user.ID.Hex(), user.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	user.Password = ""
	c.JSON(status, gin.H{"success": true, "token": token, "refreshToken": refreshToken, "user": user})
}

// SeedAdmin creates the admin account if no user holds that email yet.
func SeedAdmin(ctx context.Context, store UserStore, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := store.FindUserByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return false, err
	}
	admin := &models.User{Name: "Administrator", Email: email, Password: password, Role: models.RoleAdmin}
	if err := validate.Struct(admin); err != nil {
		return false, fmt.Errorf("%w: admin account: %v", models.ErrValidation, err)
	}
	if err := createUser(ctx, store, admin); err != nil && !errors.Is(err, models.ErrDuplicateEmail) {
		return false, err
	}
	return true, nil
}
