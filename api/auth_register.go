package api

import (
	"errors"
	"net/http"

	"physlab/lab-api/internal/model"
	"physlab/lab-api/internal/service"
	"physlab/lab-api/pkg/security"
	"physlab/lab-api/validators"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

type registerBody struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp"`
}

func (a *API) Register(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data registerBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	if err := validators.NameValidator(data.Name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	if err := validators.EmailValidator(data.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	if err := validators.PasswordValidator(data.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	if data.OTP == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "No verification code provided",
			"requestID": requestID,
		})
		return
	}

	email := validators.NormalizeEmail(data.Email)

	var existing model.User
	err := a.DB.Where("email = ?", email).First(&existing).Error
	found := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to check if user is registered", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if found && existing.Verified {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "This email is already registered. Please login or use a different email",
			"requestID": requestID,
		})
		return
	}

	// The code is spent here, a second registration needs a fresh one
	if err := a.Verifier.Consume(email, data.OTP); err != nil {
		switch {
		case errors.Is(err, service.ErrCodeExpired):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Verification code expired. Request a new one",
				"requestID": requestID,
			})
		case errors.Is(err, service.ErrCodeInvalid):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Incorrect verification code",
				"requestID": requestID,
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to consume verification code", zap.Error(err), zap.String("requestID", requestID))
		}
		return
	}

	hash, err := a.Argon.GenerateFromPassword(data.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to hash password", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	user := existing
	if !found {
		userID, err := gonanoid.Generate(idCharset, 16)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to generate user ID", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		user = model.User{
			ID:           userID,
			Email:        email,
			Name:         data.Name,
			PasswordHash: hash,
			Role:         model.RoleUser,
			Verified:     true,
		}

		if err := a.DB.Create(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to create user", zap.Error(err), zap.String("requestID", requestID))
			return
		}
	} else {
		// An unverified record gets promoted instead of duplicated
		err := a.DB.Model(&model.User{}).
			Where("email = ?", email).
			Updates(map[string]any{
				"name":          data.Name,
				"password_hash": hash,
				"verified":      true,
			}).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to promote user", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		user.Name = data.Name
		user.Verified = true
	}

	token, err := security.IssueSession(user.ID, user.Email, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to issue session token", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  userResponse(&user),
	})
}

func userResponse(u *model.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"email":      u.Email,
		"name":       u.Name,
		"role":       u.Role,
		"isVerified": u.Verified,
	}
}
