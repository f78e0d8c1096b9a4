package api

import (
	"errors"
	"net/http"

	"physlab/lab-api/internal/service"
	"physlab/lab-api/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type otpRequestBody struct {
	Email string `json:"email"`
}

type otpVerifyBody struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// SendOTP handles both send-otp and resend-otp. Resending is just
// sending again, the cooldown is what makes it polite
func (a *API) SendOTP(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data otpRequestBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
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

	email := validators.NormalizeEmail(data.Email)

	if err := a.Verifier.RequestCode(email); err != nil {
		if errors.Is(err, service.ErrResendCooldown) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "A code was sent recently. Please wait a minute before requesting another",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to send verification code", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Verification code sent. Check your inbox",
		"requestID": requestID,
	})
}

func (a *API) VerifyOTP(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data otpVerifyBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
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

	if data.OTP == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "No verification code provided",
			"requestID": requestID,
		})
		return
	}

	email := validators.NormalizeEmail(data.Email)

	if err := a.Verifier.Verify(email, data.OTP); err != nil {
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

			zap.L().Error("Failed to verify code", zap.Error(err), zap.String("requestID", requestID))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Email verified",
		"requestID": requestID,
	})
}
