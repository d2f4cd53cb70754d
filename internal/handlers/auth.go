package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/auth"
	"storefront/internal/models"
)

type signupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type verifyOTPRequest struct {
	Email    string `json:"email" binding:"required"`
	EmailOTP string `json:"emailOtp" binding:"required"`
	Phone    string `json:"phone"`
	PhoneOTP string `json:"phoneOtp"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required"`
}

type phoneRequest struct {
	Phone string `json:"phone" binding:"required"`
}

type googleRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	GoogleID string `json:"googleId"`
	PhotoURL string `json:"photoURL"`
	IDToken  string `json:"idToken"`
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

func sessionResponse(result *auth.Result) gin.H {
	return gin.H{
		"token":     result.Token,
		"sessionId": result.SessionID,
		"user":      result.User.Public(),
	}
}

func Signup(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/signup"
		defer handlePanic(c, route)

		var req signupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		result, err := svc.Signup(ctx, auth.SignupInput{
			Name:      req.Name,
			Email:     req.Email,
			Password:  req.Password,
			Phone:     req.Phone,
			UserAgent: c.Request.UserAgent(),
		})
		if err != nil {
			respondError(c, route, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "User created successfully. OTP sent to email.",
			"userId":  result.User.ID.Hex(),
			"token":   result.Token,
			"user":    result.User.Public(),
		})
	}
}

func Login(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/login"
		defer handlePanic(c, route)

		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		result, err := svc.Login(ctx, auth.LoginInput{
			Email:     req.Email,
			Password:  req.Password,
			UserAgent: c.Request.UserAgent(),
		})
		if err != nil {
			respondError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, sessionResponse(result))
	}
}

func VerifyOTP(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/verify-otp"
		defer handlePanic(c, route)

		var req verifyOTPRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		result, err := svc.VerifyOTP(ctx, auth.VerifyOTPInput{
			Email:     req.Email,
			EmailOTP:  req.EmailOTP,
			Phone:     req.Phone,
			PhoneOTP:  req.PhoneOTP,
			UserAgent: c.Request.UserAgent(),
		})
		if err != nil {
			respondError(c, route, err)
			return
		}

		body := sessionResponse(result)
		body["message"] = "User verified successfully."
		c.JSON(http.StatusOK, body)
	}
}

func ResendOTP(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/resend-otp"
		defer handlePanic(c, route)

		var req emailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := svc.ResendOTP(ctx, req.Email); err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "OTP resent to email."})
	}
}

func SendPhoneOTP(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/send-otp"
		defer handlePanic(c, route)

		var req phoneRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := svc.SendPhoneOTP(ctx, req.Phone); err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "OTP sent to phone."})
	}
}

func googleInput(c *gin.Context, req googleRequest) auth.GoogleInput {
	return auth.GoogleInput{
		Name:      req.Name,
		Email:     req.Email,
		GoogleID:  req.GoogleID,
		PhotoURL:  req.PhotoURL,
		IDToken:   req.IDToken,
		UserAgent: c.Request.UserAgent(),
	}
}

func GoogleSignup(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/google-signup"
		defer handlePanic(c, route)

		var req googleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		result, err := svc.GoogleSignup(ctx, googleInput(c, req))
		if err != nil {
			respondError(c, route, err)
			return
		}

		body := sessionResponse(result)
		body["message"] = "Google signup/login successful"
		c.JSON(http.StatusCreated, body)
	}
}

func GoogleLogin(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/google-login"
		defer handlePanic(c, route)

		var req googleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		result, err := svc.GoogleLogin(ctx, googleInput(c, req))
		if err != nil {
			respondError(c, route, err)
			return
		}

		body := sessionResponse(result)
		body["message"] = "Google login successful"
		c.JSON(http.StatusOK, body)
	}
}

// ForgotPassword answers the same way whether or not the account exists.
func ForgotPassword(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/forgot-password"
		defer handlePanic(c, route)

		var req emailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := svc.ForgotPassword(ctx, req.Email); err != nil {
			if errors.Is(err, auth.ErrValidation) {
				respondError(c, route, err)
				return
			}
			routeLogger(c, route).Error().Err(err).Msg("forgot password failed")
			respondWithError(c, http.StatusInternalServerError, route, "An error occurred while attempting to send the reset email.")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": auth.ForgotPasswordMessage})
	}
}

func ResetPassword(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/reset-password/:token"
		defer handlePanic(c, route)

		var req resetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		token, err := svc.ResetPassword(ctx, c.Param("token"), req.Password)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"token":   token,
			"message": "Password has been reset successfully.",
		})
	}
}

func GetMe(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/auth/me"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		user, err := svc.Me(ctx, currentUserID(c))
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, meResponse(user))
	}
}

func meResponse(user *models.User) gin.H {
	return gin.H{
		"_id":        user.ID.Hex(),
		"name":       user.Name,
		"email":      user.Email,
		"phone":      user.Phone,
		"role":       user.Role,
		"photoURL":   user.PhotoURL,
		"isVerified": user.IsVerified,
		"cart":       user.Cart,
		"wishlist":   user.Wishlist,
		"createdAt":  user.CreatedAt,
	}
}

func Logout(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/logout"
		defer handlePanic(c, route)

		principal, ok := auth.FromContext(c.Request.Context())
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, auth.ErrNoToken.Error())
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := svc.Logout(ctx, principal); err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}
