package handlers

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/Abhijeet14d/KrishiBandhu/db"
	"github.com/Abhijeet14d/KrishiBandhu/middleware"
	"github.com/Abhijeet14d/KrishiBandhu/models"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const maxOTPAttempts = 5

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=6"`
}

type VerifyOTPRequest struct {
	UserID string `json:"userId" binding:"required"`
	OTP    string `json:"otp" binding:"required"`
}

type ResendOTPRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

func HandleRegister(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error in registration"})
		return
	}

	existingID, err := db.GetUserIDByEmail(req.Email)
	if err == nil {
		creds, err := db.GetCredentialsByID(existingID)
		if err != nil {
			log.Printf("Error loading credentials for user %s: %v", existingID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error in registration"})
			return
		}
		if creds.IsVerified {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "User already exists with this email"})
			return
		}

		// Unverified account: update details and resend the OTP.
		if err := db.UpdateUnverifiedUser(existingID, req.Name, req.Phone, string(passwordHash)); err != nil {
			log.Printf("Error updating unverified user %s: %v", existingID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error in registration"})
			return
		}
		if err := issueOTP(existingID, req.Email, req.Name); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to send OTP email"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "OTP has been resent to your email", "userId": existingID})
		return
	}
	if !errors.Is(err, db.ErrUserNotFound) {
		log.Printf("Error looking up user by email: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error in registration"})
		return
	}

	userID, err := db.CreateUser(req.Name, req.Email, req.Phone, string(passwordHash))
	if err != nil {
		log.Printf("Error creating user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error in registration"})
		return
	}

	if err := issueOTP(userID, req.Email, req.Name); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "User created but failed to send OTP email. Please try resending."})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Registration successful! Please check your email for OTP",
		"userId":  userID,
	})
}

func HandleVerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	creds, err := db.GetCredentialsByID(req.UserID)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
			return
		}
		log.Printf("Error loading credentials for user %s: %v", req.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error in OTP verification"})
		return
	}

	if creds.IsVerified {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "User is already verified"})
		return
	}
	if creds.OTPHash == "" || creds.OTPExpiry.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "No OTP found"})
		return
	}
	if time.Now().After(creds.OTPExpiry) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "OTP has expired"})
		return
	}
	if creds.OTPAttempts >= maxOTPAttempts {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Too many attempts. Please request a new OTP"})
		return
	}
	if hashToken(req.OTP) != creds.OTPHash {
		if err := db.IncrementOTPAttempts(req.UserID); err != nil {
			log.Printf("Error incrementing OTP attempts for user %s: %v", req.UserID, err)
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"success":      false,
			"message":      "Invalid OTP",
			"attemptsLeft": maxOTPAttempts - creds.OTPAttempts - 1,
		})
		return
	}

	if err := db.MarkVerified(req.UserID); err != nil {
		log.Printf("Error marking user %s verified: %v", req.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error in OTP verification"})
		return
	}

	respondWithTokens(c, req.UserID, "Email verified successfully")
}

func HandleResendOTP(c *gin.Context) {
	var req ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	user, err := db.GetUserByID(req.UserID)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
			return
		}
		log.Printf("Error fetching user %s: %v", req.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error in resending OTP"})
		return
	}

	if user.IsVerified {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "User is already verified"})
		return
	}

	if err := issueOTP(user.ID, user.Email, user.Name); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to send OTP email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "OTP has been resent to your email"})
}

func HandleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	creds, err := db.GetCredentialsByEmail(req.Email)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid email or password"})
			return
		}
		log.Printf("Error loading credentials: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error in login"})
		return
	}

	if !creds.IsVerified {
		c.JSON(http.StatusForbidden, gin.H{
			"success":           false,
			"message":           "Please verify your email first",
			"userId":            creds.UserID,
			"needsVerification": true,
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid email or password"})
		return
	}

	respondWithTokens(c, creds.UserID, "Login successful")
}

func HandleRefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Refresh token required"})
		return
	}

	claims, err := middleware.ParseToken(req.RefreshToken, models.TokenTypeRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid or expired refresh token"})
		return
	}

	creds, err := db.GetCredentialsByID(claims.UserID)
	if err != nil || !creds.IsVerified {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "User not found or not verified"})
		return
	}

	accessToken, err := middleware.GenerateAccessToken(claims.UserID)
	if err != nil {
		log.Printf("Error generating access token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error in token refresh"})
		return
	}
	refreshToken, err := middleware.GenerateRefreshToken(claims.UserID)
	if err != nil {
		log.Printf("Error generating refresh token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error in token refresh"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	})
}

func HandleGetMe(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	user, err := db.GetUserByID(claims.UserID)
	if err != nil {
		log.Printf("Error fetching user %s: %v", claims.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching user data"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

func HandleUpdateProfile(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	if err := db.UpdateProfile(claims.UserID, req.Name, req.Phone); err != nil {
		log.Printf("Error updating profile for user %s: %v", claims.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error updating profile"})
		return
	}

	user, err := db.GetUserByID(claims.UserID)
	if err != nil {
		log.Printf("Error fetching user %s: %v", claims.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error updating profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Profile updated successfully", "user": user})
}

func HandleUpdateLocation(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	var loc models.Location
	if err := c.ShouldBindJSON(&loc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	if err := db.UpdateLocation(claims.UserID, loc); err != nil {
		log.Printf("Error updating location for user %s: %v", claims.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error updating location"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Location updated successfully", "location": loc})
}

func HandleUpdateFarmingProfile(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	var profile models.FarmingProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	if err := db.UpdateFarmingProfile(claims.UserID, profile); err != nil {
		log.Printf("Error updating farming profile for user %s: %v", claims.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error updating farming profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Farming profile updated successfully", "farmingProfile": profile})
}

func HandleChangePassword(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Current password and new password are required"})
		return
	}

	creds, err := db.GetCredentialsByID(claims.UserID)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
			return
		}
		log.Printf("Error loading credentials for user %s: %v", claims.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error changing password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Current password is incorrect"})
		return
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error changing password"})
		return
	}
	if err := db.UpdatePassword(claims.UserID, string(newHash)); err != nil {
		log.Printf("Error updating password for user %s: %v", claims.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error changing password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password changed successfully"})
}

func HandleForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	userID, err := db.GetUserIDByEmail(req.Email)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No account found with this email"})
			return
		}
		log.Printf("Error looking up user by email: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error processing forgot password request"})
		return
	}

	user, err := db.GetUserByID(userID)
	if err != nil {
		log.Printf("Error fetching user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error processing forgot password request"})
		return
	}

	token, err := randomHex(32)
	if err != nil {
		log.Printf("Error generating reset token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error processing forgot password request"})
		return
	}
	if err := db.SetResetToken(userID, hashToken(token), time.Now().Add(time.Hour)); err != nil {
		log.Printf("Error storing reset token for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error processing forgot password request"})
		return
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", os.Getenv("FRONTEND_URL"), token)
	if err := Email.SendPasswordResetEmail(user.Email, user.Name, resetURL); err != nil {
		log.Printf("Error sending reset email to %s: %v", user.Email, err)
		if err := db.ClearResetToken(userID); err != nil {
			log.Printf("Error clearing reset token for user %s: %v", userID, err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to send reset email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset link sent to your email"})
}

func HandleResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	userID, err := db.GetUserIDByResetToken(hashToken(req.Token))
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) || errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid or expired reset token"})
			return
		}
		log.Printf("Error looking up reset token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error resetting password"})
		return
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error resetting password"})
		return
	}
	if err := db.UpdatePassword(userID, string(newHash)); err != nil {
		log.Printf("Error updating password for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error resetting password"})
		return
	}
	if err := db.ClearResetToken(userID); err != nil {
		log.Printf("Error clearing reset token for user %s: %v", userID, err)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset successfully"})
}

// issueOTP generates a fresh 6-digit code, stores its hash, and emails
// the plaintext to the user.
func issueOTP(userID, email, name string) error {
	otp, err := generateOTP()
	if err != nil {
		log.Printf("Error generating OTP: %v", err)
		return err
	}

	expireMinutes := 10
	if v := os.Getenv("OTP_EXPIRE_MINUTES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			expireMinutes = parsed
		}
	}

	expiry := time.Now().Add(time.Duration(expireMinutes) * time.Minute)
	if err := db.SetOTP(userID, hashToken(otp), expiry); err != nil {
		log.Printf("Error storing OTP for user %s: %v", userID, err)
		return err
	}

	if err := Email.SendOTPEmail(email, name, otp, expireMinutes); err != nil {
		log.Printf("Error sending OTP email to %s: %v", email, err)
		return err
	}
	return nil
}

func respondWithTokens(c *gin.Context, userID, message string) {
	accessToken, err := middleware.GenerateAccessToken(userID)
	if err != nil {
		log.Printf("Error generating access token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error generating tokens"})
		return
	}
	refreshToken, err := middleware.GenerateRefreshToken(userID)
	if err != nil {
		log.Printf("Error generating refresh token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error generating tokens"})
		return
	}

	user, err := db.GetUserByID(userID)
	if err != nil {
		log.Printf("Error fetching user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching user data"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      message,
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
		"user": gin.H{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"phone": user.Phone,
		},
	})
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

func randomHex(bytes int) (string, error) {
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
