package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Abhijeet14d/KrishiBandhu/models"
	"github.com/lib/pq"
)

var ErrUserNotFound = fmt.Errorf("user not found")

func CreateUser(name, email, phone, passwordHash string) (string, error) {
	query := `
		INSERT INTO users (name, email, phone, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id string
	err := DB.QueryRow(query, name, email, phone, passwordHash).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("error creating user: %v", err)
	}
	return id, nil
}

func GetUserByID(userID string) (*models.User, error) {
	query := `
		SELECT id, name, email, phone, is_verified,
		       COALESCE(loc_state, ''), COALESCE(loc_district, ''), COALESCE(loc_city, ''),
		       COALESCE(loc_village, ''), COALESCE(loc_pincode, ''),
		       COALESCE(loc_lat, 0), COALESCE(loc_lon, 0),
		       COALESCE(land_size, 0), COALESCE(primary_crops, '{}'),
		       COALESCE(irrigation_type, ''), COALESCE(soil_type, ''),
		       created_at
		FROM users
		WHERE id = $1
	`
	user := &models.User{}
	err := DB.QueryRow(query, userID).Scan(
		&user.ID, &user.Name, &user.Email, &user.Phone, &user.IsVerified,
		&user.Location.State, &user.Location.District, &user.Location.City,
		&user.Location.Village, &user.Location.Pincode,
		&user.Location.Coordinates.Lat, &user.Location.Coordinates.Lon,
		&user.FarmingProfile.LandSize, pq.Array(&user.FarmingProfile.PrimaryCrops),
		&user.FarmingProfile.IrrigationType, &user.FarmingProfile.SoilType,
		&user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting user by ID %s: %v", userID, err)
	}
	return user, nil
}

func GetUserIDByEmail(email string) (string, error) {
	var id string
	err := DB.QueryRow(`SELECT id FROM users WHERE email = $1`, email).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("error looking up user by email: %v", err)
	}
	return id, nil
}

func GetCredentialsByEmail(email string) (*models.Credentials, error) {
	return getCredentials(`WHERE email = $1`, email)
}

func GetCredentialsByID(userID string) (*models.Credentials, error) {
	return getCredentials(`WHERE id = $1`, userID)
}

func getCredentials(where string, arg any) (*models.Credentials, error) {
	query := `
		SELECT id, password_hash, is_verified,
		       COALESCE(otp_hash, ''), COALESCE(otp_expiry, 'epoch'::timestamptz), COALESCE(otp_attempts, 0),
		       COALESCE(reset_token_hash, ''), COALESCE(reset_token_expiry, 'epoch'::timestamptz)
		FROM users ` + where
	creds := &models.Credentials{}
	err := DB.QueryRow(query, arg).Scan(
		&creds.UserID, &creds.PasswordHash, &creds.IsVerified,
		&creds.OTPHash, &creds.OTPExpiry, &creds.OTPAttempts,
		&creds.ResetTokenHash, &creds.ResetTokenExpiry,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting credentials: %v", err)
	}
	return creds, nil
}

// UpdateUnverifiedUser refreshes a registration attempt for a user who
// never completed OTP verification.
func UpdateUnverifiedUser(userID, name, phone, passwordHash string) error {
	query := `
		UPDATE users
		SET name = $1, phone = $2, password_hash = $3
		WHERE id = $4 AND is_verified = FALSE
	`
	_, err := DB.Exec(query, name, phone, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("error updating unverified user %s: %v", userID, err)
	}
	return nil
}

func SetOTP(userID, otpHash string, expiry time.Time) error {
	query := `
		UPDATE users
		SET otp_hash = $1, otp_expiry = $2, otp_attempts = 0
		WHERE id = $3
	`
	_, err := DB.Exec(query, otpHash, expiry, userID)
	if err != nil {
		return fmt.Errorf("error storing OTP for user %s: %v", userID, err)
	}
	return nil
}

func IncrementOTPAttempts(userID string) error {
	_, err := DB.Exec(`UPDATE users SET otp_attempts = otp_attempts + 1 WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("error counting OTP attempt for user %s: %v", userID, err)
	}
	return nil
}

func MarkVerified(userID string) error {
	query := `
		UPDATE users
		SET is_verified = TRUE, otp_hash = NULL, otp_expiry = NULL, otp_attempts = 0
		WHERE id = $1
	`
	_, err := DB.Exec(query, userID)
	if err != nil {
		return fmt.Errorf("error marking user %s verified: %v", userID, err)
	}
	return nil
}

func UpdateProfile(userID, name, phone string) error {
	query := `
		UPDATE users
		SET name = COALESCE(NULLIF($1, ''), name),
		    phone = COALESCE(NULLIF($2, ''), phone)
		WHERE id = $3
	`
	_, err := DB.Exec(query, name, phone, userID)
	if err != nil {
		return fmt.Errorf("error updating profile for user %s: %v", userID, err)
	}
	return nil
}

func UpdateLocation(userID string, loc models.Location) error {
	query := `
		UPDATE users
		SET loc_state = $1, loc_district = $2, loc_city = $3,
		    loc_village = $4, loc_pincode = $5, loc_lat = $6, loc_lon = $7
		WHERE id = $8
	`
	_, err := DB.Exec(query, loc.State, loc.District, loc.City,
		loc.Village, loc.Pincode, loc.Coordinates.Lat, loc.Coordinates.Lon, userID)
	if err != nil {
		return fmt.Errorf("error updating location for user %s: %v", userID, err)
	}
	return nil
}

func UpdateFarmingProfile(userID string, profile models.FarmingProfile) error {
	query := `
		UPDATE users
		SET land_size = $1, primary_crops = $2, irrigation_type = $3, soil_type = $4
		WHERE id = $5
	`
	_, err := DB.Exec(query, profile.LandSize, pq.Array(profile.PrimaryCrops),
		profile.IrrigationType, profile.SoilType, userID)
	if err != nil {
		return fmt.Errorf("error updating farming profile for user %s: %v", userID, err)
	}
	return nil
}

func UpdatePassword(userID, passwordHash string) error {
	_, err := DB.Exec(`UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("error updating password for user %s: %v", userID, err)
	}
	return nil
}

func SetResetToken(userID, tokenHash string, expiry time.Time) error {
	query := `
		UPDATE users
		SET reset_token_hash = $1, reset_token_expiry = $2
		WHERE id = $3
	`
	_, err := DB.Exec(query, tokenHash, expiry, userID)
	if err != nil {
		return fmt.Errorf("error storing reset token for user %s: %v", userID, err)
	}
	return nil
}

// GetUserIDByResetToken resolves an unexpired reset token hash to a
// user id.
func GetUserIDByResetToken(tokenHash string) (string, error) {
	query := `
		SELECT id FROM users
		WHERE reset_token_hash = $1 AND reset_token_expiry > NOW()
	`
	var id string
	err := DB.QueryRow(query, tokenHash).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("error resolving reset token: %v", err)
	}
	return id, nil
}

func ClearResetToken(userID string) error {
	query := `
		UPDATE users
		SET reset_token_hash = NULL, reset_token_expiry = NULL
		WHERE id = $1
	`
	_, err := DB.Exec(query, userID)
	if err != nil {
		return fmt.Errorf("error clearing reset token for user %s: %v", userID, err)
	}
	return nil
}
