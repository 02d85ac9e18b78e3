package models

import "time"

// Coordinates are optional; Lat/Lon of zero means "not set".
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Location is owned by the user profile and read-only for the
// enrichment pipeline.
type Location struct {
	State       string      `json:"state"`
	District    string      `json:"district"`
	City        string      `json:"city"`
	Village     string      `json:"village"`
	Pincode     string      `json:"pincode"`
	Coordinates Coordinates `json:"coordinates"`
}

// Place returns the best city-level name for weather lookups.
func (l Location) Place() string {
	if l.City != "" {
		return l.City
	}
	return l.District
}

type FarmingProfile struct {
	LandSize       float64  `json:"landSize"`
	PrimaryCrops   []string `json:"primaryCrops"`
	IrrigationType string   `json:"irrigationType"`
	SoilType       string   `json:"soilType"`
}

type User struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	IsVerified     bool           `json:"isVerified"`
	Location       Location       `json:"location"`
	FarmingProfile FarmingProfile `json:"farmingProfile"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Credentials carries the secret columns that are only selected for
// auth flows, never returned to clients.
type Credentials struct {
	UserID           string
	PasswordHash     string
	IsVerified       bool
	OTPHash          string
	OTPExpiry        time.Time
	OTPAttempts      int
	ResetTokenHash   string
	ResetTokenExpiry time.Time
}
