package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/Abhijeet14d/KrishiBandhu/db"
	"github.com/Abhijeet14d/KrishiBandhu/extdata"
	"github.com/Abhijeet14d/KrishiBandhu/models"
	"github.com/gin-gonic/gin"
)

// userLocation loads the caller's stored location. Handlers that need
// at least a state check that themselves.
func userLocation(c *gin.Context) (models.Location, bool) {
	claims, ok := currentClaims(c)
	if !ok {
		return models.Location{}, false
	}

	user, err := db.GetUserByID(claims.UserID)
	if err != nil {
		log.Printf("Error fetching user %s: %v", claims.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching user data"})
		return models.Location{}, false
	}
	return user.Location, true
}

func HandleDashboard(c *gin.Context) {
	loc, ok := userLocation(c)
	if !ok {
		return
	}
	if loc.State == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please set your location in profile to get personalized data"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": Aggregator.DashboardData(c, loc)})
}

func HandleMarketPrices(c *gin.Context) {
	loc, ok := userLocation(c)
	if !ok {
		return
	}

	q := extdata.MarketQuery{
		State:     c.Query("state"),
		District:  c.Query("district"),
		Commodity: c.Query("commodity"),
	}
	if q.State == "" {
		q.State = loc.State
	}
	if q.District == "" {
		q.District = loc.District
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": ExtData.MarketPrices(c, q)})
}

func HandleWeather(c *gin.Context) {
	loc, ok := userLocation(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": ExtData.CurrentWeather(c, placeFromQuery(c, loc))})
}

func HandleForecast(c *gin.Context) {
	loc, ok := userLocation(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": ExtData.Forecast(c, placeFromQuery(c, loc))})
}

func HandleSchemes(c *gin.Context) {
	loc, ok := userLocation(c)
	if !ok {
		return
	}

	q := extdata.SchemesQuery{
		State:    c.Query("state"),
		Category: c.Query("category"),
	}
	if q.State == "" {
		q.State = loc.State
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": ExtData.Schemes(c, q)})
}

func HandleFarmingAdvice(c *gin.Context) {
	loc, ok := userLocation(c)
	if !ok {
		return
	}
	if loc.State == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please set your location in profile to get farming advice"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": Aggregator.GetFarmingAdvice(c, loc)})
}

func HandleClearCache(c *gin.Context) {
	ExtData.ClearCache()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "API cache cleared successfully"})
}

// placeFromQuery resolves a weather lookup target from query params,
// falling back to the stored location field by field.
func placeFromQuery(c *gin.Context, loc models.Location) extdata.Place {
	place := extdata.Place{
		City:  c.Query("city"),
		State: c.Query("state"),
	}
	if place.City == "" {
		place.City = loc.Place()
	}
	if place.State == "" {
		place.State = loc.State
	}
	if lat, err := strconv.ParseFloat(c.Query("lat"), 64); err == nil {
		place.Lat = lat
	} else {
		place.Lat = loc.Coordinates.Lat
	}
	if lon, err := strconv.ParseFloat(c.Query("lon"), 64); err == nil {
		place.Lon = lon
	} else {
		place.Lon = loc.Coordinates.Lon
	}
	return place
}
