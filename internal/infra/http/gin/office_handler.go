package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"deskhub/internal/app/commands"
	"deskhub/internal/app/dto"
	officeapp "deskhub/internal/app/handlers/offices"
	"deskhub/internal/app/queries"
	"deskhub/internal/domain/geo"
	domainoffices "deskhub/internal/domain/offices"
	domaintags "deskhub/internal/domain/tags"
	domainusers "deskhub/internal/domain/users"
)

type OfficeHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

// List is the public collection endpoint. user_id, visitor_id and lat/lng
// are all optional; authentication only matters when the caller filters by
// their own user_id.
func (h OfficeHandler) List(c *gin.Context) {
	var requester domainusers.UserID
	if p, ok := currentPrincipal(c); ok {
		requester = domainusers.UserID(p.ID)
	}

	query := officeapp.SearchOfficesQuery{
		Requester: requester,
		OwnerID:   domainusers.UserID(c.Query("user_id")),
		VisitorID: domainusers.UserID(c.Query("visitor_id")),
		Page:      parseIntWithDefault(c.Query("page"), 1),
	}

	latRaw, lngRaw := c.Query("lat"), c.Query("lng")
	if latRaw != "" && lngRaw != "" {
		lat, latErr := strconv.ParseFloat(latRaw, 64)
		lng, lngErr := strconv.ParseFloat(lngRaw, 64)
		if latErr != nil || lngErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng must be decimal degrees"})
			return
		}
		query.Reference = &geo.Coordinate{Lat: lat, Lng: lng}
	}

	result, err := queries.Ask[officeapp.SearchOfficesQuery, dto.OfficeCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h OfficeHandler) Show(c *gin.Context) {
	var requester domainusers.UserID
	if p, ok := currentPrincipal(c); ok {
		requester = domainusers.UserID(p.ID)
	}
	query := officeapp.GetOfficeQuery{
		Requester: requester,
		OfficeID:  domainoffices.OfficeID(c.Param("id")),
	}
	result, err := queries.Ask[officeapp.GetOfficeQuery, dto.OfficeEnvelope](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type createOfficeRequest struct {
	Title           string   `json:"title" binding:"required"`
	Description     string   `json:"description"`
	Lat             float64  `json:"lat" binding:"min=-90,max=90"`
	Lng             float64  `json:"lng" binding:"min=-180,max=180"`
	Address         string   `json:"address" binding:"required"`
	PricePerDay     int64    `json:"price_per_day" binding:"min=0"`
	MonthlyDiscount int      `json:"monthly_discount" binding:"min=0,max=100"`
	Tags            []string `json:"tags"`
}

func (h OfficeHandler) Create(c *gin.Context) {
	p, ok := requireCapability(c, "office.create")
	if !ok {
		return
	}

	var req createOfficeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd := officeapp.CreateOfficeCommand{
		Actor: domainusers.UserID(p.ID),
		Payload: officeapp.CreateOfficePayload{
			Title:           req.Title,
			Description:     req.Description,
			Lat:             req.Lat,
			Lng:             req.Lng,
			Address:         req.Address,
			PricePerDay:     req.PricePerDay,
			MonthlyDiscount: req.MonthlyDiscount,
			TagIDs:          mapTagIDs(req.Tags),
		},
	}
	result, err := commands.Dispatch[officeapp.CreateOfficeCommand, *dto.OfficeEnvelope](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type updateOfficeRequest struct {
	Title           *string   `json:"title"`
	Description     *string   `json:"description"`
	Lat             *float64  `json:"lat"`
	Lng             *float64  `json:"lng"`
	Address         *string   `json:"address"`
	PricePerDay     *int64    `json:"price_per_day"`
	MonthlyDiscount *int      `json:"monthly_discount"`
	Hidden          *bool     `json:"hidden"`
	FeaturedImageID *string   `json:"featured_image_id"`
	Tags            *[]string `json:"tags"`
}

func (h OfficeHandler) Update(c *gin.Context) {
	p, ok := requireCapability(c, "office.create")
	if !ok {
		return
	}

	var req updateOfficeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload := officeapp.UpdateOfficePayload{
		Title:           req.Title,
		Description:     req.Description,
		Lat:             req.Lat,
		Lng:             req.Lng,
		Address:         req.Address,
		PricePerDay:     req.PricePerDay,
		MonthlyDiscount: req.MonthlyDiscount,
		Hidden:          req.Hidden,
	}
	if req.FeaturedImageID != nil {
		id := domainoffices.ImageID(*req.FeaturedImageID)
		payload.FeaturedImageID = &id
	}
	if req.Tags != nil {
		payload.TagIDs = mapTagIDs(*req.Tags)
		if payload.TagIDs == nil {
			payload.TagIDs = []domaintags.TagID{}
		}
	}

	cmd := officeapp.UpdateOfficeCommand{
		Actor:    domainusers.UserID(p.ID),
		OfficeID: domainoffices.OfficeID(c.Param("id")),
		Payload:  payload,
	}
	result, err := commands.Dispatch[officeapp.UpdateOfficeCommand, *dto.OfficeEnvelope](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h OfficeHandler) Delete(c *gin.Context) {
	p, ok := requireCapability(c, "office.delete")
	if !ok {
		return
	}
	cmd := officeapp.DeleteOfficeCommand{
		Actor:    domainusers.UserID(p.ID),
		OfficeID: domainoffices.OfficeID(c.Param("id")),
	}
	if _, err := commands.Dispatch[officeapp.DeleteOfficeCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func mapTagIDs(values []string) []domaintags.TagID {
	if values == nil {
		return nil
	}
	out := make([]domaintags.TagID, 0, len(values))
	for _, v := range values {
		out = append(out, domaintags.TagID(v))
	}
	return out
}

func parseIntWithDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return def
	}
	return value
}
