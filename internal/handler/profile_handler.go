package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"vendor-service/internal/model"
	"vendor-service/internal/repository"
	"vendor-service/pkg/events"
	"vendor-service/pkg/logger"
	"vendor-service/prometheus"
)

const (
	msgProfileNotFound  = "Profile not found"
	msgProfileDuplicate = "Profile already exists"
)

// ProfileHandler serves the /v1/profiles routes
type ProfileHandler struct {
	profiles repository.ProfileStore
	vendors  repository.VendorStore
	metrics  *prometheus.Metrics
}

// NewProfileHandler creates a ProfileHandler
func NewProfileHandler(profiles repository.ProfileStore, vendors repository.VendorStore, metrics *prometheus.Metrics) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, vendors: vendors, metrics: metrics}
}

// Register mounts the profile routes on g
func (h *ProfileHandler) Register(g *echo.Group) {
	g.GET("", h.ListProfiles)
	g.GET("/", h.ListProfiles)
	g.GET("/search", h.SearchProfiles)
	g.GET("/actives/list", h.ListActiveProfiles)
	g.GET("/actives/single/:id", h.ListProfileVendors)
	g.GET("/:id", h.GetProfile)
	g.POST("/add", h.CreateProfile)
	g.POST("/add-multiple", h.CreateProfiles)
	g.PUT("/update/:id", h.UpdateProfile)
	g.PUT("/update-multiple", h.UpdateProfiles)
	g.DELETE("/delete/:id", h.DeleteProfile)
	g.DELETE("/delete-multiple", h.DeleteProfiles)
	g.DELETE("/delete-all", h.DeleteAllProfiles)
}

// ListProfiles handles retrieving a page of profiles
func (h *ProfileHandler) ListProfiles(c echo.Context) error {
	page, err := parsePage(c)
	if err != nil {
		return err
	}

	profiles, total, err := h.profiles.List(c.Request().Context(), page)
	if err != nil {
		return storeError(c, err, msgProfileNotFound, msgProfileDuplicate)
	}
	h.metrics.RecordProfileOperation("list")

	return c.JSON(http.StatusOK, newProfilesResponse(profiles, total))
}

// GetProfile handles retrieving one profile
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	profile, err := h.profiles.Get(c.Request().Context(), id)
	if err != nil {
		return storeError(c, err, msgProfileNotFound, msgProfileDuplicate)
	}
	h.metrics.RecordProfileOperation("get")

	return c.JSON(http.StatusOK, newProfileResponse(*profile))
}

// SearchProfiles handles a title search
func (h *ProfileHandler) SearchProfiles(c echo.Context) error {
	title := strings.TrimSpace(c.QueryParam("title"))
	if title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	page, err := parsePage(c)
	if err != nil {
		return err
	}

	profiles, total, err := h.profiles.Search(c.Request().Context(), title, page)
	if err != nil {
		return storeError(c, err, msgProfileNotFound, msgProfileDuplicate)
	}
	h.metrics.RecordProfileOperation("search")

	return c.JSON(http.StatusOK, newProfilesResponse(profiles, total))
}

// ListActiveProfiles handles retrieving the enabled profiles
func (h *ProfileHandler) ListActiveProfiles(c echo.Context) error {
	profiles, err := h.profiles.ListActive(c.Request().Context())
	if err != nil {
		return storeError(c, err, msgProfileNotFound, msgProfileDuplicate)
	}
	h.metrics.RecordProfileOperation("list_active")

	return c.JSON(http.StatusOK, newProfilesResponse(profiles, int64(len(profiles))))
}

// ListProfileVendors handles retrieving the live vendors of a profile
func (h *ProfileHandler) ListProfileVendors(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	return activeBy(c, h.vendors, repository.SourceProfile, id, h.metrics.RecordProfileOperation)
}

// CreateProfile handles creating a profile
func (h *ProfileHandler) CreateProfile(c echo.Context) error {
	var req ProfileCreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	profile := req.model()
	if err := h.profiles.Create(c.Request().Context(), &profile); err != nil {
		return storeError(c, err, msgProfileNotFound, msgProfileDuplicate)
	}
	h.metrics.RecordProfileOperation("create")

	events.Enqueue(c, events.ChangeEvent{Type: events.ProfilesCreated, IDs: []uint{profile.ID}, UserID: callerID(c)})

	logger.FromEcho(c).Info("Profile created successfully", zap.Uint("profile_id", profile.ID))
	return c.JSON(http.StatusCreated, MessageResponse{Message: "Profile created successfully"})
}

// CreateProfiles handles creating a batch of profiles, all or none
func (h *ProfileHandler) CreateProfiles(c echo.Context) error {
	var reqs []ProfileCreateRequest
	if err := bindList(c, &reqs); err != nil {
		return err
	}
	if len(reqs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "At least one profile is required")
	}

	profiles := make([]model.Enumeration, 0, len(reqs))
	for i := range reqs {
		if err := validate(c, &reqs[i]); err != nil {
			return err
		}
		profiles = append(profiles, reqs[i].model())
	}

	if err := h.profiles.CreateMany(c.Request().Context(), profiles); err != nil {
		return storeError(c, err, msgProfileNotFound, msgProfileDuplicate)
	}
	h.metrics.RecordProfileOperation("create_multiple")

	ids := make([]uint, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	events.Enqueue(c, events.ChangeEvent{Type: events.ProfilesCreated, IDs: ids, UserID: callerID(c)})

	return c.JSON(http.StatusCreated, MessageResponse{Message: "Profiles created successfully"})
}

// UpdateProfile handles a partial update of one profile
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req ProfileFields
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.profiles.Update(c.Request().Context(), id, req.changes()); err != nil {
		return storeError(c, err, msgProfileNotFound, msgProfileDuplicate)
	}
	h.metrics.RecordProfileOperation("update")

	events.Enqueue(c, events.ChangeEvent{Type: events.ProfilesUpdated, IDs: []uint{id}, UserID: callerID(c)})

	return c.JSON(http.StatusOK, MessageResponse{Message: "Profile updated successfully"})
}

// UpdateProfiles handles a batch of partial updates, all or none
func (h *ProfileHandler) UpdateProfiles(c echo.Context) error {
	var reqs []ProfileUpdateItem
	if err := bindList(c, &reqs); err != nil {
		return err
	}
	if len(reqs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "At least one profile is required")
	}

	updates := make([]repository.ProfileUpdate, 0, len(reqs))
	ids := make([]uint, 0, len(reqs))
	for i := range reqs {
		if err := validate(c, &reqs[i]); err != nil {
			return err
		}
		updates = append(updates, repository.ProfileUpdate{ID: *reqs[i].ID, Changes: reqs[i].changes()})
		ids = append(ids, *reqs[i].ID)
	}

	if err := h.profiles.UpdateMany(c.Request().Context(), updates); err != nil {
		return storeError(c, err, msgProfileNotFound, msgProfileDuplicate)
	}
	h.metrics.RecordProfileOperation("update_multiple")

	events.Enqueue(c, events.ChangeEvent{Type: events.ProfilesUpdated, IDs: ids, UserID: callerID(c)})

	return c.JSON(http.StatusOK, MessageResponse{Message: "Profiles updated successfully"})
}

// DeleteProfile handles deleting one profile
func (h *ProfileHandler) DeleteProfile(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.profiles.Delete(c.Request().Context(), id); err != nil {
		return storeError(c, err, msgProfileNotFound, msgProfileDuplicate)
	}
	h.metrics.RecordProfileOperation("delete")

	events.Enqueue(c, events.ChangeEvent{Type: events.ProfilesDeleted, IDs: []uint{id}, UserID: callerID(c)})

	logger.FromEcho(c).Info("Profile deleted successfully", zap.Uint("profile_id", id))
	return c.JSON(http.StatusOK, MessageResponse{Message: "Profile deleted successfully"})
}

// DeleteProfiles handles deleting the profiles listed in the body
func (h *ProfileHandler) DeleteProfiles(c echo.Context) error {
	var ids []uint
	if err := bindList(c, &ids); err != nil {
		return err
	}
	if len(ids) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "At least one profile id is required")
	}

	if _, err := h.profiles.DeleteMany(c.Request().Context(), ids); err != nil {
		return storeError(c, err, msgProfileNotFound, msgProfileDuplicate)
	}
	h.metrics.RecordProfileOperation("delete_multiple")

	events.Enqueue(c, events.ChangeEvent{Type: events.ProfilesDeleted, IDs: ids, UserID: callerID(c)})

	return c.JSON(http.StatusOK, MessageResponse{Message: "Profiles deleted successfully"})
}

// DeleteAllProfiles handles removing every profile
func (h *ProfileHandler) DeleteAllProfiles(c echo.Context) error {
	n, err := h.profiles.DeleteAll(c.Request().Context())
	if err != nil {
		return storeError(c, err, msgProfileNotFound, msgProfileDuplicate)
	}
	h.metrics.RecordProfileOperation("delete_all")

	events.Enqueue(c, events.ChangeEvent{Type: events.ProfilesDeleted, All: true, UserID: callerID(c)})

	logger.FromEcho(c).Warn("All profiles deleted", zap.Int64("rows", n))
	return c.JSON(http.StatusOK, MessageResponse{Message: "All profiles deleted successfully"})
}
