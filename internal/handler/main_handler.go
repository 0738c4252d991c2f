package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"vendor-service/internal/repository"
)

// MainHandler serves the /v1/main summary routes
type MainHandler struct {
	vendors  repository.VendorStore
	profiles repository.ProfileStore
}

// NewMainHandler creates a MainHandler
func NewMainHandler(vendors repository.VendorStore, profiles repository.ProfileStore) *MainHandler {
	return &MainHandler{vendors: vendors, profiles: profiles}
}

// Register mounts the summary routes on g
func (h *MainHandler) Register(g *echo.Group) {
	g.GET("/vendors", h.VendorIDs)
	g.GET("/profiles", h.ActiveProfiles)
}

// VendorIDs lists the distinct external vendor identifiers
func (h *MainHandler) VendorIDs(c echo.Context) error {
	ids, err := h.vendors.ListVendorIDs(c.Request().Context())
	if err != nil {
		return storeError(c, err, msgVendorNotFound, msgVendorDuplicate)
	}
	if ids == nil {
		ids = []uint{}
	}
	return c.JSON(http.StatusOK, VendorIDsResponse{Vendors: ids, Count: len(ids)})
}

// ActiveProfiles lists the enabled profiles
func (h *MainHandler) ActiveProfiles(c echo.Context) error {
	profiles, err := h.profiles.ListActive(c.Request().Context())
	if err != nil {
		return storeError(c, err, msgProfileNotFound, msgProfileDuplicate)
	}
	return c.JSON(http.StatusOK, newProfilesResponse(profiles, int64(len(profiles))))
}
