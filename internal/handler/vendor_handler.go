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
	msgVendorNotFound  = "Vendor not found"
	msgVendorDuplicate = "Vendor with this identifier already exists"
)

// VendorHandler serves the /v1/vendors routes
type VendorHandler struct {
	store   repository.VendorStore
	metrics *prometheus.Metrics
}

// NewVendorHandler creates a VendorHandler
func NewVendorHandler(store repository.VendorStore, metrics *prometheus.Metrics) *VendorHandler {
	return &VendorHandler{store: store, metrics: metrics}
}

// Register mounts the vendor routes on g
func (h *VendorHandler) Register(g *echo.Group) {
	g.GET("", h.ListVendors)
	g.GET("/", h.ListVendors)
	g.GET("/search", h.SearchVendors)
	g.GET("/city/:city_id", h.ListVendorsByCity)
	g.GET("/actives/list", h.ListActiveVendors)
	g.GET("/actives/single/:id", h.GetActiveVendor)
	g.GET("/:id", h.GetVendor)
	g.POST("/add", h.CreateVendor)
	g.POST("/add-multiple", h.CreateVendors)
	g.PUT("/update/:id", h.UpdateVendor)
	g.PUT("/update-multiple", h.UpdateVendors)
	g.DELETE("/delete/:id", h.DeleteVendor)
	g.DELETE("/delete-multiple", h.DeleteVendors)
	g.DELETE("/delete-all", h.DeleteAllVendors)
}

// ListVendors handles retrieving a page of vendors
func (h *VendorHandler) ListVendors(c echo.Context) error {
	log := logger.FromEcho(c)

	page, err := parsePage(c)
	if err != nil {
		return err
	}

	vendors, total, err := h.store.List(c.Request().Context(), page)
	if err != nil {
		return storeError(c, err, msgVendorNotFound, msgVendorDuplicate)
	}
	h.metrics.RecordVendorOperation("list")

	log.Info("Vendors retrieved successfully",
		zap.Int("limit", page.Limit),
		zap.Int("offset", page.Offset),
		zap.Int("count", len(vendors)))
	return c.JSON(http.StatusOK, newVendorsResponse(vendors, total))
}

// GetVendor handles retrieving a vendor by its external identifier
func (h *VendorHandler) GetVendor(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	vendor, err := h.store.GetByVendorID(c.Request().Context(), id)
	if err != nil {
		return storeError(c, err, msgVendorNotFound, msgVendorDuplicate)
	}
	h.metrics.RecordVendorOperation("get")

	return c.JSON(http.StatusOK, newVendorResponse(*vendor))
}

// SearchVendors handles a name search over Persian and English names
func (h *VendorHandler) SearchVendors(c echo.Context) error {
	log := logger.FromEcho(c)

	name := strings.TrimSpace(c.QueryParam("vendor_name"))
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "vendor_name is required")
	}
	page, err := parsePage(c)
	if err != nil {
		return err
	}

	vendors, total, err := h.store.Search(c.Request().Context(), name, page)
	if err != nil {
		return storeError(c, err, msgVendorNotFound, msgVendorDuplicate)
	}
	h.metrics.RecordVendorOperation("search")

	log.Info("Vendor search completed", zap.String("vendor_name", name), zap.Int64("matches", total))
	return c.JSON(http.StatusOK, newVendorsResponse(vendors, total))
}

// ListVendorsByCity handles retrieving the vendors of a city
func (h *VendorHandler) ListVendorsByCity(c echo.Context) error {
	cityID, err := parseID(c, "city_id")
	if err != nil {
		return err
	}

	vendors, err := h.store.ListByCity(c.Request().Context(), cityID)
	if err != nil {
		return storeError(c, err, msgVendorNotFound, msgVendorDuplicate)
	}
	h.metrics.RecordVendorOperation("list_by_city")

	return c.JSON(http.StatusOK, newVendorsResponse(vendors, int64(len(vendors))))
}

// ListActiveVendors handles retrieving every live activation record
func (h *VendorHandler) ListActiveVendors(c echo.Context) error {
	active, err := h.store.ListActive(c.Request().Context())
	if err != nil {
		return storeError(c, err, msgVendorNotFound, msgVendorDuplicate)
	}
	h.metrics.RecordVendorOperation("list_active")

	return c.JSON(http.StatusOK, newActiveVendorsResponse(active))
}

// GetActiveVendor handles the active lookup by vendor or profile id
func (h *VendorHandler) GetActiveVendor(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	source, ok := repository.ParseActiveSource(c.QueryParam("source"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Source must be 'vendor' or 'profile'")
	}

	return activeBy(c, h.store, source, id, h.metrics.RecordVendorOperation)
}

func activeBy(c echo.Context, store repository.VendorStore, source repository.ActiveSource, id uint, record func(string)) error {
	active, err := store.ListActiveBy(c.Request().Context(), source, id)
	if err != nil {
		return storeError(c, err, msgVendorNotFound, msgVendorDuplicate)
	}
	if len(active) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, msgVendorNotFound)
	}
	record("get_active")

	return c.JSON(http.StatusOK, newActiveVendorsResponse(active))
}

// CreateVendor handles creating a vendor
func (h *VendorHandler) CreateVendor(c echo.Context) error {
	log := logger.FromEcho(c)

	var req VendorRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	userID := callerID(c)
	vendor := req.model(userID)
	if err := h.store.Create(c.Request().Context(), &vendor); err != nil {
		log.Warn("Failed to create vendor", zap.Uint("vendor_id", vendor.VendorID), zap.Error(err))
		return storeError(c, err, msgVendorNotFound, msgVendorDuplicate)
	}
	h.metrics.RecordVendorOperation("create")

	events.Enqueue(c, events.ChangeEvent{Type: events.VendorsCreated, IDs: []uint{vendor.VendorID}, UserID: userID})

	log.Info("Vendor created successfully", zap.Uint("vendor_id", vendor.VendorID))
	return c.JSON(http.StatusCreated, MessageResponse{Message: "Vendor created successfully"})
}

// CreateVendors handles creating a batch of vendors, all or none
func (h *VendorHandler) CreateVendors(c echo.Context) error {
	log := logger.FromEcho(c)

	var reqs []VendorRequest
	if err := bindList(c, &reqs); err != nil {
		return err
	}
	if len(reqs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "At least one vendor is required")
	}

	userID := callerID(c)
	vendors := make([]model.VendorInformation, 0, len(reqs))
	ids := make([]uint, 0, len(reqs))
	for i := range reqs {
		if err := validate(c, &reqs[i]); err != nil {
			return err
		}
		vendors = append(vendors, reqs[i].model(userID))
		ids = append(ids, *reqs[i].VendorIdentifier)
	}

	if err := h.store.CreateMany(c.Request().Context(), vendors); err != nil {
		log.Warn("Failed to create vendors", zap.String("vendor_ids", describeIDs(ids)), zap.Error(err))
		return storeError(c, err, msgVendorNotFound, msgVendorDuplicate)
	}
	h.metrics.RecordVendorOperation("create_multiple")

	events.Enqueue(c, events.ChangeEvent{Type: events.VendorsCreated, IDs: ids, UserID: userID})

	log.Info("Vendors created successfully", zap.Int("count", len(vendors)))
	return c.JSON(http.StatusCreated, MessageResponse{Message: "Vendors created successfully"})
}

// UpdateVendor handles a partial update of one vendor
func (h *VendorHandler) UpdateVendor(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req VendorFields
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.store.Update(c.Request().Context(), id, req.changes()); err != nil {
		return storeError(c, err, msgVendorNotFound, msgVendorDuplicate)
	}
	h.metrics.RecordVendorOperation("update")

	events.Enqueue(c, events.ChangeEvent{Type: events.VendorsUpdated, IDs: []uint{id}, UserID: callerID(c)})

	log.Info("Vendor updated successfully", zap.Uint("vendor_id", id))
	return c.JSON(http.StatusOK, MessageResponse{Message: "Vendor updated successfully"})
}

// UpdateVendors handles a batch of partial updates, all or none
func (h *VendorHandler) UpdateVendors(c echo.Context) error {
	log := logger.FromEcho(c)

	var reqs []VendorRequest
	if err := bindList(c, &reqs); err != nil {
		return err
	}
	if len(reqs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "At least one vendor is required")
	}

	updates := make([]repository.VendorUpdate, 0, len(reqs))
	ids := make([]uint, 0, len(reqs))
	for i := range reqs {
		if err := validate(c, &reqs[i]); err != nil {
			return err
		}
		id := *reqs[i].VendorIdentifier
		updates = append(updates, repository.VendorUpdate{VendorID: id, Changes: reqs[i].changes()})
		ids = append(ids, id)
	}

	if err := h.store.UpdateMany(c.Request().Context(), updates); err != nil {
		log.Warn("Failed to update vendors", zap.String("vendor_ids", describeIDs(ids)), zap.Error(err))
		return storeError(c, err, msgVendorNotFound, msgVendorDuplicate)
	}
	h.metrics.RecordVendorOperation("update_multiple")

	events.Enqueue(c, events.ChangeEvent{Type: events.VendorsUpdated, IDs: ids, UserID: callerID(c)})

	return c.JSON(http.StatusOK, MessageResponse{Message: "Vendors updated successfully"})
}

// DeleteVendor handles deleting one vendor
func (h *VendorHandler) DeleteVendor(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.store.Delete(c.Request().Context(), id); err != nil {
		return storeError(c, err, msgVendorNotFound, msgVendorDuplicate)
	}
	h.metrics.RecordVendorOperation("delete")

	events.Enqueue(c, events.ChangeEvent{Type: events.VendorsDeleted, IDs: []uint{id}, UserID: callerID(c)})

	logger.FromEcho(c).Info("Vendor deleted successfully", zap.Uint("vendor_id", id))
	return c.JSON(http.StatusOK, MessageResponse{Message: "Vendor deleted successfully"})
}

// DeleteVendors handles deleting the vendors listed in the body
func (h *VendorHandler) DeleteVendors(c echo.Context) error {
	var ids []uint
	if err := bindList(c, &ids); err != nil {
		return err
	}
	if len(ids) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "At least one vendor identifier is required")
	}

	n, err := h.store.DeleteMany(c.Request().Context(), ids)
	if err != nil {
		return storeError(c, err, msgVendorNotFound, msgVendorDuplicate)
	}
	h.metrics.RecordVendorOperation("delete_multiple")

	events.Enqueue(c, events.ChangeEvent{Type: events.VendorsDeleted, IDs: ids, UserID: callerID(c)})

	logger.FromEcho(c).Info("Vendors deleted successfully", zap.Int64("rows", n))
	return c.JSON(http.StatusOK, MessageResponse{Message: "Vendors deleted successfully"})
}

// DeleteAllVendors handles removing every vendor
func (h *VendorHandler) DeleteAllVendors(c echo.Context) error {
	n, err := h.store.DeleteAll(c.Request().Context())
	if err != nil {
		return storeError(c, err, msgVendorNotFound, msgVendorDuplicate)
	}
	h.metrics.RecordVendorOperation("delete_all")

	events.Enqueue(c, events.ChangeEvent{Type: events.VendorsDeleted, All: true, UserID: callerID(c)})

	logger.FromEcho(c).Warn("All vendors deleted", zap.Int64("rows", n))
	return c.JSON(http.StatusOK, MessageResponse{Message: "All vendors deleted successfully"})
}
