package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"gorm.io/gorm"

	"vendor-service/internal/model"
	"vendor-service/pkg/database"
	"vendor-service/prometheus"
)

// ActiveSource selects which column an active vendor lookup filters on
type ActiveSource string

const (
	SourceVendor  ActiveSource = "vendor"
	SourceProfile ActiveSource = "profile"
)

// ParseActiveSource validates the source query parameter
func ParseActiveSource(s string) (ActiveSource, bool) {
	switch ActiveSource(s) {
	case SourceVendor, SourceProfile:
		return ActiveSource(s), true
	default:
		return "", false
	}
}

// VendorChanges holds the fields of a partial vendor update. Nil fields are
// left untouched.
type VendorChanges struct {
	PersianName   *string
	EnglishName   *string
	Phone         *string
	IsActive      *bool
	PurchaseCount *int
	ProductsCount *int
	SoldProducts  *int
}

func (c VendorChanges) columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if c.PersianName != nil {
		cols["vendor_persian_name"] = *c.PersianName
	}
	if c.EnglishName != nil {
		cols["vendor_english_name"] = *c.EnglishName
	}
	if c.Phone != nil {
		cols["vendor_phone_number"] = *c.Phone
	}
	if c.IsActive != nil {
		cols["is_active"] = *c.IsActive
	}
	if c.PurchaseCount != nil {
		cols["purchase_count"] = *c.PurchaseCount
	}
	if c.ProductsCount != nil {
		cols["products_count"] = *c.ProductsCount
	}
	if c.SoldProducts != nil {
		cols["sold_products"] = *c.SoldProducts
	}
	return cols
}

// VendorUpdate is one item of a bulk update
type VendorUpdate struct {
	VendorID uint
	Changes  VendorChanges
}

// VendorStore is the vendor persistence API used by handlers
type VendorStore interface {
	List(ctx context.Context, page Page) ([]model.VendorInformation, int64, error)
	GetByVendorID(ctx context.Context, vendorID uint) (*model.VendorInformation, error)
	Search(ctx context.Context, name string, page Page) ([]model.VendorInformation, int64, error)
	ListByCity(ctx context.Context, cityID uint) ([]model.VendorInformation, error)
	ListActive(ctx context.Context) ([]model.ActiveVendor, error)
	ListActiveBy(ctx context.Context, source ActiveSource, id uint) ([]model.ActiveVendor, error)
	ListVendorIDs(ctx context.Context) ([]uint, error)
	Create(ctx context.Context, vendor *model.VendorInformation) error
	CreateMany(ctx context.Context, vendors []model.VendorInformation) error
	Update(ctx context.Context, vendorID uint, changes VendorChanges) error
	UpdateMany(ctx context.Context, updates []VendorUpdate) error
	Delete(ctx context.Context, vendorID uint) error
	DeleteMany(ctx context.Context, vendorIDs []uint) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// VendorRepository implements VendorStore on gorm
type VendorRepository struct {
	db      *gorm.DB
	metrics *prometheus.Metrics
}

// NewVendorRepository creates a VendorRepository. Queries run on the request
// session when one is attached to the context.
func NewVendorRepository(db *gorm.DB, metrics *prometheus.Metrics) *VendorRepository {
	return &VendorRepository{db: db, metrics: metrics}
}

func (r *VendorRepository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

// List returns a page of vendors ordered by id and the total vendor count
func (r *VendorRepository) List(ctx context.Context, page Page) ([]model.VendorInformation, int64, error) {
	defer r.metrics.TrackDBOperation("vendor_list")(time.Now())

	var total int64
	if err := r.conn(ctx).Model(&model.VendorInformation{}).Distinct("id").Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count vendors: %w", err)
	}

	var vendors []model.VendorInformation
	err := r.conn(ctx).
		Order("id ASC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&vendors).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list vendors: %w", err)
	}
	return vendors, total, nil
}

// GetByVendorID returns the vendor with the external identifier vendorID
func (r *VendorRepository) GetByVendorID(ctx context.Context, vendorID uint) (*model.VendorInformation, error) {
	defer r.metrics.TrackDBOperation("vendor_get")(time.Now())

	var vendor model.VendorInformation
	err := r.conn(ctx).Where("vendor_id = ?", vendorID).Order("id ASC").First(&vendor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get vendor %d: %w", vendorID, err)
	}
	return &vendor, nil
}

// Search matches name case-insensitively against the Persian and English names
func (r *VendorRepository) Search(ctx context.Context, name string, page Page) ([]model.VendorInformation, int64, error) {
	defer r.metrics.TrackDBOperation("vendor_search")(time.Now())

	pattern := containsPattern(name)
	filter := func(db *gorm.DB) *gorm.DB {
		return db.Where("vendor_persian_name ILIKE ? OR vendor_english_name ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := r.conn(ctx).Model(&model.VendorInformation{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count vendor search: %w", err)
	}

	var vendors []model.VendorInformation
	err := r.conn(ctx).
		Scopes(filter).
		Order("id ASC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&vendors).Error
	if err != nil {
		return nil, 0, fmt.Errorf("search vendors: %w", err)
	}
	return vendors, total, nil
}

// ListByCity returns one display record per vendor located in cityID
func (r *VendorRepository) ListByCity(ctx context.Context, cityID uint) ([]model.VendorInformation, error) {
	defer r.metrics.TrackDBOperation("vendor_list_by_city")(time.Now())

	var vendors []model.VendorInformation
	err := r.conn(ctx).
		Select("DISTINCT ON (vendor_id) *").
		Where("city_id = ?", cityID).
		Order("vendor_id ASC, id ASC").
		Find(&vendors).Error
	if err != nil {
		return nil, fmt.Errorf("list vendors of city %d: %w", cityID, err)
	}
	return vendors, nil
}

func (r *VendorRepository) activeQuery(ctx context.Context) *gorm.DB {
	return r.conn(ctx).
		Table("vendors AS v").
		Select("v.vendor_id, v.profile_id, e.title AS profile_title, v.extra").
		Joins("LEFT JOIN enumerations AS e ON e.id = v.profile_id").
		Where("v.status = ?", model.VendorStatusActive).
		Order("v.id ASC")
}

// ListActive returns every live activation record with its profile title
func (r *VendorRepository) ListActive(ctx context.Context) ([]model.ActiveVendor, error) {
	defer r.metrics.TrackDBOperation("vendor_list_active")(time.Now())

	var active []model.ActiveVendor
	if err := r.activeQuery(ctx).Scan(&active).Error; err != nil {
		return nil, fmt.Errorf("list active vendors: %w", err)
	}
	return active, nil
}

// ListActiveBy returns live activation records filtered by vendor or profile id
func (r *VendorRepository) ListActiveBy(ctx context.Context, source ActiveSource, id uint) ([]model.ActiveVendor, error) {
	defer r.metrics.TrackDBOperation("vendor_list_active")(time.Now())

	q := r.activeQuery(ctx)
	switch source {
	case SourceVendor:
		q = q.Where("v.vendor_id = ?", id)
	case SourceProfile:
		q = q.Where("v.profile_id = ?", id)
	default:
		return nil, fmt.Errorf("unknown active source %q", source)
	}

	var active []model.ActiveVendor
	if err := q.Scan(&active).Error; err != nil {
		return nil, fmt.Errorf("list active vendors by %s %d: %w", source, id, err)
	}
	return active, nil
}

// ListVendorIDs returns the distinct external vendor identifiers
func (r *VendorRepository) ListVendorIDs(ctx context.Context) ([]uint, error) {
	defer r.metrics.TrackDBOperation("vendor_list_ids")(time.Now())

	var ids []uint
	err := r.conn(ctx).
		Model(&model.VendorInformation{}).
		Distinct("vendor_id").
		Order("vendor_id ASC").
		Pluck("vendor_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list vendor ids: %w", err)
	}
	return ids, nil
}

// lockVendorIDs takes a transaction-scoped advisory lock per external
// identifier. vendor_infos allows several rows per vendor, so there is no
// unique index to reject concurrent creators; the lock makes the absence
// check and the insert atomic. Locks are taken in ascending order and held
// until the outermost transaction ends.
func lockVendorIDs(tx *gorm.DB, vendorIDs ...uint) error {
	ids := slices.Clone(vendorIDs)
	slices.Sort(ids)
	for _, id := range slices.Compact(ids) {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", int64(id)).Error; err != nil {
			return fmt.Errorf("lock vendor %d: %w", id, err)
		}
	}
	return nil
}

func ensureVendorsAbsent(db *gorm.DB, vendorIDs ...uint) error {
	var existing []uint
	err := db.
		Model(&model.VendorInformation{}).
		Where("vendor_id IN ?", vendorIDs).
		Limit(1).
		Pluck("vendor_id", &existing).Error
	if err != nil {
		return fmt.Errorf("check vendor ids: %w", err)
	}
	if len(existing) > 0 {
		return fmt.Errorf("vendor %d: %w", existing[0], ErrDuplicate)
	}
	return nil
}

// Create inserts vendor unless its external identifier is taken
func (r *VendorRepository) Create(ctx context.Context, vendor *model.VendorInformation) error {
	defer r.metrics.TrackDBOperation("vendor_create")(time.Now())

	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockVendorIDs(tx, vendor.VendorID); err != nil {
			return err
		}
		if err := ensureVendorsAbsent(tx, vendor.VendorID); err != nil {
			return err
		}
		if err := tx.Create(vendor).Error; err != nil {
			return fmt.Errorf("create vendor %d: %w", vendor.VendorID, err)
		}
		return nil
	})
}

// CreateMany inserts all vendors or none of them
func (r *VendorRepository) CreateMany(ctx context.Context, vendors []model.VendorInformation) error {
	defer r.metrics.TrackDBOperation("vendor_create_many")(time.Now())

	if len(vendors) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(vendors))
	seen := make(map[uint]struct{}, len(vendors))
	for _, v := range vendors {
		if _, dup := seen[v.VendorID]; dup {
			return fmt.Errorf("vendor %d: %w", v.VendorID, ErrDuplicate)
		}
		seen[v.VendorID] = struct{}{}
		ids = append(ids, v.VendorID)
	}

	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockVendorIDs(tx, ids...); err != nil {
			return err
		}
		if err := ensureVendorsAbsent(tx, ids...); err != nil {
			return err
		}
		if err := tx.Create(&vendors).Error; err != nil {
			return fmt.Errorf("create vendors: %w", err)
		}
		return nil
	})
}

func updateVendor(db *gorm.DB, vendorID uint, changes VendorChanges) error {
	cols := changes.columns()
	if len(cols) == 0 {
		var n int64
		if err := db.Model(&model.VendorInformation{}).Where("vendor_id = ?", vendorID).Count(&n).Error; err != nil {
			return fmt.Errorf("check vendor %d: %w", vendorID, err)
		}
		if n == 0 {
			return fmt.Errorf("vendor %d: %w", vendorID, ErrNotFound)
		}
		return nil
	}

	res := db.Model(&model.VendorInformation{}).Where("vendor_id = ?", vendorID).Updates(cols)
	if res.Error != nil {
		return fmt.Errorf("update vendor %d: %w", vendorID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("vendor %d: %w", vendorID, ErrNotFound)
	}
	return nil
}

// Update applies changes to the vendor with the external identifier vendorID
func (r *VendorRepository) Update(ctx context.Context, vendorID uint, changes VendorChanges) error {
	defer r.metrics.TrackDBOperation("vendor_update")(time.Now())
	return updateVendor(r.conn(ctx), vendorID, changes)
}

// UpdateMany applies every update or none of them
func (r *VendorRepository) UpdateMany(ctx context.Context, updates []VendorUpdate) error {
	defer r.metrics.TrackDBOperation("vendor_update_many")(time.Now())

	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			if err := updateVendor(tx, u.VendorID, u.Changes); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the display records of vendorID
func (r *VendorRepository) Delete(ctx context.Context, vendorID uint) error {
	defer r.metrics.TrackDBOperation("vendor_delete")(time.Now())

	res := r.conn(ctx).Where("vendor_id = ?", vendorID).Delete(&model.VendorInformation{})
	if res.Error != nil {
		return fmt.Errorf("delete vendor %d: %w", vendorID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("vendor %d: %w", vendorID, ErrNotFound)
	}
	return nil
}

// DeleteMany removes the display records of vendorIDs and reports how many
// rows went. Zero matches is ErrNotFound.
func (r *VendorRepository) DeleteMany(ctx context.Context, vendorIDs []uint) (int64, error) {
	defer r.metrics.TrackDBOperation("vendor_delete_many")(time.Now())

	if len(vendorIDs) == 0 {
		return 0, ErrNotFound
	}

	res := r.conn(ctx).Where("vendor_id IN ?", vendorIDs).Delete(&model.VendorInformation{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete vendors: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	return res.RowsAffected, nil
}

// DeleteAll removes every vendor display record
func (r *VendorRepository) DeleteAll(ctx context.Context) (int64, error) {
	defer r.metrics.TrackDBOperation("vendor_delete_all")(time.Now())

	res := r.conn(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.VendorInformation{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete all vendors: %w", res.Error)
	}
	return res.RowsAffected, nil
}
