package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"vendor-service/internal/model"
	"vendor-service/pkg/database"
	"vendor-service/prometheus"
)

// ProfileChanges holds the fields of a partial profile update
type ProfileChanges struct {
	Title  *string
	Status *bool
	Extra  datatypes.JSONMap
}

func (c ProfileChanges) columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if c.Title != nil {
		cols["title"] = *c.Title
	}
	if c.Status != nil {
		cols["status"] = *c.Status
	}
	if c.Extra != nil {
		cols["extra"] = c.Extra
	}
	return cols
}

// ProfileUpdate is one item of a bulk update
type ProfileUpdate struct {
	ID      uint
	Changes ProfileChanges
}

// ProfileStore is the profile persistence API used by handlers
type ProfileStore interface {
	List(ctx context.Context, page Page) ([]model.Enumeration, int64, error)
	Get(ctx context.Context, id uint) (*model.Enumeration, error)
	Search(ctx context.Context, title string, page Page) ([]model.Enumeration, int64, error)
	ListActive(ctx context.Context) ([]model.Enumeration, error)
	Create(ctx context.Context, profile *model.Enumeration) error
	CreateMany(ctx context.Context, profiles []model.Enumeration) error
	Update(ctx context.Context, id uint, changes ProfileChanges) error
	UpdateMany(ctx context.Context, updates []ProfileUpdate) error
	Delete(ctx context.Context, id uint) error
	DeleteMany(ctx context.Context, ids []uint) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// ProfileRepository stores profiles as the enumeration children of a root node
type ProfileRepository struct {
	db       *gorm.DB
	parentID uint
	metrics  *prometheus.Metrics
}

// NewProfileRepository creates a ProfileRepository scoped to parentID
func NewProfileRepository(db *gorm.DB, parentID uint, metrics *prometheus.Metrics) *ProfileRepository {
	return &ProfileRepository{db: db, parentID: parentID, metrics: metrics}
}

func (r *ProfileRepository) profiles(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db).Model(&model.Enumeration{}).Where("parent_id = ?", r.parentID)
}

// List returns a page of profiles ordered by id and the total profile count
func (r *ProfileRepository) List(ctx context.Context, page Page) ([]model.Enumeration, int64, error) {
	defer r.metrics.TrackDBOperation("profile_list")(time.Now())

	var total int64
	if err := r.profiles(ctx).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count profiles: %w", err)
	}

	var profiles []model.Enumeration
	err := r.profiles(ctx).Order("id ASC").Limit(page.Limit).Offset(page.Offset).Find(&profiles).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, total, nil
}

// Get returns the profile with id
func (r *ProfileRepository) Get(ctx context.Context, id uint) (*model.Enumeration, error) {
	defer r.metrics.TrackDBOperation("profile_get")(time.Now())

	var profile model.Enumeration
	err := r.profiles(ctx).Where("id = ?", id).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %d: %w", id, err)
	}
	return &profile, nil
}

// Search matches title case-insensitively against profile titles
func (r *ProfileRepository) Search(ctx context.Context, title string, page Page) ([]model.Enumeration, int64, error) {
	defer r.metrics.TrackDBOperation("profile_search")(time.Now())

	pattern := containsPattern(title)

	var total int64
	if err := r.profiles(ctx).Where("title ILIKE ?", pattern).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count profile search: %w", err)
	}

	var profiles []model.Enumeration
	err := r.profiles(ctx).
		Where("title ILIKE ?", pattern).
		Order("id ASC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&profiles).Error
	if err != nil {
		return nil, 0, fmt.Errorf("search profiles: %w", err)
	}
	return profiles, total, nil
}

// ListActive returns the profiles whose status flag is set
func (r *ProfileRepository) ListActive(ctx context.Context) ([]model.Enumeration, error) {
	defer r.metrics.TrackDBOperation("profile_list_active")(time.Now())

	var profiles []model.Enumeration
	if err := r.profiles(ctx).Where("status = ?", true).Order("id ASC").Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("list active profiles: %w", err)
	}
	return profiles, nil
}

// Create inserts profile under the profile root
func (r *ProfileRepository) Create(ctx context.Context, profile *model.Enumeration) error {
	defer r.metrics.TrackDBOperation("profile_create")(time.Now())

	parentID := r.parentID
	profile.ParentID = &parentID
	if err := database.Conn(ctx, r.db).Create(profile).Error; err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// CreateMany inserts all profiles or none of them
func (r *ProfileRepository) CreateMany(ctx context.Context, profiles []model.Enumeration) error {
	defer r.metrics.TrackDBOperation("profile_create_many")(time.Now())

	if len(profiles) == 0 {
		return nil
	}
	for i := range profiles {
		parentID := r.parentID
		profiles[i].ParentID = &parentID
	}
	if err := database.Conn(ctx, r.db).Create(&profiles).Error; err != nil {
		return fmt.Errorf("create profiles: %w", err)
	}
	return nil
}

func (r *ProfileRepository) update(db *gorm.DB, id uint, changes ProfileChanges) error {
	scoped := db.Model(&model.Enumeration{}).Where("parent_id = ? AND id = ?", r.parentID, id)

	cols := changes.columns()
	if len(cols) == 0 {
		var n int64
		if err := scoped.Count(&n).Error; err != nil {
			return fmt.Errorf("check profile %d: %w", id, err)
		}
		if n == 0 {
			return fmt.Errorf("profile %d: %w", id, ErrNotFound)
		}
		return nil
	}

	res := scoped.Updates(cols)
	if res.Error != nil {
		return fmt.Errorf("update profile %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("profile %d: %w", id, ErrNotFound)
	}
	return nil
}

// Update applies changes to the profile with id
func (r *ProfileRepository) Update(ctx context.Context, id uint, changes ProfileChanges) error {
	defer r.metrics.TrackDBOperation("profile_update")(time.Now())
	return r.update(database.Conn(ctx, r.db), id, changes)
}

// UpdateMany applies every update or none of them
func (r *ProfileRepository) UpdateMany(ctx context.Context, updates []ProfileUpdate) error {
	defer r.metrics.TrackDBOperation("profile_update_many")(time.Now())

	return database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			if err := r.update(tx, u.ID, u.Changes); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the profile with id. Children and activation records go
// with it through the foreign keys.
func (r *ProfileRepository) Delete(ctx context.Context, id uint) error {
	defer r.metrics.TrackDBOperation("profile_delete")(time.Now())

	res := database.Conn(ctx, r.db).
		Where("parent_id = ? AND id = ?", r.parentID, id).
		Delete(&model.Enumeration{})
	if res.Error != nil {
		return fmt.Errorf("delete profile %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("profile %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteMany removes the profiles in ids. Zero matches is ErrNotFound.
func (r *ProfileRepository) DeleteMany(ctx context.Context, ids []uint) (int64, error) {
	defer r.metrics.TrackDBOperation("profile_delete_many")(time.Now())

	if len(ids) == 0 {
		return 0, ErrNotFound
	}

	res := database.Conn(ctx, r.db).
		Where("parent_id = ? AND id IN ?", r.parentID, ids).
		Delete(&model.Enumeration{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete profiles: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	return res.RowsAffected, nil
}

// DeleteAll removes every profile under the root
func (r *ProfileRepository) DeleteAll(ctx context.Context) (int64, error) {
	defer r.metrics.TrackDBOperation("profile_delete_all")(time.Now())

	res := database.Conn(ctx, r.db).Where("parent_id = ?", r.parentID).Delete(&model.Enumeration{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete all profiles: %w", res.Error)
	}
	return res.RowsAffected, nil
}
