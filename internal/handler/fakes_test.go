package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"vendor-service/internal/model"
	"vendor-service/internal/repository"
	"vendor-service/internal/validation"
	"vendor-service/pkg/events"
	"vendor-service/pkg/oauth"
)

type fakeVendorStore struct {
	vendors []model.VendorInformation
	active  []model.ActiveVendor
	err     error
}

func (s *fakeVendorStore) List(_ context.Context, page repository.Page) ([]model.VendorInformation, int64, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	sorted := append([]model.VendorInformation(nil), s.vendors...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return window(sorted, page), int64(len(sorted)), nil
}

func window(all []model.VendorInformation, page repository.Page) []model.VendorInformation {
	if page.Offset >= len(all) {
		return nil
	}
	end := page.Offset + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[page.Offset:end]
}

func (s *fakeVendorStore) find(vendorID uint) int {
	for i, v := range s.vendors {
		if v.VendorID == vendorID {
			return i
		}
	}
	return -1
}

func (s *fakeVendorStore) GetByVendorID(_ context.Context, vendorID uint) (*model.VendorInformation, error) {
	if i := s.find(vendorID); i >= 0 {
		v := s.vendors[i]
		return &v, nil
	}
	return nil, repository.ErrNotFound
}

func (s *fakeVendorStore) Search(_ context.Context, name string, page repository.Page) ([]model.VendorInformation, int64, error) {
	var found []model.VendorInformation
	for _, v := range s.vendors {
		if v.VendorEnglishName != nil && strings.Contains(strings.ToLower(*v.VendorEnglishName), strings.ToLower(name)) {
			found = append(found, v)
		}
	}
	return window(found, page), int64(len(found)), nil
}

func (s *fakeVendorStore) ListByCity(_ context.Context, cityID uint) ([]model.VendorInformation, error) {
	var found []model.VendorInformation
	for _, v := range s.vendors {
		if v.CityID != nil && *v.CityID == cityID {
			found = append(found, v)
		}
	}
	return found, nil
}

func (s *fakeVendorStore) ListActive(context.Context) ([]model.ActiveVendor, error) {
	return s.active, s.err
}

func (s *fakeVendorStore) ListActiveBy(_ context.Context, source repository.ActiveSource, id uint) ([]model.ActiveVendor, error) {
	var found []model.ActiveVendor
	for _, a := range s.active {
		switch {
		case source == repository.SourceVendor && a.VendorID == id:
			found = append(found, a)
		case source == repository.SourceProfile && a.ProfileID != nil && *a.ProfileID == id:
			found = append(found, a)
		}
	}
	return found, nil
}

func (s *fakeVendorStore) ListVendorIDs(context.Context) ([]uint, error) {
	var ids []uint
	for _, v := range s.vendors {
		ids = append(ids, v.VendorID)
	}
	return ids, nil
}

func (s *fakeVendorStore) Create(_ context.Context, vendor *model.VendorInformation) error {
	if s.find(vendor.VendorID) >= 0 {
		return repository.ErrDuplicate
	}
	vendor.ID = uint(len(s.vendors) + 1)
	s.vendors = append(s.vendors, *vendor)
	return nil
}

func (s *fakeVendorStore) CreateMany(ctx context.Context, vendors []model.VendorInformation) error {
	for _, v := range vendors {
		if s.find(v.VendorID) >= 0 {
			return repository.ErrDuplicate
		}
	}
	for i := range vendors {
		_ = s.Create(ctx, &vendors[i])
	}
	return nil
}

func (s *fakeVendorStore) Update(_ context.Context, vendorID uint, changes repository.VendorChanges) error {
	i := s.find(vendorID)
	if i < 0 {
		return repository.ErrNotFound
	}
	if changes.EnglishName != nil {
		s.vendors[i].VendorEnglishName = changes.EnglishName
	}
	if changes.PersianName != nil {
		s.vendors[i].VendorPersianName = changes.PersianName
	}
	return nil
}

func (s *fakeVendorStore) UpdateMany(ctx context.Context, updates []repository.VendorUpdate) error {
	for _, u := range updates {
		if s.find(u.VendorID) < 0 {
			return repository.ErrNotFound
		}
	}
	for _, u := range updates {
		_ = s.Update(ctx, u.VendorID, u.Changes)
	}
	return nil
}

func (s *fakeVendorStore) Delete(_ context.Context, vendorID uint) error {
	i := s.find(vendorID)
	if i < 0 {
		return repository.ErrNotFound
	}
	s.vendors = append(s.vendors[:i], s.vendors[i+1:]...)
	return nil
}

func (s *fakeVendorStore) DeleteMany(ctx context.Context, vendorIDs []uint) (int64, error) {
	var n int64
	for _, id := range vendorIDs {
		if s.Delete(ctx, id) == nil {
			n++
		}
	}
	if n == 0 {
		return 0, repository.ErrNotFound
	}
	return n, nil
}

func (s *fakeVendorStore) DeleteAll(context.Context) (int64, error) {
	n := int64(len(s.vendors))
	s.vendors = nil
	return n, nil
}

type fakeProfileStore struct {
	profiles []model.Enumeration
}

func (s *fakeProfileStore) List(_ context.Context, page repository.Page) ([]model.Enumeration, int64, error) {
	all := s.profiles
	if page.Offset >= len(all) {
		return nil, int64(len(all)), nil
	}
	end := page.Offset + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[page.Offset:end], int64(len(all)), nil
}

func (s *fakeProfileStore) find(id uint) int {
	for i, p := range s.profiles {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *fakeProfileStore) Get(_ context.Context, id uint) (*model.Enumeration, error) {
	if i := s.find(id); i >= 0 {
		p := s.profiles[i]
		return &p, nil
	}
	return nil, repository.ErrNotFound
}

func (s *fakeProfileStore) Search(_ context.Context, title string, page repository.Page) ([]model.Enumeration, int64, error) {
	var found []model.Enumeration
	for _, p := range s.profiles {
		if strings.Contains(strings.ToLower(p.Title), strings.ToLower(title)) {
			found = append(found, p)
		}
	}
	return found, int64(len(found)), nil
}

func (s *fakeProfileStore) ListActive(context.Context) ([]model.Enumeration, error) {
	var found []model.Enumeration
	for _, p := range s.profiles {
		if p.Status {
			found = append(found, p)
		}
	}
	return found, nil
}

func (s *fakeProfileStore) Create(_ context.Context, profile *model.Enumeration) error {
	profile.ID = uint(100 + len(s.profiles))
	s.profiles = append(s.profiles, *profile)
	return nil
}

func (s *fakeProfileStore) CreateMany(ctx context.Context, profiles []model.Enumeration) error {
	for i := range profiles {
		_ = s.Create(ctx, &profiles[i])
	}
	return nil
}

func (s *fakeProfileStore) Update(_ context.Context, id uint, changes repository.ProfileChanges) error {
	i := s.find(id)
	if i < 0 {
		return repository.ErrNotFound
	}
	if changes.Title != nil {
		s.profiles[i].Title = *changes.Title
	}
	if changes.Status != nil {
		s.profiles[i].Status = *changes.Status
	}
	return nil
}

func (s *fakeProfileStore) UpdateMany(ctx context.Context, updates []repository.ProfileUpdate) error {
	for _, u := range updates {
		if s.find(u.ID) < 0 {
			return repository.ErrNotFound
		}
	}
	for _, u := range updates {
		_ = s.Update(ctx, u.ID, u.Changes)
	}
	return nil
}

func (s *fakeProfileStore) Delete(_ context.Context, id uint) error {
	i := s.find(id)
	if i < 0 {
		return repository.ErrNotFound
	}
	s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
	return nil
}

func (s *fakeProfileStore) DeleteMany(ctx context.Context, ids []uint) (int64, error) {
	var n int64
	for _, id := range ids {
		if s.Delete(ctx, id) == nil {
			n++
		}
	}
	if n == 0 {
		return 0, repository.ErrNotFound
	}
	return n, nil
}

func (s *fakeProfileStore) DeleteAll(context.Context) (int64, error) {
	n := int64(len(s.profiles))
	s.profiles = nil
	return n, nil
}

type capturePublisher struct {
	events []events.ChangeEvent
}

func (p *capturePublisher) Publish(_ context.Context, event events.ChangeEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

// newTestEcho builds an echo instance wired like the server, with the caller
// authenticated as userID when it is not zero
func newTestEcho(pub events.Publisher, userID uint) *echo.Echo {
	e := echo.New()
	e.Validator = validation.New()
	e.HTTPErrorHandler = ErrorHandler
	if userID != 0 {
		e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				identity := &oauth.Identity{UserID: userID}
				c.Set(oauth.IdentityKey, identity)
				c.Set(oauth.UserIDKey, identity.UserID)
				return next(c)
			}
		})
	}
	if pub != nil {
		e.Use(events.Middleware(pub))
	}
	return e
}

func doRequest(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func strPtr(s string) *string { return &s }
func uintPtr(u uint) *uint    { return &u }
