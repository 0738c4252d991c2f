package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"vendor-service/internal/model"
	"vendor-service/pkg/events"
)

func seededVendors() *fakeVendorStore {
	return &fakeVendorStore{vendors: []model.VendorInformation{
		{ID: 3, VendorID: 303, VendorEnglishName: strPtr("Gamma Grocer"), CityID: uintPtr(7)},
		{ID: 1, VendorID: 101, VendorEnglishName: strPtr("Alpha Bakery"), VendorPersianName: strPtr("نانوایی آلفا"), CityID: uintPtr(7)},
		{ID: 2, VendorID: 202, VendorEnglishName: strPtr("Beta Dairy"), CityID: uintPtr(8)},
	}}
}

func newVendorTestEcho(store *fakeVendorStore, pub events.Publisher, userID uint) *echo.Echo {
	e := newTestEcho(pub, userID)
	NewVendorHandler(store, nil).Register(e.Group("/v1/vendors"))
	return e
}

func TestListVendorsReturnsCountAndOrderedPage(t *testing.T) {
	e := newVendorTestEcho(seededVendors(), nil, 0)

	rec := doRequest(e, http.MethodGet, "/v1/vendors/?limit=10&offset=0", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body VendorsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 3, body.Count)
	require.Len(t, body.Vendors, 3)
	assert.Equal(t, []uint{101, 202, 303},
		[]uint{body.Vendors[0].VendorIdentifier, body.Vendors[1].VendorIdentifier, body.Vendors[2].VendorIdentifier})

	rec = doRequest(e, http.MethodGet, "/v1/vendors?limit=2&offset=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 3, body.Count)
	assert.Len(t, body.Vendors, 1)
}

func TestListVendorsRejectsBadPaging(t *testing.T) {
	e := newVendorTestEcho(seededVendors(), nil, 0)

	for _, query := range []string{"limit=0", "limit=101", "offset=-1", "limit=ten", "offset=x"} {
		rec := doRequest(e, http.MethodGet, "/v1/vendors/?"+query, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
		assert.Contains(t, rec.Body.String(), `"detail"`, query)
	}
}

func TestListVendorsStoreFailureIs500(t *testing.T) {
	e := newVendorTestEcho(&fakeVendorStore{err: errors.New("connection refused")}, nil, 0)

	rec := doRequest(e, http.MethodGet, "/v1/vendors/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Internal server error"}`, rec.Body.String())
}

func TestGetVendor(t *testing.T) {
	e := newVendorTestEcho(seededVendors(), nil, 0)

	rec := doRequest(e, http.MethodGet, "/v1/vendors/101", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var v VendorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, uint(101), v.VendorIdentifier)
	assert.Equal(t, "Alpha Bakery", *v.VendorNameEnglish)
	assert.Equal(t, "نانوایی آلفا", *v.VendorNamePersian)

	rec = doRequest(e, http.MethodGet, "/v1/vendors/999999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Vendor not found"}`, rec.Body.String())

	rec = doRequest(e, http.MethodGet, "/v1/vendors/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchAndCity(t *testing.T) {
	e := newVendorTestEcho(seededVendors(), nil, 0)

	rec := doRequest(e, http.MethodGet, "/v1/vendors/search?vendor_name=dairy", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body VendorsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body.Count)

	rec = doRequest(e, http.MethodGet, "/v1/vendors/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(e, http.MethodGet, "/v1/vendors/city/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 2, body.Count)
}

func TestActiveVendors(t *testing.T) {
	profileID := uint(11)
	title := "Bakery"
	store := seededVendors()
	store.active = []model.ActiveVendor{
		{VendorID: 101, ProfileID: &profileID, ProfileTitle: &title, Extra: datatypes.JSONMap{
			"working_times": []interface{}{map[string]interface{}{"day": "sat", "from": "08:00"}},
		}},
	}
	e := newVendorTestEcho(store, nil, 0)

	rec := doRequest(e, http.MethodGet, "/v1/vendors/actives/list", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body ActiveVendorsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "Bakery", *body.Vendors[0].ProfileName)
	assert.Equal(t, "sat", body.Vendors[0].WorkingTime[0]["day"])

	tests := []struct {
		target string
		want   int
	}{
		{"/v1/vendors/actives/single/101", http.StatusBadRequest},
		{"/v1/vendors/actives/single/101?source=city", http.StatusBadRequest},
		{"/v1/vendors/actives/single/101?source=vendor", http.StatusOK},
		{"/v1/vendors/actives/single/11?source=profile", http.StatusOK},
		{"/v1/vendors/actives/single/202?source=vendor", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := doRequest(e, http.MethodGet, tt.target, "")
		assert.Equal(t, tt.want, rec.Code, tt.target)
	}
}

func TestCreateVendor(t *testing.T) {
	store := seededVendors()
	pub := &capturePublisher{}
	e := newVendorTestEcho(store, pub, 42)

	rec := doRequest(e, http.MethodPost, "/v1/vendors/add",
		`{"vendor_identifier":404,"vendor_name_persian":"غرفه تست جدید","phone_number_of_owner":"09123456789"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"Vendor created successfully"}`, rec.Body.String())

	created, err := store.GetByVendorID(context.Background(), 404)
	require.NoError(t, err)
	require.NotNil(t, created.UserID)
	assert.Equal(t, uint(42), *created.UserID)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.VendorsCreated, pub.events[0].Type)
	assert.Equal(t, []uint{404}, pub.events[0].IDs)
	assert.Equal(t, uint(42), pub.events[0].UserID)
}

func TestCreateVendorValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
		msg  string
	}{
		{"persian digits in phone", `{"vendor_identifier":9,"phone_number_of_owner":"۰۹۱۲۳۴۵۶۷۸۹"}`, http.StatusBadRequest, "(0-9)"},
		{"phone prefix", `{"vendor_identifier":9,"phone_number_of_owner":"08123456789"}`, http.StatusBadRequest, "09"},
		{"short persian name", `{"vendor_identifier":9,"vendor_name_persian":"غرفه"}`, http.StatusBadRequest, "۶"},
		{"short english name", `{"vendor_identifier":9,"vendor_name_english":"ab"}`, http.StatusBadRequest, "۳"},
		{"missing identifier", `{"vendor_name_english":"abcd"}`, http.StatusBadRequest, "vendor_identifier"},
		{"malformed json", `{"vendor_identifier":`, http.StatusBadRequest, "Invalid request data"},
		{"duplicate", `{"vendor_identifier":101}`, http.StatusConflict, "already exists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &capturePublisher{}
			e := newVendorTestEcho(seededVendors(), pub, 42)

			rec := doRequest(e, http.MethodPost, "/v1/vendors/add", tt.body)
			assert.Equal(t, tt.want, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body.Detail, tt.msg)
			assert.Empty(t, pub.events)
		})
	}
}

func TestBulkVendorMutations(t *testing.T) {
	store := seededVendors()
	pub := &capturePublisher{}
	e := newVendorTestEcho(store, pub, 42)

	rec := doRequest(e, http.MethodPost, "/v1/vendors/add-multiple",
		`[{"vendor_identifier":501},{"vendor_identifier":101}]`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	_, err := store.GetByVendorID(context.Background(), 501)
	assert.Error(t, err, "bulk create is all-or-nothing")

	rec = doRequest(e, http.MethodPost, "/v1/vendors/add-multiple",
		`[{"vendor_identifier":501},{"vendor_identifier":502}]`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(e, http.MethodPut, "/v1/vendors/update-multiple",
		`[{"vendor_name_english":"no identifier"}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(e, http.MethodPut, "/v1/vendors/update-multiple",
		`[{"vendor_identifier":501,"vendor_name_english":"renamed"},{"vendor_identifier":999}]`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(e, http.MethodPut, "/v1/vendors/update/501", `{"vendor_name_english":"renamed"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	v, _ := store.GetByVendorID(context.Background(), 501)
	assert.Equal(t, "renamed", *v.VendorEnglishName)

	rec = doRequest(e, http.MethodPut, "/v1/vendors/update/999999", `{"vendor_name_english":"renamed"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(e, http.MethodDelete, "/v1/vendors/delete-multiple", `[900,901]`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(e, http.MethodDelete, "/v1/vendors/delete-multiple", `[501,502]`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(e, http.MethodDelete, "/v1/vendors/delete/101", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(e, http.MethodDelete, "/v1/vendors/delete/101", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(e, http.MethodDelete, "/v1/vendors/delete-all", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.vendors)

	var types []string
	for _, ev := range pub.events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{
		events.VendorsCreated,
		events.VendorsUpdated,
		events.VendorsDeleted,
		events.VendorsDeleted,
		events.VendorsDeleted,
	}, types)
	assert.True(t, pub.events[len(pub.events)-1].All)
}
