package handler

import (
	"vendor-service/internal/model"
	"vendor-service/internal/repository"
)

// VendorFields are the writable vendor attributes
type VendorFields struct {
	VendorNamePersian       *string `json:"vendor_name_persian" validate:"omitempty,min=6,max=90"`
	VendorNameEnglish       *string `json:"vendor_name_english" validate:"omitempty,min=3,max=120"`
	PhoneNumberOfOwner      *string `json:"phone_number_of_owner" validate:"omitempty,ascii_digits,ir_mobile"`
	IsActive                *bool   `json:"is_active"`
	TheNumberOfPurchase     *int    `json:"the_number_of_purchase" validate:"omitempty,gte=0"`
	TheNumberOfProducts     *int    `json:"the_number_of_products" validate:"omitempty,gte=0"`
	TheNumberOfSoldProducts *int    `json:"the_number_of_sold_products" validate:"omitempty,gte=0"`
}

func (f VendorFields) changes() repository.VendorChanges {
	return repository.VendorChanges{
		PersianName:   f.VendorNamePersian,
		EnglishName:   f.VendorNameEnglish,
		Phone:         f.PhoneNumberOfOwner,
		IsActive:      f.IsActive,
		PurchaseCount: f.TheNumberOfPurchase,
		ProductsCount: f.TheNumberOfProducts,
		SoldProducts:  f.TheNumberOfSoldProducts,
	}
}

// VendorRequest is the body of create and bulk update items
type VendorRequest struct {
	VendorIdentifier *uint `json:"vendor_identifier" validate:"required,gt=0"`
	VendorFields
}

func (r VendorRequest) model(userID uint) model.VendorInformation {
	v := model.VendorInformation{
		VendorID:          *r.VendorIdentifier,
		VendorPersianName: r.VendorNamePersian,
		VendorEnglishName: r.VendorNameEnglish,
		VendorPhoneNumber: r.PhoneNumberOfOwner,
		IsActive:          r.IsActive,
		PurchaseCount:     r.TheNumberOfPurchase,
		ProductsCount:     r.TheNumberOfProducts,
		SoldProducts:      r.TheNumberOfSoldProducts,
	}
	if userID != 0 {
		v.UserID = &userID
	}
	return v
}

// VendorResponse is the public shape of a vendor
type VendorResponse struct {
	VendorIdentifier        uint    `json:"vendor_identifier"`
	VendorNamePersian       *string `json:"vendor_name_persian"`
	VendorNameEnglish       *string `json:"vendor_name_english"`
	PhoneNumberOfOwner      *string `json:"phone_number_of_owner"`
	IsActive                *bool   `json:"is_active"`
	TheNumberOfPurchase     *int    `json:"the_number_of_purchase"`
	TheNumberOfProducts     *int    `json:"the_number_of_products"`
	TheNumberOfSoldProducts *int    `json:"the_number_of_sold_products"`
}

func newVendorResponse(v model.VendorInformation) VendorResponse {
	return VendorResponse{
		VendorIdentifier:        v.VendorID,
		VendorNamePersian:       v.VendorPersianName,
		VendorNameEnglish:       v.VendorEnglishName,
		PhoneNumberOfOwner:      v.VendorPhoneNumber,
		IsActive:                v.IsActive,
		TheNumberOfPurchase:     v.PurchaseCount,
		TheNumberOfProducts:     v.ProductsCount,
		TheNumberOfSoldProducts: v.SoldProducts,
	}
}

// VendorsResponse is a list of vendors with the total count
type VendorsResponse struct {
	Vendors []VendorResponse `json:"vendors"`
	Count   int64            `json:"count"`
}

func newVendorsResponse(vendors []model.VendorInformation, count int64) VendorsResponse {
	out := VendorsResponse{Vendors: make([]VendorResponse, 0, len(vendors)), Count: count}
	for _, v := range vendors {
		out.Vendors = append(out.Vendors, newVendorResponse(v))
	}
	return out
}

// ActiveVendorResponse is a live activation record with its profile
type ActiveVendorResponse struct {
	VendorID    uint                     `json:"vendor_id"`
	ProfileID   *uint                    `json:"profile_id"`
	ProfileName *string                  `json:"profile_name"`
	WorkingTime []map[string]interface{} `json:"working_time"`
	Extra       map[string]interface{}   `json:"extra"`
}

// ActiveVendorsResponse is a list of activation records
type ActiveVendorsResponse struct {
	Vendors []ActiveVendorResponse `json:"vendors"`
	Count   int                    `json:"count"`
}

func newActiveVendorsResponse(active []model.ActiveVendor) ActiveVendorsResponse {
	out := ActiveVendorsResponse{Vendors: make([]ActiveVendorResponse, 0, len(active)), Count: len(active)}
	for _, a := range active {
		out.Vendors = append(out.Vendors, ActiveVendorResponse{
			VendorID:    a.VendorID,
			ProfileID:   a.ProfileID,
			ProfileName: a.ProfileTitle,
			WorkingTime: workingTime(a.Extra),
			Extra:       a.Extra,
		})
	}
	return out
}

// workingTime extracts the opening hours stored in the extra bag
func workingTime(extra map[string]interface{}) []map[string]interface{} {
	raw, ok := extra["working_times"].([]interface{})
	if !ok {
		return nil
	}
	slots := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if slot, ok := item.(map[string]interface{}); ok {
			slots = append(slots, slot)
		}
	}
	return slots
}

// VendorIDsResponse lists the distinct external vendor identifiers
type VendorIDsResponse struct {
	Vendors []uint `json:"vendors"`
	Count   int    `json:"count"`
}

// ProfileFields are the writable profile attributes
type ProfileFields struct {
	Title  *string                `json:"title" validate:"omitempty,min=1,max=255"`
	Status *bool                  `json:"status"`
	Extra  map[string]interface{} `json:"extra"`
}

func (f ProfileFields) changes() repository.ProfileChanges {
	return repository.ProfileChanges{Title: f.Title, Status: f.Status, Extra: f.Extra}
}

// ProfileCreateRequest is the body of profile create items
type ProfileCreateRequest struct {
	Title  *string                `json:"title" validate:"required,min=1,max=255"`
	Status *bool                  `json:"status"`
	Extra  map[string]interface{} `json:"extra"`
}

func (r ProfileCreateRequest) model() model.Enumeration {
	p := model.Enumeration{Title: *r.Title, Status: true, Extra: r.Extra}
	if r.Status != nil {
		p.Status = *r.Status
	}
	return p
}

// ProfileUpdateItem is one item of a bulk profile update
type ProfileUpdateItem struct {
	ID *uint `json:"id" validate:"required,gt=0"`
	ProfileFields
}

// ProfileResponse is the public shape of a profile
type ProfileResponse struct {
	ID     uint                   `json:"id"`
	Title  *string                `json:"title"`
	Status bool                   `json:"status"`
	Extra  map[string]interface{} `json:"extra"`
}

// ProfilesResponse is a list of profiles with the total count
type ProfilesResponse struct {
	Profiles []ProfileResponse `json:"profiles"`
	Count    int64             `json:"count"`
}

func newProfileResponse(p model.Enumeration) ProfileResponse {
	title := p.Title
	return ProfileResponse{ID: p.ID, Title: &title, Status: p.Status, Extra: p.Extra}
}

func newProfilesResponse(profiles []model.Enumeration, count int64) ProfilesResponse {
	out := ProfilesResponse{Profiles: make([]ProfileResponse, 0, len(profiles)), Count: count}
	for _, p := range profiles {
		out.Profiles = append(out.Profiles, newProfileResponse(p))
	}
	return out
}
