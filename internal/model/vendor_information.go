package model

// VendorInformation is the denormalized, read-oriented projection of a vendor
// used by listing, search and detail views.
type VendorInformation struct {
	ID                uint    `json:"id" gorm:"primarykey"`
	VendorID          uint    `json:"vendor_id" gorm:"index"`
	VendorPersianName *string `json:"vendor_persian_name"`
	VendorEnglishName *string `json:"vendor_english_name"`
	VendorPhoneNumber *string `json:"vendor_phone_number" gorm:"type:varchar(11)"`
	IsActive          *bool   `json:"is_active"`
	PurchaseCount     *int    `json:"purchase_count"`
	ProductsCount     *int    `json:"products_count"`
	SoldProducts      *int    `json:"sold_products"`
	SameCityOrders    *int    `json:"same_city_orders"`
	VendorURL         *string `json:"vendor_url" gorm:"column:vendor_url"`
	CityName          *string `json:"city_name"`
	CityID            *uint   `json:"city_id" gorm:"index"`
	UserID            *uint   `json:"user_id"`
}

// TableName pins the table name shared with the reporting pipeline
func (VendorInformation) TableName() string {
	return "vendor_infos"
}
