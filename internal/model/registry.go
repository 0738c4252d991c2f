package model

// All returns every model managed by migrations, parents first
func All() []interface{} {
	return []interface{}{
		&Enumeration{},
		&Vendor{},
		&VendorInformation{},
		&Account{},
	}
}
