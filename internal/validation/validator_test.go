package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vendorPayload struct {
	VendorID    uint    `json:"vendor_identifier" validate:"required"`
	PersianName *string `json:"vendor_name_persian" validate:"omitempty,min=6,max=90"`
	EnglishName *string `json:"vendor_name_english" validate:"omitempty,min=3,max=120"`
	Phone       *string `json:"phone_number_of_owner" validate:"omitempty,ascii_digits,ir_mobile"`
}

func ptr(s string) *string { return &s }

func TestValidatePhone(t *testing.T) {
	v := New()
	valid := []string{"09123456789", "09000000000"}
	invalid := []string{
		"9123456789",
		"0912345678",
		"091234567890",
		"08123456789",
		"+989123456789",
		"۰۹۱۲۳۴۵۶۷۸۹", // Persian digits
		"٠٩١٢٣٤٥٦٧٨٩", // Arabic-Indic digits
		"0912345678a",
	}

	for _, p := range valid {
		assert.NoError(t, v.Validate(&vendorPayload{VendorID: 1, Phone: ptr(p)}), p)
	}
	for _, p := range invalid {
		assert.Error(t, v.Validate(&vendorPayload{VendorID: 1, Phone: ptr(p)}), p)
	}
}

func TestValidatePhoneMessages(t *testing.T) {
	v := New()

	err := v.Validate(&vendorPayload{VendorID: 1, Phone: ptr("۰۹۱۲۳۴۵۶۷۸۹")})
	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "phone_number_of_owner", verr.Field)
	assert.Equal(t, "ascii_digits", verr.Tag)
	assert.Contains(t, verr.Message, "(0-9)")

	err = v.Validate(&vendorPayload{VendorID: 1, Phone: ptr("08123456789")})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "ir_mobile", verr.Tag)
	assert.Contains(t, verr.Message, "09")
}

func TestValidateNameLengthsCountCharacters(t *testing.T) {
	v := New()

	// six Persian letters are twelve bytes but six characters
	assert.NoError(t, v.Validate(&vendorPayload{VendorID: 1, PersianName: ptr("فروشگا")}))

	err := v.Validate(&vendorPayload{VendorID: 1, PersianName: ptr("غرفه")})
	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "vendor_name_persian", verr.Field)
	assert.Equal(t, "min", verr.Tag)

	err = v.Validate(&vendorPayload{VendorID: 1, PersianName: ptr(strings.Repeat("ب", 91))})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "max", verr.Tag)

	err = v.Validate(&vendorPayload{VendorID: 1, EnglishName: ptr("ab")})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "vendor_name_english", verr.Field)

	assert.NoError(t, v.Validate(&vendorPayload{VendorID: 1, EnglishName: ptr(strings.Repeat("a", 120))}))
}

func TestValidateRequired(t *testing.T) {
	err := New().Validate(&vendorPayload{})

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "vendor_identifier is required", verr.Message)
}

func TestValidateValidPayload(t *testing.T) {
	assert.NoError(t, New().Validate(&vendorPayload{
		VendorID:    10,
		PersianName: ptr("غرفه تست"),
		EnglishName: ptr("test booth"),
		Phone:       ptr("09123456789"),
	}))
}
