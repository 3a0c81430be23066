package enums

import "fmt"

// MediaRefType names the kind of catalog entity a media asset is attached to.
type MediaRefType string

const (
	MediaRefTypeCategory     MediaRefType = "category"
	MediaRefTypeBrand        MediaRefType = "brand"
	MediaRefTypeProductImage MediaRefType = "product_image"
)

var validMediaRefTypes = []MediaRefType{
	MediaRefTypeCategory,
	MediaRefTypeBrand,
	MediaRefTypeProductImage,
}

// String returns the literal string for the ref type.
func (m MediaRefType) String() string {
	return string(m)
}

// IsValid reports whether the ref type is known.
func (m MediaRefType) IsValid() bool {
	for _, candidate := range validMediaRefTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMediaRefType converts raw input into a MediaRefType.
func ParseMediaRefType(value string) (MediaRefType, error) {
	for _, candidate := range validMediaRefTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media ref type %q", value)
}
