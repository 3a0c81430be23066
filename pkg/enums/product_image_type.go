package enums

import "fmt"

// ProductImageType distinguishes how a product image is displayed.
type ProductImageType string

const (
	ProductImageTypeGallery   ProductImageType = "gallery"
	ProductImageTypeThumbnail ProductImageType = "thumbnail"
	ProductImageTypeBanner    ProductImageType = "banner"
)

var validProductImageTypes = []ProductImageType{
	ProductImageTypeGallery,
	ProductImageTypeThumbnail,
	ProductImageTypeBanner,
}

// String returns the literal string for the image type.
func (p ProductImageType) String() string {
	return string(p)
}

// IsValid reports whether the image type is known.
func (p ProductImageType) IsValid() bool {
	for _, candidate := range validProductImageTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductImageType converts raw input into a ProductImageType.
func ParseProductImageType(value string) (ProductImageType, error) {
	for _, candidate := range validProductImageTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product image type %q", value)
}
