package enums

import "fmt"

// MediaResourceType mirrors the resource classification reported by the
// blob storage provider.
type MediaResourceType string

const (
	MediaResourceTypeImage    MediaResourceType = "image"
	MediaResourceTypeVideo    MediaResourceType = "video"
	MediaResourceTypeDocument MediaResourceType = "document"
	MediaResourceTypeAudio    MediaResourceType = "audio"
	MediaResourceTypeOther    MediaResourceType = "other"
)

var validMediaResourceTypes = []MediaResourceType{
	MediaResourceTypeImage,
	MediaResourceTypeVideo,
	MediaResourceTypeDocument,
	MediaResourceTypeAudio,
	MediaResourceTypeOther,
}

// String returns the literal string for the resource type.
func (m MediaResourceType) String() string {
	return string(m)
}

// IsValid reports whether the resource type is known.
func (m MediaResourceType) IsValid() bool {
	for _, candidate := range validMediaResourceTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMediaResourceType converts raw input into a MediaResourceType.
func ParseMediaResourceType(value string) (MediaResourceType, error) {
	for _, candidate := range validMediaResourceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media resource type %q", value)
}
