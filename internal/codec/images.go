// Package codec translates canonical conversations into provider wire
// shapes, including image-encoding translation.
package codec

import (
	"fmt"
	"strings"
)

// ImageEncoder splits a base64 data URL into its media type and payload.
// The default implementation parses the URL in place; callers can swap in
// a collaborator that also resizes or re-compresses to fit provider
// payload ceilings.
type ImageEncoder func(dataURL string) (mediaType, data string, err error)

// EncodeDataURL is the default ImageEncoder. It accepts URLs of the form
// data:image/png;base64,iVBOR... and returns the normalized media type and
// the raw base64 payload.
func EncodeDataURL(dataURL string) (string, string, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return "", "", fmt.Errorf("not a data URL")
	}

	content := dataURL[5:]

	commaIdx := strings.Index(content, ",")
	if commaIdx == -1 {
		return "", "", fmt.Errorf("invalid data URL: missing comma separator")
	}

	metadata := content[:commaIdx]
	data := content[commaIdx+1:]

	parts := strings.Split(metadata, ";")
	mediaType := parts[0]
	if mediaType == "" {
		return "", "", fmt.Errorf("invalid data URL: missing media type")
	}
	if !isSupportedMediaType(mediaType) {
		return "", "", fmt.Errorf("unsupported media type: %s", mediaType)
	}

	isBase64 := false
	for _, part := range parts[1:] {
		if part == "base64" {
			isBase64 = true
			break
		}
	}
	if !isBase64 {
		return "", "", fmt.Errorf("data URL must be base64 encoded")
	}

	return normalizeMediaType(mediaType), data, nil
}

func isSupportedMediaType(mediaType string) bool {
	mainType := strings.Split(mediaType, ";")[0]
	mainType = strings.TrimSpace(strings.ToLower(mainType))

	switch mainType {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeMediaType(mediaType string) string {
	mainType := strings.Split(mediaType, ";")[0]
	mainType = strings.TrimSpace(strings.ToLower(mainType))

	if mainType == "image/jpg" {
		return "image/jpeg"
	}
	return mainType
}
