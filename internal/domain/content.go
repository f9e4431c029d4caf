package domain

import "encoding/json"

// ContentType represents the kind of a content part.
type ContentType string

const (
	ContentTypeText     ContentType = "text"
	ContentTypeImage    ContentType = "image"
	ContentTypeImageURL ContentType = "image_url"
)

// ContentPart is a single part of multimodal message content.
type ContentPart struct {
	Type ContentType `json:"type"`

	// For text content
	Text string `json:"text,omitempty"`

	// For image content (base64, Anthropic style)
	Source *ImageSource `json:"source,omitempty"`

	// For image_url content (data-URL form, OpenAI style)
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// Clone returns a deep copy of the part.
func (p ContentPart) Clone() ContentPart {
	out := p
	if p.Source != nil {
		src := *p.Source
		out.Source = &src
	}
	if p.ImageURL != nil {
		u := *p.ImageURL
		out.ImageURL = &u
	}
	return out
}

// ImageSource represents base64-encoded image data (Anthropic style).
type ImageSource struct {
	Type      string `json:"type"` // "base64"
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// ImageURL references an image by URL, typically a base64 data URL.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// MessageContent is either a plain string or an ordered list of parts.
// The JSON form matches what chat APIs accept: a bare string or an array.
type MessageContent struct {
	Text  string
	Parts []ContentPart
}

// IsSimpleText returns true when the content is a bare string.
func (mc MessageContent) IsSimpleText() bool {
	return len(mc.Parts) == 0
}

// String concatenates all text content.
func (mc MessageContent) String() string {
	if mc.IsSimpleText() {
		return mc.Text
	}
	var result string
	for _, part := range mc.Parts {
		if part.Type == ContentTypeText {
			result += part.Text
		}
	}
	return result
}

// Clone returns a deep copy of the content.
func (mc MessageContent) Clone() MessageContent {
	if mc.IsSimpleText() {
		return MessageContent{Text: mc.Text}
	}
	parts := make([]ContentPart, len(mc.Parts))
	for i, p := range mc.Parts {
		parts[i] = p.Clone()
	}
	return MessageContent{Parts: parts}
}

// MarshalJSON implements json.Marshaler.
func (mc MessageContent) MarshalJSON() ([]byte, error) {
	if mc.IsSimpleText() {
		return json.Marshal(mc.Text)
	}
	return json.Marshal(mc.Parts)
}

// UnmarshalJSON implements json.Unmarshaler.
func (mc *MessageContent) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		mc.Text = str
		mc.Parts = nil
		return nil
	}

	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	mc.Parts = parts
	mc.Text = ""
	return nil
}

// TextContent creates simple text content.
func TextContent(text string) MessageContent {
	return MessageContent{Text: text}
}

// PartsContent creates multimodal content from parts.
func PartsContent(parts ...ContentPart) MessageContent {
	return MessageContent{Parts: parts}
}

// TextPart creates a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: ContentTypeText, Text: text}
}

// ImagePart creates a base64 image content part.
func ImagePart(mediaType, data string) ContentPart {
	return ContentPart{
		Type: ContentTypeImage,
		Source: &ImageSource{
			Type:      "base64",
			MediaType: mediaType,
			Data:      data,
		},
	}
}

// ImageURLPart creates an image_url content part.
func ImageURLPart(url string) ContentPart {
	return ContentPart{
		Type:     ContentTypeImageURL,
		ImageURL: &ImageURL{URL: url},
	}
}
