package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type ImageKind string

const (
	ImageEmoji  ImageKind = "emoji"
	ImageBitmap ImageKind = "bitmap"
)

// Image is either an emoji glyph or an encoded bitmap. The zero value means
// "no image" and encodes as JSON null.
type Image struct {
	Kind     ImageKind
	Emoji    string
	Data     []byte
	MIMEType string
}

func EmojiImage(glyph string) Image {
	return Image{Kind: ImageEmoji, Emoji: glyph}
}

func BitmapImage(data []byte, mimeType string) Image {
	return Image{Kind: ImageBitmap, Data: bytes.Clone(data), MIMEType: mimeType}
}

func (i Image) IsZero() bool {
	return i.Kind == ""
}

func (i Image) Clone() Image {
	out := i
	out.Data = bytes.Clone(i.Data)
	return out
}

type imageJSON struct {
	Kind     ImageKind `json:"kind"`
	Emoji    string    `json:"emoji,omitempty"`
	MIMEType string    `json:"mimeType,omitempty"`
	Data     []byte    `json:"data,omitempty"`
}

func (i Image) MarshalJSON() ([]byte, error) {
	switch i.Kind {
	case "":
		return []byte("null"), nil
	case ImageEmoji:
		return json.Marshal(imageJSON{Kind: ImageEmoji, Emoji: i.Emoji})
	case ImageBitmap:
		return json.Marshal(imageJSON{Kind: ImageBitmap, MIMEType: i.MIMEType, Data: i.Data})
	default:
		return nil, fmt.Errorf("unknown image kind %q", i.Kind)
	}
}

// UnmarshalJSON also accepts a bare string, which older exports used for the
// emoji fallback.
func (i *Image) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*i = Image{}
		return nil
	}
	if trimmed[0] == '"' {
		var glyph string
		if err := json.Unmarshal(trimmed, &glyph); err != nil {
			return err
		}
		if glyph == "" {
			*i = Image{}
			return nil
		}
		*i = EmojiImage(glyph)
		return nil
	}

	var raw imageJSON
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case ImageEmoji:
		*i = EmojiImage(raw.Emoji)
	case ImageBitmap:
		if len(raw.Data) == 0 {
			return fmt.Errorf("bitmap image without data")
		}
		*i = Image{Kind: ImageBitmap, Data: raw.Data, MIMEType: raw.MIMEType}
	default:
		return fmt.Errorf("unknown image kind %q", raw.Kind)
	}
	return nil
}
