package document

import (
	"encoding/base64"
	"strings"

	"github.com/Jahawk44/Sun-Research-Tree/internal/tree"
)

const defaultMediaType = "application/octet-stream"

// ParseDataURL decodes a base64 data URL of the form
// data:<mediatype>;base64,<payload>. Parameters other than base64 are
// ignored. Failures are INVALID_IMAGE errors.
func ParseDataURL(s string) (*tree.Image, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, tree.NewInvalidImage(0, "not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, tree.NewInvalidImage(0, "data URL has no payload")
	}

	params := strings.Split(meta, ";")
	mediaType := strings.TrimSpace(params[0])
	isBase64 := false
	for _, p := range params[1:] {
		if p == "base64" {
			isBase64 = true
		}
	}
	if !isBase64 {
		return nil, tree.NewInvalidImage(0, "data URL is not base64 encoded")
	}
	if mediaType == "" {
		mediaType = defaultMediaType
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, tree.NewInvalidImage(0, "bad base64 payload: %v", err)
	}
	return &tree.Image{MediaType: mediaType, Data: data}, nil
}

// FormatDataURL encodes img as a base64 data URL.
func FormatDataURL(img *tree.Image) string {
	mediaType := img.MediaType
	if mediaType == "" {
		mediaType = defaultMediaType
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
