package session

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/Jahawk44/Sun-Research-Tree/internal/tree"
)

// Decoder reports the pixel dimensions of an image. Decode runs on its own
// goroutine and should return early once ctx is done.
type Decoder interface {
	Decode(ctx context.Context, img *tree.Image) (width, height int, err error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(ctx context.Context, img *tree.Image) (int, int, error)

// Decode calls f.
func (f DecoderFunc) Decode(ctx context.Context, img *tree.Image) (int, int, error) {
	return f(ctx, img)
}

// ConfigDecoder reads only the image header through image.DecodeConfig.
// PNG, JPEG and GIF are registered.
type ConfigDecoder struct{}

// Decode implements Decoder.
func (ConfigDecoder) Decode(ctx context.Context, img *tree.Image) (int, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return 0, 0, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, errEmptyImage
	}
	return cfg.Width, cfg.Height, nil
}
