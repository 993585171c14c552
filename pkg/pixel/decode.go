package pixel

import (
	"fmt"
	"image"
	"image/color"
	"sync"
)

// MaxDimension bounds the width and height accepted by Decode.
const MaxDimension = 1 << 15

// Block holds the 16 texels of one 4x4 block in row-major order.
type Block [16]color.NRGBA

// BlockDecoder decodes one encoded block into out.
type BlockDecoder func(src []byte, out *Block)

type decodeFunc func(dst *image.NRGBA, data []byte, info formatInfo)

var blockPool = sync.Pool{
	New: func() any { return new(Block) },
}

// Decode converts one mip's bytes into an NRGBA image. The payload length
// must equal ExpectedSize exactly; nothing is read past data.
func Decode(data []byte, width, height int, f Format) (*image.NRGBA, error) {
	info, ok := formats[f]
	if !ok {
		return nil, fmt.Errorf("format %d: %w", uint8(f), ErrUnknownPixelFormat)
	}
	if info.decoder == nil {
		return nil, fmt.Errorf("%s: %w", info.name, ErrUnsupportedPixelFormat)
	}
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return nil, fmt.Errorf("%s: dimensions %dx%d: %w", info.name, width, height, ErrSizeMismatch)
	}
	if want := ExpectedSize(f, width, height); len(data) != want {
		return nil, fmt.Errorf("%s %dx%d: expected %d bytes, got %d: %w", info.name, width, height, want, len(data), ErrSizeMismatch)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	info.decoder(img, data, info)
	return img, nil
}

// decodeBlocks adapts a pure block function into a tiling decoder.
func decodeBlocks(fn BlockDecoder) decodeFunc {
	return func(dst *image.NRGBA, data []byte, info formatInfo) {
		block := blockPool.Get().(*Block)
		defer blockPool.Put(block)

		width, height := dst.Rect.Dx(), dst.Rect.Dy()
		blocksWide := (width + 3) / 4
		blocksHigh := (height + 3) / 4

		offset := 0
		for by := 0; by < blocksHigh; by++ {
			for bx := 0; bx < blocksWide; bx++ {
				fn(data[offset:offset+info.bytesPerBlock], block)
				offset += info.bytesPerBlock
				PutBlock(dst, bx*4, by*4, block)
			}
		}
	}
}

// PutBlock writes block into dst with its top-left texel at (x, y),
// dropping texels that fall outside dst.
func PutBlock(dst *image.NRGBA, x, y int, block *Block) {
	b := dst.Rect
	for py := 0; py < 4; py++ {
		if y+py >= b.Max.Y {
			break
		}
		for px := 0; px < 4; px++ {
			if x+px >= b.Max.X {
				break
			}
			c := block[py*4+px]
			i := dst.PixOffset(x+px, y+py)
			dst.Pix[i+0] = c.R
			dst.Pix[i+1] = c.G
			dst.Pix[i+2] = c.B
			dst.Pix[i+3] = c.A
		}
	}
}

func decodeRGBA(dst *image.NRGBA, data []byte, _ formatInfo) {
	copy(dst.Pix, data)
}

func decodeBGRA(dst *image.NRGBA, data []byte, _ formatInfo) {
	for i := 0; i+3 < len(data); i += 4 {
		dst.Pix[i+0] = data[i+2]
		dst.Pix[i+1] = data[i+1]
		dst.Pix[i+2] = data[i+0]
		dst.Pix[i+3] = data[i+3]
	}
}

func decodeG8(dst *image.NRGBA, data []byte, _ formatInfo) {
	for i, v := range data {
		o := i * 4
		dst.Pix[o+0] = v
		dst.Pix[o+1] = v
		dst.Pix[o+2] = v
		dst.Pix[o+3] = 255
	}
}

func decodeA8(dst *image.NRGBA, data []byte, _ formatInfo) {
	for i, v := range data {
		o := i * 4
		dst.Pix[o+0] = 255
		dst.Pix[o+1] = 255
		dst.Pix[o+2] = 255
		dst.Pix[o+3] = v
	}
}
