package pixel

import (
	"encoding/binary"
	"image"
	"math"
)

// Small unsigned floats share the half-float exponent bias; exponent 31
// (infinity or NaN) saturates.
func smallFloat(u uint32, mantissaBits uint) float64 {
	exponent := int(u >> mantissaBits & 0x1F)
	mantissa := float64(u & (1<<mantissaBits - 1))
	scale := float64(uint32(1) << mantissaBits)
	switch exponent {
	case 0:
		return math.Ldexp(mantissa/scale, -14)
	case 31:
		return math.MaxFloat32
	default:
		return math.Ldexp(1+mantissa/scale, exponent-15)
	}
}

func halfFloat(h uint16) float64 {
	v := smallFloat(uint32(h&0x7FFF), 10)
	if h&0x8000 != 0 {
		return -v
	}
	return v
}

// unorm8 clamps v to [0, 1] and scales it to a byte.
func unorm8(v float64) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// decodeR11G11B10 unpacks 32-bit texels holding an 11-bit red, 11-bit
// green and 10-bit blue unsigned float.
func decodeR11G11B10(dst *image.NRGBA, data []byte, _ formatInfo) {
	for i := 0; i+3 < len(data); i += 4 {
		packed := binary.LittleEndian.Uint32(data[i:])
		dst.Pix[i+0] = unorm8(smallFloat(packed&0x7FF, 6))
		dst.Pix[i+1] = unorm8(smallFloat(packed>>11&0x7FF, 6))
		dst.Pix[i+2] = unorm8(smallFloat(packed>>22&0x3FF, 5))
		dst.Pix[i+3] = 255
	}
}

// decodeFloatRGBA converts four half floats per texel.
func decodeFloatRGBA(dst *image.NRGBA, data []byte, _ formatInfo) {
	for i, o := 0, 0; i+7 < len(data); i, o = i+8, o+4 {
		for c := 0; c < 4; c++ {
			dst.Pix[o+c] = unorm8(halfFloat(binary.LittleEndian.Uint16(data[i+c*2:])))
		}
	}
}
