package pixel

import (
	"encoding/binary"
	"image/color"
	"math"
)

// rgb565 expands a packed 5:6:5 colour by bit replication.
func rgb565(c uint16) (r, g, b int) {
	r5 := int(c>>11) & 0x1f
	g6 := int(c>>5) & 0x3f
	b5 := int(c) & 0x1f
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}

// colorPalette builds the 4-entry ramp of a BC1-style colour block.
// threeColor enables the c0 <= c1 punch-through mode used only by BC1.
func colorPalette(c0, c1 uint16, threeColor bool) [4]color.NRGBA {
	r0, g0, b0 := rgb565(c0)
	r1, g1, b1 := rgb565(c1)

	var p [4]color.NRGBA
	p[0] = color.NRGBA{uint8(r0), uint8(g0), uint8(b0), 255}
	p[1] = color.NRGBA{uint8(r1), uint8(g1), uint8(b1), 255}
	if c0 > c1 || !threeColor {
		p[2] = color.NRGBA{uint8((2*r0 + r1) / 3), uint8((2*g0 + g1) / 3), uint8((2*b0 + b1) / 3), 255}
		p[3] = color.NRGBA{uint8((r0 + 2*r1) / 3), uint8((g0 + 2*g1) / 3), uint8((b0 + 2*b1) / 3), 255}
	} else {
		p[2] = color.NRGBA{uint8((r0 + r1) / 2), uint8((g0 + g1) / 2), uint8((b0 + b1) / 2), 255}
		p[3] = color.NRGBA{}
	}
	return p
}

func decodeColorBlock(src []byte, out *Block, threeColor bool) {
	c0 := binary.LittleEndian.Uint16(src[0:2])
	c1 := binary.LittleEndian.Uint16(src[2:4])
	indices := binary.LittleEndian.Uint32(src[4:8])

	palette := colorPalette(c0, c1, threeColor)
	for i := range out {
		out[i] = palette[(indices>>(2*i))&3]
	}
}

// alphaRamp builds the 8-entry ramp of a BC4-style channel block.
func alphaRamp(a0, a1 uint8) [8]uint8 {
	var r [8]uint8
	r[0], r[1] = a0, a1
	x0, x1 := int(a0), int(a1)
	if a0 > a1 {
		for i := 2; i < 8; i++ {
			r[i] = uint8((x0*(8-i) + x1*(i-1)) / 7)
		}
	} else {
		for i := 2; i < 6; i++ {
			r[i] = uint8((x0*(6-i) + x1*(i-1)) / 5)
		}
		r[6] = 0
		r[7] = 255
	}
	return r
}

// channelBlock decodes the 8-byte ramp block shared by BC3 alpha, BC4
// and BC5 into 16 channel values.
func channelBlock(src []byte) [16]uint8 {
	ramp := alphaRamp(src[0], src[1])
	var bits uint64
	for i := 0; i < 6; i++ {
		bits |= uint64(src[2+i]) << (8 * i)
	}
	var v [16]uint8
	for i := range v {
		v[i] = ramp[(bits>>(3*i))&7]
	}
	return v
}

// DecodeBC1Block decodes an 8-byte BC1 (DXT1) block.
func DecodeBC1Block(src []byte, out *Block) {
	decodeColorBlock(src[:8], out, true)
}

// DecodeBC2Block decodes a 16-byte BC2 (DXT3) block: explicit 4-bit
// alpha followed by a colour block.
func DecodeBC2Block(src []byte, out *Block) {
	decodeColorBlock(src[8:16], out, false)
	alpha := binary.LittleEndian.Uint64(src[0:8])
	for i := range out {
		out[i].A = uint8((alpha>>(4*i))&0xf) * 17
	}
}

// DecodeBC3Block decodes a 16-byte BC3 (DXT5) block: a ramp alpha block
// followed by a colour block.
func DecodeBC3Block(src []byte, out *Block) {
	decodeColorBlock(src[8:16], out, false)
	alpha := channelBlock(src[0:8])
	for i := range out {
		out[i].A = alpha[i]
	}
}

// DecodeBC4Block decodes an 8-byte BC4 block as opaque grey.
func DecodeBC4Block(src []byte, out *Block) {
	v := channelBlock(src[:8])
	for i := range out {
		out[i] = color.NRGBA{v[i], v[i], v[i], 255}
	}
}

// DecodeBC5Block decodes a 16-byte BC5 block into red and green, with
// blue reconstructed as the Z of a unit normal.
func DecodeBC5Block(src []byte, out *Block) {
	r := channelBlock(src[0:8])
	g := channelBlock(src[8:16])
	for i := range out {
		out[i] = color.NRGBA{r[i], g[i], normalZ(r[i], g[i]), 255}
	}
}

func normalZ(r, g uint8) uint8 {
	x := float64(r)/127.5 - 1
	y := float64(g)/127.5 - 1
	z := math.Sqrt(math.Max(0, 1-x*x-y*y))
	return uint8(math.Min(255, math.Round(127.5+127.5*z)))
}
