package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
)

// iconBytes renders the tray icon at runtime: a dashed capture frame with a
// red corner mark, wrapped as a PNG-compressed ICO so Windows accepts it.
func iconBytes() []byte {
	img := drawIcon(16)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return icoFromPNG(buf.Bytes(), 16)
}

func drawIcon(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	frame := color.RGBA{R: 0x00, G: 0x78, B: 0xd4, A: 0xff}
	mark := color.RGBA{R: 0xd4, G: 0x2c, B: 0x2c, A: 0xff}

	// Dashed rectangle inset by 2px.
	lo, hi := 2, size-3
	for i := lo; i <= hi; i++ {
		if (i/2)%2 == 0 {
			img.SetRGBA(i, lo, frame)
			img.SetRGBA(i, hi, frame)
			img.SetRGBA(lo, i, frame)
			img.SetRGBA(hi, i, frame)
		}
	}
	// Filled corner square marking the resize handle.
	for y := hi - 3; y <= hi; y++ {
		for x := hi - 3; x <= hi; x++ {
			img.SetRGBA(x, y, mark)
		}
	}
	return img
}

// icoFromPNG wraps PNG data in a single-entry ICO container. PNG payloads
// are valid in ICO since Vista.
func icoFromPNG(pngData []byte, size int) []byte {
	var buf bytes.Buffer

	// ICONDIR: reserved, type 1 (icon), count 1.
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))

	// ICONDIRENTRY.
	buf.WriteByte(byte(size)) // width
	buf.WriteByte(byte(size)) // height
	buf.WriteByte(0)          // palette colors
	buf.WriteByte(0)          // reserved
	binary.Write(&buf, binary.LittleEndian, uint16(1))             // planes
	binary.Write(&buf, binary.LittleEndian, uint16(32))            // bpp
	binary.Write(&buf, binary.LittleEndian, uint32(len(pngData)))  // data size
	binary.Write(&buf, binary.LittleEndian, uint32(6+16))          // data offset

	buf.Write(pngData)
	return buf.Bytes()
}
