package v4l2

import "fmt"

// FourCC packs four characters into a little-endian pixel format code.
func FourCC(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// Pixel formats.
var (
	PixFmtYUYV  = FourCC('Y', 'U', 'Y', 'V')
	PixFmtUYVY  = FourCC('U', 'Y', 'V', 'Y')
	PixFmtYV12  = FourCC('Y', 'V', '1', '2')
	PixFmtYU12  = FourCC('Y', 'U', '1', '2')
	PixFmtNV12  = FourCC('N', 'V', '1', '2')
	PixFmtNV21  = FourCC('N', 'V', '2', '1')
	PixFmtRGB24 = FourCC('R', 'G', 'B', '3')
	PixFmtMJPEG = FourCC('M', 'J', 'P', 'G')
	PixFmtJPEG  = FourCC('J', 'P', 'E', 'G')
	PixFmtH264  = FourCC('H', '2', '6', '4')
	PixFmtAVC1  = FourCC('A', 'V', 'C', '1')
	PixFmtHEVC  = FourCC('H', 'E', 'V', 'C')
	PixFmtMPEG2 = FourCC('M', 'P', 'G', '2')
	PixFmtVP8   = FourCC('V', 'P', '8', '0')
)

// FormatFourCC converts a 4-byte pixel format to a human-readable string.
func FormatFourCC(format uint32) string {
	b := make([]byte, 4)
	b[0] = byte(format & 0xFF)
	b[1] = byte((format >> 8) & 0xFF)
	b[2] = byte((format >> 16) & 0xFF)
	b[3] = byte((format >> 24) & 0xFF)
	return string(b)
}

// ParseFourCC parses a pixel format name such as "YUYV". Names shorter than
// four characters are padded with spaces, as the kernel does for "GREY"-style
// codes like "Y8  ".
func ParseFourCC(s string) (uint32, error) {
	if len(s) == 0 || len(s) > 4 {
		return 0, fmt.Errorf("invalid fourcc %q: want 1 to 4 characters", s)
	}
	var b [4]byte
	for i := range b {
		b[i] = ' '
		if i < len(s) {
			b[i] = s[i]
		}
	}
	return FourCC(b[0], b[1], b[2], b[3]), nil
}
