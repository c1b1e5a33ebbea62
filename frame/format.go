// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frame

import (
	"fmt"
	"strings"
)

// PixelFormat is a capture pixel format tag as reported by the sensor.
// Values are FourCC codes so that tags from platform capture APIs can be
// passed through unchanged.
type PixelFormat uint32

// Pixel format tags.
const (
	// FormatBayerRGGB14 is 14-bit RGGB Bayer packed in 16-bit containers ('rgg4').
	FormatBayerRGGB14 PixelFormat = 0x72676734

	// FormatBayerGRBG14 is 14-bit GRBG Bayer packed in 16-bit containers ('grb4').
	FormatBayerGRBG14 PixelFormat = 0x67726234

	// FormatBayerGBRG14 is 14-bit GBRG Bayer packed in 16-bit containers ('gbr4').
	FormatBayerGBRG14 PixelFormat = 0x67627234

	// FormatBayerBGGR14 is 14-bit BGGR Bayer packed in 16-bit containers ('bgg4').
	FormatBayerBGGR14 PixelFormat = 0x62676734

	// FormatGray16 is 16-bit single channel data ('L016'). The mosaic phase
	// is not part of the tag and comes from [WithPattern] (default RGGB).
	FormatGray16 PixelFormat = 0x4C303136

	// FormatYCbCr420 is bi-planar 8-bit YCbCr ('420f'). Known but unsupported.
	FormatYCbCr420 PixelFormat = 0x34323066

	// FormatBGRA8 is packed 8-bit BGRA ('BGRA'). Known but unsupported.
	FormatBGRA8 PixelFormat = 0x42475241
)

// Supported reports whether the format is a single-channel mosaic format
// that Decode accepts.
func (f PixelFormat) Supported() bool {
	switch f {
	case FormatBayerRGGB14, FormatBayerGRBG14, FormatBayerGBRG14, FormatBayerBGGR14, FormatGray16:
		return true
	default:
		return false
	}
}

// BitDepth returns the number of significant bits per sample.
// Unsupported formats return 0.
func (f PixelFormat) BitDepth() int {
	switch f {
	case FormatBayerRGGB14, FormatBayerGRBG14, FormatBayerGBRG14, FormatBayerBGGR14:
		return 14
	case FormatGray16:
		return 16
	default:
		return 0
	}
}

// Pattern returns the mosaic phase encoded in the tag.
// The second result is false for tags that carry no phase.
func (f PixelFormat) Pattern() (Pattern, bool) {
	switch f {
	case FormatBayerRGGB14:
		return RGGB, true
	case FormatBayerGRBG14:
		return GRBG, true
	case FormatBayerGBRG14:
		return GBRG, true
	case FormatBayerBGGR14:
		return BGGR, true
	default:
		return RGGB, false
	}
}

// FourCC returns the four character code of the tag.
func (f PixelFormat) FourCC() string {
	return string([]byte{byte(f >> 24), byte(f >> 16), byte(f >> 8), byte(f)})
}

// String returns the FourCC of the tag, or a hex value for non-printable tags.
func (f PixelFormat) String() string {
	cc := f.FourCC()
	for i := 0; i < len(cc); i++ {
		if cc[i] < 0x20 || cc[i] > 0x7e {
			return fmt.Sprintf("PixelFormat(0x%08x)", uint32(f))
		}
	}
	return cc
}

// ParsePixelFormat parses a FourCC tag ("rgg4", "L016") or one of the
// aliases "bayer14" (RGGB) and "gray16".
func ParsePixelFormat(s string) (PixelFormat, error) {
	switch strings.ToLower(s) {
	case "bayer14", "bayer14-rggb":
		return FormatBayerRGGB14, nil
	case "bayer14-grbg":
		return FormatBayerGRBG14, nil
	case "bayer14-gbrg":
		return FormatBayerGBRG14, nil
	case "bayer14-bggr":
		return FormatBayerBGGR14, nil
	case "gray16":
		return FormatGray16, nil
	}
	if len(s) != 4 {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
	f := PixelFormat(uint32(s[0])<<24 | uint32(s[1])<<16 | uint32(s[2])<<8 | uint32(s[3]))
	return f, nil
}

// Channel identifies one of the three colour channels of a mosaic site.
type Channel uint8

// Colour channels.
const (
	Red Channel = iota
	Green
	Blue
)

// String returns the channel name.
func (c Channel) String() string {
	switch c {
	case Red:
		return "R"
	case Green:
		return "G"
	case Blue:
		return "B"
	default:
		return fmt.Sprintf("Channel(%d)", c)
	}
}

// Pattern is the phase of the repeating 2x2 Bayer tile, named by the
// colours of the top-left tile read in row-major order.
type Pattern uint8

// Bayer tile phases.
const (
	RGGB Pattern = iota
	BGGR
	GRBG
	GBRG
)

// tiles holds the 2x2 layout for each pattern, indexed by (y&1)*2 + (x&1).
var tiles = [...][4]Channel{
	RGGB: {Red, Green, Green, Blue},
	BGGR: {Blue, Green, Green, Red},
	GRBG: {Green, Red, Blue, Green},
	GBRG: {Green, Blue, Red, Green},
}

// Valid reports whether p is one of the four defined phases.
func (p Pattern) Valid() bool {
	return int(p) < len(tiles)
}

// ColorAt returns the channel recorded at mosaic position (x, y).
func (p Pattern) ColorAt(x, y int) Channel {
	return tiles[p][(y&1)*2+(x&1)]
}

// Offset returns the position of the red site within the 2x2 tile.
func (p Pattern) Offset() (x, y int) {
	for i, c := range tiles[p] {
		if c == Red {
			return i & 1, i >> 1
		}
	}
	return 0, 0
}

// String returns the pattern name.
func (p Pattern) String() string {
	switch p {
	case RGGB:
		return "RGGB"
	case BGGR:
		return "BGGR"
	case GRBG:
		return "GRBG"
	case GBRG:
		return "GBRG"
	default:
		return fmt.Sprintf("Pattern(%d)", p)
	}
}

// ParsePattern parses a pattern name, case-insensitively.
func ParsePattern(s string) (Pattern, error) {
	switch strings.ToUpper(s) {
	case "RGGB":
		return RGGB, nil
	case "BGGR":
		return BGGR, nil
	case "GRBG":
		return GRBG, nil
	case "GBRG":
		return GBRG, nil
	default:
		return 0, fmt.Errorf("frame: unknown mosaic pattern %q", s)
	}
}
