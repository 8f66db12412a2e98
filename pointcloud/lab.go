package pointcloud

import (
	"image/color"

	"github.com/golang/geo/r3"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color normalization for feature extraction. Appearance features compare
// colors by Euclidean distance, which sRGB distances approximate poorly, so
// point colors are mapped to CIE-Lab and repacked into the 8-bit channels
// before any features are computed: R carries L, G carries a, B carries b.

// ToLab returns the CIE-Lab encoding of an sRGB color, packed into 8-bit
// channels.
func ToLab(c color.NRGBA) color.NRGBA {
	fc := colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
	l, a, b := fc.Lab()
	return color.NRGBA{
		R: clampByte(l * 255.0),
		G: clampByte(a*255.0 + 128.0),
		B: clampByte(b*255.0 + 128.0),
		A: 255,
	}
}

// NormalizeLab returns a copy of the cloud with every point color replaced
// by its packed Lab encoding. Uncolored points are copied unchanged.
func NormalizeLab(cloud PointCloud) PointCloud {
	out := NewWithPrealloc(cloud.Size())
	cloud.Iterate(func(i int, p r3.Vector, d Data) bool {
		if d == nil || !d.HasColor() {
			out.Append(p, d)
			return true
		}
		r, g, b := d.RGB255()
		out.Append(p, NewColoredData(ToLab(color.NRGBA{R: r, G: g, B: b, A: 255})))
		return true
	})
	return out
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
