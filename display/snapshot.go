package display

import (
	"image"
	"image/png"
	"io"

	"golang.org/x/image/draw"
)

const SnapshotScale = 20

// Snapshot renders the cells as an image, each pixel scaled to a square
// block of side scale.
func Snapshot(cells [Size]Color, scale int) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	src := image.NewRGBA(image.Rect(0, 0, Width, Height))
	for i, c := range cells {
		x, y, _ := Coord(i)
		src.SetRGBA(x, y, c.Display())
	}
	dst := image.NewRGBA(image.Rect(0, 0, Width*scale, Height*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

func WritePNG(w io.Writer, cells [Size]Color, scale int) error {
	return png.Encode(w, Snapshot(cells, scale))
}
