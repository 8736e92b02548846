package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	_ "image/gif"
	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ---------------------------------------------------------------------------
// Watermark compositing
// Overlays a caption with a stroked outline onto a generated image before it
// is offered for download. The output always preserves the source pixel
// dimensions; caption size and placement scale with image width.
// ---------------------------------------------------------------------------

const watermarkBaseFontPx = 13 // native height of the bitmap face

// Watermark decodes imgBytes, draws caption near the top-left corner with a
// dark outline for legibility, and re-encodes to PNG.
func Watermark(imgBytes []byte, caption string) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image for watermarking: %w", err)
	}

	bounds := src.Bounds()
	canvas := image.NewRGBA(bounds)
	xdraw.Draw(canvas, bounds, src, bounds.Min, xdraw.Src)

	// Caption size follows image width, never below the face's native size
	fontSize := bounds.Dx() / 50
	if fontSize < watermarkBaseFontPx {
		fontSize = watermarkBaseFontPx
	}

	label := renderCaption(caption)

	// Scale the rendered caption up to the target size and place it with a
	// half-glyph margin, mirroring the original canvas layout
	scale := float64(fontSize) / float64(watermarkBaseFontPx)
	dstW := int(float64(label.Bounds().Dx()) * scale)
	dstH := int(float64(label.Bounds().Dy()) * scale)
	x := fontSize / 2
	y := fontSize / 2
	target := image.Rect(x, y, x+dstW, y+dstH).Add(bounds.Min)

	xdraw.NearestNeighbor.Scale(canvas, target, label, label.Bounds(), xdraw.Over, nil)

	var out bytes.Buffer
	if err := png.Encode(&out, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode watermarked image: %w", err)
	}
	return out.Bytes(), nil
}

// renderCaption draws the caption at native face size onto a transparent
// layer: a black outline pass at each neighboring offset, then a white fill.
func renderCaption(caption string) *image.RGBA {
	face := basicfont.Face7x13
	width := font.MeasureString(face, caption).Ceil()
	height := face.Metrics().Height.Ceil()
	ascent := face.Metrics().Ascent.Ceil()

	// One pixel of padding on every side for the outline
	layer := image.NewRGBA(image.Rect(0, 0, width+2, height+2))

	outline := color.RGBA{0, 0, 0, 204}
	fill := color.RGBA{255, 255, 255, 255}

	drawer := font.Drawer{Dst: layer, Face: face}

	drawer.Src = image.NewUniform(outline)
	for _, off := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		drawer.Dot = fixed.P(1+off[0], 1+ascent+off[1])
		drawer.DrawString(caption)
	}

	drawer.Src = image.NewUniform(fill)
	drawer.Dot = fixed.P(1, 1+ascent)
	drawer.DrawString(caption)

	return layer
}
