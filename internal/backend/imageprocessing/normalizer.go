package imageprocessing

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"

	_ "image/gif"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultTargetEdge is the edge length images are scaled down to before
	// classification. Images already at or below it are left at full size.
	DefaultTargetEdge = 800

	// claheClipLimit bounds how far a tile histogram bin may exceed the
	// uniform level before the excess is redistributed. Keeps local contrast
	// equalization from amplifying noise in flat regions.
	claheClipLimit = 2.0
	// claheTileGrid is the number of tiles per axis.
	claheTileGrid = 8

	// denoiseLumaThreshold is the maximum luminance difference for a
	// neighbor to participate in smoothing. Larger differences are treated
	// as edges and preserved.
	denoiseLumaThreshold = 20
)

// Normalizer applies the fixed, deterministic enhancement pipeline images go
// through before classification: downscale, local contrast equalization on
// the luminance channel, edge-preserving denoise, JPEG re-encode.
//
// Normalization is strictly best-effort. A Normalizer never fails: input
// that cannot be decoded or re-encoded is returned unchanged, so enhancement
// problems can never block the identification pipeline.
type Normalizer struct {
	targetEdge int
}

func NewNormalizer(targetEdge int) *Normalizer {
	if targetEdge <= 0 {
		targetEdge = DefaultTargetEdge
	}
	return &Normalizer{targetEdge: targetEdge}
}

// Normalize enhances encoded image bytes for classification. The result is
// either a valid JPEG or, on any failure, the input bytes exactly as given.
func (n *Normalizer) Normalize(imageBytes []byte) []byte {
	img, format, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		slog.Debug("normalizer: skipping undecodable image", "error", err)
		return imageBytes
	}

	rgba := toRGBA(img)
	rgba = n.downscale(rgba)
	rgba = equalizeLocalContrast(rgba)
	rgba = denoise(rgba)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgba, &jpeg.Options{Quality: jpeg.DefaultQuality}); err != nil {
		slog.Debug("normalizer: failed to re-encode image", "error", err)
		return imageBytes
	}

	slog.Debug("normalizer: image normalized",
		"format", format,
		"input_size_bytes", len(imageBytes),
		"output_size_bytes", buf.Len(),
		"width", rgba.Bounds().Dx(),
		"height", rgba.Bounds().Dy())
	return buf.Bytes()
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), img, bounds.Min, xdraw.Src)
	return rgba
}

// downscale shrinks the image so the longer edge equals the target, only
// when it currently exceeds the target. Aspect ratio is preserved. The
// kernel resampler averages over source pixels, avoiding the aliasing a
// nearest-neighbor reduction would introduce.
func (n *Normalizer) downscale(img *image.RGBA) *image.RGBA {
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()

	longer := width
	if height > longer {
		longer = height
	}
	if longer <= n.targetEdge {
		return img
	}

	var newWidth, newHeight int
	if height > width {
		newHeight = n.targetEdge
		newWidth = width * n.targetEdge / height
	} else {
		newWidth = n.targetEdge
		newHeight = height * n.targetEdge / width
	}
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}

// equalizeLocalContrast applies contrast-limited adaptive histogram
// equalization to the luminance channel only, leaving chrominance untouched.
// The image is split into a fixed tile grid; each tile gets a clipped
// equalization mapping, and per-pixel mappings are bilinearly interpolated
// between the surrounding tiles to avoid visible tile seams.
func equalizeLocalContrast(img *image.RGBA) *image.RGBA {
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	if width == 0 || height == 0 {
		return img
	}

	// Split into luminance and chrominance planes.
	luma := make([]uint8, width*height)
	cb := make([]uint8, width*height)
	cr := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := img.PixOffset(x, y)
			yy, ccb, ccr := color.RGBToYCbCr(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
			luma[y*width+x] = yy
			cb[y*width+x] = ccb
			cr[y*width+x] = ccr
		}
	}

	luts := buildTileLUTs(luma, width, height)

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	tileWidth := (width + claheTileGrid - 1) / claheTileGrid
	tileHeight := (height + claheTileGrid - 1) / claheTileGrid
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			mapped := interpolateLUT(luts, luma[y*width+x], x, y, tileWidth, tileHeight)
			r, g, b := color.YCbCrToRGB(mapped, cb[y*width+x], cr[y*width+x])
			i := out.PixOffset(x, y)
			out.Pix[i] = r
			out.Pix[i+1] = g
			out.Pix[i+2] = b
			out.Pix[i+3] = img.Pix[img.PixOffset(x, y)+3]
		}
	}
	return out
}

// buildTileLUTs computes one clipped equalization lookup table per tile.
func buildTileLUTs(luma []uint8, width, height int) [][256]uint8 {
	tileWidth := (width + claheTileGrid - 1) / claheTileGrid
	tileHeight := (height + claheTileGrid - 1) / claheTileGrid

	luts := make([][256]uint8, claheTileGrid*claheTileGrid)
	for ty := 0; ty < claheTileGrid; ty++ {
		for tx := 0; tx < claheTileGrid; tx++ {
			x0 := tx * tileWidth
			y0 := ty * tileHeight
			x1 := min(x0+tileWidth, width)
			y1 := min(y0+tileHeight, height)
			if x0 >= width || y0 >= height {
				// Degenerate tile on tiny images: identity mapping.
				for v := 0; v < 256; v++ {
					luts[ty*claheTileGrid+tx][v] = uint8(v)
				}
				continue
			}

			var hist [256]int
			count := 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					hist[luma[y*width+x]]++
					count++
				}
			}
			luts[ty*claheTileGrid+tx] = buildClippedLUT(hist, count)
		}
	}
	return luts
}

// buildClippedLUT turns a tile histogram into an equalization mapping with
// the histogram clipped at claheClipLimit times the uniform bin level and
// the excess redistributed evenly across all bins.
func buildClippedLUT(hist [256]int, count int) [256]uint8 {
	var lut [256]uint8
	if count == 0 {
		for v := 0; v < 256; v++ {
			lut[v] = uint8(v)
		}
		return lut
	}

	clip := int(claheClipLimit * float64(count) / 256.0)
	if clip < 1 {
		clip = 1
	}

	excess := 0
	for v := 0; v < 256; v++ {
		if hist[v] > clip {
			excess += hist[v] - clip
			hist[v] = clip
		}
	}
	share := excess / 256
	remainder := excess % 256
	for v := 0; v < 256; v++ {
		hist[v] += share
		if v < remainder {
			hist[v]++
		}
	}

	cdf := 0
	for v := 0; v < 256; v++ {
		cdf += hist[v]
		lut[v] = uint8((cdf*255 + count/2) / count)
	}
	return lut
}

// interpolateLUT maps a luminance value through the LUTs of the four tiles
// surrounding the pixel, blended bilinearly by the pixel's distance to the
// tile centers.
func interpolateLUT(luts [][256]uint8, value uint8, x, y, tileWidth, tileHeight int) uint8 {
	fx := (float64(x) - float64(tileWidth)/2) / float64(tileWidth)
	fy := (float64(y) - float64(tileHeight)/2) / float64(tileHeight)

	tx0 := int(fx)
	ty0 := int(fy)
	if fx < 0 {
		tx0 = -1
	}
	if fy < 0 {
		ty0 = -1
	}
	wx := fx - float64(tx0)
	wy := fy - float64(ty0)

	clampTile := func(t int) int {
		if t < 0 {
			return 0
		}
		if t >= claheTileGrid {
			return claheTileGrid - 1
		}
		return t
	}
	lookup := func(tx, ty int) float64 {
		return float64(luts[clampTile(ty)*claheTileGrid+clampTile(tx)][value])
	}

	top := lookup(tx0, ty0)*(1-wx) + lookup(tx0+1, ty0)*wx
	bottom := lookup(tx0, ty0+1)*(1-wx) + lookup(tx0+1, ty0+1)*wx
	mapped := top*(1-wy) + bottom*wy

	if mapped < 0 {
		mapped = 0
	}
	if mapped > 255 {
		mapped = 255
	}
	return uint8(mapped + 0.5)
}

// denoise runs a single edge-preserving smoothing pass: each pixel is
// averaged with the 3x3 neighbors whose luminance is close to its own.
// Neighbors across a strong luminance step are excluded, so edges stay sharp
// while flat-region noise is averaged out.
func denoise(img *image.RGBA) *image.RGBA {
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	out := image.NewRGBA(image.Rect(0, 0, width, height))

	lumaAt := func(x, y int) int {
		i := img.PixOffset(x, y)
		yy, _, _ := color.RGBToYCbCr(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
		return int(yy)
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			center := lumaAt(x, y)
			var sumR, sumG, sumB, samples int
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= width || ny >= height {
						continue
					}
					delta := lumaAt(nx, ny) - center
					if delta < -denoiseLumaThreshold || delta > denoiseLumaThreshold {
						continue
					}
					i := img.PixOffset(nx, ny)
					sumR += int(img.Pix[i])
					sumG += int(img.Pix[i+1])
					sumB += int(img.Pix[i+2])
					samples++
				}
			}
			i := out.PixOffset(x, y)
			out.Pix[i] = uint8((sumR + samples/2) / samples)
			out.Pix[i+1] = uint8((sumG + samples/2) / samples)
			out.Pix[i+2] = uint8((sumB + samples/2) / samples)
			out.Pix[i+3] = img.Pix[img.PixOffset(x, y)+3]
		}
	}
	return out
}
