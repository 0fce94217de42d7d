// preprocess.go - Image preprocessing for better OCR accuracy

package processor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
)

const (
	// CLAHE parameters: 8x8 tile grid with a 2.0 clip limit, same as the
	// tuning the receipt corpus was calibrated against.
	claheTileGrid  = 8
	claheClipLimit = 2.0

	// Skew below this many degrees is left alone; rotating an already
	// straight image only smears the glyph edges.
	skewToleranceDeg = 0.5
)

// Preprocessor turns a raw photo into a binarized, deskewed, single-channel
// image tuned for OCR. It is a pure transform over pixel data.
type Preprocessor struct {
	maxDimension int
	enabled      bool
}

// NewPreprocessor creates a preprocessor. maxDimension caps the longest side
// before any pixel work happens. When enabled is false only decoding, channel
// selection and the resize cap are applied.
func NewPreprocessor(maxDimension int, enabled bool) *Preprocessor {
	if maxDimension <= 0 {
		maxDimension = 2000
	}
	return &Preprocessor{maxDimension: maxDimension, enabled: enabled}
}

// Preprocess runs the full pipeline: decode, resize cap, green-channel
// extraction, CLAHE, denoise, Otsu binarization, deskew.
//
// A nil return means the image could not be decoded. That is a valid "no
// data" outcome, not an error: downstream stages treat it as empty OCR input.
func (p *Preprocessor) Preprocess(data []byte) *image.Gray {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width > p.maxDimension || height > p.maxDimension {
		if width > height {
			img = imaging.Resize(img, p.maxDimension, 0, imaging.Lanczos)
		} else {
			img = imaging.Resize(img, 0, p.maxDimension, imaging.Lanczos)
		}
	}

	// The green channel is a cheap luminance proxy that tends to carry the
	// most contrast on printed thermal receipts.
	gray := greenChannel(img)
	if !p.enabled {
		return gray
	}

	gray = equalizeCLAHE(gray, claheTileGrid, claheClipLimit)
	gray = denoise(gray)
	gray = binarize(gray, otsuThreshold(gray))
	gray = deskew(gray)

	return gray
}

// EncodePNG serializes a preprocessed image for engines that consume bytes.
func EncodePNG(img *image.Gray) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// greenChannel extracts the green channel as a grayscale image.
func greenChannel(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, g, _, _ := img.At(x, y).RGBA()
			gray.SetGray(x-bounds.Min.X, y-bounds.Min.Y, color.Gray{Y: uint8(g >> 8)})
		}
	}
	return gray
}

// equalizeCLAHE applies contrast-limited adaptive histogram equalization.
// The image is divided into a tiles x tiles grid; each tile gets a clipped,
// redistributed histogram mapped to a lookup table, and every pixel is
// remapped by bilinear interpolation between the four nearest tile tables.
func equalizeCLAHE(src *image.Gray, tiles int, clipLimit float64) *image.Gray {
	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width < tiles || height < tiles {
		return src
	}

	tileW := (width + tiles - 1) / tiles
	tileH := (height + tiles - 1) / tiles

	// Per-tile lookup tables.
	luts := make([][256]uint8, tiles*tiles)
	for ty := 0; ty < tiles; ty++ {
		for tx := 0; tx < tiles; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := min(x0+tileW, width), min(y0+tileH, height)

			var hist [256]int
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					hist[src.GrayAt(x, y).Y]++
				}
			}

			pixels := (x1 - x0) * (y1 - y0)
			clip := int(clipLimit * float64(pixels) / 256.0)
			if clip < 1 {
				clip = 1
			}

			// Clip the histogram and spread the excess uniformly.
			excess := 0
			for i := 0; i < 256; i++ {
				if hist[i] > clip {
					excess += hist[i] - clip
					hist[i] = clip
				}
			}
			share := excess / 256
			rem := excess % 256
			for i := 0; i < 256; i++ {
				hist[i] += share
				if i < rem {
					hist[i]++
				}
			}

			// CDF to lookup table.
			lut := &luts[ty*tiles+tx]
			cdf := 0
			for i := 0; i < 256; i++ {
				cdf += hist[i]
				lut[i] = uint8(math.Round(float64(cdf) * 255.0 / float64(pixels)))
			}
		}
	}

	// Remap with bilinear interpolation between tile centers.
	dst := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		fy := (float64(y)-float64(tileH)/2.0 + 0.5) / float64(tileH)
		ty0 := int(math.Floor(fy))
		wy := fy - float64(ty0)
		ty1 := ty0 + 1
		ty0 = clampInt(ty0, 0, tiles-1)
		ty1 = clampInt(ty1, 0, tiles-1)

		for x := 0; x < width; x++ {
			fx := (float64(x)-float64(tileW)/2.0 + 0.5) / float64(tileW)
			tx0 := int(math.Floor(fx))
			wx := fx - float64(tx0)
			tx1 := tx0 + 1
			tx0 = clampInt(tx0, 0, tiles-1)
			tx1 = clampInt(tx1, 0, tiles-1)

			v := src.GrayAt(x, y).Y
			top := (1-wx)*float64(luts[ty0*tiles+tx0][v]) + wx*float64(luts[ty0*tiles+tx1][v])
			bot := (1-wx)*float64(luts[ty1*tiles+tx0][v]) + wx*float64(luts[ty1*tiles+tx1][v])
			dst.SetGray(x, y, color.Gray{Y: uint8(math.Round((1-wy)*top + wy*bot))})
		}
	}
	return dst
}

// denoise applies a light Gaussian blur to knock out sensor grain before
// thresholding.
func denoise(src *image.Gray) *image.Gray {
	return toGray(imaging.Blur(src, 0.6))
}

// otsuThreshold finds the global binarization threshold that maximizes
// between-class variance.
func otsuThreshold(src *image.Gray) uint8 {
	var hist [256]int
	bounds := src.Bounds()
	total := bounds.Dx() * bounds.Dy()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			hist[src.GrayAt(x, y).Y]++
		}
	}

	var sum float64
	for i := 0; i < 256; i++ {
		sum += float64(i) * float64(hist[i])
	}

	var sumB, wB float64
	var maxVariance float64
	threshold := uint8(127)
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		variance := wB * wF * (mB - mF) * (mB - mF)
		if variance > maxVariance {
			maxVariance = variance
			threshold = uint8(t)
		}
	}
	return threshold
}

// binarize maps pixels at or below the threshold to black, the rest to white.
func binarize(src *image.Gray, threshold uint8) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if src.GrayAt(x, y).Y <= threshold {
				dst.SetGray(x, y, color.Gray{Y: 0})
			} else {
				dst.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return dst
}

// deskew estimates the dominant rotation of the text block from the second
// order moments of the foreground (ink) pixels and rotates to correct it.
// Angles outside ±45° are folded back into range, and rotation is skipped
// entirely when the estimate is within tolerance.
func deskew(bin *image.Gray) *image.Gray {
	angle := skewAngle(bin)
	if math.Abs(angle) <= skewToleranceDeg {
		return bin
	}

	rotated := imaging.Rotate(bin, -angle, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	gray := toGray(rotated)
	// Interpolation reintroduces gray levels along edges.
	return binarize(gray, otsuThreshold(gray))
}

// skewAngle returns the estimated skew in degrees, normalized to (-45, 45].
func skewAngle(bin *image.Gray) float64 {
	bounds := bin.Bounds()

	var n, sumX, sumY float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if bin.GrayAt(x, y).Y < 128 {
				n++
				sumX += float64(x)
				sumY += float64(y)
			}
		}
	}
	if n < 2 {
		return 0
	}
	cx, cy := sumX/n, sumY/n

	var mu11, mu20, mu02 float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if bin.GrayAt(x, y).Y < 128 {
				dx, dy := float64(x)-cx, float64(y)-cy
				mu11 += dx * dy
				mu20 += dx * dx
				mu02 += dy * dy
			}
		}
	}

	angle := 0.5 * math.Atan2(2*mu11, mu20-mu02) * 180.0 / math.Pi
	for angle > 45 {
		angle -= 90
	}
	for angle <= -45 {
		angle += 90
	}
	return angle
}

// toGray converts an imaging result (always NRGBA) back to a single channel.
func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, g, _, _ := img.At(x, y).RGBA()
			gray.SetGray(x-bounds.Min.X, y-bounds.Min.Y, color.Gray{Y: uint8(g >> 8)})
		}
	}
	return gray
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
