package classifier

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

var (
	caffeMeansBGR = [3]float32{103.939, 116.779, 123.68}
	torchMeans    = [3]float32{0.485, 0.456, 0.406}
	torchStd      = [3]float32{0.229, 0.224, 0.225}
)

// DecodeImage decodes any registered image format.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("image has no pixels")
	}
	return img, nil
}

// toOpaqueRGB copies the colour channels into an opaque RGBA image. Alpha is
// dropped rather than composited and grayscale is broadcast to three channels.
func toOpaqueRGB(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			i := dst.PixOffset(x-b.Min.X, y-b.Min.Y)
			dst.Pix[i+0] = c.R
			dst.Pix[i+1] = c.G
			dst.Pix[i+2] = c.B
			dst.Pix[i+3] = 0xff
		}
	}
	return dst
}

// Preprocess converts a decoded image into the model input tensor and its shape.
func Preprocess(img image.Image, cfg ModelConfig) ([]float32, []int64) {
	h, w := cfg.InputHeight, cfg.InputWidth
	resized := resize.Resize(uint(w), uint(h), toOpaqueRGB(img), resize.Bilinear)
	rgba, ok := resized.(*image.RGBA)
	if !ok {
		rgba = toOpaqueRGB(resized)
	}

	plane := h * w
	out := make([]float32, 3*plane)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := rgba.PixOffset(x, y)
			px := normalizePixel(cfg.Normalization, float32(rgba.Pix[i]), float32(rgba.Pix[i+1]), float32(rgba.Pix[i+2]))
			p := y*w + x
			for c := 0; c < 3; c++ {
				if cfg.Layout == LayoutNCHW {
					out[c*plane+p] = px[c]
				} else {
					out[p*3+c] = px[c]
				}
			}
		}
	}

	if cfg.Layout == LayoutNCHW {
		return out, []int64{1, 3, int64(h), int64(w)}
	}
	return out, []int64{1, int64(h), int64(w), 3}
}

func normalizePixel(n Normalization, r, g, b float32) [3]float32 {
	switch n {
	case NormalizeCaffe:
		return [3]float32{b - caffeMeansBGR[0], g - caffeMeansBGR[1], r - caffeMeansBGR[2]}
	case NormalizeUnit:
		return [3]float32{r / 255, g / 255, b / 255}
	case NormalizeTorch:
		return [3]float32{
			(r/255 - torchMeans[0]) / torchStd[0],
			(g/255 - torchMeans[1]) / torchStd[1],
			(b/255 - torchMeans[2]) / torchStd[2],
		}
	default:
		return [3]float32{r, g, b}
	}
}
