//go:build avif

package svgkit

import (
	"image"
	"io"
	"math"

	"github.com/esimov/svgkit/utils"
	"github.com/gen2brain/avif"
)

func init() {
	optionalCodecs[AVIF] = CodecFunc(encodeAVIF)
}

func encodeAVIF(w io.Writer, img image.Image, quality float64) error {
	q := utils.Clamp(int(math.Round(quality*100)), 1, 100)
	return avif.Encode(w, img, avif.Options{
		Quality:           q,
		QualityAlpha:      q,
		Speed:             8,
		ChromaSubsampling: image.YCbCrSubsampleRatio420,
	})
}
