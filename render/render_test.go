package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"certhub/entity"
	"certhub/pkg/goutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

func templatePNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.White)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func baseConfig() *entity.CampaignConfig {
	return &entity.CampaignConfig{
		NamePosX:     goutil.Int64(40),
		NamePosY:     goutil.Int64(60),
		NameFontSize: goutil.Uint32(20),
		NameColor:    goutil.String("#112233"),
		TypographyID: goutil.Uint64(1),
	}
}

func TestCompose(t *testing.T) {
	compositor := NewCompositor()

	t.Run("outputs png of template size", func(t *testing.T) {
		out, err := compositor.Compose(&Input{
			Template:      templatePNG(t, 400, 300),
			Font:          goregular.TTF,
			RecipientName: "Alice Tan",
			UniqueCode:    "ABCD1234",
			Config:        baseConfig(),
		})
		require.NoError(t, err)

		img, format, err := image.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, "png", format)
		assert.Equal(t, 400, img.Bounds().Dx())
		assert.Equal(t, 300, img.Bounds().Dy())
	})

	t.Run("name is drawn", func(t *testing.T) {
		cfg := baseConfig()
		cfg.NameColor = goutil.String("#FF0000")

		out, err := compositor.Compose(&Input{
			Template:      templatePNG(t, 200, 100),
			Font:          goregular.TTF,
			RecipientName: "WWWW",
			Config:        cfg,
		})
		require.NoError(t, err)

		img, _, err := image.Decode(bytes.NewReader(out))
		require.NoError(t, err)

		var found bool
		bounds := img.Bounds()
		for x := bounds.Min.X; x < bounds.Max.X && !found; x++ {
			for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
				r, g, b, _ := img.At(x, y).RGBA()
				if r > 0xf000 && g < 0x1000 && b < 0x1000 {
					found = true
					break
				}
			}
		}
		assert.True(t, found, "expected red name pixels on white template")
	})

	t.Run("code drawn only with placement", func(t *testing.T) {
		render := func(cfg *entity.CampaignConfig) image.Image {
			out, err := compositor.Compose(&Input{
				Template:      templatePNG(t, 200, 200),
				Font:          goregular.TTF,
				RecipientName: "",
				UniqueCode:    "ABCD1234",
				Config:        cfg,
			})
			require.NoError(t, err)
			img, _, err := image.Decode(bytes.NewReader(out))
			require.NoError(t, err)
			return img
		}

		countInk := func(img image.Image) int {
			var n int
			bounds := img.Bounds()
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
					r, g, b, _ := img.At(x, y).RGBA()
					if r < 0x8000 && g < 0x8000 && b < 0x8000 {
						n++
					}
				}
			}
			return n
		}

		withoutCode := render(baseConfig())
		assert.Zero(t, countInk(withoutCode))

		cfg := baseConfig()
		cfg.CodePosX = goutil.Int64(40)
		cfg.CodePosY = goutil.Int64(120)
		withCode := render(cfg)
		assert.Greater(t, countInk(withCode), 0)
	})

	t.Run("missing config", func(t *testing.T) {
		_, err := compositor.Compose(&Input{
			Template: templatePNG(t, 10, 10),
			Font:     goregular.TTF,
		})
		assert.Error(t, err)
	})

	t.Run("bad template bytes", func(t *testing.T) {
		_, err := compositor.Compose(&Input{
			Template: []byte("not an image"),
			Font:     goregular.TTF,
			Config:   baseConfig(),
		})
		assert.Error(t, err)
	})

	t.Run("bad font bytes", func(t *testing.T) {
		_, err := compositor.Compose(&Input{
			Template: templatePNG(t, 10, 10),
			Font:     []byte("not a font"),
			Config:   baseConfig(),
		})
		assert.Error(t, err)
	})

	t.Run("bad name color", func(t *testing.T) {
		cfg := baseConfig()
		cfg.NameColor = goutil.String("red")

		_, err := compositor.Compose(&Input{
			Template: templatePNG(t, 10, 10),
			Font:     goregular.TTF,
			Config:   cfg,
		})
		assert.Error(t, err)
	})
}

func TestParseHexColor(t *testing.T) {
	c, err := parseHexColor("#1A2b3C")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0x1a, G: 0x2b, B: 0x3c, A: 0xff}, c)

	for _, bad := range []string{"", "#fff", "123456", "#12345G", "#1234567"} {
		_, err := parseHexColor(bad)
		assert.Error(t, err, bad)
	}
}
