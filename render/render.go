package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"certhub/entity"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"
)

const (
	fontDPI = 72

	// used when the config places the code but gives no style
	defaultCodeFontSize = 30
)

var defaultCodeColor = color.RGBA{A: 0xff}

// Input carries everything a single render needs. The compositor itself holds
// no state and touches no storage.
type Input struct {
	Template      []byte
	Font          []byte
	RecipientName string
	UniqueCode    string
	Config        *entity.CampaignConfig
}

type Compositor interface {
	// Compose draws the recipient name (and optionally the unique code) onto
	// the template and returns the result as PNG.
	Compose(in *Input) ([]byte, error)
}

type compositor struct{}

func NewCompositor() Compositor {
	return &compositor{}
}

func (c *compositor) Compose(in *Input) ([]byte, error) {
	if in.Config == nil {
		return nil, fmt.Errorf("render config is required")
	}

	template, _, err := image.Decode(bytes.NewReader(in.Template))
	if err != nil {
		return nil, fmt.Errorf("decode template image: %w", err)
	}

	fnt, err := opentype.Parse(in.Font)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	canvas := image.NewRGBA(template.Bounds())
	draw.Draw(canvas, canvas.Bounds(), template, template.Bounds().Min, draw.Src)

	nameColor, err := parseHexColor(in.Config.GetNameColor())
	if err != nil {
		return nil, fmt.Errorf("parse name color: %w", err)
	}

	if err := drawText(canvas, fnt, in.RecipientName, in.Config.GetNamePosX(), in.Config.GetNamePosY(),
		in.Config.GetNameFontSize(), nameColor); err != nil {
		return nil, err
	}

	if in.Config.HasCodePlacement() {
		var (
			codeSize  = in.Config.GetCodeFontSize()
			codeColor = defaultCodeColor
		)
		if codeSize == 0 {
			codeSize = defaultCodeFontSize
		}
		if hex := in.Config.GetCodeColor(); hex != "" {
			codeColor, err = parseHexColor(hex)
			if err != nil {
				return nil, fmt.Errorf("parse code color: %w", err)
			}
		}

		if err := drawText(canvas, fnt, in.UniqueCode, in.Config.GetCodePosX(), in.Config.GetCodePosY(),
			codeSize, codeColor); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	return buf.Bytes(), nil
}

func drawText(canvas *image.RGBA, fnt *opentype.Font, text string, x, y int64, size uint32, clr color.RGBA) error {
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     fontDPI,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("build font face: %w", err)
	}
	defer func() {
		_ = face.Close()
	}()

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(clr),
		Face: face,
		Dot:  fixed.P(int(x), int(y)),
	}
	d.DrawString(text)

	return nil
}

func parseHexColor(s string) (color.RGBA, error) {
	c := color.RGBA{A: 0xff}

	if len(s) != 7 || s[0] != '#' {
		return c, fmt.Errorf("invalid hex color: %q", s)
	}

	hexByte := func(b byte) (uint8, bool) {
		switch {
		case b >= '0' && b <= '9':
			return b - '0', true
		case b >= 'a' && b <= 'f':
			return b - 'a' + 10, true
		case b >= 'A' && b <= 'F':
			return b - 'A' + 10, true
		}
		return 0, false
	}

	parse := func(hi, lo byte) (uint8, bool) {
		h, ok1 := hexByte(hi)
		l, ok2 := hexByte(lo)
		return h<<4 | l, ok1 && ok2
	}

	var ok1, ok2, ok3 bool
	c.R, ok1 = parse(s[1], s[2])
	c.G, ok2 = parse(s[3], s[4])
	c.B, ok3 = parse(s[5], s[6])
	if !ok1 || !ok2 || !ok3 {
		return c, fmt.Errorf("invalid hex color: %q", s)
	}

	return c, nil
}
