package service

import (
	"bytes"
	"image"
	"image/png"

	"github.com/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// QRSize is the default edge length of generated codes in pixels.
const QRSize = 256

const labelHeight = 24

// QRCode encodes content, an employee id, as a PNG of size pixels.
func QRCode(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = QRSize
	}
	b, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, errors.Wrap(err, "encoding qr code")
	}
	return b, nil
}

// Badge renders the QR code of content with name printed underneath.
func Badge(name, content string, size int) ([]byte, error) {
	if size <= 0 {
		size = QRSize
	}

	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, errors.Wrap(err, "encoding qr code")
	}
	code := q.Image(size)

	canvas := image.NewRGBA(image.Rect(0, 0, size, size+labelHeight))
	xdraw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, xdraw.Src)
	xdraw.NearestNeighbor.Scale(canvas, image.Rect(0, 0, size, size), code, code.Bounds(), xdraw.Over, nil)

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.Black,
		Face: basicfont.Face7x13,
	}
	label := truncate(name, size/7)
	d.Dot = fixed.Point26_6{
		X: (fixed.I(size) - d.MeasureString(label)) / 2,
		Y: fixed.I(size + 17),
	}
	d.DrawString(label)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, errors.Wrap(err, "encoding badge")
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n || n < 3 {
		return s
	}
	return string(r[:n-3]) + "..."
}
