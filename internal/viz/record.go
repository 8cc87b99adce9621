package viz

import (
	"errors"
	"image"
	"image/color"
	"image/gif"
	"os"
)

const (
	dotW = 4
	dotH = 4
)

// gifRecorder collects rasterized Braille canvases and writes them as an
// animated GIF.
type gifRecorder struct {
	path   string
	active bool
	frames []*image.Paletted
}

func newGIFRecorder(path string) *gifRecorder {
	if path == "" {
		path = "qbox.gif"
	}
	return &gifRecorder{path: path}
}

func (r *gifRecorder) start() {
	r.active = true
	r.frames = r.frames[:0]
}

// stop ends the recording and writes the file. It returns the number of
// frames written.
func (r *gifRecorder) stop() (int, error) {
	r.active = false
	n := len(r.frames)
	if n == 0 {
		return 0, errors.New("no frames captured")
	}
	defer func() { r.frames = nil }()
	return n, r.save()
}

var gifPalette = color.Palette{color.Black, color.RGBA{0x00, 0xff, 0x88, 0xff}}

// capture rasterizes every Braille dot of c into a dotW x dotH block.
func (r *gifRecorder) capture(c *Canvas) {
	if !r.active {
		return
	}
	w, h := c.Dots()
	img := image.NewPaletted(image.Rect(0, 0, w*dotW, h*dotH), gifPalette)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !c.IsSet(x, y) {
				continue
			}
			for py := 0; py < dotH; py++ {
				for px := 0; px < dotW; px++ {
					img.SetColorIndex(x*dotW+px, y*dotH+py, 1)
				}
			}
		}
	}
	r.frames = append(r.frames, img)
}

func (r *gifRecorder) save() error {
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range r.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 4)
	}
	f, err := os.Create(r.path)
	if err != nil {
		return err
	}
	if err := gif.EncodeAll(f, &anim); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
