package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/gekko3d/pathflock/pathrt/core"
)

const (
	DefaultWidth  = 960
	DefaultHeight = 540
	ambient       = 0.25
)

type Options struct {
	Width  int
	Height int
	// Camera switches to a perspective view. When nil the view is
	// orthographic down -Z and Extent is the world-space half height;
	// zero Extent fits the frame.
	Camera     *Camera
	Extent     float32
	Background color.RGBA
	Light      mgl32.Vec3
	// FontPath selects a TTF/OTF face for labels; empty uses basicfont.
	FontPath string
	FontSize float64
}

func DefaultOptions() Options {
	return Options{
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		Background: color.RGBA{R: 8, G: 8, B: 12, A: 255},
		Light:      mgl32.Vec3{0.3, 0.5, 1}.Normalize(),
		FontSize:   14,
	}
}

// Renderer rasterizes frames on the CPU. Triangles are flat shaded with one
// directional light and depth tested per pixel.
type Renderer struct {
	opts  Options
	face  font.Face
	depth []float32
}

func NewRenderer(opts Options) (*Renderer, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid preview size %dx%d", opts.Width, opts.Height)
	}
	if opts.Light.Len() == 0 {
		opts.Light = mgl32.Vec3{0, 0, 1}
	}
	opts.Light = opts.Light.Normalize()

	face, err := loadFace(opts.FontPath, opts.FontSize)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		opts:  opts,
		face:  face,
		depth: make([]float32, opts.Width*opts.Height),
	}, nil
}

func loadFace(path string, size float64) (font.Face, error) {
	if path == "" {
		return basicfont.Face7x13, nil
	}
	fontBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	f, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face: %w", err)
	}
	return face, nil
}

// Extent returns the half height that fits every vertex of f.
func Extent(f *core.Frame, aspect float32) float32 {
	lo, hi := f.Bounds()
	e := max(abs(lo.Y()), abs(hi.Y()))
	if aspect > 0 {
		e = max(e, max(abs(lo.X()), abs(hi.X()))/aspect)
	}
	if e == 0 {
		return 1
	}
	return e * 1.05
}

func abs(v float32) float32 { return float32(math.Abs(float64(v))) }

// Render draws f and, when label is non-empty, a text label in the top-left corner.
func (r *Renderer) Render(f *core.Frame, label string) *image.RGBA {
	w, h := r.opts.Width, r.opts.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.opts.Background), image.Point{}, draw.Src)
	for i := range r.depth {
		r.depth[i] = float32(math.Inf(-1))
	}

	var project projector
	if r.opts.Camera != nil {
		project = r.opts.Camera.projector(w, h)
	} else {
		aspect := float32(w) / float32(h)
		extent := r.opts.Extent
		if extent <= 0 {
			extent = Extent(f, aspect)
		}
		project = orthoProjector(extent, aspect, w, h)
	}

	vc := f.VertexCount
	if vc == 0 {
		return img
	}
	for i := 0; i < f.Count(); i++ {
		base := colorful.Color{R: float64(f.Colors[i][0]), G: float64(f.Colors[i][1]), B: float64(f.Colors[i][2])}
		for v := 0; v+2 < vc; v += 3 {
			k := i*vc + v
			n := f.Normals[k].Add(f.Normals[k+1]).Add(f.Normals[k+2])
			if n.Len() > 0 {
				n = n.Normalize()
			}
			shade := ambient + (1-ambient)*float64(max(0, n.Dot(r.opts.Light)))
			cr, cg, cb := colorful.Color{R: base.R * shade, G: base.G * shade, B: base.B * shade}.Clamped().RGB255()
			a, okA := project(f.Positions[k])
			b, okB := project(f.Positions[k+1])
			c, okC := project(f.Positions[k+2])
			if !okA || !okB || !okC {
				continue
			}
			r.fillTriangle(img, a, b, c, color.RGBA{R: cr, G: cg, B: cb, A: 255})
		}
	}

	if label != "" {
		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(color.White),
			Face: r.face,
			Dot:  fixed.P(6, 6+r.face.Metrics().Ascent.Ceil()),
		}
		d.DrawString(label)
	}
	return img
}

func edge(a, b mgl32.Vec3, x, y float32) float32 {
	return (b.X()-a.X())*(y-a.Y()) - (b.Y()-a.Y())*(x-a.X())
}

func (r *Renderer) fillTriangle(img *image.RGBA, a, b, c mgl32.Vec3, col color.RGBA) {
	area := edge(a, b, c.X(), c.Y())
	if area == 0 {
		return
	}
	w, h := r.opts.Width, r.opts.Height
	minX := max(0, int(math.Floor(float64(min(a.X(), b.X(), c.X())))))
	maxX := min(w-1, int(math.Ceil(float64(max(a.X(), b.X(), c.X())))))
	minY := max(0, int(math.Floor(float64(min(a.Y(), b.Y(), c.Y())))))
	maxY := min(h-1, int(math.Ceil(float64(max(a.Y(), b.Y(), c.Y())))))

	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			w0 := edge(b, c, px, py) / area
			w1 := edge(c, a, px, py) / area
			w2 := edge(a, b, px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*a.Z() + w1*b.Z() + w2*c.Z()
			idx := y*w + x
			if z <= r.depth[idx] {
				continue
			}
			r.depth[idx] = z
			img.SetRGBA(x, y, col)
		}
	}
}

func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
