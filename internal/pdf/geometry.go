package pdf

import "math"

// Letter size, used when a page carries no usable box
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// pageGeometry maps PDF user space (bottom-left origin) to the
// top-left-origin view space of a possibly rotated page.
type pageGeometry struct {
	llx, lly float64 // lower-left of the crop/media box
	width    float64 // unrotated box width
	height   float64 // unrotated box height
	rotate   int     // 0, 90, 180 or 270, clockwise
}

func newPageGeometry(llx, lly, urx, ury float64, rotate int) pageGeometry {
	w, h := math.Abs(urx-llx), math.Abs(ury-lly)
	if w == 0 || h == 0 {
		llx, lly, w, h = 0, 0, defaultPageWidth, defaultPageHeight
	}
	return pageGeometry{
		llx:    math.Min(llx, urx),
		lly:    math.Min(lly, ury),
		width:  w,
		height: h,
		rotate: normalizeRotation(rotate),
	}
}

func normalizeRotation(r int) int {
	r %= 360
	if r < 0 {
		r += 360
	}
	switch r {
	case 90, 180, 270:
		return r
	default:
		return 0
	}
}

// Size returns the displayed page size (rotation applied)
func (g pageGeometry) Size() (float64, float64) {
	if g.rotate == 90 || g.rotate == 270 {
		return g.height, g.width
	}
	return g.width, g.height
}

// unrotated converts a user space point to top-left coordinates of the
// unrotated page.
func (g pageGeometry) unrotated(x, y float64) (float64, float64) {
	return x - g.llx, g.height - (y - g.lly)
}

// rotatePoint applies the page rotation to an unrotated top-left point
func (g pageGeometry) rotatePoint(u, v float64) (float64, float64) {
	switch g.rotate {
	case 90:
		return g.height - v, u
	case 180:
		return g.width - u, g.height - v
	case 270:
		return v, g.width - u
	default:
		return u, v
	}
}

// rotateRect applies the page rotation to an unrotated top-left rect
func (g pageGeometry) rotateRect(r Rect) Rect {
	x0, y0 := g.rotatePoint(r.X, r.Y)
	x1, y1 := g.rotatePoint(r.Right(), r.Bottom())
	return RectFromCorners(x0, y0, x1, y1)
}

// userRect converts a user space rectangle given by two corners to view space
func (g pageGeometry) userRect(x0, y0, x1, y1 float64) Rect {
	u0, v0 := g.unrotated(x0, y0)
	u1, v1 := g.unrotated(x1, y1)
	return g.rotateRect(RectFromCorners(u0, v0, u1, v1))
}

// matrix is a PDF transformation matrix [a b c d e f]
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// multiply returns m x n (apply m, then n)
func (m matrix) multiply(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// unitSquareBounds returns the user space bounds of the unit square under m,
// which is where an image XObject is painted.
func (m matrix) unitSquareBounds() (x0, y0, x1, y1 float64) {
	x0, y0 = math.Inf(1), math.Inf(1)
	x1, y1 = math.Inf(-1), math.Inf(-1)
	for _, p := range [4][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		x, y := m.apply(p[0], p[1])
		x0, y0 = math.Min(x0, x), math.Min(y0, y)
		x1, y1 = math.Max(x1, x), math.Max(y1, y)
	}
	return x0, y0, x1, y1
}
