package normalize

import "image"

// CoordMap links the cells of an unwrapped image to the source pixels
// they were sampled from, in both directions.
//
// Polar coordinates are (column, row) in the unwrapped image, and
// cartesian coordinates (x, y) in the source. Every polar cell has at
// most one source pixel. A source pixel can feed several polar cells,
// near the pupil where the sampling is densest, in which case Polar
// returns the last one sampled.
type CoordMap struct {
	width, height int
	// cart is indexed by row*width+col. ok says which entries are
	// real, since (0,0) is a valid source pixel.
	cart []image.Point
	ok   []bool
	// polar is sparse: most source pixels are nowhere near the iris.
	polar map[image.Point]image.Point
	n     int
}

func newCoordMap(w, h int) *CoordMap {
	return &CoordMap{
		width:  w,
		height: h,
		cart:   make([]image.Point, w*h),
		ok:     make([]bool, w*h),
		polar:  map[image.Point]image.Point{},
	}
}

func (m *CoordMap) set(polar, cart image.Point) {
	i := polar.Y*m.width + polar.X
	if !m.ok[i] {
		m.n++
	}
	m.cart[i] = cart
	m.ok[i] = true
	m.polar[cart] = polar
}

// Size returns the dimensions of the polar grid.
func (m *CoordMap) Size() (w, h int) { return m.width, m.height }

// Len returns the number of polar cells that have a source pixel.
func (m *CoordMap) Len() int { return m.n }

// Cartesian returns the source pixel of a polar cell.
func (m *CoordMap) Cartesian(polar image.Point) (image.Point, bool) {
	if polar.X < 0 || polar.Y < 0 || polar.X >= m.width || polar.Y >= m.height {
		return image.Point{}, false
	}
	i := polar.Y*m.width + polar.X
	return m.cart[i], m.ok[i]
}

// Polar returns a polar cell sampled from a source pixel.
func (m *CoordMap) Polar(cart image.Point) (image.Point, bool) {
	p, ok := m.polar[cart]
	return p, ok
}

// Each calls fn for every polar cell with a source pixel, in row-major
// polar order.
func (m *CoordMap) Each(fn func(polar, cart image.Point)) {
	for i, ok := range m.ok {
		if ok {
			fn(image.Point{i % m.width, i / m.width}, m.cart[i])
		}
	}
}
