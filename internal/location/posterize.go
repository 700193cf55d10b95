package location

import "go.universe.tf/iris/internal/raster"

// Posterize replaces every pixel with the most common value in the
// (2k+1)x(2k+1) window around it, clipped at the image border. Ties go
// to the darker value.
//
// This flattens iris texture and eyelashes into solid patches while
// keeping the big boundaries (pupil, limbus, eyelids) where they
// were, which makes the edge detector's life much easier.
func Posterize(src *raster.Gray, k int) *raster.Gray {
	if k <= 0 {
		return src.Clone()
	}
	out := raster.NewGray(src.Width, src.Height)

	for y := 0; y < src.Height; y++ {
		y0, y1 := max(y-k, 0), min(y+k, src.Height-1)

		// Recomputing the histogram for each pixel would be
		// O(k^2) per pixel. Instead, we build it once at the start
		// of the row, then slide it right one column at a time,
		// dropping the column that leaves and adding the column
		// that enters.
		var h modeHistogram
		for yy := y0; yy <= y1; yy++ {
			for xx := 0; xx <= min(k, src.Width-1); xx++ {
				h.add(src.At(xx, yy))
			}
		}
		out.Set(0, y, h.mode())

		for x := 1; x < src.Width; x++ {
			if leave := x - k - 1; leave >= 0 {
				for yy := y0; yy <= y1; yy++ {
					h.remove(src.At(leave, yy))
				}
			}
			if enter := x + k; enter < src.Width {
				for yy := y0; yy <= y1; yy++ {
					h.add(src.At(enter, yy))
				}
			}
			out.Set(x, y, h.mode())
		}
	}
	return out
}

// modeHistogram is a 256-bin histogram that tracks its mode as values
// come and go.
type modeHistogram struct {
	counts [256]int
	top    uint8
}

func (h *modeHistogram) add(v uint8) {
	h.counts[v]++
	if h.counts[v] > h.counts[h.top] || (h.counts[v] == h.counts[h.top] && v < h.top) {
		h.top = v
	}
}

func (h *modeHistogram) remove(v uint8) {
	h.counts[v]--
	if v != h.top {
		return
	}
	// The mode lost a vote, some other value may have overtaken it.
	top := 0
	for i := range h.counts {
		if h.counts[i] > h.counts[top] {
			top = i
		}
	}
	h.top = uint8(top)
}

func (h *modeHistogram) mode() uint8 { return h.top }
