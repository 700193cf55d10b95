package location

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCircleValid(t *testing.T) {
	assert.True(t, Circle{X: 1, Y: 1, R: 1}.Valid())
	assert.False(t, Circle{}.Valid())
	assert.False(t, Circle{X: 1, Y: 1, R: -3}.Valid())
	assert.False(t, Circle{X: math.NaN(), Y: 1, R: 3}.Valid())
	assert.False(t, Circle{X: 1, Y: 1, R: math.Inf(1)}.Valid())
}

func TestCircleContainsIsStrict(t *testing.T) {
	c := Circle{X: 10, Y: 10, R: 5}
	assert.True(t, c.Contains(10, 10))
	assert.True(t, c.Contains(14, 10))
	assert.False(t, c.Contains(15, 10))
	assert.False(t, c.Contains(20, 20))
}

func TestCircleInsideRect(t *testing.T) {
	r := image.Rect(0, 0, 100, 50)
	tests := []struct {
		c    Circle
		want bool
	}{
		{Circle{X: 50, Y: 25, R: 10}, true},
		{Circle{X: 10, Y: 25, R: 10}, false}, // touches the left edge
		{Circle{X: 90, Y: 25, R: 10}, true},  // touches the right edge
		{Circle{X: 50, Y: 45, R: 10}, false},
		{Circle{X: 50, Y: 25, R: 30}, false},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, test.c.InsideRect(r), "%v", test.c)
	}
}

func TestCircleBounds(t *testing.T) {
	assert.Equal(t, image.Rect(5, 15, 15, 25), Circle{X: 10, Y: 20, R: 5}.Bounds())
	assert.Equal(t, image.Rect(5, 15, 16, 26), Circle{X: 10.5, Y: 20.5, R: 5}.Bounds())
}

func TestCircleTransforms(t *testing.T) {
	c := Circle{X: 10, Y: 20, R: 5}
	assert.Equal(t, Circle{X: 13, Y: 16, R: 5}, c.Translate(3, -4))
	assert.Equal(t, Circle{X: 20, Y: 60, R: 10}, c.Scale(2, 3))
}

func TestIrisValid(t *testing.T) {
	limbus := Circle{X: 100, Y: 100, R: 60}
	assert.True(t, Iris{Pupil: Circle{X: 102, Y: 99, R: 20}, Limbus: limbus}.Valid())
	assert.False(t, Iris{Limbus: limbus}.Valid())
	assert.False(t, Iris{Pupil: Circle{X: 100, Y: 100, R: 70}, Limbus: limbus}.Valid())
	assert.False(t, Iris{Pupil: Circle{X: 200, Y: 100, R: 10}, Limbus: limbus}.Valid())
}

func TestBestKeepsFirstOnTies(t *testing.T) {
	cs := []ScoredCircle{
		{Circle: Circle{R: 1}, Score: 1},
		{Circle: Circle{R: 2}, Score: 3},
		{Circle: Circle{R: 3}, Score: 3},
	}
	b, ok := best(cs)
	assert.True(t, ok)
	assert.Equal(t, 2.0, b.R)

	_, ok = best(nil)
	assert.False(t, ok)
}
