package eyes

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOffsetBounded(t *testing.T) {
	deltas := [][2]float64{
		{0, 0}, {10, 0}, {300, 0}, {5000, 5000}, {-1000, 3}, {0, -250}, {-212, 212},
	}
	for _, d := range deltas {
		x, y := Offset(d[0], d[1], false)
		assert.LessOrEqual(t, math.Hypot(x, y), MaxOffset+1e-9, "delta %v", d)
	}
}

func TestOffsetScalesWithDistance(t *testing.T) {
	x, y := Offset(150, 0, false)
	assert.InDelta(t, MaxOffset/2, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)

	x, _ = Offset(300, 0, false)
	assert.InDelta(t, MaxOffset, x, 1e-9)

	x, _ = Offset(900, 0, false)
	assert.InDelta(t, MaxOffset, x, 1e-9)

	_, y = Offset(0, -600, false)
	assert.InDelta(t, -MaxOffset, y, 1e-9)
}

func TestOffsetCenter(t *testing.T) {
	x, y := Offset(0, 0, false)
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 0.0, y)
}

func TestPasswordLooksUp(t *testing.T) {
	x, y := Offset(400, 400, true)
	assert.Equal(t, 0.0, x)
	assert.Equal(t, -50.0, y)

	var m Model
	m.Look(10, 10, true)
	col, row := m.Pupil()
	assert.Equal(t, innerWidth/2, col)
	assert.Equal(t, 0, row)
}

func TestPupilPosition(t *testing.T) {
	var m Model
	col, row := m.Pupil()
	assert.Equal(t, 2, col)
	assert.Equal(t, 1, row)

	m.Look(100, 0, false) // far right
	col, row = m.Pupil()
	assert.Equal(t, 4, col)
	assert.Equal(t, 1, row)

	m.Look(-100, 0, false)
	col, _ = m.Pupil()
	assert.Equal(t, 0, col)
}

func TestView(t *testing.T) {
	var m Model
	lines := strings.Split(m.View(), "\n")
	assert.Len(t, lines, innerHeight+2)
	assert.Equal(t, 2, strings.Count(m.View(), "●"))
}
