// Package eyes draws the pair of eyes on the login screen whose pupils
// follow the text cursor, and look away while a password is typed.
package eyes

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	// MaxOffset is the largest pupil offset, in percent of the eye size.
	MaxOffset = 25.0
	// MaxDistance is the pointer distance at which the pupils are fully
	// deflected.
	MaxDistance = 300.0

	// Terminal cells are measured in these units so distances are roughly
	// isotropic.
	CellWidth  = 8.0
	CellHeight = 16.0

	innerWidth  = 5
	innerHeight = 3
)

var (
	whiteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	pupilStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6600")).Bold(true)
)

// Offset maps the vector from the eyes' center to the pointer onto a
// pupil offset in percent. The direction follows the pointer; the size
// grows linearly with distance up to MaxOffset at MaxDistance. With the
// password field focused the eyes look straight up.
func Offset(dx, dy float64, passwordFocused bool) (x, y float64) {
	if passwordFocused {
		return 0, -50
	}
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return 0, 0
	}
	factor := math.Min(dist/MaxDistance, 1)
	angle := math.Atan2(dy, dx)
	return math.Cos(angle) * MaxOffset * factor, math.Sin(angle) * MaxOffset * factor
}

// CellOffset is Offset for a pointer dx columns and dy rows away.
func CellOffset(dx, dy int, passwordFocused bool) (x, y float64) {
	return Offset(float64(dx)*CellWidth, float64(dy)*CellHeight, passwordFocused)
}

// Model holds the current pupil offset.
type Model struct {
	X, Y float64
}

// Look points the pupils at a pointer dx columns and dy rows from the
// eyes' center.
func (m *Model) Look(dx, dy int, passwordFocused bool) {
	m.X, m.Y = CellOffset(dx, dy, passwordFocused)
}

// Pupil returns the pupil position inside an eye, as column and row of the
// innerWidth x innerHeight interior.
func (m Model) Pupil() (col, row int) {
	half := innerWidth / 2
	col = half + clamp(int(math.Round(m.X/MaxOffset*float64(half))), -half, half)
	row = 1 + clamp(int(math.Round(m.Y/MaxOffset)), -1, 1)
	return col, row
}

// View renders both eyes side by side.
func (m Model) View() string {
	eye := m.eye()
	return lipgloss.JoinHorizontal(lipgloss.Top, eye, "  ", eye)
}

func (m Model) eye() string {
	col, row := m.Pupil()

	var sb strings.Builder
	sb.WriteString(whiteStyle.Render("╭" + strings.Repeat("─", innerWidth) + "╮"))
	sb.WriteString("\n")
	for r := 0; r < innerHeight; r++ {
		sb.WriteString(whiteStyle.Render("│"))
		for c := 0; c < innerWidth; c++ {
			if r == row && c == col {
				sb.WriteString(pupilStyle.Render("●"))
			} else {
				sb.WriteString(" ")
			}
		}
		sb.WriteString(whiteStyle.Render("│"))
		sb.WriteString("\n")
	}
	sb.WriteString(whiteStyle.Render("╰" + strings.Repeat("─", innerWidth) + "╯"))
	return sb.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
