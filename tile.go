package watermark

import (
	"fmt"
	"iter"
	"math"
)

const (
	// Overscan is the number of extra tiles laid out beyond the canvas on
	// every side, so that waves entering from outside are cut off by the
	// canvas edge instead of leaving gaps.
	Overscan = 5

	// MaxOrigins bounds the number of tiles a grid may produce.
	MaxOrigins = 1 << 20
)

// Origin is the anchor point of one repetition of the wave.
type Origin struct {
	X, Y float64
}

// Grid is a rectangular block of tile origins spaced Step apart.
// The origin with index (i, j) is (X0 + i*Step, Y0 + j*Step).
type Grid struct {
	X0, Y0     float64
	Step       float64
	MinI, MaxI int
	MinJ, MaxJ int
}

// CenteredGrid returns the 11x11 grid centred on the middle of a
// width x height page. The number of origins does not depend on the page
// size.
func CenteredGrid(width, height, density float64) (Grid, error) {
	if err := checkCanvas(width, height, density); err != nil {
		return Grid{}, err
	}
	return Grid{
		X0:   width / 2,
		Y0:   height / 2,
		Step: density,
		MinI: -Overscan, MaxI: Overscan,
		MinJ: -Overscan, MaxJ: Overscan,
	}, nil
}

// CoveringGrid returns a grid whose cells of size density x density cover
// the rectangle [0,width]x[0,height], with Overscan extra tiles on each side.
// The number of origins grows with the canvas.
func CoveringGrid(width, height, density float64) (Grid, error) {
	if err := checkCanvas(width, height, density); err != nil {
		return Grid{}, err
	}

	cols := math.Floor(width / density)
	rows := math.Floor(height / density)
	n := (cols + 2*Overscan + 1) * (rows + 2*Overscan + 1)
	if n > MaxOrigins {
		return Grid{}, &StyleError{
			Field:   "density",
			Message: fmt.Sprintf("%g is too small for a %gx%g canvas", density, width, height),
		}
	}

	return Grid{
		X0:   density / 2,
		Y0:   density / 2,
		Step: density,
		MinI: -Overscan, MaxI: int(cols) + Overscan,
		MinJ: -Overscan, MaxJ: int(rows) + Overscan,
	}, nil
}

func checkCanvas(width, height, density float64) error {
	if math.IsNaN(density) || math.IsInf(density, 0) || density <= 0 {
		return &StyleError{Field: "density", Message: "must be a positive finite number"}
	}
	if !(width > 0) || !(height > 0) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return fmt.Errorf("%w: canvas size %gx%g", ErrInvalidStyle, width, height)
	}
	return nil
}

// Len returns the number of origins in the grid.
func (g Grid) Len() int {
	if g.MaxI < g.MinI || g.MaxJ < g.MinJ {
		return 0
	}
	return (g.MaxI - g.MinI + 1) * (g.MaxJ - g.MinJ + 1)
}

// At returns the origin with index (i, j).
func (g Grid) At(i, j int) Origin {
	return Origin{
		X: g.X0 + float64(i)*g.Step,
		Y: g.Y0 + float64(j)*g.Step,
	}
}

// All yields every origin, column by column.
func (g Grid) All() iter.Seq[Origin] {
	return func(yield func(Origin) bool) {
		for i := g.MinI; i <= g.MaxI; i++ {
			for j := g.MinJ; j <= g.MaxJ; j++ {
				if !yield(g.At(i, j)) {
					return
				}
			}
		}
	}
}

// TileMode selects how waves are tiled across a target.
type TileMode int

const (
	// RotatedWaveTile uses the centred grid and rotates every tile by
	// Style.Angle about its origin before placing the characters. PDF
	// overlays are drawn this way.
	RotatedWaveTile TileMode = iota

	// AxisAlignedWaveTile uses the covering grid without any rotation; the
	// only vertical movement is the wave itself. Images are drawn this way.
	AxisAlignedWaveTile
)

func (m TileMode) String() string {
	switch m {
	case RotatedWaveTile:
		return "rotated"
	case AxisAlignedWaveTile:
		return "axis-aligned"
	default:
		return fmt.Sprintf("TileMode(%d)", int(m))
	}
}

// Grid returns the tile origins m uses on a width x height target.
func (m TileMode) Grid(width, height, density float64) (Grid, error) {
	switch m {
	case RotatedWaveTile:
		return CenteredGrid(width, height, density)
	case AxisAlignedWaveTile:
		return CoveringGrid(width, height, density)
	default:
		return Grid{}, fmt.Errorf("unknown tile mode %d", int(m))
	}
}
