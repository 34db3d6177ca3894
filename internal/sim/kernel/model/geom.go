package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// Point is a grid cell. It encodes as a two element JSON array [x, y].
type Point struct {
	X int
	Y int
}

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.X, p.Y})
}

func (p *Point) UnmarshalJSON(b []byte) error {
	var xy [2]int
	if err := json.Unmarshal(b, &xy); err != nil {
		return fmt.Errorf("point: %w", err)
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// Add moves p one cell in direction d. DirNone returns p.
func (p Point) Add(d Direction) Point {
	dx, dy := d.Delta()
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Dist is the Euclidean distance between two cells.
func Dist(a, b Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

// Manhattan distance.
func Manhattan(a, b Point) int {
	return absInt(a.X-b.X) + absInt(a.Y-b.Y)
}

// Contains reports whether p is one of ps.
func Contains(ps []Point, p Point) bool {
	for _, q := range ps {
		if q == p {
			return true
		}
	}
	return false
}

// Direction values match the renderer's sprite table indices.
type Direction int

const (
	DirNone  Direction = -1
	DirNorth Direction = 0
	DirEast  Direction = 1
	DirSouth Direction = 2
	DirWest  Direction = 3
)

// Directions in the fixed order used wherever a deterministic scan is needed.
var Directions = [4]Direction{DirNorth, DirEast, DirSouth, DirWest}

func (d Direction) Delta() (dx, dy int) {
	switch d {
	case DirNorth:
		return 0, -1
	case DirEast:
		return 1, 0
	case DirSouth:
		return 0, 1
	case DirWest:
		return -1, 0
	default:
		return 0, 0
	}
}

func (d Direction) Valid() bool { return d >= DirNorth && d <= DirWest }

func (d Direction) Opposite() Direction {
	if !d.Valid() {
		return DirNone
	}
	return (d + 2) % 4
}

func (d Direction) String() string {
	switch d {
	case DirNorth:
		return "N"
	case DirEast:
		return "E"
	case DirSouth:
		return "S"
	case DirWest:
		return "W"
	default:
		return "-"
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
