package sonar

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/sonarvision/sonareval/utils"
)

// PolarPoint is a point in the sensor's normalized polar frame. Both fractions
// are sign-centered: RangeFrac -1 maps to RMin and +1 to RMax, BearingFrac -1
// maps to -FOV/2 and +1 to +FOV/2. Keeping polar points as their own type
// prevents them from being fed to functions expecting Cartesian coordinates.
type PolarPoint struct {
	RangeFrac   float64
	BearingFrac float64
}

// PolarFromNormalized reinterprets normalized image coordinates as polar
// fractions: the row axis (X) carries range, the column axis (Y) bearing.
// This is the single place where the frame tag switches from Cartesian pixel
// space to the sensor's polar space.
func PolarFromNormalized(pts []r2.Point) []PolarPoint {
	out := make([]PolarPoint, len(pts))
	for i, p := range pts {
		out[i] = PolarPoint{RangeFrac: p.X, BearingFrac: p.Y}
	}
	return out
}

// NormalizedFromPolar is the inverse reinterpretation of PolarFromNormalized.
func NormalizedFromPolar(pts []PolarPoint) []r2.Point {
	out := make([]r2.Point, len(pts))
	for i, p := range pts {
		out[i] = r2.Point{X: p.RangeFrac, Y: p.BearingFrac}
	}
	return out
}

// PolarToCartesian projects a batch of polar points into the Cartesian frame
// of the sensor, with X along the acoustic axis offset by the bearing angle.
// Order is preserved; points outside the sensor's physical window are the
// caller's responsibility and are projected like any other.
func PolarToCartesian(pts []PolarPoint, cfg *Config) []r2.Point {
	halfFOV := utils.DegToRad(cfg.FOV) / 2
	out := make([]r2.Point, len(pts))
	for i, p := range pts {
		r := cfg.RMin + (p.RangeFrac+1)/2*(cfg.RMax-cfg.RMin)
		theta := p.BearingFrac * halfFOV
		out[i] = r2.Point{X: r * math.Sin(theta), Y: r * math.Cos(theta)}
	}
	return out
}

// CartesianToPolar recovers polar fractions from Cartesian points. It is the
// exact inverse of PolarToCartesian for any point with positive range and a
// bearing within (-180, 180) degrees.
func CartesianToPolar(pts []r2.Point, cfg *Config) []PolarPoint {
	halfFOV := utils.DegToRad(cfg.FOV) / 2
	out := make([]PolarPoint, len(pts))
	for i, p := range pts {
		r := p.Norm()
		theta := math.Atan2(p.X, p.Y)
		out[i] = PolarPoint{
			RangeFrac:   2*(r-cfg.RMin)/(cfg.RMax-cfg.RMin) - 1,
			BearingFrac: theta / halfFOV,
		}
	}
	return out
}
