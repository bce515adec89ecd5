package threemf

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// LengthUnit is the unit a scene's coordinates are expressed in.
type LengthUnit string

const (
	Thou        LengthUnit = "THOU"
	Inches      LengthUnit = "INCHES"
	Feet        LengthUnit = "FEET"
	Yards       LengthUnit = "YARDS"
	Chains      LengthUnit = "CHAINS"
	Furlongs    LengthUnit = "FURLONGS"
	Miles       LengthUnit = "MILES"
	Micrometers LengthUnit = "MICROMETERS"
	Millimeters LengthUnit = "MILLIMETERS"
	Centimeters LengthUnit = "CENTIMETERS"
	Decimeters  LengthUnit = "DECIMETERS"
	Meters      LengthUnit = "METERS"
	Dekameters  LengthUnit = "DEKAMETERS"
	Hectometers LengthUnit = "HECTOMETERS"
	Kilometers  LengthUnit = "KILOMETERS"
)

// ErrUnknownUnit is returned by ParseLengthUnit for names outside the table.
var ErrUnknownUnit = errors.New("unknown length unit")

// toMillimeters converts one scene unit to the 3MF default unit.
var toMillimeters = map[LengthUnit]float64{
	Thou:        0.0254,
	Inches:      25.4,
	Feet:        304.8,
	Yards:       914.4,
	Chains:      20116.8,
	Furlongs:    201168,
	Miles:       1609344,
	Micrometers: 0.001,
	Millimeters: 1,
	Centimeters: 10,
	Decimeters:  100,
	Meters:      1000,
	Dekameters:  10000,
	Hectometers: 100000,
	Kilometers:  1000000,
}

// UnitSettings describes how scene coordinates map to real lengths.
type UnitSettings struct {
	// ScaleLength overrides the unit conversion when non-zero.
	ScaleLength float64
	LengthUnit  LengthUnit
}

// UnitScale returns the factor applied to every build item: the scene scale
// override, or else the unit conversion to millimetres, times globalScale.
func UnitScale(units UnitSettings, globalScale float64) float64 {
	if units.ScaleLength != 0 {
		return units.ScaleLength * globalScale
	}
	factor, ok := toMillimeters[units.LengthUnit]
	if !ok {
		factor = 1
	}
	return factor * globalScale
}

// ParseLengthUnit accepts unit names case-insensitively.
func ParseLengthUnit(s string) (LengthUnit, error) {
	u := LengthUnit(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := toMillimeters[u]; !ok {
		return "", errors.Wrapf(ErrUnknownUnit, "%q", s)
	}
	return u, nil
}

// LengthUnits lists every supported unit name, sorted.
func LengthUnits() []string {
	names := make([]string, 0, len(toMillimeters))
	for u := range toMillimeters {
		names = append(names, string(u))
	}
	sort.Strings(names)
	return names
}
