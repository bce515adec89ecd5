// Package formats provides parsers for the Ragnarok Online model and map
// formats: RSM models, RSW worlds and GND ground meshes.
package formats

import "errors"

// ErrInvalidElementCount is returned when a count field is negative or
// larger than any real file holds.
var ErrInvalidElementCount = errors.New("invalid element count")
