package threemf

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// IdentityTransform is the 3MF text form of the identity matrix.
const IdentityTransform = "1 0 0 0 1 0 0 0 1 0 0 0"

// Compose multiplies the matrices left to right. The leftmost matrix ends up
// applied last (outermost in world space).
func Compose(ms ...mgl64.Mat4) mgl64.Mat4 {
	result := mgl64.Ident4()
	for _, m := range ms {
		result = result.Mul4(m)
	}
	return result
}

// UniformScale returns a matrix scaling all three axes by s.
func UniformScale(s float64) mgl64.Mat4 {
	return mgl64.Scale3D(s, s, s)
}

// singularDet is the determinant below which a world transform has no usable
// inverse.
const singularDet = 1e-12

// RelativeTransform returns the transform placing child relative to parent,
// given both world transforms. parentWorld must be invertible.
func RelativeTransform(parentWorld, childWorld mgl64.Mat4) mgl64.Mat4 {
	return parentWorld.Inv().Mul4(childWorld)
}

// componentTransform places child inside the object of a parent whose world
// transform is parentWorld. A parent flattened to zero on some axis has no
// inverse, so the child's own local transform is used instead.
func componentTransform(parentWorld mgl64.Mat4, child Node) mgl64.Mat4 {
	if math.Abs(parentWorld.Det()) < singularDet {
		return child.Local()
	}
	return RelativeTransform(parentWorld, child.World())
}

// FormatTransform renders the upper 3x4 block of m in the column order 3MF
// expects: the three basis columns, then the translation.
func FormatTransform(m mgl64.Mat4, precision int) string {
	cells := make([]string, 0, 12)
	for col := 0; col < 4; col++ {
		for row := 0; row < 3; row++ {
			cells = append(cells, FormatNumber(m.At(row, col), precision))
		}
	}
	return strings.Join(cells, " ")
}

// transformAttr returns the transform attribute value for m, or "" when m
// formats to the identity and the attribute has to be left out.
func transformAttr(m mgl64.Mat4, precision int) string {
	s := FormatTransform(m, precision)
	if s == IdentityTransform {
		return ""
	}
	return s
}
