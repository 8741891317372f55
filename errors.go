package recolor

import "errors"

// Errors reported by the recoloring pipeline. They are wrapped with
// context where they occur; match with errors.Is.
var (
	// ErrInvalidImage is returned for zero-sized input images.
	ErrInvalidImage = errors.New("invalid image")

	// ErrPaletteTooSmall is returned for palettes of fewer than 4
	// colors. A 3D polytope needs at least the 4 vertices of a
	// tetrahedron.
	ErrPaletteTooSmall = errors.New("the minimum palette size is 4")

	// ErrRedundantPalette is returned when not every palette color is a
	// vertex of the palette's 3D convex hull. A redundant color is a
	// convex combination of the others and can never be recovered as a
	// distinct channel.
	ErrRedundantPalette = errors.New("the palette contains redundant colors")

	// ErrPaletteSizeMismatch is returned when a reconstruction palette
	// does not match the decomposition palette's size.
	ErrPaletteSizeMismatch = errors.New("palette size mismatch")

	// ErrChannelOutOfRange is returned for channel indices at or past
	// the number of palette channels.
	ErrChannelOutOfRange = errors.New("channel index out of range")
)
