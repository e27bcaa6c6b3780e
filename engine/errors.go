package engine

import "fmt"

// ShapeError reports an input array whose rank or trailing channel count
// does not match the interface contract. It is fatal for the call; no
// partial output is returned.
type ShapeError struct {
	Want string
	Got  string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("engine: expect %s, got %s", e.Want, e.Got)
}

func shapeErrorf(channels int, format string, args ...any) *ShapeError {
	return &ShapeError{
		Want: fmt.Sprintf("[T,%d] or [B,T,%d]", channels, channels),
		Got:  fmt.Sprintf(format, args...),
	}
}
