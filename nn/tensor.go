package nn

// Tensor is a dense row-major numeric array. Shape is the logical dimension
// list, Strides the element step per axis. Layers index Data directly with
// flat offsets; Strides exist so reshaped views stay cheap.
type Tensor struct {
	Data    []float64
	Shape   []int
	Strides []int
}

// NewTensor allocates a zeroed tensor with the given shape.
func NewTensor(shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Tensor{Data: make([]float64, n), Shape: shape, Strides: rowMajorStrides(shape)}
}

// NewTensorFromSlice wraps an existing slice without copying. The slice
// length must match the product of the shape.
func NewTensorFromSlice(data []float64, shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n != len(data) {
		return nil
	}
	return &Tensor{Data: data, Shape: shape, Strides: rowMajorStrides(shape)}
}

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	s := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= shape[i]
	}
	return strides
}

// Size returns the total element count.
func (t *Tensor) Size() int { return len(t.Data) }

// Dim returns the length of axis i.
func (t *Tensor) Dim(i int) int { return t.Shape[i] }

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	c := NewTensor(t.Shape...)
	copy(c.Data, t.Data)
	return c
}

// Reshape returns a view with a new shape, or nil if the element counts
// differ.
func (t *Tensor) Reshape(shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n != len(t.Data) {
		return nil
	}
	return &Tensor{Data: t.Data, Shape: shape, Strides: rowMajorStrides(shape)}
}

// SameShape reports whether both tensors have identical shapes.
func (t *Tensor) SameShape(o *Tensor) bool {
	if len(t.Shape) != len(o.Shape) {
		return false
	}
	for i, d := range t.Shape {
		if o.Shape[i] != d {
			return false
		}
	}
	return true
}
