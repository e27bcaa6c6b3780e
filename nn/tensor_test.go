package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTensorCreation(t *testing.T) {
	tensor := NewTensor(3, 4)
	assert.Equal(t, 12, tensor.Size())
	assert.Equal(t, []int{3, 4}, tensor.Shape)
	assert.Equal(t, []int{4, 1}, tensor.Strides)

	fromSlice := NewTensorFromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NotNil(t, fromSlice)
	assert.Equal(t, 1.0, fromSlice.Data[0])
	assert.Equal(t, 6.0, fromSlice.Data[5])

	assert.Nil(t, NewTensorFromSlice([]float64{1, 2}, 3))
}

func TestTensorClone(t *testing.T) {
	original := NewTensorFromSlice([]float64{1, 2, 3, 4}, 4)
	clone := original.Clone()

	original.Data[0] = 100
	assert.Equal(t, 1.0, clone.Data[0], "clone must not alias the original")
}

func TestTensorReshape(t *testing.T) {
	tensor := NewTensorFromSlice([]float64{1, 2, 3, 4, 5, 6}, 6)

	reshaped := tensor.Reshape(2, 3)
	require.NotNil(t, reshaped)
	assert.Equal(t, []int{2, 3}, reshaped.Shape)
	// Reshape is a view, not a copy.
	reshaped.Data[0] = 9
	assert.Equal(t, 9.0, tensor.Data[0])

	assert.Nil(t, tensor.Reshape(2, 2))
}

func TestSameShape(t *testing.T) {
	a := NewTensor(2, 3)
	assert.True(t, a.SameShape(NewTensor(2, 3)))
	assert.False(t, a.SameShape(NewTensor(3, 2)))
	assert.False(t, a.SameShape(NewTensor(6)))
}
