package nn

// ActivationType selects the nonlinearity applied after a layer.
type ActivationType int

const (
	ActivationLinear ActivationType = iota
	ActivationReLU
)

// Activate applies the activation function to a single pre-activation value.
func Activate(v float64, activation ActivationType) float64 {
	switch activation {
	case ActivationReLU:
		if v < 0 {
			return 0
		}
		return v
	default:
		return v
	}
}

// ActivateDerivative computes the derivative with respect to the
// pre-activation value.
func ActivateDerivative(preActivation float64, activation ActivationType) float64 {
	switch activation {
	case ActivationReLU:
		if preActivation > 0 {
			return 1
		}
		return 0
	default:
		return 1
	}
}
