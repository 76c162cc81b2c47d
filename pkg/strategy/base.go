package strategy

import (
	"fmt"
)

// BaseStrategy provides a default implementation of common strategy
// functionality. Concrete strategies embed it and implement Next.
type BaseStrategy struct {
	name       string
	parameters map[string]interface{}
	history    *History
}

// NewBaseStrategy creates a new base strategy
func NewBaseStrategy(name string, parameters map[string]interface{}) *BaseStrategy {
	if parameters == nil {
		parameters = map[string]interface{}{}
	}
	return &BaseStrategy{
		name:       name,
		parameters: parameters,
	}
}

// Init stores the guarded history for use in Next.
func (s *BaseStrategy) Init(h *History) error {
	s.history = h
	return nil
}

// History returns the guarded bar history.
func (s *BaseStrategy) History() *History {
	return s.history
}

// Name returns the strategy name
func (s *BaseStrategy) Name() string {
	return s.name
}

// Parameters returns the strategy parameters
func (s *BaseStrategy) Parameters() map[string]interface{} {
	return s.parameters
}

// ParameterFloat64 returns a parameter as float64
func (s *BaseStrategy) ParameterFloat64(key string) (float64, error) {
	val, ok := s.parameters[key]
	if !ok {
		return 0, fmt.Errorf("parameter %s not found", key)
	}

	switch v := val.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("parameter %s is not a number", key)
	}
}

// ParameterInt returns a parameter as int
func (s *BaseStrategy) ParameterInt(key string) (int, error) {
	val, ok := s.parameters[key]
	if !ok {
		return 0, fmt.Errorf("parameter %s not found", key)
	}

	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("parameter %s is not an integer", key)
	}
}
