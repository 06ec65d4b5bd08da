package utils

import "github.com/spf13/cast"

// AttributeMap is a map of string to interface{} used for the model specific attributes of a
// filter or mapping profile in a config file.
type AttributeMap map[string]interface{}

// Has returns whether the map contains the given attribute.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// Float64 returns the named attribute as a float64, or def when absent or not convertible.
// Numbers of any width and numeric strings convert.
func (am AttributeMap) Float64(name string, def float64) float64 {
	v, ok := am[name]
	if !ok || v == nil {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return def
	}
	return f
}

// String returns the named attribute as a string, or def when absent or not convertible.
func (am AttributeMap) String(name, def string) string {
	v, ok := am[name]
	if !ok || v == nil {
		return def
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return def
	}
	return s
}
