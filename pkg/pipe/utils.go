package pipe

import "reflect"

// IsNil reports whether i is nil or a nil pointer wrapped in an interface.
func IsNil(i interface{}) bool {
	if i == nil {
		return true
	}
	v := reflect.ValueOf(i)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
