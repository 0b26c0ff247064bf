package bggohcl

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// PrimitiveString renders a string, number or bool value as a string. Compiler
// defines and flags are plain strings, so anything else is rejected.
func PrimitiveString(val cty.Value) (string, error) {
	if val.IsNull() {
		return "", fmt.Errorf("value must not be null")
	}
	if !val.IsWhollyKnown() {
		return "", fmt.Errorf("value is not known")
	}
	switch val.Type() {
	case cty.String, cty.Number, cty.Bool:
	default:
		return "", fmt.Errorf("value must be a string, number, or bool, not %s", val.Type().FriendlyName())
	}
	str, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", err
	}
	return str.AsString(), nil
}
