package canonicalize

import (
	"encoding/json"
	"testing"

	"github.com/gowebpki/jcs"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: for any string-keyed object, Encode is deterministic and
// agrees with the reference RFC 8785 transform.
func TestEncodeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("Encode is deterministic", prop.ForAll(
		func(keys []string, values []string) bool {
			obj := make(map[string]any)
			for i := 0; i < len(keys) && i < len(values); i++ {
				obj[keys[i]] = values[i]
			}

			b1, err1 := Encode(obj)
			b2, err2 := Encode(obj)
			if err1 != nil || err2 != nil {
				return err1 != nil && err2 != nil
			}
			return string(b1) == string(b2)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("Encode matches reference transform", prop.ForAll(
		func(keys []string, values []int) bool {
			obj := make(map[string]any)
			for i := 0; i < len(keys) && i < len(values); i++ {
				obj[keys[i]] = values[i]
			}

			ours, err := Encode(obj)
			if err != nil {
				return false
			}
			plain, err := json.Marshal(obj)
			if err != nil {
				return false
			}
			ref, err := jcs.Transform(plain)
			if err != nil {
				return false
			}
			return string(ours) == string(ref)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.IntRange(-1<<31, 1<<31)),
	))

	properties.TestingRun(t)
}
