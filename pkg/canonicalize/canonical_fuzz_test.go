package canonicalize

import (
	"encoding/json"
	"testing"
)

func FuzzEncode(f *testing.F) {
	f.Add([]byte(`{"a":1,"b":2}`))
	f.Add([]byte(`{"z":{"y":"foo","x":"bar"},"a":1}`))
	f.Add([]byte(`{"html":"<script>alert('x')</script> &"}`))
	f.Add([]byte(`{"num":123.456,"bool":true,"null":null}`))
	f.Add([]byte(`{"arr":[3,1,2],"nested":{"deep":{"key":"val"}}}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`{"":"empty_key","a":""}`))
	f.Add([]byte(`{"unicode":"こんにちは","emoji":"🚀"}`))
	f.Add([]byte(`{"escape":"line1\nline2\ttab"}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			t.Skip("invalid JSON input")
			return
		}

		b1, err := Encode(v)
		if err != nil {
			return
		}

		b2, err := Encode(v)
		if err != nil {
			t.Fatal("Encode errored on second call but not first")
		}
		if string(b1) != string(b2) {
			t.Errorf("Encode non-deterministic:\n  first:  %s\n  second: %s", b1, b2)
		}

		var check any
		if err := json.Unmarshal(b1, &check); err != nil {
			t.Errorf("Encode output is not valid JSON: %s", string(b1))
		}

		h1, err := HashValue(v)
		if err != nil {
			return
		}
		h2, err := HashValue(v)
		if err != nil {
			t.Fatal("HashValue errored on second call but not first")
		}
		if h1 != h2 {
			t.Errorf("HashValue non-deterministic: %s != %s", h1, h2)
		}
	})
}
