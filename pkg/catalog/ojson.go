package catalog

import (
	"encoding/json"
	"fmt"
	"io"
)

// The catalog format is order-significant in two places: the child order of a
// feature node and the declaration order of instruction-set source variants.
// encoding/json maps discard key order, so objects are decoded through the
// token stream into jsonObject, which remembers it.

type jsonObject struct {
	keys   []string
	values map[string]any
}

func (o *jsonObject) get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// decodeOrdered reads one JSON value from dec. Objects become *jsonObject,
// arrays []any, and scalars string/json.Number/bool/nil.
func decodeOrdered(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeValue(dec, tok)
}

func decodeValue(dec *json.Decoder, tok json.Token) (any, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	default:
		return tok, nil
	}
}

func decodeObject(dec *json.Decoder) (*jsonObject, error) {
	obj := &jsonObject{values: make(map[string]any)}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(json.Delim); ok && d == '}' {
			return obj, nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is not a string: %v", tok)
		}
		valTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		val, err := decodeValue(dec, valTok)
		if err != nil {
			return nil, err
		}
		if _, dup := obj.values[key]; !dup {
			obj.keys = append(obj.keys, key)
		}
		obj.values[key] = val
	}
}

func decodeArray(dec *json.Decoder) ([]any, error) {
	arr := []any{}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(json.Delim); ok && d == ']' {
			return arr, nil
		}
		val, err := decodeValue(dec, tok)
		if err != nil {
			return nil, err
		}
		arr = append(arr, val)
	}
}

// decodeDocument reads the single top-level object of a catalog file.
func decodeDocument(r io.Reader) (*jsonObject, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	v, err := decodeOrdered(dec)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*jsonObject)
	if !ok {
		return nil, fmt.Errorf("top-level value is not an object")
	}
	return obj, nil
}

// stringList coerces a JSON value that may be a scalar string or an array of
// strings into a flat []string. Returns an error for any other shape.
func stringList(v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected string or list of strings, got %T", v)
	}
}
