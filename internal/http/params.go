package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// ErrParamsNotObject is returned when query parameters do not encode to a
// JSON object.
var ErrParamsNotObject = errors.New("request parameters must encode to an object")

// EncodeParams flattens a request value into query parameters the way the
// kintone REST API reads them: nested objects as "a[b]" and arrays as "a[0]".
// url.Values pass through unchanged.
func EncodeParams(params interface{}) (url.Values, error) {
	values := url.Values{}

	switch typed := params.(type) {
	case nil:
		return values, nil
	case url.Values:
		return typed, nil
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encoding request parameters: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var tree interface{}

	err = decoder.Decode(&tree)
	if err != nil {
		return nil, fmt.Errorf("decoding request parameters: %w", err)
	}

	object, ok := tree.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrParamsNotObject, params)
	}

	for key, value := range object {
		flatten(values, key, value)
	}

	return values, nil
}

func flatten(values url.Values, prefix string, value interface{}) {
	switch typed := value.(type) {
	case nil:
	case map[string]interface{}:
		for key, child := range typed {
			flatten(values, prefix+"["+key+"]", child)
		}
	case []interface{}:
		for i, child := range typed {
			flatten(values, prefix+"["+strconv.Itoa(i)+"]", child)
		}
	case bool:
		values.Add(prefix, strconv.FormatBool(typed))
	case json.Number:
		values.Add(prefix, typed.String())
	case string:
		values.Add(prefix, typed)
	default:
		values.Add(prefix, fmt.Sprint(typed))
	}
}
