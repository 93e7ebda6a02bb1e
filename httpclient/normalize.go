package httpclient

import "encoding/json"

// Decode unwraps the response payload into T. An empty body yields the zero
// value; []byte and string targets receive the raw body.
func Decode[T any](resp *Response) (T, error) {
	var out T
	if resp == nil || len(resp.Body) == 0 {
		return out, nil
	}
	switch p := any(&out).(type) {
	case *[]byte:
		*p = append([]byte(nil), resp.Body...)
		return out, nil
	case *string:
		*p = string(resp.Body)
		return out, nil
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, &validationError{message: "failed to decode response body", field: "body", err: err}
	}
	return out, nil
}

// As composes with a verb call:
//
//	user, err := httpclient.As[User](c.Get(ctx, &httpclient.Request{URL: "/users/1"}))
func As[T any](resp *Response, err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](resp)
}
