package lightup

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// TypedResponse pairs a Response with its body decoded into T.
type TypedResponse[T any] struct {
	*Response
	Value T
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if r == nil {
		return newClientError(ErrorTypeEncoding, "response body could not be decoded", nil, fmt.Errorf("nil response"))
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return newClientError(ErrorTypeEncoding, "response body could not be decoded", r.Config, err)
	}
	return nil
}

// Query runs a jq expression over the JSON body and returns every result.
func (r *Response) Query(ctx context.Context, expression string) ([]any, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("compile error: %w", err)
	}

	input, err := r.queryInput()
	if err != nil {
		return nil, err
	}

	var results []any
	iter := code.RunWithContext(ctx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			if haltErr, isHalt := err.(*gojq.HaltError); isHalt && haltErr.Value() == nil {
				break
			}
			return nil, err
		}
		results = append(results, v)
	}
	return results, nil
}

// queryInput returns the decoded JSON value. Data is reused when it already
// holds decoded JSON; otherwise the body is parsed.
func (r *Response) queryInput() (any, error) {
	if r == nil {
		return nil, fmt.Errorf("nil response")
	}
	switch r.Data.(type) {
	case map[string]any, []any, float64, bool, nil:
		if r.Data != nil || len(r.Body) == 0 {
			return r.Data, nil
		}
	}
	var input any
	if err := json.Unmarshal(r.Body, &input); err != nil {
		return nil, newClientError(ErrorTypeEncoding, "response body could not be decoded", r.Config, err)
	}
	return input, nil
}

// GetTyped sends a GET request and decodes the JSON body into T.
func GetTyped[T any](ctx context.Context, c *Client, url string, opts ...RequestOption) (*TypedResponse[T], error) {
	resp, err := c.Get(ctx, url, opts...)
	if err != nil {
		return nil, err
	}
	return decodeTyped[T](resp)
}

// PostTyped sends a POST request with data and decodes the JSON body into T.
func PostTyped[T any](ctx context.Context, c *Client, url string, data any, opts ...RequestOption) (*TypedResponse[T], error) {
	resp, err := c.Post(ctx, url, data, opts...)
	if err != nil {
		return nil, err
	}
	return decodeTyped[T](resp)
}

func decodeTyped[T any](resp *Response) (*TypedResponse[T], error) {
	typed := &TypedResponse[T]{Response: resp}
	if err := resp.Decode(&typed.Value); err != nil {
		return typed, err
	}
	return typed, nil
}

// GetJSON sends a GET request and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any, opts ...RequestOption) error {
	resp, err := c.Get(ctx, url, opts...)
	if err != nil {
		return err
	}
	return resp.Decode(v)
}

// PostJSON sends data as JSON and decodes the JSON body into v.
func (c *Client) PostJSON(ctx context.Context, url string, data, v any, opts ...RequestOption) error {
	resp, err := c.Post(ctx, url, data, opts...)
	if err != nil {
		return err
	}
	return resp.Decode(v)
}
