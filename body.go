package lightup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

var errRelativeURL = errors.New("request URL must be absolute when no base URL is set")

// buildFullURL resolves ref against base and appends params.
func buildFullURL(base, ref string, params url.Values) (string, error) {
	target, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if base != "" {
		baseURL, err := url.Parse(base)
		if err != nil {
			return "", err
		}
		target = baseURL.ResolveReference(target)
	}
	if target.Scheme == "" || target.Host == "" {
		return "", errRelativeURL
	}

	if len(params) > 0 {
		query := target.Query()
		for k, vs := range params {
			for _, v := range vs {
				query.Add(k, v)
			}
		}
		target.RawQuery = query.Encode()
	}
	return target.String(), nil
}

// encodeBody serializes cfg.Data. It returns the payload and, when the
// caller did not set one, the Content-Type that matches the encoding.
//
// Strings, byte slices and readers are sent as-is. With a form content type
// (or url.Values and no content type) the data is form encoded. Anything
// else is encoded as JSON.
func encodeBody(cfg *Config) ([]byte, string, error) {
	if cfg.Data == nil {
		return nil, "", nil
	}
	contentType := strings.ToLower(cfg.Headers.Get("Content-Type"))

	switch data := cfg.Data.(type) {
	case []byte:
		return data, "", nil
	case string:
		return []byte(data), "", nil
	case io.Reader:
		payload, err := io.ReadAll(data)
		return payload, "", err
	}

	isForm := strings.Contains(contentType, contentTypeForm)
	if _, ok := cfg.Data.(url.Values); ok && contentType == "" {
		isForm = true
	}
	if isForm {
		values, err := formValues(cfg.Data)
		if err != nil {
			return nil, "", err
		}
		return []byte(values.Encode()), defaultContentType(contentType, contentTypeForm), nil
	}

	payload, err := json.Marshal(cfg.Data)
	if err != nil {
		return nil, "", err
	}
	return payload, defaultContentType(contentType, contentTypeJSON), nil
}

func defaultContentType(current, fallback string) string {
	if current != "" {
		return ""
	}
	return fallback
}

func formValues(data any) (url.Values, error) {
	switch v := data.(type) {
	case url.Values:
		return v, nil
	case map[string][]string:
		return url.Values(v), nil
	case map[string]string:
		values := make(url.Values, len(v))
		for k, s := range v {
			values.Set(k, s)
		}
		return values, nil
	case map[string]any:
		values := make(url.Values, len(v))
		for k, s := range v {
			values.Set(k, fmt.Sprint(s))
		}
		return values, nil
	default:
		return nil, fmt.Errorf("cannot form-encode %T", data)
	}
}

// decodeData exposes body according to the response type. JSON decoding
// failures are swallowed and leave the raw text.
func decodeData(rt ResponseType, contentType string, body []byte) any {
	switch rt {
	case ResponseTypeBytes:
		return body
	case ResponseTypeText:
		return string(body)
	}

	if strings.Contains(strings.ToLower(contentType), contentTypeJSON) && utf8.Valid(body) {
		var parsed any
		if err := json.Unmarshal(body, &parsed); err == nil {
			return parsed
		}
	}
	return string(body)
}
