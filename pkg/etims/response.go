package etims

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// ResultCodeSuccess is the resultCd eTims uses for a successful call.
const ResultCodeSuccess = "0000"

// Response is the success envelope returned by every SDK operation.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// resultHeader holds the result fields eTims puts in every business response body.
type resultHeader struct {
	ResultCd  any    `json:"resultCd"`
	ResultMsg string `json:"resultMsg"`
}

// NormalizeResponse turns a raw eTims response into its payload or an *APIError.
//
// eTims signals business failures inside 200 bodies as well as through HTTP
// status, so the status alone never decides success: a missing or unparseable
// body fails with status 500; a body whose resultCd is present and not "0000"
// fails with the transport status, or 400 when there is none; any other body
// is returned unchanged.
func NormalizeResponse(status int, body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, &APIError{Message: "Invalid API response", StatusCode: http.StatusInternalServerError}
	}
	if !json.Valid(trimmed) {
		return nil, &APIError{
			Message:    "Invalid API response",
			StatusCode: http.StatusInternalServerError,
			Details:    truncate(string(trimmed), 256),
		}
	}

	if trimmed[0] == '{' {
		var hdr resultHeader
		if err := json.Unmarshal(trimmed, &hdr); err == nil {
			if code := resultCode(hdr.ResultCd); code != "" && code != ResultCodeSuccess {
				msg := hdr.ResultMsg
				if msg == "" {
					msg = "API Error"
				}
				local := status
				if local == 0 {
					local = http.StatusBadRequest
				}
				return nil, &APIError{Message: msg, StatusCode: local, Code: code}
			}
		}
	}

	return json.RawMessage(trimmed), nil
}

// resultCode renders resultCd as a string; eTims sends strings but some
// sandbox responses carry bare numbers. Numeric 0 and false count as absent.
func resultCode(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case bool:
		if !c {
			return ""
		}
		return "true"
	case float64:
		if c == 0 {
			return ""
		}
		return fmt.Sprintf("%g", c)
	default:
		return fmt.Sprint(c)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
