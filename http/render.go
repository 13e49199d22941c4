package http

import (
	"github.com/tidwall/sjson"
)

// JSONErrorRenderer renders error bodies as {"status":..,"error":..,"path":..}.
func JSONErrorRenderer() ErrorRenderer {
	return func(req *Request, res *Response, code int, message string) {
		body, err := sjson.SetBytes(nil, "status", code)
		if err == nil {
			body, err = sjson.SetBytes(body, "error", message)
		}
		if err == nil {
			body, err = sjson.SetBytes(body, "path", req.Path())
		}
		if err == nil && req.id != "" {
			body, err = sjson.SetBytes(body, "request_id", req.id)
		}
		if err != nil {
			req.logger().ErrorContext(req.Context(), "render error body failed", "error", err)
			return
		}

		res.Send(code, "application/json", body)
	}
}
