package http

import (
	"fmt"

	"github.com/freekieb7/espweb/transform"
)

type Middleware func(next Handler) Handler

func RecoverMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(req *Request, res *Response) {
			defer func() {
				if recover := recover(); recover != nil {
					req.logger().ErrorContext(req.Context(), "handler panic",
						"panic", fmt.Sprint(recover),
						"path", req.Path(),
						"request_id", req.ID(),
					)

					if !res.Committed() {
						res.SendError(StatusInternalServerError, "something went wrong")
					}
				}
			}()

			next(req, res)
		}
	}
}

// SessionMiddleware makes sure every request carries a session id before the
// handler runs.
func SessionMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(req *Request, res *Response) {
			if _, err := req.BeginSession(res); err != nil {
				req.logger().WarnContext(req.Context(), "begin session failed", "error", err)
			}

			next(req, res)
		}
	}
}

// InjectMiddleware configures head injection and template substitution for
// the HTML the handler sends.
func InjectMiddleware(snippet string, resolver transform.Resolver) Middleware {
	return func(next Handler) Handler {
		return func(req *Request, res *Response) {
			if snippet != "" {
				res.SetHeadInjection(snippet)
			}
			if resolver != nil {
				res.SetTemplateHandler(resolver)
			}

			next(req, res)
		}
	}
}
