package api

import (
	"github.com/go-faster/jx"
)

// EncodeError writes {"error": msg}.
func EncodeError(e *jx.Encoder, msg string) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("error", func(e *jx.Encoder) { e.Str(msg) })
	})
}

// EncodeErrorDetails writes {"error": msg, "details": details}.
func EncodeErrorDetails(e *jx.Encoder, msg, details string) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("error", func(e *jx.Encoder) { e.Str(msg) })
		e.Field("details", func(e *jx.Encoder) { e.Str(details) })
	})
}

// EncodeMessage writes {"message": msg}.
func EncodeMessage(e *jx.Encoder, msg string) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
}

// EncodeURL writes {"url": url}.
func EncodeURL(e *jx.Encoder, url string) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("url", func(e *jx.Encoder) { e.Str(url) })
	})
}
