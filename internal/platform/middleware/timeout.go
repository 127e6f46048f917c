package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// timeoutWriter buffers handler headers and drops handler writes once the
// deadline response has been sent.
type timeoutWriter struct {
	w    http.ResponseWriter
	h    http.Header
	mu   sync.Mutex
	late bool
	sent bool
}

func (tw *timeoutWriter) Header() http.Header { return tw.h }

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.late || tw.sent {
		return
	}
	tw.writeHeaderLocked(code)
}

func (tw *timeoutWriter) writeHeaderLocked(code int) {
	tw.sent = true
	dst := tw.w.Header()
	for k, v := range tw.h {
		dst[k] = v
	}
	tw.w.WriteHeader(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.late {
		return 0, http.ErrHandlerTimeout
	}
	if !tw.sent {
		tw.writeHeaderLocked(http.StatusOK)
	}
	return tw.w.Write(b)
}

// expire sends body as a 504 unless the handler already started its
// response. It reports whether the 504 was sent.
func (tw *timeoutWriter) expire(body []byte) bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.sent {
		return false
	}
	tw.late = true
	tw.w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	tw.w.WriteHeader(http.StatusGatewayTimeout)
	_, _ = tw.w.Write(body)
	return true
}

// Timeout sets a deadline on the request context. Handlers that outlive it
// get a 504 with {"error":"timeout"}; anything they write afterwards is
// discarded. The middleware returns only once the handler has returned, so
// the echo.Context is never shared with a running handler after release.
func Timeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if timeout <= 0 {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			res := c.Response()
			orig := res.Writer
			tw := &timeoutWriter{w: orig, h: make(http.Header)}
			for k, v := range orig.Header() {
				tw.h[k] = v
			}
			res.Writer = tw
			defer func() { res.Writer = orig }()

			done := make(chan error, 1)
			go func() {
				defer func() {
					if r := recover(); r != nil {
						done <- fmt.Errorf("panic: %v", r)
					}
				}()
				done <- next(c)
			}()

			var err error
			select {
			case err = <-done:
				return err
			case <-ctx.Done():
			}

			if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return <-done
			}

			body, _ := json.Marshal(map[string]string{
				"error":   "timeout",
				"message": "request exceeded " + timeout.String(),
			})
			expired := tw.expire(body)
			err = <-done
			if !expired {
				return err
			}

			res.Status = http.StatusGatewayTimeout
			res.Size = int64(len(body))
			res.Committed = true
			return nil
		}
	}
}
