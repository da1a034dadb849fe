package router

import (
	"time"

	"github.com/meshframe/actorcore/completer"
	"github.com/meshframe/actorcore/content"
)

// Signal is an in-flight message: addressing, payload, and the lifecycle
// flags that let a dispatch chain short-circuit once something has
// claimed it.
type Signal struct {
	Router      *Router
	Sender      ModelRef // optional; callers may leave this nil
	Destination ModelRef
	Content     *content.Envelope
	Handled     bool
	Expiration  time.Time // zero value means "never expires"
	Response    *content.Envelope
	Completer   *completer.Completer
}

// Expired reports whether this signal's expiration has passed. A zero
// Expiration never expires.
func (s *Signal) Expired() bool {
	return !s.Expiration.IsZero() && time.Now().After(s.Expiration)
}

// GetData attempts a direct narrowed read of the signal's content
// payload, without going through the router's unpack path. It is the
// right call for untyped/plain payloads; packed payloads need
// UnpackData instead.
func GetData[T any](s *Signal) (T, bool) {
	return content.GetData[T](s.Content)
}

// UnpackData additionally unwraps a packed payload through the router
// before narrowing to T, for content that went through PackContent.
func UnpackData[T any](s *Signal) (T, bool) {
	var zero T
	if s.Router == nil || s.Content == nil {
		return zero, false
	}
	data, err := s.Router.UnpackContent(s.Content)
	if err != nil {
		return zero, false
	}
	v, ok := data.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// HeaderName resolves this signal's content header to its registered
// name, lazily, via the router.
func (s *Signal) HeaderName() (string, bool) {
	if s.Router == nil || s.Content == nil {
		return "", false
	}
	return s.Router.GetHeaderName(s.Content.SignalIndex())
}

// Fulfill delivers resp to the signal's completer, if one was attached
// by an awaitable send, and records it as the signal's response content.
func (s *Signal) Fulfill(resp *content.Envelope) {
	s.Response = resp
	if s.Completer != nil {
		var data any
		if resp != nil {
			data = resp.Data
		}
		s.Completer.Fulfill(data)
	}
}
