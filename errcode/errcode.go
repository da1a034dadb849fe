// Package errcode is the stable error taxonomy shared by router, model,
// container and provider. Codes are comparable, allocation-free, and
// implement error directly so call sites can compare against them
// without unwrapping.
package errcode

// Code is a stable error identifier.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes, matching the taxonomy of the router/model/provider
// specification.
const (
	OK Code = "ok"

	// Router configuration.
	RegistryFull       Code = "registry_full"
	RouterAlreadyBuilt Code = "router_already_built"
	UnknownSignal      Code = "unknown_signal"
	SignalAlreadyExist Code = "signal_already_exists"

	// Packing path.
	NoEncoder       Code = "no_encoder"
	InvalidEncoder  Code = "invalid_encoder"
	EncoderCallback Code = "encoder_callback_error"

	// Unpacking path.
	NoDecoder       Code = "no_decoder"
	InvalidDecoder  Code = "invalid_decoder"
	DecoderCallback Code = "decoder_callback_error"

	// Serializer.
	InvalidData Code = "invalid_data"

	// Programmer errors at Content/Signal boundaries.
	ArgumentError Code = "argument_error"
	IndexError    Code = "index_error"
	TypeMismatch  Code = "type_mismatch"

	Error Code = "error" // generic fallback
)

// E wraps a Code with the offending op, a message, and an optional cause.
type E struct {
	C    Code
	Op   string
	Msg  string
	Type string // offending Go type, where known (packing/unpacking errors)
	Err  error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s += " (" + e.Op + ")"
	}
	if e.Type != "" {
		s += ": type " + e.Type
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}

func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// New builds an *E with the given code, op and message.
func New(c Code, op, msg string) *E {
	return &E{C: c, Op: op, Msg: msg}
}

// Wrap builds an *E that carries a cause.
func Wrap(c Code, op string, err error) *E {
	return &E{C: c, Op: op, Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
