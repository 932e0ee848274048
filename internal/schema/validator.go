// Package schema validates outbound JSON-RPC params against CUE definitions.
//
// The wire schema lives in schema.cue (embedded). Each method has one
// definition named "#" + method. Definitions are closed, so unknown fields
// are violations, except #WorkOrderSubmit whose body is caller-defined.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/tcf/internal/jrpc"
)

//go:embed schema.cue
var schemaSource string

// Validation error codes (V100-V199).
const (
	ErrUnknownMethod = "V100" // no definition for method
	ErrEncodeParams  = "V101" // params could not be encoded as JSON
	ErrMissingField  = "V102" // required field absent
	ErrUnknownField  = "V103" // field not allowed by a closed definition
	ErrInvalidValue  = "V104" // value outside the allowed type or range
	ErrSchema        = "V105" // other schema failure
)

// ValidationError is one schema violation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validator checks params against the embedded CUE schema.
//
// Thread-safety: a cue.Context is not safe for concurrent use, so all
// evaluation is serialized through mu.
type Validator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

// New compiles the embedded schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{ctx: ctx, schema: v}, nil
}

// MustNew is like New but panics on error.
// The schema is embedded, so failure means a broken build.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate implements jrpc.Validator. Violations are returned as a
// jrpc SchemaViolation error whose Details hold []ValidationError.
func (v *Validator) Validate(id string, method jrpc.Method, params any) error {
	errs := v.Check(method, params)
	if len(errs) == 0 {
		return nil
	}
	msg := errs[0].Error()
	if len(errs) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(errs)-1)
	}
	return jrpc.SchemaViolation(method, id, msg, errs)
}

// Check returns every violation of params against method's definition.
// Returns nil when params are valid.
func (v *Validator) Check(method jrpc.Method, params any) []ValidationError {
	data, err := json.Marshal(params)
	if err != nil {
		return []ValidationError{{
			Field:   "params",
			Message: fmt.Sprintf("encode params: %v", err),
			Code:    ErrEncodeParams,
		}}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	def := v.schema.LookupPath(cue.ParsePath("#" + string(method)))
	if !def.Exists() {
		return []ValidationError{{
			Field:   "method",
			Message: fmt.Sprintf("no schema for method %q", method),
			Code:    ErrUnknownMethod,
		}}
	}

	value := v.ctx.CompileBytes(data, cue.Filename(string(method)+".json"))
	if err := value.Err(); err != nil {
		return convertErrors(err)
	}

	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return convertErrors(err)
	}
	return nil
}

// Methods returns the methods that have a schema definition.
func (v *Validator) Methods() []jrpc.Method {
	v.mu.Lock()
	defer v.mu.Unlock()

	var out []jrpc.Method
	for _, m := range jrpc.Methods {
		if v.schema.LookupPath(cue.ParsePath("#" + string(m))).Exists() {
			out = append(out, m)
		}
	}
	return out
}

// convertErrors flattens a CUE error list into ValidationErrors.
func convertErrors(err error) []ValidationError {
	var out []ValidationError
	seen := make(map[string]bool)
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		field := fieldPath(e.Path())

		key := field + "\x00" + msg
		if seen[key] {
			continue
		}
		seen[key] = true

		out = append(out, ValidationError{
			Field:   field,
			Message: msg,
			Code:    classify(msg),
		})
	}
	if len(out) == 0 {
		out = append(out, ValidationError{Message: err.Error(), Code: ErrSchema})
	}
	return out
}

// fieldPath joins a CUE error path, dropping definition selectors so the
// field reads relative to the params object.
func fieldPath(path []string) string {
	parts := make([]string, 0, len(path))
	for _, p := range path {
		if strings.HasPrefix(p, "#") {
			continue
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ".")
}

// classify maps a CUE error message to a validation code.
func classify(msg string) string {
	switch {
	case strings.Contains(msg, "incomplete"):
		return ErrMissingField
	case strings.Contains(msg, "not allowed"):
		return ErrUnknownField
	case strings.Contains(msg, "conflicting values"),
		strings.Contains(msg, "invalid value"),
		strings.Contains(msg, "out of bound"),
		strings.Contains(msg, "empty disjunction"):
		return ErrInvalidValue
	default:
		return ErrSchema
	}
}
