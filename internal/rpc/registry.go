package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/qri-io/jsonschema"
)

// package-level logger; can be replaced by callers via SetLogger
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the rpc package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// HandlerFunc is a procedure body. c.Input has already passed schema
// validation when the procedure declares a schema.
type HandlerFunc func(ctx context.Context, c *Call) (any, error)

// Bind adapts a typed body: the validated input is decoded into T.
func Bind[T any](fn func(ctx context.Context, in T) (any, error)) HandlerFunc {
	return func(ctx context.Context, c *Call) (any, error) {
		var in T
		if len(c.Input) > 0 {
			if err := json.Unmarshal(c.Input, &in); err != nil {
				return nil, Errorf(CodeBadRequest, "Invalid input: %v", err)
			}
		}
		return fn(ctx, in)
	}
}

// Procedure is one registered RPC operation.
type Procedure struct {
	Path    string
	Kind    Kind
	Tier    Tier
	schema  *jsonschema.Schema
	chain   []Middleware
	handler HandlerFunc
}

// Option customizes a procedure at registration.
type Option func(*Procedure)

// WithSchema validates input against s before the body runs.
func WithSchema(s *jsonschema.Schema) Option {
	return func(p *Procedure) { p.schema = s }
}

// Use appends middlewares that run after the tier gate.
func Use(mw ...Middleware) Option {
	return func(p *Procedure) { p.chain = append(p.chain, mw...) }
}

// CompileSchema parses a JSON Schema document.
func CompileSchema(raw []byte) (*jsonschema.Schema, error) {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(raw, rs); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return rs, nil
}

// Registry maps procedure paths such as "news.create" to procedures.
type Registry struct {
	mu    sync.RWMutex
	procs map[string]*Procedure
}

func NewRegistry() *Registry {
	return &Registry{procs: make(map[string]*Procedure)}
}

// Query registers a read procedure.
func (r *Registry) Query(path string, tier Tier, h HandlerFunc, opts ...Option) {
	r.register(path, Query, tier, h, opts)
}

// Mutation registers a write procedure.
func (r *Registry) Mutation(path string, tier Tier, h HandlerFunc, opts ...Option) {
	r.register(path, Mutation, tier, h, opts)
}

func (r *Registry) register(path string, kind Kind, tier Tier, h HandlerFunc, opts []Option) {
	p := &Procedure{Path: path, Kind: kind, Tier: tier, handler: h, chain: TierChain(tier)}
	for _, o := range opts {
		o(p)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.procs[path]; dup {
		panic("rpc: duplicate procedure " + path)
	}
	r.procs[path] = p
}

// Lookup returns the procedure registered at path.
func (r *Registry) Lookup(path string) (*Procedure, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.procs[path]
	return p, ok
}

// Paths lists registered procedure paths in order.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.procs))
	for p := range r.procs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Invoke runs one call: gate, extra middlewares, input validation, body.
func (r *Registry) Invoke(ctx context.Context, c *Call) (any, error) {
	p, ok := r.Lookup(c.Path)
	if !ok {
		return nil, Errorf(CodeNotFound, "No %q-procedure on path %q", c.Kind.String(), c.Path)
	}
	if p.Kind != c.Kind {
		return nil, Errorf(CodeMethodNotSupported, "Unsupported %s-method to %s procedure at path %q", c.Kind, p.Kind, c.Path)
	}

	ctx, err := runChain(ctx, c, p.chain)
	if err != nil {
		return nil, err
	}

	if p.schema != nil {
		c.Input = normalizeInput(c.Input)
		if err := validate(ctx, p.schema, c.Input); err != nil {
			return nil, err
		}
	}

	return p.handler(ctx, c)
}

// normalizeInput treats a missing or null input as an empty object so
// optional-input procedures validate and required fields still report.
func normalizeInput(in json.RawMessage) json.RawMessage {
	t := bytes.TrimSpace(in)
	if len(t) == 0 || bytes.Equal(t, []byte("null")) {
		return json.RawMessage("{}")
	}
	return in
}

func validate(ctx context.Context, s *jsonschema.Schema, input json.RawMessage) error {
	kerrs, err := s.ValidateBytes(ctx, input)
	if err != nil {
		return Errorf(CodeParseError, "Invalid JSON input: %v", err)
	}
	if len(kerrs) == 0 {
		return nil
	}

	fields := make([]FieldError, 0, len(kerrs))
	msgs := make([]string, 0, len(kerrs))
	for _, ke := range kerrs {
		fe := FieldError{Field: fieldName(ke.PropertyPath, ke.Message), Message: ke.Message}
		fields = append(fields, fe)
		if fe.Field != "" {
			msgs = append(msgs, fe.Field+": "+fe.Message)
		} else {
			msgs = append(msgs, fe.Message)
		}
	}
	return &Error{Code: CodeBadRequest, Message: "Invalid input: " + strings.Join(msgs, "; "), Fields: fields}
}

// fieldName derives the offending field from a schema error. Missing
// required properties are reported against the parent path with the name
// quoted in the message.
func fieldName(path, msg string) string {
	field := strings.Trim(strings.ReplaceAll(path, "/", "."), ".")
	if strings.HasSuffix(msg, "value is required") && strings.HasPrefix(msg, `"`) {
		if end := strings.Index(msg[1:], `"`); end > 0 {
			name := msg[1 : end+1]
			if field == "" {
				return name
			}
			return field + "." + name
		}
	}
	return field
}
