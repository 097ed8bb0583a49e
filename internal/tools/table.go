package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/localrivet/traktmcp/internal/errortypes"
	"github.com/localrivet/traktmcp/internal/journal"
	"github.com/localrivet/traktmcp/internal/telemetry"
	"github.com/localrivet/traktmcp/internal/trakt"
)

// Upstream is the subset of the Trakt client the handlers call.
// *trakt.Client implements it.
type Upstream interface {
	ListWatched(ctx context.Context) ([]trakt.WatchedEntry, error)
	ListWatchlist(ctx context.Context) ([]trakt.WatchlistEntry, error)
	AddToWatchlist(ctx context.Context, showID int64) (trakt.MutationResult, error)
	RemoveFromWatchlist(ctx context.Context, showID int64) (trakt.MutationResult, error)
	Search(ctx context.Context, query string) ([]trakt.ShowSummary, error)
	ListTrending(ctx context.Context, limit int) ([]trakt.TrendingEntry, error)
	ListSeasons(ctx context.Context, showID int64) ([]trakt.Season, error)
	ListSeasonEpisodes(ctx context.Context, showID int64, season int) ([]trakt.Episode, error)
	MarkEpisodeWatched(ctx context.Context, episodeID int64) (trakt.MutationResult, error)
}

var _ Upstream = (*trakt.Client)(nil)

// HandlerFunc runs one tool against validated arguments and returns the
// formatted result.
type HandlerFunc func(ctx context.Context, up Upstream, args Args) (string, error)

// Definition is one entry of the dispatch table.
type Definition struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
	Handler     HandlerFunc

	resolved   *jsonschema.Resolved
	properties map[string]*jsonschema.Resolved
}

// InputSchema returns Schema as the generic JSON object MCP hosts advertise
// under inputSchema.
func (d Definition) InputSchema() (map[string]any, error) {
	b, err := json.Marshal(d.Schema)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// violations lists what is wrong with args in caller terms, one entry per
// offending field.
func (d Definition) violations(args map[string]any) []string {
	var problems []string
	for _, field := range d.Schema.Required {
		if _, ok := args[field]; !ok {
			problems = append(problems, field+" is required")
		}
	}
	for _, field := range slices.Sorted(maps.Keys(d.properties)) {
		v, ok := args[field]
		if !ok {
			continue
		}
		if err := d.properties[field].Validate(v); err != nil {
			problems = append(problems, fmt.Sprintf("%s must be %s", field, expectation(d.Schema.Properties[field])))
		}
	}
	return problems
}

func expectation(s *jsonschema.Schema) string {
	typ := s.Type
	for _, t := range s.Types {
		if typ == "" && t != "null" {
			typ = t
		}
	}
	switch typ {
	case "integer":
		switch {
		case s.Minimum != nil && s.Maximum != nil:
			return fmt.Sprintf("an integer between %g and %g", *s.Minimum, *s.Maximum)
		case s.Minimum != nil:
			return fmt.Sprintf("an integer of at least %g", *s.Minimum)
		}
		return "an integer"
	case "string":
		if s.Pattern == `^[0-9]+$` {
			return "a string of digits"
		}
		if s.MinLength != nil {
			return "a non-empty string"
		}
		return "a string"
	}
	return "a JSON " + typ
}

// Result is the outcome of one invocation: either Text or Err is set.
type Result struct {
	Tool string
	Text string
	Err  *errortypes.ToolError
}

// Failed reports whether the invocation failed.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Message returns the text handed back to the caller: the formatted result
// on success, the kind-tagged error message otherwise.
func (r Result) Message() string {
	if r.Err != nil {
		return r.Err.UserMessage()
	}
	return r.Text
}

// Option configures a Table.
type Option func(*Table)

// WithMetrics records every invocation on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(t *Table) { t.metrics = m }
}

// WithRecorder journals every invocation to r.
func WithRecorder(r journal.Recorder) Option {
	return func(t *Table) { t.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Table) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithTracer overrides the global tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(t *Table) {
		if tracer != nil {
			t.tracer = tracer
		}
	}
}

// Table dispatches tool calls by name. It holds no per-call state and is
// safe for concurrent use.
type Table struct {
	upstream Upstream
	defs     []Definition
	index    map[string]int
	metrics  *telemetry.Metrics
	recorder journal.Recorder
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewTable builds the dispatch table around up. Every schema is resolved
// up front; a malformed schema is a startup error.
func NewTable(up Upstream, opts ...Option) (*Table, error) {
	if up == nil {
		return nil, errortypes.ConfigurationError(nil, "tool table requires a Trakt client")
	}

	t := &Table{
		upstream: up,
		index:    make(map[string]int),
		tracer:   telemetry.Tracer(),
		logger:   slog.Default().With("component", "tools"),
	}
	for _, opt := range opts {
		opt(t)
	}

	for _, def := range definitions() {
		resolved, err := def.Schema.Resolve(&jsonschema.ResolveOptions{ValidateDefaults: true})
		if err != nil {
			return nil, errortypes.ConfigurationError(err, fmt.Sprintf("invalid schema for tool %s", def.Name))
		}
		def.resolved = resolved
		def.properties = make(map[string]*jsonschema.Resolved, len(def.Schema.Properties))
		for field, prop := range def.Schema.Properties {
			if def.properties[field], err = prop.Resolve(nil); err != nil {
				return nil, errortypes.ConfigurationError(err, fmt.Sprintf("invalid schema for %s.%s", def.Name, field))
			}
		}
		if _, dup := t.index[def.Name]; dup {
			return nil, errortypes.ConfigurationError(nil, fmt.Sprintf("duplicate tool %s", def.Name))
		}
		t.index[def.Name] = len(t.defs)
		t.defs = append(t.defs, def)
	}
	return t, nil
}

// Definitions returns the table entries in registration order.
func (t *Table) Definitions() []Definition {
	out := make([]Definition, len(t.defs))
	copy(out, t.defs)
	return out
}

// Names returns the tool names in registration order.
func (t *Table) Names() []string {
	names := make([]string, len(t.defs))
	for i, def := range t.defs {
		names[i] = def.Name
	}
	return names
}

// Lookup returns the definition registered under name.
func (t *Table) Lookup(name string) (Definition, bool) {
	i, ok := t.index[name]
	if !ok {
		return Definition{}, false
	}
	return t.defs[i], true
}

// Catalog returns the tool definitions in registration order. It needs no
// client, so callers can describe the tools before credentials exist.
func Catalog() []Definition {
	return definitions()
}

// Invoke validates args against the tool's schema, calls the handler and
// classifies the outcome. It never panics and never returns an
// unclassified error.
func (t *Table) Invoke(ctx context.Context, name string, args map[string]any) (result Result) {
	inv := journal.Invocation{
		ID:        uuid.New().String(),
		Tool:      name,
		StartedAt: time.Now(),
	}
	result.Tool = name

	ctx, span := t.tracer.Start(ctx, "tool."+name, trace.WithAttributes(
		attribute.String("tool.name", name),
		attribute.String("tool.invocation_id", inv.ID),
	))

	defer func() {
		if p := recover(); p != nil {
			t.logger.Error("Tool handler panicked", "tool", name, "invocation_id", inv.ID, "panic", p)
			result.Text = ""
			result.Err = errortypes.NetworkError(fmt.Errorf("panic: %v", p), "internal failure")
		}
		t.finish(ctx, span, &inv, result)
	}()

	def, ok := t.Lookup(name)
	if !ok {
		result.Err = errortypes.ValidationError(nil, fmt.Sprintf("unknown tool %q", name)).
			WithField("tool", name)
		return result
	}

	normalized, err := normalizeArgs(args)
	if err != nil {
		result.Err = errortypes.ValidationError(err, "arguments must be a JSON object")
		return result
	}
	if err := def.resolved.Validate(normalized); err != nil {
		msg := "invalid arguments for " + name
		if problems := def.violations(normalized); len(problems) > 0 {
			msg = strings.Join(problems, "; ")
		}
		result.Err = errortypes.ValidationError(err, msg).WithField("tool", name)
		return result
	}

	text, err := def.Handler(ctx, t.upstream, Args(normalized))
	if err != nil {
		result.Err = classify(err)
		return result
	}
	result.Text = text
	return result
}

func (t *Table) finish(ctx context.Context, span trace.Span, inv *journal.Invocation, result Result) {
	inv.Duration = time.Since(inv.StartedAt)
	inv.Status = journal.StatusSuccess
	logger := t.logger.With("tool", inv.Tool, "invocation_id", inv.ID, "duration", inv.Duration)

	if result.Err != nil {
		inv.Status = journal.StatusError
		inv.Kind = string(result.Err.Kind)
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, inv.Kind)
		errortypes.LogError(logger, result.Err)
	} else {
		span.SetStatus(codes.Ok, "")
		logger.Info("Tool invocation succeeded")
	}
	span.End()

	t.metrics.RecordTool(ctx, telemetry.ToolObservation{
		Tool:     inv.Tool,
		Kind:     inv.Kind,
		Duration: inv.Duration,
	})

	if t.recorder != nil {
		if err := t.recorder.Record(context.WithoutCancel(ctx), *inv); err != nil {
			logger.Warn("Failed to journal tool invocation", "error", err)
		}
	}
}

// classify keeps the taxonomy closed: anything that is not already a
// ToolError is reported as a network failure.
func classify(err error) *errortypes.ToolError {
	if toolErr, ok := errortypes.As(err); ok {
		return toolErr
	}
	return errortypes.NetworkError(err, "unexpected failure")
}

// normalizeArgs round-trips args through JSON so validation and handlers
// see JSON types (numbers as float64) whatever the caller passed.
func normalizeArgs(args map[string]any) (map[string]any, error) {
	if args == nil {
		return map[string]any{}, nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Args are validated tool arguments.
type Args map[string]any

// String returns the string argument key, or "".
func (a Args) String(key string) string {
	s, _ := a[key].(string)
	return s
}

// ID parses the digit-string argument key as a Trakt id.
func (a Args) ID(key string) (int64, error) {
	s := a.String(key)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errortypes.ValidationError(err, fmt.Sprintf("%s must be a numeric Trakt id", key)).
			WithField(key, s)
	}
	return id, nil
}

// Int returns the integer argument key, or def when it is absent.
func (a Args) Int(key string, def int) (int, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, errortypes.ValidationError(nil, fmt.Sprintf("%s must be an integer", key)).
			WithField(key, v)
	}
	return int(f), nil
}
