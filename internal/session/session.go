// Package session runs ElseSQL statements against a search engine: parse,
// translate, send, render.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/ca-srg/elseql/internal/csv"
	"github.com/ca-srg/elseql/internal/parser"
	"github.com/ca-srg/elseql/internal/query"
	"github.com/ca-srg/elseql/internal/render"
	"github.com/ca-srg/elseql/internal/schema"
)

var tracer = otel.Tracer("elseql/session")

// Transport sends requests to the engine. Engine error responses come back
// as bodies; an error means the engine could not be reached.
type Transport interface {
	Get(ctx context.Context, path string, params map[string]string, body map[string]interface{}) (json.RawMessage, error)
	GetMapping(ctx context.Context) (json.RawMessage, error)
	URL() string
}

// HealthChecker is implemented by transports that can probe the engine.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Parser turns statement text into an abstract query.
type Parser interface {
	Parse(text string) (*query.AbstractQuery, error)
}

// Options selects how a statement is sent.
type Options struct {
	Explain  bool
	Validate bool
}

// Session owns the transport, the schema cache and the debug flag. Output
// goes to a single writer; Search is safe to call from one goroutine at a
// time while Keywords may be called concurrently.
type Session struct {
	transport Transport
	parser    Parser
	cache     *schema.Cache
	out       *csv.Writer
	logger    *zap.Logger

	mu    sync.Mutex
	debug bool
}

// New creates a Session. A nil transport puts the session in local echo
// mode: debug output is forced on and nothing is sent.
func New(transport Transport, p Parser, out io.Writer, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if p == nil {
		p = parser.New()
	}

	s := &Session{
		transport: transport,
		parser:    p,
		out:       csv.NewWriter(out),
		logger:    logger,
		debug:     transport == nil,
	}

	var fetch schema.FetchFunc
	if transport != nil {
		fetch = func(ctx context.Context) ([]byte, error) {
			return transport.GetMapping(ctx)
		}
	}
	s.cache = schema.NewCache(fetch, logger)
	return s
}

// Open creates a Session and checks that the engine answers. When it does not,
// the failure is reported on out and the session falls back to local echo
// mode. The mapping is prefetched so completion is ready.
func Open(ctx context.Context, transport Transport, p Parser, out io.Writer, logger *zap.Logger) *Session {
	if transport != nil {
		if checker, ok := transport.(HealthChecker); ok {
			if err := checker.HealthCheck(ctx); err != nil {
				_ = csv.NewWriter(out).WriteLines(render.RenderTransportError(transport.URL(), err).Lines)
				transport = nil
			}
		}
	}

	s := New(transport, p, out, logger)
	if s.transport != nil {
		if _, err := s.cache.Mapping(ctx); err != nil {
			s.logger.Warn("mapping prefetch failed", zap.Error(err))
		}
	}
	return s
}

// Connected reports whether requests are actually sent.
func (s *Session) Connected() bool {
	return s.transport != nil
}

// URL is the engine endpoint, empty in local echo mode.
func (s *Session) URL() string {
	if s.transport == nil {
		return ""
	}
	return s.transport.URL()
}

// Debug reports whether requests and responses are echoed.
func (s *Session) Debug() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debug
}

// SetDebug turns the echo on or off. It cannot be turned off without a
// transport.
func (s *Session) SetDebug(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debug = on || s.transport == nil
}

// Keywords returns the completion vocabulary for this session.
func (s *Session) Keywords(ctx context.Context) []string {
	return s.cache.Keywords(ctx)
}

// Reload drops the cached mapping.
func (s *Session) Reload() {
	s.cache.Invalidate()
}

// Search runs one statement and writes its output. The returned status says
// how it ended; the error is only set when output could not be written.
func (s *Session) Search(ctx context.Context, text string, opts Options) (render.Status, error) {
	ctx, span := tracer.Start(ctx, "session.search")
	defer span.End()
	span.SetAttributes(
		attribute.Bool("elseql.explain", opts.Explain),
		attribute.Bool("elseql.validate", opts.Validate),
	)

	status, err := s.search(ctx, text, opts)
	span.SetAttributes(attribute.String("elseql.status", status.String()))
	if status.Failed() {
		span.SetStatus(codes.Error, status.String())
	}
	if err != nil {
		span.RecordError(err)
	}
	return status, err
}

func (s *Session) search(ctx context.Context, text string, opts Options) (render.Status, error) {
	q, err := s.parser.Parse(text)
	if err != nil {
		return render.StatusParseError, s.out.WriteLines(parseErrorLines(text, err))
	}

	req, err := query.Translate(q, opts.Explain, opts.Validate)
	if err != nil {
		var limitErr *query.MalformedLimitError
		if errors.As(err, &limitErr) {
			s.logger.Debug("rejected limit", zap.Ints("limit", limitErr.Values))
		}
		return render.StatusTranslateError, s.out.WriteLine("ERROR: " + err.Error())
	}

	params := req.Params
	debug := s.Debug()
	if debug {
		if err := s.out.WriteLines(requestEcho(req)); err != nil {
			return render.StatusNotSent, err
		}
		if params == nil {
			params = map[string]string{"pretty": "true"}
		}
	}

	if s.transport == nil {
		return render.StatusNotSent, nil
	}

	raw, err := s.transport.Get(ctx, req.Path, params, req.Body)
	if err != nil {
		s.logger.Debug("request failed", zap.String("path", req.Path), zap.Error(err))
		out := render.RenderTransportError(s.transport.URL(), err)
		return out.Status, s.out.WriteLines(out.Lines)
	}

	if debug {
		if err := s.out.WriteLines(responseEcho(raw)); err != nil {
			return render.StatusNotSent, err
		}
	}

	out := render.Render(raw, render.Options{Fields: q.Projection(), Facets: q.Facets})
	if out.Status == render.StatusUnrecognized {
		s.logger.Warn("unrecognized response", zap.String("path", req.Path), zap.Int("bytes", len(raw)))
	}
	return out.Status, s.out.WriteLines(out.Lines)
}

func parseErrorLines(text string, err error) []string {
	var parseErr *parser.Error
	if errors.As(err, &parseErr) {
		lines := parseErr.Caret()
		return append(lines, "", "ERROR: "+parseErr.Message)
	}
	return []string{text, "", "ERROR: " + err.Error()}
}

func requestEcho(req *query.Request) []string {
	line := "GET " + req.Path
	if len(req.Params) > 0 {
		line += " " + formatParams(req.Params)
	}

	lines := []string{"", line}
	body, err := json.MarshalIndent(req.Body, "    ", "  ")
	if err != nil {
		return append(lines, "    "+fmt.Sprint(req.Body))
	}
	return append(lines, "    "+string(body))
}

func responseEcho(raw json.RawMessage) []string {
	var buf bytes.Buffer
	text := string(raw)
	if err := json.Indent(&buf, raw, "", "  "); err == nil {
		text = buf.String()
	}
	return []string{"", "RESPONSE: " + text, ""}
}

func formatParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + params[k]
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
