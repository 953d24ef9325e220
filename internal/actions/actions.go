package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"blockyweb/internal/blocky"
	"blockyweb/internal/logging"

	"go.uber.org/zap"
	"golang.org/x/net/idna"
)

// Kind is one of the supported administrative actions.
type Kind string

const (
	Query  Kind = "query"
	Toggle Kind = "toggle"
	Add    Kind = "add"
)

// ErrUnknownAction is returned for any action name outside Query, Toggle, Add.
var ErrUnknownAction = errors.New("unknown action")

// ParseKind accepts a bare keyword or a URL/path whose last segment is one.
// Browsers submit the form's resolved action URL, e.g. "http://admin/query".
func ParseKind(raw string) (Kind, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrUnknownAction
	}
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	p = strings.Trim(p, "/")
	if p == "" {
		return "", ErrUnknownAction
	}
	switch k := Kind(path.Base(p)); k {
	case Query, Toggle, Add:
		return k, nil
	}
	return "", ErrUnknownAction
}

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Flag decodes either a JSON boolean or the strings "true"/"false".
// Set is false when the field was absent or null.
type Flag struct {
	Value bool
	Set   bool
}

func (f *Flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = Flag{}
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*f = Flag{Value: t, Set: true}
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true":
			*f = Flag{Value: true, Set: true}
		case "false":
			*f = Flag{Value: false, Set: true}
		default:
			return fmt.Errorf("invalid flag %q", t)
		}
	default:
		return fmt.Errorf("invalid flag %s", string(b))
	}
	return nil
}

// Request is the JSON body of POST /api.
type Request struct {
	Action   string `json:"action"`
	Domain   string `json:"domain"`
	State    string `json:"state"`
	Redirect Flag   `json:"redirect"`
}

// DecodeRequest parses a request body. Malformed JSON is a ValidationError.
func DecodeRequest(body []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return Request{}, &ValidationError{Field: "body", Message: "request body must be a JSON object"}
	}
	return req, nil
}

// Result is the envelope returned to the UI.
type Result struct {
	RC       bool   `json:"rc"`
	Message  string `json:"message"`
	Type     string `json:"type,omitempty"`
	Redirect *bool  `json:"redirect,omitempty"`
}

// UI style hints.
const (
	TypePrimary = "is-primary"
	TypeWarning = "is-warning"
	TypeDanger  = "is-danger"
)

// ServerError is the body sent for unknown actions.
var ServerError = Result{RC: false, Message: "A server error occurred"}

// Upstream is the subset of the blocky client the dispatcher needs.
type Upstream interface {
	Query(ctx context.Context, domain string) (blocky.QueryOutcome, error)
	SetBlocking(ctx context.Context, state blocky.State) error
	RefreshLists(ctx context.Context) error
}

// Appender persists allow-list entries.
type Appender interface {
	Append(domain string) error
}

// Recorder counts dispatched actions.
type Recorder interface {
	ObserveAction(action string, rc bool)
}

// Dispatcher routes a Request to the matching upstream operation. It keeps
// no state between calls.
type Dispatcher struct {
	Upstream  Upstream
	AllowList Appender
	Logger    *zap.Logger
	Recorder  Recorder
}

func NewDispatcher(upstream Upstream, allow Appender, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{Upstream: upstream, AllowList: allow, Logger: logger}
}

// Dispatch runs one action. Upstream failures come back as a Result with
// RC false; the error is reserved for ErrUnknownAction and *ValidationError.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	kind, err := ParseKind(req.Action)
	if err != nil {
		d.Logger.Warn("unknown action", zap.String("action", logging.Sanitize(req.Action)))
		return Result{}, err
	}

	var res Result
	switch kind {
	case Query:
		res, err = d.query(ctx, req)
	case Toggle:
		res, err = d.toggle(ctx, req)
	case Add:
		res, err = d.add(ctx, req)
	}
	if err != nil {
		return Result{}, err
	}
	if d.Recorder != nil {
		d.Recorder.ObserveAction(string(kind), res.RC)
	}
	return res, nil
}

func (d *Dispatcher) query(ctx context.Context, req Request) (Result, error) {
	domain, err := NormalizeDomain(req.Domain)
	if err != nil {
		return Result{}, err
	}

	outcome, err := d.Upstream.Query(ctx, domain)
	if err != nil {
		d.Logger.Error("query failed", zap.String("domain", domain), zap.Error(err))
		return Result{
			RC:      false,
			Message: "Unable to submit the query. Please try again, or check the blocky logs.",
			Type:    TypeDanger,
		}, nil
	}

	if outcome == blocky.Blocked {
		return Result{RC: true, Message: fmt.Sprintf("Blocky is configured to BLOCK the domain: %s.", domain), Type: TypeWarning}, nil
	}
	return Result{RC: true, Message: fmt.Sprintf("Blocky is configured to NOT BLOCK the domain: %s.", domain), Type: TypePrimary}, nil
}

func (d *Dispatcher) toggle(ctx context.Context, req Request) (Result, error) {
	if req.State == "" {
		return Result{}, &ValidationError{Field: "state", Message: "state is required"}
	}
	state, ok := blocky.ParseState(req.State)
	if !ok {
		return Result{}, &ValidationError{Field: "state", Message: "state must be enable or disable"}
	}

	if err := d.Upstream.SetBlocking(ctx, state); err != nil {
		d.Logger.Error("toggle failed", zap.String("state", string(state)), zap.Error(err))
		return Result{
			RC:      false,
			Message: "Unable to toggle blocking. Please try again, or check the blocky logs.",
			Type:    TypeDanger,
		}, nil
	}

	label := strings.ToUpper(string(state) + "d")
	d.Logger.Info("blocking toggled", zap.String("state", label))
	return Result{RC: true, Message: fmt.Sprintf("Successfully toggled blocking to the %s state", label), Type: TypePrimary}, nil
}

func (d *Dispatcher) add(ctx context.Context, req Request) (Result, error) {
	domain, err := NormalizeDomain(req.Domain)
	if err != nil {
		return Result{}, err
	}
	if !req.Redirect.Set {
		return Result{}, &ValidationError{Field: "redirect", Message: "redirect is required"}
	}

	failed := Result{
		RC:      false,
		Message: "Unable to add the domain to the whitelist. Please try again, or check the blocky logs.",
		Type:    TypeDanger,
	}

	if err := d.AllowList.Append(domain); err != nil {
		d.Logger.Error("allow-list append failed", zap.String("domain", domain), zap.Error(err))
		return failed, nil
	}
	if err := d.Upstream.RefreshLists(ctx); err != nil {
		d.Logger.Error("list refresh failed", zap.String("domain", domain), zap.Error(err))
		return failed, nil
	}

	d.Logger.Info("domain allowed", zap.String("domain", domain))
	redirect := req.Redirect.Value
	return Result{
		RC:       true,
		Message:  "Successfully added the domain to the whitelist!",
		Type:     TypePrimary,
		Redirect: &redirect,
	}, nil
}

// NormalizeDomain trims and lower-cases a host name and converts it to its
// ASCII form. Anything that is not a host name is a ValidationError.
func NormalizeDomain(raw string) (string, error) {
	d := strings.TrimSuffix(strings.TrimSpace(raw), ".")
	if d == "" {
		return "", &ValidationError{Field: "domain", Message: "domain is required"}
	}
	ascii, err := idna.Lookup.ToASCII(d)
	if err != nil {
		return "", &ValidationError{Field: "domain", Message: "domain is not a valid host name"}
	}
	return strings.ToLower(ascii), nil
}
