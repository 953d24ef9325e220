package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"blockyweb/internal/allowlist"
	"blockyweb/internal/blocky"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpstream struct {
	mu         sync.Mutex
	outcome    blocky.QueryOutcome
	queryErr   error
	toggleErr  error
	refreshErr error
	queried    []string
	states     []blocky.State
	refreshes  int
}

func (f *fakeUpstream) Query(_ context.Context, domain string) (blocky.QueryOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queried = append(f.queried, domain)
	if f.queryErr != nil {
		return blocky.QueryError, f.queryErr
	}
	return f.outcome, nil
}

func (f *fakeUpstream) SetBlocking(_ context.Context, state blocky.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, state)
	return f.toggleErr
}

func (f *fakeUpstream) RefreshLists(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return f.refreshErr
}

var errDown = &blocky.UpstreamError{Op: "test", StatusCode: 503}

func newDispatcher(t *testing.T, up *fakeUpstream) (*Dispatcher, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "allowed.txt")
	return NewDispatcher(up, allowlist.New(path), nil), path
}

func TestParseKind(t *testing.T) {
	valid := map[string]Kind{
		"query":                      Query,
		"toggle":                     Toggle,
		"add":                        Add,
		"/add":                       Add,
		"http://admin.lan/query":     Query,
		"https://admin.lan:8443/add": Add,
		"http://admin.lan/ui/add/":   Add,
	}
	for raw, want := range valid {
		got, err := ParseKind(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"", "  ", "/", "http://host/bogus", "QUERY", "http://host/", "delete"} {
		_, err := ParseKind(raw)
		assert.ErrorIs(t, err, ErrUnknownAction, raw)
	}
}

func TestFlag_UnmarshalJSON(t *testing.T) {
	cases := map[string]Flag{
		`{"redirect":true}`:    {Value: true, Set: true},
		`{"redirect":false}`:   {Value: false, Set: true},
		`{"redirect":"true"}`:  {Value: true, Set: true},
		`{"redirect":"false"}`: {Value: false, Set: true},
		`{"redirect":null}`:    {},
		`{}`:                   {},
	}
	for body, want := range cases {
		var req Request
		require.NoError(t, json.Unmarshal([]byte(body), &req), body)
		assert.Equal(t, want, req.Redirect, body)
	}

	var req Request
	assert.Error(t, json.Unmarshal([]byte(`{"redirect":"maybe"}`), &req))
	assert.Error(t, json.Unmarshal([]byte(`{"redirect":1}`), &req))
}

func TestDecodeRequest_Malformed(t *testing.T) {
	_, err := DecodeRequest([]byte(`{"action":`))
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestQuery_Blocked(t *testing.T) {
	up := &fakeUpstream{outcome: blocky.Blocked}
	d, _ := newDispatcher(t, up)

	res, err := d.Dispatch(context.Background(), Request{Action: "query", Domain: "ads.example.com"})
	require.NoError(t, err)
	assert.True(t, res.RC)
	assert.Equal(t, TypeWarning, res.Type)
	assert.Contains(t, res.Message, "ads.example.com")
	assert.Contains(t, res.Message, "BLOCK")
	assert.Nil(t, res.Redirect)
	assert.Equal(t, []string{"ads.example.com"}, up.queried)
}

func TestQuery_NotBlocked(t *testing.T) {
	d, _ := newDispatcher(t, &fakeUpstream{outcome: blocky.NotBlocked})

	res, err := d.Dispatch(context.Background(), Request{Action: "http://admin/query", Domain: "Example.COM"})
	require.NoError(t, err)
	assert.True(t, res.RC)
	assert.Equal(t, TypePrimary, res.Type)
	assert.Contains(t, res.Message, "NOT BLOCK the domain: example.com")
}

func TestQuery_UpstreamFailure(t *testing.T) {
	d, _ := newDispatcher(t, &fakeUpstream{queryErr: errDown})

	res, err := d.Dispatch(context.Background(), Request{Action: "query", Domain: "example.com"})
	require.NoError(t, err)
	assert.False(t, res.RC)
	assert.Equal(t, TypeDanger, res.Type)
	assert.Contains(t, res.Message, "check the blocky logs")
	assert.NotContains(t, res.Message, "503")
}

func TestQuery_MissingDomain(t *testing.T) {
	up := &fakeUpstream{}
	d, _ := newDispatcher(t, up)

	_, err := d.Dispatch(context.Background(), Request{Action: "query"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "domain", verr.Field)
	assert.Empty(t, up.queried)
}

func TestToggle(t *testing.T) {
	cases := []struct {
		state string
		want  string
	}{
		{"enable", "ENABLED"},
		{"disable", "DISABLED"},
	}
	for _, tc := range cases {
		t.Run(tc.state, func(t *testing.T) {
			up := &fakeUpstream{}
			d, _ := newDispatcher(t, up)

			first, err := d.Dispatch(context.Background(), Request{Action: "toggle", State: tc.state})
			require.NoError(t, err)
			second, err := d.Dispatch(context.Background(), Request{Action: "toggle", State: tc.state})
			require.NoError(t, err)

			assert.True(t, first.RC)
			assert.Contains(t, first.Message, tc.want)
			assert.Equal(t, TypePrimary, first.Type)
			assert.Equal(t, first, second, "repeated toggles must produce the same result")
			assert.Len(t, up.states, 2)
		})
	}
}

func TestToggle_UpstreamFailure(t *testing.T) {
	d, _ := newDispatcher(t, &fakeUpstream{toggleErr: errDown})

	res, err := d.Dispatch(context.Background(), Request{Action: "toggle", State: "disable"})
	require.NoError(t, err)
	assert.False(t, res.RC)
	assert.Equal(t, TypeDanger, res.Type)
}

func TestToggle_InvalidState(t *testing.T) {
	up := &fakeUpstream{}
	d, _ := newDispatcher(t, up)

	for _, state := range []string{"", "pause", "ENABLE"} {
		_, err := d.Dispatch(context.Background(), Request{Action: "toggle", State: state})
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), state)
		assert.Equal(t, "state", verr.Field)
	}
	assert.Empty(t, up.states)
}

func TestAdd(t *testing.T) {
	for _, redirect := range []bool{true, false} {
		t.Run(fmt.Sprint(redirect), func(t *testing.T) {
			up := &fakeUpstream{}
			d, path := newDispatcher(t, up)

			res, err := d.Dispatch(context.Background(), Request{
				Action:   "add",
				Domain:   "example.com",
				Redirect: Flag{Value: redirect, Set: true},
			})
			require.NoError(t, err)
			assert.True(t, res.RC)
			require.NotNil(t, res.Redirect)
			assert.Equal(t, redirect, *res.Redirect)
			assert.Equal(t, 1, up.refreshes)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "example.com\n", string(data))
		})
	}
}

func TestAdd_RefreshFailure(t *testing.T) {
	d, path := newDispatcher(t, &fakeUpstream{refreshErr: errDown})

	res, err := d.Dispatch(context.Background(), Request{Action: "add", Domain: "example.com", Redirect: Flag{Set: true}})
	require.NoError(t, err)
	assert.False(t, res.RC)
	assert.Equal(t, TypeDanger, res.Type)
	assert.Nil(t, res.Redirect)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "example.com\n", string(data), "the entry stays appended even when refresh fails")
}

func TestAdd_AppendFailure(t *testing.T) {
	up := &fakeUpstream{}
	d := NewDispatcher(up, allowlist.New(filepath.Join(t.TempDir(), "nodir", "allowed.txt")), nil)

	res, err := d.Dispatch(context.Background(), Request{Action: "add", Domain: "example.com", Redirect: Flag{Set: true}})
	require.NoError(t, err)
	assert.False(t, res.RC)
	assert.Equal(t, 0, up.refreshes)
}

func TestAdd_Validation(t *testing.T) {
	up := &fakeUpstream{}
	d, path := newDispatcher(t, up)

	cases := map[string]Request{
		"no domain":     {Action: "add", Redirect: Flag{Set: true}},
		"no redirect":   {Action: "add", Domain: "example.com"},
		"line break":    {Action: "add", Domain: "a.com\nb.com", Redirect: Flag{Set: true}},
		"not a host":    {Action: "add", Domain: "exa mple.com", Redirect: Flag{Set: true}},
		"with a scheme": {Action: "add", Domain: "http://example.com", Redirect: Flag{Set: true}},
	}
	for name, req := range cases {
		_, err := d.Dispatch(context.Background(), req)
		var verr *ValidationError
		assert.True(t, errors.As(err, &verr), name)
	}

	assert.Equal(t, 0, up.refreshes)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestAdd_Concurrent(t *testing.T) {
	up := &fakeUpstream{}
	d, path := newDispatcher(t, up)

	const n = 32
	want := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		want[i] = fmt.Sprintf("site-%02d.example.org", i)
		wg.Add(1)
		go func(domain string) {
			defer wg.Done()
			res, err := d.Dispatch(context.Background(), Request{Action: "add", Domain: domain, Redirect: Flag{Set: true}})
			assert.NoError(t, err)
			assert.True(t, res.RC)
		}(want[i])
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	sort.Strings(got)
	assert.Equal(t, want, got)
	assert.Equal(t, n, up.refreshes)
}

func TestDispatch_UnknownAction(t *testing.T) {
	up := &fakeUpstream{}
	d, _ := newDispatcher(t, up)

	_, err := d.Dispatch(context.Background(), Request{Action: "http://host/bogus", Domain: "example.com"})
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.Empty(t, up.queried)
}

type countingRecorder struct {
	counts map[string]int
}

func (c *countingRecorder) ObserveAction(action string, rc bool) {
	c.counts[fmt.Sprintf("%s:%t", action, rc)]++
}

func TestDispatch_RecordsActions(t *testing.T) {
	d, _ := newDispatcher(t, &fakeUpstream{toggleErr: errDown})
	rec := &countingRecorder{counts: map[string]int{}}
	d.Recorder = rec

	_, _ = d.Dispatch(context.Background(), Request{Action: "query", Domain: "example.com"})
	_, _ = d.Dispatch(context.Background(), Request{Action: "toggle", State: "enable"})
	_, _ = d.Dispatch(context.Background(), Request{Action: "bogus"})

	assert.Equal(t, map[string]int{"query:true": 1, "toggle:false": 1}, rec.counts)
}

func TestResult_JSON(t *testing.T) {
	b, err := json.Marshal(ServerError)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rc":false,"message":"A server error occurred"}`, string(b))

	redirect := true
	b, err = json.Marshal(Result{RC: true, Message: "ok", Type: TypePrimary, Redirect: &redirect})
	require.NoError(t, err)
	assert.JSONEq(t, `{"rc":true,"message":"ok","type":"is-primary","redirect":true}`, string(b))
}

func TestNormalizeDomain(t *testing.T) {
	got, err := NormalizeDomain("  Ads.Example.COM. ")
	require.NoError(t, err)
	assert.Equal(t, "ads.example.com", got)

	got, err = NormalizeDomain("bücher.example")
	require.NoError(t, err)
	assert.Equal(t, "xn--bcher-kva.example", got)
}
