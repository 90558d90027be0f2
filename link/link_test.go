package link

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os/exec"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neumenon/atff/atff"
)

func TestTarget(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"@https://example.com/a.py", "https://example.com/a.py", true},
		{"  @ https://example.com/a.py ", "https://example.com/a.py", true},
		{"@ftp://example.com/x", "ftp://example.com/x", true},
		{"https://example.com/b", "https://example.com/b", true},
		{"http://example.com/c", "http://example.com/c", true},
		{"@", "", false},
		{"example.com/x", "", false},
		{"file:///etc/passwd", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Target(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestPolicy_Check(t *testing.T) {
	p := Policy{AllowedHosts: []string{"cdn.example.com", "*.trusted.org"}}

	_, err := p.Check("https://cdn.example.com/x")
	assert.NoError(t, err)
	_, err = p.Check("https://a.b.trusted.org/x")
	assert.NoError(t, err)

	for _, target := range []string{
		"http://cdn.example.com/x",   // scheme
		"https://trusted.org/x",      // bare suffix
		"https://evil.com/x",         // host
		"https:///no-host",           // host missing
		"https://cdn.example.com.evil/x",
	} {
		_, err := p.Check(target)
		assert.ErrorIs(t, err, ErrDenied, target)
	}

	open := Policy{AllowedSchemes: []string{"http", "https"}}
	_, err = open.Check("HTTP://anything.example/x")
	assert.NoError(t, err)
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "atff-test", r.Header.Get("User-Agent"))
			w.Write([]byte("print('hi')"))
		case "/big":
			w.Write(bytes.Repeat([]byte("x"), 100))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := &HTTPFetcher{Client: srv.Client(), UserAgent: "atff-test"}
	ctx := context.Background()

	body, err := f.Fetch(ctx, mustURL(t, srv.URL+"/ok"), 1024)
	require.NoError(t, err)
	assert.Equal(t, "print('hi')", string(body))

	_, err = f.Fetch(ctx, mustURL(t, srv.URL+"/big"), 10)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = f.Fetch(ctx, mustURL(t, srv.URL+"/missing"), 1024)
	assert.ErrorContains(t, err, "404")
}

func TestCommandExecutor(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	t.Setenv("ATFF_TEST_SECRET", "leaked")
	ctx := context.Background()

	var out bytes.Buffer
	e := &CommandExecutor{Command: []string{"sh"}, Env: []string{"GREETING=hi"}, Stdout: &out}
	require.NoError(t, e.Execute(ctx, "atff_dep_x", []byte(`echo "name=$ATFF_LINK_NAME greeting=$GREETING secret=$ATFF_TEST_SECRET"; pwd`)))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "name=atff_dep_x greeting=hi secret=", lines[0])
	assert.Contains(t, lines[1], "atff-link-")

	err := e.Execute(ctx, "fail", []byte("echo boom >&2; exit 3"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	assert.ErrorIs(t, (&CommandExecutor{}).Execute(ctx, "x", nil), ErrNoCommand)
}

// recorder is an Executor that remembers what it ran.
type recorder struct {
	names []string
	codes []string
	err   error
}

func (r *recorder) Execute(_ context.Context, name string, code []byte) error {
	r.names = append(r.names, name)
	r.codes = append(r.codes, string(code))
	return r.err
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		w.Write([]byte("code:" + r.URL.Path))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRemote_Resolve(t *testing.T) {
	srv := newServer(t)
	rec := &recorder{}
	var logs bytes.Buffer
	r := NewRemote(Policy{AllowedSchemes: []string{"http"}}, rec, slog.New(slog.NewTextHandler(&logs, nil)))

	require.NoError(t, r.Resolve(context.Background(), "@"+srv.URL+"/plugins/init.py"))
	assert.Equal(t, []string{"atff_dep_init.py"}, rec.names)
	assert.Equal(t, []string{"code:/plugins/init.py"}, rec.codes)
	assert.Contains(t, logs.String(), "run=")

	// not a link: skipped, not an error
	require.NoError(t, r.Resolve(context.Background(), "just-a-name"))
	assert.Len(t, rec.names, 1)
	assert.Contains(t, logs.String(), "skipping invalid link")
}

func TestRemote_Failures(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	denied := &recorder{}
	r := NewRemote(Policy{}, denied, nil)
	assert.ErrorIs(t, r.Resolve(ctx, srv.URL+"/x"), ErrDenied)
	assert.Empty(t, denied.names, "denied links must not be executed")

	failing := &recorder{err: errors.New("exit status 1")}
	r = NewRemote(Policy{AllowedSchemes: []string{"http"}}, failing, nil)
	assert.ErrorContains(t, r.Resolve(ctx, srv.URL+"/x"), "exit status 1")

	timed := &recorder{}
	r = NewRemote(Policy{AllowedSchemes: []string{"http"}, Timeout: 50 * time.Millisecond}, timed, nil)
	err := r.Resolve(ctx, srv.URL+"/slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, timed.names)

	r = &Remote{Policy: Policy{AllowedSchemes: []string{"http"}}}
	assert.ErrorIs(t, r.Resolve(ctx, srv.URL+"/x"), ErrNoCommand)
}

func TestRemote_Retries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		switch {
		case r.URL.Path == "/gone":
			http.NotFound(w, r)
		case n < 3:
			http.Error(w, "busy", http.StatusServiceUnavailable)
		default:
			w.Write([]byte("ok"))
		}
	}))
	defer srv.Close()

	p := Policy{AllowedSchemes: []string{"http"}, Retries: 3, RetryWait: time.Millisecond}
	rec := &recorder{}
	r := NewRemote(p, rec, nil)

	require.NoError(t, r.Resolve(context.Background(), srv.URL+"/flaky"))
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, []string{"ok"}, rec.codes)

	hits.Store(10)
	err := r.Resolve(context.Background(), srv.URL+"/gone")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, int32(11), hits.Load(), "4xx must not be retried")

	hits.Store(0)
	p.Retries = 1
	r = NewRemote(p, rec, nil)
	err = r.Resolve(context.Background(), srv.URL+"/flaky")
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Temporary())
	assert.Equal(t, int32(2), hits.Load())
}

func TestDisabled(t *testing.T) {
	var logs bytes.Buffer
	d := Disabled{Logger: slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	assert.NoError(t, d.Resolve(context.Background(), "@https://example.com/x"))
	assert.Contains(t, logs.String(), "link resolution disabled")
	assert.NoError(t, Disabled{}.Resolve(context.Background(), "x"))
}

// Decoding through a Remote resolver: a denied link aborts the load and
// the policy error is visible through the codec error.
func TestRemote_DecodeAbortsOnDenied(t *testing.T) {
	doc := atff.NewDocument()
	doc.AddLink("@http://evil.example/x")
	s, _ := doc.AddSection("s")
	require.NoError(t, s.Set("k", atff.Int(1)))

	rec := &recorder{}
	r := NewRemote(Policy{}, rec, nil)

	// encoding logs and continues
	data, err := atff.Encode(context.Background(), doc, atff.WithResolver(r))
	require.NoError(t, err)

	_, err = atff.Decode(context.Background(), data, atff.WithResolver(r))
	var re *atff.ResolverError
	require.ErrorAs(t, err, &re)
	assert.ErrorIs(t, err, ErrDenied)
	assert.Empty(t, rec.names)
}

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	require.NoError(t, err)
	return u
}
