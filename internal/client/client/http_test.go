package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct{ token string }

func (s *staticTokens) Token() string { return s.token }

func newTestClient(t *testing.T, h http.HandlerFunc, token string) (*HTTPClient, *staticTokens) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ts := &staticTokens{token: token}
	c, err := NewHTTPClient(srv.URL, ts)
	require.NoError(t, err)
	return c, ts
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewHTTPClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewHTTPClient("localhost:8080", nil)
	require.Error(t, err)
}

func TestHTTPClient_Register(t *testing.T) {
	var gotBody map[string]string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/register", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeJSON(w, http.StatusOK, map[string]string{"tempPassword": "tmp-123"})
	}, "")

	pw, err := c.Register(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "tmp-123", pw)
	assert.Equal(t, "alice", gotBody["username"])
}

func TestHTTPClient_Login(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		require.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{
			"token": "tok",
			"user":  map[string]any{"username": "alice", "must_change_password": true},
		})
	}, "")

	token, id, err := c.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, "alice", id.Username)
	assert.True(t, id.MustChangePassword)
}

func TestHTTPClient_Login_BadCredentialsDoesNotFireHandler(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
	}, "")

	var fired atomic.Bool
	c.SetUnauthorizedHandler(func(context.Context) { fired.Store(true) })

	_, _, err := c.Login(context.Background(), "alice", "nope")
	require.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.False(t, fired.Load())
}

func TestHTTPClient_Login_MissingToken(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"username": "alice"}})
	}, "")

	_, _, err := c.Login(context.Background(), "alice", "pw")
	require.Error(t, err)
}

func TestHTTPClient_BearerHeaderReadPerRequest(t *testing.T) {
	var seen []string
	c, ts := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []map[string]string{})
	}, "first")

	_, err := c.Contacts(context.Background())
	require.NoError(t, err)

	ts.token = "second"
	_, err = c.Contacts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer first", "Bearer second"}, seen)
}

func TestHTTPClient_UnauthorizedFiresHandler(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, status, map[string]string{"error": "expired"})
		}, "tok")

		var calls atomic.Int32
		c.SetUnauthorizedHandler(func(context.Context) { calls.Add(1) })

		_, err := c.ListSent(context.Background())
		require.ErrorIs(t, err, ErrUnauthorized)
		assert.Equal(t, int32(1), calls.Load(), "status %d", status)
	}
}

func TestHTTPClient_ServerErrorMessage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Receiver not found"})
	}, "tok")

	_, err := c.SendImage(context.Background(), "ghost", "a.png", []byte("\x89PNG\r\n\x1a\n"))
	require.ErrorIs(t, err, ErrResourceUnavailable)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Receiver not found", apiErr.Message)
}

func TestHTTPClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewHTTPClient(url, &staticTokens{token: "tok"})
	require.NoError(t, err)

	_, err = c.Contacts(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClient_DeleteContactAndSearch(t *testing.T) {
	var paths []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.EscapedPath()+"?"+r.URL.RawQuery)
		if r.Method == http.MethodGet {
			writeJSON(w, http.StatusOK, []map[string]string{{"username": "bob"}, {"username": "bobby"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{})
	}, "tok")

	require.NoError(t, c.DeleteContact(context.Background(), "a b"))
	got, err := c.SearchUsers(context.Background(), "bo b")
	require.NoError(t, err)

	assert.Equal(t, []string{"DELETE /contacts/a%20b?", "GET /users/search?q=bo+b"}, paths)
	require.Len(t, got, 2)
	assert.Equal(t, "bob", got[0].Username)
	assert.Equal(t, "bobby", got[1].Username)
}

func TestHTTPClient_SendImage_Multipart(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/messages/send", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "bob", r.FormValue("toUsername"))

		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, png, b)
		assert.Equal(t, "cat.png", hdr.Filename)
		assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))

		writeJSON(w, http.StatusOK, map[string]any{
			"receiver":  "bob",
			"expiresAt": "2026-03-01T12:30:00Z",
			"shareLink": "https://h/s/xyz",
		})
	}, "tok")

	rc, err := c.SendImage(context.Background(), "bob", "cat.png", png)
	require.NoError(t, err)
	assert.Equal(t, "bob", rc.Receiver)
	assert.True(t, rc.ExpiresAt.Equal(time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)))
	assert.Equal(t, "https://h/s/xyz", rc.ShareLink)
}

func TestHTTPClient_ListSent(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[
			{"to_username":"bob","original_name":"a.jpg","expires_at":1772368200000,"fileUrl":"/files/abc.jpg"},
			{"to_username":"eve","original_name":"b.jpg","expires_at":"2026-03-01T12:30:00Z","fileUrl":"/files/def.jpg"}
		]`)
	}, "tok")

	items, err := c.ListSent(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "abc.jpg", items[0].RemoteID)
	assert.Equal(t, "bob", items[0].Counterpart)
	assert.Equal(t, "/files/abc.jpg", items[0].FetchPath)
	assert.True(t, items[0].ExpiresAt.Equal(items[1].ExpiresAt))
}

func TestHTTPClient_ListReceived_PreservesSenderOrder(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{
			"zed":   [{"original_name":"z.jpg","expires_at":null,"fileUrl":"/files/z1.jpg"}],
			"alice": [{"original_name":"a1.jpg","fileUrl":"/files/a1.jpg"},{"original_name":"a2.jpg","fileUrl":"/files/a2.jpg"}],
			"mike":  []
		}`)
	}, "tok")

	groups, err := c.ListReceived(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, "zed", groups[0].Sender)
	assert.Equal(t, "alice", groups[1].Sender)
	assert.Equal(t, "mike", groups[2].Sender)
	require.Len(t, groups[1].Items, 2)
	assert.Equal(t, "alice", groups[1].Items[1].Counterpart)
	assert.Equal(t, "a2.jpg", groups[1].Items[1].RemoteID)
	assert.Empty(t, groups[2].Items)
}

func TestHTTPClient_ListReceived_RejectsArray(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}, "tok")

	_, err := c.ListReceived(context.Background())
	require.Error(t, err)
}

func TestHTTPClient_FetchProtected(t *testing.T) {
	var rawQueries []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/files/abc.jpg", r.URL.Path)
		require.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		require.NotContains(t, r.URL.String(), "secret-token")
		rawQueries = append(rawQueries, r.URL.RawQuery)
		_, _ = w.Write([]byte("image-bytes"))
	}, "secret-token")

	for i := 0; i < 2; i++ {
		b, err := c.FetchProtected(context.Background(), "/files/abc.jpg")
		require.NoError(t, err)
		assert.Equal(t, "image-bytes", string(b))
	}

	require.Len(t, rawQueries, 2)
	assert.True(t, strings.HasPrefix(rawQueries[0], "_cb="))
	assert.NotEqual(t, rawQueries[0], rawQueries[1], "each fetch carries a fresh cache-buster")
}

func TestHTTPClient_FetchProtected_ForeignHostGetsNoCredential(t *testing.T) {
	var foreignHits atomic.Int32
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		foreignHits.Add(1)
		_, _ = w.Write([]byte("elsewhere"))
	}))
	defer foreign.Close()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}, "secret-token")

	_, err := c.FetchProtected(context.Background(), foreign.URL+"/files/abc.jpg")
	require.ErrorIs(t, err, ErrResourceUnavailable)
	assert.Zero(t, foreignHits.Load(), "the foreign host never sees the request or its credential")
}

func TestHTTPClient_FetchProtected_AbsoluteSameOrigin(t *testing.T) {
	var auth string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("ok"))
	}, "secret-token")

	abs, err := c.ResolveURL("/files/abc.jpg")
	require.NoError(t, err)

	b, err := c.FetchProtected(context.Background(), abs)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(b))
	assert.Equal(t, "Bearer secret-token", auth)
}

func TestHTTPClient_FetchProtected_NotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, "tok")

	_, err := c.FetchProtected(context.Background(), "/files/gone.jpg")
	require.ErrorIs(t, err, ErrResourceUnavailable)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Empty(t, apiErr.Message)
}

func TestHTTPClient_ResolveURL(t *testing.T) {
	c, err := NewHTTPClient("https://api.example.com/v1", nil)
	require.NoError(t, err)

	got, err := c.ResolveURL("/files/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/files/a.jpg", got)

	got, err = c.ResolveURL("files/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/files/a.jpg", got)
}

func TestAPIError_Error(t *testing.T) {
	assert.Equal(t, "HTTP 500", (&APIError{Status: 500}).Error())
	assert.Equal(t, "HTTP 400: bad", (&APIError{Status: 400, Message: "bad"}).Error())
}
