// Package netx has URL helpers for talking to the picdrop backend.
package netx

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"
)

var cacheBustSeq atomic.Uint64

// Resolve interprets ref relative to base. Absolute refs are returned as-is.
func Resolve(base *url.URL, ref string) (*url.URL, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("parse reference %q: %w", ref, err)
	}
	if base == nil {
		return r, nil
	}
	return base.ResolveReference(r), nil
}

// WithQuery returns a copy of u with key set to value.
func WithQuery(u *url.URL, key, value string) *url.URL {
	out := *u
	q := out.Query()
	q.Set(key, value)
	out.RawQuery = q.Encode()
	return &out
}

// CacheBustValue returns a value unique within the process, suitable for a
// cache-defeating query parameter.
func CacheBustValue() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + "." + strconv.FormatUint(cacheBustSeq.Add(1), 36)
}

// DrainClose consumes what is left of body so the connection can be reused,
// then closes it.
func DrainClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
