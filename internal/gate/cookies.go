package gate

import (
	"net/http"
)

// cookieJar is the invocation-scoped cookie state behind an identity check.
// It implements authclient.CookieJar.
//
// Writes land in two places. Each entry is mirrored onto the request's own
// Cookie header, so later reads in the same invocation (and the upstream the
// request is eventually forwarded to) observe refreshed values. Each entry is
// also recorded in a single ordered accumulator that is flushed onto the
// response exactly once, by apply. The accumulator is keyed by cookie name:
// rewriting a name updates the held entry in place, so the final response
// carries one Set-Cookie per name while preserving first-write order.
type cookieJar struct {
	req     *http.Request
	pending []*http.Cookie
	index   map[string]int
}

func newCookieJar(r *http.Request) *cookieJar {
	return &cookieJar{req: r, index: make(map[string]int)}
}

// ReadCookies returns the request's current cookie view, including any
// mutations from earlier WriteCookies calls in this invocation.
func (j *cookieJar) ReadCookies() []*http.Cookie {
	return j.req.Cookies()
}

// WriteCookies accumulates a Set-Cookie batch for the response and mirrors it
// onto the request.
func (j *cookieJar) WriteCookies(batch []*http.Cookie) {
	for _, c := range batch {
		if c == nil || c.Name == "" {
			continue
		}
		if i, ok := j.index[c.Name]; ok {
			j.pending[i] = c
			continue
		}
		j.index[c.Name] = len(j.pending)
		j.pending = append(j.pending, c)
	}
	j.mirror(batch)
}

// apply writes every accumulated cookie onto the response in first-write
// order. Called once, and only when the request is allowed through.
func (j *cookieJar) apply(w http.ResponseWriter) {
	for _, c := range j.pending {
		http.SetCookie(w, c)
	}
}

// mirror rebuilds the request's Cookie header with the batch folded in.
// Existing values keep their position, new names append, and entries with a
// negative MaxAge (deletions) disappear from the request view.
func (j *cookieJar) mirror(batch []*http.Cookie) {
	current := j.req.Cookies()

	values := make(map[string]string, len(current)+len(batch))
	order := make([]string, 0, len(current)+len(batch))
	for _, c := range current {
		if _, seen := values[c.Name]; !seen {
			order = append(order, c.Name)
		}
		values[c.Name] = c.Value
	}

	for _, c := range batch {
		if c == nil || c.Name == "" {
			continue
		}
		if c.MaxAge < 0 {
			delete(values, c.Name)
			continue
		}
		if _, seen := values[c.Name]; !seen {
			order = append(order, c.Name)
		}
		values[c.Name] = c.Value
	}

	j.req.Header.Del("Cookie")
	for _, name := range order {
		value, ok := values[name]
		if !ok {
			continue
		}
		j.req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
}
