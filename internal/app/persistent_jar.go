package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/florianilch/dashctl/internal/sessionstore"
)

// PersistentJar is an http.CookieJar whose backend cookies survive restarts.
// Stored cookies are loaded on first use; cookies the backend sets are written back.
type PersistentJar struct {
	store  sessionstore.SessionStore
	origin *url.URL

	jar func() (*cookiejar.Jar, error)

	// writable is cleared when the stored session could not be read, so it is never clobbered.
	writable    atomic.Bool
	mu          sync.Mutex
	tracked     map[string]*http.Cookie
	lastWritten atomic.Pointer[string]
}

// Compile-time check to ensure PersistentJar implements http.CookieJar
var _ http.CookieJar = (*PersistentJar)(nil)

// NewPersistentJar creates a PersistentJar persisting the cookies of baseURL's origin.
// No I/O is performed until the jar is first used.
func NewPersistentJar(store sessionstore.SessionStore, baseURL string, writable bool) (*PersistentJar, error) {
	if store == nil {
		return nil, errors.New("missing session store")
	}
	origin, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if origin.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: host required", baseURL)
	}

	p := &PersistentJar{
		store:   store,
		origin:  &url.URL{Scheme: origin.Scheme, Host: origin.Host, Path: "/"},
		tracked: make(map[string]*http.Cookie),
	}
	p.writable.Store(writable)
	p.jar = sync.OnceValues(p.createJar)

	return p, nil
}

// createJar performs one-time initialization from the stored session.
func (p *PersistentJar) createJar() (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	// http.CookieJar has no context parameter
	ctx := context.Background()

	stored, err := p.store.Read(ctx)
	if errors.Is(err, sessionstore.ErrNotFound) {
		return jar, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to read stored session, continuing without it", "error", err)
		p.writable.Store(false)
		return jar, nil
	}

	cookies, err := sessionstore.Decode(stored)
	if err != nil {
		slog.ErrorContext(ctx, "failed to decode stored session, continuing without it", "error", err)
		p.writable.Store(false)
		return jar, nil
	}

	jar.SetCookies(p.origin, cookies)
	p.mu.Lock()
	for _, c := range cookies {
		stored := *c
		stored.Path = effectivePath(c, p.origin)
		p.tracked[cookieKey(&stored)] = &stored
	}
	p.mu.Unlock()

	// Remember the loaded session to avoid an unnecessary write-back
	p.lastWritten.Store(&stored)

	slog.DebugContext(ctx, "loaded stored session", "cookies", len(cookies))
	return jar, nil
}

// Cookies implements http.CookieJar.
func (p *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	jar, err := p.jar()
	if err != nil {
		slog.Error("cookie jar unavailable", "error", err)
		return nil
	}
	return jar.Cookies(u)
}

// SetCookies implements http.CookieJar and persists changes to backend cookies.
func (p *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	jar, err := p.jar()
	if err != nil {
		slog.Error("cookie jar unavailable", "error", err)
		return
	}
	jar.SetCookies(u, cookies)

	if !strings.EqualFold(u.Host, p.origin.Host) {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for _, c := range cookies {
		stored := *c
		stored.Path = effectivePath(c, u)
		key := cookieKey(&stored)
		if c.MaxAge < 0 || (!c.Expires.IsZero() && !c.Expires.After(now)) {
			delete(p.tracked, key)
			continue
		}
		if c.MaxAge > 0 {
			stored.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		p.tracked[key] = &stored
	}

	p.persistLocked()
}

// Clear forgets every backend cookie, in memory and in storage.
func (p *PersistentJar) Clear() {
	jar, err := p.jar()
	if err != nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	expired := make([]*http.Cookie, 0, len(p.tracked))
	for _, c := range p.tracked {
		expired = append(expired, &http.Cookie{Name: c.Name, Path: c.Path, Domain: c.Domain, MaxAge: -1})
	}
	jar.SetCookies(p.origin, expired)
	clear(p.tracked)

	p.persistLocked()
}

// persistLocked writes the tracked cookies if they changed. Caller holds p.mu.
func (p *PersistentJar) persistLocked() {
	if !p.writable.Load() {
		return
	}

	cookies := make([]*http.Cookie, 0, len(p.tracked))
	for _, c := range p.tracked {
		cookies = append(cookies, c)
	}
	// Stable order so unchanged sessions encode identically
	slices.SortFunc(cookies, func(a, b *http.Cookie) int {
		return strings.Compare(cookieKey(a), cookieKey(b))
	})

	encoded, err := sessionstore.Encode(cookies)
	if err != nil {
		slog.Error("failed to encode session", "error", err)
		return
	}

	if last := p.lastWritten.Load(); last != nil && *last == encoded {
		return
	}

	// http.CookieJar has no context parameter
	ctx := context.Background()
	if err := p.store.Write(ctx, encoded); err != nil {
		// Cookies remain usable in memory, but the session is lost on exit
		slog.ErrorContext(ctx, "failed to persist session", "error", err)
		return
	}
	// Update cached session only on success - allows retry on next change
	p.lastWritten.Store(&encoded)
}

// cookieKey identifies a cookie the way the jar does: by name, domain and path.
func cookieKey(c *http.Cookie) string {
	domain := strings.ToLower(strings.TrimPrefix(c.Domain, "."))
	return c.Name + ";" + domain + ";" + c.Path
}

// effectivePath is the path the jar stores c under when set from u (RFC 6265 section 5.1.4).
func effectivePath(c *http.Cookie, u *url.URL) string {
	if strings.HasPrefix(c.Path, "/") {
		return c.Path
	}
	dir := u.Path
	if !strings.HasPrefix(dir, "/") {
		return "/"
	}
	i := strings.LastIndex(dir, "/")
	if i == 0 {
		return "/"
	}
	return dir[:i]
}
