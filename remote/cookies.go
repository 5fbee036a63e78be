package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/urcuisine/urcuisine/storage"
)

const (
	cookieBucket     = "client"
	cookieRecordType = "COOKIES"
	cookieRecordVer  = 1
)

type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	// Expires is nil for session cookies.
	Expires *time.Time `json:"expires,omitempty"`
}

func (sc storedCookie) expired(now time.Time) bool {
	return sc.Expires != nil && sc.Expires.Before(now)
}

func (sc storedCookie) cookie() *http.Cookie {
	c := &http.Cookie{Name: sc.Name, Value: sc.Value, Path: sc.Path}
	if sc.Expires != nil {
		c.Expires = *sc.Expires
	}
	return c
}

// persistentJar is a cookie jar for a single API host whose cookies are
// mirrored into a storage.Repository.
type persistentJar struct {
	jar    *cookiejar.Jar
	repo   storage.Repository
	base   *url.URL
	logger *slog.Logger

	mu      sync.Mutex
	cookies map[string]storedCookie
}

var _ http.CookieJar = (*persistentJar)(nil)

func newPersistentJar(repo storage.Repository, base *url.URL, logger *slog.Logger) (*persistentJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	j := &persistentJar{
		jar:     jar,
		repo:    repo,
		base:    base,
		logger:  logger,
		cookies: make(map[string]storedCookie),
	}
	if err := j.load(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *persistentJar) load() error {
	rec, err := j.repo.Get(cookieBucket, cookieRecordType, j.base.Host)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrBucketNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading cookies: %w", err)
	}
	var stored []storedCookie
	if err := json.Unmarshal(rec.Data, &stored); err != nil {
		// A corrupt cookie record only costs a fresh login.
		j.logger.Warn("discarding unreadable cookie record", "error", err)
		return nil
	}

	now := time.Now()
	var restore []*http.Cookie
	for _, sc := range stored {
		if sc.expired(now) {
			continue
		}
		j.cookies[sc.Name] = sc
		restore = append(restore, sc.cookie())
	}
	j.jar.SetCookies(j.base, restore)
	return nil
}

func (j *persistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.jar.SetCookies(u, cookies)
	if u.Host != j.base.Host {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	for _, c := range cookies {
		if c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(now)) {
			delete(j.cookies, c.Name)
			continue
		}
		sc := storedCookie{Name: c.Name, Value: c.Value, Path: c.Path}
		switch {
		case c.MaxAge > 0:
			exp := now.Add(time.Duration(c.MaxAge) * time.Second)
			sc.Expires = &exp
		case !c.Expires.IsZero():
			exp := c.Expires
			sc.Expires = &exp
		}
		j.cookies[c.Name] = sc
	}
	j.saveLocked()
}

func (j *persistentJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

func (j *persistentJar) saveLocked() {
	stored := make([]storedCookie, 0, len(j.cookies))
	for _, sc := range j.cookies {
		stored = append(stored, sc)
	}
	data, err := json.Marshal(stored)
	if err != nil {
		j.logger.Warn("failed to encode cookies", "error", err)
		return
	}
	rec := &storage.Record{Ver: cookieRecordVer, Data: data, UpdatedAt: time.Now().UTC()}
	if err := j.repo.Put(cookieBucket, cookieRecordType, j.base.Host, rec); err != nil {
		j.logger.Warn("failed to persist cookies", "error", err)
	}
}
