package remote

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urcuisine/urcuisine/storage"
	"github.com/urcuisine/urcuisine/storage/memory"
)

func newTestJar(t *testing.T, repo storage.Repository) (*persistentJar, *url.URL) {
	t.Helper()
	base, err := url.Parse("http://api.example.com")
	require.NoError(t, err)
	j, err := newPersistentJar(repo, base, slog.Default())
	require.NoError(t, err)
	return j, base
}

func storedRecord(t *testing.T, repo storage.Repository) []map[string]any {
	t.Helper()
	rec, err := repo.Get(cookieBucket, cookieRecordType, "api.example.com")
	require.NoError(t, err)
	var raw []map[string]any
	require.NoError(t, json.Unmarshal(rec.Data, &raw))
	return raw
}

func TestSessionCookieStoredWithoutExpiry(t *testing.T) {
	repo := memory.NewRepository()
	j, base := newTestJar(t, repo)

	j.SetCookies(base, []*http.Cookie{{Name: "jwt", Value: "abc", Path: "/"}})

	raw := storedRecord(t, repo)
	require.Len(t, raw, 1)
	assert.Equal(t, "jwt", raw[0]["name"])
	assert.NotContains(t, raw[0], "expires")

	reloaded, _ := newTestJar(t, repo)
	cookies := reloaded.Cookies(base)
	require.Len(t, cookies, 1)
	assert.Equal(t, "abc", cookies[0].Value)
}

func TestMaxAgeCookieStoredWithExpiry(t *testing.T) {
	repo := memory.NewRepository()
	j, base := newTestJar(t, repo)

	j.SetCookies(base, []*http.Cookie{{Name: "jwt", Value: "abc", Path: "/", MaxAge: 3600}})

	raw := storedRecord(t, repo)
	require.Len(t, raw, 1)
	require.Contains(t, raw[0], "expires")
	exp, err := time.Parse(time.RFC3339Nano, raw[0]["expires"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)
}

func TestExpiredStoredCookieDropped(t *testing.T) {
	repo := memory.NewRepository()
	past := time.Now().Add(-time.Hour)
	data, err := json.Marshal([]storedCookie{
		{Name: "old", Value: "x", Path: "/", Expires: &past},
		{Name: "jwt", Value: "abc", Path: "/"},
	})
	require.NoError(t, err)
	require.NoError(t, repo.Put(cookieBucket, cookieRecordType, "api.example.com",
		&storage.Record{Ver: cookieRecordVer, Data: data}))

	j, base := newTestJar(t, repo)
	cookies := j.Cookies(base)
	require.Len(t, cookies, 1)
	assert.Equal(t, "jwt", cookies[0].Name)
}

func TestExpiringCookieRemovesStoredEntry(t *testing.T) {
	repo := memory.NewRepository()
	j, base := newTestJar(t, repo)

	j.SetCookies(base, []*http.Cookie{{Name: "jwt", Value: "abc", Path: "/"}})
	j.SetCookies(base, []*http.Cookie{{Name: "jwt", Value: "", Path: "/", MaxAge: -1}})

	assert.Empty(t, storedRecord(t, repo))
}
