package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"klovn-bot/internal/game"
)

const testToken = "123456:test-token"

// signedInitData signs values the way Telegram does: HMAC-SHA256 of the
// sorted key=value lines, keyed by HMAC("WebAppData", token).
func signedInitData(token string, values url.Values) string {
	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(token))

	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "=" + values.Get(k)
	}

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))
	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return values.Encode()
}

func launchValues(authDate time.Time) url.Values {
	v := url.Values{}
	v.Set("query_id", "AAE")
	v.Set("user", `{"id":42,"first_name":"Mile","username":"mile"}`)
	v.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	return v
}

func TestVerify(t *testing.T) {
	v := NewVerifier(testToken, time.Hour)
	authDate := time.Now().Add(-time.Minute).Truncate(time.Second)

	data, err := v.Verify(signedInitData(testToken, launchValues(authDate)))
	require.NoError(t, err)
	assert.Equal(t, int64(42), data.User.ID)
	assert.Equal(t, "Mile", data.User.FirstName)
	assert.Equal(t, "mile", data.User.Username)
	assert.Equal(t, "AAE", data.QueryID)
	assert.True(t, authDate.Equal(data.AuthDate), "auth date %v, want %v", data.AuthDate, authDate)
}

func TestVerifyRejects(t *testing.T) {
	v := NewVerifier(testToken, time.Hour)
	now := time.Now()

	noUser := launchValues(now)
	noUser.Del("user")

	noAuthDate := launchValues(now)
	noAuthDate.Del("auth_date")

	tampered, err := url.ParseQuery(signedInitData(testToken, launchValues(now)))
	require.NoError(t, err)
	tampered.Set("user", `{"id":43,"first_name":"Zoki"}`)

	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "", ErrMissingInitData},
		{"no hash", launchValues(now).Encode(), ErrInvalidInitData},
		{"wrong token", signedInitData("other-token", launchValues(now)), ErrInvalidInitData},
		{"tampered", tampered.Encode(), ErrInvalidInitData},
		{"expired", signedInitData(testToken, launchValues(now.Add(-2*time.Hour))), ErrExpiredInitData},
		{"no auth date", signedInitData(testToken, noAuthDate), ErrExpiredInitData},
		{"no user", signedInitData(testToken, noUser), ErrMissingUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.raw)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, game.ErrUnauthorized)
		})
	}
}

func TestVerifyMaxAgeDisabled(t *testing.T) {
	v := NewVerifier(testToken, 0)
	_, err := v.Verify(signedInitData(testToken, launchValues(time.Now().Add(-365*24*time.Hour))))
	assert.NoError(t, err)
}

// TestVerifyTamperProperty checks that any signed launch data verifies and
// that changing a single field afterwards is always detected.
func TestVerifyTamperProperty(t *testing.T) {
	v := NewVerifier(testToken, 0)

	rapid.Check(t, func(t *rapid.T) {
		id := rapid.Int64Range(1, 1<<40).Draw(t, "id")
		param := rapid.StringMatching(`[a-z0-9_]{0,16}`).Draw(t, "param")

		vals := url.Values{}
		vals.Set("user", fmt.Sprintf(`{"id":%d}`, id))
		vals.Set("start_param", param)
		raw := signedInitData(testToken, vals)

		data, err := v.Verify(raw)
		if err != nil {
			t.Fatalf("signed data rejected: %v", err)
		}
		if data.User.ID != id {
			t.Fatalf("user id = %d, want %d", data.User.ID, id)
		}

		tampered, _ := url.ParseQuery(raw)
		tampered.Set("start_param", param+"x")
		if _, err := v.Verify(tampered.Encode()); !errors.Is(err, ErrInvalidInitData) {
			t.Fatalf("tampered data accepted: %v", err)
		}
	})
}
