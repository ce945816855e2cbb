package session

import (
	"encoding/base64"
	"testing"
	"time"
)

func makeToken(payload string, enc *base64.Encoding) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	return header + "." + enc.EncodeToString([]byte(payload)) + ".c2lnbmF0dXJl"
}

func TestIsValid(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"future exp", makeToken(`{"exp":1700000600}`, base64.RawURLEncoding), true},
		{"past exp", makeToken(`{"exp":1699999000}`, base64.RawURLEncoding), false},
		{"exp equal to now", makeToken(`{"exp":1700000000}`, base64.RawURLEncoding), false},
		{"exp one second ahead", makeToken(`{"exp":1700000001}`, base64.RawURLEncoding), true},
		{"padded standard alphabet", makeToken(`{"exp":1700000600,"user":"a?b>"}`, base64.StdEncoding), true},
		{"padded url alphabet", makeToken(`{"exp":1700000600}`, base64.URLEncoding), true},
		{"no exp", makeToken(`{"user":"admin"}`, base64.RawURLEncoding), false},
		{"exp is a string", makeToken(`{"exp":"tomorrow"}`, base64.RawURLEncoding), false},
		{"payload not json", makeToken(`not json`, base64.RawURLEncoding), false},
		{"payload is an array", makeToken(`[1,2,3]`, base64.RawURLEncoding), false},
		{"payload not base64", "aGVhZGVy.***.c2ln", false},
		{"two segments", "aGVhZGVy.eyJleHAiOjE3MDAwMDA2MDB9", false},
		{"four segments", "a.b.c.d", false},
		{"empty payload", "a..c", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(tt.token, now); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}
