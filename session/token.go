package session

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/golang-jwt/jwt/v5"
)

var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// IsValid reports whether token is a three-segment token whose payload carries an exp
// claim strictly after now (compared in whole seconds). The signature is not checked;
// the server does that. Malformed input yields false.
func IsValid(token string, now time.Time) bool {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 || parts[1] == "" {
		return false
	}
	payload, err := decodeSegment(parts[1])
	if err != nil {
		return false
	}
	claims := jwt.MapClaims{}
	if err := sonic.Unmarshal(payload, &claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Unix() > now.Unix()
}

// decodeSegment accepts base64url (the JWT alphabet) as well as standard base64,
// with or without padding.
func decodeSegment(seg string) ([]byte, error) {
	if b, err := segmentParser.DecodeSegment(seg); err == nil {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(seg); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(seg, "="))
}
