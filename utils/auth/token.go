package auth

import (
	"crypto/rand"
	"encoding/base64"
)

// RedemptionTokenBytes is the entropy of a course access token
const RedemptionTokenBytes = 24

// GenerateRedemptionToken mints an opaque, URL-safe bearer token used to
// activate a course access. The token is the sole activation credential, so
// it must come from a CSPRNG.
func GenerateRedemptionToken() (string, error) {
	buf := make([]byte, RedemptionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
