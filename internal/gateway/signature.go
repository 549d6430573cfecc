package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingSignature means the signature or request-id header is absent.
	ErrMissingSignature = errors.New("webhook signature headers missing")

	// ErrMalformedSignature means the signature header lacks ts or v1.
	ErrMalformedSignature = errors.New("webhook signature malformed")

	// ErrSignatureMismatch means the digest does not match the payload.
	ErrSignatureMismatch = errors.New("webhook signature mismatch")
)

// signatureManifest builds the string the gateway signs.
func signatureManifest(dataID, requestID, ts string) string {
	return fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
}

func digest(secret, manifest string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return hex.EncodeToString(mac.Sum(nil))
}

// Sign returns an x-signature header value for the given payload.
func Sign(secret, dataID, requestID, ts string) string {
	return fmt.Sprintf("ts=%s,v1=%s", ts, digest(secret, signatureManifest(dataID, requestID, ts)))
}

// VerifySignature checks an x-signature header of the form "ts=...,v1=..." against
// an HMAC-SHA256 of the manifest keyed by secret.
func VerifySignature(secret, xSignature, xRequestID, dataID string) error {
	if xSignature == "" || xRequestID == "" {
		return ErrMissingSignature
	}

	var ts, v1 string
	for _, part := range strings.Split(xSignature, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "ts":
			ts = value
		case "v1":
			v1 = value
		}
	}
	if ts == "" || v1 == "" {
		return ErrMalformedSignature
	}

	expected := digest(secret, signatureManifest(dataID, xRequestID, ts))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(v1))) {
		return ErrSignatureMismatch
	}
	return nil
}
