package logging

import (
	"crypto/sha256"
	"encoding/asn1"
	"encoding/hex"
	"log/slog"
)

// CertFingerprint wraps DER bytes so that only their SHA-256 digest is logged
type CertFingerprint []byte

// LogValue implements slog.LogValuer to avoid dumping whole certificates
func (c CertFingerprint) LogValue() slog.Value {
	sum := sha256.Sum256(c)
	return slog.StringValue(hex.EncodeToString(sum[:]))
}

// Fingerprint returns a safely loggable certificate value
func Fingerprint(der []byte) slog.LogValuer {
	return CertFingerprint(der)
}

// OID wraps an object identifier for logging in dotted form
type OID asn1.ObjectIdentifier

// LogValue implements slog.LogValuer
func (o OID) LogValue() slog.Value {
	return slog.StringValue(asn1.ObjectIdentifier(o).String())
}
