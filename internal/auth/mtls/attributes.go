package mtls

import (
	"encoding/asn1"
	"errors"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"identgate/internal/observability/logging"

	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// String tags that cryptobyte/asn1 does not name
const (
	tagNumericString = cbasn1.Tag(asn1.TagNumericString)
	tagVisibleString = cbasn1.Tag(26)
	tagBMPString     = cbasn1.Tag(asn1.TagBMPString)
)

// ErrUnsupportedValueType is returned for attribute values that are not ASN.1 strings
var ErrUnsupportedValueType = errors.New("unsupported attribute value type")

// Attribute is one AttributeTypeAndValue of a subject name, value still encoded
type Attribute struct {
	Type  asn1.ObjectIdentifier
	Tag   cbasn1.Tag
	Value []byte
}

// DecodeAttribute decodes the attribute value as a string
func DecodeAttribute(a Attribute) (string, error) {
	switch a.Tag {
	case cbasn1.UTF8String:
		if !utf8.Valid(a.Value) {
			return "", errors.New("invalid UTF8String")
		}
		return string(a.Value), nil
	case cbasn1.PrintableString:
		for _, b := range a.Value {
			if !isPrintable(b) {
				return "", errors.New("invalid PrintableString")
			}
		}
		return string(a.Value), nil
	case cbasn1.IA5String:
		for _, b := range a.Value {
			if b >= utf8.RuneSelf {
				return "", errors.New("invalid IA5String")
			}
		}
		return string(a.Value), nil
	case tagNumericString:
		for _, b := range a.Value {
			if b != ' ' && (b < '0' || b > '9') {
				return "", errors.New("invalid NumericString")
			}
		}
		return string(a.Value), nil
	case tagVisibleString:
		for _, b := range a.Value {
			if b < 0x20 || b > 0x7e {
				return "", errors.New("invalid VisibleString")
			}
		}
		return string(a.Value), nil
	case cbasn1.T61String:
		// T61 is decoded as Latin-1, the same way crypto/x509 does.
		buf := make([]rune, len(a.Value))
		for i, b := range a.Value {
			buf[i] = rune(b)
		}
		return string(buf), nil
	case tagBMPString:
		return decodeBMPString(a.Value)
	default:
		return "", fmt.Errorf("%w: tag %d", ErrUnsupportedValueType, int(a.Tag))
	}
}

// attributeValue decodes a, logging a warning and reporting absence when it is malformed
func attributeValue(logger *logging.Logger, a Attribute) (string, bool) {
	value, err := DecodeAttribute(a)
	if err != nil {
		logger.Warn("Ignoring malformed subject attribute",
			"attribute_type", logging.OID(a.Type),
			"tag", int(a.Tag),
			logging.Err(err),
		)
		return "", false
	}
	return value, true
}

func decodeBMPString(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", errors.New("invalid BMPString")
	}

	// Strip a terminator if present
	if l := len(b); l >= 2 && b[l-1] == 0 && b[l-2] == 0 {
		b = b[:l-2]
	}

	units := make([]uint16, 0, len(b)/2)
	for len(b) > 0 {
		units = append(units, uint16(b[0])<<8|uint16(b[1]))
		b = b[2:]
	}

	runes := make([]rune, 0, len(units))
	for i := 0; i < len(units); i++ {
		r := rune(units[i])
		if utf16.IsSurrogate(r) {
			// Only a high surrogate followed by a low one forms a rune
			if i+1 == len(units) {
				return "", errors.New("invalid BMPString: unpaired surrogate")
			}
			r = utf16.DecodeRune(r, rune(units[i+1]))
			if r == utf8.RuneError {
				return "", errors.New("invalid BMPString: unpaired surrogate")
			}
			i++
		}
		runes = append(runes, r)
	}
	return string(runes), nil
}

// isPrintable reports whether b is in the PrintableString alphabet. '*' and '&'
// are accepted because widely deployed CAs emit them.
func isPrintable(b byte) bool {
	return 'a' <= b && b <= 'z' ||
		'A' <= b && b <= 'Z' ||
		'0' <= b && b <= '9' ||
		'\'' <= b && b <= ')' ||
		'+' <= b && b <= '/' ||
		b == ' ' ||
		b == ':' ||
		b == '=' ||
		b == '?' ||
		b == '*' ||
		b == '&'
}
