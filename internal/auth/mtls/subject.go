package mtls

import (
	"encoding/asn1"
	"errors"

	"identgate/internal/auth"
	"identgate/internal/observability/logging"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var (
	oidCommonName         = asn1.ObjectIdentifier{2, 5, 4, 3}
	oidOrganizationalUnit = asn1.ObjectIdentifier{2, 5, 4, 11}
)

// ReadSubject checks that der is a well-formed X.509 certificate structure and
// returns the attributes of its subject name in encounter order. Attribute
// values are not decoded here, so a malformed string never rejects the
// certificate.
func ReadSubject(der []byte) ([]Attribute, error) {
	subject, err := certificateSubject(der)
	if err != nil {
		return nil, err
	}

	var attrs []Attribute
	for !subject.Empty() {
		var rdn cryptobyte.String
		if !subject.ReadASN1(&rdn, cbasn1.SET) {
			return nil, errors.New("malformed relative distinguished name")
		}
		for !rdn.Empty() {
			var atv, value cryptobyte.String
			var a Attribute
			if !rdn.ReadASN1(&atv, cbasn1.SEQUENCE) {
				return nil, errors.New("malformed attribute")
			}
			if !atv.ReadASN1ObjectIdentifier(&a.Type) {
				return nil, errors.New("malformed attribute type")
			}
			if !atv.ReadAnyASN1(&value, &a.Tag) || !atv.Empty() {
				return nil, errors.New("malformed attribute value")
			}
			a.Value = value
			attrs = append(attrs, a)
		}
	}

	return attrs, nil
}

// certificateSubject walks the Certificate and TBSCertificate sequences far
// enough to prove their shape and returns the subject Name contents.
func certificateSubject(der []byte) (cryptobyte.String, error) {
	input := cryptobyte.String(der)

	var cert, tbs, subject cryptobyte.String
	if !input.ReadASN1(&cert, cbasn1.SEQUENCE) || !input.Empty() {
		return nil, errors.New("malformed certificate")
	}
	if !cert.ReadASN1(&tbs, cbasn1.SEQUENCE) {
		return nil, errors.New("malformed tbs certificate")
	}
	if !cert.SkipASN1(cbasn1.SEQUENCE) {
		return nil, errors.New("malformed signature algorithm identifier")
	}
	var signature asn1.BitString
	if !cert.ReadASN1BitString(&signature) || !cert.Empty() {
		return nil, errors.New("malformed signature")
	}

	if !tbs.SkipOptionalASN1(cbasn1.Tag(0).Constructed().ContextSpecific()) {
		return nil, errors.New("malformed version")
	}
	if !tbs.SkipASN1(cbasn1.INTEGER) {
		return nil, errors.New("malformed serial number")
	}
	if !tbs.SkipASN1(cbasn1.SEQUENCE) {
		return nil, errors.New("malformed signature algorithm identifier")
	}
	if !tbs.SkipASN1(cbasn1.SEQUENCE) {
		return nil, errors.New("malformed issuer")
	}
	if !tbs.SkipASN1(cbasn1.SEQUENCE) {
		return nil, errors.New("malformed validity")
	}
	if !tbs.ReadASN1(&subject, cbasn1.SEQUENCE) {
		return nil, errors.New("malformed subject")
	}
	if !tbs.SkipASN1(cbasn1.SEQUENCE) {
		return nil, errors.New("malformed subject public key info")
	}

	return subject, nil
}

// UserInfoFromSubject builds a UserInfo from subject attributes. The last
// decodable common name becomes the username; every organizational unit
// becomes a group.
func UserInfoFromSubject(logger *logging.Logger, attrs []Attribute) *auth.UserInfo {
	var (
		username string
		found    bool
		groups   []string
	)

	for _, a := range attrs {
		if !a.Type.Equal(oidCommonName) {
			continue
		}
		name, ok := attributeValue(logger, a)
		if !ok {
			continue
		}
		if found {
			logger.Warn("Certificate specifies more than one subject CN field, ignoring previous field",
				"ignored", username)
		}
		username, found = name, true
	}

	for _, a := range attrs {
		if !a.Type.Equal(oidOrganizationalUnit) {
			continue
		}
		if group, ok := attributeValue(logger, a); ok {
			groups = append(groups, group)
		}
	}

	if !found {
		username = auth.MissingUsername
	}

	return auth.NewUserInfo(username, groups)
}
