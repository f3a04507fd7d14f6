package hlfcreator

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	pb "github.com/golang/protobuf/proto" //nolint:staticcheck
	"github.com/hyperledger/fabric-protos-go/msp"
)

const (
	// adminOU is the required OrganizationalUnit in the x509 certificate for Hyperledger admin.
	adminOU = "admin"
)

var (
	ErrEmptyCreator             = errors.New("creator is nil or empty")
	ErrDecodeSerializedIdentity = errors.New("failed to validate block after decode pem 'SerializedIdentity.IdBytes', block can't be nil or empty")
	ErrNotAdmin                 = errors.New("creator is not an admin")
)

// ValidateAdminCreator checks if the creator of the transaction is an admin
// and returns its MSP ID.
func ValidateAdminCreator(creator []byte) (string, error) {
	identity, cert, err := parseCreator(creator)
	if err != nil {
		return "", err
	}

	for _, ou := range cert.Subject.OrganizationalUnit {
		if strings.ToLower(ou) == adminOU {
			return identity.GetMspid(), nil
		}
	}

	return "", fmt.Errorf("%w: expected OU '%s' but found '%s'",
		ErrNotAdmin,
		adminOU,
		strings.Join(cert.Subject.OrganizationalUnit, ","),
	)
}

// BuildCreator serializes a DER certificate into the creator bytes a peer
// attaches to a proposal.
func BuildCreator(mspID string, certDER []byte) ([]byte, error) {
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	return pb.Marshal(&msp.SerializedIdentity{Mspid: mspID, IdBytes: pemBytes})
}

func parseCreator(creator []byte) (*msp.SerializedIdentity, *x509.Certificate, error) {
	if len(creator) == 0 {
		return nil, nil, ErrEmptyCreator
	}

	var identity msp.SerializedIdentity
	if err := pb.Unmarshal(creator, &identity); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal SerializedIdentity: %w", err)
	}

	b, _ := pem.Decode(identity.GetIdBytes())
	if b == nil || len(b.Bytes) == 0 {
		return nil, nil, ErrDecodeSerializedIdentity
	}

	parsed, err := x509.ParseCertificate(b.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse x509 certificate: %w", err)
	}

	return &identity, parsed, nil
}
