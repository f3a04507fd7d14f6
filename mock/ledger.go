// Package mock runs chaincodes in memory for tests: a ledger of named
// chaincode stubs sharing one controllable clock, and wallets that sign
// invocations the way a client SDK does.
package mock

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/anoideaopen/crowdfund/core/cachestub"
	"github.com/anoideaopen/crowdfund/hlfcreator"
	"github.com/anoideaopen/crowdfund/keys"
	"github.com/golang/protobuf/proto" //nolint:staticcheck
	"github.com/google/uuid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/peer"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// DefaultMSPID is the MSP of the admin and user creators.
const DefaultMSPID = "fundMSP"

type Ledger struct {
	t     *testing.T
	stubs map[string]*Stub
	now   time.Time
	log   *logrus.Entry
}

// NewLedger creates an empty ledger with the clock at now. The LOG
// environment variable sets the harness log level.
func NewLedger(t *testing.T, now time.Time) *Ledger {
	lvl := logrus.ErrorLevel
	var err error
	if level, ok := os.LookupEnv("LOG"); ok {
		lvl, err = logrus.ParseLevel(level)
		require.NoError(t, err)
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.JSONFormatter{})

	return &Ledger{
		t:     t,
		stubs: make(map[string]*Stub),
		now:   now,
		log:   logrus.WithField("test", t.Name()),
	}
}

// Now is the timestamp of the next transaction.
func (l *Ledger) Now() time.Time {
	return l.now
}

func (l *Ledger) SetTime(now time.Time) {
	l.now = now
}

func (l *Ledger) Advance(d time.Duration) {
	l.now = l.now.Add(d)
}

// NewCC deploys cc under name and runs Init with the given config as an
// admin. It returns the Init error message, empty on success.
func (l *Ledger) NewCC(name string, cc shim.Chaincode, cfg string) string {
	_, exists := l.stubs[name]
	require.False(l.t, exists, "stub with name '%s' already exists in ledger mock", name)

	s := NewStub(name, cc)
	s.Creator = AdminCreator(l.t)
	l.stubs[name] = s

	resp := s.MockInit(txIDGen(), [][]byte{[]byte(cfg)}, l.now)
	l.log.WithFields(logrus.Fields{"chaincode": name, "status": resp.GetStatus()}).Debug("init")

	s.Creator = UserCreator(l.t)

	return resp.GetMessage()
}

// GetStub returns the stub of a deployed chaincode.
func (l *Ledger) GetStub(name string) *Stub {
	s, ok := l.stubs[name]
	require.True(l.t, ok, "chaincode %s is not deployed", name)
	return s
}

// Query invokes an unsigned function and requires it to succeed.
func (l *Ledger) Query(ch, fn string, args ...string) string {
	resp := l.doInvoke(ch, fn, nil, args...)
	require.Equal(l.t, int32(http.StatusOK), resp.GetStatus(), resp.GetMessage())
	return string(resp.GetPayload())
}

// QueryInto decodes the JSON result of Query into out.
func (l *Ledger) QueryInto(out any, ch, fn string, args ...string) {
	require.NoError(l.t, json.Unmarshal([]byte(l.Query(ch, fn, args...)), out))
}

// QueryWithError invokes an unsigned function and returns its error.
func (l *Ledger) QueryWithError(ch, fn string, args ...string) (string, error) {
	resp := l.doInvoke(ch, fn, nil, args...)
	if resp.GetStatus() != http.StatusOK {
		return "", errors.New(resp.GetMessage())
	}
	return string(resp.GetPayload()), nil
}

// Events decodes the events of the last transaction of ch that emitted any.
func (l *Ledger) Events(ch string) []cachestub.Event {
	e := l.GetStub(ch).LastEvent()
	if e == nil {
		return nil
	}
	require.Equal(l.t, cachestub.EventName, e.GetEventName())

	var events []cachestub.Event
	require.NoError(l.t, json.Unmarshal(e.GetPayload(), &events))
	return events
}

// StateSnapshot copies the committed world state of ch.
func (l *Ledger) StateSnapshot(ch string) map[string][]byte {
	s := l.GetStub(ch)
	out := make(map[string][]byte, len(s.State))
	for k, v := range s.State {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

func (l *Ledger) doInvoke(ch, fn string, transient map[string][]byte, args ...string) peer.Response {
	s := l.GetStub(ch)

	vArgs := make([][]byte, len(args)+1)
	vArgs[0] = []byte(fn)
	for i, x := range args {
		vArgs[i+1] = []byte(x)
	}

	input, err := proto.Marshal(&peer.ChaincodeInvocationSpec{
		ChaincodeSpec: &peer.ChaincodeSpec{
			ChaincodeId: &peer.ChaincodeID{Name: ch},
			Input:       &peer.ChaincodeInput{Args: vArgs},
		},
	})
	require.NoError(l.t, err)
	payload, err := proto.Marshal(&peer.ChaincodeProposalPayload{Input: input, TransientMap: transient})
	require.NoError(l.t, err)
	proposal, err := proto.Marshal(&peer.Proposal{Payload: payload})
	require.NoError(l.t, err)

	txID := txIDGen()
	resp := s.mockInvoke(invocation{
		txID:           txID,
		args:           vArgs,
		signedProposal: &peer.SignedProposal{ProposalBytes: proposal},
		transient:      transient,
		timestamp:      l.now,
	})

	l.log.WithFields(logrus.Fields{
		"chaincode": ch,
		"fn":        fn,
		"tx":        txID,
		"status":    resp.GetStatus(),
	}).Debug(resp.GetMessage())

	return resp
}

// NewWallet creates a wallet with a fresh ed25519 key.
func (l *Ledger) NewWallet() *Wallet {
	return l.NewWalletWithKeyType(keys.KeyTypeEd25519)
}

func (l *Ledger) NewWalletWithKeyType(keyType keys.KeyType) *Wallet {
	k, err := keys.GenerateKeysByKeyType(keyType)
	require.NoError(l.t, err)
	return newWallet(l, k)
}

// NewWalletFromHexKey restores an ed25519 wallet from a hex secret key.
func (l *Ledger) NewWalletFromHexKey(key string) *Wallet {
	k, err := keys.Ed25519FromHex(key)
	require.NoError(l.t, err)
	return newWallet(l, k)
}

func txIDGen() string {
	txID := [16]byte(uuid.New())
	return hex.EncodeToString(txID[:])
}

// AdminCreator is the serialized identity of a channel admin.
func AdminCreator(t *testing.T) []byte {
	return creator(t, adminCert)
}

// UserCreator is the serialized identity of a client without admin rights.
func UserCreator(t *testing.T) []byte {
	return creator(t, userCert)
}

func creator(t *testing.T, certBase64 string) []byte {
	cert, err := base64.StdEncoding.DecodeString(certBase64)
	require.NoError(t, err)
	c, err := hlfcreator.BuildCreator(DefaultMSPID, cert)
	require.NoError(t, err)
	return c
}

const userCert = `MIICSjCCAfGgAwIBAgIRAKeZTS2c/qkXBN0Vkh+0WYQwCgYIKoZIzj0EAwIwgYcx
CzAJBgNVBAYTAlVTMRMwEQYDVQQIEwpDYWxpZm9ybmlhMRYwFAYDVQQHEw1TYW4g
RnJhbmNpc2NvMSMwIQYDVQQKExphdG9teXplLnVhdC5kbHQuYXRvbXl6ZS5jaDEm
MCQGA1UEAxMdY2EuYXRvbXl6ZS51YXQuZGx0LmF0b215emUuY2gwHhcNMjAxMDEz
MDg1NjAwWhcNMzAxMDExMDg1NjAwWjB3MQswCQYDVQQGEwJVUzETMBEGA1UECBMK
Q2FsaWZvcm5pYTEWMBQGA1UEBxMNU2FuIEZyYW5jaXNjbzEPMA0GA1UECxMGY2xp
ZW50MSowKAYDVQQDDCFVc2VyMTBAYXRvbXl6ZS51YXQuZGx0LmF0b215emUuY2gw
WTATBgcqhkjOPQIBBggqhkjOPQMBBwNCAAR3V6z/nVq66HBDxFFN3/3rUaJLvHgW
FzoKaA/qZQyV919gdKr82LDy8N2kAYpAcP7dMyxMmmGOPbo53locYWIyo00wSzAO
BgNVHQ8BAf8EBAMCB4AwDAYDVR0TAQH/BAIwADArBgNVHSMEJDAigCBSv0ueZaB3
qWu/AwOtbOjaLd68woAqAklfKKhfu10K+DAKBggqhkjOPQQDAgNHADBEAiBFB6RK
O7huI84Dy3fXeA324ezuqpJJkfQOJWkbHjL+pQIgFKIqBJrDl37uXNd3eRGJTL+o
21ZL8pGXH8h0nHjOF9M=`

const adminCert = `MIICSDCCAe6gAwIBAgIQAJwYy5PJAYSC1i0UgVN5bjAKBggqhkjOPQQDAjCBhzEL
MAkGA1UEBhMCVVMxEzARBgNVBAgTCkNhbGlmb3JuaWExFjAUBgNVBAcTDVNhbiBG
cmFuY2lzY28xIzAhBgNVBAoTGmF0b215emUudWF0LmRsdC5hdG9teXplLmNoMSYw
JAYDVQQDEx1jYS5hdG9teXplLnVhdC5kbHQuYXRvbXl6ZS5jaDAeFw0yMDEwMTMw
ODU2MDBaFw0zMDEwMTEwODU2MDBaMHUxCzAJBgNVBAYTAlVTMRMwEQYDVQQIEwpD
YWxpZm9ybmlhMRYwFAYDVQQHEw1TYW4gRnJhbmNpc2NvMQ4wDAYDVQQLEwVhZG1p
bjEpMCcGA1UEAwwgQWRtaW5AYXRvbXl6ZS51YXQuZGx0LmF0b215emUuY2gwWTAT
BgcqhkjOPQIBBggqhkjOPQMBBwNCAAQGQX9IhgjCtd3mYZ9DUszmUgvubepVMPD5
FlwjCglB2SiWuE2rT/T5tHJsU/Y9ZXFtOOpy/g9tQ/0wxDWwpkbro00wSzAOBgNV
HQ8BAf8EBAMCB4AwDAYDVR0TAQH/BAIwADArBgNVHSMEJDAigCBSv0ueZaB3qWu/
AwOtbOjaLd68woAqAklfKKhfu10K+DAKBggqhkjOPQQDAgNIADBFAiEAoKRQLe4U
FfAAwQs3RCWpevOPq+J8T4KEsYvswKjzfJYCIAs2kOmN/AsVUF63unXJY0k9ktfD
fAaqNRaboY1Yg1iQ`
