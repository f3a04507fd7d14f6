package mock

import (
	"time"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-chaincode-go/shimtest"
	"github.com/hyperledger/fabric-protos-go/peer"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Stub is a shimtest.MockStub whose invocation args, signed proposal,
// transient map and tx time are set per invocation, and which keeps the
// events it receives instead of pushing them to a channel.
type Stub struct {
	*shimtest.MockStub

	cc             shim.Chaincode
	args           [][]byte
	signedProposal *peer.SignedProposal
	transient      map[string][]byte
	events         []*peer.ChaincodeEvent
}

func NewStub(name string, cc shim.Chaincode) *Stub {
	s := &Stub{
		MockStub: shimtest.NewMockStub(name, cc),
		cc:       cc,
	}
	s.ChannelID = name
	return s
}

// invocation is everything a peer attaches to one proposal.
type invocation struct {
	txID           string
	args           [][]byte
	signedProposal *peer.SignedProposal
	transient      map[string][]byte
	timestamp      time.Time
}

// MockInit runs Init of the chaincode against this stub.
func (s *Stub) MockInit(txID string, args [][]byte, now time.Time) peer.Response {
	return s.run(invocation{txID: txID, args: args, timestamp: now}, s.cc.Init)
}

func (s *Stub) mockInvoke(inv invocation) peer.Response {
	return s.run(inv, s.cc.Invoke)
}

func (s *Stub) run(inv invocation, handler func(shim.ChaincodeStubInterface) peer.Response) peer.Response {
	s.MockTransactionStart(inv.txID)
	defer s.MockTransactionEnd(inv.txID)

	s.args = inv.args
	s.signedProposal = inv.signedProposal
	s.transient = inv.transient
	s.TxTimestamp = timestamppb.New(inv.timestamp)

	return handler(s)
}

func (s *Stub) GetArgs() [][]byte {
	return s.args
}

func (s *Stub) GetStringArgs() []string {
	strargs := make([]string, 0, len(s.args))
	for _, barg := range s.args {
		strargs = append(strargs, string(barg))
	}
	return strargs
}

func (s *Stub) GetFunctionAndParameters() (string, []string) {
	allargs := s.GetStringArgs()
	if len(allargs) == 0 {
		return "", []string{}
	}
	return allargs[0], allargs[1:]
}

func (s *Stub) GetSignedProposal() (*peer.SignedProposal, error) {
	return s.signedProposal, nil
}

func (s *Stub) GetTransient() (map[string][]byte, error) {
	return s.transient, nil
}

func (s *Stub) SetEvent(name string, payload []byte) error {
	s.events = append(s.events, &peer.ChaincodeEvent{
		TxId:      s.TxID,
		EventName: name,
		Payload:   payload,
	})
	return nil
}

// Events returns every event committed so far, oldest first.
func (s *Stub) Events() []*peer.ChaincodeEvent {
	return s.events
}

// LastEvent returns the most recent event or nil.
func (s *Stub) LastEvent() *peer.ChaincodeEvent {
	if len(s.events) == 0 {
		return nil
	}
	return s.events[len(s.events)-1]
}
