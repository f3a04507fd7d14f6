package cachestub_test

import (
	"errors"

	"github.com/hyperledger/fabric-chaincode-go/shimtest"
)

var errTest = errors.New("test error")

type mockStub struct {
	shimtest.MockStub
	state     map[string][]byte
	putErr    error
	eventName string
	event     []byte
	getCalls  int
	putCalls  int
}

func newMockStub() *mockStub {
	return &mockStub{state: make(map[string][]byte)}
}

func (stub *mockStub) GetState(key string) ([]byte, error) {
	stub.getCalls++
	return stub.state[key], nil
}

func (stub *mockStub) PutState(key string, value []byte) error {
	stub.putCalls++
	if stub.putErr != nil {
		return stub.putErr
	}
	stub.state[key] = value
	return nil
}

func (stub *mockStub) DelState(key string) error {
	delete(stub.state, key)
	return nil
}

func (stub *mockStub) SetEvent(name string, payload []byte) error {
	stub.eventName = name
	stub.event = payload
	return nil
}
