package cachestub

import (
	"encoding/json"
	"sort"

	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// EventName is the name of the single chaincode event emitted on Commit.
// Fabric keeps only the last SetEvent call per transaction, so every event
// raised during the transaction is packed into one payload.
const EventName = "crowdfund"

// WriteElement is a buffered state write.
type WriteElement struct {
	Key       string `json:"key"`
	Value     []byte `json:"value,omitempty"`
	IsDeleted bool   `json:"isDeleted,omitempty"`
}

// Event is a buffered event in the order it was raised.
type Event struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// TxCacheStub buffers writes and events of a single transaction.
// Nothing reaches the underlying stub until Commit, so a failed
// transaction is dropped by simply discarding the TxCacheStub.
type TxCacheStub struct {
	shim.ChaincodeStubInterface
	txWriteCache map[string]*WriteElement
	events       []Event
}

func NewTxCacheStub(stub shim.ChaincodeStubInterface) *TxCacheStub {
	return &TxCacheStub{
		ChaincodeStubInterface: stub,
		txWriteCache:           make(map[string]*WriteElement),
	}
}

// GetState returns state from TxCacheStub cache or, if absent, from chaincode state
func (bts *TxCacheStub) GetState(key string) ([]byte, error) {
	existsElement, ok := bts.txWriteCache[key]
	if ok {
		if existsElement.IsDeleted {
			return nil, nil
		}
		return existsElement.Value, nil
	}
	return bts.ChaincodeStubInterface.GetState(key)
}

// PutState puts state to the TxCacheStub's cache
func (bts *TxCacheStub) PutState(key string, value []byte) error {
	bts.txWriteCache[key] = &WriteElement{Key: key, Value: value}
	return nil
}

// DelState marks state in TxCacheStub as deleted
func (bts *TxCacheStub) DelState(key string) error {
	bts.txWriteCache[key] = &WriteElement{Key: key, IsDeleted: true}
	return nil
}

// SetEvent appends payload to the TxCacheStub events. Payload must be JSON.
func (bts *TxCacheStub) SetEvent(name string, payload []byte) error {
	bts.events = append(bts.events, Event{Name: name, Payload: payload})
	return nil
}

// Events returns buffered events in the order they were raised.
func (bts *TxCacheStub) Events() []Event {
	return bts.events
}

// Writes returns buffered writes sorted by key.
func (bts *TxCacheStub) Writes() []*WriteElement {
	writeKeys := make([]string, 0, len(bts.txWriteCache))
	for k := range bts.txWriteCache {
		writeKeys = append(writeKeys, k)
	}
	sort.Strings(writeKeys)

	writes := make([]*WriteElement, 0, len(writeKeys))
	for _, k := range writeKeys {
		writes = append(writes, bts.txWriteCache[k])
	}
	return writes
}

// Commit puts state from a TxCacheStub cache to the chaincode state and
// emits the buffered events as one chaincode event.
func (bts *TxCacheStub) Commit() error {
	for _, element := range bts.Writes() {
		if element.IsDeleted {
			if err := bts.ChaincodeStubInterface.DelState(element.Key); err != nil {
				return err
			}
			continue
		}
		if err := bts.ChaincodeStubInterface.PutState(element.Key, element.Value); err != nil {
			return err
		}
	}

	if len(bts.events) == 0 {
		return nil
	}

	payload, err := json.Marshal(bts.events)
	if err != nil {
		return err
	}

	return bts.ChaincodeStubInterface.SetEvent(EventName, payload)
}
