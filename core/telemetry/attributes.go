package telemetry

import "go.opentelemetry.io/otel/attribute"

type MethodTypeNum int

func (t MethodTypeNum) String() string {
	switch t {
	case MethodQuery:
		return "query"
	case MethodTx:
		return "tx"
	case MethodUnknown:
		fallthrough
	default:
		return "unknown"
	}
}

const (
	MethodUnknown MethodTypeNum = iota
	MethodQuery
	MethodTx
)

func MethodType(t MethodTypeNum) attribute.KeyValue {
	return attribute.String("method_type", t.String())
}

func Method(name string) attribute.KeyValue {
	return attribute.String("method", name)
}

func TxID(id string) attribute.KeyValue {
	return attribute.String("tx_id", id)
}

func Caller(address string) attribute.KeyValue {
	return attribute.String("caller", address)
}
