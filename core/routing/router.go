// Package routing maps chaincode function names to contract methods by
// reflection. Exported methods named TxXxx become transaction function
// "xxx", methods named QueryXxx become query function "xxx". A method whose
// first parameter is *types.Sender requires a signed invocation; the
// authenticated sender is passed in that position.
package routing

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/anoideaopen/crowdfund/core/types"
)

// MethodType represents the type of a method in the contract.
type MethodType int

const (
	MethodTypeTransaction MethodType = iota // Tx-prefixed
	MethodTypeQuery                         // Query-prefixed
)

func (t MethodType) String() string {
	if t == MethodTypeQuery {
		return "query"
	}
	return "tx"
}

// Function is the name of a chaincode function.
type Function = string

// Method is an endpoint of a contract.
type Method struct {
	Type          MethodType
	ChaincodeFunc Function
	MethodName    string
	// RequiresAuth is set when the first parameter is *types.Sender.
	RequiresAuth bool
	// NumArgs counts the parameters passed as chaincode args, the sender excluded.
	NumArgs int
}

var (
	ErrMethodAlreadyDefined = errors.New("method has already been defined")
	ErrUnsupportedMethod    = errors.New("unsupported method")
	ErrInvalidMethodName    = errors.New("invalid method name")
	ErrUnknownFunction      = errors.New("function not found")
)

const (
	transactionPrefix = "Tx"
	queryPrefix       = "Query"
)

// Router holds the methods of one contract type. The contract value itself
// is given on every Invoke.
type Router struct {
	contractType reflect.Type
	methods      map[Function]Method
}

// NewRouter reflects on the methods of prototype.
func NewRouter(prototype any) (*Router, error) {
	r := &Router{
		contractType: reflect.TypeOf(prototype),
		methods:      make(map[Function]Method),
	}

	for _, name := range Methods(prototype) {
		ep, err := newEndpoint(r.contractType, name)
		if err != nil {
			if errors.Is(err, ErrUnsupportedMethod) {
				continue
			}
			return nil, err
		}

		if _, ok := r.methods[ep.ChaincodeFunc]; ok {
			return nil, fmt.Errorf("%w, method: '%s'", ErrMethodAlreadyDefined, ep.ChaincodeFunc)
		}

		r.methods[ep.ChaincodeFunc] = ep
	}

	return r, nil
}

// Methods returns the sorted names of all methods of v.
func Methods(v any) []string {
	t := reflect.TypeOf(v)
	names := make([]string, 0, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		names = append(names, t.Method(i).Name)
	}
	sort.Strings(names)
	return names
}

// Methods retrieves all available methods, keyed by chaincode function.
func (r *Router) Methods() map[Function]Method {
	return r.methods
}

// Method looks up a chaincode function.
func (r *Router) Method(fn Function) (Method, error) {
	m, ok := r.methods[fn]
	if !ok {
		return Method{}, fmt.Errorf("%w: '%s'", ErrUnknownFunction, fn)
	}
	return m, nil
}

// Functions returns the sorted chaincode function names.
func (r *Router) Functions() []Function {
	fns := make([]Function, 0, len(r.methods))
	for fn := range r.methods {
		fns = append(fns, fn)
	}
	sort.Strings(fns)
	return fns
}

// Invoke calls fn on contract and encodes its result as JSON. A trailing
// error result is returned as the error.
func (r *Router) Invoke(contract any, fn Function, sender *types.Sender, args ...string) ([]byte, error) {
	m, err := r.Method(fn)
	if err != nil {
		return nil, err
	}
	if reflect.TypeOf(contract) != r.contractType {
		return nil, fmt.Errorf("router of %s invoked on %T", r.contractType, contract)
	}

	var callArgs []reflect.Value
	if m.RequiresAuth {
		if sender == nil {
			return nil, fmt.Errorf("%w: %s requires a signed invocation", ErrInvalidArgumentValue, fn)
		}
		callArgs = append(callArgs, reflect.ValueOf(sender))
	}

	result, err := Call(contract, m.MethodName, callArgs, args...)
	if err != nil {
		return nil, err
	}

	if returnsError(r.contractType, m.MethodName) {
		if errorValue := result[len(result)-1]; errorValue != nil {
			return nil, errorValue.(error) //nolint:forcetypeassert
		}
		result = result[:len(result)-1]
	}

	switch len(result) {
	case 0:
		return json.Marshal(nil)
	case 1:
		return json.Marshal(result[0])
	default:
		return json.Marshal(result)
	}
}

func newEndpoint(t reflect.Type, name string) (Method, error) {
	method := Method{MethodName: name}

	switch {
	case strings.HasPrefix(name, transactionPrefix):
		method.Type = MethodTypeTransaction
		method.ChaincodeFunc = strings.TrimPrefix(name, transactionPrefix)
	case strings.HasPrefix(name, queryPrefix):
		method.Type = MethodTypeQuery
		method.ChaincodeFunc = strings.TrimPrefix(name, queryPrefix)
	default:
		return Method{}, fmt.Errorf("%w: %s", ErrUnsupportedMethod, name)
	}

	if method.ChaincodeFunc == "" {
		return Method{}, fmt.Errorf("%w: %s", ErrInvalidMethodName, name)
	}
	method.ChaincodeFunc = lowerFirstChar(method.ChaincodeFunc)

	m, _ := t.MethodByName(name)
	in := m.Type.NumIn() - 1 // receiver
	method.RequiresAuth = in > 0 && m.Type.In(1) == senderType
	method.NumArgs = in
	if method.RequiresAuth {
		method.NumArgs--
	}

	if method.Type == MethodTypeTransaction && !returnsError(t, name) {
		return Method{}, fmt.Errorf("%w: transaction %s must return an error", ErrInvalidMethodName, name)
	}

	return method, nil
}

func returnsError(t reflect.Type, name string) bool {
	m, ok := t.MethodByName(name)
	if !ok {
		return false
	}
	n := m.Type.NumOut()
	return n > 0 && m.Type.Out(n-1) == errorType
}

func lowerFirstChar(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
