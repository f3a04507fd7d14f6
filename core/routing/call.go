package routing

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/anoideaopen/crowdfund/core/types"
)

var (
	ErrIncorrectArgumentCount = errors.New("incorrect number of arguments")
	ErrInvalidArgumentValue   = errors.New("invalid argument value")
	ErrMethodNotFound         = errors.New("method not found")
)

var (
	senderType = reflect.TypeOf((*types.Sender)(nil))
	errorType  = reflect.TypeOf((*error)(nil)).Elem()
)

// Call invokes method on v. The leading values are passed first as they
// are, every string arg is then decoded into the type of its parameter.
//
// A string arg is decoded as JSON when it is valid JSON, otherwise through
// encoding.TextUnmarshaler; string parameters take the arg verbatim.
func Call(v any, method string, leading []reflect.Value, args ...string) ([]any, error) {
	methodVal := reflect.ValueOf(v).MethodByName(method)
	if !methodVal.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, method)
	}

	methodType := methodVal.Type()
	if methodType.NumIn() != len(leading)+len(args) {
		return nil, fmt.Errorf(
			"%w: found %d but expected %d: call %s",
			ErrIncorrectArgumentCount,
			len(args),
			methodType.NumIn()-len(leading),
			method,
		)
	}

	in := make([]reflect.Value, 0, methodType.NumIn())
	in = append(in, leading...)
	for i, arg := range args {
		value, err := valueOf(arg, methodType.In(len(leading)+i))
		if err != nil {
			return nil, fmt.Errorf("%w: call %s, argument %d", err, method, i)
		}
		in = append(in, value)
	}

	output := make([]any, methodType.NumOut())
	for i, res := range methodVal.Call(in) {
		output[i] = res.Interface()
	}

	return output, nil
}

func valueOf(s string, t reflect.Type) (reflect.Value, error) {
	argRaw := []byte(s)
	argPointer := t.Kind() == reflect.Pointer

	var argValue, outValue reflect.Value
	if argPointer {
		argValue = reflect.New(t.Elem())
		outValue = argValue
	} else {
		argValue = reflect.New(t)
		outValue = argValue.Elem()
	}

	switch {
	case t.Kind() == reflect.String:
		outValue.SetString(s)
		return outValue, nil
	case argPointer && t.Elem().Kind() == reflect.String:
		argValue.Elem().SetString(s)
		return outValue, nil
	}

	argInterface := argValue.Interface()

	if json.Valid(argRaw) {
		if err := json.Unmarshal(argRaw, argInterface); err == nil {
			return outValue, nil
		}
	}

	if unmarshaler, ok := argInterface.(encoding.TextUnmarshaler); ok {
		if err := unmarshaler.UnmarshalText(argRaw); err == nil {
			return outValue, nil
		}
	}

	return outValue, fmt.Errorf("%w: '%s': for type '%s'", ErrInvalidArgumentValue, s, t.String())
}
