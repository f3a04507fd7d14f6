// Package config stores the chaincode configuration passed to Init.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// keyConfig is a key for storing a configuration data in json format.
const keyConfig = "__config"

var ErrCfgBytesEmpty = errors.New("config bytes is empty")

// Save saves configuration data to the state.
//
// If the provided cfgBytes slice is empty, the function returns an ErrCfgBytesEmpty error.
func Save(stub shim.ChaincodeStubInterface, cfgBytes []byte) error {
	if len(cfgBytes) == 0 {
		return ErrCfgBytesEmpty
	}

	if err := stub.PutState(keyConfig, cfgBytes); err != nil {
		return fmt.Errorf("putting config data to state: %w", err)
	}

	return nil
}

// Load retrieves and returns the raw configuration data from the state.
//
// If the retrieved configuration data is empty, the function returns an ErrCfgBytesEmpty error.
func Load(stub shim.ChaincodeStubInterface) ([]byte, error) {
	cfgBytes, err := stub.GetState(keyConfig)
	if err != nil {
		return nil, fmt.Errorf("loading raw config: %w", err)
	}

	if len(cfgBytes) == 0 {
		return nil, ErrCfgBytesEmpty
	}

	return cfgBytes, nil
}

// FromBytes decodes JSON configuration into cfg, rejecting unknown fields.
func FromBytes(cfgBytes []byte, cfg any) error {
	if len(cfgBytes) == 0 {
		return ErrCfgBytesEmpty
	}

	dec := json.NewDecoder(bytes.NewReader(cfgBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}

	return nil
}

// IsJSON checks if the provided arguments represent a valid JSON configuration.
//
// The function returns true if there is exactly one argument in the initialization args slice,
// and if the content of that argument is a valid JSON.
func IsJSON(args []string) bool {
	return len(args) == 1 && json.Valid([]byte(args[0]))
}
