package core

import (
	"context"

	"github.com/anoideaopen/crowdfund/core/nonce"
	"github.com/anoideaopen/crowdfund/core/telemetry"
	"github.com/anoideaopen/crowdfund/core/types"
	"github.com/anoideaopen/crowdfund/version"
	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// Contract is implemented by chaincode contracts. Embedding *BaseContract
// provides everything except config handling.
type Contract interface {
	// ValidateConfig checks the config given to Init before it is stored.
	ValidateConfig(cfgBytes []byte) error
	// Configure applies the stored config; it runs before every invocation.
	Configure(cfgBytes []byte) error
	TracingSettings() *telemetry.CollectorEndpoint

	setEnv(env *environment)
	delEnv()
}

// Initializer is implemented by contracts that seed state during Init.
type Initializer interface {
	InitLedger() error
}

type environment struct {
	stub     shim.ChaincodeStubInterface
	traceCtx context.Context
}

// BaseContract carries the stub of the running invocation and the
// queries every contract answers.
type BaseContract struct {
	env     *environment
	tracing *telemetry.CollectorEndpoint
}

func (bc *BaseContract) setEnv(env *environment) {
	bc.env = env
}

func (bc *BaseContract) delEnv() {
	bc.env = nil
}

// GetStub returns the stub of the running invocation. Writes through it are
// buffered until the invocation succeeds.
func (bc *BaseContract) GetStub() shim.ChaincodeStubInterface {
	if bc.env == nil {
		return nil
	}
	return bc.env.stub
}

// TraceContext returns the span context of the running invocation.
func (bc *BaseContract) TraceContext() context.Context {
	if bc.env == nil || bc.env.traceCtx == nil {
		return context.Background()
	}
	return bc.env.traceCtx
}

func (bc *BaseContract) SetTracingSettings(settings *telemetry.CollectorEndpoint) {
	bc.tracing = settings
}

func (bc *BaseContract) TracingSettings() *telemetry.CollectorEndpoint {
	return bc.tracing
}

// QueryBuildInfo returns the Go build information of the chaincode binary.
func (bc *BaseContract) QueryBuildInfo() (*version.Build, error) {
	return version.BuildInfo()
}

func (bc *BaseContract) QueryChaincodeName() (string, error) {
	return version.CoreChaincodeIDName(), nil
}

// QueryNonce returns the newest nonce accepted from owner, zero if none.
func (bc *BaseContract) QueryNonce(owner *types.Address) (uint64, error) {
	return nonce.Last(bc.GetStub(), owner.String())
}
