package core

import (
	"encoding/hex"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/anoideaopen/crowdfund/core/cachestub"
	"github.com/anoideaopen/crowdfund/core/config"
	"github.com/anoideaopen/crowdfund/core/logger"
	"github.com/anoideaopen/crowdfund/core/nonce"
	"github.com/anoideaopen/crowdfund/core/routing"
	"github.com/anoideaopen/crowdfund/core/telemetry"
	"github.com/anoideaopen/crowdfund/hlfcreator"
	"github.com/anoideaopen/crowdfund/version"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/peer"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrConfigNotJSON = errors.New("init expects the config as a single JSON argument")

// Init is called during chaincode instantiation to initialize any data. Note that upgrade
// also calls this function to reset or to migrate data.
func (cc *Chaincode) Init(stub shim.ChaincodeStubInterface) peer.Response {
	creator, err := stub.GetCreator()
	if err != nil {
		return shim.Error("init: getting creator of transaction: " + err.Error())
	}
	mspID, err := hlfcreator.ValidateAdminCreator(creator)
	if err != nil {
		return shim.Error("init: validating admin creator: " + err.Error())
	}

	args := stub.GetStringArgs()
	if !config.IsJSON(args) {
		return shim.Error("init: " + ErrConfigNotJSON.Error())
	}
	cfgBytes := []byte(args[0])

	if err = cc.contract.ValidateConfig(cfgBytes); err != nil {
		return shim.Error("init: validating config: " + err.Error())
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()

	cache := cachestub.NewTxCacheStub(stub)
	if err = config.Save(cache, cfgBytes); err != nil {
		return shim.Error("init: saving config: " + err.Error())
	}

	if initializer, ok := cc.contract.(Initializer); ok {
		if err = cc.contract.Configure(cfgBytes); err != nil {
			return shim.Error("init: applying config: " + err.Error())
		}

		cc.contract.setEnv(&environment{stub: cache})
		err = initializer.InitLedger()
		cc.contract.delEnv()
		if err != nil {
			return shim.Error("init: seeding ledger: " + err.Error())
		}
	}

	if err = cache.Commit(); err != nil {
		return shim.Error("init: committing: " + err.Error())
	}

	logger.Logger().Infof("chaincode initialized by %s", mspID)

	return shim.Success(nil)
}

// Invoke is called to update or query the ledger in a proposal transaction. Given the
// function name, it delegates the execution to the respective contract method.
func (cc *Chaincode) Invoke(stub shim.ChaincodeStubInterface) (r peer.Response) {
	r = shim.Error("panic invoke")
	log := logger.Logger()
	defer func() {
		if rc := recover(); rc != nil {
			log.Errorf("panic invoke\nrc: %v\nstack: %s\n", rc, debug.Stack())
		}
	}()

	start := time.Now()

	cc.mu.Lock()
	defer cc.mu.Unlock()

	cfgBytes, err := config.Load(stub)
	if err != nil {
		return shim.Error("invoke: loading raw config: " + err.Error())
	}

	if err = cc.contract.Configure(cfgBytes); err != nil {
		return shim.Error("invoke: applying configuration: " + err.Error())
	}

	tracing := cc.tracingHandler()
	traceCtx := tracing.ContextFromStub(stub)
	traceCtx, span := tracing.StartNewSpan(traceCtx, "cc.Invoke")

	transactionID := stub.GetTxID()
	function, args := stub.GetFunctionAndParameters()

	span.SetAttributes(attribute.String("channel", stub.GetChannelID()))
	span.SetAttributes(telemetry.TxID(transactionID))
	span.SetAttributes(telemetry.Method(function))

	span.AddEvent(fmt.Sprintf("begin id: %s, name: %s", transactionID, function))
	defer func() {
		span.AddEvent(fmt.Sprintf("end id: %s, name: %s, elapsed: %d",
			transactionID,
			function,
			time.Since(start),
		))

		span.End()
	}()

	fail := func(errMsg string) peer.Response {
		span.SetStatus(codes.Error, errMsg)
		log.Errorf("tx id: %s, name: %s: %s", transactionID, function, errMsg)
		return shim.Error(errMsg)
	}

	if err = cc.ValidateTxID(stub); err != nil {
		return fail("invoke: validating transaction ID: " + err.Error())
	}

	method, err := cc.router.Method(function)
	if err != nil {
		return fail("invoke: " + err.Error())
	}

	if method.Type == routing.MethodTypeQuery {
		span.SetAttributes(telemetry.MethodType(telemetry.MethodQuery))
	} else {
		span.SetAttributes(telemetry.MethodType(telemetry.MethodTx))
	}

	cache := cachestub.NewTxCacheStub(stub)

	span.AddEvent("validating sender")
	sender, invocationArgs, nonceValue, err := cc.validateAndExtractInvocationContext(cache, method, function, args)
	if err != nil {
		return fail("invoke: validating sender: " + err.Error())
	}

	if sender != nil {
		span.SetAttributes(telemetry.Caller(sender.Address().String()))

		span.AddEvent("validating nonce")
		if err = nonce.Check(cache, sender.Address().String(), nonceValue, cc.nonceTTL); err != nil {
			return fail("invoke: validating nonce: " + err.Error())
		}
	}

	cc.contract.setEnv(&environment{
		stub:     cache,
		traceCtx: traceCtx,
	})
	defer cc.contract.delEnv()

	span.AddEvent("calling method")
	resp, err := cc.router.Invoke(cc.contract, function, sender, invocationArgs...)
	if err != nil {
		return fail(err.Error())
	}

	if method.Type == routing.MethodTypeTransaction {
		span.AddEvent("commit")
		if err = cache.Commit(); err != nil {
			return fail("invoke: committing: " + err.Error())
		}
	}

	log.Debugf("tx id: %s, name: %s, elapsed: %s", transactionID, function, time.Since(start))

	span.SetStatus(codes.Ok, "")
	return shim.Success(resp)
}

// ValidateTxID validates the transaction ID to ensure it is correctly formatted.
func (cc *Chaincode) ValidateTxID(stub shim.ChaincodeStubInterface) error {
	_, err := hex.DecodeString(stub.GetTxID())
	if err != nil {
		return fmt.Errorf("incorrect tx id: %w", err)
	}

	return nil
}

// tracingHandler installs the trace provider from the contract settings on
// first use.
func (cc *Chaincode) tracingHandler() *telemetry.TracingHandler {
	cc.tracingOnce.Do(func() {
		cc.tracingError = telemetry.InstallTraceProvider(cc.contract.TracingSettings(), version.CoreChaincodeIDName())
		if cc.tracingError != nil {
			logger.Logger().Warningf("tracing disabled: %s", cc.tracingError)
		}
		cc.tracing = telemetry.NewTracingHandler()
	})

	return cc.tracing
}
