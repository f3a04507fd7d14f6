package core

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/anoideaopen/crowdfund/core/nonce"
	"github.com/anoideaopen/crowdfund/core/routing"
	"github.com/anoideaopen/crowdfund/core/telemetry"
	"github.com/hyperledger/fabric-chaincode-go/shim"
)

const (
	// chaincodeExecModeEnv is the environment variable that specifies the execution mode of the chaincode.
	chaincodeExecModeEnv = "CHAINCODE_EXEC_MODE"
	// chaincodeExecModeServer is the value that, when set for the CHAINCODE_EXEC_MODE environment variable,
	// indicates that the chaincode is running in server mode.
	chaincodeExecModeServer = "server"
	// chaincodeCcIDEnv is the environment variable that holds the chaincode ID.
	chaincodeCcIDEnv = "CHAINCODE_ID"

	// chaincodeServerDefaultPort is the default port on which the chaincode server listens if no other port is specified.
	chaincodeServerDefaultPort = "9999"
	// chaincodeServerPortEnv is the environment variable that specifies the port on which the chaincode server listens.
	chaincodeServerPortEnv = "CHAINCODE_SERVER_PORT"

	tlsKeyFileEnv           = "CHAINCODE_TLS_KEY_FILE"
	tlsCertFileEnv          = "CHAINCODE_TLS_CERT_FILE"
	tlsClientCACertsFileEnv = "CHAINCODE_TLS_CLIENT_CA_CERTS_FILE"

	tlsKeyEnv           = "CHAINCODE_TLS_KEY"
	tlsCertEnv          = "CHAINCODE_TLS_CERT"
	tlsClientCACertsEnv = "CHAINCODE_TLS_CLIENT_CA_CERTS"
)

// Chaincode adapts a Contract to the Fabric shim. Invocations are
// serialised: the contract value carries the per-invocation environment.
type Chaincode struct {
	contract Contract
	router   *routing.Router
	nonceTTL time.Duration

	mu           sync.Mutex
	tracingOnce  sync.Once
	tracing      *telemetry.TracingHandler
	tracingError error
}

// Option configures a Chaincode.
type Option func(*Chaincode) error

// WithNonceTTL overrides nonce.DefaultTTL.
func WithNonceTTL(ttl time.Duration) Option {
	return func(cc *Chaincode) error {
		if ttl <= 0 {
			return fmt.Errorf("nonce ttl must be positive, got %s", ttl)
		}
		cc.nonceTTL = ttl
		return nil
	}
}

// NewCC creates a new instance of Chaincode with the given contract.
func NewCC(contract Contract, options ...Option) (*Chaincode, error) {
	if contract == nil {
		return nil, errors.New("contract is nil")
	}

	router, err := routing.NewRouter(contract)
	if err != nil {
		return nil, fmt.Errorf("building router: %w", err)
	}

	cc := &Chaincode{
		contract: contract,
		router:   router,
		nonceTTL: nonce.DefaultTTL,
	}

	for _, opt := range options {
		if err = opt(cc); err != nil {
			return nil, err
		}
	}

	return cc, nil
}

// Router returns the method table of the contract.
func (cc *Chaincode) Router() *routing.Router {
	return cc.router
}

// Start begins the chaincode execution based on the environment configuration. It decides whether to
// start the chaincode in the default mode or as a server based on the CHAINCODE_EXEC_MODE environment
// variable. In server mode, it requires the CHAINCODE_ID to be set and uses CHAINCODE_SERVER_PORT for
// the port or defaults to a predefined port if not set.
func (cc *Chaincode) Start() error {
	if os.Getenv(chaincodeExecModeEnv) != chaincodeExecModeServer {
		return shim.Start(cc)
	}

	ccID := os.Getenv(chaincodeCcIDEnv)
	if ccID == "" {
		return errors.New("need to specify chaincode id if running as server")
	}

	port := os.Getenv(chaincodeServerPortEnv)
	if port == "" {
		port = chaincodeServerDefaultPort
	}

	tlsProps, err := tlsProperties()
	if err != nil {
		return fmt.Errorf("failed obtaining tls properties for chaincode server: %w", err)
	}

	srv := shim.ChaincodeServer{
		CCID:     ccID,
		Address:  fmt.Sprintf("%s:%s", "0.0.0.0", port),
		CC:       cc,
		TLSProps: tlsProps,
	}
	return srv.Start()
}

func tlsProperties() (shim.TLSProperties, error) {
	tlsProps := shim.TLSProperties{
		Disabled: true,
	}

	key, cert, clientCACerts, err := readTLSConfigFromEnv()
	if err != nil {
		return tlsProps, fmt.Errorf("error reading TLS config from environment: %w", err)
	}

	if key != nil && cert != nil {
		tlsProps.Disabled = false
		tlsProps.Key = key
		tlsProps.Cert = cert
		tlsProps.ClientCACerts = clientCACerts
	}

	return tlsProps, nil
}

// readTLSConfigFromEnv reads each TLS item from its variable, falling back
// to the file named by the matching _FILE variable.
func readTLSConfigFromEnv() ([]byte, []byte, []byte, error) {
	key, err := envOrFile(tlsKeyEnv, tlsKeyFileEnv)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read TLS key file: %w", err)
	}

	cert, err := envOrFile(tlsCertEnv, tlsCertFileEnv)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read TLS certificate file: %w", err)
	}

	clientCACerts, err := envOrFile(tlsClientCACertsEnv, tlsClientCACertsFileEnv)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read client CA certificates file: %w", err)
	}

	return key, cert, clientCACerts, nil
}

func envOrFile(valueEnv, fileEnv string) ([]byte, error) {
	if v := os.Getenv(valueEnv); v != "" {
		return []byte(v), nil
	}
	if f := os.Getenv(fileEnv); f != "" {
		return os.ReadFile(f)
	}
	return nil, nil
}
