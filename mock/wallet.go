package mock

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anoideaopen/crowdfund/core/telemetry"
	"github.com/anoideaopen/crowdfund/core/types"
	"github.com/anoideaopen/crowdfund/keys"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/hyperledger/fabric-protos-go/peer"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Wallet holds one key pair and signs invocations with it.
type Wallet struct {
	ledger *Ledger

	*keys.Keys

	addr      *types.Address
	lastNonce uint64
}

func newWallet(l *Ledger, k *keys.Keys) *Wallet {
	return &Wallet{
		ledger:    l,
		Keys:      k,
		addr:      types.AddrFromPublicKey(k.PublicKeyBytes),
		lastNonce: uint64(time.Now().UnixMilli()),
	}
}

// Address is the base58check address derived from the public key.
func (w *Wallet) Address() string {
	return w.addr.String()
}

func (w *Wallet) AddressType() *types.Address {
	return w.addr
}

func (w *Wallet) PubKey() []byte {
	return w.PublicKeyBytes
}

// Ledger returns the ledger the wallet invokes on.
func (w *Wallet) Ledger() *Ledger {
	return w.ledger
}

// Invoke calls an unsigned function and requires it to succeed.
func (w *Wallet) Invoke(ch, fn string, args ...string) string {
	return w.ledger.Query(ch, fn, args...)
}

// SignedInvoke calls a signed function and requires it to succeed.
func (w *Wallet) SignedInvoke(ch, fn string, args ...string) string {
	resp := w.signedInvoke(nil, ch, fn, w.nextNonce(), args...)
	require.Equal(w.ledger.t, int32(http.StatusOK), resp.GetStatus(), resp.GetMessage())
	return string(resp.GetPayload())
}

// SignedInvokeWithError calls a signed function and returns its error.
func (w *Wallet) SignedInvokeWithError(ch, fn string, args ...string) error {
	return w.SignedInvokeWithNonce(ch, fn, w.nextNonce(), args...)
}

// SignedInvokeWithNonce signs with an explicit nonce, for replay checks.
func (w *Wallet) SignedInvokeWithNonce(ch, fn string, nonce string, args ...string) error {
	return responseError(w.signedInvoke(nil, ch, fn, nonce, args...))
}

// SignedInvokeTraced passes the span context of ctx in the transient map.
func (w *Wallet) SignedInvokeTraced(ctx context.Context, ch, fn string, args ...string) error {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	transient := telemetry.PackToTransientMap(carrier)

	return responseError(w.signedInvoke(transient, ch, fn, w.nextNonce(), args...))
}

// RawInvoke sends pre-built args, for tampering checks.
func (w *Wallet) RawInvoke(ch, fn string, args ...string) error {
	return responseError(w.ledger.doInvoke(ch, fn, nil, args...))
}

// SignArgs returns the signed args of an invocation with a fresh nonce.
func (w *Wallet) SignArgs(ch, fn string, args ...string) []string {
	return w.WithNonceSignArgs(ch, fn, w.nextNonce(), args...)
}

// WithNonceSignArgs lays out the args as
// requestID, chaincode, channel, args..., nonce, publicKey, signature.
func (w *Wallet) WithNonceSignArgs(ch, fn string, nonce string, args ...string) []string {
	messageChunks := []string{fn, "", ch, ch}
	messageChunks = append(messageChunks, args...)
	messageChunks = append(messageChunks, nonce, base58.Encode(w.PublicKeyBytes))
	message := []byte(strings.Join(messageChunks, ""))

	signature, err := keys.Sign(w.Keys, message)
	require.NoError(w.ledger.t, err)

	return append(messageChunks[1:], base58.Encode(signature))
}

func (w *Wallet) signedInvoke(transient map[string][]byte, ch, fn string, nonce string, args ...string) peer.Response {
	return w.ledger.doInvoke(ch, fn, transient, w.WithNonceSignArgs(ch, fn, nonce, args...)...)
}

// nextNonce returns a millisecond nonce above every nonce used before.
func (w *Wallet) nextNonce() string {
	now := uint64(time.Now().UnixMilli())
	if now <= w.lastNonce {
		now = w.lastNonce + 1
	}
	w.lastNonce = now
	return strconv.FormatUint(now, 10)
}

func responseError(resp peer.Response) error {
	if resp.GetStatus() != http.StatusOK {
		return errors.New(resp.GetMessage())
	}
	return nil
}
