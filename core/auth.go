package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anoideaopen/crowdfund/core/nonce"
	"github.com/anoideaopen/crowdfund/core/routing"
	"github.com/anoideaopen/crowdfund/core/types"
	"github.com/anoideaopen/crowdfund/keys"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/golang/protobuf/proto" //nolint:staticcheck
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/peer"
)

// Signed invocation args are laid out as
//
//	requestID, chaincodeName, channelName, methodArgs..., nonce, publicKey, signature
//
// with the key and signature base58 encoded. The signed message is the
// function name followed by every argument except the signature.
const (
	signedPrefixArgs = 3 // requestID, chaincode, channel
	signedSuffixArgs = 3 // nonce, publicKey, signature
)

var (
	ErrIncorrectSignedArgs = errors.New("incorrect number of arguments of a signed invocation")
	ErrIncorrectSignature  = errors.New("incorrect signature")
	ErrChaincodeMismatch   = errors.New("incorrect chaincode name")
	ErrChannelMismatch     = errors.New("incorrect channel name")
)

type invocationDetails struct {
	chaincodeNameArg string
	channelNameArg   string
	nonceStringArg   string
	publicKeyArg     string
	signatureArg     string
	methodArgs       []string
}

// validateAndExtractInvocationContext authenticates a signed invocation and
// returns the sender, the method arguments and the nonce. Methods that do
// not require a sender get their arguments back unchanged.
func (cc *Chaincode) validateAndExtractInvocationContext(
	stub shim.ChaincodeStubInterface,
	method routing.Method,
	fn string,
	args []string,
) (
	sender *types.Sender,
	invocationArgs []string,
	nonceValue uint64,
	err error,
) {
	if !method.RequiresAuth {
		return nil, args, 0, nil
	}

	invocation, err := parseInvocationDetails(method.NumArgs, args)
	if err != nil {
		return nil, nil, 0, err
	}

	if err = checkChaincodeAndChannelName(
		stub,
		invocation.chaincodeNameArg,
		invocation.channelNameArg,
	); err != nil {
		return nil, nil, 0, err
	}

	publicKey := base58.Decode(invocation.publicKeyArg)
	signature := base58.Decode(invocation.signatureArg)
	if len(publicKey) == 0 || len(signature) == 0 {
		return nil, nil, 0, fmt.Errorf("%w: empty public key or signature", ErrIncorrectSignature)
	}

	message := []byte(fn + strings.Join(args[:len(args)-1], ""))

	valid, err := keys.Verify(publicKey, message, signature)
	if err != nil {
		return nil, nil, 0, err
	}
	if !valid {
		return nil, nil, 0, ErrIncorrectSignature
	}

	nonceValue, err = nonce.Parse(invocation.nonceStringArg)
	if err != nil {
		return nil, nil, 0, err
	}

	return types.NewSenderFromAddr(types.AddrFromPublicKey(publicKey)), invocation.methodArgs, nonceValue, nil
}

func parseInvocationDetails(argCount int, args []string) (*invocationDetails, error) {
	expected := signedPrefixArgs + argCount + signedSuffixArgs
	if len(args) != expected {
		return nil, fmt.Errorf(
			"%w: found %d but expected %d",
			ErrIncorrectSignedArgs,
			len(args),
			expected,
		)
	}

	suffix := args[signedPrefixArgs+argCount:]

	return &invocationDetails{
		chaincodeNameArg: args[1],
		channelNameArg:   args[2],
		methodArgs:       args[signedPrefixArgs : signedPrefixArgs+argCount],
		nonceStringArg:   suffix[0],
		publicKeyArg:     suffix[1],
		signatureArg:     suffix[2],
	}, nil
}

func checkChaincodeAndChannelName(
	stub shim.ChaincodeStubInterface,
	chaincodeName string,
	channelName string,
) error {
	signedProposal, err := stub.GetSignedProposal()
	if err != nil {
		return err
	}

	proposal := &peer.Proposal{}
	if err = proto.Unmarshal(signedProposal.GetProposalBytes(), proposal); err != nil {
		return err
	}

	payload := &peer.ChaincodeProposalPayload{}
	if err = proto.Unmarshal(proposal.GetPayload(), payload); err != nil {
		return err
	}

	invocationSpec := &peer.ChaincodeInvocationSpec{}
	if err = proto.Unmarshal(payload.GetInput(), invocationSpec); err != nil {
		return err
	}

	if expected := invocationSpec.GetChaincodeSpec().GetChaincodeId().GetName(); chaincodeName != expected {
		return fmt.Errorf(
			"%w in args by index 1. found %s but expected %s",
			ErrChaincodeMismatch,
			chaincodeName,
			expected,
		)
	}

	if channelName != stub.GetChannelID() {
		return fmt.Errorf(
			"%w in args by index 2. found %s but expected %s",
			ErrChannelMismatch,
			channelName,
			stub.GetChannelID(),
		)
	}

	return nil
}
