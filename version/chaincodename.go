package version

import "os"

// DefaultChaincodeName is reported when the peer did not set CORE_CHAINCODE_ID_NAME.
const DefaultChaincodeName = "crowdfund"

// CoreChaincodeIDName returns the chaincode name the peer started us with.
// The peer sets it as "name:version"; only the name is returned.
func CoreChaincodeIDName() string {
	ch := os.Getenv("CORE_CHAINCODE_ID_NAME")
	if ch == "" {
		return DefaultChaincodeName
	}

	for i := 0; i < len(ch); i++ {
		if ch[i] == ':' {
			return ch[:i]
		}
	}

	return ch
}
