package oracle

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/anoideaopen/crowdfund/core/types/big"
	"github.com/anoideaopen/crowdfund/fund/asset"
	"github.com/hyperledger/fabric-chaincode-go/shim"
)

const metadataKey = "oracleMetadata"

type metadata struct {
	Assets []*AssetInfo `json:"assets"`
}

// Registry keeps registered assets and their rates in one state document.
type Registry struct {
	stub     shim.ChaincodeStubInterface
	symbols  map[string]struct{}
	reserved map[asset.Asset]struct{}
}

var _ View = (*Registry)(nil)

// Option configures a Registry.
type Option func(*Registry)

// ReserveSymbols makes the registry refuse to register any of symbols.
func ReserveSymbols(symbols ...string) Option {
	return func(r *Registry) {
		for _, s := range symbols {
			r.symbols[s] = struct{}{}
		}
	}
}

// ReserveAssets makes the registry refuse payment assets whose balances
// are any of assets, such as the token being sold.
func ReserveAssets(assets ...asset.Asset) Option {
	return func(r *Registry) {
		for _, a := range assets {
			r.reserved[a] = struct{}{}
		}
	}
}

func NewRegistry(stub shim.ChaincodeStubInterface, opts ...Option) *Registry {
	r := &Registry{
		stub:     stub,
		symbols:  make(map[string]struct{}),
		reserved: make(map[asset.Asset]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a new payment asset. An asset is registered under one
// symbol only.
func (r *Registry) Register(info AssetInfo) error {
	if info.Symbol == "" {
		return ErrEmptySymbol
	}
	if _, ok := r.symbols[info.Symbol]; ok {
		return fmt.Errorf("%w: %s", ErrReservedSymbol, info.Symbol)
	}
	if err := info.Asset.Validate(); err != nil {
		return err
	}
	if _, ok := r.reserved[info.Asset]; ok {
		return fmt.Errorf("%w: %s", ErrReservedAsset, info.Asset)
	}
	if !info.Rate.IsPositive() {
		return ErrZeroRate
	}
	if err := checkLimits(info.Min, info.Max); err != nil {
		return err
	}

	cfg, err := r.load()
	if err != nil {
		return err
	}
	for _, a := range cfg.Assets {
		if a.Symbol == info.Symbol {
			return fmt.Errorf("%w: %s", ErrAlreadyRegistered, info.Symbol)
		}
		if a.Asset == info.Asset {
			return fmt.Errorf("%w: %s is %s", ErrAssetInUse, info.Asset, a.Symbol)
		}
	}

	if info.UpdatedAt, err = r.txUnix(); err != nil {
		return err
	}
	cfg.Assets = append(cfg.Assets, &info)
	sort.Slice(cfg.Assets, func(i, j int) bool { return cfg.Assets[i].Symbol < cfg.Assets[j].Symbol })

	return r.save(cfg)
}

// SetRate updates the USD rate of a registered asset.
func (r *Registry) SetRate(symbol string, rate *big.Int) error {
	if !rate.IsPositive() {
		return ErrZeroRate
	}

	return r.update(symbol, func(a *AssetInfo) error {
		a.Rate = rate
		var err error
		a.UpdatedAt, err = r.txUnix()
		return err
	})
}

// SetLimits bounds a single payment in the asset. Zero max means unbounded.
func (r *Registry) SetLimits(symbol string, minLimit, maxLimit *big.Int) error {
	if err := checkLimits(minLimit, maxLimit); err != nil {
		return err
	}

	return r.update(symbol, func(a *AssetInfo) error {
		a.Min = minLimit
		a.Max = maxLimit
		return nil
	})
}

// Get returns the registered asset.
func (r *Registry) Get(symbol string) (AssetInfo, error) {
	cfg, err := r.load()
	if err != nil {
		return AssetInfo{}, err
	}
	for _, a := range cfg.Assets {
		if a.Symbol == symbol {
			return *a, nil
		}
	}
	return AssetInfo{}, fmt.Errorf("%w: %s", ErrNotRegistered, symbol)
}

// List returns all registered assets ordered by symbol.
func (r *Registry) List() ([]AssetInfo, error) {
	cfg, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]AssetInfo, 0, len(cfg.Assets))
	for _, a := range cfg.Assets {
		out = append(out, *a)
	}
	return out, nil
}

func (r *Registry) IsRegistered(symbol string) (bool, error) {
	cfg, err := r.load()
	if err != nil {
		return false, err
	}
	for _, a := range cfg.Assets {
		if a.Symbol == symbol {
			return true, nil
		}
	}
	return false, nil
}

func (r *Registry) IsTokenBacked(symbol string) (bool, error) {
	a, err := r.Get(symbol)
	if err != nil {
		return false, err
	}
	return !a.Asset.IsNative(), nil
}

func (r *Registry) AssetAddress(symbol string) (string, error) {
	a, err := r.Get(symbol)
	if err != nil {
		return "", err
	}
	return a.Asset.Address, nil
}

func (r *Registry) Rate(symbol string) (*big.Int, error) {
	a, err := r.Get(symbol)
	if err != nil {
		return nil, err
	}
	return a.Rate, nil
}

func (r *Registry) Decimals(symbol string) (uint, error) {
	a, err := r.Get(symbol)
	if err != nil {
		return 0, err
	}
	return a.Decimals, nil
}

func (r *Registry) update(symbol string, fn func(a *AssetInfo) error) error {
	cfg, err := r.load()
	if err != nil {
		return err
	}
	for _, a := range cfg.Assets {
		if a.Symbol == symbol {
			if err = fn(a); err != nil {
				return err
			}
			return r.save(cfg)
		}
	}
	return fmt.Errorf("%w: %s", ErrNotRegistered, symbol)
}

func (r *Registry) load() (*metadata, error) {
	data, err := r.stub.GetState(metadataKey)
	if err != nil {
		return nil, err
	}

	cfg := &metadata{}
	if len(data) == 0 {
		return cfg, nil
	}

	if err = json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decoding oracle metadata: %w", err)
	}
	return cfg, nil
}

func (r *Registry) save(cfg *metadata) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return r.stub.PutState(metadataKey, data)
}

func (r *Registry) txUnix() (int64, error) {
	ts, err := r.stub.GetTxTimestamp()
	if err != nil {
		return 0, err
	}
	if ts == nil {
		return 0, nil
	}
	return ts.GetSeconds(), nil
}

func checkLimits(minLimit, maxLimit *big.Int) error {
	lo, hi := minLimit.Copy(), maxLimit.Copy()
	if lo.Sign() < 0 || hi.Sign() < 0 {
		return fmt.Errorf("%w: limits must be non-negative", ErrMinGreaterThanMax)
	}
	if lo.Cmp(hi) > 0 && hi.IsPositive() {
		return ErrMinGreaterThanMax
	}
	return nil
}
