package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/trustwrapper/core/pkg/contracts"
)

// aggregatorABI is the read-only subset of a Chainlink-style price
// aggregator: latestRoundData() returning (roundId, answer, startedAt,
// updatedAt, answeredInRound).
const aggregatorABI = `[{
	"name": "latestRoundData",
	"type": "function",
	"stateMutability": "view",
	"inputs": [],
	"outputs": [
		{"name": "roundId", "type": "uint80"},
		{"name": "answer", "type": "int256"},
		{"name": "startedAt", "type": "uint256"},
		{"name": "updatedAt", "type": "uint256"},
		{"name": "answeredInRound", "type": "uint80"}
	]
}]`

// EVMSource reads an on-chain price aggregator on any EVM-compatible
// chain (Ethereum, Celo, ...) via JSON-RPC. One EVMSource instance
// polls one (chain, contract) pair for a single symbol; callers wanting
// multiple symbols from the same chain construct one EVMSource per
// symbol-to-contract mapping.
type EVMSource struct {
	id       string
	client   *ethclient.Client
	contract common.Address
	abi      abi.ABI
	decimals float64
}

// NewEVMSource dials rpcURL and builds an EVMSource reading the
// aggregator at contractAddr. decimals is the fixed-point scale of the
// aggregator's answer (8 for most Chainlink USD feeds).
func NewEVMSource(id, rpcURL, contractAddr string, decimals int) (*EVMSource, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("oracle: dial %s: %w", rpcURL, err)
	}
	parsed, err := abi.JSON(strings.NewReader(aggregatorABI))
	if err != nil {
		return nil, fmt.Errorf("oracle: parse aggregator abi: %w", err)
	}
	return &EVMSource{
		id:       id,
		client:   client,
		contract: common.HexToAddress(contractAddr),
		abi:      parsed,
		decimals: pow10(decimals),
	}, nil
}

func (s *EVMSource) ID() string { return s.id }

func (s *EVMSource) Poll(ctx context.Context, symbol string) (contracts.OracleSample, error) {
	callData, err := s.abi.Pack("latestRoundData")
	if err != nil {
		return contracts.OracleSample{}, fmt.Errorf("%w: pack call: %v", ErrSourceUnavailable, err)
	}

	raw, err := s.client.CallContract(ctx, ethereum.CallMsg{To: &s.contract, Data: callData}, nil)
	if err != nil {
		return contracts.OracleSample{}, fmt.Errorf("%w: call contract: %v", ErrSourceUnavailable, err)
	}

	outputs, err := s.abi.Unpack("latestRoundData", raw)
	if err != nil {
		return contracts.OracleSample{}, fmt.Errorf("%w: unpack result: %v", ErrSourceUnavailable, err)
	}
	answer := outputs[1].(*big.Int)
	updatedAt := outputs[3].(*big.Int)

	price := new(big.Float).SetInt(answer)
	price.Quo(price, big.NewFloat(s.decimals))
	priceF, _ := price.Float64()

	return contracts.OracleSample{
		SourceID:   s.id,
		Symbol:     symbol,
		Price:      priceF,
		ReportedAt: time.Unix(updatedAt.Int64(), 0),
	}, nil
}

func pow10(n int) float64 {
	v := 1.0
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}
