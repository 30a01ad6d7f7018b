package ethereum

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// landLedgerABI covers the LandLedger contract methods the service calls.
const landLedgerABI = `[
  {"type":"function","name":"landCount","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getOwnerLands","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"}],
   "outputs":[{"name":"","type":"uint256[]"}]},
  {"type":"function","name":"getLandDetails","stateMutability":"view",
   "inputs":[{"name":"landId","type":"uint256"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"id","type":"uint256"},
     {"name":"location","type":"string"},
     {"name":"ownerName","type":"string"},
     {"name":"ownerAddress","type":"address"},
     {"name":"documentHash","type":"string"},
     {"name":"exists","type":"bool"}]}]},
  {"type":"function","name":"registerLand","stateMutability":"nonpayable",
   "inputs":[{"name":"location","type":"string"},{"name":"ownerName","type":"string"},{"name":"documentHash","type":"string"}],
   "outputs":[]},
  {"type":"function","name":"transferOwnership","stateMutability":"nonpayable",
   "inputs":[{"name":"landId","type":"uint256"},{"name":"newOwnerAddress","type":"address"},{"name":"newOwnerName","type":"string"}],
   "outputs":[]}
]`

// landTuple mirrors the getLandDetails return struct. Field names follow
// the ABI component names.
type landTuple struct {
	Id           *big.Int
	Location     string
	OwnerName    string
	OwnerAddress common.Address
	DocumentHash string
	Exists       bool
}

// ParsedABI returns the parsed LandLedger ABI.
func ParsedABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(landLedgerABI))
}
