package hunt

import "errors"

// Ledger validation failures. Expected and recoverable: surfaced to
// the caller with the reason, no retry needed. Conflicts from losing a
// concurrent race surface as store.ErrConflict so clients can react
// differently (refresh the nearby list).
var (
	ErrInvalidAmount      = errors.New("hunt: amount must be positive")
	ErrInvalidCoinType    = errors.New("hunt: coin type must be fixed or pool")
	ErrInsufficientGas    = errors.New("hunt: insufficient gas")
	ErrInsufficientParked = errors.New("hunt: insufficient parked funds")
	ErrNotHider           = errors.New("hunt: only the hider can retrieve a coin")
	ErrNotPoolCoin        = errors.New("hunt: coin value is fixed")
)
