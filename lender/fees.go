package lender

import (
	"math/big"

	gethmath "github.com/ethereum/go-ethereum/common/math"

	"github.com/basisfi/flashlend/utils/math"
)

// Unavailable is the quote returned when a request exceeds current
// reserves: the maximum representable 256-bit value, impossibly large for
// any real fee. Callers must treat it as "no loan possible" rather than a
// price. A flash that proceeds on such a quote is rejected at
// reconciliation, not up front.
var Unavailable = new(big.Int).Set(gethmath.MaxBig256)

// quoteFee prices a loan of amount against the current ledger.
func (c *core) quoteFee(amount *big.Int) *big.Int {
	if amount.Cmp(c.reserves) > 0 {
		return math.Copy(Unavailable)
	}
	return math.FeeOf(amount, c.feeBps)
}
