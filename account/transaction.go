package account

import (
	"slices"
	"strings"
	"time"

	"github.com/xraph/economy/id"
	"github.com/xraph/economy/types"
)

// Kind classifies a ledger transaction.
type Kind string

const (
	KindMint         Kind = "mint"
	KindTaxEarnings  Kind = "tax-earnings"
	KindTaxPurchase  Kind = "tax-purchase"
	KindWeeklyBonus  Kind = "weekly-bonus"
	KindBurn         Kind = "burn"
	KindFundTransfer Kind = "fund-transfer"
)

// Kinds returns every transaction kind.
func Kinds() []Kind {
	return []Kind{KindMint, KindTaxEarnings, KindTaxPurchase, KindWeeklyBonus, KindBurn, KindFundTransfer}
}

func (k Kind) IsValid() bool {
	switch k {
	case KindMint, KindTaxEarnings, KindTaxPurchase, KindWeeklyBonus, KindBurn, KindFundTransfer:
		return true
	}
	return false
}

// DistributionKinds are the kinds that move newly allocated points into
// circulation.
func DistributionKinds() []Kind {
	return []Kind{KindMint, KindWeeklyBonus}
}

// TaxKinds are the kinds that record levied tax.
func TaxKinds() []Kind {
	return []Kind{KindTaxEarnings, KindTaxPurchase}
}

// Reference prefixes on tax rows. A levied tax is recorded as up to two rows
// of the tax kind: the burned half and the half paid into the reserve.
const (
	RefBurn    = "burn:"
	RefReserve = "reserve:"
)

// Transaction is an immutable ledger row. Amount is signed: credits are
// positive and debits negative.
type Transaction struct {
	ID        id.TransactionID `json:"id"`
	AccountID id.AccountID     `json:"account_id"`
	Amount    int64            `json:"amount"`
	Kind      Kind             `json:"kind"`
	Reference string           `json:"reference,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

type TxQuery struct {
	Kinds  []Kind
	Window types.Window
	Limit  int
	Offset int
}

// SumQuery selects transactions to aggregate. A nil AccountID sums across
// all accounts; an empty ReferencePrefix matches any reference.
type SumQuery struct {
	AccountID       id.AccountID
	Kinds           []Kind
	Window          types.Window
	ReferencePrefix string
}

// Matches reports whether tx is selected by q.
func (q SumQuery) Matches(tx *Transaction) bool {
	if !q.AccountID.IsNil() && tx.AccountID.String() != q.AccountID.String() {
		return false
	}
	if len(q.Kinds) > 0 && !slices.Contains(q.Kinds, tx.Kind) {
		return false
	}
	if q.ReferencePrefix != "" && !strings.HasPrefix(tx.Reference, q.ReferencePrefix) {
		return false
	}
	return q.Window.Contains(tx.CreatedAt)
}

