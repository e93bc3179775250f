package economy

import (
	"context"
	"time"

	"github.com/xraph/economy/account"
	"github.com/xraph/economy/fund"
	"github.com/xraph/economy/id"
	"github.com/xraph/economy/store"
	"github.com/xraph/economy/tax"
)

// ──────────────────────────────────────────────────
// Taxation engine
// ──────────────────────────────────────────────────

// ApplyEarningsTax settles gross earned points into an account.
//
// The gross amount is minted into the account. Unless the account is
// exempt, the monthly rate is levied on it: half of the tax is burned and
// the rest is paid into the reserve fund, both recorded as tax-earnings
// debits. An account with a zero balance, or inside its bonus exemption
// window, keeps the full amount. All writes commit together or not at all.
func (e *Economy) ApplyEarningsTax(ctx context.Context, accountID id.AccountID, grossAmount int64, now time.Time) (*tax.Result, error) {
	return e.applyTax(ctx, tax.EventEarnings, accountID, grossAmount, now)
}

// ApplyPurchaseTax levies the purchase rate on a purchase of purchaseAmount
// points. The price itself is settled by the caller; only the tax is
// debited here, split between burn and reserve like earnings tax. A buyer
// with a zero balance is not taxed.
func (e *Economy) ApplyPurchaseTax(ctx context.Context, accountID id.AccountID, purchaseAmount int64, now time.Time) (*tax.Result, error) {
	return e.applyTax(ctx, tax.EventPurchase, accountID, purchaseAmount, now)
}

// QuotePurchase previews the tax on a purchase without writing anything.
func (e *Economy) QuotePurchase(ctx context.Context, accountID id.AccountID, price int64, now time.Time) (*tax.Quote, error) {
	if price <= 0 {
		return nil, ErrInvalidAmount
	}

	a, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	settings, err := e.store.GetTaxSettingsAt(ctx, now)
	if err != nil {
		return nil, err
	}

	q := &tax.Quote{Price: price, Rate: settings.PurchaseRate, Exempt: exemptFrom(tax.EventPurchase, a, now)}
	if !q.Exempt {
		q.Tax = tax.Compute(price, settings.PurchaseRate)
	}
	q.Total = price + q.Tax
	return q, nil
}

func (e *Economy) applyTax(ctx context.Context, event tax.Event, accountID id.AccountID, amount int64, now time.Time) (*tax.Result, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var result *tax.Result
	fx, err := e.atomically(ctx, []string{accountKey(accountID), fundKey(fund.TypeReserve)}, func(ctx context.Context, tx store.Store, fx *effects) error {
		a, err := e.loadActive(ctx, tx, accountID)
		if err != nil {
			return err
		}
		settings, err := tx.GetTaxSettingsAt(ctx, now)
		if err != nil {
			return err
		}

		result = &tax.Result{
			AccountID:  accountID,
			Event:      event,
			Base:       amount,
			Rate:       settings.RateFor(event),
			SettingsID: settings.ID,
			AppliedAt:  now.UTC(),
		}

		// Exemption is decided on the balance before anything is credited.
		result.Exempt = exemptFrom(event, a, now)
		if !result.Exempt {
			result.TaxAmount = tax.Compute(amount, result.Rate)
			result.Burn, result.ReserveShare = tax.Split(result.TaxAmount)
		}

		source := ""
		if event == tax.EventEarnings {
			mint, err := e.post(ctx, tx, a, amount, account.KindMint, "", now, fx)
			if err != nil {
				return err
			}
			source = mint.ID.String()
			result.Net = amount - result.TaxAmount
		}

		if result.TaxAmount > 0 {
			if err := e.levy(ctx, tx, a, event, result, source, now, fx); err != nil {
				return err
			}
		}

		return e.checkAccount(ctx, tx, a)
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, fx)
	e.plugins.EmitTaxApplied(ctx, result)

	e.logger.Debug("tax applied",
		"account_id", accountID.String(),
		"event", event,
		"base", amount,
		"tax", result.TaxAmount,
		"exempt", result.Exempt,
	)
	return result, nil
}

// levy records the burned and reserved halves of a computed tax and pays
// the reserve half into the reserve fund.
func (e *Economy) levy(ctx context.Context, tx store.Store, a *account.Account, event tax.Event, r *tax.Result, source string, now time.Time, fx *effects) error {
	kind := account.KindTaxEarnings
	if event == tax.EventPurchase {
		kind = account.KindTaxPurchase
	}

	if r.Burn > 0 {
		if _, err := e.post(ctx, tx, a, -r.Burn, kind, account.RefBurn+source, now, fx); err != nil {
			return err
		}
	}
	if r.ReserveShare > 0 {
		if _, err := e.post(ctx, tx, a, -r.ReserveShare, kind, account.RefReserve+source, now, fx); err != nil {
			return err
		}

		applied, err := e.replenish(ctx, tx, fund.TypeReserve, r.ReserveShare, fx)
		if err != nil {
			return err
		}
		if applied != r.ReserveShare {
			return errInconsistentf("reserve accepted %d of %d tax points", applied, r.ReserveShare)
		}
	}
	return nil
}

// exemptFrom reports whether an event on a is levied at zero. Earnings use
// both the zero-balance rule and the bonus exemption window; purchases use
// only the zero-balance rule.
func exemptFrom(event tax.Event, a *account.Account, now time.Time) bool {
	if event == tax.EventPurchase {
		return a.Balance == 0
	}
	return a.IsTaxExempt(now)
}
