// Package economy provides a points economy ledger for Go applications.
//
// Economy is designed as a library, not a service. Import it directly into
// your Go application, or run the bundled economy binary for an HTTP API. It
// provides:
//
//   - An append-only balance ledger whose balances always equal their history
//   - A fixed annual allocation partitioned into grant, rewards and reserve funds
//   - Earnings and purchase taxation, half burned and half paid into the reserve
//   - A tax-free weekly community bonus
//   - A yearly step-up of both tax rates, recorded as an audit trail
//   - Read-only reporting over trailing windows
//
// # Quick Start
//
// Create an economy with your preferred store:
//
//	import (
//	    "github.com/xraph/economy"
//	    "github.com/xraph/economy/store/postgres"
//	)
//
//	store, err := postgres.Open(ctx, databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	e := economy.New(store, economy.WithFundAllocations(map[fund.Type]int64{
//	    fund.TypeGrant:   3_024_000_000,
//	    fund.TypeRewards: 1_404_000_000,
//	    fund.TypeReserve: 756_000_000,
//	}))
//
//	// Migrates, bootstraps tax settings and the fiscal year, starts jobs.
//	if err := e.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Stop()
//
// # Taxation
//
// Earnings are minted in full, then taxed at the monthly rate:
//
//	res, err := e.ApplyEarningsTax(ctx, accountID, 1000, time.Now())
//	// res.TaxAmount == 50, res.Burn == 25, res.ReserveShare == 25, res.Net == 950
//
// An account with a zero balance, or inside the exemption window granted by
// its last weekly bonus, is not taxed. Tax amounts round half-up to whole
// points and any odd point goes to the reserve.
//
// # Jobs
//
// The weekly bonus, the annual rate adjustment and the fiscal year seed run
// on a cron schedule. Every job is safe to re-trigger: already applied units
// are reported as skipped. Use WithJobLocker with a joblock.Redis when
// several processes share one store.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	acct_01h2xcejqtf2nbrexx3vqjhp41    // Account ID
//	tx_01h2xcejqtf2nbrexx3vqjhp41      // Transaction ID
//	taxadj_01h455vb4pex5vsknk084sn02q  // Tax rate adjustment ID
package economy
