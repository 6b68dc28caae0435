package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stableforge/core/core"
	"github.com/stableforge/core/engine"
	"github.com/stableforge/core/oracle"
	"github.com/stableforge/core/store/ledger"
	"github.com/stableforge/core/token"
	"github.com/stableforge/core/vault"
)

const eth = "ETH"

type fixture struct {
	t *testing.T

	clk    *clock.Mock
	feeds  map[string]*oracle.Feed
	store  *ledger.MemoryStore
	tokens *token.Ledger
	vault  *vault.Vault
	engine *engine.Engine
}

func newFixture(t *testing.T, prices map[string]string) *fixture {
	t.Helper()

	f := &fixture{
		t:      t,
		clk:    clock.NewMock(),
		feeds:  make(map[string]*oracle.Feed),
		store:  ledger.NewMemoryStore(),
		tokens: token.NewLedger(),
		vault:  vault.New(),
	}

	assetIds := make([]string, 0, len(prices))
	for _, id := range []string{eth, "BTC"} {
		if _, ok := prices[id]; ok {
			assetIds = append(assetIds, id)
		}
	}
	oracles := make([]core.PriceOracle, 0, len(assetIds))
	for _, id := range assetIds {
		feed := oracle.NewFeed(oracle.Config{MaxAge: time.Hour}, oracle.WithClock(f.clk))
		require.NoError(t, feed.Submit(decimal.RequireFromString(prices[id])))
		f.feeds[id] = feed
		oracles = append(oracles, feed)
	}

	eng, err := engine.New(
		engine.Config{AssetIds: assetIds, Oracles: oracles},
		f.store, f.tokens, f.vault,
		engine.WithClock(f.clk),
	)
	require.NoError(t, err)
	f.engine = eng
	return f
}

func (f *fixture) setPrice(assetId, price string) {
	require.NoError(f.t, f.feeds[assetId].Submit(decimal.RequireFromString(price)))
}

func (f *fixture) fundedAccount(ethAmount string) uuid.UUID {
	account := uuid.Must(uuid.NewV4())
	f.vault.Fund(account, eth, decimal.RequireFromString(ethAmount))
	return account
}

func d(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

func TestDepositAndQueries(t *testing.T) {
	f := newFixture(t, map[string]string{eth: "2000"})
	ctx := context.Background()
	account := f.fundedAccount("10")

	require.NoError(t, f.engine.Deposit(ctx, account, eth, d("10")))

	value, err := f.engine.AccountCollateralValue(ctx, account)
	require.NoError(t, err)
	assert.True(t, value.Equal(d("20000")), "expected 20000, got %s", value)

	amount, err := f.engine.TokenAmountFromUsd(ctx, eth, d("100"))
	require.NoError(t, err)
	assert.True(t, amount.Equal(d("0.05")))

	usd, err := f.engine.UsdValue(ctx, eth, d("10"))
	require.NoError(t, err)
	assert.True(t, usd.Equal(d("20000")))

	assert.True(t, f.vault.Custody(eth).Equal(d("10")))
	assert.True(t, f.vault.ExternalBalance(account, eth).IsZero())

	hf, err := f.engine.HealthFactor(ctx, account)
	require.NoError(t, err)
	assert.True(t, hf.Equal(core.MAX_HEALTH_FACTOR), "no debt means max health")
}

func TestDepositValidation(t *testing.T) {
	f := newFixture(t, map[string]string{eth: "2000"})
	ctx := context.Background()
	account := f.fundedAccount("10")

	assert.ErrorIs(t, f.engine.Deposit(ctx, account, "DOGE", d("1")), core.AssetNotRegistered)
	assert.ErrorIs(t, f.engine.Deposit(ctx, account, eth, decimal.Zero), core.InvalidAmount)
	assert.ErrorIs(t, f.engine.Borrow(ctx, account, d("-5")), core.InvalidAmount)
}

func TestDepositTransferFailureLeavesLedgerUntouched(t *testing.T) {
	f := newFixture(t, map[string]string{eth: "2000"})
	ctx := context.Background()
	account := uuid.Must(uuid.NewV4()) // no external funds

	err := f.engine.Deposit(ctx, account, eth, d("10"))
	require.Error(t, err)
	assert.ErrorIs(t, err, vault.InsufficientFunds)

	balance, err := f.engine.CollateralBalance(ctx, account, eth)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
	assert.True(t, f.vault.Custody(eth).IsZero())
}

func TestBorrowBoundary(t *testing.T) {
	f := newFixture(t, map[string]string{eth: "2000"})
	ctx := context.Background()
	account := f.fundedAccount("10")

	require.NoError(t, f.engine.Deposit(ctx, account, eth, d("10")))
	require.NoError(t, f.engine.Borrow(ctx, account, d("10000")))

	hf, err := f.engine.HealthFactor(ctx, account)
	require.NoError(t, err)
	assert.True(t, hf.Equal(core.ONE), "borrowing exactly to the 200%% threshold must score 1.0, got %s", hf)

	balance, err := f.tokens.BalanceOf(ctx, account)
	require.NoError(t, err)
	assert.True(t, balance.Equal(d("10000")))

	// one smallest unit past the boundary
	err = f.engine.Borrow(ctx, account, d("0.000000000000000001"))
	require.Error(t, err)
	factor, ok := core.IsBreaksHealthFactor(err)
	require.True(t, ok, "expected health factor violation, got %v", err)
	assert.True(t, factor.LessThan(core.ONE))

	info, err := f.engine.AccountInfo(ctx, account)
	require.NoError(t, err)
	assert.True(t, info.TotalDebt.Equal(d("10000")), "failed borrow must not change debt")

	supply, err := f.engine.PeggedSupply(ctx)
	require.NoError(t, err)
	assert.True(t, supply.Equal(d("10000")), "failed borrow must not mint")
}

func TestWithdrawUnderflow(t *testing.T) {
	f := newFixture(t, map[string]string{eth: "2000"})
	ctx := context.Background()
	account := f.fundedAccount("10")

	require.NoError(t, f.engine.Deposit(ctx, account, eth, d("10")))

	err := f.engine.Withdraw(ctx, account, eth, d("11"))
	assert.ErrorIs(t, err, core.CollateralUnderflow)

	balance, err := f.engine.CollateralBalance(ctx, account, eth)
	require.NoError(t, err)
	assert.True(t, balance.Equal(d("10")), "no partial withdrawal")
	assert.True(t, f.vault.ExternalBalance(account, eth).IsZero())
}

func TestWithdrawHealthGate(t *testing.T) {
	f := newFixture(t, map[string]string{eth: "2000"})
	ctx := context.Background()
	account := f.fundedAccount("10")

	require.NoError(t, f.engine.Deposit(ctx, account, eth, d("10")))
	require.NoError(t, f.engine.Borrow(ctx, account, d("10000")))

	err := f.engine.Withdraw(ctx, account, eth, d("0.000000000000000001"))
	_, ok := core.IsBreaksHealthFactor(err)
	assert.True(t, ok, "withdrawing at the boundary must break the health factor, got %v", err)

	balance, err := f.engine.CollateralBalance(ctx, account, eth)
	require.NoError(t, err)
	assert.True(t, balance.Equal(d("10")))
}

func TestRepay(t *testing.T) {
	f := newFixture(t, map[string]string{eth: "2000"})
	ctx := context.Background()
	account := f.fundedAccount("10")

	require.NoError(t, f.engine.Deposit(ctx, account, eth, d("10")))
	require.NoError(t, f.engine.Borrow(ctx, account, d("8000")))
	require.NoError(t, f.engine.Repay(ctx, account, d("3000")))

	info, err := f.engine.AccountInfo(ctx, account)
	require.NoError(t, err)
	assert.True(t, info.TotalDebt.Equal(d("5000")))

	supply, err := f.engine.PeggedSupply(ctx)
	require.NoError(t, err)
	assert.True(t, supply.Equal(d("5000")), "repaid tokens are burned")

	assert.ErrorIs(t, f.engine.Repay(ctx, account, d("5001")), core.DebtUnderflow)
}

func TestRepayPullFailureAbortsBeforeLedgerMutation(t *testing.T) {
	f := newFixture(t, map[string]string{eth: "2000"})
	ctx := context.Background()
	account := f.fundedAccount("10")
	other := uuid.Must(uuid.NewV4())

	require.NoError(t, f.engine.Deposit(ctx, account, eth, d("10")))
	require.NoError(t, f.engine.Borrow(ctx, account, d("1000")))
	require.NoError(t, f.tokens.Transfer(ctx, account, other, d("600")))

	err := f.engine.Repay(ctx, account, d("1000"))
	assert.ErrorIs(t, err, token.InsufficientBalance)

	info, err := f.engine.AccountInfo(ctx, account)
	require.NoError(t, err)
	assert.True(t, info.TotalDebt.Equal(d("1000")), "failed pull must not reduce debt")
}

func TestDepositAndBorrowAtomicity(t *testing.T) {
	f := newFixture(t, map[string]string{eth: "2000"})
	ctx := context.Background()
	account := f.fundedAccount("10")

	err := f.engine.DepositAndBorrow(ctx, account, eth, d("10"), d("10001"))
	_, ok := core.IsBreaksHealthFactor(err)
	require.True(t, ok, "expected health factor violation, got %v", err)

	balance, err := f.engine.CollateralBalance(ctx, account, eth)
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), "aborted composition must not keep the deposit")
	assert.True(t, f.vault.Custody(eth).IsZero(), "aborted composition must not keep custody")
	assert.True(t, f.vault.ExternalBalance(account, eth).Equal(d("10")))

	require.NoError(t, f.engine.DepositAndBorrow(ctx, account, eth, d("10"), d("10000")))
	hf, err := f.engine.HealthFactor(ctx, account)
	require.NoError(t, err)
	assert.True(t, hf.Equal(core.ONE))
}

func TestRepayAndWithdraw(t *testing.T) {
	f := newFixture(t, map[string]string{eth: "2000"})
	ctx := context.Background()
	account := f.fundedAccount("10")

	require.NoError(t, f.engine.DepositAndBorrow(ctx, account, eth, d("10"), d("5000")))
	require.NoError(t, f.engine.RepayAndWithdraw(ctx, account, eth, d("5"), d("5000")))

	info, err := f.engine.AccountInfo(ctx, account)
	require.NoError(t, err)
	assert.True(t, info.TotalDebt.IsZero())
	assert.True(t, info.HealthFactor.Equal(core.MAX_HEALTH_FACTOR))

	balance, err := f.engine.CollateralBalance(ctx, account, eth)
	require.NoError(t, err)
	assert.True(t, balance.Equal(d("5")))
	assert.True(t, f.vault.ExternalBalance(account, eth).Equal(d("5")))

	supply, err := f.engine.PeggedSupply(ctx)
	require.NoError(t, err)
	assert.True(t, supply.IsZero())
}

// failingToken forces a mint failure so the compensation path is observable.
type failingToken struct {
	*token.Ledger
	failMint bool
}

func (ft *failingToken) Mint(ctx context.Context, to uuid.UUID, amount decimal.Decimal) error {
	if ft.failMint {
		return errors.New("mint rejected")
	}
	return ft.Ledger.Mint(ctx, to, amount)
}

func TestExternalFailureCompensatesExecutedActions(t *testing.T) {
	clk := clock.NewMock()
	feed := oracle.NewFeed(oracle.Config{MaxAge: time.Hour}, oracle.WithClock(clk))
	require.NoError(t, feed.Submit(d("2000")))

	store := ledger.NewMemoryStore()
	vlt := vault.New()
	tok := &failingToken{Ledger: token.NewLedger(), failMint: true}

	eng, err := engine.New(
		engine.Config{AssetIds: []string{eth}, Oracles: []core.PriceOracle{feed}},
		store, tok, vlt,
		engine.WithClock(clk),
	)
	require.NoError(t, err)

	ctx := context.Background()
	account := uuid.Must(uuid.NewV4())
	vlt.Fund(account, eth, d("10"))

	err = eng.DepositAndBorrow(ctx, account, eth, d("10"), d("1000"))
	require.Error(t, err)

	assert.True(t, vlt.ExternalBalance(account, eth).Equal(d("10")), "pull must be compensated after mint failure")
	assert.True(t, vlt.Custody(eth).IsZero())
	balance, err := eng.CollateralBalance(ctx, account, eth)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestStalePriceGatesValuation(t *testing.T) {
	f := newFixture(t, map[string]string{eth: "2000"})
	ctx := context.Background()
	account := f.fundedAccount("20")

	require.NoError(t, f.engine.Deposit(ctx, account, eth, d("10")))
	require.NoError(t, f.engine.Borrow(ctx, account, d("1000")))

	f.clk.Add(2 * time.Hour)

	assert.ErrorIs(t, f.engine.Borrow(ctx, account, d("1")), core.StalePrice)
	assert.ErrorIs(t, f.engine.Withdraw(ctx, account, eth, d("1")), core.StalePrice)

	// deposits carry no valuation and still pass
	require.NoError(t, f.engine.Deposit(ctx, account, eth, d("1")))

	f.setPrice(eth, "2000")
	require.NoError(t, f.engine.Borrow(ctx, account, d("1")))
}

func TestSerializedMutations(t *testing.T) {
	f := newFixture(t, map[string]string{eth: "2000"})
	ctx := context.Background()
	account := f.fundedAccount("100")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.engine.Deposit(ctx, account, eth, d("1")))
		}()
	}
	wg.Wait()

	balance, err := f.engine.CollateralBalance(ctx, account, eth)
	require.NoError(t, err)
	assert.True(t, balance.Equal(d("10")))
}

func TestEngineConfigValidation(t *testing.T) {
	feed := oracle.NewFeed(oracle.Config{MaxAge: time.Hour})

	_, err := engine.New(
		engine.Config{AssetIds: []string{eth, "BTC"}, Oracles: []core.PriceOracle{feed}},
		ledger.NewMemoryStore(), token.NewLedger(), vault.New(),
	)
	assert.ErrorIs(t, err, core.MismatchedAssetConfig)

	params := core.DefaultRiskParams()
	params.LiquidationBonus = d("200")
	_, err = engine.New(
		engine.Config{AssetIds: []string{eth}, Oracles: []core.PriceOracle{feed}, Params: params},
		ledger.NewMemoryStore(), token.NewLedger(), vault.New(),
	)
	assert.ErrorIs(t, err, core.InvalidRiskParams)
}
