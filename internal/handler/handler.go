// Package handler holds the per-contract extraction rules. Each rule is
// a mechanical mapping from one matched operation (and its bigmap diffs)
// to event payloads; the pipeline mechanics live in internal/dispatch.
package handler

import (
	"fmt"

	"github.com/oldominion/indexer/internal/dispatch"
)

// Mainnet contract defaults.
const (
	DefaultObjktMarketplace = "KT1FvqJwEDWb1Gwc55Jd1jjTHRVWbYKUUpyq"
	DefaultObjktAsksBigmap  = 5909
	DefaultHenMarketplace   = "KT1HbQepzV1nVGg8QVznG7z4RcHseD5kwqBn"
	DefaultHenSwapsBigmap   = 523
	DefaultHenObjktsFA2     = "KT1RJ6PbjHpwc3M5rw5s2Nbmefwbuwbdxton"
)

// Config holds the contract addresses and bigmap ids the handlers are
// bound to.
type Config struct {
	ObjktMarketplace string
	ObjktAsksBigmap  int64
	HenMarketplace   string
	HenSwapsBigmap   int64
	HenObjktsFA2     string
}

// DefaultConfig returns the mainnet contract bindings.
func DefaultConfig() Config {
	return Config{
		ObjktMarketplace: DefaultObjktMarketplace,
		ObjktAsksBigmap:  DefaultObjktAsksBigmap,
		HenMarketplace:   DefaultHenMarketplace,
		HenSwapsBigmap:   DefaultHenSwapsBigmap,
		HenObjktsFA2:     DefaultHenObjktsFA2,
	}
}

// All assembles the full handler table for the given contract bindings.
func All(cfg Config) []dispatch.Handler {
	return []dispatch.Handler{
		ObjktAsk(cfg),
		ObjktFulfillAsk(cfg),
		ObjktRetractAsk(cfg),
		HenSwap(cfg),
		HenCollect(cfg),
		HenCancelSwap(cfg),
		ContractOrigination(),
	}
}

// checkCurrency rejects settlement currencies no handler maps yet. The
// rejection is an expected outcome, not a bug, so it wraps
// dispatch.ErrUnsupported.
func checkCurrency(currency string) error {
	if currency == "" || currency == "tez" {
		return nil
	}
	return fmt.Errorf("currency %q: %w", currency, dispatch.ErrUnsupported)
}
