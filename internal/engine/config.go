package engine

import "github.com/shopspring/decimal"

// SymbolConfig is the per-symbol price/quantity quantum from spec §6.
// Prices and quantities not on tick/lot are REJECTED.
type SymbolConfig struct {
	TickSize decimal.Decimal
	LotSize  decimal.Decimal
}

// OnTick reports whether price is an exact multiple of the tick size.
func (c SymbolConfig) OnTick(price decimal.Decimal) bool {
	if c.TickSize.IsZero() {
		return true
	}
	return price.Mod(c.TickSize).IsZero()
}

// OnLot reports whether qty is an exact multiple of the lot size.
func (c SymbolConfig) OnLot(qty decimal.Decimal) bool {
	if c.LotSize.IsZero() {
		return true
	}
	return qty.Mod(c.LotSize).IsZero()
}

// scale is the number of decimal places every price is normalized to before
// it is used as a SideBook/locator key, so that price1 == price2 is total and
// decidable (spec §4.4) regardless of how the caller wrote the literal value.
func (c SymbolConfig) scale() int32 {
	if c.TickSize.IsZero() {
		return 8
	}
	return -c.TickSize.Exponent()
}


// Config is the set of recognized options from spec §6 that the registry
// hands to every MatchingEngine it creates.
type Config struct {
	Symbols               map[string]SymbolConfig
	MaxBookDepthSnapshot  int
	AcceptMarketOrders    bool
}

// ForSymbol looks up the config for symbol, defaulting to an
// unconstrained tick/lot (no quantization enforced) if unlisted.
func (c Config) ForSymbol(symbol string) SymbolConfig {
	if cfg, ok := c.Symbols[symbol]; ok {
		return cfg
	}
	return SymbolConfig{TickSize: decimal.Zero, LotSize: decimal.Zero}
}
