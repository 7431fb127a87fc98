package dexterm

import (
	"regexp"
	"sync"
)

var (
	prefixMu    sync.Mutex
	prefixCache = map[string]*regexp.Regexp{}
)

func prefixRegexp(pattern string) (*regexp.Regexp, error) {
	prefixMu.Lock()
	defer prefixMu.Unlock()
	if re, ok := prefixCache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, NewErr(LogicalInvariant, "bad address prefix pattern %q: %v", pattern, err)
	}
	prefixCache[pattern] = re
	return re, nil
}

// AddressTypeOf classifies an address against the coin's prefix rules.
// An address matching neither rule is a configuration bug (the wallet
// handed us an address this coin config cannot size), so it fails
// loudly rather than defaulting to a size table entry.
func (c CoinConfig) AddressTypeOf(addr Address) (AddressType, error) {
	legacy, err := prefixRegexp(c.LegacyPrefix)
	if err != nil {
		return AddressUnknown, err
	}
	if legacy.MatchString(string(addr)) {
		return AddressLegacy, nil
	}
	segwit, err := prefixRegexp(c.SegwitPrefix)
	if err != nil {
		return AddressUnknown, err
	}
	if segwit.MatchString(string(addr)) {
		return AddressSegwit, nil
	}
	return AddressUnknown, NewErr(LogicalInvariant, "address %q matches no prefix rule for %s", addr, c.Ticker)
}
