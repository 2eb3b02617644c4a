package watchlist

import "strings"

// DefaultSymbols seeds a fresh watchlist.
var DefaultSymbols = []string{"BTC", "ETH", "RELIANCE"}

// Watchlist is an insertion-ordered set of symbols.
// It is not safe for concurrent use.
type Watchlist struct {
	symbols []string
	set     map[string]struct{}
}

// New returns a watchlist holding symbols (duplicates dropped).
func New(symbols ...string) *Watchlist {
	w := &Watchlist{set: make(map[string]struct{})}
	for _, s := range symbols {
		w.Add(s)
	}
	return w
}

// -----------------------------------------------------------------------------

// Add inserts symbol; it reports false when it was already present.
func (w *Watchlist) Add(symbol string) bool {
	symbol = normalize(symbol)
	if symbol == "" {
		return false
	}
	if _, ok := w.set[symbol]; ok {
		return false
	}
	w.set[symbol] = struct{}{}
	w.symbols = append(w.symbols, symbol)
	return true
}

// Remove deletes symbol; it reports false when it was absent.
func (w *Watchlist) Remove(symbol string) bool {
	symbol = normalize(symbol)
	if _, ok := w.set[symbol]; !ok {
		return false
	}
	delete(w.set, symbol)
	for i, s := range w.symbols {
		if s == symbol {
			w.symbols = append(w.symbols[:i], w.symbols[i+1:]...)
			break
		}
	}
	return true
}

func (w *Watchlist) Contains(symbol string) bool {
	_, ok := w.set[normalize(symbol)]
	return ok
}

// Symbols returns a copy in insertion order.
func (w *Watchlist) Symbols() []string {
	out := make([]string, len(w.symbols))
	copy(out, w.symbols)
	return out
}

// Replace swaps the whole content, e.g. after loading it from storage.
func (w *Watchlist) Replace(symbols []string) {
	w.symbols = nil
	w.set = make(map[string]struct{})
	for _, s := range symbols {
		w.Add(s)
	}
}

func (w *Watchlist) Len() int { return len(w.symbols) }

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
