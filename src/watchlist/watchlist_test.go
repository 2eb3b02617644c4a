package watchlist

import (
	"reflect"
	"testing"
)

func TestAddIsIdempotent(t *testing.T) {
	w := New(DefaultSymbols...)
	if w.Add("btc") {
		t.Error("adding an existing symbol should report false")
	}
	if !w.Add("SOL") {
		t.Error("adding a new symbol should report true")
	}
	want := []string{"BTC", "ETH", "RELIANCE", "SOL"}
	if !reflect.DeepEqual(w.Symbols(), want) {
		t.Errorf("expected %v, got %v", want, w.Symbols())
	}
}

func TestRemove(t *testing.T) {
	w := New("BTC", "ETH")
	if !w.Remove("eth") || w.Contains("ETH") {
		t.Error("expected ETH removed")
	}
	if w.Remove("ETH") {
		t.Error("second remove should report false")
	}
	if w.Len() != 1 {
		t.Errorf("expected 1 symbol, got %d", w.Len())
	}
}

func TestReplaceAndEmptySymbols(t *testing.T) {
	w := New("BTC")
	w.Replace([]string{"tcs", "", "TCS", "infy"})
	if !reflect.DeepEqual(w.Symbols(), []string{"TCS", "INFY"}) {
		t.Errorf("unexpected symbols %v", w.Symbols())
	}
}
