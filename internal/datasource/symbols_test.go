package datasource

import (
	"testing"
)

func TestToProvider(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"SPX", "^GSPC"},
		{"spx", "^GSPC"},
		{"DAX", "^GDAXI"},
		{"GOLD", "GC=F"},
		{"USDJPY", "JPY=X"},
		{"BTC", "BTC-USD"},
		{"aapl", "AAPL"},
	}
	for _, tt := range tests {
		if got := ToProvider(tt.in); got != tt.want {
			t.Errorf("ToProvider(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFromProviderRoundTrip(t *testing.T) {
	for display, provider := range SymbolMap {
		if got := FromProvider(provider); got != display {
			t.Errorf("FromProvider(%q): got %q, want %q", provider, got, display)
		}
	}
	if got := FromProvider("msft"); got != "MSFT" {
		t.Errorf("FromProvider(msft): got %q, want MSFT", got)
	}
}

func TestNormalizeSymbols(t *testing.T) {
	got := NormalizeSymbols([]string{" aapl", "MSFT", "", "AAPL", "msft ", "spx"})
	want := []string{"AAPL", "MSFT", "SPX"}
	if len(got) != len(want) {
		t.Fatalf("NormalizeSymbols: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("NormalizeSymbols[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("n225"); got != "Nikkei 225" {
		t.Errorf("DisplayName(n225): got %q", got)
	}
	if got := DisplayName("XYZQ"); got != "XYZQ" {
		t.Errorf("DisplayName(XYZQ): got %q, want symbol", got)
	}
}

func TestSearch(t *testing.T) {
	got := Search("app", 0)
	if len(got) == 0 || got[0].Symbol != "AAPL" {
		t.Fatalf("Search(app): got %v, want AAPL first", got)
	}

	got = Search("V", 3)
	if len(got) != 3 {
		t.Fatalf("Search(V, 3): got %d results, want 3", len(got))
	}
	if got[0].Symbol != "V" {
		t.Errorf("Search(V): exact match should rank first, got %q", got[0].Symbol)
	}

	if got := Search("bitcoin", 0); len(got) < 1 || got[0].Symbol != "BTC" {
		t.Errorf("Search(bitcoin): got %v", got)
	}
	if got := Search("   ", 0); got != nil {
		t.Errorf("Search(blank): got %v, want nil", got)
	}
}
