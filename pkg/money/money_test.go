package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRoundHalfAwayFromZero(t *testing.T) {
	cases := map[string]string{
		"1.005":  "1.01",
		"2.675":  "2.68",
		"-1.005": "-1.01",
		"19.6":   "19.60",
		"0.004":  "0.00",
	}
	for in, want := range cases {
		got := String(Round(decimal.RequireFromString(in)))
		if got != want {
			t.Fatalf("Round(%s) = %s want %s", in, got, want)
		}
	}
}

func TestPercentAndRate(t *testing.T) {
	if got := String(Percent(decimal.NewFromInt(500), decimal.NewFromInt(10))); got != "50.00" {
		t.Fatalf("unexpected percent %s", got)
	}
	if got := String(Rate(decimal.RequireFromString("140"), decimal.RequireFromString("0.14"))); got != "19.60" {
		t.Fatalf("unexpected rate %s", got)
	}
	if got := String(Rate(decimal.RequireFromString("33.33"), decimal.RequireFromString("0.05"))); got != "1.67" {
		t.Fatalf("unexpected rounded rate %s", got)
	}
}

func TestSumMaxTimes(t *testing.T) {
	total := Sum(decimal.RequireFromString("1.10"), decimal.RequireFromString("2.20"), decimal.RequireFromString("3.30"))
	if String(total) != "6.60" {
		t.Fatalf("unexpected sum %s", total)
	}
	if String(Max(decimal.NewFromInt(15), decimal.NewFromInt(20), decimal.RequireFromString("19.99"))) != "20.00" {
		t.Fatalf("unexpected max")
	}
	if String(Times(decimal.RequireFromString("689.60"), 3)) != "2068.80" {
		t.Fatalf("unexpected times")
	}
}

func TestParse(t *testing.T) {
	if _, err := Parse(""); err == nil {
		t.Fatal("expected empty amount to fail")
	}
	if _, err := Parse("abc"); err == nil {
		t.Fatal("expected invalid amount to fail")
	}
	if _, err := Parse("1.234"); err == nil {
		t.Fatal("expected three decimal places to fail")
	}
	d, err := Parse(" 12.5 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if String(d) != "12.50" {
		t.Fatalf("unexpected parsed amount %s", String(d))
	}
}

func TestMinorUnits(t *testing.T) {
	cases := map[string]int64{
		"762.60":  76260,
		"1.005":   101,
		"-500":    -50000,
		"0":       0,
		"2242.80": 224280,
	}
	for in, want := range cases {
		if got := ToMinor(decimal.RequireFromString(in)); got != want {
			t.Fatalf("ToMinor(%s) = %d want %d", in, got, want)
		}
	}
	if got := String(FromMinor(76260)); got != "762.60" {
		t.Fatalf("FromMinor = %s", got)
	}
	if got := String(FromMinor(-5)); got != "-0.05" {
		t.Fatalf("FromMinor negative = %s", got)
	}
}
