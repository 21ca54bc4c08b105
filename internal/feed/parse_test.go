package feed

import (
	"testing"

	"github.com/shopspring/decimal"
)

const ratesDocument = `<?xml version="1.0" encoding="UTF-8"?>
<rates>
  <item>
    <from>USDTTRC20</from>
    <to>CASHAMD</to>
    <in>1</in>
    <out>402.50</out>
    <fromname>Tether USDT</fromname>
    <toname>Armenian Dram</toname>
    <minamount>10</minamount>
    <maxamount>10000</maxamount>
  </item>
  <item>
    <from>USDTTRC20</from>
    <to>SBERRUB</to>
    <in>1</in>
    <out>96.50</out>
    <method>sberbank</method>
  </item>
</rates>`

const exchangersDocument = `<?xml version="1.0"?>
<exchangers>
  <exchanger give="CASHAMD" get="USDTTRC20" give_amount="405" get_amount="1" city="ERVN"/>
  <exchanger give="USDTTRC20" get="TCSBRUB" give_amount="1" get_amount="96,00"/>
</exchangers>`

func TestParseItemContainerFormat(t *testing.T) {
	directions, err := ParseDocument(ratesDocument)
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if len(directions) != 2 {
		t.Fatalf("parsed %d directions, want 2", len(directions))
	}

	first := directions[0]
	if first.FromCode != "USDTTRC20" || first.ToCode != "CASHAMD" {
		t.Fatalf("unexpected codes: %s -> %s", first.FromCode, first.ToCode)
	}
	if !first.Rate().Equal(decimal.RequireFromString("402.5")) {
		t.Fatalf("rate = %s, want 402.5", first.Rate())
	}
	if first.MinAmount == nil || !first.MinAmount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("min amount not parsed: %v", first.MinAmount)
	}

	second := directions[1]
	if second.Method != "sberbank" {
		t.Fatalf("method = %q, want sberbank", second.Method)
	}
	if second.NormalizedTo() != "RUB" {
		t.Fatalf("NormalizedTo = %q, want RUB", second.NormalizedTo())
	}
}

func TestParseAttributeFormat(t *testing.T) {
	directions, err := ParseDocument(exchangersDocument)
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if len(directions) != 2 {
		t.Fatalf("parsed %d directions, want 2", len(directions))
	}

	first := directions[0]
	if first.FromCode != "CASHAMD" || first.ToCode != "USDTTRC20" {
		t.Fatalf("unexpected codes: %s -> %s", first.FromCode, first.ToCode)
	}
	if first.Location != "ERVN" {
		t.Fatalf("location = %q, want ERVN", first.Location)
	}

	// Decimal comma and method detection from the to-code.
	second := directions[1]
	if !second.OutAmount.Equal(decimal.RequireFromString("96.00")) {
		t.Fatalf("out amount = %s, want 96.00", second.OutAmount)
	}
	if second.Method != "tinkoff" {
		t.Fatalf("method = %q, want tinkoff (derived from TCSBRUB)", second.Method)
	}
}

func TestParseMalformedDocument(t *testing.T) {
	if _, err := ParseDocument("not xml at all <"); err == nil {
		t.Fatal("malformed document should error")
	}
}

func TestParseSkipsIncompleteItems(t *testing.T) {
	doc := `<rates><item><from>USDT</from></item><item><from>A</from><to>B</to></item></rates>`
	directions, err := ParseDocument(doc)
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if len(directions) != 1 {
		t.Fatalf("parsed %d directions, want 1", len(directions))
	}
	// Amounts default to 1 when absent.
	if !directions[0].Rate().Equal(decimal.NewFromInt(1)) {
		t.Fatalf("default rate = %s, want 1", directions[0].Rate())
	}
}
