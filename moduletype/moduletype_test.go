package moduletype

import "testing"

func TestLookupKnownType(t *testing.T) {
	c, ok := Lookup(SARA_R5)
	if !ok {
		t.Fatal("expected SARA_R5 to be present")
	}
	if c.Type != SARA_R5 {
		t.Fatalf("Type = %v, want %v", c.Type, SARA_R5)
	}
	if !c.Features.ChipToChip {
		t.Fatal("SARA_R5 should report chip-to-chip support")
	}
}

func TestLookupUnknownType(t *testing.T) {
	if _, ok := Lookup(Type("NOT-A-MODULE")); ok {
		t.Fatal("expected lookup of unknown type to fail")
	}
}

func TestSARAR422DisablesPowerSaving(t *testing.T) {
	c, ok := Lookup(SARA_R422)
	if !ok {
		t.Fatal("expected SARA_R422 to be present")
	}
	if c.Features.ThreeGPPPowerSaving {
		t.Fatal("SARA_R422 power saving should be disabled pending the sleep re-entry fix")
	}
}

func TestRATHas(t *testing.T) {
	r := RAT_CATM1 | RAT_NBIOT
	if !r.Has(RAT_CATM1) || !r.Has(RAT_NBIOT) {
		t.Fatal("expected both bits set")
	}
	if r.Has(RAT_GSM) {
		t.Fatal("did not expect GSM bit set")
	}
}

func TestAllModulesPresent(t *testing.T) {
	want := []Type{
		SARA_U201, SARA_R410M_02B, SARA_R412M_02B, SARA_R412M_03B,
		SARA_R5, SARA_R410M_03B, SARA_R422, LARA_R6,
	}
	for _, typ := range want {
		if _, ok := Lookup(typ); !ok {
			t.Fatalf("missing capability row for %v", typ)
		}
	}
	if len(Table) != len(want) {
		t.Fatalf("Table has %d entries, want %d", len(Table), len(want))
	}
}
