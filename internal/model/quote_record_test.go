package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestQuoteRecordJSONRoundTrip(t *testing.T) {
	original := QuoteRecord{
		ChainID:     1,
		PoolAddress: "0x5c6ee304399dbdb9c8ef030ab642b10820db8f56",
		PoolKind:    KindWeighted,
		BlockNumber: 19000000,
		Operation:   "exit_exact_bpt_in_proportional",
		Amount:      "1.5",
		Amounts:     []string{"0.75", "12.000001"},
		CreatedAt:   "2024-01-01T00:00:00Z",
	}

	b, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded QuoteRecord
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round-trip mismatch: %+v != %+v", original, decoded)
	}
}

func TestPoolSnapshotAmountsAreStrings(t *testing.T) {
	mainIndex := 1
	snap := PoolSnapshot{
		Address:     "0x1111111111111111111111111111111111111111",
		Kind:        KindLinear,
		SwapFee:     "0.0002",
		TotalShares: "1000",
		MainIndex:   &mainIndex,
		LowerTarget: "0",
		Tokens: []TokenSnapshot{
			{Address: "0x2222222222222222222222222222222222222222", Decimals: 6, Balance: "12.5", PriceRate: "1.02"},
		},
	}

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if _, ok := decoded["total_shares"].(string); !ok {
		t.Fatalf("total_shares should be string")
	}
	if _, ok := decoded["amp"]; ok {
		t.Fatalf("empty amp should be omitted")
	}
	if _, ok := decoded["main_index"].(float64); !ok {
		t.Fatalf("main_index should be present")
	}
	tokens, ok := decoded["tokens"].([]interface{})
	if !ok || len(tokens) != 1 {
		t.Fatalf("tokens should hold one entry")
	}
	token := tokens[0].(map[string]interface{})
	if _, ok := token["balance"].(string); !ok {
		t.Fatalf("balance should be string")
	}
	if _, ok := token["weight"]; ok {
		t.Fatalf("empty weight should be omitted")
	}
}
