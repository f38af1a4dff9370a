package internal

import "testing"

// TestFlattenNestedAndArray tests that a nested map with an array is flattened correctly.
func TestFlattenNestedAndArray(t *testing.T) {
	input := map[string]interface{}{
		"event": map[string]interface{}{
			"escalated": false,
			"alerts": []interface{}{
				map[string]interface{}{"acked": true},
				map[string]interface{}{"acked": false},
			},
		},
	}

	flat := Flatten(input)
	if flat["event.escalated"] != false {
		t.Fatalf("expected event.escalated to be false")
	}
	if _, ok := flat["event.alerts[]"]; !ok {
		t.Fatalf("expected event.alerts[] to exist")
	}
	if flat["event.alerts[0].acked"] != true {
		t.Fatalf("expected alerts[0].acked to be true")
	}
	if flat["event.alerts[1].acked"] != false {
		t.Fatalf("expected alerts[1].acked to be false")
	}
}
