package protocol

import (
	"encoding/json"
	"testing"
)

func TestDecodeCommand(t *testing.T) {
	c, err := DecodeCommand([]byte(`{"cmd":"join","name":"ana"}`))
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if j, ok := c.(*JoinCmd); !ok || j.Name != "ana" {
		t.Fatalf("got %#v", c)
	}

	c, err = DecodeCommand([]byte(`{"cmd":"join"}`))
	if err != nil {
		t.Fatalf("bare join: %v", err)
	}
	if _, ok := c.(*JoinCmd); !ok {
		t.Fatalf("got %#v", c)
	}

	c, err = DecodeCommand([]byte(`{"cmd":"key","key":"A"}`))
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if k, ok := c.(*KeyCmd); !ok || k.Key != "A" {
		t.Fatalf("got %#v", c)
	}
}

func TestDecodeCommandRejects(t *testing.T) {
	cases := []string{
		`not json`,
		`{"cmd":"dance"}`,
		`{"cmd":"key"}`,
		`{"cmd":"key","key":5}`,
		`{"cmd":"key","key":"abcdefghij"}`,
		`{"cmd":"join","name":"ana","extra":true}`,
	}
	for _, raw := range cases {
		if _, err := DecodeCommand([]byte(raw)); err == nil {
			t.Fatalf("expected rejection: %s", raw)
		}
	}
}

func TestStateSchema(t *testing.T) {
	msg := StateMsg{
		Type:            TypeState,
		ProtocolVersion: Version,
		MatchID:         "m1",
		Tick:            3,
		State: json.RawMessage(`{"level":1,"step":3,"timeout":3000,"player":"ana","score":0,"lives":3,
			"digdug":[24,0],"enemies":[{"name":"Pooka","id":"E000001","pos":[3,5]}],"rocks":[],
			"rope":{"dir":1,"pos":[[25,0]]}}`),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := Validate("state", b); err != nil {
		t.Fatalf("validate: %v", err)
	}

	bad := []byte(`{"type":"STATE","protocol_version":"1.0","match_id":"m1","tick":1,
		"state":{"level":1,"step":1,"timeout":1,"player":"","score":0,"lives":3,"digdug":[0,0],
		"enemies":[],"rocks":[],"rope":{"dir":1,"pos":[[1,0],[2,0],[3,0],[4,0]]}}}`)
	if err := Validate("state", bad); err == nil {
		t.Fatalf("expected overlong rope to be rejected")
	}
}

func TestUnknownSchema(t *testing.T) {
	if _, err := Schema("nope"); err == nil {
		t.Fatalf("expected error")
	}
}
