package main

import (
	"strings"
	"testing"

	"droidshell"
)

func TestFormatFrame(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{"init", `{"type":"monitor_init","data":{"client_id":"abc","state":"running"}}`, "[INIT] client=abc state=running"},
		{"lifecycle", `{"type":"lifecycle","data":{"from":"running","to":"paused"}}`, "[LIFECYCLE] running -> paused"},
		{"event", `{"type":"event","data":{"type":"dpad","args":[0,22,0,0,0]}}`, "[EVENT] dpad(0, 22, 0, 0, 0)"},
		{"unknown type", `{"type":"other","data":{"x":1}}`, `[OTHER] {"x":1}`},
		{"not json", `hello`, "[TEXT] hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := formatFrame([]byte(tt.msg), nil)
			if !ok || got != tt.want {
				t.Errorf("got %q (%v), want %q", got, ok, tt.want)
			}
		})
	}
}

func TestFormatFrame_Filter(t *testing.T) {
	filter, err := parseKinds("key, dpad")
	if err != nil {
		t.Fatal(err)
	}
	if !filter[droidshell.KindDPad] || !filter[droidshell.KindKey] || len(filter) != 2 {
		t.Fatalf("unexpected filter %v", filter)
	}

	if _, ok := formatFrame([]byte(`{"type":"event","data":{"type":"tap","args":[1,2,0,0,0]}}`), filter); ok {
		t.Errorf("tap must be filtered out")
	}
	if got, ok := formatFrame([]byte(`{"type":"lifecycle","data":{"from":"new","to":"created"}}`), filter); !ok || !strings.Contains(got, "LIFECYCLE") {
		t.Errorf("lifecycle frames are never filtered, got %q", got)
	}

	if _, err := parseKinds("dpad,swipe"); err == nil {
		t.Errorf("unknown kind must fail")
	}
	if f, err := parseKinds(" "); err != nil || f != nil {
		t.Errorf("blank filter must be nil, got %v %v", f, err)
	}
}
