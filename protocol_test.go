package main

import (
	"encoding/json"
	"testing"
)

func TestKeysJSONNames(t *testing.T) {
	var keys Keys
	raw := `{"throttleUp":true,"throttleDown":true,"left":true,"right":true,"shoot":true,"bomb":true}`
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		t.Fatal(err)
	}
	want := Keys{ThrottleUp: true, ThrottleDown: true, Left: true, Right: true, Shoot: true, Bomb: true}
	if keys != want {
		t.Errorf("got %+v, want %+v", keys, want)
	}
}

func TestDecodeBinaryKeys(t *testing.T) {
	tests := []struct {
		name string
		msg  []byte
		want Keys
		ok   bool
	}{
		{"none", []byte{binaryInputTag, 0}, Keys{}, true},
		{"throttle", []byte{binaryInputTag, flagThrottleUp | flagThrottleDn}, Keys{ThrottleUp: true, ThrottleDown: true}, true},
		{"turn and fire", []byte{binaryInputTag, flagLeft | flagShoot | flagBomb}, Keys{Left: true, Shoot: true, Bomb: true}, true},
		{"wrong tag", []byte{0x02, flagShoot}, Keys{}, false},
		{"too long", []byte{binaryInputTag, flagShoot, 0}, Keys{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := decodeBinaryKeys(tt.msg)
			if ok != tt.ok || got != tt.want {
				t.Errorf("got %+v/%v, want %+v/%v", got, ok, tt.want, tt.ok)
			}
		})
	}
}
