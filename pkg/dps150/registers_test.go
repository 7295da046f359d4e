// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dps150

import "testing"

func TestRegisters_OrderedAndUnique(t *testing.T) {
	regs := Registers()
	for i := 1; i < len(regs); i++ {
		if regs[i].ID <= regs[i-1].ID {
			t.Errorf("register %s (%d) out of order after %s (%d)",
				regs[i].Name, regs[i].ID, regs[i-1].Name, regs[i-1].ID)
		}
	}
}

func TestLookupRegister(t *testing.T) {
	r, ok := LookupRegister(RegOutputBundle)
	if !ok || r.Name != "OUTPUT" || r.Rule != RuleOutputBundle {
		t.Errorf("LookupRegister(195) = %+v, %v", r, ok)
	}
	if _, ok := LookupRegister(225); ok {
		t.Error("LookupRegister(225) found a register")
	}
}

func TestFindRegister(t *testing.T) {
	tests := []struct {
		query string
		want  byte
		ok    bool
	}{
		{"222", RegModelName, true},
		{"0xDE", RegModelName, true},
		{"model_name", RegModelName, true},
		{"modelName", RegModelName, true},
		{"  temperature ", RegTemperature, true},
		{"ALL", RegAll, true},
		{"nope", 0, false},
		{"300", 0, false},
		{"10", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r, ok := FindRegister(tt.query)
			if ok != tt.ok {
				t.Fatalf("FindRegister(%q) ok = %v, want %v", tt.query, ok, tt.ok)
			}
			if ok && r.ID != tt.want {
				t.Errorf("FindRegister(%q) = %d, want %d", tt.query, r.ID, tt.want)
			}
		})
	}
}

func TestRegisters_WritableMatchesSetpoints(t *testing.T) {
	for _, sp := range Setpoints() {
		r, ok := LookupRegister(sp.TypeID)
		if !ok {
			t.Errorf("setpoint %s targets unknown register %d", sp.Name, sp.TypeID)
			continue
		}
		if !r.Writable {
			t.Errorf("setpoint %s targets read-only register %s", sp.Name, r.Name)
		}
		if r.Byte != sp.Byte {
			t.Errorf("setpoint %s byte = %v, register %s byte = %v", sp.Name, sp.Byte, r.Name, r.Byte)
		}
	}
}
