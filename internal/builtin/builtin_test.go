package builtin

import "testing"

func TestTableComplete(t *testing.T) {
	seen := make(map[string]bool)
	for _, inst := range All() {
		info := inst.Info()
		if info.Name == "" {
			t.Errorf("instruction %d has no table entry", int(inst))
			continue
		}
		if seen[info.Name] {
			t.Errorf("duplicate name %q", info.Name)
		}
		seen[info.Name] = true

		got, ok := Lookup(info.Name)
		if !ok || got != inst {
			t.Errorf("Lookup(%q) = %v, %v; want %v", info.Name, got, ok, inst)
		}
		for _, pos := range info.LiteralArgs {
			if pos >= info.Args {
				t.Errorf("%s: literal arg %d out of range", info.Name, pos)
			}
		}
		if info.Terminates && info.Returns != 0 {
			t.Errorf("%s: terminating built-ins return nothing", info.Name)
		}
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name    string
		args    int
		returns int
	}{
		{"add", 2, 1},
		{"mstore", 2, 0},
		{"call", 7, 1},
		{"delegatecall", 6, 1},
		{"log4", 6, 0},
		{"datacopy", 3, 0},
		{"stop", 0, 0},
		{"memoryguard", 1, 1},
	}
	for _, tt := range tests {
		inst, ok := Lookup(tt.name)
		if !ok {
			t.Errorf("%s: not found", tt.name)
			continue
		}
		if inst.Info().Args != tt.args || inst.Info().Returns != tt.returns {
			t.Errorf("%s: expected %d/%d, got %d/%d", tt.name, tt.args, tt.returns, inst.Info().Args, inst.Info().Returns)
		}
	}
	if _, ok := Lookup("sha3"); ok {
		t.Errorf("sha3 is not a Yul built-in")
	}
	if IsBuiltin("my_function") {
		t.Errorf("user names are not built-ins")
	}
}

func TestLiteralArgs(t *testing.T) {
	if !DataSize.IsLiteralArg(0) {
		t.Errorf("datasize takes a literal name")
	}
	if !SetImmutable.IsLiteralArg(1) || SetImmutable.IsLiteralArg(0) {
		t.Errorf("setimmutable takes a literal name in position 1 only")
	}
	if Add.IsLiteralArg(0) {
		t.Errorf("add takes no literals")
	}
	if Invalid.String() != "<invalid>" {
		t.Errorf("unexpected name for Invalid: %q", Invalid.String())
	}
}
