package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mfeldt/regbank/internal/binding"
	"github.com/mfeldt/regbank/internal/points"
	"github.com/mfeldt/regbank/internal/testutil/testlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "regbank.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
[server]
listen_addr = ":15020"
admin_addr = ":15080"
node_id = "plant-7"
unit_id = 3

[banks]
holding_size = 512
input_size = 128

[[binding]]
bank = "holding"
address = 100
name = "boiler.temp"
type = "float32"

[[binding]]
bank = "input"
address = 0
name = "plant.clock"
type = "timestamp"
word_order = "lowfirst"
`

func TestLoadValidConfig(t *testing.T) {
	testlog.Start(t)
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.ListenAddr != ":15020" || cfg.Server.NodeID != "plant-7" || cfg.Server.UnitID != 3 {
		t.Fatalf("server config: %+v", cfg.Server)
	}
	if cfg.Banks.HoldingSize != 512 || cfg.Banks.InputSize != 128 {
		t.Fatalf("banks config: %+v", cfg.Banks)
	}
	if len(cfg.Bindings) != 2 {
		t.Fatalf("bindings: %+v", cfg.Bindings)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	testlog.Start(t)
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := Default()
	if cfg.Server.ListenAddr != def.Server.ListenAddr || cfg.Server.NodeID != def.Server.NodeID {
		t.Fatalf("defaults not applied: %+v", cfg.Server)
	}
	if cfg.Banks.HoldingSize != def.Banks.HoldingSize {
		t.Fatalf("bank defaults not applied: %+v", cfg.Banks)
	}
}

func TestLoadMissingFile(t *testing.T) {
	testlog.Start(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateRejections(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "unknown bank",
			body: "[[binding]]\nbank = \"coils\"\naddress = 0\nname = \"x\"\ntype = \"uint16\"\n",
			want: "unknown bank",
		},
		{
			name: "unknown type",
			body: "[[binding]]\nbank = \"holding\"\naddress = 0\nname = \"x\"\ntype = \"float16\"\n",
			want: "unknown value kind",
		},
		{
			name: "width exceeds bank",
			body: "[banks]\nholding_size = 4\ninput_size = 4\n\n[[binding]]\nbank = \"holding\"\naddress = 3\nname = \"x\"\ntype = \"float32\"\n",
			want: "exceeds",
		},
		{
			name: "missing name",
			body: "[[binding]]\nbank = \"holding\"\naddress = 0\nname = \"\"\ntype = \"uint16\"\n",
			want: "missing name",
		},
		{
			name: "duplicate name",
			body: "[[binding]]\nbank = \"holding\"\naddress = 0\nname = \"x\"\ntype = \"uint16\"\n\n[[binding]]\nbank = \"holding\"\naddress = 1\nname = \"x\"\ntype = \"uint16\"\n",
			want: "duplicate name",
		},
		{
			name: "duplicate address",
			body: "[[binding]]\nbank = \"holding\"\naddress = 0\nname = \"x\"\ntype = \"uint16\"\n\n[[binding]]\nbank = \"holding\"\naddress = 0\nname = \"y\"\ntype = \"uint16\"\n",
			want: "duplicate address",
		},
		{
			name: "unit id out of range",
			body: "[server]\nunit_id = 300\n",
			want: "unit_id",
		},
	}

	for _, tc := range cases {
		_, err := Load(writeConfig(t, tc.body))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestBuildBindingsRegistersDerivedWidths(t *testing.T) {
	testlog.Start(t)
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	regs := Registries{Holding: binding.NewRegistry(), Input: binding.NewRegistry()}
	pts := points.NewStore()
	if err := cfg.BuildBindings(regs, pts); err != nil {
		t.Fatalf("build bindings: %v", err)
	}

	b, ok := regs.Holding.Lookup(100)
	if !ok || b.Width != 2 {
		t.Fatalf("holding binding: ok=%v width=%d", ok, b.Width)
	}
	b, ok = regs.Input.Lookup(0)
	if !ok || b.Width != 2 {
		t.Fatalf("input binding: ok=%v width=%d", ok, b.Width)
	}

	// low-first timestamp: dispatch through the registry and check decoding
	binding.Dispatch(regs.Input, 0, []uint16{0x0001, 0x0000})
	v, ok := pts.Get("plant.clock")
	if !ok {
		t.Fatalf("point not published")
	}
	if v.Num != 1 {
		t.Fatalf("low-first timestamp decoded to %v, want 1", v.Num)
	}
}
