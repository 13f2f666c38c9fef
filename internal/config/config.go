package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/mfeldt/regbank/internal/binding"
	"github.com/mfeldt/regbank/internal/decode"
	"github.com/mfeldt/regbank/internal/points"
)

// Config is the regbankd configuration file.
type Config struct {
	Server   ServerConfig    `toml:"server"`
	Banks    BanksConfig     `toml:"banks"`
	Bindings []BindingConfig `toml:"binding"`
}

type ServerConfig struct {
	ListenAddr  string   `toml:"listen_addr"`
	AdminAddr   string   `toml:"admin_addr"`
	NodeID      string   `toml:"node_id"`
	UnitID      int      `toml:"unit_id"`
	CorsOrigins []string `toml:"cors_origins"`
}

type BanksConfig struct {
	HoldingSize int `toml:"holding_size"`
	InputSize   int `toml:"input_size"`
}

// BindingConfig declares one multi-word binding. Width is derived from Type.
type BindingConfig struct {
	Bank       string `toml:"bank"`
	Address    int    `toml:"address"`
	Name       string `toml:"name"`
	Type       string `toml:"type"`
	Endianness string `toml:"endianness"`
	WordOrder  string `toml:"word_order"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr: ":1502",
			NodeID:     "regbank.local",
			UnitID:     1,
		},
		Banks: BanksConfig{
			HoldingSize: 1024,
			InputSize:   1024,
		},
	}
}

// Load reads path on top of defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = Default().Server.ListenAddr
	}
	if cfg.Server.NodeID == "" {
		cfg.Server.NodeID = Default().Server.NodeID
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Server.ListenAddr) == "" {
		return fmt.Errorf("server config missing listen_addr")
	}
	if cfg.Server.UnitID < 0 || cfg.Server.UnitID > 0xff {
		return fmt.Errorf("server config unit_id %d out of range", cfg.Server.UnitID)
	}
	if cfg.Banks.HoldingSize < 1 || cfg.Banks.HoldingSize > 0x10000 {
		return fmt.Errorf("banks config holding_size %d out of range", cfg.Banks.HoldingSize)
	}
	if cfg.Banks.InputSize < 1 || cfg.Banks.InputSize > 0x10000 {
		return fmt.Errorf("banks config input_size %d out of range", cfg.Banks.InputSize)
	}

	names := make(map[string]struct{}, len(cfg.Bindings))
	addrs := make(map[string]struct{}, len(cfg.Bindings))
	for i, b := range cfg.Bindings {
		if err := validateBinding(cfg, b); err != nil {
			return fmt.Errorf("binding[%d] invalid: %w", i, err)
		}
		if _, ok := names[b.Name]; ok {
			return fmt.Errorf("binding[%d] invalid: duplicate name %q", i, b.Name)
		}
		names[b.Name] = struct{}{}
		key := fmt.Sprintf("%s:%d", b.Bank, b.Address)
		if _, ok := addrs[key]; ok {
			return fmt.Errorf("binding[%d] invalid: duplicate address %d on %s bank", i, b.Address, b.Bank)
		}
		addrs[key] = struct{}{}
	}
	return nil
}

func validateBinding(cfg Config, b BindingConfig) error {
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("missing name")
	}
	var size int
	switch b.Bank {
	case "holding":
		size = cfg.Banks.HoldingSize
	case "input":
		size = cfg.Banks.InputSize
	default:
		return fmt.Errorf("unknown bank %q", b.Bank)
	}
	kind, err := decode.ParseKind(b.Type)
	if err != nil {
		return err
	}
	if _, err := decode.ParseEndianness(b.Endianness); err != nil {
		return err
	}
	if _, err := decode.ParseWordOrder(b.WordOrder); err != nil {
		return err
	}
	if b.Address < 0 || b.Address+kind.Width() > size {
		return fmt.Errorf("address %d with %d-word %s exceeds %s bank size %d",
			b.Address, kind.Width(), b.Type, b.Bank, size)
	}
	return nil
}

// Registries groups the per-bank binding registries bindings install into.
type Registries struct {
	Holding *binding.Registry
	Input   *binding.Registry
}

// BuildBindings instantiates a decoding point consumer per configured binding
// and registers it in the matching bank's registry. The config must already
// have passed Validate.
func (c Config) BuildBindings(regs Registries, st *points.Store) error {
	for i, b := range c.Bindings {
		kind, err := decode.ParseKind(b.Type)
		if err != nil {
			return fmt.Errorf("binding[%d]: %w", i, err)
		}
		endian, err := decode.ParseEndianness(b.Endianness)
		if err != nil {
			return fmt.Errorf("binding[%d]: %w", i, err)
		}
		order, err := decode.ParseWordOrder(b.WordOrder)
		if err != nil {
			return fmt.Errorf("binding[%d]: %w", i, err)
		}

		reg := regs.Holding
		if b.Bank == "input" {
			reg = regs.Input
		}
		consumer := decode.NewPointConsumer(b.Name, kind, endian, order, st)
		if err := reg.Register(uint16(b.Address), kind.Width(), consumer); err != nil {
			return fmt.Errorf("binding[%d]: %w", i, err)
		}
	}
	return nil
}
