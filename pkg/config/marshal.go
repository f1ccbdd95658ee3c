package config

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"

	"github.com/hitls-tools/buildplan/pkg/catalog"
)

// MarshalJSON encodes the configuration with deterministic key order: the
// scalar keys first (system and bits only when set), then the libraries in
// canonical persistence order. The surrounding build-file generator consumes
// this output, and library order is significant to it.
func (c *Config) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	field := func(key string, value any) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	if c.System != "" {
		if err := field("system", c.System); err != nil {
			return nil, err
		}
	}
	if c.Bits != 0 {
		if err := field("bits", c.Bits); err != nil {
			return nil, err
		}
	}
	if err := field("endian", c.Endian); err != nil {
		return nil, err
	}
	if err := field("libType", c.LibType); err != nil {
		return nil, err
	}
	if err := field("asmType", c.AsmType); err != nil {
		return nil, err
	}

	if !first {
		buf.WriteByte(',')
	}
	buf.WriteString(`"libs":{`)
	for i, lib := range c.LibOrder() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(lib)
		if err != nil {
			return nil, err
		}
		v, err := marshalSelection(c.Libs[lib])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

func marshalSelection(sel *LibSelection) ([]byte, error) {
	out := make(map[string][]string, 2)
	if sel.C != nil {
		out["c"] = sel.C
	}
	if sel.Asm != nil {
		asm := make([]string, len(sel.Asm))
		for i, entry := range sel.Asm {
			asm[i] = entry.String()
		}
		out["asm"] = asm
	}
	return json.Marshal(out)
}

// WriteJSON writes the configuration to w, indented.
func (c *Config) WriteJSON(w io.Writer) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "    "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}

// moduleOut mirrors the persisted module entry format of the build-file
// generator interface.
type moduleOut struct {
	Deps    []string `json:"deps"`
	AsmType string   `json:"asmType"`
	IncSet  string   `json:"incSet,omitempty"`
}

// WriteModulesJSON persists the enabled-module map, libraries in canonical
// order and module keys sorted within each library.
func WriteModulesJSON(w io.Writer, cfg *Config, byLib map[string]map[catalog.ModuleKey]*ModuleBuild) error {
	var buf bytes.Buffer
	buf.WriteByte('{')
	emitted := 0
	for _, lib := range cfg.LibOrder() {
		mods, ok := byLib[lib]
		if !ok {
			continue
		}
		if emitted > 0 {
			buf.WriteByte(',')
		}
		emitted++
		k, err := json.Marshal(lib)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteString(":{")

		keys := make([]catalog.ModuleKey, 0, len(mods))
		for key := range mods {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(a, b int) bool { return keys[a].String() < keys[b].String() })
		for j, key := range keys {
			if j > 0 {
				buf.WriteByte(',')
			}
			mb := mods[key]
			deps := make([]string, len(mb.Deps))
			for n, dep := range mb.Deps {
				deps[n] = dep.String()
			}
			mk, err := json.Marshal(key.String())
			if err != nil {
				return err
			}
			mv, err := json.Marshal(moduleOut{Deps: deps, AsmType: mb.Kind, IncSet: mb.InstructionSet})
			if err != nil {
				return err
			}
			buf.Write(mk)
			buf.WriteByte(':')
			buf.Write(mv)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "    "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err := w.Write(out.Bytes())
	return err
}
