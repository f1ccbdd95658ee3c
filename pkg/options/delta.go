package options

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"slices"

	"github.com/hitls-tools/buildplan/pkg/errors"
)

// CategoryDelta holds the requested additions and removals for one flag
// category.
type CategoryDelta struct {
	Add []string `json:"CC_FLAGS_ADD,omitempty"`
	Del []string `json:"CC_FLAGS_DEL,omitempty"`
}

// Delta is a user's edit to the base compile file: per-category flag
// additions and removals plus link-flag additions and removals. Deltas are
// persisted between runs and applied to the base with [Union].
type Delta struct {
	Compile map[string]*CategoryDelta
	LinkAdd []string
	LinkDel []string
}

// NewDelta returns an empty delta.
func NewDelta() *Delta {
	return &Delta{Compile: make(map[string]*CategoryDelta)}
}

type rawDelta struct {
	CompileFlag map[string]*CategoryDelta `json:"compileFlag"`
	LinkFlag    map[string][]string       `json:"linkFlag"`
}

// ReadDelta decodes a persisted delta from r. Additions in any category
// other than the user-defined one must name flags the option catalog lists
// for that category.
func ReadDelta(r io.Reader, set *OptionSet) (*Delta, error) {
	var raw rawDelta
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode compile delta")
	}
	if raw.CompileFlag == nil && raw.LinkFlag == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"compile delta must contain 'compileFlag' or 'linkFlag' sections")
	}

	d := NewDelta()
	for category, cd := range raw.CompileFlag {
		if !slices.Contains(CategoryOrder, category) {
			return nil, errors.New(errors.ErrCodeUnrecognizedOption,
				"no %q option type in the option catalog", category)
		}
		if cd == nil {
			continue
		}
		if category != CategoryUserDefine {
			for _, flag := range cd.Add {
				if !set.Knows(category, flag) {
					return nil, errors.New(errors.ErrCodeUnrecognizedOption,
						"unrecognized option %q", flag)
				}
			}
		}
		d.Compile[category] = &CategoryDelta{Add: cd.Add, Del: cd.Del}
	}
	d.LinkAdd = raw.LinkFlag["LINK_FLAG_ADD"]
	d.LinkDel = raw.LinkFlag["LINK_FLAG_DEL"]
	return d, nil
}

// LoadDelta reads a persisted delta file. A missing file yields an empty
// delta.
func LoadDelta(path string, set *OptionSet) (*Delta, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDelta(), nil
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "open %s", path)
	}
	defer f.Close()
	return ReadDelta(f, set)
}

func (d *Delta) category(name string) *CategoryDelta {
	cd, ok := d.Compile[name]
	if !ok {
		cd = &CategoryDelta{}
		d.Compile[name] = cd
	}
	return cd
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		if !slices.Contains(list, item) {
			list = append(list, item)
		}
	}
	return list
}

// AddFlags records loose compiler flags as additions, routing each to its
// catalog category. Flags the catalog does not know land in the
// user-defined category.
func (d *Delta) AddFlags(set *OptionSet, flags ...string) {
	for _, flag := range flags {
		cd := d.category(set.CategoryOf(flag))
		cd.Add = appendUnique(cd.Add, flag)
	}
}

// RemoveFlags records loose compiler flags as removals, routed like
// [Delta.AddFlags].
func (d *Delta) RemoveFlags(set *OptionSet, flags ...string) {
	for _, flag := range flags {
		cd := d.category(set.CategoryOf(flag))
		cd.Del = appendUnique(cd.Del, flag)
	}
}

// AddLinkFlags records link-flag additions.
func (d *Delta) AddLinkFlags(flags ...string) {
	d.LinkAdd = appendUnique(d.LinkAdd, flags...)
}

// RemoveLinkFlags records link-flag removals.
func (d *Delta) RemoveLinkFlags(flags ...string) {
	d.LinkDel = appendUnique(d.LinkDel, flags...)
}

// DebugPreset switches the delta to a debug build: -g3 and -gdwarf-2 are
// added and the release optimization and hardening flags removed. Any prior
// edits to the two affected categories are replaced.
func (d *Delta) DebugPreset() {
	d.Compile[CategoryDebug] = &CategoryDelta{Add: []string{"-g3", "-gdwarf-2"}}
	d.Compile[CategoryOptLevel] = &CategoryDelta{Del: []string{"-O2", "-D_FORTIFY_SOURCE=2"}}
}

// FilterDefines strips the delta down to macro content: all link edits are
// dropped and every category except the macro-definition and user-defined
// ones is removed. Consumers that only regenerate macros use this before
// persisting.
func (d *Delta) FilterDefines() {
	d.LinkAdd = nil
	d.LinkDel = nil
	for category := range d.Compile {
		if category != CategoryDefine && category != CategoryUserDefine {
			delete(d.Compile, category)
		}
	}
}

// MarshalJSON encodes the delta in the persisted file format, categories in
// the fixed merge order.
func (d *Delta) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"compileFlag":{`)
	emitted := 0
	for _, category := range CategoryOrder {
		cd, ok := d.Compile[category]
		if !ok || (len(cd.Add) == 0 && len(cd.Del) == 0) {
			continue
		}
		if emitted > 0 {
			buf.WriteByte(',')
		}
		emitted++
		k, err := json.Marshal(category)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(cd)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteString(`},"linkFlag":{`)
	link := make([]string, 0, 2)
	if len(d.LinkAdd) > 0 {
		v, err := json.Marshal(d.LinkAdd)
		if err != nil {
			return nil, err
		}
		link = append(link, `"LINK_FLAG_ADD":`+string(v))
	}
	if len(d.LinkDel) > 0 {
		v, err := json.Marshal(d.LinkDel)
		if err != nil {
			return nil, err
		}
		link = append(link, `"LINK_FLAG_DEL":`+string(v))
	}
	for i, entry := range link {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(entry)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// WriteJSON writes the delta to w, indented.
func (d *Delta) WriteJSON(w io.Writer) error {
	data, err := json.Marshal(d)
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
