// Package kbd resolves the console keymap for the target system. The best
// source is the keymap the user explicitly chose; failing that, the
// systemd kbd-model-map table maps the X11 layout/variant pair to a
// console keymap on a best-effort basis.
package kbd

import (
	"context"
	"strings"

	"github.com/nixstall/nixstall/pkg/hostexec"
	"github.com/nixstall/nixstall/pkg/types"
)

// DefaultModelMapPath is where NixOS exposes systemd's layout table.
const DefaultModelMapPath = "/run/current-system/sw/share/systemd/kbd-model-map"

// entry is one row of the table. Columns are console keymap, X11 layout,
// X11 model, X11 variant, X11 options; placeholders are "-".
type entry struct {
	console string
	layout  string
	variant string
}

// ModelMap is the parsed layout-to-console-keymap table.
type ModelMap struct {
	entries []entry
}

// LoadModelMap reads and parses the table at path.
func LoadModelMap(fs types.FS, path string) (*ModelMap, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseModelMap(string(data)), nil
}

func parseModelMap(text string) *ModelMap {
	m := &ModelMap{}
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		m.entries = append(m.entries, entry{
			console: fields[0],
			layout:  fields[1],
			variant: fields[3],
		})
	}
	return m
}

// Lookup finds the console keymap for an X11 layout/variant pair: among
// rows matching the layout, a row whose variant column contains the wanted
// variant is preferred, with the first layout match as fallback. An empty
// variant matches the "-" placeholder. No match yields "".
func (m *ModelMap) Lookup(layout, variant string) string {
	var matches []entry
	for _, e := range m.entries {
		if e.layout == layout {
			matches = append(matches, e)
		}
	}
	if len(matches) == 0 {
		return ""
	}
	if variant == "" {
		variant = "-"
	}
	for _, e := range matches {
		if strings.Contains(e.variant, variant) {
			return e.console
		}
	}
	return matches[0].console
}

// Resolve applies the suppression policy on top of Lookup: a keymap of ""
// or the literal default "us" is already what the console would use, so it
// is not worth overriding.
func (m *ModelMap) Resolve(layout, variant string) (string, bool) {
	keymap := m.Lookup(layout, variant)
	if keymap == "" || keymap == "us" {
		return "", false
	}
	return keymap, true
}

// Validate checks that the console can actually load the keymap by running
// loadkeys through the privilege wrapper. The caller treats failure as
// "skip the console fragment", never as a fatal error.
func Validate(ctx context.Context, runner hostexec.Runner, loadkeysTool, keymap string) ([]byte, error) {
	return runner.Run(ctx, hostexec.Command{
		Name:       loadkeysTool,
		Args:       []string{strings.TrimSpace(keymap)},
		Privileged: true,
	})
}
