// Package storage provides a read-only typed view over the global storage
// document the host installer hands to this job. The document is YAML; keys
// the host never set are reported as absent, not as zero values, because
// several downstream decisions hinge on "was this collected at all".
package storage

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nixstall/nixstall/pkg/errors"
)

// Partition describes one partition descriptor from the host's disk layout.
type Partition struct {
	MountPoint     string `yaml:"mountPoint"`
	FS             string `yaml:"fs"`
	FSName         string `yaml:"fsName"`
	LuksMapperName string `yaml:"luksMapperName"`
	Device         string `yaml:"device"`
	UUID           string `yaml:"uuid"`
	LuksPassphrase string `yaml:"luksPassphrase"`
	Claimed        bool   `yaml:"claimed"`
}

// IsLuks reports whether the partition is a LUKS container (either version).
func (p Partition) IsLuks() bool {
	return p.FSName == "luks" || p.FSName == "luks2"
}

type bootLoader struct {
	InstallPath *string `yaml:"installPath"`
}

// document mirrors the global storage keys this job consumes. Pointer
// fields distinguish absent from empty.
type document struct {
	RootMountPoint         *string           `yaml:"rootMountPoint"`
	FirmwareType           *string           `yaml:"firmwareType"`
	BootLoader             *bootLoader       `yaml:"bootLoader"`
	Partitions             []Partition       `yaml:"partitions"`
	Hostname               *string           `yaml:"hostname"`
	LocationRegion         *string           `yaml:"locationRegion"`
	LocationZone           *string           `yaml:"locationZone"`
	LocaleConf             map[string]string `yaml:"localeConf"`
	KeyboardLayout         *string           `yaml:"keyboardLayout"`
	KeyboardVariant        *string           `yaml:"keyboardVariant"`
	KeyboardVConsoleKeymap *string           `yaml:"keyboardVConsoleKeymap"`
	Username               *string           `yaml:"username"`
	Fullname               *string           `yaml:"fullname"`
	AutoLoginUser          *string           `yaml:"autoLoginUser"`
	PackageChooser         *string           `yaml:"packagechooser_packagechooser"`
}

// GlobalStorage is the parsed, read-only host input.
type GlobalStorage struct {
	doc document
}

// Load reads global storage from a file path, or from r when path is "-".
func Load(path string, stdin io.Reader) (*GlobalStorage, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStorageLoad,
			"Cannot read global storage", "The host installer did not provide a readable global storage document.")
	}
	return Parse(data)
}

// Parse decodes a global storage YAML document.
func Parse(data []byte) (*GlobalStorage, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrStorageParse,
			"Cannot parse global storage", "The global storage document is not valid YAML.")
	}
	return &GlobalStorage{doc: doc}, nil
}

func get(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	return *p, true
}

func (g *GlobalStorage) RootMountPoint() (string, bool) { return get(g.doc.RootMountPoint) }
func (g *GlobalStorage) FirmwareType() (string, bool)   { return get(g.doc.FirmwareType) }
func (g *GlobalStorage) Hostname() (string, bool)       { return get(g.doc.Hostname) }
func (g *GlobalStorage) LocationRegion() (string, bool) { return get(g.doc.LocationRegion) }
func (g *GlobalStorage) LocationZone() (string, bool)   { return get(g.doc.LocationZone) }
func (g *GlobalStorage) KeyboardLayout() (string, bool) { return get(g.doc.KeyboardLayout) }
func (g *GlobalStorage) KeyboardVariant() (string, bool) {
	return get(g.doc.KeyboardVariant)
}
func (g *GlobalStorage) KeyboardVConsoleKeymap() (string, bool) {
	return get(g.doc.KeyboardVConsoleKeymap)
}
func (g *GlobalStorage) Username() (string, bool)      { return get(g.doc.Username) }
func (g *GlobalStorage) Fullname() (string, bool)      { return get(g.doc.Fullname) }
func (g *GlobalStorage) AutoLoginUser() (string, bool) { return get(g.doc.AutoLoginUser) }
func (g *GlobalStorage) PackageChooser() (string, bool) {
	return get(g.doc.PackageChooser)
}

// BootLoaderInstallPath returns the bootloader install device, or false when
// the host collected no bootloader choice at all.
func (g *GlobalStorage) BootLoaderInstallPath() (string, bool) {
	if g.doc.BootLoader == nil {
		return "", false
	}
	return get(g.doc.BootLoader.InstallPath)
}

// Partitions returns the host's partition descriptors, possibly empty.
func (g *GlobalStorage) Partitions() []Partition {
	return g.doc.Partitions
}

// LocaleConf returns a copy of the locale-settings structure, or nil when
// the host collected none. Callers mutate the copy freely (the primary
// language is popped out of it during binding).
func (g *GlobalStorage) LocaleConf() map[string]string {
	if g.doc.LocaleConf == nil {
		return nil
	}
	conf := make(map[string]string, len(g.doc.LocaleConf))
	for k, v := range g.doc.LocaleConf {
		conf[k] = v
	}
	return conf
}
