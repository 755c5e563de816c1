package nixcfg

import "strings"

// LuksMapping names one claimed LUKS container by its mapper name and the
// UUID of the underlying device.
type LuksMapping struct {
	MapperName string
	UUID       string
}

// AutologinMode selects which autologin fragment variant applies.
type AutologinMode int

const (
	// NoAutologin emits no autologin configuration.
	NoAutologin AutologinMode = iota
	// DesktopAutologin logs the user into the display manager session.
	DesktopAutologin
	// TTYAutologin logs the user into the console; used when no desktop
	// package set was chosen.
	TTYAutologin
)

// Conditions is the pre-validated set of booleans and enums that drives
// fragment selection. Every field derives from host-supplied input; the
// assembler makes no I/O and no decisions beyond the selection policy.
type Conditions struct {
	// FirmwareType selects the UEFI boot fragment when "efi", taking
	// priority over any bootloader install path.
	FirmwareType string
	// BootDevice is the GRUB install path; "nodev" or empty selects the
	// no-bootloader fragment on non-EFI firmware.
	BootDevice string

	// SwapDevices are claimed encrypted swap partitions that need explicit
	// initrd declarations.
	SwapDevices []LuksMapping
	// GrubCrypt enables the GRUB cryptodisk + keyfile setup. Only set for
	// BIOS layouts with an encrypted /boot, or an encrypted / without a
	// separate /boot.
	GrubCrypt bool
	// KeyFileMappers are the mapper names registered against the boot
	// keyfile; one keyFile line is emitted per mapper.
	KeyFileMappers []string

	HasTimezone bool
	HasLocale   bool
	// LocaleExtra is set when at least one non-primary locale category
	// differs from the primary language.
	LocaleExtra bool

	Desktop Desktop

	HasKeymap  bool
	HasConsole bool

	HasUser   bool
	Autologin AutologinMode

	AllowUnfree bool

	// ExtraFragments come from the vendor catalog and are appended between
	// the package list and the closing tail.
	ExtraFragments []Fragment
}

// Assemble concatenates the selected fragments in their fixed order and
// returns the document with placeholders unresolved. Which variables the
// selection requires is exposed structurally via Document.Placeholders.
func Assemble(cond Conditions) *Document {
	var b strings.Builder
	var names []string
	add := func(f Fragment) {
		b.WriteString(f.Text)
		names = append(names, f.Name)
	}

	add(Head)

	// Exactly one of the three boot fragments; UEFI wins over a present
	// bootloader install path.
	switch {
	case cond.FirmwareType == "efi":
		add(BootEFI)
	case cond.BootDevice != "" && cond.BootDevice != "nodev":
		add(BootBIOS)
	default:
		add(BootNone)
	}

	for _, dev := range cond.SwapDevices {
		add(LuksSwapDevice(dev.MapperName, dev.UUID))
	}

	if cond.GrubCrypt {
		add(BootGrubCrypt)
		for _, mapper := range cond.KeyFileMappers {
			add(LuksKeyFile(mapper))
		}
	}

	add(Network)
	add(NetworkManager)

	if cond.HasTimezone {
		add(Time)
	}

	if cond.HasLocale {
		add(Locale)
		if cond.LocaleExtra {
			add(LocaleExtra)
		}
	}

	if desktop, ok := cond.Desktop.fragment(); ok {
		add(desktop)
	}

	if cond.HasKeymap {
		add(Keymap)
		if cond.HasConsole {
			add(Console)
		}
	}

	add(Misc)

	if cond.HasUser {
		add(Users)
		switch cond.Autologin {
		case DesktopAutologin:
			add(Autologin)
			if cond.Desktop == DesktopGnome {
				add(AutologinGDM)
			}
		case TTYAutologin:
			add(AutologinTTY)
		}
	}

	if cond.AllowUnfree {
		add(Unfree)
	}

	add(Packages)

	for _, f := range cond.ExtraFragments {
		add(f)
	}

	add(Tail)

	return &Document{text: b.String(), names: names}
}
