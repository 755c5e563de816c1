package nixcfg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countBootFragments counts how many of the three bootloader variants made
// it into the document.
func countBootFragments(doc *Document) int {
	count := 0
	for _, name := range doc.FragmentNames() {
		switch name {
		case "boot-efi", "boot-bios", "boot-none":
			count++
		}
	}
	return count
}

func TestAssembleBootSelection(t *testing.T) {
	tests := []struct {
		name         string
		firmwareType string
		bootDevice   string
		want         string
	}{
		{"efi selects systemd-boot", "efi", "", "boot-efi"},
		{"efi wins over install path", "efi", "/dev/sda", "boot-efi"},
		{"bios with device selects grub", "bios", "/dev/sda", "boot-bios"},
		{"nodev disables the bootloader", "bios", "nodev", "boot-none"},
		{"empty device disables the bootloader", "bios", "", "boot-none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Assemble(Conditions{
				FirmwareType: tt.firmwareType,
				BootDevice:   tt.bootDevice,
			})

			assert.Equal(t, 1, countBootFragments(doc), "exactly one boot fragment")
			assert.Contains(t, doc.FragmentNames(), tt.want)
		})
	}
}

func TestAssembleGrubCrypt(t *testing.T) {
	doc := Assemble(Conditions{
		FirmwareType:   "bios",
		BootDevice:     "/dev/sda",
		GrubCrypt:      true,
		KeyFileMappers: []string{"luks-root", "luks-swap"},
	})

	text := doc.Text()
	assert.Contains(t, text, "boot.loader.grub.enableCryptodisk = true;")
	assert.Contains(t, text, `boot.initrd.luks.devices."luks-root".keyFile = "/boot/crypto_keyfile.bin";`)
	assert.Contains(t, text, `boot.initrd.luks.devices."luks-swap".keyFile = "/boot/crypto_keyfile.bin";`)
}

func TestAssembleSwapDevices(t *testing.T) {
	doc := Assemble(Conditions{
		SwapDevices: []LuksMapping{{MapperName: "luks-swap", UUID: "2222-aaaa"}},
	})

	assert.Contains(t, doc.Text(),
		`boot.initrd.luks.devices."luks-swap".device = "/dev/disk/by-uuid/2222-aaaa";`)
}

func TestAssembleLocale(t *testing.T) {
	t.Run("no_locale", func(t *testing.T) {
		doc := Assemble(Conditions{})
		assert.NotContains(t, doc.Text(), "i18n.defaultLocale")
	})

	t.Run("primary_only", func(t *testing.T) {
		doc := Assemble(Conditions{HasLocale: true})
		assert.Contains(t, doc.Text(), "i18n.defaultLocale")
		assert.NotContains(t, doc.Text(), "i18n.extraLocaleSettings")
	})

	t.Run("with_extra_categories", func(t *testing.T) {
		doc := Assemble(Conditions{HasLocale: true, LocaleExtra: true})
		assert.Contains(t, doc.Text(), "i18n.extraLocaleSettings")
		assert.Contains(t, doc.Placeholders(), "LC_TIME")
	})
}

func TestAssembleKeymap(t *testing.T) {
	// The console fragment never appears without the X11 keymap fragment.
	doc := Assemble(Conditions{HasConsole: true})
	assert.NotContains(t, doc.Text(), "console.keyMap")

	doc = Assemble(Conditions{HasKeymap: true, HasConsole: true})
	assert.Contains(t, doc.Text(), "services.xserver.xkb")
	assert.Contains(t, doc.Text(), "console.keyMap")
}

func TestAssembleAutologin(t *testing.T) {
	tests := []struct {
		name     string
		desktop  Desktop
		mode     AutologinMode
		contains []string
		absent   []string
	}{
		{
			name:    "no autologin",
			mode:    NoAutologin,
			absent:  []string{"autoLogin", "autologinUser"},
			desktop: DesktopXfce,
		},
		{
			name:     "desktop autologin",
			mode:     DesktopAutologin,
			desktop:  DesktopXfce,
			contains: []string{"services.displayManager.autoLogin.enable = true;"},
			absent:   []string{`systemd.services."getty@tty1".enable = false;`},
		},
		{
			name:    "gnome autologin carries the gdm workaround",
			mode:    DesktopAutologin,
			desktop: DesktopGnome,
			contains: []string{
				"services.displayManager.autoLogin.enable = true;",
				`systemd.services."getty@tty1".enable = false;`,
			},
		},
		{
			name:     "tty autologin without a desktop",
			mode:     TTYAutologin,
			desktop:  DesktopNone,
			contains: []string{"services.getty.autologinUser"},
			absent:   []string{"services.displayManager.autoLogin.enable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Assemble(Conditions{
				HasUser:   true,
				Autologin: tt.mode,
				Desktop:   tt.desktop,
			})
			for _, want := range tt.contains {
				assert.Contains(t, doc.Text(), want)
			}
			for _, unwanted := range tt.absent {
				assert.NotContains(t, doc.Text(), unwanted)
			}
		})
	}
}

func TestAssembleAutologinRequiresUser(t *testing.T) {
	doc := Assemble(Conditions{HasUser: false, Autologin: DesktopAutologin})
	assert.NotContains(t, doc.Text(), "autoLogin")
}

func TestAssembleExtraFragments(t *testing.T) {
	doc := Assemble(Conditions{
		ExtraFragments: []Fragment{
			{Name: "vendor-ssh", Text: "  services.openssh.enable = true;\n"},
		},
	})

	text := doc.Text()
	assert.Contains(t, text, "services.openssh.enable = true;")
	// Extra fragments sit before the closing tail.
	assert.Less(t,
		strings.Index(text, "services.openssh.enable"),
		strings.Index(text, "system.stateVersion"))
}

func TestAssembleDeterministic(t *testing.T) {
	cond := Conditions{
		FirmwareType: "efi",
		HasTimezone:  true,
		HasLocale:    true,
		Desktop:      DesktopPlasma6,
		HasUser:      true,
		AllowUnfree:  true,
	}

	first := Assemble(cond)
	second := Assemble(cond)
	assert.Equal(t, first.Text(), second.Text())
	assert.Equal(t, first.FragmentNames(), second.FragmentNames())
}

// TestAssembleAndSubstitute walks a full desktop scenario end to end: the
// selected fragments, the variables they require and the final text.
func TestAssembleAndSubstitute(t *testing.T) {
	doc := Assemble(Conditions{
		FirmwareType: "efi",
		HasTimezone:  true,
		HasLocale:    true,
		Desktop:      DesktopGnome,
		HasUser:      true,
		Autologin:    DesktopAutologin,
		AllowUnfree:  true,
	})

	vars := NewBindings()
	vars.Set("hostname", "box1")
	vars.Catenate("timezone", Some("Europe"), Some("/"), Some("Berlin"))
	vars.Set("LANG", "de_DE.UTF-8")
	vars.Set("username", "alice")
	vars.Set("fullname", "Alice Example")
	vars.Set("groups", `"networkmanager" "wheel"`)
	vars.Set("pkgs", "    firefox\n")
	vars.Set("nixosversion", "25.05")

	report := doc.Validate(vars)
	require.True(t, report.Clean(), "unused=%v unbound=%v", report.Unused, report.Unbound)

	text := doc.Substitute(vars)
	assert.Contains(t, text, `networking.hostName = "box1";`)
	assert.Contains(t, text, `time.timeZone = "Europe/Berlin";`)
	assert.Contains(t, text, `i18n.defaultLocale = "de_DE.UTF-8";`)
	assert.Contains(t, text, `users.users."alice" = {`)
	assert.Contains(t, text, `description = "Alice Example";`)
	assert.Contains(t, text, `extraGroups = [ "networkmanager" "wheel" ];`)
	assert.Contains(t, text, "services.xserver.desktopManager.gnome.enable = true;")
	assert.Contains(t, text, "    firefox\n")
	assert.Contains(t, text, `system.stateVersion = "25.05";`)
	assert.NotContains(t, text, "@@")
	assert.True(t, strings.HasSuffix(text, "}\n"))
}
