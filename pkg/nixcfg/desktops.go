package nixcfg

import "strings"

// Desktop identifies the desktop package set chosen by the user. It decides
// which desktop fragment is appended and which autologin variant applies.
type Desktop string

const (
	DesktopNone     Desktop = ""
	DesktopGnome    Desktop = "gnome"
	DesktopPlasma6  Desktop = "plasma6"
	DesktopPlasma5  Desktop = "plasma5"
	DesktopXfce     Desktop = "xfce"
	DesktopCinnamon Desktop = "cinnamon"
	DesktopMate     Desktop = "mate"
	DesktopLxqt     Desktop = "lxqt"
)

// ParseDesktop maps the host's package-chooser string to a Desktop. Unknown
// selections install no desktop rather than failing the job.
func ParseDesktop(chooser string) Desktop {
	switch Desktop(strings.ToLower(strings.TrimSpace(chooser))) {
	case DesktopGnome:
		return DesktopGnome
	case DesktopPlasma6:
		return DesktopPlasma6
	case DesktopPlasma5:
		return DesktopPlasma5
	case DesktopXfce:
		return DesktopXfce
	case DesktopCinnamon:
		return DesktopCinnamon
	case DesktopMate:
		return DesktopMate
	case DesktopLxqt:
		return DesktopLxqt
	default:
		return DesktopNone
	}
}

var desktopGnome = Fragment{"desktop-gnome", `  # Enable the X11 windowing system.
  services.xserver.enable = true;

  # Enable the GNOME Desktop Environment.
  services.xserver.displayManager.gdm.enable = true;
  services.xserver.desktopManager.gnome.enable = true;

`}

var desktopPlasma6 = Fragment{"desktop-plasma6", `  # Enable the X11 windowing system.
  # You can disable this if you're only using the Wayland session.
  services.xserver.enable = true;

  # Enable the KDE Plasma Desktop Environment.
  services.displayManager.sddm.enable = true;
  services.displayManager.sddm.wayland.enable = true;
  services.desktopManager.plasma6.enable = true;

`}

var desktopPlasma5 = Fragment{"desktop-plasma5", `  # Enable the X11 windowing system.
  services.xserver.enable = true;

  # Enable the KDE Plasma Desktop Environment.
  services.xserver.displayManager.sddm.enable = true;
  services.xserver.desktopManager.plasma5.enable = true;

`}

var desktopXfce = Fragment{"desktop-xfce", `  # Enable the X11 windowing system.
  services.xserver.enable = true;

  # Enable the XFCE Desktop Environment.
  services.xserver.displayManager.lightdm.enable = true;
  services.xserver.desktopManager.xfce.enable = true;

`}

var desktopCinnamon = Fragment{"desktop-cinnamon", `  # Enable the X11 windowing system.
  services.xserver.enable = true;

  # Enable the Cinnamon Desktop Environment.
  services.xserver.displayManager.lightdm.enable = true;
  services.xserver.desktopManager.cinnamon.enable = true;

`}

var desktopMate = Fragment{"desktop-mate", `  # Enable the X11 windowing system.
  services.xserver.enable = true;

  # Enable the MATE Desktop Environment.
  services.xserver.displayManager.lightdm.enable = true;
  services.xserver.desktopManager.mate.enable = true;

`}

var desktopLxqt = Fragment{"desktop-lxqt", `  # Enable the X11 windowing system.
  services.xserver.enable = true;

  # Enable the LXQt Desktop Environment.
  services.xserver.displayManager.lightdm.enable = true;
  services.xserver.desktopManager.lxqt.enable = true;

`}

// fragment returns the desktop's fragment and whether one exists.
func (d Desktop) fragment() (Fragment, bool) {
	switch d {
	case DesktopGnome:
		return desktopGnome, true
	case DesktopPlasma6:
		return desktopPlasma6, true
	case DesktopPlasma5:
		return desktopPlasma5, true
	case DesktopXfce:
		return desktopXfce, true
	case DesktopCinnamon:
		return desktopCinnamon, true
	case DesktopMate:
		return desktopMate, true
	case DesktopLxqt:
		return desktopLxqt, true
	default:
		return Fragment{}, false
	}
}
