package install

import (
	"context"
	"strings"

	"github.com/nixstall/nixstall/pkg/hostexec"
	"github.com/nixstall/nixstall/pkg/kbd"
	"github.com/nixstall/nixstall/pkg/nixcfg"
)

// buildPlan derives the fragment selection conditions and the variable
// bindings from the host's global storage. Bindings follow the partial
// catenate policy: a missing source value omits the binding instead of
// substituting something empty.
func (j *Job) buildPlan(ctx context.Context, lay layout, grubCrypt bool) (nixcfg.Conditions, nixcfg.Bindings) {
	gs := j.gs
	cfg := j.cfg

	fwType, _ := gs.FirmwareType()
	bootDevice := "nodev"
	if path, ok := gs.BootLoaderInstallPath(); ok {
		bootDevice = path
	}

	cond := nixcfg.Conditions{
		FirmwareType: fwType,
		BootDevice:   bootDevice,
		SwapDevices:  lay.swapDevices,
		GrubCrypt:    grubCrypt,
		AllowUnfree:  cfg.Render.AllowUnfree,
	}
	if grubCrypt {
		cond.KeyFileMappers = lay.keyFileMappers()
	}

	vars := nixcfg.NewBindings()

	// The BIOS fragment is the only consumer of @@bootdev@@; binding it
	// unconditionally would just produce an unused-variable warning.
	if fwType != "efi" && bootDevice != "nodev" && bootDevice != "" {
		vars.Set("bootdev", bootDevice)
	}

	if hostname, ok := gs.Hostname(); ok {
		vars.Set("hostname", hostname)
	} else {
		vars.Set("hostname", "nixos")
	}

	region, regionOK := gs.LocationRegion()
	zone, zoneOK := gs.LocationZone()
	if regionOK && zoneOK {
		cond.HasTimezone = true
		vars.Catenate("timezone", nixcfg.Some(region), nixcfg.Some("/"), nixcfg.Some(zone))
	}

	j.planLocale(&cond, vars)
	j.planKeyboard(ctx, &cond, vars)
	j.planUsers(&cond, vars)

	if chooser, ok := gs.PackageChooser(); ok {
		cond.Desktop = nixcfg.ParseDesktop(chooser)
	}

	vars.Set("pkgs", extraPackageLines(cfg.Packages.Extra))
	vars.Set("nixosversion", j.stateVersion(ctx))

	if j.catalog != nil {
		cond.ExtraFragments = j.catalog.ExtraFragments()
	}

	return cond, vars
}

// planLocale extracts the primary language and decides whether the extra
// locale-settings fragment applies. The primary language is popped out of
// the structure first; the remaining categories only matter when at least
// one of them differs from it.
func (j *Job) planLocale(cond *nixcfg.Conditions, vars nixcfg.Bindings) {
	conf := j.gs.LocaleConf()
	if conf == nil {
		return
	}

	primary := localeValue(conf["LANG"])
	if primary == "" {
		j.log.Warn().Msg("Locale settings carry no primary language, skipping locale")
		return
	}
	delete(conf, "LANG")

	cond.HasLocale = true
	vars.Set("LANG", primary)

	differs := false
	for _, raw := range conf {
		if localeValue(raw) != primary {
			differs = true
			break
		}
	}
	if !differs {
		return
	}

	cond.LocaleExtra = true
	for category, raw := range conf {
		vars.Set(category, localeValue(raw))
	}
}

// localeValue normalizes a locale-settings entry; the host may append a
// charset suffix after a slash.
func localeValue(raw string) string {
	return strings.SplitN(raw, "/", 2)[0]
}

// planKeyboard binds the X11 keymap and resolves the console keymap. An
// explicit console keymap is trusted but verified with loadkeys; otherwise
// the kbd-model-map table gives a best-effort answer. Any failure along
// the way only costs the console fragment, never the installation.
func (j *Job) planKeyboard(ctx context.Context, cond *nixcfg.Conditions, vars nixcfg.Bindings) {
	layout, layoutOK := j.gs.KeyboardLayout()
	variant, variantOK := j.gs.KeyboardVariant()
	if !layoutOK || !variantOK {
		return
	}

	cond.HasKeymap = true
	vars.Set("kblayout", layout)
	vars.Set("kbvariant", variant)

	keymap, ok := j.resolveConsoleKeymap(ctx, layout, variant)
	if !ok {
		return
	}
	cond.HasConsole = true
	vars.Set("vconsole", keymap)
}

func (j *Job) resolveConsoleKeymap(ctx context.Context, layout, variant string) (string, bool) {
	if explicit, ok := j.gs.KeyboardVConsoleKeymap(); ok {
		explicit = strings.TrimSpace(explicit)
		out, err := kbd.Validate(ctx, j.runner, j.cfg.Tools.Loadkeys, explicit)
		if err != nil {
			j.log.Warn().Str("output", string(out)).Err(err).Msg("loadkeys failed")
			j.log.Warn().
				Str("keymap", explicit).
				Msg("Setting vconsole keymap will fail, using default")
			return "", false
		}
		return explicit, true
	}

	modelMap, err := kbd.LoadModelMap(j.fs, j.cfg.Keyboard.ModelMap)
	if err != nil {
		j.log.Warn().Err(err).
			Str("path", j.cfg.Keyboard.ModelMap).
			Msg("Cannot read kbd-model-map, skipping console keymap")
		return "", false
	}

	keymap, ok := modelMap.Resolve(layout, variant)
	if !ok {
		return "", false
	}
	out, err := kbd.Validate(ctx, j.runner, j.cfg.Tools.Loadkeys, keymap)
	if err != nil {
		j.log.Warn().Str("output", string(out)).Err(err).Msg("loadkeys failed")
		j.log.Warn().
			Str("keymap", keymap).
			Msg("Setting vconsole keymap will fail, using default")
		return "", false
	}
	return keymap, true
}

func (j *Job) planUsers(cond *nixcfg.Conditions, vars nixcfg.Bindings) {
	username, ok := j.gs.Username()
	if !ok {
		return
	}

	cond.HasUser = true
	vars.Set("username", username)
	vars.Catenate("fullname", nixcfg.Opt(j.gs.Fullname()))

	groups := []string{"networkmanager", "wheel"}
	quoted := make([]string, len(groups))
	for i, g := range groups {
		quoted[i] = `"` + g + `"`
	}
	vars.Set("groups", strings.Join(quoted, " "))

	if _, ok := j.gs.AutoLoginUser(); ok {
		if chooser, chooserOK := j.gs.PackageChooser(); chooserOK && chooser != "" {
			cond.Autologin = nixcfg.DesktopAutologin
		} else {
			cond.Autologin = nixcfg.TTYAutologin
		}
	}
}

// extraPackageLines renders the configured extra packages as list entries
// for the systemPackages fragment.
func extraPackageLines(pkgs []string) string {
	var b strings.Builder
	for _, pkg := range pkgs {
		b.WriteString("    ")
		b.WriteString(pkg)
		b.WriteByte('\n')
	}
	return b.String()
}

// stateVersion asks nixos-version for the running release and keeps the
// major.minor prefix. The query is best-effort: the configured fallback
// keeps the render complete when the tool is unavailable.
func (j *Job) stateVersion(ctx context.Context) string {
	out, err := j.runner.Run(ctx, hostexec.Command{Name: j.cfg.Tools.NixosVersion})
	if err != nil {
		j.log.Warn().Err(err).Msg("nixos-version failed, using fallback state version")
		return j.cfg.Render.FallbackStateVersion
	}

	parts := strings.Split(strings.TrimSpace(string(out)), ".")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	version := strings.Join(parts, ".")
	if len(version) > 5 {
		version = version[:5]
	}
	if version == "" {
		return j.cfg.Render.FallbackStateVersion
	}
	return version
}
