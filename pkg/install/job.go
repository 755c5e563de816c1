// Package install is the job pipeline: render the system configuration
// from the host's collected choices, probe the target hardware, and run
// the installer. Phases execute strictly in sequence and every external
// failure is a hard stop; the caller owns any retry, which restarts the
// whole job from scratch.
package install

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/nixstall/nixstall/pkg/config"
	"github.com/nixstall/nixstall/pkg/errors"
	"github.com/nixstall/nixstall/pkg/filesystem"
	"github.com/nixstall/nixstall/pkg/hostexec"
	"github.com/nixstall/nixstall/pkg/hwconf"
	"github.com/nixstall/nixstall/pkg/logging"
	"github.com/nixstall/nixstall/pkg/nixcfg"
	"github.com/nixstall/nixstall/pkg/storage"
	"github.com/nixstall/nixstall/pkg/types"
)

// Options configures a Job. GlobalStorage and Config are required; the
// rest default to production implementations.
type Options struct {
	GlobalStorage *storage.GlobalStorage
	Config        *config.Config
	Runner        hostexec.Runner
	FS            types.FS
	Progress      ProgressReporter
	Catalog       *nixcfg.Catalog
}

// Job is one installation attempt. Construct fresh per invocation; nothing
// persists across runs.
type Job struct {
	gs       *storage.GlobalStorage
	cfg      *config.Config
	runner   hostexec.Runner
	fs       types.FS
	progress ProgressReporter
	catalog  *nixcfg.Catalog
	log      zerolog.Logger
}

// New creates a job instance
func New(opts Options) *Job {
	runner := opts.Runner
	if runner == nil {
		runner = hostexec.New(opts.Config.Tools.Escalator)
	}
	fs := opts.FS
	if fs == nil {
		fs = filesystem.NewOS()
	}
	progress := opts.Progress
	if progress == nil {
		progress = NopProgress{}
	}

	return &Job{
		gs:       opts.GlobalStorage,
		cfg:      opts.Config,
		runner:   runner,
		fs:       fs,
		progress: progress,
		catalog:  opts.Catalog,
		log:      logging.GetLogger("install"),
	}
}

func (j *Job) report(phase Phase) {
	j.log.Info().Str("phase", phase.String()).Msg("Phase started")
	j.progress.Progress(phase, phase.fraction())
}

// Run executes the whole pipeline. On failure it returns an
// *errors.InstallError carrying the (title, detail) pair for the host;
// files already written stay on disk.
func (j *Job) Run(ctx context.Context) error {
	j.report(PhaseConfigure)

	root, ok := j.gs.RootMountPoint()
	if !ok || root == "" {
		return errors.New(errors.ErrInvalidInput,
			"No root mount point",
			"The host installer did not provide a target root mount point.")
	}

	lay := analyzeLayout(j.gs.Partitions())
	fwType, _ := j.gs.FirmwareType()
	grubCrypt := lay.needsKeyfile(fwType)

	if grubCrypt {
		if err := j.setupKeyfile(ctx, root, lay); err != nil {
			return err
		}
	}

	cond, vars := j.buildPlan(ctx, lay, grubCrypt)

	j.report(PhaseRender)
	rendered, err := j.render(cond, vars)
	if err != nil {
		return err
	}

	j.report(PhaseHardwareScan)
	if err := j.hardwareScan(ctx, root); err != nil {
		return err
	}
	if err := j.filterUnfree(ctx, root); err != nil {
		return err
	}
	if err := j.writeConfiguration(ctx, root, rendered); err != nil {
		return err
	}

	j.report(PhaseInstall)
	return j.runInstaller(ctx, root)
}

// Render produces the configuration text without touching the target
// system or any privileged tool. Console keymap resolution is skipped
// because it needs loadkeys; everything else matches Run's output.
func (j *Job) Render(ctx context.Context) (string, error) {
	lay := analyzeLayout(j.gs.Partitions())
	fwType, _ := j.gs.FirmwareType()

	cond, vars := j.buildPlan(ctx, lay, lay.needsKeyfile(fwType))
	return j.render(cond, vars)
}

// render assembles the document, validates the bindings against it and
// applies the substitution. Unused bindings are only worth a warning;
// unbound placeholders fail the render unless configured otherwise,
// because leaving a literal @@token@@ in a system file helps nobody.
func (j *Job) render(cond nixcfg.Conditions, vars nixcfg.Bindings) (string, error) {
	doc := nixcfg.Assemble(cond)
	report := doc.Validate(vars)

	for _, key := range report.Unused {
		j.log.Warn().Str("variable", key).Msg("Variable is not used")
	}
	if len(report.Unbound) > 0 {
		if !j.cfg.Render.AllowUnresolved {
			return "", errors.Newf(errors.ErrRenderIncomplete,
				"Configuration incomplete",
				"No value was computed for: %v", report.Unbound)
		}
		for _, name := range report.Unbound {
			j.log.Warn().Str("variable", name).Msg("Variable is used but not defined")
		}
	}

	return doc.Substitute(vars), nil
}

// setupKeyfile creates the keyfile under /boot on the target and registers
// every claimed LUKS partition against it. GRUB currently only supports
// pbkdf2 for luks2, hence the luksConvertKey pass before luksAddKey.
func (j *Job) setupKeyfile(ctx context.Context, root string, lay layout) error {
	j.report(PhaseEncryptionSetup)

	bootDir := filepath.Join(root, "boot")
	keyfile := filepath.Join(bootDir, "crypto_keyfile.bin")

	setup := []hostexec.Command{
		{Name: "mkdir", Args: []string{"-p", bootDir}, Privileged: true},
		{Name: "chmod", Args: []string{"0700", bootDir}, Privileged: true},
		{Name: "dd", Args: []string{"bs=512", "count=4", "if=/dev/random", "of=" + keyfile, "iflag=fullblock"}, Privileged: true},
		{Name: "chmod", Args: []string{"600", keyfile}, Privileged: true},
	}
	for _, cmd := range setup {
		if out, err := j.runner.Run(ctx, cmd); err != nil {
			j.log.Error().Str("output", string(out)).Err(err).Msg("Failed to create /boot/crypto_keyfile.bin")
			return errors.Wrap(err, errors.ErrKeyfileCreate,
				"Failed to create /boot/crypto_keyfile.bin",
				"Check if you have enough free space on your partition.")
		}
	}

	for _, part := range lay.keyfileParts {
		convert := hostexec.Command{
			Name:       j.cfg.Tools.Cryptsetup,
			Args:       []string{"luksConvertKey", "--hash", "sha256", "--pbkdf", "pbkdf2", part.Device},
			Stdin:      part.LuksPassphrase,
			Privileged: true,
		}
		addKey := hostexec.Command{
			Name:       j.cfg.Tools.Cryptsetup,
			Args:       []string{"luksAddKey", "--hash", "sha256", "--pbkdf", "pbkdf2", part.Device, keyfile},
			Stdin:      part.LuksPassphrase,
			Privileged: true,
		}
		for _, cmd := range []hostexec.Command{convert, addKey} {
			if out, err := j.runner.Run(ctx, cmd); err != nil {
				j.log.Error().
					Str("mapper", part.LuksMapperName).
					Str("output", string(out)).
					Err(err).
					Msg("Failed to add partition to /boot/crypto_keyfile.bin")
				return errors.Newf(errors.ErrCryptsetup,
					"cryptsetup failed",
					"Failed to add %s to /boot/crypto_keyfile.bin", part.LuksMapperName)
			}
		}
	}

	return nil
}

// hardwareScan runs the external probe against the target root. The probe
// writes hardware-configuration.nix itself; this job only checks it ran.
func (j *Job) hardwareScan(ctx context.Context, root string) error {
	out, err := j.runner.Run(ctx, hostexec.Command{
		Name:       j.cfg.Tools.NixosGenerateConfig,
		Args:       []string{"--root", root},
		Privileged: true,
	})
	if err != nil {
		j.log.Error().Str("output", string(out)).Err(err).Msg("nixos-generate-config failed")
		return errors.New(errors.ErrHardwareScan,
			"nixos-generate-config failed", string(out))
	}
	return nil
}

// filterUnfree drops non-free kernel modules from the probe's output when
// the policy restricts to freely-licensed components.
func (j *Job) filterUnfree(ctx context.Context, root string) error {
	if j.cfg.Render.AllowUnfree {
		return nil
	}

	path := filepath.Join(root, "etc/nixos/hardware-configuration.nix")
	data, err := j.fs.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrHardwareScan,
			"nixos-generate-config failed",
			"The hardware scan did not produce "+path+".")
	}

	eval := &hwconf.NixEvaluator{Runner: j.runner, Tool: j.cfg.Tools.NixInstantiate}
	filtered, changed, err := hwconf.FilterUnfree(ctx, string(data), eval)
	if err != nil {
		return errors.Wrap(err, errors.ErrUnfreeEval,
			"Package evaluation failed",
			"Could not determine whether a kernel module package is unfree.")
	}
	if !changed {
		return nil
	}

	return j.writeTargetFile(ctx, path, filtered)
}

func (j *Job) writeConfiguration(ctx context.Context, root, rendered string) error {
	return j.writeTargetFile(ctx, filepath.Join(root, "etc/nixos/configuration.nix"), rendered)
}

// writeTargetFile writes content under the target root through the
// privilege wrapper; the mount is typically not writable by this process.
func (j *Job) writeTargetFile(ctx context.Context, path, content string) error {
	out, err := j.runner.Run(ctx, hostexec.Command{
		Name:       "cp",
		Args:       []string{"/dev/stdin", path},
		Stdin:      content,
		Privileged: true,
	})
	if err != nil {
		j.log.Error().Str("path", path).Str("output", string(out)).Err(err).Msg("Failed to write file")
		return errors.Wrap(err, errors.ErrConfigWrite,
			"Failed to write configuration",
			"Could not write "+path+" to the target system.")
	}
	return nil
}

// runInstaller streams the installer's combined output line by line for
// the debug log. Proxy settings ride along explicitly because the
// privilege wrapper scrubs the environment.
func (j *Job) runInstaller(ctx context.Context, root string) error {
	stream, err := j.runner.Stream(ctx, hostexec.Command{
		Name:       j.cfg.Tools.NixosInstall,
		Args:       []string{"--no-root-passwd", "--root", root},
		Env:        hostexec.ProxyEnv(),
		Privileged: true,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrInstallRun,
			"nixos-install failed", "Installation failed to complete.")
	}

	for {
		line, ok := stream.Next()
		if !ok {
			break
		}
		j.log.Debug().Str("line", line).Msg("nixos-install")
	}

	if err := stream.Wait(); err != nil {
		return errors.New(errors.ErrInstallRun,
			"nixos-install failed", stream.Output())
	}
	return nil
}
