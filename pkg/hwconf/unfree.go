// Package hwconf post-processes the hardware description emitted by the
// external probe. Its single job is dropping non-free kernel module
// packages from the boot.extraModulePackages declaration when the policy
// restricts the system to freely-licensed software.
package hwconf

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nixstall/nixstall/pkg/hostexec"
	"github.com/nixstall/nixstall/pkg/logging"
)

// extraModulesPattern matches the single well-known declaration line the
// probe emits for out-of-tree kernel modules.
var extraModulesPattern = regexp.MustCompile(`boot\.extraModulePackages = \[ (.*) \];`)

// Evaluator answers whether a kernel module package is non-free.
type Evaluator interface {
	IsUnfree(ctx context.Context, module string) (bool, error)
}

// NixEvaluator asks the nix expression evaluator for the package's
// meta.unfree attribute.
type NixEvaluator struct {
	Runner hostexec.Runner
	Tool   string
}

func (e *NixEvaluator) IsUnfree(ctx context.Context, module string) (bool, error) {
	expr := fmt.Sprintf(
		"with import <nixpkgs> {}; pkgs.linuxKernel.packageAliases.linux_default.%s.meta.unfree",
		module,
	)
	out, err := e.Runner.Run(ctx, hostexec.Command{
		Name: e.Tool,
		Args: []string{"--eval", "--strict", "-E", expr, "--json"},
	})
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(out)) == "true", nil
}

// FilterUnfree removes non-free entries from the extraModulePackages line
// and returns the rewritten text. The second result reports whether the
// text changed; callers skip the rewrite when it did not.
func FilterUnfree(ctx context.Context, text string, eval Evaluator) (string, bool, error) {
	logger := logging.GetLogger("hwconf")

	match := extraModulesPattern.FindStringSubmatch(text)
	if match == nil {
		return text, false, nil
	}

	kept, changed, err := filterModules(ctx, strings.Split(match[1], " "), eval, logger)
	if err != nil {
		return text, false, err
	}
	if !changed {
		return text, false, nil
	}

	var line strings.Builder
	line.WriteString("boot.extraModulePackages = [ ")
	for _, pkg := range kept {
		line.WriteString(pkg)
		line.WriteString(" ")
	}
	line.WriteString("];")

	out := extraModulesPattern.ReplaceAllStringFunc(text, func(string) string {
		return line.String()
	})
	return out, true, nil
}

func filterModules(ctx context.Context, pkgs []string, eval Evaluator, logger zerolog.Logger) ([]string, bool, error) {
	var kept []string
	changed := false
	for _, pkg := range pkgs {
		if pkg == "" {
			continue
		}
		// Entries look like config.boot.kernelPackages.broadcom_sta; the
		// evaluator wants the bare attribute name. Entries without that
		// prefix are kept untouched rather than evaluated.
		parts := strings.Split(pkg, ".")
		if len(parts) <= 3 {
			logger.Warn().
				Str("entry", pkg).
				Msg("Unrecognized module package entry, keeping as-is")
			kept = append(kept, pkg)
			continue
		}
		name := strings.Join(parts[3:], ".")
		unfree, err := eval.IsUnfree(ctx, name)
		if err != nil {
			return nil, false, err
		}
		if unfree {
			logger.Warn().
				Str("module", name).
				Msg("Module is marked as unfree, removing from hardware configuration")
			changed = true
			continue
		}
		kept = append(kept, pkg)
	}
	return kept, changed, nil
}
