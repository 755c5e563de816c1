package hwconf

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEvaluator answers from a fixed table and records what was asked.
type fakeEvaluator struct {
	unfree map[string]bool
	err    error
	asked  []string
}

func (f *fakeEvaluator) IsUnfree(_ context.Context, module string) (bool, error) {
	f.asked = append(f.asked, module)
	if f.err != nil {
		return false, f.err
	}
	return f.unfree[module], nil
}

const hardwareConfig = `# Do not modify this file!  It was generated by 'nixos-generate-config'
{ config, lib, pkgs, modulesPath, ... }:

{
  boot.initrd.kernelModules = [ ];
  boot.kernelModules = [ "kvm-intel" ];
  boot.extraModulePackages = [ config.boot.kernelPackages.broadcom_sta config.boot.kernelPackages.v4l2loopback ];
}
`

func TestFilterUnfree(t *testing.T) {
	t.Run("removes_unfree_modules", func(t *testing.T) {
		eval := &fakeEvaluator{unfree: map[string]bool{"broadcom_sta": true}}

		out, changed, err := FilterUnfree(context.Background(), hardwareConfig, eval)
		require.NoError(t, err)
		assert.True(t, changed)

		assert.Contains(t, out,
			"boot.extraModulePackages = [ config.boot.kernelPackages.v4l2loopback ];")
		assert.NotContains(t, out, "broadcom_sta")

		// Everything around the module line is untouched.
		assert.Contains(t, out, `boot.kernelModules = [ "kvm-intel" ];`)

		// The evaluator is asked by bare attribute name.
		assert.Equal(t, []string{"broadcom_sta", "v4l2loopback"}, eval.asked)
	})

	t.Run("all_free_leaves_text_unchanged", func(t *testing.T) {
		eval := &fakeEvaluator{unfree: map[string]bool{}}

		out, changed, err := FilterUnfree(context.Background(), hardwareConfig, eval)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, hardwareConfig, out)
	})

	t.Run("no_module_line_skips_evaluation", func(t *testing.T) {
		eval := &fakeEvaluator{}
		text := "{ boot.kernelModules = [ ]; }\n"

		out, changed, err := FilterUnfree(context.Background(), text, eval)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, text, out)
		assert.Empty(t, eval.asked)
	})

	t.Run("empty_module_list", func(t *testing.T) {
		eval := &fakeEvaluator{}
		text := "  boot.extraModulePackages = [  ];\n"

		_, changed, err := FilterUnfree(context.Background(), text, eval)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, eval.asked)
	})

	t.Run("short_entry_kept_without_evaluation", func(t *testing.T) {
		eval := &fakeEvaluator{unfree: map[string]bool{"broadcom_sta": true}}
		text := "  boot.extraModulePackages = [ wl config.boot.kernelPackages.broadcom_sta ];\n"

		out, changed, err := FilterUnfree(context.Background(), text, eval)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Contains(t, out, "boot.extraModulePackages = [ wl ];")
		assert.Equal(t, []string{"broadcom_sta"}, eval.asked)
	})

	t.Run("evaluator_error_propagates", func(t *testing.T) {
		eval := &fakeEvaluator{err: fmt.Errorf("nix-instantiate not found")}

		_, _, err := FilterUnfree(context.Background(), hardwareConfig, eval)
		assert.Error(t, err)
	})
}

func TestFilterUnfreeRemovesAll(t *testing.T) {
	eval := &fakeEvaluator{unfree: map[string]bool{
		"broadcom_sta": true,
		"v4l2loopback": true,
	}}

	out, changed, err := FilterUnfree(context.Background(), hardwareConfig, eval)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, out, "boot.extraModulePackages = [ ];")
}
