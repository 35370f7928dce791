package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/binder/internal/config"
	"github.com/xraph/binder/internal/errors"
	"github.com/xraph/binder/internal/logger"
	"github.com/xraph/binder/internal/naming"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	configPath, manifestPath, colored = "", "", false
	t.Cleanup(func() { configPath, manifestPath, colored = "", "", false })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestDumpCommand(t *testing.T) {
	cfg := writeFile(t, "binder.yaml", `
default_resources: false
metrics:
  enabled: false
`)
	m := writeFile(t, "manifest.yaml", `
units:
  - application: shop
    module: orders
    bindings:
      - level: module
        name: env/queue
        value: orders
        type: Queue
`)

	out, err := run(t, "dump", "--config", cfg, "--manifest", m)
	require.NoError(t, err)
	assert.Contains(t, out, "[module] shop/orders")
	assert.Contains(t, out, "module/env/queue (value, Queue) contributors=1")
}

func TestDumpCommand_BadManifest(t *testing.T) {
	m := writeFile(t, "manifest.yaml", "units:\n  - application: shop\n    bindings:\n      - level: nowhere\n        name: x\n        value: 1\n")

	_, err := run(t, "dump", "--manifest", m)
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "binderd dev")
}

func TestBuild_VesselFactoriesAndBuilders(t *testing.T) {
	t.Setenv("BINDER_TEST_REGION", "eu-west-1")

	cfg, err := config.Parse([]byte(`
metrics:
  enabled: false
factories:
  backend: vessel
  builders:
    Queue: static
    Region: env
  resources:
    - name: jms/orders
      type: Queue
      properties:
        value: orders-queue
`))
	require.NoError(t, err)

	manifestPath = writeFile(t, "manifest.yaml", `
units:
  - application: shop
    module: orders
    component: checkout
    bindings:
      - level: comp
        name: env/queue
        target: jms/orders
        type: Queue
      - level: comp
        name: env/region
        type: Region
        factory:
          var: BINDER_TEST_REGION
`)
	t.Cleanup(func() { manifestPath = "" })

	ctx := context.Background()
	rt, err := build(ctx, cfg, logger.NewNoopLogger())
	require.NoError(t, err)
	defer rt.close()

	assert.Nil(t, rt.engine.Factories(), "vessel replaces the built-in registry")

	scope, err := rt.engine.Scope(naming.DeploymentUnit{Application: "shop", Module: "orders", Component: "checkout"})
	require.NoError(t, err)

	obj, err := rt.engine.Lookup(ctx, naming.LookupRequest{Scope: scope, Name: "comp/env/queue"})
	require.NoError(t, err)
	assert.Equal(t, "orders-queue", obj)

	obj, err = rt.engine.Lookup(ctx, naming.LookupRequest{Scope: scope, Name: "comp/env/region"})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", obj)
}

func TestBuild_UnknownBuilder(t *testing.T) {
	cfg := config.New(config.WithMetrics(false, ""))
	cfg.Factories.Builders = map[string]string{"Queue": "jdbc"}

	_, err := build(context.Background(), cfg, logger.NewNoopLogger())
	assert.True(t, errors.IsConfiguration(err))
}
