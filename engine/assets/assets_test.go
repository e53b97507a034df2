package assets

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/vulkanmc/engine/resources"
)

func spirv(words ...uint32) []byte {
	b := make([]byte, 4*(len(words)+1))
	binary.LittleEndian.PutUint32(b, resources.SPIRVMagic)
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[4*(i+1):], w)
	}
	return b
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func newManager(t *testing.T, dirs ...string) *AssetManager {
	t.Helper()
	am, err := NewAssetManager()
	if err != nil {
		t.Fatal(err)
	}
	if err := am.Initialize(dirs...); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = am.Shutdown() })
	return am
}

func TestInitializeIndexesKnownTypes(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "a.vert.spv"), spirv(1))
	writeFile(t, filepath.Join(sub, "b.frag.spv"), spirv(2))
	writeFile(t, filepath.Join(dir, "settings.toml"), []byte("[log]\n"))
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("ignored"))

	am := newManager(t, dir)
	if am.Len() != 3 {
		t.Fatalf("indexed %d assets, want 3", am.Len())
	}
	info, ok := am.Lookup(filepath.Join(sub, "b.frag.spv"))
	if !ok || info.Type != resources.ResourceTypeShader {
		t.Errorf("lookup = %+v, %v", info, ok)
	}
	if _, ok := am.Lookup(filepath.Join(dir, "notes.txt")); ok {
		t.Error("unknown file type indexed")
	}
}

func TestInitializeMissingDirectory(t *testing.T) {
	am, err := NewAssetManager()
	if err != nil {
		t.Fatal(err)
	}
	defer am.Shutdown()
	if err := am.Initialize(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestLoadShaderStages(t *testing.T) {
	dir := t.TempDir()
	vert := filepath.Join(dir, "simple.vert.spv")
	frag := filepath.Join(dir, "simple.frag.spv")
	writeFile(t, vert, spirv(10, 11))
	writeFile(t, frag, spirv(20))

	am := newManager(t, dir)
	stages, err := am.LoadShaderStages(context.Background(), vert, frag)
	if err != nil {
		t.Fatal(err)
	}
	if len(stages) != 2 || len(stages[0]) != 3 || stages[0][2] != 11 || stages[1][1] != 20 {
		t.Errorf("stages = %v", stages)
	}

	if _, err := am.LoadShaderStages(context.Background(), vert, filepath.Join(dir, "nope.spv")); err == nil {
		t.Error("expected error for unindexed stage")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := am.LoadShaderStages(ctx, vert); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestShaderLoaderRejectsMalformedModules(t *testing.T) {
	dir := t.TempDir()
	cases := map[string][]byte{
		"odd.spv":   append(spirv(1), 0xff),
		"magic.spv": {1, 2, 3, 4},
		"empty.spv": {},
	}
	for name, data := range cases {
		writeFile(t, filepath.Join(dir, name), data)
	}
	am := newManager(t, dir)
	for name := range cases {
		if _, err := am.LoadAsset(filepath.Join(dir, name), nil); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestWatcherPublishesChanges(t *testing.T) {
	dir := t.TempDir()
	am := newManager(t, dir)

	path := filepath.Join(dir, "hot.toml")
	writeFile(t, path, []byte("[physics]\n"))

	timeout := time.After(5 * time.Second)
	for {
		select {
		case c := <-am.Changes():
			if c.Path != path {
				continue
			}
			if c.Op != ChangeWritten || c.Type != resources.ResourceTypeConfig {
				t.Errorf("change = %+v", c)
			}
			if _, ok := am.Lookup(path); !ok {
				t.Error("changed file not indexed")
			}
			return
		case <-timeout:
			t.Fatal("no change notification received")
		}
	}
}

func TestShutdownClosesChanges(t *testing.T) {
	am := newManager(t, t.TempDir())
	if err := am.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-am.Changes(); ok {
		t.Error("changes channel still open")
	}
	if err := am.Shutdown(); err != nil {
		t.Error("second shutdown should be a no-op")
	}
}
