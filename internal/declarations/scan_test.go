package declarations

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestScanCollectsLiteralDeclarations(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/app.yaml", "stack_name: alpha\nregion: us-east-1\n")
	writeFile(t, root, "b/deep/db.yaml", "stack_name: \"beta\"\n")
	writeFile(t, root, "c/indented.yaml", "  stack_name: not-counted\n# stack_name: commented\n")
	writeFile(t, root, "d/config.json", "{\"stack_name\": \"json-style\"}\n")

	names, err := Scan(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if got := names.Sorted(); !reflect.DeepEqual(got, []string{"alpha", "beta"}) {
		t.Fatalf("names=%v", got)
	}
}

func TestScanHonorsExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "stacks/app.yaml", "stack_name: keep\n")
	writeFile(t, root, "vendor/lib/app.yaml", "stack_name: vendored\n")
	writeFile(t, root, ".git/HEAD", "stack_name: git-internal\n")
	writeFile(t, root, "stacks/skip.tmpl", "stack_name: template\n")

	names, err := Scan(context.Background(), root, Options{Exclude: []string{".git", "vendor", "**/*.tmpl"}})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if got := names.Sorted(); !reflect.DeepEqual(got, []string{"keep"}) {
		t.Fatalf("names=%v", got)
	}
}

func TestScanSkipsBinaryFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "blob.bin", "stack_name: binary\x00\x01")
	names, err := Scan(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if names.Len() != 0 {
		t.Fatalf("expected no names, got %v", names.Sorted())
	}
}

func TestScanCustomKey(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "x.yaml", "name: custom\nstack_name: other\n")
	names, err := Scan(context.Background(), root, Options{Key: "name"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if got := names.Sorted(); !reflect.DeepEqual(got, []string{"custom"}) {
		t.Fatalf("names=%v", got)
	}
}

func TestScanMissingRootFails(t *testing.T) {
	if _, err := Scan(context.Background(), filepath.Join(t.TempDir(), "missing"), Options{}); err == nil {
		t.Fatalf("expected error for missing root")
	}
}

func TestScanCanceledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "x.yaml", "stack_name: x\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Scan(ctx, root, Options{}); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestScanManyFiles(t *testing.T) {
	root := t.TempDir()
	want := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		name := fmt.Sprintf("stack-%02d", i)
		want = append(want, name)
		writeFile(t, root, filepath.Join(fmt.Sprintf("dir%d", i%5), name+".yaml"), "stack_name: "+name+"\n")
	}
	names, err := Scan(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if got := names.Sorted(); !reflect.DeepEqual(got, want) {
		t.Fatalf("names=%v", got)
	}
}
