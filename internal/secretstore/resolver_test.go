package secretstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

type countingProvider struct {
	calls int
	value string
}

func (p *countingProvider) Resolve(_ context.Context, _ string) (string, error) {
	p.calls++
	return p.value, nil
}

func TestParseRef(t *testing.T) {
	cases := []struct {
		in       string
		def      string
		ok       bool
		wantErr  bool
		provider string
		path     string
	}{
		{in: "plain-key", ok: false},
		{in: "secret://ssm/directory/api-key", ok: true, provider: "ssm", path: "directory/api-key"},
		{in: "secret:///directory/api-key", def: "vault", ok: true, provider: "vault", path: "directory/api-key"},
		{in: "secret:///directory/api-key", ok: true, wantErr: true},
		{in: "secret://ssm", ok: true, wantErr: true},
		{in: "secret://", ok: true, wantErr: true},
	}
	for _, tc := range cases {
		ref, ok, err := ParseRef(tc.in, tc.def)
		if ok != tc.ok {
			t.Fatalf("%s: ok=%v, want %v", tc.in, ok, tc.ok)
		}
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: err=%v, wantErr=%v", tc.in, err, tc.wantErr)
		}
		if err == nil && ok && (ref.Provider != tc.provider || ref.Path != tc.path) {
			t.Fatalf("%s: got %+v", tc.in, ref)
		}
	}
}

func TestResolverCachesValues(t *testing.T) {
	provider := &countingProvider{value: "k3y"}
	r := NewResolverWithProviders(map[string]Provider{"ssm": provider}, "ssm")
	for i := 0; i < 2; i++ {
		val, err := r.Resolve(context.Background(), "secret:///directory/api-key")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if val != "k3y" {
			t.Fatalf("value=%q", val)
		}
	}
	if provider.calls != 1 {
		t.Fatalf("provider called %d times, want 1", provider.calls)
	}
}

func TestResolverPassesLiteralsThrough(t *testing.T) {
	r := NewResolverWithProviders(nil, "")
	val, err := r.Resolve(context.Background(), "literal")
	if err != nil || val != "literal" {
		t.Fatalf("val=%q err=%v", val, err)
	}
}

func TestResolverUnknownProvider(t *testing.T) {
	r := NewResolverWithProviders(nil, "")
	if _, err := r.Resolve(context.Background(), "secret://vault/x"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestNewResolverBuildsFileAndEnvProviders(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "secrets.yaml"), []byte("directory:\n  api-key: from-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("SG_DIRECTORY_API_KEY", "from-env")
	r, err := NewResolver(context.Background(), Config{
		DefaultProvider: "file",
		Providers: map[string]ProviderConfig{
			"file": {Type: "file", Path: "secrets.yaml"},
			"env":  {Type: "env", Prefix: "SG_"},
		},
	}, ResolverOptions{BaseDir: dir})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	if got := r.ProviderNames(); len(got) != 2 || got[0] != "env" || got[1] != "file" {
		t.Fatalf("providers=%v", got)
	}
	val, err := r.Resolve(context.Background(), "secret:///directory/api-key")
	if err != nil || val != "from-file" {
		t.Fatalf("file: val=%q err=%v", val, err)
	}
	val, err = r.Resolve(context.Background(), "secret://env/directory/api-key")
	if err != nil || val != "from-env" {
		t.Fatalf("env: val=%q err=%v", val, err)
	}
}

func TestNewResolverRejectsUnknownType(t *testing.T) {
	_, err := NewResolver(context.Background(), Config{Providers: map[string]ProviderConfig{"x": {Type: "gcp"}}}, ResolverOptions{})
	if err == nil {
		t.Fatalf("expected error")
	}
}
