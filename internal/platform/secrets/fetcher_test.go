package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeSecretManager struct {
	responses map[string]string
	err       error
	calls     int
}

func (f *fakeSecretManager) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	value, ok := f.responses[req.GetName()]
	if !ok {
		return nil, status.Error(codes.NotFound, "secret not found")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}, nil
}

func (f *fakeSecretManager) Close() error { return nil }

func TestResolveRemoteAndCache(t *testing.T) {
	client := &fakeSecretManager{
		responses: map[string]string{
			"projects/tiendaflow-test/secrets/carrier-tcc/versions/latest": "api-key-1",
		},
	}

	fetcher, err := NewFetcher(context.Background(),
		WithProject("tiendaflow-test"),
		WithSecretManagerClient(client),
		WithFallbackFile(""),
	)
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}

	value, err := fetcher.Resolve(context.Background(), "secret://carrier-tcc")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if value != "api-key-1" {
		t.Errorf("Resolve = %q, want api-key-1", value)
	}

	if _, err := fetcher.Resolve(context.Background(), "secret://carrier-tcc"); err != nil {
		t.Fatalf("second Resolve returned error: %v", err)
	}
	if client.calls != 1 {
		t.Errorf("secret manager calls = %d, want 1 (second hit served from cache)", client.calls)
	}
}

func TestResolveVersionAndProjectOverride(t *testing.T) {
	client := &fakeSecretManager{
		responses: map[string]string{
			"projects/other-proj/secrets/carrier-envia/versions/3": "pinned",
		},
	}

	fetcher, err := NewFetcher(context.Background(),
		WithProject("tiendaflow-test"),
		WithSecretManagerClient(client),
		WithFallbackFile(""),
	)
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}

	value, err := fetcher.Resolve(context.Background(), "secret://carrier-envia?version=3&project=other-proj")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if value != "pinned" {
		t.Errorf("Resolve = %q, want pinned", value)
	}
}

func TestResolveFallbackFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".secrets.local")
	contents := "# local secrets\nsm://carrier-servientrega=local-key\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write fallback file: %v", err)
	}

	client := &fakeSecretManager{err: status.Error(codes.PermissionDenied, "no access")}

	fetcher, err := NewFetcher(context.Background(),
		WithProject("tiendaflow-test"),
		WithSecretManagerClient(client),
		WithFallbackFile(path),
	)
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}

	value, err := fetcher.Resolve(context.Background(), "secret://carrier-servientrega")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if value != "local-key" {
		t.Errorf("Resolve = %q, want local-key", value)
	}
}

func TestResolveRejectsUnknownScheme(t *testing.T) {
	fetcher, err := NewFetcher(context.Background(),
		WithSecretManagerClient(&fakeSecretManager{}),
		WithFallbackFile(""),
	)
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}

	if _, err := fetcher.Resolve(context.Background(), "vault://nope"); err == nil {
		t.Fatal("Resolve accepted unsupported scheme, want error")
	}
}
