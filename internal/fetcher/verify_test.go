package fetcher

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/open-edge-platform/cef-composer/internal/errdefs"
)

func TestVerifyChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		algo     string
		expected string
		wantErr  bool
	}{
		{"sha1", SHA1, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", false},
		{"sha1 uppercase", "SHA1", "AAF4C61DDCC5E8A2DABEDE0F3B482CD9AEA9434D", false},
		{"sha256", SHA256, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", false},
		{"mismatch", SHA1, "0000000000000000000000000000000000000000", true},
		{"unknown algorithm", "md5", "5d41402abc4b2a76b9719d911017c592", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyChecksum(path, tt.algo, tt.expected)
			if (err != nil) != tt.wantErr {
				t.Fatalf("VerifyChecksum error = %v, wantErr %t", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errdefs.ErrFetchFailed) {
				t.Errorf("expected ErrFetchFailed, got %v", err)
			}
		})
	}

	if err := VerifyChecksum(filepath.Join(t.TempDir(), "missing"), SHA1, "00"); !errors.Is(err, errdefs.ErrFetchFailed) {
		t.Errorf("missing file: expected ErrFetchFailed, got %v", err)
	}
}

func TestParseChecksumFile(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"AAF4C61DDCC5E8A2DABEDE0F3B482CD9AEA9434D\n", "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", false},
		{"aaf4c61d  cef_binary.tar.bz2\n", "aaf4c61d", false},
		{"   \n", "", true},
		{"not-hex file", "", true},
	}
	for _, tt := range tests {
		got, err := ParseChecksumFile([]byte(tt.in))
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseChecksumFile(%q) error = %v, wantErr %t", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseChecksumFile(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVerifySignature(t *testing.T) {
	dir := t.TempDir()
	entity, err := openpgp.NewEntity("CEF Builds", "test", "builds@example.com", nil)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}

	var pub bytes.Buffer
	w, err := armor.Encode(&pub, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := entity.Serialize(w); err != nil {
		t.Fatal(err)
	}
	w.Close()

	archive := filepath.Join(dir, "cef.tar.bz2")
	keyPath := filepath.Join(dir, "key.asc")
	sigPath := filepath.Join(dir, "cef.tar.bz2.asc")
	content := []byte("distribution bytes")

	var sig bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&sig, entity, bytes.NewReader(content), nil); err != nil {
		t.Fatalf("signing: %v", err)
	}
	for path, data := range map[string][]byte{archive: content, keyPath: pub.Bytes(), sigPath: sig.Bytes()} {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := VerifySignature(archive, sigPath, keyPath); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}

	if err := os.WriteFile(archive, []byte("tampered bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	err = VerifySignature(archive, sigPath, keyPath)
	if !errors.Is(err, errdefs.ErrFetchFailed) {
		t.Fatalf("tampered file: expected ErrFetchFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "signature verification failed") {
		t.Errorf("unexpected error text: %v", err)
	}

	if err := VerifySignature(archive, sigPath, filepath.Join(dir, "nokey.asc")); !errors.Is(err, errdefs.ErrFetchFailed) {
		t.Errorf("missing key: expected ErrFetchFailed, got %v", err)
	}
}
