package fetcher

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/open-edge-platform/cef-composer/internal/errdefs"
	"github.com/open-edge-platform/cef-composer/internal/utils/logger"
)

// Supported checksum algorithms.
const (
	SHA1   = "sha1"
	SHA256 = "sha256"
)

func newHash(algo string) (hash.Hash, error) {
	switch strings.ToLower(algo) {
	case SHA1:
		return sha1.New(), nil
	case SHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("unsupported checksum algorithm %q", algo)
	}
}

// ComputeChecksum returns the lowercase hex digest of the file at path.
func ComputeChecksum(path, algo string) (string, error) {
	h, err := newHash(algo)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ParseChecksumFile extracts the digest from the contents of a published
// checksum file. Both a bare digest and the "<digest>  <name>" form are accepted.
func ParseChecksumFile(data []byte) (string, error) {
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", fmt.Errorf("empty checksum file")
	}
	sum := fields[0]
	if _, err := hex.DecodeString(sum); err != nil {
		return "", fmt.Errorf("malformed checksum %q", sum)
	}
	return strings.ToLower(sum), nil
}

// VerifyChecksum compares the digest of path against expected.
func VerifyChecksum(path, algo, expected string) error {
	log := logger.Named("fetcher")

	actual, err := ComputeChecksum(path, algo)
	if err != nil {
		return errdefs.New(errdefs.ErrFetchFailed, "verify checksum", err).WithPath(path)
	}
	if !strings.EqualFold(actual, strings.TrimSpace(expected)) {
		log.Errorf("checksum mismatch for %s: expected %s, got %s", path, expected, actual)
		return errdefs.New(errdefs.ErrFetchFailed, "verify checksum",
			fmt.Errorf("%s mismatch: expected %s, got %s", algo, expected, actual)).WithPath(path)
	}
	log.Infof("checksum verified for %s", path)
	return nil
}

// VerifySignature checks the armored detached OpenPGP signature at sigPath
// for the file at path against the armored public key ring at keyPath.
func VerifySignature(path, sigPath, keyPath string) error {
	log := logger.Named("fetcher")

	fail := func(err error) error {
		return errdefs.New(errdefs.ErrFetchFailed, "verify signature", err).WithPath(path)
	}

	keyringBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return fail(fmt.Errorf("failed to read public key: %w", err))
	}
	signature, err := os.ReadFile(sigPath)
	if err != nil {
		return fail(fmt.Errorf("failed to read signature: %w", err))
	}
	keyring, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(keyringBytes))
	if err != nil {
		return fail(fmt.Errorf("failed to parse public key: %w", err))
	}

	data, err := os.Open(path)
	if err != nil {
		return fail(err)
	}
	defer data.Close()

	signer, err := openpgp.CheckArmoredDetachedSignature(keyring, data, bytes.NewReader(signature), &packet.Config{})
	if err != nil {
		return fail(fmt.Errorf("signature verification failed: %w", err))
	}
	if signer != nil && signer.PrimaryKey != nil {
		log.Infof("signature verified for %s (key %s)", path, signer.PrimaryKey.KeyIdString())
	} else {
		log.Infof("signature verified for %s", path)
	}
	return nil
}
