package store

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const defaultMachineIDPaths = "/etc/machine-id:/var/lib/dbus/machine-id"

// ServerIdentity is the stable per-server identifier written into
// managed_by. It never rotates: losing it (e.g. a replaced machine)
// just means a server never reclaims its own orphaned rows, which is
// left to an out-of-band janitor.
type ServerIdentity [32]byte

func (id ServerIdentity) String() string {
	return fmt.Sprintf("%x", id[:])
}

// readServerIdentity hashes the first machine-local secret it can read
// from the colon-separated candidate paths (env override first) with
// blake2b-256, producing the 32-byte managed_by identity. It fails
// rather than inventing an identity, since a server must not run with an
// identity it cannot reproduce after a restart.
func readServerIdentity() (ServerIdentity, error) {
	paths := defaultMachineIDPaths
	if override := os.Getenv("MACHINE_ID_PATH"); override != "" {
		paths = override
	}

	var lastErr error
	for _, path := range strings.Split(paths, ":") {
		data, err := os.ReadFile(path)
		if err != nil {
			lastErr = err
			continue
		}
		return blake2b.Sum256(bytesTrimSpace(data)), nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no machine id candidate paths configured")
	}
	return ServerIdentity{}, fmt.Errorf("store: reading server identity: %w", lastErr)
}

func bytesTrimSpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isSpace(b[start]) {
		start++
	}
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
