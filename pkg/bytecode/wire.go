package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Canonical CBOR so the same program always encodes to the same bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalProgram serializes a Program to CBOR bytes for transport to a
// target board or between processes. The encoding is deterministic.
func MarshalProgram(p *Program) ([]byte, error) {
	return cborEncMode.Marshal(p)
}

// UnmarshalProgram deserializes a Program from CBOR bytes. The result is
// untrusted until it has passed the verifier; loading is the VM's job.
func UnmarshalProgram(data []byte) (*Program, error) {
	var p Program
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal program: %w", err)
	}
	if p.Version > FormatVersion {
		return nil, fmt.Errorf("bytecode: program version %d is newer than supported version %d", p.Version, FormatVersion)
	}
	return &p, nil
}
