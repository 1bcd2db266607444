package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for a future encoding change.
const (
	DomainNetwork = "chipflow/network/v1"
	DomainTrace   = "chipflow/trace/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CanonicalInstructions encodes an instruction list as an IRArray.
func CanonicalInstructions(instrs []Instruction) (IRArray, error) {
	arr := make(IRArray, len(instrs))
	for i, in := range instrs {
		obj, err := in.canonicalObject()
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		arr[i] = obj
	}
	return arr, nil
}

// NetworkHash computes the content hash of an instruction list.
// Two runs over the same instructions in the same order share a hash,
// regardless of where the instructions were loaded from.
func NetworkHash(instrs []Instruction) (string, error) {
	arr, err := CanonicalInstructions(instrs)
	if err != nil {
		return "", fmt.Errorf("NetworkHash: %w", err)
	}
	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("NetworkHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainNetwork, canonical), nil
}

// TraceHash computes the content hash of an already-canonical trace document.
func TraceHash(canonical []byte) string {
	return hashWithDomain(DomainTrace, canonical)
}

// MustNetworkHash is like NetworkHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustNetworkHash(instrs []Instruction) string {
	h, err := NetworkHash(instrs)
	if err != nil {
		panic(err)
	}
	return h
}
