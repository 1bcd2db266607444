// Package ir provides the instruction set types shared by every chipflow package.
//
// This package contains type definitions and their canonical encoding only.
// All other internal packages import ir; ir imports nothing internal. This
// keeps ir the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Unit IDs, sink IDs and token values are unsigned integers, never floats
//   - A Target is a tagged value (unit or sink), never an interface
//   - All JSON tags use snake_case
//   - Content hashes use RFC 8785 canonical JSON with domain separation
package ir
