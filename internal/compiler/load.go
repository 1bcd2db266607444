package compiler

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/roach88/chipflow/internal/ir"
	"github.com/roach88/chipflow/internal/parse"
)

// LoadNetwork loads a network from path, choosing the format by extension:
// .cue files are compiled with LoadFile, anything else is parsed as puzzle text.
// A network without a name is named after the file.
func LoadNetwork(path string) (*ir.Network, error) {
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		return LoadFile(path)
	}

	instrs, err := parse.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return &ir.Network{
		Name:         strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Instructions: instrs,
	}, nil
}

// LoadNetworkString parses inline puzzle text into a network called name.
func LoadNetworkString(name, text string) (*ir.Network, error) {
	instrs, err := parse.ParseString(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &ir.Network{Name: name, Instructions: instrs}, nil
}
