package terraform

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// DirState is the declared-state summary of a Terraform directory, used
// to fingerprint infrastructure snapshots.
type DirState struct {
	// Resources maps resource addresses (type.name) to a short summary.
	Resources map[string]string
	// ResourceCount is the number of declared resources.
	ResourceCount int
	// StateHash is a stable digest over the declared resources.
	StateHash string
	// Errors collects per-file parse failures; they do not abort the scan.
	Errors []error
}

// ScanDir parses every .tf file in dir and fingerprints the declared
// resources. Individual file parse errors are collected, not fatal.
func ScanDir(dir string) (*DirState, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read terraform directory: %w", err)
	}

	state := &DirState{Resources: make(map[string]string)}
	parser := hclparse.NewParser()

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".tf" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		file, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			state.Errors = append(state.Errors, fmt.Errorf("%s: %s", entry.Name(), diags.Error()))
			continue
		}

		body, ok := file.Body.(*hclsyntax.Body)
		if !ok {
			continue
		}

		for _, block := range body.Blocks {
			if block.Type != "resource" || len(block.Labels) != 2 {
				continue
			}
			address := block.Labels[0] + "." + block.Labels[1]
			state.Resources[address] = summarizeBlock(block)
		}
	}

	state.ResourceCount = len(state.Resources)
	state.StateHash = hashResources(state.Resources)
	return state, nil
}

// summarizeBlock builds a short fingerprintable summary of a resource
// block: attribute names plus any literal values that evaluate without
// context.
func summarizeBlock(block *hclsyntax.Block) string {
	names := make([]string, 0, len(block.Body.Attributes))
	for name := range block.Body.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		attr := block.Body.Attributes[name]
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() || !val.IsWhollyKnown() || val == cty.NilVal {
			parts = append(parts, name)
			continue
		}
		parts = append(parts, name+"="+val.GoString())
	}

	if n := len(block.Body.Blocks); n > 0 {
		parts = append(parts, fmt.Sprintf("%d nested blocks", n))
	}
	return strings.Join(parts, ", ")
}

// hashResources digests the sorted resource addresses and summaries so
// the hash is independent of file and map ordering.
func hashResources(resources map[string]string) string {
	addresses := make([]string, 0, len(resources))
	for addr := range resources {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	h := sha256.New()
	for _, addr := range addresses {
		h.Write([]byte(addr))
		h.Write([]byte{'|'})
		h.Write([]byte(resources[addr]))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
