// Package file loads pool inventories from JSONL, JSON or YAML files.
package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"routeScope/internal/model"
)

const maxLineSize = 1 << 20

// Source reads a pool inventory file on every fetch, so edits are picked up
// on the next refresh.
type Source struct {
	path string
}

func NewSource(path string) *Source {
	return &Source{path: path}
}

func (s *Source) Name() string {
	return "file:" + filepath.Base(s.path)
}

// FetchPools loads the file.
func (s *Source) FetchPools(ctx context.Context) ([]model.Pool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Load(s.path)
}

// Load decodes pools from path. The format follows the extension: .jsonl is
// one pool per line, .json and .yaml hold either a list of pools or an object
// with a "pools" list.
func Load(path string) ([]model.Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pools file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".jsonl", ".ndjson":
		return DecodeJSONL(data)
	case ".json":
		return decodeJSON(data)
	case ".yaml", ".yml":
		return decodeYAML(data)
	default:
		return nil, fmt.Errorf("unsupported pools file extension %q", ext)
	}
}

// DecodeJSONL decodes one pool per non-blank line.
func DecodeJSONL(data []byte) ([]model.Pool, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var pools []model.Pool
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var pool model.Pool
		if err := json.Unmarshal(line, &pool); err != nil {
			return nil, fmt.Errorf("decode pool at line %d: %w", lineNo, err)
		}
		pools = append(pools, pool)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan pools file: %w", err)
	}
	return pools, nil
}

type document struct {
	Pools []model.Pool `json:"pools" yaml:"pools"`
}

func decodeJSON(data []byte) ([]model.Pool, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var pools []model.Pool
		if err := json.Unmarshal(trimmed, &pools); err != nil {
			return nil, fmt.Errorf("decode pools: %w", err)
		}
		return pools, nil
	}
	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decode pools document: %w", err)
	}
	return doc.Pools, nil
}

func decodeYAML(data []byte) ([]model.Pool, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode pools yaml: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	node := root.Content[0]
	if node.Kind == yaml.SequenceNode {
		var pools []model.Pool
		if err := node.Decode(&pools); err != nil {
			return nil, fmt.Errorf("decode pools: %w", err)
		}
		return pools, nil
	}
	var doc document
	if err := node.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode pools document: %w", err)
	}
	return doc.Pools, nil
}
