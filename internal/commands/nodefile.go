package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hay-kot/chanfeed/internal/core/binnode"
)

// readNode decodes a response node in fixture form from path, or from r when
// path is "-".
func readNode(path string, r io.Reader) (*binnode.Node, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(r)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read node: %w", err)
	}

	var n binnode.Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("parse node: %w", err)
	}
	return &n, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
