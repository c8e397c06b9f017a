package main

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// render serializes v as JSON or YAML.
//
// YAML goes through the JSON encoding first so json tags and custom
// MarshalJSON methods decide the keys, and key order is kept.
func render(v any, format string) ([]byte, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "yaml":
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		blockStyle(&doc)
		return yaml.Marshal(&doc)
	default:
		return nil, fmt.Errorf("unsupported format %q (want json or yaml)", format)
	}
}

// blockStyle clears the flow and quoting styles carried over from JSON.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
