package export

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/itchyny/gojq"

	"github.com/Neumenon/atff/atff"
)

// Query runs a jq expression over the JSON projection of d and returns
// every result in order.
//
//	Query(doc, `.sections[] | select(.name == "server") | .entries[].key`)
func Query(d *atff.Document, expr string) ([]any, error) {
	q, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("query: parse: %w", err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("query: compile: %w", err)
	}

	// gojq works on the generic JSON data model.
	b, err := json.Marshal(FromDocument(d))
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	var input any
	if err := json.Unmarshal(b, &input); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	var out []any
	iter := code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				break
			}
			return nil, fmt.Errorf("query: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}
