package replay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/or4cl3-ai-1/Chatron9/internal/plan"
)

// #region fixture-types

// Fixture is a recorded session to replay.
type Fixture struct {
	Description     string                  `json:"description"`
	Seed            uint64                  `json:"seed"`
	Requests        []FixtureRequest        `json:"requests"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureRequest is a planning request in its external shape plus an
// optional label. Unlabelled requests are numbered from 1.
type FixtureRequest struct {
	ID string `json:"id,omitempty"`
	plan.PlanningRequest
}

// FixtureExpectedResult pins the outcome of one request.
type FixtureExpectedResult struct {
	ID       string `json:"id"`
	Status   string `json:"status"`             // "ready" | "error"
	Strategy string `json:"strategy,omitempty"` // selected strategy name
	Fallback *bool  `json:"fallback,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads a fixture file. Three layouts are accepted: a Fixture
// object, a JSON array of requests, or one request per line.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	f, err := ParseFixture(data)
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return f, nil
}

// ParseFixture decodes fixture bytes in any of the LoadFixture layouts.
func ParseFixture(data []byte) (*Fixture, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty fixture")
	}

	var f Fixture
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &f.Requests); err != nil {
			return nil, err
		}
		return f.normalize(), nil
	}

	var values []json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	for {
		var v json.RawMessage
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	if len(values) == 1 {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(values[0], &probe); err != nil {
			return nil, err
		}
		if _, ok := probe["requests"]; ok {
			if err := json.Unmarshal(values[0], &f); err != nil {
				return nil, err
			}
			return f.normalize(), nil
		}
	}

	for i, v := range values {
		var r FixtureRequest
		if err := json.Unmarshal(v, &r); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		f.Requests = append(f.Requests, r)
	}
	return f.normalize(), nil
}

func (f *Fixture) normalize() *Fixture {
	for i := range f.Requests {
		if f.Requests[i].ID == "" {
			f.Requests[i].ID = fmt.Sprintf("%d", i+1)
		}
	}
	return f
}

// #endregion fixture-loader
