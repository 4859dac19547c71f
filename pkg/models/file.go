package models

import (
	"bytes"

	"github.com/goccy/go-json"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// ErrShortRecord is returned when a positional record has fewer than five fields.
var ErrShortRecord = errors.Base("record has fewer than five fields")

// recordFields is the length of the positional record form.
const recordFields = 5

// FileTx represents one file tracked by the cloud SLA contract
type FileTx struct {
	PathHash string     `json:"pathHash" yaml:"pathHash"`
	States   []StateTag `json:"states" yaml:"states"`
	OnCloud  bool       `json:"onCloud" yaml:"onCloud"`
	Digests  []string   `json:"digests" yaml:"digests"`
	URL      string     `json:"url" yaml:"url"`
}

// NewFileTx builds a validated FileTx. The slices are copied.
func NewFileTx(pathHash string, states []StateTag, onCloud bool, digests []string, url string) (FileTx, error) {
	tx := FileTx{
		PathHash: pathHash,
		States:   append([]StateTag(nil), states...),
		OnCloud:  onCloud,
		Digests:  append([]string(nil), digests...),
		URL:      url,
	}
	if err := tx.Validate(); err != nil {
		return FileTx{}, err
	}
	return tx, nil
}

// Validate checks that every state is a known code.
func (f FileTx) Validate() error {
	for i, s := range f.States {
		if !s.Valid() {
			return errors.Errorf("%w: states[%d] has code %d", ErrUnknownState, i, s.Code())
		}
	}
	return nil
}

// fileTxObject mirrors FileTx with digests left raw, since they may be a
// single string or a list.
type fileTxObject struct {
	PathHash string          `json:"pathHash"`
	States   []StateTag      `json:"states"`
	OnCloud  bool            `json:"onCloud"`
	Digests  json.RawMessage `json:"digests"`
	URL      string          `json:"url"`
}

// UnmarshalJSON accepts the named object form and the positional form
// [pathHash, states, onCloud, digests, url] returned by the contract.
func (f *FileTx) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return f.unmarshalTuple(data)
	}

	var obj fileTxObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return errors.Errorf("decoding record: %w", err)
	}
	digests, err := decodeDigests(obj.Digests)
	if err != nil {
		return err
	}

	tx := FileTx{
		PathHash: obj.PathHash,
		States:   obj.States,
		OnCloud:  obj.OnCloud,
		Digests:  digests,
		URL:      obj.URL,
	}
	if err := tx.Validate(); err != nil {
		return err
	}
	*f = tx
	return nil
}

func (f *FileTx) unmarshalTuple(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return errors.Errorf("decoding record: %w", err)
	}
	if len(parts) < recordFields {
		return errors.Errorf("%w: got %d", ErrShortRecord, len(parts))
	}

	var tx FileTx
	if err := json.Unmarshal(parts[0], &tx.PathHash); err != nil {
		return errors.Errorf("decoding path hash: %w", err)
	}
	if err := json.Unmarshal(parts[1], &tx.States); err != nil {
		return errors.Errorf("decoding states: %w", err)
	}
	if err := json.Unmarshal(parts[2], &tx.OnCloud); err != nil {
		return errors.Errorf("decoding onCloud: %w", err)
	}
	digests, err := decodeDigests(parts[3])
	if err != nil {
		return err
	}
	tx.Digests = digests
	if err := json.Unmarshal(parts[4], &tx.URL); err != nil {
		return errors.Errorf("decoding url: %w", err)
	}

	if err := tx.Validate(); err != nil {
		return err
	}
	*f = tx
	return nil
}

func decodeDigests(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var single string
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, errors.Errorf("decoding digests: %w", err)
		}
		return []string{single}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, errors.Errorf("decoding digests: %w", err)
	}
	return list, nil
}

// UnmarshalYAML accepts a mapping with the named fields or a sequence in
// positional order.
func (f *FileTx) UnmarshalYAML(value *yaml.Node) error {
	var tx FileTx
	switch value.Kind {
	case yaml.MappingNode:
		var obj struct {
			PathHash string     `yaml:"pathHash"`
			States   []StateTag `yaml:"states"`
			OnCloud  bool       `yaml:"onCloud"`
			Digests  yaml.Node  `yaml:"digests"`
			URL      string     `yaml:"url"`
		}
		if err := value.Decode(&obj); err != nil {
			return errors.Errorf("decoding record at line %d: %w", value.Line, err)
		}
		digests, err := decodeYAMLDigests(&obj.Digests)
		if err != nil {
			return err
		}
		tx = FileTx{PathHash: obj.PathHash, States: obj.States, OnCloud: obj.OnCloud, Digests: digests, URL: obj.URL}
	case yaml.SequenceNode:
		if len(value.Content) < recordFields {
			return errors.Errorf("%w: line %d: got %d", ErrShortRecord, value.Line, len(value.Content))
		}
		fields := value.Content
		if err := fields[0].Decode(&tx.PathHash); err != nil {
			return errors.Errorf("decoding path hash: %w", err)
		}
		if err := fields[1].Decode(&tx.States); err != nil {
			return errors.Errorf("decoding states: %w", err)
		}
		if err := fields[2].Decode(&tx.OnCloud); err != nil {
			return errors.Errorf("decoding onCloud: %w", err)
		}
		digests, err := decodeYAMLDigests(fields[3])
		if err != nil {
			return err
		}
		tx.Digests = digests
		if err := fields[4].Decode(&tx.URL); err != nil {
			return errors.Errorf("decoding url: %w", err)
		}
	default:
		return errors.Errorf("line %d: record must be a mapping or a sequence", value.Line)
	}

	if err := tx.Validate(); err != nil {
		return err
	}
	*f = tx
	return nil
}

func decodeYAMLDigests(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case 0:
		return nil, nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil, nil
		}
		return []string{node.Value}, nil
	default:
		var list []string
		if err := node.Decode(&list); err != nil {
			return nil, errors.Errorf("decoding digests at line %d: %w", node.Line, err)
		}
		return list, nil
	}
}
