package models

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// ErrUnknownState is returned when a state code or name is not in the state table.
var ErrUnknownState = errors.Base("unknown state")

// StateTag is a lifecycle state of a file transfer with the cloud SLA contract.
type StateTag int

const (
	StateDefaultValue StateTag = iota
	StateUploadRequested
	StateUploadRequestAck
	StateUploadTransferAck
	StateUploaded
	StateDeleteRequested
	StateDeleted
	StateReadRequested
	StateReadRequestAck
	StateReadDeny
)

// stateNames is indexed by code; the order is part of the contract wire format.
var stateNames = []string{
	StateDefaultValue:      "defaultValue",
	StateUploadRequested:   "uploadRequested",
	StateUploadRequestAck:  "uploadRequestAck",
	StateUploadTransferAck: "uploadTransferAck",
	StateUploaded:          "uploaded",
	StateDeleteRequested:   "deleteRequested",
	StateDeleted:           "deleted",
	StateReadRequested:     "readRequested",
	StateReadRequestAck:    "readRequestAck",
	StateReadDeny:          "readDeny",
}

// StateTags returns every known state in code order.
func StateTags() []StateTag {
	tags := make([]StateTag, len(stateNames))
	for i := range stateNames {
		tags[i] = StateTag(i)
	}
	return tags
}

// Valid reports whether s is a code of the state table.
func (s StateTag) Valid() bool {
	return s >= 0 && int(s) < len(stateNames)
}

// Code returns the numeric code of s.
func (s StateTag) Code() int {
	return int(s)
}

func (s StateTag) String() string {
	if !s.Valid() {
		return "StateTag(" + strconv.Itoa(int(s)) + ")"
	}
	return stateNames[s]
}

// StateFromCode converts a numeric code into a StateTag.
func StateFromCode(code int) (StateTag, error) {
	if code < 0 || code >= len(stateNames) {
		return 0, errors.Errorf("%w: code %d", ErrUnknownState, code)
	}
	return StateTag(code), nil
}

// ParseStateTag converts a state name into a StateTag.
func ParseStateTag(name string) (StateTag, error) {
	for i, n := range stateNames {
		if n == name {
			return StateTag(i), nil
		}
	}
	return 0, errors.Errorf("%w: %q", ErrUnknownState, name)
}

// ParseStateValue accepts either a state name or its decimal code.
func ParseStateValue(v string) (StateTag, error) {
	if code, err := strconv.Atoi(v); err == nil {
		return StateFromCode(code)
	}
	return ParseStateTag(v)
}

// MarshalText writes the state name.
func (s StateTag) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, errors.Errorf("%w: code %d", ErrUnknownState, int(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText reads a state name or decimal code.
func (s *StateTag) UnmarshalText(text []byte) error {
	tag, err := ParseStateValue(string(text))
	if err != nil {
		return err
	}
	*s = tag
	return nil
}

// UnmarshalJSON accepts a code (4), a name ("uploaded") or a tag object
// exposing a numeric code field ({"code": 4}). Other object fields are ignored.
func (s *StateTag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.Errorf("%w: empty value", ErrUnknownState)
	}

	var (
		tag StateTag
		err error
	)
	switch data[0] {
	case '"':
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return errors.Errorf("decoding state name: %w", err)
		}
		tag, err = ParseStateTag(name)
	case '{':
		var obj struct {
			Code *int `json:"code"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return errors.Errorf("decoding state object: %w", err)
		}
		if obj.Code == nil {
			return errors.Errorf("%w: object has no code field", ErrUnknownState)
		}
		tag, err = StateFromCode(*obj.Code)
	default:
		var code int
		if err := json.Unmarshal(data, &code); err != nil {
			return errors.Errorf("decoding state code: %w", err)
		}
		tag, err = StateFromCode(code)
	}
	if err != nil {
		return err
	}
	*s = tag
	return nil
}

// UnmarshalYAML accepts a scalar holding a state name or code.
func (s *StateTag) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return errors.Errorf("%w: line %d: expected a scalar", ErrUnknownState, value.Line)
	}
	tag, err := ParseStateValue(value.Value)
	if err != nil {
		return errors.Errorf("line %d: %w", value.Line, err)
	}
	*s = tag
	return nil
}
