// Package describe renders file transfer records as human readable text.
package describe

import (
	"fmt"
	"strings"

	"github.com/chmdznr/filetx/pkg/models"
	"gitlab.com/tozd/go/errors"
)

// Labels of the description lines, in output order.
const (
	LabelPathHash = "Hash of filepath"
	LabelStates   = "States"
	LabelOnCloud  = "OnCloud"
	LabelDigests  = "Digests"
	LabelURL      = "Url"
)

// listSeparator joins sequence fields.
const listSeparator = ","

// Formatter turns a record into its text description.
type Formatter interface {
	Describe(tx models.FileTx) (string, error)
}

// DefaultFormatter implements Formatter with the package level Describe.
type DefaultFormatter struct{}

// NewDefaultFormatter creates a new DefaultFormatter
func NewDefaultFormatter() *DefaultFormatter {
	return &DefaultFormatter{}
}

// Describe implements Formatter.
func (f *DefaultFormatter) Describe(tx models.FileTx) (string, error) {
	return Describe(tx)
}

// StateNames maps each tag to its name, preserving order. The result has the
// same length as tags and is never nil.
func StateNames(tags []models.StateTag) ([]string, error) {
	names := make([]string, len(tags))
	for i, tag := range tags {
		if !tag.Valid() {
			return nil, errors.Errorf("%w: states[%d] has code %d", models.ErrUnknownState, i, tag.Code())
		}
		names[i] = tag.String()
	}
	return names, nil
}

// Describe returns one labeled line per record field:
//
//	Hash of filepath: <path hash>
//	States: <state names, comma separated>
//	OnCloud: <true|false>
//	Digests: <digests, comma separated>
//	Url: <url>
//
// There is no trailing newline.
func Describe(tx models.FileTx) (string, error) {
	names, err := StateNames(tx.States)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", LabelPathHash, tx.PathHash)
	fmt.Fprintf(&b, "%s: %s\n", LabelStates, strings.Join(names, listSeparator))
	fmt.Fprintf(&b, "%s: %t\n", LabelOnCloud, tx.OnCloud)
	fmt.Fprintf(&b, "%s: %s\n", LabelDigests, strings.Join(tx.Digests, listSeparator))
	fmt.Fprintf(&b, "%s: %s", LabelURL, tx.URL)
	return b.String(), nil
}
