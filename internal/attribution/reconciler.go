// Package attribution reconciles the agent's claimed citations against
// canonical document records. The citation mechanism is a textual convention
// inside a prompt, not a structural guarantee, so every claim is treated as
// untrusted input.
package attribution

import (
	"strings"

	"docuchat/internal/model"
)

// Accepted is one validated citation with the ordinal position it was first
// cited at (1-based).
type Accepted struct {
	Document model.Document
	Order    int
}

// Result splits the agent's claims into validated references and names that
// matched no stored document.
type Result struct {
	Accepted  []Accepted
	Discarded []string
}

// AcceptedFilenames returns the accepted filenames in citation order.
func (r *Result) AcceptedFilenames() []string {
	names := make([]string, len(r.Accepted))
	for i, a := range r.Accepted {
		names[i] = a.Document.Filename
	}
	return names
}

// Resolve looks up a canonical document by exact filename. A missing document
// is (nil, nil), not an error, matching the repository convention.
type Resolve func(filename string) (*model.Document, error)

// Reconcile walks the claimed filenames in order. The first successful match
// of a filename is accepted with the next ordinal; repeats are dropped
// silently; unmatched names are collected as discards. The caller runs this
// inside the same transaction that persists the interaction so usage rows and
// the interaction commit together.
func Reconcile(claims []string, resolve Resolve) (*Result, error) {
	result := &Result{}
	seen := make(map[string]bool, len(claims))

	for _, claim := range claims {
		name := strings.TrimSpace(claim)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		doc, err := resolve(name)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			result.Discarded = append(result.Discarded, name)
			continue
		}
		result.Accepted = append(result.Accepted, Accepted{
			Document: *doc,
			Order:    len(result.Accepted) + 1,
		})
	}
	return result, nil
}
