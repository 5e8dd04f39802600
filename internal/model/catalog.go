package model

import (
	"errors"
	"fmt"
	"strings"
)

// ID names one of the whisper models the catalog knows how to fetch.
type ID string

const (
	Tiny   ID = "tiny"
	Base   ID = "base"
	Small  ID = "small"
	Medium ID = "medium"
	Large  ID = "large"
)

var ErrUnknownModel = errors.New("unknown model")

// UnknownModelError reports an identifier outside the catalog together with
// the identifiers that would have been accepted.
type UnknownModelError struct {
	Input string
	Known []ID
}

func (e *UnknownModelError) Error() string {
	known := make([]string, 0, len(e.Known))
	for _, id := range e.Known {
		known = append(known, string(id))
	}
	return fmt.Sprintf("unknown model %q (known models: %s)", e.Input, strings.Join(known, ", "))
}

func (e *UnknownModelError) Is(target error) bool {
	return target == ErrUnknownModel
}

type Entry struct {
	ID           ID
	ArtifactName string
	ApproxSize   string
}

// catalogOrder fixes listing order; the map below is never written after init.
var catalogOrder = []ID{Tiny, Base, Small, Medium, Large}

var catalog = map[ID]Entry{
	Tiny:   {ID: Tiny, ArtifactName: "ggml-tiny", ApproxSize: "75 MiB"},
	Base:   {ID: Base, ArtifactName: "ggml-base", ApproxSize: "142 MiB"},
	Small:  {ID: Small, ArtifactName: "ggml-small", ApproxSize: "466 MiB"},
	Medium: {ID: Medium, ArtifactName: "ggml-medium", ApproxSize: "1.5 GiB"},
	Large:  {ID: Large, ArtifactName: "ggml-large", ApproxSize: "2.9 GiB"},
}

func IDs() []ID {
	out := make([]ID, len(catalogOrder))
	copy(out, catalogOrder)
	return out
}

func Lookup(id ID) (Entry, bool) {
	entry, ok := catalog[id]
	return entry, ok
}

// ParseID normalises input (trimmed, lower-cased) and checks it against the
// catalog.
func ParseID(input string) (ID, error) {
	id := ID(strings.ToLower(strings.TrimSpace(input)))
	if _, ok := catalog[id]; !ok {
		return "", &UnknownModelError{Input: input, Known: IDs()}
	}
	return id, nil
}

// Resolve maps a model identifier to the artifact name used by the remote
// repository, e.g. "TINY" -> "ggml-tiny".
func Resolve(input string) (string, error) {
	id, err := ParseID(input)
	if err != nil {
		return "", err
	}
	return catalog[id].ArtifactName, nil
}
