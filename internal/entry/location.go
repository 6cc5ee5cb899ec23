package entry

import (
	"fmt"
	"strings"
)

// Location addresses an entry within a configured provider set, formatted
// "<provider_key>:<provider_path_or_id>". It is assigned at construction and
// never mutated.
type Location string

// NewLocation builds a Location from a provider key and a provider-local id
// or path.
func NewLocation(providerKey, id string) Location {
	return Location(providerKey + ":" + id)
}

// Provider returns the provider key prefix of the location.
func (l Location) Provider() string {
	key, _, _ := strings.Cut(string(l), ":")
	return key
}

// ID returns the provider-local id or path portion of the location.
func (l Location) ID() string {
	_, id, _ := strings.Cut(string(l), ":")
	return id
}

func (l Location) String() string {
	return string(l)
}

// ParseLocation validates and splits a raw location string. The provider key
// must be non-empty; the id portion may be empty (provider root).
func ParseLocation(raw string) (Location, error) {
	key, _, found := strings.Cut(raw, ":")
	if !found || key == "" {
		return "", fmt.Errorf("entry: malformed location %q (want \"provider:id\")", raw)
	}

	return Location(raw), nil
}
