// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package datatag

import (
	"fmt"

	semver "github.com/hashicorp/go-version"

	"tagwire.dev/tagwire/pkg/filepos"
)

const (
	KindOrigin            Kind = "origin"
	KindDeprecated        Kind = "deprecated"
	KindTrustedAsTemplate Kind = "trusted_as_template"
	KindUntrusted         Kind = "untrusted"
	KindVaultedValue      Kind = "vaulted_value"
)

// Origin records where a value was parsed from. Origin tags are created
// once at load time and never mutated.
type Origin struct {
	Position *filepos.Position
}

func (Origin) Kind() Kind { return KindOrigin }

func (o Origin) Description() string { return o.Position.AsCompactString() }

// Deprecated marks a value whose use should warn. Version is the release
// that deprecated the value; RemovedIn, when set, is the release that drops
// it and RemovalDate an optional ISO-8601 date for the same.
type Deprecated struct {
	Msg         string
	Version     string
	RemovedIn   string
	RemovalDate string
}

func (Deprecated) Kind() Kind { return KindDeprecated }

// Expired reports whether the running version is at or past RemovedIn.
func (d Deprecated) Expired(current string) (bool, error) {
	if d.RemovedIn == "" {
		return false, nil
	}
	currentVer, err := semver.NewVersion(current)
	if err != nil {
		return false, fmt.Errorf("parsing current version: %s", err)
	}
	removedVer, err := semver.NewVersion(d.RemovedIn)
	if err != nil {
		return false, fmt.Errorf("parsing removal version: %s", err)
	}
	return currentVer.GreaterThanOrEqual(removedVer), nil
}

// TrustedAsTemplate marks a string as allowed to be evaluated as a template
// expression. Absent this tag a value is opaque data, even if it looks like
// a template.
type TrustedAsTemplate struct{}

func (TrustedAsTemplate) Kind() Kind { return KindTrustedAsTemplate }

// Untrusted marks a value from a data source that must never be escalated
// to TrustedAsTemplate.
type Untrusted struct{}

func (Untrusted) Kind() Kind { return KindUntrusted }

// VaultedValue marks a plaintext value produced by decrypting a secret. The
// ciphertext is carried for re-encryption and wire round trips.
type VaultedValue struct {
	Ciphertext string
}

func (VaultedValue) Kind() Kind { return KindVaultedValue }

func init() {
	Register(Descriptor{
		Kind: KindOrigin,
		Encode: func(tag Tag) (map[string]interface{}, error) {
			origin := tag.(Origin)
			fields := map[string]interface{}{}
			if file := origin.Position.GetFile(); file != "" {
				fields["src"] = file
			}
			if origin.Position.IsKnown() {
				fields["line"] = int64(origin.Position.LineNum())
			}
			if origin.Position.HasCol() {
				fields["col"] = int64(origin.Position.ColNum())
			}
			return fields, nil
		},
		Decode: func(fields map[string]interface{}) (Tag, error) {
			file, _ := fields["src"].(string)
			line, hasLine, err := intField(fields, "line")
			if err != nil {
				return nil, err
			}
			col, hasCol, err := intField(fields, "col")
			if err != nil {
				return nil, err
			}
			switch {
			case hasLine && hasCol:
				return Origin{Position: filepos.NewPositionWithCol(line, col, file)}, nil
			case hasLine && file != "":
				return Origin{Position: filepos.NewPositionInFile(line, file)}, nil
			case hasLine:
				return Origin{Position: filepos.NewPosition(line)}, nil
			case file != "":
				return Origin{Position: filepos.NewUnknownPositionInFile(file)}, nil
			default:
				return Origin{Position: filepos.NewUnknownPosition()}, nil
			}
		},
	})

	Register(Descriptor{
		Kind: KindDeprecated,
		Encode: func(tag Tag) (map[string]interface{}, error) {
			deprecated := tag.(Deprecated)
			fields := map[string]interface{}{"msg": deprecated.Msg}
			if deprecated.Version != "" {
				fields["version"] = deprecated.Version
			}
			if deprecated.RemovedIn != "" {
				fields["removed_in"] = deprecated.RemovedIn
			}
			if deprecated.RemovalDate != "" {
				fields["removal_date"] = deprecated.RemovalDate
			}
			return fields, nil
		},
		Decode: func(fields map[string]interface{}) (Tag, error) {
			msg, ok := fields["msg"].(string)
			if !ok {
				return nil, fmt.Errorf("deprecated tag requires a 'msg' string field")
			}
			version, _ := fields["version"].(string)
			removedIn, _ := fields["removed_in"].(string)
			removalDate, _ := fields["removal_date"].(string)
			return Deprecated{Msg: msg, Version: version, RemovedIn: removedIn, RemovalDate: removalDate}, nil
		},
	})

	Register(Descriptor{
		Kind: KindTrustedAsTemplate,
		Encode: func(Tag) (map[string]interface{}, error) {
			return map[string]interface{}{}, nil
		},
		Decode: func(map[string]interface{}) (Tag, error) {
			return TrustedAsTemplate{}, nil
		},
	})

	Register(Descriptor{
		Kind: KindUntrusted,
		Encode: func(Tag) (map[string]interface{}, error) {
			return map[string]interface{}{}, nil
		},
		Decode: func(map[string]interface{}) (Tag, error) {
			return Untrusted{}, nil
		},
	})

	Register(Descriptor{
		Kind: KindVaultedValue,
		Encode: func(tag Tag) (map[string]interface{}, error) {
			return map[string]interface{}{"ciphertext": tag.(VaultedValue).Ciphertext}, nil
		},
		Decode: func(fields map[string]interface{}) (Tag, error) {
			ciphertext, ok := fields["ciphertext"].(string)
			if !ok {
				return nil, fmt.Errorf("vaulted_value tag requires a 'ciphertext' string field")
			}
			return VaultedValue{Ciphertext: ciphertext}, nil
		},
	})
}

func intField(fields map[string]interface{}, name string) (int, bool, error) {
	value, found := fields[name]
	if !found {
		return 0, false, nil
	}
	switch typed := value.(type) {
	case int:
		return typed, true, nil
	case int64:
		return int(typed), true, nil
	case float64:
		return int(typed), true, nil
	default:
		return 0, false, fmt.Errorf("field '%s' must be an integer, got %T", name, value)
	}
}
