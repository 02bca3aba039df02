package core

import (
	"strconv"
	"strings"

	"github.com/teracrafts/flagcache-go/errors"
)

// EvaluationKind separates boolean and variant results for the same subject and flag.
type EvaluationKind uint8

const (
	KindBoolean EvaluationKind = iota
	KindVariant
)

func (k EvaluationKind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindVariant:
		return "variant"
	default:
		return "unknown"
	}
}

// CacheKey identifies one cached evaluation. The evaluation context is not
// part of the key: a subject's entry is reused across context payloads.
type CacheKey struct {
	Kind         EvaluationKind
	NamespaceKey string
	FlagKey      string
	EntityID     string
}

// NewCacheKey returns the boolean-evaluation key for the triple.
func NewCacheKey(namespaceKey, flagKey, entityID string) CacheKey {
	return CacheKey{
		Kind:         KindBoolean,
		NamespaceKey: namespaceKey,
		FlagKey:      flagKey,
		EntityID:     entityID,
	}
}

// String encodes the key with length-prefixed components so that no two
// distinct keys share an encoding.
func (k CacheKey) String() string {
	var b strings.Builder
	b.WriteString(k.Kind.String())
	for _, part := range []string{k.NamespaceKey, k.FlagKey, k.EntityID} {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(len(part)))
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

func (k CacheKey) validate() error {
	switch {
	case k.NamespaceKey == "":
		return errors.NewError(errors.ErrEvalInvalidKey, "namespace key is required")
	case k.FlagKey == "":
		return errors.NewError(errors.ErrEvalInvalidKey, "flag key is required")
	case k.EntityID == "":
		return errors.NewError(errors.ErrEvalInvalidKey, "entity id is required")
	}
	return nil
}
