package cache

import (
	"fmt"
	"strconv"
	"strings"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = ":"

// Keyspace derives cache keys of the form <type>:<view>[:<param>...] for one
// entity type. Keys are pure functions of their inputs: the same view and
// parameters always yield the same key.
type Keyspace struct {
	namespace string
}

// NewKeyspace returns the keyspace for typeName. The name is normalised to
// snake_case, so "Product" and "product" share a namespace.
func NewKeyspace(typeName string) Keyspace {
	ns := toSnake(typeName)
	if ns == "" {
		ns = "entity"
	}
	return Keyspace{namespace: ns}
}

// Namespace returns the entity type segment.
func (k Keyspace) Namespace() string {
	return k.namespace
}

// Key builds the key for view with the given parameters. Free-text parameters
// are trimmed and lower-cased so lookups are case-insensitive.
func (k Keyspace) Key(view string, params ...any) string {
	var b strings.Builder
	b.WriteString(k.namespace)
	b.WriteString(KeySeparator)
	b.WriteString(toSnake(view))
	for _, p := range params {
		b.WriteString(KeySeparator)
		b.WriteString(formatParam(p))
	}
	return b.String()
}

// Prefix returns the prefix shared by every key of view. Views of one type never
// share a prefix with views of another type.
func (k Keyspace) Prefix(view string) string {
	return k.namespace + KeySeparator + toSnake(view) + KeySeparator
}

// ViewOf returns the "<type>:<view>" part of key, suitable as a low cardinality
// label. Keys that do not follow the keyspace layout are returned unchanged.
func ViewOf(key string) string {
	first := strings.Index(key, KeySeparator)
	if first < 0 {
		return key
	}
	rest := key[first+1:]
	if second := strings.Index(rest, KeySeparator); second >= 0 {
		return key[:first+1+second]
	}
	return key
}

func formatParam(p any) string {
	switch v := p.(type) {
	case nil:
		return "nil"
	case string:
		return normalizeText(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return normalizeText(v.String())
	default:
		return normalizeText(fmt.Sprint(v))
	}
}

var paramEscaper = strings.NewReplacer("%", "%25", KeySeparator, "%3a")

// normalizeText lower-cases and trims s, escaping the separator so a parameter
// can never forge extra key segments.
func normalizeText(s string) string {
	return paramEscaper.Replace(strings.ToLower(strings.TrimSpace(s)))
}
