package model

import (
	"fmt"
	"strings"
)

// Kind is the closed set of event kinds. The zero value is invalid so a
// forgotten assignment never silently becomes "working".
type Kind uint8

const (
	KindUnknown Kind = iota
	KindWorking
	KindIdle
	KindAbsent
	KindProductCount
)

// Kinds lists every valid kind in declaration order.
var Kinds = []Kind{KindWorking, KindIdle, KindAbsent, KindProductCount}

// String returns the wire name.
func (k Kind) String() string {
	switch k {
	case KindWorking:
		return "working"
	case KindIdle:
		return "idle"
	case KindAbsent:
		return "absent"
	case KindProductCount:
		return "product_count"
	case KindUnknown:
		return "unknown"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of Kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindWorking, KindIdle, KindAbsent, KindProductCount:
		return true
	case KindUnknown:
		return false
	}
	return false
}

// ParseKind parses a wire name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "working":
		return KindWorking, nil
	case "idle":
		return KindIdle, nil
	case "absent":
		return KindAbsent, nil
	case "product_count":
		return KindProductCount, nil
	}
	return KindUnknown, fmt.Errorf("%w: unknown event_type %q", ErrInvalidEvent, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: cannot marshal %s", ErrInvalidEvent, k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
