package types

import "fmt"

type Tag = uint64
type Version uint64

type Versioned interface {
	GetVersion() Version
}

const (
	_ = iota + Tag(1000)
	RedemptionTag
	ModuleInfoTag
)

func EnsureVersion(data Versioned, actual, expected Version) error {
	if actual != expected {
		return fmt.Errorf("invalid version (type %T), expected %d, got %d", data, expected, actual)
	}
	return nil
}
