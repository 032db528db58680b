package types

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphabill-org/claim-settlement/hash"
)

type (
	/*
	Struct is a typed, hashable sub-structure of a claim. TypeString follows
	the "Name(type1 name1,type2 name2)" format and EncodeData returns the
	ABI encoding of the field values in declaration order.
	*/
	Struct interface {
		TypeName() string
		TypeString() string
		TypeHash() common.Hash
		EncodeData() ([]byte, error)
	}

	field struct {
		typ  string
		name string
	}
)

func formatTypeString(name string, fields ...field) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('(')
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(f.typ)
		sb.WriteByte(' ')
		sb.WriteString(f.name)
	}
	sb.WriteByte(')')
	return sb.String()
}

func typeHashOf(typeString string) common.Hash {
	return hash.Keccak256([]byte(typeString))
}

// StructHash returns keccak256(typeHash || encodeData(s)).
func StructHash(s Struct) (common.Hash, error) {
	data, err := s.EncodeData()
	if err != nil {
		return common.Hash{}, err
	}
	th := s.TypeHash()
	return hash.Keccak256(th[:], data), nil
}

/*
unknownStruct holds a sub-structure whose type hash is not recognized by
this version of the module. It still hashes, so a claim carrying it can be
authorized, but it can't be evaluated.
*/
type unknownStruct struct {
	Hash common.Hash
	Data []byte
}

func (u unknownStruct) TypeName() string            { return "" }
func (u unknownStruct) TypeString() string          { return "" }
func (u unknownStruct) TypeHash() common.Hash       { return u.Hash }
func (u unknownStruct) EncodeData() ([]byte, error) { return u.Data, nil }
