package custodian

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestCalldata(t *testing.T) {
	to := common.HexToAddress("0x1000000000000000000000000000000000000001")
	from := common.HexToAddress("0x2000000000000000000000000000000000000002")

	t.Run("transfer", func(t *testing.T) {
		data, err := PackTransfer(to, big.NewInt(1000))
		require.NoError(t, err)
		// transfer(address,uint256)
		require.Equal(t, []byte{0xa9, 0x05, 0x9c, 0xbb}, data[:4])

		call, err := DecodeCall(data)
		require.NoError(t, err)
		require.Equal(t, MethodTransfer, call.Method)
		require.Equal(t, to, call.Args[0])
		require.Equal(t, big.NewInt(1000), call.Args[1])
	})

	t.Run("safeTransferFrom", func(t *testing.T) {
		data, err := PackSafeTransferFrom(from, to, big.NewInt(7))
		require.NoError(t, err)
		// safeTransferFrom(address,address,uint256)
		require.Equal(t, []byte{0x42, 0x84, 0x2e, 0x0e}, data[:4])

		call, err := DecodeCall(data)
		require.NoError(t, err)
		require.Equal(t, MethodSafeTransferFrom, call.Method)
		require.Equal(t, []any{from, to, big.NewInt(7)}, call.Args)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := DecodeCall([]byte{1, 2})
		require.EqualError(t, err, "calldata too short: 2 bytes")
		_, err = DecodeCall([]byte{1, 2, 3, 4})
		require.Error(t, err)
	})
}
