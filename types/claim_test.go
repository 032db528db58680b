package types

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/require"
)

var (
	testModule = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testToken  = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	testPayee  = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

func testClaim() *Claim {
	return &Claim{
		ID:           common.HexToHash("0x01"),
		ChainID:      31337,
		TargetModule: testModule,
		State:        TimeRange{ValidFrom: 100, ValidTo: 200},
		Caller:       DirectAddress{Address: testPayee},
		Action:       ERC20Transfer{Token: testToken, Amount: big.NewInt(1_000_000)},
	}
}

func Test_Claim_TypeString(t *testing.T) {
	c := testClaim()
	ts, err := c.TypeString()
	require.NoError(t, err)
	require.Equal(t,
		"Claim(bytes32 id,TimeRangeSeconds state,Address caller,TransferERC20ToCaller action)"+
			"Address(address caller)"+
			"TimeRangeSeconds(uint256 validFromTime,uint256 validToTime)"+
			"TransferERC20ToCaller(address token,uint256 amount)",
		ts)

	t.Run("sub types are sorted", func(t *testing.T) {
		c := testClaim()
		c.Caller = NFTOwnership{Collection: testToken, TokenID: big.NewInt(1)}
		ts, err := c.TypeString()
		require.NoError(t, err)
		require.True(t, strings.HasSuffix(ts, "NFTOwner(address nftContract,uint256 tokenId)"+
			"TimeRangeSeconds(uint256 validFromTime,uint256 validToTime)"+
			"TransferERC20ToCaller(address token,uint256 amount)"), ts)
	})

	t.Run("unconditional claim", func(t *testing.T) {
		c := testClaim()
		c.State = Always{}
		c.Caller = AnyCaller{}
		c.Action = NFTTransfer{Collection: testToken, Recipient: &testPayee, TokenID: big.NewInt(1)}
		ts, err := c.TypeString()
		require.NoError(t, err)
		require.Equal(t,
			"Claim(bytes32 id,Always state,AnyCaller caller,TransferNFT action)"+
				"Always()"+
				"AnyCaller()"+
				"TransferNFT(address nftContract,address recipient,uint256 tokenId)",
			ts)
	})

	t.Run("unknown sub type", func(t *testing.T) {
		c := testClaim()
		c.Action = NewUnknownAction(common.HexToHash("0xff"), nil)
		_, err := c.TypeString()
		require.ErrorContains(t, err, "type string of unknown sub-structure")
	})

	t.Run("invalid claim", func(t *testing.T) {
		c := testClaim()
		c.State = nil
		_, err := c.TypeString()
		require.EqualError(t, err, "state check is nil")
	})
}

func Test_Claim_EncodeDecode(t *testing.T) {
	recipient := testPayee
	claims := map[string]*Claim{
		"erc20 to caller": testClaim(),
		"native to recipient": func() *Claim {
			c := testClaim()
			c.Action = NativeTransfer{Amount: big.NewInt(5), Recipient: &recipient}
			return c
		}(),
		"nft via registry": func() *Claim {
			c := testClaim()
			c.RootID = common.HexToHash("0x01")
			c.Caller = RegisteredAccount{Registry: testToken, Account: testPayee}
			c.Action = NFTTransfer{Collection: testToken, TokenID: big.NewInt(7)}
			return c
		}(),
		"unconditional nft to recipient": func() *Claim {
			c := testClaim()
			c.State = Always{}
			c.Caller = AnyCaller{}
			c.Action = NFTTransfer{Collection: testToken, Recipient: &recipient, TokenID: big.NewInt(9)}
			return c
		}(),
	}
	for name, c := range claims {
		t.Run(name, func(t *testing.T) {
			data, err := c.Encode()
			require.NoError(t, err)

			decoded, err := DecodeClaim(data)
			require.NoError(t, err)
			require.Equal(t, c.ID, decoded.ID)
			require.Equal(t, c.ChainID, decoded.ChainID)
			require.Equal(t, c.TargetModule, decoded.TargetModule)
			require.Equal(t, c.RootID, decoded.RootID)
			require.Equal(t, c.State, decoded.State)
			require.Equal(t, c.Caller, decoded.Caller)
			require.Equal(t, c.Action, decoded.Action)

			h1, err := c.StructHash()
			require.NoError(t, err)
			h2, err := decoded.StructHash()
			require.NoError(t, err)
			require.Equal(t, h1, h2)

			again, err := decoded.Encode()
			require.NoError(t, err)
			require.Equal(t, data, again)
		})
	}
}

func Test_DecodeClaim_UnknownVariants(t *testing.T) {
	c := testClaim()
	c.State = NewUnknownState(common.HexToHash("0x0a"), []byte{1, 2, 3})
	c.Caller = NewUnknownCaller(common.HexToHash("0x0b"), nil)
	c.Action = NewUnknownAction(common.HexToHash("0x0c"), []byte{4})
	c.typeHash = &common.Hash{0x42}

	data, err := c.Encode()
	require.NoError(t, err)
	decoded, err := DecodeClaim(data)
	require.NoError(t, err)
	require.IsType(t, UnknownState{}, decoded.State)
	require.IsType(t, UnknownCaller{}, decoded.Caller)
	require.IsType(t, UnknownAction{}, decoded.Action)
	th, err := decoded.TypeHash()
	require.NoError(t, err)
	require.Equal(t, common.Hash{0x42}, th)
	// unknown variants still hash
	_, err = decoded.StructHash()
	require.NoError(t, err)
}

func Test_DecodeClaim_Malformed(t *testing.T) {
	_, err := DecodeClaim([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrMalformedClaim)

	t.Run("known type with invalid data", func(t *testing.T) {
		c := testClaim()
		c.State = NewUnknownState(TimeRange{}.TypeHash(), []byte{1})
		c.typeHash = &common.Hash{1}
		data, err := c.Encode()
		require.NoError(t, err)
		_, err = DecodeClaim(data)
		require.ErrorIs(t, err, ErrMalformedClaim)
	})

	t.Run("data for check without fields", func(t *testing.T) {
		c := testClaim()
		c.Caller = NewUnknownCaller(AnyCaller{}.TypeHash(), make([]byte, 32))
		c.typeHash = &common.Hash{1}
		data, err := c.Encode()
		require.NoError(t, err)
		_, err = DecodeClaim(data)
		require.ErrorIs(t, err, ErrMalformedClaim)
	})
}

func Test_Domain(t *testing.T) {
	c := testClaim()
	d := NewDomain(c.ChainID, c.TargetModule)
	require.NoError(t, d.Binds(c))

	digest, err := d.Digest(c)
	require.NoError(t, err)

	t.Run("compatible with EIP-712", func(t *testing.T) {
		td := apitypes.TypedData{
			Types: apitypes.Types{
				"EIP712Domain": {
					{Name: "name", Type: "string"},
					{Name: "version", Type: "string"},
					{Name: "chainId", Type: "uint256"},
					{Name: "verifyingContract", Type: "address"},
				},
				"Claim": {
					{Name: "id", Type: "bytes32"},
					{Name: "state", Type: "TimeRangeSeconds"},
					{Name: "caller", Type: "Address"},
					{Name: "action", Type: "TransferERC20ToCaller"},
				},
				"TimeRangeSeconds": {
					{Name: "validFromTime", Type: "uint256"},
					{Name: "validToTime", Type: "uint256"},
				},
				"Address": {
					{Name: "caller", Type: "address"},
				},
				"TransferERC20ToCaller": {
					{Name: "token", Type: "address"},
					{Name: "amount", Type: "uint256"},
				},
			},
			PrimaryType: "Claim",
			Domain: apitypes.TypedDataDomain{
				Name:              DefaultDomainName,
				Version:           DefaultDomainVersion,
				ChainId:           math.NewHexOrDecimal256(int64(c.ChainID)),
				VerifyingContract: c.TargetModule.Hex(),
			},
			Message: apitypes.TypedDataMessage{
				"id": c.ID.Hex(),
				"state": map[string]interface{}{
					"validFromTime": "100",
					"validToTime":   "200",
				},
				"caller": map[string]interface{}{
					"caller": testPayee.Hex(),
				},
				"action": map[string]interface{}{
					"token":  testToken.Hex(),
					"amount": "1000000",
				},
			},
		}
		expected, _, err := apitypes.TypedDataAndHash(td)
		require.NoError(t, err)
		require.Equal(t, common.BytesToHash(expected), digest)
	})

	t.Run("other module", func(t *testing.T) {
		other := NewDomain(c.ChainID, testToken)
		require.ErrorIs(t, other.Binds(c), ErrInvalidModule)
		d2, err := other.Digest(c)
		require.NoError(t, err)
		require.NotEqual(t, digest, d2)
	})

	t.Run("other chain", func(t *testing.T) {
		other := NewDomain(1, c.TargetModule)
		require.ErrorIs(t, other.Binds(c), ErrInvalidModule)
		d2, err := other.Digest(c)
		require.NoError(t, err)
		require.NotEqual(t, digest, d2)
	})
}

func Test_TimeRange_Contains(t *testing.T) {
	tr := TimeRange{ValidFrom: 10, ValidTo: 20}
	require.False(t, tr.Contains(9))
	require.True(t, tr.Contains(10))
	require.True(t, tr.Contains(20))
	require.False(t, tr.Contains(21))
}

func Test_AccountTokenID(t *testing.T) {
	addr := common.HexToAddress("0x0000000000000000000000000000000000000100")
	require.Equal(t, big.NewInt(256), AccountTokenID(addr))
	require.Equal(t, big.NewInt(256), RegisteredAccount{Account: addr}.TokenID())
}

func Test_ExtraParams(t *testing.T) {
	empty, err := ExtraParams{}.Encode()
	require.NoError(t, err)
	require.Empty(t, empty)
	e, err := DecodeExtraParams(empty)
	require.NoError(t, err)
	require.Nil(t, e.Recipient)

	recipient := testPayee
	data, err := ExtraParams{Recipient: &recipient}.Encode()
	require.NoError(t, err)
	require.Len(t, data, 32)
	e, err = DecodeExtraParams(data)
	require.NoError(t, err)
	require.Equal(t, testPayee, *e.Recipient)

	_, err = DecodeExtraParams([]byte{1})
	require.Error(t, err)
}
