package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateTokenName(t *testing.T) {
	valid := []string{"Rocket", "My Token 99", "ab"}
	for _, name := range valid {
		require.NoError(t, ValidateTokenName(name), name)
	}

	invalid := []string{"", "a", "Rocket!", "name_with_underscores", "0123456789012345678901234567890123"}
	for _, name := range invalid {
		require.Error(t, ValidateTokenName(name), name)
	}
}

func TestValidateTokenSymbol(t *testing.T) {
	valid := []string{"RKT", "AB", "TOKEN2000"}
	for _, symbol := range valid {
		require.NoError(t, ValidateTokenSymbol(symbol), symbol)
	}

	invalid := []string{"", "R", "rkt", "TOOLONGSYMBOL", "RK T", "RK$"}
	for _, symbol := range invalid {
		require.Error(t, ValidateTokenSymbol(symbol), symbol)
	}
}

func TestValidateAddress(t *testing.T) {
	valid := "cb27de521e43741cf785cbad450d5649187b9612018f"
	require.NoError(t, ValidateAddress(valid))
	require.NoError(t, ValidateAddress("0x"+valid))

	require.Error(t, ValidateAddress(""))
	require.Error(t, ValidateAddress("1234"))
	require.Error(t, ValidateAddress("zz000000000000000000000000000000000000000000"))
}

func TestNormalizeAddress(t *testing.T) {
	require.Equal(t, "abcdef", NormalizeAddress("0xABCDEF"))
	require.Equal(t, "abcdef", NormalizeAddress("ABCDEF"))
}
