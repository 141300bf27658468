package rpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDMarshalRoundTrip(t *testing.T) {
	require := require.New(t)

	for _, id := range []ID{NewNumberID(42), NewStringID("abc")} {
		b, err := json.Marshal(id)
		require.NoError(err)

		var got ID
		require.NoError(json.Unmarshal(b, &got))
		require.True(id.Equal(got))
	}
}

func TestIDEqualityIsValueTyped(t *testing.T) {
	require := require.New(t)
	require.True(NewNumberID(1).Equal(NewNumberID(1)))
	require.False(NewNumberID(1).Equal(NewNumberID(2)))
	require.False(NewNumberID(1).Equal(NewStringID("1")))
	require.True(ID{}.Equal(ID{}))
}

func TestIDMarshalUnsetIsError(t *testing.T) {
	require := require.New(t)
	_, err := json.Marshal(ID{})
	require.Error(err)
}
