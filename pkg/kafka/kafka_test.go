package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type change struct {
	Entity   string `json:"entity"`
	Revision int64  `json:"revision"`
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[change]([]byte(`{"entity":"wiki:start","revision":3}`))
	require.NoError(t, err)
	assert.Equal(t, change{Entity: "wiki:start", Revision: 3}, got)

	_, err = DecodeJSON[change]([]byte(`{"entity":`))
	assert.Error(t, err)
}
