// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package wire_test

import (
	"testing"

	"github.com/coatyio/dda-examples/dataset/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeOpRoundTrips(t *testing.T) {
	type payload struct {
		Glob string
	}
	in := payload{Glob: "**/*.txt"}

	data, err := wire.EncodeOp(in)
	require.NoError(t, err)

	var out payload
	require.NoError(t, wire.DecodeOp(data, &out))
	assert.Equal(t, in, out)
}

func TestDecodeOpRejectsGarbage(t *testing.T) {
	var out struct{ X int }
	err := wire.DecodeOp([]byte("not gob"), &out)
	assert.Error(t, err)
}
