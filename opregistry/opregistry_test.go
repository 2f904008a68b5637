// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package opregistry_test

import (
	"testing"

	"github.com/coatyio/dda-examples/dataset/opregistry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doubler struct{}

func (doubler) Apply(t int) (int, error) { return t * 2, nil }

func TestRegisterAndMapByName(t *testing.T) {
	r := opregistry.New()
	r.Register("double", func(params []byte) (any, error) {
		return opregistry.NewNamedMap[int, int]("double", doubler{}, nil), nil
	})

	m, err := opregistry.MapByName[int, int](r, "double", nil)
	require.NoError(t, err)
	v, err := m.Apply(21)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestMapByNameNotRegistered(t *testing.T) {
	r := opregistry.New()
	_, err := opregistry.MapByName[int, int](r, "missing", nil)
	assert.ErrorIs(t, err, opregistry.ErrNotRegistered)
}

func TestMapByNameWrongShape(t *testing.T) {
	r := opregistry.New()
	r.Register("double", func(params []byte) (any, error) {
		return opregistry.NewNamedMap[int, int]("double", doubler{}, nil), nil
	})
	_, err := opregistry.MapByName[string, string](r, "double", nil)
	assert.ErrorIs(t, err, opregistry.ErrWrongShape)
}

func TestNamesIsSorted(t *testing.T) {
	r := opregistry.New()
	r.Register("zebra", func([]byte) (any, error) { return nil, nil })
	r.Register("apple", func([]byte) (any, error) { return nil, nil })
	assert.Equal(t, []string{"apple", "zebra"}, r.Names())
}
