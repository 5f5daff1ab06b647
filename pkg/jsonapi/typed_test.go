package jsonapi_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi"
)

func TestTypedDataManager(t *testing.T) {
	ctx := context.Background()

	t.Run("delegates to the field manager", func(t *testing.T) {
		obj := newObject("client-1", jsonapi.TechnologyTyped)
		a := &adapter{}
		dm := jsonapi.NewTypedDataManager(obj, resolver{"Name": true}, a, grant())

		ok, err := dm.Set(ctx, "Name", "ACME", nil)
		require.NoError(t, err)
		assert.True(t, ok)

		v, err := dm.Get(ctx, "Name")
		require.NoError(t, err)
		assert.Equal(t, "ACME", v)

		data, err := dm.JSONData(ctx, "Name", "ignored")
		require.NoError(t, err)
		assert.Equal(t, v, data)

		assert.Equal(t, []string{"set:Name", "get:Name", "json:Name"}, a.calls)
	})

	t.Run("reads are not permission checked", func(t *testing.T) {
		obj := newObject("client-1", jsonapi.TechnologyTyped)
		obj.store["Name"] = "ACME"
		dm := jsonapi.NewTypedDataManager(obj, resolver{"Name": true}, &adapter{}, jsonapi.Security{})

		v, err := dm.Get(ctx, "Name")
		require.NoError(t, err)
		assert.Equal(t, "ACME", v)
	})

	t.Run("absent field", func(t *testing.T) {
		obj := newObject("client-1", jsonapi.TechnologyTyped)
		a := &adapter{}
		dm := jsonapi.NewTypedDataManager(obj, resolver{}, a, grant())

		v, err := dm.Get(ctx, "Nope")
		require.NoError(t, err)
		assert.Nil(t, v)

		ok, err := dm.Set(ctx, "Nope", "x", nil)
		require.NoError(t, err)
		assert.False(t, ok)

		data, err := dm.JSONData(ctx, "Nope", "default")
		require.NoError(t, err)
		assert.Nil(t, data)

		assert.Empty(t, a.calls)
		assert.Empty(t, obj.store)
	})

	t.Run("no resolver behaves like an absent field", func(t *testing.T) {
		dm := jsonapi.NewTypedDataManager(newObject("x", jsonapi.TechnologyTyped), nil, nil, grant())
		ok, err := dm.Set(ctx, "Name", "x", nil)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("siblings are forwarded", func(t *testing.T) {
		obj := newObject("client-1", jsonapi.TechnologyTyped)
		dm := jsonapi.NewTypedDataManager(obj, resolver{"count": true}, &adapter{}, grant())

		ok, err := dm.Set(ctx, "count", 11, map[string]any{"count": 11, "limit": 10})
		assert.Error(t, err)
		assert.False(t, ok)
		assert.NotContains(t, obj.store, "count")
	})

	t.Run("denied field write does not mutate", func(t *testing.T) {
		obj := newObject("client-1", jsonapi.TechnologyTyped)
		obj.store["Name"] = "ACME"
		a := &adapter{write: jsonapi.PermissionModifyPortalContent}
		dm := jsonapi.NewTypedDataManager(obj, resolver{"Name": true}, a, grant(jsonapi.PermissionView))

		ok, err := dm.Set(ctx, "Name", "Other", nil)
		assert.False(t, ok)
		assert.ErrorIs(t, err, jsonapi.ErrUnauthorized)
		assert.Equal(t, "ACME", obj.store["Name"])
	})
}
