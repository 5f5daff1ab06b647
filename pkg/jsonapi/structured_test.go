package jsonapi_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi"
)

func TestStructuredDataManager_Permissions(t *testing.T) {
	ctx := context.Background()
	obj := newObject("doc-1", jsonapi.TechnologyStructured)
	obj.store["title"] = "Annual report"
	fields := resolver{"title": true}

	t.Run("reads need modify portal content", func(t *testing.T) {
		dm := jsonapi.NewStructuredDataManager(obj, fields, &adapter{}, grant(jsonapi.PermissionView))

		_, err := dm.Get(ctx, "title")
		assert.ErrorIs(t, err, jsonapi.ErrUnauthorized)
		_, err = dm.JSONData(ctx, "title", nil)
		assert.ErrorIs(t, err, jsonapi.ErrUnauthorized)

		assert.True(t, dm.CanRead(ctx))
		assert.False(t, dm.CanWrite(ctx))
	})

	t.Run("denied write does not mutate", func(t *testing.T) {
		a := &adapter{}
		dm := jsonapi.NewStructuredDataManager(obj, fields, a, grant(jsonapi.PermissionView))

		ok, err := dm.Set(ctx, "title", "Changed", nil)
		assert.False(t, ok)
		assert.ErrorIs(t, err, jsonapi.ErrUnauthorized)
		assert.Equal(t, "Annual report", obj.store["title"])
		assert.Empty(t, a.calls)
	})

	t.Run("granted", func(t *testing.T) {
		dm := jsonapi.NewStructuredDataManager(obj, fields, &adapter{}, grant(jsonapi.PermissionModifyPortalContent))

		v, err := dm.Get(ctx, "title")
		require.NoError(t, err)
		data, err := dm.JSONData(ctx, "title", "ignored")
		require.NoError(t, err)
		assert.Equal(t, "Annual report", v)
		assert.Equal(t, v, data)
		assert.True(t, dm.CanWrite(ctx))
		assert.False(t, dm.CanRead(ctx))
	})
}

func TestStructuredDataManager_SetterWins(t *testing.T) {
	ctx := context.Background()
	obj := newObject("doc-1", jsonapi.TechnologyStructured)
	obj.setters["setTitle"] = func(value any) (bool, error) {
		obj.store["title"] = strings.ToUpper(value.(string))
		return true, nil
	}
	// the field path would store a different value
	a := &adapter{transform: func(v any) any { return "from field manager" }}
	dm := jsonapi.NewStructuredDataManager(obj, resolver{"title": true, "description": true}, a, grant(jsonapi.PermissionModifyPortalContent))

	ok, err := dm.Set(ctx, "title", "annual report", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ANNUAL REPORT", obj.store["title"])
	assert.NotContains(t, a.calls, "set:title")

	ok, err = dm.Set(ctx, "description", "text", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "from field manager", obj.store["description"])
	assert.Contains(t, a.calls, "set:description")
}

func TestStructuredDataManager_SetterWithoutField(t *testing.T) {
	obj := newObject("doc-1", jsonapi.TechnologyStructured)
	called := false
	obj.setters["setLayout"] = func(value any) (bool, error) {
		called = true
		return true, nil
	}
	dm := jsonapi.NewStructuredDataManager(obj, resolver{}, &adapter{}, grant(jsonapi.PermissionModifyPortalContent))

	ok, err := dm.Set(context.Background(), "layout", "wide", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, called)
}

func TestStructuredDataManager_AbsentField(t *testing.T) {
	ctx := context.Background()
	obj := newObject("doc-1", jsonapi.TechnologyStructured)
	dm := jsonapi.NewStructuredDataManager(obj, resolver{}, &adapter{}, grant(jsonapi.PermissionModifyPortalContent))

	v, err := dm.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, v)

	ok, err := dm.Set(ctx, "nope", 1, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	data, err := dm.JSONData(ctx, "nope", "default")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSetterName(t *testing.T) {
	assert.Equal(t, "setTitle", jsonapi.SetterName("title"))
	assert.Equal(t, "setEffectiveDate", jsonapi.SetterName("effectiveDate"))
	assert.Equal(t, "setTitle", jsonapi.SetterName("Title"))
	assert.Equal(t, "setÉtat", jsonapi.SetterName("état"))
	assert.Equal(t, "set", jsonapi.SetterName(""))
}
