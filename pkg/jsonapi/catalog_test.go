package jsonapi_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi"
)

func newCatalogRow() *object {
	row := newObject("doc-1", jsonapi.TechnologyCatalog)
	row.attrs["Title"] = jsonapi.Value{V: "Annual report"}
	row.attrs["review_state"] = jsonapi.Value{V: jsonapi.Missing}
	row.attrs["getPath"] = jsonapi.Accessor(func() (any, error) { return "/portal/doc-1", nil })
	return row
}

func TestCatalogDataManager_Get(t *testing.T) {
	ctx := context.Background()
	dm := jsonapi.NewCatalogDataManager(newCatalogRow(), nil)

	t.Run("plain value", func(t *testing.T) {
		v, err := dm.Get(ctx, "Title")
		require.NoError(t, err)
		assert.Equal(t, "Annual report", v)
	})

	t.Run("accessor is invoked", func(t *testing.T) {
		v, err := dm.Get(ctx, "getPath")
		require.NoError(t, err)
		assert.Equal(t, "/portal/doc-1", v)
	})

	t.Run("missing value sentinel is returned as is", func(t *testing.T) {
		v, err := dm.Get(ctx, "review_state")
		require.NoError(t, err)
		assert.True(t, jsonapi.IsMissing(v))
	})

	t.Run("unknown column", func(t *testing.T) {
		v, err := dm.Get(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("accessor error", func(t *testing.T) {
		row := newCatalogRow()
		boom := errors.New("boom")
		row.attrs["broken"] = jsonapi.Accessor(func() (any, error) { return nil, boom })
		_, err := jsonapi.NewCatalogDataManager(row, nil).Get(ctx, "broken")
		assert.ErrorIs(t, err, boom)
	})
}

func TestCatalogDataManager_JSONData(t *testing.T) {
	ctx := context.Background()
	dm := jsonapi.NewCatalogDataManager(newCatalogRow(), nil)

	for _, name := range []string{"Title", "getPath", "nope"} {
		got, err := dm.Get(ctx, name)
		require.NoError(t, err)
		data, err := dm.JSONData(ctx, name, "fallback")
		require.NoError(t, err)
		assert.Equal(t, got, data, name)
	}

	data, err := dm.JSONData(ctx, "review_state", "private")
	require.NoError(t, err)
	assert.Equal(t, "private", data)

	data, err = dm.JSONData(ctx, "review_state", nil)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestCatalogDataManager_SetIsIgnored(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	row := newCatalogRow()
	dm := jsonapi.NewCatalogDataManager(row, logger)

	ok, err := dm.Set(ctx, "Title", "Changed", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := dm.Get(ctx, "Title")
	require.NoError(t, err)
	assert.Equal(t, "Annual report", v)

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "object_id=doc-1")
	assert.Contains(t, buf.String(), "name=Title")
}

func TestMissing(t *testing.T) {
	assert.True(t, jsonapi.IsMissing(jsonapi.Missing))
	assert.False(t, jsonapi.IsMissing(nil))
	assert.False(t, jsonapi.IsMissing(""))
	assert.NotNil(t, jsonapi.Missing)
}
