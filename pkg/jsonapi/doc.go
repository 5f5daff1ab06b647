// Package jsonapi provides uniform read and write access to named values on
// content objects backed by different technologies.
//
// A caller resolves a DataManager for an object through a Registry, keyed by
// the object's Technology, and then issues Get, Set and JSONData calls against
// the same contract regardless of whether the object is a catalog row, the
// portal root, or a field-described content item.
//
// Basic usage:
//
//	registry := jsonapi.NewDefaultRegistry(fields.SchemaResolver{}, fields.NewAdapter(), nil)
//	sec := jsonapi.Security{Principal: principal, Oracle: oracle}
//
//	dm, err := registry.DataManager(obj, sec)
//	if err != nil {
//		return err
//	}
//	title, err := dm.JSONData(ctx, "title", nil)
//
// Every permission verdict is computed per call from the explicit Security
// value handed to the data manager; nothing is read from ambient state.
package jsonapi
