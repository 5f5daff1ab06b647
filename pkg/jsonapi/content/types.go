package content

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tendant/simple-jsonapi/pkg/jsonapi"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi/fields"
)

// DocumentType is a structured content type with a dedicated title setter
func DocumentType() *TypeInfo {
	return &TypeInfo{
		PortalType: "Document",
		Technology: jsonapi.TechnologyStructured,
		Schema: fields.NewSchema("Document",
			fields.New("title", fields.KindString, fields.Required()),
			fields.New("description", fields.KindText),
			fields.New("text", fields.KindText),
			fields.New("effective", fields.KindDateTime),
			fields.New("expires", fields.KindDateTime, fields.WithValidator(expiresAfterEffective)),
			fields.New("subjects", fields.KindLines),
			fields.New("relatedItems", fields.KindReference),
			fields.New("attachment", fields.KindFile),
			fields.New("review_state", fields.KindString, fields.ReadOnly(), fields.WithDefault("private")),
		),
		Setters: map[string]SetterFunc{
			"setTitle": setTitle,
		},
	}
}

// ClientType is a typed content type; every field carries the classic
// View / Modify portal content permissions.
func ClientType() *TypeInfo {
	return &TypeInfo{
		PortalType: "Client",
		Technology: jsonapi.TechnologyTyped,
		Schema: fields.NewSchema("Client",
			typedField("Name", fields.KindString, fields.Required()),
			typedField("ClientID", fields.KindString),
			typedField("EmailAddress", fields.KindString, fields.WithValidator(validEmail)),
			typedField("Phone", fields.KindString),
			typedField("CCEmails", fields.KindLines),
			typedField("BulkDiscount", fields.KindBoolean, fields.WithDefault(false)),
			typedField("MemberDiscount", fields.KindFloat, fields.WithValidator(discountWithBulk)),
			typedField("DefaultPriority", fields.KindInteger, fields.WithDefault(int64(3))),
			typedField("Remarks", fields.KindText,
				fields.WithReadPermission(jsonapi.PermissionModifyPortalContent)),
		),
	}
}

// DefaultTypes returns the built-in portal types
func DefaultTypes() []*TypeInfo {
	return []*TypeInfo{DocumentType(), ClientType()}
}

func typedField(name string, kind fields.Kind, opts ...fields.Option) *fields.Field {
	defaults := []fields.Option{
		fields.WithReadPermission(jsonapi.PermissionView),
		fields.WithWritePermission(jsonapi.PermissionModifyPortalContent),
	}
	return fields.New(name, kind, append(defaults, opts...)...)
}

func setTitle(item *Item, value any) (bool, error) {
	s, ok := value.(string)
	if !ok {
		return false, &jsonapi.FieldError{Field: "title", Op: "set", Err: fmt.Errorf("%w: title must be a string", jsonapi.ErrInvalidValue)}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return false, &jsonapi.FieldError{Field: "title", Op: "set", Err: jsonapi.ErrFieldRequired}
	}
	item.SetValue("title", s)
	return true, nil
}

func expiresAfterEffective(value any, siblings map[string]any) error {
	expires, ok := fields.DateTime(value)
	if !ok {
		return nil
	}
	effective, ok := fields.DateTime(siblings["effective"])
	if !ok {
		return nil
	}
	if expires.Before(effective) {
		return errors.New("expiration date must be after the effective date")
	}
	return nil
}

func validEmail(value any, siblings map[string]any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if at := strings.Index(s, "@"); at <= 0 || at == len(s)-1 {
		return fmt.Errorf("%q is not an email address", s)
	}
	return nil
}

// discountWithBulk limits the member discount to 0-100 and rejects a member
// discount submitted together with a bulk discount.
func discountWithBulk(value any, siblings map[string]any) error {
	d, ok := value.(float64)
	if !ok {
		return nil
	}
	if d < 0 || d > 100 {
		return fmt.Errorf("member discount %v out of range", d)
	}
	if bulk, _ := siblings["BulkDiscount"].(bool); bulk && d > 0 {
		return errors.New("member discount cannot be combined with bulk discount")
	}
	return nil
}
