package fields

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type codec struct {
	convert func(any) (any, error)
	render  func(any) any
}

var codecs = map[Kind]codec{
	KindString:    {convert: toString, render: identity},
	KindText:      {convert: toString, render: identity},
	KindInteger:   {convert: toInteger, render: identity},
	KindFloat:     {convert: toFloat, render: identity},
	KindBoolean:   {convert: toBool, render: identity},
	KindDateTime:  {convert: toDateTime, render: renderDateTime},
	KindLines:     {convert: toLines, render: identity},
	KindReference: {convert: toReferences, render: identity},
}

func errUnknownKind(kind Kind) error {
	return fmt.Errorf("unknown field kind %q", kind)
}

func identity(v any) any { return v }

func toString(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case bool:
		return strconv.FormatBool(t), nil
	case json.Number:
		return t.String(), nil
	case fmt.Stringer:
		return t.String(), nil
	}
	return nil, fmt.Errorf("cannot use %T as string", v)
}

func toInteger(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case float64:
		if t != math.Trunc(t) {
			return nil, fmt.Errorf("%v is not an integer", t)
		}
		// float64(math.MaxInt64) rounds up to 2^63
		if t < math.MinInt64 || t >= math.MaxInt64 {
			return nil, fmt.Errorf("%v is out of range", t)
		}
		return int64(t), nil
	case json.Number:
		return t.Int64()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		return strconv.ParseInt(s, 10, 64)
	}
	return nil, fmt.Errorf("cannot use %T as integer", v)
}

func toFloat(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		return strconv.ParseFloat(s, 64)
	}
	return nil, fmt.Errorf("cannot use %T as float", v)
}

func toBool(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case float64:
		return t != 0, nil
	case int:
		return t != 0, nil
	case int64:
		return t != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "0", "false", "off", "no":
			return false, nil
		case "1", "true", "on", "yes":
			return true, nil
		}
		return nil, fmt.Errorf("cannot use %q as boolean", t)
	}
	return nil, fmt.Errorf("cannot use %T as boolean", v)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func toDateTime(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return t.UTC(), nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return t.UTC(), nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), nil
			}
		}
		return nil, fmt.Errorf("cannot parse %q as date", t)
	}
	return nil, fmt.Errorf("cannot use %T as date", v)
}

func renderDateTime(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	return v
}

func toLines(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return []string{}, nil
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out, nil
	case string:
		out := []string{}
		for _, line := range strings.Split(t, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
		return out, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("cannot use %T as line", item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot use %T as lines", v)
}

func toReferences(v any) (any, error) {
	lines, err := toLines(v)
	if err != nil {
		return nil, err
	}
	refs := lines.([]string)
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		id, err := uuid.Parse(ref)
		if err != nil {
			return nil, fmt.Errorf("invalid reference %q: %w", ref, err)
		}
		out = append(out, id.String())
	}
	return out, nil
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	case *FileRef:
		return t == nil
	}
	return false
}

// DateTime converts v like a datetime field would and reports whether it
// holds a date.
func DateTime(v any) (time.Time, bool) {
	converted, err := toDateTime(v)
	if err != nil || converted == nil {
		return time.Time{}, false
	}
	return converted.(time.Time), true
}
