package codec

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/itchyny/timefmt-go"

	"github.com/reoring/restmap"
)

const (
	DefaultDateFormat     = "%Y-%m-%d"
	DefaultDateTimeFormat = "%Y-%m-%dT%H:%M:%SZ"
)

var (
	dateClass     = restmap.AnnotationClass(reflect.TypeFor[restmap.Date]())
	dateTimeClass = restmap.AnnotationClass(reflect.TypeFor[time.Time]())
)

// DateTimeSerializer loads date and datetime fields from strings in
// strftime-style formats and dumps them back. Without a zone directive in the
// datetime format, timestamps are parsed as UTC and converted to UTC on dump.
type DateTimeSerializer struct {
	DateFormat     string
	DateTimeFormat string

	zoned bool
}

// DateTime returns a serializer for the given strftime formats. Empty formats
// select the defaults.
func DateTime(dateFormat, dateTimeFormat string) (*DateTimeSerializer, error) {
	if dateFormat == "" {
		dateFormat = DefaultDateFormat
	}
	if dateTimeFormat == "" {
		dateTimeFormat = DefaultDateTimeFormat
	}
	if err := ValidateFormat(dateFormat); err != nil {
		return nil, err
	}
	if err := ValidateFormat(dateTimeFormat); err != nil {
		return nil, err
	}
	return &DateTimeSerializer{
		DateFormat:     dateFormat,
		DateTimeFormat: dateTimeFormat,
		zoned:          strings.Contains(dateTimeFormat, "%z") || strings.Contains(dateTimeFormat, "%Z"),
	}, nil
}

// MustDateTime is like DateTime but panics on an invalid format.
func MustDateTime(dateFormat, dateTimeFormat string) *DateTimeSerializer {
	s, err := DateTime(dateFormat, dateTimeFormat)
	if err != nil {
		panic(err)
	}
	return s
}

func (*DateTimeSerializer) Classes() []*restmap.Class {
	return []*restmap.Class{dateClass, dateTimeClass}
}

func (s *DateTimeSerializer) Load(d restmap.Descriptor, raw any, r *restmap.Resource) error {
	f, ok := d.(valueField)
	if !ok {
		return restmap.NewResourceError(restmap.CodeWrongType, "datetime serializer cannot load %T", d)
	}
	isDate := d.Class() == dateClass
	if raw == nil {
		f.Set(r, nil)
		return nil
	}
	str, ok := raw.(string)
	if !ok {
		return restmap.NewHydrationTypeError(raw, kindName(isDate))
	}
	if isDate {
		t, err := timefmt.Parse(str, s.DateFormat)
		if err != nil {
			return restmap.NewBadFormatError(raw, kindName(isDate))
		}
		f.Set(r, restmap.DateOf(t))
		return nil
	}
	t, err := timefmt.Parse(str, s.DateTimeFormat)
	if err != nil {
		return restmap.NewBadFormatError(raw, kindName(isDate))
	}
	f.Set(r, t)
	return nil
}

func (s *DateTimeSerializer) Dump(d restmap.Descriptor, r *restmap.Resource) (any, error) {
	f, ok := d.(valueField)
	if !ok {
		return nil, restmap.NewResourceError(restmap.CodeWrongType, "datetime serializer cannot dump %T", d)
	}
	isDate := d.Class() == dateClass
	switch v := f.Get(r).(type) {
	case nil:
		return nil, nil
	case restmap.Date:
		if isDate {
			return timefmt.Format(v.In(time.UTC), s.DateFormat), nil
		}
		return timefmt.Format(v.In(time.UTC), s.DateTimeFormat), nil
	case time.Time:
		if isDate {
			return timefmt.Format(restmap.DateOf(v).In(time.UTC), s.DateFormat), nil
		}
		if !s.zoned {
			v = v.UTC()
		}
		return timefmt.Format(v, s.DateTimeFormat), nil
	default:
		return nil, restmap.NewHydrationTypeError(v, kindName(isDate))
	}
}

func kindName(isDate bool) string {
	if isDate {
		return "date"
	}
	return "datetime"
}

// directives lists the strftime directives accepted in configured formats.
const directives = "YymdejHIklMSfpbhBaAzZFTDR%"

// ValidateFormat checks that format only uses supported strftime directives.
func ValidateFormat(format string) error {
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		if i+1 >= len(format) {
			return fmt.Errorf("codec: trailing %% in format %q", format)
		}
		i++
		if strings.IndexByte(directives, format[i]) < 0 {
			return fmt.Errorf("codec: unsupported directive %%%c in format %q", format[i], format)
		}
	}
	return nil
}
