package raster

import (
	"fmt"
	"time"
)

// Tag keys added for an observation date.
const (
	DateTimeTag = "TIFFTAG_DATETIME"
	ObsDateTag  = "obsdate"
)

// DateLayout is the TIFF DateTime layout.
const DateLayout = "2006-01-02 15:04:05"

// Tag is one dataset metadata item.
type Tag struct {
	Key   string
	Value string
}

// Tags is an ordered key/value list. Keys are unique when built with Set.
type Tags []Tag

// Set replaces the value of key in place, or appends it.
func (t Tags) Set(key, value string) Tags {
	for i := range t {
		if t[i].Key == key {
			t[i].Value = value
			return t
		}
	}
	return append(t, Tag{Key: key, Value: value})
}

// Get returns the value for key.
func (t Tags) Get(key string) (string, bool) {
	for _, tag := range t {
		if tag.Key == key {
			return tag.Value, true
		}
	}
	return "", false
}

// FormatObservationDate renders a time.Time in DateLayout and passes
// strings through unchanged.
func FormatObservationDate(v any) (string, error) {
	switch d := v.(type) {
	case time.Time:
		return d.Format(DateLayout), nil
	case *time.Time:
		if d == nil {
			return "", fmt.Errorf("observation date is a nil time")
		}
		return d.Format(DateLayout), nil
	case string:
		return d, nil
	default:
		return "", fmt.Errorf("observation date must be a time.Time or string, got %T", v)
	}
}

func buildTags(obsDate any, extra Tags) (Tags, error) {
	var tags Tags
	if obsDate != nil {
		date, err := FormatObservationDate(obsDate)
		if err != nil {
			return nil, err
		}
		tags = tags.Set(DateTimeTag, date)
		tags = tags.Set(ObsDateTag, date)
	}
	for _, tag := range extra {
		tags = tags.Set(tag.Key, tag.Value)
	}
	return tags, nil
}
