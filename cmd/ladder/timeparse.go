package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/rally/internal/domain/model"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var parser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseTime accepts RFC3339, a plain date, or natural language such as
// "last monday" or "3 days ago", relative to base. Times a match cannot
// be stored at are refused.
func parseTime(input string, base time.Time) (time.Time, error) {
	t, err := recognizeTime(input, base)
	if err != nil {
		return time.Time{}, err
	}
	if !model.ValidPlayedAt(t) {
		return time.Time{}, fmt.Errorf("time %q is out of range", input)
	}
	return t, nil
}

func recognizeTime(input string, base time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, input, base.Location()); err == nil {
		return t, nil
	}
	r, err := parser.Parse(strings.ToLower(input), base)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", input, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not recognize time %q", input)
	}
	return r.Time, nil
}
