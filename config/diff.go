package config

import (
	"bytes"

	"github.com/samber/lo"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff returns a pretty printed summary of what was added and removed going from left to
// right. It is empty when both configs encode identically.
func Diff(left, right *Config) (string, error) {
	var leftBuf, rightBuf bytes.Buffer
	if err := Write(&leftBuf, left); err != nil {
		return "", err
	}
	if err := Write(&rightBuf, right); err != nil {
		return "", err
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(leftBuf.String(), rightBuf.String(), true)
	changed := lo.Filter(diffs, func(d diffmatchpatch.Diff, _ int) bool {
		return d.Type != diffmatchpatch.DiffEqual
	})
	if len(changed) == 0 {
		return "", nil
	}
	return dmp.DiffPrettyText(changed), nil
}
