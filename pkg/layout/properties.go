// SPDX-License-Identifier: MPL-2.0

package layout

import (
	"bufio"
	"fmt"
	"io"

	"github.com/canuckistani/jetpack-repacker/pkg/jsonutil"
)

// otherRule is the generic plural form, written under the bare key.
const otherRule = "other"

// WriteProperties renders a locale object as UTF-8 .properties lines in
// document order. String values become "key=value". Object values hold
// plural forms and become "key[rule]=value", except the "other" rule which
// is written as "key=value" for runtimes that require a generic form.
func WriteProperties(w io.Writer, locale *jsonutil.Object) error {
	bw := bufio.NewWriter(w)

	for _, key := range locale.Keys() {
		raw, _ := locale.Get(key)

		switch jsonutil.KindOf(raw) {
		case jsonutil.KindString:
			var value string
			if _, err := locale.Decode(key, &value); err != nil {
				return fmt.Errorf("%w: key %q: %w", ErrInvalidLocale, key, err)
			}
			writeLine(bw, key, value)

		case jsonutil.KindObject:
			plurals := jsonutil.NewObject()
			if _, err := locale.Decode(key, plurals); err != nil {
				return fmt.Errorf("%w: key %q: %w", ErrInvalidLocale, key, err)
			}
			for _, rule := range plurals.Keys() {
				if form, _ := plurals.Get(rule); jsonutil.KindOf(form) != jsonutil.KindString {
					return fmt.Errorf("%w: plural form %s[%s] is not a string", ErrInvalidLocale, key, rule)
				}
				var value string
				if _, err := plurals.Decode(rule, &value); err != nil {
					return fmt.Errorf("%w: plural form %s[%s] is not a string", ErrInvalidLocale, key, rule)
				}
				if rule == otherRule {
					writeLine(bw, key, value)
				} else {
					writeLine(bw, key+"["+rule+"]", value)
				}
			}

		default:
			return fmt.Errorf("%w: key %q has unsupported %s value", ErrInvalidLocale, key, jsonutil.KindOf(raw))
		}
	}

	return bw.Flush()
}

func writeLine(w *bufio.Writer, key, value string) {
	_, _ = w.WriteString(key)
	_ = w.WriteByte('=')
	_, _ = w.WriteString(value)
	_ = w.WriteByte('\n')
}
