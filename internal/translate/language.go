package translate

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// AutoLanguage asks the backend to detect the source language
const AutoLanguage = "auto"

// Default language pair
const (
	DefaultSourceLang = AutoLanguage
	DefaultTargetLang = "ko"
)

// NormalizeLanguage validates a BCP 47 tag and returns its canonical form
// ("ZH-cn" -> "zh-CN"). "auto" is accepted only when allowAuto is set.
func NormalizeLanguage(code string, allowAuto bool) (string, error) {
	code = strings.TrimSpace(code)
	if strings.EqualFold(code, AutoLanguage) {
		if allowAuto {
			return AutoLanguage, nil
		}
		return "", &Error{Code: ErrInvalidLanguage, Message: "auto is only valid as a source language"}
	}
	if code == "" {
		return "", &Error{Code: ErrInvalidLanguage, Message: "empty language code"}
	}
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return "", &Error{Code: ErrInvalidLanguage, Message: fmt.Sprintf("invalid language %q", code), Cause: err}
	}
	return tag.String(), nil
}

// NormalizePair normalises a source/target pair, filling in defaults for
// empty values.
func NormalizePair(source, target string) (string, string, error) {
	if strings.TrimSpace(source) == "" {
		source = DefaultSourceLang
	}
	if strings.TrimSpace(target) == "" {
		target = DefaultTargetLang
	}
	src, err := NormalizeLanguage(source, true)
	if err != nil {
		return "", "", err
	}
	tgt, err := NormalizeLanguage(target, false)
	if err != nil {
		return "", "", err
	}
	return src, tgt, nil
}

// DisplayName returns the English name of a language code, or the code
// itself when it has none.
func DisplayName(code string) string {
	if code == AutoLanguage {
		return "the detected source language"
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}
