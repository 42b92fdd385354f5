package domain

import (
	"regexp"
	"strconv"
)

var placeholderRe = regexp.MustCompile(`\[(name|ext|contenthash|hash|chunkhash)(?::(\d+))?\]`)

// ExpandTemplate fills a filename template. Hash placeholders accept an
// optional length, e.g. [contenthash:8]. Unknown placeholders are kept.
func ExpandTemplate(template, name, ext, hash string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		sub := placeholderRe.FindStringSubmatch(m)
		switch sub[1] {
		case "name":
			return name
		case "ext":
			return ext
		default:
			if sub[2] == "" {
				return hash
			}
			n, err := strconv.Atoi(sub[2])
			if err != nil || n >= len(hash) {
				return hash
			}
			return hash[:n]
		}
	})
}

// TemplateHasHash reports whether the template contains a hash placeholder.
func TemplateHasHash(template string) bool {
	for _, sub := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if sub[1] != "name" && sub[1] != "ext" {
			return true
		}
	}
	return false
}

// TemplateHasName reports whether the template contains a [name] placeholder.
func TemplateHasName(template string) bool {
	for _, sub := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if sub[1] == "name" {
			return true
		}
	}
	return false
}
