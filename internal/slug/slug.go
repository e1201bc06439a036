// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug derives typable handles from category names, so a category
// called "Eating Out" can be given on the command line as eating-out.
package slug

import (
	"regexp"
	"strings"
)

var (
	// unwanted matches anything that isn't a letter, digit or separator.
	unwanted = regexp.MustCompile(`[^a-z0-9\s_-]`)
	// separators collapses runs of spaces, underscores and hyphens.
	separators = regexp.MustCompile(`[\s_-]+`)
)

// Generate returns the handle for name: lower case ASCII letters and
// digits, words joined by single hyphens.
// Example: "Sleep & Recovery (2026)" → "sleep-recovery-2026"
func Generate(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = unwanted.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Matches reports whether arg refers to the category called name, either
// by the name itself ignoring case or by its handle. An argument with an
// empty handle only matches by name.
func Matches(name, arg string) bool {
	if strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(arg)) {
		return true
	}
	h := Generate(arg)
	return h != "" && h == Generate(name)
}
