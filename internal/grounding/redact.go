package grounding

import (
	"regexp"
	"strings"
)

// Appliance brand names stripped from every grounding block. The prompt
// rules forbid surfacing a manual or a brand to the guest, so the model
// must never see one in its context.
var brandNames = []string{
	"Balay", "Bosch", "Siemens", "Samsung", "Whirlpool", "Zanussi",
	"Teka", "Indesit", "Fagor", "Miele", "Electrolux", "AEG", "Candy",
	"Beko", "Hotpoint", "Smeg", "Liebherr", "Daikin", "Mitsubishi",
}

var brandPattern = regexp.MustCompile(
	`(?i)\b(?:` + strings.Join(brandNames, "|") + `)\b[ ]?`)

var multiSpace = regexp.MustCompile(`[ ]{2,}`)

// redact strips brand/model names and collapses the leftover whitespace.
func redact(text string) string {
	out := brandPattern.ReplaceAllString(text, "")
	out = multiSpace.ReplaceAllString(out, " ")
	return strings.TrimRight(out, " ")
}
