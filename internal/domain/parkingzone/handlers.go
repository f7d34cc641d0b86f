// Package parkingzone rewrites the free text of parking zone additional
// signs into the canonical bilingual form and derives structured content.
package parkingzone

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

const (
	errZonePermit     = "Could not get zone and permit from additional_information"
	errZoneLimitUnit  = "Could not get zone, limit and unit from additional_information"
	errTextNumbercode = "text and numbercode not found from additional_information"
	errPermitMissing  = "Could not get permit code from additional_information"
)

var (
	textNumbercodePattern    = regexp.MustCompile(`text:\s*(.*?);\s*numbercode:\s*(.*)`)
	permitJoinPattern        = regexp.MustCompile(`(\b\w+\b)\s*/(\b\w+\b)`)
	zoneLimitUnitPattern     = regexp.MustCompile(`^(?:(\d+)\s+(\d+)\s+(min|h)|(\d+)\s*(\d+)(min|h|mın))`)
	canonicalPattern         = regexp.MustCompile(`^text:(.*); numbercode:(.*)$`)
	allowedPermits           = []string{"A", "B", "C", "D", "E", "F", "H", "I", "J", "K", "L", "M", "N", "O", "P", "Z", "A/B", "A/F", "B/C", "C/E", "F/H", "H/L", "I/J", "J/K"}
	allowedZones             = []string{"1", "2", "3"}
	allowedUnits             = []string{"min", "h"}
	defaultExcludedFragments = []string{"vyöhyke", "ei koske p-tunnuksella"}
)

// Result is the outcome of one sign. Content is the structured content the
// text describes, nil when the code carries none.
type Result struct {
	Text    string
	Content map[string]string
	Errors  []string
}

func (r Result) OK() bool { return len(r.Errors) == 0 }

func failure(errs ...string) Result { return Result{Errors: errs} }

// Handler turns additional information into its canonical form.
type Handler func(info string) Result

var handlers = map[string]Handler{
	"H20.71":  zonePermitHandler(newTemplate("Vyöhyke/Zon {zone}. Ei koske P-tunnuksella/Gäller ej med P-tecknet {permit}")),
	"H20.71S": zonePermitHandler(newTemplate("Vyöhyke/Zon {zone}. Maksu ei koske P-tunnuksella/Avgiften gäller ej med P-tecknet {permit}")),
	"H20.72":  zoneLimitHandler(newTemplate("Vyöhyke/Zon {zone}. Kertamaksu enintään/Engångsbetalning max {limit} {unit}")),
	"H20.72S": zoneLimitHandler(newTemplate("Vyöhyke/Zon {zone}. Kertamaksu enintään/Engångsbetalning max {limit} {unit}")),
	"H20.73":  fixedTextHandler("Vyöhyke/Zon 1"),
	"H20.73S": fixedTextHandler("Vyöhyke/Zon 1"),
	"H20.74":  fixedTextHandler("Vyöhyke/Zon 2"),
	"H20.74S": fixedTextHandler("Vyöhyke/Zon 2"),
	"H20.75":  fixedTextHandler("Vyöhyke/Zon 3"),
	"H20.75S": fixedTextHandler("Vyöhyke/Zon 3"),
	"H20.8":   permitHandler(newTemplate("Ei koske P-tunnuksella/Gäller ej med P-tecknet {permit}")),
	"H20.8S":  permitHandler(newTemplate("Maksu ei koske P-tunnuksella/Avgiften gäller ej med P-tecknet {permit}")),
}

// SupportedCodes lists the device type codes with a handler, sorted.
func SupportedCodes() []string {
	codes := make([]string, 0, len(handlers))
	for c := range handlers {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	return codes
}

// Enrich dispatches info to the handler registered for code.
func Enrich(code, info string) Result {
	h, ok := handlers[code]
	if !ok {
		return failure(fmt.Sprintf("Device type: %s not supported", code))
	}
	return h(info)
}

// ExcludedByDefault reports whether info already reads like a rewritten
// zone sign and is left out of the default selection.
func ExcludedByDefault(info string) bool {
	lower := strings.ToLower(info)
	for _, f := range defaultExcludedFragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

func formatInfo(text, numbercode string) string {
	return "text:" + text + "; numbercode:" + numbercode
}

func textAndNumbercode(info string) (string, string, bool) {
	m := textNumbercodePattern.FindStringSubmatch(strings.ReplaceAll(info, "\n", ""))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// canonical returns the parsed values when info is already the rendering of t.
func canonical(t template, info string) (map[string]string, bool) {
	m := canonicalPattern.FindStringSubmatch(info)
	if m == nil {
		return nil, false
	}
	return t.parse(m[1])
}

func mapPermit(p string) string {
	if p == "0" {
		return "O"
	}
	return p
}

func mapUnit(u string) string {
	if u == "mın" {
		return "min"
	}
	return u
}

func zonePermitHandler(t template) Handler {
	return func(info string) Result {
		if vals, ok := canonical(t, info); ok && validZonePermit(vals["zone"], vals["permit"]) == nil {
			return Result{Text: info, Content: vals}
		}
		text, numbercode, ok := textAndNumbercode(info)
		if !ok {
			return failure(errTextNumbercode)
		}
		parts := strings.Fields(strings.ReplaceAll(permitJoinPattern.ReplaceAllString(text, "${1}/${2}"), ";", " "))
		if len(parts) != 2 {
			return failure(errZonePermit)
		}
		zone, permit := parts[0], mapPermit(strings.ToUpper(parts[1]))
		if errs := validZonePermit(zone, permit); errs != nil {
			return failure(errs...)
		}
		vals := map[string]string{"zone": zone, "permit": permit}
		return Result{Text: formatInfo(t.render(vals), numbercode), Content: vals}
	}
}

func validZonePermit(zone, permit string) []string {
	var errs []string
	if !slices.Contains(allowedPermits, permit) {
		errs = append(errs, "Parsed permit code is not allowed: "+permit)
	}
	if !slices.Contains(allowedZones, zone) {
		errs = append(errs, "Parsed zone is not allowed: "+zone)
	}
	return errs
}

func zoneLimitHandler(t template) Handler {
	return func(info string) Result {
		if vals, ok := canonical(t, info); ok && validZoneUnit(vals["zone"], vals["unit"]) == nil {
			return Result{Text: info, Content: vals}
		}
		text, numbercode, ok := textAndNumbercode(info)
		if !ok {
			return failure(errTextNumbercode)
		}
		m := zoneLimitUnitPattern.FindStringSubmatch(strings.ReplaceAll(text, ";", " "))
		if m == nil {
			return failure(errZoneLimitUnit)
		}
		zone, limit, unit := m[1], m[2], m[3]
		if zone == "" {
			zone, limit, unit = m[4], m[5], m[6]
		}
		unit = mapUnit(unit)
		if errs := validZoneUnit(zone, unit); errs != nil {
			return failure(errs...)
		}
		vals := map[string]string{"zone": zone, "limit": limit, "unit": unit}
		return Result{Text: formatInfo(t.render(vals), numbercode), Content: vals}
	}
}

func validZoneUnit(zone, unit string) []string {
	var errs []string
	if !slices.Contains(allowedZones, zone) {
		errs = append(errs, "Parsed zone is not allowed: "+zone)
	}
	if !slices.Contains(allowedUnits, unit) {
		errs = append(errs, "Parsed unit is not allowed: "+unit)
	}
	return errs
}

func fixedTextHandler(text string) Handler {
	return func(info string) Result {
		_, numbercode, ok := textAndNumbercode(info)
		if !ok {
			return failure(errTextNumbercode)
		}
		return Result{Text: formatInfo(text, numbercode)}
	}
}

func permitHandler(t template) Handler {
	return func(info string) Result {
		if vals, ok := canonical(t, info); ok && slices.Contains(allowedPermits, vals["permit"]) {
			return Result{Text: info, Content: vals}
		}
		text, numbercode, ok := textAndNumbercode(info)
		if !ok {
			return failure(errTextNumbercode)
		}
		fields := strings.Fields(strings.ReplaceAll(text, "unreadable", ""))
		if len(fields) != 1 {
			return failure(errPermitMissing)
		}
		permit := mapPermit(strings.ToUpper(fields[0]))
		if !slices.Contains(allowedPermits, permit) {
			return failure("Parsed permit code is not allowed: " + permit)
		}
		vals := map[string]string{"permit": permit}
		return Result{Text: formatInfo(t.render(vals), numbercode), Content: vals}
	}
}
