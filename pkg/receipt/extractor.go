// Package receipt turns scanned receipts into structured expense data.
package receipt

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/shopspring/decimal"
)

// Defaults used when a field cannot be extracted.
const (
	DefaultStoreName = "Unknown Store"
	dateLayout       = "2006-01-02"
)

// Extraction sources.
const (
	SourceAI      = "ai"
	SourceRegex   = "regex"
	SourceDefault = "default"
)

const currencyPattern = `(?:₹|\$|€|£|Rs\.?|INR)`

var (
	// Groups: currency prefix, integer part, decimal part.
	amountRe = regexp.MustCompile(`(` + currencyPattern + `\s?)?(\d{1,3}(?:[,.]\d{3})+|\d+)([.,]\d{2})?\b`)

	ymdRe = regexp.MustCompile(`\b(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})\b`)
	dmyRe = regexp.MustCompile(`\b(\d{1,2})[-/.](\d{1,2})[-/.](\d{4}|\d{2})\b`)

	timeRe   = regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?\b`)
	numberRe = regexp.MustCompile(`\d+(?:[.,]\d+)*`)

	totalKeywordRe = regexp.MustCompile(`(?i)\b(total|amount|balance|sum)\b`)
	subtotalRe     = regexp.MustCompile(`(?i)\bsub[\s-]*total\b`)
	itemExcludeRe  = regexp.MustCompile(`(?i)\b(total|sub[\s-]*total|tax|balance|change|cash|credit|debit|card)\b`)

	storeNameRe  = regexp.MustCompile(`^[A-Z][A-Z0-9&'.,#\- ]*[A-Z0-9.]$`)
	storeSkipRe  = regexp.MustCompile(`(?i)\b(receipt|invoice|bill|thank|welcome|tel|phone|gst|vat)\b`)
	lettersRe    = regexp.MustCompile(`[A-Z]`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	currencyRe             = regexp.MustCompile(currencyPattern)
	trailingCommaDecimalRe = regexp.MustCompile(`^-?\d+,\d{1,2}$`)
)

// Extractor parses free-form receipt text.
type Extractor struct {
	now func() time.Time
}

// NewExtractor creates an extractor. The clock supplies the default date.
func NewExtractor(now func() time.Time) *Extractor {
	if now == nil {
		now = time.Now
	}
	return &Extractor{now: now}
}

// Extract parses text with the wall clock as the default date.
func Extract(text string) model.ReceiptExtraction {
	return NewExtractor(nil).Extract(text)
}

// Extract parses text into a ReceiptExtraction. It never fails; fields that
// cannot be found keep their defaults.
func (e *Extractor) Extract(text string) (out model.ReceiptExtraction) {
	out = e.defaults()
	out.Source = SourceRegex

	defer func() {
		if r := recover(); r != nil {
			out = e.defaults()
			out.Source = SourceRegex
		}
	}()

	lines := splitLines(text)
	if name, ok := findStoreName(lines); ok {
		out.StoreName = name
	}
	if date, ok := ParseDate(text); ok {
		out.Date = date
	}
	out.TotalAmount = findTotal(lines)
	out.Items = findItems(lines)
	return out
}

func (e *Extractor) defaults() model.ReceiptExtraction {
	return model.ReceiptExtraction{
		StoreName:   DefaultStoreName,
		Date:        e.now().Format(dateLayout),
		TotalAmount: decimal.Zero,
		Items:       []model.ReceiptItem{},
		Source:      SourceDefault,
	}
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(whitespaceRe.ReplaceAllString(l, " "))
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func findStoreName(lines []string) (string, bool) {
	for _, l := range lines {
		if !storeNameRe.MatchString(l) || len(lettersRe.FindAllString(l, -1)) < 3 {
			continue
		}
		if totalKeywordRe.MatchString(l) || itemExcludeRe.MatchString(l) || storeSkipRe.MatchString(l) {
			continue
		}
		if len(amountsIn(l)) > 0 {
			continue
		}
		return l, true
	}
	return "", false
}

// ParseDate finds the first valid date in text and returns it as YYYY-MM-DD.
// Y-M-D is unambiguous. For a/b/y, a value above 12 fixes the day position;
// when both are 12 or less the order is day/month. Two-digit years below 50
// are 20xx, the rest 19xx.
func ParseDate(text string) (string, bool) {
	type candidate struct {
		pos   int
		parse func() (time.Time, bool)
	}
	var cands []candidate

	for _, m := range ymdRe.FindAllStringSubmatchIndex(text, -1) {
		y, mo, d := atoi(text[m[2]:m[3]]), atoi(text[m[4]:m[5]]), atoi(text[m[6]:m[7]])
		cands = append(cands, candidate{m[0], func() (time.Time, bool) { return makeDate(y, mo, d) }})
	}
	for _, m := range dmyRe.FindAllStringSubmatchIndex(text, -1) {
		a, b, yRaw := atoi(text[m[2]:m[3]]), atoi(text[m[4]:m[5]]), text[m[6]:m[7]]
		y := atoi(yRaw)
		if len(yRaw) == 2 {
			if y < 50 {
				y += 2000
			} else {
				y += 1900
			}
		}
		cands = append(cands, candidate{m[0], func() (time.Time, bool) {
			switch {
			case a > 12:
				return makeDate(y, b, a)
			case b > 12:
				return makeDate(y, a, b)
			default:
				return makeDate(y, b, a)
			}
		}})
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].pos < cands[j].pos })
	for _, c := range cands {
		if t, ok := c.parse(); ok {
			return t.Format(dateLayout), true
		}
	}
	return "", false
}

func makeDate(y, m, d int) (time.Time, bool) {
	if m < 1 || m > 12 || d < 1 || d > 31 || y < 1900 || y > 2999 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

type amount struct {
	value    decimal.Decimal
	currency bool
	start    int
	end      int
}

// amountsIn returns the money-like tokens of a line: those with a currency
// prefix or two decimal places. Dates are removed first.
func amountsIn(line string) []amount {
	line = ymdRe.ReplaceAllStringFunc(line, blank)
	line = dmyRe.ReplaceAllStringFunc(line, blank)

	var out []amount
	for _, m := range amountRe.FindAllStringSubmatchIndex(line, -1) {
		hasCurrency := m[2] >= 0
		hasDecimals := m[6] >= 0
		if !hasCurrency && !hasDecimals {
			continue
		}
		intPart := line[m[4]:m[5]]
		decPart := ""
		if hasDecimals {
			decPart = line[m[6]:m[7]]
		}
		v, ok := normalizeAmount(intPart, decPart)
		if !ok {
			continue
		}
		out = append(out, amount{value: v, currency: hasCurrency, start: m[0], end: m[1]})
	}
	return out
}

// lastNumberIn returns the last number on a line, ignoring dates and times.
func lastNumberIn(line string) (decimal.Decimal, bool) {
	line = ymdRe.ReplaceAllStringFunc(line, blank)
	line = dmyRe.ReplaceAllStringFunc(line, blank)
	line = timeRe.ReplaceAllStringFunc(line, blank)

	nums := numberRe.FindAllString(line, -1)
	for i := len(nums) - 1; i >= 0; i-- {
		if v, ok := ParseAmount(nums[i]); ok {
			return v, true
		}
	}
	return decimal.Zero, false
}

// blank replaces a match with spaces so positions are preserved.
func blank(s string) string {
	return strings.Repeat(" ", len(s))
}

func normalizeAmount(intPart, decPart string) (decimal.Decimal, bool) {
	intPart = strings.NewReplacer(",", "", ".", "").Replace(intPart)
	s := intPart
	if decPart != "" {
		s += "." + decPart[1:]
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

// ParseAmount parses a free-form money string such as "₹1,234.50", "12.5"
// or "52,11".
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = currencyRe.ReplaceAllString(strings.TrimSpace(s), "")
	s = strings.ReplaceAll(s, " ", "")
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0 && trailingCommaDecimalRe.MatchString(s):
		s = strings.Replace(s, ",", ".", 1)
	default:
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

func findTotal(lines []string) decimal.Decimal {
	isTotalLine := func(l string) bool {
		return totalKeywordRe.MatchString(l) && !subtotalRe.MatchString(l)
	}

	// Keyword with a currency-prefixed amount, top down.
	for _, l := range lines {
		if !isTotalLine(l) {
			continue
		}
		amounts := amountsIn(l)
		for i := len(amounts) - 1; i >= 0; i-- {
			if amounts[i].currency {
				return amounts[i].value
			}
		}
	}

	// Keyword with any number, bottom up.
	for i := len(lines) - 1; i >= 0; i-- {
		if !isTotalLine(lines[i]) {
			continue
		}
		if v, ok := lastNumberIn(lines[i]); ok {
			return v
		}
	}

	// The largest amount, if it stands out from the rest.
	var all []decimal.Decimal
	for _, l := range lines {
		for _, a := range amountsIn(l) {
			all = append(all, a.value)
		}
	}
	if len(all) == 0 {
		return decimal.Zero
	}
	maxV, sum := all[0], decimal.Zero
	for _, v := range all {
		sum = sum.Add(v)
		if v.GreaterThan(maxV) {
			maxV = v
		}
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(all))))
	if maxV.GreaterThanOrEqual(mean.Mul(decimal.NewFromFloat(1.5))) {
		return maxV
	}
	return decimal.Zero
}

func findItems(lines []string) []model.ReceiptItem {
	items := []model.ReceiptItem{}
	for _, l := range lines {
		amounts := amountsIn(l)
		if len(amounts) == 0 {
			continue
		}
		last := amounts[len(amounts)-1]
		if strings.TrimSpace(l[last.end:]) != "" {
			continue
		}
		name := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(l[:last.start]), ":-@*"))
		if name == "" || !strings.ContainsFunc(name, isLetter) {
			continue
		}
		if itemExcludeRe.MatchString(name) {
			continue
		}
		items = append(items, model.ReceiptItem{Name: name, Price: last.value})
	}
	return items
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
