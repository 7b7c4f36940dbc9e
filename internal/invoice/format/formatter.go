package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)
)

const DefaultBillNumberTemplate = "BILL-{YYYY}{MM}{DD}-{SEQ5}"

// FormatBillNumber renders the human readable bill number from a template,
// the bill creation time and the global bill sequence.
//
// Supported tokens: {YYYY} {YY} {MM} {DD} {SEQ} and {SEQn}, the latter
// zero padded to n digits.
func FormatBillNumber(
	template string,
	createdAt time.Time,
	seq int64,
) (string, error) {

	if template == "" {
		return "", fmt.Errorf("bill number template is empty")
	}

	if seq <= 0 {
		return "", fmt.Errorf("invalid bill sequence: %d", seq)
	}

	out := template

	out = strings.ReplaceAll(out, "{YYYY}", createdAt.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", createdAt.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", createdAt.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", createdAt.Format("02"))

	out = strings.ReplaceAll(out, "{SEQ}", strconv.FormatInt(seq, 10))

	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := seqPadRe.FindStringSubmatch(m)
		if len(match) != 2 {
			return m
		}

		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}

		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.Contains(out, "{") || strings.Contains(out, "}") {
		return "", fmt.Errorf("unresolved token in bill number format: %s", out)
	}

	return out, nil
}

// Money renders an amount with two decimals and thousands separators, for
// example 123456.5 as "1,23,456.50" when grouping is "en-IN" and
// "123,456.50" otherwise.
func Money(symbol string, amount float64, grouping string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	raw := strconv.FormatFloat(amount, 'f', 2, 64)
	whole, frac, _ := strings.Cut(raw, ".")

	var grouped string
	if grouping == "en-IN" {
		grouped = groupIndian(whole)
	} else {
		grouped = groupThousands(whole)
	}
	return sign + symbol + grouped + "." + frac
}

func groupThousands(whole string) string {
	if len(whole) <= 3 {
		return whole
	}
	var b strings.Builder
	head := len(whole) % 3
	if head > 0 {
		b.WriteString(whole[:head])
	}
	for i := head; i < len(whole); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(whole[i : i+3])
	}
	return b.String()
}

func groupIndian(whole string) string {
	if len(whole) <= 3 {
		return whole
	}
	last := whole[len(whole)-3:]
	rest := whole[:len(whole)-3]
	parts := []string{}
	for len(rest) > 2 {
		parts = append([]string{rest[len(rest)-2:]}, parts...)
		rest = rest[:len(rest)-2]
	}
	if rest != "" {
		parts = append([]string{rest}, parts...)
	}
	return strings.Join(parts, ",") + "," + last
}
