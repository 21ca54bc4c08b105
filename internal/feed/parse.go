package feed

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Candidate item containers and per-field tag names, tried in order. The
// first variant that yields a non-empty result wins.
var (
	itemTags = []string{"item", "exchanger", "direction", "rate", "row"}

	fromTags      = []string{"from", "give", "from_currency", "source"}
	toTags        = []string{"to", "get", "to_currency", "target", "receive"}
	fromNameTags  = []string{"fromname", "from_name", "give_name", "source_name"}
	toNameTags    = []string{"toname", "to_name", "get_name", "target_name"}
	inTags        = []string{"in", "in_amount", "give_amount", "amount_from"}
	outTags       = []string{"out", "out_amount", "get_amount", "amount_to"}
	methodTags    = []string{"method", "payment_method", "bank"}
	minAmountTags = []string{"minamount", "min_amount", "min"}
	maxAmountTags = []string{"maxamount", "max_amount", "max"}
	locationTags  = []string{"city", "location", "place"}
)

type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Content  string     `xml:",chardata"`
	Children []element  `xml:",any"`
}

// ParseDocument parses a feed document into exchange directions. Items that
// fail to parse are skipped; an error is returned only for malformed XML.
func ParseDocument(content string) ([]Direction, error) {
	var root element
	if err := xml.Unmarshal([]byte(content), &root); err != nil {
		return nil, fmt.Errorf("parse feed document: %w", err)
	}

	var items []element
	for _, tag := range itemTags {
		items = findAll(root, tag)
		if len(items) > 0 {
			break
		}
	}
	if len(items) == 0 {
		items = root.Children
	}

	directions := make([]Direction, 0, len(items))
	for _, item := range items {
		if d, ok := parseItem(item); ok {
			directions = append(directions, d)
		}
	}
	return directions, nil
}

func findAll(root element, tag string) []element {
	var found []element
	var walk func(element)
	walk = func(el element) {
		for _, child := range el.Children {
			if strings.EqualFold(child.XMLName.Local, tag) {
				found = append(found, child)
				continue
			}
			walk(child)
		}
	}
	walk(root)
	return found
}

func parseItem(item element) (Direction, bool) {
	fromCode := text(item, fromTags)
	toCode := text(item, toTags)
	if fromCode == "" || toCode == "" {
		return Direction{}, false
	}

	fromName := text(item, fromNameTags)
	if fromName == "" {
		fromName = fromCode
	}
	toName := text(item, toNameTags)
	if toName == "" {
		toName = toCode
	}

	inAmount := parseAmount(text(item, inTags))
	outAmount := parseAmount(text(item, outTags))

	method := strings.ToLower(text(item, methodTags))
	if method == "" {
		method = MethodForCode(toCode)
	}

	d := Direction{
		FromCode:  strings.ToUpper(fromCode),
		ToCode:    strings.ToUpper(toCode),
		FromName:  fromName,
		ToName:    toName,
		InAmount:  inAmount,
		OutAmount: outAmount,
		Method:    method,
		Location:  strings.ToUpper(text(item, locationTags)),
	}

	if raw := text(item, minAmountTags); raw != "" {
		if v, err := decimal.NewFromString(normalizeNumber(raw)); err == nil {
			d.MinAmount = &v
		}
	}
	if raw := text(item, maxAmountTags); raw != "" {
		if v, err := decimal.NewFromString(normalizeNumber(raw)); err == nil {
			d.MaxAmount = &v
		}
	}

	return d, true
}

// text tries each candidate name as a child element first, then as an
// attribute.
func text(el element, candidates []string) string {
	for _, name := range candidates {
		for _, child := range el.Children {
			if strings.EqualFold(child.XMLName.Local, name) {
				if v := strings.TrimSpace(child.Content); v != "" {
					return v
				}
			}
		}
		for _, attr := range el.Attrs {
			if strings.EqualFold(attr.Name.Local, name) {
				if v := strings.TrimSpace(attr.Value); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

func normalizeNumber(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
}

func parseAmount(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.NewFromInt(1)
	}
	v, err := decimal.NewFromString(normalizeNumber(raw))
	if err != nil {
		return decimal.NewFromInt(1)
	}
	return v
}
