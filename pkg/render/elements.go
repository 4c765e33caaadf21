package render

// inlineElements are not followed by a newline in pretty output.
var inlineElements = map[string]bool{
	"a":        true,
	"b":        true,
	"button":   true,
	"code":     true,
	"em":       true,
	"i":        true,
	"img":      true,
	"input":    true,
	"label":    true,
	"option":   true,
	"select":   true,
	"small":    true,
	"span":     true,
	"strong":   true,
	"textarea": true,
}
