package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E101-E199)
	// ============================================

	"E101": {
		Category: CategoryConfig,
		Message:  "Unknown state key",
		Detail:   "The tree references a state key that was not declared in the initial state. Keys are fixed when the store is built.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Unknown component tag",
		Detail:   "Component tags are a closed set of short names. Check the tag table for the accepted values.",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Unknown property",
		Detail:   "Property names are short fixed keys. Style, native and event properties are listed in the property table.",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Invalid state operation",
		Detail:   "The operator cannot be applied to the current value or operand, for example appending to a value that is not a list.",
	},
	"E105": {
		Category: CategoryConfig,
		Message:  "Unknown callback",
		Detail:   "An event or error handler names a callback that was not registered with the mount.",
	},
	"E106": {
		Category: CategoryConfig,
		Message:  "Duplicate iteration key",
		Detail:   "Two items of an iteration share the same key value. Keys must be unique within one list.",
	},
	"E107": {
		Category: CategoryConfig,
		Message:  "Invalid island",
		Detail:   "Island identifiers must be unique and media islands need a media query.",
	},
	"E108": {
		Category: CategoryRoute,
		Message:  "Invalid redirect",
		Detail:   "Redirect results must use one of the status codes 301, 302, 307 or 308.",
	},
	"E109": {
		Category: CategoryConfig,
		Message:  "Malformed node",
		Detail:   "The value does not describe an element, conditional, iteration, boundary or island node.",
	},
	"E110": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "A configuration value is out of range or missing.",
	},

	// ============================================
	// Render Errors (E201-E299)
	// ============================================

	"E201": {
		Category: CategoryRender,
		Message:  "Render failed",
		Detail:   "Mounting or updating a subtree failed and no error boundary caught it.",
	},
	"E202": {
		Category: CategoryRender,
		Message:  "Fallback render failed",
		Detail:   "The fallback of an error boundary failed. Fallback errors are not caught again.",
	},

	// ============================================
	// Stream Errors (E301-E399)
	// ============================================

	"E301": {
		Category: CategoryStream,
		Message:  "Stream aborted",
		Detail:   "Chunk production stopped because of an error or because the consumer went away.",
	},

	// ============================================
	// Serialization Errors (E401-E499)
	// ============================================

	"E401": {
		Category: CategorySerialization,
		Message:  "Malformed snapshot",
		Detail:   "The state snapshot could not be parsed or contains a dangling reference.",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Codes returns all registered error codes.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}
