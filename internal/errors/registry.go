package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Registry Errors (E001-E019)
	// ============================================

	"E001": {
		Category: CategoryRegistry,
		Message:  "Element kind already registered",
		Detail:   "Each custom element kind may be defined exactly once per registry. A second definition indicates two code paths claiming the same kind.",
		DocURL:   "https://sill.dev/docs/errors/E001",
	},
	"E002": {
		Category: CategoryRegistry,
		Message:  "Invalid element kind name",
		Detail:   "Custom element kind names must be lowercase, start with a letter, and contain at least one hyphen.",
		DocURL:   "https://sill.dev/docs/errors/E002",
	},
	"E003": {
		Category: CategoryRegistry,
		Message:  "Definition after dispatch started",
		Detail:   "All element kinds must be defined before the dispatcher handles its first notification. Late definitions would make lookup results depend on timing.",
		DocURL:   "https://sill.dev/docs/errors/E003",
	},
	"E004": {
		Category: CategoryRegistry,
		Message:  "Unknown element kind",
		Detail:   "The notification names a kind no descriptor was registered for.",
		DocURL:   "https://sill.dev/docs/errors/E004",
	},

	// ============================================
	// Lifecycle Errors (E020-E039)
	// ============================================

	"E020": {
		Category: CategoryLifecycle,
		Message:  "Unknown instance handle",
		Detail:   "The notification references an element handle with no live instance. The host may deliver stale notifications after destruction; these are ignored.",
		DocURL:   "https://sill.dev/docs/errors/E020",
	},
	"E021": {
		Category: CategoryLifecycle,
		Message:  "Instance already constructed",
		Detail:   "A construction notification arrived for a handle that already has a live instance. The host contract guarantees at most one construction per element.",
		DocURL:   "https://sill.dev/docs/errors/E021",
	},
	"E022": {
		Category: CategoryLifecycle,
		Message:  "Lifecycle callback failed",
		Detail:   "A lifecycle callback returned an error or panicked. The failure is contained to the instance; dispatch continues.",
		DocURL:   "https://sill.dev/docs/errors/E022",
	},
	"E023": {
		Category: CategoryLifecycle,
		Message:  "Notification after finalization",
		Detail:   "A lifecycle notification arrived for an instance that has already been destroyed.",
		DocURL:   "https://sill.dev/docs/errors/E023",
	},

	// ============================================
	// Borrow Errors (E040-E049)
	// ============================================

	"E040": {
		Category: CategoryBorrow,
		Message:  "Reentrant state borrow",
		Detail:   "Instance state was accessed while an earlier access to the same instance was still on the call stack. Nested access is only legal after the outer access has returned.",
		DocURL:   "https://sill.dev/docs/errors/E040",
	},
	"E041": {
		Category: CategoryBorrow,
		Message:  "State borrow leaked",
		Detail:   "An instance borrow was still marked active outside any dispatch. This indicates a callback stored the borrowed state beyond its scope.",
		DocURL:   "https://sill.dev/docs/errors/E041",
	},

	// ============================================
	// Template Errors (E050-E059)
	// ============================================

	"E050": {
		Category: CategoryTemplate,
		Message:  "Template build failed",
		Detail:   "The template builder for this element kind returned an error. The cache stays empty and the next construction retries the build.",
		DocURL:   "https://sill.dev/docs/errors/E050",
	},
	"E051": {
		Category: CategoryTemplate,
		Message:  "Template initialization cycle",
		Detail:   "A template builder re-entered template initialization for its own kind, usually by constructing an element of that kind inside the builder.",
		DocURL:   "https://sill.dev/docs/errors/E051",
	},
	"E052": {
		Category: CategoryTemplate,
		Message:  "Template source not found",
		Detail:   "No asset source could provide the requested template markup.",
		DocURL:   "https://sill.dev/docs/errors/E052",
	},

	// ============================================
	// Protocol Errors (E060-E079)
	// ============================================

	"E060": {
		Category: CategoryProtocol,
		Message:  "Connection failed",
		Detail:   "Unable to establish the bridge connection to the host.",
		DocURL:   "https://sill.dev/docs/errors/E060",
	},
	"E061": {
		Category: CategoryProtocol,
		Message:  "Invalid frame",
		Detail:   "The received frame could not be decoded. The protocol version may be mismatched.",
		DocURL:   "https://sill.dev/docs/errors/E061",
	},
	"E062": {
		Category: CategoryProtocol,
		Message:  "Unknown frame type",
		Detail:   "The frame type byte is not recognized by this end of the bridge.",
		DocURL:   "https://sill.dev/docs/errors/E062",
	},
	"E063": {
		Category: CategoryProtocol,
		Message:  "Frame exceeds size limit",
		Detail:   "The frame payload is larger than the negotiated limit.",
		DocURL:   "https://sill.dev/docs/errors/E063",
	},
	"E064": {
		Category: CategoryProtocol,
		Message:  "Protocol version mismatch",
		Detail:   "The host and the bridge are using incompatible protocol versions.",
		DocURL:   "https://sill.dev/docs/errors/E064",
	},
	"E065": {
		Category: CategoryProtocol,
		Message:  "Result for unknown call",
		Detail:   "A result frame references a call identifier with no pending call.",
		DocURL:   "https://sill.dev/docs/errors/E065",
	},
	"E066": {
		Category: CategoryProtocol,
		Message:  "Handshake failed",
		Detail:   "The hello exchange with the host did not complete.",
		DocURL:   "https://sill.dev/docs/errors/E066",
	},

	// ============================================
	// Host Errors (E080-E099)
	// ============================================

	"E080": {
		Category: CategoryHost,
		Message:  "Node no longer exists",
		Detail:   "The host has destroyed the node behind this handle.",
		DocURL:   "https://sill.dev/docs/errors/E080",
	},
	"E081": {
		Category: CategoryHost,
		Message:  "Fragment no longer exists",
		Detail:   "The fragment handle was already consumed or released.",
		DocURL:   "https://sill.dev/docs/errors/E081",
	},
	"E082": {
		Category: CategoryHost,
		Message:  "Shadow root already attached",
		Detail:   "At most one shadow root may be attached to an element.",
		DocURL:   "https://sill.dev/docs/errors/E082",
	},
	"E083": {
		Category: CategoryHost,
		Message:  "Selector matched no element",
		Detail:   "The query selector found no matching node under the given root.",
		DocURL:   "https://sill.dev/docs/errors/E083",
	},
	"E084": {
		Category: CategoryHost,
		Message:  "Host call rejected",
		Detail:   "The host refused the requested operation.",
		DocURL:   "https://sill.dev/docs/errors/E084",
	},

	// ============================================
	// Configuration Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid sill.json",
		Detail:   "The sill.json configuration file is malformed.",
		DocURL:   "https://sill.dev/docs/errors/E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Missing required configuration",
		Detail:   "A required configuration value is not set.",
		DocURL:   "https://sill.dev/docs/errors/E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid listen address",
		Detail:   "The configured listen address could not be parsed.",
		DocURL:   "https://sill.dev/docs/errors/E122",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Asset root not found",
		Detail:   "The configured template asset directory does not exist.",
		DocURL:   "https://sill.dev/docs/errors/E123",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Invalid scenario file",
		Detail:   "The scenario file could not be parsed.",
		DocURL:   "https://sill.dev/docs/errors/E140",
	},
	"E141": {
		Category: CategoryCLI,
		Message:  "Unknown scenario step",
		Detail:   "The scenario contains a step kind the simulator does not recognize.",
		DocURL:   "https://sill.dev/docs/errors/E141",
	},
	"E142": {
		Category: CategoryCLI,
		Message:  "Scenario step failed",
		Detail:   "A scenario step produced an unexpected result.",
		DocURL:   "https://sill.dev/docs/errors/E142",
	},
	"E143": {
		Category: CategoryCLI,
		Message:  "Unknown project template",
		Detail:   "No project template with this name is built in.",
		DocURL:   "https://sill.dev/docs/errors/E143",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
