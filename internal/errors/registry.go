package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://github.com/vango-dev/keyed/blob/main/docs/errors.md#"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "No keyed.json was found in the given directory.",
		DocURL:   docBase + "E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "keyed.json could not be parsed as JSON.",
		DocURL:   docBase + "E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A configuration value is outside its allowed set or range.",
		DocURL:   docBase + "E122",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Config write failed",
		Detail:   "keyed.json could not be written.",
		DocURL:   docBase + "E123",
	},

	// ============================================
	// Reconciliation Errors (E200-E219)
	// ============================================

	"E201": {
		Category: CategoryValidation,
		Message:  "Duplicate keys in list",
		Detail:   "Two or more items share a key. Only the first occurrence is rendered; the others collapse into it.",
		DocURL:   docBase + "E201",
	},
	"E202": {
		Category: CategoryValidation,
		Message:  "Diff does not fit the list",
		Detail:   "An operation in the diff refers to a position outside the list it is applied to.",
		DocURL:   docBase + "E202",
	},
	"E203": {
		Category: CategoryRuntime,
		Message:  "Reentrant reconciliation",
		Detail:   "A diff was applied to a keyed state while another apply on the same state was still running. Factories and teardown hooks must not trigger reconciliation of their own list.",
		DocURL:   docBase + "E203",
	},
	"E204": {
		Category: CategoryConfig,
		Message:  "Unknown diff strategy",
		Detail:   "Valid strategies are \"shift\" and \"lis\".",
		DocURL:   docBase + "E204",
	},
	"E205": {
		Category: CategoryConfig,
		Message:  "Unknown duplicate key policy",
		Detail:   "Valid policies are \"warn\" and \"reject\".",
		DocURL:   docBase + "E205",
	},

	// ============================================
	// Protocol Errors (E260-E269)
	// ============================================

	"E260": {
		Category: CategoryProtocol,
		Message:  "Invalid frame",
		Detail:   "The frame header is truncated or its payload length does not match.",
		DocURL:   docBase + "E260",
	},
	"E261": {
		Category: CategoryProtocol,
		Message:  "Unknown frame type",
		Detail:   "The frame type is not recognized.",
		DocURL:   docBase + "E261",
	},
	"E262": {
		Category: CategoryProtocol,
		Message:  "Invalid message format",
		Detail:   "The payload could not be decoded.",
		DocURL:   docBase + "E262",
	},
	"E263": {
		Category: CategoryProtocol,
		Message:  "Message sequence error",
		Detail:   "A snapshot arrived with a sequence number that is not newer than the last one.",
		DocURL:   docBase + "E263",
	},

	// ============================================
	// Storage Errors (E270-E279)
	// ============================================

	"E270": {
		Category: CategoryStorage,
		Message:  "Snapshot not found",
		Detail:   "No stored baseline exists for this session.",
		DocURL:   docBase + "E270",
	},
	"E271": {
		Category: CategoryStorage,
		Message:  "Snapshot store failure",
		Detail:   "The snapshot backend returned an error.",
		DocURL:   docBase + "E271",
	},

	// ============================================
	// CLI Errors (E300-E319)
	// ============================================

	"E300": {
		Category: CategoryCLI,
		Message:  "Invalid key list",
		Detail:   "Key lists are comma separated, e.g. --old A,B,C.",
		DocURL:   docBase + "E300",
	},
	"E301": {
		Category: CategoryCLI,
		Message:  "Scenario check failed",
		Detail:   "At least one scenario produced a diff that differs from its expectation.",
		DocURL:   docBase + "E301",
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
