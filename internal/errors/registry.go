package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// Registered error codes.
const (
	CodePluginConflict  = "E201"
	CodeItemConflict    = "E202"
	CodeHandlerFailed   = "E203"
	CodeBuiltinOverride = "E204"
	CodeUnknownStrategy = "E205"
	CodeInvalidPlugin   = "E206"
	CodeSetupFailed     = "E207"
	CodeHandlerNotFound = "E208"
	CodeInvalidValue    = "E209"
	CodeSubmitInvalid   = "E210"
	CodeConfigParse     = "E220"
	CodeConfigInvalid   = "E221"
	CodeManifestInvalid = "E222"
)

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Conflict Errors (E200-E219)
	// ============================================

	CodePluginConflict: {
		Category: CategoryConflict,
		Message:  "Plugin already installed",
		Detail:   "A plugin with the same name is already registered. Re-registration is treated as a conflict.",
		DocURL:   "https://formplug.dev/docs/errors/E201",
	},
	CodeItemConflict: {
		Category: CategoryConflict,
		Message:  "Registration conflict",
		Detail:   "The item is already owned by another plugin.",
		DocURL:   "https://formplug.dev/docs/errors/E202",
	},
	CodeHandlerFailed: {
		Category: CategoryValidation,
		Message:  "Handler invocation failed",
		Detail:   "A registered validator or submission handler panicked or returned an error.",
		DocURL:   "https://formplug.dev/docs/errors/E203",
	},
	CodeBuiltinOverride: {
		Category: CategoryConflict,
		Message:  "Built-in override rejected",
		Detail:   "Built-in components cannot be replaced by plugins.",
		DocURL:   "https://formplug.dev/docs/errors/E204",
	},
	CodeUnknownStrategy: {
		Category: CategoryConflict,
		Message:  "Unknown resolution strategy",
		Detail:   "Valid strategies are error, warn, override and skip.",
		DocURL:   "https://formplug.dev/docs/errors/E205",
	},
	CodeInvalidPlugin: {
		Category: CategoryPlugin,
		Message:  "Invalid plugin",
		Detail:   "The plugin definition is incomplete.",
		DocURL:   "https://formplug.dev/docs/errors/E206",
	},
	CodeSetupFailed: {
		Category: CategoryPlugin,
		Message:  "Plugin setup failed",
		Detail:   "The plugin's Setup hook returned an error.",
		DocURL:   "https://formplug.dev/docs/errors/E207",
	},
	CodeHandlerNotFound: {
		Category: CategoryPlugin,
		Message:  "Submission handler not found",
		Detail:   "No submission handler is registered under the requested name.",
		DocURL:   "https://formplug.dev/docs/errors/E208",
	},
	CodeInvalidValue: {
		Category: CategoryPlugin,
		Message:  "Invalid registration value",
		Detail:   "The value does not match the resource kind it was registered under.",
		DocURL:   "https://formplug.dev/docs/errors/E209",
	},
	CodeSubmitInvalid: {
		Category: CategoryValidation,
		Message:  "Submission rejected",
		Detail:   "The form values failed validation, so the submission handler was not called.",
		DocURL:   "https://formplug.dev/docs/errors/E210",
	},

	// ============================================
	// Config Errors (E220-E239)
	// ============================================

	CodeConfigParse: {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be parsed.",
		DocURL:   "https://formplug.dev/docs/errors/E220",
	},
	CodeConfigInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range or unrecognised.",
		DocURL:   "https://formplug.dev/docs/errors/E221",
	},
	CodeManifestInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid plugin manifest",
		Detail:   "A plugin manifest could not be compiled into a plugin.",
		DocURL:   "https://formplug.dev/docs/errors/E222",
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
