package providers

// Base provides the capability flags and identity shared by adapter
// implementations. Embed it to avoid repeating the boolean getters.
type Base struct {
	id       ID
	saas     bool
	jsonMode bool
	images   bool
}

// ID returns the provider identifier.
func (b *Base) ID() ID { return b.id }

// SupportsSAAS reports per-request credential support.
func (b *Base) SupportsSAAS() bool { return b.saas }

// SupportsJSONMode reports forced-JSON output support.
func (b *Base) SupportsJSONMode() bool { return b.jsonMode }

// SupportsImages reports image content support.
func (b *Base) SupportsImages() bool { return b.images }

// requireNoMedia returns an UnsupportedOptionError when the message list
// carries media an adapter cannot accept.
func (b *Base) requireNoMedia(messages []Message) error {
	if !b.images && ContainsMedia(messages) {
		return &UnsupportedOptionError{Provider: b.id, Option: "image or file content"}
	}
	return nil
}

// requireNoJSONMode returns an UnsupportedOptionError when JSON mode was
// explicitly requested from an adapter that cannot honor it.
func (b *Base) requireNoJSONMode(params QueryParams) error {
	if !b.jsonMode && params.JSONModeRequested() {
		return &UnsupportedOptionError{Provider: b.id, Option: "jsonMode"}
	}
	return nil
}

// resolveNative picks the native model ID: the catalog override when pinned,
// otherwise the adapter's closed mapping table. Unknown logical models are an
// UnsupportedOptionError so the pipeline treats them as per-candidate.
func (b *Base) resolveNative(params QueryParams, table map[string]string) (string, error) {
	if params.NativeModelID != "" {
		return params.NativeModelID, nil
	}
	if native, ok := table[params.Model]; ok {
		return native, nil
	}
	return "", &UnsupportedOptionError{Provider: b.id, Option: "model " + params.Model}
}
