// Package publisher holds helpers shared by run report publishers.
package publisher

// Attributer is implemented by payloads that carry message attributes.
type Attributer interface {
	Attributes() map[string]string
}

// AttributesOf returns the attributes of payload, or nil.
func AttributesOf(payload any) map[string]string {
	a, ok := payload.(Attributer)
	if !ok {
		return nil
	}
	return a.Attributes()
}
